package segment

import (
	"math"
	"testing"

	"github.com/soniclint/soniclint/internal/config"
)

// testSegCfg mirrors the default tuning. Tests run at a 1 kHz sample rate so
// sample offsets read directly as milliseconds.
func testSegCfg() config.SegmentationConfig {
	return config.SegmentationConfig{
		MaxBufferedSeconds:     30,
		FlushSeconds:           10,
		SilenceThresholdDB:     -40,
		MinSilenceSeconds:      0.3,
		MinDialogueClipSeconds: 0.1,
		MinVocalClipSeconds:    0.05,
		AmbientWindowSeconds:   5,
		MixedWindowSeconds:     2,
		MinWindowFraction:      0.9,
	}
}

// tone generates n samples of a loud 100 Hz sine at 1 kHz sample rate.
func tone(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.5 * math.Sin(2*math.Pi*100*float64(i)/1000)
	}
	return out
}

func concat(parts ...[]float64) []float64 {
	var out []float64
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestSplit_DialogueAtSilence(t *testing.T) {
	p := NewProcessor(testSegCfg())

	// 0.5 s speech, 0.4 s silence, 0.5 s speech at 1 kHz.
	samples := concat(tone(500), make([]float64, 400), tone(500))
	clips := p.Split(samples, 1000, TypeDialogue)

	if len(clips) != 2 {
		t.Fatalf("clips = %d, want 2", len(clips))
	}
	if clips[0].Offset != 0 || len(clips[0].Samples) != 500 {
		t.Errorf("clip 0 = offset %d len %d, want 0/500", clips[0].Offset, len(clips[0].Samples))
	}
	if clips[1].Offset != 900 || len(clips[1].Samples) != 500 {
		t.Errorf("clip 1 = offset %d len %d, want 900/500", clips[1].Offset, len(clips[1].Samples))
	}
}

func TestSplit_ShortGapDoesNotSplit(t *testing.T) {
	p := NewProcessor(testSegCfg())

	// A 0.2 s gap is below the 0.3 s minimum and must not split the clip.
	samples := concat(tone(500), make([]float64, 200), tone(500))
	clips := p.Split(samples, 1000, TypeDialogue)

	if len(clips) != 1 {
		t.Fatalf("clips = %d, want 1", len(clips))
	}
	if clips[0].Offset != 0 || len(clips[0].Samples) != 1200 {
		t.Errorf("clip = offset %d len %d, want 0/1200", clips[0].Offset, len(clips[0].Samples))
	}
}

func TestSplit_DropsSubMinimumClips(t *testing.T) {
	p := NewProcessor(testSegCfg())

	// A 50 ms blip between two qualifying gaps is below the 100 ms dialogue
	// minimum and is dropped entirely.
	samples := concat(make([]float64, 400), tone(50), make([]float64, 400))
	clips := p.Split(samples, 1000, TypeDialogue)

	if len(clips) != 0 {
		t.Fatalf("clips = %d, want 0", len(clips))
	}
}

func TestSplit_VocalizationKeepsShorterClips(t *testing.T) {
	p := NewProcessor(testSegCfg())

	// A 60 ms burst: dropped on a dialogue bus, kept on a vocalization bus.
	samples := concat(tone(60), make([]float64, 300), tone(500))

	if clips := p.Split(samples, 1000, TypeDialogue); len(clips) != 1 {
		t.Errorf("dialogue clips = %d, want 1", len(clips))
	}
	if clips := p.Split(samples, 1000, TypeVocalization); len(clips) != 2 {
		t.Errorf("vocalization clips = %d, want 2", len(clips))
	}
}

func TestSplit_TrailingSilenceIsAGap(t *testing.T) {
	p := NewProcessor(testSegCfg())

	// A still-open silent region at the end of the buffer qualifies as a gap,
	// so no empty tail clip is emitted.
	samples := concat(tone(500), make([]float64, 400))
	clips := p.Split(samples, 1000, TypeDialogue)

	if len(clips) != 1 {
		t.Fatalf("clips = %d, want 1", len(clips))
	}
	if clips[0].Offset != 0 || len(clips[0].Samples) != 500 {
		t.Errorf("clip = offset %d len %d, want 0/500", clips[0].Offset, len(clips[0].Samples))
	}
}

func TestSplit_AmbientFixedWindows(t *testing.T) {
	p := NewProcessor(testSegCfg())

	// 12 s at 1 kHz with 5 s windows: two full windows, the 2 s tail is
	// under 90% of the window and is dropped.
	clips := p.Split(tone(12000), 1000, TypeAmbient)
	if len(clips) != 2 {
		t.Fatalf("clips = %d, want 2", len(clips))
	}
	for i, c := range clips {
		if len(c.Samples) != 5000 {
			t.Errorf("clip %d len = %d, want 5000", i, len(c.Samples))
		}
		if c.Offset != i*5000 {
			t.Errorf("clip %d offset = %d, want %d", i, c.Offset, i*5000)
		}
	}
}

func TestSplit_AmbientKeepsQualifyingTail(t *testing.T) {
	p := NewProcessor(testSegCfg())

	// A 4.7 s tail clears the 4.5 s (90%) bar and is emitted short.
	clips := p.Split(tone(14700), 1000, TypeAmbient)
	if len(clips) != 3 {
		t.Fatalf("clips = %d, want 3", len(clips))
	}
	if last := clips[2]; last.Offset != 10000 || len(last.Samples) != 4700 {
		t.Errorf("tail = offset %d len %d, want 10000/4700", last.Offset, len(last.Samples))
	}
}

func TestSplit_MixedBusWindows(t *testing.T) {
	p := NewProcessor(testSegCfg())

	// Mixed buses use the 2 s window; a 0.5 s tail is dropped.
	clips := p.Split(tone(4500), 1000, TypeMixedBus)
	if len(clips) != 2 {
		t.Fatalf("clips = %d, want 2", len(clips))
	}
}

func TestSplit_EmptyBuffer(t *testing.T) {
	p := NewProcessor(testSegCfg())
	for _, typ := range []Type{TypeDialogue, TypeAmbient} {
		if clips := p.Split(nil, 1000, typ); len(clips) != 0 {
			t.Errorf("%s clips = %d, want 0", typ, len(clips))
		}
	}
}
