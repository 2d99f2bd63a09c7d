package segment

import (
	"github.com/soniclint/soniclint/internal/config"
	"github.com/soniclint/soniclint/internal/dsp"
)

// Clip is one sub-clip produced by a segmentation pass, with its sample
// offset into the processed buffer so the caller can derive timestamps.
type Clip struct {
	Samples []float64
	Offset  int
}

// Processor cuts a drained buffer into clips using the strategy implied by
// the segment type. It is stateless and safe for concurrent use.
type Processor struct {
	cfg config.SegmentationConfig
}

// NewProcessor creates a processor with the given segmentation tuning.
func NewProcessor(cfg config.SegmentationConfig) *Processor {
	return &Processor{cfg: cfg}
}

// Split cuts samples into clips. Dialogue and vocalization buses split at
// qualifying silence gaps; ambient and mixed buses chunk into fixed windows.
func (p *Processor) Split(samples []float64, sampleRate int, t Type) []Clip {
	switch t {
	case TypeDialogue:
		return p.splitAtSilence(samples, sampleRate, p.cfg.MinDialogueClipSeconds)
	case TypeVocalization:
		return p.splitAtSilence(samples, sampleRate, p.cfg.MinVocalClipSeconds)
	case TypeAmbient:
		return p.fixedWindows(samples, sampleRate, p.cfg.AmbientWindowSeconds)
	default:
		return p.fixedWindows(samples, sampleRate, p.cfg.MixedWindowSeconds)
	}
}

// region is a half-open sample interval [start, end).
type region struct {
	start, end int
}

// silenceGaps finds qualifying silence gaps in a mono clip: RMS is computed
// in fixed 10 ms windows, converted to dB, and windows below the silence
// threshold are merged into regions. A region qualifies as a gap when it
// lasts at least the minimum silence duration; a still-open region at the
// end of the clip qualifies under the same rule.
func (p *Processor) silenceGaps(samples []float64, sampleRate int) []region {
	window := sampleRate / 100 // 10 ms
	if window <= 0 || len(samples) < window {
		return nil
	}
	minGap := int(p.cfg.MinSilenceSeconds * float64(sampleRate))

	var gaps []region
	open := -1 // start of the current silent region, or -1

	nWindows := len(samples) / window
	for w := range nWindows {
		lo := w * window
		rms := dsp.RMS(samples[lo : lo+window])
		silent := dsp.DB(rms) < p.cfg.SilenceThresholdDB

		switch {
		case silent && open < 0:
			open = lo
		case !silent && open >= 0:
			if lo-open >= minGap {
				gaps = append(gaps, region{start: open, end: lo})
			}
			open = -1
		}
	}
	if open >= 0 && len(samples)-open >= minGap {
		gaps = append(gaps, region{start: open, end: len(samples)})
	}
	return gaps
}

// splitAtSilence splits the clip at each qualifying silence gap and drops
// sub-clips shorter than minClipSeconds. The tail after the last gap becomes
// a final sub-clip under the same length rule.
func (p *Processor) splitAtSilence(samples []float64, sampleRate int, minClipSeconds float64) []Clip {
	gaps := p.silenceGaps(samples, sampleRate)
	minLen := int(minClipSeconds * float64(sampleRate))

	var clips []Clip
	emit := func(start, end int) {
		if end-start >= minLen && end > start {
			clips = append(clips, Clip{Samples: samples[start:end], Offset: start})
		}
	}

	pos := 0
	for _, gap := range gaps {
		emit(pos, gap.start)
		pos = gap.end
	}
	emit(pos, len(samples))
	return clips
}

// fixedWindows chunks the clip into consecutive windows of windowSeconds.
// A trailing window shorter than the configured fraction of the target
// length is discarded rather than emitted short.
func (p *Processor) fixedWindows(samples []float64, sampleRate int, windowSeconds float64) []Clip {
	window := int(windowSeconds * float64(sampleRate))
	if window <= 0 {
		return nil
	}
	minTail := int(float64(window) * p.cfg.MinWindowFraction)

	var clips []Clip
	for start := 0; start < len(samples); start += window {
		end := start + window
		if end > len(samples) {
			end = len(samples)
		}
		if end-start < minTail {
			break
		}
		clips = append(clips, Clip{Samples: samples[start:end], Offset: start})
	}
	return clips
}
