package dsp

// voicingThreshold is the minimum normalized autocorrelation peak for a
// frame to count as voiced.
const voicingThreshold = 0.3

// PitchTrack estimates the fundamental frequency of each analysis frame via
// normalized autocorrelation. Frames whose strongest lag peak inside
// [minHz, maxHz] falls below the voicing threshold report 0 (unvoiced).
//
// The frame size is 50 ms with a 25 ms hop, long enough to resolve two full
// periods of the lowest trackable pitch (30 Hz vocal fry).
func PitchTrack(samples []float64, sampleRate int, minHz, maxHz float64) []float64 {
	frameSize := sampleRate / 20
	hop := frameSize / 2
	frames := Frames(samples, frameSize, hop)
	if len(frames) == 0 {
		return nil
	}

	minLag := int(float64(sampleRate) / maxHz)
	maxLag := int(float64(sampleRate) / minHz)
	if maxLag >= frameSize {
		maxLag = frameSize - 1
	}
	if minLag < 1 {
		minLag = 1
	}

	track := make([]float64, len(frames))
	for i, frame := range frames {
		track[i] = framePitch(frame, sampleRate, minLag, maxLag)
	}
	return track
}

// framePitch returns the pitch of one frame in Hz, or 0 when unvoiced.
func framePitch(frame []float64, sampleRate, minLag, maxLag int) float64 {
	var r0 float64
	for _, s := range frame {
		r0 += s * s
	}
	if r0 < epsilon {
		return 0
	}

	bestLag := 0
	bestCorr := 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		var corr float64
		for i := 0; i+lag < len(frame); i++ {
			corr += frame[i] * frame[i+lag]
		}
		corr /= r0
		if corr > bestCorr {
			bestCorr = corr
			bestLag = lag
		}
	}
	if bestLag == 0 || bestCorr < voicingThreshold {
		return 0
	}
	return float64(sampleRate) / float64(bestLag)
}

// VoicedFrames filters a pitch track down to its voiced (non-zero) entries.
func VoicedFrames(track []float64) []float64 {
	voiced := make([]float64, 0, len(track))
	for _, f := range track {
		if f > 0 {
			voiced = append(voiced, f)
		}
	}
	return voiced
}
