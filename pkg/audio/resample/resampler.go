// ABOUTME: Simple linear resampler for converting audio sample rates
// ABOUTME: Bridges per-stream rates onto the fixed output device rate
package resample

// Resampler performs linear interpolation to convert between sample rates.
// It is stateful: the last input sample is retained so interpolation stays
// continuous across buffer boundaries.
type Resampler struct {
	inputRate  int
	outputRate int
	ratio      float64
	position   float64
	last       float32
	primed     bool
}

// New creates a resampler from inputRate to outputRate (mono)
func New(inputRate, outputRate int) *Resampler {
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		ratio:      float64(inputRate) / float64(outputRate),
	}
}

// Passthrough reports whether resampling is a no-op
func (r *Resampler) Passthrough() bool {
	return r.inputRate == r.outputRate
}

// Resample converts input samples to the output rate using linear
// interpolation and returns the converted buffer.
func (r *Resampler) Resample(input []float32) []float32 {
	if r.Passthrough() {
		return input
	}
	if len(input) == 0 {
		return nil
	}

	// Prepend the retained sample so interpolation spans buffer edges
	frames := input
	if r.primed {
		frames = make([]float32, 0, len(input)+1)
		frames = append(frames, r.last)
		frames = append(frames, input...)
	}

	output := make([]float32, 0, int(float64(len(input))/r.ratio)+1)

	for {
		idx := int(r.position)
		if idx >= len(frames)-1 {
			break
		}

		frac := r.position - float64(idx)
		interpolated := float64(frames[idx])*(1.0-frac) + float64(frames[idx+1])*frac
		output = append(output, float32(interpolated))

		r.position += r.ratio
	}

	// Keep fractional position relative to the retained sample
	consumed := len(frames) - 1
	r.position -= float64(consumed)
	r.last = frames[len(frames)-1]
	r.primed = true

	return output
}

// Reset clears interpolation state for a new stream
func (r *Resampler) Reset() {
	r.position = 0.0
	r.last = 0
	r.primed = false
}
