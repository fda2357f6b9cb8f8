// ABOUTME: Linear interpolation resampler for decoded assets
// ABOUTME: Converts interleaved stereo samples between sample rates
package playback

// resampleStereo converts interleaved stereo samples from inputRate to
// outputRate using linear interpolation. Whole-buffer operation; the
// assets here are short cues decoded up front.
func resampleStereo(input []int16, inputRate, outputRate int) []int16 {
	if inputRate == outputRate || len(input) == 0 {
		return input
	}

	const channels = 2
	inputFrames := len(input) / channels
	if inputFrames < 2 {
		return input
	}

	outputFrames := int(float64(inputFrames) * float64(outputRate) / float64(inputRate))
	output := make([]int16, outputFrames*channels)
	ratio := float64(inputRate) / float64(outputRate)

	for outIdx := 0; outIdx < outputFrames; outIdx++ {
		inputPos := float64(outIdx) * ratio
		inputIdx := int(inputPos)
		if inputIdx >= inputFrames-1 {
			inputIdx = inputFrames - 2
			inputPos = float64(inputIdx)
		}
		frac := inputPos - float64(inputIdx)

		for ch := 0; ch < channels; ch++ {
			sample1 := float64(input[inputIdx*channels+ch])
			sample2 := float64(input[(inputIdx+1)*channels+ch])
			output[outIdx*channels+ch] = int16(sample1*(1.0-frac) + sample2*frac)
		}
	}

	return output
}
