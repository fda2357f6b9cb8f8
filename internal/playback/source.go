// ABOUTME: Audio asset decoding for MP3, FLAC, and WAV files
// ABOUTME: Decodes a whole asset to interleaved stereo int16 samples
package playback

import (
	"encoding/binary"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/hajimehoshi/go-mp3"
	"github.com/mewkiz/flac"
)

// decodedAsset is a fully decoded audio cue. Assets are short,
// operator-triggered cues, so decoding up front keeps playback and
// resampling trivial.
type decodedAsset struct {
	samples    []int16 // interleaved stereo
	sampleRate int
}

// decodeAsset decodes the asset by file extension
func decodeAsset(location string, r io.Reader) (*decodedAsset, error) {
	ext := strings.ToLower(filepath.Ext(strings.Split(location, "?")[0]))

	switch ext {
	case ".mp3":
		return decodeMP3(r)
	case ".flac":
		return decodeFLAC(r)
	case ".wav":
		return decodeWAV(r)
	default:
		return nil, fmt.Errorf("unsupported audio format: %s (supported: .mp3, .flac, .wav)", ext)
	}
}

// decodeMP3 decodes an MP3 stream. The decoder always outputs
// 16-bit stereo at the file's sample rate.
func decodeMP3(r io.Reader) (*decodedAsset, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}

	raw, err := io.ReadAll(decoder)
	if err != nil {
		return nil, fmt.Errorf("failed to read MP3 samples: %w", err)
	}

	samples := make([]int16, len(raw)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
	}

	return &decodedAsset{samples: samples, sampleRate: decoder.SampleRate()}, nil
}

// decodeFLAC decodes a FLAC stream frame by frame, scaling samples to
// 16-bit and upmixing mono to stereo.
func decodeFLAC(r io.Reader) (*decodedAsset, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}

	info := stream.Info
	channels := int(info.NChannels)
	bitDepth := int(info.BitsPerSample)
	if channels < 1 || channels > 2 {
		return nil, fmt.Errorf("unsupported FLAC channel count: %d", channels)
	}

	var samples []int16
	for {
		frame, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse FLAC frame: %w", err)
		}

		for i := 0; i < int(frame.BlockSize); i++ {
			for ch := 0; ch < channels; ch++ {
				sample := frame.Subframes[ch].Samples[i]
				samples = append(samples, scaleTo16Bit(sample, bitDepth))
			}
			if channels == 1 {
				samples = append(samples, samples[len(samples)-1])
			}
		}
	}

	return &decodedAsset{samples: samples, sampleRate: int(info.SampleRate)}, nil
}

// scaleTo16Bit converts a sample of the given bit depth to 16-bit
func scaleTo16Bit(sample int32, bitDepth int) int16 {
	shift := bitDepth - 16
	if shift > 0 {
		return int16(sample >> shift)
	}
	if shift < 0 {
		return int16(sample << -shift)
	}
	return int16(sample)
}

// decodeWAV decodes a RIFF/WAVE stream containing 16-bit PCM
func decodeWAV(r io.Reader) (*decodedAsset, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return nil, fmt.Errorf("failed to read WAV header: %w", err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return nil, fmt.Errorf("not a WAV file")
	}

	var (
		sampleRate int
		channels   int
		bitDepth   int
		haveFormat bool
	)

	// Walk chunks until the data chunk
	for {
		var header [8]byte
		if _, err := io.ReadFull(r, header[:]); err != nil {
			return nil, fmt.Errorf("failed to read WAV chunk: %w", err)
		}
		chunkID := string(header[0:4])
		chunkSize := binary.LittleEndian.Uint32(header[4:8])

		switch chunkID {
		case "fmt ":
			body := make([]byte, chunkSize)
			if _, err := io.ReadFull(r, body); err != nil {
				return nil, fmt.Errorf("failed to read WAV format chunk: %w", err)
			}
			if len(body) < 16 {
				return nil, fmt.Errorf("truncated WAV format chunk")
			}
			format := binary.LittleEndian.Uint16(body[0:2])
			if format != 1 {
				return nil, fmt.Errorf("unsupported WAV encoding: %d (PCM only)", format)
			}
			channels = int(binary.LittleEndian.Uint16(body[2:4]))
			sampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			bitDepth = int(binary.LittleEndian.Uint16(body[14:16]))
			haveFormat = true

		case "data":
			if !haveFormat {
				return nil, fmt.Errorf("WAV data chunk before format chunk")
			}
			if bitDepth != 16 {
				return nil, fmt.Errorf("unsupported WAV bit depth: %d (16-bit only)", bitDepth)
			}
			if channels < 1 || channels > 2 {
				return nil, fmt.Errorf("unsupported WAV channel count: %d", channels)
			}

			body := make([]byte, chunkSize)
			if _, err := io.ReadFull(r, body); err != nil {
				return nil, fmt.Errorf("failed to read WAV data: %w", err)
			}

			frames := len(body) / 2 / channels
			samples := make([]int16, 0, frames*2)
			for i := 0; i < frames; i++ {
				for ch := 0; ch < channels; ch++ {
					s := int16(binary.LittleEndian.Uint16(body[(i*channels+ch)*2:]))
					samples = append(samples, s)
				}
				if channels == 1 {
					samples = append(samples, samples[len(samples)-1])
				}
			}

			return &decodedAsset{samples: samples, sampleRate: sampleRate}, nil

		default:
			// Skip unknown chunks (LIST, cue, etc.)
			if _, err := io.CopyN(io.Discard, r, int64(chunkSize)); err != nil {
				return nil, fmt.Errorf("failed to skip WAV chunk %q: %w", chunkID, err)
			}
		}

		// Chunks are word-aligned
		if chunkSize%2 == 1 {
			if _, err := io.CopyN(io.Discard, r, 1); err != nil && err != io.EOF {
				return nil, fmt.Errorf("failed to skip WAV padding: %w", err)
			}
		}
	}
}
