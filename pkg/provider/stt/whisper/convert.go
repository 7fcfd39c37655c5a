package whisper

import "encoding/binary"

// pcmToFloat32Mono converts 16-bit signed little-endian PCM into the
// normalized float32 mono samples whisper.cpp expects. Multi-channel input
// is downmixed by averaging.
func pcmToFloat32Mono(pcm []byte, channels int) []float32 {
	if channels <= 0 {
		channels = 1
	}
	samples := len(pcm) / 2
	frames := samples / channels
	out := make([]float32, 0, frames)

	for f := 0; f < frames; f++ {
		var sum float32
		for c := 0; c < channels; c++ {
			i := (f*channels + c) * 2
			s := int16(binary.LittleEndian.Uint16(pcm[i : i+2]))
			sum += float32(s) / 32768.0
		}
		out = append(out, sum/float32(channels))
	}
	return out
}
