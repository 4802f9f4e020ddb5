package audio

import "encoding/binary"

// decodePCM reads little-endian s16 samples from buf into out, scaling by
// volume percent. It returns the number of samples written.
func decodePCM(buf []byte, out []int16, volume int) int {
	n := len(buf) / 2
	if n > len(out) {
		n = len(out)
	}
	for i := 0; i < n; i++ {
		s := int16(binary.LittleEndian.Uint16(buf[i*2:]))
		if volume == 100 {
			out[i] = s
			continue
		}
		out[i] = clampPCM(int32(s) * int32(volume) / 100)
	}
	return n
}

func clampPCM(v int32) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
