package audio

import (
	"encoding/binary"

	"github.com/tauraamui/xerror"
)

var ErrMalformedWAV = xerror.New("malformed wav data")

// EncodeWAV wraps interleaved 16-bit PCM in a canonical RIFF container.
func EncodeWAV(pcm []int16, sampleRate, channels int) []byte {
	dataLen := len(pcm) * 2
	out := make([]byte, 44+dataLen)

	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:], uint32(36+dataLen))
	copy(out[8:12], "WAVE")

	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], 1) // PCM
	binary.LittleEndian.PutUint16(out[22:], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(sampleRate*channels*2))
	binary.LittleEndian.PutUint16(out[32:], uint16(channels*2))
	binary.LittleEndian.PutUint16(out[34:], 16) // bits per sample

	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:], uint32(dataLen))
	for i, s := range pcm {
		binary.LittleEndian.PutUint16(out[44+i*2:], uint16(s))
	}
	return out
}

// DecodeWAV reads 16-bit PCM out of a RIFF container, walking chunks so
// files with extra metadata chunks still parse.
func DecodeWAV(data []byte) (pcm []int16, sampleRate, channels int, err error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, 0, xerror.Errorf("%w: missing RIFF/WAVE header", ErrMalformedWAV)
	}

	haveFmt := false
	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4:]))
		body := off + 8
		if size < 0 || body+size > len(data) {
			return nil, 0, 0, xerror.Errorf("%w: chunk %q overruns buffer", ErrMalformedWAV, id)
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, 0, 0, xerror.Errorf("%w: fmt chunk too short", ErrMalformedWAV)
			}
			format := binary.LittleEndian.Uint16(data[body:])
			bits := binary.LittleEndian.Uint16(data[body+14:])
			if format != 1 || bits != 16 {
				return nil, 0, 0, xerror.Errorf("%w: only 16-bit PCM supported", ErrMalformedWAV)
			}
			channels = int(binary.LittleEndian.Uint16(data[body+2:]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4:]))
			haveFmt = true
		case "data":
			pcm = make([]int16, size/2)
			for i := range pcm {
				pcm[i] = int16(binary.LittleEndian.Uint16(data[body+i*2:]))
			}
		}

		off = body + size
		if size%2 == 1 {
			off++ // RIFF chunks are word aligned
		}
	}

	if !haveFmt || pcm == nil {
		return nil, 0, 0, xerror.Errorf("%w: missing fmt or data chunk", ErrMalformedWAV)
	}
	return pcm, sampleRate, channels, nil
}
