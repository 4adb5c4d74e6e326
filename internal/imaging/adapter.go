package imaging

import (
	"fmt"
	"math"

	"github.com/roach88/phasemem/internal/model"
	"github.com/roach88/phasemem/internal/statebuf"
)

// OutputChannels is the channel count of every reconstructed image.
const OutputChannels = 3

// LoadToBuffer seeds a fresh buffer with one slot per pixel. Slot i holds
// r/255 + i*g/255 for pixel i.
//
// Images with fewer than two channels are rejected with
// IMAGE_DECODE_FAILURE. Buffer creation errors (for example
// ALLOCATION_FAILURE) are returned unchanged.
func LoadToBuffer(s *Samples, level model.Level, opts ...statebuf.Option) (*statebuf.Buffer, error) {
	if s == nil {
		return nil, &Error{Code: ErrCodeDecodeFailure, Message: "no image"}
	}
	if err := s.validate(); err != nil {
		return nil, &Error{Code: ErrCodeDecodeFailure, Message: "malformed samples", Err: err}
	}
	if s.Channels < 2 {
		return nil, &Error{
			Code:    ErrCodeDecodeFailure,
			Message: fmt.Sprintf("image has %d channel(s), need at least 2", s.Channels),
		}
	}

	buf, err := statebuf.New(s.Pixels(), level, opts...)
	if err != nil {
		return nil, err
	}

	for i := 0; i < s.Pixels(); i++ {
		px := s.At(i)
		amp := complex(float64(px[0])/255.0, float64(px[1])/255.0)
		if err := buf.Write(i, amp); err != nil {
			buf.Destroy()
			return nil, err
		}
	}
	return buf, nil
}

// SaveFromBuffer reads every slot back into a 3-channel image: red from
// the real part, green from the imaginary part, blue 0. Components are
// scaled by 255, clamped to [0,255] and rounded.
//
// width*height must equal the buffer size.
func SaveFromBuffer(buf *statebuf.Buffer, width, height int) (*Samples, error) {
	if buf == nil || buf.Released() {
		return nil, &Error{Code: ErrCodeInvalidBuffer, Message: "buffer is nil or destroyed"}
	}
	if width < 0 || height < 0 || width*height != buf.Size() {
		return nil, &Error{
			Code:    ErrCodeInvalidBuffer,
			Message: fmt.Sprintf("%dx%d image does not match buffer of %d slots", width, height, buf.Size()),
		}
	}

	out := NewSamples(width, height, OutputChannels)
	for i := 0; i < out.Pixels(); i++ {
		amp, err := buf.Read(i)
		if err != nil {
			return nil, &Error{Code: ErrCodeInvalidBuffer, Message: fmt.Sprintf("reading slot %d", i), Err: err}
		}
		px := out.At(i)
		px[0] = toSample(real(amp))
		px[1] = toSample(imag(amp))
		px[2] = 0
	}
	return out, nil
}

func toSample(v float64) uint8 {
	x := v * 255.0
	switch {
	case math.IsNaN(x) || x < 0:
		return 0
	case x > 255:
		return 255
	}
	// Round rather than truncate so exact round trips survive float error.
	return uint8(math.Round(x))
}
