// Package imaging moves pixel data between image files and a state buffer.
//
// Images are handled as Samples: interleaved 8-bit channel values in
// row-major order with the file's own channel count, so a gray+alpha PNG
// arrives as two channels [gray, alpha]. Only the first two channels feed
// the buffer; reconstruction always produces three channels with blue
// fixed at zero.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // register JPEG decoding
	"image/png"
	"io"
	"os"

	"github.com/roach88/phasemem/internal/statebuf"
)

// pngColorGrayAlpha is the IHDR color type of a gray+alpha PNG.
const pngColorGrayAlpha = 4

// Samples is an image as interleaved 8-bit channel values.
type Samples struct {
	Width    int
	Height   int
	Channels int
	Pix      []uint8
}

// NewSamples allocates a zeroed image.
func NewSamples(width, height, channels int) *Samples {
	return &Samples{
		Width:    width,
		Height:   height,
		Channels: channels,
		Pix:      make([]uint8, width*height*channels),
	}
}

// Pixels returns Width*Height.
func (s *Samples) Pixels() int {
	return s.Width * s.Height
}

// At returns the channel values of pixel i.
func (s *Samples) At(i int) []uint8 {
	off := i * s.Channels
	return s.Pix[off : off+s.Channels]
}

func (s *Samples) validate() error {
	if s.Width < 0 || s.Height < 0 || s.Channels < 1 {
		return fmt.Errorf("bad geometry %dx%d with %d channels", s.Width, s.Height, s.Channels)
	}
	if want := s.Width * s.Height * s.Channels; len(s.Pix) != want {
		return fmt.Errorf("have %d samples, want %d", len(s.Pix), want)
	}
	return nil
}

// DecodeOption configures Decode and LoadFile.
type DecodeOption func(*decodeOptions)

type decodeOptions struct {
	maxPixels int
}

// WithMaxPixels overrides the pixel cap, which defaults to
// statebuf.DefaultMaxSlots. Non-positive values are ignored.
func WithMaxPixels(n int) DecodeOption {
	return func(o *decodeOptions) {
		if n > 0 {
			o.maxPixels = n
		}
	}
}

// Decode reads a PNG or JPEG image.
//
// The channel count follows the decoded color model: gray images have 1,
// gray+alpha PNGs have 2, RGB and YCbCr have 3, other images with an alpha
// channel have 4. Paletted images have 3 unless the palette carries
// transparency.
//
// Dimensions are checked against the pixel cap before any pixel data is
// decoded; an image over the cap fails with ALLOCATION_FAILURE.
func Decode(r io.Reader, opts ...DecodeOption) (*Samples, error) {
	o := decodeOptions{maxPixels: statebuf.DefaultMaxSlots}
	for _, opt := range opts {
		opt(&o)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &Error{Code: ErrCodeDecodeFailure, Message: "reading image", Err: err}
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, &Error{Code: ErrCodeDecodeFailure, Message: "decoding image header", Err: err}
	}
	if n := int64(cfg.Width) * int64(cfg.Height); n > int64(o.maxPixels) {
		return nil, &statebuf.Error{
			Code:    statebuf.ErrCodeAllocationFailure,
			Message: fmt.Sprintf("image is %dx%d, over the %d pixel limit", cfg.Width, cfg.Height, o.maxPixels),
			Index:   -1,
			Size:    int(n),
		}
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &Error{Code: ErrCodeDecodeFailure, Message: "decoding image", Err: err}
	}
	if format == "png" && pngGrayAlpha(data) {
		return fromGrayAlpha(img), nil
	}
	return FromImage(img), nil
}

// pngGrayAlpha reports whether the IHDR chunk declares gray+alpha. The Go
// decoder widens those files to NRGBA, which would otherwise read as four
// channels with gray repeated.
func pngGrayAlpha(data []byte) bool {
	const colorTypeOffset = 8 + 4 + 4 + 4 + 4 + 1 // signature, length, "IHDR", width, height, bit depth
	return len(data) > colorTypeOffset &&
		string(data[12:16]) == "IHDR" &&
		data[colorTypeOffset] == pngColorGrayAlpha
}

// fromGrayAlpha converts a decoded gray+alpha PNG to 2-channel Samples.
func fromGrayAlpha(img image.Image) *Samples {
	bounds := img.Bounds()
	s := NewSamples(bounds.Dx(), bounds.Dy(), 2)

	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			px := s.At(i)
			switch c := img.At(x, y).(type) {
			case color.NRGBA:
				px[0], px[1] = c.R, c.A
			case color.NRGBA64:
				px[0], px[1] = uint8(c.R>>8), uint8(c.A>>8)
			default:
				n := color.NRGBAModel.Convert(c).(color.NRGBA)
				px[0], px[1] = n.R, n.A
			}
			i++
		}
	}
	return s
}

// FromImage converts a decoded image to Samples.
func FromImage(img image.Image) *Samples {
	bounds := img.Bounds()
	s := NewSamples(bounds.Dx(), bounds.Dy(), channelCount(img))

	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			px := s.At(i)
			if s.Channels == 1 {
				px[0] = color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y
			} else {
				c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
				px[0], px[1], px[2] = c.R, c.G, c.B
				if s.Channels == 4 {
					px[3] = c.A
				}
			}
			i++
		}
	}
	return s
}

func channelCount(img image.Image) int {
	switch m := img.(type) {
	case *image.Gray, *image.Gray16, *image.Alpha, *image.Alpha16:
		return 1
	case *image.YCbCr, *image.RGBA, *image.RGBA64:
		return 3
	case *image.Paletted:
		for _, c := range m.Palette {
			if _, _, _, a := c.RGBA(); a != 0xffff {
				return 4
			}
		}
		return 3
	default:
		return 4
	}
}

// LoadFile decodes the image at path.
func LoadFile(path string, opts ...DecodeOption) (*Samples, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &Error{Code: ErrCodeDecodeFailure, Message: "opening image", Path: path, Err: err}
	}
	defer f.Close()

	s, err := Decode(f, opts...)
	if err != nil {
		if e, ok := err.(*Error); ok {
			e.Path = path
		}
		return nil, err
	}
	return s, nil
}

// ToImage converts Samples back to an image.Image. Three-channel samples
// become an opaque RGBA image, which the PNG encoder writes as truecolor
// without alpha.
func (s *Samples) ToImage() (image.Image, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	rect := image.Rect(0, 0, s.Width, s.Height)

	switch s.Channels {
	case 1:
		img := image.NewGray(rect)
		copy(img.Pix, s.Pix)
		return img, nil
	case 3:
		img := image.NewRGBA(rect)
		for i := 0; i < s.Pixels(); i++ {
			px := s.At(i)
			copy(img.Pix[i*4:], px)
			img.Pix[i*4+3] = 0xff
		}
		return img, nil
	case 4:
		img := image.NewNRGBA(rect)
		copy(img.Pix, s.Pix)
		return img, nil
	default:
		return nil, fmt.Errorf("cannot build an image from %d channels", s.Channels)
	}
}

// Encode writes s as PNG.
func Encode(w io.Writer, s *Samples) error {
	img, err := s.ToImage()
	if err != nil {
		return &Error{Code: ErrCodeEncodeFailure, Message: "building image", Err: err}
	}
	if err := png.Encode(w, img); err != nil {
		return &Error{Code: ErrCodeEncodeFailure, Message: "encoding PNG", Err: err}
	}
	return nil
}

// SaveFile encodes s as PNG, writes it to path and returns the encoded
// bytes.
func SaveFile(path string, s *Samples) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, s); err != nil {
		if e, ok := err.(*Error); ok {
			e.Path = path
		}
		return nil, err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return nil, &Error{Code: ErrCodeEncodeFailure, Message: "writing output", Path: path, Err: err}
	}
	return buf.Bytes(), nil
}

// Dump writes a plain-text listing of every pixel: a header line, then
// "x y c0 c1 ..." per pixel in row-major order.
func Dump(w io.Writer, s *Samples) error {
	if _, err := fmt.Fprintf(w, "%dx%d channels=%d\n", s.Width, s.Height, s.Channels); err != nil {
		return err
	}
	for i := 0; i < s.Pixels(); i++ {
		if _, err := fmt.Fprintf(w, "%d %d", i%s.Width, i/s.Width); err != nil {
			return err
		}
		for _, c := range s.At(i) {
			if _, err := fmt.Fprintf(w, " %d", c); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}
