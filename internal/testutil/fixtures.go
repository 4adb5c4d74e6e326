package testutil

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// RGB is one 8-bit pixel.
type RGB struct {
	R, G, B uint8
}

// ScenarioPixels is the 2x2 image used by the end-to-end scenario, in
// row-major order.
var ScenarioPixels = []RGB{
	{255, 0, 0},
	{0, 255, 0},
	{0, 0, 255},
	{255, 255, 0},
}

// RGBImage builds an opaque image from row-major pixels. The PNG encoder
// writes it as 3-channel truecolor.
func RGBImage(width, height int, pixels []RGB) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i, p := range pixels {
		img.SetRGBA(i%width, i/width, color.RGBA{R: p.R, G: p.G, B: p.B, A: 0xff})
	}
	return img
}

// GrayImage builds a single-channel image.
func GrayImage(width, height int, values []uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	copy(img.Pix, values)
	return img
}

// WritePNG encodes img into dir/name and returns the path.
func WritePNG(t *testing.T, dir, name string, img image.Image) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
	return path
}

// WriteScenarioPNG writes the 2x2 scenario image into dir.
func WriteScenarioPNG(t *testing.T, dir string) string {
	t.Helper()
	return WritePNG(t, dir, "scenario.png", RGBImage(2, 2, ScenarioPixels))
}

// GA is one 8-bit gray+alpha pixel.
type GA struct {
	Y, A uint8
}

// WriteGrayAlphaPNG writes an 8-bit gray+alpha PNG (color type 4) into
// dir/name and returns the path. The standard encoder never emits this
// color type, so the chunks are assembled by hand.
func WriteGrayAlphaPNG(t *testing.T, dir, name string, width, height int, pixels []GA) string {
	t.Helper()

	var raw bytes.Buffer
	for y := 0; y < height; y++ {
		raw.WriteByte(0) // filter: none
		for x := 0; x < width; x++ {
			p := pixels[y*width+x]
			raw.Write([]byte{p.Y, p.A})
		}
	}
	var idat bytes.Buffer
	zw := zlib.NewWriter(&idat)
	if _, err := zw.Write(raw.Bytes()); err != nil {
		t.Fatalf("compress: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("compress: %v", err)
	}

	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:], uint32(width))
	binary.BigEndian.PutUint32(ihdr[4:], uint32(height))
	ihdr[8] = 8 // bit depth
	ihdr[9] = 4 // gray+alpha

	var out bytes.Buffer
	out.WriteString("\x89PNG\r\n\x1a\n")
	writeChunk(&out, "IHDR", ihdr)
	writeChunk(&out, "IDAT", idat.Bytes())
	writeChunk(&out, "IEND", nil)

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, out.Bytes(), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func writeChunk(w *bytes.Buffer, typ string, data []byte) {
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(data)))
	w.Write(n[:])

	crc := crc32.NewIEEE()
	crc.Write([]byte(typ))
	crc.Write(data)
	w.WriteString(typ)
	w.Write(data)
	binary.BigEndian.PutUint32(n[:], crc.Sum32())
	w.Write(n[:])
}
