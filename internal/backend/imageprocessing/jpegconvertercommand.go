package imageprocessing

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"

	"golang.org/x/image/draw"
)

const (
	JpegConverterCommandName = "JpegConverterCommand"
	DefaultJpegQuality       = 80
)

// JpegConverterCommand re-encodes an image as baseline JPEG. Transparent areas are
// flattened onto white since JPEG has no alpha channel.
type JpegConverterCommand struct {
	name    string
	quality int
}

// NewJpegConverterCommand creates a JPEG converter; quality defaults to 80.
func NewJpegConverterCommand(params map[string]any) (Command, error) {
	quality := getIntParam(params, "quality", DefaultJpegQuality)
	if quality < 1 || quality > 100 {
		return nil, fmt.Errorf("quality must be between 1 and 100, got %d", quality)
	}
	return &JpegConverterCommand{
		name:    JpegConverterCommandName,
		quality: quality,
	}, nil
}

// Name returns the command name
func (c *JpegConverterCommand) Name() string {
	return c.name
}

// Quality returns the configured JPEG quality
func (c *JpegConverterCommand) Quality() int {
	return c.quality
}

func (c *JpegConverterCommand) Execute(imageData []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	bounds := img.Bounds()
	flat := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(flat, flat.Bounds(), &image.Uniform{color.White}, image.Point{}, draw.Src)
	draw.Draw(flat, flat.Bounds(), img, bounds.Min, draw.Over)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, flat, &jpeg.Options{Quality: c.quality}); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG image: %w", err)
	}
	return buf.Bytes(), nil
}

func init() {
	mustRegister(JpegConverterCommandName, NewJpegConverterCommand)
}
