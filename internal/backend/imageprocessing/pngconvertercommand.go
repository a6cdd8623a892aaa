package imageprocessing

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"log/slog"

	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const PngConverterCommandName = "PngConverterCommand"

// hasCorrectPngSignature checks whether the provided data begins with a valid PNG signature
func hasCorrectPngSignature(data []byte) bool {
	if len(data) < 8 {
		return false
	}
	expected := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}
	return bytes.Equal(data[:8], expected)
}

// PngConverterCommand turns any supported upload (PNG, JPEG, GIF, BMP, TIFF, WebP, SVG)
// into PNG bytes. maxPixels bounds the decoded size and is checked from the header only.
type PngConverterCommand struct {
	name              string
	maxPixels         int
	svgFallbackWidth  int
	svgFallbackHeight int
}

// NewPngConverterCommand creates a new PNG converter command
func NewPngConverterCommand(params map[string]any) (Command, error) {
	maxPixels := getIntParam(params, "maxPixels", 0)
	if maxPixels < 0 {
		return nil, fmt.Errorf("maxPixels must not be negative, got %d", maxPixels)
	}

	return &PngConverterCommand{
		name:              PngConverterCommandName,
		maxPixels:         maxPixels,
		svgFallbackWidth:  getIntParam(params, "svgFallbackWidth", 0),
		svgFallbackHeight: getIntParam(params, "svgFallbackHeight", 0),
	}, nil
}

// Name returns the command name
func (c *PngConverterCommand) Name() string {
	return c.name
}

func (c *PngConverterCommand) Execute(imageData []byte) ([]byte, error) {
	if isSVGData(imageData) {
		return c.convertSVG(imageData)
	}

	// Read the header first so oversized images are rejected before allocating pixels
	cfg, format, err := image.DecodeConfig(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if err := c.checkPixels(cfg.Width, cfg.Height); err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	if hasCorrectPngSignature(imageData) {
		slog.Debug("PngConverterCommand: PNG detected; returning original bytes")
		return imageData, nil
	}

	slog.Debug("PngConverterCommand: decoded raster image",
		"current_format", format,
		"orig_width", cfg.Width,
		"orig_height", cfg.Height)

	out, err := encodePNG(img)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image to PNG: %w", err)
	}
	return out, nil
}

func (c *PngConverterCommand) convertSVG(imageData []byte) ([]byte, error) {
	w, h, ok := parseSvgExplicitSize(imageData)
	if !ok {
		w, h = c.svgFallbackWidth, c.svgFallbackHeight
		if w <= 0 || h <= 0 {
			return nil, fmt.Errorf("%w: SVG has no explicit size and no fallback size is set", ErrDecode)
		}
		slog.Debug("PngConverterCommand: SVG lacks explicit size; using fallback", "width", w, "height", h)
	}
	if err := c.checkPixels(w, h); err != nil {
		return nil, err
	}

	out, err := renderSVGToPNG(imageData, w, h)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return out, nil
}

func (c *PngConverterCommand) checkPixels(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: invalid dimensions %dx%d", ErrDecode, width, height)
	}
	if c.maxPixels > 0 && int64(width)*int64(height) > int64(c.maxPixels) {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrImageTooLarge, width, height, c.maxPixels)
	}
	return nil
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	bb := img.Bounds()
	buf.Grow(bb.Dx() * bb.Dy())
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func init() {
	mustRegister(PngConverterCommandName, NewPngConverterCommand)
}
