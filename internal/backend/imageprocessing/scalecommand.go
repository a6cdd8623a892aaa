package imageprocessing

import (
	"bytes"
	"fmt"
	"image"
	"log/slog"
	"math"

	"golang.org/x/image/draw"
)

const HeightScaleCommandName = "HeightScaleCommand"

// HeightScaleParams represents typed parameters for the height scale command
type HeightScaleParams struct {
	Height       int
	AllowUpscale bool
}

// NewHeightScaleParamsFromMap creates HeightScaleParams from a generic map
func NewHeightScaleParamsFromMap(params map[string]any) (*HeightScaleParams, error) {
	if err := validateRequiredParams(params, []string{"height"}); err != nil {
		return nil, err
	}

	height := getIntParam(params, "height", 0)
	if height <= 0 {
		return nil, fmt.Errorf("height must be positive, got %d", height)
	}

	return &HeightScaleParams{
		Height:       height,
		AllowUpscale: getBoolParam(params, "allowUpscale", true),
	}, nil
}

// HeightScaleCommand resizes an image to a fixed height. The width follows the source
// aspect ratio. Output is PNG.
type HeightScaleCommand struct {
	name   string
	params *HeightScaleParams
}

// NewHeightScaleCommand creates a new height scale command from configuration parameters
func NewHeightScaleCommand(params map[string]any) (Command, error) {
	typedParams, err := NewHeightScaleParamsFromMap(params)
	if err != nil {
		return nil, err
	}

	return &HeightScaleCommand{
		name:   HeightScaleCommandName,
		params: typedParams,
	}, nil
}

// Name returns the command name
func (c *HeightScaleCommand) Name() string {
	return c.name
}

// GetParams returns the typed parameters
func (c *HeightScaleCommand) GetParams() *HeightScaleParams {
	return c.params
}

func (c *HeightScaleCommand) Execute(imageData []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	bounds := img.Bounds()
	targetWidth, targetHeight := computeTargetDimensions(bounds.Dx(), bounds.Dy(), c.params.Height, c.params.AllowUpscale)

	if targetWidth == bounds.Dx() && targetHeight == bounds.Dy() {
		slog.Debug("HeightScaleCommand: target dimensions equal original; skipping scaling")
		return imageData, nil
	}

	slog.Debug("HeightScaleCommand: scaling image",
		"original_width", bounds.Dx(),
		"original_height", bounds.Dy(),
		"target_width", targetWidth,
		"target_height", targetHeight)

	dst := image.NewRGBA(image.Rect(0, 0, targetWidth, targetHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)

	out, err := encodePNG(dst)
	if err != nil {
		return nil, fmt.Errorf("failed to encode scaled PNG image: %w", err)
	}
	return out, nil
}

// computeTargetDimensions returns the output size for a source of w x h scaled to height.
// Sources shorter than height keep their size unless upscaling is allowed.
func computeTargetDimensions(w, h, height int, allowUpscale bool) (int, int) {
	if h <= 0 || w <= 0 {
		return w, h
	}
	if h < height && !allowUpscale {
		return w, h
	}
	width := int(math.Round(float64(w) * float64(height) / float64(h)))
	if width < 1 {
		width = 1
	}
	return width, height
}

func init() {
	mustRegister(HeightScaleCommandName, NewHeightScaleCommand)
}
