package imageprocessing

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jo-hoe/gogallery/internal/common"
)

const (
	DefaultTargetHeight   = 900
	DefaultMaxPixels      = 50_000_000
	DefaultMaxUploadBytes = 20 << 20
)

// Config holds the normalizer settings. Zero numeric values fall back to the defaults.
type Config struct {
	TargetHeight   int
	Quality        int
	AllowUpscale   bool
	MaxPixels      int
	MaxUploadBytes int
	// SVG uploads without width/height attributes are rendered at this size.
	SvgFallbackWidth  int
	SvgFallbackHeight int
}

// DefaultConfig returns the settings used by the gallery.
func DefaultConfig() Config {
	return Config{
		TargetHeight:      DefaultTargetHeight,
		Quality:           DefaultJpegQuality,
		AllowUpscale:      true,
		MaxPixels:         DefaultMaxPixels,
		MaxUploadBytes:    DefaultMaxUploadBytes,
		SvgFallbackWidth:  DefaultTargetHeight,
		SvgFallbackHeight: DefaultTargetHeight,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TargetHeight == 0 {
		c.TargetHeight = d.TargetHeight
	}
	if c.Quality == 0 {
		c.Quality = d.Quality
	}
	if c.MaxPixels == 0 {
		c.MaxPixels = d.MaxPixels
	}
	if c.MaxUploadBytes == 0 {
		c.MaxUploadBytes = d.MaxUploadBytes
	}
	if c.SvgFallbackWidth == 0 {
		c.SvgFallbackWidth = d.SvgFallbackWidth
	}
	if c.SvgFallbackHeight == 0 {
		c.SvgFallbackHeight = d.SvgFallbackHeight
	}
	return c
}

// Commands returns the pipeline: convert to PNG, scale to the target height, encode JPEG.
func (c Config) Commands() []CommandConfig {
	return []CommandConfig{
		{
			Name: PngConverterCommandName,
			Params: map[string]any{
				"maxPixels":         c.MaxPixels,
				"svgFallbackWidth":  c.SvgFallbackWidth,
				"svgFallbackHeight": c.SvgFallbackHeight,
			},
		},
		{
			Name: HeightScaleCommandName,
			Params: map[string]any{
				"height":       c.TargetHeight,
				"allowUpscale": c.AllowUpscale,
			},
		},
		{
			Name:   JpegConverterCommandName,
			Params: map[string]any{"quality": c.Quality},
		},
	}
}

// Input is one uploaded image tagged with its role (artwork, personal).
type Input struct {
	Role string
	Data []byte
}

// Output is the normalized JPEG for an Input and its data URI.
type Output struct {
	Role    string
	JPEG    []byte
	DataURI string
}

// Normalizer resizes and re-encodes uploaded images. It holds no mutable state and is
// safe for concurrent use.
type Normalizer struct {
	config  Config
	invoker *CommandInvoker
}

func NewNormalizer(config Config) (*Normalizer, error) {
	config = config.withDefaults()
	invoker, err := NewCommandInvokerFromConfigs(DefaultRegistry, config.Commands())
	if err != nil {
		return nil, fmt.Errorf("failed to build image pipeline: %w", err)
	}
	return &Normalizer{
		config:  config,
		invoker: invoker,
	}, nil
}

// Config returns the effective settings.
func (n *Normalizer) Config() Config {
	return n.config
}

// Normalize returns the JPEG encoding of data scaled to the target height.
// Undecodable input yields a *common.ImageDecodeError.
func (n *Normalizer) Normalize(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, &common.ImageDecodeError{Err: fmt.Errorf("%w: empty input", ErrDecode)}
	}
	if n.config.MaxUploadBytes > 0 && len(data) > n.config.MaxUploadBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrImageTooLarge, len(data), n.config.MaxUploadBytes)
	}

	out, err := n.invoker.Execute(data)
	if err != nil {
		if errors.Is(err, ErrDecode) {
			return nil, &common.ImageDecodeError{Err: err}
		}
		return nil, err
	}
	return out, nil
}

// NormalizeAll normalizes every input concurrently. Outputs keep the input order.
// Failures of all roles are joined into a single error.
func (n *Normalizer) NormalizeAll(inputs ...Input) ([]Output, error) {
	outputs := make([]Output, len(inputs))
	errs := make([]error, len(inputs))

	var wg sync.WaitGroup
	wg.Add(len(inputs))
	for i, input := range inputs {
		go func() {
			defer wg.Done()
			out, err := n.Normalize(input.Data)
			if err != nil {
				var decodeErr *common.ImageDecodeError
				if errors.As(err, &decodeErr) {
					decodeErr.Role = input.Role
				}
				slog.Error("failed to normalize image", "role", input.Role, "input_size_bytes", len(input.Data), "error", err)
				errs[i] = err
				return
			}
			outputs[i] = Output{
				Role:    input.Role,
				JPEG:    out,
				DataURI: EncodeDataURI(out),
			}
		}()
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return outputs, nil
}
