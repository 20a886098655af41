package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"log/slog"

	"frames/internal/domain/models"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/webp"
)

type TranscodeOptions struct {
	MaxDimension  int
	MaxPixels     int   // <= 0 без ограничения
	MaxBytes      int64 // <= 0 без ограничения
	FirstQuality  int
	SecondQuality int
	ThumbSize     uint // 0 без превью
	ThumbQuality  int
}

func DefaultTranscodeOptions() TranscodeOptions {
	return TranscodeOptions{
		MaxDimension:  1200,
		MaxPixels:     64_000_000,
		MaxBytes:      1 << 20,
		FirstQuality:  80,
		SecondQuality: 60,
		ThumbSize:     400,
		ThumbQuality:  75,
	}
}

// Transcoder уменьшает изображение до MaxDimension и перекодирует в JPEG,
// укладываясь в MaxBytes не более чем за два прохода.
type Transcoder struct {
	log  *slog.Logger
	opts TranscodeOptions
}

func NewTranscoder(log *slog.Logger, opts TranscodeOptions) *Transcoder {
	return &Transcoder{
		log:  log,
		opts: opts,
	}
}

func (t *Transcoder) Transcode(ctx context.Context, filename string, data []byte) (*models.TranscodedImage, error) {
	const op = "pipeline.Transcoder.Transcode"

	log := t.log.With(
		slog.String("op", op),
		slog.String("filename", filename),
	)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// размеры из заголовка, до выделения памяти под пиксели
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, models.ErrDecodeFailed, err)
	}

	if cfg.Width <= 0 || cfg.Height <= 0 || t.tooManyPixels(cfg.Width, cfg.Height) {
		log.Warn("image dimensions rejected", slog.Int("width", cfg.Width), slog.Int("height", cfg.Height))
		return nil, fmt.Errorf("%s: %w: %dx%d exceeds %d pixels",
			op, models.ErrDecodeFailed, cfg.Width, cfg.Height, t.opts.MaxPixels)
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, models.ErrDecodeFailed, err)
	}

	img := scaleToFit(src, t.opts.MaxDimension)

	if format == "jpeg" {
		if degrees := orientationToDegrees(readMetadata(data).Orientation); degrees != 0 {
			img = rotate(img, degrees)
		}
	}

	img = flattenOnWhite(img)
	bounds := img.Bounds()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, err := encodeJPEG(img, t.opts.FirstQuality)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result := &models.TranscodedImage{
		Width:   bounds.Dx(),
		Height:  bounds.Dy(),
		Quality: t.opts.FirstQuality,
		Passes:  1,
	}

	// Стандартный кодер всегда пишет 4:2:0, поэтому второй проход
	// только понижает качество.
	if t.overBudget(out) {
		log.Debug("first pass over budget",
			slog.Int("size", len(out)),
			slog.Int64("budget", t.opts.MaxBytes),
		)

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		out, err = encodeJPEG(img, t.opts.SecondQuality)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		result.Quality = t.opts.SecondQuality
		result.Passes = 2

		if t.overBudget(out) {
			return nil, fmt.Errorf("%s: %d bytes over budget of %d: %w",
				op, len(out), t.opts.MaxBytes, models.ErrCompressionInsufficient)
		}
	}

	result.Data = out

	if t.opts.ThumbSize > 0 {
		thumb := resize.Thumbnail(t.opts.ThumbSize, t.opts.ThumbSize, img, resize.Lanczos3)

		result.Thumbnail, err = encodeJPEG(thumb, t.opts.ThumbQuality)
		if err != nil {
			return nil, fmt.Errorf("%s: thumbnail: %w", op, err)
		}
	}

	log.Debug("image transcoded",
		slog.Int("width", result.Width),
		slog.Int("height", result.Height),
		slog.Int("size", len(result.Data)),
		slog.Int("passes", result.Passes),
	)

	return result, nil
}

func (t *Transcoder) tooManyPixels(w, h int) bool {
	return t.opts.MaxPixels > 0 && int64(w)*int64(h) > int64(t.opts.MaxPixels)
}

func (t *Transcoder) overBudget(data []byte) bool {
	return t.opts.MaxBytes > 0 && int64(len(data)) > t.opts.MaxBytes
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: clamp(quality, 1, 100)}); err != nil {
		return nil, fmt.Errorf("failed to encode image to JPEG: %w", err)
	}

	return buf.Bytes(), nil
}
