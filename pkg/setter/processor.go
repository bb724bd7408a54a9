package setter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/muesli/smartcrop"
)

// errNotFittable means the image is smaller than the desktop or too far from its aspect ratio.
var errNotFittable = errors.New("image not compatible with smart fit")

// imageProcessor decodes downloaded bytes and fits them to the desktop.
type imageProcessor struct {
	os              OS
	aspectThreshold float64
	resampler       imaging.ResampleFilter
}

func newImageProcessor(osAdapter OS) *imageProcessor {
	return &imageProcessor{
		os:              osAdapter,
		aspectThreshold: 0.9,
		resampler:       imaging.Lanczos,
	}
}

// Decode decodes jpeg, png, gif or webp bytes, honouring EXIF orientation.
func (p *imageProcessor) Decode(ctx context.Context, data []byte) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return img, ctx.Err()
}

// Fit crops and scales img to the desktop dimensions.
func (p *imageProcessor) Fit(ctx context.Context, img image.Image) (image.Image, error) {
	systemWidth, systemHeight, err := p.os.DesktopDimension()
	if err != nil {
		return nil, fmt.Errorf("getting desktop dimensions: %w", err)
	}
	if systemWidth <= 0 || systemHeight <= 0 {
		return nil, fmt.Errorf("invalid desktop dimensions %dx%d", systemWidth, systemHeight)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	imageWidth := img.Bounds().Dx()
	imageHeight := img.Bounds().Dy()
	systemAspect := float64(systemWidth) / float64(systemHeight)
	imageAspect := float64(imageWidth) / float64(imageHeight)
	aspectDiff := math.Abs(systemAspect - imageAspect)

	r := &resizer{resampler: p.resampler}

	switch {
	case imageWidth < systemWidth || imageHeight < systemHeight || aspectDiff > p.aspectThreshold:
		return nil, errNotFittable
	case imageWidth == systemWidth && imageHeight == systemHeight:
		return img, nil
	case imageAspect == systemAspect:
		return r.resizeWithContext(ctx, img, systemWidth, systemHeight)
	default:
		return p.crop(ctx, img, systemWidth, systemHeight)
	}
}

func (p *imageProcessor) crop(ctx context.Context, img image.Image, width, height int) (image.Image, error) {
	r := &resizer{resampler: p.resampler}
	analyzer := smartcrop.NewAnalyzer(r)

	type cropResult struct {
		crop image.Rectangle
		err  error
	}
	resultChan := make(chan cropResult, 1)

	go func() {
		topCrop, err := analyzer.FindBestCrop(img, width, height)
		resultChan <- cropResult{crop: topCrop, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case result := <-resultChan:
		if result.err != nil {
			return nil, fmt.Errorf("finding best crop: %w", result.err)
		}
		cropped := imaging.Crop(img, result.crop)
		return r.resizeWithContext(ctx, cropped, width, height)
	}
}

// resizer implements smartcrop.Resizer on top of imaging.
type resizer struct {
	resampler imaging.ResampleFilter
}

// Resize is called by smartcrop while scoring crops.
func (r *resizer) Resize(img image.Image, width, height uint) image.Image {
	return imaging.Resize(img, int(width), int(height), r.resampler)
}

func (r *resizer) resizeWithContext(ctx context.Context, img image.Image, width, height int) (image.Image, error) {
	resultChan := make(chan image.Image, 1)

	go func() {
		resultChan <- imaging.Fill(img, width, height, imaging.Center, r.resampler)
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case result := <-resultChan:
		return result, nil
	}
}
