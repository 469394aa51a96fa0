package pipeline

import (
	"bytes"
	"strings"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	_ "golang.org/x/image/webp" // register webp decoding
)

const defaultJPEGQuality = 85

// processContent re-encodes image payloads within the configured bounding
// box. Processing is best effort: any decode or encode failure falls back to
// the original bytes instead of failing the upload. Non-image payloads pass
// through untouched.
//
// Returns the bytes to persist and the final pixel dimensions (zero when the
// payload was not processed).
func processContent(data []byte, mimeType string, cfg *UploadConfig, log *zap.Logger) ([]byte, int, int) {
	if !cfg.EnableProcessing || !isImageMime(mimeType) {
		return data, 0, 0
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		log.Warn("image decode failed, storing original bytes",
			zap.String("mime", mimeType), zap.Error(err))
		return data, 0, 0
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	resized := false
	maxW, maxH := cfg.MaxWidth, cfg.MaxHeight
	if maxW > 0 || maxH > 0 {
		if maxW <= 0 {
			maxW = width
		}
		if maxH <= 0 {
			maxH = height
		}
		if width > maxW || height > maxH {
			// Fit preserves aspect ratio and never upscales.
			img = imaging.Fit(img, maxW, maxH, imaging.Lanczos)
			b := img.Bounds()
			width, height = b.Dx(), b.Dy()
			resized = true
		}
	}

	// Lossless formats are only re-encoded when the resize changed pixels;
	// lossy formats always go through the quality parameter.
	if !resized && !isJpegMime(mimeType) {
		return data, width, height
	}

	var out bytes.Buffer
	switch {
	case isJpegMime(mimeType):
		quality := cfg.Quality
		if quality <= 0 || quality > 100 {
			quality = defaultJPEGQuality
		}
		err = imaging.Encode(&out, img, imaging.JPEG, imaging.JPEGQuality(quality))
	case mimeType == "image/png":
		err = imaging.Encode(&out, img, imaging.PNG)
	case mimeType == "image/gif":
		err = imaging.Encode(&out, img, imaging.GIF)
	default:
		// No encoder for this format (webp); keep the original bytes.
		log.Warn("no encoder for image format, storing original bytes",
			zap.String("mime", mimeType))
		return data, 0, 0
	}
	if err != nil {
		log.Warn("image encode failed, storing original bytes",
			zap.String("mime", mimeType), zap.Error(err))
		return data, 0, 0
	}

	return out.Bytes(), width, height
}

func isImageMime(m string) bool {
	return strings.HasPrefix(m, "image/")
}
