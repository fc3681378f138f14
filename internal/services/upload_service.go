package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"

	"gemstore/internal/apperrors"
	"gemstore/pkg/storage"

	"github.com/google/uuid"
	"github.com/nfnt/resize"
	"github.com/sirupsen/logrus"
)

const (
	uploadJPEGQuality = 85
	// maxUploadPixels bounds the decoded size of an upload (40 megapixels).
	maxUploadPixels = 40_000_000
)

// UploadService normalizes product images and stores them.
type UploadService struct {
	store    storage.ObjectStore
	maxWidth uint
	logger   logrus.FieldLogger
}

// NewUploadService creates a new UploadService. Images wider than maxWidth
// are scaled down; 0 disables scaling.
func NewUploadService(store storage.ObjectStore, maxWidth uint, logger logrus.FieldLogger) *UploadService {
	return &UploadService{store: store, maxWidth: maxWidth, logger: logger}
}

// UploadImage decodes a PNG, JPEG or GIF image, re-encodes it as JPEG and
// returns its public URL. Images whose header declares more than
// maxUploadPixels are rejected before any pixel data is decoded.
func (s *UploadService) UploadImage(ctx context.Context, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}

	header, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", apperrors.Validation("image", "Unsupported or corrupt image")
	}
	if int64(header.Width)*int64(header.Height) > maxUploadPixels {
		return "", apperrors.Validation("image", "Image dimensions are too large")
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", apperrors.Validation("image", "Unsupported or corrupt image")
	}

	bounds := img.Bounds()
	if s.maxWidth > 0 && uint(bounds.Dx()) > s.maxWidth {
		img = resize.Resize(s.maxWidth, 0, img, resize.Lanczos3)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: uploadJPEGQuality}); err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}

	key := fmt.Sprintf("products/%s.jpg", uuid.NewString())
	size := int64(buf.Len())
	if err := s.store.Put(ctx, key, &buf, size, "image/jpeg"); err != nil {
		return "", fmt.Errorf("failed to store image: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"key":    key,
		"format": format,
		"width":  bounds.Dx(),
		"bytes":  size,
	}).Info("image uploaded")
	return s.store.URL(key), nil
}
