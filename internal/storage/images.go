// Package storage hosts landing page images on S3. It only moves bytes; the
// landing service stores and validates the returned URL string.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // WebP decode support

	"github.com/ignite/leadpage/internal/pkg/logger"
)

// MaxUploadBytes is the largest image accepted.
const MaxUploadBytes = 5 * 1024 * 1024

const (
	DefaultMaxWidth    = 1600
	DefaultJPEGQuality = 85
)

var (
	ErrTooLarge        = errors.New("image exceeds 5 MB")
	ErrUnsupportedType = errors.New("unsupported image type")
	ErrUploadFailed    = errors.New("image upload failed")
)

var supportedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// PutObjectAPI is the subset of the S3 client used for uploads.
type PutObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ImageConfig configures the image host.
type ImageConfig struct {
	Bucket    string
	Region    string
	CDNDomain string // when set, URLs use https://{CDNDomain}/{key}
	Prefix    string // key prefix, default "landing"
	MaxWidth  int    // wider images are scaled down before upload
}

// UploadedImage describes a stored image.
type UploadedImage struct {
	URL         string `json:"url"`
	Key         string `json:"key"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Resized     bool   `json:"resized"`
}

// ImageHost uploads images to S3 and returns their public URL.
type ImageHost struct {
	client PutObjectAPI
	cfg    ImageConfig
	now    func() time.Time
}

// NewImageHost wraps an existing S3 client.
func NewImageHost(client PutObjectAPI, cfg ImageConfig) *ImageHost {
	if cfg.Prefix == "" {
		cfg.Prefix = "landing"
	}
	if cfg.MaxWidth <= 0 {
		cfg.MaxWidth = DefaultMaxWidth
	}
	return &ImageHost{client: client, cfg: cfg, now: time.Now}
}

// Upload reads at most MaxUploadBytes from r, checks it is a decodable
// image, scales it down if wider than MaxWidth and stores it under the
// owner's prefix.
func (h *ImageHost) Upload(ctx context.Context, ownerID, filename string, r io.Reader) (*UploadedImage, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	if len(data) > MaxUploadBytes {
		return nil, ErrTooLarge
	}

	contentType := detectContentType(data)
	if !supportedTypes[contentType] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decoding image: %v", ErrUnsupportedType, err)
	}
	bounds := img.Bounds()
	out := &UploadedImage{
		ContentType: contentType,
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
	}

	if out.Width > h.cfg.MaxWidth {
		resized, newType, err := resizeImage(img, h.cfg.MaxWidth, format)
		if err != nil {
			return nil, fmt.Errorf("resizing image: %w", err)
		}
		data = resized
		out.ContentType = newType
		out.Height = out.Height * h.cfg.MaxWidth / out.Width
		out.Width = h.cfg.MaxWidth
		out.Resized = true
	}
	out.Size = int64(len(data))

	now := h.now().UTC()
	name := sanitizeFilename(strings.TrimSuffix(filename, filepath.Ext(filename)))
	if name != "" {
		name = "-" + name
	}
	out.Key = fmt.Sprintf("%s/%s/%s/%s%s%s", h.cfg.Prefix, sanitizeSegment(ownerID), now.Format("2006/01"),
		uuid.New().String(), name, extension(out.ContentType))

	_, err = h.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(h.cfg.Bucket),
		Key:          aws.String(out.Key),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(out.ContentType),
		CacheControl: aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: S3 PutObject %s/%s: %v", ErrUploadFailed, h.cfg.Bucket, out.Key, err)
	}

	out.URL = h.publicURL(out.Key)
	logger.Info("image uploaded", "owner_id", ownerID, "key", out.Key, "size", out.Size, "resized", out.Resized)
	return out, nil
}

func (h *ImageHost) publicURL(key string) string {
	if h.cfg.CDNDomain != "" {
		return fmt.Sprintf("https://%s/%s", h.cfg.CDNDomain, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", h.cfg.Bucket, h.cfg.Region, key)
}

// resizeImage scales img to maxWidth keeping the aspect ratio. x/image has
// no WebP encoder; WebP input comes back as JPEG.
func resizeImage(img image.Image, maxWidth int, format string) ([]byte, string, error) {
	bounds := img.Bounds()
	newHeight := int(float64(bounds.Dy()) * float64(maxWidth) / float64(bounds.Dx()))
	if newHeight < 1 {
		newHeight = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, newHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	switch format {
	case "png":
		if err := png.Encode(&buf, dst); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "image/png", nil
	case "gif":
		if err := gif.Encode(&buf, dst, nil); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "image/gif", nil
	default:
		if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: DefaultJPEGQuality}); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "image/jpeg", nil
	}
}

func detectContentType(data []byte) string {
	switch {
	case len(data) >= 2 && data[0] == 0xFF && data[1] == 0xD8:
		return "image/jpeg"
	case len(data) >= 8 && data[0] == 0x89 && data[1] == 'P' && data[2] == 'N' && data[3] == 'G':
		return "image/png"
	case len(data) >= 6 && data[0] == 'G' && data[1] == 'I' && data[2] == 'F':
		return "image/gif"
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return "image/webp"
	}
	return "application/octet-stream"
}

func extension(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	}
	return ".bin"
}

// sanitizeFilename keeps a short, URL-safe version of the original name.
func sanitizeFilename(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" {
		return ""
	}
	s := sanitizeSegment(strings.ToLower(base))
	if len(s) > 60 {
		s = s[:60]
	}
	return s
}

func sanitizeSegment(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return strings.Trim(b.String(), "-.")
}
