package validation

import (
	"fmt"

	apperrors "github.com/anime-shed/veritas-go/internal/errors"
	"github.com/anime-shed/veritas-go/pkg/models"
)

// DefaultMaxUploadSize is the largest file accepted for analysis (10 MiB)
const DefaultMaxUploadSize int64 = 10 * 1024 * 1024

// MediaLimits defines what the file intake boundary accepts
type MediaLimits struct {
	MaxSize       int64
	AllowedFamily []models.MediaType
}

// DefaultMediaLimits accepts images, audio, video and PDF up to 10 MiB
func DefaultMediaLimits() MediaLimits {
	return MediaLimits{
		MaxSize: DefaultMaxUploadSize,
		AllowedFamily: []models.MediaType{
			models.MediaTypeImage,
			models.MediaTypeAudio,
			models.MediaTypeVideo,
			models.MediaTypeDocument,
		},
	}
}

// MediaValidator enforces MediaLimits on uploaded files
type MediaValidator struct {
	limits MediaLimits
}

// NewMediaValidator creates a validator with the default limits
func NewMediaValidator() *MediaValidator {
	return &MediaValidator{limits: DefaultMediaLimits()}
}

// NewMediaValidatorWithLimits creates a validator with custom limits
func NewMediaValidatorWithLimits(limits MediaLimits) *MediaValidator {
	if limits.MaxSize <= 0 {
		limits.MaxSize = DefaultMaxUploadSize
	}
	if len(limits.AllowedFamily) == 0 {
		limits.AllowedFamily = DefaultMediaLimits().AllowedFamily
	}
	return &MediaValidator{limits: limits}
}

// MaxSize returns the configured byte limit
func (v *MediaValidator) MaxSize() int64 {
	return v.limits.MaxSize
}

// ValidateSize rejects payloads larger than the limit
func (v *MediaValidator) ValidateSize(size int64) error {
	if size > v.limits.MaxSize {
		return apperrors.NewFileTooLargeError(size, v.limits.MaxSize)
	}
	return nil
}

// ValidateType checks the declared MIME type belongs to an accepted family.
// The declared type is trusted; file contents are not inspected.
func (v *MediaValidator) ValidateType(mimeType string) error {
	family := models.MediaTypeOf(mimeType)
	for _, allowed := range v.limits.AllowedFamily {
		if family == allowed {
			return nil
		}
	}
	return apperrors.NewValidationError(
		fmt.Sprintf("unsupported media type %q: expected image, audio, video or PDF", mimeType), nil)
}
