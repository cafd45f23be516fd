package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/anime-shed/veritas-go/internal/errors"
	"github.com/anime-shed/veritas-go/pkg/models"
)

func TestMediaValidator_ValidateSize(t *testing.T) {
	v := NewMediaValidator()

	tests := []struct {
		name    string
		size    int64
		wantErr bool
	}{
		{name: "empty", size: 0},
		{name: "one byte", size: 1},
		{name: "exactly at limit", size: DefaultMaxUploadSize},
		{name: "one byte over", size: DefaultMaxUploadSize + 1, wantErr: true},
		{name: "11 MiB", size: 11 * 1024 * 1024, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateSize(tt.size)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeFileTooLarge))
		})
	}
}

func TestMediaValidator_ValidateType(t *testing.T) {
	v := NewMediaValidator()

	accepted := []string{"image/png", "image/jpeg", "audio/mpeg", "video/mp4", "application/pdf", "IMAGE/WEBP", "audio/ogg; codecs=opus"}
	for _, mt := range accepted {
		assert.NoError(t, v.ValidateType(mt), mt)
	}

	rejected := []string{"", "text/plain", "application/zip", "application/octet-stream"}
	for _, mt := range rejected {
		err := v.ValidateType(mt)
		require.Error(t, err, mt)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation), mt)
	}
}

func TestNewMediaValidatorWithLimits_Defaults(t *testing.T) {
	v := NewMediaValidatorWithLimits(MediaLimits{})
	assert.Equal(t, DefaultMaxUploadSize, v.MaxSize())

	imagesOnly := NewMediaValidatorWithLimits(MediaLimits{
		MaxSize:       1024,
		AllowedFamily: []models.MediaType{models.MediaTypeImage},
	})
	assert.NoError(t, imagesOnly.ValidateType("image/gif"))
	assert.Error(t, imagesOnly.ValidateType("video/mp4"))
	assert.Error(t, imagesOnly.ValidateSize(1025))
}
