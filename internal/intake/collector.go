// Package intake turns raw user submissions into validated analysis requests.
package intake

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	apperrors "github.com/anime-shed/veritas-go/internal/errors"
	"github.com/anime-shed/veritas-go/pkg/models"
	"github.com/anime-shed/veritas-go/pkg/validation"
)

var errEmptyFile = errors.New("uploaded file is empty")

// genericMimeType is what browsers and curl send when they know nothing about a file
const genericMimeType = "application/octet-stream"

// RawInput is one submission as received from a front-end
type RawInput struct {
	Text string
	URL  string
	File *FileInput
}

// FileInput describes an uploaded file. Open is called at most once and the
// returned reader is always closed by the collector.
type FileInput struct {
	Filename string
	MimeType string
	Size     int64
	Open     func() (io.ReadCloser, error)
}

// BytesFile wraps an in-memory payload as a FileInput
func BytesFile(filename, mimeType string, data []byte) *FileInput {
	return &FileInput{
		Filename: filename,
		MimeType: mimeType,
		Size:     int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// Collector validates raw input and packages it into an AnalysisRequest.
// It performs no network or disk I/O of its own.
type Collector interface {
	Collect(raw RawInput) (*models.AnalysisRequest, error)
}

type collector struct {
	media *validation.MediaValidator
}

// NewCollector creates a collector enforcing the given media limits
func NewCollector(media *validation.MediaValidator) Collector {
	if media == nil {
		media = validation.NewMediaValidator()
	}
	return &collector{media: media}
}

// Collect picks the submitted variant with precedence file, url, text. A
// zero-byte file counts as absent when a url or text was also given.
func (c *collector) Collect(raw RawInput) (*models.AnalysisRequest, error) {
	text := strings.TrimSpace(raw.Text)
	rawURL := strings.TrimSpace(raw.URL)

	if raw.File != nil {
		req, err := c.collectFile(raw.File)
		switch {
		case !errors.Is(err, errEmptyFile):
			return req, err
		case rawURL == "" && text == "":
			return nil, apperrors.NewEmptyInputError(errEmptyFile.Error())
		}
	}
	if rawURL != "" {
		return &models.AnalysisRequest{Kind: models.ContentKindURL, URL: rawURL}, nil
	}
	if text != "" {
		return &models.AnalysisRequest{Kind: models.ContentKindText, Text: text}, nil
	}
	return nil, apperrors.NewEmptyInputError("")
}

func (c *collector) collectFile(file *FileInput) (*models.AnalysisRequest, error) {
	// Declared size is checked first so oversized uploads are never read.
	if err := c.media.ValidateSize(file.Size); err != nil {
		return nil, err
	}

	data, err := ReadFile(file, c.media.MaxSize())
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errEmptyFile
	}

	mimeType := strings.TrimSpace(file.MimeType)
	if mimeType == "" || strings.EqualFold(mimeType, genericMimeType) {
		mimeType = mimetype.Detect(data).String()
	}
	if err := c.media.ValidateType(mimeType); err != nil {
		return nil, err
	}

	return &models.AnalysisRequest{
		Kind: models.ContentKindMedia,
		Media: &models.MediaPayload{
			Data:     data,
			MimeType: mimeType,
			Filename: file.Filename,
		},
	}, nil
}

// ReadFile opens the file, reads at most limit bytes and closes it.
// More than limit bytes yields FileTooLarge regardless of the declared size.
func ReadFile(file *FileInput, limit int64) ([]byte, error) {
	if file == nil || file.Open == nil {
		return nil, apperrors.NewEmptyInputError("no file provided")
	}

	rc, err := file.Open()
	if err != nil {
		return nil, apperrors.NewValidationError("could not open uploaded file", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, apperrors.NewValidationError("could not read uploaded file", err)
	}
	if int64(len(data)) > limit {
		return nil, apperrors.NewFileTooLargeError(0, limit)
	}
	return data, nil
}
