package repository

import (
	"context"
	"fmt"

	"github.com/anime-shed/veritas-go/internal/storage"
	"github.com/anime-shed/veritas-go/pkg/validation"
)

// HTTPMediaRepository implements MediaRepository over HTTP with an optional
// Azure Blob fetcher for blob storage URLs.
type HTTPMediaRepository struct {
	fetcher   storage.MediaFetcher
	blob      storage.MediaFetcher
	urls      *validation.URLValidator
	mediaType *validation.MediaValidator
}

// NewMediaRepository creates a media repository. blob may be nil.
func NewMediaRepository(fetcher, blob storage.MediaFetcher, urls *validation.URLValidator, media *validation.MediaValidator) MediaRepository {
	if urls == nil {
		urls = validation.NewURLValidator()
	}
	if media == nil {
		media = validation.NewMediaValidator()
	}
	return &HTTPMediaRepository{
		fetcher:   fetcher,
		blob:      blob,
		urls:      urls,
		mediaType: media,
	}
}

func (r *HTTPMediaRepository) ValidateMediaURL(ctx context.Context, mediaURL string) error {
	return r.urls.ValidateMediaURL(ctx, mediaURL)
}

// FetchMedia downloads the URL and rejects content that is not image,
// audio, video, PDF or an HTML page.
func (r *HTTPMediaRepository) FetchMedia(ctx context.Context, mediaURL string) (*storage.FetchedMedia, error) {
	if err := r.ValidateMediaURL(ctx, mediaURL); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMediaURL, err)
	}

	fetcher := r.fetcher
	if r.blob != nil && storage.IsBlobURL(mediaURL) {
		fetcher = r.blob
	}

	media, err := fetcher.FetchMedia(ctx, mediaURL)
	if err != nil {
		return nil, err
	}
	if len(media.Data) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrUnsupportedMedia)
	}
	if IsHTML(media.MimeType) {
		return media, nil
	}
	if err := r.mediaType.ValidateType(media.MimeType); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMedia, media.MimeType)
	}
	return media, nil
}
