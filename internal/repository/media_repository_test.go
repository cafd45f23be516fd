package repository

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anime-shed/veritas-go/internal/storage"
	"github.com/anime-shed/veritas-go/pkg/validation"
)

// publicResolver answers every lookup with one public address
type publicResolver struct{}

func (publicResolver) LookupIPAddr(context.Context, string) ([]net.IPAddr, error) {
	return []net.IPAddr{{IP: net.ParseIP("93.184.216.34")}}, nil
}

func newTestRepo(fetcher, blob storage.MediaFetcher) MediaRepository {
	urls := validation.NewURLValidator(validation.WithResolver(publicResolver{}))
	return NewMediaRepository(fetcher, blob, urls, nil)
}

type fakeFetcher struct {
	media *storage.FetchedMedia
	err   error
	calls []string
}

func (f *fakeFetcher) FetchMedia(_ context.Context, mediaURL string) (*storage.FetchedMedia, error) {
	f.calls = append(f.calls, mediaURL)
	if f.err != nil {
		return nil, f.err
	}
	return f.media, nil
}

func TestMediaRepository_FetchMedia(t *testing.T) {
	httpFetcher := &fakeFetcher{media: &storage.FetchedMedia{Data: []byte{1}, MimeType: "image/png"}}
	blobFetcher := &fakeFetcher{media: &storage.FetchedMedia{Data: []byte{2}, MimeType: "video/mp4"}}
	repo := newTestRepo(httpFetcher, blobFetcher)

	media, err := repo.FetchMedia(context.Background(), "https://example.com/a.png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", media.MimeType)

	media, err = repo.FetchMedia(context.Background(), "https://acct.blob.core.windows.net/c/clip.mp4")
	require.NoError(t, err)
	assert.Equal(t, "video/mp4", media.MimeType)

	assert.Len(t, httpFetcher.calls, 1)
	assert.Len(t, blobFetcher.calls, 1)
}

func TestMediaRepository_BlobFallsBackToHTTP(t *testing.T) {
	httpFetcher := &fakeFetcher{media: &storage.FetchedMedia{Data: []byte{1}, MimeType: "image/png"}}
	repo := newTestRepo(httpFetcher, nil)

	_, err := repo.FetchMedia(context.Background(), "https://acct.blob.core.windows.net/c/a.png")
	require.NoError(t, err)
	assert.Len(t, httpFetcher.calls, 1)
}

func TestMediaRepository_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		fetcher *fakeFetcher
		wantErr error
	}{
		{
			name:    "bad scheme",
			url:     "ftp://example.com/a.png",
			fetcher: &fakeFetcher{},
			wantErr: ErrInvalidMediaURL,
		},
		{
			name:    "plain text",
			url:     "https://example.com/notes.txt",
			fetcher: &fakeFetcher{media: &storage.FetchedMedia{Data: []byte("hello"), MimeType: "text/plain"}},
			wantErr: ErrUnsupportedMedia,
		},
		{
			name:    "loopback host",
			url:     "http://127.0.0.1:6379/",
			fetcher: &fakeFetcher{},
			wantErr: ErrInvalidMediaURL,
		},
		{
			name:    "empty body",
			url:     "https://example.com/a.png",
			fetcher: &fakeFetcher{media: &storage.FetchedMedia{MimeType: "image/png"}},
			wantErr: ErrUnsupportedMedia,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newTestRepo(tt.fetcher, nil)
			_, err := repo.FetchMedia(context.Background(), tt.url)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestMediaRepository_PropagatesFetchError(t *testing.T) {
	boom := errors.New("boom")
	repo := newTestRepo(&fakeFetcher{err: boom}, nil)

	_, err := repo.FetchMedia(context.Background(), "https://example.com/a.png")
	assert.ErrorIs(t, err, boom)
}

func TestMediaRepository_AllowsHTMLPages(t *testing.T) {
	page := &fakeFetcher{media: &storage.FetchedMedia{Data: []byte("<p>hi</p>"), MimeType: "text/html; charset=utf-8"}}
	repo := newTestRepo(page, nil)

	media, err := repo.FetchMedia(context.Background(), "https://example.com/")
	require.NoError(t, err)
	assert.True(t, IsHTML(media.MimeType))
}

func TestMediaRepository_BlockedHostNeverFetched(t *testing.T) {
	fetcher := &fakeFetcher{media: &storage.FetchedMedia{Data: []byte{1}, MimeType: "image/png"}}
	repo := NewMediaRepository(fetcher, nil, nil, nil)

	for _, u := range []string{
		"http://169.254.169.254/latest/meta-data/",
		"http://localhost:8080/metrics",
		"http://[::1]/",
	} {
		_, err := repo.FetchMedia(context.Background(), u)
		assert.ErrorIs(t, err, ErrInvalidMediaURL, u)
	}
	assert.Empty(t, fetcher.calls)
}
