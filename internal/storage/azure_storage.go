package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

const blobHostSuffix = ".blob.core.windows.net"

type azureStorage struct {
	client   *azblob.Client
	maxBytes int64
}

// NewAzureStorage returns a MediaFetcher that downloads blobs with a shared key
func NewAzureStorage(accountName, accountKey string, maxBytes int64) (MediaFetcher, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("invalid azure credentials: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s%s", accountName, blobHostSuffix),
		credential,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create azure client: %w", err)
	}

	return &azureStorage{client: client, maxBytes: maxBytes}, nil
}

// IsBlobURL reports whether the URL points at Azure Blob Storage
func IsBlobURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return strings.HasSuffix(strings.ToLower(u.Hostname()), blobHostSuffix)
}

func (s *azureStorage) FetchMedia(ctx context.Context, blobURL string) (*FetchedMedia, error) {
	containerName, blobName, err := parseBlobURL(blobURL)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.DownloadStream(ctx, containerName, blobName, nil)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := readLimited(resp.Body, s.maxBytes)
	if err != nil {
		return nil, err
	}

	var declared string
	if resp.ContentType != nil {
		declared = *resp.ContentType
	}

	return &FetchedMedia{
		Data:      data,
		MimeType:  resolveMimeType(declared, data),
		Filename:  filenameFromURL(blobURL),
		SourceURL: blobURL,
	}, nil
}

// parseBlobURL accepts https://acct.blob.core.windows.net/container/path/to/blob
// and the legacy https://acct.blob.core.windows.net/container?blob=name form.
func parseBlobURL(blobURL string) (string, string, error) {
	u, err := url.Parse(blobURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid blob URL: %w", err)
	}

	trimmed := strings.Trim(u.Path, "/")
	if trimmed == "" {
		return "", "", fmt.Errorf("invalid blob URL: missing container")
	}

	containerName, blobName, _ := strings.Cut(trimmed, "/")
	if blobName == "" {
		blobName = u.Query().Get("blob")
	}
	if blobName == "" {
		return "", "", fmt.Errorf("invalid blob URL: missing blob name")
	}
	return containerName, blobName, nil
}
