package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"
	"syscall"
	"time"

	"github.com/gabriel-vasile/mimetype"

	apperrors "github.com/anime-shed/veritas-go/internal/errors"
)

const (
	fetchAttempts  = 3
	defaultBackoff = time.Second
)

// FetchedMedia is remote content pulled down for analysis
type FetchedMedia struct {
	Data      []byte
	MimeType  string
	Filename  string
	SourceURL string
}

// MediaFetcher downloads the content a URL points to
type MediaFetcher interface {
	FetchMedia(ctx context.Context, mediaURL string) (*FetchedMedia, error)
}

// ErrBlockedAddress is returned when the dial guard refuses a connection
var ErrBlockedAddress = errors.New("connection to blocked address")

// HTTPMediaFetcher implements MediaFetcher over plain HTTP(S)
type HTTPMediaFetcher struct {
	client   *http.Client
	maxBytes int64
	backoff  time.Duration
}

// FetcherOption customises an HTTPMediaFetcher
type FetcherOption func(*fetcherOptions)

type fetcherOptions struct {
	guard func(net.IP) error
}

// WithDialGuard checks every address the fetcher connects to, including
// redirect targets and re-resolved names. A guarded fetcher ignores proxy
// settings so the check sees the real peer.
func WithDialGuard(guard func(net.IP) error) FetcherOption {
	return func(o *fetcherOptions) { o.guard = guard }
}

// NewHTTPMediaFetcher creates an HTTP fetcher that refuses bodies over maxBytes
func NewHTTPMediaFetcher(timeout time.Duration, maxBytes int64, opts ...FetcherOption) *HTTPMediaFetcher {
	var o fetcherOptions
	for _, opt := range opts {
		opt(&o)
	}

	dialer := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}
	proxy := http.ProxyFromEnvironment
	if o.guard != nil {
		dialer.Control = guardedControl(o.guard)
		proxy = nil
	}

	transport := &http.Transport{
		Proxy:                  proxy,
		DialContext:            dialer.DialContext,
		MaxIdleConns:           10,
		MaxIdleConnsPerHost:    2,
		IdleConnTimeout:        30 * time.Second,
		TLSHandshakeTimeout:    10 * time.Second,
		ResponseHeaderTimeout:  10 * time.Second,
		ExpectContinueTimeout:  1 * time.Second,
		MaxResponseHeaderBytes: 4096,
	}

	return &HTTPMediaFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
		maxBytes: maxBytes,
		backoff:  defaultBackoff,
	}
}

// FetchMedia retries network errors and 5xx responses up to three times
// with linear backoff. 4xx responses fail immediately.
func (h *HTTPMediaFetcher) FetchMedia(ctx context.Context, mediaURL string) (*FetchedMedia, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	req.Header.Set("Accept", "image/*, audio/*, video/*, application/pdf, */*;q=0.5")
	req.Header.Set("User-Agent", "Veritas-Verifier/1.0")

	var lastErr error
	for attempt := 0; attempt < fetchAttempts; attempt++ {
		resp, err := h.client.Do(req)
		if err == nil && resp.StatusCode == http.StatusOK {
			return h.readBody(resp, mediaURL)
		}

		retryable := true
		if err != nil {
			lastErr = err
			retryable = !errors.Is(err, ErrBlockedAddress)
		} else {
			resp.Body.Close()
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				lastErr = fmt.Errorf("client error: status code %d", resp.StatusCode)
				retryable = false
			} else {
				lastErr = fmt.Errorf("server error: status code %d", resp.StatusCode)
			}
		}

		if !retryable || ctx.Err() != nil {
			break
		}
		if attempt < fetchAttempts-1 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("fetch cancelled: %w", ctx.Err())
			case <-time.After(time.Duration(attempt+1) * h.backoff):
			}
		}
	}

	return nil, fmt.Errorf("failed to fetch media after %d attempts: %w", fetchAttempts, lastErr)
}

// guardedControl runs after name resolution, so address is always ip:port
func guardedControl(guard func(net.IP) error) func(string, string, syscall.RawConn) error {
	return func(network, address string, _ syscall.RawConn) error {
		host, _, err := net.SplitHostPort(address)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrBlockedAddress, address)
		}
		ip := net.ParseIP(host)
		if ip == nil {
			return fmt.Errorf("%w: %s", ErrBlockedAddress, address)
		}
		if err := guard(ip); err != nil {
			return fmt.Errorf("%w: %v", ErrBlockedAddress, err)
		}
		return nil
	}
}

func (h *HTTPMediaFetcher) readBody(resp *http.Response, mediaURL string) (*FetchedMedia, error) {
	defer resp.Body.Close()

	if h.maxBytes > 0 && resp.ContentLength > h.maxBytes {
		return nil, apperrors.NewFileTooLargeError(resp.ContentLength, h.maxBytes)
	}

	data, err := readLimited(resp.Body, h.maxBytes)
	if err != nil {
		return nil, err
	}

	return &FetchedMedia{
		Data:      data,
		MimeType:  resolveMimeType(resp.Header.Get("Content-Type"), data),
		Filename:  filenameFromURL(mediaURL),
		SourceURL: mediaURL,
	}, nil
}

func readLimited(r io.Reader, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read body: %w", err)
		}
		return data, nil
	}

	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, apperrors.NewFileTooLargeError(0, maxBytes)
	}
	return data, nil
}

// resolveMimeType trusts a specific declared type and sniffs otherwise
func resolveMimeType(declared string, data []byte) string {
	if declared != "" {
		if mt, _, err := mime.ParseMediaType(declared); err == nil &&
			mt != "application/octet-stream" && mt != "binary/octet-stream" {
			return mt
		}
	}
	detected := mimetype.Detect(data).String()
	if mt, _, err := mime.ParseMediaType(detected); err == nil {
		return mt
	}
	return detected
}

func filenameFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || !strings.Contains(name, ".") {
		return ""
	}
	return name
}
