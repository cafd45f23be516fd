package validation

import (
	"context"
	"net"
	"net/url"
	"strings"

	apperrors "github.com/anime-shed/veritas-go/internal/errors"
)

// Resolver looks up the addresses behind a host name
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// carrier-grade NAT space, not covered by net.IP.IsPrivate
var sharedAddressSpace = &net.IPNet{IP: net.IPv4(100, 64, 0, 0), Mask: net.CIDRMask(10, 32)}

// URLValidator decides whether the server may fetch a submitted URL. By
// default only http(s) URLs whose host resolves to public addresses pass.
type URLValidator struct {
	allowedSchemes []string
	allowedHosts   []string
	allowPrivate   bool
	resolver       Resolver
}

// URLOption customises a URLValidator
type URLOption func(*URLValidator)

// WithAllowedSchemes replaces the default http/https schemes
func WithAllowedSchemes(schemes ...string) URLOption {
	return func(v *URLValidator) { v.allowedSchemes = schemes }
}

// WithAllowedHosts restricts fetching to the given host names
func WithAllowedHosts(hosts ...string) URLOption {
	return func(v *URLValidator) { v.allowedHosts = hosts }
}

// WithPrivateNetworks lets loopback and private addresses through, for
// deployments that fetch from an internal network on purpose
func WithPrivateNetworks() URLOption {
	return func(v *URLValidator) { v.allowPrivate = true }
}

// WithResolver swaps the DNS resolver
func WithResolver(r Resolver) URLOption {
	return func(v *URLValidator) { v.resolver = r }
}

func NewURLValidator(opts ...URLOption) *URLValidator {
	v := &URLValidator{
		allowedSchemes: []string{"http", "https"},
		resolver:       net.DefaultResolver,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ValidateMediaURL checks scheme, host allow-list and, unless private
// networks are allowed, that every address the host resolves to is public.
// Submitting a URL for verification never requires this; it only gates fetching.
func (v *URLValidator) ValidateMediaURL(ctx context.Context, rawURL string) error {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return apperrors.NewValidationError("URL cannot be empty", nil)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return apperrors.NewValidationError("Invalid URL format", err)
	}
	if !v.schemeAllowed(strings.ToLower(u.Scheme)) {
		return apperrors.NewValidationError("URL scheme not allowed", nil)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return apperrors.NewValidationError("URL must have a valid host", nil)
	}
	if len(v.allowedHosts) > 0 && !v.hostAllowed(host) {
		return apperrors.NewValidationError("URL host not allowed", nil)
	}
	if v.allowPrivate {
		return nil
	}

	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return apperrors.NewValidationError("URL host is not public", nil)
	}
	if ip := net.ParseIP(host); ip != nil {
		return v.CheckIP(ip)
	}

	addrs, err := v.resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return apperrors.NewValidationError("URL host cannot be resolved", err)
	}
	if len(addrs) == 0 {
		return apperrors.NewValidationError("URL host cannot be resolved", nil)
	}
	for _, addr := range addrs {
		if err := v.CheckIP(addr.IP); err != nil {
			return err
		}
	}
	return nil
}

// CheckIP rejects addresses outside the public internet. The HTTP fetcher
// calls it again for every connection it dials.
func (v *URLValidator) CheckIP(ip net.IP) error {
	if v.allowPrivate || IsPublicIP(ip) {
		return nil
	}
	return apperrors.NewValidationError("URL resolves to a non-public address: "+ip.String(), nil)
}

// IsPublicIP reports whether ip is routable on the public internet
func IsPublicIP(ip net.IP) bool {
	if ip == nil {
		return false
	}
	switch {
	case ip.IsUnspecified(), ip.IsLoopback(), ip.IsPrivate(),
		ip.IsLinkLocalUnicast(), ip.IsLinkLocalMulticast(),
		ip.IsInterfaceLocalMulticast(), ip.IsMulticast():
		return false
	}
	return !sharedAddressSpace.Contains(ip)
}

func (v *URLValidator) schemeAllowed(scheme string) bool {
	for _, allowed := range v.allowedSchemes {
		if scheme == allowed {
			return true
		}
	}
	return false
}

func (v *URLValidator) hostAllowed(host string) bool {
	for _, allowed := range v.allowedHosts {
		if strings.EqualFold(host, allowed) {
			return true
		}
	}
	return false
}
