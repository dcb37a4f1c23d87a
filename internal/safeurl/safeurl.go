// Package safeurl validates the URLs domstage reaches out to: webhook
// sinks and outline fetch targets. Only http(s) schemes are accepted,
// and by default private or loopback addresses are rejected so a
// hostile cue sheet or config cannot point the stage at internal
// infrastructure.
package safeurl

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
)

// MaxBody caps outline fetch response bodies (2 MiB).
const MaxBody int64 = 2 << 20

// ErrScheme is returned when a URL uses a non-HTTP(S) scheme.
var ErrScheme = errors.New("safeurl: only http and https schemes are allowed")

// ErrPrivate is returned when a URL targets a private or loopback address.
var ErrPrivate = errors.New("safeurl: URL targets a private or loopback address")

// Policy controls what Validate accepts.
type Policy struct {
	// AllowPrivate permits loopback and RFC 1918 targets. The page the
	// stage performs on is operator-owned and routinely lives on
	// localhost during development, so page URLs are validated with
	// this set. Webhook and outline targets are not.
	AllowPrivate bool
}

// ValidatePublic is Validate with the strict default policy.
func ValidatePublic(rawURL string) error {
	return Validate(rawURL, Policy{})
}

// Validate checks that rawURL uses http/https, has a hostname, and
// under the default policy does not resolve to a private or loopback
// IP. DNS resolution is performed to catch internal hostnames.
func Validate(rawURL string, p Policy) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("safeurl: invalid URL: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return ErrScheme
	}
	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("safeurl: URL has no host")
	}
	if p.AllowPrivate {
		return nil
	}

	if ip := net.ParseIP(host); ip != nil {
		if isPrivateIP(ip) {
			return ErrPrivate
		}
		return nil
	}

	addrs, err := net.LookupHost(host)
	if err != nil {
		// DNS failure: let it through. A valid external host may be
		// temporarily unresolvable, and the caller gets a network
		// error at connection time anyway.
		return nil
	}
	for _, a := range addrs {
		if ip := net.ParseIP(a); ip != nil && isPrivateIP(ip) {
			return ErrPrivate
		}
	}
	return nil
}

// LimitedReadAll reads at most maxBytes from r, erroring past the cap.
func LimitedReadAll(r io.Reader, maxBytes int64) ([]byte, error) {
	lr := io.LimitReader(r, maxBytes+1)
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("safeurl: response exceeds %d bytes", maxBytes)
	}
	return data, nil
}

func isPrivateIP(ip net.IP) bool {
	if ip.IsLoopback() {
		return true
	}
	if ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return true
	}
	for _, network := range []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"169.254.0.0/16",
		"fc00::/7",
		"::1/128",
	} {
		_, cidr, err := net.ParseCIDR(network)
		if err != nil {
			continue
		}
		if cidr.Contains(ip) {
			return true
		}
	}
	return false
}
