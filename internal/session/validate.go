package session

import (
	"net"
	"net/url"
	"strings"

	"github.com/sadopc/supadmin/internal/errs"
)

// MinKeyLength is the exclusive lower bound on API key length.
const MinKeyLength = 10

// ValidateConnection checks the format of a URL/key pair without any
// network access.
func ValidateConnection(rawURL, key string) error {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return errs.Wrap(errs.ErrKindInvalidURL, "invalid URL", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errs.New(errs.ErrKindInvalidURL, "invalid URL: scheme must be http or https")
	}
	if u.Hostname() == "" {
		return errs.New(errs.ErrKindInvalidURL, "invalid URL: missing host")
	}
	if len(strings.TrimSpace(key)) <= MinKeyLength {
		return errs.New(errs.ErrKindInvalidKey, "invalid key: too short")
	}
	return nil
}

// IsSelfHosted reports whether rawURL points at a loopback address.
// Connections to such hosts are not probed.
func IsSelfHosted(rawURL string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	switch {
	case host == "localhost", strings.HasSuffix(host, ".localhost"):
		return true
	case host == "0.0.0.0":
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
