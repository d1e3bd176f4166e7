// Package security validates operator-supplied endpoints and plugin binaries.
package security

import (
	"errors"
	"fmt"
	"net/netip"
	"net/url"
	"os"
	"strings"
)

// ValidateBaseURL checks that raw is an absolute http(s) URL with a host and
// no credentials, query or fragment.
func ValidateBaseURL(raw string) error {
	if raw == "" {
		return errors.New("empty URL")
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("URL must start with http:// or https:// (got %q)", parsed.Scheme)
	}
	if parsed.Host == "" {
		return errors.New("URL must have a hostname")
	}
	if parsed.User != nil {
		return errors.New("URL must not contain credentials")
	}
	if parsed.RawQuery != "" || parsed.Fragment != "" {
		return errors.New("URL must not contain a query or fragment")
	}

	return nil
}

// Plaintext reports whether raw uses plain HTTP to a host that is neither
// loopback nor on a private network.
func Plaintext(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil || !strings.EqualFold(parsed.Scheme, "http") {
		return false
	}
	return !isLocalOrPrivateHost(strings.ToLower(parsed.Hostname()))
}

// ValidatePluginBinary checks that path names an executable regular file.
func ValidatePluginBinary(path string) error {
	if path == "" {
		return errors.New("empty plugin path")
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("plugin binary: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("plugin binary %s is not a regular file", path)
	}
	if info.Mode().Perm()&0o111 == 0 {
		return fmt.Errorf("plugin binary %s is not executable", path)
	}

	return nil
}

func isLocalOrPrivateHost(host string) bool {
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}

	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	return addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast()
}
