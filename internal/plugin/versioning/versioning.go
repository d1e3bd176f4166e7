// Package versioning compares plugin, host and runtime version strings.
//
// Versions are dot-separated numeric segments with an optional pre-release
// suffix, in the lenient style plugin hosts publish: "1.2.3.1", "1.09",
// "6.5-RC1" and "v2.0" all parse. Surrounding whitespace is ignored and
// shorter versions compare as if padded with zeros, so "6.4" equals "6.4.0".
package versioning

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-version"
)

// Parse parses a version string.
func Parse(v string) (*version.Version, error) {
	parsed, err := version.NewVersion(strings.TrimSpace(v))
	if err != nil {
		return nil, fmt.Errorf("invalid version %q: %w", v, err)
	}
	return parsed, nil
}

// Compare returns -1, 0 or 1 when a is lower than, equal to or greater than b.
func Compare(a, b string) (int, error) {
	va, err := Parse(a)
	if err != nil {
		return 0, err
	}
	vb, err := Parse(b)
	if err != nil {
		return 0, err
	}
	return va.Compare(vb), nil
}

// Newer reports whether candidate is strictly greater than installed.
// Unparseable versions are never newer.
func Newer(candidate, installed string) bool {
	c, err := Compare(candidate, installed)
	return err == nil && c > 0
}

// Satisfies reports whether current meets the minimum required version.
// An empty requirement is always satisfied; an unparseable one never is.
func Satisfies(required, current string) bool {
	if required == "" {
		return true
	}
	c, err := Compare(required, current)
	return err == nil && c <= 0
}
