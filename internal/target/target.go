// Package target extracts the destination URL from an inbound relay request.
package target

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Param is the query parameter that carries the destination URL.
const Param = "url"

var (
	// ErrNoTarget means the request carries no url parameter and at most one
	// other. It is not a failure: callers answer with the usage page.
	ErrNoTarget = errors.New("no target url given")

	// ErrAmbiguousQuery means the inbound query has more than one parameter,
	// whatever their names. This happens when the destination URL was not
	// percent-encoded and its own query got split apart.
	ErrAmbiguousQuery = errors.New("ambiguous query: more than one query parameter")

	// ErrInvalidURL covers both percent-decoding and URL parse failures.
	ErrInvalidURL = errors.New("invalid target url")
)

// Resolve returns the absolute destination URL named by the url query
// parameter of the inbound request URL.
func Resolve(u *url.URL) (*url.URL, error) {
	raw, found, count := lookup(u.RawQuery)
	if count > 1 {
		return nil, ErrAmbiguousQuery
	}
	if !found {
		return nil, ErrNoTarget
	}

	decoded, err := url.QueryUnescape(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}

	dst, err := url.Parse(decoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if !dst.IsAbs() || dst.Host == "" {
		return nil, fmt.Errorf("%w: %q is not an absolute url", ErrInvalidURL, decoded)
	}
	return dst, nil
}

// lookup scans the raw query once, returning the still-encoded value of the
// first url parameter and the total parameter count. Empty pieces such as
// the one produced by a trailing '&' are not parameters.
func lookup(rawQuery string) (value string, found bool, count int) {
	for piece := range strings.SplitSeq(rawQuery, "&") {
		if piece == "" {
			continue
		}
		count++
		key, val, _ := strings.Cut(piece, "=")
		if found {
			continue
		}
		if k, err := url.QueryUnescape(key); err == nil && k == Param {
			value, found = val, true
		}
	}
	return value, found, count
}
