// Package model defines the per-request types shared by the relay components.
package model

import (
	"context"
	"io"
	"net/http"
	"net/url"
)

// ClientInfo is the connection metadata supplied by the hosting environment.
// Empty fields mean the value is unknown.
type ClientInfo struct {
	IP         string
	Country    string
	Datacenter string
}

// ProxyRequest is an inbound request to be relayed to the target in its url parameter.
type ProxyRequest struct {
	Ctx    context.Context
	Method string
	// URL is the full inbound URL, scheme and host included.
	URL    *url.URL
	Header http.Header
	Body   io.ReadCloser
	// ContentLength is the inbound body length; -1 means unknown.
	ContentLength int64
	Client        ClientInfo
}

// IsPreflight reports whether the request is a CORS preflight.
func (r *ProxyRequest) IsPreflight() bool {
	return r.Method == http.MethodOptions
}

// ProxyResponse is the relayed response to be written back to the caller.
// Body is nil for preflight responses.
type ProxyResponse struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       io.ReadCloser
}
