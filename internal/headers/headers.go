// Package headers derives the header sets sent to the target and returned to
// the caller.
//
// Outbound request headers are the caller's headers minus a deny list of
// name predicates, with overrides from X-Custom-Headers applied last. The
// response side copies every origin header, layers CORS fields on top and
// re-exposes the origin headers as JSON in x-received-headers, since
// browsers hide some of them (Set-Cookie among others) from scripts.
package headers

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"cors-relay/internal/model"
)

// Header names with fixed meaning to the relay.
const (
	CustomHeaders   = "X-Custom-Headers"
	ReceivedHeaders = "x-received-headers"

	AllowOrigin    = "Access-Control-Allow-Origin"
	AllowMethods   = "Access-Control-Allow-Methods"
	AllowHeaders   = "Access-Control-Allow-Headers"
	ExposeHeaders  = "Access-Control-Expose-Headers"
	RequestMethod  = "Access-Control-Request-Method"
	RequestHeaders = "Access-Control-Request-Headers"
)

// DefaultAllowMethods answers a preflight that names no method.
const DefaultAllowMethods = "GET, POST, PUT, DELETE, OPTIONS"

// dropRule reports whether a lower-cased header name must not reach the target.
type dropRule func(name string) bool

func prefix(p string) dropRule {
	return func(name string) bool { return strings.HasPrefix(name, p) }
}

func contains(s string) dropRule {
	return func(name string) bool { return strings.Contains(name, s) }
}

var dropRules = []dropRule{
	prefix("origin"),
	contains("eferer"), // Referer, X-Referer and misspelled variants
	prefix("cf-"),
	prefix("x-forw"),
	prefix("x-custom-headers"),
}

// Forbidden reports whether the named request header is withheld from the target.
func Forbidden(name string) bool {
	lower := strings.ToLower(name)
	for _, drop := range dropRules {
		if drop(lower) {
			return true
		}
	}
	return false
}

// ParseOverrides decodes an X-Custom-Headers value: a JSON object of header
// names to values. Malformed input yields no overrides rather than an error.
// Non-string values are kept in their JSON form.
func ParseOverrides(raw string) map[string]string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil
	}
	overrides := make(map[string]string, len(fields))
	for name, val := range fields {
		var s string
		if err := json.Unmarshal(val, &s); err == nil {
			overrides[name] = s
			continue
		}
		overrides[name] = string(val)
	}
	return overrides
}

// Outbound builds the header set sent to the target from the caller's headers.
func Outbound(incoming http.Header) http.Header {
	out := make(http.Header, len(incoming))
	for name, vals := range incoming {
		if Forbidden(name) {
			continue
		}
		out[name] = append([]string(nil), vals...)
	}

	if raw, ok := incoming[http.CanonicalHeaderKey(CustomHeaders)]; ok && len(raw) > 0 {
		for name, val := range ParseOverrides(raw[0]) {
			out.Set(name, val)
		}
	}
	return out
}

// Received renders the origin headers as the JSON object carried in
// x-received-headers. Names are lower-cased; repeated values are joined
// with ", ".
func Received(origin http.Header) string {
	flat := make(map[string]string, len(origin))
	for name, vals := range origin {
		key := strings.ToLower(name)
		if prev, ok := flat[key]; ok {
			vals = append([]string{prev}, vals...)
		}
		flat[key] = strings.Join(vals, ", ")
	}
	b, _ := json.Marshal(flat) // map[string]string cannot fail
	return string(b)
}

// Response builds the caller-facing header set from the origin's response
// headers and returns it with the list of exposed header names. Hop-by-hop
// headers are dropped and therefore not exposed; x-received-headers still
// reports every header the origin sent.
func Response(origin http.Header, req *model.ProxyRequest) (http.Header, []string) {
	out := origin.Clone()
	if out == nil {
		out = make(http.Header)
	}
	StripHopByHop(out)

	exposed := make([]string, 0, len(out)+1)
	seen := make(map[string]bool, len(out))
	for name := range out {
		lower := strings.ToLower(name)
		if !seen[lower] {
			seen[lower] = true
			exposed = append(exposed, lower)
		}
	}
	sort.Strings(exposed)
	exposed = append(exposed, ReceivedHeaders)

	out.Set(ReceivedHeaders, Received(origin))
	out.Set(AllowOrigin, AllowOriginFor(req))

	if req.IsPreflight() {
		methods := req.Header.Get(RequestMethod)
		if methods == "" {
			methods = DefaultAllowMethods
		}
		out.Set(AllowMethods, methods)
		if h := req.Header.Get(RequestHeaders); h != "" {
			out.Set(AllowHeaders, h)
		}
		out.Del("X-Content-Type-Options")
	}

	out.Set(ExposeHeaders, strings.Join(exposed, ","))
	return out, exposed
}

// AllowOriginFor is the Access-Control-Allow-Origin value for req: the
// caller's Origin, or the relay's own origin when absent. It is never a
// wildcard.
func AllowOriginFor(req *model.ProxyRequest) string {
	if o := req.Header.Get("Origin"); o != "" {
		return o
	}
	return req.URL.Scheme + "://" + req.URL.Host
}
