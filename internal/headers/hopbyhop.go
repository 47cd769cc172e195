package headers

import (
	"net/http"

	"github.com/golang/gddo/httputil/header"
)

// hopByHopHeaders apply to a single connection and are never relayed.
var hopByHopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// StripHopByHop removes hop-by-hop headers from h, including any header
// named in its Connection field.
func StripHopByHop(h http.Header) {
	for _, name := range header.ParseList(h, "Connection") {
		h.Del(name)
	}
	for _, name := range hopByHopHeaders {
		h.Del(name)
	}
}
