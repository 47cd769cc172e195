package handler

import (
	"fmt"

	"cors-relay/internal/model"
)

const usageTemplate = `CORS relay

Relays a request to any URL and answers with CORS headers, so browser code
can call origins that do not allow it.

Usage:
  %[1]s/?url=<percent-encoded absolute url>

Example:
  fetch("%[1]s/?url=" + encodeURIComponent("https://httpbin.org/get?a=1&b=2"))

Request headers:
  X-Custom-Headers    JSON object of headers to set on the relayed request,
                      e.g. {"cookie":"session=1"}

Response headers:
  x-received-headers  JSON object of every header the target returned

Origin: %[2]s
IP: %[3]s
Country: %[4]s
Datacenter: %[5]s
`

// usagePage is served when a request names no target.
func usagePage(pr *model.ProxyRequest) string {
	self := pr.URL.Scheme + "://" + pr.URL.Host
	return fmt.Sprintf(usageTemplate,
		self,
		orUnknown(pr.Header.Get("Origin")),
		orUnknown(pr.Client.IP),
		orUnknown(pr.Client.Country),
		orUnknown(pr.Client.Datacenter),
	)
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
