package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/labstack/echo/v4"

	"cors-relay/internal/headers"
	"cors-relay/internal/model"
	"cors-relay/internal/policy"
	"cors-relay/internal/service"
	"cors-relay/internal/target"
)

// targetQueryPattern matches the query part of URLs embedded in error messages.
var targetQueryPattern = regexp.MustCompile(`(https?://[^\s"?]+)\?[^\s"]*`)

// ProxyHandler relays requests to the target given in their url parameter.
type ProxyHandler struct {
	service *service.ProxyService
	logger  *slog.Logger
}

// NewProxyHandler creates a ProxyHandler.
func NewProxyHandler(svc *service.ProxyService, logger *slog.Logger) *ProxyHandler {
	return &ProxyHandler{
		service: svc,
		logger:  logger.With("component", "proxy_handler"),
	}
}

// Handle relays the request and streams the target's response back.
func (h *ProxyHandler) Handle(c echo.Context) error {
	pr := newProxyRequest(c)

	resp, err := h.service.Forward(pr)
	if err != nil {
		return h.mapError(c, pr, err)
	}

	// The origin's values replace anything middleware already set, such as
	// the relay's own X-Request-Id.
	out := c.Response().Header()
	for key, vals := range resp.Header {
		out[key] = append([]string(nil), vals...)
	}
	c.Response().WriteHeader(resp.StatusCode)

	if resp.Body == nil {
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	// The status is already sent, so a failed copy (client gone, target
	// reset) can only truncate the body. Log it and move on.
	if _, err := io.Copy(c.Response(), resp.Body); err != nil {
		h.logger.Error("streaming response body",
			"err", sanitizeError(err),
			"path", c.Request().URL.Path,
		)
	}

	return nil
}

// newProxyRequest captures the inbound request, with the URL made absolute
// so the relay can name its own origin.
func newProxyRequest(c echo.Context) *model.ProxyRequest {
	req := c.Request()

	u := *req.URL
	u.Scheme = c.Scheme()
	u.Host = req.Host

	return &model.ProxyRequest{
		Ctx:           req.Context(),
		Method:        req.Method,
		URL:           &u,
		Header:        req.Header,
		Body:          req.Body,
		ContentLength: req.ContentLength,
		Client:        clientInfo(c),
	}
}

// mapError writes the response for a request that never reached the target
// or failed in transit. Every such response still carries
// Access-Control-Allow-Origin so the browser lets the caller read it.
func (h *ProxyHandler) mapError(c echo.Context, pr *model.ProxyRequest, err error) error {
	c.Response().Header().Set(headers.AllowOrigin, headers.AllowOriginFor(pr))

	switch {
	case errors.Is(err, target.ErrNoTarget):
		return c.String(http.StatusOK, usagePage(pr))

	case errors.Is(err, target.ErrAmbiguousQuery):
		return c.String(http.StatusBadRequest,
			"Too many query parameters: percent-encode the target url so it arrives as the single url parameter.\n")

	case errors.Is(err, target.ErrInvalidURL):
		return c.String(http.StatusBadRequest,
			"Invalid target url: the url parameter must be a percent-encoded absolute URL.\n")

	case errors.Is(err, policy.ErrTargetDenied):
		return c.String(http.StatusForbidden, "Access to this target is not permitted.\n")
	}

	h.logger.Error("proxy error",
		"err", sanitizeError(err),
		"path", c.Request().URL.Path,
	)

	if errors.Is(err, context.DeadlineExceeded) {
		return c.JSON(http.StatusGatewayTimeout, map[string]string{
			"error": "target request timed out",
		})
	}

	if errors.Is(err, context.Canceled) {
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "client disconnected",
		})
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "target host unreachable",
		})
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "target connection failed",
		})
	}

	return c.JSON(http.StatusBadGateway, map[string]string{
		"error": "target request failed",
	})
}

// sanitizeError drops query strings from URLs in error messages; target
// queries often carry tokens.
func sanitizeError(err error) string {
	return targetQueryPattern.ReplaceAllString(err.Error(), "${1}?[REDACTED]")
}

// clientInfo reads the connection metadata the hosting edge provides.
func clientInfo(c echo.Context) model.ClientInfo {
	req := c.Request()
	info := model.ClientInfo{
		IP:      c.RealIP(),
		Country: req.Header.Get("CF-IPCountry"),
	}
	// CF-Ray is "<ray id>-<colo>".
	if ray := req.Header.Get("CF-Ray"); ray != "" {
		if i := strings.LastIndexByte(ray, '-'); i >= 0 && i < len(ray)-1 {
			info.Datacenter = ray[i+1:]
		}
	}
	return info
}
