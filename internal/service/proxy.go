// Package service implements the relay pipeline: resolve the target, apply
// the access policy, forward the call and shape the response.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"cors-relay/internal/headers"
	"cors-relay/internal/metrics"
	"cors-relay/internal/model"
	"cors-relay/internal/policy"
	"cors-relay/internal/target"
)

// Upstream performs the relayed call. Redirects are followed by the implementation.
type Upstream interface {
	DoStream(ctx context.Context, method, url string, header http.Header, body io.Reader, contentLength int64) (*model.ProxyResponse, error)
}

// ProxyService relays one request at a time and keeps no per-request state.
type ProxyService struct {
	upstream Upstream
	policy   *policy.Policy
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewProxyService creates a ProxyService. The metrics parameter is optional.
func NewProxyService(u Upstream, p *policy.Policy, m *metrics.Metrics, logger *slog.Logger) *ProxyService {
	return &ProxyService{
		upstream: u,
		policy:   p,
		metrics:  m,
		logger:   logger.With("component", "proxy_service"),
	}
}

// Forward relays pr to the target named in its url parameter.
//
// It returns target.ErrNoTarget, target.ErrAmbiguousQuery,
// target.ErrInvalidURL or policy.ErrTargetDenied (all wrapped) without
// contacting the target. Errors from the call itself are returned wrapped
// and untranslated. Preflight requests are still forwarded, but their
// response is always 200 with no body. Otherwise the caller must close
// the returned body.
func (s *ProxyService) Forward(pr *model.ProxyRequest) (*model.ProxyResponse, error) {
	dst, err := target.Resolve(pr.URL)
	if err != nil {
		s.reject(err)
		return nil, err
	}

	if d := s.policy.Check(dst); !d.Allowed {
		err := fmt.Errorf("%w: %s (%s)", policy.ErrTargetDenied, dst.Hostname(), d.Reason)
		s.reject(err)
		return nil, err
	}

	outbound := headers.Outbound(pr.Header)

	s.logger.Debug("forwarding request",
		"method", pr.Method,
		"host", dst.Host,
		"headers", len(outbound),
	)

	resp, err := s.upstream.DoStream(pr.Ctx, pr.Method, dst.String(), outbound, pr.Body, pr.ContentLength)
	if err != nil {
		return nil, fmt.Errorf("forward to %s: %w", dst.Host, err)
	}

	header, exposed := headers.Response(resp.Header, pr)
	s.logger.Debug("relayed response",
		"status", resp.StatusCode,
		"exposed", len(exposed),
	)

	if pr.IsPreflight() {
		_ = resp.Body.Close()
		header.Del("Content-Length")
		if s.metrics != nil {
			s.metrics.Preflights.Inc()
		}
		return &model.ProxyResponse{
			StatusCode: http.StatusOK,
			Status:     "OK",
			Header:     header,
		}, nil
	}

	return &model.ProxyResponse{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     header,
		Body:       resp.Body,
	}, nil
}

// reject records why a request was refused before any call to the target.
func (s *ProxyService) reject(err error) {
	reason := rejectionReason(err)
	if reason == "" {
		return
	}
	s.logger.Debug("request rejected", "reason", reason, "err", err)
	if s.metrics != nil {
		s.metrics.Rejections.WithLabelValues(reason).Inc()
	}
}
