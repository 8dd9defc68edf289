package overview

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// StatusUnknown is stamped onto the composite when the status source fails.
const StatusUnknown = "unknown"

// maxStatusLen caps the overlay text so it stays inside the bottom strip.
const maxStatusLen = 120

// StatusConfig controls the HTTP status annotator.
type StatusConfig struct {
	URL       string
	Timeout   time.Duration
	UserAgent string
}

// HTTPStatus fetches the telescope status line. Failures of any kind resolve
// to StatusUnknown; a dead status source never fails a cycle.
type HTTPStatus struct {
	client    *http.Client
	url       string
	timeout   time.Duration
	userAgent string
	logger    *zap.Logger
}

// NewHTTPStatus builds an HTTPStatus annotator.
func NewHTTPStatus(cfg StatusConfig, logger *zap.Logger) *HTTPStatus {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &HTTPStatus{
		client:    &http.Client{},
		url:       cfg.URL,
		timeout:   cfg.Timeout,
		userAgent: cfg.UserAgent,
		logger:    logger,
	}
}

// Status returns the first non-empty line of the status source, capped at
// maxStatusLen characters.
func (s *HTTPStatus) Status(ctx context.Context) string {
	status, err := s.get(ctx)
	if err != nil {
		s.logger.Warn("status unavailable", zap.String("url", s.url), zap.Error(err))
		return StatusUnknown
	}
	return status
}

func (s *HTTPStatus) get(ctx context.Context) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, s.url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(io.LimitReader(resp.Body, 64<<10))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if len(line) > maxStatusLen {
			line = line[:maxStatusLen]
		}
		return line, nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return "", fmt.Errorf("empty status body")
}
