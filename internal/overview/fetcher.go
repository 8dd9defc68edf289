package overview

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"net"
	"net/http"
	"time"

	// Register the decoders for the payloads the site cameras serve.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"go.uber.org/zap"

	"github.com/fact-project/la-palma-overview/internal/metrics"
)

// maxImageBytes caps how much of a response body is read before decoding.
const maxImageBytes = 32 << 20

// FetcherConfig controls the HTTP image fetcher.
type FetcherConfig struct {
	Timeout   time.Duration
	UserAgent string
}

// HTTPFetcher retrieves and decodes one remote image per call. Any failure
// mode, including a 2xx response with an undecodable payload, resolves to an
// unavailable result within the timeout budget.
type HTTPFetcher struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
	logger    *zap.Logger
}

// NewHTTPFetcher builds an HTTPFetcher with a pooled transport.
func NewHTTPFetcher(cfg FetcherConfig, logger *zap.Logger) *HTTPFetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          32,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	return &HTTPFetcher{
		client:    &http.Client{Transport: transport},
		timeout:   cfg.Timeout,
		userAgent: cfg.UserAgent,
		logger:    logger,
	}
}

// Fetch executes a single HTTP GET and decodes the payload. One attempt per
// cycle; the next capture cycle is the retry.
func (f *HTTPFetcher) Fetch(ctx context.Context, source string) FetchResult {
	start := time.Now()
	img, err := f.fetch(ctx, source)
	result := FetchResult{
		Source:   source,
		Image:    img,
		Err:      err,
		Duration: time.Since(start),
	}
	metrics.ObserveFetch(source, result.Available(), result.Duration)
	if err != nil {
		f.logger.Warn("source unavailable",
			zap.String("source", source),
			zap.Duration("duration", result.Duration),
			zap.Error(err),
		)
	}
	return result
}

func (f *HTTPFetcher) fetch(ctx context.Context, source string) (image.Image, error) {
	reqCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}
