package overview

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// BuilderConfig supplies the source list, grid layout and output defaults.
type BuilderConfig struct {
	URLs        []string
	Grid        Grid
	OutputDir   string
	JPEGQuality int
}

// Builder orchestrates one full cycle: fetch all sources and the status
// concurrently, compose the grid, and optionally persist the result.
type Builder struct {
	fetcher ImageFetcher
	status  StatusProvider
	clock   Clock
	cfg     BuilderConfig
	logger  *zap.Logger
}

// NewBuilder constructs a Builder.
func NewBuilder(
	fetcher ImageFetcher,
	status StatusProvider,
	clock Clock,
	cfg BuilderConfig,
	logger *zap.Logger,
) *Builder {
	return &Builder{
		fetcher: fetcher,
		status:  status,
		clock:   clock,
		cfg:     cfg,
		logger:  logger,
	}
}

// BuildOverview runs one capture cycle. Every source request and the status
// request are in flight simultaneously, so wall-clock time is bounded by the
// slowest single fetch, not the sum. Source failures become black cells and a
// failed status becomes StatusUnknown; the cycle always yields a Frame.
func (b *Builder) BuildOverview(ctx context.Context) Frame {
	results := make([]FetchResult, len(b.cfg.URLs))
	status := StatusUnknown

	var wg sync.WaitGroup
	for i, url := range b.cfg.URLs {
		wg.Add(1)
		go func(slot int, source string) {
			defer wg.Done()
			results[slot] = b.fetcher.Fetch(ctx, source)
		}(i, url)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		status = b.status.Status(ctx)
	}()
	wg.Wait()

	captured := b.clock.Now()
	images := make([]image.Image, len(results))
	available := 0
	for i, res := range results {
		images[i] = res.Image
		if res.Available() {
			available++
		}
	}

	b.logger.Info("overview composed",
		zap.Int("sources", len(results)),
		zap.Int("available", available),
		zap.String("status", status),
	)

	return Frame{
		Image:      Compose(images, b.cfg.Grid, captured, status),
		CapturedAt: captured,
		Status:     status,
	}
}

// SaveImage captures one overview and writes it as JPEG. An empty outputPath
// synthesizes "la_palma_<yyyymmdd_HHMMSS>.jpg" in the configured default
// directory; an explicit path is used verbatim. The final path is returned.
func (b *Builder) SaveImage(ctx context.Context, outputPath string) (string, error) {
	frame := b.BuildOverview(ctx)

	data, err := EncodeJPEG(frame.Image, b.cfg.JPEGQuality)
	if err != nil {
		return "", err
	}

	if outputPath == "" {
		name := fmt.Sprintf("la_palma_%s.jpg", frame.CapturedAt.Format(FileTimeFormat))
		outputPath = filepath.Join(b.cfg.OutputDir, name)
	}
	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return "", fmt.Errorf("create output dir %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return "", fmt.Errorf("write overview %s: %w", outputPath, err)
	}

	b.logger.Info("overview saved", zap.String("path", outputPath))
	return outputPath, nil
}
