package night

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/fact-project/la-palma-overview/internal/archive"
	"github.com/fact-project/la-palma-overview/internal/encoder"
	"github.com/fact-project/la-palma-overview/internal/metrics"
	"github.com/fact-project/la-palma-overview/internal/overview"
	"github.com/fact-project/la-palma-overview/internal/publisher"
)

// State names the loop's position in the nightly cycle.
type State string

// Loop states.
const (
	StateIdle       State = "idle"
	StateCapturing  State = "capturing"
	StateFinalizing State = "finalizing"
)

// FrameBuilder produces one composed overview per cycle.
type FrameBuilder interface {
	BuildOverview(ctx context.Context) overview.Frame
}

// VideoEncoder turns a night of frames into one video artifact.
type VideoEncoder interface {
	Encode(ctx context.Context, nightDir, videoPath string) error
}

// Config controls the capture loop.
type Config struct {
	WorkingDir    string
	OutputDir     string // empty: videos land in the night directory
	Interval      time.Duration
	Rollover      time.Duration
	JPEGQuality   int
	KeepFrames    bool
	EventTopic    string
	ArchivePrefix string
}

// Deps are the loop's collaborators. Archive, Events and Latest are
// optional.
type Deps struct {
	Builder FrameBuilder
	Encoder VideoEncoder
	Clock   overview.Clock
	Window  Window
	Archive archive.Store
	Events  publisher.Publisher
	Latest  *overview.LatestFrame
}

// Loop captures one frame per interval while the night window is open,
// finalizes each finished night with the external encoder, and idles in
// between. Individual cycle failures never stop the loop; only the context
// ends it.
type Loop struct {
	deps   Deps
	cfg    Config
	state  State
	logger *zap.Logger
}

// NewLoop constructs a Loop.
func NewLoop(deps Deps, cfg Config, logger *zap.Logger) *Loop {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	return &Loop{
		deps:   deps,
		cfg:    cfg,
		state:  StateIdle,
		logger: logger,
	}
}

// Run blocks, cycling until the context finishes. The stop signal takes
// effect at the next cycle boundary, not mid-fetch.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.cycle(ctx)
		select {
		case <-ctx.Done():
			l.logger.Info("capture loop stopped")
			return ctx.Err()
		case <-time.After(l.cfg.Interval):
		}
	}
}

// State returns the loop's current state.
func (l *Loop) State() State {
	return l.state
}

func (l *Loop) cycle(ctx context.Context) {
	now := l.deps.Clock.Now()
	key := KeyFor(now, l.cfg.Rollover)
	dir := DirFor(l.cfg.WorkingDir, key)

	if err := os.MkdirAll(dir, 0o750); err != nil {
		l.logger.Error("create night dir failed; cycle skipped",
			zap.String("night_dir", dir), zap.Error(err))
		return
	}

	switch {
	case l.deps.Window.CaptureOpen(now):
		l.setState(StateCapturing)
		start := time.Now()
		l.captureFrame(ctx, dir)
		metrics.ObserveCycle(time.Since(start))
	case l.deps.Window.FinalizeDue(now) && !encoder.AlreadyEncoded(dir):
		l.setState(StateFinalizing)
		l.finalize(ctx, key, dir)
		l.setState(StateIdle)
	default:
		if l.state != StateIdle {
			l.setState(StateIdle)
		}
		l.logger.Debug("waiting for next night", zap.Time("now", now))
	}
}

func (l *Loop) setState(s State) {
	if l.state == s {
		return
	}
	l.logger.Info("loop state change", zap.String("from", string(l.state)), zap.String("to", string(s)))
	l.state = s
}

func (l *Loop) captureFrame(ctx context.Context, dir string) {
	index := NextFrameIndex(dir)
	frame := l.deps.Builder.BuildOverview(ctx)
	if ctx.Err() != nil {
		return
	}

	data, err := overview.EncodeJPEG(frame.Image, l.cfg.JPEGQuality)
	if err != nil {
		l.logger.Error("frame encode failed; cycle skipped", zap.Error(err))
		return
	}

	target := FramePath(dir, index)
	if err := os.WriteFile(target, data, 0o644); err != nil {
		l.logger.Error("frame write failed; cycle skipped",
			zap.String("path", target), zap.Error(err))
		return
	}

	metrics.IncFrameWritten()
	if l.deps.Latest != nil {
		l.deps.Latest.Set(data, frame.CapturedAt)
	}
	l.logger.Info("frame saved",
		zap.String("path", target),
		zap.String("status", frame.Status),
	)
}

func (l *Loop) finalize(ctx context.Context, key time.Time, dir string) {
	frames := CountFrames(dir)
	videoDir := l.cfg.OutputDir
	if videoDir == "" {
		videoDir = dir
	}
	videoPath := filepath.Join(videoDir, VideoName(key))

	start := time.Now()
	if err := l.deps.Encoder.Encode(ctx, dir, videoPath); err != nil {
		metrics.ObserveEncode("error")
		l.logger.Error("night video encode failed; night incomplete",
			zap.String("night_dir", dir), zap.Error(err))
		return
	}
	metrics.ObserveEncode("ok")
	metrics.IncNightFinalized()
	l.logger.Info("night video done",
		zap.String("video", videoPath),
		zap.Int("frames", frames),
		zap.Duration("took", time.Since(start)),
	)

	l.archiveVideo(ctx, key, videoPath)
	l.publishNight(ctx, key, videoPath, frames)

	if !l.cfg.KeepFrames {
		l.removeFrames(dir)
	}
}

func (l *Loop) archiveVideo(ctx context.Context, key time.Time, videoPath string) {
	if l.deps.Archive == nil {
		return
	}
	f, err := os.Open(videoPath)
	if err != nil {
		l.logger.Error("open video for archive failed", zap.String("video", videoPath), zap.Error(err))
		return
	}
	defer f.Close()

	object := path.Join(l.cfg.ArchivePrefix, VideoName(key))
	uri, err := l.deps.Archive.Put(ctx, object, "video/mp4", f)
	if err != nil {
		l.logger.Error("archive upload failed", zap.String("object", object), zap.Error(err))
		return
	}
	l.logger.Info("night video archived", zap.String("uri", uri))
}

func (l *Loop) publishNight(ctx context.Context, key time.Time, videoPath string, frames int) {
	if l.deps.Events == nil || l.cfg.EventTopic == "" {
		return
	}
	payload := map[string]any{
		"night":        key.Format("2006-01-02"),
		"video":        videoPath,
		"frames":       frames,
		"finalized_at": l.deps.Clock.Now().Format(time.RFC3339),
	}
	if _, err := l.deps.Events.Publish(ctx, l.cfg.EventTopic, payload); err != nil {
		l.logger.Error("night event publish failed", zap.Error(err))
		return
	}
	l.logger.Info("night event published", zap.String("topic", l.cfg.EventTopic))
}

func (l *Loop) removeFrames(dir string) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.jpg"))
	if err != nil {
		return
	}
	removed := 0
	for _, m := range matches {
		if err := os.Remove(m); err != nil {
			l.logger.Warn("remove frame failed", zap.String("path", m), zap.Error(err))
			continue
		}
		removed++
	}
	l.logger.Info("frame sequence removed", zap.Int("frames", removed))
}
