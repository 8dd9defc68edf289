package night

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	archivememory "github.com/fact-project/la-palma-overview/internal/archive/memory"
	"github.com/fact-project/la-palma-overview/internal/encoder"
	"github.com/fact-project/la-palma-overview/internal/metrics"
	"github.com/fact-project/la-palma-overview/internal/overview"
	publishermemory "github.com/fact-project/la-palma-overview/internal/publisher/memory"
)

func TestMain(m *testing.M) {
	metrics.Init()
	os.Exit(m.Run())
}

type fakeBuilder struct {
	calls int
}

func (f *fakeBuilder) BuildOverview(context.Context) overview.Frame {
	f.calls++
	return overview.Frame{
		Image:      image.NewRGBA(image.Rect(0, 0, 8, 8)),
		CapturedAt: time.Date(2024, 3, 15, 23, 0, 0, 0, time.UTC),
		Status:     "ok",
	}
}

type fakeEncoder struct {
	calls []string
	err   error
}

func (f *fakeEncoder) Encode(_ context.Context, nightDir, videoPath string) error {
	f.calls = append(f.calls, videoPath)
	// The real encoder creates its logs before running, marking the attempt.
	if err := os.WriteFile(encoder.StdoutLog(nightDir), []byte("log"), 0o600); err != nil {
		return err
	}
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(videoPath, []byte("video"), 0o600)
}

type fakeWindow struct {
	capture  bool
	finalize bool
}

func (w *fakeWindow) CaptureOpen(time.Time) bool {
	return w.capture
}

func (w *fakeWindow) FinalizeDue(time.Time) bool {
	return w.finalize
}

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	return c.now
}

var loopNow = time.Date(2024, 3, 15, 23, 0, 0, 0, time.UTC)

func newTestLoop(t *testing.T, deps Deps, cfg Config) *Loop {
	t.Helper()
	if deps.Clock == nil {
		deps.Clock = &fixedClock{now: loopNow}
	}
	if cfg.JPEGQuality == 0 {
		cfg.JPEGQuality = 90
	}
	if cfg.Rollover == 0 {
		cfg.Rollover = 12 * time.Hour
	}
	return NewLoop(deps, cfg, zap.NewNop())
}

func TestCycleCapturesSequencedFrames(t *testing.T) {
	t.Parallel()

	work := t.TempDir()
	builder := &fakeBuilder{}
	l := newTestLoop(t, Deps{
		Builder: builder,
		Encoder: &fakeEncoder{},
		Window:  &fakeWindow{capture: true},
		Latest:  &overview.LatestFrame{},
	}, Config{WorkingDir: work, KeepFrames: true})

	l.cycle(context.Background())
	l.cycle(context.Background())

	nightDir := DirFor(work, KeyFor(loopNow, 12*time.Hour))
	require.FileExists(t, FramePath(nightDir, 0))
	require.FileExists(t, FramePath(nightDir, 1))
	require.Equal(t, 2, builder.calls)
	require.Equal(t, StateCapturing, l.State())

	_, _, ok := l.deps.Latest.Latest()
	require.True(t, ok)
}

func TestCycleResumesFrameNumbering(t *testing.T) {
	t.Parallel()

	work := t.TempDir()
	nightDir := DirFor(work, KeyFor(loopNow, 12*time.Hour))
	require.NoError(t, os.MkdirAll(nightDir, 0o750))
	require.NoError(t, os.WriteFile(FramePath(nightDir, 4), []byte("x"), 0o600))

	l := newTestLoop(t, Deps{
		Builder: &fakeBuilder{},
		Encoder: &fakeEncoder{},
		Window:  &fakeWindow{capture: true},
	}, Config{WorkingDir: work, KeepFrames: true})

	l.cycle(context.Background())
	require.FileExists(t, FramePath(nightDir, 5))
}

func TestCycleFinalizesOnce(t *testing.T) {
	t.Parallel()

	work := t.TempDir()
	key := KeyFor(loopNow, 12*time.Hour)
	nightDir := DirFor(work, key)
	require.NoError(t, os.MkdirAll(nightDir, 0o750))
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(FramePath(nightDir, i), []byte("x"), 0o600))
	}

	enc := &fakeEncoder{}
	store := archivememory.New()
	events := publishermemory.New()
	l := newTestLoop(t, Deps{
		Builder: &fakeBuilder{},
		Encoder: enc,
		Window:  &fakeWindow{finalize: true},
		Archive: store,
		Events:  events,
	}, Config{
		WorkingDir:    work,
		KeepFrames:    true,
		EventTopic:    "la-palma-nights",
		ArchivePrefix: "videos",
	})

	l.cycle(context.Background())
	l.cycle(context.Background())

	// One encode despite two cycles: the marker suppresses the retry.
	require.Equal(t, []string{filepath.Join(nightDir, VideoName(key))}, enc.calls)
	require.FileExists(t, filepath.Join(nightDir, VideoName(key)))

	obj, ok := store.Object("videos/" + VideoName(key))
	require.True(t, ok)
	require.Equal(t, "video/mp4", obj.ContentType)
	require.Equal(t, []byte("video"), obj.Data)

	msgs := events.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "la-palma-nights", msgs[0].Topic)
	payload, ok := msgs[0].Payload.(map[string]any)
	require.True(t, ok)
	require.Equal(t, key.Format("2006-01-02"), payload["night"])
	require.Equal(t, 3, payload["frames"])

	// Frames survive with keep_frames enabled.
	require.Equal(t, 3, CountFrames(nightDir))
	require.Equal(t, StateIdle, l.State())
}

func TestCycleFinalizeRemovesFramesWhenConfigured(t *testing.T) {
	t.Parallel()

	work := t.TempDir()
	key := KeyFor(loopNow, 12*time.Hour)
	nightDir := DirFor(work, key)
	require.NoError(t, os.MkdirAll(nightDir, 0o750))
	for i := 0; i < 2; i++ {
		require.NoError(t, os.WriteFile(FramePath(nightDir, i), []byte("x"), 0o600))
	}

	l := newTestLoop(t, Deps{
		Builder: &fakeBuilder{},
		Encoder: &fakeEncoder{},
		Window:  &fakeWindow{finalize: true},
	}, Config{WorkingDir: work, KeepFrames: false})

	l.cycle(context.Background())
	require.Equal(t, 0, CountFrames(nightDir))
	require.FileExists(t, filepath.Join(nightDir, VideoName(key)))
}

func TestCycleEncodeFailureLeavesFrames(t *testing.T) {
	t.Parallel()

	work := t.TempDir()
	key := KeyFor(loopNow, 12*time.Hour)
	nightDir := DirFor(work, key)
	require.NoError(t, os.MkdirAll(nightDir, 0o750))
	require.NoError(t, os.WriteFile(FramePath(nightDir, 0), []byte("x"), 0o600))

	store := archivememory.New()
	events := publishermemory.New()
	l := newTestLoop(t, Deps{
		Builder: &fakeBuilder{},
		Encoder: &fakeEncoder{err: context.DeadlineExceeded},
		Window:  &fakeWindow{finalize: true},
		Archive: store,
		Events:  events,
	}, Config{
		WorkingDir: work,
		KeepFrames: false,
		EventTopic: "la-palma-nights",
	})

	l.cycle(context.Background())

	// Already-written frames stay valid; nothing is archived or announced.
	require.Equal(t, 1, CountFrames(nightDir))
	require.Equal(t, 0, store.Len())
	require.Empty(t, events.Messages())
}

func TestCycleIdleOutsideWindows(t *testing.T) {
	t.Parallel()

	work := t.TempDir()
	builder := &fakeBuilder{}
	enc := &fakeEncoder{}
	l := newTestLoop(t, Deps{
		Builder: builder,
		Encoder: enc,
		Window:  &fakeWindow{},
	}, Config{WorkingDir: work, KeepFrames: true})

	l.cycle(context.Background())

	require.Equal(t, 0, builder.calls)
	require.Empty(t, enc.calls)
	require.Equal(t, StateIdle, l.State())
}

func TestRunStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	l := newTestLoop(t, Deps{
		Builder: &fakeBuilder{},
		Encoder: &fakeEncoder{},
		Window:  &fakeWindow{},
	}, Config{WorkingDir: t.TempDir(), Interval: 10 * time.Millisecond, KeepFrames: true})

	done := make(chan error, 1)
	go func() {
		done <- l.Run(ctx)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	require.Eventually(t, func() bool {
		select {
		case err := <-done:
			return err == context.Canceled
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}
