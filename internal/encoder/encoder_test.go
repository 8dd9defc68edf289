package encoder

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRunner struct {
	name string
	args []string
	err  error
}

func (f *fakeRunner) Run(_ context.Context, name string, args []string, stdout, _ io.Writer) error {
	f.name = name
	f.args = args
	_, _ = stdout.Write([]byte("encoder output\n"))
	return f.err
}

func TestEncodeBuildsArgumentConvention(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	run := &fakeRunner{}
	enc := NewWithRunner(Config{Binary: "avconv", FrameRate: 12, Size: "1920x1080", CRF: 23, CRFMax: 25}, run, zap.NewNop())

	video := filepath.Join(dir, "20240315.mp4")
	require.NoError(t, enc.Encode(context.Background(), dir, video))

	require.Equal(t, "avconv", run.name)
	require.Equal(t, []string{
		"-y",
		"-framerate", "12",
		"-f", "image2",
		"-i", filepath.Join(dir, "%06d.jpg"),
		"-c:v", "h264",
		"-s", "1920x1080",
		"-crf", "23",
		"-crf_max", "25",
		video,
	}, run.args)
}

func TestEncodeCapturesLogsAndMarksAttempt(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.False(t, AlreadyEncoded(dir))

	enc := NewWithRunner(Config{}, &fakeRunner{}, zap.NewNop())
	require.NoError(t, enc.Encode(context.Background(), dir, filepath.Join(dir, "out.mp4")))

	require.True(t, AlreadyEncoded(dir))
	data, err := os.ReadFile(StdoutLog(dir))
	require.NoError(t, err)
	require.Contains(t, string(data), "encoder output")
}

func TestEncodeFailureStillMarksAttempt(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	enc := NewWithRunner(Config{}, &fakeRunner{err: errors.New("exit status 1")}, zap.NewNop())

	err := enc.Encode(context.Background(), dir, filepath.Join(dir, "out.mp4"))
	require.Error(t, err)
	require.True(t, AlreadyEncoded(dir))
}

func TestNewAppliesDefaults(t *testing.T) {
	t.Parallel()

	enc := New(Config{}, zap.NewNop())
	require.Equal(t, "avconv", enc.cfg.Binary)
	require.Equal(t, 12, enc.cfg.FrameRate)
	require.Equal(t, "1920x1080", enc.cfg.Size)
}
