// Package encoder invokes the external video encoder over a night of frames.
package encoder

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"
)

// The encoder's stdout/stderr are captured next to the frames. The stdout
// log doubles as the marker that an encode was already attempted, so a
// restarted loop does not re-encode the same night.
const (
	stdoutLogName = "encode_stdout.txt"
	stderrLogName = "encode_stderr.txt"
)

// StdoutLog returns the path of the encode log inside a night directory.
func StdoutLog(nightDir string) string {
	return filepath.Join(nightDir, stdoutLogName)
}

// AlreadyEncoded reports whether an encode was already attempted for the
// night directory.
func AlreadyEncoded(nightDir string) bool {
	_, err := os.Stat(StdoutLog(nightDir))
	return err == nil
}

// Config controls the external encoder invocation.
type Config struct {
	Binary    string
	FrameRate int
	Size      string
	CRF       int
	CRFMax    int
}

// Runner executes one external command. Indirection for tests.
type Runner interface {
	Run(ctx context.Context, name string, args []string, stdout, stderr io.Writer) error
}

// ExecRunner runs commands via os/exec.
type ExecRunner struct{}

// Run executes the command and waits for it.
func (ExecRunner) Run(ctx context.Context, name string, args []string, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("run %s: %w", name, err)
	}
	return nil
}

// Avconv drives an avconv/ffmpeg-compatible encoder as a black-box
// subprocess: frames in as an image2 sequence, one h264 video out.
type Avconv struct {
	cfg    Config
	run    Runner
	logger *zap.Logger
}

// New builds an Avconv encoder backed by os/exec.
func New(cfg Config, logger *zap.Logger) *Avconv {
	return NewWithRunner(cfg, ExecRunner{}, logger)
}

// NewWithRunner builds an Avconv encoder with a custom Runner.
func NewWithRunner(cfg Config, run Runner, logger *zap.Logger) *Avconv {
	if cfg.Binary == "" {
		cfg.Binary = "avconv"
	}
	if cfg.FrameRate <= 0 {
		cfg.FrameRate = 12
	}
	if cfg.Size == "" {
		cfg.Size = "1920x1080"
	}
	if cfg.CRF <= 0 {
		cfg.CRF = 23
	}
	if cfg.CRFMax <= 0 {
		cfg.CRFMax = 25
	}
	return &Avconv{cfg: cfg, run: run, logger: logger}
}

// Encode converts the %06d.jpg sequence in nightDir into videoPath. The
// encoder's stdout and stderr land next to the frames; creating the stdout
// log marks the night as attempted even when the encoder fails.
func (a *Avconv) Encode(ctx context.Context, nightDir, videoPath string) error {
	stdout, err := os.Create(StdoutLog(nightDir))
	if err != nil {
		return fmt.Errorf("create encode stdout log: %w", err)
	}
	defer stdout.Close()

	stderr, err := os.Create(filepath.Join(nightDir, stderrLogName))
	if err != nil {
		return fmt.Errorf("create encode stderr log: %w", err)
	}
	defer stderr.Close()

	args := []string{
		"-y",
		"-framerate", strconv.Itoa(a.cfg.FrameRate),
		"-f", "image2",
		"-i", filepath.Join(nightDir, "%06d.jpg"),
		"-c:v", "h264",
		"-s", a.cfg.Size,
		"-crf", strconv.Itoa(a.cfg.CRF),
		"-crf_max", strconv.Itoa(a.cfg.CRFMax),
		videoPath,
	}

	a.logger.Info("encoding night video",
		zap.String("night_dir", nightDir),
		zap.String("video", videoPath),
		zap.String("binary", a.cfg.Binary),
	)

	if err := a.run.Run(ctx, a.cfg.Binary, args, stdout, stderr); err != nil {
		return fmt.Errorf("encode %s: %w", nightDir, err)
	}
	return nil
}
