// Package night implements the observing-night partition and the nightly
// capture loop.
package night

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// KeyFor maps a capture instant to its observing night. Shifting by the
// rollover offset keeps a night that crosses midnight in one partition,
// keyed by the night's start date.
func KeyFor(now time.Time, rollover time.Duration) time.Time {
	return now.UTC().Add(-rollover)
}

// DirFor returns the year/month/night directory for a night key.
func DirFor(root string, key time.Time) string {
	return filepath.Join(root, key.Format("2006"), key.Format("01"), key.Format("02"))
}

// VideoName returns the video artifact name for a night key.
func VideoName(key time.Time) string {
	return key.Format("20060102") + ".mp4"
}

// FramePath returns the sequence-numbered frame path inside a night
// directory. The encoder consumes the frames by this naming pattern.
func FramePath(nightDir string, index int) string {
	return filepath.Join(nightDir, fmt.Sprintf("%06d.jpg", index))
}

// NextFrameIndex scans the night directory for sequence-numbered frames and
// returns the next free index, so an interrupted loop resumes the sequence
// instead of overwriting it.
func NextFrameIndex(nightDir string) int {
	matches, err := filepath.Glob(filepath.Join(nightDir, "*.jpg"))
	if err != nil {
		return 0
	}
	next := 0
	for _, m := range matches {
		base := strings.TrimSuffix(filepath.Base(m), ".jpg")
		idx, err := strconv.Atoi(base)
		if err != nil {
			continue
		}
		if idx+1 > next {
			next = idx + 1
		}
	}
	return next
}

// CountFrames returns the number of sequence-numbered frames in a night
// directory.
func CountFrames(nightDir string) int {
	matches, err := filepath.Glob(filepath.Join(nightDir, "*.jpg"))
	if err != nil {
		return 0
	}
	count := 0
	for _, m := range matches {
		base := strings.TrimSuffix(filepath.Base(m), ".jpg")
		if _, err := strconv.Atoi(base); err == nil {
			count++
		}
	}
	return count
}

// Window decides when the capture window is open and when a finished night
// should be finalized. It abstracts the night-boundary source so an
// ephemeris can replace the fixed-clock default.
type Window interface {
	CaptureOpen(t time.Time) bool
	FinalizeDue(t time.Time) bool
}

// FixedHours is a Window over fixed UTC hours: capture between StartHour and
// EndHour (wrapping midnight when StartHour > EndHour), finalize in the
// morning before FinalizeBeforeHour.
type FixedHours struct {
	StartHour          int
	EndHour            int
	FinalizeBeforeHour int
}

// CaptureOpen reports whether t falls inside the capture window.
func (w FixedHours) CaptureOpen(t time.Time) bool {
	h := t.UTC().Hour()
	if w.StartHour <= w.EndHour {
		return h >= w.StartHour && h < w.EndHour
	}
	return h >= w.StartHour || h < w.EndHour
}

// FinalizeDue reports whether t falls inside the morning encode window.
func (w FixedHours) FinalizeDue(t time.Time) bool {
	return t.UTC().Hour() < w.FinalizeBeforeHour
}
