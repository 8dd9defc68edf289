package night

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestKeyForSpansMidnight(t *testing.T) {
	t.Parallel()

	rollover := 12 * time.Hour

	evening := time.Date(2024, 3, 15, 22, 0, 0, 0, time.UTC)
	morning := time.Date(2024, 3, 16, 5, 30, 0, 0, time.UTC)

	// Both instants belong to the night keyed by its start date.
	require.Equal(t, "2024-03-15", KeyFor(evening, rollover).Format("2006-01-02"))
	require.Equal(t, "2024-03-15", KeyFor(morning, rollover).Format("2006-01-02"))

	// A new night starts at the rollover hour.
	noon := time.Date(2024, 3, 16, 12, 0, 0, 0, time.UTC)
	require.Equal(t, "2024-03-16", KeyFor(noon, rollover).Format("2006-01-02"))
}

func TestDirForPartitionsByYearMonthNight(t *testing.T) {
	t.Parallel()

	key := time.Date(2024, 3, 15, 14, 0, 0, 0, time.UTC)
	require.Equal(t, filepath.Join("work", "2024", "03", "15"), DirFor("work", key))
	require.Equal(t, "20240315.mp4", VideoName(key))
}

func TestNextFrameIndexResumesSequence(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.Equal(t, 0, NextFrameIndex(dir))

	for _, name := range []string{"000000.jpg", "000007.jpg", "notes.txt", "la_palma_cam.jpg"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600))
	}

	require.Equal(t, 8, NextFrameIndex(dir))
	require.Equal(t, 2, CountFrames(dir))
	require.Equal(t, filepath.Join(dir, "000008.jpg"), FramePath(dir, 8))
}

func TestFixedHoursWrapsMidnight(t *testing.T) {
	t.Parallel()

	w := FixedHours{StartHour: 17, EndHour: 7, FinalizeBeforeHour: 12}

	at := func(h int) time.Time {
		return time.Date(2024, 3, 15, h, 30, 0, 0, time.UTC)
	}

	for _, h := range []int{17, 20, 23, 0, 3, 6} {
		require.True(t, w.CaptureOpen(at(h)), "hour %d should be open", h)
	}
	for _, h := range []int{7, 10, 12, 16} {
		require.False(t, w.CaptureOpen(at(h)), "hour %d should be closed", h)
	}

	require.True(t, w.FinalizeDue(at(8)))
	require.False(t, w.FinalizeDue(at(13)))
}

func TestFixedHoursDaytimeWindow(t *testing.T) {
	t.Parallel()

	w := FixedHours{StartHour: 9, EndHour: 17}
	require.True(t, w.CaptureOpen(time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)))
	require.False(t, w.CaptureOpen(time.Date(2024, 3, 15, 18, 0, 0, 0, time.UTC)))
}
