package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInitIsIdempotent(t *testing.T) {
	Init()
	require.NotPanics(t, Init)

	// Collectors must be usable after repeated Init.
	ObserveFetch("http://www.magic.iac.es/site/weather/can.jpg", true, 200*time.Millisecond)
	ObserveFetch("not a url", false, time.Second)
	IncFrameWritten()
	ObserveCycle(3 * time.Second)
	ObserveEncode("ok")
	IncNightFinalized()
}

func TestSanitizeSource(t *testing.T) {
	t.Parallel()

	require.Equal(t, "www.magic.iac.es", SanitizeSource("http://www.MAGIC.iac.es/site/weather/can.jpg"))
	require.Equal(t, "fact-project.org", SanitizeSource("fact-project.org/cam/skycam.php"))
	require.Equal(t, "unknown", SanitizeSource("://bad"))
}
