package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	e "nuclight.org/drive-preview-bot/pkg/entities"
)

func TestCounters(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveOutcome(e.StateSuppressed)
	m.ObserveOutcome(e.StateSuppressed)
	m.ObserveOutcome(e.StateGaveUp)
	m.ObserveMetadataError("not_found")
	m.ObserveDeleted()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.outcomes.WithLabelValues("suppressed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.outcomes.WithLabelValues("gave_up")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.metadataErrors.WithLabelValues("not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.deleted))
}

func TestHandlerExposesMetrics(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveOutcome(e.StateMessageGone)
	m.ObserveHandle("message_create", 1500*time.Millisecond)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	res, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer func() { _ = res.Body.Close() }()

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `drive_preview_outcomes_total{state="message_gone"} 1`)
	assert.Contains(t, string(body), `drive_preview_handle_seconds_count{event="message_create"} 1`)
}
