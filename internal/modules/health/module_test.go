package health

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana_sniper/internal/metrics"
	"solana_sniper/internal/modules/health/service"
)

type fakePipeline struct {
	ready bool
	scan  time.Time
}

func (f *fakePipeline) Ready() bool          { return f.ready }
func (f *fakePipeline) LastScan() time.Time  { return f.scan }
func (f *fakePipeline) LastSweep() time.Time { return time.Time{} }
func (f *fakePipeline) OpenPositions() int   { return 2 }
func (f *fakePipeline) StateName() string    { return "scanning" }

type fakeStream bool

func (f fakeStream) Connected() bool { return bool(f) }

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestMux(t *testing.T) {
	p := &fakePipeline{}
	mux := NewMux(service.NewState(p, fakeStream(true)), metrics.New())

	assert.Equal(t, http.StatusOK, get(t, mux, "/livez").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, mux, "/readyz").Code)

	p.ready = true
	p.scan = time.Unix(1714564800, 0)
	assert.Equal(t, http.StatusOK, get(t, mux, "/readyz").Code)

	rec := get(t, mux, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var snap service.Snapshot
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &snap))
	assert.True(t, snap.Ready)
	assert.Equal(t, "scanning", snap.State)
	assert.Equal(t, int64(1714564800), snap.LastScanUnix)
	assert.Zero(t, snap.LastSweepUnix)
	assert.Equal(t, 2, snap.OpenPositions)
	require.NotNil(t, snap.StreamConnected)
	assert.True(t, *snap.StreamConnected)

	assert.Equal(t, http.StatusOK, get(t, mux, "/metrics").Code)
}

func TestSnapshot_WithoutStream(t *testing.T) {
	snap := service.NewState(&fakePipeline{}, nil).Snapshot()
	assert.Nil(t, snap.StreamConnected)
	assert.False(t, snap.Ready)
}

func TestMux_WithoutMetrics(t *testing.T) {
	mux := NewMux(service.NewState(&fakePipeline{ready: true}, nil), nil)
	assert.Equal(t, http.StatusNotFound, get(t, mux, "/metrics").Code)
}
