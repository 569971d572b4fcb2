package exposer_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/exposer"
	"github.com/aretw0/exposer/pkg/codec"
	"github.com/aretw0/exposer/pkg/domain"
	"github.com/aretw0/exposer/pkg/field"
	"github.com/aretw0/exposer/pkg/synth"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type thermostat struct {
	Target *field.Field[float64]
	Mode   *field.Field[string]
}

type device struct {
	Count      *field.Field[int]
	Label      *field.Field[string]
	Thermostat *thermostat
}

func newDevice() *device {
	return &device{
		Count: field.New(0, field.Expose()),
		Label: field.New("lamp", field.Expose("name")),
		Thermostat: &thermostat{
			Target: field.New(21.0, field.Expose()),
			Mode:   field.New("off"),
		},
	}
}

type recorder struct {
	mu      sync.Mutex
	changes []domain.Change
}

func (r *recorder) Publish(_ context.Context, c domain.Change) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
	return nil
}

func (r *recorder) snapshot() []domain.Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Change(nil), r.changes...)
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestRegister(t *testing.T) {
	eng := exposer.New(nil)
	require.NoError(t, eng.Register("device", newDevice()))

	err := eng.Register("device", newDevice())
	assert.ErrorIs(t, err, domain.ErrModelExists)

	err = eng.Register("", newDevice())
	assert.ErrorIs(t, err, synth.ErrInvalidName)

	err = eng.Register("broken", 42)
	assert.Error(t, err)

	routes := eng.Routes()
	require.Len(t, routes, 1)
	assert.Equal(t, "device", routes[0].Prefix)
	assert.Len(t, routes[0].Fields, 3)
}

func TestHandler_SealsRegistration(t *testing.T) {
	reg := codec.Default()
	eng := exposer.New(reg)
	require.NoError(t, eng.Register("device", newDevice()))

	h := eng.Handler()
	assert.Same(t, h, eng.Handler())
	assert.True(t, reg.Frozen())

	err := eng.Register("late", newDevice())
	assert.ErrorIs(t, err, domain.ErrEngineStarted)
}

func TestHandler_CountExample(t *testing.T) {
	eng := exposer.New(nil)
	require.NoError(t, eng.Register("device", newDevice()))

	srv := httptest.NewServer(eng.Handler())
	defer srv.Close()

	for _, step := range []struct {
		target string
		status int
		want   string
	}{
		{"/device/count", http.StatusOK, "0"},
		{"/device/count?value=5", http.StatusOK, "5"},
		{"/device/count", http.StatusOK, "5"},
		{"/device/thermostat/target?value=19.5", http.StatusOK, "19.5"},
		{"/device/thermostat/mode", http.StatusNotFound, ""},
	} {
		resp, err := http.Get(srv.URL + step.target)
		require.NoError(t, err)
		got := body(t, resp)
		require.Equal(t, step.status, resp.StatusCode, step.target)
		if step.want != "" {
			assert.Equal(t, step.want, got, step.target)
		}
	}

	resp, err := http.Post(srv.URL+"/device", "application/json", strings.NewReader(`{"thermostat":{"mode":"heat"}}`))
	require.NoError(t, err)
	assert.Contains(t, body(t, resp), `"mode":"heat"`)
}

func TestChanges_FanOut(t *testing.T) {
	rec := &recorder{}
	eng := exposer.New(nil, exposer.WithPublisher(rec))
	dev := newDevice()
	require.NoError(t, eng.Register("device", dev))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes, unsubscribe, err := eng.Subscribe(ctx, "device")
	require.NoError(t, err)
	defer unsubscribe()

	dev.Count.Set(3)
	dev.Thermostat.Mode.Set("cool") // unexposed, not published

	select {
	case c := <-changes:
		assert.Equal(t, "device", c.Model)
		assert.Equal(t, "count", c.Path)
		assert.Equal(t, 3, c.Value)
		assert.Equal(t, "device/count", c.Route())
	case <-time.After(time.Second):
		t.Fatal("no change delivered")
	}

	got := rec.snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, "count", got[0].Path)

	require.NoError(t, eng.Close())
	dev.Count.Set(4)
	assert.Len(t, rec.snapshot(), 1, "closed engine stops observing")
}

func TestStart_ServesUntilContextEnds(t *testing.T) {
	eng := exposer.New(nil,
		exposer.WithAddr("127.0.0.1:0"),
		exposer.WithShutdownTimeout(time.Second),
		exposer.WithMetrics(prometheus.NewRegistry()),
	)
	require.NoError(t, eng.Register("device", newDevice()))

	ctx, cancel := context.WithCancel(context.Background())
	h, err := eng.Start(ctx)
	require.NoError(t, err)

	base := "http://" + h.Addr().String()
	resp, err := http.Get(base + "/device/name")
	require.NoError(t, err)
	assert.Equal(t, `"lamp"`, body(t, resp))

	resp, err = http.Get(base + "/metrics")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body(t, resp), "exposer_field_reads_total")

	cancel()
	done := make(chan error, 1)
	go func() { done <- h.Wait() }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestStart_StopAndListenFailure(t *testing.T) {
	eng := exposer.New(nil, exposer.WithAddr("127.0.0.1:0"))
	require.NoError(t, eng.Register("device", newDevice()))

	h, err := eng.Start(context.Background())
	require.NoError(t, err)
	require.NoError(t, h.Stop(context.Background()))
	require.NoError(t, h.Wait())

	other, err := exposer.New(nil, exposer.WithAddr("127.0.0.1:0")).Start(context.Background())
	require.NoError(t, err)
	defer other.Stop(context.Background())

	busy := exposer.New(nil, exposer.WithAddr(other.Addr().String()))
	_, err = busy.Start(context.Background())
	assert.Error(t, err)
}
