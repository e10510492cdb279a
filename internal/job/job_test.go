package job

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChecker struct {
	configured bool
	err        error
	calls      int
}

func (f *fakeChecker) Configured() bool { return f.configured }

func (f *fakeChecker) Health(context.Context) error {
	f.calls++
	return f.err
}

func newGauge() prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_panel_up"})
}

func TestPanelProbeJob_SetsGauge(t *testing.T) {
	checker := &fakeChecker{configured: true}
	j := NewPanelProbeJob(checker, nil)
	j.Gauge = newGauge()

	require.NoError(t, j.Run(context.Background()))
	assert.Equal(t, 1.0, testutil.ToFloat64(j.Gauge))

	checker.err = errors.New("boom")
	err := j.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, 0.0, testutil.ToFloat64(j.Gauge))
	assert.Equal(t, 2, checker.calls)
}

func TestPanelProbeJob_UnconfiguredIsDownWithoutError(t *testing.T) {
	checker := &fakeChecker{}
	j := NewPanelProbeJob(checker, nil)
	j.Gauge = newGauge()
	j.Gauge.Set(1)

	require.NoError(t, j.Run(context.Background()))
	assert.Equal(t, 0.0, testutil.ToFloat64(j.Gauge))
	assert.Zero(t, checker.calls)

	var nilJob *PanelProbeJob
	assert.Error(t, nilJob.Run(context.Background()))
}

type panicJob struct{}

func (panicJob) Name() string { return "panic" }
func (panicJob) Run(context.Context) error { panic("kaboom") }

func TestScheduler_RegisterAndRunNow(t *testing.T) {
	s := NewScheduler(nil)

	_, err := s.Register("", panicJob{})
	assert.Error(t, err)
	_, err = s.Register("@every 1m", nil)
	assert.Error(t, err)
	_, err = s.Register("not a spec", panicJob{})
	assert.Error(t, err)

	_, err = s.Register("@every 1m", NewPanelProbeJob(&fakeChecker{}, nil))
	require.NoError(t, err)
	assert.Equal(t, 1, s.Entries())

	err = s.RunNow(context.Background(), panicJob{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")

	s.Start()
	s.Start()
	<-s.Stop().Done()
	assert.NotNil(t, s.Stop())
}
