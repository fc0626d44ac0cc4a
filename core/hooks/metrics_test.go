package hooks

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AvaProtocol/ap-atlas/core/backend"
	"github.com/AvaProtocol/ap-atlas/core/testutil"
	"github.com/AvaProtocol/ap-atlas/metrics"
)

type recordingMetrics struct {
	*metrics.NoopMetrics
	observed map[string]time.Duration
	errors   []string
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{NoopMetrics: metrics.NewNoopMetrics(), observed: map[string]time.Duration{}}
}

func (m *recordingMetrics) ObserveHook(op, phase string, elapsed time.Duration) {
	m.observed[op+"/"+phase] = elapsed
}

func (m *recordingMetrics) IncHookError(op, phase string) {
	m.errors = append(m.errors, op+"/"+phase)
}

// slowHook advances the fake clock inside the measured span.
type slowHook struct {
	NoopHook
	clock clockwork.FakeClock
}

func (h *slowHook) PreGetSolverOperations(_ context.Context, _ *Extensions, args GetSolverOperationsArgs) (GetSolverOperationsArgs, error) {
	h.clock.Advance(250 * time.Millisecond)
	return args, nil
}

func TestMetricsHookObservesRoundtrip(t *testing.T) {
	clock := clockwork.NewFakeClock()
	m := newRecordingMetrics()
	p := NewPipeline(&fakeBackend{}, NewMetricsHook(m, clock), &slowHook{clock: clock})

	_, err := p.GetSolverOperations(context.Background(), big.NewInt(1), "id", false)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, m.observed[OpGetSolverOperations+"/"+PhaseRoundtrip])
}

func TestPipelineCountsHookErrors(t *testing.T) {
	var trace []string
	m := newRecordingMetrics()
	p := NewPipeline(&fakeBackend{}, &tracingHook{name: "a", trace: &trace, fail: "post"}).WithMetrics(m)

	_, err := p.SubmitUserOperation(context.Background(), big.NewInt(1), testutil.UserOperation(t), nil)
	require.Error(t, err)
	assert.Equal(t, []string{OpSubmitUserOperation + "/" + PhasePost}, m.errors)
}

var (
	_ Hook = (*LoggingHook)(nil)
	_ Hook = (*MetricsHook)(nil)
	_ Hook = (*ScoringHook)(nil)
	_ Hook = (*SimulationHook)(nil)

	_ backend.Backend = (*fakeBackend)(nil)
)
