package poller

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinayakas1997/finsbridge/config"
	"github.com/vinayakas1997/finsbridge/fins"
	"github.com/vinayakas1997/finsbridge/simulator"
	"github.com/vinayakas1997/finsbridge/sinks"
)

type memSampleSink struct {
	rows []sinks.Sample
}

func (m *memSampleSink) WriteRow(_ context.Context, row sinks.Sample) error {
	m.rows = append(m.rows, row)
	return nil
}
func (m *memSampleSink) Close() error { return nil }

func newPollerHarness(t *testing.T) (*fins.Engine, *fins.Client, *simulator.Server) {
	t.Helper()
	sim, err := simulator.New("127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(sim.Close)

	udpAddr := sim.Addr()
	plcAddr, err := fins.NewAddress(udpAddr.IP.String(), udpAddr.Port, 0, 10, 0)
	require.NoError(t, err)
	localAddr, err := fins.NewAddress("0.0.0.0", 9601, 0, 2, 0)
	require.NoError(t, err)

	c, err := fins.NewClient(localAddr, plcAddr, 2*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	return fins.NewEngine(c), c, sim
}

func TestPoller_OneCycleAssemblesSampleInMappingOrder(t *testing.T) {
	engine, _, sim := newPollerHarness(t)
	sim.SeedWords(0x82, 100, []uint16{1234})

	plan, warnings := BuildReadPlan([]config.AddressMapping{
		{PLCRegAdd: "D100", OPCUARegAdd: "Temperature", DataType: "INT16"},
		{PLCRegAdd: "HEARTBEAT", OPCUARegAdd: "Heartbeat", DataType: "BOOL"},
	})
	require.Empty(t, warnings)

	sampleSink := &memSampleSink{}
	publishSink := sinks.NewLogPublisher(log.New(os.Stderr, "test: ", 0))
	logger := log.New(os.Stderr, "poller-test: ", 0)

	p := NewPoller("line1", engine, nil, plan, sampleSink, publishSink, false, 5*time.Millisecond, logger, nil)

	sample, terminate := p.runCycle(context.Background())
	assert.False(t, terminate)
	require.Equal(t, []string{"Temperature", "Heartbeat"}, sample.Tags)
	assert.Equal(t, int16(1234), sample.Values[0])
	assert.Equal(t, true, sample.Values[1])
}

func TestPoller_MultiReadGroupFallsBackToIndividualOnUnseededArea(t *testing.T) {
	// No seed at all: every read fails, exercising the individual-read
	// fallback path and leaving the tag's value nil.
	engine, _, _ := newPollerHarness(t)

	plan, _ := BuildReadPlan([]config.AddressMapping{
		{PLCRegAdd: "D500", OPCUARegAdd: "Unseeded", DataType: "INT16"},
	})

	sampleSink := &memSampleSink{}
	publishSink := sinks.NewLogPublisher(log.New(os.Stderr, "test: ", 0))
	logger := log.New(os.Stderr, "poller-test: ", 0)

	p := NewPoller("line1", engine, nil, plan, sampleSink, publishSink, false, 5*time.Millisecond, logger, nil)

	// A single failed read (failedReads=1) is well under failureThreshold, so
	// the cycle completes without terminating; it just has no values.
	sample, terminate := p.runCycle(context.Background())
	assert.False(t, terminate)
	assert.Nil(t, sample.Values[0])
}

func TestPoller_RunStopsOnTooManyErrors(t *testing.T) {
	engine, _, _ := newPollerHarness(t)

	plan, _ := BuildReadPlan([]config.AddressMapping{
		{PLCRegAdd: "D999", OPCUARegAdd: "Unseeded", DataType: "INT16"},
	})

	sampleSink := &memSampleSink{}
	publishSink := sinks.NewLogPublisher(log.New(os.Stderr, "test: ", 0))
	logger := log.New(os.Stderr, "poller-test: ", 0)
	control := make(chan ControlMessage, 1)

	p := NewPoller("line1", engine, nil, plan, sampleSink, publishSink, false, time.Millisecond, logger, control)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := p.Run(ctx)
	require.Error(t, err)
	assert.IsType(t, &fins.TooManyErrorsError{}, err)

	select {
	case msg := <-control:
		assert.Equal(t, "line1", msg.PLCName)
	default:
		t.Fatal("expected a control message on self-termination")
	}
}

// TestPoller_RunStopsOnCumulativeFailuresEvenWithPartialSuccessEachCycle
// pins the original_source/main.py semantics the single-always-failing-
// mapping test above can't distinguish: failedReads is a cumulative count of
// individual failed reads that never resets, not a count of consecutive
// wholly-unsuccessful cycles. One tag fails every cycle while another always
// succeeds, so no cycle is ever fully unsuccessful — yet the Poller must
// still terminate once the failing tag's cumulative misses exceed
// failureThreshold.
func TestPoller_RunStopsOnCumulativeFailuresEvenWithPartialSuccessEachCycle(t *testing.T) {
	engine, _, sim := newPollerHarness(t)
	sim.SeedWords(0x82, 100, []uint16{42})

	plan, _ := BuildReadPlan([]config.AddressMapping{
		{PLCRegAdd: "D100", OPCUARegAdd: "Healthy", DataType: "INT16"},
		{PLCRegAdd: "W999", OPCUARegAdd: "Unseeded", DataType: "INT16"},
	})

	sampleSink := &memSampleSink{}
	publishSink := sinks.NewLogPublisher(log.New(os.Stderr, "test: ", 0))
	logger := log.New(os.Stderr, "poller-test: ", 0)
	control := make(chan ControlMessage, 1)

	p := NewPoller("line1", engine, nil, plan, sampleSink, publishSink, false, time.Millisecond, logger, control)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := p.Run(ctx)
	require.Error(t, err)
	tmErr, ok := err.(*fins.TooManyErrorsError)
	require.True(t, ok)
	assert.Equal(t, "line1", tmErr.PLCName)
	// Exactly 4 cumulative misses of the failing tag: the 4th crosses
	// failureThreshold=3 and aborts mid-cycle, matching
	// original_source/main.py's failed_to_read > threshold check.
	assert.Equal(t, failureThreshold+1, tmErr.FailureCount)
}

func TestPoller_RunStopsCleanlyOnContextCancel(t *testing.T) {
	engine, _, sim := newPollerHarness(t)
	sim.SeedWords(0x82, 100, []uint16{1})

	plan, _ := BuildReadPlan([]config.AddressMapping{
		{PLCRegAdd: "D100", OPCUARegAdd: "Temperature", DataType: "INT16"},
	})

	sampleSink := &memSampleSink{}
	publishSink := sinks.NewLogPublisher(log.New(os.Stderr, "test: ", 0))
	logger := log.New(os.Stderr, "poller-test: ", 0)

	p := NewPoller("line1", engine, nil, plan, sampleSink, publishSink, true, 5*time.Millisecond, logger, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, sampleSink.rows)
}
