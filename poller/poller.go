package poller

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/vinayakas1997/finsbridge/fins"
	"github.com/vinayakas1997/finsbridge/sinks"
)

// failureThreshold mirrors original_source/main.py's THRESHOLD: once the
// cumulative count of individual failed reads exceeds this, the Poller
// terminates immediately, mid-cycle if necessary.
const failureThreshold = 3

// ControlMessage is sent on a Poller's control channel when it stops itself,
// the Go analogue of original_source's signal-based shutdown path.
type ControlMessage struct {
	PLCName string
	Err     error
}

// Poller drives one PLC's read/publish cycle forever, the per-PLC unit
// original_source/main.py runs as a PLCThread.
type Poller struct {
	name          string
	engine        *fins.Engine
	client        *fins.Client
	plan          ReadPlan
	sampleSink    sinks.SampleSink
	publishSink   sinks.PublishSink
	csvEnabled    bool
	sleepInterval time.Duration
	logger        *log.Logger
	errLogger     *ErrorLogger
	control       chan<- ControlMessage

	failedReads int // cumulative, never reset; original_source's failed_to_read
}

// NewPoller builds a Poller. sleepInterval defaults to 10ms if zero or
// negative, matching spec.md §6's default sleep_interval_ms. csvEnabled
// mirrors original_source's --csv flag: when false, the CSV sink is only
// written as a fallback while publishSink is unhealthy, matching
// PLCThread's "self.csv_enabled or not self.opcua_connected" write gate.
func NewPoller(
	name string,
	engine *fins.Engine,
	client *fins.Client,
	plan ReadPlan,
	sampleSink sinks.SampleSink,
	publishSink sinks.PublishSink,
	csvEnabled bool,
	sleepInterval time.Duration,
	logger *log.Logger,
	control chan<- ControlMessage,
) *Poller {
	if sleepInterval <= 0 {
		sleepInterval = 10 * time.Millisecond
	}
	return &Poller{
		name:          name,
		engine:        engine,
		client:        client,
		plan:          plan,
		sampleSink:    sampleSink,
		publishSink:   publishSink,
		csvEnabled:    csvEnabled,
		sleepInterval: sleepInterval,
		logger:        logger,
		errLogger:     NewErrorLogger(logger, 30*time.Second),
		control:       control,
	}
}

// Run executes cycles until ctx is cancelled or the cumulative failed-read
// count crosses failureThreshold. It returns nil on a clean ctx cancellation
// and *fins.TooManyErrorsError on self-termination. Only self-termination
// also notifies p.control, so a supervising cmd/finsbridge loop can react
// without polling Run's return value; a ctx cancellation sends nothing.
func (p *Poller) Run(ctx context.Context) error {
	var pending <-chan struct{}

	for {
		select {
		case <-ctx.Done():
			p.waitDispatch(pending)
			return nil
		default:
		}

		sample, terminate := p.runCycle(ctx)
		if terminate {
			// Mirrors PLCThread._perform_plc_update_cycle: the cycle that
			// crosses the threshold returns early, skipping Pass 2 (CSV/
			// publish) for that cycle entirely.
			p.waitDispatch(pending)
			err := &fins.TooManyErrorsError{PLCName: p.name, FailureCount: p.failedReads}
			p.notifyControl(err)
			return err
		}

		p.waitDispatch(pending)
		pending = p.dispatch(ctx, sample)

		select {
		case <-ctx.Done():
			p.waitDispatch(pending)
			return nil
		case <-time.After(p.sleepInterval):
		}
	}
}

// runCycle performs one full read pass over the plan (multi-read groups
// first, then individual reads), matching PLCThread's Pass 1. Each failed
// read increments the cumulative failedReads counter; if it exceeds
// failureThreshold mid-pass, runCycle aborts immediately and reports
// terminate=true, matching original_source's early `return` out of the
// update-cycle method. Otherwise it returns the assembled Sample in
// original mapping order, with HEARTBEAT filled in from whether any read
// succeeded this cycle.
func (p *Poller) runCycle(_ context.Context) (sinks.Sample, bool) {
	values := make(map[string]any, len(p.plan.AllTags))
	cycleOK := false

	// recordFailure logs addr's failure and bumps the cumulative counter; it
	// reports whether the Poller must terminate now.
	recordFailure := func(addr, msg string) bool {
		p.failedReads++
		p.errLogger.LogError(fmt.Sprintf("plc %s: missed reading %d, error reading address %s: %s", p.name, p.failedReads, addr, msg))
		return p.failedReads > failureThreshold
	}

	for _, group := range p.plan.MultiReadGroups {
		reqs := make([]fins.MultipleReadRequest, len(group))
		for i, e := range group {
			reqs[i] = fins.MultipleReadRequest{Address: e.Address, DataType: e.DataType}
		}
		res := p.engine.MultipleRead(reqs)
		if res.Status == fins.StatusSuccess {
			for i, e := range group {
				values[e.Tag] = res.Items[i]
				if res.Items[i] != nil {
					cycleOK = true
					continue
				}
				if recordFailure(e.Address, "multi-read item decode failed") {
					return p.assembleSample(values, cycleOK), true
				}
			}
			continue
		}

		p.errLogger.LogError(fmt.Sprintf("plc %s: multi-read group failed (%s), falling back to individual reads", p.name, res.Message))
		for _, e := range group {
			v, ok, msg := p.readOne(e)
			values[e.Tag] = v
			if ok {
				cycleOK = true
				continue
			}
			if recordFailure(e.Address, msg) {
				return p.assembleSample(values, cycleOK), true
			}
		}
	}

	for _, e := range p.plan.IndividualReads {
		v, ok, msg := p.readOne(e)
		values[e.Tag] = v
		if ok {
			cycleOK = true
			continue
		}
		if recordFailure(e.Address, msg) {
			return p.assembleSample(values, cycleOK), true
		}
	}

	return p.assembleSample(values, cycleOK), false
}

func (p *Poller) assembleSample(values map[string]any, cycleOK bool) sinks.Sample {
	tags := p.plan.AllTags
	out := make([]any, len(tags))
	for i, tag := range tags {
		if tag == p.plan.HeartbeatTag && p.plan.HeartbeatTag != "" {
			out[i] = cycleOK
			continue
		}
		out[i] = values[tag]
	}
	return sinks.Sample{Timestamp: p.now(), Tags: tags, Values: out}
}

func (p *Poller) readOne(e PlanEntry) (any, bool, string) {
	r := p.engine.Read(e.Address, e.DataType)
	if r.Status != fins.StatusSuccess {
		return nil, false, r.Message
	}
	return r.Value, true, ""
}

// now is a seam so tests could substitute a fixed clock; production always
// uses wall time.
func (p *Poller) now() time.Time { return time.Now() }

// dispatch hands sample to the sample and publish sinks on its own
// goroutine, returning a channel that closes when both are done. Run keeps
// at most one dispatch in flight at a time (pipeline depth one): the next
// cycle's reads proceed immediately, but a new dispatch waits for the
// previous one to finish before starting, matching PLCThread's Pass 2
// running after Pass 1 but the OPC UA push overlapping the next poll.
func (p *Poller) dispatch(ctx context.Context, sample sinks.Sample) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		publishHealthy := p.publishSink.Healthy()
		if publishHealthy {
			for i, tag := range sample.Tags {
				if err := p.publishSink.Publish(ctx, tag, sample.Values[i]); err != nil {
					p.errLogger.LogError(fmt.Sprintf("plc %s: publish %s failed: %s", p.name, tag, err))
				}
			}
		} else {
			p.errLogger.LogError(fmt.Sprintf("plc %s: publish sink unhealthy, CSV-only this cycle", p.name))
		}

		// Matches PLCThread's `if self.csv_enabled or not self.opcua_connected`
		// write gate: CSV is written every cycle only when explicitly
		// enabled, otherwise only as a fallback while the publish sink is
		// down.
		if !p.csvEnabled && publishHealthy {
			return
		}
		if err := p.sampleSink.WriteRow(ctx, sample); err != nil {
			p.errLogger.LogError(fmt.Sprintf("plc %s: csv write failed: %s", p.name, err))
		}
	}()
	return done
}

func (p *Poller) waitDispatch(pending <-chan struct{}) {
	if pending == nil {
		return
	}
	<-pending
}

func (p *Poller) notifyControl(err error) {
	if p.control == nil {
		return
	}
	select {
	case p.control <- ControlMessage{PLCName: p.name, Err: err}:
	default:
	}
}
