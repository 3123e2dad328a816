/*
PURPOSE:
  Plays an estimate back in simulated time: a prefill pause of TTFT, then
  tokens streamed at the decode rate, so users can feel the latency.

REQUIREMENTS:
  User-specified:
  - States idle -> prefill -> streaming -> done.
  - Stop and Reset are always safe and cancel every pending timer.
  - Emitted tokens follow elapsed*decodeTps, so playback is as fast as the
    estimate says (scaled by an optional speed factor).

  Implementation-discovered:
  - Time comes from an injected k8s.io/utils clock so tests drive it with a
    fake clock instead of sleeping.
  - Stop/Reset wait for the run goroutine, so no update of a cancelled run
    arrives after they return.

ARCHITECTURE INTEGRATION:
  - Called by: internal/cli (play, compare --play)
  - Fed by: internal/estimator output (ParamsFrom)

ERROR HANDLING:
  - Start returns ErrNotRunnable for estimates that cannot stream
    (infeasible, zero decode, no output tokens).

IMPLEMENTATION RULES:
  - One goroutine per run. State is guarded by mu; control operations
    (Start/Stop/Reset) are serialized by ctl.
  - Observers run on the run goroutine and must not call Stop or Reset.

USAGE:
  sim := playback.New(playback.WithTick(60 * time.Millisecond))
  sim.Subscribe(func(u playback.Update) { ... })
  err := sim.Start(ctx, playback.ParamsFrom(out, in.OutputTokens))
  sim.Wait(ctx)

RELATED FILES:
  - internal/playback/words.go
  - internal/cli/play.go
*/

package playback

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"k8s.io/utils/clock"

	"github.com/Imtiaj-Sajin/ai-gpu-simulator/internal/model"
)

// DefaultTick is the streaming update interval.
const DefaultTick = 60 * time.Millisecond

// ErrNotRunnable is returned by Start for parameters that cannot stream.
var ErrNotRunnable = errors.New("estimate is not runnable")

// State is the playback state.
type State string

const (
	StateIdle      State = "idle"
	StatePrefill   State = "prefill"
	StateStreaming State = "streaming"
	StateDone      State = "done"
)

// Params are the estimate figures a run plays back.
type Params struct {
	DecodeTps    float64
	TTFTSeconds  float64
	OutputTokens int
}

// ParamsFrom extracts playback parameters from an estimate.
func ParamsFrom(out model.EstimateOutput, outputTokens int) Params {
	return Params{
		DecodeTps:    out.DecodeTps,
		TTFTSeconds:  out.TTFTSeconds,
		OutputTokens: outputTokens,
	}
}

func (p Params) validate() error {
	switch {
	case p.DecodeTps <= 0 || math.IsNaN(p.DecodeTps) || math.IsInf(p.DecodeTps, 0):
		return fmt.Errorf("%w: decode rate %v", ErrNotRunnable, p.DecodeTps)
	case math.IsNaN(p.TTFTSeconds) || math.IsInf(p.TTFTSeconds, 0):
		return fmt.Errorf("%w: time to first token %v", ErrNotRunnable, p.TTFTSeconds)
	case p.OutputTokens < 1:
		return fmt.Errorf("%w: %d output tokens", ErrNotRunnable, p.OutputTokens)
	}
	return nil
}

// Update is delivered to observers on every state change and every tick
// that emits tokens.
type Update struct {
	RunID   uint64
	State   State
	Emitted int
	Delta   int
	Total   int
}

// Status is a snapshot of the simulator.
type Status struct {
	RunID   uint64
	State   State
	Emitted int
	Total   int
}

// Progress is the emitted fraction in [0, 1].
func (s Status) Progress() float64 {
	if s.Total <= 0 {
		return 0
	}
	return float64(s.Emitted) / float64(s.Total)
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithClock sets the time source. Tests pass a fake clock.
func WithClock(c clock.WithTicker) Option {
	return func(s *Simulator) { s.clock = c }
}

// WithTick sets the streaming update interval. Non-positive values are ignored.
func WithTick(d time.Duration) Option {
	return func(s *Simulator) {
		if d > 0 {
			s.tick = d
		}
	}
}

// WithSpeed plays back faster (>1) or slower (<1) than the estimate.
// Non-positive values are ignored.
func WithSpeed(f float64) Option {
	return func(s *Simulator) {
		if f > 0 && !math.IsInf(f, 0) {
			s.speed = f
		}
	}
}

// Simulator is the playback state machine. The zero value is not usable;
// use New.
type Simulator struct {
	clock clock.WithTicker
	tick  time.Duration
	speed float64

	ctl sync.Mutex

	mu        sync.Mutex
	runID     uint64
	state     State
	emitted   int
	total     int
	observers []func(Update)
	stop      chan struct{}
	done      chan struct{}
}

// New creates an idle simulator.
func New(opts ...Option) *Simulator {
	s := &Simulator{
		clock: clock.RealClock{},
		tick:  DefaultTick,
		speed: 1.0,
		state: StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers fn for every subsequent update.
func (s *Simulator) Subscribe(fn func(Update)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// Status returns the current state and counters.
func (s *Simulator) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{RunID: s.runID, State: s.state, Emitted: s.emitted, Total: s.total}
}

// Start begins a new run, cancelling any run in progress. Cancelling ctx
// stops the run as Stop would.
func (s *Simulator) Start(ctx context.Context, p Params) error {
	if err := p.validate(); err != nil {
		return err
	}

	s.ctl.Lock()
	defer s.ctl.Unlock()
	s.halt(StateDone)

	s.mu.Lock()
	s.runID++
	id := s.runID
	s.state = StatePrefill
	s.emitted = 0
	s.total = p.OutputTokens
	stop, done := make(chan struct{}), make(chan struct{})
	s.stop, s.done = stop, done
	s.mu.Unlock()

	go s.run(ctx, id, p, stop, done)
	return nil
}

// Stop ends the current run. An idle simulator stays idle; anything else
// becomes done with its counters kept.
func (s *Simulator) Stop() {
	s.ctl.Lock()
	defer s.ctl.Unlock()
	s.halt(StateDone)
}

// Reset ends the current run and returns to idle with counters zeroed.
func (s *Simulator) Reset() {
	s.ctl.Lock()
	defer s.ctl.Unlock()
	s.halt(StateIdle)
}

// Wait blocks until the current run's goroutine exits or ctx is done.
func (s *Simulator) Wait(ctx context.Context) error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// halt moves to the target state, signals the run goroutine and waits for
// it. Callers hold ctl.
func (s *Simulator) halt(target State) {
	s.mu.Lock()
	switch target {
	case StateIdle:
		s.state = StateIdle
		s.emitted = 0
		s.total = 0
	default:
		if s.state != StateIdle {
			s.state = StateDone
		}
	}
	stop, done := s.stop, s.done
	s.stop = nil
	s.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	if done != nil {
		<-done
	}
}

func (s *Simulator) run(ctx context.Context, id uint64, p Params, stop, done chan struct{}) {
	defer close(done)

	if s.publish(id, stop, 0) {
		s.final(id)
		return
	}

	if delay := time.Duration(p.TTFTSeconds / s.speed * float64(time.Second)); delay > 0 {
		timer := s.clock.NewTimer(delay)
		select {
		case <-timer.C():
		case <-stop:
			timer.Stop()
			s.final(id)
			return
		case <-ctx.Done():
			timer.Stop()
			s.cancel(id)
			return
		}
	}

	ticker := s.clock.NewTicker(s.tick)
	defer ticker.Stop()
	start := s.clock.Now()
	if !s.transition(id, stop, StateStreaming) {
		s.final(id)
		return
	}

	for {
		select {
		case <-ticker.C():
			elapsed := s.clock.Since(start).Seconds()
			target := min(p.OutputTokens, int(math.Floor(elapsed*s.speed*p.DecodeTps)))
			if target == 0 {
				continue
			}
			if over := s.publish(id, stop, target); over {
				select {
				case <-stop:
					s.final(id)
				default:
				}
				return
			}
		case <-stop:
			s.final(id)
			return
		case <-ctx.Done():
			s.cancel(id)
			return
		}
	}
}

// current reports whether id is the live, unstopped run. Callers hold mu.
func (s *Simulator) current(id uint64, stop chan struct{}) bool {
	if s.runID != id {
		return false
	}
	select {
	case <-stop:
		return false
	default:
		return true
	}
}

func (s *Simulator) transition(id uint64, stop chan struct{}, to State) bool {
	s.mu.Lock()
	if !s.current(id, stop) {
		s.mu.Unlock()
		return false
	}
	s.state = to
	u := Update{RunID: id, State: to, Emitted: s.emitted, Total: s.total}
	obs := s.observers
	s.mu.Unlock()

	notify(obs, u)
	return true
}

// publish raises the emitted count to target and notifies observers. With
// target 0 it announces the current state. It reports whether the run is
// over, either finished or no longer current.
func (s *Simulator) publish(id uint64, stop chan struct{}, target int) bool {
	s.mu.Lock()
	if !s.current(id, stop) {
		s.mu.Unlock()
		return true
	}
	delta := target - s.emitted
	if target > 0 && delta <= 0 {
		s.mu.Unlock()
		return false
	}
	delta = max(delta, 0)
	s.emitted += delta
	finished := s.total > 0 && s.emitted >= s.total
	if finished {
		s.state = StateDone
	}
	u := Update{RunID: id, State: s.state, Emitted: s.emitted, Delta: delta, Total: s.total}
	obs := s.observers
	s.mu.Unlock()

	notify(obs, u)
	return finished
}

// final announces the state Stop or Reset left behind.
func (s *Simulator) final(id uint64) {
	s.mu.Lock()
	if s.runID != id {
		s.mu.Unlock()
		return
	}
	u := Update{RunID: id, State: s.state, Emitted: s.emitted, Total: s.total}
	obs := s.observers
	s.mu.Unlock()

	notify(obs, u)
}

// cancel handles context cancellation like Stop.
func (s *Simulator) cancel(id uint64) {
	s.mu.Lock()
	if s.runID != id || s.state == StateIdle || s.state == StateDone {
		s.mu.Unlock()
		return
	}
	s.state = StateDone
	s.mu.Unlock()
	s.final(id)
}

func notify(obs []func(Update), u Update) {
	for _, fn := range obs {
		fn(u)
	}
}
