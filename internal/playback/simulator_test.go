package playback_test

import (
	"context"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/Imtiaj-Sajin/ai-gpu-simulator/internal/model"
	"github.com/Imtiaj-Sajin/ai-gpu-simulator/internal/playback"
)

const tick = 250 * time.Millisecond

// recorder collects updates delivered on the run goroutine.
type recorder struct {
	mu      sync.Mutex
	updates []playback.Update
}

func (r *recorder) observe(u playback.Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
}

func (r *recorder) all() []playback.Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]playback.Update(nil), r.updates...)
}

func (r *recorder) count() int {
	return len(r.all())
}

var _ = Describe("Simulator", func() {
	var (
		ctx  context.Context
		fc   *clocktesting.FakeClock
		sim  *playback.Simulator
		rec  *recorder
		opts []playback.Option
	)

	state := func() playback.State { return sim.Status().State }
	emitted := func() int { return sim.Status().Emitted }

	BeforeEach(func() {
		ctx = context.Background()
		fc = clocktesting.NewFakeClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
		opts = []playback.Option{playback.WithClock(fc), playback.WithTick(tick)}
		rec = &recorder{}
	})

	JustBeforeEach(func() {
		sim = playback.New(opts...)
		sim.Subscribe(rec.observe)
	})

	AfterEach(func() {
		sim.Reset()
	})

	It("starts idle", func() {
		Expect(sim.Status()).To(Equal(playback.Status{State: playback.StateIdle}))
		Expect(sim.Wait(ctx)).To(Succeed())
	})

	It("rejects estimates that cannot stream", func() {
		for _, p := range []playback.Params{
			{DecodeTps: 0, TTFTSeconds: 1, OutputTokens: 10},
			{DecodeTps: 10, TTFTSeconds: math.Inf(1), OutputTokens: 10},
			{DecodeTps: 10, TTFTSeconds: math.NaN(), OutputTokens: 10},
			{DecodeTps: 10, TTFTSeconds: 1, OutputTokens: 0},
		} {
			Expect(sim.Start(ctx, p)).To(MatchError(playback.ErrNotRunnable))
		}
		Expect(state()).To(Equal(playback.StateIdle))
	})

	It("rejects an infeasible estimate", func() {
		out := model.EstimateOutput{TTFTSeconds: math.Inf(1), TotalSeconds: math.Inf(1)}
		Expect(sim.Start(ctx, playback.ParamsFrom(out, 256))).To(MatchError(playback.ErrNotRunnable))
	})

	It("waits out the prefill, then streams at the decode rate", func() {
		Expect(sim.Start(ctx, playback.Params{DecodeTps: 8, TTFTSeconds: 0.5, OutputTokens: 10})).To(Succeed())
		Expect(state()).To(Equal(playback.StatePrefill))

		Eventually(fc.HasWaiters).Should(BeTrue())
		fc.Step(400 * time.Millisecond)
		Consistently(state, 50*time.Millisecond).Should(Equal(playback.StatePrefill))

		fc.Step(100 * time.Millisecond)
		Eventually(state).Should(Equal(playback.StateStreaming))
		Expect(emitted()).To(Equal(0))

		// 8 tok/s over 250ms ticks is 2 tokens a tick.
		for want := 2; want <= 10; want += 2 {
			fc.Step(tick)
			Eventually(emitted).Should(Equal(want))
		}
		Eventually(state).Should(Equal(playback.StateDone))
		Expect(sim.Wait(ctx)).To(Succeed())

		// A finished run publishes nothing more however far the clock moves.
		seen := rec.count()
		fc.Step(10 * tick)
		Consistently(rec.count, 100*time.Millisecond).Should(Equal(seen))
		Consistently(emitted, 50*time.Millisecond).Should(Equal(10))

		updates := rec.all()
		Expect(updates[0].State).To(Equal(playback.StatePrefill))
		last := updates[len(updates)-1]
		Expect(last.State).To(Equal(playback.StateDone))
		Expect(last.Emitted).To(Equal(10))
		Expect(last.Total).To(Equal(10))

		sum, prev := 0, 0
		for _, u := range updates {
			Expect(u.Emitted).To(BeNumerically(">=", prev))
			prev = u.Emitted
			sum += u.Delta
		}
		Expect(sum).To(Equal(10))
	})

	It("catches up after a long gap without overshooting", func() {
		Expect(sim.Start(ctx, playback.Params{DecodeTps: 100, TTFTSeconds: 0, OutputTokens: 50})).To(Succeed())
		Eventually(state).Should(Equal(playback.StateStreaming))

		fc.Step(time.Hour)
		Eventually(state).Should(Equal(playback.StateDone))
		Expect(emitted()).To(Equal(50))
	})

	Context("with a speed factor", func() {
		BeforeEach(func() {
			opts = append(opts, playback.WithSpeed(2))
		})

		It("shortens the prefill and doubles the rate", func() {
			Expect(sim.Start(ctx, playback.Params{DecodeTps: 8, TTFTSeconds: 1, OutputTokens: 100})).To(Succeed())
			Eventually(fc.HasWaiters).Should(BeTrue())
			fc.Step(500 * time.Millisecond)
			Eventually(state).Should(Equal(playback.StateStreaming))

			fc.Step(tick)
			Eventually(emitted).Should(Equal(4))
		})
	})

	It("stops mid-stream keeping its counters", func() {
		Expect(sim.Start(ctx, playback.Params{DecodeTps: 8, TTFTSeconds: 0, OutputTokens: 100})).To(Succeed())
		Eventually(state).Should(Equal(playback.StateStreaming))
		fc.Step(tick)
		Eventually(emitted).Should(Equal(2))

		sim.Stop()
		Expect(sim.Status()).To(Equal(playback.Status{RunID: 1, State: playback.StateDone, Emitted: 2, Total: 100}))

		seen := rec.count()
		fc.Step(10 * tick)
		Consistently(rec.count, 100*time.Millisecond).Should(Equal(seen))
		Consistently(emitted, 50*time.Millisecond).Should(Equal(2))

		sim.Stop()
		Expect(state()).To(Equal(playback.StateDone))
	})

	It("cancels the prefill timer on stop", func() {
		Expect(sim.Start(ctx, playback.Params{DecodeTps: 8, TTFTSeconds: 5, OutputTokens: 100})).To(Succeed())
		Eventually(fc.HasWaiters).Should(BeTrue())

		sim.Stop()
		Expect(state()).To(Equal(playback.StateDone))
		Expect(fc.HasWaiters()).To(BeFalse())
		Expect(rec.all()[rec.count()-1].State).To(Equal(playback.StateDone))
	})

	It("resets to idle from any state", func() {
		sim.Reset()
		Expect(state()).To(Equal(playback.StateIdle))

		Expect(sim.Start(ctx, playback.Params{DecodeTps: 8, TTFTSeconds: 0, OutputTokens: 100})).To(Succeed())
		Eventually(state).Should(Equal(playback.StateStreaming))
		fc.Step(tick)
		Eventually(emitted).Should(Equal(2))

		sim.Reset()
		Expect(sim.Status()).To(Equal(playback.Status{RunID: 1, State: playback.StateIdle}))
		sim.Reset()
		Expect(state()).To(Equal(playback.StateIdle))
	})

	It("leaves an idle simulator idle on stop", func() {
		sim.Stop()
		sim.Stop()
		Expect(state()).To(Equal(playback.StateIdle))
		Expect(rec.count()).To(BeZero())
	})

	It("cancels the previous run when started again", func() {
		Expect(sim.Start(ctx, playback.Params{DecodeTps: 8, TTFTSeconds: 0, OutputTokens: 100})).To(Succeed())
		Eventually(state).Should(Equal(playback.StateStreaming))
		fc.Step(tick)
		Eventually(emitted).Should(Equal(2))

		Expect(sim.Start(ctx, playback.Params{DecodeTps: 8, TTFTSeconds: 0, OutputTokens: 4})).To(Succeed())
		firstRunUpdates := 0
		for _, u := range rec.all() {
			if u.RunID == 1 {
				firstRunUpdates++
			}
		}

		Eventually(state).Should(Equal(playback.StateStreaming))
		Expect(sim.Status().RunID).To(Equal(uint64(2)))
		Expect(emitted()).To(Equal(0))

		fc.Step(2 * tick)
		Eventually(state).Should(Equal(playback.StateDone))
		Expect(emitted()).To(Equal(4))

		n := 0
		for _, u := range rec.all() {
			if u.RunID == 1 {
				n++
			}
		}
		Expect(n).To(Equal(firstRunUpdates))
	})

	It("treats context cancellation like stop", func() {
		runCtx, cancel := context.WithCancel(ctx)
		Expect(sim.Start(runCtx, playback.Params{DecodeTps: 8, TTFTSeconds: 0, OutputTokens: 100})).To(Succeed())
		Eventually(state).Should(Equal(playback.StateStreaming))

		cancel()
		Expect(sim.Wait(ctx)).To(Succeed())
		Expect(state()).To(Equal(playback.StateDone))
	})

	It("returns from Wait when its context ends", func() {
		Expect(sim.Start(ctx, playback.Params{DecodeTps: 8, TTFTSeconds: 0, OutputTokens: 100})).To(Succeed())
		waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		Expect(sim.Wait(waitCtx)).To(MatchError(context.DeadlineExceeded))
	})
})

var _ = Describe("Transcript", func() {
	var (
		tr  *playback.Transcript
		buf *strings.Builder
	)

	BeforeEach(func() {
		buf = &strings.Builder{}
		tr = playback.NewTranscript(rand.New(rand.NewPCG(1, 2)), buf)
	})

	It("shows a banner during prefill and clears it when streaming starts", func() {
		tr.Observe(playback.Update{State: playback.StatePrefill, Total: 10})
		Expect(tr.String()).To(ContainSubstring("processing prompt"))

		tr.Observe(playback.Update{State: playback.StateStreaming, Total: 10})
		Expect(tr.String()).To(BeEmpty())
	})

	It("emits one word per token up to the per-tick cap", func() {
		tr.Observe(playback.Update{State: playback.StateStreaming, Emitted: 5, Delta: 5, Total: 500})
		// "Hi there!" is two fields.
		Expect(len(strings.Fields(tr.String()))).To(BeNumerically("~", 7, 2))

		tr.Observe(playback.Update{State: playback.StateStreaming, Emitted: 105, Delta: 100, Total: 500})
		Expect(len(strings.Fields(tr.String()))).To(BeNumerically(">=", 5+playback.MaxWordsPerTick))
		Expect(buf.String()).To(Equal(tr.String()))
	})

	It("keeps only the tail of long output", func() {
		for i := 1; i <= 1000; i++ {
			tr.Observe(playback.Update{State: playback.StateStreaming, Emitted: i * 24, Delta: 24, Total: 24000})
		}
		Expect(len(tr.String())).To(Equal(playback.TranscriptLimit))
		Expect(len(buf.String())).To(BeNumerically(">", playback.TranscriptLimit))
	})

	It("clears on reset", func() {
		tr.Observe(playback.Update{State: playback.StateStreaming, Emitted: 3, Delta: 3, Total: 10})
		tr.Observe(playback.Update{State: playback.StateIdle})
		Expect(tr.String()).To(BeEmpty())
	})
})

var _ = Describe("Words", func() {
	It("returns the requested number of words", func() {
		r := rand.New(rand.NewPCG(7, 7))
		Expect(playback.Words(r, 0)).To(BeEmpty())
		Expect(playback.Words(r, -3)).To(BeEmpty())
		w := playback.Words(r, 12)
		Expect(len(strings.Fields(w))).To(BeNumerically(">=", 12))
		Expect(w).NotTo(HavePrefix(" "))
	})
})
