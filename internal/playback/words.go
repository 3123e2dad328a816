/*
PURPOSE:
  Filler text for 'play --text'. Each update's token delta becomes that
  many words so the reader sees output arrive at the decode rate.

REQUIREMENTS:
  Implementation-discovered:
  - Large deltas after a stall would flood the terminal, so one update
    prints at most MaxWordsPerTick words.
  - The kept transcript is bounded.

ARCHITECTURE INTEGRATION:
  - Subscribed to: Simulator updates (internal/cli/play.go)

IMPLEMENTATION RULES:
  - The rand source is injected so tests get fixed text.
*/

package playback

import (
	"io"
	"math/rand/v2"
	"strings"
	"sync"
)

// vocabulary is the filler text streamed while a run plays back. The words
// carry no meaning; only their count tracks the emitted tokens.
var vocabulary = []string{
	"token", "stream", "latency", "throughput", "batch", "context", "cache",
	"decode", "prefill", "scheduler", "kernel", "bandwidth", "attention",
	"quant", "pipeline", "tensor", "warp", "memory", "compute", "estimate",
	"benchmark", "runtime", "profile", "queue", "model", "gpu", "vram", "core",
	"Hi there!",
}

const (
	// MaxWordsPerTick caps the text produced for one update.
	MaxWordsPerTick = 24
	// TranscriptLimit is how many trailing characters a Transcript keeps.
	TranscriptLimit = 5000

	prefillBanner = "processing prompt…"
)

// Words returns n space-separated words drawn from the vocabulary.
func Words(r *rand.Rand, n int) string {
	if n <= 0 {
		return ""
	}
	var b strings.Builder
	for i := range n {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(vocabulary[r.IntN(len(vocabulary))])
	}
	return b.String()
}

// Transcript turns simulator updates into streamed filler text. It keeps the
// last TranscriptLimit characters and optionally echoes each chunk to a writer.
// Subscribe its Observe method to a Simulator.
type Transcript struct {
	mu   sync.Mutex
	rng  *rand.Rand
	out  io.Writer
	text string
}

// NewTranscript creates a transcript. out may be nil.
func NewTranscript(rng *rand.Rand, out io.Writer) *Transcript {
	return &Transcript{rng: rng, out: out}
}

// Observe consumes one update.
func (t *Transcript) Observe(u Update) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch {
	case u.State == StateIdle:
		t.text = ""
		return
	case u.State == StatePrefill:
		t.text = prefillBanner
		return
	case u.State == StateStreaming && u.Emitted == 0:
		t.text = ""
		return
	case u.Delta <= 0:
		return
	}

	chunk := Words(t.rng, min(u.Delta, MaxWordsPerTick))
	sep := ""
	if t.text != "" {
		sep = " "
	}
	t.text += sep + chunk
	if len(t.text) > TranscriptLimit {
		t.text = t.text[len(t.text)-TranscriptLimit:]
	}
	if t.out != nil {
		io.WriteString(t.out, sep+chunk)
	}
}

// String returns the retained text.
func (t *Transcript) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.text
}
