package telephony

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SimulatedBridge is the local/dev stand-in for a real telephony provider.
// Outcomes are drawn from configurable probabilities; all randomness lives
// here, behind the Bridge interface, never in the workflow.
type SimulatedBridge struct {
	cfg SimulatedConfig
	rng *rand.Rand
	mu  sync.Mutex
}

// SimulatedConfig tunes outcome probabilities and pacing.
type SimulatedConfig struct {
	// DialDelay is how long a simulated attempt "rings" before resolving.
	DialDelay time.Duration

	// BusyChance and NoAnswerChance are probabilities in [0,1];
	// the remainder connects.
	BusyChance     float64
	NoAnswerChance float64

	// DropChance is the probability a connected call ends in a network
	// drop instead of a remote hangup.
	DropChance float64

	// MinTalk/MaxTalk bound the simulated connected time before the
	// remote side ends the call.
	MinTalk time.Duration
	MaxTalk time.Duration

	// Seed fixes the random sequence; zero seeds from the clock.
	Seed int64
}

func (c SimulatedConfig) withDefaults() SimulatedConfig {
	out := c
	if out.DialDelay <= 0 {
		out.DialDelay = 2 * time.Second
	}
	if out.BusyChance <= 0 {
		out.BusyChance = 0.15
	}
	if out.NoAnswerChance <= 0 {
		out.NoAnswerChance = 0.15
	}
	if out.DropChance <= 0 {
		out.DropChance = 0.1
	}
	if out.MinTalk <= 0 {
		out.MinTalk = 10 * time.Second
	}
	if out.MaxTalk <= out.MinTalk {
		out.MaxTalk = out.MinTalk + 50*time.Second
	}
	return out
}

func NewSimulatedBridge(cfg SimulatedConfig) *SimulatedBridge {
	cfg = cfg.withDefaults()
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &SimulatedBridge{cfg: cfg, rng: rand.New(rand.NewSource(seed))}
}

func (b *SimulatedBridge) Name() string { return "simulated" }

func (b *SimulatedBridge) Place(ctx context.Context, req PlaceRequest, sink EventSink) (ActiveCall, error) {
	call := &simulatedCall{bridge: b, sink: sink, record: req.Record}

	r1, r2, r3 := b.roll(), b.roll(), b.roll()
	talk := b.cfg.MinTalk + time.Duration(b.roll()*float64(b.cfg.MaxTalk-b.cfg.MinTalk))

	call.resolveTimer = time.AfterFunc(b.cfg.DialDelay, func() {
		call.mu.Lock()
		if call.done {
			call.mu.Unlock()
			return
		}
		switch {
		case r1 < b.cfg.BusyChance:
			call.done = true
			call.mu.Unlock()
			sink.Busy()
		case r1 < b.cfg.BusyChance+b.cfg.NoAnswerChance:
			call.done = true
			call.mu.Unlock()
			sink.NoAnswer()
		default:
			// connected; the remote side ends the call after talk time
			call.endTimer = time.AfterFunc(talk, func() {
				call.mu.Lock()
				if call.done {
					call.mu.Unlock()
					return
				}
				call.done = true
				end := call.endInfo()
				call.mu.Unlock()
				if r2 < b.cfg.DropChance {
					sink.Dropped(end)
				} else {
					sink.RemoteHangup(end)
				}
			})
			call.mu.Unlock()
			sink.Connected()
		}
		_ = r3
	})

	return call, nil
}

func (b *SimulatedBridge) roll() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rng.Float64()
}

type simulatedCall struct {
	bridge *SimulatedBridge
	sink   EventSink
	record bool

	mu           sync.Mutex
	done         bool
	resolveTimer *time.Timer
	endTimer     *time.Timer
}

// endInfo is called with mu held.
func (c *simulatedCall) endInfo() EndInfo {
	if !c.record {
		return EndInfo{}
	}
	return EndInfo{RecordingURL: "sim://recordings/" + uuid.NewString()}
}

func (c *simulatedCall) Hangup(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.done = true
	if c.resolveTimer != nil {
		c.resolveTimer.Stop()
	}
	if c.endTimer != nil {
		c.endTimer.Stop()
	}
	return nil
}
