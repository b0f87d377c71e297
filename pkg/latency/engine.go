// Package latency implements the connection latency engine: the periodic
// ping/pong exchange that estimates round-trip time, the remote peer's
// clock offset, and the timeout deadline a connection uses to detect a
// dead peer.
//
// Grounded on the teacher's vendored github.com/skycoin/net/conn.UDPConn,
// whose Ping/updateRTT/rttSampler trio drives the same ping-pong-RTT-EWMA
// cycle (there keyed to a google/btree-backed sliding-minimum window; here
// the spec calls for a plain EWMA, so the btree sampler is adapted instead
// into the supplementary min-RTT window kept by rttwindow.go, which does not
// feed ResendDelay). Ping/pong framing
// follows the teacher's msg.GenPingMsg/UnixMillisecond helpers, adapted to
// the wire format this spec mandates (a truncated 8-bit ping number, not a
// 64-bit millisecond timestamp).
package latency

import (
	"math"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/nexbridge/wiretransport/internal/logging"
)

// ErrThreadAffinityViolation is the panic value raised when a
// network-thread-only operation is invoked without holding the Engine's
// NetworkThreadToken.
var ErrThreadAffinityViolation = errors.New("latency: operation invoked off the network thread")

// ErrPongMismatch marks a pong whose echoed ping number doesn't match the
// outstanding ping; callers should log and drop rather than propagate.
var ErrPongMismatch = errors.New("latency: pong number does not match outstanding ping")

// unsetRTT is the sentinel average_roundtrip_time carries before the first
// sample arrives.
const unsetRTT = -1

// defaultWindowSize is the number of most-recent RTT samples Engine keeps in
// its supplementary min-RTT window (see rttwindow.go) when Config.WindowSize
// is left unset.
const defaultWindowSize = 16

// NetworkThreadToken is the capability a caller must hold to invoke the
// Engine's write-side operations (initialize_ping, send_ping,
// received_pong, send_pong). The spec requires these to execute only on
// the connection's network thread; Go has no portable way to introspect a
// goroutine's identity, so this package models "network thread" as
// possession of this token rather than a goroutine-identity check. A single
// token created alongside the connection and threaded through its network
// loop gives the same fail-fast guarantee the spec asks for: a call made
// with any other token (or nil) panics with ErrThreadAffinityViolation.
type NetworkThreadToken struct{ _ [0]func() }

// NewNetworkThreadToken creates a token. Create exactly one per connection
// and hand it only to the goroutine that owns that connection's network
// loop.
func NewNetworkThreadToken() *NetworkThreadToken { return &NetworkThreadToken{} }

// Clock supplies monotonic time in seconds, as consumed from external
// collaborators per the spec's external-interfaces section.
type Clock interface {
	Now() float64
}

// ResendChannel is a reliable-send channel attached to a connection whose
// resend delay the latency engine updates after every RTT sample.
type ResendChannel interface {
	SetResendDelay(seconds float64)
}

// Engine is one connection's ping/pong/RTT/clock-offset state machine. The
// zero value is not usable; construct with New.
//
// Publishing the ConnectionLatencyUpdated notification spec.md §4.4 step 8
// describes is pkg/transport's responsibility, not this package's: UDPPeer
// already gates on its own KindPolicy (see udppeer.go's publishLatency),
// and Engine has no host-visible record type of its own to build one with.
// An Engine does not notify anyone when a sample lands; callers read the
// result back out via AverageRoundtripTime/RemoteTimeOffset/MinRTT after
// ReceivedPong returns.
type Engine struct {
	clock             Clock
	configuredTimeout float64
	owner             *NetworkThreadToken

	sentPingNumber uint32
	sentPingTime   float64
	timeoutDeadline float64

	averageRoundtripTime float64
	remoteTimeOffset     float64
	haveOffset           bool
	sampleCount          uint64

	window *Window

	channels []ResendChannel

	log *logrus.Entry
}

// Config carries the pieces an Engine needs from its owning connection.
type Config struct {
	Clock             Clock
	ConfiguredTimeout float64
	Owner             *NetworkThreadToken
	Channels          []ResendChannel
	Log               *logrus.Entry

	// WindowSize bounds the supplementary min-RTT window (rttwindow.go)
	// every sample is also fed into. Defaults to defaultWindowSize.
	WindowSize int
}

// New constructs an Engine in its Uninitialized state.
func New(cfg Config) *Engine {
	log := cfg.Log
	if log == nil {
		log = logging.MustGetLogger("latency")
	}
	windowSize := cfg.WindowSize
	if windowSize <= 0 {
		windowSize = defaultWindowSize
	}
	e := &Engine{
		clock:                cfg.Clock,
		configuredTimeout:    cfg.ConfiguredTimeout,
		owner:                cfg.Owner,
		averageRoundtripTime: unsetRTT,
		window:               NewWindow(windowSize),
		channels:             cfg.Channels,
		log:                  log,
	}
	return e
}

func (e *Engine) assertOwner(tok *NetworkThreadToken) {
	if tok == nil || tok != e.owner {
		panic(ErrThreadAffinityViolation)
	}
}

// AverageRoundtripTime returns the current EWMA RTT estimate in seconds, or
// false if no sample has landed yet.
func (e *Engine) AverageRoundtripTime() (float64, bool) {
	if e.averageRoundtripTime == unsetRTT {
		return 0, false
	}
	return e.averageRoundtripTime, true
}

// RemoteTimeOffset returns the current remote_time_offset estimate.
func (e *Engine) RemoteTimeOffset() float64 { return e.remoteTimeOffset }

// MinRTT returns the minimum RTT observed over the engine's supplementary
// sliding window (see rttwindow.go), or 0 if no sample has landed yet. This
// is diagnostics alongside the mandated EWMA in AverageRoundtripTime, not a
// substitute for it.
func (e *Engine) MinRTT() float64 { return e.window.Min() }

// SampleCount returns the number of pong samples successfully processed so
// far (i.e. not rejected by the pong-number mismatch check). Callers that
// poll AverageRoundtripTime can compare successive SampleCount values to
// tell a fresh sample from a stale cached one.
func (e *Engine) SampleCount() uint64 { return e.sampleCount }

// LocalTime converts a remote timestamp to this host's clock.
func (e *Engine) LocalTime(remoteTS float64) float64 { return remoteTS - e.remoteTimeOffset }

// RemoteTime converts a local timestamp to the remote peer's clock.
func (e *Engine) RemoteTime(localTS float64) float64 { return localTS + e.remoteTimeOffset }

// TimeoutDeadline returns the instant after which the connection is
// considered dead absent further traffic.
func (e *Engine) TimeoutDeadline() float64 { return e.timeoutDeadline }

// ResetTimeout pushes the timeout deadline configuredTimeout seconds past
// now; see §4.5.
func (e *Engine) ResetTimeout(now float64) { e.timeoutDeadline = now + e.configuredTimeout }

// ResendDelay derives the reliable-channel retransmit interval from the
// current RTT estimate: a multiply-by-factor-plus-floor function, monotone
// in RTT and strictly positive even when RTT is near zero, per §4.5.
func (e *Engine) ResendDelay() float64 {
	const (
		factor = 2.0
		floor  = 0.05
	)
	rtt, ok := e.AverageRoundtripTime()
	if !ok {
		return floor
	}
	d := rtt * factor
	if d < floor {
		return floor
	}
	return d
}

// InitializePing transitions the engine from Uninitialized to Steady: the
// timeout deadline is pushed out to twice the configured timeout (giving
// the first ping room to round-trip before the connection is judged dead),
// and an initial ping is recorded immediately. The Engine does not transmit
// anything itself; the caller sends PendingPingPayload.
func (e *Engine) InitializePing(tok *NetworkThreadToken) {
	e.assertOwner(tok)
	now := e.clock.Now()
	e.timeoutDeadline = now + 2*e.configuredTimeout
	e.averageRoundtripTime = unsetRTT
	e.sendPingLocked(now)
}

// SendPing records a periodic ping (next ping number, send time); called by
// the connection heartbeat on the network thread, which then transmits
// PendingPingPayload.
func (e *Engine) SendPing(tok *NetworkThreadToken) {
	e.assertOwner(tok)
	e.sendPingLocked(e.clock.Now())
}

func (e *Engine) sendPingLocked(now float64) {
	e.sentPingNumber++
	e.sentPingTime = now
	e.log.WithField("ping_number", e.sentPingNumber).Debug("send_ping")
}

// PendingPingPayload returns the single-byte payload for the ping packet
// currently outstanding: the truncated 8-bit ping number (§6).
func (e *Engine) PendingPingPayload() byte { return byte(e.sentPingNumber % 256) }

// ReceivedPong processes an inbound pong. now is the local receive time;
// pongNumber and remoteSendTime are the pong packet's payload fields. A
// stale or spoofed pong (number mismatch) is reported via ErrPongMismatch
// and must be logged and dropped by the caller, not propagated as a hard
// failure (§7).
func (e *Engine) ReceivedPong(tok *NetworkThreadToken, now float64, pongNumber byte, remoteSendTime float32) error {
	e.assertOwner(tok)

	if pongNumber != byte(e.sentPingNumber%256) {
		e.log.WithFields(logrus.Fields{
			"got":  pongNumber,
			"want": byte(e.sentPingNumber % 256),
		}).Debug("pong mismatch, dropping")
		return ErrPongMismatch
	}

	e.ResetTimeout(now)

	rtt := now - e.sentPingTime
	if rtt < 0 {
		rtt = 0
	}
	diff := float64(remoteSendTime) + rtt/2 - now

	if e.averageRoundtripTime == unsetRTT {
		e.remoteTimeOffset = diff
		e.averageRoundtripTime = rtt
		e.haveOffset = true
	} else {
		priorOffset := e.remoteTimeOffset
		e.averageRoundtripTime = 0.7*e.averageRoundtripTime + 0.3*rtt
		n := float64(e.sentPingNumber)
		e.remoteTimeOffset = monotonicMean(priorOffset, n, diff)
	}
	e.sampleCount++
	e.window.Push(int64(e.sentPingNumber), rtt)

	delay := e.ResendDelay()
	for _, ch := range e.channels {
		ch.SetResendDelay(delay)
	}

	return nil
}

// InitializeRemoteTimeOffset performs the one-shot offset assignment used
// when a network-time-carrying packet arrives before any pong has landed.
func (e *Engine) InitializeRemoteTimeOffset(tok *NetworkThreadToken, remoteSendTime float32) {
	e.assertOwner(tok)
	if e.haveOffset {
		return
	}
	avgRTT, ok := e.AverageRoundtripTime()
	if !ok {
		avgRTT = 0
	}
	now := e.clock.Now()
	e.remoteTimeOffset = float64(remoteSendTime) + avgRTT/2 - now
	e.haveOffset = true
}

// SendPongPayload builds the payload for a pong packet replying to an
// inbound ping carrying pingNumber. now must be captured as close to
// emission as possible: send-time, not queue-time (§4.4).
func (e *Engine) SendPongPayload(tok *NetworkThreadToken, pingNumber byte) (number byte, sendTime float32) {
	e.assertOwner(tok)
	now := e.clock.Now()
	e.log.WithField("ping_number", pingNumber).Debug("send_pong")
	return pingNumber, float32(now)
}

// monotonicMean computes the cumulative mean of sample against priorMean
// over n-1 prior samples (§4.4 step 6), guarding against NaN creeping into
// remote_time_offset permanently from a single malformed remote timestamp.
func monotonicMean(priorMean float64, n float64, sample float64) float64 {
	if math.IsNaN(priorMean) || math.IsNaN(sample) {
		return priorMean
	}
	return (priorMean*(n-1) + sample) / n
}
