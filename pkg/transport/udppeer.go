package transport

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/nexbridge/wiretransport/internal/logging"
	"github.com/nexbridge/wiretransport/pkg/bufpool"
	"github.com/nexbridge/wiretransport/pkg/latency"
	"github.com/nexbridge/wiretransport/pkg/wirebuf"
	"github.com/nexbridge/wiretransport/pkg/wiremsg"
)

// gcPeriod mirrors the teacher's UDP_GC_PERIOD: connections silent for
// this long are dropped.
const gcPeriod = 30 * time.Second

// defaultHeartbeatInterval mirrors the teacher's UDP_PING_TICK_PERIOD (5s):
// the period of the per-connection heartbeat that drives Engine.SendPing in
// the "Steady" state (spec.md §4.4), used when Config.HeartbeatInterval is
// left unset.
const defaultHeartbeatInterval = 5 * time.Second

// Packet tags occupy the first byte of every datagram. The reliability
// channel that would normally own this framing is out of scope here; a
// single-byte tag is enough to demux ping/pong from application data.
const (
	tagPing byte = iota
	tagPong
	tagData
)

type realClock struct{ start time.Time }

func newRealClock() *realClock { return &realClock{start: time.Now()} }

// Now returns seconds elapsed since the clock was created, which is all
// the latency engine needs: a monotonic f64 source.
func (c *realClock) Now() float64 { return time.Since(c.start).Seconds() }

// udpConnection is the concrete Connection backing a single remote
// endpoint on a UDPPeer.
type udpConnection struct {
	id       ConnectionID
	remote   *net.UDPAddr
	timeout  float64
	engine   *latency.Engine
	token    *latency.NetworkThreadToken
	channels []ResendChannel

	// stop halts this connection's heartbeat loop (see UDPPeer.heartbeatLoop).
	// Closed through stopOnce so a gc sweep racing UDPPeer.Close can never
	// double-close it.
	stop     chan struct{}
	stopOnce sync.Once

	mu       sync.Mutex
	lastSeen float64
}

func (c *udpConnection) haltHeartbeat() { c.stopOnce.Do(func() { close(c.stop) }) }

func (c *udpConnection) ID() ConnectionID               { return c.id }
func (c *udpConnection) RemoteEndpoint() *net.UDPAddr    { return c.remote }
func (c *udpConnection) Channels() []ResendChannel       { return c.channels }
func (c *udpConnection) ConfiguredTimeout() float64      { return c.timeout }
func (c *udpConnection) Engine() *latency.Engine         { return c.engine }

func (c *udpConnection) touch(now float64) {
	c.mu.Lock()
	c.lastSeen = now
	c.mu.Unlock()
}

func (c *udpConnection) idleFor(now float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return now - c.lastSeen
}

// UDPPeer is a Peer implementation over a single UDP socket, grounded on
// the teacher's UDPFactory: one socket, a map of remote-endpoint to
// connection, a background GC loop evicting silent connections, and a
// ReadLoop dispatching inbound datagrams. Unlike the teacher, there is no
// congestion control or reliable-channel bookkeeping here: this peer's job
// is framing, ping/pong, and handing application payloads to the host as
// Incoming Message Records.
type UDPPeer struct {
	socket *net.UDPConn
	pool   *bufpool.Pool
	clock  latency.Clock
	policy KindPolicy
	log    *logrus.Entry
	diag   DiagSink

	configuredTimeout float64
	heartbeatInterval time.Duration
	debugReadOverflow bool

	mu      sync.RWMutex
	byAddr  map[string]*udpConnection
	byID    map[ConnectionID]*udpConnection

	incoming chan *wiremsg.Record
	stopGC   chan struct{}
	closed   bool
}

// DiagSink is the append-only latency-sample sink a UDPPeer optionally
// records every RTT/offset update to, satisfied by pkg/diagstore.Sink
// wrapping a *diagstore.Store. Kept as a narrow interface here so
// pkg/transport doesn't need to import pkg/diagstore just to accept one.
type DiagSink interface {
	Append(sample DiagSample) error
}

// DiagSample mirrors diagstore.Sample's shape without importing that
// package; UDPPeer.publishLatency fills one in on every accepted pong.
type DiagSample struct {
	ConnectionID     string
	RTT              float64
	MinRTT           float64
	RemoteTimeOffset float64
	ObservedAt       time.Time
}

// Config configures a new UDPPeer.
type Config struct {
	ConfiguredTimeout float64
	KindPolicy        KindPolicy
	Log               *logrus.Entry
	IncomingQueueSize int

	// HeartbeatInterval is the period of the per-connection ping heartbeat
	// that drives the latency engine's "Steady" state (spec.md §4.4).
	// Defaults to defaultHeartbeatInterval when left unset.
	HeartbeatInterval time.Duration

	// PoolMaxIdle caps the number of idle arrays of a given length the
	// peer's bufpool.Pool keeps around; 0 (default) is unbounded, matching
	// the Array Pool's spec contract.
	PoolMaxIdle int

	// DebugReadOverflow switches every buffer this peer creates or wraps
	// into the debug DOS-guard behavior (wirebuf.Buffer.DebugDOSGuard):
	// an oversized string length fails with ErrReadOverflow instead of
	// silently masking to empty. Off (release behavior) by default.
	DebugReadOverflow bool

	// DiagSink, if set, receives a DiagSample on every accepted pong.
	DiagSink DiagSink
}

// NewUDPPeer constructs an unbound UDPPeer; call Listen or Connect to give
// it a socket.
func NewUDPPeer(cfg Config) *UDPPeer {
	log := cfg.Log
	if log == nil {
		log = logging.MustGetLogger("transport")
	}
	qsize := cfg.IncomingQueueSize
	if qsize <= 0 {
		qsize = 256
	}
	heartbeat := cfg.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeatInterval
	}
	p := &UDPPeer{
		pool:              bufpool.NewWithMaxIdle(cfg.PoolMaxIdle),
		clock:             newRealClock(),
		policy:            cfg.KindPolicy,
		log:               log,
		diag:              cfg.DiagSink,
		configuredTimeout: cfg.ConfiguredTimeout,
		heartbeatInterval: heartbeat,
		debugReadOverflow: cfg.DebugReadOverflow,
		byAddr:            make(map[string]*udpConnection),
		byID:              make(map[ConnectionID]*udpConnection),
		incoming:          make(chan *wiremsg.Record, qsize),
		stopGC:            make(chan struct{}),
	}
	return p
}

// newBuffer returns an empty write buffer configured with this peer's DOS
// guard setting and backed by its array pool.
func (p *UDPPeer) newBuffer() *wirebuf.Buffer {
	buf := wirebuf.New()
	buf.DebugDOSGuard = p.debugReadOverflow
	buf.Pool = p.pool
	return buf
}

// wrapBuffer wraps data for reading with this peer's DOS guard setting and
// array pool.
func (p *UDPPeer) wrapBuffer(data []byte) *wirebuf.Buffer {
	buf := wirebuf.Wrap(data)
	buf.DebugDOSGuard = p.debugReadOverflow
	buf.Pool = p.pool
	return buf
}

// Incoming returns the channel the host application drains Incoming
// Message Records from (the MPSC/SPSC queue named in the spec's
// concurrency model: network thread produces, user thread consumes).
func (p *UDPPeer) Incoming() <-chan *wiremsg.Record { return p.incoming }

// Listen binds the peer's socket to address and starts its read and GC
// loops.
func (p *UDPPeer) Listen(address string) error {
	addr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return errors.Wrap(err, "resolve listen address")
	}
	sock, err := net.ListenUDP("udp", addr)
	if err != nil {
		return errors.Wrap(err, "listen udp")
	}
	p.socket = sock
	go p.readLoop()
	go p.gcLoop()
	return nil
}

// Connect registers a new outbound connection to address and immediately
// initializes its ping cycle. If the peer has no socket yet (no prior
// Listen or Connect), it binds an ephemeral one and starts its read and GC
// loops so replies have somewhere to land.
func (p *UDPPeer) Connect(address string) (Connection, error) {
	addr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, errors.Wrap(err, "resolve connect address")
	}
	if p.socket == nil {
		sock, err := net.ListenUDP("udp", &net.UDPAddr{})
		if err != nil {
			return nil, errors.Wrap(err, "allocate ephemeral socket")
		}
		p.socket = sock
		go p.readLoop()
		go p.gcLoop()
	}
	return p.getOrCreateConn(addr), nil
}

// getOrCreateConn returns the tracked connection for addr, creating and
// initializing one if this is the first datagram seen to or from it. Both
// sides of a connection run the same ping heartbeat (spec.md §4.4's
// "Steady" state is symmetric: whichever end emits a ping, the other
// replies with a pong), so initialization and the heartbeat loop start
// here regardless of whether addr was reached via Connect or a freshly
// observed inbound datagram.
func (p *UDPPeer) getOrCreateConn(addr *net.UDPAddr) *udpConnection {
	key := addr.String()

	p.mu.Lock()
	if c, ok := p.byAddr[key]; ok {
		p.mu.Unlock()
		return c
	}

	token := latency.NewNetworkThreadToken()
	id := NewConnectionID()
	c := &udpConnection{
		id:      id,
		remote:  addr,
		timeout: p.configuredTimeout,
		token:   token,
		stop:    make(chan struct{}),
	}
	c.engine = latency.New(latency.Config{
		Clock:             p.clock,
		ConfiguredTimeout: p.configuredTimeout,
		Owner:             token,
		Channels:          nil,
		Log:               p.log.WithField("remote", key),
	})
	p.byAddr[key] = c
	p.byID[id] = c
	p.mu.Unlock()

	p.log.WithFields(logrus.Fields{"remote": key, "conn": id.String()}).Debug("connection established")

	c.engine.InitializePing(token)
	p.sendPing(c)
	go p.heartbeatLoop(c)
	return c
}

// heartbeatLoop is the per-connection network-thread goroutine that drives
// the latency engine's "Steady" state (spec.md §4.4): every
// heartbeatInterval it calls Engine.SendPing and transmits the resulting
// ping packet, grounded on the teacher's WriteLoop pingTicker
// (vendor/github.com/skycoin/net/conn/udp.go). It exits when the
// connection's stop channel is closed by gc eviction or UDPPeer.Close.
func (p *UDPPeer) heartbeatLoop(c *udpConnection) {
	ticker := time.NewTicker(p.heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.engine.SendPing(c.token)
			p.sendPing(c)
		}
	}
}

// Connections returns every connection currently tracked by the peer.
func (p *UDPPeer) Connections() []Connection {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Connection, 0, len(p.byID))
	for _, c := range p.byID {
		out = append(out, c)
	}
	return out
}

// Connection looks up a tracked connection by ID.
func (p *UDPPeer) Connection(id ConnectionID) (Connection, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	c, ok := p.byID[id]
	return c, ok
}

// Send transmits payload verbatim to the given endpoint, tagged as
// application data.
func (p *UDPPeer) Send(to *net.UDPAddr, payload []byte) error {
	framed := make([]byte, 1+len(payload))
	framed[0] = tagData
	copy(framed[1:], payload)
	_, err := p.socket.WriteToUDP(framed, to)
	return errors.Wrap(err, "send")
}

func (p *UDPPeer) sendPing(c *udpConnection) {
	payload := []byte{tagPing, c.engine.PendingPingPayload()}
	if _, err := p.socket.WriteToUDP(payload, c.remote); err != nil {
		p.log.WithError(err).Warn("send ping failed")
	}
}

func (p *UDPPeer) sendPong(c *udpConnection, pingNumber byte) {
	number, sendTime := c.engine.SendPongPayload(c.token, pingNumber)

	buf := p.newBuffer()
	buf.WriteUint8(tagPong)
	buf.WriteUint8(number)
	buf.WriteFloat32(sendTime)
	if _, err := p.socket.WriteToUDP(buf.Bytes(), c.remote); err != nil {
		p.log.WithError(err).Warn("send pong failed")
	}
}

// Close shuts the peer's socket and halts its background loops, including
// every tracked connection's heartbeat.
func (p *UDPPeer) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	conns := make([]*udpConnection, 0, len(p.byID))
	for _, c := range p.byID {
		conns = append(conns, c)
	}
	p.mu.Unlock()

	for _, c := range conns {
		c.haltHeartbeat()
	}

	close(p.stopGC)
	if p.socket != nil {
		return p.socket.Close()
	}
	return nil
}

func (p *UDPPeer) readLoop() {
	scratch := make([]byte, 65535)
	for {
		n, addr, err := p.socket.ReadFromUDP(scratch)
		if err != nil {
			if p.isClosed() {
				return
			}
			p.log.WithError(err).Warn("read udp failed")
			continue
		}
		if n < 1 {
			continue
		}
		p.handleDatagram(scratch[:n], addr)
	}
}

func (p *UDPPeer) isClosed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}

func (p *UDPPeer) handleDatagram(raw []byte, addr *net.UDPAddr) {
	now := p.clock.Now()
	tag, body := raw[0], raw[1:]

	switch tag {
	case tagPing:
		if len(body) < 1 {
			return
		}
		c := p.getOrCreateConn(addr)
		c.touch(now)
		p.sendPong(c, body[0])

	case tagPong:
		if len(body) < 5 {
			return
		}
		c := p.getOrCreateConn(addr)
		c.touch(now)
		buf := p.wrapBuffer(body[1:])
		sendTime, err := buf.ReadFloat32()
		if err != nil {
			return
		}
		if err := c.engine.ReceivedPong(c.token, now, body[0], sendTime); err != nil {
			p.log.WithError(err).Debug("pong rejected")
			return
		}
		p.publishLatency(c, now)

	case tagData:
		c := p.getOrCreateConn(addr)
		c.touch(now)
		p.publishData(c, body, now)

	default:
		p.log.WithField("tag", tag).Debug("unknown packet tag")
	}
}

func (p *UDPPeer) publishLatency(c *udpConnection, now float64) {
	rtt, ok := c.engine.AverageRoundtripTime()
	if !ok {
		return
	}

	if p.diag != nil {
		sample := DiagSample{
			ConnectionID:     c.id.String(),
			RTT:              rtt,
			MinRTT:           c.engine.MinRTT(),
			RemoteTimeOffset: c.engine.RemoteTimeOffset(),
			ObservedAt:       time.Now(),
		}
		if err := p.diag.Append(sample); err != nil {
			p.log.WithError(err).Warn("diagstore append failed")
		}
	}

	if p.policy != nil && !p.policy.Enabled(wiremsg.KindConnectionLatencyUpdated) {
		return
	}
	rec := wiremsg.NewRecord(p.newBuffer())
	rec.WriteFloat32(float32(rtt))
	rec.Kind = wiremsg.KindConnectionLatencyUpdated
	rec.SenderEndpoint = c.remote
	rec.SenderConnection = c.id
	rec.ReceiveTime = now
	p.enqueue(rec)
}

func (p *UDPPeer) publishData(c *udpConnection, body []byte, now float64) {
	if p.policy != nil && !p.policy.Enabled(wiremsg.KindData) {
		return
	}
	pooled := p.pool.Get(len(body))
	copy(pooled, body)

	rec := wiremsg.NewRecord(p.wrapBuffer(pooled))
	rec.Kind = wiremsg.KindData
	rec.SenderEndpoint = c.remote
	rec.SenderConnection = c.id
	rec.ReceiveTime = now
	p.enqueue(rec)
}

func (p *UDPPeer) enqueue(rec *wiremsg.Record) {
	select {
	case p.incoming <- rec:
	default:
		p.log.Warn("incoming queue full, dropping record")
	}
}

func (p *UDPPeer) gcLoop() {
	ticker := time.NewTicker(gcPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-p.stopGC:
			return
		case <-ticker.C:
			p.sweep()
		}
	}
}

func (p *UDPPeer) sweep() {
	now := p.clock.Now()
	var dead []string

	p.mu.RLock()
	for addr, c := range p.byAddr {
		if c.idleFor(now) >= gcPeriod.Seconds() {
			dead = append(dead, addr)
		}
	}
	p.mu.RUnlock()

	if len(dead) == 0 {
		return
	}

	p.mu.Lock()
	evicted := make([]*udpConnection, 0, len(dead))
	for _, addr := range dead {
		if c, ok := p.byAddr[addr]; ok {
			delete(p.byID, c.id)
			delete(p.byAddr, addr)
			evicted = append(evicted, c)
		}
	}
	p.mu.Unlock()

	for _, c := range evicted {
		c.haltHeartbeat()
	}

	p.log.WithField("count", len(dead)).WithField("addr_sample", fmt.Sprint(dead)).Debug("gc evicted idle connections")
}
