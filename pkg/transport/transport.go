// Package transport defines the collaborator interfaces the codec and
// latency engine are built against: a Peer that sends bytes to a UDP
// endpoint and enumerates its connections, and a Connection that
// exposes a remote endpoint, its reliable-send channels, and its
// configured timeout.
//
// Grounded on pkg/net/factory/udp_factory.go's UDPFactory (Listen/Connect/
// createConn/GC) and pkg/net/conn/stream.go's per-connection bookkeeping;
// generalized here from skywire's mesh-routing connection down to the bare
// ping/pong/codec surface this module implements.
package transport

import (
	"net"

	"github.com/google/uuid"

	"github.com/nexbridge/wiretransport/pkg/latency"
	"github.com/nexbridge/wiretransport/pkg/wiremsg"
)

// ConnectionID uniquely names a connection for the lifetime of the
// process.
type ConnectionID = uuid.UUID

// NewConnectionID returns a fresh random ConnectionID.
func NewConnectionID() ConnectionID { return uuid.New() }

// ResendChannel is a reliable-send channel attached to a Connection; it
// re-exports latency.ResendChannel so callers don't need to import both
// packages to implement one.
type ResendChannel = latency.ResendChannel

// Connection is the handle the latency engine and codec need from a
// transport connection: its remote endpoint, its attached reliable-send
// channels, and its configured timeout.
type Connection interface {
	ID() ConnectionID
	RemoteEndpoint() *net.UDPAddr
	Channels() []ResendChannel
	ConfiguredTimeout() float64
	Engine() *latency.Engine
}

// KindPolicy tells the transport whether a given incoming message kind
// should be delivered to the host, per the spec's "configuration object
// telling whether each incoming message kind is enabled for user
// delivery".
type KindPolicy interface {
	Enabled(kind wiremsg.Kind) bool
}

// Peer is the collaborator the codec and latency engine depend on to move
// bytes: it sends a byte slice to a UDP endpoint, lists and looks up its
// connections, and closes. It has no methods for allocating outgoing
// buffers or releasing incoming ones back to a pool.
type Peer interface {
	Send(to *net.UDPAddr, payload []byte) error
	Connections() []Connection
	Connection(id ConnectionID) (Connection, bool)
	Close() error
}
