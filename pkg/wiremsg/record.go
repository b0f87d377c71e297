// Package wiremsg implements the Incoming Message Record: the envelope the
// transport attaches to every buffer it hands up to the host, whether that
// buffer carries application data or a housekeeping notification such as a
// latency update.
//
// Grounded on the teacher's pkg/net/factory/udp_factory.go, which stamps an
// incoming read with its source *net.UDPAddr and owning connection before
// handing it to the host callback, and on the skycoin/net UDPMessage
// (vendored under skycoin-skywire-testnet/vendor/github.com/skycoin/net/msg)
// which tags a received datagram with a sequence number and timestamp.
package wiremsg

import (
	"math"
	"net"

	"github.com/google/uuid"

	"github.com/nexbridge/wiretransport/pkg/wirebuf"
)

// ConnectionID identifies the connection a record arrived on (or, for a
// ConnectionLatencyUpdated record, the connection the sample belongs to).
// A zero ConnectionID means no connection is associated with the record.
type ConnectionID = uuid.UUID

// Record is the envelope the transport attaches to every buffer delivered
// to the host. The embedded *wirebuf.Buffer carries the payload (empty for
// notification kinds like StatusChanged); the remaining fields are the
// metadata the host needs to interpret or route it.
type Record struct {
	*wirebuf.Buffer

	Kind                Kind
	SenderEndpoint      *net.UDPAddr
	SenderConnection    ConnectionID
	SequenceNumber      uint32
	ReceivedMessageType ReceivedMessageType
	IsFragment          bool
	ReceiveTime         float64

	// userMsgTime caches the host-clock translation of ReceiveTime so
	// repeated lookups don't recompute it; math.NaN() marks "not yet
	// computed".
	userMsgTime float64
}

// NewRecord wraps buf in a Record with an uncomputed user-message-time
// cache.
func NewRecord(buf *wirebuf.Buffer) *Record {
	return &Record{Buffer: buf, userMsgTime: math.NaN()}
}

// HasUserMsgTime reports whether SetUserMsgTime has been called since this
// Record was created or its cache was last invalidated.
func (r *Record) HasUserMsgTime() bool { return !math.IsNaN(r.userMsgTime) }

// UserMsgTime returns the cached host-clock timestamp, or NaN if it has not
// been computed yet. Callers should check HasUserMsgTime (or compute and
// call SetUserMsgTime) before trusting the value.
func (r *Record) UserMsgTime() float64 { return r.userMsgTime }

// SetUserMsgTime stores the host-clock timestamp for this record, memoizing
// it for later lookups.
func (r *Record) SetUserMsgTime(t float64) { r.userMsgTime = t }

// InvalidateUserMsgTime resets the cache to its uncomputed state.
func (r *Record) InvalidateUserMsgTime() { r.userMsgTime = math.NaN() }
