package wiremsg

// Kind enumerates the variants an Incoming Message Record can carry,
// mirroring the transport-level event types named in the spec: application
// data, connection status changes, latency updates, and error
// notifications.
type Kind uint8

const (
	// KindData is a regular application payload delivered to the host.
	KindData Kind = iota
	// KindStatusChanged notifies the host a connection's status changed
	// (e.g. connected, timed out, closed).
	KindStatusChanged
	// KindConnectionLatencyUpdated notifies the host of a new RTT sample,
	// published by pkg/transport's UDPPeer after each accepted pong when
	// the kind is enabled.
	KindConnectionLatencyUpdated
	// KindError notifies the host of a transport-level error unrelated to
	// a specific incoming payload.
	KindError
)

// String implements fmt.Stringer for Kind.
func (k Kind) String() string {
	switch k {
	case KindData:
		return "Data"
	case KindStatusChanged:
		return "StatusChanged"
	case KindConnectionLatencyUpdated:
		return "ConnectionLatencyUpdated"
	case KindError:
		return "Error"
	default:
		return "Unknown"
	}
}

// DeliveryMethod is the reliability/ordering strategy a channel applies to
// a message. The full channels that implement these semantics are out of
// scope here (see spec.md §1); this type only names the wire tag.
type DeliveryMethod uint8

const (
	// Unreliable messages are fire-and-forget.
	Unreliable DeliveryMethod = iota
	// ReliableOrdered messages are retransmitted until acked and delivered
	// to the host in send order.
	ReliableOrdered
	// ReliableSequenced messages are retransmitted until acked; stale
	// messages that arrive after a newer one was already delivered are
	// dropped rather than reordered.
	ReliableSequenced
	// ReliableUnordered messages are retransmitted until acked, with no
	// ordering guarantee relative to each other.
	ReliableUnordered
)

// ReceivedMessageType packs a DeliveryMethod and a channel index into the
// single wire-level tag named in the spec's Incoming Message Record.
type ReceivedMessageType uint16

// NewReceivedMessageType builds a tag from a delivery method and channel
// index (0-255).
func NewReceivedMessageType(method DeliveryMethod, channel uint8) ReceivedMessageType {
	return ReceivedMessageType(uint16(method)<<8 | uint16(channel))
}

// Method returns the delivery method encoded in the tag.
func (t ReceivedMessageType) Method() DeliveryMethod { return DeliveryMethod(t >> 8) }

// Channel returns the channel index encoded in the tag.
func (t ReceivedMessageType) Channel() uint8 { return uint8(t) }
