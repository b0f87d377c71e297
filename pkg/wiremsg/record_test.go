package wiremsg

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nexbridge/wiretransport/pkg/wirebuf"
)

func TestNewRecordStartsWithoutUserMsgTime(t *testing.T) {
	rec := NewRecord(wirebuf.New())
	require.False(t, rec.HasUserMsgTime())
}

func TestSetUserMsgTimeIsCached(t *testing.T) {
	rec := NewRecord(wirebuf.New())
	rec.SetUserMsgTime(42.5)
	require.True(t, rec.HasUserMsgTime())
	require.Equal(t, 42.5, rec.UserMsgTime())

	rec.InvalidateUserMsgTime()
	require.False(t, rec.HasUserMsgTime())
}

func TestReceivedMessageTypePacksMethodAndChannel(t *testing.T) {
	tag := NewReceivedMessageType(ReliableOrdered, 7)
	require.Equal(t, ReliableOrdered, tag.Method())
	require.Equal(t, uint8(7), tag.Channel())
}

func TestKindStringNamesKnownVariants(t *testing.T) {
	cases := map[Kind]string{
		KindData:                     "Data",
		KindStatusChanged:            "StatusChanged",
		KindConnectionLatencyUpdated: "ConnectionLatencyUpdated",
		KindError:                    "Error",
	}
	for kind, want := range cases {
		require.Equal(t, want, kind.String())
	}
}
