package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNopCipherRoundTrip(t *testing.T) {
	var c NopCipher
	plaintext := []byte("passthrough")
	ct := c.Encrypt(1, plaintext)
	require.Equal(t, plaintext, ct)

	pt, err := c.Decrypt(1, ct)
	require.NoError(t, err)
	require.Equal(t, plaintext, pt)
}

func TestNoiseCipherHandshakeThenEncryptRoundTrip(t *testing.T) {
	initiatorKeys, err := GenerateKeyPair()
	require.NoError(t, err)
	responderKeys, err := GenerateKeyPair()
	require.NoError(t, err)

	initiator, err := NewNoiseCipher(NoiseConfig{Local: initiatorKeys, Initiator: true})
	require.NoError(t, err)
	responder, err := NewNoiseCipher(NoiseConfig{Local: responderKeys, Initiator: false})
	require.NoError(t, err)

	// Noise XX is a fixed 3-message exchange: initiator -> e, responder ->
	// e,ee,s,es, initiator -> s,se (after which both sides hold cipher
	// states).
	msg1, err := initiator.HandshakeMessage()
	require.NoError(t, err)
	require.NoError(t, responder.ProcessMessage(msg1))

	msg2, err := responder.HandshakeMessage()
	require.NoError(t, err)
	require.NoError(t, initiator.ProcessMessage(msg2))

	msg3, err := initiator.HandshakeMessage()
	require.NoError(t, err)
	require.NoError(t, responder.ProcessMessage(msg3))

	require.True(t, initiator.HandshakeFinished())
	require.True(t, responder.HandshakeFinished())

	plaintext := []byte("across the wire")
	ct := initiator.Encrypt(1, plaintext)
	pt, err := responder.Decrypt(1, ct)
	require.NoError(t, err)
	require.Equal(t, plaintext, pt)
}
