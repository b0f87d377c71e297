package crypto

import (
	"crypto/rand"
	"encoding/binary"

	"github.com/flynn/noise"
	"github.com/pkg/errors"

	"github.com/nexbridge/wiretransport/internal/logging"
)

var log = logging.MustGetLogger("crypto")

// KeyPair is a Curve25519 static keypair used to authenticate a Noise
// handshake.
type KeyPair struct {
	Public  [32]byte
	Private [32]byte
}

// GenerateKeyPair returns a fresh random KeyPair.
func GenerateKeyPair() (KeyPair, error) {
	dhKey, err := noise.DH25519.GenerateKeypair(rand.Reader)
	if err != nil {
		return KeyPair{}, errors.Wrap(err, "generate noise keypair")
	}
	var kp KeyPair
	copy(kp.Public[:], dhKey.Public)
	copy(kp.Private[:], dhKey.Private)
	return kp, nil
}

// NoiseConfig configures a NoiseCipher handshake.
type NoiseConfig struct {
	Local     KeyPair
	RemotePub *[32]byte // nil until learned from the handshake (responder) or if unknown ahead of time
	Initiator bool
}

// NoiseCipher is a Cipher backed by a completed Noise XX handshake over
// Curve25519/ChaChaPoly/SHA256, mirroring internal/noise.Noise's
// EncryptUnsafe/DecryptUnsafe shape but against the stock flynn/noise
// cipher suite rather than a custom curve.
type NoiseCipher struct {
	pattern noise.HandshakePattern
	hs      *noise.HandshakeState
	enc     *noise.CipherState
	dec     *noise.CipherState

	finished bool
}

// NewNoiseCipher begins (but does not complete) a Noise XX handshake.
// Callers drive the handshake to completion with HandshakeMessage and
// ProcessMessage before using Encrypt/Decrypt.
func NewNoiseCipher(cfg NoiseConfig) (*NoiseCipher, error) {
	pattern := noise.HandshakeXX
	nc := noise.Config{
		CipherSuite: noise.NewCipherSuite(noise.DH25519, noise.CipherChaChaPoly, noise.HashSHA256),
		Random:      rand.Reader,
		Pattern:     pattern,
		Initiator:   cfg.Initiator,
		StaticKeypair: noise.DHKey{
			Public:  cfg.Local.Public[:],
			Private: cfg.Local.Private[:],
		},
	}
	if cfg.RemotePub != nil {
		nc.PeerStatic = cfg.RemotePub[:]
	}

	hs, err := noise.NewHandshakeState(nc)
	if err != nil {
		return nil, errors.Wrap(err, "init noise handshake state")
	}
	return &NoiseCipher{pattern: pattern, hs: hs}, nil
}

// HandshakeFinished reports whether both cipher states have been derived.
func (n *NoiseCipher) HandshakeFinished() bool { return n.finished }

// HandshakeMessage produces the next outbound handshake message, if it is
// this side's turn to send one.
func (n *NoiseCipher) HandshakeMessage() ([]byte, error) {
	if n.hs.MessageIndex() < len(n.pattern.Messages)-1 {
		out, _, _, err := n.hs.WriteMessage(nil, nil)
		return out, errors.Wrap(err, "write handshake message")
	}
	out, enc, dec, err := n.hs.WriteMessage(nil, nil)
	if err != nil {
		return nil, errors.Wrap(err, "write final handshake message")
	}
	n.enc, n.dec, n.finished = enc, dec, true
	return out, nil
}

// ProcessMessage consumes an inbound handshake message.
func (n *NoiseCipher) ProcessMessage(msg []byte) error {
	if n.hs.MessageIndex() < len(n.pattern.Messages)-1 {
		_, _, _, err := n.hs.ReadMessage(nil, msg)
		return errors.Wrap(err, "read handshake message")
	}
	_, dec, enc, err := n.hs.ReadMessage(nil, msg)
	if err != nil {
		return errors.Wrap(err, "read final handshake message")
	}
	n.enc, n.dec, n.finished = enc, dec, true
	return nil
}

// RemoteStatic returns the peer's static public key, available once the
// handshake has exchanged static keys.
func (n *NoiseCipher) RemoteStatic() [32]byte {
	var pk [32]byte
	copy(pk[:], n.hs.PeerStatic())
	return pk
}

// Encrypt implements Cipher. seq is prefixed in big-endian ahead of the
// ciphertext so Decrypt can recover the nonce without out-of-band state,
// matching internal/noise.Noise.EncryptUnsafe's framing.
func (n *NoiseCipher) Encrypt(seq uint32, plaintext []byte) []byte {
	header := make([]byte, 4)
	binary.BigEndian.PutUint32(header, seq)
	return append(header, n.enc.Cipher().Encrypt(nil, uint64(seq), nil, plaintext)...)
}

// Decrypt implements Cipher.
func (n *NoiseCipher) Decrypt(_ uint32, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < 4 {
		return nil, errors.New("noise ciphertext shorter than sequence header")
	}
	seq := binary.BigEndian.Uint32(ciphertext[:4])
	plaintext, err := n.dec.Cipher().Decrypt(nil, uint64(seq), nil, ciphertext[4:])
	if err != nil {
		log.WithField("seq", seq).Debug("noise decrypt failed")
		return nil, errors.Wrap(err, "noise decrypt")
	}
	return plaintext, nil
}
