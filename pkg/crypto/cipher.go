// Package crypto defines the opaque encryption hook a connection's
// outgoing/incoming byte slices pass through after the codec and before
// the wire, and a Noise-backed implementation of it.
//
// Grounded on internal/noise/noise.go and internal/noise/read_writer.go:
// the same encrypt-then-frame / unframe-then-decrypt shape, generalized
// from skywire's bespoke Secp256k1-keyed Noise handshake to flynn/noise's
// stock Curve25519 DH, since this module has no existing public-key
// identity scheme to reuse skywire's cipher.PubKey/SecKey types for.
package crypto

// Cipher is the hook a connection applies to a framed payload before
// sending it and after receiving it. seq is the strictly increasing
// per-direction sequence number used as the AEAD nonce; callers must never
// reuse one for two different plaintexts under the same key.
type Cipher interface {
	Encrypt(seq uint32, plaintext []byte) []byte
	Decrypt(seq uint32, ciphertext []byte) ([]byte, error)
}

// NopCipher passes payloads through unchanged. Useful for loopback tests
// and for deployments that terminate encryption below this layer (e.g. a
// VPN tunnel).
type NopCipher struct{}

// Encrypt implements Cipher.
func (NopCipher) Encrypt(_ uint32, plaintext []byte) []byte { return plaintext }

// Decrypt implements Cipher.
func (NopCipher) Decrypt(_ uint32, ciphertext []byte) ([]byte, error) { return ciphertext, nil }
