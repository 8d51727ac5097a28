// Package auxiliary implements the title auxiliary-stream side channel:
// its own AES-128-CBC + HMAC-SHA256 framing (distinct from the session
// codec), the Title channel manager, and the local TCP relay that bridges
// an in-title client to the console's advertised endpoint.
package auxiliary

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"sync"

	"github.com/openxbox/smartglass/pkg/packet"
)

// Crypto is the auxiliary-stream cipher context. The two directions are
// independent CBC streams whose IV state chains across frames, so frames
// of one direction must be processed in order.
type Crypto struct {
	mu sync.Mutex

	clientEncrypt cipher.BlockMode
	clientDecrypt cipher.BlockMode
	serverEncrypt cipher.BlockMode
	serverDecrypt cipher.BlockMode

	hashKey []byte
}

// NewCrypto creates a context from raw key material: 16-byte AES key,
// hash key, and the two 16-byte direction IVs.
func NewCrypto(cryptoKey, hashKey, serverIV, clientIV []byte) (*Crypto, error) {
	if len(cryptoKey) != aes.BlockSize || len(serverIV) != aes.BlockSize || len(clientIV) != aes.BlockSize {
		return nil, ErrInvalidKeyMaterial
	}
	block, err := aes.NewCipher(cryptoKey)
	if err != nil {
		return nil, err
	}
	return &Crypto{
		clientEncrypt: cipher.NewCBCEncrypter(block, clientIV),
		clientDecrypt: cipher.NewCBCDecrypter(block, clientIV),
		serverEncrypt: cipher.NewCBCEncrypter(block, serverIV),
		serverDecrypt: cipher.NewCBCDecrypter(block, serverIV),
		hashKey:       hashKey,
	}, nil
}

// FromConnectionInfo creates a context from an AuxiliaryStream
// connection-info payload.
func FromConnectionInfo(info *packet.AuxiliaryStreamConnectionInfo) (*Crypto, error) {
	return NewCrypto(info.CryptoKey, info.SignHash, info.ServerIV, info.ClientIV)
}

// EncryptClient encrypts block-aligned client-to-console data, advancing
// the client IV chain.
func (c *Crypto) EncryptClient(plaintext []byte) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]byte, len(plaintext))
	c.clientEncrypt.CryptBlocks(out, plaintext)
	return out
}

// DecryptClient decrypts client-to-console ciphertext, advancing the
// client IV chain.
func (c *Crypto) DecryptClient(ciphertext []byte) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]byte, len(ciphertext))
	c.clientDecrypt.CryptBlocks(out, ciphertext)
	return out
}

// EncryptServer encrypts console-to-client data, advancing the server IV
// chain.
func (c *Crypto) EncryptServer(plaintext []byte) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]byte, len(plaintext))
	c.serverEncrypt.CryptBlocks(out, plaintext)
	return out
}

// DecryptServer decrypts console-to-client ciphertext, advancing the
// server IV chain.
func (c *Crypto) DecryptServer(ciphertext []byte) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]byte, len(ciphertext))
	c.serverDecrypt.CryptBlocks(out, ciphertext)
	return out
}

// Hash computes the HMAC-SHA256 frame trailer.
func (c *Crypto) Hash(data []byte) []byte {
	mac := hmac.New(sha256.New, c.hashKey)
	mac.Write(data)
	return mac.Sum(nil)
}

// Verify reports whether mac is the correct trailer for data.
func (c *Crypto) Verify(data, mac []byte) bool {
	return hmac.Equal(c.Hash(data), mac)
}
