// Package crypto implements the SmartGlass session cryptography: ECDH key
// agreement against the console's certificate key, derivation of the three
// session sub-keys, AES-128-CBC payload encryption and HMAC-SHA256 packet
// authentication.
//
// Key derivation, per the protocol:
//
//  1. ECDH shared secret from our ephemeral key and the console's key
//  2. Salted by prepending and appending two fixed 8-byte salts
//  3. Hashed with SHA-512
//  4. Sliced: bytes 0..16 encrypt key, 16..32 IV key, 32..64 hash key
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
)

// PublicKeyType identifies the elliptic curve negotiated for the session.
// The numeric values are the ones carried in the ConnectRequest packet.
type PublicKeyType uint16

const (
	PublicKeyTypeP256    PublicKeyType = 0x0000
	PublicKeyTypeP384    PublicKeyType = 0x0001
	PublicKeyTypeP521    PublicKeyType = 0x0002
	PublicKeyTypeDefault PublicKeyType = 0xFFFF
)

// String returns the curve name.
func (t PublicKeyType) String() string {
	switch t {
	case PublicKeyTypeP256:
		return "EC_DH_P256"
	case PublicKeyTypeP384:
		return "EC_DH_P384"
	case PublicKeyTypeP521:
		return "EC_DH_P521"
	case PublicKeyTypeDefault:
		return "Default"
	default:
		return fmt.Sprintf("PublicKeyType(0x%04x)", uint16(t))
	}
}

// Curve returns the ecdh curve for the key type.
func (t PublicKeyType) Curve() ecdh.Curve {
	switch t {
	case PublicKeyTypeP384:
		return ecdh.P384()
	case PublicKeyTypeP521:
		return ecdh.P521()
	default:
		return ecdh.P256()
	}
}

// PublicKeySize returns the size of the public key field carried in a
// ConnectRequest (uncompressed point without the 0x04 prefix byte).
func (t PublicKeyType) PublicKeySize() int {
	switch t {
	case PublicKeyTypeP384:
		return 0x60
	case PublicKeyTypeP521:
		return 0x84
	default:
		return 0x40
	}
}

// Uncompressed point sizes, prefix byte included.
const (
	pointSizeP256 = 0x41
	pointSizeP384 = 0x61
	pointSizeP521 = 0x85
)

const (
	// BlockSize is the AES block size used throughout the protocol.
	BlockSize = 16

	// HashSize is the size of the HMAC-SHA256 trailer on protected packets.
	HashSize = 32
)

// KDF salts applied to the ECDH shared secret before hashing.
var (
	kdfSaltPrepend = []byte{0xD6, 0x37, 0xF1, 0xAA, 0xE2, 0xF0, 0x41, 0x8C}
	kdfSaltAppend  = []byte{0xA8, 0xF8, 0x1A, 0x57, 0x4E, 0x22, 0x8A, 0xB7}
)

// Context holds the derived key material for one console session. All
// fields are set at construction and never mutated, so a Context may be
// shared between the send and receive paths without locking.
type Context struct {
	encryptKey []byte // 16 B, AES-128-CBC
	ivKey      []byte // 16 B, AES-ECB IV derivation
	hashKey    []byte // 32 B, HMAC-SHA256

	pubKeyType  PublicKeyType
	pubKeyBytes []byte // uncompressed point without the 0x04 prefix
	foreignKey  *ecdh.PublicKey
}

// FromPeerPublicKey creates a session context from the console's public
// key point (uncompressed, 0x04 prefix included). The curve is inferred
// from the point length.
func FromPeerPublicKey(foreignPublicKey []byte) (*Context, error) {
	var keyType PublicKeyType
	switch len(foreignPublicKey) {
	case pointSizeP256:
		keyType = PublicKeyTypeP256
	case pointSizeP384:
		keyType = PublicKeyTypeP384
	case pointSizeP521:
		keyType = PublicKeyTypeP521
	default:
		return nil, ErrInvalidPublicKeyLength
	}
	return FromPeerPublicKeyWithType(foreignPublicKey, keyType)
}

// FromPeerPublicKeyWithType creates a session context with an explicit
// curve hint instead of inferring it from the key length.
func FromPeerPublicKeyWithType(foreignPublicKey []byte, keyType PublicKeyType) (*Context, error) {
	curve := keyType.Curve()

	foreign, err := curve.NewPublicKey(foreignPublicKey)
	if err != nil {
		return nil, fmt.Errorf("crypto: parsing foreign public key: %w", err)
	}

	private, err := curve.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("crypto: generating ephemeral key: %w", err)
	}

	secret, err := private.ECDH(foreign)
	if err != nil {
		return nil, fmt.Errorf("crypto: ECDH agreement: %w", err)
	}

	ctx := newContext(deriveKeys(secret))
	ctx.pubKeyType = keyType
	ctx.pubKeyBytes = private.PublicKey().Bytes()[1:]
	ctx.foreignKey = foreign
	return ctx, nil
}

// FromECDHKey creates a session context directly from an already-parsed
// console key, as recovered from the discovery-response certificate.
func FromECDHKey(foreign *ecdh.PublicKey) (*Context, error) {
	return FromPeerPublicKey(foreign.Bytes())
}

// FromSharedSecret installs the three sub-keys from a pre-expanded 64-byte
// secret, bypassing ECDH. Used by offline packet re-decryption tooling and
// by tests.
func FromSharedSecret(secret []byte) (*Context, error) {
	if len(secret) != 64 {
		return nil, ErrInvalidSharedSecret
	}
	ctx := newContext(secret)
	ctx.pubKeyType = PublicKeyTypeP256
	ctx.pubKeyBytes = make([]byte, PublicKeyTypeP256.PublicKeySize())
	return ctx, nil
}

func newContext(expanded []byte) *Context {
	return &Context{
		encryptKey: expanded[0:16],
		ivKey:      expanded[16:32],
		hashKey:    expanded[32:64],
	}
}

// deriveKeys salts and hashes the ECDH shared secret into the 64-byte
// expanded secret the sub-keys are sliced from.
func deriveKeys(secret []byte) []byte {
	salted := make([]byte, 0, len(kdfSaltPrepend)+len(secret)+len(kdfSaltAppend))
	salted = append(salted, kdfSaltPrepend...)
	salted = append(salted, secret...)
	salted = append(salted, kdfSaltAppend...)
	sum := sha512.Sum512(salted)
	return sum[:]
}

// PublicKeyType returns the negotiated curve identifier.
func (c *Context) PublicKeyType() PublicKeyType {
	return c.pubKeyType
}

// PublicKeyBytes returns our ephemeral public key as carried in the
// ConnectRequest: the uncompressed point without its 0x04 prefix byte.
func (c *Context) PublicKeyBytes() []byte {
	return c.pubKeyBytes
}

// ForeignPublicKey returns the console key the context was built from, or
// nil for contexts created via FromSharedSecret.
func (c *Context) ForeignPublicKey() *ecdh.PublicKey {
	return c.foreignKey
}

// GenerateIV derives an IV from seed via AES-ECB with the IV key. Without
// a seed it returns 16 random bytes.
func (c *Context) GenerateIV(seed []byte) []byte {
	iv := make([]byte, BlockSize)
	if len(seed) == 0 {
		if _, err := rand.Read(iv); err != nil {
			panic(fmt.Sprintf("crypto: reading random IV: %v", err))
		}
		return iv
	}
	block, err := aes.NewCipher(c.ivKey)
	if err != nil {
		panic(fmt.Sprintf("crypto: creating IV cipher: %v", err))
	}
	// Single-block ECB. Seeds are always one AES block (the first 16
	// header bytes of a Message packet).
	block.Encrypt(iv, seed[:BlockSize])
	return iv
}

// Encrypt encrypts plaintext with AES-128-CBC. No padding is applied;
// input must be block-aligned. A nil IV means an all-zero IV.
func (c *Context) Encrypt(iv, plaintext []byte) ([]byte, error) {
	return c.crypt(iv, plaintext, true)
}

// Decrypt decrypts ciphertext with AES-128-CBC. No padding is removed.
func (c *Context) Decrypt(iv, ciphertext []byte) ([]byte, error) {
	return c.crypt(iv, ciphertext, false)
}

func (c *Context) crypt(iv, data []byte, encrypt bool) ([]byte, error) {
	if len(data)%BlockSize != 0 {
		return nil, ErrUnalignedData
	}
	if iv == nil {
		iv = make([]byte, BlockSize)
	}
	block, err := aes.NewCipher(c.encryptKey)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(data))
	if encrypt {
		cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, data)
	} else {
		cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, data)
	}
	return out, nil
}

// Hash computes the HMAC-SHA256 trailer over data.
func (c *Context) Hash(data []byte) []byte {
	mac := hmac.New(sha256.New, c.hashKey)
	mac.Write(data)
	return mac.Sum(nil)
}

// Verify reports whether mac is the correct HMAC-SHA256 of data. The
// comparison is constant time.
func (c *Context) Verify(data, mac []byte) bool {
	return hmac.Equal(c.Hash(data), mac)
}
