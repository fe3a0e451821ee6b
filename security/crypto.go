// Package security implements account credentials, login
// challenge/response, and path-based access restrictions.
package security

import (
	stdcrypto "crypto/aes"
	"crypto/cipher"
	cryptorand "crypto/rand"

	"golang.org/x/crypto/pbkdf2"

	"golang.org/x/crypto/sha3"

	"github.com/sloked-project/sloked/cmn"
	"github.com/sloked-project/sloked/cmn/config"
	slokednet "github.com/sloked-project/sloked/net"
)

// pbkdf2Iterations is the cost factor for DeriveKey; AES itself has no
// ecosystem alternative worth reaching for (every idiomatic Go AES user
// goes through crypto/aes -- justified stdlib use, noted in DESIGN.md), but
// key stretching is delegated to golang.org/x/crypto/pbkdf2 rather than a
// hand-rolled loop.
const pbkdf2Iterations = 4096

// Key is a KDF-derived AES key, satisfying net.Key.
type Key struct {
	bytes  []byte
	engine string
}

func NewKey(raw []byte, engine string) Key { return Key{bytes: raw, engine: engine} }

func (k Key) Bytes() []byte  { return k.bytes }
func (k Key) Engine() string { return k.engine }

// aesCipher is an AES-CBC block cipher: Encrypt expects input padded to
// BlockSize; Decrypt returns the padded cleartext for the caller to trim.
type aesCipher struct {
	block cipher.Block
}

func newAESCipher(key Key) (*aesCipher, error) {
	block, err := stdcrypto.NewCipher(key.Bytes())
	if err != nil {
		return nil, cmn.Wrap(err, "security: new AES cipher")
	}
	return &aesCipher{block: block}, nil
}

func (c *aesCipher) BlockSize() int { return c.block.BlockSize() }
func (c *aesCipher) IVSize() int    { return c.block.BlockSize() }

func (c *aesCipher) Encrypt(data, iv []byte) ([]byte, error) {
	if len(data)%c.block.BlockSize() != 0 {
		return nil, cmn.Wrap(cmn.ErrInvalidArgument, "security: plaintext not block-aligned")
	}
	out := make([]byte, len(data))
	cipher.NewCBCEncrypter(c.block, iv).CryptBlocks(out, data)
	return out, nil
}

func (c *aesCipher) Decrypt(data, iv []byte) ([]byte, error) {
	if len(data)%c.block.BlockSize() != 0 {
		return nil, cmn.Wrap(cmn.ErrInvalidArgument, "security: ciphertext not block-aligned")
	}
	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(c.block, iv).CryptBlocks(out, data)
	return out, nil
}

// secureRandom draws bytes from crypto/rand -- the one place this package
// uses the standard library for a concern with no better-fit ecosystem
// replacement: every Go TLS/crypto library (including golang.org/x/crypto
// itself) sources its randomness from crypto/rand rather than reimplementing
// a CSPRNG.
type secureRandom struct{}

func (secureRandom) Bytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := cryptorand.Read(buf); err != nil {
		return nil, cmn.Wrap(err, "security: read random bytes")
	}
	return buf, nil
}

// Crypto is the concrete slokednet.Crypto engine: AES-CBC ciphers over
// PBKDF2-stretched keys.
type Crypto struct{}

func NewCrypto() Crypto { return Crypto{} }

func (Crypto) NewCipher(key slokednet.Key) (slokednet.Cipher, error) {
	k, ok := key.(Key)
	if !ok {
		k = NewKey(key.Bytes(), key.Engine())
	}
	return newAESCipher(k)
}

func (Crypto) NewRandom() slokednet.Random { return secureRandom{} }

// DeriveKey stretches password with PBKDF2-HMAC-SHA3-256, the way
// Account::DeriveKey derives a per-connection session key from a stored
// password and a per-authenticator salt. An empty salt falls back to the
// process-wide configured one.
func (Crypto) DeriveKey(password string, salt []byte, length int) (slokednet.Key, error) {
	if len(salt) == 0 {
		salt = []byte(config.GCO.Get().KDFSalt)
	}
	raw := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, length, sha3.New256)
	return NewKey(raw, "aes-cbc"), nil
}
