package net

// Key holds a KDF-derived symmetric secret and the id of the engine that
// produced it.
type Key interface {
	Bytes() []byte
	Engine() string
}

// Cipher is a block cipher bound to one Key. BlockSize/IVSize govern frame
// padding; Encrypt/Decrypt never change the length they're handed (callers
// pad to BlockSize beforehand).
type Cipher interface {
	BlockSize() int
	IVSize() int
	Encrypt(data, iv []byte) ([]byte, error)
	Decrypt(data, iv []byte) ([]byte, error)
}

// Random yields uniformly random bytes, e.g. for frame IVs and nonces.
type Random interface {
	Bytes(n int) ([]byte, error)
}

// Crypto is the engine that mints Ciphers, Randoms, and derives Keys from
// passwords; security.Crypto is the concrete implementation wired to
// golang.org/x/crypto.
type Crypto interface {
	NewCipher(key Key) (Cipher, error)
	NewRandom() Random
	DeriveKey(password string, salt []byte, length int) (Key, error)
}
