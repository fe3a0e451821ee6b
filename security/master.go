package security

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/sloked-project/sloked/cmn"
	slokednet "github.com/sloked-project/sloked/net"
)

// seedSize is the fixed random-seed length fed into password generation.
const seedSize = 16

// CredentialMaster is the in-process registry of Accounts, each with an
// encrypted random password used only to derive per-connection session
// keys, never transmitted directly.
type CredentialMaster struct {
	crypto slokednet.Crypto
	key    slokednet.Key
	cipher slokednet.Cipher
	random slokednet.Random

	mu       sync.Mutex
	accounts map[string]*Account
	def      *Account
}

// NewCredentialMaster builds a master keyed by key; crypto mints the
// cipher/random used to encrypt stored passwords.
func NewCredentialMaster(crypto slokednet.Crypto, key slokednet.Key) (*CredentialMaster, error) {
	cipher, err := crypto.NewCipher(key)
	if err != nil {
		return nil, cmn.Wrap(err, "security: new credential master cipher")
	}
	return &CredentialMaster{
		crypto:   crypto,
		key:      key,
		cipher:   cipher,
		random:   crypto.NewRandom(),
		accounts: map[string]*Account{},
	}, nil
}

// New creates and registers an account with a freshly randomized password.
func (m *CredentialMaster) New(name string) (*Account, error) {
	if name == "" {
		return nil, cmn.Wrap(cmn.ErrInvalidArgument, "security: account name required")
	}
	m.mu.Lock()
	if _, exists := m.accounts[name]; exists {
		m.mu.Unlock()
		return nil, cmn.Wrap(cmn.ErrNameExists, fmt.Sprintf("security: account %q", name))
	}
	account := newAccount(m, name, "")
	m.accounts[name] = account
	m.mu.Unlock()
	if err := account.RandomizePassword(); err != nil {
		return nil, err
	}
	return account, nil
}

// NewWithPassword creates and registers an account with an explicit
// password, skipping the randomize-on-create step.
func (m *CredentialMaster) NewWithPassword(name, password string) (*Account, error) {
	if name == "" {
		return nil, cmn.Wrap(cmn.ErrInvalidArgument, "security: account name required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.accounts[name]; exists {
		return nil, cmn.Wrap(cmn.ErrNameExists, fmt.Sprintf("security: account %q", name))
	}
	account := newAccount(m, name, password)
	m.accounts[name] = account
	return account, nil
}

// EnableDefaultAccount toggles the anonymous fallback account used when a
// connection never authenticates.
func (m *CredentialMaster) EnableDefaultAccount(enable bool) (*Account, error) {
	if !enable {
		m.mu.Lock()
		m.def = nil
		m.mu.Unlock()
		return nil, nil
	}
	account := newAccount(m, "", "")
	m.mu.Lock()
	m.def = account
	m.mu.Unlock()
	if err := account.RandomizePassword(); err != nil {
		return nil, err
	}
	return account, nil
}

func (m *CredentialMaster) DefaultAccount() *Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.def
}

func (m *CredentialMaster) Has(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.accounts[name]
	return ok
}

func (m *CredentialMaster) ByName(name string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[name]
	if !ok {
		return nil, cmn.Wrap(cmn.ErrUnknownService, fmt.Sprintf("security: account %q", name))
	}
	return account, nil
}

func (m *CredentialMaster) nextSeed() ([]byte, error) {
	return m.random.Bytes(seedSize)
}

// encode/decode pad to block size, AES-CBC-encrypt with a zero IV (the
// password ciphertext never leaves this process, so IV reuse across
// accounts is acceptable), and base64 for storage.
func (m *CredentialMaster) encode(data []byte) (string, error) {
	blockSize := m.cipher.BlockSize()
	padded := append([]byte(nil), data...)
	if rem := len(padded) % blockSize; rem != 0 {
		padded = append(padded, make([]byte, blockSize-rem)...)
	}
	iv := make([]byte, m.cipher.IVSize())
	encrypted, err := m.cipher.Encrypt(padded, iv)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(encrypted), nil
}

func (m *CredentialMaster) decode(encoded string) ([]byte, error) {
	encrypted, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, cmn.Wrap(err, "security: decode stored credential")
	}
	iv := make([]byte, m.cipher.IVSize())
	decrypted, err := m.cipher.Decrypt(encrypted, iv)
	if err != nil {
		return nil, err
	}
	if idx := bytes.IndexByte(decrypted, 0); idx >= 0 {
		decrypted = decrypted[:idx]
	}
	return decrypted, nil
}
