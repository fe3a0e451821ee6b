package security

import (
	"encoding/base64"
	"encoding/binary"
	"sync"

	"github.com/sloked-project/sloked/cmn"
	kgrnet "github.com/sloked-project/sloked/kgr/net"
	slokednet "github.com/sloked-project/sloked/net"
)

// sessionKeySize is the derived key length handed to Crypto.NewCipher for
// challenge-token generation.
const sessionKeySize = 32

// Challenge is the nonce exchanged during login.
type Challenge uint64

// GenerateToken encrypts ch under cipher with a zero IV and base64-encodes
// the result. cipher must already be bound to the account's derived key.
func GenerateToken(cipher slokednet.Cipher, ch Challenge) (string, error) {
	blockSize := cipher.BlockSize()
	if blockSize < 8 {
		return "", cmn.Wrap(cmn.ErrInvalidArgument, "security: cipher block too small for challenge")
	}
	raw := make([]byte, 8, blockSize)
	binary.LittleEndian.PutUint64(raw, uint64(ch))
	if rem := len(raw) % blockSize; rem != 0 {
		raw = append(raw, make([]byte, blockSize-rem)...)
	}
	iv := make([]byte, cipher.IVSize())
	encrypted, err := cipher.Encrypt(raw, iv)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(encrypted), nil
}

// base carries the bits the master and slave authenticators share: the
// account bound after a successful login, and how to derive that account's
// session key.
type base struct {
	crypto   slokednet.Crypto
	provider *CredentialMaster
	salt     string

	mu       sync.Mutex
	account  string
	loggedIn bool
}

func (b *base) isLoggedIn() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loggedIn
}

func (b *base) loggedInAccount() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.account
}

func (b *base) setAccount(name string) {
	b.mu.Lock()
	b.account = name
	b.loggedIn = true
	b.mu.Unlock()
}

func (b *base) logout() {
	b.mu.Lock()
	b.account = ""
	b.loggedIn = false
	b.mu.Unlock()
}

// deriveCipher derives accountName's session key and binds a fresh Cipher
// to it.
func (b *base) deriveCipher(accountName string) (slokednet.Cipher, error) {
	account, err := b.provider.ByName(accountName)
	if err != nil {
		return nil, err
	}
	key, err := account.DeriveKey(sessionKeySize, b.salt)
	if err != nil {
		return nil, err
	}
	return b.crypto.NewCipher(key)
}

// MasterAuthenticator drives the server side of the nonce
// challenge/response handshake and satisfies kgr/net.MasterAuthenticator.
type MasterAuthenticator struct {
	base base

	mu     sync.Mutex
	random slokednet.Random
	nonce  *Challenge
}

func newMasterAuthenticator(crypto slokednet.Crypto, provider *CredentialMaster, salt string) *MasterAuthenticator {
	return &MasterAuthenticator{
		base:   base{crypto: crypto, provider: provider, salt: salt},
		random: crypto.NewRandom(),
	}
}

// InitiateLogin mints a fresh nonce and forgets any login in progress.
// The returned id is always empty: at most one login attempt is tracked
// per connection, so there is nothing for the id to disambiguate.
func (m *MasterAuthenticator) InitiateLogin() (id string, nonce string) {
	raw, err := m.random.Bytes(8)
	var ch Challenge
	if err == nil {
		ch = Challenge(binary.LittleEndian.Uint64(raw))
	}
	m.mu.Lock()
	m.nonce = &ch
	m.mu.Unlock()
	m.base.logout()
	return "", base64.StdEncoding.EncodeToString(raw)
}

// ContinueLogin derives account's expected token for the pending nonce and
// compares it against response.
func (m *MasterAuthenticator) ContinueLogin(account, response string) bool {
	m.mu.Lock()
	nonce := m.nonce
	m.nonce = nil
	m.mu.Unlock()
	if nonce == nil {
		return false
	}
	cipher, err := m.base.deriveCipher(account)
	if err != nil {
		return false
	}
	expected, err := GenerateToken(cipher, *nonce)
	if err != nil || expected != response {
		return false
	}
	m.base.setAccount(account)
	return true
}

// FinalizeLogin completes a successful login.
// Session-key rotation onto the underlying socket is not wired here: the
// kgr/net.MasterAuthenticator interface this satisfies has no socket
// handle to install it on, so FinalizeLogin only confirms the binding that
// ContinueLogin already made.
func (m *MasterAuthenticator) FinalizeLogin(id string) {}

// IsLoggedIn/Account report the bound account, used by masterContext's
// access checks once authenticated.
func (m *MasterAuthenticator) IsLoggedIn() bool { return m.base.isLoggedIn() }
func (m *MasterAuthenticator) Account() string  { return m.base.loggedInAccount() }
func (m *MasterAuthenticator) Logout()          { m.base.logout() }

// SlaveAuthenticator drives the client side of the handshake, producing a
// token for a challenge the master sent.
type SlaveAuthenticator struct {
	base base
}

func newSlaveAuthenticator(crypto slokednet.Crypto, provider *CredentialMaster, salt string) *SlaveAuthenticator {
	return &SlaveAuthenticator{base: base{crypto: crypto, provider: provider, salt: salt}}
}

// InitiateLogin derives keyId's session key and answers nonce with the
// matching token.
func (s *SlaveAuthenticator) InitiateLogin(keyId string, nonce string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(nonce)
	if err != nil {
		return "", cmn.Wrap(err, "security: decode login nonce")
	}
	if len(raw) < 8 {
		return "", cmn.Wrap(cmn.ErrInvalidArgument, "security: short login nonce")
	}
	ch := Challenge(binary.LittleEndian.Uint64(raw))
	s.base.logout()
	cipher, err := s.base.deriveCipher(keyId)
	if err != nil {
		return "", err
	}
	token, err := GenerateToken(cipher, ch)
	if err != nil {
		return "", err
	}
	s.base.setAccount(keyId)
	return token, nil
}

func (s *SlaveAuthenticator) IsLoggedIn() bool { return s.base.isLoggedIn() }
func (s *SlaveAuthenticator) Account() string  { return s.base.loggedInAccount() }
func (s *SlaveAuthenticator) Logout()          { s.base.logout() }

// AuthenticatorFactory mints one MasterAuthenticator per accepted
// connection off a shared CredentialMaster.
type AuthenticatorFactory struct {
	crypto   slokednet.Crypto
	provider *CredentialMaster
	salt     string
}

func NewAuthenticatorFactory(crypto slokednet.Crypto, provider *CredentialMaster, salt string) *AuthenticatorFactory {
	return &AuthenticatorFactory{crypto: crypto, provider: provider, salt: salt}
}

// NewMaster satisfies kgr/net.AuthenticatorFactory.
func (f *AuthenticatorFactory) NewMaster() kgrnet.MasterAuthenticator {
	return newMasterAuthenticator(f.crypto, f.provider, f.salt)
}

// NewSlave mints the client-side counterpart; unlike NewMaster it isn't
// bound to a kgr/net interface since nothing on the slave side drives it
// through Conn's method table the way auth-request/auth-response do on the
// master.
func (f *AuthenticatorFactory) NewSlave() *SlaveAuthenticator {
	return newSlaveAuthenticator(f.crypto, f.provider, f.salt)
}
