// Package credtoken mints portable, inspectable session tokens for
// accounts held by a security.CredentialMaster. A token is a signed JWT
// whose HMAC key is derived from the account's current password, so a
// password rotation implicitly revokes every token minted before it --
// the same property the RPC handshake gets from re-deriving its session
// key on every login.
package credtoken

import (
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/sloked-project/sloked/cmn"
	"github.com/sloked-project/sloked/security"
)

// signingKeySize is the derived HMAC-SHA256 key length.
const signingKeySize = 32

// Issuer mints and verifies tokens against one credential master.
type Issuer struct {
	master *security.CredentialMaster
	salt   string
	ttl    time.Duration
}

// NewIssuer builds an Issuer whose keys are salted with salt (kept
// distinct from the RPC authenticator's salt so a session token can never
// double as a login token). Tokens expire after ttl.
func NewIssuer(master *security.CredentialMaster, salt string, ttl time.Duration) *Issuer {
	return &Issuer{master: master, salt: salt, ttl: ttl}
}

type claims struct {
	jwt.RegisteredClaims
	Restricted bool `json:"restricted,omitempty"`
}

// Issue mints a token for the named account.
func (i *Issuer) Issue(name string) (string, error) {
	account, err := i.master.ByName(name)
	if err != nil {
		return "", err
	}
	key, err := account.DeriveKey(signingKeySize, i.salt)
	if err != nil {
		return "", err
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.Identifier(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		Restricted: account.AccessRestrictions() != nil,
	})
	return token.SignedString(key.Bytes())
}

// Verify checks sig and expiry, returning the account the token was
// minted for. A token minted before the account's password rotated fails
// verification, since the signing key is derived from the password.
func (i *Issuer) Verify(tokenString string) (*security.Account, error) {
	var account *security.Account
	parsed, err := jwt.ParseWithClaims(tokenString, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, cmn.Wrapf(cmn.ErrNotAuthenticated, "credtoken: unexpected signing method %v", t.Header["alg"])
		}
		c, ok := t.Claims.(*claims)
		if !ok || c.Subject == "" {
			return nil, cmn.Wrap(cmn.ErrNotAuthenticated, "credtoken: missing subject")
		}
		var err error
		account, err = i.master.ByName(c.Subject)
		if err != nil {
			return nil, err
		}
		key, err := account.DeriveKey(signingKeySize, i.salt)
		if err != nil {
			return nil, err
		}
		return key.Bytes(), nil
	})
	if err != nil {
		return nil, cmn.Wrap(cmn.ErrNotAuthenticated, err.Error())
	}
	if !parsed.Valid {
		return nil, cmn.Wrap(cmn.ErrNotAuthenticated, "credtoken: invalid token")
	}
	return account, nil
}
