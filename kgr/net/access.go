package net

// AccessControl gates which services a peer may connect to or bind,
// queried by name before a connect/bind request reaches the named server.
// The concrete restriction lists live in security.RestrictionFilter.
type AccessControl interface {
	IsAccessAllowed(service string) bool
	IsModificationAllowed(service string) bool
}

type allowAll struct{}

func (allowAll) IsAccessAllowed(string) bool       { return true }
func (allowAll) IsModificationAllowed(string) bool { return true }

// AllowAll permits every service, used where no restriction authority has
// been wired in yet.
var AllowAll AccessControl = allowAll{}

// MasterAuthenticator drives one connection's login handshake, implemented
// concretely by security.MasterAuthenticator (C11).
type MasterAuthenticator interface {
	InitiateLogin() (id string, nonce string)
	ContinueLogin(id, response string) bool
	FinalizeLogin(id string)
}

// AuthenticatorFactory mints a MasterAuthenticator per accepted connection.
type AuthenticatorFactory interface {
	NewMaster() MasterAuthenticator
}
