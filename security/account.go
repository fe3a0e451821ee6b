package security

import (
	"strconv"
	"strings"
	"sync"

	slokednet "github.com/sloked-project/sloked/net"
)

// Watcher is notified whenever an Account's password or restrictions
// change.
type Watcher func()

// Account is an identity with a password (used only as DeriveKey input,
// never compared directly) and two
// restriction lists gating which service paths it may reach.
type Account struct {
	master *CredentialMaster

	mu           sync.Mutex
	identifier   string
	password     string
	access       *RestrictionFilter
	modification *RestrictionFilter
	watchers     map[int]Watcher
	nextWatcher  int
}

func newAccount(master *CredentialMaster, identifier, password string) *Account {
	return &Account{
		master:       master,
		identifier:   identifier,
		password:     password,
		access:       NewRestrictionFilter(),
		modification: NewRestrictionFilter(),
		watchers:     map[int]Watcher{},
	}
}

func (a *Account) Identifier() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.identifier
}

func (a *Account) SetPassword(password string) {
	a.mu.Lock()
	a.password = password
	a.mu.Unlock()
	a.emit()
}

// RandomizePassword replaces the password with one derived from a fresh
// random seed, as happens on account creation.
func (a *Account) RandomizePassword() error {
	seed, err := a.master.nextSeed()
	if err != nil {
		return err
	}
	parts := make([]string, len(seed))
	for i, b := range seed {
		parts[i] = strconv.Itoa(int(b))
	}
	plain := strings.Join(parts, ":") + "/" + a.Identifier()
	encoded, err := a.master.encode([]byte(plain))
	if err != nil {
		return err
	}
	a.SetPassword(encoded)
	return nil
}

func (a *Account) Password() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.password
}

// DeriveKey derives a session key of length bytes from this account's
// password, salted per-authenticator.
func (a *Account) DeriveKey(length int, salt string) (slokednet.Key, error) {
	a.mu.Lock()
	password := a.password
	a.mu.Unlock()
	return a.master.crypto.DeriveKey(password, []byte(salt), length)
}

func (a *Account) AccessRestrictions() *RestrictionFilter {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.access
}

func (a *Account) ModificationRestrictions() *RestrictionFilter {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.modification
}

func (a *Account) SetAccessRestrictions(f *RestrictionFilter) {
	a.mu.Lock()
	a.access = f
	a.mu.Unlock()
}

func (a *Account) SetModificationRestrictions(f *RestrictionFilter) {
	a.mu.Lock()
	a.modification = f
	a.mu.Unlock()
}

// IsAccessAllowed/IsModificationAllowed satisfy kgr/net.AccessControl,
// letting a master connection gate "connect"/"bind" by the logged-in
// Account's restriction lists.
func (a *Account) IsAccessAllowed(service string) bool {
	return !a.AccessRestrictions().Blocks(service)
}

func (a *Account) IsModificationAllowed(service string) bool {
	return !a.ModificationRestrictions().Blocks(service)
}

// Watch registers watcher to fire on every password/restriction change;
// the returned func detaches it.
func (a *Account) Watch(watcher Watcher) func() {
	a.mu.Lock()
	id := a.nextWatcher
	a.nextWatcher++
	a.watchers[id] = watcher
	a.mu.Unlock()
	return func() {
		a.mu.Lock()
		delete(a.watchers, id)
		a.mu.Unlock()
	}
}

func (a *Account) emit() {
	a.mu.Lock()
	watchers := make([]Watcher, 0, len(a.watchers))
	for _, w := range a.watchers {
		watchers = append(watchers, w)
	}
	a.mu.Unlock()
	for _, w := range watchers {
		w()
	}
}
