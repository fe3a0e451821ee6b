package security

import (
	"fmt"

	"github.com/tidwall/buntdb"

	"github.com/sloked-project/sloked/cmn"
)

// Store persists CredentialMaster accounts to an embedded buntdb database,
// so accounts survive a server restart without a full external database.
// Kept concrete rather than abstract since there is exactly one storage
// backend.
type Store struct {
	db *buntdb.DB
}

func OpenStore(path string) (*Store, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, cmn.Wrap(err, "security: open credential store")
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func accountKey(name string) string { return "account:" + name }

// Save writes account's current identifier/password/restrictions.
func (s *Store) Save(account *Account) error {
	record := accountRecord{
		Identifier:   account.Identifier(),
		Password:     account.Password(),
		Access:       account.AccessRestrictions().list(),
		Modification: account.ModificationRestrictions().list(),
	}
	encoded, err := record.MarshalMsg(nil)
	if err != nil {
		return cmn.Wrap(err, "security: marshal account record")
	}
	return s.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(accountKey(record.Identifier), string(encoded), nil)
		return err
	})
}

// Names lists every stored account identifier.
func (s *Store) Names() ([]string, error) {
	var names []string
	err := s.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(accountKey("*"), func(key, _ string) bool {
			names = append(names, key[len(accountKey("")):])
			return true
		})
	})
	if err != nil {
		return nil, cmn.Wrap(err, "security: list stored accounts")
	}
	return names, nil
}

// LoadAll restores every stored account onto master, returning how many
// were loaded.
func (s *Store) LoadAll(master *CredentialMaster) (int, error) {
	names, err := s.Names()
	if err != nil {
		return 0, err
	}
	for i, name := range names {
		if _, err := s.Load(master, name); err != nil {
			return i, err
		}
	}
	return len(names), nil
}

// Load restores an account previously Saved under name onto master,
// registering it if it isn't already present.
func (s *Store) Load(master *CredentialMaster, name string) (*Account, error) {
	var raw string
	err := s.db.View(func(tx *buntdb.Tx) error {
		v, err := tx.Get(accountKey(name))
		if err != nil {
			return err
		}
		raw = v
		return nil
	})
	if err == buntdb.ErrNotFound {
		return nil, cmn.Wrap(cmn.ErrUnknownService, fmt.Sprintf("security: no stored account %q", name))
	}
	if err != nil {
		return nil, cmn.Wrap(err, "security: read stored account")
	}
	var record accountRecord
	if _, err := record.UnmarshalMsg([]byte(raw)); err != nil {
		return nil, cmn.Wrap(err, "security: unmarshal account record")
	}
	account, err := master.NewWithPassword(record.Identifier, record.Password)
	if err != nil {
		return nil, err
	}
	access := NewRestrictionFilter()
	for _, p := range record.Access {
		access.Block(p)
	}
	modification := NewRestrictionFilter()
	for _, p := range record.Modification {
		modification.Block(p)
	}
	account.SetAccessRestrictions(access)
	account.SetModificationRestrictions(modification)
	return account, nil
}
