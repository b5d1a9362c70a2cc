// Package keyring keeps named axine keys in a bbolt database so front-ends can
// refer to a key by name instead of passing hex around.
package keyring

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"axine-go/pkg/key"

	"go.etcd.io/bbolt"
)

const keysBucket = "keys"

var (
	ErrKeyNotFound = errors.New("keyring: no key with this name")
	ErrKeyExists   = errors.New("keyring: a key with this name already exists")
	ErrInvalidName = errors.New("keyring: invalid key name")
)

// Entry is one stored key. The key is stored in its hex text form.
type Entry struct {
	Name        string    `json:"-"`
	Key         key.Key   `json:"key"`
	Fingerprint string    `json:"fingerprint"`
	CreatedAt   time.Time `json:"created_at"`
}

type Keyring struct {
	db  *bbolt.DB
	now func() time.Time
}

// Open opens or creates the keyring database at path.
func Open(path string) (*Keyring, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("keyring: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(keysBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("keyring: init %s: %w", path, err)
	}
	return &Keyring{db: db, now: time.Now}, nil
}

func (r *Keyring) Close() error { return r.db.Close() }

func validName(name string) error {
	if name == "" || len(name) > 128 || strings.TrimSpace(name) != name {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Put stores k under name. Existing names are not overwritten.
func (r *Keyring) Put(name string, k key.Key) (*Entry, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	if k == 0 {
		return nil, key.ErrWeakKey
	}
	e := &Entry{Name: name, Key: k, Fingerprint: k.Fingerprint(), CreatedAt: r.now().UTC()}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	err = r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(keysBucket))
		if b.Get([]byte(name)) != nil {
			return fmt.Errorf("%w: %q", ErrKeyExists, name)
		}
		return b.Put([]byte(name), data)
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Get returns the key stored under name.
func (r *Keyring) Get(name string) (*Entry, error) {
	var e *Entry
	err := r.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(keysBucket)).Get([]byte(name))
		if data == nil {
			return fmt.Errorf("%w: %q", ErrKeyNotFound, name)
		}
		var err error
		e, err = decode(name, data)
		return err
	})
	return e, err
}

// List returns all entries sorted by name.
func (r *Keyring) List() ([]Entry, error) {
	var entries []Entry
	err := r.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(keysBucket)).ForEach(func(name, data []byte) error {
			e, err := decode(string(name), data)
			if err != nil {
				return err
			}
			entries = append(entries, *e)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Delete removes name from the keyring.
func (r *Keyring) Delete(name string) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(keysBucket))
		if b.Get([]byte(name)) == nil {
			return fmt.Errorf("%w: %q", ErrKeyNotFound, name)
		}
		return b.Delete([]byte(name))
	})
}

func decode(name string, data []byte) (*Entry, error) {
	e := &Entry{Name: name}
	if err := json.Unmarshal(data, e); err != nil {
		return nil, fmt.Errorf("keyring: corrupt entry %q: %w", name, err)
	}
	return e, nil
}
