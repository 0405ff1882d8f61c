package learned

import (
	"context"
	"encoding/json"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
)

// badgerPrefix namespaces learned entries inside the database.
const badgerPrefix = "learned:"

var _ Backend = (*BadgerBackend)(nil)

// BadgerBackend stores one key per misspelling ("learned:<key>") with a JSON
// encoded [Entry] as value. Save replaces every learned key in a single
// transaction.
type BadgerBackend struct {
	db *badger.DB
}

// OpenBadger opens (or creates) a Badger database in dir. An empty dir opens
// an in-memory database, which is useful for tests.
func OpenBadger(dir string) (*BadgerBackend, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("learned: open badger %q: %w", dir, err)
	}
	return &BadgerBackend{db: db}, nil
}

// Close releases the database.
func (b *BadgerBackend) Close() error {
	return b.db.Close()
}

// Load implements [Backend].
func (b *BadgerBackend) Load(ctx context.Context) (map[string]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries := map[string]Entry{}
	prefix := []byte(badgerPrefix)
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := string(item.Key()[len(prefix):])
			err := item.Value(func(val []byte) error {
				var e Entry
				if err := json.Unmarshal(val, &e); err != nil {
					return fmt.Errorf("decode %q: %w", key, err)
				}
				entries[key] = e
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("learned: badger load: %w", err)
	}
	return entries, nil
}

// Save implements [Backend].
func (b *BadgerBackend) Save(ctx context.Context, entries map[string]Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	prefix := []byte(badgerPrefix)
	err := b.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		var stale [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			stale = append(stale, it.Item().KeyCopy(nil))
		}
		it.Close()

		for _, k := range stale {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		for k, e := range entries {
			val, err := json.Marshal(e)
			if err != nil {
				return fmt.Errorf("encode %q: %w", k, err)
			}
			if err := txn.Set([]byte(badgerPrefix+k), val); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("learned: badger save: %w", err)
	}
	return nil
}
