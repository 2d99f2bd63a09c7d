package media

import (
	"context"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// blob is the on-disk encoding of a [Clip].
type blob struct {
	SampleRate int       `msgpack:"rate"`
	Samples    []float64 `msgpack:"samples"`
}

// BadgerStore is a [Store] backed by a local Badger key-value database.
// Clips are msgpack-encoded; Badger handles compression and crash recovery.
type BadgerStore struct {
	db *badger.DB
}

// Compile-time interface check.
var _ Store = (*BadgerStore)(nil)

// OpenBadgerStore opens (creating if needed) a Badger database at dir.
// Badger's own logger is silenced; the pipeline logs storage failures at the
// call sites where they carry context.
func OpenBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("media: open badger at %q: %w", dir, err)
	}
	return &BadgerStore{db: db}, nil
}

// Close releases the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// Put stores clip under ref, overwriting any previous clip.
func (s *BadgerStore) Put(_ context.Context, ref string, clip Clip) error {
	data, err := msgpack.Marshal(blob{SampleRate: clip.SampleRate, Samples: clip.Samples})
	if err != nil {
		return fmt.Errorf("media: encode clip %q: %w", ref, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(ref), data)
	})
	if err != nil {
		return fmt.Errorf("media: put %q: %w", ref, err)
	}
	return nil
}

// Get returns the clip stored under ref, or [ErrNotFound].
func (s *BadgerStore) Get(_ context.Context, ref string) (Clip, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(ref))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return Clip{}, ErrNotFound
		}
		return Clip{}, fmt.Errorf("media: get %q: %w", ref, err)
	}

	var b blob
	if err := msgpack.Unmarshal(data, &b); err != nil {
		return Clip{}, fmt.Errorf("media: decode clip %q: %w", ref, err)
	}
	return Clip{Samples: b.Samples, SampleRate: b.SampleRate}, nil
}
