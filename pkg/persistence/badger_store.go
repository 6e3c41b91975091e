package persistence

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// Key prefixes for BadgerDB storage organization.
const (
	prefixBlock = byte(0x01) // block:<id> -> latest full UpdateV2 snapshot
	prefixRoot  = byte(0x02) // root:<name> -> block id
)

// BadgerStore provides persistent storage for block update snapshots and
// the root-name -> block-id mapping, using BadgerDB for ACID disk
// storage, repurposed to store an opaque update blob instead of JSON
// nodes/edges.
type BadgerStore struct {
	db *badger.DB
}

// BadgerStoreOptions configures the BadgerDB-backed store.
type BadgerStoreOptions struct {
	DataDir    string
	InMemory   bool
	SyncWrites bool
}

// NewBadgerStore opens (or creates) a BadgerStore rooted at dataDir.
func NewBadgerStore(dataDir string) (*BadgerStore, error) {
	return NewBadgerStoreWithOptions(BadgerStoreOptions{DataDir: dataDir})
}

// NewBadgerStoreWithOptions opens a BadgerStore with explicit options,
// applying low-memory tuning so the footprint stays reasonable in
// containerized deployments.
func NewBadgerStoreWithOptions(opts BadgerStoreOptions) (*BadgerStore, error) {
	badgerOpts := badger.DefaultOptions(opts.DataDir).WithLogger(nil)
	if opts.InMemory {
		badgerOpts = badgerOpts.WithInMemory(true)
	}
	if opts.SyncWrites {
		badgerOpts = badgerOpts.WithSyncWrites(true)
	}
	badgerOpts = badgerOpts.
		WithMemTableSize(16 << 20).
		WithValueLogFileSize(64 << 20).
		WithNumMemtables(2).
		WithNumLevelZeroTables(2).
		WithNumLevelZeroTablesStall(4).
		WithValueThreshold(1024).
		WithBlockCacheSize(32 << 20).
		WithIndexCacheSize(16 << 20)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("persistence: failed to open BadgerDB: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// NewBadgerStoreInMemory opens an in-memory BadgerStore, for tests.
func NewBadgerStoreInMemory() (*BadgerStore, error) {
	return NewBadgerStoreWithOptions(BadgerStoreOptions{InMemory: true})
}

func blockKey(id string) []byte {
	return append([]byte{prefixBlock}, []byte(id)...)
}

func rootKey(name string) []byte {
	return append([]byte{prefixRoot}, []byte(name)...)
}

// SaveBlockSnapshot persists the full EncodeStateAsUpdateV2 output for
// blockID, overwriting any previous snapshot.
func (s *BadgerStore) SaveBlockSnapshot(blockID string, update []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(blockKey(blockID), update)
	})
}

// LoadBlockSnapshot returns the last persisted snapshot for blockID, or
// (nil, false) if none exists.
func (s *BadgerStore) LoadBlockSnapshot(blockID string) ([]byte, bool, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(blockKey(blockID))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			data = append([]byte{}, val...)
			return nil
		})
	})
	if err != nil {
		return nil, false, fmt.Errorf("persistence: load block %q: %w", blockID, err)
	}
	return data, data != nil, nil
}

// SaveRoot records that root name addresses blockID.
func (s *BadgerStore) SaveRoot(name, blockID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(rootKey(name), []byte(blockID))
	})
}

// LoadRoot returns the block id registered under a root name.
func (s *BadgerStore) LoadRoot(name string) (string, bool, error) {
	var id string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(rootKey(name))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			id = string(val)
			return nil
		})
	})
	if err != nil {
		return "", false, fmt.Errorf("persistence: load root %q: %w", name, err)
	}
	return id, id != "", nil
}

// AllRoots returns every registered root name -> block id pair.
func (s *BadgerStore) AllRoots() (map[string]string, error) {
	out := make(map[string]string)
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte{prefixRoot}
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			name := string(item.KeyCopy(nil)[1:])
			err := item.Value(func(val []byte) error {
				out[name] = string(val)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("persistence: list roots: %w", err)
	}
	return out, nil
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
