package memo

import (
	"encoding/binary"
	"hash/maphash"
	"sync"

	"github.com/2x3systems/maxclique/goclique"
	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
)

// NewLSMTable returns a table backed by a badger LSM store, allowing state spaces larger than RAM.
//
// If pathname is empty the store is held in memory.  Otherwise any entries left in pathname by a previous
// search are dropped, since keys do not identify the graph they were computed against.
func NewLSMTable(pathname string) (Table, error) {
	dbOpts := badger.DefaultOptions(pathname)
	dbOpts.DetectConflicts = false // values for a key are identical so conflicts don't matter
	dbOpts.Logger = nil
	dbOpts.MetricsEnabled = false
	dbOpts.NumVersionsToKeep = 1
	dbOpts.SyncWrites = false
	dbOpts.MemTableSize = 16 << 20
	dbOpts.BlockCacheSize = 32 << 20
	if len(pathname) == 0 {
		dbOpts.InMemory = true
	}

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, errors.Wrap(err, "open memo lsm")
	}
	if !dbOpts.InMemory {
		if err = db.DropAll(); err != nil {
			db.Close()
			return nil, errors.Wrap(err, "reset memo lsm")
		}
	}

	return &lsmTable{
		db:   db,
		seed: maphash.MakeSeed(),
	}, nil
}

type lsmTable struct {
	counters
	db      *badger.DB
	seed    maphash.Seed
	storeMu [numShards]sync.Mutex // serializes check-then-set per key stripe
}

func (tbl *lsmTable) LookupOrCompute(key StateKey, compute ComputeFunc) (goclique.Clique, error) {
	K, found, err := tbl.lookup([]byte(key))
	if err != nil {
		return nil, err
	}
	if found {
		tbl.hits.Add(1)
		return K, nil
	}

	tbl.misses.Add(1)
	K, err = compute()
	if err != nil {
		return nil, err
	}

	mu := &tbl.storeMu[maphash.String(tbl.seed, string(key))%numShards]
	mu.Lock()
	defer mu.Unlock()

	err = tbl.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err == nil {
			return item.Value(func(val []byte) error {
				K, err = decodeClique(val)
				return err
			})
		} else if err == badger.ErrKeyNotFound {
			tbl.stores.Add(1)
			return txn.Set([]byte(key), appendClique(nil, K))
		}
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "memo lsm store")
	}
	return K, nil
}

func (tbl *lsmTable) lookup(key []byte) (K goclique.Clique, found bool, err error) {
	err = tbl.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return nil
		} else if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			K, err = decodeClique(val)
			return err
		})
	})
	if err != nil {
		return nil, false, errors.Wrap(err, "memo lsm lookup")
	}
	return K, found, nil
}

func (tbl *lsmTable) Close() error {
	if tbl.db == nil {
		return nil
	}
	err := tbl.db.Close()
	tbl.db = nil
	return err
}

// appendClique encodes K as a uvarint count followed by uvarint ids.
func appendClique(dst []byte, K goclique.Clique) []byte {
	dst = binary.AppendUvarint(dst, uint64(len(K)))
	for _, v := range K {
		dst = binary.AppendUvarint(dst, uint64(v))
	}
	return dst
}

func decodeClique(in []byte) (goclique.Clique, error) {
	count, n := binary.Uvarint(in)
	if n <= 0 || count > uint64(len(in)) {
		return nil, errors.New("memo lsm: corrupt clique encoding")
	}
	in = in[n:]
	K := make(goclique.Clique, count)
	for i := range K {
		v, n := binary.Uvarint(in)
		if n <= 0 {
			return nil, errors.New("memo lsm: corrupt clique encoding")
		}
		K[i] = goclique.VtxID(v)
		in = in[n:]
	}
	return K, nil
}
