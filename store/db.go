// Package store is the bbolt-backed persistence layer matching spec.md
// §6's persisted-state layout: chain info/tip beacon, the UTXO set keyed
// by output pointer, finalized data-request reports keyed by DR pointer,
// the blockchain index (epoch -> block hash), and block/transaction
// bodies keyed by hash. Grounded on the teacher's node/store/db.go: one
// *bolt.DB, one bucket per concern, opened once at startup.
package store

import (
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/witnet-go/core/consensus"
)

var (
	bucketChainInfo = []byte("chain_info")
	bucketBlockIdx  = []byte("block_index_by_epoch")
	bucketBlocks    = []byte("blocks_by_hash")
	bucketUtxo      = []byte("utxo_by_outpoint")
	bucketDrReports = []byte("dr_reports_by_pointer")
)

var chainInfoKey = []byte("tip")

// DB wraps a single bbolt database file holding every consensus-visible
// piece of persisted state (spec.md §6). Keys are byte-stable across the
// methods below, independent of map iteration order, so a store.DB from
// one process can be read by another (spec.md: "Keys must be byte-stable
// so snapshots are portable across implementations").
type DB struct {
	bdb *bolt.DB
}

// Open creates or opens the bbolt file at path, ensuring every bucket
// exists.
func Open(path string) (*DB, error) {
	bdb, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("store: open bbolt: %w", err)
	}
	d := &DB{bdb: bdb}
	if err := bdb.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketChainInfo, bucketBlockIdx, bucketBlocks, bucketUtxo, bucketDrReports} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("create bucket %s: %w", b, err)
			}
		}
		return nil
	}); err != nil {
		_ = bdb.Close()
		return nil, err
	}
	return d, nil
}

// Close releases the underlying bbolt file.
func (d *DB) Close() error {
	if d == nil || d.bdb == nil {
		return nil
	}
	return d.bdb.Close()
}

// PutChainInfo persists the current tip beacon and genesis hash.
func (d *DB) PutChainInfo(info consensus.ChainInfo) error {
	return d.bdb.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketChainInfo).Put(chainInfoKey, encodeChainInfo(info))
	})
}

// GetChainInfo reads back the persisted tip beacon, ok=false if none has
// ever been written (fresh datadir, genesis not yet initialized).
func (d *DB) GetChainInfo() (consensus.ChainInfo, bool, error) {
	var out consensus.ChainInfo
	var ok bool
	err := d.bdb.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketChainInfo).Get(chainInfoKey)
		if v == nil {
			return nil
		}
		info, err := decodeChainInfo(v)
		if err != nil {
			return err
		}
		out, ok = info, true
		return nil
	})
	return out, ok, err
}

// PutBlockHash records that epoch committed blockHash (spec.md §6 "(4)
// the blockchain index as Epoch -> BlockHash").
func (d *DB) PutBlockHash(epoch consensus.Epoch, hash consensus.Hash) error {
	return d.bdb.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBlockIdx).Put(epochKey(epoch), hash.Slice())
	})
}

// GetBlockHash looks up the block hash committed at epoch.
func (d *DB) GetBlockHash(epoch consensus.Epoch) (consensus.Hash, bool, error) {
	var out consensus.Hash
	var ok bool
	err := d.bdb.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketBlockIdx).Get(epochKey(epoch))
		if v == nil {
			return nil
		}
		h, err := hashFromBytes(v)
		if err != nil {
			return err
		}
		out, ok = h, true
		return nil
	})
	return out, ok, err
}

// PutBlockBytes stores a block's canonical wire encoding keyed by its
// hash (spec.md §6 "(5) block and transaction bodies keyed by hash").
func (d *DB) PutBlockBytes(hash consensus.Hash, encoded []byte) error {
	return d.bdb.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBlocks).Put(hash.Slice(), encoded)
	})
}

// GetBlockBytes retrieves a previously stored block's encoding.
func (d *DB) GetBlockBytes(hash consensus.Hash) ([]byte, bool, error) {
	var out []byte
	err := d.bdb.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketBlocks).Get(hash.Slice())
		if v == nil {
			return nil
		}
		out = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, out != nil, nil
}

// PutUTXO persists one unspent output (spec.md §6 "(2) the UTXO set as
// OutputPointer -> (output, inclusion_block_number, confirmed?)").
func (d *DB) PutUTXO(ptr consensus.OutputPointer, entry consensus.UtxoEntry) error {
	return d.bdb.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketUtxo).Put(outpointKey(ptr), encodeUtxoEntry(entry))
	})
}

// DeleteUTXO removes a spent output.
func (d *DB) DeleteUTXO(ptr consensus.OutputPointer) error {
	return d.bdb.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketUtxo).Delete(outpointKey(ptr))
	})
}

// GetUTXO looks up a single unspent output.
func (d *DB) GetUTXO(ptr consensus.OutputPointer) (consensus.UtxoEntry, bool, error) {
	var out consensus.UtxoEntry
	var ok bool
	err := d.bdb.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketUtxo).Get(outpointKey(ptr))
		if v == nil {
			return nil
		}
		e, err := decodeUtxoEntry(v)
		if err != nil {
			return err
		}
		out, ok = e, true
		return nil
	})
	return out, ok, err
}

// LoadUTXOSet reads every persisted UTXO entry into a fresh
// consensus.UnspentOutputsPool, for startup restore.
func (d *DB) LoadUTXOSet() (*consensus.UnspentOutputsPool, error) {
	pool := consensus.NewUnspentOutputsPool()
	err := d.bdb.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketUtxo).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			ptr, err := outpointFromKey(k)
			if err != nil {
				return err
			}
			entry, err := decodeUtxoEntry(v)
			if err != nil {
				return err
			}
			pool.Insert(ptr, entry)
		}
		return nil
	})
	return pool, err
}

// PutDrReport persists a finalized data request's final state, keyed by
// its pointer (spec.md §6 "(3) finalized data-request reports keyed by DR
// pointer").
func (d *DB) PutDrReport(ptr consensus.OutputPointer, report []byte) error {
	return d.bdb.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketDrReports).Put(outpointKey(ptr), report)
	})
}

// GetDrReport retrieves a previously stored report.
func (d *DB) GetDrReport(ptr consensus.OutputPointer) ([]byte, bool, error) {
	var out []byte
	err := d.bdb.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketDrReports).Get(outpointKey(ptr))
		if v == nil {
			return nil
		}
		out = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, out != nil, nil
}
