// Package wal is an optional write-ahead log of coordinator namespace
// mutations, replayed on startup to rebuild the namespace tree. It
// is enrichment on top of the spec's in-memory design, not a consistency
// mechanism: a coordinator that never had a WAL configured behaves exactly
// as the spec describes (all state lost on restart).
//
// It is grounded on the teacher's bbolt-backed store (one bucket, JSON
// values) but append-only and keyed by a monotonic sequence number instead
// of an entity ID, mirroring the shape of a Command{Op, Data} record
// without pulling in a consensus library to drive it.
package wal

import (
	"encoding/binary"
	"encoding/json"

	bolt "go.etcd.io/bbolt"
)

var bucketMutations = []byte("mutations")

// Record is one logged namespace mutation.
type Record struct {
	Seq  uint64
	Op   string
	Data json.RawMessage
}

// WAL is a single append-only bbolt-backed log.
type WAL struct {
	db *bolt.DB
}

// Open opens (creating if necessary) a WAL at path.
func Open(path string) (*WAL, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketMutations)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &WAL{db: db}, nil
}

// Close closes the underlying database.
func (w *WAL) Close() error { return w.db.Close() }

// Append records one mutation. op names the coordinator operation (e.g.
// "Mkdir", "Move"); payload is marshaled to JSON.
func (w *WAL) Append(op string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return w.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketMutations)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		rec := Record{Seq: seq, Op: op, Data: data}
		recData, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return b.Put(seqKey(seq), recData)
	})
}

// Replay calls apply, in sequence order, for every record logged so far.
func (w *WAL) Replay(apply func(op string, data json.RawMessage) error) error {
	return w.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketMutations)
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			if err := apply(rec.Op, rec.Data); err != nil {
				return err
			}
		}
		return nil
	})
}

func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
