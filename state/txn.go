// Package state provides Txn, a buffered write overlay over a storage.KV.
// Writes stay in an ordered journal until Commit; Snapshot/RevertToSnapshot
// give the gateway its all-or-nothing failure semantics.
package state

import (
	"github.com/xgr-network/xgr-keymanager/storage"
)

type journalEntry struct {
	key    string
	value  []byte
	delete bool
}

// Txn is not safe for concurrent use; execution is single-threaded per
// call tree.
type Txn struct {
	kv      storage.KV
	journal []journalEntry
}

func NewTxn(kv storage.KV) *Txn {
	return &Txn{kv: kv}
}

// Get returns the latest journalled value for key, falling back to the
// underlying store.
func (t *Txn) Get(key []byte) ([]byte, bool, error) {
	for i := len(t.journal) - 1; i >= 0; i-- {
		if t.journal[i].key == string(key) {
			if t.journal[i].delete {
				return nil, false, nil
			}

			return t.journal[i].value, true, nil
		}
	}

	return t.kv.Get(key)
}

func (t *Txn) Set(key, value []byte) {
	v := make([]byte, len(value))
	copy(v, value)

	t.journal = append(t.journal, journalEntry{key: string(key), value: v})
}

func (t *Txn) Delete(key []byte) {
	t.journal = append(t.journal, journalEntry{key: string(key), delete: true})
}

// Snapshot marks the current journal position.
func (t *Txn) Snapshot() int {
	return len(t.journal)
}

// RevertToSnapshot discards every write made since the snapshot was taken.
func (t *Txn) RevertToSnapshot(snapshot int) {
	if snapshot < 0 || snapshot > len(t.journal) {
		return
	}

	t.journal = t.journal[:snapshot]
}

// Commit flushes the journal to the underlying store in one write batch
// and resets the journal.
func (t *Txn) Commit() error {
	if len(t.journal) == 0 {
		return nil
	}

	batch := t.kv.NewBatch()

	// later journal entries shadow earlier ones for the same key
	final := map[string]int{}
	for i, e := range t.journal {
		final[e.key] = i
	}

	for i, e := range t.journal {
		if final[e.key] != i {
			continue
		}

		if e.delete {
			batch.Delete([]byte(e.key))
		} else {
			batch.Put([]byte(e.key), e.value)
		}
	}

	if err := batch.Write(); err != nil {
		return err
	}

	t.journal = t.journal[:0]

	return nil
}

// Pending reports whether uncommitted writes exist.
func (t *Txn) Pending() bool {
	return len(t.journal) > 0
}
