package bolt

import (
	"go.etcd.io/bbolt"

	"github.com/xgr-network/xgr-keymanager/storage"
)

var _ storage.KV = (*boltKV)(nil)

var dataBucket = []byte("data")

type boltKV struct {
	db *bbolt.DB
}

// NewBoltKV opens (or creates) a bbolt-backed KV at the given path.
func NewBoltKV(path string) (storage.KV, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(dataBucket)

		return err
	})
	if err != nil {
		_ = db.Close()

		return nil, err
	}

	return &boltKV{db: db}, nil
}

func (b *boltKV) Get(key []byte) ([]byte, bool, error) {
	var (
		value []byte
		found bool
	)

	err := b.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(dataBucket).Get(key)
		if v != nil {
			found = true
			value = make([]byte, len(v))
			copy(value, v)
		}

		return nil
	})

	return value, found, err
}

func (b *boltKV) Set(key, value []byte) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(dataBucket).Put(key, value)
	})
}

func (b *boltKV) Delete(key []byte) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(dataBucket).Delete(key)
	})
}

func (b *boltKV) NewBatch() storage.Batch {
	return &boltBatch{db: b.db}
}

func (b *boltKV) Close() error {
	return b.db.Close()
}

type batchOp struct {
	key    []byte
	value  []byte
	delete bool
}

type boltBatch struct {
	db  *bbolt.DB
	ops []batchOp
}

func (b *boltBatch) Put(key, value []byte) {
	k := make([]byte, len(key))
	copy(k, key)
	v := make([]byte, len(value))
	copy(v, value)

	b.ops = append(b.ops, batchOp{key: k, value: v})
}

func (b *boltBatch) Delete(key []byte) {
	k := make([]byte, len(key))
	copy(k, key)

	b.ops = append(b.ops, batchOp{key: k, delete: true})
}

func (b *boltBatch) Write() error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bkt := tx.Bucket(dataBucket)

		for _, op := range b.ops {
			var err error
			if op.delete {
				err = bkt.Delete(op.key)
			} else {
				err = bkt.Put(op.key, op.value)
			}

			if err != nil {
				return err
			}
		}

		return nil
	})
}
