package leveldb

import (
	"errors"

	"github.com/syndtr/goleveldb/leveldb"

	"github.com/xgr-network/xgr-keymanager/storage"
)

var _ storage.KV = (*levelDBKV)(nil)

type levelDBKV struct {
	db *leveldb.DB
}

// NewLevelDBKV opens (or creates) a goleveldb-backed KV at the given path.
func NewLevelDBKV(path string) (storage.KV, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}

	return &levelDBKV{db: db}, nil
}

func (l *levelDBKV) Get(key []byte) ([]byte, bool, error) {
	value, err := l.db.Get(key, nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, false, nil
		}

		return nil, false, err
	}

	return value, true, nil
}

func (l *levelDBKV) Set(key, value []byte) error {
	return l.db.Put(key, value, nil)
}

func (l *levelDBKV) Delete(key []byte) error {
	return l.db.Delete(key, nil)
}

func (l *levelDBKV) NewBatch() storage.Batch {
	return &levelDBBatch{
		db: l.db,
		b:  new(leveldb.Batch),
	}
}

func (l *levelDBKV) Close() error {
	return l.db.Close()
}

var _ storage.Batch = (*levelDBBatch)(nil)

type levelDBBatch struct {
	db *leveldb.DB
	b  *leveldb.Batch
}

func (b *levelDBBatch) Put(key, value []byte) {
	b.b.Put(key, value)
}

func (b *levelDBBatch) Delete(key []byte) {
	b.b.Delete(key)
}

func (b *levelDBBatch) Write() error {
	return b.db.Write(b.b, nil)
}
