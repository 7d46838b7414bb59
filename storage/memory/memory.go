package memory

import (
	"sync"

	"github.com/xgr-network/xgr-keymanager/storage"
)

var _ storage.KV = (*memoryKV)(nil)

// memoryKV is a map-backed KV for tests and the CLI's ephemeral mode.
type memoryKV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryKV() storage.KV {
	return &memoryKV{
		data: map[string][]byte{},
	}
}

func (m *memoryKV) Get(key []byte) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[string(key)]
	if !ok {
		return nil, false, nil
	}

	cp := make([]byte, len(v))
	copy(cp, v)

	return cp, true, nil
}

func (m *memoryKV) Set(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := make([]byte, len(value))
	copy(cp, value)
	m.data[string(key)] = cp

	return nil
}

func (m *memoryKV) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, string(key))

	return nil
}

func (m *memoryKV) NewBatch() storage.Batch {
	return &memoryBatch{kv: m}
}

func (m *memoryKV) Close() error {
	return nil
}

type batchOp struct {
	key    []byte
	value  []byte
	delete bool
}

type memoryBatch struct {
	kv  *memoryKV
	ops []batchOp
}

func (b *memoryBatch) Put(key, value []byte) {
	k := make([]byte, len(key))
	copy(k, key)
	v := make([]byte, len(value))
	copy(v, value)

	b.ops = append(b.ops, batchOp{key: k, value: v})
}

func (b *memoryBatch) Delete(key []byte) {
	k := make([]byte, len(key))
	copy(k, key)

	b.ops = append(b.ops, batchOp{key: k, delete: true})
}

func (b *memoryBatch) Write() error {
	b.kv.mu.Lock()
	defer b.kv.mu.Unlock()

	for _, op := range b.ops {
		if op.delete {
			delete(b.kv.data, string(op.key))
		} else {
			b.kv.data[string(op.key)] = op.value
		}
	}

	return nil
}
