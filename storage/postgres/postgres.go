package postgres

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xgr-network/xgr-keymanager/storage"
)

var _ storage.KV = (*postgresKV)(nil)

const schemaDDL = `CREATE TABLE IF NOT EXISTS keymanager_data (
	key   BYTEA PRIMARY KEY,
	value BYTEA NOT NULL
)`

// postgresKV keeps the account store in a single postgres table. Meant for
// setups where the store must be shared or inspected with SQL tooling.
type postgresKV struct {
	pool *pgxpool.Pool
}

func envDSN() (string, error) {
	dsn := strings.TrimSpace(os.Getenv("KM_DB_DSN"))
	if dsn == "" {
		dsn = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	}

	if dsn == "" {
		return "", fmt.Errorf("database not configured (KM_DB_DSN / DATABASE_URL)")
	}

	return dsn, nil
}

// NewPostgresKV connects to postgres and creates the data table if missing.
// An empty dsn falls back to KM_DB_DSN / DATABASE_URL.
func NewPostgresKV(ctx context.Context, dsn string) (storage.KV, error) {
	if strings.TrimSpace(dsn) == "" {
		var err error

		dsn, err = envDSN()
		if err != nil {
			return nil, err
		}
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	// Stable defaults (tune later).
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 2 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()

		return nil, err
	}

	if _, err := pool.Exec(ctx, schemaDDL); err != nil {
		pool.Close()

		return nil, err
	}

	return &postgresKV{pool: pool}, nil
}

func (p *postgresKV) Get(key []byte) ([]byte, bool, error) {
	var value []byte

	err := p.pool.QueryRow(
		context.Background(),
		`SELECT value FROM keymanager_data WHERE key = $1`,
		key,
	).Scan(&value)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, false, nil
		}

		return nil, false, err
	}

	return value, true, nil
}

func (p *postgresKV) Set(key, value []byte) error {
	_, err := p.pool.Exec(
		context.Background(),
		`INSERT INTO keymanager_data (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		key, value,
	)

	return err
}

func (p *postgresKV) Delete(key []byte) error {
	_, err := p.pool.Exec(
		context.Background(),
		`DELETE FROM keymanager_data WHERE key = $1`,
		key,
	)

	return err
}

func (p *postgresKV) NewBatch() storage.Batch {
	return &postgresBatch{pool: p.pool}
}

func (p *postgresKV) Close() error {
	p.pool.Close()

	return nil
}

type batchOp struct {
	key    []byte
	value  []byte
	delete bool
}

type postgresBatch struct {
	pool *pgxpool.Pool
	ops  []batchOp
}

func (b *postgresBatch) Put(key, value []byte) {
	k := make([]byte, len(key))
	copy(k, key)
	v := make([]byte, len(value))
	copy(v, value)

	b.ops = append(b.ops, batchOp{key: k, value: v})
}

func (b *postgresBatch) Delete(key []byte) {
	k := make([]byte, len(key))
	copy(k, key)

	b.ops = append(b.ops, batchOp{key: k, delete: true})
}

func (b *postgresBatch) Write() error {
	ctx := context.Background()

	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	for _, op := range b.ops {
		if op.delete {
			_, err = tx.Exec(ctx, `DELETE FROM keymanager_data WHERE key = $1`, op.key)
		} else {
			_, err = tx.Exec(ctx,
				`INSERT INTO keymanager_data (key, value) VALUES ($1, $2)
				 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
				op.key, op.value,
			)
		}

		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}
