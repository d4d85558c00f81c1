package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/khula/khulasync/internal/domain"
	"github.com/khula/khulasync/internal/usecase"
)

// StoreRepository implements usecase.LocalStore on a single records table
// keyed by (collection, id) with the document held as JSONB. Collections are
// namespaces, not schema objects; secondary indexes live in the migrations
// as expression indexes over the JSONB column.
type StoreRepository struct {
	db db
}

// NewStoreRepository creates a new StoreRepository.
func NewStoreRepository(pool *pgxpool.Pool) *StoreRepository {
	return newStoreRepositoryWithDB(pool)
}

func newStoreRepositoryWithDB(db db) *StoreRepository {
	return &StoreRepository{db: db}
}

const upsertRecordSQL = `
	INSERT INTO records (collection, id, data, updated_at)
	VALUES ($1, $2, $3, now())
	ON CONFLICT (collection, id)
	DO UPDATE SET data = EXCLUDED.data, updated_at = now()`

// Put inserts or replaces a record.
func (r *StoreRepository) Put(ctx context.Context, collection, id string, data json.RawMessage) error {
	if _, err := r.db.Exec(ctx, upsertRecordSQL, collection, id, data); err != nil {
		return storeErr("put", collection, err)
	}
	return nil
}

// PutTx inserts or replaces a record within a transaction.
func (r *StoreRepository) PutTx(ctx context.Context, tx usecase.Transaction, collection, id string, data json.RawMessage) error {
	pgxTx := tx.(*Tx).PgxTx()
	if _, err := pgxTx.Exec(ctx, upsertRecordSQL, collection, id, data); err != nil {
		return storeErr("put", collection, err)
	}
	return nil
}

// Get reads a single record.
func (r *StoreRepository) Get(ctx context.Context, collection, id string) (json.RawMessage, error) {
	var data json.RawMessage
	err := r.db.QueryRow(ctx,
		`SELECT data FROM records WHERE collection = $1 AND id = $2`,
		collection, id).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, storeErr("get", collection, err)
	}
	return data, nil
}

// GetAll reads every record in a collection ordered by id.
func (r *StoreRepository) GetAll(ctx context.Context, collection string) ([]json.RawMessage, error) {
	rows, err := r.db.Query(ctx,
		`SELECT data FROM records WHERE collection = $1 ORDER BY id`,
		collection)
	if err != nil {
		return nil, storeErr("list", collection, err)
	}
	defer rows.Close()

	var records []json.RawMessage
	for rows.Next() {
		var data json.RawMessage
		if err := rows.Scan(&data); err != nil {
			return nil, storeErr("list", collection, err)
		}
		records = append(records, data)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list", collection, err)
	}

	return records, nil
}

// GetByField reads every record in a collection whose top-level field matches
// the given value. Backed by the collection's JSONB expression indexes.
func (r *StoreRepository) GetByField(ctx context.Context, collection, field, value string) ([]json.RawMessage, error) {
	rows, err := r.db.Query(ctx,
		`SELECT data FROM records WHERE collection = $1 AND data ->> $2 = $3 ORDER BY id`,
		collection, field, value)
	if err != nil {
		return nil, storeErr("query", collection, err)
	}
	defer rows.Close()

	var records []json.RawMessage
	for rows.Next() {
		var data json.RawMessage
		if err := rows.Scan(&data); err != nil {
			return nil, storeErr("query", collection, err)
		}
		records = append(records, data)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("query", collection, err)
	}

	return records, nil
}

// Delete removes a record. Deleting an absent record is not an error.
func (r *StoreRepository) Delete(ctx context.Context, collection, id string) error {
	if _, err := r.db.Exec(ctx,
		`DELETE FROM records WHERE collection = $1 AND id = $2`,
		collection, id); err != nil {
		return storeErr("delete", collection, err)
	}
	return nil
}

// DeleteTx removes a record within a transaction.
func (r *StoreRepository) DeleteTx(ctx context.Context, tx usecase.Transaction, collection, id string) error {
	pgxTx := tx.(*Tx).PgxTx()
	if _, err := pgxTx.Exec(ctx,
		`DELETE FROM records WHERE collection = $1 AND id = $2`,
		collection, id); err != nil {
		return storeErr("delete", collection, err)
	}
	return nil
}

// Count returns the number of records in a collection.
func (r *StoreRepository) Count(ctx context.Context, collection string) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx,
		`SELECT count(*) FROM records WHERE collection = $1`,
		collection).Scan(&n)
	if err != nil {
		return 0, storeErr("count", collection, err)
	}
	return n, nil
}

func storeErr(op, collection string, err error) error {
	return fmt.Errorf("%w: %s %s: %v", domain.ErrStorageFailed, op, collection, err)
}
