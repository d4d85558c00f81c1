package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/khula/khulasync/internal/domain"
	"github.com/khula/khulasync/internal/usecase"
)

// SyncQueueRepository implements usecase.SyncQueueRepository.
type SyncQueueRepository struct {
	db db
}

// NewSyncQueueRepository creates a new SyncQueueRepository.
func NewSyncQueueRepository(pool *pgxpool.Pool) *SyncQueueRepository {
	return newSyncQueueRepositoryWithDB(pool)
}

func newSyncQueueRepositoryWithDB(db db) *SyncQueueRepository {
	return &SyncQueueRepository{db: db}
}

const insertQueueItemSQL = `
	INSERT INTO sync_queue (id, entity_id, entity_type, operation, payload, created_at, attempts, dead)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

// Create appends an item to the queue.
func (r *SyncQueueRepository) Create(ctx context.Context, item *domain.SyncQueueItem) error {
	_, err := r.db.Exec(ctx, insertQueueItemSQL,
		item.ID, item.EntityID, string(item.EntityType), string(item.Operation),
		item.Payload, item.CreatedAt, item.Attempts, item.Dead)
	return err
}

// CreateTx appends an item to the queue within a transaction.
func (r *SyncQueueRepository) CreateTx(ctx context.Context, tx usecase.Transaction, item *domain.SyncQueueItem) error {
	pgxTx := tx.(*Tx).PgxTx()
	_, err := pgxTx.Exec(ctx, insertQueueItemSQL,
		item.ID, item.EntityID, string(item.EntityType), string(item.Operation),
		item.Payload, item.CreatedAt, item.Attempts, item.Dead)
	return err
}

const selectQueueItemsSQL = `
	SELECT id, entity_id, entity_type, operation, payload, created_at, attempts, last_attempt, last_error, dead
	FROM sync_queue
	WHERE dead = $1
	ORDER BY created_at ASC, id ASC`

// ListPending returns live items in FIFO order.
func (r *SyncQueueRepository) ListPending(ctx context.Context) ([]*domain.SyncQueueItem, error) {
	return r.list(ctx, false)
}

// ListDead returns dead-lettered items in FIFO order.
func (r *SyncQueueRepository) ListDead(ctx context.Context) ([]*domain.SyncQueueItem, error) {
	return r.list(ctx, true)
}

func (r *SyncQueueRepository) list(ctx context.Context, dead bool) ([]*domain.SyncQueueItem, error) {
	rows, err := r.db.Query(ctx, selectQueueItemsSQL, dead)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*domain.SyncQueueItem
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// Remove deletes a synced item.
func (r *SyncQueueRepository) Remove(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM sync_queue WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSyncItemNotFound
	}
	return nil
}

// MarkFailed persists the failure bookkeeping of an item.
func (r *SyncQueueRepository) MarkFailed(ctx context.Context, item *domain.SyncQueueItem) error {
	var lastAttempt *time.Time
	if item.LastAttempt != nil {
		t := item.LastAttempt.UTC()
		lastAttempt = &t
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE sync_queue
		SET attempts = $2, last_attempt = $3, last_error = $4, dead = $5
		WHERE id = $1`,
		item.ID, item.Attempts, lastAttempt, item.LastError, item.Dead)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSyncItemNotFound
	}
	return nil
}

// Requeue puts a dead-lettered item back into rotation with a fresh
// attempt budget.
func (r *SyncQueueRepository) Requeue(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE sync_queue
		SET attempts = 0, last_attempt = NULL, last_error = '', dead = FALSE
		WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSyncItemNotFound
	}
	return nil
}

// CountPending returns the number of live items.
func (r *SyncQueueRepository) CountPending(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx,
		`SELECT count(*) FROM sync_queue WHERE dead = FALSE`).Scan(&n)
	return n, err
}

func scanQueueItem(row pgx.Row) (*domain.SyncQueueItem, error) {
	var (
		item        domain.SyncQueueItem
		entityType  string
		operation   string
		lastAttempt *time.Time
	)

	err := row.Scan(&item.ID, &item.EntityID, &entityType, &operation,
		&item.Payload, &item.CreatedAt, &item.Attempts, &lastAttempt,
		&item.LastError, &item.Dead)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSyncItemNotFound
		}
		return nil, err
	}

	item.EntityType = domain.EntityType(entityType)
	item.Operation = domain.Operation(operation)
	item.LastAttempt = lastAttempt

	return &item, nil
}
