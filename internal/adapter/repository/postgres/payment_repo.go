package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/khula/khulasync/internal/domain"
)

// OfflinePaymentRepository implements usecase.OfflinePaymentRepository.
type OfflinePaymentRepository struct {
	db db
}

// NewOfflinePaymentRepository creates a new OfflinePaymentRepository.
func NewOfflinePaymentRepository(pool *pgxpool.Pool) *OfflinePaymentRepository {
	return newOfflinePaymentRepositoryWithDB(pool)
}

func newOfflinePaymentRepositoryWithDB(db db) *OfflinePaymentRepository {
	return &OfflinePaymentRepository{db: db}
}

// Create stages an offline payment.
func (r *OfflinePaymentRepository) Create(ctx context.Context, payment *domain.OfflinePayment) error {
	request, err := json.Marshal(payment.Request)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO offline_payments (id, request, status, created_at)
		VALUES ($1, $2, $3, $4)`,
		payment.ID, request, string(payment.Status), payment.CreatedAt)
	return err
}

// GetByID reads a single staged payment.
func (r *OfflinePaymentRepository) GetByID(ctx context.Context, id string) (*domain.OfflinePayment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, request, status, created_at
		FROM offline_payments WHERE id = $1`, id)

	payment, err := scanOfflinePayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, err
	}
	return payment, nil
}

// ListByStatus returns staged payments with the given status, oldest first.
func (r *OfflinePaymentRepository) ListByStatus(ctx context.Context, status domain.PaymentStatus) ([]*domain.OfflinePayment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, request, status, created_at
		FROM offline_payments
		WHERE status = $1
		ORDER BY created_at ASC, id ASC`, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []*domain.OfflinePayment
	for rows.Next() {
		payment, err := scanOfflinePayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}

	return payments, rows.Err()
}

// UpdateStatus advances a staged payment's status.
func (r *OfflinePaymentRepository) UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE offline_payments SET status = $2 WHERE id = $1`,
		id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPaymentNotFound
	}
	return nil
}

func scanOfflinePayment(row pgx.Row) (*domain.OfflinePayment, error) {
	var (
		payment domain.OfflinePayment
		request []byte
		status  string
	)

	if err := row.Scan(&payment.ID, &request, &status, &payment.CreatedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(request, &payment.Request); err != nil {
		return nil, err
	}
	payment.Status = domain.PaymentStatus(status)

	return &payment, nil
}
