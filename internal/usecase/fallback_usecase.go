package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/khula/khulasync/internal/domain"
)

// ProcessPaymentFunc submits a single payment request.
type ProcessPaymentFunc func(ctx context.Context, req *domain.PaymentRequest) (*domain.PaymentResponse, error)

// PaymentFallbackService stages payment requests while the device is offline
// and replays them once connectivity returns. Staged records are never
// removed automatically; status advances pending -> completed on a
// successful replay.
type PaymentFallbackService struct {
	payments OfflinePaymentRepository
	idGen    IDGenerator
	logger   *slog.Logger
}

// NewPaymentFallbackService creates a new PaymentFallbackService.
func NewPaymentFallbackService(payments OfflinePaymentRepository, idGen IDGenerator, logger *slog.Logger) *PaymentFallbackService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PaymentFallbackService{
		payments: payments,
		idGen:    idGen,
		logger:   logger,
	}
}

// StoreOfflinePayment durably stages a payment request and returns the
// pending response handed back to the caller.
func (s *PaymentFallbackService) StoreOfflinePayment(ctx context.Context, req *domain.PaymentRequest) (*domain.PaymentResponse, error) {
	now := time.Now().UTC()

	payment := &domain.OfflinePayment{
		ID:        domain.OfflinePaymentIDPrefix + s.idGen.Generate(),
		Request:   *req,
		Status:    domain.PaymentStatusPending,
		CreatedAt: now,
	}

	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, err
	}

	provider := req.Provider
	if provider == "" {
		provider = domain.ProviderBhadala
	}

	reference := req.Reference
	if reference == "" {
		reference = "ref_" + payment.ID
	}

	metadata := map[string]any{"isOffline": true}
	for k, v := range req.Metadata {
		metadata[k] = v
	}

	return &domain.PaymentResponse{
		ID:        payment.ID,
		Status:    domain.PaymentStatusPending,
		Amount:    req.Amount,
		Currency:  req.Currency,
		Provider:  provider,
		Reference: reference,
		CreatedAt: now,
		Metadata:  metadata,
	}, nil
}

// GetPendingPayments returns every staged payment still awaiting replay.
func (s *PaymentFallbackService) GetPendingPayments(ctx context.Context) ([]*domain.OfflinePayment, error) {
	return s.payments.ListByStatus(ctx, domain.PaymentStatusPending)
}

// UpdatePaymentStatus advances a staged payment's status. It fails with
// domain.ErrPaymentNotFound when the id is absent.
func (s *PaymentFallbackService) UpdatePaymentStatus(ctx context.Context, id string, status domain.PaymentStatus) error {
	return s.payments.UpdateStatus(ctx, id, status)
}

// ProcessPendingPayments replays staged payments sequentially through
// processFn, collecting successes and failures separately. Only a successful
// replay advances the record to completed; failures leave it pending for a
// later pass.
func (s *PaymentFallbackService) ProcessPendingPayments(ctx context.Context, processFn ProcessPaymentFunc) ([]*domain.PaymentResponse, []error, error) {
	pending, err := s.GetPendingPayments(ctx)
	if err != nil {
		return nil, nil, err
	}

	var (
		results  []*domain.PaymentResponse
		failures []error
	)

	for _, payment := range pending {
		req := payment.Request
		resp, err := processFn(ctx, &req)
		if err != nil {
			failures = append(failures, err)
			continue
		}

		if err := s.payments.UpdateStatus(ctx, payment.ID, domain.PaymentStatusCompleted); err != nil {
			s.logger.Error("failed to mark offline payment completed",
				slog.String("payment_id", payment.ID),
				slog.String("error", err.Error()))
		}

		results = append(results, resp)
	}

	return results, failures, nil
}
