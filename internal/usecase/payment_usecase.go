package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/khula/khulasync/internal/domain"
)

// PaymentGatewayConfig holds dependencies for the PaymentGateway.
type PaymentGatewayConfig struct {
	Primary      PaymentProvider
	Fallbacks    []PaymentProvider
	Connectivity Connectivity
	Fallback     *PaymentFallbackService
	Cache        Cache
	IDGen        IDGenerator
	Events       EventPublisher
	Logger       *slog.Logger
}

// PaymentGateway processes payments with provider redundancy. The primary
// provider is tried first; on failure a fallback is selected by explicit
// request choice or by currency. While offline, requests are staged in the
// Payment Fallback Store instead of being dropped.
type PaymentGateway struct {
	primary   PaymentProvider
	fallbacks map[domain.Provider]PaymentProvider
	conn      Connectivity
	fallback  *PaymentFallbackService
	cache     Cache
	idGen     IDGenerator
	events    EventPublisher
	logger    *slog.Logger
}

// NewPaymentGateway creates a new PaymentGateway.
func NewPaymentGateway(cfg PaymentGatewayConfig) *PaymentGateway {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	fallbacks := make(map[domain.Provider]PaymentProvider, len(cfg.Fallbacks))
	for _, p := range cfg.Fallbacks {
		fallbacks[p.Name()] = p
	}

	return &PaymentGateway{
		primary:   cfg.Primary,
		fallbacks: fallbacks,
		conn:      cfg.Connectivity,
		fallback:  cfg.Fallback,
		cache:     cfg.Cache,
		idGen:     cfg.IDGen,
		events:    cfg.Events,
		logger:    cfg.Logger,
	}
}

// ProcessPayment submits a payment. Offline requests are staged durably and
// the call fails with domain.ErrDeviceOffline; no provider is contacted.
func (g *PaymentGateway) ProcessPayment(ctx context.Context, req *domain.PaymentRequest) (*domain.PaymentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if !g.conn.Online() {
		staged, err := g.fallback.StoreOfflinePayment(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("staging offline payment: %w", err)
		}

		paymentsStaged.Inc()
		g.publish(ctx, domain.EventTypePaymentStaged, staged.ID, domain.PaymentStagedEvent{
			PaymentID: staged.ID,
			Amount:    req.Amount.String(),
			Currency:  string(req.Currency),
		})
		g.logger.Info("device offline, payment staged for replay",
			slog.String("payment_id", staged.ID))

		return nil, domain.ErrDeviceOffline
	}

	return g.submit(ctx, req)
}

// submit routes an online payment through the primary provider and, on
// failure, through the selected fallback.
func (g *PaymentGateway) submit(ctx context.Context, req *domain.PaymentRequest) (*domain.PaymentResponse, error) {
	resp, primaryErr := g.primary.CreatePayment(ctx, req)
	if primaryErr == nil {
		paymentsProcessed.WithLabelValues(string(g.primary.Name()), "success").Inc()
		return resp, nil
	}

	paymentsProcessed.WithLabelValues(string(g.primary.Name()), "failure").Inc()
	g.logger.Warn("primary payment provider failed",
		slog.String("provider", string(g.primary.Name())),
		slog.String("error", primaryErr.Error()))

	fb := g.selectFallback(req)
	resp, fallbackErr := fb.CreatePayment(ctx, req)
	if fallbackErr != nil {
		paymentsProcessed.WithLabelValues(string(fb.Name()), "failure").Inc()
		g.logger.Error("fallback payment provider failed",
			slog.String("provider", string(fb.Name())),
			slog.String("error", fallbackErr.Error()))

		return nil, fmt.Errorf("%w: primary (%s): %v; fallback (%s): %v",
			domain.ErrAllProvidersFailed, g.primary.Name(), primaryErr, fb.Name(), fallbackErr)
	}

	paymentsProcessed.WithLabelValues(string(fb.Name()), "success").Inc()

	return resp, nil
}

// selectFallback picks the fallback provider for a request. The mapping is
// deterministic and total: an explicit non-primary choice wins, otherwise
// ZWL routes to EcoCash and everything else to Flutterwave.
func (g *PaymentGateway) selectFallback(req *domain.PaymentRequest) PaymentProvider {
	if req.Provider != "" && req.Provider != g.primary.Name() {
		if p, ok := g.fallbacks[req.Provider]; ok {
			return p
		}
	}

	switch req.Currency {
	case domain.CurrencyZWL:
		return g.fallbacks[domain.ProviderEcoCash]
	default:
		return g.fallbacks[domain.ProviderFlutterwave]
	}
}

// CheckPaymentStatus resolves a payment's status. The owning provider is
// found by id prefix; ids without a known prefix are tried against every
// provider and the first answer wins.
func (g *PaymentGateway) CheckPaymentStatus(ctx context.Context, paymentID string) (domain.PaymentStatus, error) {
	if g.cache != nil {
		if cached, err := g.cache.Get(ctx, statusCacheKey(paymentID)); err == nil && cached != "" {
			return domain.PaymentStatus(cached), nil
		}
	}

	for _, p := range g.allProviders() {
		if strings.HasPrefix(paymentID, p.IDPrefix()) {
			status, err := p.CheckStatus(ctx, paymentID)
			if err != nil {
				return "", err
			}
			g.cacheStatus(ctx, paymentID, status)
			return status, nil
		}
	}

	for _, p := range g.allProviders() {
		status, err := p.CheckStatus(ctx, paymentID)
		if err != nil {
			g.logger.Debug("provider could not resolve payment status",
				slog.String("provider", string(p.Name())),
				slog.String("payment_id", paymentID))
			continue
		}
		g.cacheStatus(ctx, paymentID, status)
		return status, nil
	}

	return "", domain.ErrStatusUnresolvable
}

// ProcessOfflineQueue replays every staged payment concurrently and returns
// the responses of the replays that succeeded. A payment that fails again
// stays pending for a later pass. Replays go straight to the providers, so a
// staged payment can never be staged a second time; while the device is
// offline the call fails with domain.ErrDeviceOffline instead.
func (g *PaymentGateway) ProcessOfflineQueue(ctx context.Context) ([]*domain.PaymentResponse, error) {
	if !g.conn.Online() {
		return nil, domain.ErrDeviceOffline
	}

	pending, err := g.fallback.GetPendingPayments(ctx)
	if err != nil {
		return nil, err
	}

	if len(pending) == 0 {
		return nil, nil
	}

	g.logger.Info("replaying offline payments", slog.Int("count", len(pending)))

	var (
		mu        sync.Mutex
		responses []*domain.PaymentResponse
		wg        sync.WaitGroup
	)

	for _, p := range pending {
		wg.Add(1)
		go func(p *domain.OfflinePayment) {
			defer wg.Done()

			req := p.Request
			resp, err := g.submit(ctx, &req)
			if err != nil {
				g.logger.Warn("offline payment replay failed",
					slog.String("payment_id", p.ID),
					slog.String("error", err.Error()))
				return
			}

			if err := g.fallback.UpdatePaymentStatus(ctx, p.ID, domain.PaymentStatusCompleted); err != nil {
				g.logger.Error("failed to advance offline payment status",
					slog.String("payment_id", p.ID),
					slog.String("error", err.Error()))
			}

			g.publish(ctx, domain.EventTypePaymentCompleted, p.ID, domain.PaymentCompletedEvent{
				PaymentID: p.ID,
				Provider:  string(resp.Provider),
				Amount:    resp.Amount.String(),
				Currency:  string(resp.Currency),
			})

			mu.Lock()
			responses = append(responses, resp)
			mu.Unlock()
		}(p)
	}

	wg.Wait()

	return responses, nil
}

// allProviders returns the primary followed by the fallbacks in a stable order.
func (g *PaymentGateway) allProviders() []PaymentProvider {
	names := make([]string, 0, len(g.fallbacks))
	for name := range g.fallbacks {
		names = append(names, string(name))
	}
	sort.Strings(names)

	providers := []PaymentProvider{g.primary}
	for _, name := range names {
		providers = append(providers, g.fallbacks[domain.Provider(name)])
	}
	return providers
}

func (g *PaymentGateway) cacheStatus(ctx context.Context, paymentID string, status domain.PaymentStatus) {
	if g.cache == nil {
		return
	}
	if err := g.cache.Set(ctx, statusCacheKey(paymentID), string(status), statusCacheTTL); err != nil {
		g.logger.Debug("failed to cache payment status", slog.String("error", err.Error()))
	}
}

func (g *PaymentGateway) publish(ctx context.Context, eventType, paymentID string, payload any) {
	if g.events == nil {
		return
	}

	event := &domain.Event{
		ID:            g.idGen.Generate(),
		AggregateID:   paymentID,
		AggregateType: domain.AggregateTypePayment,
		EventType:     eventType,
		Payload:       payload,
		CreatedAt:     time.Now().UTC(),
	}

	if err := g.events.Publish(ctx, event); err != nil {
		g.logger.Warn("failed to publish event",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()))
	}
}

func statusCacheKey(paymentID string) string {
	return "payment_status:" + paymentID
}
