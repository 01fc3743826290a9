package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	pkgdb "github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/storefront-backend/pkg/db/types"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

const (
	EventChargeSuccess   = "charge.success"
	orderReferencePrefix = "order_"
	defaultInitTimeout   = 10 * time.Second
)

// Callback outcomes, also used as metric labels.
const (
	OutcomeProcessed = "processed"
	OutcomeDuplicate = "duplicate"
	OutcomeIgnored   = "ignored"
	outcomeInvalid   = "invalid"
	outcomeFailed    = "failed"
)

// Service starts provider payments and reconciles their callbacks.
type Service interface {
	InitializePayment(ctx context.Context, actor types.Actor, orderID uuid.UUID, email string) (*InitializeResult, error)
	HandleProviderCallback(ctx context.Context, payload []byte) (*CallbackResult, error)
}

type CallbackResult struct {
	Event     string     `json:"event"`
	Outcome   string     `json:"outcome"`
	OrderID   *uuid.UUID `json:"orderId,omitempty"`
	Reference string     `json:"reference,omitempty"`
}

type orderPayments interface {
	GetByID(ctx context.Context, actor types.Actor, id uuid.UUID) (*orders.OrderDTO, error)
	RecordPaymentReference(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, reference string) error
	ApplyProviderPayment(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, state enums.PaymentState) (*models.Order, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type duplicateGuard interface {
	CheckAndMark(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

type ServiceParams struct {
	Repository  *Repository
	Orders      orderPayments
	Provider    Provider
	TxRunner    txRunner
	Guard       duplicateGuard
	Customers   orders.CustomerDirectory
	Notifier    notifications.Notifier
	Logger      *logger.Logger
	Metrics     *metrics.CommerceMetrics
	Currency    string
	InitTimeout time.Duration
}

type service struct {
	repo      *Repository
	orders    orderPayments
	provider  Provider
	tx        txRunner
	guard     duplicateGuard
	customers orders.CustomerDirectory
	notifier  notifications.Notifier
	logg      *logger.Logger
	metrics   *metrics.CommerceMetrics
	currency  string
	timeout   time.Duration
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repository == nil:
		return nil, fmt.Errorf("payments repository required")
	case params.Orders == nil:
		return nil, fmt.Errorf("orders service required")
	case params.Provider == nil:
		return nil, fmt.Errorf("payment provider required")
	case params.TxRunner == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	timeout := params.InitTimeout
	if timeout <= 0 {
		timeout = defaultInitTimeout
	}
	currency := params.Currency
	if currency == "" {
		currency = "NGN"
	}
	return &service{
		repo:      params.Repository,
		orders:    params.Orders,
		provider:  params.Provider,
		tx:        params.TxRunner,
		guard:     params.Guard,
		customers: params.Customers,
		notifier:  params.Notifier,
		logg:      params.Logger,
		metrics:   params.Metrics,
		currency:  currency,
		timeout:   timeout,
	}, nil
}

// OrderReference is the metadata value tying a provider payment to an order.
func OrderReference(orderID uuid.UUID) string {
	return orderReferencePrefix + orderID.String()
}

func (s *service) InitializePayment(ctx context.Context, actor types.Actor, orderID uuid.UUID, email string) (*InitializeResult, error) {
	order, err := s.orders.GetByID(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	switch enums.OrderStatus(order.Status) {
	case enums.OrderStatusCancelled, enums.OrderStatusRefunded:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is closed").
			WithDetails(map[string]any{"status": order.Status})
	}
	if enums.PaymentState(order.Payment).IsPaid() {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order is already paid").
			WithDetails(map[string]any{"payment": order.Payment})
	}
	if order.AmountDue <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidAmount, "order amount must be positive")
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeMissingEmail, "customer email is required")
	}

	initCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	result, err := s.provider.Initialize(initCtx, InitializeRequest{
		Amount:   order.AmountDue,
		Email:    email,
		Currency: s.currency,
		Metadata: map[string]string{"orderReference": OrderReference(order.ID)},
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() != pkgerrors.CodeInternal {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "initialize payment")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.orders.RecordPaymentReference(ctx, tx, order.ID, result.AccessCode)
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id":  order.ID.String(),
		"reference": result.Reference,
		"amount":    order.AmountDue,
	})
	s.logg.Info(logCtx, "payment initialized")
	return result, nil
}

// HandleProviderCallback reconciles one provider webhook. Duplicates are
// acknowledged without side effects.
func (s *service) HandleProviderCallback(ctx context.Context, payload []byte) (*CallbackResult, error) {
	charge, event, err := parseCallback(payload)
	if err != nil {
		s.metrics.IncPaymentCallback(outcomeInvalid)
		return nil, err
	}
	if charge == nil {
		s.metrics.IncPaymentCallback(OutcomeIgnored)
		s.logg.Info(s.logg.WithField(ctx, "event", event), "payment callback ignored")
		return &CallbackResult{Event: event, Outcome: OutcomeIgnored}, nil
	}

	result := &CallbackResult{Event: event, OrderID: &charge.OrderID, Reference: charge.Reference}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id":  charge.OrderID.String(),
		"reference": charge.Reference,
	})

	guardKey := charge.OrderID.String() + ":" + charge.Reference
	if s.guard != nil {
		seen, err := s.guard.CheckAndMark(ctx, guardKey)
		switch {
		case err != nil:
			s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "callback guard unavailable")
		case seen:
			s.metrics.IncPaymentCallback(OutcomeDuplicate)
			result.Outcome = OutcomeDuplicate
			return result, nil
		}
	}

	order, duplicate, err := s.reconcile(ctx, charge, payload)
	if err != nil {
		if s.guard != nil {
			_ = s.guard.Delete(ctx, guardKey)
		}
		s.metrics.IncPaymentCallback(outcomeFailed)
		s.logg.Error(logCtx, "payment callback failed", err)
		return nil, err
	}
	if duplicate {
		s.metrics.IncPaymentCallback(OutcomeDuplicate)
		s.logg.Info(logCtx, "duplicate payment callback")
		result.Outcome = OutcomeDuplicate
		return result, nil
	}

	s.metrics.IncPaymentCallback(OutcomeProcessed)
	if charge.Amount != 0 && charge.Amount != order.PayableAmount() {
		s.logg.Warn(s.logg.WithFields(logCtx, map[string]any{
			"paid":     charge.Amount,
			"expected": order.PayableAmount(),
		}), "payment amount differs from order total")
	}
	s.logg.Info(logCtx, "payment reconciled")
	s.notifyReceived(ctx, order, charge)

	result.Outcome = OutcomeProcessed
	return result, nil
}

func (s *service) reconcile(ctx context.Context, charge *chargeEvent, payload []byte) (*models.Order, bool, error) {
	var (
		order     *models.Order
		duplicate bool
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		exists, err := repo.Exists(ctx, charge.OrderID, charge.Reference)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check payment")
		}
		if exists {
			duplicate = true
			return nil
		}

		payment := &models.ExternalPayment{
			OrderID:   charge.OrderID,
			Reference: charge.Reference,
			Provider:  enums.ProviderPaystack,
			Status:    charge.Status,
			Success:   charge.Status == "success",
			Amount:    charge.Amount,
			Currency:  charge.Currency,
			RawEvent:  dbtypes.NewJSON(json.RawMessage(payload)),
		}
		err = tx.Transaction(func(sp *gorm.DB) error {
			return repo.WithTx(sp).Create(ctx, payment)
		})
		if err != nil {
			if pkgdb.IsUniqueViolation(err, "") {
				duplicate = true
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment")
		}

		order, err = s.orders.ApplyProviderPayment(ctx, tx, charge.OrderID, enums.ProviderPaystack.PaymentState())
		return err
	})
	return order, duplicate, err
}

func (s *service) notifyReceived(ctx context.Context, order *models.Order, charge *chargeEvent) {
	if s.notifier == nil || s.customers == nil || order == nil {
		return
	}
	email, err := s.customers.EmailFor(ctx, order.CustomerID)
	if err != nil || email == "" {
		s.logg.Warn(s.logg.WithField(ctx, "order_id", order.ID.String()), "no customer email for payment receipt")
		return
	}
	currency := charge.Currency
	if currency == "" {
		currency = s.currency
	}
	amount := charge.Amount
	if amount == 0 {
		amount = order.PayableAmount()
	}
	notifications.Send(ctx, s.notifier, s.logg, notifications.Message{
		To:       email,
		Subject:  "Payment received for " + order.OrderCode,
		Template: notifications.TemplatePaymentReceived,
		Variables: map[string]any{
			"currency":  currency,
			"amount":    amount,
			"orderCode": order.OrderCode,
			"reference": charge.Reference,
		},
		AggregateType: enums.AggregatePayment,
		AggregateID:   order.ID,
	})
}
