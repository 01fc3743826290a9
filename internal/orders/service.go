package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/inventory"
	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/internal/shipping"
	pkgdb "github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/storefront-backend/pkg/db/types"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Service owns checkout and the order lifecycle.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*OrderDTO, error)
	GetByID(ctx context.Context, actor types.Actor, id uuid.UUID) (*OrderDTO, error)
	GetByCode(ctx context.Context, actor types.Actor, code string) (*OrderDTO, error)
	List(ctx context.Context, params ListParams) (*OrderList, error)
	ListForCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params) (types.Page[OrderDTO], error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus, actor types.Actor) (*OrderDTO, error)
	CancelOrder(ctx context.Context, orderID uuid.UUID, reason string, actor types.Actor) (*OrderDTO, error)
	UpdatePayment(ctx context.Context, orderID uuid.UUID, payment string) (*OrderDTO, error)
	RecordPaymentReference(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, reference string) error
	ApplyProviderPayment(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, state enums.PaymentState) (*models.Order, error)
	Overview(ctx context.Context, window OverviewWindow) (*Overview, error)
	Revenue(ctx context.Context, groupBy RevenueGrouping) ([]RevenueBucket, error)
}

type ServiceParams struct {
	Repository Repository
	TxRunner   txRunner
	Cart       cartCheckout
	Discounts  discountRedeemer
	Shipping   shippingQuoter
	Addresses  addressBook
	Inventory  stockRecorder
	Customers  CustomerDirectory
	Notifier   notifications.Notifier
	Logger     *logger.Logger
	Metrics    *metrics.CommerceMetrics
	CodePrefix string
	Currency   string
	Location   *time.Location
}

type service struct {
	repo      Repository
	tx        txRunner
	cart      cartCheckout
	discounts discountRedeemer
	shipping  shippingQuoter
	addresses addressBook
	inventory stockRecorder
	customers CustomerDirectory
	notifier  notifications.Notifier
	logg      *logger.Logger
	metrics   *metrics.CommerceMetrics
	prefix    string
	currency  string
	loc       *time.Location
	now       func() time.Time
}

var errOrderCodeTaken = errors.New("order code already taken")

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repository == nil:
		return nil, fmt.Errorf("orders repository required")
	case params.TxRunner == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Cart == nil:
		return nil, fmt.Errorf("cart service required")
	case params.Discounts == nil:
		return nil, fmt.Errorf("discount service required")
	case params.Shipping == nil:
		return nil, fmt.Errorf("shipping quoter required")
	case params.Addresses == nil:
		return nil, fmt.Errorf("address book required")
	case params.Inventory == nil:
		return nil, fmt.Errorf("inventory service required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	currency := params.Currency
	if currency == "" {
		currency = "NGN"
	}
	return &service{
		repo:      params.Repository,
		tx:        params.TxRunner,
		cart:      params.Cart,
		discounts: params.Discounts,
		shipping:  params.Shipping,
		addresses: params.Addresses,
		inventory: params.Inventory,
		customers: params.Customers,
		notifier:  params.Notifier,
		logg:      params.Logger,
		metrics:   params.Metrics,
		prefix:    params.CodePrefix,
		currency:  currency,
		loc:       loc,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*OrderDTO, error) {
	order, err := s.createOrder(ctx, input)
	if err != nil {
		s.metrics.IncCheckoutFailure(string(codeOf(err)))
		return nil, err
	}
	s.metrics.IncOrderCreated()

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id":   order.ID.String(),
		"order_code": order.OrderCode,
	})
	s.logg.Info(logCtx, "order created")

	s.notifyCustomer(ctx, order, notifications.TemplateOrderConfirmation, "Order confirmation "+order.OrderCode, map[string]any{
		"orderCode": order.OrderCode,
		"currency":  s.currency,
		"amount":    order.PayableAmount(),
	})
	dto := NewOrderDTO(order)
	return &dto, nil
}

// createOrder resolves the destination first, then runs the checkout
// transaction, retrying when the allocated order code collides.
func (s *service) createOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer is required")
	}
	if input.AddressID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "addressId is required")
	}
	address, err := s.addresses.GetForOwner(ctx, input.CustomerID, input.AddressID)
	if err != nil {
		return nil, err
	}
	quote, err := s.shipping.Quote(ctx, address.Region)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		order, err := s.checkout(ctx, input, address, quote)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, errOrderCodeTaken) {
			return nil, err
		}
		lastErr = err
		logCtx := s.logg.WithField(ctx, "attempt", attempt)
		s.logg.Warn(logCtx, "order code collision, retrying checkout")
	}
	return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, lastErr, "could not allocate an order code")
}

func (s *service) checkout(ctx context.Context, input CreateOrderInput, address *models.Address, quote *shipping.Quote) (*models.Order, error) {
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		loaded, err := s.cart.LoadForCheckout(ctx, tx, input.CustomerID)
		if err != nil {
			return err
		}

		order = &models.Order{
			CustomerID:      input.CustomerID,
			CartID:          loaded.Cart.ID,
			AddressID:       address.ID,
			TotalAmount:     loaded.Subtotal,
			ShippingCost:    quote.Fee,
			Status:          enums.OrderStatusPending,
			Payment:         enums.PaymentUnpaid,
			Notes:           trimmedOrNil(input.Notes),
			Source:          input.Source,
			CartFinalState:  dbtypes.NewJSON(snapshotLines(loaded.Lines)),
			ShippingAddress: dbtypes.NewJSON(address.Snapshot()),
		}

		if code := trimmedOrNil(input.DiscountCode); code != nil {
			redeemed, err := s.discounts.Redeem(ctx, tx, *code, loaded.Subtotal)
			if err != nil {
				return err
			}
			order.DiscountID = &redeemed.DiscountID
			order.DiscountCode = &redeemed.Code
			order.DiscountAmount = redeemed.Amount
		}

		if err := s.cart.Lock(ctx, tx, loaded.Cart.ID); err != nil {
			return err
		}

		repo := s.repo.WithTx(tx)
		now := s.now()
		seq, err := repo.NextSequence(ctx, sequenceDay(now, s.loc))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate order sequence")
		}
		order.OrderCode = FormatOrderCode(s.prefix, now.In(s.loc), seq)

		if err := repo.Create(ctx, order); err != nil {
			switch {
			case pkgdb.IsUniqueViolation(err, "ux_orders_cart"), pkgdb.IsUniqueViolation(err, "orders.cart_id"):
				return pkgerrors.New(pkgerrors.CodeCartLocked, "cart is already checked out").
					WithDetails(map[string]any{"cartId": loaded.Cart.ID})
			case pkgdb.IsUniqueViolation(err, ""):
				return fmt.Errorf("%w: %v", errOrderCodeTaken, err)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func snapshotLines(lines []cart.CheckoutLine) []models.SnapshotLine {
	out := make([]models.SnapshotLine, 0, len(lines))
	for _, line := range lines {
		snap := models.SnapshotLine{
			ProductID: line.Item.ProductID,
			VariantID: line.Item.VariantID,
			Quantity:  line.Item.Quantity,
			UnitPrice: line.Item.Price,
		}
		if line.Product != nil {
			snap.Name = line.Product.Name
		}
		if line.Variant != nil {
			snap.VariantTitle = line.Variant.Title()
			snap.SKU = line.Variant.SKU
		}
		out = append(out, snap)
	}
	return out
}

func (s *service) GetByID(ctx context.Context, actor types.Actor, id uuid.UUID) (*OrderDTO, error) {
	order, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	return s.visibleTo(actor, order)
}

func (s *service) GetByCode(ctx context.Context, actor types.Actor, code string) (*OrderDTO, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order code is required")
	}
	order, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, mapLoadError(err)
	}
	return s.visibleTo(actor, order)
}

func (s *service) visibleTo(actor types.Actor, order *models.Order) (*OrderDTO, error) {
	if !actor.CanAccess(order.CustomerID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another customer")
	}
	dto := NewOrderDTO(order)
	return &dto, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*OrderList, error) {
	timeFilter := params.TimeFilter
	if timeFilter == "" {
		timeFilter = TimeFilterAll
	}
	if !timeFilter.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid time filter").
			WithDetails(map[string]any{"timeFilter": timeFilter})
	}
	statusFilter := "all"
	filter := listFilter{Status: params.Status}
	if params.Status != nil {
		if !params.Status.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter").
				WithDetails(map[string]any{"status": *params.Status})
		}
		statusFilter = string(*params.Status)
	}
	now := s.now().In(s.loc)
	switch timeFilter {
	case TimeFilterToday:
		since := startOfDay(now).UTC()
		filter.Since = &since
	case TimeFilterMonth:
		since := startOfMonth(now).UTC()
		filter.Since = &since
	}

	page := params.Params.Normalize()
	rows, total, err := s.repo.List(ctx, filter, page.Offset(), page.Limit())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return &OrderList{
		Page:         page.Page,
		PerPage:      page.PerPage,
		TotalPages:   pagination.TotalPages(total, page.PerPage),
		Total:        total,
		TimeFilter:   string(timeFilter),
		StatusFilter: statusFilter,
		Data:         toDTOs(rows),
	}, nil
}

func (s *service) ListForCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params) (types.Page[OrderDTO], error) {
	filter := listFilter{CustomerID: &customerID}
	rows, total, err := s.repo.List(ctx, filter, params.Offset(), params.Limit())
	if err != nil {
		return types.Page[OrderDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list customer orders")
	}
	return pagination.NewPage(params, total, toDTOs(rows)), nil
}

func toDTOs(rows []models.Order) []OrderDTO {
	out := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		out = append(out, NewOrderDTO(&rows[i]))
	}
	return out
}

// UpdateStatus moves an order along the status machine. Shipping writes the
// stock_out ledger entries in the same transaction as the status change.
func (s *service) UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus, actor types.Actor) (*OrderDTO, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status").
			WithDetails(map[string]any{"status": status})
	}
	var updated *models.Order
	var from enums.OrderStatus
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.load(ctx, repo, orderID)
		if err != nil {
			return err
		}
		from = order.Status
		if !CanTransition(order.Status, status) {
			return invalidTransition(order.Status, status)
		}

		now := s.now()
		updates := map[string]any{"status": status}
		switch status {
		case enums.OrderStatusCancelled:
			if order.CancelledAt == nil {
				updates["cancelled_at"] = now
			}
		case enums.OrderStatusRefunded:
			if order.RefundedAt == nil {
				updates["refunded_at"] = now
				updates["refunded_amount"] = order.PayableAmount()
			}
		}
		ok, err := repo.UpdateIfStatus(ctx, order.ID, order.Status, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !ok {
			return invalidTransition(order.Status, status)
		}

		if status == enums.OrderStatusShipped {
			if err := s.recordShipment(ctx, tx, order, actor); err != nil {
				return err
			}
		}
		updated, err = s.load(ctx, repo, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncTransition(string(status))
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id": updated.ID.String(),
		"from":     string(from),
		"to":       string(status),
	})
	s.logg.Info(logCtx, "order status updated")
	s.notifyStatus(ctx, updated)

	dto := NewOrderDTO(updated)
	return &dto, nil
}

func (s *service) recordShipment(ctx context.Context, tx *gorm.DB, order *models.Order, actor types.Actor) error {
	description := "Shipped for order: " + order.OrderCode
	for _, line := range order.CartFinalState.Data {
		_, err := s.inventory.RecordMovementTx(ctx, tx, inventory.MovementInput{
			ProductID:   line.ProductID,
			VariantID:   line.VariantID,
			OrderID:     &order.ID,
			Action:      enums.InventoryStockOut,
			Quantity:    line.Quantity,
			UserID:      actor.UserID,
			Description: description,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *service) notifyStatus(ctx context.Context, order *models.Order) {
	vars := map[string]any{"orderCode": order.OrderCode}
	switch order.Status {
	case enums.OrderStatusShipped:
		s.notifyCustomer(ctx, order, notifications.TemplateOrderShipped, "Order "+order.OrderCode+" has shipped", vars)
	case enums.OrderStatusDelivered:
		s.notifyCustomer(ctx, order, notifications.TemplateOrderDelivered, "Order "+order.OrderCode+" delivered", vars)
	case enums.OrderStatusRefunded:
		s.notifyCustomer(ctx, order, notifications.TemplateOrderRefunded, "Order "+order.OrderCode+" refunded", vars)
	case enums.OrderStatusCancelled:
		vars["reason"] = derefString(order.CancelReason)
		s.notifyCustomer(ctx, order, notifications.TemplateOrderCancelled, "Order "+order.OrderCode+" cancelled", vars)
	}
}

// CancelOrder lets a customer (or an admin) cancel an order that has not
// shipped. Late requests are answered with a cancel_failed notice.
func (s *service) CancelOrder(ctx context.Context, orderID uuid.UUID, reason string, actor types.Actor) (*OrderDTO, error) {
	order, err := s.load(ctx, s.repo, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(order.CustomerID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another customer")
	}
	if !IsCancellable(order.Status) {
		return nil, s.cannotCancel(ctx, order)
	}

	updates := map[string]any{
		"status":       enums.OrderStatusCancelled,
		"cancelled_at": s.now(),
	}
	if trimmed := strings.TrimSpace(reason); trimmed != "" {
		updates["cancel_reason"] = trimmed
	}
	ok, err := s.repo.UpdateIfStatus(ctx, order.ID, order.Status, updates)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
	}
	current, err := s.load(ctx, s.repo, order.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		if current.Status == enums.OrderStatusCancelled {
			dto := NewOrderDTO(current)
			return &dto, nil
		}
		return nil, s.cannotCancel(ctx, current)
	}

	s.metrics.IncTransition(string(enums.OrderStatusCancelled))
	s.notifyStatus(ctx, current)
	dto := NewOrderDTO(current)
	return &dto, nil
}

func (s *service) cannotCancel(ctx context.Context, order *models.Order) error {
	s.notifyCustomer(ctx, order, notifications.TemplateOrderCancelFailed, "Order "+order.OrderCode+" could not be cancelled", map[string]any{
		"orderCode": order.OrderCode,
		"status":    string(order.Status),
	})
	return pkgerrors.New(pkgerrors.CodeCannotCancel, "order can no longer be cancelled").
		WithDetails(map[string]any{"status": order.Status})
}

func (s *service) UpdatePayment(ctx context.Context, orderID uuid.UUID, payment string) (*OrderDTO, error) {
	state, err := enums.ParsePaymentState(strings.TrimSpace(payment))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment state").
			WithDetails(map[string]any{"payment": payment})
	}
	var updated *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.load(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if err := repo.Update(ctx, order.ID, map[string]any{"payment": state}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order payment")
		}
		if state.IsPaid() {
			if err := repo.StampPaymentMadeAt(ctx, order.ID, s.now()); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "stamp payment time")
			}
		}
		updated, err = s.load(ctx, repo, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	dto := NewOrderDTO(updated)
	return &dto, nil
}

func (s *service) RecordPaymentReference(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, reference string) error {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment reference is required")
	}
	if err := s.repo.WithTx(tx).Update(ctx, orderID, map[string]any{"payment_reference": reference}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment reference")
	}
	return nil
}

// ApplyProviderPayment settles an order after a verified provider callback:
// payment state, first payment time, and pending orders advance to processing.
func (s *service) ApplyProviderPayment(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, state enums.PaymentState) (*models.Order, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment settlement requires a transaction")
	}
	repo := s.repo.WithTx(tx)
	order, err := s.load(ctx, repo, orderID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := repo.Update(ctx, order.ID, map[string]any{"payment": state}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order payment")
	}
	if err := repo.StampPaymentMadeAt(ctx, order.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "stamp payment time")
	}
	if order.Status == enums.OrderStatusPending {
		if _, err := repo.UpdateIfStatus(ctx, order.ID, enums.OrderStatusPending, map[string]any{
			"status": enums.OrderStatusProcessing,
		}); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advance paid order")
		}
	}
	return s.load(ctx, repo, order.ID)
}

func (s *service) load(ctx context.Context, repo Repository, id uuid.UUID) (*models.Order, error) {
	order, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLoadError(err)
	}
	return order, nil
}

func mapLoadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
}

// notifyCustomer queues a templated email for the order's customer. Failures
// are logged and never surface to the caller.
func (s *service) notifyCustomer(ctx context.Context, order *models.Order, template, subject string, vars map[string]any) {
	if s.notifier == nil || s.customers == nil {
		return
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id": order.ID.String(),
		"template": template,
	})
	email, err := s.customers.EmailFor(ctx, order.CustomerID)
	if err != nil {
		s.logg.Error(logCtx, "failed to resolve customer email", err)
		return
	}
	if email == "" {
		s.logg.Warn(logCtx, "customer has no email; skipping notification")
		return
	}
	notifications.Send(ctx, s.notifier, s.logg, notifications.Message{
		To:            email,
		Subject:       subject,
		Template:      template,
		Variables:     vars,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
	})
}

func codeOf(err error) pkgerrors.Code {
	if typed := pkgerrors.As(err); typed != nil {
		return typed.Code()
	}
	return pkgerrors.CodeInternal
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
