package orders

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/addresses"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/discounts"
	"github.com/angelmondragon/storefront-backend/internal/inventory"
	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/internal/operations"
	"github.com/angelmondragon/storefront-backend/internal/shipping"
	dbpkg "github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/storefront-backend/pkg/db/types"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

type staticDirectory map[uuid.UUID]string

func (d staticDirectory) EmailFor(_ context.Context, userID uuid.UUID) (string, error) {
	return d[userID], nil
}

type fixture struct {
	svc       Service
	conn      *gorm.DB
	cart      cart.Service
	discounts discounts.Service
	addresses addresses.Service
	inventory inventory.Service
	emails    staticDirectory
	admin     types.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureOn(t, dbtest.New(t))
}

func newFixtureOn(t *testing.T, conn *gorm.DB) *fixture {
	t.Helper()
	client := dbpkg.Wrap(conn)
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})

	notifier, err := notifications.NewNotifier(client, outbox.NewService(outbox.NewRepository(conn), nil), nil)
	require.NoError(t, err)
	catalogSvc, err := catalog.NewService(catalog.NewRepository(conn))
	require.NoError(t, err)
	inventorySvc, err := inventory.NewService(inventory.ServiceParams{
		Repository: inventory.NewRepository(conn),
		Catalog:    catalogSvc,
		TxRunner:   client,
		Logger:     logg,
	})
	require.NoError(t, err)
	cartSvc, err := cart.NewService(cart.NewRepository(conn), client)
	require.NoError(t, err)
	discountSvc, err := discounts.NewService(discounts.NewRepository(conn))
	require.NoError(t, err)
	addressSvc, err := addresses.NewService(addresses.NewRepository(conn), client)
	require.NoError(t, err)

	opsSvc, err := operations.NewService(operations.NewRepository(conn), nil)
	require.NoError(t, err)
	ctx := context.Background()
	_, err = opsSvc.Set(ctx, operations.KeyLagosDeliveryFee, "2500")
	require.NoError(t, err)
	_, err = opsSvc.Set(ctx, operations.KeyNationWideDeliveryFee, "5000")
	require.NoError(t, err)
	shippingSvc, err := shipping.NewService(shipping.Params{Operations: opsSvc, LocalRegion: "Lagos"})
	require.NoError(t, err)

	emails := staticDirectory{}
	svc, err := NewService(ServiceParams{
		Repository: NewRepository(conn),
		TxRunner:   client,
		Cart:       cartSvc,
		Discounts:  discountSvc,
		Shipping:   shippingSvc,
		Addresses:  addressSvc,
		Inventory:  inventorySvc,
		Customers:  emails,
		Notifier:   notifier,
		Logger:     logg,
		CodePrefix: "TSS",
		Currency:   "NGN",
		Location:   time.UTC,
	})
	require.NoError(t, err)

	return &fixture{
		svc:       svc,
		conn:      conn,
		cart:      cartSvc,
		discounts: discountSvc,
		addresses: addressSvc,
		inventory: inventorySvc,
		emails:    emails,
		admin:     types.Actor{UserID: uuid.New(), Role: enums.RoleAdmin},
	}
}

func (f *fixture) product(t *testing.T, name string, price int64) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:   name,
		Slug:   uuid.NewString(),
		Images: dbtypes.NewJSON([]string{}),
		Price:  price,
		Status: enums.ProductStatusActive,
	}
	require.NoError(t, f.conn.Omit("Variants").Create(product).Error)
	return product
}

func (f *fixture) variant(t *testing.T, product *models.Product, sku string, price *int64) *models.ProductVariant {
	t.Helper()
	variant := &models.ProductVariant{
		ProductID:  product.ID,
		SKU:        sku,
		Attributes: dbtypes.NewJSON(map[string]string{"size": "M"}),
		Price:      price,
		Active:     true,
		Images:     dbtypes.NewJSON([]string{}),
	}
	require.NoError(t, f.conn.Create(variant).Error)
	require.NoError(t, f.conn.Model(product).Update("has_variants", true).Error)
	return variant
}

// customer registers an email and a default address in region.
func (f *fixture) customer(t *testing.T, region string) (uuid.UUID, *models.Address) {
	t.Helper()
	id := uuid.New()
	f.emails[id] = id.String()[:8] + "@example.com"
	addr, err := f.addresses.Create(context.Background(), id, addresses.CreateInput{
		Name:        "Ada Obi",
		PhoneNumber: "+2348000000000",
		Line1:       "12 Marina Road",
		City:        "Ikeja",
		Region:      region,
		Country:     "NG",
	})
	require.NoError(t, err)
	return id, addr
}

func (f *fixture) fill(t *testing.T, customerID uuid.UUID, product *models.Product, qty int64) {
	t.Helper()
	_, err := f.cart.AddItem(context.Background(), customerID, cart.SimpleLineItem{ProductID: product.ID, Quantity: qty})
	require.NoError(t, err)
}

func (f *fixture) checkout(t *testing.T, customerID uuid.UUID, addr *models.Address, discount *string) *OrderDTO {
	t.Helper()
	order, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID:   customerID,
		AddressID:    addr.ID,
		DiscountCode: discount,
		Source:       "test-agent",
	})
	require.NoError(t, err)
	return order
}

func (f *fixture) queuedTemplates(t *testing.T, orderID uuid.UUID) []string {
	t.Helper()
	var events []models.OutboxEvent
	require.NoError(t, f.conn.Where("aggregate_id = ?", orderID).Order("created_at ASC").Find(&events).Error)
	var out []string
	for _, event := range events {
		payload := string(event.Payload.Data)
		for _, tmpl := range []string{
			notifications.TemplateOrderConfirmation,
			notifications.TemplateOrderCancelled,
			notifications.TemplateOrderCancelFailed,
			notifications.TemplateOrderShipped,
			notifications.TemplateOrderDelivered,
			notifications.TemplateOrderRefunded,
		} {
			if strings.Contains(payload, `"`+tmpl+`"`) {
				out = append(out, tmpl)
			}
		}
	}
	return out
}

func customerActor(id uuid.UUID) types.Actor {
	return types.Actor{UserID: id, Role: enums.RoleCustomer}
}

func strPtr(v string) *string { return &v }

func ptr[T any](v T) *T { return &v }

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	assert.Error(t, err)
	_, err = NewService(ServiceParams{Repository: NewRepository(nil)})
	assert.Error(t, err)
}

func TestCreateOrderSnapshotsCartAndLocksIt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	shirt := f.product(t, "Linen Shirt", 1500)
	hat := f.product(t, "Cap", 700)
	customerID, addr := f.customer(t, "Lagos")
	f.fill(t, customerID, shirt, 2)
	f.fill(t, customerID, hat, 1)

	_, err := f.discounts.Create(ctx, discounts.CreateInput{
		Name:       "Ten off",
		Code:       "SAVE10",
		Percentage: decimal.NewFromInt(10),
		Limit:      5,
		Validity:   time.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)

	order := f.checkout(t, customerID, addr, strPtr(" save10 "))

	expectedCode := FormatOrderCode("TSS", time.Now().UTC(), 1)
	assert.Equal(t, expectedCode, order.OrderCode)
	assert.Equal(t, int64(3700), order.TotalAmount)
	assert.Equal(t, int64(370), order.DiscountAmount)
	assert.Equal(t, int64(2500), order.ShippingCost)
	assert.Equal(t, int64(3700-370+2500), order.AmountDue)
	assert.Equal(t, string(enums.OrderStatusPending), order.Status)
	assert.Equal(t, string(enums.PaymentUnpaid), order.Payment)
	assert.Equal(t, "SAVE10", *order.DiscountCode)
	assert.Equal(t, "Lagos", order.ShippingAddress.Region)
	require.Len(t, order.Items, 2)
	byProduct := map[uuid.UUID]models.SnapshotLine{}
	for _, line := range order.Items {
		byProduct[line.ProductID] = line
	}
	assert.Equal(t, "Linen Shirt", byProduct[shirt.ID].Name)
	assert.Equal(t, int64(2), byProduct[shirt.ID].Quantity)
	assert.Equal(t, int64(1500), byProduct[shirt.ID].UnitPrice)

	discount, err := f.discounts.GetByCode(ctx, "SAVE10")
	require.NoError(t, err)
	assert.Equal(t, int64(1), discount.Uses)

	var locked models.Cart
	require.NoError(t, f.conn.Where("id = ?", order.CartID).Take(&locked).Error)
	assert.NotNil(t, locked.LockedAt)

	assert.Equal(t, []string{notifications.TemplateOrderConfirmation}, f.queuedTemplates(t, order.ID))

	// The customer checking out again right away hits the lock, not a missing cart.
	_, err = f.svc.CreateOrder(ctx, CreateOrderInput{CustomerID: customerID, AddressID: addr.ID})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeCartLocked))
}

func TestCreateOrderWithVariantLine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	soap := f.product(t, "Black Soap", 500)
	dress := f.product(t, "Adire Dress", 900)
	medium := f.variant(t, dress, "ADIRE-M", ptr[int64](1200))
	for _, movement := range []inventory.MovementInput{
		{ProductID: soap.ID, Action: enums.InventoryStockIn, Quantity: 5, UserID: f.admin.UserID},
		{ProductID: dress.ID, VariantID: &medium.ID, Action: enums.InventoryStockIn, Quantity: 4, UserID: f.admin.UserID},
	} {
		_, err := f.inventory.RecordMovement(ctx, movement)
		require.NoError(t, err)
	}
	_, err := f.discounts.Create(ctx, discounts.CreateInput{
		Name:       "Ten off",
		Code:       "TEN",
		Percentage: decimal.NewFromInt(10),
		Limit:      5,
		Validity:   time.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)

	customerID, addr := f.customer(t, "Lagos")
	f.fill(t, customerID, soap, 2)
	_, err = f.cart.AddItem(ctx, customerID, cart.VariantLineItem{ProductID: dress.ID, VariantID: medium.ID, Quantity: 1})
	require.NoError(t, err)

	order := f.checkout(t, customerID, addr, strPtr("TEN"))
	assert.Equal(t, int64(2200), order.TotalAmount)
	assert.Equal(t, int64(220), order.DiscountAmount)
	require.Len(t, order.Items, 2)
	var variantLine models.SnapshotLine
	for _, line := range order.Items {
		if line.VariantID != nil {
			variantLine = line
		}
	}
	require.NotNil(t, variantLine.VariantID)
	assert.Equal(t, medium.ID, *variantLine.VariantID)
	assert.Equal(t, int64(1200), variantLine.UnitPrice)
	assert.Equal(t, "ADIRE-M", variantLine.SKU)

	for _, next := range []enums.OrderStatus{enums.OrderStatusProcessing, enums.OrderStatusShipped} {
		_, err := f.svc.UpdateStatus(ctx, order.ID, next, f.admin)
		require.NoError(t, err)
	}

	var storedVariant models.ProductVariant
	require.NoError(t, f.conn.Where("id = ?", medium.ID).Take(&storedVariant).Error)
	assert.EqualValues(t, 3, storedVariant.Stock)
	var storedDress models.Product
	require.NoError(t, f.conn.Where("id = ?", dress.ID).Take(&storedDress).Error)
	assert.EqualValues(t, 0, storedDress.Stock, "variant shipments leave the parent counter alone")
	soapStock, err := f.inventory.CurrentStock(ctx, soap.ID, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 3, soapStock)
}

func TestOrderSnapshotIgnoresLaterPriceEdits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mug := f.product(t, "Mug", 900)
	customerID, addr := f.customer(t, "Kano")
	f.fill(t, customerID, mug, 2)
	order := f.checkout(t, customerID, addr, nil)

	catalogSvc, err := catalog.NewService(catalog.NewRepository(f.conn))
	require.NoError(t, err)
	_, err = catalogSvc.UpdateProduct(ctx, mug.ID, catalog.UpdateProductInput{
		Name:  strPtr("Giant Mug"),
		Price: ptr[int64](4000),
	})
	require.NoError(t, err)

	reloaded, err := f.svc.GetByID(ctx, f.admin, order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1800), reloaded.TotalAmount)
	require.Len(t, reloaded.Items, 1)
	assert.Equal(t, "Mug", reloaded.Items[0].Name)
	assert.Equal(t, int64(900), reloaded.Items[0].UnitPrice)
}

func TestCreateOrderConcurrentCheckoutsLockOnce(t *testing.T) {
	f := newFixtureOn(t, dbtest.NewFile(t))
	mug := f.product(t, "Mug", 900)
	customerID, addr := f.customer(t, "Lagos")
	f.fill(t, customerID, mug, 1)

	const callers = 4
	errs := make([]error, callers)
	var g errgroup.Group
	for i := 0; i < callers; i++ {
		g.Go(func() error {
			_, errs[i] = f.svc.CreateOrder(context.Background(), CreateOrderInput{
				CustomerID: customerID,
				AddressID:  addr.ID,
			})
			return nil
		})
	}
	require.NoError(t, g.Wait())

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeCartLocked), "loser got %v", err)
	}
	assert.Equal(t, 1, succeeded)

	var orders int64
	require.NoError(t, f.conn.Model(&models.Order{}).Where("customer_id = ?", customerID).Count(&orders).Error)
	assert.EqualValues(t, 1, orders)
}

func TestCreateOrderAllocatesSequentialCodes(t *testing.T) {
	f := newFixture(t)
	product := f.product(t, "Mug", 900)

	var codes []string
	for i := 0; i < 3; i++ {
		customerID, addr := f.customer(t, "Kano")
		f.fill(t, customerID, product, 1)
		codes = append(codes, f.checkout(t, customerID, addr, nil).OrderCode)
	}
	day := time.Now().UTC()
	assert.Equal(t, []string{
		FormatOrderCode("TSS", day, 1),
		FormatOrderCode("TSS", day, 2),
		FormatOrderCode("TSS", day, 3),
	}, codes)
}

func TestCreateOrderShippingFollowsRegion(t *testing.T) {
	f := newFixture(t)
	product := f.product(t, "Mug", 900)
	customerID, addr := f.customer(t, "Abuja")
	f.fill(t, customerID, product, 1)

	order := f.checkout(t, customerID, addr, nil)
	assert.Equal(t, int64(5000), order.ShippingCost)
	assert.Equal(t, int64(5900), order.AmountDue)
}

func TestCreateOrderFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := f.product(t, "Mug", 900)
	customerID, addr := f.customer(t, "Lagos")

	_, err := f.svc.CreateOrder(ctx, CreateOrderInput{CustomerID: customerID, AddressID: addr.ID})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	otherID, otherAddr := f.customer(t, "Lagos")
	f.fill(t, otherID, product, 1)
	_, err = f.svc.CreateOrder(ctx, CreateOrderInput{CustomerID: customerID, AddressID: otherAddr.ID})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = f.svc.CreateOrder(ctx, CreateOrderInput{CustomerID: otherID, AddressID: otherAddr.ID, DiscountCode: strPtr("NOPE")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	// A failed checkout leaves the cart open.
	order := f.checkout(t, otherID, otherAddr, nil)
	assert.Len(t, order.Items, 1)
}

func TestUpdateStatusWalksLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := f.product(t, "Linen Shirt", 1500)
	_, err := f.inventory.RecordMovement(ctx, inventory.MovementInput{
		ProductID: product.ID,
		Action:    enums.InventoryStockIn,
		Quantity:  10,
		UserID:    f.admin.UserID,
	})
	require.NoError(t, err)

	customerID, addr := f.customer(t, "Lagos")
	f.fill(t, customerID, product, 2)
	order := f.checkout(t, customerID, addr, nil)

	_, err = f.svc.UpdateStatus(ctx, order.ID, enums.OrderStatusShipped, f.admin)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))
	typed := pkgerrors.As(err)
	assert.Equal(t, map[string]any{"from": enums.OrderStatusPending, "to": enums.OrderStatusShipped}, typed.Details())

	for _, next := range []enums.OrderStatus{
		enums.OrderStatusProcessing,
		enums.OrderStatusShipped,
		enums.OrderStatusOutForDelivery,
		enums.OrderStatusDelivered,
		enums.OrderStatusRefunded,
	} {
		updated, err := f.svc.UpdateStatus(ctx, order.ID, next, f.admin)
		require.NoError(t, err, "transition to %s", next)
		assert.Equal(t, string(next), updated.Status)
	}

	stock, err := f.inventory.CurrentStock(ctx, product.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(8), stock)

	var entries []models.InventoryEntry
	require.NoError(t, f.conn.Where("order_id = ?", order.ID).Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, enums.InventoryStockOut, entries[0].Action)
	assert.Equal(t, "Shipped for order: "+order.OrderCode, entries[0].Description)
	assert.Equal(t, f.admin.UserID, entries[0].UserID)

	final, err := f.svc.GetByID(ctx, f.admin, order.ID)
	require.NoError(t, err)
	require.NotNil(t, final.RefundedAt)
	assert.Equal(t, order.AmountDue, final.RefundedAmount)

	_, err = f.svc.UpdateStatus(ctx, order.ID, enums.OrderStatusPending, f.admin)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))
	_, err = f.svc.UpdateStatus(ctx, order.ID, "lost", f.admin)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	assert.Equal(t, []string{
		notifications.TemplateOrderConfirmation,
		notifications.TemplateOrderShipped,
		notifications.TemplateOrderDelivered,
		notifications.TemplateOrderRefunded,
	}, f.queuedTemplates(t, order.ID))
}

func TestCancelOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := f.product(t, "Mug", 900)
	customerID, addr := f.customer(t, "Lagos")
	f.fill(t, customerID, product, 1)
	order := f.checkout(t, customerID, addr, nil)

	stranger := customerActor(uuid.New())
	_, err := f.svc.CancelOrder(ctx, order.ID, "changed my mind", stranger)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	cancelled, err := f.svc.CancelOrder(ctx, order.ID, " changed my mind ", customerActor(customerID))
	require.NoError(t, err)
	assert.Equal(t, string(enums.OrderStatusCancelled), cancelled.Status)
	require.NotNil(t, cancelled.CancelReason)
	assert.Equal(t, "changed my mind", *cancelled.CancelReason)
	assert.NotNil(t, cancelled.CancelledAt)

	// Cancelling from a terminal state is refused and the customer is told.
	_, err = f.svc.CancelOrder(ctx, order.ID, "again", customerActor(customerID))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeCannotCancel))
	assert.Equal(t, []string{
		notifications.TemplateOrderConfirmation,
		notifications.TemplateOrderCancelled,
		notifications.TemplateOrderCancelFailed,
	}, f.queuedTemplates(t, order.ID))
}

func TestCancelAfterShippingIsRefused(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := f.product(t, "Mug", 900)
	_, err := f.inventory.RecordMovement(ctx, inventory.MovementInput{
		ProductID: product.ID, Action: enums.InventoryStockIn, Quantity: 5, UserID: f.admin.UserID,
	})
	require.NoError(t, err)
	customerID, addr := f.customer(t, "Lagos")
	f.fill(t, customerID, product, 1)
	order := f.checkout(t, customerID, addr, nil)

	_, err = f.svc.UpdateStatus(ctx, order.ID, enums.OrderStatusProcessing, f.admin)
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, order.ID, enums.OrderStatusShipped, f.admin)
	require.NoError(t, err)

	_, err = f.svc.CancelOrder(ctx, order.ID, "", customerActor(customerID))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeCannotCancel))
	assert.Equal(t, map[string]any{"status": enums.OrderStatusShipped}, pkgerrors.As(err).Details())

	current, err := f.svc.GetByID(ctx, f.admin, order.ID)
	require.NoError(t, err)
	assert.Equal(t, string(enums.OrderStatusShipped), current.Status)
	assert.Nil(t, current.CancelledAt)
}

func TestUpdatePaymentStampsFirstPaidEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := f.product(t, "Mug", 900)
	customerID, addr := f.customer(t, "Lagos")
	f.fill(t, customerID, product, 1)
	order := f.checkout(t, customerID, addr, nil)

	_, err := f.svc.UpdatePayment(ctx, order.ID, "cheque")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	onDelivery, err := f.svc.UpdatePayment(ctx, order.ID, "pay_on_delivery")
	require.NoError(t, err)
	assert.Nil(t, onDelivery.PaymentMadeAt)

	paid, err := f.svc.UpdatePayment(ctx, order.ID, "bank_deposit")
	require.NoError(t, err)
	require.NotNil(t, paid.PaymentMadeAt)
	first := *paid.PaymentMadeAt

	again, err := f.svc.UpdatePayment(ctx, order.ID, "manual")
	require.NoError(t, err)
	assert.Equal(t, string(enums.PaymentManual), again.Payment)
	assert.True(t, first.Equal(*again.PaymentMadeAt))
}

func TestApplyProviderPaymentAdvancesPendingOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := f.product(t, "Mug", 900)
	customerID, addr := f.customer(t, "Lagos")
	f.fill(t, customerID, product, 1)
	order := f.checkout(t, customerID, addr, nil)

	client := dbpkg.Wrap(f.conn)
	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return f.svc.RecordPaymentReference(ctx, tx, order.ID, "access_123")
	}))

	var settled *models.Order
	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		settled, err = f.svc.ApplyProviderPayment(ctx, tx, order.ID, enums.PaymentPaystack)
		return err
	}))
	assert.Equal(t, enums.OrderStatusProcessing, settled.Status)
	assert.Equal(t, enums.PaymentPaystack, settled.Payment)
	require.NotNil(t, settled.PaymentReference)
	assert.Equal(t, "access_123", *settled.PaymentReference)
	assert.NotNil(t, settled.PaymentMadeAt)

	_, err := f.svc.ApplyProviderPayment(ctx, nil, order.ID, enums.PaymentPaystack)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInternal))
}

func TestReadsEnforceOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := f.product(t, "Mug", 900)
	customerID, addr := f.customer(t, "Lagos")
	f.fill(t, customerID, product, 1)
	order := f.checkout(t, customerID, addr, nil)

	got, err := f.svc.GetByCode(ctx, customerActor(customerID), strings.ToLower(order.OrderCode))
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	_, err = f.svc.GetByID(ctx, customerActor(uuid.New()), order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
	_, err = f.svc.GetByID(ctx, f.admin, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListFiltersAndPaginates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := f.product(t, "Mug", 900)

	var ids []uuid.UUID
	customerID, addr := f.customer(t, "Lagos")
	for i := 0; i < 3; i++ {
		f.fill(t, customerID, product, 1)
		ids = append(ids, f.checkout(t, customerID, addr, nil).ID)
	}
	_, err := f.svc.UpdateStatus(ctx, ids[0], enums.OrderStatusProcessing, f.admin)
	require.NoError(t, err)

	all, err := f.svc.List(ctx, ListParams{Params: pagination.Params{PerPage: 2}})
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.Total)
	assert.Equal(t, 2, all.TotalPages)
	assert.Len(t, all.Data, 2)
	assert.Equal(t, "all", all.TimeFilter)
	assert.Equal(t, "all", all.StatusFilter)

	processing := enums.OrderStatusProcessing
	filtered, err := f.svc.List(ctx, ListParams{Status: &processing, TimeFilter: TimeFilterToday})
	require.NoError(t, err)
	require.Len(t, filtered.Data, 1)
	assert.Equal(t, ids[0], filtered.Data[0].ID)
	assert.Equal(t, "processing", filtered.StatusFilter)
	assert.Equal(t, pagination.DefaultPerPage, filtered.PerPage)

	_, err = f.svc.List(ctx, ListParams{TimeFilter: "decade"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	mine, err := f.svc.ListForCustomer(ctx, customerID, pagination.Params{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), mine.Total)
	none, err := f.svc.ListForCustomer(ctx, uuid.New(), pagination.Params{})
	require.NoError(t, err)
	assert.Empty(t, none.Data)
}

func TestOverviewAndRevenue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := f.product(t, "Mug", 1000)
	_, err := f.inventory.RecordMovement(ctx, inventory.MovementInput{
		ProductID: product.ID, Action: enums.InventoryStockIn, Quantity: 10, UserID: f.admin.UserID,
	})
	require.NoError(t, err)

	customerID, addr := f.customer(t, "Lagos")
	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		f.fill(t, customerID, product, 1)
		ids = append(ids, f.checkout(t, customerID, addr, nil).ID)
	}
	for _, next := range []enums.OrderStatus{
		enums.OrderStatusProcessing,
		enums.OrderStatusShipped,
		enums.OrderStatusOutForDelivery,
		enums.OrderStatusDelivered,
	} {
		_, err := f.svc.UpdateStatus(ctx, ids[0], next, f.admin)
		require.NoError(t, err)
	}
	_, err = f.svc.UpdateStatus(ctx, ids[1], enums.OrderStatusProcessing, f.admin)
	require.NoError(t, err)
	_, err = f.svc.CancelOrder(ctx, ids[2], "", f.admin)
	require.NoError(t, err)

	overview, err := f.svc.Overview(ctx, OverviewDaily)
	require.NoError(t, err)
	assert.Equal(t, int64(0), overview.NewOrders)
	assert.Equal(t, int64(1), overview.PendingOrders)
	assert.Equal(t, int64(1), overview.DeliveredOrders)

	_, err = f.svc.Overview(ctx, "hourly")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	week, err := f.svc.Revenue(ctx, RevenueByWeek)
	require.NoError(t, err)
	require.Len(t, week, 7)
	today := week[len(week)-1]
	assert.Equal(t, time.Now().UTC().Format("2006-01-02"), today.Date)
	assert.Equal(t, int64(2), today.NumberOfOrders)
	assert.Equal(t, int64(2*(1000+2500)), today.Amount)
	assert.Equal(t, int64(0), week[0].NumberOfOrders)

	year, err := f.svc.Revenue(ctx, RevenueByYear)
	require.NoError(t, err)
	require.Len(t, year, 12)
	assert.Equal(t, time.Now().UTC().Format("2006-01"), year[11].Date)
	assert.Equal(t, int64(7000), year[11].Amount)

	month, err := f.svc.Revenue(ctx, RevenueByMonth)
	require.NoError(t, err)
	require.NotEmpty(t, month)
	assert.Equal(t, isoWeekKey(time.Now().UTC()), month[len(month)-1].Date)

	_, err = f.svc.Revenue(ctx, "decade")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
