package checkout

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ANUSHA12-K/juicy-cart-delight/internal/cart"
	"github.com/ANUSHA12-K/juicy-cart-delight/internal/catalog"
	"github.com/ANUSHA12-K/juicy-cart-delight/internal/order"
)

var errDown = errors.New("database unavailable")

type cartRows struct {
	mu       sync.Mutex
	rows     []cart.LineItem
	seq      int
	writes   int
	clearErr error
}

func (c *cartRows) ListByOwner(_ context.Context, ownerID string) ([]cart.LineItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []cart.LineItem
	for _, r := range c.rows {
		if r.OwnerID == ownerID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (c *cartRows) Upsert(_ context.Context, item cart.LineItem) (cart.LineItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes++
	for i, r := range c.rows {
		if r.OwnerID == item.OwnerID && r.Matches(item.ProductID, item.UnitLabel()) {
			c.rows[i].Quantity += item.Quantity
			return c.rows[i], nil
		}
	}
	c.seq++
	item.ID = "line-" + strconv.Itoa(c.seq)
	c.rows = append(c.rows, item)
	return item, nil
}

func (c *cartRows) UpdateQuantity(_ context.Context, ownerID, id string, quantity int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes++
	for i, r := range c.rows {
		if r.OwnerID == ownerID && r.ID == id {
			c.rows[i].Quantity = quantity
		}
	}
	return nil
}

func (c *cartRows) Delete(_ context.Context, ownerID, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes++
	for i, r := range c.rows {
		if r.OwnerID == ownerID && r.ID == id {
			c.rows = append(c.rows[:i], c.rows[i+1:]...)
			break
		}
	}
	return nil
}

func (c *cartRows) DeleteByOwner(_ context.Context, ownerID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes++
	if c.clearErr != nil {
		return c.clearErr
	}
	kept := c.rows[:0]
	for _, r := range c.rows {
		if r.OwnerID != ownerID {
			kept = append(kept, r)
		}
	}
	c.rows = kept
	return nil
}

func (c *cartRows) writeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes
}

type orderSink struct {
	mu     sync.Mutex
	orders []order.Order
	err    error
}

func (o *orderSink) Insert(_ context.Context, ord order.Order) (order.Order, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return order.Order{}, o.err
	}
	ord.ID = "order-" + strconv.Itoa(len(o.orders)+1)
	o.orders = append(o.orders, ord)
	return ord, nil
}

type retrySpy struct {
	owner string
	lines []cart.Claim
	err   error
	calls int
}

func (r *retrySpy) EnqueueCartClear(_ context.Context, ownerID string, lines []cart.Claim) error {
	r.calls++
	r.owner = ownerID
	r.lines = lines
	return r.err
}

var (
	fixedNow     = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	strawberries = catalog.Product{ID: "p-straw", Name: "Strawberries", Price: decimal.RequireFromString("150"), Unit: "kg"}
	quarterKg    = catalog.UnitOption{Label: "250 g", Multiplier: decimal.RequireFromString("0.25"), Unit: "kg"}
)

func newService(orders *orderSink, retrier ClearRetrier) *Service {
	return &Service{
		Orders:          orders,
		Retrier:         retrier,
		Logger:          zerolog.Nop(),
		Now:             func() time.Time { return fixedNow },
		Intn:            func(n int) int { return n - 1 },
		DeliveryMinDays: 3,
		DeliveryMaxDays: 5,
	}
}

func strawberryCart(t *testing.T, rows *cartRows) *cart.Store {
	t.Helper()
	store := cart.NewStore(cart.User("user-1"), rows)
	for i := 0; i < 3; i++ {
		_, err := store.Add(context.Background(), strawberries, quarterKg)
		require.NoError(t, err)
	}
	return store
}

func TestPlaceOrderStrawberryScenario(t *testing.T) {
	rows := &cartRows{}
	store := strawberryCart(t, rows)
	orders := &orderSink{}
	svc := newService(orders, nil)

	placement, err := svc.PlaceOrder(context.Background(), store, "  shopper@upi ")
	require.NoError(t, err)
	require.NoError(t, placement.ClearWarning)

	ord := placement.Order
	require.Equal(t, "order-1", ord.ID)
	require.Equal(t, "user-1", ord.OwnerID)
	require.True(t, ord.TotalPrice.Equal(decimal.RequireFromString("112.5")))
	require.Equal(t, order.StatusPending, ord.Status)
	require.Equal(t, "shopper@upi", ord.PaymentReference)
	require.Equal(t, order.DefaultTrackingNotes, ord.TrackingNotes)
	require.Equal(t, fixedNow.AddDate(0, 0, 5), ord.EstimatedDelivery)
	require.Equal(t, fixedNow, ord.CreatedAt)

	require.Len(t, ord.Items, 1)
	snap := ord.Items[0]
	require.Equal(t, "p-straw", snap.ProductID)
	require.Equal(t, "Strawberries", snap.ProductName)
	require.Equal(t, 3, snap.Quantity)
	require.Equal(t, "250 g", snap.Unit.Label)
	require.True(t, snap.Price.Equal(decimal.RequireFromString("150")))
	require.True(t, snap.FinalPrice.Equal(decimal.RequireFromString("37.5")))

	require.Zero(t, store.Len())
	rest, err := rows.ListByOwner(context.Background(), "user-1")
	require.NoError(t, err)
	require.Empty(t, rest)
}

func TestPlaceOrderTotalMatchesSnapshot(t *testing.T) {
	rows := &cartRows{}
	store := strawberryCart(t, rows)
	apples := catalog.Product{ID: "p-apple", Name: "Apple", Price: decimal.RequireFromString("80"), Unit: "kg"}
	oneKg := catalog.UnitOption{Label: "1 kg", Multiplier: decimal.NewFromInt(1), Unit: "kg"}
	_, err := store.Add(context.Background(), apples, oneKg)
	require.NoError(t, err)

	placement, err := newService(&orderSink{}, nil).PlaceOrder(context.Background(), store, "shopper@upi")
	require.NoError(t, err)

	sum := decimal.Zero
	for _, line := range placement.Order.Items {
		sum = sum.Add(line.FinalPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	require.Len(t, placement.Order.Items, 2)
	require.True(t, placement.Order.TotalPrice.Equal(sum), placement.Order.TotalPrice.String())
	require.True(t, sum.Equal(decimal.RequireFromString("192.5")))
}

func TestPlaceOrderEmptyCartWritesNothing(t *testing.T) {
	rows := &cartRows{}
	store := cart.NewStore(cart.User("user-1"), rows)
	orders := &orderSink{}

	_, err := newService(orders, nil).PlaceOrder(context.Background(), store, "shopper@upi")
	require.ErrorIs(t, err, ErrEmptyCart)
	require.Empty(t, orders.orders)
	require.Zero(t, rows.writeCount())
}

func TestPlaceOrderRejectsInvalidReference(t *testing.T) {
	rows := &cartRows{}
	store := strawberryCart(t, rows)
	writes := rows.writeCount()
	orders := &orderSink{}

	for _, ref := range []string{"", "shopper", "a@upi", "shopper@u", "shop per@upi", "shopper@upi1"} {
		_, err := newService(orders, nil).PlaceOrder(context.Background(), store, ref)
		require.ErrorIs(t, err, ErrInvalidPaymentReference, ref)
	}
	require.Empty(t, orders.orders)
	require.Equal(t, writes, rows.writeCount())
	require.Equal(t, 1, store.Len())
}

func TestPlaceOrderFailureLeavesCartIntact(t *testing.T) {
	rows := &cartRows{}
	store := strawberryCart(t, rows)
	writes := rows.writeCount()
	orders := &orderSink{err: errDown}

	_, err := newService(orders, nil).PlaceOrder(context.Background(), store, "shopper@upi")
	require.ErrorIs(t, err, ErrOrderPlacement)
	require.ErrorIs(t, err, errDown)
	require.Equal(t, 1, store.Len())
	require.Equal(t, writes, rows.writeCount())
}

func TestPlaceOrderClearFailureIsWarning(t *testing.T) {
	rows := &cartRows{}
	store := strawberryCart(t, rows)
	lineID := store.Items()[0].ID
	rows.clearErr = errDown
	orders := &orderSink{}
	spy := &retrySpy{}

	placement, err := newService(orders, spy).PlaceOrder(context.Background(), store, "shopper@okaxis")
	require.NoError(t, err)
	require.ErrorIs(t, placement.ClearWarning, ErrCartClear)
	require.Equal(t, "order-1", placement.Order.ID)
	require.Len(t, orders.orders, 1)

	require.Equal(t, 1, store.Len())
	require.Equal(t, 1, spy.calls)
	require.Equal(t, "user-1", spy.owner)
	require.Equal(t, []cart.Claim{{ID: lineID, Quantity: 3}}, spy.lines)
}

func TestPlaceOrderClearFailureWithoutRetrier(t *testing.T) {
	rows := &cartRows{clearErr: errDown}
	store := strawberryCart(t, rows)
	placement, err := newService(&orderSink{}, nil).PlaceOrder(context.Background(), store, "shopper@upi")
	require.NoError(t, err)
	require.ErrorIs(t, placement.ClearWarning, ErrCartClear)
}

func TestPlaceOrderRequiresSignedInCart(t *testing.T) {
	store := cart.NewStore(cart.Guest("guest_x_1"), nil)
	_, err := newService(&orderSink{}, nil).PlaceOrder(context.Background(), store, "shopper@upi")
	require.ErrorIs(t, err, ErrGuestCheckout)
}

func TestEstimateDeliveryWindow(t *testing.T) {
	svc := &Service{DeliveryMinDays: 3, DeliveryMaxDays: 5}
	for i := 0; i < 200; i++ {
		eta := svc.EstimateDelivery(fixedNow)
		days := int(eta.Sub(fixedNow).Hours() / 24)
		require.GreaterOrEqual(t, days, 3)
		require.LessOrEqual(t, days, 5)
	}

	low := &Service{Intn: func(int) int { return 0 }}
	require.Equal(t, fixedNow.AddDate(0, 0, 3), low.EstimateDelivery(fixedNow))
}

func TestValidUPI(t *testing.T) {
	for _, ok := range []string{"ab@upi", "name.surname@okhdfcbank", "98765-43210@paytm", "user_1@ybl", " x1@upi "} {
		require.True(t, ValidUPI(ok), ok)
	}
	for _, bad := range []string{"", "@upi", "a@upi", "name@", "name@u", "name@up1", "na me@upi", "name@@upi"} {
		require.False(t, ValidUPI(bad), bad)
	}
}
