package orders

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cropcart/apperr"
	"cropcart/cart"
	"cropcart/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memCache struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemCache() *memCache { return &memCache{values: make(map[string]string)} }

func (m *memCache) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key], nil
}

func (m *memCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *memCache) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

type fakeRepo struct {
	mu        sync.Mutex
	orders    []models.Order
	insertErr error
	updateErr error
}

func (f *fakeRepo) Insert(_ context.Context, order models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.orders = append(f.orders, order)
	return nil
}

func (f *fakeRepo) UpdateStatus(_ context.Context, orderID, status string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return false, f.updateErr
	}
	for i := range f.orders {
		if f.orders[i].OrderID == orderID {
			f.orders[i].Status = status
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) FindByBuyer(_ context.Context, userID string) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Order
	for _, o := range f.orders {
		if o.Buyer.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeRepo) FindByFarmer(_ context.Context, farmerID string) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Order
	for _, o := range f.orders {
		for _, id := range o.FarmerIDs {
			if id == farmerID {
				out = append(out, o)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeRepo) FindByID(_ context.Context, orderID string) (models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.OrderID == orderID {
			return o, nil
		}
	}
	return models.Order{}, apperr.Wrap(apperr.ErrNotFound, "order %s", orderID)
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []OrderEvent
	users  [][]string
}

func (f *fakeNotifier) Publish(userIDs []string, event any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := event.(OrderEvent); ok {
		f.events = append(f.events, e)
		f.users = append(f.users, userIDs)
	}
}

var (
	buyer   = models.User{UserID: "b1", Name: "Carol", Email: "carol@example.com", Role: models.RoleBuyer}
	farmer1 = models.User{UserID: "f1", Name: "Alice", Role: models.RoleFarmer}
	farmer2 = models.User{UserID: "f2", Name: "Bob", Role: models.RoleFarmer}
)

func filledCart(t *testing.T) *cart.Store {
	t.Helper()
	s := cart.NewCartStore(newMemCache())
	s.AddItem("b1", models.Crop{CropID: "c1", Name: "Tomatoes", Price: 2.99, FarmerID: "f1"}, 2)
	s.AddItem("b1", models.Crop{CropID: "c2", Name: "Spinach", Price: 0.75, FarmerID: "f2"}, 4)
	s.AddItem("b1", models.Crop{CropID: "c3", Name: "Basil", Price: 1.25, FarmerID: "f1"}, 1)
	return s
}

func TestPlaceOrderSnapshotsCart(t *testing.T) {
	cartStore := filledCart(t)
	repo := &fakeRepo{}
	p := NewPipeline(repo, cartStore, nil)
	ctx := context.Background()

	order, err := p.PlaceOrder(ctx, buyer)
	require.NoError(t, err)

	assert.Len(t, order.Items, 3)
	assert.InDelta(t, 10.23, order.Total, 1e-9)
	assert.Equal(t, models.StatusPending, order.Status)
	assert.Equal(t, []string{"f1", "f2"}, order.FarmerIDs)
	assert.Equal(t, "b1", order.Buyer.UserID)
	assert.Equal(t, "Carol", order.Buyer.Name)

	// Checkout clears the cart.
	assert.Empty(t, cartStore.Items("b1"))
	cartStore.Flush()
}

func TestPlaceOrderTotalComputedFromSnapshot(t *testing.T) {
	cartStore := filledCart(t)
	p := NewPipeline(&fakeRepo{}, cartStore, nil)

	order, err := p.PlaceOrder(context.Background(), buyer)
	require.NoError(t, err)

	// The total must agree with the snapshotted lines, never a re-read of
	// the live cart.
	var fromItems float64
	for _, it := range order.Items {
		fromItems += it.Price * float64(it.Quantity)
	}
	assert.InDelta(t, fromItems, order.Total, 1e-9)
	cartStore.Flush()
}

func TestPlaceOrderEmptyCartRejected(t *testing.T) {
	p := NewPipeline(&fakeRepo{}, cart.NewCartStore(newMemCache()), nil)

	_, err := p.PlaceOrder(context.Background(), buyer)
	assert.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestPlaceOrderFarmerRejected(t *testing.T) {
	p := NewPipeline(&fakeRepo{}, filledCart(t), nil)

	_, err := p.PlaceOrder(context.Background(), farmer1)
	assert.ErrorIs(t, err, apperr.ErrPermission)
}

func TestPlaceOrderFailureLeavesCartIntact(t *testing.T) {
	cartStore := filledCart(t)
	repo := &fakeRepo{insertErr: errors.New("write timeout")}
	p := NewPipeline(repo, cartStore, nil)

	_, err := p.PlaceOrder(context.Background(), buyer)

	assert.ErrorIs(t, err, apperr.ErrRemoteWrite)
	assert.Len(t, cartStore.Items("b1"), 3)
	assert.Empty(t, p.Orders("b1"))
	cartStore.Flush()
}

func TestOrderUnaffectedByLaterCartChanges(t *testing.T) {
	cartStore := filledCart(t)
	p := NewPipeline(&fakeRepo{}, cartStore, nil)
	ctx := context.Background()

	order, err := p.PlaceOrder(ctx, buyer)
	require.NoError(t, err)

	cartStore.AddItem("b1", models.Crop{CropID: "c9", Name: "Corn", Price: 9.99, FarmerID: "f1"}, 7)

	held := p.Orders("b1")
	require.Len(t, held, 1)
	assert.Len(t, held[0].Items, 3)
	assert.InDelta(t, order.Total, held[0].Total, 1e-9)
	cartStore.Flush()
}

func TestUpdateStatusRequiresInvolvedFarmer(t *testing.T) {
	cartStore := filledCart(t)
	repo := &fakeRepo{}
	p := NewPipeline(repo, cartStore, nil)
	ctx := context.Background()

	order, err := p.PlaceOrder(ctx, buyer)
	require.NoError(t, err)

	_, err = p.UpdateStatus(ctx, order.OrderID, models.StatusShipped, buyer)
	assert.ErrorIs(t, err, apperr.ErrPermission)

	outsider := models.User{UserID: "f9", Role: models.RoleFarmer}
	_, err = p.UpdateStatus(ctx, order.OrderID, models.StatusShipped, outsider)
	assert.ErrorIs(t, err, apperr.ErrPermission)

	updated, err := p.UpdateStatus(ctx, order.OrderID, models.StatusShipped, farmer1)
	require.NoError(t, err)
	assert.Equal(t, models.StatusShipped, updated.Status)
	cartStore.Flush()
}

func TestUpdateStatusUnknownValueRejected(t *testing.T) {
	p := NewPipeline(&fakeRepo{}, cart.NewCartStore(newMemCache()), nil)

	_, err := p.UpdateStatus(context.Background(), "o1", "Teleported", farmer1)
	assert.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestUpdateStatusUnknownOrder(t *testing.T) {
	p := NewPipeline(&fakeRepo{}, cart.NewCartStore(newMemCache()), nil)

	_, err := p.UpdateStatus(context.Background(), "ghost", models.StatusShipped, farmer1)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestLoadForBuyerSortsDateDescending(t *testing.T) {
	now := time.Now().UTC()
	repo := &fakeRepo{orders: []models.Order{
		{OrderID: "o1", Date: now.Add(-2 * time.Hour), Buyer: models.Buyer{UserID: "b1"}},
		{OrderID: "o3", Date: now, Buyer: models.Buyer{UserID: "b1"}},
		{OrderID: "o2", Date: now.Add(-time.Hour), Buyer: models.Buyer{UserID: "b1"}},
	}}
	p := NewPipeline(repo, cart.NewCartStore(newMemCache()), nil)

	list, err := p.LoadForCurrentUser(context.Background(), buyer)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "o3", list[0].OrderID)
	assert.Equal(t, "o2", list[1].OrderID)
	assert.Equal(t, "o1", list[2].OrderID)
}

func TestLoadForFarmerFiltersForeignLines(t *testing.T) {
	repo := &fakeRepo{orders: []models.Order{{
		OrderID: "o1",
		Date:    time.Now().UTC(),
		Buyer:   models.Buyer{UserID: "b1"},
		Items: []models.CartItem{
			{CropID: "c1", FarmerID: "f1", Quantity: 2},
			{CropID: "c2", FarmerID: "f2", Quantity: 4},
		},
		FarmerIDs: []string{"f1", "f2"},
	}}}
	p := NewPipeline(repo, cart.NewCartStore(newMemCache()), nil)

	list, err := p.LoadForCurrentUser(context.Background(), farmer1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Len(t, list[0].Items, 1)
	assert.Equal(t, "f1", list[0].Items[0].FarmerID)

	list, err = p.LoadForCurrentUser(context.Background(), farmer2)
	require.NoError(t, err)
	require.Len(t, list[0].Items, 1)
	assert.Equal(t, "f2", list[0].Items[0].FarmerID)
}

func TestPlaceOrderNotifiesFarmers(t *testing.T) {
	cartStore := filledCart(t)
	notifier := &fakeNotifier{}
	p := NewPipeline(&fakeRepo{}, cartStore, notifier)

	order, err := p.PlaceOrder(context.Background(), buyer)
	require.NoError(t, err)

	require.Len(t, notifier.events, 1)
	assert.Equal(t, "order-placed", notifier.events[0].Type)
	assert.Equal(t, order.OrderID, notifier.events[0].OrderID)
	assert.Equal(t, []string{"f1", "f2"}, notifier.users[0])
	cartStore.Flush()
}

func TestUpdateStatusNotifiesBuyerAndFarmers(t *testing.T) {
	cartStore := filledCart(t)
	notifier := &fakeNotifier{}
	p := NewPipeline(&fakeRepo{}, cartStore, notifier)
	ctx := context.Background()

	order, err := p.PlaceOrder(ctx, buyer)
	require.NoError(t, err)

	_, err = p.UpdateStatus(ctx, order.OrderID, models.StatusDelivered, farmer2)
	require.NoError(t, err)

	require.Len(t, notifier.events, 2)
	assert.Equal(t, "order-status", notifier.events[1].Type)
	assert.ElementsMatch(t, []string{"b1", "f1", "f2"}, notifier.users[1])
	cartStore.Flush()
}

func TestOrderForUserVisibility(t *testing.T) {
	cartStore := filledCart(t)
	p := NewPipeline(&fakeRepo{}, cartStore, nil)
	ctx := context.Background()

	order, err := p.PlaceOrder(ctx, buyer)
	require.NoError(t, err)

	got, err := p.OrderForUser(ctx, order.OrderID, buyer)
	require.NoError(t, err)
	assert.Len(t, got.Items, 3)

	got, err = p.OrderForUser(ctx, order.OrderID, farmer1)
	require.NoError(t, err)
	assert.Len(t, got.Items, 2)

	outsider := models.User{UserID: "x1", Role: models.RoleBuyer}
	_, err = p.OrderForUser(ctx, order.OrderID, outsider)
	assert.ErrorIs(t, err, apperr.ErrPermission)
	cartStore.Flush()
}

func TestDropClearsLocalHistory(t *testing.T) {
	repo := &fakeRepo{orders: []models.Order{
		{OrderID: "o1", Date: time.Now().UTC(), Buyer: models.Buyer{UserID: "b1"}},
	}}
	p := NewPipeline(repo, cart.NewCartStore(newMemCache()), nil)
	ctx := context.Background()

	_, err := p.LoadForCurrentUser(ctx, buyer)
	require.NoError(t, err)
	require.Len(t, p.Orders("b1"), 1)

	p.Drop("b1")
	assert.Empty(t, p.Orders("b1"))
}
