// Package orders owns checkout and the per-user order history. Order creation
// confirms remotely before mutating any local state; a failed placement leaves
// the cart exactly as it was. Loaded histories are sorted locally by date
// descending regardless of how the backing store returns them.
package orders

import (
	"context"
	"sort"
	"sync"
	"time"

	"cropcart/apperr"
	"cropcart/cart"
	"cropcart/models"
	"cropcart/utils"
)

// Repo is the orders collection surface behind the pipeline.
type Repo interface {
	Insert(ctx context.Context, order models.Order) error
	UpdateStatus(ctx context.Context, orderID, status string) (bool, error)
	FindByBuyer(ctx context.Context, userID string) ([]models.Order, error)
	FindByFarmer(ctx context.Context, farmerID string) ([]models.Order, error)
	FindByID(ctx context.Context, orderID string) (models.Order, error)
}

// Notifier receives order events for push delivery.
type Notifier interface {
	Publish(userIDs []string, event any)
}

// OrderEvent is the payload pushed when an order is placed or its status moves.
type OrderEvent struct {
	Type    string       `json:"type"`
	OrderID string       `json:"orderId"`
	Status  string       `json:"status"`
	Order   models.Order `json:"order"`
}

type Pipeline struct {
	mu       sync.Mutex
	repo     Repo
	cart     *cart.Store
	notifier Notifier
	orders   map[string][]models.Order
	epochs   map[string]uint64
}

func NewPipeline(repo Repo, cartStore *cart.Store, notifier Notifier) *Pipeline {
	return &Pipeline{
		repo:     repo,
		cart:     cartStore,
		notifier: notifier,
		orders:   make(map[string][]models.Order),
		epochs:   make(map[string]uint64),
	}
}

// PlaceOrder turns the buyer's current cart into an order. The order carries a
// snapshot of the cart lines, so later listing edits never alter it. The
// remote insert happens first; only on success is the cart cleared and the
// order prepended to the local history. On failure the cart is untouched.
func (p *Pipeline) PlaceOrder(ctx context.Context, buyer models.User) (models.Order, error) {
	if buyer.Role != models.RoleBuyer {
		return models.Order{}, apperr.Wrap(apperr.ErrPermission, "only buyers can place orders")
	}

	items := p.cart.Items(buyer.UserID)
	if len(items) == 0 {
		return models.Order{}, apperr.Wrap(apperr.ErrInvalid, "cart is empty")
	}

	farmerIDs := make([]string, 0, len(items))
	var total float64
	for _, it := range items {
		farmerIDs = append(farmerIDs, it.FarmerID)
		total += it.Price * float64(it.Quantity)
	}

	order := models.Order{
		OrderID: utils.GetUUID(),
		Date:    time.Now().UTC(),
		Buyer: models.Buyer{
			UserID:  buyer.UserID,
			Name:    buyer.Name,
			Email:   buyer.Email,
			Contact: buyer.Contact,
		},
		Items:     items,
		Total:     total,
		Status:    models.StatusPending,
		FarmerIDs: utils.Dedupe(farmerIDs),
	}

	if err := p.repo.Insert(ctx, order); err != nil {
		return models.Order{}, apperr.Wrap(apperr.ErrRemoteWrite, "place order")
	}

	p.cart.Clear(buyer.UserID)

	p.mu.Lock()
	p.orders[buyer.UserID] = append([]models.Order{order}, p.orders[buyer.UserID]...)
	p.mu.Unlock()

	if p.notifier != nil {
		p.notifier.Publish(order.FarmerIDs, OrderEvent{
			Type: "order-placed", OrderID: order.OrderID, Status: order.Status, Order: order,
		})
	}
	return order, nil
}

// UpdateStatus moves an order to a new status. The caller must be one of the
// order's farmers. Remote write confirms before the local copy changes.
func (p *Pipeline) UpdateStatus(ctx context.Context, orderID, status string, caller models.User) (models.Order, error) {
	if status != models.StatusPending && status != models.StatusShipped && status != models.StatusDelivered {
		return models.Order{}, apperr.Wrap(apperr.ErrInvalid, "unknown status %q", status)
	}

	order, err := p.repo.FindByID(ctx, orderID)
	if err != nil {
		return models.Order{}, err
	}
	if caller.Role != models.RoleFarmer || !utils.Contains(order.FarmerIDs, caller.UserID) {
		return models.Order{}, apperr.Wrap(apperr.ErrPermission, "order %s does not involve caller", orderID)
	}

	matched, err := p.repo.UpdateStatus(ctx, orderID, status)
	if err != nil {
		return models.Order{}, apperr.Wrap(apperr.ErrRemoteWrite, "update order %s", orderID)
	}
	if !matched {
		return models.Order{}, apperr.Wrap(apperr.ErrNotFound, "order %s", orderID)
	}

	order.Status = status
	p.applyStatusLocal(orderID, status)

	if p.notifier != nil {
		recipients := append([]string{order.Buyer.UserID}, order.FarmerIDs...)
		p.notifier.Publish(utils.Dedupe(recipients), OrderEvent{
			Type: "order-status", OrderID: orderID, Status: status, Order: order,
		})
	}
	return order, nil
}

func (p *Pipeline) applyStatusLocal(orderID, status string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for userID, list := range p.orders {
		for i := range list {
			if list[i].OrderID == orderID {
				list[i].Status = status
				p.orders[userID] = list
			}
		}
	}
}

// LoadForCurrentUser fetches the caller's order history. Buyers see orders
// they placed; farmers see orders containing their listings, with the item
// lines filtered down to their own. Results are sorted date-descending
// locally, never trusting remote ordering. A load whose epoch went stale
// while fetching is discarded.
func (p *Pipeline) LoadForCurrentUser(ctx context.Context, user models.User) ([]models.Order, error) {
	p.mu.Lock()
	p.epochs[user.UserID]++
	issued := p.epochs[user.UserID]
	p.mu.Unlock()

	var (
		list []models.Order
		err  error
	)
	switch user.Role {
	case models.RoleBuyer:
		list, err = p.repo.FindByBuyer(ctx, user.UserID)
	case models.RoleFarmer:
		list, err = p.repo.FindByFarmer(ctx, user.UserID)
	default:
		return nil, apperr.Wrap(apperr.ErrAuth, "no signed-in user")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrRemoteRead, "load orders")
	}

	if user.Role == models.RoleFarmer {
		list = filterFarmerLines(list, user.UserID)
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Date.After(list[j].Date)
	})

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.epochs[user.UserID] != issued {
		return p.copyLocked(user.UserID), nil
	}
	p.orders[user.UserID] = list
	return p.copyLocked(user.UserID), nil
}

// filterFarmerLines narrows each order's item lines to the given farmer's
// listings so farmers never see other farmers' lines in a shared order.
func filterFarmerLines(list []models.Order, farmerID string) []models.Order {
	out := make([]models.Order, 0, len(list))
	for _, o := range list {
		items := make([]models.CartItem, 0, len(o.Items))
		for _, it := range o.Items {
			if it.FarmerID == farmerID {
				items = append(items, it)
			}
		}
		o.Items = items
		out = append(out, o)
	}
	return out
}

// Orders returns a copy of the user's locally held history.
func (p *Pipeline) Orders(userID string) []models.Order {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.copyLocked(userID)
}

func (p *Pipeline) copyLocked(userID string) []models.Order {
	list := make([]models.Order, len(p.orders[userID]))
	copy(list, p.orders[userID])
	return list
}

// OrderForUser fetches one order and checks the caller may see it: the buyer
// who placed it or a farmer whose listings it contains.
func (p *Pipeline) OrderForUser(ctx context.Context, orderID string, user models.User) (models.Order, error) {
	order, err := p.repo.FindByID(ctx, orderID)
	if err != nil {
		return models.Order{}, err
	}
	if order.Buyer.UserID != user.UserID && !utils.Contains(order.FarmerIDs, user.UserID) {
		return models.Order{}, apperr.Wrap(apperr.ErrPermission, "order %s does not involve caller", orderID)
	}
	if user.Role == models.RoleFarmer && order.Buyer.UserID != user.UserID {
		filtered := filterFarmerLines([]models.Order{order}, user.UserID)
		order = filtered[0]
	}
	return order, nil
}

// Drop wipes the user's local history on sign-out. The epoch bump invalidates
// any load still in flight.
func (p *Pipeline) Drop(userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.epochs[userID]++
	delete(p.orders, userID)
}
