// Package cart holds the per-user cart and wishlist collections. In-memory
// lines are authoritative; every mutation schedules a write-behind of the full
// serialized collection to the user's cache key. Writes are tagged with the
// user's store epoch and a per-user sequence number: a write whose epoch moved
// while it was in flight is dropped (a late persist can never resurrect a
// cleared cart after sign-out), and writes for one user land in mutation order
// (an older snapshot can never overwrite a newer one).
package cart

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"cropcart/models"
	"cropcart/rdx"
)

const persistTimeout = 5 * time.Second

// Store is one per-user collection family: the cart (quantities merge) or the
// wishlist (set semantics, quantity pinned to 1).
type Store struct {
	mu           sync.Mutex
	collection   string
	withQuantity bool
	lines        map[string][]models.CartItem
	epochs       map[string]uint64
	seqs         map[string]uint64
	writers      map[string]*cacheWriter
	cache        rdx.Cache
	wg           sync.WaitGroup
}

// cacheWriter serializes cache writes for one user. Holding mu across the
// write plus the sequence check guarantees snapshots land in mutation order.
type cacheWriter struct {
	mu      sync.Mutex
	written uint64
}

func NewStore(collection string, withQuantity bool, cache rdx.Cache) *Store {
	return &Store{
		collection:   collection,
		withQuantity: withQuantity,
		lines:        make(map[string][]models.CartItem),
		epochs:       make(map[string]uint64),
		seqs:         make(map[string]uint64),
		writers:      make(map[string]*cacheWriter),
		cache:        cache,
	}
}

// NewCartStore returns the cart instance (quantities, cropcart-cart-{userId}).
func NewCartStore(cache rdx.Cache) *Store { return NewStore("cart", true, cache) }

// NewWishlistStore returns the wishlist instance (set semantics).
func NewWishlistStore(cache rdx.Cache) *Store { return NewStore("wishlist", false, cache) }

// Hydrate loads the user's collection from the cache key. A value that fails
// to parse falls back to an empty collection; the parse error is logged and
// never propagated. A hydrate whose epoch went stale while the cache read was
// in flight (a sign-out raced it) is discarded rather than resurrecting state.
func (s *Store) Hydrate(ctx context.Context, userID string) {
	s.mu.Lock()
	s.epochs[userID]++
	issued := s.epochs[userID]
	s.mu.Unlock()

	raw, err := s.cache.Get(ctx, rdx.CacheKey(s.collection, userID))
	if err != nil {
		log.Printf("%s hydrate: cache read for %s failed: %v", s.collection, userID, err)
		raw = ""
	}

	var items []models.CartItem
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			log.Printf("%s hydrate: cached value for %s unparsable, starting empty: %v", s.collection, userID, err)
			items = nil
		}
	}

	s.mu.Lock()
	if s.epochs[userID] == issued {
		s.lines[userID] = items
	}
	s.mu.Unlock()
}

// AddItem merges a listing snapshot into the collection. An existing line for
// the same crop id has its quantity incremented; the wishlist dedups instead.
func (s *Store) AddItem(userID string, crop models.Crop, qty int) {
	if qty < 1 {
		qty = 1
	}
	if !s.withQuantity {
		qty = 1
	}

	s.mu.Lock()
	items := s.lines[userID]
	found := false
	for i := range items {
		if items[i].CropID == crop.CropID {
			if s.withQuantity {
				items[i].Quantity += qty
			}
			found = true
			break
		}
	}
	if !found {
		items = append(items, models.CartItem{
			CropID:   crop.CropID,
			Name:     crop.Name,
			Price:    crop.Price,
			Unit:     crop.Unit,
			ImageURL: crop.ImageURL,
			Category: crop.Category,
			FarmerID: crop.FarmerID,
			Quantity: qty,
			AddedAt:  time.Now().UTC(),
		})
	}
	s.lines[userID] = items
	s.persistLocked(userID)
	s.mu.Unlock()
}

// SetQuantity replaces a line's quantity; qty <= 0 removes the line.
func (s *Store) SetQuantity(userID, cropID string, qty int) {
	if qty <= 0 {
		s.RemoveItem(userID, cropID)
		return
	}

	s.mu.Lock()
	items := s.lines[userID]
	for i := range items {
		if items[i].CropID == cropID {
			items[i].Quantity = qty
			s.persistLocked(userID)
			break
		}
	}
	s.mu.Unlock()
}

// RemoveItem deletes the line for a crop id; absent lines are a no-op.
func (s *Store) RemoveItem(userID, cropID string) {
	s.mu.Lock()
	items := s.lines[userID]
	for i := range items {
		if items[i].CropID == cropID {
			s.lines[userID] = append(items[:i], items[i+1:]...)
			s.persistLocked(userID)
			break
		}
	}
	s.mu.Unlock()
}

// Clear empties the collection but keeps the session live.
func (s *Store) Clear(userID string) {
	s.mu.Lock()
	s.lines[userID] = nil
	s.persistLocked(userID)
	s.mu.Unlock()
}

// Drop wipes the user's state and cache entry on sign-out. The epoch bump
// invalidates any persist still in flight.
func (s *Store) Drop(ctx context.Context, userID string) {
	s.mu.Lock()
	s.epochs[userID]++
	delete(s.lines, userID)
	s.mu.Unlock()

	if err := s.cache.Del(ctx, rdx.CacheKey(s.collection, userID)); err != nil {
		log.Printf("%s drop: cache delete for %s failed: %v", s.collection, userID, err)
	}
}

// Items returns copies of the user's lines.
func (s *Store) Items(userID string) []models.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]models.CartItem, len(s.lines[userID]))
	copy(items, s.lines[userID])
	return items
}

// Contains reports whether a crop id is present (wishlist membership check).
func (s *Store) Contains(userID, cropID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.lines[userID] {
		if it.CropID == cropID {
			return true
		}
	}
	return false
}

// Total is Σ price × quantity over current lines, recomputed on every call.
func (s *Store) Total(userID string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total float64
	for _, it := range s.lines[userID] {
		total += it.Price * float64(it.Quantity)
	}
	return total
}

// persistLocked snapshots the collection under the caller's lock and schedules
// the cache write. The snapshot carries the epoch it was issued under plus a
// per-user sequence number assigned in mutation order.
func (s *Store) persistLocked(userID string) {
	epoch := s.epochs[userID]
	s.seqs[userID]++
	seq := s.seqs[userID]
	data, err := json.Marshal(s.lines[userID])
	if err != nil {
		log.Printf("%s persist: marshal for %s failed: %v", s.collection, userID, err)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.persist(userID, epoch, seq, data)
	}()
}

func (s *Store) persist(userID string, epoch, seq uint64, data []byte) {
	s.mu.Lock()
	stale := s.epochs[userID] != epoch
	w := s.writers[userID]
	if w == nil {
		w = &cacheWriter{}
		s.writers[userID] = w
	}
	s.mu.Unlock()
	if stale {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if seq <= w.written {
		// A newer snapshot already landed; this one is obsolete.
		return
	}
	w.written = seq

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.cache.Set(ctx, rdx.CacheKey(s.collection, userID), string(data), 0); err != nil {
		log.Printf("%s persist: cache write for %s failed: %v", s.collection, userID, err)
	}
}

// Flush waits for scheduled persists to finish. Used by tests and shutdown.
func (s *Store) Flush() {
	s.wg.Wait()
}
