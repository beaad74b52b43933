// Package catalog holds the denormalized listing and farmer collections.
// Reads are served from memory; loads replace the collections wholesale.
// Mutations apply optimistically and roll back if the remote write fails, so
// local state never silently drifts from the backing store.
package catalog

import (
	"context"
	"sync"
	"time"

	"cropcart/apperr"
	"cropcart/models"
	"cropcart/utils"
)

// Repo is the crops/users collection surface behind the store.
type Repo interface {
	FindCrops(ctx context.Context) ([]models.Crop, error)
	FindFarmers(ctx context.Context) ([]models.User, error)
	InsertCrop(ctx context.Context, crop models.Crop) error
	UpdateCrop(ctx context.Context, crop models.Crop) (bool, error)
	DeleteCrop(ctx context.Context, cropID string) error
}

type Store struct {
	mu      sync.RWMutex
	repo    Repo
	crops   []models.Crop
	farmers map[string]models.User
	epoch   uint64
	loaded  bool
}

func NewStore(repo Repo) *Store {
	return &Store{repo: repo, farmers: make(map[string]models.User)}
}

// LoadAll fetches every listing and every farmer profile and replaces the
// local collections wholesale. Idempotent, and safe before authentication
// since the catalog is public. A load whose epoch went stale while fetching
// is discarded rather than clobbering newer state.
func (s *Store) LoadAll(ctx context.Context) error {
	s.mu.Lock()
	s.epoch++
	issued := s.epoch
	s.mu.Unlock()

	crops, err := s.repo.FindCrops(ctx)
	if err != nil {
		return apperr.Wrap(apperr.ErrRemoteRead, "load crops")
	}
	farmers, err := s.repo.FindFarmers(ctx)
	if err != nil {
		return apperr.Wrap(apperr.ErrRemoteRead, "load farmers")
	}

	byID := make(map[string]models.User, len(farmers))
	for _, f := range farmers {
		byID[f.UserID] = f
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != issued {
		return nil
	}
	s.crops = crops
	s.farmers = byID
	s.loaded = true
	return nil
}

func (s *Store) loadedSnapshot() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

func (s *Store) ensureLoaded(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}
	return s.LoadAll(ctx)
}

// Add creates a listing owned by the caller. Requires the farmer role.
// Optimistic: the listing is visible locally while the insert is in flight
// and removed again if the insert fails.
func (s *Store) Add(ctx context.Context, crop models.Crop, owner models.User) (models.Crop, error) {
	if owner.Role != models.RoleFarmer {
		return models.Crop{}, apperr.Wrap(apperr.ErrPermission, "only farmers can create listings")
	}
	if crop.Name == "" || crop.Price < 0 || crop.Quantity < 0 {
		return models.Crop{}, apperr.Wrap(apperr.ErrInvalid, "listing fields out of range")
	}
	if err := s.ensureLoaded(ctx); err != nil {
		return models.Crop{}, err
	}

	now := time.Now().UTC()
	crop.CropID = utils.GetUUID()
	crop.FarmerID = owner.UserID
	crop.CreatedAt = now
	crop.UpdatedAt = now

	s.mu.Lock()
	s.crops = append(s.crops, crop)
	s.mu.Unlock()

	if err := s.repo.InsertCrop(ctx, crop); err != nil {
		s.dropLocal(crop.CropID)
		return models.Crop{}, apperr.Wrap(apperr.ErrRemoteWrite, "insert listing %s", crop.CropID)
	}
	return crop, nil
}

// Update replaces a listing. The caller must be the owning farmer. Rolls the
// optimistic local replacement back on remote failure or a vanished document.
func (s *Store) Update(ctx context.Context, crop models.Crop, owner models.User) (models.Crop, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return models.Crop{}, err
	}

	s.mu.Lock()
	idx := s.indexLocked(crop.CropID)
	if idx < 0 {
		s.mu.Unlock()
		return models.Crop{}, apperr.Wrap(apperr.ErrNotFound, "listing %s", crop.CropID)
	}
	previous := s.crops[idx]
	if owner.Role != models.RoleFarmer || owner.UserID != previous.FarmerID {
		s.mu.Unlock()
		return models.Crop{}, apperr.Wrap(apperr.ErrPermission, "listing %s is not owned by caller", crop.CropID)
	}

	crop.FarmerID = previous.FarmerID
	crop.CreatedAt = previous.CreatedAt
	crop.UpdatedAt = time.Now().UTC()
	s.crops[idx] = crop
	s.mu.Unlock()

	matched, err := s.repo.UpdateCrop(ctx, crop)
	if err != nil {
		s.restoreLocal(previous)
		return models.Crop{}, apperr.Wrap(apperr.ErrRemoteWrite, "update listing %s", crop.CropID)
	}
	if !matched {
		s.dropLocal(crop.CropID)
		return models.Crop{}, apperr.Wrap(apperr.ErrNotFound, "listing %s", crop.CropID)
	}
	return crop, nil
}

// Remove deletes a listing locally and remotely. Removing an id that does not
// exist is a no-op, not an error. Restores the listing on remote failure.
func (s *Store) Remove(ctx context.Context, cropID string, owner models.User) error {
	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	idx := s.indexLocked(cropID)
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}
	previous := s.crops[idx]
	if owner.Role != models.RoleFarmer || owner.UserID != previous.FarmerID {
		s.mu.Unlock()
		return apperr.Wrap(apperr.ErrPermission, "listing %s is not owned by caller", cropID)
	}
	s.crops = append(s.crops[:idx], s.crops[idx+1:]...)
	s.mu.Unlock()

	if err := s.repo.DeleteCrop(ctx, cropID); err != nil {
		s.restoreLocal(previous)
		return apperr.Wrap(apperr.ErrRemoteWrite, "delete listing %s", cropID)
	}
	return nil
}

func (s *Store) indexLocked(cropID string) int {
	for i := range s.crops {
		if s.crops[i].CropID == cropID {
			return i
		}
	}
	return -1
}

func (s *Store) dropLocal(cropID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.indexLocked(cropID); idx >= 0 {
		s.crops = append(s.crops[:idx], s.crops[idx+1:]...)
	}
}

func (s *Store) restoreLocal(previous models.Crop) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.indexLocked(previous.CropID); idx >= 0 {
		s.crops[idx] = previous
	} else {
		s.crops = append(s.crops, previous)
	}
}

// Crops returns a copy of every listing.
func (s *Store) Crops() []models.Crop {
	s.mu.RLock()
	defer s.mu.RUnlock()
	crops := make([]models.Crop, len(s.crops))
	copy(crops, s.crops)
	return crops
}

// Resolve returns the authoritative listing for an id, loading the catalog
// first if this process has not seen it yet.
func (s *Store) Resolve(ctx context.Context, cropID string) (models.Crop, bool, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return models.Crop{}, false, err
	}
	crop, ok := s.CropByID(cropID)
	return crop, ok, nil
}

// CropByID returns one listing.
func (s *Store) CropByID(cropID string) (models.Crop, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx := s.indexLocked(cropID); idx >= 0 {
		return s.crops[idx], true
	}
	return models.Crop{}, false
}

// Filter narrows listings by category, region, stock, and price bounds.
func (s *Store) Filter(category, region string, inStock bool, minPrice, maxPrice float64) []models.Crop {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Crop{}
	for _, c := range s.crops {
		if category != "" && c.Category != category {
			continue
		}
		if region != "" && c.FarmLocation != region {
			continue
		}
		if inStock && c.Quantity <= 0 {
			continue
		}
		if minPrice > 0 && c.Price < minPrice {
			continue
		}
		if maxPrice > 0 && c.Price > maxPrice {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Farmers returns a copy of every farmer profile.
func (s *Store) Farmers() []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	farmers := make([]models.User, 0, len(s.farmers))
	for _, f := range s.farmers {
		farmers = append(farmers, f)
	}
	return farmers
}

// FarmerName resolves a farmer id for display. Listings referencing a farmer
// with no resolvable profile render "N/A" instead of failing the view.
func (s *Store) FarmerName(farmerID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if f, ok := s.farmers[farmerID]; ok && f.Name != "" {
		return f.Name
	}
	if f, ok := s.farmers[farmerID]; ok && f.Username != "" {
		return f.Username
	}
	return "N/A"
}
