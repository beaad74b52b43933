package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"

	"cropcart/apperr"
	"cropcart/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	mu         sync.Mutex
	crops      []models.Crop
	farmers    []models.User
	findErr    error
	insertErr  error
	updateErr  error
	deleteErr  error
	unmatched  bool
	insertions int
}

func (f *fakeRepo) FindCrops(context.Context) ([]models.Crop, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	out := make([]models.Crop, len(f.crops))
	copy(out, f.crops)
	return out, nil
}

func (f *fakeRepo) FindFarmers(context.Context) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.farmers, nil
}

func (f *fakeRepo) InsertCrop(_ context.Context, crop models.Crop) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.crops = append(f.crops, crop)
	f.insertions++
	return nil
}

func (f *fakeRepo) UpdateCrop(_ context.Context, crop models.Crop) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return false, f.updateErr
	}
	if f.unmatched {
		return false, nil
	}
	for i := range f.crops {
		if f.crops[i].CropID == crop.CropID {
			f.crops[i] = crop
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) DeleteCrop(_ context.Context, cropID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for i := range f.crops {
		if f.crops[i].CropID == cropID {
			f.crops = append(f.crops[:i], f.crops[i+1:]...)
			break
		}
	}
	return nil
}

var (
	alice = models.User{UserID: "f1", Username: "alice", Name: "Alice Greenfield", Role: models.RoleFarmer}
	bob   = models.User{UserID: "f2", Username: "bob", Role: models.RoleFarmer}
	carol = models.User{UserID: "b1", Username: "carol", Role: models.RoleBuyer}
)

func seededRepo() *fakeRepo {
	return &fakeRepo{
		crops: []models.Crop{
			{CropID: "c1", Name: "Tomatoes", Price: 2.99, Quantity: 10, FarmerID: "f1"},
			{CropID: "c2", Name: "Spinach", Price: 0.75, Quantity: 5, FarmerID: "f2"},
		},
		farmers: []models.User{alice, bob},
	}
}

func TestLoadAllReplacesWholesale(t *testing.T) {
	repo := seededRepo()
	s := NewStore(repo)
	ctx := context.Background()

	require.NoError(t, s.LoadAll(ctx))
	assert.Len(t, s.Crops(), 2)

	repo.mu.Lock()
	repo.crops = repo.crops[:1]
	repo.mu.Unlock()

	require.NoError(t, s.LoadAll(ctx))
	assert.Len(t, s.Crops(), 1)
}

func TestAddRequiresFarmerRole(t *testing.T) {
	s := NewStore(seededRepo())

	_, err := s.Add(context.Background(), models.Crop{Name: "Kale", Price: 1.5}, carol)
	assert.ErrorIs(t, err, apperr.ErrPermission)
}

func TestAddRollsBackOnRemoteFailure(t *testing.T) {
	repo := seededRepo()
	s := NewStore(repo)
	ctx := context.Background()
	require.NoError(t, s.LoadAll(ctx))

	repo.insertErr = errors.New("write timeout")
	_, err := s.Add(ctx, models.Crop{Name: "Kale", Price: 1.5}, alice)

	assert.ErrorIs(t, err, apperr.ErrRemoteWrite)
	assert.Len(t, s.Crops(), 2)
}

func TestAddAssignsOwnership(t *testing.T) {
	repo := seededRepo()
	s := NewStore(repo)
	ctx := context.Background()

	created, err := s.Add(ctx, models.Crop{Name: "Kale", Price: 1.5, FarmerID: "someone-else"}, alice)
	require.NoError(t, err)

	assert.Equal(t, "f1", created.FarmerID)
	assert.NotEmpty(t, created.CropID)
	assert.Equal(t, 1, repo.insertions)
}

func TestUpdateRejectsNonOwner(t *testing.T) {
	s := NewStore(seededRepo())
	ctx := context.Background()
	require.NoError(t, s.LoadAll(ctx))

	_, err := s.Update(ctx, models.Crop{CropID: "c1", Name: "Cherry Tomatoes", Price: 3.5}, bob)
	assert.ErrorIs(t, err, apperr.ErrPermission)

	_, err = s.Update(ctx, models.Crop{CropID: "c1", Name: "Cherry Tomatoes", Price: 3.5}, carol)
	assert.ErrorIs(t, err, apperr.ErrPermission)

	crop, ok := s.CropByID("c1")
	require.True(t, ok)
	assert.Equal(t, "Tomatoes", crop.Name)
}

func TestUpdatePreservesOwnerOnSuccess(t *testing.T) {
	s := NewStore(seededRepo())
	ctx := context.Background()
	require.NoError(t, s.LoadAll(ctx))

	updated, err := s.Update(ctx, models.Crop{CropID: "c1", Name: "Cherry Tomatoes", Price: 3.5, FarmerID: "hijack"}, alice)
	require.NoError(t, err)

	assert.Equal(t, "f1", updated.FarmerID)
	assert.Equal(t, "Cherry Tomatoes", updated.Name)
}

func TestUpdateRestoresPreviousOnRemoteFailure(t *testing.T) {
	repo := seededRepo()
	s := NewStore(repo)
	ctx := context.Background()
	require.NoError(t, s.LoadAll(ctx))

	repo.updateErr = errors.New("write timeout")
	_, err := s.Update(ctx, models.Crop{CropID: "c1", Name: "Cherry Tomatoes", Price: 3.5}, alice)

	assert.ErrorIs(t, err, apperr.ErrRemoteWrite)
	crop, ok := s.CropByID("c1")
	require.True(t, ok)
	assert.Equal(t, "Tomatoes", crop.Name)
	assert.InDelta(t, 2.99, crop.Price, 1e-9)
}

func TestUpdateVanishedDocumentDropsLocal(t *testing.T) {
	repo := seededRepo()
	s := NewStore(repo)
	ctx := context.Background()
	require.NoError(t, s.LoadAll(ctx))

	repo.unmatched = true
	_, err := s.Update(ctx, models.Crop{CropID: "c1", Name: "Cherry Tomatoes", Price: 3.5}, alice)

	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, ok := s.CropByID("c1")
	assert.False(t, ok)
}

func TestRemoveUnknownIDIsNoOp(t *testing.T) {
	s := NewStore(seededRepo())
	ctx := context.Background()
	require.NoError(t, s.LoadAll(ctx))

	assert.NoError(t, s.Remove(ctx, "missing", alice))
	assert.Len(t, s.Crops(), 2)
}

func TestRemoveRestoresOnRemoteFailure(t *testing.T) {
	repo := seededRepo()
	s := NewStore(repo)
	ctx := context.Background()
	require.NoError(t, s.LoadAll(ctx))

	repo.deleteErr = errors.New("write timeout")
	err := s.Remove(ctx, "c1", alice)

	assert.ErrorIs(t, err, apperr.ErrRemoteWrite)
	_, ok := s.CropByID("c1")
	assert.True(t, ok)
}

func TestRemoveRejectsNonOwner(t *testing.T) {
	s := NewStore(seededRepo())
	ctx := context.Background()
	require.NoError(t, s.LoadAll(ctx))

	err := s.Remove(ctx, "c1", bob)
	assert.ErrorIs(t, err, apperr.ErrPermission)
}

func TestFarmerNameFallsBackToNA(t *testing.T) {
	s := NewStore(seededRepo())
	require.NoError(t, s.LoadAll(context.Background()))

	assert.Equal(t, "Alice Greenfield", s.FarmerName("f1"))
	// Bob has no display name; the username still resolves.
	assert.Equal(t, "bob", s.FarmerName("f2"))
	assert.Equal(t, "N/A", s.FarmerName("ghost"))
}

func TestFilterNarrowsByBounds(t *testing.T) {
	repo := seededRepo()
	repo.crops = append(repo.crops, models.Crop{
		CropID: "c3", Name: "Mangoes", Price: 4.5, Quantity: 0, Category: "fruit", FarmerID: "f1",
	})
	s := NewStore(repo)
	require.NoError(t, s.LoadAll(context.Background()))

	assert.Len(t, s.Filter("fruit", "", false, 0, 0), 1)
	assert.Empty(t, s.Filter("fruit", "", true, 0, 0))
	assert.Len(t, s.Filter("", "", false, 1.0, 0), 2)
	assert.Len(t, s.Filter("", "", false, 0, 1.0), 1)
}
