package cart

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"cropcart/models"
	"cropcart/utils"

	"github.com/julienschmidt/httprouter"
)

// Lister resolves a crop id to the authoritative catalog listing.
type Lister interface {
	Resolve(ctx context.Context, cropID string) (models.Crop, bool, error)
}

// Handlers serves the cart and wishlist stores over HTTP. Both require an
// authenticated buyer; unauthenticated calls get 401 so the client can
// redirect to login instead of failing silently. Added items are resolved
// against the catalog, so a client-supplied price is never trusted.
type Handlers struct {
	Cart     *Store
	Wishlist *Store
	Catalog  Lister
}

func NewHandlers(cartStore, wishlistStore *Store, catalog Lister) *Handlers {
	return &Handlers{Cart: cartStore, Wishlist: wishlistStore, Catalog: catalog}
}

func requireBuyer(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return "", false
	}
	if role := utils.GetRoleFromRequest(r); role != models.RoleBuyer {
		utils.RespondWithJSON(w, http.StatusForbidden, utils.M{"success": false, "message": "Buyer account required"})
		return "", false
	}
	return userID, true
}

type addItemPayload struct {
	Crop     models.Crop `json:"crop"`
	Quantity int         `json:"quantity"`
}

func (h *Handlers) AddToCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := requireBuyer(w, r)
	if !ok {
		return
	}

	var payload addItemPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	if payload.Crop.CropID == "" {
		http.Error(w, "Missing or invalid fields", http.StatusBadRequest)
		return
	}
	if payload.Quantity < 1 {
		payload.Quantity = 1
	}

	crop, found, err := h.Catalog.Resolve(ctx, payload.Crop.CropID)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if !found {
		utils.RespondWithJSON(w, http.StatusNotFound, utils.M{"success": false, "message": "Crop not found"})
		return
	}

	h.Cart.AddItem(userID, crop, payload.Quantity)
	utils.RespondWithJSON(w, http.StatusCreated, utils.M{
		"success": true,
		"items":   h.Cart.Items(userID),
		"total":   h.Cart.Total(userID),
	})
}

func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID, ok := requireBuyer(w, r)
	if !ok {
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"success": true,
		"items":   h.Cart.Items(userID),
		"total":   h.Cart.Total(userID),
	})
}

func (h *Handlers) SetCartQuantity(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, ok := requireBuyer(w, r)
	if !ok {
		return
	}

	var payload struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	h.Cart.SetQuantity(userID, ps.ByName("cropid"), payload.Quantity)
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"success": true,
		"items":   h.Cart.Items(userID),
		"total":   h.Cart.Total(userID),
	})
}

func (h *Handlers) RemoveFromCart(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, ok := requireBuyer(w, r)
	if !ok {
		return
	}

	h.Cart.RemoveItem(userID, ps.ByName("cropid"))
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"success": true,
		"items":   h.Cart.Items(userID),
		"total":   h.Cart.Total(userID),
	})
}

func (h *Handlers) ClearCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID, ok := requireBuyer(w, r)
	if !ok {
		return
	}

	h.Cart.Clear(userID)
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true})
}

func (h *Handlers) AddToWishlist(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := requireBuyer(w, r)
	if !ok {
		return
	}

	var payload addItemPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	if payload.Crop.CropID == "" {
		http.Error(w, "Missing or invalid fields", http.StatusBadRequest)
		return
	}

	crop, found, err := h.Catalog.Resolve(ctx, payload.Crop.CropID)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if !found {
		utils.RespondWithJSON(w, http.StatusNotFound, utils.M{"success": false, "message": "Crop not found"})
		return
	}

	h.Wishlist.AddItem(userID, crop, 1)
	utils.RespondWithJSON(w, http.StatusCreated, utils.M{
		"success": true,
		"items":   h.Wishlist.Items(userID),
	})
}

func (h *Handlers) GetWishlist(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID, ok := requireBuyer(w, r)
	if !ok {
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"success": true,
		"items":   h.Wishlist.Items(userID),
	})
}

func (h *Handlers) RemoveFromWishlist(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, ok := requireBuyer(w, r)
	if !ok {
		return
	}

	h.Wishlist.RemoveItem(userID, ps.ByName("cropid"))
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"success": true,
		"items":   h.Wishlist.Items(userID),
	})
}
