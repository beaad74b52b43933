package catalog

import (
	"context"
	"net/http"
	"time"

	"cropcart/filemgr"
	"cropcart/models"
	"cropcart/mq"
	"cropcart/utils"

	"github.com/julienschmidt/httprouter"
)

type Handlers struct {
	Store *Store
}

func NewHandlers(store *Store) *Handlers {
	return &Handlers{Store: store}
}

func ownerFromRequest(r *http.Request) models.User {
	return models.User{
		UserID: utils.GetUserIDFromRequest(r),
		Role:   utils.GetRoleFromRequest(r),
	}
}

// GetCatalog serves the full catalog: every listing plus farmer profiles.
// Public, safe to call before authentication resolves. ?refresh=true forces
// a wholesale reload from the backing store.
func (h *Handlers) GetCatalog(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if r.URL.Query().Get("refresh") == "true" || !h.Store.loadedSnapshot() {
		if err := h.Store.LoadAll(ctx); err != nil {
			utils.RespondWithAppError(w, err)
			return
		}
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"success": true,
		"crops":   h.Store.Crops(),
		"farmers": h.Store.Farmers(),
	})
}

// GetFilteredCrops narrows the catalog by query parameters.
func (h *Handlers) GetFilteredCrops(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Store.ensureLoaded(ctx); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	params := r.URL.Query()
	crops := h.Store.Filter(
		params.Get("category"),
		params.Get("region"),
		params.Get("inStock") == "true",
		utils.ParseFloat(params.Get("minPrice")),
		utils.ParseFloat(params.Get("maxPrice")),
	)

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "crops": crops})
}

// GetCrop serves one listing plus its resolved farmer name ("N/A" when the
// profile is missing).
func (h *Handlers) GetCrop(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Store.ensureLoaded(ctx); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	crop, ok := h.Store.CropByID(ps.ByName("cropid"))
	if !ok {
		utils.RespondWithJSON(w, http.StatusNotFound, utils.M{"success": false, "message": "Crop not found"})
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"success":    true,
		"crop":       crop,
		"farmerName": h.Store.FarmerName(crop.FarmerID),
	})
}

// AddCrop creates a listing for the calling farmer from a multipart form.
func (h *Handlers) AddCrop(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	owner := ownerFromRequest(r)
	if owner.UserID == "" {
		http.Error(w, "Invalid user", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		utils.RespondWithJSON(w, http.StatusBadRequest, utils.M{"success": false, "message": "Invalid form"})
		return
	}
	if r.FormValue("name") == "" {
		utils.RespondWithJSON(w, http.StatusBadRequest, utils.M{"success": false, "message": "Name is required"})
		return
	}

	crop := parseCropForm(r)
	if filename, err := filemgr.SaveFormFile(r.MultipartForm, "image", owner.UserID); err == nil && filename != "" {
		crop.ImageURL = filename
	}

	created, err := h.Store.Add(ctx, crop, owner)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	go mq.Emit(ctx, "crop-created", models.Index{
		EntityType: "crop", EntityId: created.CropID, Method: "POST",
	})
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "crop": created})
}

// EditCrop updates a listing owned by the calling farmer.
func (h *Handlers) EditCrop(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	owner := ownerFromRequest(r)
	if owner.UserID == "" {
		http.Error(w, "Invalid user", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		utils.RespondWithJSON(w, http.StatusBadRequest, utils.M{"success": false, "message": "Invalid form"})
		return
	}

	// Load before the precheck so a fresh process does not 404 a listing
	// that exists remotely.
	if err := h.Store.ensureLoaded(ctx); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	cropID := ps.ByName("cropid")
	existing, ok := h.Store.CropByID(cropID)
	if !ok {
		utils.RespondWithJSON(w, http.StatusNotFound, utils.M{"success": false, "message": "Crop not found"})
		return
	}

	crop := mergeCropForm(r, existing)
	if filename, err := filemgr.SaveFormFile(r.MultipartForm, "image", owner.UserID); err == nil && filename != "" {
		crop.ImageURL = filename
	}

	updated, err := h.Store.Update(ctx, crop, owner)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	go mq.Emit(ctx, "crop-updated", models.Index{
		EntityType: "crop", EntityId: cropID, Method: "PUT",
	})
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "crop": updated})
}

// DeleteCrop removes a listing. Deleting an unknown id succeeds as a no-op.
func (h *Handlers) DeleteCrop(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	owner := ownerFromRequest(r)
	if owner.UserID == "" {
		http.Error(w, "Invalid user", http.StatusUnauthorized)
		return
	}

	cropID := ps.ByName("cropid")
	if err := h.Store.Remove(ctx, cropID, owner); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	go mq.Emit(ctx, "crop-deleted", models.Index{
		EntityType: "crop", EntityId: cropID, Method: "DELETE",
	})
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true})
}

func parseCropForm(r *http.Request) models.Crop {
	return models.Crop{
		Name:         r.FormValue("name"),
		Price:        utils.ParseFloat(r.FormValue("price")),
		Quantity:     utils.ParseInt(r.FormValue("quantity")),
		Unit:         r.FormValue("unit"),
		Description:  r.FormValue("description"),
		Category:     r.FormValue("category"),
		FarmLocation: r.FormValue("location"),
		Contact:      r.FormValue("contact"),
	}
}

func mergeCropForm(r *http.Request, existing models.Crop) models.Crop {
	crop := existing
	if v := r.FormValue("name"); v != "" {
		crop.Name = v
	}
	if v := r.FormValue("price"); v != "" {
		crop.Price = utils.ParseFloat(v)
	}
	if v := r.FormValue("quantity"); v != "" {
		crop.Quantity = utils.ParseInt(v)
	}
	if v := r.FormValue("unit"); v != "" {
		crop.Unit = v
	}
	if v := r.FormValue("description"); v != "" {
		crop.Description = v
	}
	if v := r.FormValue("category"); v != "" {
		crop.Category = v
	}
	if v := r.FormValue("location"); v != "" {
		crop.FarmLocation = v
	}
	if v := r.FormValue("contact"); v != "" {
		crop.Contact = v
	}
	return crop
}
