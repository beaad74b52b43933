package session

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

// Handlers exposes the session manager over HTTP.
type Handlers struct {
	Manager *Manager
}

func NewHandlers(m *Manager) *Handlers {
	return &Handlers{Manager: m}
}

// GetProfile returns the caller's identity, resolving it if this process has
// not seen the user yet.
func (h *Handlers) GetProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	user, state := h.Manager.Identity(userID)
	if state != Authenticated {
		resolved, err := h.Manager.Resolve(ctx, userID)
		if err != nil {
			utils.RespondWithAppError(w, err)
			return
		}
		user = resolved
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "user": user})
}

// EditProfile merges form fields into the caller's profile. The remote write
// is confirmed before any local state changes.
func (h *Handlers) EditProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		utils.RespondWithJSON(w, http.StatusBadRequest, utils.M{"success": false, "message": "Unable to parse form"})
		return
	}

	fields := map[string]any{}
	for _, key := range []string{"name", "email", "contact", "address", "username"} {
		if v := r.FormValue(key); v != "" {
			fields[key] = v
		}
	}
	if avatar, err := filemgr.SaveFormFile(r.MultipartForm, "avatar", userID); err == nil && avatar != "" {
		fields["avatar"] = avatar
	}

	user, err := h.Manager.UpdateProfile(ctx, userID, fields)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	go mq.Emit(ctx, "profile-edited", models.Index{
		EntityType: "profile", EntityId: userID, Method: "PUT",
	})
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "user": user})
}
