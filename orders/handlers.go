package orders

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"cropcart/models"
	"cropcart/mq"
	"cropcart/session"
	"cropcart/utils"

	"github.com/julienschmidt/httprouter"
)

type Handlers struct {
	Pipeline *Pipeline
	Sessions *session.Manager
}

func NewHandlers(pipeline *Pipeline, sessions *session.Manager) *Handlers {
	return &Handlers{Pipeline: pipeline, Sessions: sessions}
}

// callerIdentity builds the full caller profile, resolving it from the backend
// if this is the first request since sign-in.
func (h *Handlers) callerIdentity(ctx context.Context, r *http.Request) (models.User, bool) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		return models.User{}, false
	}
	user, state := h.Sessions.Identity(userID)
	if state != session.Authenticated {
		resolved, err := h.Sessions.Resolve(ctx, userID)
		if err != nil {
			return models.User{}, false
		}
		user = resolved
	}
	return user, true
}

// PlaceOrder checks the buyer's cart out into a new order.
func (h *Handlers) PlaceOrder(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	buyer, ok := h.callerIdentity(ctx, r)
	if !ok {
		http.Error(w, "Invalid user", http.StatusUnauthorized)
		return
	}

	order, err := h.Pipeline.PlaceOrder(ctx, buyer)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	go mq.Emit(ctx, "order-placed", models.Index{
		EntityType: "order", EntityId: order.OrderID, Method: "POST",
	})
	utils.RespondWithJSON(w, http.StatusCreated, utils.M{"success": true, "order": order})
}

// GetOrders serves the caller's order history, scoped by role.
func (h *Handlers) GetOrders(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	user, ok := h.callerIdentity(ctx, r)
	if !ok {
		http.Error(w, "Invalid user", http.StatusUnauthorized)
		return
	}

	list, err := h.Pipeline.LoadForCurrentUser(ctx, user)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	// ?since= accepts RFC3339 or unix timestamps.
	if raw := r.URL.Query().Get("since"); raw != "" {
		if since, ok := utils.ParseInstant(raw); ok {
			filtered := make([]models.Order, 0, len(list))
			for _, o := range list {
				if !o.Date.Before(since) {
					filtered = append(filtered, o)
				}
			}
			list = filtered
		}
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "orders": list})
}

// GetOrder serves one order if the caller is its buyer or one of its farmers.
func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	user, ok := h.callerIdentity(ctx, r)
	if !ok {
		http.Error(w, "Invalid user", http.StatusUnauthorized)
		return
	}

	order, err := h.Pipeline.OrderForUser(ctx, ps.ByName("orderid"), user)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "order": order})
}

// UpdateOrderStatus moves an order to a new status. Farmer-only.
func (h *Handlers) UpdateOrderStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	user, ok := h.callerIdentity(ctx, r)
	if !ok {
		http.Error(w, "Invalid user", http.StatusUnauthorized)
		return
	}

	var payload struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondWithJSON(w, http.StatusBadRequest, utils.M{"success": false, "message": "Invalid request body"})
		return
	}

	orderID := ps.ByName("orderid")
	order, err := h.Pipeline.UpdateStatus(ctx, orderID, payload.Status, user)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	go mq.Emit(ctx, "order-status-updated", models.Index{
		EntityType: "order", EntityId: orderID, Method: "PUT",
	})
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "order": order})
}
