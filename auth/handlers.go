// Package auth handles registration, login, token refresh, and logout.
// Login settles the caller's session through the session manager, which fires
// the hydration hooks; logout fires the cleanup hooks the same way.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"cropcart/db"
	"cropcart/models"
	"cropcart/mq"
	"cropcart/rdx"
	"cropcart/session"
	"cropcart/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

type Handlers struct {
	Sessions *session.Manager
}

func NewHandlers(sessions *session.Manager) *Handlers {
	return &Handlers{Sessions: sessions}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Name     string `json:"name"`
	Contact  string `json:"contact"`
	Address  string `json:"address"`
}

// Register creates an account with a fixed role of farmer or buyer.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithJSON(w, http.StatusBadRequest, utils.M{"success": false, "message": "Invalid request body"})
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		utils.RespondWithJSON(w, http.StatusBadRequest, utils.M{"success": false, "message": "Username, email and password are required"})
		return
	}
	if req.Role != models.RoleFarmer && req.Role != models.RoleBuyer {
		utils.RespondWithJSON(w, http.StatusBadRequest, utils.M{"success": false, "message": "Role must be farmer or buyer"})
		return
	}

	err := db.UserCollection.FindOne(ctx, bson.M{
		"$or": []bson.M{{"username": req.Username}, {"email": req.Email}},
	}).Err()
	if err == nil {
		utils.RespondWithJSON(w, http.StatusConflict, utils.M{"success": false, "message": "Username or email already taken"})
		return
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		utils.RespondWithJSON(w, http.StatusBadGateway, utils.M{"success": false, "message": "Registration unavailable"})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.RespondWithJSON(w, http.StatusInternalServerError, utils.M{"success": false, "message": "Registration failed"})
		return
	}

	now := time.Now().UTC()
	user := models.User{
		UserID:    "u" + utils.GenerateID(10),
		Username:  req.Username,
		Email:     req.Email,
		Password:  string(hashed),
		Role:      req.Role,
		Name:      req.Name,
		Contact:   req.Contact,
		Address:   req.Address,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := db.UserCollection.InsertOne(ctx, user); err != nil {
		utils.RespondWithJSON(w, http.StatusBadGateway, utils.M{"success": false, "message": "Registration failed"})
		return
	}

	go mq.Emit(ctx, "user-registered", models.Index{
		EntityType: "user", EntityId: user.UserID, Method: "POST",
	})
	utils.RespondWithJSON(w, http.StatusCreated, utils.M{"success": true, "userid": user.UserID})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login verifies credentials, issues tokens, and resolves the session so
// per-user state hydrates before the response is sent.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithJSON(w, http.StatusBadRequest, utils.M{"success": false, "message": "Invalid request body"})
		return
	}

	var user models.User
	err := db.UserCollection.FindOne(ctx, bson.M{"username": req.Username}).Decode(&user)
	if err != nil {
		utils.RespondWithJSON(w, http.StatusUnauthorized, utils.M{"success": false, "message": "Invalid credentials"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		utils.RespondWithJSON(w, http.StatusUnauthorized, utils.M{"success": false, "message": "Invalid credentials"})
		return
	}

	token, err := generateJWT(user.Username, user.UserID, user.Role)
	if err != nil {
		utils.RespondWithJSON(w, http.StatusInternalServerError, utils.M{"success": false, "message": "Login failed"})
		return
	}

	refreshToken, err := generateRefreshToken()
	if err != nil {
		utils.RespondWithJSON(w, http.StatusInternalServerError, utils.M{"success": false, "message": "Login failed"})
		return
	}

	_, err = db.UserCollection.UpdateOne(ctx, bson.M{"userid": user.UserID}, bson.M{"$set": bson.M{
		"refresh_token":  hashToken(refreshToken),
		"refresh_expiry": time.Now().Add(refreshTokenTTL),
		"last_login":     time.Now().UTC(),
	}})
	if err != nil {
		utils.RespondWithJSON(w, http.StatusBadGateway, utils.M{"success": false, "message": "Login failed"})
		return
	}

	if err := rdx.RdxHset("tokens", user.UserID, token); err != nil {
		log.Printf("login: token cache write for %s failed: %v", user.UserID, err)
	}

	resolved, err := h.Sessions.Resolve(ctx, user.UserID)
	if err != nil {
		utils.RespondWithJSON(w, http.StatusUnauthorized, utils.M{"success": false, "message": "Session resolution failed"})
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"success":      true,
		"token":        token,
		"refreshToken": refreshToken,
		"user":         resolved,
	})
}

// Logout clears the cached token and settles the session into anonymous,
// which drops per-user cart, wishlist, and order state through the hooks.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Invalid user", http.StatusUnauthorized)
		return
	}

	if _, err := rdx.RdxHdel("tokens", userID); err != nil {
		log.Printf("logout: token cache delete for %s failed: %v", userID, err)
	}

	_, err := db.UserCollection.UpdateOne(ctx, bson.M{"userid": userID}, bson.M{
		"$unset": bson.M{"refresh_token": "", "refresh_expiry": ""},
	})
	if err != nil {
		log.Printf("logout: refresh token revoke for %s failed: %v", userID, err)
	}

	h.Sessions.SignOut(ctx, userID)
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "message": "Logged out"})
}

type refreshRequest struct {
	UserID       string `json:"userid"`
	RefreshToken string `json:"refreshToken"`
}

// RefreshToken exchanges a valid refresh token for a new access token.
func (h *Handlers) RefreshToken(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" || req.RefreshToken == "" {
		utils.RespondWithJSON(w, http.StatusBadRequest, utils.M{"success": false, "message": "Invalid request body"})
		return
	}

	var user models.User
	err := db.UserCollection.FindOne(ctx, bson.M{"userid": req.UserID}).Decode(&user)
	if err != nil {
		utils.RespondWithJSON(w, http.StatusUnauthorized, utils.M{"success": false, "message": "Invalid refresh token"})
		return
	}
	if user.RefreshToken != hashToken(req.RefreshToken) || time.Now().After(user.RefreshExpiry) {
		utils.RespondWithJSON(w, http.StatusUnauthorized, utils.M{"success": false, "message": "Invalid refresh token"})
		return
	}

	token, err := generateJWT(user.Username, user.UserID, user.Role)
	if err != nil {
		utils.RespondWithJSON(w, http.StatusInternalServerError, utils.M{"success": false, "message": "Refresh failed"})
		return
	}
	if err := rdx.RdxHset("tokens", user.UserID, token); err != nil {
		log.Printf("refresh: token cache write for %s failed: %v", user.UserID, err)
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "token": token})
}
