package models

import "time"

// Roles a user can register with. Role is fixed at registration.
const (
	RoleFarmer = "farmer"
	RoleBuyer  = "buyer"
)

type User struct {
	UserID        string    `json:"userid" bson:"userid"`
	Username      string    `json:"username" bson:"username"`
	Name          string    `json:"name,omitempty" bson:"name,omitempty"`
	Email         string    `json:"email" bson:"email"`
	Password      string    `json:"-" bson:"password"`
	Role          string    `json:"role" bson:"role"`
	Avatar        string    `json:"avatarUrl,omitempty" bson:"avatar,omitempty"`
	Contact       string    `json:"contact,omitempty" bson:"contact,omitempty"`
	Address       string    `json:"address,omitempty" bson:"address,omitempty"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" bson:"updated_at"`
	LastLogin     time.Time `json:"last_login" bson:"last_login"`
	RefreshToken  string    `json:"-" bson:"refresh_token,omitempty"`
	RefreshExpiry time.Time `json:"-" bson:"refresh_expiry,omitempty"`
}

// Buyer is the denormalized identity subset embedded in an order.
type Buyer struct {
	UserID  string `json:"userid" bson:"userid"`
	Name    string `json:"name" bson:"name"`
	Email   string `json:"email,omitempty" bson:"email,omitempty"`
	Contact string `json:"contact,omitempty" bson:"contact,omitempty"`
}

// Crop is a farmer's sellable produce listing. Owned exclusively by FarmerID.
type Crop struct {
	CropID       string    `json:"id" bson:"cropid"`
	Name         string    `json:"name" bson:"name"`
	ImageURL     string    `json:"image,omitempty" bson:"imageUrl,omitempty"`
	Price        float64   `json:"price" bson:"price"`
	Description  string    `json:"description,omitempty" bson:"description,omitempty"`
	Category     string    `json:"category" bson:"category"`
	Quantity     int       `json:"quantity" bson:"quantity"`
	Unit         string    `json:"unit" bson:"unit"`
	FarmLocation string    `json:"location,omitempty" bson:"farmLocation,omitempty"`
	Contact      string    `json:"contact,omitempty" bson:"contact,omitempty"`
	FarmerID     string    `json:"farmerId" bson:"farmerid"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updatedAt"`
}

// CartItem is a listing snapshot plus a quantity. At most one line per crop id.
// Wishlist entries reuse the shape with Quantity pinned to 1.
type CartItem struct {
	CropID   string    `json:"id" bson:"cropid"`
	Name     string    `json:"name" bson:"name"`
	Price    float64   `json:"price" bson:"price"`
	Unit     string    `json:"unit,omitempty" bson:"unit,omitempty"`
	ImageURL string    `json:"image,omitempty" bson:"imageUrl,omitempty"`
	Category string    `json:"category,omitempty" bson:"category,omitempty"`
	FarmerID string    `json:"farmerId" bson:"farmerid"`
	Quantity int       `json:"quantity" bson:"quantity"`
	AddedAt  time.Time `json:"addedAt" bson:"addedAt"`
}

// Order statuses. Transitions are not restricted to forward-only.
const (
	StatusPending   = "Pending"
	StatusShipped   = "Shipped"
	StatusDelivered = "Delivered"
)

// Order is created once, atomically, from a cart snapshot at checkout.
// FarmerIDs is the deduplicated set of item owners, used for farmer-scoped reads.
type Order struct {
	OrderID   string     `json:"id" bson:"orderid"`
	Date      time.Time  `json:"date" bson:"date"`
	Buyer     Buyer      `json:"buyer" bson:"buyer"`
	Items     []CartItem `json:"items" bson:"items"`
	Total     float64    `json:"total" bson:"total"`
	Status    string     `json:"status" bson:"status"`
	FarmerIDs []string   `json:"farmerIds" bson:"farmerids"`
}

// Index represents an indexing-related message emitted on entity changes.
type Index struct {
	EntityType string `json:"entity_type"`
	Method     string `json:"method"`
	EntityId   string `json:"entity_id"`
	ItemId     string `json:"item_id"`
	ItemType   string `json:"item_type"`
}
