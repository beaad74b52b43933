package db

import (
	"context"
	"log"
	"os"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	UserCollection   *mongo.Collection
	CropsCollection  *mongo.Collection
	OrdersCollection *mongo.Collection
	Client           *mongo.Client
)

// Connect initializes the MongoDB client and collection handles.
// Called once from main before any route is served.
func Connect() {
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(context.TODO(), clientOptions)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	Client = client

	UserCollection = Client.Database("cropcart").Collection("users")
	CropsCollection = Client.Database("cropcart").Collection("crops")
	OrdersCollection = Client.Database("cropcart").Collection("orders")
}

// Close releases the client during graceful shutdown.
func Close(ctx context.Context) {
	if Client != nil {
		if err := Client.Disconnect(ctx); err != nil {
			log.Printf("Mongo disconnect error: %v", err)
		}
	}
}
