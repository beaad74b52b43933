package orders

import (
	"context"
	"errors"

	"cropcart/apperr"
	"cropcart/models"
	"cropcart/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepo backs the pipeline with the orders collection.
type MongoRepo struct {
	Coll *mongo.Collection
}

func (r *MongoRepo) Insert(ctx context.Context, order models.Order) error {
	_, err := r.Coll.InsertOne(ctx, order)
	return err
}

func (r *MongoRepo) UpdateStatus(ctx context.Context, orderID, status string) (bool, error) {
	res, err := r.Coll.UpdateOne(ctx,
		bson.M{"orderid": orderID},
		bson.M{"$set": bson.M{"status": status}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (r *MongoRepo) FindByBuyer(ctx context.Context, userID string) ([]models.Order, error) {
	return r.find(ctx, bson.M{"buyer.userid": userID})
}

func (r *MongoRepo) FindByFarmer(ctx context.Context, farmerID string) ([]models.Order, error) {
	return r.find(ctx, bson.M{"farmerids": farmerID})
}

func (r *MongoRepo) find(ctx context.Context, filter bson.M) ([]models.Order, error) {
	return utils.FindAndDecode[models.Order](ctx, r.Coll, filter, options.Find().SetSort(bson.M{"date": -1}))
}

func (r *MongoRepo) FindByID(ctx context.Context, orderID string) (models.Order, error) {
	var order models.Order
	err := r.Coll.FindOne(ctx, bson.M{"orderid": orderID}).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Order{}, apperr.Wrap(apperr.ErrNotFound, "order %s", orderID)
	}
	if err != nil {
		return models.Order{}, apperr.Wrap(apperr.ErrRemoteRead, "find order %s", orderID)
	}
	return order, nil
}
