package catalog

import (
	"context"

	"cropcart/models"
	"cropcart/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoRepo backs the store with the crops and users collections.
type MongoRepo struct {
	Crops *mongo.Collection
	Users *mongo.Collection
}

func (r *MongoRepo) FindCrops(ctx context.Context) ([]models.Crop, error) {
	return utils.FindAndDecode[models.Crop](ctx, r.Crops, bson.M{})
}

func (r *MongoRepo) FindFarmers(ctx context.Context) ([]models.User, error) {
	return utils.FindAndDecode[models.User](ctx, r.Users, bson.M{"role": models.RoleFarmer})
}

func (r *MongoRepo) InsertCrop(ctx context.Context, crop models.Crop) error {
	_, err := r.Crops.InsertOne(ctx, crop)
	return err
}

func (r *MongoRepo) UpdateCrop(ctx context.Context, crop models.Crop) (bool, error) {
	res, err := r.Crops.ReplaceOne(ctx, bson.M{"cropid": crop.CropID}, crop)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (r *MongoRepo) DeleteCrop(ctx context.Context, cropID string) error {
	_, err := r.Crops.DeleteOne(ctx, bson.M{"cropid": cropID})
	return err
}
