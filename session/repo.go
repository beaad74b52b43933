package session

import (
	"context"
	"time"

	"cropcart/apperr"
	"cropcart/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoUserRepo backs the manager with the users collection.
type MongoUserRepo struct {
	Coll *mongo.Collection
}

func (r *MongoUserRepo) FindByID(ctx context.Context, userID string) (models.User, error) {
	var user models.User
	err := r.Coll.FindOne(ctx, bson.M{"userid": userID}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return models.User{}, apperr.Wrap(apperr.ErrNotFound, "user %s", userID)
	}
	if err != nil {
		return models.User{}, apperr.Wrap(apperr.ErrRemoteRead, "fetch user %s", userID)
	}
	return user, nil
}

func (r *MongoUserRepo) UpdateProfile(ctx context.Context, userID string, fields map[string]any) error {
	update := bson.M{"updated_at": time.Now()}
	for k, v := range fields {
		update[k] = v
	}

	res, err := r.Coll.UpdateOne(ctx, bson.M{"userid": userID}, bson.M{"$set": update})
	if err != nil {
		return apperr.Wrap(apperr.ErrRemoteWrite, "update profile %s", userID)
	}
	if res.MatchedCount == 0 {
		return apperr.Wrap(apperr.ErrNotFound, "user %s", userID)
	}
	return nil
}
