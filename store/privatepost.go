package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"juspost/models"
)

type PrivatePostStore struct {
	coll *mongo.Collection
}

func NewPrivatePostStore(coll *mongo.Collection) *PrivatePostStore {
	return &PrivatePostStore{coll: coll}
}

// notExpired matches posts that never expire or whose expiry is still ahead.
// The TTL index does the durable purge, but its sweep runs on a minute cycle,
// so reads filter lapsed documents themselves.
func notExpired(now time.Time) bson.A {
	return bson.A{
		bson.M{"expiresAt": nil},
		bson.M{"expiresAt": bson.M{"$gt": now}},
	}
}

func (s *PrivatePostStore) Insert(ctx context.Context, post *models.PrivatePost) error {
	_, err := s.coll.InsertOne(ctx, post)
	return err
}

func (s *PrivatePostStore) FindByCode(ctx context.Context, code string) (*models.PrivatePost, error) {
	filter := bson.M{"uniqueId": code, "$or": notExpired(time.Now())}

	var post models.PrivatePost
	err := s.coll.FindOne(ctx, filter).Decode(&post)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// ListWithAuthorRole returns all live private posts newest first, enriched
// with the author's current role.
func (s *PrivatePostStore) ListWithAuthorRole(ctx context.Context) ([]models.PrivatePost, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "$or", Value: notExpired(time.Now())}}}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: "users"},
			{Key: "localField", Value: "authorId"},
			{Key: "foreignField", Value: "username"},
			{Key: "as", Value: "authorDetails"},
		}}},
		{{Key: "$unwind", Value: bson.D{
			{Key: "path", Value: "$authorDetails"},
			{Key: "preserveNullAndEmptyArrays", Value: true},
		}}},
		{{Key: "$addFields", Value: bson.D{
			{Key: "authorRole", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$authorDetails.role", models.RoleUser}}}},
		}}},
		{{Key: "$project", Value: bson.D{{Key: "authorDetails", Value: 0}}}},
	}

	cursor, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var posts []models.PrivatePost
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *PrivatePostStore) DeleteByCode(ctx context.Context, code string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"uniqueId": code})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
