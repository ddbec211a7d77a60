package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"juspost/models"
)

type PostStore struct {
	coll *mongo.Collection
}

func NewPostStore(coll *mongo.Collection) *PostStore {
	return &PostStore{coll: coll}
}

// ListWithAuthorRole returns all posts newest first, each joined against the
// users collection to pick up the author's current role. Posts whose author
// no longer exists fall back to the "user" role.
func (s *PostStore) ListWithAuthorRole(ctx context.Context) ([]models.Post, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: "users"},
			{Key: "localField", Value: "username"},
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

	var posts []models.Post
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *PostStore) Insert(ctx context.Context, post *models.Post) error {
	_, err := s.coll.InsertOne(ctx, post)
	return err
}

func (s *PostStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	var post models.Post
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&post)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (s *PostStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetLikes overwrites the like set. The caller toggles membership; conflicting
// writers race and the last one wins.
func (s *PostStore) SetLikes(ctx context.Context, id primitive.ObjectID, likes []string) error {
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"likes": likes}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostStore) FindByUsername(ctx context.Context, username string) ([]models.Post, error) {
	cursor, err := s.coll.Find(ctx, bson.M{"username": username})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var posts []models.Post
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// RenameNickname rewrites the denormalized nickname on every post by username.
func (s *PostStore) RenameNickname(ctx context.Context, username, nickname string) error {
	_, err := s.coll.UpdateMany(ctx, bson.M{"username": username},
		bson.M{"$set": bson.M{"nickname": nickname}})
	return err
}

// Anonymize severs authorship on all posts by username. The posts themselves
// survive the author's deletion.
func (s *PostStore) Anonymize(ctx context.Context, username, placeholder string) error {
	_, err := s.coll.UpdateMany(ctx, bson.M{"username": username},
		bson.M{"$set": bson.M{
			"username": placeholder,
			"nickname": models.AnonymousNickname,
		}})
	return err
}
