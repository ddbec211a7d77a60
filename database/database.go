package database

import (
	"context"
	"log"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"juspost/models"
)

var Client *mongo.Client
var Users *mongo.Collection
var Posts *mongo.Collection
var PrivatePosts *mongo.Collection

func ConnectMongo() error {
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		log.Println("MONGODB_URI not set, using default localhost")
		uri = "mongodb://127.0.0.1:27017"
	}

	name := os.Getenv("MONGODB_DATABASE")
	if name == "" {
		name = "juspost"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var err error
	Client, err = mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return err
	}

	if err := Client.Ping(ctx, nil); err != nil {
		return err
	}

	db := Client.Database(name)
	Users = db.Collection("users")
	Posts = db.Collection("posts")
	PrivatePosts = db.Collection("private_posts")

	log.Println("Connected to MongoDB successfully")
	return nil
}

// EnsureIndexes creates the unique username and private-post code indexes plus
// the TTL index that purges private posts once expiresAt passes. Documents
// with a null expiresAt are never touched by the TTL monitor.
func EnsureIndexes(ctx context.Context) error {
	_, err := Users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}

	_, err = PrivatePosts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "uniqueId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}

	_, err = PrivatePosts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expiresAt", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	return err
}

// SeedAdmin upserts the reserved admin account. Registration refuses this
// username, so the upsert is the only way the admin user comes into being.
func SeedAdmin(ctx context.Context, username, nickname string) error {
	update := bson.M{"$set": bson.M{
		"username": username,
		"nickname": nickname,
		"role":     models.RoleAdmin,
	}}

	opts := options.Update().SetUpsert(true)
	_, err := Users.UpdateOne(ctx, bson.M{"username": username}, update, opts)
	if err != nil {
		return err
	}

	log.Printf("Admin user ensured: %s", username)
	return nil
}

func DisconnectMongo() error {
	if Client == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := Client.Disconnect(ctx); err != nil {
		return err
	}

	log.Println("Disconnected from MongoDB")
	return nil
}
