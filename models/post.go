package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Post struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Message   string             `bson:"message" json:"message"`
	Username  string             `bson:"username" json:"username"`
	Nickname  string             `bson:"nickname" json:"nickname"`
	Likes     []string           `bson:"likes" json:"likes"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`

	// AuthorRole is the author's current role, attached at read time.
	// It is never written back to the posts collection.
	AuthorRole string `bson:"authorRole,omitempty" json:"authorRole,omitempty"`
}
