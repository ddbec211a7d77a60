package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PrivatePost is addressed by its UniqueID, never by the Mongo _id. A nil
// ExpiresAt means the post never expires.
type PrivatePost struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Message   string             `bson:"message" json:"message"`
	AuthorID  string             `bson:"authorId" json:"authorId"`
	UniqueID  string             `bson:"uniqueId" json:"uniqueId"`
	ExpiresAt *time.Time         `bson:"expiresAt" json:"expiresAt"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`

	AuthorRole string `bson:"authorRole,omitempty" json:"authorRole,omitempty"`
}
