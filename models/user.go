package models

import "go.mongodb.org/mongo-driver/bson/primitive"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// AnonymousNickname replaces the nickname on posts whose author was deleted,
// and is the default nickname for posts created without one.
const AnonymousNickname = "Anonymous"

type User struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Username string             `bson:"username" json:"username"`
	Nickname string             `bson:"nickname" json:"nickname"`
	Role     string             `bson:"role" json:"role"`
}
