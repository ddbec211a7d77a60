package handlers

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"juspost/models"
)

// Event names pushed over the websocket transport. Clients treat
// users_updated and posts_updated as refetch signals with no payload.
const (
	EventNewPost      = "new_post"
	EventUpdatePost   = "update_post"
	EventDeletePost   = "delete_post"
	EventUsersUpdated = "users_updated"
	EventPostsUpdated = "posts_updated"
)

// Notifier fans a mutation event out to every connected client. Implemented
// by the websocket manager; store logic never touches it.
type Notifier interface {
	Emit(event string, payload interface{})
}

type UserStore interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	Insert(ctx context.Context, user *models.User) error
	All(ctx context.Context) ([]models.User, error)
	UpdateNickname(ctx context.Context, username, nickname string) error
	Delete(ctx context.Context, username string) error
}

type PostStore interface {
	ListWithAuthorRole(ctx context.Context) ([]models.Post, error)
	Insert(ctx context.Context, post *models.Post) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	SetLikes(ctx context.Context, id primitive.ObjectID, likes []string) error
	FindByUsername(ctx context.Context, username string) ([]models.Post, error)
	RenameNickname(ctx context.Context, username, nickname string) error
	Anonymize(ctx context.Context, username, placeholder string) error
}

type PrivatePostStore interface {
	Insert(ctx context.Context, post *models.PrivatePost) error
	FindByCode(ctx context.Context, code string) (*models.PrivatePost, error)
	ListWithAuthorRole(ctx context.Context) ([]models.PrivatePost, error)
	DeleteByCode(ctx context.Context, code string) error
}

// authorized reports whether actor may mutate a resource owned by owner:
// owners and admins only.
func authorized(actor, role, owner string) bool {
	return actor == owner || role == models.RoleAdmin
}

// isAdmin resolves a self-reported admin username against the user store.
func isAdmin(ctx context.Context, users UserStore, username string) bool {
	user, err := users.FindByUsername(ctx, username)
	return err == nil && user.Role == models.RoleAdmin
}

// deletedPlaceholder is the username written onto an anonymized post. The
// timestamp keeps placeholders distinct across deletions.
func deletedPlaceholder() string {
	return fmt.Sprintf("deleted_%d", time.Now().UnixMilli())
}

func opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}
