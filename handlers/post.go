package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"juspost/models"
	"juspost/store"
)

type PostHandler struct {
	posts    PostStore
	users    UserStore
	notifier Notifier
}

func NewPostHandler(posts PostStore, users UserStore, notifier Notifier) *PostHandler {
	return &PostHandler{posts: posts, users: users, notifier: notifier}
}

// withAuthorRole attaches the author's current role to a single post,
// defaulting to "user" when the author is unknown. List reads do the same
// join inside the aggregation instead.
func (h *PostHandler) withAuthorRole(ctx context.Context, post *models.Post) {
	post.AuthorRole = models.RoleUser
	if author, err := h.users.FindByUsername(ctx, post.Username); err == nil {
		post.AuthorRole = author.Role
	}
}

// GetPosts handles GET /api/posts.
func (h *PostHandler) GetPosts(c *gin.Context) {
	ctx, cancel := opCtx()
	defer cancel()

	posts, err := h.posts.ListWithAuthorRole(ctx)
	if err != nil {
		log.Printf("GetPosts error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Server Error"})
		return
	}
	if posts == nil {
		posts = []models.Post{}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": posts})
}

type createPostRequest struct {
	Message  string `json:"message"`
	Username string `json:"username"`
	Nickname string `json:"nickname"`
}

// CreatePost handles POST /api/posts.
func (h *PostHandler) CreatePost(c *gin.Context) {
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Message == "" || req.Username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message and username are required"})
		return
	}

	nickname := req.Nickname
	if nickname == "" {
		nickname = models.AnonymousNickname
	}

	ctx, cancel := opCtx()
	defer cancel()

	post := models.Post{
		ID:        primitive.NewObjectID(),
		Message:   req.Message,
		Username:  req.Username,
		Nickname:  nickname,
		Likes:     []string{},
		CreatedAt: time.Now(),
	}

	if err := h.posts.Insert(ctx, &post); err != nil {
		log.Printf("CreatePost error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	h.withAuthorRole(ctx, &post)
	h.notifier.Emit(EventNewPost, post)

	c.JSON(http.StatusCreated, gin.H{"data": post})
}

type deletePostRequest struct {
	Username string `json:"username"`
}

// DeletePost handles DELETE /api/posts/:id. Author or admin only.
func (h *PostHandler) DeletePost(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post ID"})
		return
	}

	var req deletePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := opCtx()
	defer cancel()

	post, err := h.posts.FindByID(ctx, id)
	if err == store.ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Post not found"})
		return
	}
	if err != nil {
		log.Printf("DeletePost error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Server Error"})
		return
	}

	user, err := h.users.FindByUsername(ctx, req.Username)
	if err == store.ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		log.Printf("DeletePost error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Server Error"})
		return
	}

	if !authorized(user.Username, user.Role, post.Username) {
		c.JSON(http.StatusForbidden, gin.H{"error": "User not authorized"})
		return
	}

	if err := h.posts.Delete(ctx, id); err != nil {
		log.Printf("DeletePost error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Server Error"})
		return
	}

	h.notifier.Emit(EventDeletePost, gin.H{"_id": c.Param("id")})

	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"id": c.Param("id")}})
}

type likePostRequest struct {
	LikerID string `json:"likerId"`
}

// LikePost handles POST /api/posts/:id/like. Adds the liker if absent,
// removes it if present. Concurrent toggles from the same liker race; the
// last write wins.
func (h *PostHandler) LikePost(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post ID"})
		return
	}

	var req likePostRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.LikerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Liker ID is required"})
		return
	}

	ctx, cancel := opCtx()
	defer cancel()

	post, err := h.posts.FindByID(ctx, id)
	if err == store.ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Post not found"})
		return
	}
	if err != nil {
		log.Printf("LikePost error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Server Error"})
		return
	}

	index := -1
	for i, liker := range post.Likes {
		if liker == req.LikerID {
			index = i
			break
		}
	}
	if index == -1 {
		post.Likes = append(post.Likes, req.LikerID)
	} else {
		post.Likes = append(post.Likes[:index], post.Likes[index+1:]...)
	}

	if err := h.posts.SetLikes(ctx, id, post.Likes); err != nil {
		log.Printf("LikePost error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Server Error"})
		return
	}

	h.withAuthorRole(ctx, post)
	h.notifier.Emit(EventUpdatePost, post)

	c.JSON(http.StatusOK, gin.H{"success": true, "data": post})
}

type updateNicknameRequest struct {
	Username    string `json:"username"`
	NewNickname string `json:"newNickname"`
}

// UpdateNickname handles PUT /api/posts/user/nickname. Rewrites the
// denormalized nickname on every post by the user, then re-reads and
// broadcasts each affected post.
func (h *PostHandler) UpdateNickname(c *gin.Context) {
	var req updateNicknameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Username == "" || req.NewNickname == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Username and new nickname are required"})
		return
	}

	ctx, cancel := opCtx()
	defer cancel()

	if err := h.posts.RenameNickname(ctx, req.Username, req.NewNickname); err != nil {
		log.Printf("UpdateNickname error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Server Error"})
		return
	}

	updated, err := h.posts.FindByUsername(ctx, req.Username)
	if err != nil {
		log.Printf("UpdateNickname error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Server Error"})
		return
	}

	for _, post := range updated {
		h.notifier.Emit(EventUpdatePost, post)
	}

	if updated == nil {
		updated = []models.Post{}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": updated})
}
