package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"juspost/models"
	"juspost/store"
)

type PrivatePostHandler struct {
	privates PrivatePostStore
	users    UserStore
}

func NewPrivatePostHandler(privates PrivatePostStore, users UserStore) *PrivatePostHandler {
	return &PrivatePostHandler{privates: privates, users: users}
}

type createPrivatePostRequest struct {
	Message   string `json:"message"`
	AuthorID  string `json:"authorId"`
	ExpiresIn int64  `json:"expiresIn"` // milliseconds; 0 means never expires
}

// CreatePrivatePost handles POST /api/private-posts. The lookup code is a
// UUID, so uniqueness holds without an existence-check loop even for
// concurrent creations.
func (h *PrivatePostHandler) CreatePrivatePost(c *gin.Context) {
	var req createPrivatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Message == "" || req.AuthorID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message and authorId are required"})
		return
	}

	var expiresAt *time.Time
	if req.ExpiresIn > 0 {
		t := time.Now().Add(time.Duration(req.ExpiresIn) * time.Millisecond)
		expiresAt = &t
	}

	ctx, cancel := opCtx()
	defer cancel()

	post := models.PrivatePost{
		ID:        primitive.NewObjectID(),
		Message:   req.Message,
		AuthorID:  req.AuthorID,
		UniqueID:  uuid.NewString(),
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}

	if err := h.privates.Insert(ctx, &post); err != nil {
		log.Printf("CreatePrivatePost error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": post})
}

// GetPrivatePost handles GET /api/private-posts/:id, where :id is the unique
// code. Expired posts are indistinguishable from absent ones.
func (h *PrivatePostHandler) GetPrivatePost(c *gin.Context) {
	ctx, cancel := opCtx()
	defer cancel()

	post, err := h.privates.FindByCode(ctx, c.Param("id"))
	if err == store.ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Private post not found"})
		return
	}
	if err != nil {
		log.Printf("GetPrivatePost error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Server Error"})
		return
	}

	post.AuthorRole = models.RoleUser
	if author, err := h.users.FindByUsername(ctx, post.AuthorID); err == nil {
		post.AuthorRole = author.Role
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": post})
}

// GetAllPrivatePosts handles GET /api/private-posts?adminUsername=. Admin only.
func (h *PrivatePostHandler) GetAllPrivatePosts(c *gin.Context) {
	ctx, cancel := opCtx()
	defer cancel()

	if !isAdmin(ctx, h.users, c.Query("adminUsername")) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden: Admins only"})
		return
	}

	posts, err := h.privates.ListWithAuthorRole(ctx)
	if err != nil {
		log.Printf("GetAllPrivatePosts error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Server Error"})
		return
	}
	if posts == nil {
		posts = []models.PrivatePost{}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": posts})
}

type deletePrivatePostRequest struct {
	UserID   string `json:"userId"`
	UserRole string `json:"userRole"`
}

// DeletePrivatePost handles DELETE /api/private-posts/:id. Author or admin
// only; identity and role are self-reported, as everywhere outside the
// protected endpoints.
func (h *PrivatePostHandler) DeletePrivatePost(c *gin.Context) {
	// An absent or malformed body leaves the identity empty, which fails the
	// authorization check below rather than erroring out early.
	var req deletePrivatePostRequest
	_ = c.ShouldBindJSON(&req)

	ctx, cancel := opCtx()
	defer cancel()

	post, err := h.privates.FindByCode(ctx, c.Param("id"))
	if err == store.ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Post not found"})
		return
	}
	if err != nil {
		log.Printf("DeletePrivatePost error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Server Error"})
		return
	}

	if !authorized(req.UserID, req.UserRole, post.AuthorID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "User not authorized"})
		return
	}

	if err := h.privates.DeleteByCode(ctx, post.UniqueID); err != nil && err != store.ErrNotFound {
		log.Printf("DeletePrivatePost error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Server Error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"id": c.Param("id")}})
}
