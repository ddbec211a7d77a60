package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"juspost/middleware"
	"juspost/models"
	"juspost/store"
)

type UserHandler struct {
	users         UserStore
	posts         PostStore
	notifier      Notifier
	adminUsername string
}

func NewUserHandler(users UserStore, posts PostStore, notifier Notifier, adminUsername string) *UserHandler {
	return &UserHandler{users: users, posts: posts, notifier: notifier, adminUsername: adminUsername}
}

type loginRequest struct {
	Username string `json:"username"`
	Nickname string `json:"nickname"`
}

// Login handles POST /api/users/login. An existing username logs in as-is,
// keeping its stored nickname and role; an unknown one registers. The
// reserved admin username can never be claimed through this path.
func (h *UserHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Username == "" || req.Nickname == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and nickname are required"})
		return
	}

	ctx, cancel := opCtx()
	defer cancel()

	user, err := h.users.FindByUsername(ctx, req.Username)
	if err == nil {
		token, err := middleware.IssueToken(user.Username)
		if err != nil {
			log.Printf("Login token error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": user, "token": token})
		return
	}
	if err != store.ErrNotFound {
		log.Printf("Login error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	if req.Username == h.adminUsername {
		c.JSON(http.StatusForbidden, gin.H{"error": "Cannot register admin user this way."})
		return
	}

	newUser := models.User{
		ID:       primitive.NewObjectID(),
		Username: req.Username,
		Nickname: req.Nickname,
		Role:     models.RoleUser,
	}
	if err := h.users.Insert(ctx, &newUser); err != nil {
		log.Printf("Login register error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	token, err := middleware.IssueToken(newUser.Username)
	if err != nil {
		log.Printf("Login token error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": newUser, "token": token})
}

// GetUsers handles GET /api/users?adminUsername=. Admin only.
func (h *UserHandler) GetUsers(c *gin.Context) {
	ctx, cancel := opCtx()
	defer cancel()

	if !isAdmin(ctx, h.users, c.Query("adminUsername")) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized"})
		return
	}

	users, err := h.users.All(ctx)
	if err != nil {
		log.Printf("GetUsers error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}
	if users == nil {
		users = []models.User{}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": users})
}

// DeleteUser handles DELETE /api/users/:usernameToDelete. Admin only, and an
// admin cannot remove itself here. The target's posts survive, anonymized.
func (h *UserHandler) DeleteUser(c *gin.Context) {
	target := c.Param("usernameToDelete")
	adminUsername := c.Query("adminUsername")

	ctx, cancel := opCtx()
	defer cancel()

	admin, err := h.users.FindByUsername(ctx, adminUsername)
	if err != nil || admin.Role != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized"})
		return
	}

	if admin.Username == target {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Admins cannot delete their own accounts."})
		return
	}

	if _, err := h.users.FindByUsername(ctx, target); err == store.ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "User to delete not found"})
		return
	} else if err != nil {
		log.Printf("DeleteUser error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Server Error"})
		return
	}

	if err := h.posts.Anonymize(ctx, target, deletedPlaceholder()); err != nil {
		log.Printf("DeleteUser anonymize error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Server Error"})
		return
	}

	if err := h.users.Delete(ctx, target); err != nil {
		log.Printf("DeleteUser error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Server Error"})
		return
	}

	h.notifier.Emit(EventUsersUpdated, nil)
	h.notifier.Emit(EventPostsUpdated, nil)

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "User deleted and posts anonymized."})
}

type myNicknameRequest struct {
	NewNickname string `json:"newNickname"`
}

// UpdateMyNickname handles PUT /api/users/me/nickname. Caller identity comes
// from the protect middleware. Clients get a single posts_updated signal
// rather than per-post payloads.
func (h *UserHandler) UpdateMyNickname(c *gin.Context) {
	username := c.GetString("username")

	var req myNicknameRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.NewNickname == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "New nickname is required"})
		return
	}

	ctx, cancel := opCtx()
	defer cancel()

	if err := h.users.UpdateNickname(ctx, username, req.NewNickname); err == store.ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "User not found"})
		return
	} else if err != nil {
		log.Printf("UpdateMyNickname error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Server Error"})
		return
	}

	if err := h.posts.RenameNickname(ctx, username, req.NewNickname); err != nil {
		log.Printf("UpdateMyNickname rename error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Server Error"})
		return
	}

	h.notifier.Emit(EventPostsUpdated, nil)

	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"nickname": req.NewNickname}})
}

// DeleteMyAccount handles DELETE /api/users/me. Admin accounts refuse
// self-service deletion; they are only removable by direct data access.
func (h *UserHandler) DeleteMyAccount(c *gin.Context) {
	username := c.GetString("username")

	ctx, cancel := opCtx()
	defer cancel()

	user, err := h.users.FindByUsername(ctx, username)
	if err == store.ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "User not found"})
		return
	}
	if err != nil {
		log.Printf("DeleteMyAccount error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Server Error"})
		return
	}

	if user.Role == models.RoleAdmin {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Admins cannot delete their accounts this way."})
		return
	}

	if err := h.posts.Anonymize(ctx, user.Username, deletedPlaceholder()); err != nil {
		log.Printf("DeleteMyAccount anonymize error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Server Error"})
		return
	}

	if err := h.users.Delete(ctx, user.Username); err != nil {
		log.Printf("DeleteMyAccount error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Server Error"})
		return
	}

	h.notifier.Emit(EventPostsUpdated, nil)

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Account deleted and posts anonymized."})
}
