package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"juspost/handlers"
	"juspost/middleware"
)

// SetupRouter wires the HTTP surface. Handlers arrive with their stores and
// notifier already injected; the router owns only parsing and dispatch.
func SetupRouter(posts *handlers.PostHandler, users *handlers.UserHandler, privates *handlers.PrivatePostHandler) *gin.Engine {
	router := gin.Default()

	// The frontend is served from anywhere, so CORS allows all origins.
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization", "Accept"},
		MaxAge:       12 * time.Hour,
	}))

	api := router.Group("/api")

	// Posts
	api.GET("/posts", posts.GetPosts)
	api.POST("/posts", posts.CreatePost)
	api.DELETE("/posts/:id", posts.DeletePost)
	api.POST("/posts/:id/like", posts.LikePost)
	api.PUT("/posts/user/nickname", posts.UpdateNickname)

	// Private posts
	api.POST("/private-posts", privates.CreatePrivatePost)
	api.GET("/private-posts", privates.GetAllPrivatePosts)
	api.GET("/private-posts/:id", privates.GetPrivatePost)
	api.DELETE("/private-posts/:id", privates.DeletePrivatePost)

	// Users
	loginLimiter := middleware.NewIPRateLimiter(60, time.Minute)
	api.POST("/users/login", middleware.RateLimit(loginLimiter), users.Login)
	api.GET("/users", users.GetUsers)
	api.DELETE("/users/:usernameToDelete", users.DeleteUser)

	// Self-service account endpoints resolve identity from a verified token.
	me := api.Group("/users/me")
	me.Use(middleware.Protect())
	me.PUT("/nickname", users.UpdateMyNickname)
	me.DELETE("", users.DeleteMyAccount)

	router.NoRoute(func(c *gin.Context) {
		if len(c.Request.URL.Path) >= 4 && c.Request.URL.Path[:4] == "/api" {
			c.JSON(404, gin.H{
				"error": "Endpoint not found",
				"path":  c.Request.URL.Path,
			})
			return
		}
		c.Next()
	})

	return router
}
