package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/yacine2174/projet-master-sub002/controllers"
	"github.com/yacine2174/projet-master-sub002/database"
	"github.com/yacine2174/projet-master-sub002/middleware"
	"github.com/yacine2174/projet-master-sub002/reset"
	"github.com/yacine2174/projet-master-sub002/session"
	"github.com/yacine2174/projet-master-sub002/store"
	"github.com/yacine2174/projet-master-sub002/utils"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file")
	}

	ctx := context.Background()
	client := database.Connect()
	db := database.Database()

	st := store.NewMongoStore(client, db)
	if err := st.EnsureIndexes(ctx); err != nil {
		log.Fatal(err)
	}
	//seeding admin user
	if err := utils.SeedAdminUser(ctx, database.OpenCollection("users")); err != nil {
		log.Fatal(err)
	}

	engine := reset.NewEngine(st, utils.ResetApprovalTTL())

	// The client shell owns the session manager; on the server side we only
	// log the signal so forced logouts stay visible in the audit trail.
	sessions := session.NewManager()
	sessions.OnInvalidated(func() {
		log.Println("session invalidated: client must re-authenticate")
	})

	r := gin.New()

	origins := os.Getenv("ALLOWED_ORIGINS")
	allowedOrigins := map[string]bool{}
	for _, origin := range strings.Split(origins, ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			allowedOrigins[origin] = true
		}
	}
	log.Printf("Allowed origins: %v", allowedOrigins)
	r.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return allowedOrigins[origin]
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	r.POST("/auth/signup", controllers.Signup(st))
	r.POST("/auth/login", controllers.Login(st))
	r.POST("/auth/reset-requests", controllers.CreateResetRequest(engine))
	r.GET("/auth/reset-status", controllers.GetResetStatus(engine))
	r.POST("/auth/reset-redeem", controllers.RedeemReset(engine))

	authed := r.Group("/")
	authed.Use(middleware.AuthMiddleware(sessions.Invalidate))
	{
		authed.POST("/users/me/password", controllers.ChangeMyPassword(st))
	}

	review := r.Group("/admin")
	review.Use(middleware.AuthMiddleware(sessions.Invalidate), middleware.RequireReviewer())
	{
		review.GET("/reset-requests", controllers.ListResetRequests(engine))
		review.PATCH("/reset-requests/:id", controllers.ReviewResetRequest(engine))
	}

	admin := r.Group("/admin")
	admin.Use(middleware.AuthMiddleware(sessions.Invalidate), middleware.RequireAdmin())
	{
		admin.GET("/users", controllers.ListUsers(st))
		admin.PATCH("/users/:id/status", controllers.UpdateUserStatus(st))
		admin.PATCH("/users/:id/role", controllers.UpdateUserRole(st))
	}

	// Start server on port 8080 (default)
	r.Run()
}
