package http

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	appsvc "postboard/internal/app"
	"postboard/internal/bootstrap"
	"postboard/internal/cache"
	"postboard/internal/repository"
	"postboard/internal/transport/http/handler"
	"postboard/internal/transport/http/middleware"
)

// Services is everything the router needs. Health is optional.
type Services struct {
	Auth   *appsvc.AuthService
	Tokens *appsvc.TokenService
	Posts  *appsvc.PostService
	Health *handler.HealthHandler

	RoutePrefix    string
	AllowedOrigins []string
}

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	cfg := app.Config

	userRepo := repository.NewUserRepository(app.MySQL)
	tokenRepo := repository.NewTokenRepository(app.MySQL)
	postRepo := repository.NewPostRepository(app.MySQL)

	tokenService := appsvc.NewTokenService(
		tokenRepo,
		userRepo,
		cfg.TokenTTL(),
		appsvc.WithTokenCache(cache.NewTokenCache(app.Redis, cfg.TokenCacheTTL()), cfg.TokenCacheTTL()),
		appsvc.WithUsagePublisher(app.UsagePublisher),
	)

	return NewEngine(Services{
		Auth:           appsvc.NewAuthService(userRepo, tokenService, cfg.Auth.BcryptCost),
		Tokens:         tokenService,
		Posts:          appsvc.NewPostService(postRepo),
		Health:         handler.NewHealthHandler(app),
		RoutePrefix:    cfg.App.RoutePrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})
}

// NewEngine wires the route table. Which routes sit behind AuthToken is the
// whole access policy of the service.
func NewEngine(svc Services) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestID(), gin.Logger(), gin.Recovery())
	if len(svc.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:  svc.AllowedOrigins,
			AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
			ExposeHeaders: []string{middleware.RequestIDHeader},
			MaxAge:        12 * time.Hour,
		}))
	}

	if svc.Health != nil {
		router.GET("/healthz", svc.Health.Check)
	}

	authHandler := handler.NewAuthHandler(svc.Auth)
	postHandler := handler.NewPostHandler(svc.Posts)
	requireToken := middleware.AuthToken(svc.Tokens)

	api := router.Group(svc.RoutePrefix)

	// Public.
	api.GET("/register", handler.ServeDoc(handler.RegisterDoc(svc.RoutePrefix)))
	api.GET("/login", handler.ServeDoc(handler.LoginDoc(svc.RoutePrefix)))
	api.GET("/logout", handler.ServeDoc(handler.LogoutDoc(svc.RoutePrefix)))
	api.POST("/register", authHandler.Register)
	api.POST("/login", authHandler.Login)
	api.GET("/posts", postHandler.List)
	api.GET("/posts/public", postHandler.List)
	api.GET("/posts/:id", postHandler.Show)

	// Bearer token required. Update and delete do not check post ownership.
	protected := api.Group("", requireToken)
	protected.GET("/user", authHandler.Me)
	protected.POST("/logout", authHandler.Logout)
	protected.POST("/posts", postHandler.Create)
	protected.PUT("/posts/:id", postHandler.Update)
	protected.PATCH("/posts/:id", postHandler.Update)
	protected.DELETE("/posts/:id", postHandler.Delete)

	return router
}
