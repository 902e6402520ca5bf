// Package app contains all endpoints available
package app

import (
	"fmt"
	"strings"
	"time"

	"meshvault/model-api/app/auth"
	"meshvault/model-api/app/models"
	"meshvault/model-api/app/users"
	"meshvault/model-api/aws"
	"meshvault/model-api/db"
	"meshvault/model-api/internal"
	"meshvault/model-api/internal/service"
	"meshvault/model-api/pkg/middleware"
	"meshvault/model-api/pkg/security"

	cache "github.com/chenyahui/gin-cache"
	"github.com/chenyahui/gin-cache/persist"
	ginzap "github.com/gin-contrib/zap"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	gray  = "\x1b[90m"
	reset = "\x1b[0m"
)

var store = persist.NewMemoryStore(time.Minute)

type API struct {
	Router *gin.Engine
	Deps   *internal.Deps
}

func NewRouter() (*API, error) {
	d := &internal.Deps{}

	conn, err := db.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database, %w", err)
	}
	d.DB = conn

	makeLogger()

	d.Argon = security.New()
	d.Mailer = service.NewMailer()

	if viper.GetString("storage.type") == "s3" {
		s3, err := aws.NewS3()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 client, %w", err)
		}
		d.S3 = s3
	}

	d.Uploader = service.NewUploader(d.DB, d.S3)

	service.PendingCleanup(time.Hour, d.DB)

	router := gin.New()
	a := &API{
		Router: router,
		Deps:   d,
	}

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     strings.Split(viper.GetString("host.cors"), ","),
			AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "TurnstileToken"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		gin.Recovery(),
		middleware.NewRequestIDMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == "HEAD"
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				if v := c.GetString("userID"); v != "" {
					fields = append(fields, zap.String("userID", v))
				}

				return fields
			},
		}),
		middleware.RateLimiterMiddleware(middleware.RateLimiterConfig{
			RequestsPerSecond: viper.GetInt("security.rate_limit"),
			Burst:             viper.GetInt("security.burst"),
			CleanupInterval:   time.Minute,
			TTL:               time.Minute * 5,
		}),
	)

	router.HandleMethodNotAllowed = true
	router.RedirectFixedPath = true
	router.MaxMultipartMemory = 8 << 20

	jwt := middleware.NewJWTMiddleware(d.DB)
	turnstile := middleware.NewTurnstileMiddleware()
	jsonBody := middleware.BodySizeLimiter(1 << 20)
	// The per-file cap is enforced by the upload validator. The body limiter
	// only has to bound the whole multipart form, which can legally hold
	// several files up to the caller's remaining quota
	uploadBody := middleware.BodySizeLimiter(viper.GetInt64("storage.quota") + 1<<20)

	// Handlers receive the shared dependencies explicitly
	h := func(fn func(*gin.Context, *internal.Deps)) gin.HandlerFunc {
		return func(c *gin.Context) {
			fn(c, d)
		}
	}

	main := router.Group("/api")
	{
		// HEAD /api/heartbeat			-> Used to check if the server is alive
		main.HEAD("/heartbeat", Heartbeat)

		// GET /api/validate			-> Validates a JWT token and returns its owner
		main.GET("/validate", jwt, h(Validate))
	}

	authG := main.Group("/auth", jsonBody)
	{
		// POST /api/auth/register		-> Starts a registration, sends a verification mail
		authG.POST("/register", turnstile, h(auth.Register))

		// POST /api/auth/login			-> Logs in a user and returns a JWT token
		authG.POST("/login", h(auth.Login))

		// GET /api/auth/verify-email		-> Turns a pending registration into an account
		authG.GET("/verify-email", h(auth.VerifyEmail))

		// POST /api/auth/resend-verification	-> Sends a fresh verification mail
		authG.POST("/resend-verification", h(auth.ResendVerification))

		// GET /api/auth/google			-> Redirects to Google's consent screen
		authG.GET("/google", h(auth.GoogleLogin))

		// GET /api/auth/google/callback	-> Completes the Google sign-in
		authG.GET("/google/callback", h(auth.GoogleCallback))
	}

	modelsG := main.Group("/models", jwt)
	{
		// GET /api/models			-> Lists the caller's models
		modelsG.GET("", h(models.List))

		// POST /api/models			-> Uploads a new model with its assets
		modelsG.POST("", uploadBody, h(models.Upload))

		// GET /api/models/storage/info		-> Returns the caller's quota usage
		modelsG.GET("/storage/info", h(models.StorageInfo))

		// GET /api/models/:id			-> Returns one model's metadata
		modelsG.GET("/:id", cacheFor(30), h(models.Fetch))

		// GET /api/models/:id/download		-> Serves the main model file
		modelsG.GET("/:id/download", h(models.Download))

		// GET /api/models/:id/thumbnail	-> Serves the model's thumbnail
		modelsG.GET("/:id/thumbnail", cacheFor(60), h(models.Thumbnail))

		// GET /api/models/:id/assets		-> Lists a model's side assets
		modelsG.GET("/:id/assets", h(models.ListAssets))

		// GET /api/models/:id/assets/:file	-> Serves one side asset
		modelsG.GET("/:id/assets/:file", h(models.FetchAsset))

		// DELETE /api/models/:id		-> Deletes a model and its files
		modelsG.DELETE("/:id", h(models.Delete))
	}

	usersG := main.Group("/users", jwt, jsonBody)
	{
		// GET /api/users			-> Lists all accounts (admin only)
		usersG.GET("", h(users.List))

		// GET /api/users/:id			-> Returns one account
		usersG.GET("/:id", h(users.Fetch))

		// PATCH /api/users/:id			-> Updates profile fields
		usersG.PATCH("/:id", h(users.Edit))

		// DELETE /api/users/:id		-> Deletes an account with all its models
		usersG.DELETE("/:id", h(users.Delete))
	}

	return a, nil
}

func makeLogger() {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + t.Format("15:04:05.000") + reset)
	}
	cfg.EncoderConfig.EncodeCaller = func(ec zapcore.EntryCaller, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + ec.TrimmedPath() + reset)
	}

	cfg.DisableStacktrace = true

	log, _ := cfg.Build()
	zap.ReplaceGlobals(log)
}

// cacheFor caches GET responses keyed per user. The routes it guards are all
// owner-scoped, a URI-only key would serve one user's cached response to
// another.
func cacheFor(sec int) gin.HandlerFunc {
	return cache.Cache(store, time.Second*time.Duration(sec),
		cache.WithCacheStrategyByRequest(func(c *gin.Context) (bool, cache.Strategy) {
			return true, cache.Strategy{
				CacheKey: c.GetString("userID") + ":" + c.Request.RequestURI,
			}
		}),
	)
}
