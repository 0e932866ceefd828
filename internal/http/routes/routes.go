package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/convert-toolkit/internal/config"
	"github.com/phambaophuc/convert-toolkit/internal/http/handlers"
	"github.com/phambaophuc/convert-toolkit/internal/http/middleware"
	"go.uber.org/zap"
)

// Handlers groups every handler the router mounts.
type Handlers struct {
	Health      *handlers.HealthHandler
	Stats       *handlers.StatsHandler
	Images      *handlers.ImageHandler
	Sessions    *handlers.SessionHandler
	Batches     *handlers.BatchHandler
	PDF         *handlers.PDFHandler
	Media       *handlers.MediaHandler
	Text        *handlers.TextHandler
	Links       *handlers.LinkHandler
	Auth        *handlers.AuthHandler
	Preferences *handlers.PreferencesHandler
	Handles     *handlers.HandleHandler
}

type Router struct {
	handlers Handlers
	config   *config.Config
	logger   *zap.Logger
}

func NewRouter(h Handlers, cfg *config.Config, logger *zap.Logger) *Router {
	return &Router{
		handlers: h,
		config:   cfg,
		logger:   logger,
	}
}

func (r *Router) SetupRoutes() *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger(r.logger))
	router.Use(middleware.ErrorHandler(r.logger))
	router.Use(middleware.CORS(r.config.Server.AllowedOrigins))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.Sessions(r.config.Server.SessionSecret, r.config.Server.GinMode == gin.ReleaseMode)...)

	// Short link redirects come first so no other route can shadow them.
	router.GET("/s/:code", r.handlers.Links.Redirect)
	router.POST("/functions/short-links", r.handlers.Links.Function)

	uploads := middleware.ValidateContentType("multipart/form-data")
	jsonBody := middleware.ValidateContentType("application/json")
	limit := middleware.LimitBody(r.config.Storage.MaxFileSize * 10)

	// API version 1
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", r.handlers.Health.HealthCheck)
		v1.GET("/stats", r.handlers.Stats.GetStats)
		v1.DELETE("/cache", r.handlers.Stats.ClearCache)
		v1.GET("/presets", r.handlers.Images.ListPresets)

		images := v1.Group("/images", limit, uploads)
		{
			images.POST("/compress", r.handlers.Images.Compress)
			images.POST("/resize", r.handlers.Images.Resize)
			images.POST("/convert", r.handlers.Images.Convert)
		}

		sessions := v1.Group("/sessions")
		{
			sessions.POST("", jsonBody, r.handlers.Sessions.Create)
			sessions.GET("/:id", r.handlers.Sessions.Get)
			sessions.POST("/:id/file", limit, uploads, r.handlers.Sessions.Load)
			sessions.PUT("/:id/target", jsonBody, r.handlers.Sessions.SetTarget)
			sessions.PUT("/:id/preset", jsonBody, r.handlers.Sessions.SetPreset)
			sessions.DELETE("/:id", r.handlers.Sessions.Delete)
		}

		batches := v1.Group("/batches")
		{
			batches.GET("", r.handlers.Batches.List)
			batches.POST("", jsonBody, r.handlers.Batches.Create)
			batches.GET("/:id", r.handlers.Batches.Get)
			batches.DELETE("/:id", r.handlers.Batches.Delete)
			batches.POST("/:id/files", limit, uploads, r.handlers.Batches.AddFiles)
			batches.DELETE("/:id/jobs", r.handlers.Batches.Clear)
			batches.DELETE("/:id/jobs/:jobId", r.handlers.Batches.RemoveJob)
			batches.GET("/:id/jobs/:jobId/download", r.handlers.Batches.DownloadJob)
			batches.POST("/:id/run", jsonBody, r.handlers.Batches.Run)
			batches.GET("/:id/events", r.handlers.Batches.Events)
			batches.GET("/:id/archive", r.handlers.Batches.Archive)
			batches.POST("/:id/download-all", r.handlers.Batches.DownloadAll)
		}

		pdf := v1.Group("/pdf", limit, uploads)
		{
			pdf.POST("/info", r.handlers.PDF.Info)
			pdf.POST("/convert", r.handlers.PDF.Convert)
			pdf.POST("/compress", r.handlers.PDF.Compress)
			pdf.POST("/secure", r.handlers.PDF.Secure)
		}

		media := v1.Group("/media", limit, uploads)
		{
			media.POST("/video", r.handlers.Media.CompressVideo)
			media.POST("/background", r.handlers.Media.RemoveBackground)
			media.POST("/transcribe", r.handlers.Media.Transcribe)
		}

		text := v1.Group("/text", jsonBody)
		{
			text.POST("/case", r.handlers.Text.ConvertCase)
			text.POST("/stats", r.handlers.Text.Stats)
		}

		links := v1.Group("/links")
		{
			links.POST("/whatsapp", jsonBody, r.handlers.Links.WhatsApp)
			links.POST("/shorten", jsonBody, r.handlers.Links.Shorten)
			links.GET("/:code", r.handlers.Links.Resolve)
		}

		authGroup := v1.Group("/auth", jsonBody)
		{
			authGroup.GET("/session", r.handlers.Auth.Status)
			authGroup.POST("/signup", r.handlers.Auth.SignUp)
			authGroup.POST("/signin", r.handlers.Auth.SignIn)
			authGroup.POST("/signout", r.handlers.Auth.SignOut)
			authGroup.POST("/checkout", r.handlers.Auth.Checkout)
		}

		prefs := v1.Group("/preferences")
		{
			prefs.GET("", r.handlers.Preferences.Get)
			prefs.PUT("", jsonBody, r.handlers.Preferences.Update)
			prefs.DELETE("", r.handlers.Preferences.Reset)
		}

		handles := v1.Group("/handles")
		{
			handles.GET("/:id", r.handlers.Handles.Download)
			handles.DELETE("/:id", r.handlers.Handles.Release)
		}
	}

	router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{
			"status":  "OK",
			"message": "Convert toolkit is running",
		})
	})

	return router
}
