package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"meme-service/handler"
	"meme-service/middleware"
)

// ServiceName labels metrics and health responses.
const ServiceName = "meme-service"

// Handlers are the API handler sets mounted by Setup.
type Handlers struct {
	Memes     *handler.MemeHandler
	Templates *handler.TemplateHandler
	Library   *handler.LibraryHandler
	Media     *handler.MediaHandler
	// Ping reports backend health. Nil means always healthy.
	Ping func(ctx context.Context) error
	// Refresh re-imports the template catalogue and returns the number of
	// templates stored. Nil disables the refresh route.
	Refresh func(ctx context.Context) int
}

func Setup(h Handlers, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.Prometheus(ServiceName))

	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}))

	api := r.Group("/api")

	memes := api.Group("/memes")
	memes.POST("/generate", h.Memes.GenerateByText)
	memes.POST("/generate-by-template", h.Memes.GenerateByTemplate)
	memes.GET("", h.Memes.List)
	memes.GET("/styles", h.Memes.Styles)
	memes.GET("/:id", h.Memes.Get)
	memes.DELETE("/:id", h.Memes.Delete)
	memes.POST("/:id/favorite", h.Memes.SetFavorite)
	memes.GET("/:id/similar", h.Memes.Similar)

	templates := api.Group("/templates")
	templates.GET("", h.Templates.List)
	templates.GET("/hot", h.Templates.Hot)
	templates.GET("/categories", h.Templates.Categories)
	templates.GET("/:id", h.Templates.Get)
	templates.GET("/:id/similar", h.Templates.Similar)
	templates.POST("/refresh", func(c *gin.Context) {
		if h.Refresh == nil {
			c.JSON(http.StatusNotImplemented, gin.H{"error": "template refresh is not configured"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"refreshed": h.Refresh(c.Request.Context())})
	})

	lib := api.Group("/library")
	lib.GET("", h.Library.Mine)
	lib.POST("", h.Library.Add)
	lib.DELETE("", h.Library.ClearMine)
	lib.GET("/history", h.Library.History)
	lib.DELETE("/history", h.Library.ClearHistory)
	lib.GET("/favorites", h.Library.Favorites)
	lib.DELETE("/favorites", h.Library.ClearFavorites)
	lib.GET("/stats", h.Library.Stats)
	lib.PATCH("/:id", h.Library.Update)
	lib.DELETE("/:id", h.Library.Remove)
	lib.POST("/:id/favorite", h.Library.ToggleFavorite)

	m := api.Group("/media")
	m.POST("/preview", h.Media.Preview)
	m.POST("/download", h.Media.Download)
	m.POST("/compress", h.Media.Compress)
	m.POST("/choose", h.Media.Choose)
	m.GET("/info", h.Media.Info)
	m.POST("/save", h.Media.Save)
	m.POST("/share", h.Media.Share)
	m.GET("/share-menu", h.Media.ShareMenu)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": ServiceName})
	})
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready", "timestamp": time.Now()})
	})
	r.GET("/health", func(c *gin.Context) {
		if h.Ping != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := h.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "service": ServiceName, "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": ServiceName})
	})

	return r
}
