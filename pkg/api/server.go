package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/dixieflatline76/PexWall/pkg/repository"
	"github.com/dixieflatline76/PexWall/pkg/store"
	"github.com/dixieflatline76/PexWall/pkg/viewmodel"
	"github.com/dixieflatline76/PexWall/pkg/work"
	"github.com/dixieflatline76/PexWall/util/log"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/net/netutil"
)

// MaxConnections caps concurrent connections accepted by Start.
const MaxConnections = 64

// Wallpapers is the repository surface served over HTTP.
type Wallpapers interface {
	viewmodel.Repository
	Curated(ctx context.Context, page int) (*repository.Page, error)
	Favorites(ctx context.Context) ([]store.Wallpaper, error)
}

// AutoChanger schedules the rotation through favorites.
type AutoChanger interface {
	SetupAutoChangeWallpaperWorks(ctx context.Context, favorites []store.Wallpaper, unit work.TimeUnit, value float64) ([]work.Request, error)
	CancelWorks(ctx context.Context, tag string) int
	Scheduled() []work.Request
}

// Dependencies are the services the routes call into.
type Dependencies struct {
	Wallpapers Wallpapers
	Applier    viewmodel.Applier
	Auto       AutoChanger
	Hub        *Hub
	Version    string
	// SavedState keeps the last browsed category across restarts; in-memory when nil.
	SavedState viewmodel.SavedState
	// Ping reports storage health; nil skips the check.
	Ping func(ctx context.Context) error
	// Debug enables gin's request logger.
	Debug bool
}

// Server is the local REST/WebSocket server.
type Server struct {
	router *gin.Engine

	mu         sync.Mutex
	httpServer *http.Server
	deps       Dependencies
	hub        *Hub

	search      *viewmodel.SearchViewModel
	preview     *viewmodel.PreviewViewModel
	bottomSheet *viewmodel.BottomSheetViewModel
}

// NewServer creates the server and registers its routes.
func NewServer(deps Dependencies) *Server {
	if !deps.Debug && gin.Mode() == gin.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}
	if deps.Hub == nil {
		deps.Hub = NewHub()
	}

	router := gin.New()
	if deps.Debug {
		router.Use(gin.Logger())
	}
	router.Use(gin.Recovery())
	// Allow extensions and local pages to access localhost
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Length", "Content-Type"},
		MaxAge:          12 * time.Hour,
	}))
	_ = router.SetTrustedProxies(nil)

	if deps.SavedState == nil {
		deps.SavedState = viewmodel.NewMapSavedState()
	}

	s := &Server{
		router:      router,
		deps:        deps,
		hub:         deps.Hub,
		search:      viewmodel.NewSearchViewModel(deps.Wallpapers),
		preview:     viewmodel.NewPreviewViewModel(deps.Wallpapers, deps.Applier),
		bottomSheet: viewmodel.NewBottomSheetViewModel(deps.SavedState, deps.Wallpapers),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/version", s.handleVersion)
	s.router.GET("/ws", func(c *gin.Context) {
		s.hub.ServeWS(c.Writer, c.Request)
	})

	api := s.router.Group("/api")
	api.Use(func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Next()
	})
	{
		api.GET("/curated", s.handleCurated)
		api.GET("/search", s.handleSearch)
		api.POST("/search/refresh", s.handleRefresh)
		api.GET("/suggestions", s.handleSuggestions)

		wallpapers := api.Group("/wallpapers/:id")
		{
			wallpapers.GET("", s.handleWallpaper)
			wallpapers.POST("/favorite", s.handleFavorite)
			wallpapers.GET("/share", s.handleShare)
			wallpapers.POST("/apply", s.handleApply)
		}

		api.GET("/favorites", s.handleFavorites)
		api.GET("/categories", s.handleLastCategory)
		api.GET("/categories/:name", s.handleCategory)

		api.GET("/auto", s.handleAutoStatus)
		api.POST("/auto", s.handleAutoStart)
		api.DELETE("/auto", s.handleAutoStop)
	}
}

// Hub returns the event hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on addr and serves until Stop. It blocks.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve serves on ln, limited to MaxConnections concurrent connections.
func (s *Server) Serve(ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	log.Printf("API server listening on %s", ln.Addr())
	err := srv.Serve(netutil.LimitListener(ln, MaxConnections))
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop shuts the server down and disconnects WebSocket clients.
func (s *Server) Stop(ctx context.Context) error {
	s.hub.Close()
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv != nil {
		return srv.Shutdown(ctx)
	}
	return nil
}
