package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dixieflatline76/PexWall/pkg/pexels"
	"github.com/dixieflatline76/PexWall/pkg/repository"
	"github.com/dixieflatline76/PexWall/pkg/setter"
	"github.com/dixieflatline76/PexWall/pkg/store"
	"github.com/dixieflatline76/PexWall/pkg/viewmodel"
	"github.com/dixieflatline76/PexWall/pkg/work"
	"github.com/dixieflatline76/PexWall/util/log"
	"github.com/gin-gonic/gin"
)

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, pexels.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrEmptyQuery),
		errors.Is(err, setter.ErrNoTarget),
		errors.Is(err, work.ErrInvalidInterval):
		return http.StatusBadRequest
	case errors.Is(err, work.ErrNoFavorites):
		return http.StatusConflict
	case errors.Is(err, pexels.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, pexels.ErrMissingAPIKey):
		return http.StatusServiceUnavailable
	case errors.Is(err, setter.ErrLockScreenUnsupported):
		return http.StatusNotImplemented
	case errors.Is(err, viewmodel.ErrNoImageURL), errors.Is(err, setter.ErrImageTooLarge):
		return http.StatusUnprocessableEntity
	}
	var apiErr *pexels.APIError
	if errors.As(err, &apiErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func fail(c *gin.Context, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		log.Printf("%s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	respondError(c, code, err.Error())
}

func pageParam(c *gin.Context) (int, bool) {
	raw := c.DefaultQuery("page", "1")
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		respondError(c, http.StatusBadRequest, "invalid page: "+raw)
		return 0, false
	}
	return page, true
}

func idParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, "invalid wallpaper id")
		return 0, false
	}
	return id, true
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.deps.Ping != nil {
		if err := s.deps.Ping(c.Request.Context()); err != nil {
			respond(c, http.StatusServiceUnavailable, "error", "database unavailable", gin.H{"status": "degraded"})
			return
		}
	}
	respondSuccess(c, gin.H{
		"status":  "running",
		"version": s.deps.Version,
		"clients": s.hub.Clients(),
	})
}

func (s *Server) handleVersion(c *gin.Context) {
	respondSuccess(c, gin.H{"version": s.deps.Version})
}

func (s *Server) handleCurated(c *gin.Context) {
	page, ok := pageParam(c)
	if !ok {
		return
	}
	res, err := s.deps.Wallpapers.Curated(c.Request.Context(), page)
	if err != nil {
		fail(c, err)
		return
	}
	respondSuccess(c, res)
}

func (s *Server) handleSearch(c *gin.Context) {
	page, ok := pageParam(c)
	if !ok {
		return
	}
	res, err := s.deps.Wallpapers.Search(c.Request.Context(), c.Query("q"), page)
	if err != nil {
		fail(c, err)
		return
	}
	respondSuccess(c, res)
}

func (s *Server) handleRefresh(c *gin.Context) {
	res, err := s.deps.Wallpapers.Refresh(c.Request.Context(), c.Query("q"))
	if err != nil {
		fail(c, err)
		return
	}
	respondSuccess(c, res)
}

func (s *Server) handleSuggestions(c *gin.Context) {
	respondSuccess(c, s.search.Suggestions())
}

func (s *Server) handleWallpaper(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	w, err := s.preview.Wallpaper(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	respondSuccess(c, w)
}

func (s *Server) handleFavorite(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	w, err := s.preview.Wallpaper(ctx, id)
	if err != nil {
		fail(c, err)
		return
	}
	if err := s.preview.OnFavoriteClick(ctx, w); err != nil {
		fail(c, err)
		return
	}
	s.hub.Broadcast(EventFavoriteChanged, gin.H{"id": w.ID, "is_favorite": w.IsFavorite})
	respondSuccess(c, w)
}

func (s *Server) handleShare(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	text, err := s.preview.Share(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	respondSuccess(c, gin.H{"text": text})
}

type applyRequest struct {
	Home bool `json:"home"`
	Lock bool `json:"lock"`
}

func (s *Server) handleApply(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req applyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := s.preview.Apply(c.Request.Context(), id, req.Home, req.Lock)
	if res != nil {
		s.hub.OnWallpaperSet(id, res)
	}
	switch {
	case err == nil:
		respondSuccessMessage(c, res.Message, res)
	case res != nil && errors.Is(err, setter.ErrLockScreenUnsupported):
		// Home screen was applied
		respondSuccessMessage(c, setter.MsgLockUnsupported, res)
	default:
		fail(c, err)
	}
}

func (s *Server) handleFavorites(c *gin.Context) {
	favs, err := s.deps.Wallpapers.Favorites(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	respondSuccess(c, favs)
}

func (s *Server) handleCategory(c *gin.Context) {
	ws, err := s.bottomSheet.ShowCategory(c.Request.Context(), c.Param("name"))
	if err != nil {
		fail(c, err)
		return
	}
	respondSuccess(c, ws)
}

// handleLastCategory returns the last browsed category and its wallpapers.
func (s *Server) handleLastCategory(c *gin.Context) {
	name, ws, err := s.bottomSheet.LastCategory(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	if ws == nil {
		ws = []store.Wallpaper{}
	}
	respondSuccess(c, gin.H{"name": name, "wallpapers": ws})
}

type autoRequest struct {
	Unit  string  `json:"unit" binding:"required"`
	Value float64 `json:"value" binding:"required"`
}

func (s *Server) handleAutoStart(c *gin.Context) {
	var req autoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "unit and value are required")
		return
	}
	unit, err := work.ParseTimeUnit(req.Unit)
	if err != nil {
		fail(c, err)
		return
	}

	ctx := c.Request.Context()
	favs, err := s.deps.Wallpapers.Favorites(ctx)
	if err != nil {
		fail(c, err)
		return
	}
	scheduled, err := s.deps.Auto.SetupAutoChangeWallpaperWorks(ctx, favs, unit, req.Value)
	if err != nil {
		fail(c, err)
		return
	}
	respondSuccess(c, scheduled)
}

func (s *Server) handleAutoStop(c *gin.Context) {
	n := s.deps.Auto.CancelWorks(c.Request.Context(), work.WorkAutoWallpaper)
	respondSuccess(c, gin.H{"cancelled": n})
}

func (s *Server) handleAutoStatus(c *gin.Context) {
	respondSuccess(c, s.deps.Auto.Scheduled())
}
