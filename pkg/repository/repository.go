package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dixieflatline76/PexWall/pkg/cache"
	"github.com/dixieflatline76/PexWall/pkg/pexels"
	"github.com/dixieflatline76/PexWall/pkg/store"
	"github.com/dixieflatline76/PexWall/util/log"
	"golang.org/x/sync/errgroup"
)

// ErrEmptyQuery is returned for a blank search query.
var ErrEmptyQuery = errors.New("search query is empty")

// Remote is the subset of the Pexels client the repository needs.
type Remote interface {
	Curated(ctx context.Context, page int) (*pexels.PhotosPage, error)
	Search(ctx context.Context, query string, page int) (*pexels.PhotosPage, error)
	Photo(ctx context.Context, id int) (*pexels.Photo, error)
	PageSize() int
}

// Page is one page of wallpapers. Stale is set when the remote could not be
// reached and the page was served from the local store.
type Page struct {
	Items   []store.Wallpaper `json:"items"`
	Page    int               `json:"page"`
	HasNext bool              `json:"has_next"`
	Stale   bool              `json:"stale"`
}

// pageMeta is what the cache remembers about a fetched page; the rows
// themselves always come from the store so favorite flags are current.
type pageMeta struct {
	Count   int  `json:"count"`
	HasNext bool `json:"has_next"`
}

// Repository is the offline-first facade over the Pexels API, the local store
// and the page cache.
type Repository struct {
	remote     Remote
	wallpapers *store.WallpaperRepository
	cache      cache.Cache
	ttl        time.Duration
	maxRows    int

	mu       sync.RWMutex
	updateCh chan struct{}
}

// New creates a Repository. maxRows caps how many results are kept per query.
func New(remote Remote, wallpapers *store.WallpaperRepository, c cache.Cache, ttl time.Duration, maxRows int) *Repository {
	return &Repository{
		remote:     remote,
		wallpapers: wallpapers,
		cache:      c,
		ttl:        ttl,
		maxRows:    maxRows,
		updateCh:   make(chan struct{}),
	}
}

// SearchKey returns the store key for a search or category query.
func SearchKey(query string) string {
	return "search:" + NormalizeQuery(query)
}

// NormalizeQuery trims and lower-cases a query.
func NormalizeQuery(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

func cacheKey(key string, page int) string {
	return fmt.Sprintf("page:%s:%d", key, page)
}

// Curated returns a page of curated wallpapers.
func (r *Repository) Curated(ctx context.Context, page int) (*Page, error) {
	return r.load(ctx, store.CuratedQuery, page, func(ctx context.Context, p int) (*pexels.PhotosPage, error) {
		return r.remote.Curated(ctx, p)
	})
}

// Search returns a page of wallpapers matching query.
func (r *Repository) Search(ctx context.Context, query string, page int) (*Page, error) {
	q := NormalizeQuery(query)
	if q == "" {
		return nil, ErrEmptyQuery
	}
	return r.load(ctx, SearchKey(q), page, func(ctx context.Context, p int) (*pexels.PhotosPage, error) {
		return r.remote.Search(ctx, q, p)
	})
}

// Refresh drops the cached pages of query and fetches page one again. An empty
// query refreshes the curated list.
func (r *Repository) Refresh(ctx context.Context, query string) (*Page, error) {
	key := store.CuratedQuery
	if NormalizeQuery(query) != "" {
		key = SearchKey(query)
	}
	if err := r.cache.DeletePrefix(ctx, "page:"+key+":"); err != nil {
		log.Printf("Failed to drop cached pages for %s: %v", key, err)
	}
	if key == store.CuratedQuery {
		return r.Curated(ctx, 1)
	}
	return r.Search(ctx, query, 1)
}

type fetchFunc func(ctx context.Context, page int) (*pexels.PhotosPage, error)

func (r *Repository) load(ctx context.Context, key string, page int, fetch fetchFunc) (*Page, error) {
	if page < 1 {
		page = 1
	}
	size := r.remote.PageSize()
	offset := (page - 1) * size

	var meta pageMeta
	if err := r.cache.Get(ctx, cacheKey(key, page), &meta); err == nil {
		items, err := r.wallpapers.Page(ctx, key, offset, size)
		if err != nil {
			return nil, err
		}
		if len(items) == meta.Count {
			return &Page{Items: items, Page: page, HasNext: meta.HasNext}, nil
		}
		// Store was trimmed or refreshed underneath the cache entry
	} else if !cache.IsCacheMiss(err) {
		log.Printf("Cache read failed for %s page %d: %v", key, page, err)
	}

	if r.maxRows > 0 && offset >= r.maxRows {
		return &Page{Page: page}, nil
	}

	remotePage, err := fetch(ctx, page)
	if err != nil {
		items, storeErr := r.wallpapers.Page(ctx, key, offset, size)
		if storeErr != nil || len(items) == 0 {
			return nil, err
		}
		log.Printf("Serving %d stored wallpapers for %s page %d: %v", len(items), key, page, err)
		count, _ := r.wallpapers.CountByQuery(ctx, key)
		return &Page{
			Items:   items,
			Page:    page,
			HasNext: int64(offset+len(items)) < count,
			Stale:   true,
		}, nil
	}

	ws := make([]store.Wallpaper, 0, len(remotePage.Photos))
	for _, p := range remotePage.Photos {
		ws = append(ws, FromPhoto(p))
	}
	if err := r.wallpapers.UpsertPage(ctx, key, offset, ws); err != nil {
		return nil, err
	}
	r.notify()

	items, err := r.wallpapers.Page(ctx, key, offset, size)
	if err != nil {
		return nil, err
	}
	hasNext := remotePage.HasNext && (r.maxRows <= 0 || offset+len(ws) < r.maxRows)

	meta = pageMeta{Count: len(items), HasNext: hasNext}
	if err := r.cache.Set(ctx, cacheKey(key, page), meta, r.ttl); err != nil {
		log.Printf("Cache write failed for %s page %d: %v", key, page, err)
	}

	return &Page{Items: items, Page: page, HasNext: hasNext}, nil
}

// Prefetch warms the store and cache with the first pages of query. Page one is
// fetched first because it replaces the query's stored results.
func (r *Repository) Prefetch(ctx context.Context, query string, pages int) error {
	get := func(ctx context.Context, p int) error {
		var err error
		if NormalizeQuery(query) == "" {
			_, err = r.Curated(ctx, p)
		} else {
			_, err = r.Search(ctx, query, p)
		}
		return err
	}

	if pages < 1 {
		return nil
	}
	if err := get(ctx, 1); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(2)
	for p := 2; p <= pages; p++ {
		p := p
		g.Go(func() error {
			return get(gctx, p)
		})
	}
	return g.Wait()
}

// GetWallpaper returns a stored wallpaper, fetching it from Pexels when unknown.
func (r *Repository) GetWallpaper(ctx context.Context, id int) (*store.Wallpaper, error) {
	w, err := r.wallpapers.Get(ctx, id)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	photo, err := r.remote.Photo(ctx, id)
	if err != nil {
		if errors.Is(err, pexels.ErrNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	fetched := FromPhoto(*photo)
	if err := r.wallpapers.Save(ctx, &fetched); err != nil {
		return nil, err
	}
	r.notify()
	return r.wallpapers.Get(ctx, id)
}

// UpdateWallpaper persists every field of w.
func (r *Repository) UpdateWallpaper(ctx context.Context, w *store.Wallpaper) error {
	if err := r.wallpapers.Update(ctx, w); err != nil {
		return err
	}
	r.notify()
	return nil
}

// SetFavorite writes only the favorite flag of wallpaper id, leaving the
// rest of the stored row alone.
func (r *Repository) SetFavorite(ctx context.Context, id int, favorite bool) error {
	if err := r.wallpapers.SetFavorite(ctx, id, favorite); err != nil {
		return err
	}
	log.Debugf("Wallpaper %d favorite=%t", id, favorite)
	r.notify()
	return nil
}

// Favorites returns every favorite wallpaper.
func (r *Repository) Favorites(ctx context.Context) ([]store.Wallpaper, error) {
	return r.wallpapers.Favorites(ctx)
}

// WallpapersByCategory returns the stored results of a category search,
// fetching the first page when nothing is stored yet.
func (r *Repository) WallpapersByCategory(ctx context.Context, category string) ([]store.Wallpaper, error) {
	if NormalizeQuery(category) == "" {
		return nil, ErrEmptyQuery
	}
	ws, err := r.wallpapers.Page(ctx, SearchKey(category), 0, 0)
	if err != nil {
		return nil, err
	}
	if len(ws) > 0 {
		return ws, nil
	}
	page, err := r.Search(ctx, category, 1)
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

// Subscribe returns a channel that is closed on the next write. Callers
// subscribe again after it fires.
func (r *Repository) Subscribe() <-chan struct{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.updateCh
}

func (r *Repository) notify() {
	r.mu.Lock()
	defer r.mu.Unlock()
	close(r.updateCh)
	r.updateCh = make(chan struct{})
}

// FromPhoto converts a Pexels photo into a store record.
func FromPhoto(p pexels.Photo) store.Wallpaper {
	return store.Wallpaper{
		ID:              p.ID,
		Width:           p.Width,
		Height:          p.Height,
		URL:             p.URL,
		Photographer:    p.Photographer,
		PhotographerURL: p.PhotographerURL,
		AvgColor:        p.AvgColor,
		Src: store.Src{
			Original:  p.Src.Original,
			Large2x:   p.Src.Large2x,
			Large:     p.Src.Large,
			Medium:    p.Src.Medium,
			Small:     p.Src.Small,
			Portrait:  p.Src.Portrait,
			Landscape: p.Src.Landscape,
			Tiny:      p.Src.Tiny,
		},
	}
}
