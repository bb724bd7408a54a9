package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WallpaperRepository persists wallpapers and the ordered results of each query.
type WallpaperRepository struct {
	db      *DB
	maxRows int
}

// NewWallpaperRepository creates a repository that keeps at most maxRows results per query.
func NewWallpaperRepository(db *DB, maxRows int) *WallpaperRepository {
	return &WallpaperRepository{db: db, maxRows: maxRows}
}

// wallpaperUpsertColumns are refreshed from the remote copy; is_favorite,
// favorited_at and created_at always keep their local value.
var wallpaperUpsertColumns = []string{
	"width", "height", "url", "photographer", "photographer_url", "avg_color",
	"src_original", "src_large2x", "src_large", "src_medium", "src_small",
	"src_portrait", "src_landscape", "src_tiny", "updated_at",
}

// localColumns are never written from a remote copy.
var localColumns = []string{"is_favorite", "favorited_at"}

// UpsertPage stores a fetched page of wallpapers for query starting at startPos.
// A startPos of zero is a refresh and drops the query's previous results.
func (r *WallpaperRepository) UpsertPage(ctx context.Context, query string, startPos int, ws []Wallpaper) error {
	return r.db.Transaction(ctx, func(tx *gorm.DB) error {
		if startPos == 0 {
			if err := tx.Where("query = ?", query).Delete(&SearchResult{}).Error; err != nil {
				return fmt.Errorf("failed to clear results for %q: %w", query, err)
			}
		}
		if len(ws) == 0 {
			return nil
		}

		// Pexels occasionally repeats a photo within a page
		seen := make(map[int]struct{}, len(ws))
		unique := make([]Wallpaper, 0, len(ws))
		for _, w := range ws {
			if _, ok := seen[w.ID]; ok {
				continue
			}
			seen[w.ID] = struct{}{}
			unique = append(unique, w)
		}

		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(wallpaperUpsertColumns),
		}).Omit(localColumns...).Create(&unique).Error; err != nil {
			return fmt.Errorf("failed to upsert wallpapers: %w", err)
		}

		results := make([]SearchResult, 0, len(ws))
		for i, w := range ws {
			pos := startPos + i
			if r.maxRows > 0 && pos >= r.maxRows {
				break
			}
			results = append(results, SearchResult{Query: query, Position: pos, WallpaperID: w.ID})
		}
		if len(results) > 0 {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "query"}, {Name: "position"}},
				DoUpdates: clause.AssignmentColumns([]string{"wallpaper_id"}),
			}).Create(&results).Error; err != nil {
				return fmt.Errorf("failed to record results for %q: %w", query, err)
			}
		}

		if r.maxRows > 0 {
			if err := tx.Where("query = ? AND position >= ?", query, r.maxRows).Delete(&SearchResult{}).Error; err != nil {
				return fmt.Errorf("failed to trim results for %q: %w", query, err)
			}
		}
		return nil
	})
}

// Page returns the stored results of query ordered by position.
func (r *WallpaperRepository) Page(ctx context.Context, query string, offset, limit int) ([]Wallpaper, error) {
	var ws []Wallpaper
	tx := r.db.WithContext(ctx).
		Model(&Wallpaper{}).
		Select("wallpaper_table.*").
		Joins("JOIN search_results ON search_results.wallpaper_id = wallpaper_table.id").
		Where("search_results.query = ?", query).
		Order("search_results.position").
		Offset(offset)
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if err := tx.Find(&ws).Error; err != nil {
		return nil, fmt.Errorf("failed to load results for %q: %w", query, err)
	}
	return ws, nil
}

// CountByQuery returns how many results are stored for query.
func (r *WallpaperRepository) CountByQuery(ctx context.Context, query string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&SearchResult{}).Where("query = ?", query).Count(&n).Error
	return n, err
}

// ClearQuery drops the stored results of query. Wallpapers themselves stay.
func (r *WallpaperRepository) ClearQuery(ctx context.Context, query string) error {
	return r.db.WithContext(ctx).Where("query = ?", query).Delete(&SearchResult{}).Error
}

// Get returns a wallpaper by id.
func (r *WallpaperRepository) Get(ctx context.Context, id int) (*Wallpaper, error) {
	var w Wallpaper
	if err := r.db.WithContext(ctx).First(&w, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &w, nil
}

// Save inserts a wallpaper that is not tied to a query, keeping an existing favorite flag.
func (r *WallpaperRepository) Save(ctx context.Context, w *Wallpaper) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(wallpaperUpsertColumns),
	}).Omit(localColumns...).Create(w).Error
}

// Update writes every field of w, including the favorite flag.
func (r *WallpaperRepository) Update(ctx context.Context, w *Wallpaper) error {
	switch {
	case !w.IsFavorite:
		w.FavoritedAt = nil
	case w.FavoritedAt == nil:
		now := time.Now()
		w.FavoritedAt = &now
	}
	res := r.db.WithContext(ctx).Model(w).Select("*").Omit("created_at").Updates(w)
	if res.Error != nil {
		return fmt.Errorf("failed to update wallpaper %d: %w", w.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetFavorite sets the favorite flag of a wallpaper. Favoriting an already
// favorite wallpaper keeps its place in Favorites.
func (r *WallpaperRepository) SetFavorite(ctx context.Context, id int, favorite bool) error {
	var favoritedAt interface{}
	if favorite {
		favoritedAt = gorm.Expr("COALESCE(favorited_at, ?)", time.Now())
	}
	res := r.db.WithContext(ctx).Model(&Wallpaper{}).Where("id = ?", id).Updates(map[string]interface{}{
		"is_favorite":  favorite,
		"favorited_at": favoritedAt,
	})
	if res.Error != nil {
		return fmt.Errorf("failed to update favorite for %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Favorites returns every favorite wallpaper in the order they were favorited.
func (r *WallpaperRepository) Favorites(ctx context.Context) ([]Wallpaper, error) {
	var ws []Wallpaper
	err := r.db.WithContext(ctx).Where("is_favorite = ?", true).Order("favorited_at, id").Find(&ws).Error
	return ws, err
}
