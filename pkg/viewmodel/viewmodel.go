package viewmodel

import (
	"context"

	"github.com/dixieflatline76/PexWall/pkg/repository"
	"github.com/dixieflatline76/PexWall/pkg/setter"
	"github.com/dixieflatline76/PexWall/pkg/store"
	"github.com/dixieflatline76/PexWall/util/log"
)

// Repository is what the view-models read and write through.
type Repository interface {
	Search(ctx context.Context, query string, page int) (*repository.Page, error)
	Refresh(ctx context.Context, query string) (*repository.Page, error)
	GetWallpaper(ctx context.Context, id int) (*store.Wallpaper, error)
	SetFavorite(ctx context.Context, id int, favorite bool) error
	WallpapersByCategory(ctx context.Context, category string) ([]store.Wallpaper, error)
}

// Applier sets a wallpaper from an image URL.
type Applier interface {
	SetFromURL(ctx context.Context, imageURL string, home, lock bool) (*setter.Result, error)
}

// toggleFavorite flips w's favorite flag and persists just that flag,
// restoring it when the write fails.
func toggleFavorite(ctx context.Context, repo Repository, w *store.Wallpaper) error {
	w.IsFavorite = !w.IsFavorite
	if err := repo.SetFavorite(ctx, w.ID, w.IsFavorite); err != nil {
		w.IsFavorite = !w.IsFavorite
		log.Printf("Failed to update favorite for wallpaper %d: %v", w.ID, err)
		return err
	}
	return nil
}
