package viewmodel

import (
	"context"
	"errors"
	"fmt"

	"github.com/dixieflatline76/PexWall/pkg/setter"
	"github.com/dixieflatline76/PexWall/pkg/store"
)

// ErrNoImageURL is returned when a wallpaper has no usable image variant.
var ErrNoImageURL = errors.New("wallpaper has no image URL")

// PreviewViewModel backs the single wallpaper screen.
type PreviewViewModel struct {
	repo    Repository
	applier Applier

	CategoryName *State[string]
}

// NewPreviewViewModel creates a PreviewViewModel.
func NewPreviewViewModel(repo Repository, applier Applier) *PreviewViewModel {
	return &PreviewViewModel{repo: repo, applier: applier, CategoryName: NewState("")}
}

// SetCategoryName remembers which category the preview was opened from.
func (vm *PreviewViewModel) SetCategoryName(category string) {
	vm.CategoryName.Set(category)
}

// Wallpaper loads a wallpaper by id.
func (vm *PreviewViewModel) Wallpaper(ctx context.Context, id int) (*store.Wallpaper, error) {
	return vm.repo.GetWallpaper(ctx, id)
}

// OnFavoriteClick flips the favorite flag of w and persists it.
func (vm *PreviewViewModel) OnFavoriteClick(ctx context.Context, w *store.Wallpaper) error {
	return toggleFavorite(ctx, vm.repo, w)
}

// Apply sets wallpaper id on the requested screens using the best desktop variant.
func (vm *PreviewViewModel) Apply(ctx context.Context, id int, home, lock bool) (*setter.Result, error) {
	if _, err := setter.TargetFrom(home, lock); err != nil {
		return nil, err
	}
	w, err := vm.repo.GetWallpaper(ctx, id)
	if err != nil {
		return nil, err
	}
	url := ApplyURL(w)
	if url == "" {
		return nil, ErrNoImageURL
	}
	return vm.applier.SetFromURL(ctx, url, home, lock)
}

// Share returns the text shared for wallpaper id: its Pexels page.
func (vm *PreviewViewModel) Share(ctx context.Context, id int) (string, error) {
	w, err := vm.repo.GetWallpaper(ctx, id)
	if err != nil {
		return "", err
	}
	if w.URL == "" {
		return "", fmt.Errorf("wallpaper %d has no page URL", id)
	}
	return w.URL, nil
}

// ApplyURL picks the image variant applied to the desktop.
func ApplyURL(w *store.Wallpaper) string {
	for _, u := range []string{w.Src.Original, w.Src.Large2x, w.Src.Large, w.Src.Portrait} {
		if u != "" {
			return u
		}
	}
	return ""
}
