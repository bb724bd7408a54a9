package viewmodel

import (
	"context"
	"strings"
	"sync"

	"github.com/dixieflatline76/PexWall/pkg/store"
)

// LastCategoryName is the saved state key of the last submitted category.
const LastCategoryName = "LAST_CATEGORY_NAME"

// SavedState survives view-model re-creation.
type SavedState interface {
	Get(key string) (string, bool)
	Set(key, value string)
}

// MapSavedState is an in-memory SavedState.
type MapSavedState struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMapSavedState creates an empty MapSavedState.
func NewMapSavedState() *MapSavedState {
	return &MapSavedState{values: make(map[string]string)}
}

// Get returns the value stored under key.
func (s *MapSavedState) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores value under key.
func (s *MapSavedState) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// BottomSheetViewModel lists the wallpapers of a category under a preview.
type BottomSheetViewModel struct {
	saved SavedState
	repo  Repository

	categoryName *State[string]
}

// NewBottomSheetViewModel restores the last category from saved, if any.
func NewBottomSheetViewModel(saved SavedState, repo Repository) *BottomSheetViewModel {
	vm := &BottomSheetViewModel{saved: saved, repo: repo, categoryName: NewState("")}
	if last, ok := saved.Get(LastCategoryName); ok && strings.TrimSpace(last) != "" {
		vm.categoryName.Set(last)
	}
	return vm
}

// CategoryName returns the current category, empty when none.
func (vm *BottomSheetViewModel) CategoryName() string {
	return vm.categoryName.Value()
}

// OnCategoryNameSubmit switches the category and remembers it.
func (vm *BottomSheetViewModel) OnCategoryNameSubmit(category string) {
	vm.categoryName.Set(category)
	vm.saved.Set(LastCategoryName, category)
}

// WallpaperResults returns the wallpapers of the current category; nil without one.
func (vm *BottomSheetViewModel) WallpaperResults(ctx context.Context) ([]store.Wallpaper, error) {
	_, ws, err := vm.LastCategory(ctx)
	return ws, err
}

// ShowCategory submits category and returns its wallpapers. The result
// belongs to category even when another submit lands while it loads.
func (vm *BottomSheetViewModel) ShowCategory(ctx context.Context, category string) ([]store.Wallpaper, error) {
	vm.OnCategoryNameSubmit(category)
	return vm.resultsFor(ctx, category)
}

// LastCategory returns the current category together with its wallpapers.
func (vm *BottomSheetViewModel) LastCategory(ctx context.Context) (string, []store.Wallpaper, error) {
	category := vm.categoryName.Value()
	ws, err := vm.resultsFor(ctx, category)
	return category, ws, err
}

func (vm *BottomSheetViewModel) resultsFor(ctx context.Context, category string) ([]store.Wallpaper, error) {
	if strings.TrimSpace(category) == "" {
		return nil, nil
	}
	return vm.repo.WallpapersByCategory(ctx, category)
}

// OnFavoriteClick flips the favorite flag of w and persists it.
func (vm *BottomSheetViewModel) OnFavoriteClick(ctx context.Context, w *store.Wallpaper) error {
	return toggleFavorite(ctx, vm.repo, w)
}

// GetWallpaper loads a wallpaper by id.
func (vm *BottomSheetViewModel) GetWallpaper(ctx context.Context, id int) (*store.Wallpaper, error) {
	return vm.repo.GetWallpaper(ctx, id)
}
