package viewmodel

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/dixieflatline76/PexWall/pkg/repository"
	"github.com/dixieflatline76/PexWall/pkg/setter"
	"github.com/dixieflatline76/PexWall/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flagWrite struct {
	id       int
	favorite bool
}

type fakeRepo struct {
	mu         sync.Mutex
	wallpapers map[int]store.Wallpaper
	flagWrites []flagWrite
	updateErr  error
	searches   []string
	categories []string
}

func newFakeRepo(ws ...store.Wallpaper) *fakeRepo {
	r := &fakeRepo{wallpapers: make(map[int]store.Wallpaper)}
	for _, w := range ws {
		r.wallpapers[w.ID] = w
	}
	return r
}

func (r *fakeRepo) Search(_ context.Context, query string, page int) (*repository.Page, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.searches = append(r.searches, query)
	return &repository.Page{Page: page, Items: []store.Wallpaper{{ID: 1}}, HasNext: true}, nil
}

func (r *fakeRepo) Refresh(ctx context.Context, query string) (*repository.Page, error) {
	return r.Search(ctx, "refresh:"+query, 1)
}

func (r *fakeRepo) GetWallpaper(_ context.Context, id int) (*store.Wallpaper, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallpapers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &w, nil
}

func (r *fakeRepo) SetFavorite(_ context.Context, id int, favorite bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	w, ok := r.wallpapers[id]
	if !ok {
		return store.ErrNotFound
	}
	r.flagWrites = append(r.flagWrites, flagWrite{id: id, favorite: favorite})
	w.IsFavorite = favorite
	r.wallpapers[id] = w
	return nil
}

func (r *fakeRepo) WallpapersByCategory(_ context.Context, category string) ([]store.Wallpaper, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.categories = append(r.categories, category)
	return []store.Wallpaper{{ID: 9, Photographer: category}}, nil
}

type fakeApplier struct {
	url        string
	home, lock bool
}

func (f *fakeApplier) SetFromURL(_ context.Context, url string, home, lock bool) (*setter.Result, error) {
	f.url, f.home, f.lock = url, home, lock
	return &setter.Result{Message: setter.MsgHomeAndLockSet}, nil
}

func TestState(t *testing.T) {
	s := NewState(1)
	ch := s.Subscribe()
	assert.Equal(t, 1, s.Value())

	s.Set(2)
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("subscriber not notified")
	}
	assert.Equal(t, 2, s.Value())

	select {
	case <-s.Subscribe():
		t.Fatal("fresh subscription fired early")
	default:
	}
}

func TestSearchViewModel(t *testing.T) {
	repo := newFakeRepo()
	vm := NewSearchViewModel(repo)
	ctx := context.Background()

	assert.False(t, vm.HasCurrentQuery())
	_, err := vm.Results(ctx, 1)
	assert.ErrorIs(t, err, repository.ErrEmptyQuery)

	changed := vm.Query.Subscribe()
	vm.OnSearchQuerySubmit("Sea")
	<-changed
	assert.True(t, vm.HasCurrentQuery())
	assert.True(t, vm.NewQueryInProgress())
	assert.True(t, vm.PendingScrollToTopAfterNewQuery())

	page, err := vm.Results(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.False(t, vm.NewQueryInProgress(), "first page ends the new query")
	assert.True(t, vm.PendingScrollToTopAfterNewQuery())
	vm.AcknowledgeScrollToTop()
	assert.False(t, vm.PendingScrollToTopAfterNewQuery())

	_, err = vm.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Sea", "refresh:Sea"}, repo.searches)

	vm.OnSearchQuerySubmit("   ")
	assert.False(t, vm.HasCurrentQuery())
}

func TestSearchViewModel_Suggestions(t *testing.T) {
	vm := NewSearchViewModel(newFakeRepo())
	got := vm.Suggestions()
	require.Len(t, got, len(suggestions))

	sortedGot := append([]string(nil), got...)
	sortedWant := append([]string(nil), suggestions...)
	sort.Strings(sortedGot)
	sort.Strings(sortedWant)
	assert.Equal(t, sortedWant, sortedGot)
	assert.Equal(t, "Nature", suggestions[0], "shuffling works on a copy")
}

func TestOnFavoriteClick(t *testing.T) {
	repo := newFakeRepo(store.Wallpaper{ID: 3, Photographer: "Ann"})
	ctx := context.Background()
	w := &store.Wallpaper{ID: 3, Photographer: "stale copy"}

	vm := NewPreviewViewModel(repo, &fakeApplier{})
	require.NoError(t, vm.OnFavoriteClick(ctx, w))
	assert.True(t, w.IsFavorite)
	assert.Equal(t, []flagWrite{{id: 3, favorite: true}}, repo.flagWrites, "toggle is persisted")
	stored, err := repo.GetWallpaper(ctx, 3)
	require.NoError(t, err)
	assert.True(t, stored.IsFavorite)
	assert.Equal(t, "Ann", stored.Photographer, "only the flag is written")

	require.NoError(t, NewSearchViewModel(repo).OnFavoriteClick(ctx, w))
	assert.False(t, w.IsFavorite)
	assert.Len(t, repo.flagWrites, 2)

	repo.updateErr = errors.New("disk full")
	assert.Error(t, NewBottomSheetViewModel(NewMapSavedState(), repo).OnFavoriteClick(ctx, w))
	assert.False(t, w.IsFavorite, "flag restored after failed write")
}

func TestPreviewViewModel(t *testing.T) {
	repo := newFakeRepo(
		store.Wallpaper{ID: 1, URL: "https://www.pexels.com/photo/1/", Src: store.Src{Original: "orig", Portrait: "portrait"}},
		store.Wallpaper{ID: 2},
	)
	applier := &fakeApplier{}
	vm := NewPreviewViewModel(repo, applier)
	ctx := context.Background()

	vm.SetCategoryName("Cars")
	assert.Equal(t, "Cars", vm.CategoryName.Value())

	w, err := vm.Wallpaper(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, w.ID)

	res, err := vm.Apply(ctx, 1, true, true)
	require.NoError(t, err)
	assert.Equal(t, setter.MsgHomeAndLockSet, res.Message)
	assert.Equal(t, "orig", applier.url)
	assert.True(t, applier.home)
	assert.True(t, applier.lock)

	_, err = vm.Apply(ctx, 1, false, false)
	assert.ErrorIs(t, err, setter.ErrNoTarget)
	_, err = vm.Apply(ctx, 2, true, false)
	assert.ErrorIs(t, err, ErrNoImageURL)
	_, err = vm.Apply(ctx, 404, true, false)
	assert.ErrorIs(t, err, store.ErrNotFound)

	text, err := vm.Share(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "https://www.pexels.com/photo/1/", text)
	_, err = vm.Share(ctx, 2)
	assert.Error(t, err)
}

func TestBottomSheetViewModel(t *testing.T) {
	repo := newFakeRepo(store.Wallpaper{ID: 9})
	saved := NewMapSavedState()
	ctx := context.Background()

	vm := NewBottomSheetViewModel(saved, repo)
	ws, err := vm.WallpaperResults(ctx)
	require.NoError(t, err)
	assert.Nil(t, ws, "no category yet")

	vm.OnCategoryNameSubmit("Animals")
	last, ok := saved.Get(LastCategoryName)
	require.True(t, ok)
	assert.Equal(t, "Animals", last)

	ws, err = vm.WallpaperResults(ctx)
	require.NoError(t, err)
	assert.Len(t, ws, 1)

	// A recreated view-model restores the saved category
	restored := NewBottomSheetViewModel(saved, repo)
	assert.Equal(t, "Animals", restored.CategoryName())

	saved.Set(LastCategoryName, "  ")
	assert.Empty(t, NewBottomSheetViewModel(saved, repo).CategoryName(), "blank category is not restored")

	w, err := vm.GetWallpaper(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, 9, w.ID)
}

func TestBottomSheetViewModel_ShowCategory(t *testing.T) {
	repo := newFakeRepo()
	saved := NewMapSavedState()
	vm := NewBottomSheetViewModel(saved, repo)
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, name := range []string{"Cars", "Animals", "Space", "Ocean"} {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			ws, err := vm.ShowCategory(ctx, name)
			if assert.NoError(t, err) && assert.Len(t, ws, 1) {
				assert.Equal(t, name, ws[0].Photographer)
			}
		}(name)
	}
	wg.Wait()

	name, ws, err := vm.LastCategory(ctx)
	require.NoError(t, err)
	require.Len(t, ws, 1)
	assert.Equal(t, name, ws[0].Photographer, "name and results come from one read")
	last, _ := saved.Get(LastCategoryName)
	assert.Equal(t, name, last)

	ws, err = vm.ShowCategory(ctx, " ")
	require.NoError(t, err)
	assert.Nil(t, ws)
}
