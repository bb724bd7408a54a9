package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(Options{Type: "sqlite", FilePath: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func makeWallpapers(ids ...int) []Wallpaper {
	ws := make([]Wallpaper, 0, len(ids))
	for _, id := range ids {
		ws = append(ws, Wallpaper{
			ID:     id,
			Width:  1920,
			Height: 1080,
			URL:    fmt.Sprintf("https://www.pexels.com/photo/%d/", id),
			Src: Src{
				Original: fmt.Sprintf("https://images.pexels.com/%d.jpeg", id),
				Portrait: fmt.Sprintf("https://images.pexels.com/%d.jpeg?portrait", id),
			},
		})
	}
	return ws
}

func ids(ws []Wallpaper) []int {
	out := make([]int, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.ID)
	}
	return out
}

func TestOpen(t *testing.T) {
	db, err := Open(Options{FilePath: filepath.Join(t.TempDir(), "wallpaper_database.db")})
	require.NoError(t, err)
	assert.NoError(t, db.Ping(context.Background()))
	assert.True(t, db.Gorm().Migrator().HasTable("wallpaper_table"))
	assert.True(t, db.Gorm().Migrator().HasTable(&SearchResult{}))
	assert.True(t, db.Gorm().Migrator().HasTable(&WorkRequest{}))
	require.NoError(t, db.Close())

	_, err = Open(Options{Type: "mysql"})
	assert.Error(t, err)

	_, err = Open(Options{Type: "postgres"})
	assert.Error(t, err, "postgres without DSN")
}

func TestUpsertPage_OrderAndPaging(t *testing.T) {
	ctx := context.Background()
	repo := NewWallpaperRepository(setupTestDB(t), 200)

	require.NoError(t, repo.UpsertPage(ctx, CuratedQuery, 0, makeWallpapers(5, 3, 9)))
	require.NoError(t, repo.UpsertPage(ctx, CuratedQuery, 3, makeWallpapers(1, 2)))

	page, err := repo.Page(ctx, CuratedQuery, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{5, 3, 9, 1, 2}, ids(page))

	page, err = repo.Page(ctx, CuratedQuery, 3, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, ids(page))

	n, err := repo.CountByQuery(ctx, CuratedQuery)
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)

	// Another query sharing a wallpaper does not disturb the first
	require.NoError(t, repo.UpsertPage(ctx, "nature", 0, makeWallpapers(9, 10)))
	page, err = repo.Page(ctx, "nature", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{9, 10}, ids(page))
	n, _ = repo.CountByQuery(ctx, CuratedQuery)
	assert.EqualValues(t, 5, n)
}

func TestUpsertPage_RefreshKeepsFavorites(t *testing.T) {
	ctx := context.Background()
	repo := NewWallpaperRepository(setupTestDB(t), 200)

	require.NoError(t, repo.UpsertPage(ctx, "sea", 0, makeWallpapers(1, 2, 3)))
	require.NoError(t, repo.SetFavorite(ctx, 2, true))

	fresh := makeWallpapers(2, 4)
	fresh[0].Photographer = "Updated Name"
	require.NoError(t, repo.UpsertPage(ctx, "sea", 0, fresh))

	page, err := repo.Page(ctx, "sea", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4}, ids(page), "refresh replaces previous results")

	w, err := repo.Get(ctx, 2)
	require.NoError(t, err)
	assert.True(t, w.IsFavorite, "favorite survives re-fetch")
	assert.Equal(t, "Updated Name", w.Photographer)

	// Wallpapers dropped from a query are still readable by id
	_, err = repo.Get(ctx, 1)
	assert.NoError(t, err)
}

func TestUpsertPage_TrimsToMaxRows(t *testing.T) {
	ctx := context.Background()
	repo := NewWallpaperRepository(setupTestDB(t), 3)

	require.NoError(t, repo.UpsertPage(ctx, "red", 0, makeWallpapers(1, 2)))
	require.NoError(t, repo.UpsertPage(ctx, "red", 2, makeWallpapers(3, 4, 5)))

	n, err := repo.CountByQuery(ctx, "red")
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	page, err := repo.Page(ctx, "red", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, ids(page))
}

func TestUpsertPage_DuplicateInPage(t *testing.T) {
	ctx := context.Background()
	repo := NewWallpaperRepository(setupTestDB(t), 200)

	require.NoError(t, repo.UpsertPage(ctx, "blue", 0, makeWallpapers(7, 8, 7)))
	page, err := repo.Page(ctx, "blue", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{7, 8, 7}, ids(page))
}

func TestSetFavoriteAndFavorites(t *testing.T) {
	ctx := context.Background()
	repo := NewWallpaperRepository(setupTestDB(t), 200)
	require.NoError(t, repo.UpsertPage(ctx, CuratedQuery, 0, makeWallpapers(1, 2, 3)))

	require.NoError(t, repo.SetFavorite(ctx, 3, true))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, repo.SetFavorite(ctx, 1, true))

	favs, err := repo.Favorites(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1}, ids(favs))

	require.NoError(t, repo.SetFavorite(ctx, 3, false))
	favs, err = repo.Favorites(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, ids(favs))

	assert.ErrorIs(t, repo.SetFavorite(ctx, 404, true), ErrNotFound)
}

func TestFavorites_OrderSurvivesRefetch(t *testing.T) {
	ctx := context.Background()
	repo := NewWallpaperRepository(setupTestDB(t), 200)
	require.NoError(t, repo.UpsertPage(ctx, CuratedQuery, 0, makeWallpapers(1, 2, 3)))

	require.NoError(t, repo.SetFavorite(ctx, 3, true))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, repo.SetFavorite(ctx, 1, true))

	// Browsing fetches wallpaper 3 again, and a repeated favorite is a no-op
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, repo.UpsertPage(ctx, "red", 0, makeWallpapers(3)))
	require.NoError(t, repo.Save(ctx, &makeWallpapers(3)[0]))
	require.NoError(t, repo.SetFavorite(ctx, 3, true))

	favs, err := repo.Favorites(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1}, ids(favs))
	require.NotNil(t, favs[0].FavoritedAt)

	// Unfavoriting and favoriting again moves it to the end
	require.NoError(t, repo.SetFavorite(ctx, 3, false))
	got, err := repo.Get(ctx, 3)
	require.NoError(t, err)
	assert.Nil(t, got.FavoritedAt)
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, repo.SetFavorite(ctx, 3, true))
	favs, err = repo.Favorites(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, ids(favs))
}

func TestSettingsRepository(t *testing.T) {
	settings := NewSettingsRepository(setupTestDB(t))

	_, ok := settings.Get("LAST_CATEGORY_NAME")
	assert.False(t, ok)

	settings.Set("LAST_CATEGORY_NAME", "Cars")
	settings.Set("LAST_CATEGORY_NAME", "Animals")
	v, ok := settings.Get("LAST_CATEGORY_NAME")
	require.True(t, ok)
	assert.Equal(t, "Animals", v)
}

func TestSettingsRepository_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallpaper_database.db")
	db, err := Open(Options{FilePath: path})
	require.NoError(t, err)
	NewSettingsRepository(db).Set("LAST_CATEGORY_NAME", "Space")
	require.NoError(t, db.Close())

	db, err = Open(Options{FilePath: path})
	require.NoError(t, err)
	defer db.Close()
	v, ok := NewSettingsRepository(db).Get("LAST_CATEGORY_NAME")
	require.True(t, ok)
	assert.Equal(t, "Space", v)
}

func TestGetSaveUpdate(t *testing.T) {
	ctx := context.Background()
	repo := NewWallpaperRepository(setupTestDB(t), 200)

	_, err := repo.Get(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	w := makeWallpapers(1)[0]
	require.NoError(t, repo.Save(ctx, &w))

	got, err := repo.Get(ctx, 1)
	require.NoError(t, err)
	assert.False(t, got.IsFavorite)
	assert.Equal(t, w.Src.Portrait, got.Src.Portrait)

	got.IsFavorite = true
	got.AvgColor = "#FFFFFF"
	require.NoError(t, repo.Update(ctx, got))

	got, err = repo.Get(ctx, 1)
	require.NoError(t, err)
	assert.True(t, got.IsFavorite)
	assert.Equal(t, "#FFFFFF", got.AvgColor)

	// Save of a remote copy keeps the local favorite
	require.NoError(t, repo.Save(ctx, &w))
	got, _ = repo.Get(ctx, 1)
	assert.True(t, got.IsFavorite)

	missing := makeWallpapers(99)[0]
	assert.ErrorIs(t, repo.Update(ctx, &missing), ErrNotFound)
}

func TestWorkRequestRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewWorkRequestRepository(setupTestDB(t))
	now := time.Now().Truncate(time.Second)

	reqs := []WorkRequest{
		{ID: "b", Name: "2_job", Tag: "auto", Kind: "k", RunAt: now.Add(2 * time.Minute), Input: map[string]string{"url": "b"}},
		{ID: "a", Name: "1_job", Tag: "auto", Kind: "k", RunAt: now.Add(time.Minute), Input: map[string]string{"url": "a"}},
		{ID: "c", Name: "other", Tag: "misc", Kind: "k", RunAt: now},
	}
	for i := range reqs {
		require.NoError(t, repo.Save(ctx, &reqs[i]))
	}

	pending, err := repo.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, "c", pending[0].ID)
	assert.Equal(t, "a", pending[1].ID)
	assert.Equal(t, "a", pending[1].Input["url"])

	tagged, err := repo.ByTag(ctx, "auto")
	require.NoError(t, err)
	assert.Len(t, tagged, 2)

	// Re-saving updates in place
	reqs[0].Attempts = 2
	require.NoError(t, repo.Save(ctx, &reqs[0]))
	tagged, _ = repo.ByTag(ctx, "auto")
	assert.Equal(t, 2, tagged[1].Attempts)

	n, err := repo.DeleteByTag(ctx, "auto")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	require.NoError(t, repo.DeleteByName(ctx, "other"))
	pending, _ = repo.Pending(ctx)
	assert.Empty(t, pending)

	require.NoError(t, repo.Save(ctx, &reqs[2]))
	require.NoError(t, repo.Delete(ctx, "c"))
	pending, _ = repo.Pending(ctx)
	assert.Empty(t, pending)
}
