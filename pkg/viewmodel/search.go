package viewmodel

import (
	"context"
	"math/rand"
	"strings"

	"github.com/dixieflatline76/PexWall/pkg/repository"
	"github.com/dixieflatline76/PexWall/pkg/store"
	"github.com/dixieflatline76/PexWall/util"
)

// suggestions are the quick search chips.
var suggestions = []string{
	"Nature", "Food", "Photography", "Pretty", "Red", "Blue", "Orange", "Black",
	"Gray", "Christmas", "Animals", "Abstract", "White", "Sea", "Landscape", "Art",
	"Creative", "Yellow", "Purple", "Cars", "Poland", "House", "Flowers", "Red",
}

// SearchViewModel holds the search screen state.
type SearchViewModel struct {
	repo Repository

	Query *State[string]

	newQueryInProgress              *util.SafeFlag
	pendingScrollToTopAfterNewQuery *util.SafeFlag
}

// NewSearchViewModel creates a SearchViewModel with no query.
func NewSearchViewModel(repo Repository) *SearchViewModel {
	return &SearchViewModel{
		repo:                            repo,
		Query:                           NewState(""),
		newQueryInProgress:              util.NewSafeFlag(false),
		pendingScrollToTopAfterNewQuery: util.NewSafeFlag(false),
	}
}

// OnSearchQuerySubmit starts a new search.
func (vm *SearchViewModel) OnSearchQuerySubmit(query string) {
	vm.newQueryInProgress.Set(true)
	vm.pendingScrollToTopAfterNewQuery.Set(true)
	vm.Query.Set(query)
}

// HasCurrentQuery reports whether a non-blank query was submitted.
func (vm *SearchViewModel) HasCurrentQuery() bool {
	return strings.TrimSpace(vm.Query.Value()) != ""
}

// NewQueryInProgress is true from submit until the first page of the new query loads.
func (vm *SearchViewModel) NewQueryInProgress() bool {
	return vm.newQueryInProgress.Value()
}

// PendingScrollToTopAfterNewQuery is true until the view acknowledges the scroll.
func (vm *SearchViewModel) PendingScrollToTopAfterNewQuery() bool {
	return vm.pendingScrollToTopAfterNewQuery.Value()
}

// AcknowledgeScrollToTop clears the pending scroll flag.
func (vm *SearchViewModel) AcknowledgeScrollToTop() {
	vm.pendingScrollToTopAfterNewQuery.Set(false)
}

// Results loads a page for the current query.
func (vm *SearchViewModel) Results(ctx context.Context, page int) (*repository.Page, error) {
	if !vm.HasCurrentQuery() {
		return nil, repository.ErrEmptyQuery
	}
	res, err := vm.repo.Search(ctx, vm.Query.Value(), page)
	if err != nil {
		return nil, err
	}
	if page <= 1 {
		vm.newQueryInProgress.Set(false)
	}
	return res, nil
}

// Refresh reloads the first page of the current query.
func (vm *SearchViewModel) Refresh(ctx context.Context) (*repository.Page, error) {
	if !vm.HasCurrentQuery() {
		return nil, repository.ErrEmptyQuery
	}
	return vm.repo.Refresh(ctx, vm.Query.Value())
}

// Suggestions returns the suggestion chips in random order.
func (vm *SearchViewModel) Suggestions() []string {
	out := make([]string, len(suggestions))
	copy(out, suggestions)
	rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// OnFavoriteClick flips the favorite flag of w and persists it.
func (vm *SearchViewModel) OnFavoriteClick(ctx context.Context, w *store.Wallpaper) error {
	return toggleFavorite(ctx, vm.repo, w)
}
