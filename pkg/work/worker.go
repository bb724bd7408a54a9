package work

import (
	"context"
	"errors"
	"strconv"

	"github.com/dixieflatline76/PexWall/pkg/setter"
	"github.com/dixieflatline76/PexWall/util/log"
)

// WallpaperSetter applies an image URL to the desktop.
type WallpaperSetter interface {
	SetFromURL(ctx context.Context, imageURL string, home, lock bool) (*setter.Result, error)
}

// AppliedFunc observes a wallpaper applied by background work. wallpaperID is
// zero when the input carries no id.
type AppliedFunc func(wallpaperID int, res *setter.Result)

// AutoChangeWallpaperWorker applies the wallpaper named in its input to the home screen.
type AutoChangeWallpaperWorker struct {
	setter    WallpaperSetter
	onApplied AppliedFunc
}

// NewAutoChangeWallpaperWorker creates the worker. onApplied may be nil.
func NewAutoChangeWallpaperWorker(s WallpaperSetter, onApplied AppliedFunc) *AutoChangeWallpaperWorker {
	return &AutoChangeWallpaperWorker{setter: s, onApplied: onApplied}
}

// DoWork sets the home screen wallpaper.
func (w *AutoChangeWallpaperWorker) DoWork(ctx context.Context, input map[string]string) error {
	url := input[InputWallpaperURLFull]
	if url == "" {
		return Permanent(errors.New("auto change work has no wallpaper URL"))
	}
	log.Debugf("AutoChangeWallpaperWorker applying %s", url)
	res, err := w.setter.SetFromURL(ctx, url, true, false)
	if errors.Is(err, setter.ErrNoTarget) || errors.Is(err, setter.ErrLockScreenUnsupported) {
		return Permanent(err)
	}
	if err != nil {
		return err
	}
	if w.onApplied != nil && res != nil {
		id, _ := strconv.Atoi(input[InputWallpaperID])
		w.onApplied(id, res)
	}
	return nil
}
