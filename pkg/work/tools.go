package work

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dixieflatline76/PexWall/pkg/store"
	"github.com/dixieflatline76/PexWall/util/log"
)

// Auto wallpaper work identifiers and input keys
const (
	WorkAutoWallpaper       = "work_auto_wallpaper"
	WorkAutoWallpaperName   = "work_auto_wallpaper_name"
	KindAutoChangeWallpaper = "auto_change_wallpaper"

	InputWallpaperURLFull = "WallpaperUrlFull"
	InputWallpaperURLTiny = "WallpaperUrlTiny"
	InputWallpaperID      = "WallpaperId"
)

var (
	// ErrNoFavorites is returned when there is nothing to rotate through.
	ErrNoFavorites = errors.New("no favorite wallpapers to rotate")
	// ErrInvalidInterval is returned for an unknown unit or a value below one.
	ErrInvalidInterval = errors.New("invalid auto change interval")
)

// TimeUnit is the unit of the auto change interval.
type TimeUnit string

// Supported units
const (
	Minutes TimeUnit = "minutes"
	Hours   TimeUnit = "hours"
	Days    TimeUnit = "days"
)

// ParseTimeUnit accepts the unit names and their common abbreviations.
func ParseTimeUnit(s string) (TimeUnit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "m", "min", "mins", "minute", "minutes":
		return Minutes, nil
	case "h", "hour", "hours":
		return Hours, nil
	case "d", "day", "days":
		return Days, nil
	default:
		return "", fmt.Errorf("%w: unknown time unit %q", ErrInvalidInterval, s)
	}
}

// Interval converts a unit and value to a duration. The value is truncated
// to a whole number.
func Interval(unit TimeUnit, value float64) (time.Duration, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, ErrInvalidInterval
	}
	n := int64(value)
	if n < 1 {
		return 0, fmt.Errorf("%w: value must be at least 1, got %v", ErrInvalidInterval, value)
	}
	switch unit {
	case Minutes:
		return time.Duration(n) * time.Minute, nil
	case Hours:
		return time.Duration(n) * time.Hour, nil
	case Days:
		return time.Duration(n) * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("%w: unknown time unit %q", ErrInvalidInterval, unit)
	}
}

// Tools schedules the auto change wallpaper works.
type Tools struct {
	manager         *Manager
	passes          int
	requiresNetwork bool
	now             func() time.Time
}

// NewTools creates Tools that schedule passes rounds over the favorites.
func NewTools(m *Manager, passes int) *Tools {
	if passes <= 0 {
		passes = 3
	}
	return &Tools{manager: m, passes: passes, requiresNetwork: true, now: time.Now}
}

// CancelWorks cancels every work carrying tag.
func (t *Tools) CancelWorks(ctx context.Context, tag string) int {
	n := t.manager.CancelByTag(ctx, tag)
	log.Printf("cancelWorks - %s (%d cancelled)", tag, n)
	return n
}

// Scheduled returns the pending auto change works in run order.
func (t *Tools) Scheduled() []Request {
	return t.manager.ByTag(WorkAutoWallpaper)
}

// SetupAutoChangeWallpaperWorks replaces the auto change schedule. Each favorite
// is applied once per pass, one interval apart: the k-th work runs k intervals
// from now.
func (t *Tools) SetupAutoChangeWallpaperWorks(ctx context.Context, favorites []store.Wallpaper, unit TimeUnit, value float64) ([]Request, error) {
	interval, err := Interval(unit, value)
	if err != nil {
		return nil, err
	}

	t.CancelWorks(ctx, WorkAutoWallpaper)

	if len(favorites) == 0 {
		return nil, ErrNoFavorites
	}

	start := t.now()
	scheduled := make([]Request, 0, t.passes*len(favorites))
	k := 0
	for pass := 1; pass <= t.passes; pass++ {
		for _, w := range favorites {
			k++
			req, err := t.manager.Enqueue(ctx, Request{
				Name:            fmt.Sprintf("%d_%s_%d", pass, WorkAutoWallpaperName, w.ID),
				Tag:             WorkAutoWallpaper,
				Kind:            KindAutoChangeWallpaper,
				Input:           autoChangeInput(w),
				RunAt:           start.Add(time.Duration(k) * interval),
				RequiresNetwork: t.requiresNetwork,
			}, ExistingWorkReplace)
			if err != nil {
				return scheduled, fmt.Errorf("scheduling wallpaper %d: %w", w.ID, err)
			}
			log.Debugf("Created work: wallpaperId = %d, delay = %s", w.ID, time.Duration(k)*interval)
			scheduled = append(scheduled, req)
		}
	}

	log.Printf("Scheduled %d auto change works every %s", len(scheduled), interval)
	return scheduled, nil
}

func autoChangeInput(w store.Wallpaper) map[string]string {
	url := w.Src.Portrait
	if url == "" {
		url = firstNonEmpty(w.Src.Large2x, w.Src.Original, w.Src.Large)
	}
	return map[string]string{
		InputWallpaperURLFull: url,
		InputWallpaperURLTiny: url,
		InputWallpaperID:      fmt.Sprint(w.ID),
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
