package setter

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dixieflatline76/PexWall/util/log"
	_ "golang.org/x/image/webp" // register webp with image.Decode
	"golang.org/x/sync/singleflight"
)

// User-facing messages
const (
	MsgHomeSet         = "Home screen wallpaper set"
	MsgLockSet         = "Lock screen wallpaper set"
	MsgHomeAndLockSet  = "Home and lock screen wallpaper set"
	MsgLockUnsupported = "Lock screen wallpaper not supported"
)

var (
	// ErrNoTarget is returned when neither home nor lock screen was requested.
	ErrNoTarget = errors.New("no wallpaper target selected")
	// ErrLockScreenUnsupported is returned when the platform cannot set a lock screen image.
	ErrLockScreenUnsupported = errors.New("lock screen wallpaper not supported")
	// ErrImageTooLarge is returned when a download exceeds Options.MaxDownloadSize.
	ErrImageTooLarge = errors.New("image too large")
)

// defaultMaxDownloadSize caps a single image download.
const defaultMaxDownloadSize = 50 << 20

// Target is the screen a wallpaper is applied to.
type Target int

// Targets
const (
	Home Target = iota + 1
	Lock
	Both
)

// TargetFrom maps the two screen switches to a Target.
func TargetFrom(home, lock bool) (Target, error) {
	switch {
	case home && lock:
		return Both, nil
	case home:
		return Home, nil
	case lock:
		return Lock, nil
	default:
		return 0, ErrNoTarget
	}
}

func (t Target) String() string {
	switch t {
	case Home:
		return "home"
	case Lock:
		return "lock"
	case Both:
		return "both"
	default:
		return "none"
	}
}

// OS applies images to the desktop.
type OS interface {
	SetHome(path string) error
	SetLock(path string) error
	SupportsLock() bool
	DesktopDimension() (int, int, error)
}

// Notifier receives transient user-facing messages.
type Notifier interface {
	Notify(msg string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(msg string)

// Notify calls f(msg).
func (f NotifierFunc) Notify(msg string) { f(msg) }

// Options configures a Setter.
type Options struct {
	ImageDir string
	SmartFit bool
	Notifier Notifier
	// MaxDownloadSize in bytes; 50 MiB when zero.
	MaxDownloadSize int64
}

// Result describes an applied wallpaper.
type Result struct {
	Path    string `json:"path"`
	Target  string `json:"target"`
	Message string `json:"message"`
}

// Setter downloads images and applies them through the OS adapter.
type Setter struct {
	os        OS
	client    *http.Client
	opts      Options
	processor *imageProcessor
	downloads singleflight.Group
}

// New creates a Setter. A nil hc uses a client with a 60 second timeout.
func New(osAdapter OS, hc *http.Client, opts Options) *Setter {
	if hc == nil {
		hc = &http.Client{Timeout: 60 * time.Second}
	}
	if opts.Notifier == nil {
		opts.Notifier = NotifierFunc(func(string) {})
	}
	if opts.MaxDownloadSize <= 0 {
		opts.MaxDownloadSize = defaultMaxDownloadSize
	}
	return &Setter{
		os:        osAdapter,
		client:    hc,
		opts:      opts,
		processor: newImageProcessor(osAdapter),
	}
}

// SupportsLock reports whether the platform can set a lock screen image.
func (s *Setter) SupportsLock() bool {
	return s.os.SupportsLock()
}

// SetFromURL downloads imageURL and applies it to the requested screens.
// When both screens are requested and the lock screen is unsupported, the home
// screen is still applied and ErrLockScreenUnsupported is returned with the result.
func (s *Setter) SetFromURL(ctx context.Context, imageURL string, home, lock bool) (*Result, error) {
	target, err := TargetFrom(home, lock)
	if err != nil {
		return nil, err
	}
	if target == Lock && !s.os.SupportsLock() {
		s.opts.Notifier.Notify(MsgLockUnsupported)
		return nil, ErrLockScreenUnsupported
	}

	path, err := s.prepare(ctx, imageURL)
	if err != nil {
		log.Printf("Failed to prepare wallpaper %s: %v", imageURL, err)
		s.opts.Notifier.Notify(err.Error())
		return nil, err
	}

	res := &Result{Path: path, Target: target.String()}
	switch target {
	case Home:
		if err := s.apply(s.os.SetHome, path); err != nil {
			return nil, err
		}
		res.Message = MsgHomeSet
	case Lock:
		if err := s.apply(s.os.SetLock, path); err != nil {
			return nil, err
		}
		res.Message = MsgLockSet
	case Both:
		if err := s.apply(s.os.SetHome, path); err != nil {
			return nil, err
		}
		if !s.os.SupportsLock() {
			res.Target = Home.String()
			res.Message = MsgLockUnsupported
			s.opts.Notifier.Notify(res.Message)
			return res, ErrLockScreenUnsupported
		}
		if err := s.apply(s.os.SetLock, path); err != nil {
			return nil, err
		}
		res.Message = MsgHomeAndLockSet
	}

	log.Printf("Wallpaper applied to %s: %s", res.Target, path)
	s.opts.Notifier.Notify(res.Message)
	return res, nil
}

func (s *Setter) apply(fn func(string) error, path string) error {
	if err := fn(path); err != nil {
		log.Printf("Failed to set wallpaper %s: %v", path, err)
		s.opts.Notifier.Notify(fmt.Sprintf("Failed to set wallpaper: %v", err))
		return fmt.Errorf("setting wallpaper: %w", err)
	}
	return nil
}

// prepare returns the path of a ready-to-apply file for imageURL. Concurrent
// calls for the same URL share one download. Only a successfully fitted image
// is stored under the _fit name; when fitting fails the plain image is stored
// and applied, and a later call retries the fit from that file.
func (s *Setter) prepare(ctx context.Context, imageURL string) (string, error) {
	sum := sha256.Sum256([]byte(imageURL))
	base := filepath.Join(s.opts.ImageDir, hex.EncodeToString(sum[:12]))
	plainPath := base + ".jpg"
	fitPath := base + "_fit.jpg"

	want := plainPath
	if s.opts.SmartFit {
		want = fitPath
	}
	if _, err := os.Stat(want); err == nil {
		log.Debugf("Using cached wallpaper %s", want)
		return want, nil
	}

	v, err, _ := s.downloads.Do(want, func() (interface{}, error) {
		data, err := os.ReadFile(plainPath)
		if err != nil {
			if data, err = s.download(ctx, imageURL); err != nil {
				return nil, err
			}
		}

		img, err := s.processor.Decode(ctx, data)
		if err != nil {
			return nil, err
		}

		if s.opts.SmartFit {
			fitted, err := s.processor.Fit(ctx, img)
			if err == nil {
				if err := writeJPEG(fitPath, fitted); err != nil {
					return nil, err
				}
				return fitPath, nil
			}
			log.Printf("Smart fit skipped for %s: %v", imageURL, err)
		}

		if _, err := os.Stat(plainPath); err == nil {
			return plainPath, nil
		}
		if err := writeJPEG(plainPath, img); err != nil {
			return nil, err
		}
		return plainPath, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (s *Setter) download(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("downloading image: status %d", resp.StatusCode)
	}

	limit := s.opts.MaxDownloadSize
	if resp.ContentLength > limit {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrImageTooLarge, resp.ContentLength, limit)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrImageTooLarge, limit)
	}
	return data, nil
}

func writeJPEG(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating image dir: %w", err)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
		return fmt.Errorf("encoding image: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing image: %w", err)
	}
	return os.Rename(tmp, path)
}
