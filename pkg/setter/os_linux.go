//go:build linux

package setter

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// linuxOS sets wallpapers on GNOME, KDE, XFCE and Sway.
type linuxOS struct {
	run    func(name string, args ...string) error
	start  func(name string, args ...string) (stop func(), err error)
	output func(name string, args ...string) ([]byte, error)
	getenv func(string) string

	mu     sync.Mutex
	swaybg func() // stops the swaybg instance holding the current image
}

// NewOS returns the adapter for the running platform.
func NewOS() OS {
	return &linuxOS{
		run: func(name string, args ...string) error {
			return exec.Command(name, args...).Run()
		},
		start: func(name string, args ...string) (func(), error) {
			cmd := exec.Command(name, args...)
			if err := cmd.Start(); err != nil {
				return nil, err
			}
			return func() {
				_ = cmd.Process.Kill()
				_ = cmd.Wait()
			}, nil
		},
		output: func(name string, args ...string) ([]byte, error) {
			return exec.Command(name, args...).Output()
		},
		getenv: os.Getenv,
	}
}

func (l *linuxOS) desktop() string {
	desktopEnv := l.getenv("XDG_CURRENT_DESKTOP")
	if desktopEnv == "" {
		desktopEnv = l.getenv("DESKTOP_SESSION")
	}
	return strings.ToLower(desktopEnv)
}

func isGNOME(desktopEnv string) bool {
	for _, name := range []string{"gnome", "unity", "cinnamon", "mutter"} {
		if strings.Contains(desktopEnv, name) {
			return true
		}
	}
	return false
}

// SetHome sets the desktop background.
func (l *linuxOS) SetHome(imagePath string) error {
	desktopEnv := l.desktop()
	wayland := l.getenv("WAYLAND_DISPLAY") != ""

	switch {
	case isGNOME(desktopEnv):
		return l.setGNOME("org.gnome.desktop.background", imagePath, true)
	case strings.Contains(desktopEnv, "kde"):
		return l.setKDE(imagePath)
	case strings.Contains(desktopEnv, "sway"):
		return l.setSway(imagePath)
	case strings.Contains(desktopEnv, "xfce") && !wayland:
		return l.run("xfconf-query",
			"--channel", "xfce4-desktop",
			"--property", "/backdrop/screen0/monitor0/workspace0/last-image",
			"--set", imagePath)
	default:
		return fmt.Errorf("unsupported desktop environment: %q", desktopEnv)
	}
}

// SupportsLock is true on GNOME-family desktops and KDE.
func (l *linuxOS) SupportsLock() bool {
	desktopEnv := l.desktop()
	return isGNOME(desktopEnv) || strings.Contains(desktopEnv, "kde")
}

// SetLock sets the lock screen background.
func (l *linuxOS) SetLock(imagePath string) error {
	desktopEnv := l.desktop()
	switch {
	case isGNOME(desktopEnv):
		return l.setGNOME("org.gnome.desktop.screensaver", imagePath, false)
	case strings.Contains(desktopEnv, "kde"):
		return l.run("kwriteconfig5",
			"--file", "kscreenlockerrc",
			"--group", "Greeter", "--group", "Wallpaper", "--group", "org.kde.image", "--group", "General",
			"--key", "Image", "file://"+imagePath)
	default:
		return ErrLockScreenUnsupported
	}
}

func (l *linuxOS) setGNOME(schema, imagePath string, dark bool) error {
	uri := "file://" + imagePath
	if err := l.run("gsettings", "set", schema, "picture-uri", uri); err != nil {
		return err
	}
	if dark {
		// Only GNOME 42+ has picture-uri-dark; older shells reject the key
		_ = l.run("gsettings", "set", schema, "picture-uri-dark", uri)
	}
	return nil
}

// setSway replaces the running swaybg. The new instance starts before the old
// one is stopped so the output never goes blank.
func (l *linuxOS) setSway(imagePath string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	stop, err := l.start("swaybg", "-i", imagePath, "-m", "fill")
	if err != nil {
		return err
	}
	if l.swaybg != nil {
		l.swaybg()
	}
	l.swaybg = stop
	return nil
}

func (l *linuxOS) setKDE(imagePath string) error {
	script := fmt.Sprintf(`var allDesktops = desktops();
for (i=0;i<allDesktops.length;i++) {
    d = allDesktops[i];
    d.wallpaperPlugin = "org.kde.image";
    d.currentConfigGroup = Array("Wallpaper", "org.kde.image", "General");
    d.writeConfig("Image", "file://%s");
}`, imagePath)
	return l.run("dbus-send", "--session", "--type=method_call",
		"--dest=org.kde.plasmashell", "/PlasmaShell",
		"org.kde.PlasmaShell.evaluateScript", "string:"+script)
}

// DesktopDimension returns the X root window size.
func (l *linuxOS) DesktopDimension() (int, int, error) {
	out, err := l.output("xdpyinfo")
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get screen resolution: %w", err)
	}
	return parseXdpyinfo(string(out))
}
