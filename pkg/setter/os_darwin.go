//go:build darwin

package setter

import (
	"fmt"
	"os/exec"
)

// darwinOS sets the desktop picture through Finder. macOS has no public API
// for the lock screen image.
type darwinOS struct{}

// NewOS returns the adapter for the running platform.
func NewOS() OS {
	return &darwinOS{}
}

// SetHome sets the desktop picture.
func (m *darwinOS) SetHome(imagePath string) error {
	script := fmt.Sprintf(`
                tell application "Finder"
                        set desktop picture to POSIX file "%s"
                end tell
        `, imagePath)

	if err := exec.Command("osascript", "-e", script).Run(); err != nil {
		return fmt.Errorf("failed to set wallpaper: %w", err)
	}
	return nil
}

// SetLock always fails on macOS.
func (m *darwinOS) SetLock(string) error {
	return ErrLockScreenUnsupported
}

// SupportsLock is false on macOS.
func (m *darwinOS) SupportsLock() bool {
	return false
}

// DesktopDimension returns the main display size.
func (m *darwinOS) DesktopDimension() (int, int, error) {
	out, err := exec.Command("system_profiler", "SPDisplaysDataType", "-json").Output()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to run system_profiler: %w", err)
	}
	return parseSystemProfiler(out)
}
