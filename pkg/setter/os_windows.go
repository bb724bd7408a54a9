//go:build windows

package setter

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32               = windows.NewLazySystemDLL("user32.dll")
	systemParametersInfo = user32.NewProc("SystemParametersInfoW")
	getSystemMetrics     = user32.NewProc("GetSystemMetrics")
)

// Windows API constants
const (
	spiSetDeskWallpaper = 0x0014
	spifUpdateIniFile   = 0x01
	spifSendChange      = 0x02
	smCXScreen          = 0
	smCYScreen          = 1
)

// windowsOS sets the desktop wallpaper through SystemParametersInfoW. The lock
// screen is managed by the shell and cannot be set from a desktop process.
type windowsOS struct{}

// NewOS returns the adapter for the running platform.
func NewOS() OS {
	return &windowsOS{}
}

// SetHome sets the desktop wallpaper.
func (w *windowsOS) SetHome(imagePath string) error {
	imagePathUTF16, err := windows.UTF16PtrFromString(imagePath)
	if err != nil {
		return err
	}

	ret, _, err := systemParametersInfo.Call(
		uintptr(spiSetDeskWallpaper),
		uintptr(0),
		uintptr(unsafe.Pointer(imagePathUTF16)),
		uintptr(spifUpdateIniFile|spifSendChange),
	)
	if ret == 0 {
		return err
	}
	return nil
}

// SetLock always fails on Windows.
func (w *windowsOS) SetLock(string) error {
	return ErrLockScreenUnsupported
}

// SupportsLock is false on Windows.
func (w *windowsOS) SupportsLock() bool {
	return false
}

// DesktopDimension returns the primary monitor size in pixels.
func (w *windowsOS) DesktopDimension() (int, int, error) {
	width, _, err := getSystemMetrics.Call(uintptr(smCXScreen))
	if err != windows.NOERROR {
		return 0, 0, err
	}
	height, _, err := getSystemMetrics.Call(uintptr(smCYScreen))
	if err != windows.NOERROR {
		return 0, 0, err
	}
	return int(width), int(height), nil
}
