//go:build !linux && !darwin && !windows

package setter

import (
	"errors"
	"runtime"
)

type unsupportedOS struct{}

// NewOS returns the adapter for the running platform.
func NewOS() OS {
	return unsupportedOS{}
}

func (unsupportedOS) SetHome(string) error {
	return errors.New("setting wallpapers is not supported on " + runtime.GOOS)
}

func (unsupportedOS) SetLock(string) error { return ErrLockScreenUnsupported }

func (unsupportedOS) SupportsLock() bool { return false }

func (unsupportedOS) DesktopDimension() (int, int, error) {
	return 0, 0, errors.New("desktop dimensions unavailable on " + runtime.GOOS)
}
