//go:build windows

package main

import (
	"errors"
	"fmt"

	"github.com/dixieflatline76/PexWall/config"
	"golang.org/x/sys/windows"
)

var mutex windows.Handle

// acquireLock creates the named single-instance mutex. It reports false when
// another process already owns it.
func acquireLock() (bool, error) {
	name, err := windows.UTF16PtrFromString(config.AppName + "_SingleInstanceMutex")
	if err != nil {
		return false, err
	}
	h, err := windows.CreateMutex(nil, true, name)
	if err != nil {
		if errors.Is(err, windows.ERROR_ALREADY_EXISTS) {
			if h != 0 {
				windows.CloseHandle(h)
			}
			return false, nil
		}
		return false, fmt.Errorf("failed to create mutex: %w", err)
	}
	mutex = h
	return true, nil
}

func releaseLock() {
	if mutex == 0 {
		return
	}
	windows.ReleaseMutex(mutex)
	windows.CloseHandle(mutex)
	mutex = 0
}
