// Package launcher opens files with the operating system's default
// application.
package launcher

import "github.com/skratchdot/open-golang/open"

// Launcher opens a file without waiting for the application to exit.
type Launcher interface {
	Open(path string) error
}

// System launches through the desktop environment (open, xdg-open or
// start, depending on the platform).
type System struct{}

var _ Launcher = System{}

func (System) Open(path string) error {
	return open.Start(path)
}

// Func adapts a function to the Launcher interface.
type Func func(path string) error

func (f Func) Open(path string) error { return f(path) }
