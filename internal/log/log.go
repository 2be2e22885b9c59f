// Package log provides one named, leveled logger per engine package,
// backed by github.com/op/go-logging.
package log

import (
	"os"

	"github.com/op/go-logging"
)

var backendStarted bool

func ensureBackend() {
	if backendStarted {
		return
	}
	backend := logging.NewLogBackend(os.Stderr, "", 0)
	formatter := logging.MustStringFormatter(
		`%{time:15:04:05.000} %{level:.4s} %{module}: %{message}`,
	)
	backendFormatter := logging.NewBackendFormatter(backend, formatter)
	logging.SetBackend(backendFormatter)
	backendStarted = true
}

// Get returns the named logger for module, creating the shared backend
// on first use.
func Get(module string) *logging.Logger {
	ensureBackend()
	return logging.MustGetLogger(module)
}
