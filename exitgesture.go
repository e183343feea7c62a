package main

import (
	log "github.com/sirupsen/logrus"
)

// exitInterceptor swallows exit requests while the controller is locked.
type exitInterceptor struct {
	ctrl     *LockController
	fallback func()
}

// onExitRequested forwards to the fallback unless locked, and reports whether
// it did.
func (e *exitInterceptor) onExitRequested() bool {
	if e.ctrl.IsLocked() {
		log.Info("exit request suppressed while locked")
		return false
	}
	e.fallback()
	return true
}
