package main

import (
	"strings"

	log "github.com/sirupsen/logrus"
)

// DisplayFlags is a set of window/display attributes requested from the
// desktop while the kiosk is locked.
type DisplayFlags uint8

const (
	FlagKeepScreenOn DisplayFlags = 1 << iota
	FlagShowWhenLocked
	FlagTurnScreenOn
)

var flagNames = []struct {
	flag DisplayFlags
	name string
}{
	{FlagKeepScreenOn, "keep-screen-on"},
	{FlagShowWhenLocked, "show-when-locked"},
	{FlagTurnScreenOn, "turn-screen-on"},
}

func (f DisplayFlags) String() string {
	if f == 0 {
		return "none"
	}
	var parts []string
	for _, fn := range flagNames {
		if f&fn.flag != 0 {
			parts = append(parts, fn.name)
		}
	}
	return strings.Join(parts, "|")
}

// DisplayFlagSetter applies display flags on behalf of the controller.
type DisplayFlagSetter interface {
	AddFlags(flags DisplayFlags) error
	ClearFlags(flags DisplayFlags) error
}

// TaskPinner enters and leaves the OS kiosk (pinned task) mode. Either call
// may be refused by the OS.
type TaskPinner interface {
	StartLockTask() error
	StopLockTask() error
}

// LockController tracks lock intent. The flag reflects what was last
// requested, not what the OS confirmed: collaborator failures are logged and
// never change the flag or the reported result.
//
// LockController is not safe for concurrent use; callers serialize access.
type LockController struct {
	display DisplayFlagSetter
	pinner  TaskPinner
	locked  bool
}

func newLockController(display DisplayFlagSetter, pinner TaskPinner) *LockController {
	return &LockController{display: display, pinner: pinner}
}

// StartLock records lock intent, keeps the display awake and visible, then
// asks the OS to pin the session. It always reports true.
func (c *LockController) StartLock() bool {
	c.locked = true

	if err := c.display.AddFlags(FlagKeepScreenOn | FlagShowWhenLocked | FlagTurnScreenOn); err != nil {
		logCollaboratorError("add display flags", err)
	}
	if err := c.pinner.StartLockTask(); err != nil {
		logCollaboratorError("start lock task", err)
	}

	log.Info("kiosk lock started")
	return true
}

// StopLock clears lock intent, lets the display sleep again and asks the OS
// to unpin. It always reports true.
func (c *LockController) StopLock() bool {
	c.locked = false

	if err := c.display.ClearFlags(FlagKeepScreenOn); err != nil {
		logCollaboratorError("clear display flags", err)
	}
	if err := c.pinner.StopLockTask(); err != nil {
		logCollaboratorError("stop lock task", err)
	}

	log.Info("kiosk lock stopped")
	return true
}

func (c *LockController) IsLocked() bool {
	return c.locked
}

func logCollaboratorError(op string, err error) {
	entry := log.WithField("op", op).WithError(err)
	entry.Warn("OS request failed, keeping lock intent")
	if log.IsLevelEnabled(log.DebugLevel) {
		log.WithField("op", op).Debugf("%+v", err)
	}
}
