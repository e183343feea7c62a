package main

import (
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const (
	logindBus          = "org.freedesktop.login1"
	logindPath         = "/org/freedesktop/login1"
	logindManagerIface = "org.freedesktop.login1.Manager"
	logindSessionIface = "org.freedesktop.login1.Session"
	autoSessionPath    = "/org/freedesktop/login1/session/auto"
	propsIface         = "org.freedesktop.DBus.Properties"
)

// ErrPinRejected is the single failure kind of the task pinner.
var ErrPinRejected = errors.New("kiosk pin request rejected")

// PinError describes a rejected pin or unpin request.
type PinError struct {
	Op  string
	Err error
}

func (e *PinError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrPinRejected, e.Op, e.Err)
}

func (e *PinError) Unwrap() []error { return []error{ErrPinRejected, e.Err} }

// Cause lets pkg/errors reach the underlying D-Bus error.
func (e *PinError) Cause() error { return e.Err }

// logindPinner pins the session by holding a logind "block" inhibitor lock
// over idle, sleep and the hardware power keys.
type logindPinner struct {
	conn    *dbus.Conn
	manager dbus.BusObject
	session dbus.BusObject

	what, who, why string
	requireActive  bool

	fd int // -1 when not pinned
}

func newLogindPinner(cfg Config) (*logindPinner, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, errors.Wrap(err, "connect to system bus")
	}
	p := newLogindPinnerWith(
		conn.Object(logindBus, logindPath),
		conn.Object(logindBus, autoSessionPath),
		cfg,
	)
	p.conn = conn
	return p, nil
}

func newLogindPinnerWith(manager, session dbus.BusObject, cfg Config) *logindPinner {
	return &logindPinner{
		manager:       manager,
		session:       session,
		what:          strings.Join(cfg.InhibitWhat, ":"),
		who:           cfg.AppName,
		why:           cfg.Reason,
		requireActive: cfg.RequireActiveSession,
		fd:            -1,
	}
}

func (p *logindPinner) close() {
	p.StopLockTask()
	if p.conn != nil {
		p.conn.Close()
	}
}

func (p *logindPinner) pinned() bool {
	return p.fd >= 0
}

func (p *logindPinner) sessionActive() (bool, error) {
	var v dbus.Variant
	if err := p.session.Call(propsIface+".Get", 0, logindSessionIface, "Active").Store(&v); err != nil {
		return false, err
	}
	active, ok := v.Value().(bool)
	if !ok {
		return false, errors.Errorf("property Active is %T, not bool", v.Value())
	}
	return active, nil
}

func (p *logindPinner) StartLockTask() error {
	if p.pinned() {
		return nil
	}
	if p.requireActive {
		active, err := p.sessionActive()
		if err != nil {
			return &PinError{Op: "query session", Err: errors.WithStack(err)}
		}
		if !active {
			return &PinError{Op: "query session", Err: errors.New("session is not in the foreground")}
		}
	}

	var fd dbus.UnixFD
	err := p.manager.Call(logindManagerIface+".Inhibit", 0, p.what, p.who, p.why, "block").Store(&fd)
	if err != nil {
		return &PinError{Op: "inhibit", Err: errors.WithStack(err)}
	}
	p.fd = int(fd)
	return nil
}

func (p *logindPinner) StopLockTask() error {
	if !p.pinned() {
		return nil
	}
	fd := p.fd
	p.fd = -1
	if err := unix.Close(fd); err != nil {
		return &PinError{Op: "release inhibitor", Err: errors.WithStack(err)}
	}
	return nil
}
