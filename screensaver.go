package main

import (
	stderrors "errors"

	"github.com/godbus/dbus/v5"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	screenSaverBus   = "org.freedesktop.ScreenSaver"
	screenSaverPath  = "/org/freedesktop/ScreenSaver"
	screenSaverIface = "org.freedesktop.ScreenSaver"
)

// screenSaver sets display flags through the freedesktop ScreenSaver
// interface on the session bus.
type screenSaver struct {
	conn   *dbus.Conn
	obj    dbus.BusObject
	app    string
	reason string

	flags  DisplayFlags
	cookie uint32 // valid while FlagKeepScreenOn is set
}

func newScreenSaver(app, reason string) (*screenSaver, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, errors.Wrap(err, "connect to session bus")
	}
	return &screenSaver{
		conn:   conn,
		obj:    conn.Object(screenSaverBus, screenSaverPath),
		app:    app,
		reason: reason,
	}, nil
}

func (s *screenSaver) close() {
	if s.flags&FlagKeepScreenOn != 0 {
		if err := s.ClearFlags(FlagKeepScreenOn); err != nil {
			log.WithError(err).Warn("release screensaver inhibit on close")
		}
	}
	if s.conn != nil {
		s.conn.Close()
	}
}

func (s *screenSaver) call(method string, args ...interface{}) *dbus.Call {
	return s.obj.Call(screenSaverIface+"."+method, 0, args...)
}

// applied reports the flags currently in effect.
func (s *screenSaver) applied() DisplayFlags {
	return s.flags
}

// AddFlags attempts every requested flag independently; failures are joined.
func (s *screenSaver) AddFlags(flags DisplayFlags) error {
	var errs []error
	if flags&FlagKeepScreenOn != 0 && s.flags&FlagKeepScreenOn == 0 {
		var cookie uint32
		if err := s.call("Inhibit", s.app, s.reason).Store(&cookie); err != nil {
			errs = append(errs, errors.Wrap(err, "inhibit screensaver"))
		} else {
			s.cookie = cookie
			s.flags |= FlagKeepScreenOn
		}
	}
	if flags&FlagShowWhenLocked != 0 {
		var active bool
		if err := s.call("SetActive", false).Store(&active); err != nil {
			errs = append(errs, errors.Wrap(err, "deactivate screensaver"))
		} else {
			s.flags |= FlagShowWhenLocked
		}
	}
	if flags&FlagTurnScreenOn != 0 {
		if err := s.call("SimulateUserActivity").Err; err != nil {
			errs = append(errs, errors.Wrap(err, "wake display"))
		} else {
			s.flags |= FlagTurnScreenOn
		}
	}
	return stderrors.Join(errs...)
}

func (s *screenSaver) ClearFlags(flags DisplayFlags) error {
	if flags&FlagKeepScreenOn != 0 && s.flags&FlagKeepScreenOn != 0 {
		if err := s.call("UnInhibit", s.cookie).Err; err != nil {
			return errors.Wrapf(err, "uninhibit screensaver (cookie %d)", s.cookie)
		}
		s.cookie = 0
	}
	s.flags &^= flags
	return nil
}
