package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitSuppressedWhileLocked(t *testing.T) {
	c := newLockController(&fakeDisplay{}, &fakePinner{})
	calls := 0
	e := &exitInterceptor{ctrl: c, fallback: func() { calls++ }}

	c.StartLock()

	assert.False(t, e.onExitRequested())
	assert.Equal(t, 0, calls)
}

func TestExitForwardedWhenUnlocked(t *testing.T) {
	c := newLockController(&fakeDisplay{}, &fakePinner{})
	calls := 0
	e := &exitInterceptor{ctrl: c, fallback: func() { calls++ }}

	c.StartLock()
	c.StopLock()

	assert.True(t, e.onExitRequested())
	assert.Equal(t, 1, calls)
}

func TestExitSuppressedEvenIfPinningRejected(t *testing.T) {
	c := newLockController(&fakeDisplay{}, &fakePinner{err: &PinError{Op: "inhibit", Err: ErrPinRejected}})
	calls := 0
	e := &exitInterceptor{ctrl: c, fallback: func() { calls++ }}

	c.StartLock()

	assert.False(t, e.onExitRequested())
	assert.Equal(t, 0, calls)
}
