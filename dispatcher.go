package main

import (
	log "github.com/sirupsen/logrus"
)

// MethodResult is the outcome of a method call. NotImplemented is a signal,
// not an error: the receiver does not know the method.
type MethodResult struct {
	Value          bool
	NotImplemented bool
}

func notImplemented() MethodResult {
	return MethodResult{NotImplemented: true}
}

// MethodHandler answers method calls arriving on one channel.
type MethodHandler interface {
	HandleMethodCall(method string) MethodResult
}

// dispatcher routes method calls by channel name.
type dispatcher struct {
	handlers map[string]MethodHandler
}

func newDispatcher() *dispatcher {
	return &dispatcher{handlers: make(map[string]MethodHandler)}
}

func (d *dispatcher) register(channel string, h MethodHandler) {
	d.handlers[channel] = h
}

func (d *dispatcher) dispatch(channel, method string) MethodResult {
	h, ok := d.handlers[channel]
	if !ok {
		log.WithField("channel", channel).Debug("no handler for channel")
		return notImplemented()
	}
	return h.HandleMethodCall(method)
}

// screenLockHandler exposes a LockController over a channel.
type screenLockHandler struct {
	ctrl *LockController
}

func (h screenLockHandler) HandleMethodCall(method string) MethodResult {
	switch method {
	case MethodStartLockTask:
		return MethodResult{Value: h.ctrl.StartLock()}
	case MethodStopLockTask:
		return MethodResult{Value: h.ctrl.StopLock()}
	case MethodIsLocked:
		return MethodResult{Value: h.ctrl.IsLocked()}
	default:
		log.WithField("method", method).Debug("method not implemented")
		return notImplemented()
	}
}
