package main

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// connTimeout bounds how long one client may hold a connection.
const connTimeout = 5 * time.Second

func defaultSocketPath() string {
	return filepath.Join(runtimeDir(), "kioskctl.sock")
}

type daemon struct {
	ctrl    *LockController
	disp    *dispatcher
	exit    *exitInterceptor
	channel string // used when a request names no channel
	mu      sync.Mutex

	done     chan struct{}
	stopOnce sync.Once
	conns    sync.WaitGroup

	liveMu  sync.Mutex
	live    map[net.Conn]struct{}
	closing bool
}

func newDaemon(ctrl *LockController, channel string) *daemon {
	d := &daemon{
		ctrl:    ctrl,
		disp:    newDispatcher(),
		channel: channel,
		done:    make(chan struct{}),
		live:    make(map[net.Conn]struct{}),
	}
	d.disp.register(channel, screenLockHandler{ctrl: ctrl})
	d.exit = &exitInterceptor{ctrl: ctrl, fallback: d.shutdown}
	return d
}

// shutdown is the default exit handler: it stops the accept loop.
func (d *daemon) shutdown() {
	d.stopOnce.Do(func() {
		log.Info("shutting down")
		close(d.done)
	})
}

func (d *daemon) exitGesture() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.exit.onExitRequested()
}

func (d *daemon) handleRequest(req IPCRequest) IPCResponse {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	logger := log.WithFields(log.Fields{"id": req.ID, "command": req.Command})

	switch req.Command {
	case CommandCall:
		channel := req.Channel
		if channel == "" {
			channel = d.channel
		}
		d.mu.Lock()
		res := d.disp.dispatch(channel, req.Method)
		d.mu.Unlock()

		logger.WithFields(log.Fields{"channel": channel, "method": req.Method}).Debug("handled method call")
		if res.NotImplemented {
			return IPCResponse{ID: req.ID, NotImplemented: true}
		}
		return IPCResponse{ID: req.ID, Result: boolResult(res.Value)}

	case CommandBack:
		forwarded := d.exitGesture()
		logger.WithField("forwarded", forwarded).Debug("handled exit gesture")
		return IPCResponse{ID: req.ID, Result: boolResult(forwarded)}

	default:
		logger.Warn("unknown command")
		return IPCResponse{ID: req.ID, Error: fmt.Sprintf("unknown command: %q", req.Command)}
	}
}

// track registers a live connection; it reports false once shutdown has
// started, in which case conn is already closed.
func (d *daemon) track(conn net.Conn) bool {
	d.liveMu.Lock()
	defer d.liveMu.Unlock()
	if d.closing {
		conn.Close()
		return false
	}
	d.live[conn] = struct{}{}
	return true
}

func (d *daemon) untrack(conn net.Conn) {
	d.liveMu.Lock()
	delete(d.live, conn)
	d.liveMu.Unlock()
}

// closeLive drops every connection still waiting for its request.
func (d *daemon) closeLive() {
	d.liveMu.Lock()
	defer d.liveMu.Unlock()
	d.closing = true
	for conn := range d.live {
		conn.Close()
	}
}

func (d *daemon) handleConn(conn net.Conn) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(connTimeout))

	var req IPCRequest
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		resp := IPCResponse{Error: "invalid request: " + err.Error()}
		json.NewEncoder(conn).Encode(resp)
		return
	}
	// In flight: shutdown lets the response go out, bounded by the deadline.
	d.untrack(conn)

	resp := d.handleRequest(req)
	if err := json.NewEncoder(conn).Encode(resp); err != nil {
		log.WithField("id", resp.ID).WithError(err).Warn("write response")
	}
}

// serve accepts connections until shutdown is called or ln fails, then waits
// for in-flight requests.
func (d *daemon) serve(ln net.Listener) error {
	go func() {
		<-d.done
		ln.Close()
		d.closeLive()
	}()
	defer d.conns.Wait()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-d.done:
				return nil
			default:
				return errors.Wrap(err, "accept")
			}
		}
		if !d.track(conn) {
			continue
		}
		d.conns.Add(1)
		go func() {
			defer d.conns.Done()
			defer d.untrack(conn)
			d.handleConn(conn)
		}()
	}
}

// watchSignals routes interactive interrupts through the exit interceptor.
// SIGTERM always stops the daemon.
func (d *daemon) watchSignals(sigCh <-chan os.Signal) {
	for {
		select {
		case <-d.done:
			return
		case sig := <-sigCh:
			if sig == syscall.SIGTERM {
				d.shutdown()
				return
			}
			log.WithField("signal", sig.String()).Info("exit requested")
			d.exitGesture()
		}
	}
}

func runDaemon(cfg Config, sock string) error {
	lock, err := acquireInstanceLock(lockFilePath())
	if err != nil {
		return err
	}
	defer lock.Close()

	display, err := newScreenSaver(cfg.AppName, cfg.Reason)
	if err != nil {
		return err
	}
	defer display.close()

	pinner, err := newLogindPinner(cfg)
	if err != nil {
		return err
	}
	defer pinner.close()

	os.Remove(sock) // remove stale socket
	ln, err := net.Listen("unix", sock)
	if err != nil {
		return errors.Wrapf(err, "listen %s", sock)
	}
	os.Chmod(sock, 0700)
	defer os.Remove(sock)

	d := newDaemon(newLockController(display, pinner), cfg.Channel)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGHUP, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go d.watchSignals(sigCh)

	log.WithFields(log.Fields{"socket": sock, "channel": cfg.Channel}).Info("listening")
	return d.serve(ln)
}
