package main

import (
	"bytes"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDaemon(pinErr error) *daemon {
	return newDaemon(newLockController(&fakeDisplay{}, &fakePinner{err: pinErr}), defaultChannel)
}

func isStopped(d *daemon) bool {
	select {
	case <-d.done:
		return true
	default:
		return false
	}
}

func TestHandleRequestCall(t *testing.T) {
	d := newTestDaemon(nil)

	resp := d.handleRequest(IPCRequest{ID: "req-1", Command: CommandCall, Method: MethodStartLockTask})
	assert.Equal(t, IPCResponse{ID: "req-1", Result: boolResult(true)}, resp)

	resp = d.handleRequest(IPCRequest{ID: "req-2", Command: CommandCall, Channel: defaultChannel, Method: MethodIsLocked})
	assert.Equal(t, IPCResponse{ID: "req-2", Result: boolResult(true)}, resp)
}

func TestHandleRequestAssignsID(t *testing.T) {
	d := newTestDaemon(nil)

	resp := d.handleRequest(IPCRequest{Command: CommandCall, Method: MethodIsLocked})

	assert.NotEmpty(t, resp.ID)
	require.NotNil(t, resp.Result)
	assert.False(t, *resp.Result)
}

func TestHandleRequestNotImplemented(t *testing.T) {
	d := newTestDaemon(nil)

	resp := d.handleRequest(IPCRequest{ID: "x", Command: CommandCall, Method: "reboot"})
	assert.Equal(t, IPCResponse{ID: "x", NotImplemented: true}, resp)
	assert.False(t, d.ctrl.IsLocked())

	resp = d.handleRequest(IPCRequest{ID: "y", Command: CommandCall, Channel: "elsewhere", Method: MethodStartLockTask})
	assert.Equal(t, IPCResponse{ID: "y", NotImplemented: true}, resp)
	assert.False(t, d.ctrl.IsLocked())
}

func TestHandleRequestUnknownCommand(t *testing.T) {
	d := newTestDaemon(nil)

	resp := d.handleRequest(IPCRequest{ID: "z", Command: "toggle"})

	assert.Equal(t, `unknown command: "toggle"`, resp.Error)
	assert.Nil(t, resp.Result)
}

func TestHandleRequestStartReportsSuccessWhenPinRejected(t *testing.T) {
	d := newTestDaemon(&PinError{Op: "inhibit", Err: errors.New("denied")})

	resp := d.handleRequest(IPCRequest{Command: CommandCall, Method: MethodStartLockTask})
	require.NotNil(t, resp.Result)
	assert.True(t, *resp.Result)
	assert.True(t, d.ctrl.IsLocked())

	resp = d.handleRequest(IPCRequest{Command: CommandCall, Method: MethodStopLockTask})
	require.NotNil(t, resp.Result)
	assert.True(t, *resp.Result)
	assert.False(t, d.ctrl.IsLocked())
}

func TestHandleRequestBack(t *testing.T) {
	d := newTestDaemon(nil)
	d.ctrl.StartLock()

	resp := d.handleRequest(IPCRequest{Command: CommandBack})
	require.NotNil(t, resp.Result)
	assert.False(t, *resp.Result)
	assert.False(t, isStopped(d))

	d.ctrl.StopLock()
	resp = d.handleRequest(IPCRequest{Command: CommandBack})
	require.NotNil(t, resp.Result)
	assert.True(t, *resp.Result)
	assert.True(t, isStopped(d))
}

func TestHandleConnInvalidRequest(t *testing.T) {
	d := newTestDaemon(nil)
	client, server := net.Pipe()
	go d.handleConn(server)
	defer client.Close()

	go func() {
		client.Write([]byte("not json\n"))
	}()

	var resp IPCResponse
	require.NoError(t, json.NewDecoder(client).Decode(&resp))
	assert.Contains(t, resp.Error, "invalid request")
}

func TestWatchSignals(t *testing.T) {
	d := newTestDaemon(nil)
	d.ctrl.StartLock()
	sigCh := make(chan os.Signal, 1)
	finished := make(chan struct{})
	go func() {
		d.watchSignals(sigCh)
		close(finished)
	}()

	sigCh <- syscall.SIGINT
	sigCh <- syscall.SIGHUP
	// Both interrupts were swallowed; SIGTERM is not.
	sigCh <- syscall.SIGTERM

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("watchSignals did not return after SIGTERM")
	}
	assert.True(t, isStopped(d))
	assert.True(t, d.ctrl.IsLocked())
}

func TestDaemonLockScenario(t *testing.T) {
	color.NoColor = true
	sock := filepath.Join(t.TempDir(), "k.sock")
	ln, err := net.Listen("unix", sock)
	require.NoError(t, err)

	d := newTestDaemon(nil)
	served := make(chan error, 1)
	go func() { served <- d.serve(ln) }()

	call := func(method string) bool {
		v, err := callBool(sock, IPCRequest{Command: CommandCall, Method: method})
		require.NoError(t, err)
		return v
	}

	assert.True(t, call(MethodStartLockTask))
	assert.True(t, call(MethodIsLocked))

	var out bytes.Buffer
	require.NoError(t, runBack(&out, sock))
	assert.Equal(t, "exit suppressed: kiosk is locked\n", out.String())

	out.Reset()
	require.NoError(t, runStatus(&out, sock, defaultChannel, false))
	assert.Equal(t, "locked\n", out.String())

	assert.True(t, call(MethodStopLockTask))
	assert.False(t, call(MethodIsLocked))

	_, err = callBool(sock, IPCRequest{Command: CommandCall, Method: "pinScreen"})
	assert.Equal(t, errNotImplemented, err)

	out.Reset()
	require.NoError(t, runBack(&out, sock))
	assert.Equal(t, "exit forwarded, daemon stopping\n", out.String())

	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("daemon did not stop after forwarded exit")
	}
}

func TestShutdownDropsIdleClients(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "k.sock")
	ln, err := net.Listen("unix", sock)
	require.NoError(t, err)

	d := newTestDaemon(nil)
	served := make(chan error, 1)
	go func() { served <- d.serve(ln) }()

	idle, err := net.Dial("unix", sock)
	require.NoError(t, err)
	defer idle.Close()

	// A round trip guarantees the idle connection was accepted first.
	_, err = callBool(sock, IPCRequest{Command: CommandCall, Method: MethodIsLocked})
	require.NoError(t, err)

	d.shutdown()

	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("serve still waiting on an idle client after shutdown")
	}
}

func TestHandleConnDeadline(t *testing.T) {
	d := newTestDaemon(nil)
	_, server := net.Pipe()
	finished := make(chan struct{})
	go func() {
		d.handleConn(server)
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(connTimeout + 2*time.Second):
		t.Fatal("handleConn ignored its deadline")
	}
}
