package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var errNotImplemented = errors.New("method not implemented by daemon")

func ipcCall(sock string, req IPCRequest) (IPCResponse, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	log.WithFields(log.Fields{"id": req.ID, "command": req.Command, "method": req.Method}).Debug("sending request")

	conn, err := net.Dial("unix", sock)
	if err != nil {
		return IPCResponse{}, errors.Wrap(err, "connect to daemon (is `kioskctl daemon` running?)")
	}
	defer conn.Close()

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return IPCResponse{}, errors.Wrap(err, "send request")
	}

	var resp IPCResponse
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return IPCResponse{}, errors.Wrap(err, "read response")
	}
	return resp, nil
}

// callBool performs a call and unpacks the boolean result.
func callBool(sock string, req IPCRequest) (bool, error) {
	resp, err := ipcCall(sock, req)
	if err != nil {
		return false, err
	}
	if resp.Error != "" {
		return false, errors.New(resp.Error)
	}
	if resp.NotImplemented {
		return false, errNotImplemented
	}
	if resp.Result == nil {
		return false, errors.New("daemon returned no result")
	}
	return *resp.Result, nil
}

func runMethod(w io.Writer, sock, channel, method string) error {
	resp, err := ipcCall(sock, IPCRequest{Command: CommandCall, Channel: channel, Method: method})
	if err != nil {
		return err
	}
	if resp.Error != "" {
		return errors.New(resp.Error)
	}
	return json.NewEncoder(w).Encode(resp)
}

func runStatus(w io.Writer, sock, channel string, asJSON bool) error {
	if asJSON {
		return runMethod(w, sock, channel, MethodIsLocked)
	}
	locked, err := callBool(sock, IPCRequest{Command: CommandCall, Channel: channel, Method: MethodIsLocked})
	if err != nil {
		return err
	}
	if locked {
		fmt.Fprintln(w, color.RedString("locked"))
	} else {
		fmt.Fprintln(w, color.GreenString("unlocked"))
	}
	return nil
}

func runBack(w io.Writer, sock string) error {
	forwarded, err := callBool(sock, IPCRequest{Command: CommandBack})
	if err != nil {
		return err
	}
	if forwarded {
		fmt.Fprintln(w, "exit forwarded, daemon stopping")
	} else {
		fmt.Fprintln(w, color.YellowString("exit suppressed: kiosk is locked"))
	}
	return nil
}
