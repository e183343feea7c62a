package main

// Method names understood by the screen-lock channel.
const (
	MethodStartLockTask = "startLockTask"
	MethodStopLockTask  = "stopLockTask"
	MethodIsLocked      = "isLocked"
)

// IPC commands.
const (
	CommandCall = "call"
	CommandBack = "back"
)

// IPCRequest is sent from the CLI client to the daemon.
type IPCRequest struct {
	ID      string `json:"id,omitempty"`
	Command string `json:"command"`           // "call" | "back"
	Channel string `json:"channel,omitempty"` // defaults to the configured channel
	Method  string `json:"method,omitempty"`  // only for "call"
}

// IPCResponse is sent from the daemon back to the CLI client.
type IPCResponse struct {
	ID             string `json:"id,omitempty"`
	Result         *bool  `json:"result,omitempty"`
	NotImplemented bool   `json:"not_implemented,omitempty"`
	Error          string `json:"error,omitempty"`
}

func boolResult(v bool) *bool {
	return &v
}
