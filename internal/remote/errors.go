package remote

import "errors"

// Sentinel errors for remote signing operations.
// Use errors.Is() to check for these through the error chain.
var (
	// ErrConnectTimeout indicates the transport could not be opened in time.
	ErrConnectTimeout = errors.New("connect timeout")

	// ErrConnectionRefused indicates the device refused the connection.
	ErrConnectionRefused = errors.New("connection refused")

	// ErrCommandTimeout indicates no complete response arrived in time.
	ErrCommandTimeout = errors.New("command timeout")

	// ErrAuthenticationFailed indicates the device rejected the credentials.
	// The dependent sign command is never sent after this.
	ErrAuthenticationFailed = errors.New("remote authentication failed")

	// ErrOperationFailed indicates the device reported a command failure.
	ErrOperationFailed = errors.New("remote operation failed")

	// ErrFraming indicates the response stream violated the framing contract,
	// including exceeding the maximum buffered response size.
	ErrFraming = errors.New("response framing error")
)
