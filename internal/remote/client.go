package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"
)

// connState tracks the lifecycle of one per-operation connection:
// Disconnected -> Connecting -> Connected -> AwaitingResponse -> Disconnected.
type connState int

const (
	stateDisconnected connState = iota
	stateConnecting
	stateConnected
	stateAwaitingResponse
)

// Client talks to a remote signing device. It holds no mutable state between
// calls: each operation owns its transport for the duration of the call.
type Client struct {
	cfg Config
}

// NewClient creates a client for the configured device.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Client{cfg: cfg.withDefaults()}, nil
}

// Config returns the effective configuration.
func (c *Client) Config() Config { return c.cfg }

// session is the transport for a single logical operation.
type session struct {
	conn     net.Conn
	state    connState
	newline  bool // newline-framed responses (socket-path mode)
	timeout  time.Duration
	maxBytes int
}

// connect opens a fresh transport for one operation.
func (c *Client) connect(ctx context.Context) (*session, error) {
	s := &session{
		state:    stateConnecting,
		newline:  c.cfg.SocketPath != "",
		timeout:  c.cfg.CommandTimeout,
		maxBytes: c.cfg.MaxResponseBytes,
	}

	network, address := "tcp", net.JoinHostPort(c.cfg.Host, fmt.Sprintf("%d", c.cfg.Port))
	if c.cfg.SocketPath != "" {
		network, address = "unix", c.cfg.SocketPath
	}

	dialer := net.Dialer{Timeout: c.cfg.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, network, address)
	if err != nil {
		return nil, classifyDialError(err)
	}
	s.conn = conn
	s.state = stateConnected
	return s, nil
}

// close tears the transport down. Safe to call on every exit path.
func (s *session) close() {
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
	s.state = stateDisconnected
}

// classifyDialError maps transport errors onto the protocol error taxonomy.
func classifyDialError(err error) error {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return fmt.Errorf("%w: %v", ErrConnectionRefused, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrConnectTimeout, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrConnectTimeout, err)
	}
	return fmt.Errorf("failed to connect to signing device: %w", err)
}

// send writes one framed request and reads one framed response.
func (s *session) send(req *Request) (*Response, error) {
	if s.state != stateConnected {
		return nil, fmt.Errorf("connection is not ready")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize request: %w", err)
	}
	payload = append(payload, '\n')

	deadline := time.Now().Add(s.timeout)
	if err := s.conn.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("failed to set deadline: %w", err)
	}

	if _, err := s.conn.Write(payload); err != nil {
		return nil, classifyIOError(err)
	}

	s.state = stateAwaitingResponse
	resp, err := s.readResponse()
	s.state = stateConnected
	return resp, err
}

// readResponse accumulates bytes until a complete frame is recognized:
// a newline terminator in socket-path mode, or a successful parse of the
// whole accumulated buffer otherwise. Accumulation is capped at maxBytes;
// overflow is a framing error.
func (s *session) readResponse() (*Response, error) {
	var buf bytes.Buffer
	chunk := make([]byte, 4096)

	for {
		n, err := s.conn.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			if buf.Len() > s.maxBytes {
				return nil, fmt.Errorf("%w: response exceeds %d bytes", ErrFraming, s.maxBytes)
			}
			if resp, ok := s.tryDecode(buf.Bytes()); ok {
				return resp, nil
			}
		}
		if err != nil {
			return nil, classifyIOError(err)
		}
	}
}

// tryDecode attempts to recognize a complete frame in the buffer.
func (s *session) tryDecode(data []byte) (*Response, bool) {
	if s.newline {
		idx := bytes.IndexByte(data, '\n')
		if idx < 0 {
			return nil, false
		}
		data = data[:idx]
	}
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		// Incomplete frame; keep accumulating until the timeout fires.
		return nil, false
	}
	return &resp, true
}

func classifyIOError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrCommandTimeout, err)
	}
	return fmt.Errorf("device connection failed: %w", err)
}

// ListCertificates asks the device for its signing identities.
func (c *Client) ListCertificates(ctx context.Context) ([]CertificateInfo, error) {
	s, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer s.close()

	resp, err := s.send(&Request{Command: CommandListCertificates})
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("%w: %s", ErrOperationFailed, resp.Error)
	}
	return resp.Certificates, nil
}

// Authenticate presents card credentials to the device.
func (c *Client) Authenticate(ctx context.Context, card, passphrase string) error {
	s, err := c.connect(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	return authenticate(s, card, passphrase)
}

func authenticate(s *session, card, passphrase string) error {
	resp, err := s.send(&Request{
		Command:    CommandAuthenticate,
		CardName:   card,
		Passphrase: passphrase,
	})
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("%w: %s", ErrAuthenticationFailed, resp.Error)
	}
	return nil
}

// SignHash asks the device to sign a digest with the identified key.
//
// When card credentials are configured, an AUTHENTICATE command is sent on
// the same connection first; if it fails, the sign command is never written
// and the whole operation reports ErrAuthenticationFailed.
func (c *Client) SignHash(ctx context.Context, keyID string, digest []byte, algorithm string) ([]byte, error) {
	s, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer s.close()

	if c.cfg.CardName != "" {
		passphrase, err := c.cfg.Passphrase()
		if err != nil {
			return nil, err
		}
		if err := authenticate(s, c.cfg.CardName, passphrase); err != nil {
			return nil, err
		}
	}

	resp, err := s.send(&Request{
		Command:       CommandSignHash,
		KeyID:         keyID,
		DataHash:      digest,
		HashAlgorithm: algorithm,
	})
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("%w: %s", ErrOperationFailed, resp.Error)
	}
	if len(resp.Signature) == 0 {
		return nil, fmt.Errorf("%w: device returned no signature", ErrOperationFailed)
	}
	return resp.Signature, nil
}

// SignData asks the device to hash and sign raw data itself. Card-bound keys
// use this variant; the device applies its own digest before signing.
func (c *Client) SignData(ctx context.Context, keyID string, data []byte, algorithm string) ([]byte, error) {
	s, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer s.close()

	if c.cfg.CardName != "" {
		passphrase, err := c.cfg.Passphrase()
		if err != nil {
			return nil, err
		}
		if err := authenticate(s, c.cfg.CardName, passphrase); err != nil {
			return nil, err
		}
	}

	resp, err := s.send(&Request{
		Command:       CommandSignData,
		KeyID:         keyID,
		Data:          data,
		HashAlgorithm: algorithm,
	})
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("%w: %s", ErrOperationFailed, resp.Error)
	}
	if len(resp.Signature) == 0 {
		return nil, fmt.Errorf("%w: device returned no signature", ErrOperationFailed)
	}
	return resp.Signature, nil
}

// GetCertificateDetails fetches one identity by key ID.
func (c *Client) GetCertificateDetails(ctx context.Context, keyID string) (*CertificateInfo, error) {
	s, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer s.close()

	resp, err := s.send(&Request{Command: CommandGetCertificate, KeyID: keyID})
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("%w: %s", ErrOperationFailed, resp.Error)
	}
	if len(resp.Certificates) == 0 {
		return nil, fmt.Errorf("%w: device returned no certificate", ErrOperationFailed)
	}
	return &resp.Certificates[0], nil
}

// Ping checks device liveness.
func (c *Client) Ping(ctx context.Context) error {
	s, err := c.connect(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	resp, err := s.send(&Request{Command: CommandPing})
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("%w: %s", ErrOperationFailed, resp.Error)
	}
	return nil
}

// Status fetches the device's status string.
func (c *Client) Status(ctx context.Context) (string, error) {
	s, err := c.connect(ctx)
	if err != nil {
		return "", err
	}
	defer s.close()

	resp, err := s.send(&Request{Command: CommandStatus})
	if err != nil {
		return "", err
	}
	if !resp.Success {
		return "", fmt.Errorf("%w: %s", ErrOperationFailed, resp.Error)
	}
	return resp.Data, nil
}
