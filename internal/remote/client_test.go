package remote

import (
	"context"
	"errors"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func tcpClient(t *testing.T, d *fakeDevice, mutate func(*Config)) *Client {
	t.Helper()
	host, port := d.addr(t)
	cfg := Config{Host: host, Port: port}
	if mutate != nil {
		mutate(&cfg)
	}
	c, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c
}

func TestNewClientRequiresAddress(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Error("NewClient() with empty config should fail")
	}
	if _, err := NewClient(Config{Host: "localhost", Port: 0}); err == nil {
		t.Error("NewClient() with zero port should fail")
	}
	if _, err := NewClient(Config{SocketPath: "/tmp/device.sock"}); err != nil {
		t.Errorf("NewClient() with socket path error = %v", err)
	}
}

func TestF_PingTCP(t *testing.T) {
	d := startFakeDevice(t, "tcp", "127.0.0.1:0", nil)
	c := tcpClient(t, d, nil)

	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	if len(d.requests) != 1 || d.requests[0].Command != CommandPing {
		t.Errorf("device saw requests %+v, want single PING", d.requests)
	}
}

func TestF_PingUnixSocket(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "device.sock")
	startFakeDevice(t, "unix", sock, nil)

	c, err := NewClient(Config{SocketPath: sock})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() over socket error = %v", err)
	}
}

func TestF_ListCertificates(t *testing.T) {
	d := startFakeDevice(t, "tcp", "127.0.0.1:0", func(req *Request) *Response {
		if req.Command != CommandListCertificates {
			return &Response{Success: false, Error: "unexpected command"}
		}
		return &Response{
			Success: true,
			Certificates: []CertificateInfo{
				{ID: "key-1", Subject: "CN=Signer One"},
				{ID: "key-2", Subject: "CN=Signer Two"},
			},
		}
	})
	c := tcpClient(t, d, nil)

	certs, err := c.ListCertificates(context.Background())
	if err != nil {
		t.Fatalf("ListCertificates() error = %v", err)
	}
	if len(certs) != 2 || certs[0].ID != "key-1" || certs[1].ID != "key-2" {
		t.Errorf("ListCertificates() = %+v", certs)
	}
}

func TestF_SignHashAuthenticatesFirst(t *testing.T) {
	d := startFakeDevice(t, "tcp", "127.0.0.1:0", func(req *Request) *Response {
		switch req.Command {
		case CommandAuthenticate:
			if req.CardName != "card-a" || req.Passphrase != "secret" {
				return &Response{Success: false, Error: "bad credentials"}
			}
			return &Response{Success: true}
		case CommandSignHash:
			return &Response{Success: true, Signature: []byte{0xde, 0xad}}
		default:
			return &Response{Success: false, Error: "unexpected command"}
		}
	})

	t.Setenv("SIGNBRIDGE_TEST_PASSPHRASE", "secret")
	c := tcpClient(t, d, func(cfg *Config) {
		cfg.CardName = "card-a"
		cfg.PassphraseEnv = "SIGNBRIDGE_TEST_PASSPHRASE"
	})

	sig, err := c.SignHash(context.Background(), "key-1", []byte{1, 2, 3}, "sha256")
	if err != nil {
		t.Fatalf("SignHash() error = %v", err)
	}
	if len(sig) != 2 {
		t.Errorf("SignHash() signature = %x", sig)
	}

	if len(d.requests) != 2 {
		t.Fatalf("device saw %d requests, want 2", len(d.requests))
	}
	if d.requests[0].Command != CommandAuthenticate || d.requests[1].Command != CommandSignHash {
		t.Errorf("command order = %v, %v", d.requests[0].Command, d.requests[1].Command)
	}
}

func TestF_SignHashAbortsOnAuthFailure(t *testing.T) {
	d := startFakeDevice(t, "tcp", "127.0.0.1:0", func(req *Request) *Response {
		if req.Command == CommandAuthenticate {
			return &Response{Success: false, Error: "wrong passphrase"}
		}
		return &Response{Success: true, Signature: []byte{0xff}}
	})

	t.Setenv("SIGNBRIDGE_TEST_PASSPHRASE", "wrong")
	c := tcpClient(t, d, func(cfg *Config) {
		cfg.CardName = "card-a"
		cfg.PassphraseEnv = "SIGNBRIDGE_TEST_PASSPHRASE"
	})

	_, err := c.SignHash(context.Background(), "key-1", []byte{1}, "sha256")
	if !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("SignHash() error = %v, want ErrAuthenticationFailed", err)
	}

	// The sign command must never reach the device after a rejected
	// authentication.
	for _, req := range d.requests {
		if req.Command == CommandSignHash {
			t.Error("SIGN_HASH was sent despite failed authentication")
		}
	}
}

func TestF_SignHashWithoutCredentials(t *testing.T) {
	d := startFakeDevice(t, "tcp", "127.0.0.1:0", func(req *Request) *Response {
		return &Response{Success: true, Signature: []byte{0x01}}
	})
	c := tcpClient(t, d, nil)

	if _, err := c.SignHash(context.Background(), "key-1", []byte{9}, "sha256"); err != nil {
		t.Fatalf("SignHash() error = %v", err)
	}
	if len(d.requests) != 1 || d.requests[0].Command != CommandSignHash {
		t.Errorf("device saw %+v, want single SIGN_HASH", d.requests)
	}
}

func TestF_SignDataCarriesRawPayload(t *testing.T) {
	payload := []byte("card-bound payload")
	d := startFakeDevice(t, "tcp", "127.0.0.1:0", func(req *Request) *Response {
		if req.Command != CommandSignData || string(req.Data) != string(payload) {
			return &Response{Success: false, Error: "unexpected request"}
		}
		return &Response{Success: true, Signature: []byte{0x02}}
	})
	c := tcpClient(t, d, nil)

	sig, err := c.SignData(context.Background(), "key-1", payload, "sha256")
	if err != nil {
		t.Fatalf("SignData() error = %v", err)
	}
	if len(sig) != 1 || sig[0] != 0x02 {
		t.Errorf("Signature = %v", sig)
	}
	if len(d.requests) != 1 || d.requests[0].HashAlgorithm != "sha256" {
		t.Errorf("device saw %+v, want single SIGN_DATA with algorithm", d.requests)
	}
}

func TestF_Status(t *testing.T) {
	d := startFakeDevice(t, "tcp", "127.0.0.1:0", func(req *Request) *Response {
		if req.Command != CommandStatus {
			return &Response{Success: false, Error: "unexpected command"}
		}
		return &Response{Success: true, Data: "ready"}
	})
	c := tcpClient(t, d, nil)

	status, err := c.Status(context.Background())
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status != "ready" {
		t.Errorf("Status() = %q, want %q", status, "ready")
	}
}

func TestF_GetCertificateDetails(t *testing.T) {
	d := startFakeDevice(t, "tcp", "127.0.0.1:0", func(req *Request) *Response {
		if req.KeyID != "key-7" {
			return &Response{Success: false, Error: "unknown key"}
		}
		return &Response{
			Success:      true,
			Certificates: []CertificateInfo{{ID: "key-7", Subject: "CN=Key Seven"}},
		}
	})
	c := tcpClient(t, d, nil)

	info, err := c.GetCertificateDetails(context.Background(), "key-7")
	if err != nil {
		t.Fatalf("GetCertificateDetails() error = %v", err)
	}
	if info.Subject != "CN=Key Seven" {
		t.Errorf("Subject = %q", info.Subject)
	}

	_, err = c.GetCertificateDetails(context.Background(), "missing")
	if !errors.Is(err, ErrOperationFailed) {
		t.Errorf("unknown key error = %v, want ErrOperationFailed", err)
	}
}

func TestConnectionRefused(t *testing.T) {
	// Bind a port, note it, release it: the address is now refusing.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := listener.Addr().(*net.TCPAddr)
	listener.Close()

	c, err := NewClient(Config{Host: addr.IP.String(), Port: addr.Port})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	err = c.Ping(context.Background())
	if !errors.Is(err, ErrConnectionRefused) {
		t.Errorf("Ping() error = %v, want ErrConnectionRefused", err)
	}
}

func TestCommandTimeout(t *testing.T) {
	// A device that never answers.
	d := startFakeDevice(t, "tcp", "127.0.0.1:0", func(req *Request) *Response {
		time.Sleep(5 * time.Second)
		return &Response{Success: true}
	})
	c := tcpClient(t, d, func(cfg *Config) {
		cfg.CommandTimeout = 100 * time.Millisecond
	})

	err := c.Ping(context.Background())
	if !errors.Is(err, ErrCommandTimeout) {
		t.Errorf("Ping() error = %v, want ErrCommandTimeout", err)
	}
}

func TestOversizedResponseIsFramingError(t *testing.T) {
	d := startFakeDevice(t, "tcp", "127.0.0.1:0", func(req *Request) *Response {
		return &Response{Success: true, Data: strings.Repeat("x", 4096)}
	})
	c := tcpClient(t, d, func(cfg *Config) {
		cfg.MaxResponseBytes = 512
	})

	err := c.Ping(context.Background())
	if !errors.Is(err, ErrFraming) {
		t.Errorf("Ping() error = %v, want ErrFraming", err)
	}
}

func TestDeviceErrorSurfacesMessage(t *testing.T) {
	d := startFakeDevice(t, "tcp", "127.0.0.1:0", func(req *Request) *Response {
		return &Response{Success: false, Error: "token removed"}
	})
	c := tcpClient(t, d, nil)

	err := c.Ping(context.Background())
	if !errors.Is(err, ErrOperationFailed) {
		t.Fatalf("Ping() error = %v, want ErrOperationFailed", err)
	}
	if !strings.Contains(err.Error(), "token removed") {
		t.Errorf("error %q does not carry the device message", err)
	}
}

func TestPassphraseFromEnvironment(t *testing.T) {
	cfg := Config{Host: "h", Port: 1, PassphraseEnv: "SIGNBRIDGE_TEST_MISSING"}
	if _, err := cfg.Passphrase(); err == nil {
		t.Error("Passphrase() with unset variable should fail")
	}

	t.Setenv("SIGNBRIDGE_TEST_MISSING", "pw")
	pw, err := cfg.Passphrase()
	if err != nil || pw != "pw" {
		t.Errorf("Passphrase() = %q, %v", pw, err)
	}

	cfg.PassphraseEnv = ""
	if pw, err := cfg.Passphrase(); err != nil || pw != "" {
		t.Errorf("Passphrase() without variable = %q, %v", pw, err)
	}
}
