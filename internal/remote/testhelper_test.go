package remote

import (
	"bufio"
	"encoding/json"
	"net"
	"testing"
)

// fakeDevice is an in-process signing device speaking the framed protocol.
type fakeDevice struct {
	listener net.Listener

	// handle produces the response for each request. When nil, every
	// command succeeds with an empty response body.
	handle func(req *Request) *Response

	// requests records every request received, in order.
	requests []*Request
}

func startFakeDevice(t *testing.T, network, address string, handle func(req *Request) *Response) *fakeDevice {
	t.Helper()

	listener, err := net.Listen(network, address)
	if err != nil {
		t.Fatalf("failed to start fake device: %v", err)
	}

	d := &fakeDevice{listener: listener, handle: handle}
	go d.serve()
	t.Cleanup(func() { listener.Close() })
	return d
}

func (d *fakeDevice) serve() {
	for {
		conn, err := d.listener.Accept()
		if err != nil {
			return
		}
		go d.serveConn(conn)
	}
}

func (d *fakeDevice) serveConn(conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<22)
	for scanner.Scan() {
		var req Request
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			return
		}
		d.requests = append(d.requests, &req)

		resp := &Response{Success: true}
		if d.handle != nil {
			resp = d.handle(&req)
		}
		if resp == nil {
			return // handler asked to drop the connection
		}
		payload, err := json.Marshal(resp)
		if err != nil {
			return
		}
		payload = append(payload, '\n')
		if _, err := conn.Write(payload); err != nil {
			return
		}
	}
}

// addr returns the device address as host and port.
func (d *fakeDevice) addr(t *testing.T) (string, int) {
	t.Helper()
	tcp, ok := d.listener.Addr().(*net.TCPAddr)
	if !ok {
		t.Fatalf("fake device is not listening on TCP")
	}
	return tcp.IP.String(), tcp.Port
}
