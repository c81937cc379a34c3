package tcp

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/pKV/rpc/common"
	"github.com/ValentinKolb/pKV/rpc/transport"
	"github.com/ValentinKolb/pKV/rpc/transport/base"
)

// --------------------------------------------------------------------------
// Test Helpers
// --------------------------------------------------------------------------

type countingObserver struct {
	accepted atomic.Int64
	rejected atomic.Int64
	closed   atomic.Int64
	requests atomic.Int64
}

func (o *countingObserver) ConnectionAccepted(int, int)       { o.accepted.Add(1) }
func (o *countingObserver) ConnectionRejected(int)            { o.rejected.Add(1) }
func (o *countingObserver) ConnectionClosed(int, int, error)  { o.closed.Add(1) }
func (o *countingObserver) RequestsHandled(n int)             { o.requests.Add(int64(n)) }
func (o *countingObserver) RoundCompleted(time.Duration, int) {}

// startEchoServer starts an echo server on a free port and returns its
// address and a function that stops it and returns the Serve error
func startEchoServer(t *testing.T, config common.ServerConfig, observer transport.IServerObserver) (string, func() error) {
	t.Helper()

	srv := NewTCPServerTransport()
	srv.RegisterHandler(func(dst, req []byte) []byte { return append(dst, req...) })
	srv.RegisterObserver(observer)

	if err := srv.Listen(config); err != nil {
		t.Fatalf("Listen failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	stop := func() error {
		cancel()
		select {
		case err := <-done:
			return err
		case <-time.After(5 * time.Second):
			t.Fatal("Expected server to stop after cancellation")
			return nil
		}
	}
	return srv.Addr(), stop
}

func testConfig() common.ServerConfig {
	config := common.DefaultServerConfig()
	config.Endpoint = "127.0.0.1:0"
	config.PollTimeoutMs = 20
	return config
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

func TestEchoPipelined(t *testing.T) {
	observer := &countingObserver{}
	addr, stop := startEchoServer(t, testConfig(), observer)

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(5 * time.Second))

	// All three requests in a single write
	var buf []byte
	for _, msg := range []string{"hello0001", "hello2", "hello3"} {
		buf, _ = base.AppendFrame(buf, []byte(msg))
	}
	if _, err := conn.Write(buf); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	for _, expected := range []string{"hello0001", "hello2", "hello3"} {
		payload, err := base.ReadFrame(conn, nil)
		if err != nil {
			t.Fatalf("ReadFrame failed: %v", err)
		}
		if string(payload) != expected {
			t.Errorf("Expected %q, got %q", expected, payload)
		}
	}

	if err := stop(); err != nil {
		t.Errorf("Expected clean shutdown, got %v", err)
	}
	if n := observer.requests.Load(); n != 3 {
		t.Errorf("Expected 3 requests observed, got %d", n)
	}
	if n := observer.accepted.Load(); n != 1 {
		t.Errorf("Expected 1 accepted connection, got %d", n)
	}
}

func TestManySequentialClients(t *testing.T) {
	addr, stop := startEchoServer(t, testConfig(), nil)
	defer stop()

	client := NewTCPClientTransport()
	for i := 0; i < 20; i++ {
		if err := client.Connect(common.ClientConfig{Endpoint: addr, TimeoutSecond: 5}); err != nil {
			t.Fatalf("Connect failed: %v", err)
		}
		resp, err := client.Send([]byte("ping"))
		if err != nil {
			t.Fatalf("Send failed: %v", err)
		}
		if string(resp) != "ping" {
			t.Errorf("Expected 'ping', got %q", resp)
		}
	}
	client.Close()
}

func TestClientBatch(t *testing.T) {
	addr, stop := startEchoServer(t, testConfig(), nil)
	defer stop()

	client := NewTCPClientTransport()
	if err := client.Connect(common.ClientConfig{Endpoint: addr, TimeoutSecond: 5, Pipeline: 7}); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Close()

	reqs := make([][]byte, 100)
	for i := range reqs {
		reqs[i] = []byte{byte(i), byte(i >> 8)}
	}

	resps, err := client.SendBatch(reqs)
	if err != nil {
		t.Fatalf("SendBatch failed: %v", err)
	}
	if len(resps) != len(reqs) {
		t.Fatalf("Expected %d responses, got %d", len(reqs), len(resps))
	}
	for i := range reqs {
		if string(resps[i]) != string(reqs[i]) {
			t.Errorf("Expected response %d to be %v, got %v", i, reqs[i], resps[i])
		}
	}
}

func TestMaxConnections(t *testing.T) {
	config := testConfig()
	config.MaxConnections = 1

	observer := &countingObserver{}
	addr, stop := startEchoServer(t, config, observer)
	defer stop()

	first := NewTCPClientTransport()
	if err := first.Connect(common.ClientConfig{Endpoint: addr, TimeoutSecond: 5}); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer first.Close()
	if _, err := first.Send([]byte("first")); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	// The kernel completes the handshake, the server closes it right away
	second, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer second.Close()
	second.SetDeadline(time.Now().Add(5 * time.Second))

	frame, _ := base.AppendFrame(nil, []byte("second"))
	second.Write(frame)
	if _, err := base.ReadFrame(second, nil); err == nil {
		t.Error("Expected rejected connection to be closed")
	}
	if n := observer.rejected.Load(); n != 1 {
		t.Errorf("Expected 1 rejected connection, got %d", n)
	}

	// The admitted connection is unaffected
	resp, err := first.Send([]byte("still-here"))
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if string(resp) != "still-here" {
		t.Errorf("Expected 'still-here', got %q", resp)
	}
}

func TestOversizeFrameClosesConnection(t *testing.T) {
	observer := &countingObserver{}
	addr, stop := startEchoServer(t, testConfig(), observer)
	defer stop()

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(5 * time.Second))

	// Header only, declaring one byte more than allowed
	header := []byte{0x01, 0x00, 0x00, 0x02}
	if _, err := conn.Write(header); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if _, err := base.ReadFrame(conn, nil); !errors.Is(err, base.ErrPeerClosed) {
		t.Errorf("Expected connection to be closed without a response, got %v", err)
	}
	if n := observer.requests.Load(); n != 0 {
		t.Errorf("Expected no requests handled, got %d", n)
	}
}

func TestShutdownClosesListener(t *testing.T) {
	addr, stop := startEchoServer(t, testConfig(), nil)

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	if err := stop(); err != nil {
		t.Fatalf("Expected clean shutdown, got %v", err)
	}

	conn.SetDeadline(time.Now().Add(5 * time.Second))
	if _, err := base.ReadFrame(conn, nil); err == nil {
		t.Error("Expected open connection to be closed on shutdown")
	}
	if c, err := net.DialTimeout("tcp", addr, time.Second); err == nil {
		c.Close()
		t.Error("Expected dial to fail after shutdown")
	}
}

func TestServeWithoutListen(t *testing.T) {
	srv := NewTCPServerTransport()
	srv.RegisterHandler(func(dst, req []byte) []byte { return dst })
	if err := srv.Serve(context.Background()); err == nil {
		t.Error("Expected Serve to fail before Listen")
	}
}
