package unix

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ValentinKolb/pKV/rpc/common"
)

func TestUnixEcho(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "pkv.sock")

	// A stale file at the endpoint is replaced
	if err := os.WriteFile(socketPath, []byte("stale"), 0o600); err != nil {
		t.Fatalf("Failed to create stale file: %v", err)
	}

	config := common.DefaultServerConfig()
	config.Transport = "unix"
	config.Endpoint = socketPath
	config.PollTimeoutMs = 20

	srv := NewUnixServerTransport()
	srv.RegisterHandler(func(dst, req []byte) []byte { return append(dst, req...) })
	if err := srv.Listen(config); err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	if srv.Addr() != socketPath {
		t.Errorf("Expected address %s, got %s", socketPath, srv.Addr())
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	client := NewUnixClientTransport()
	if err := client.Connect(common.ClientConfig{Endpoint: socketPath, TimeoutSecond: 5}); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	resps, err := client.SendBatch([][]byte{[]byte("hello0001"), []byte("hello2"), []byte("hello3")})
	if err != nil {
		t.Fatalf("SendBatch failed: %v", err)
	}
	for i, expected := range []string{"hello0001", "hello2", "hello3"} {
		if string(resps[i]) != expected {
			t.Errorf("Expected %q, got %q", expected, resps[i])
		}
	}
	client.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Expected server to stop after cancellation")
	}

	if _, err := os.Stat(socketPath); !os.IsNotExist(err) {
		t.Errorf("Expected socket file to be removed, got %v", err)
	}
}
