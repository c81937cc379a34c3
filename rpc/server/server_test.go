package server

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/ValentinKolb/pKV/rpc/client"
	"github.com/ValentinKolb/pKV/rpc/common"
	"github.com/ValentinKolb/pKV/rpc/serializer"
	"github.com/ValentinKolb/pKV/rpc/transport"
	"github.com/ValentinKolb/pKV/rpc/transport/tcp"
	"github.com/ValentinKolb/pKV/rpc/transport/unix"
)

// --------------------------------------------------------------------------
// Test Helpers
// --------------------------------------------------------------------------

type testSetup struct {
	name      string
	server    func() transport.IRPCServerTransport
	client    func() transport.IRPCClientTransport
	transport string
	endpoint  func(t *testing.T) string
}

var setups = []testSetup{
	{
		name:      "tcp",
		server:    tcp.NewTCPServerTransport,
		client:    tcp.NewTCPClientTransport,
		transport: "tcp",
		endpoint:  func(*testing.T) string { return "127.0.0.1:0" },
	},
	{
		name:      "unix",
		server:    unix.NewUnixServerTransport,
		client:    unix.NewUnixClientTransport,
		transport: "unix",
		endpoint:  func(t *testing.T) string { return filepath.Join(t.TempDir(), "pkv.sock") },
	},
}

// startServer starts a server and returns a connected client
func startServer(t *testing.T, setup testSetup, mode common.ServerMode) client.IRPCStore {
	t.Helper()

	config := common.DefaultServerConfig()
	config.Mode = mode
	config.Transport = setup.transport
	config.Endpoint = setup.endpoint(t)
	config.PollTimeoutMs = 20
	config.StatsInterval = 0

	srv := NewRPCServer(config, setup.server(), serializer.NewBinarySerializer())
	if err := srv.Listen(); err != nil {
		t.Fatalf("Listen failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	kv, err := client.NewRPCStore(common.ClientConfig{
		Transport:     setup.transport,
		Endpoint:      srv.Addr(),
		TimeoutSecond: 5,
		Pipeline:      16,
	}, setup.client(), serializer.NewBinarySerializer())
	if err != nil {
		cancel()
		t.Fatalf("Failed to connect client: %v", err)
	}

	t.Cleanup(func() {
		kv.Close()
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Expected clean shutdown, got %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("Expected server to stop after cancellation")
		}
	})

	return kv
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

func TestKVServer(t *testing.T) {
	for _, setup := range setups {
		t.Run(setup.name, func(t *testing.T) {
			kv := startServer(t, setup, common.ServerModeKV)

			if _, found, err := kv.Get("missing"); err != nil || found {
				t.Errorf("Expected missing key, got found=%v err=%v", found, err)
			}

			if err := kv.Set("key", []byte("value")); err != nil {
				t.Fatalf("Set failed: %v", err)
			}
			if err := kv.Set("key", []byte("value2")); err != nil {
				t.Fatalf("Set failed: %v", err)
			}

			value, found, err := kv.Get("key")
			if err != nil || !found || string(value) != "value2" {
				t.Errorf("Expected 'value2', got %q found=%v err=%v", value, found, err)
			}

			if ok, err := kv.Has("key"); err != nil || !ok {
				t.Errorf("Expected has(key) to be true, got %v err=%v", ok, err)
			}

			if err := kv.Set("empty", nil); err != nil {
				t.Fatalf("Set failed: %v", err)
			}
			if value, found, _ := kv.Get("empty"); !found || len(value) != 0 {
				t.Errorf("Expected empty value to be found, got %q found=%v", value, found)
			}

			keys, err := kv.Keys()
			if err != nil {
				t.Fatalf("Keys failed: %v", err)
			}
			sort.Strings(keys)
			if len(keys) != 2 || keys[0] != "empty" || keys[1] != "key" {
				t.Errorf("Expected keys [empty key], got %v", keys)
			}

			if deleted, err := kv.Delete("key"); err != nil || !deleted {
				t.Errorf("Expected delete to succeed, got %v err=%v", deleted, err)
			}
			if deleted, err := kv.Delete("key"); err != nil || deleted {
				t.Errorf("Expected second delete to report a missing key, got %v err=%v", deleted, err)
			}
		})
	}
}

func TestKVServerBatch(t *testing.T) {
	kv := startServer(t, setups[0], common.ServerModeKV)

	n := 1000
	reqs := make([]*common.Request, 0, 2*n)
	for i := 0; i < n; i++ {
		reqs = append(reqs, common.NewSetRequest(fmt.Sprintf("key-%d", i), []byte(fmt.Sprintf("value-%d", i))))
	}
	for i := 0; i < n; i++ {
		reqs = append(reqs, common.NewGetRequest(fmt.Sprintf("key-%d", i)))
	}

	resps, err := kv.Batch(reqs)
	if err != nil {
		t.Fatalf("Batch failed: %v", err)
	}
	if len(resps) != len(reqs) {
		t.Fatalf("Expected %d responses, got %d", len(reqs), len(resps))
	}
	for i := 0; i < n; i++ {
		resp := resps[n+i]
		if expected := fmt.Sprintf("value-%d", i); resp.Status != common.StatusOK || string(resp.Data) != expected {
			t.Fatalf("Expected %q for key-%d, got %s %q", expected, i, resp.Status, resp.Data)
		}
	}
}

func TestKVServerErrors(t *testing.T) {
	kv := startServer(t, setups[0], common.ServerModeKV)

	resps, err := kv.Batch([]*common.Request{
		common.NewRequest("nope"),
		common.NewRequest(common.CmdSet, []byte("only-key")),
		common.NewGetRequest("still-works"),
	})
	if err != nil {
		t.Fatalf("Batch failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		if resps[i].Status != common.StatusErr || string(resps[i].Data) != errUnknownCmd {
			t.Errorf("Expected ERR %q for request %d, got %s %q", errUnknownCmd, i, resps[i].Status, resps[i].Data)
		}
	}
	if resps[2].Status != common.StatusNX {
		t.Errorf("Expected connection to stay usable after errors, got %s", resps[2].Status)
	}
}

func TestEchoServer(t *testing.T) {
	for _, setup := range setups {
		t.Run(setup.name, func(t *testing.T) {
			config := common.DefaultServerConfig()
			config.Mode = common.ServerModeEcho
			config.Transport = setup.transport
			config.Endpoint = setup.endpoint(t)
			config.PollTimeoutMs = 20

			srv := NewRPCServer(config, setup.server(), serializer.NewBinarySerializer())
			if err := srv.Listen(); err != nil {
				t.Fatalf("Listen failed: %v", err)
			}

			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- srv.Serve(ctx) }()
			t.Cleanup(func() {
				cancel()
				<-done
			})

			c := setup.client()
			if err := c.Connect(common.ClientConfig{Endpoint: srv.Addr(), TimeoutSecond: 5}); err != nil {
				t.Fatalf("Connect failed: %v", err)
			}
			defer c.Close()

			msgs := [][]byte{[]byte("hello0001"), []byte("hello2"), []byte("hello3")}
			resps, err := c.SendBatch(msgs)
			if err != nil {
				t.Fatalf("SendBatch failed: %v", err)
			}
			for i := range msgs {
				if string(resps[i]) != string(msgs[i]) {
					t.Errorf("Expected %q, got %q", msgs[i], resps[i])
				}
			}
		})
	}
}

func TestUnknownMode(t *testing.T) {
	config := common.DefaultServerConfig()
	config.Mode = "redis"
	config.Endpoint = "127.0.0.1:0"

	srv := NewRPCServer(config, tcp.NewTCPServerTransport(), serializer.NewBinarySerializer())
	if err := srv.Listen(); err == nil {
		t.Error("Expected Listen to fail for an unknown mode")
	}
}
