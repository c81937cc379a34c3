package server

import (
	"context"
	"fmt"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/ValentinKolb/pKV/lib/db"
	"github.com/ValentinKolb/pKV/lib/db/engines/birch"
	"github.com/ValentinKolb/pKV/lib/store"
	"github.com/ValentinKolb/pKV/lib/store/lstore"
	"github.com/ValentinKolb/pKV/rpc/common"
	"github.com/ValentinKolb/pKV/rpc/metrics"
	"github.com/ValentinKolb/pKV/rpc/serializer"
	"github.com/ValentinKolb/pKV/rpc/transport"
	"github.com/ValentinKolb/pKV/rpc/transport/base"
	"github.com/google/uuid"
	"github.com/lni/dragonboat/v4/logger"
	"go.uber.org/multierr"
)

var Logger = logger.GetLogger("rpc")

// errResponseTooLarge replaces responses that do not fit into a frame
const errResponseTooLarge = "response too large"

// NewRPCServer creates a new RPC server
// It takes a config, transport and serializer as parameters
//
// Usage:
//
//	s := server.NewRPCServer(
//		config,
//		tcp.NewTCPServerTransport(),
//		serializer.NewBinarySerializer(),
//	)
//
//	if err := s.Serve(ctx); err != nil {
//		panic(err)
//	}
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
) *rpcServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.SIGPIPE)
	}

	instanceID := uuid.NewString()

	Logger.Infof("Created RPC Server %s", instanceID)
	Logger.Infof(config.String())

	return &rpcServer{
		config:     config,
		transport:  transport,
		serializer: serializer,
		adapter:    NewIStoreServerAdapter(),
		instanceID: instanceID,
	}
}

type rpcServer struct {
	config     common.ServerConfig
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
	adapter    IRPCServerAdapter
	instanceID string

	store     store.IStore
	metrics   *metrics.ServerMetrics
	listening bool

	// reused for every request, the loop handles one request at a time
	req  common.Request
	resp common.Response
}

// InstanceID returns the random id of this server instance
func (s *rpcServer) InstanceID() string {
	return s.instanceID
}

// Addr returns the address the transport is bound to
func (s *rpcServer) Addr() string {
	return s.transport.Addr()
}

// Listen prepares the store and the metrics and binds the listening socket
func (s *rpcServer) Listen() error {
	if s.listening {
		return nil
	}

	s.metrics = metrics.NewServerMetrics(s.instanceID, s.config.StatsInterval)

	switch s.config.Mode {
	case common.ServerModeKV, "":
		st, err := lstore.NewLocalStore(func() (db.KVDB, error) {
			return birch.NewBirchDB(&birch.DBOptions{Hash: s.config.Hash})
		})
		if err != nil {
			s.metrics.Close()
			return fmt.Errorf("failed to create store: %w", err)
		}
		s.store = st
		s.metrics.SetStoreProbe(s.probeStore)
		s.transport.RegisterHandler(s.handleKV)
		Logger.Infof("created local store (hash %s)", s.config.Hash)

	case common.ServerModeEcho:
		s.transport.RegisterHandler(s.handleEcho)

	default:
		s.metrics.Close()
		return fmt.Errorf("unknown server mode %q", s.config.Mode)
	}

	s.transport.RegisterObserver(s.metrics)

	if s.config.MetricsEndpoint != "" {
		if _, err := s.metrics.StartHTTP(s.config.MetricsEndpoint); err != nil {
			s.metrics.Close()
			return err
		}
	}

	if err := s.transport.Listen(s.config); err != nil {
		s.metrics.Close()
		return fmt.Errorf("failed to listen on %s: %w", s.config.Endpoint, err)
	}

	s.listening = true
	return nil
}

// Serve runs the server until ctx is cancelled
func (s *rpcServer) Serve(ctx context.Context) (err error) {
	if err := s.Listen(); err != nil {
		return err
	}

	defer func() {
		s.metrics.LogStats()
		err = multierr.Append(err, s.metrics.Close())
		s.listening = false
	}()

	Logger.Infof("pKV server %s ready on %s", s.instanceID, s.transport.Addr())
	return s.transport.Serve(ctx)
}

// --------------------------------------------------------------------------
// Handlers
// --------------------------------------------------------------------------

// handleKV decodes a command, runs it against the store and appends the encoded response
func (s *rpcServer) handleKV(dst []byte, payload []byte) []byte {
	start := time.Now()
	defer s.metrics.ObserveRequest(start)

	var resp *common.Response
	if err := s.serializer.DecodeRequest(payload, &s.req); err != nil {
		Logger.Debugf("malformed request: %v", err)
		resp = common.NewErrResponse(err.Error())
	} else {
		resp = s.adapter.Handle(&s.req, s.store)
	}

	offset := len(dst)
	dst = s.serializer.EncodeResponse(dst, resp)

	if len(dst)-offset > base.MaxMessageSize {
		Logger.Warningf("dropping response of %d bytes for %q", len(dst)-offset, s.req.Command())
		s.resp = common.Response{Status: common.StatusErr, Data: []byte(errResponseTooLarge)}
		dst = s.serializer.EncodeResponse(dst[:offset], &s.resp)
	}

	return dst
}

// handleEcho answers every request with its own payload
func (s *rpcServer) handleEcho(dst []byte, payload []byte) []byte {
	return append(dst, payload...)
}

// probeStore reads the store statistics for the metrics gauges
func (s *rpcServer) probeStore() metrics.StoreStats {
	info, err := s.store.GetDBInfo()
	if err != nil {
		Logger.Warningf("failed to read store info: %v", err)
		return metrics.StoreStats{}
	}

	stats := metrics.StoreStats{Entries: info.Entries}
	if meta, ok := info.Metadata.(*birch.Metadata); ok {
		stats.ResizesStarted = meta.Resize.ResizesStarted
		stats.ResizesCompleted = meta.Resize.ResizesCompleted
		stats.Resizing = meta.Resizing
	}
	return stats
}
