package metrics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/pKV/rpc/transport/base"
	vm "github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	gometrics "github.com/rcrowley/go-metrics"
)

var Logger = logger.GetLogger("metrics")

// StoreStats is a snapshot of the store taken on the event loop
type StoreStats struct {
	Entries          int
	ResizesStarted   uint64
	ResizesCompleted uint64
	Resizing         bool
}

// StoreProbe returns the current store statistics. It is only called from
// the goroutine driving the transport.
type StoreProbe func() StoreStats

// ServerMetrics collects the metrics of one server instance. It implements
// transport.IServerObserver. The observer methods are called from the event
// loop, the exported values are read from other goroutines through atomics.
type ServerMetrics struct {
	instanceID string

	// prometheus exposition
	set            *vm.Set
	accepted       *vm.Counter
	rejected       *vm.Counter
	closed         *vm.Counter
	protocolErrors *vm.Counter
	ioErrors       *vm.Counter
	requests       *vm.Counter
	roundSeconds   *vm.Histogram

	// values owned by the loop and published for gauge callbacks
	live             atomic.Int64
	entries          atomic.Int64
	resizesStarted   atomic.Uint64
	resizesCompleted atomic.Uint64
	resizing         atomic.Bool

	// timers for the periodic stats log
	registry     gometrics.Registry
	roundTimer   gometrics.Timer
	requestTimer gometrics.Timer
	requestMeter gometrics.Meter

	probe         StoreProbe
	statsInterval time.Duration
	lastStats     time.Time

	httpServer *http.Server
}

// NewServerMetrics creates the metrics of a server instance. A stats
// snapshot is logged every statsInterval, zero disables the log.
func NewServerMetrics(instanceID string, statsInterval time.Duration) *ServerMetrics {
	m := &ServerMetrics{
		instanceID:    instanceID,
		set:           vm.NewSet(),
		registry:      gometrics.NewRegistry(),
		roundTimer:    gometrics.NewTimer(),
		requestTimer:  gometrics.NewTimer(),
		requestMeter:  gometrics.NewMeter(),
		statsInterval: statsInterval,
		lastStats:     time.Now(),
	}

	m.accepted = m.set.NewCounter(m.name("pkv_connections_accepted_total"))
	m.rejected = m.set.NewCounter(m.name("pkv_connections_rejected_total"))
	m.closed = m.set.NewCounter(m.name("pkv_connections_closed_total"))
	m.protocolErrors = m.set.NewCounter(m.name("pkv_protocol_violations_total"))
	m.ioErrors = m.set.NewCounter(m.name("pkv_io_errors_total"))
	m.requests = m.set.NewCounter(m.name("pkv_requests_total"))
	m.roundSeconds = m.set.NewHistogram(m.name("pkv_loop_round_duration_seconds"))

	m.set.NewGauge(m.name("pkv_connections_open"), func() float64 {
		return float64(m.live.Load())
	})
	m.set.NewGauge(m.name("pkv_store_entries"), func() float64 {
		return float64(m.entries.Load())
	})
	m.set.NewGauge(m.name("pkv_store_resizes_started"), func() float64 {
		return float64(m.resizesStarted.Load())
	})
	m.set.NewGauge(m.name("pkv_store_resizes_completed"), func() float64 {
		return float64(m.resizesCompleted.Load())
	})
	m.set.NewGauge(m.name("pkv_store_resizing"), func() float64 {
		if m.resizing.Load() {
			return 1
		}
		return 0
	})

	m.registry.Register("loop.round", m.roundTimer)
	m.registry.Register("rpc.request", m.requestTimer)
	m.registry.Register("rpc.requests", m.requestMeter)

	return m
}

// name adds the instance label to a metric name
func (m *ServerMetrics) name(metric string) string {
	return fmt.Sprintf(`%s{instance=%q}`, metric, m.instanceID)
}

// SetStoreProbe registers the function used to refresh the store gauges.
// The probe runs with every stats snapshot.
func (m *ServerMetrics) SetStoreProbe(probe StoreProbe) {
	m.probe = probe
	m.refreshStore()
}

// ObserveRequest records the latency of a single request
func (m *ServerMetrics) ObserveRequest(start time.Time) {
	m.requestTimer.UpdateSince(start)
}

// --------------------------------------------------------------------------
// Observer Methods (docu see transport.IServerObserver)
// --------------------------------------------------------------------------

func (m *ServerMetrics) ConnectionAccepted(_ int, live int) {
	m.accepted.Inc()
	m.live.Store(int64(live))
}

func (m *ServerMetrics) ConnectionRejected(int) {
	m.rejected.Inc()
}

func (m *ServerMetrics) ConnectionClosed(_ int, live int, reason error) {
	m.closed.Inc()
	m.live.Store(int64(live))

	switch {
	case reason == nil:
	case errors.Is(reason, base.ErrProtocolViolation):
		m.protocolErrors.Inc()
	default:
		m.ioErrors.Inc()
	}
}

func (m *ServerMetrics) RequestsHandled(n int) {
	m.requests.Add(n)
	m.requestMeter.Mark(int64(n))
}

func (m *ServerMetrics) RoundCompleted(duration time.Duration, _ int) {
	m.roundSeconds.Update(duration.Seconds())
	m.roundTimer.Update(duration)

	if m.statsInterval > 0 && time.Since(m.lastStats) >= m.statsInterval {
		m.lastStats = time.Now()
		m.refreshStore()
		m.LogStats()
	}
}

// refreshStore copies the probe result into the published atomics
func (m *ServerMetrics) refreshStore() {
	if m.probe == nil {
		return
	}
	stats := m.probe()
	m.entries.Store(int64(stats.Entries))
	m.resizesStarted.Store(stats.ResizesStarted)
	m.resizesCompleted.Store(stats.ResizesCompleted)
	m.resizing.Store(stats.Resizing)
}

// --------------------------------------------------------------------------
// Reporting
// --------------------------------------------------------------------------

// LogStats logs a snapshot of the collected metrics
func (m *ServerMetrics) LogStats() {
	req := m.requestTimer.Snapshot()
	round := m.roundTimer.Snapshot()
	rate := m.requestMeter.Snapshot()

	Logger.Infof("stats: open=%d accepted=%d rejected=%d requests=%d (%.1f/s) "+
		"request p99=%s round p99=%s entries=%d resizes=%d/%d",
		m.live.Load(), m.accepted.Get(), m.rejected.Get(), req.Count(), rate.Rate1(),
		time.Duration(req.Percentile(0.99)), time.Duration(round.Percentile(0.99)),
		m.entries.Load(), m.resizesCompleted.Load(), m.resizesStarted.Load())
}

// WritePrometheus writes all metrics in the Prometheus text format
func (m *ServerMetrics) WritePrometheus(w io.Writer) {
	m.set.WritePrometheus(w)
	vm.WriteProcessMetrics(w)
}

// StartHTTP serves the metrics on /metrics at endpoint and returns the bound
// address. The handler only reads published values.
func (m *ServerMetrics) StartHTTP(endpoint string) (string, error) {
	if m.httpServer != nil {
		return "", errors.New("metrics endpoint already started")
	}

	ln, err := net.Listen("tcp", endpoint)
	if err != nil {
		return "", fmt.Errorf("failed to listen on metrics endpoint %s: %w", endpoint, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		m.WritePrometheus(w)
	})

	m.httpServer = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := m.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			Logger.Errorf("metrics endpoint stopped: %v", err)
		}
	}()

	Logger.Infof("serving metrics on http://%s/metrics", ln.Addr())
	return ln.Addr().String(), nil
}

// Close stops the HTTP endpoint and the background rate meter
func (m *ServerMetrics) Close() error {
	m.requestMeter.Stop()
	m.registry.UnregisterAll()

	if m.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := m.httpServer.Shutdown(ctx)
	m.httpServer = nil
	return err
}
