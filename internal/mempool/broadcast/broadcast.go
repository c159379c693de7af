package broadcast

import (
	"context"
	"sync"
	"time"

	"github.com/Rican7/retry/backoff"
	cmap "github.com/orcaman/concurrent-map"
	"github.com/sirupsen/logrus"

	"github.com/sadullah47/libra/internal/mempool"
	"github.com/sadullah47/libra/internal/peermgr"
)

const (
	DefaultBatchSize        = 100
	DefaultInterval         = 200 * time.Millisecond
	DefaultBackoffBase      = 100 * time.Millisecond
	DefaultBackoffCap       = 10 * time.Second
	DefaultMaxUnackedBatch  = 10
	DefaultFailureThreshold = 5
	DefaultUnhealthyTick    = 30 * time.Second
)

type Config struct {
	LocalID          string
	BatchSize        uint64
	Interval         time.Duration
	BackoffBase      time.Duration
	BackoffCap       time.Duration
	MaxUnackedBatch  int
	FailureThreshold int
	UnhealthyTick    time.Duration
	LookbackFull     bool
	Logger           logrus.FieldLogger
	PeerMgr          peermgr.PeerManager
	Pool             mempool.MemPool
}

// Manager gossips accepted transactions to peer validators. Each peer gets
// its own outbound loop computing timeline diffs above the peer's
// acknowledged watermark, with bounded in-flight batches and exponential
// backoff on failure.
type Manager struct {
	config  *Config
	backoff backoff.Algorithm
	peers   cmap.ConcurrentMap // peer id -> *peerState
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// peerState tracks one peer's broadcast progress.
type peerState struct {
	id string

	mu           sync.Mutex
	ackedID      uint64 // highest timeline id the peer acknowledged
	pending      map[uint64]*pendingBatch
	failures     int
	backoffUntil time.Time
	unhealthy    bool
	cancel       context.CancelFunc
}

type pendingBatch struct {
	batch    *peermgr.TxBatch
	lastSend time.Time
	attempts int
}

func New(config *Config) *Manager {
	if config.BatchSize == 0 {
		config.BatchSize = DefaultBatchSize
	}
	if config.Interval == 0 {
		config.Interval = DefaultInterval
	}
	if config.BackoffBase == 0 {
		config.BackoffBase = DefaultBackoffBase
	}
	if config.BackoffCap == 0 {
		config.BackoffCap = DefaultBackoffCap
	}
	if config.MaxUnackedBatch == 0 {
		config.MaxUnackedBatch = DefaultMaxUnackedBatch
	}
	if config.FailureThreshold == 0 {
		config.FailureThreshold = DefaultFailureThreshold
	}
	if config.UnhealthyTick == 0 {
		config.UnhealthyTick = DefaultUnhealthyTick
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		config:  config,
		backoff: backoff.BinaryExponential(config.BackoffBase),
		peers:   cmap.New(),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches one outbound loop per currently known peer.
func (m *Manager) Start() error {
	for _, id := range m.config.PeerMgr.Peers() {
		m.AddPeer(id)
	}
	m.config.Logger.Infof("Broadcast manager started with %d peers", m.peers.Count())
	return nil
}

// Stop cancels every peer loop and waits for them to exit. Pending batches
// are dropped, not drained.
func (m *Manager) Stop() {
	m.cancel()
	m.wg.Wait()
	m.config.Logger.Info("Broadcast manager stopped")
}

// AddPeer creates broadcast state for a discovered peer and starts its loop.
// New peers start from the configured look-back point rather than the log
// head flooding them with full history only when asked to.
func (m *Manager) AddPeer(id string) {
	if id == m.config.LocalID {
		return
	}
	if m.peers.Has(id) {
		return
	}
	state := &peerState{
		id:      id,
		pending: make(map[uint64]*pendingBatch),
	}
	if !m.config.LookbackFull {
		state.ackedID = m.config.Pool.TimelineHead()
	}
	ctx, cancel := context.WithCancel(m.ctx)
	state.cancel = cancel
	m.peers.Set(id, state)
	m.wg.Add(1)
	go m.peerLoop(ctx, state)
	m.config.Logger.Infof("Added broadcast peer %s, starting from timeline id %d", id, state.ackedID)
}

// RemovePeer cancels the peer's loop and destroys its state.
func (m *Manager) RemovePeer(id string) {
	value, ok := m.peers.Get(id)
	if !ok {
		return
	}
	m.peers.Remove(id)
	value.(*peerState).cancel()
	peerBacklogGauge.DeleteLabelValues(id)
	m.config.Logger.Infof("Removed broadcast peer %s", id)
}

// UpdatePeers reconciles the peer set against a reconfiguration event.
func (m *Manager) UpdatePeers(ids []string) {
	next := make(map[string]bool, len(ids))
	for _, id := range ids {
		next[id] = true
		m.AddPeer(id)
	}
	for _, id := range m.peers.Keys() {
		if !next[id] {
			m.RemovePeer(id)
		}
	}
}

// HandleAck processes a peer's acknowledgment of timeline id ackID: the
// peer watermark advances and every batch at or below it is settled.
func (m *Manager) HandleAck(peer string, ackID uint64) {
	value, ok := m.peers.Get(peer)
	if !ok {
		return
	}
	state := value.(*peerState)
	state.mu.Lock()
	defer state.mu.Unlock()
	if ackID > state.ackedID {
		state.ackedID = ackID
	}
	for id := range state.pending {
		if id <= ackID {
			delete(state.pending, id)
		}
	}
	if state.failures > 0 || state.unhealthy {
		m.config.Logger.Infof("Peer %s recovered after %d failures", peer, state.failures)
	}
	state.failures = 0
	state.unhealthy = false
	state.backoffUntil = time.Time{}
	peerBacklogGauge.WithLabelValues(peer).Set(float64(len(state.pending)))
}

// PeerWatermark returns the highest timeline id the peer acknowledged.
func (m *Manager) PeerWatermark(peer string) (uint64, bool) {
	value, ok := m.peers.Get(peer)
	if !ok {
		return 0, false
	}
	state := value.(*peerState)
	state.mu.Lock()
	defer state.mu.Unlock()
	return state.ackedID, true
}

func (m *Manager) peerLoop(ctx context.Context, state *peerState) {
	defer m.wg.Done()
	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.broadcastRound(state)
			// unhealthy peers are polled at a reduced rate until they ack
			state.mu.Lock()
			unhealthy := state.unhealthy
			state.mu.Unlock()
			if unhealthy {
				ticker.Reset(m.config.UnhealthyTick)
			} else {
				ticker.Reset(m.config.Interval)
			}
		}
	}
}

// broadcastRound retries due batches, then sends at most one new diff chunk
// if the unacknowledged backlog allows it.
func (m *Manager) broadcastRound(state *peerState) {
	now := time.Now()

	state.mu.Lock()
	if now.Before(state.backoffUntil) {
		state.mu.Unlock()
		return
	}
	retries := make([]*pendingBatch, 0, len(state.pending))
	for _, pb := range state.pending {
		if now.Sub(pb.lastSend) >= m.retryDelay(pb.attempts) {
			retries = append(retries, pb)
		}
	}
	backlog := len(state.pending)
	from := state.ackedID
	for id := range state.pending {
		if id > from {
			from = id
		}
	}
	state.mu.Unlock()

	for _, pb := range retries {
		m.sendBatch(state, pb)
	}

	// backpressure: withhold new batches past the unacknowledged limit
	if backlog >= m.config.MaxUnackedBatch {
		return
	}
	if m.config.Pool.TimelineHead() <= from {
		return
	}
	entries, err := m.config.Pool.ReadTimeline(from, int(m.config.BatchSize))
	if err != nil {
		// pool lock contention, try again next round
		m.config.Logger.Debugf("Read timeline for peer %s failed: %s", state.id, err)
		return
	}
	if len(entries) == 0 {
		return
	}
	batch := &peermgr.TxBatch{BatchID: entries[len(entries)-1].ID}
	for _, entry := range entries {
		batch.TxList = append(batch.TxList, entry.Tx)
	}
	pb := &pendingBatch{batch: batch}
	state.mu.Lock()
	state.pending[batch.BatchID] = pb
	peerBacklogGauge.WithLabelValues(state.id).Set(float64(len(state.pending)))
	state.mu.Unlock()
	m.sendBatch(state, pb)
}

func (m *Manager) sendBatch(state *peerState, pb *pendingBatch) {
	data, err := pb.batch.Marshal()
	if err != nil {
		m.config.Logger.Errorf("Marshal batch %d failed: %s", pb.batch.BatchID, err)
		return
	}
	msg := &peermgr.Message{
		Type: peermgr.Message_BROADCAST_TX,
		From: m.config.LocalID,
		Data: data,
	}

	state.mu.Lock()
	pb.lastSend = time.Now()
	pb.attempts++
	state.mu.Unlock()

	if err := m.config.PeerMgr.AsyncSend(state.id, msg); err != nil {
		sendFailureCounter.WithLabelValues(state.id).Inc()
		state.mu.Lock()
		state.failures++
		delay := m.retryDelay(state.failures)
		state.backoffUntil = time.Now().Add(delay)
		if !state.unhealthy && state.failures >= m.config.FailureThreshold {
			state.unhealthy = true
			m.config.Logger.Warningf("Peer %s unhealthy after %d consecutive failures", state.id, state.failures)
		}
		state.mu.Unlock()
		m.config.Logger.Debugf("Send batch %d to peer %s failed, err: %s", pb.batch.BatchID, state.id, err)
		return
	}
	batchSentCounter.WithLabelValues(state.id).Inc()
}

// retryDelay grows exponentially with the attempt count, capped.
func (m *Manager) retryDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	delay := m.backoff(uint(attempt))
	if delay > m.config.BackoffCap || delay <= 0 {
		delay = m.config.BackoffCap
	}
	return delay
}
