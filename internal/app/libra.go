package app

import (
	"context"
	"fmt"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/ethereum/go-ethereum/common/fdlimit"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/sadullah47/libra/internal/commit"
	"github.com/sadullah47/libra/internal/consensus"
	"github.com/sadullah47/libra/internal/loggers"
	"github.com/sadullah47/libra/internal/mempool"
	"github.com/sadullah47/libra/internal/mempool/broadcast"
	"github.com/sadullah47/libra/internal/peermgr"
	"github.com/sadullah47/libra/internal/profile"
	"github.com/sadullah47/libra/internal/reconfig"
	"github.com/sadullah47/libra/internal/repo"
	"github.com/sadullah47/libra/internal/txcache"
	"github.com/sadullah47/libra/internal/validator"
	"github.com/sadullah47/libra/pkg/ratelimiter"
	"github.com/sadullah47/libra/pkg/types"
)

// Libra assembles the shared mempool node: the pool itself plus the loops
// feeding it from clients, peers, consensus and the execution pipeline.
type Libra struct {
	Pool        mempool.MemPool
	PreCheck    *validator.TxPreCheck
	TxCache     *txcache.TxCache
	Broadcaster *broadcast.Manager
	Consensus   *consensus.Server
	Commit      *commit.Handler
	Reconfig    *reconfig.Bus
	PeerMgr     peermgr.PeerManager
	Monitor     *profile.Monitor
	Pprof       *profile.Pprof

	repo     *repo.Repo
	listener *reconfig.Listener
	limiter  *ratelimiter.RateLimiter
	logger   logrus.FieldLogger

	ctx    context.Context
	cancel context.CancelFunc
}

func NewLibra(rep *repo.Repo, peerMgr peermgr.PeerManager, stateProvider validator.StateProvider) (*Libra, error) {
	config := rep.Config
	loggers.Initialize(config)
	logger := loggers.Logger(loggers.App)

	preCheck := validator.NewTxPreCheck(config.Validator.GasFloor, loggers.Logger(loggers.Validator))

	pool := mempool.New(&mempool.Config{
		PoolSize:      config.Mempool.PoolSize,
		AccountSlots:  config.Mempool.AccountSlots,
		LockTimeout:   config.Mempool.LockTimeout,
		Logger:        loggers.Logger(loggers.Mempool),
		Validator:     preCheck,
		StateProvider: stateProvider,
	})

	broadcaster := broadcast.New(&broadcast.Config{
		LocalID:          config.LocalID,
		BatchSize:        config.Broadcast.BatchSize,
		Interval:         config.Broadcast.Interval,
		BackoffBase:      config.Broadcast.BackoffBase,
		BackoffCap:       config.Broadcast.BackoffCap,
		MaxUnackedBatch:  config.Broadcast.MaxUnackedBatch,
		FailureThreshold: config.Broadcast.FailureThreshold,
		UnhealthyTick:    config.Broadcast.UnhealthyTick,
		LookbackFull:     config.Broadcast.LookbackFull,
		Logger:           loggers.Logger(loggers.Broadcast),
		PeerMgr:          peerMgr,
		Pool:             pool,
	})

	commitHandler, err := commit.New(pool, loggers.Logger(loggers.Commit))
	if err != nil {
		return nil, fmt.Errorf("create commit handler: %w", err)
	}

	limiter, err := ratelimiter.NewWithQuantum(config.Limiter.Interval, config.Limiter.Capacity, config.Limiter.Quantum)
	if err != nil {
		return nil, fmt.Errorf("create rate limiter: %w", err)
	}

	bus := reconfig.NewBus()
	ctx, cancel := context.WithCancel(context.Background())
	libra := &Libra{
		Pool:        pool,
		PreCheck:    preCheck,
		TxCache:     txcache.NewTxCache(config.Mempool.TxSliceTimeout, config.Mempool.TxSliceSize, loggers.Logger(loggers.App)),
		Broadcaster: broadcaster,
		Consensus:   consensus.New(pool, loggers.Logger(loggers.Consensus)),
		Commit:      commitHandler,
		Reconfig:    bus,
		PeerMgr:     peerMgr,
		repo:        rep,
		listener:    reconfig.NewListener(bus, preCheck, broadcaster, loggers.Logger(loggers.Reconfig)),
		limiter:     limiter,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}

	if err := libra.raiseUlimit(config.Ulimit); err != nil {
		return nil, fmt.Errorf("raise ulimit: %w", err)
	}

	return libra, nil
}

func (l *Libra) Start() error {
	if err := l.PeerMgr.Start(); err != nil {
		return fmt.Errorf("peer manager start: %w", err)
	}
	if err := l.Consensus.Start(); err != nil {
		return fmt.Errorf("consensus server start: %w", err)
	}
	if err := l.Commit.Start(); err != nil {
		return fmt.Errorf("commit handler start: %w", err)
	}
	if err := l.Broadcaster.Start(); err != nil {
		return fmt.Errorf("broadcast manager start: %w", err)
	}
	if err := l.listener.Start(); err != nil {
		return fmt.Errorf("reconfig listener start: %w", err)
	}

	go l.TxCache.ListenEvent()
	go l.listenTxSet()
	go l.listenNetwork()
	go l.expireSweep()

	l.printLogo()

	return nil
}

func (l *Libra) Stop() error {
	// close the cache before cancelling its consumer, a slice mid-flight
	// would otherwise block the cache loop forever
	l.TxCache.CloseC <- true
	l.cancel()
	l.listener.Stop()
	l.Broadcaster.Stop()
	l.Commit.Stop()
	l.Consensus.Stop()
	if l.Monitor != nil {
		if err := l.Monitor.Stop(); err != nil {
			l.logger.Errorf("Monitor stop failed: %s", err)
		}
	}
	if l.Pprof != nil {
		if err := l.Pprof.Stop(); err != nil {
			l.logger.Errorf("Pprof stop failed: %s", err)
		}
	}
	if err := l.PeerMgr.Stop(); err != nil {
		return fmt.Errorf("peer manager stop: %w", err)
	}
	l.logger.Info("Libra stopped")
	return nil
}

// SubmitTransaction is the client-facing entry point. The transaction joins
// the next batched slice and the call blocks until the pool reports the
// admission outcome for this submission.
func (l *Libra) SubmitTransaction(tx *types.Transaction) (*mempool.SubmissionStatus, error) {
	if l.limiter.Limit() {
		return nil, errors.New("transaction rejected because of rate limit")
	}
	if l.TxCache.IsFull() {
		return nil, errors.New("transaction cache is full, try again later")
	}
	respCh := make(chan *mempool.SubmissionStatus, 1)
	l.TxCache.RecvTxC <- &txcache.TxWithResp{Tx: tx, RespCh: respCh}
	select {
	case status := <-respCh:
		if status == nil {
			return nil, errors.New("pool is contended, try again later")
		}
		return status, nil
	case <-l.ctx.Done():
		return nil, errors.New("node is shutting down")
	}
}

// GetPendingSequence reports the account's next proposable sequence number.
func (l *Libra) GetPendingSequence(addr types.Address) (uint64, error) {
	return l.Pool.GetPendingSequence(addr)
}

// listenTxSet drains batched client submissions into the pool and delivers
// each submitter its admission outcome.
func (l *Libra) listenTxSet() {
	for {
		select {
		case <-l.ctx.Done():
			return
		case txSet := <-l.TxCache.TxSetC:
			for _, tx := range txSet {
				status := l.processTx(tx.Tx, true)
				if tx.RespCh != nil {
					tx.RespCh <- status
				}
			}
		}
	}
}

// listenNetwork handles gossip from peer validators: inbound transaction
// batches are admitted and acknowledged, inbound acks advance the peer's
// broadcast watermark.
func (l *Libra) listenNetwork() {
	eventC := make(chan peermgr.MessageEvent, 1024)
	sub := l.PeerMgr.SubscribeMessage(eventC)
	defer sub.Unsubscribe()
	for {
		select {
		case <-l.ctx.Done():
			return

		case ev := <-eventC:
			switch ev.Msg.Type {
			case peermgr.Message_BROADCAST_TX:
				l.handleTxBatch(ev.From, ev.Msg.Data)
			case peermgr.Message_BROADCAST_TX_ACK:
				ack := &peermgr.TxBatchAck{}
				if err := ack.Unmarshal(ev.Msg.Data); err != nil {
					l.logger.Errorf("Unmarshal batch ack from %s failed: %s", ev.From, err)
					continue
				}
				l.Broadcaster.HandleAck(ev.From, ack.BatchID)
			default:
				l.logger.Warningf("Unexpected message type %d from %s", ev.Msg.Type, ev.From)
			}
		}
	}
}

func (l *Libra) handleTxBatch(from string, data []byte) {
	batch := &peermgr.TxBatch{}
	if err := batch.Unmarshal(data); err != nil {
		l.logger.Errorf("Unmarshal tx batch from %s failed: %s", from, err)
		return
	}
	for _, tx := range batch.TxList {
		if l.Commit.RecentlyCommitted(tx.Sender, tx.SequenceNumber) {
			continue
		}
		l.processTx(tx, false)
	}

	// ack regardless of per-tx outcomes: the peer must not resend the batch
	ackData, err := (&peermgr.TxBatchAck{BatchID: batch.BatchID}).Marshal()
	if err != nil {
		l.logger.Errorf("Marshal ack for batch %d failed: %s", batch.BatchID, err)
		return
	}
	msg := &peermgr.Message{
		Type: peermgr.Message_BROADCAST_TX_ACK,
		From: l.repo.Config.LocalID,
		Data: ackData,
	}
	if err := l.PeerMgr.AsyncSend(from, msg); err != nil {
		l.logger.Debugf("Send ack for batch %d to %s failed: %s", batch.BatchID, from, err)
	}
}

// processTx admits one transaction, retrying once on pool lock contention.
// Returns nil only when the pool stayed contended through the retry.
func (l *Libra) processTx(tx *types.Transaction, local bool) *mempool.SubmissionStatus {
	status, err := l.Pool.ProcessTransaction(tx, local)
	if errors.Is(err, mempool.ErrLockTimeout) {
		status, err = l.Pool.ProcessTransaction(tx, local)
	}
	if err != nil {
		l.logger.Warningf("Process tx [account: %s, seq: %d] failed: %s", tx.Sender, tx.SequenceNumber, err)
		return nil
	}
	if status.Outcome != mempool.Accepted && status.Outcome != mempool.Duplicate {
		l.logger.WithFields(logrus.Fields{
			"account": tx.Sender,
			"seq":     tx.SequenceNumber,
			"outcome": status.Outcome,
			"local":   local,
		}).Debug("Transaction not admitted")
	}
	return status
}

// expireSweep periodically removes transactions past their expiration time.
func (l *Libra) expireSweep() {
	tick := l.repo.Config.Mempool.ExpireSweepTick
	if tick == 0 {
		tick = 30 * time.Second
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-l.ctx.Done():
			return
		case now := <-ticker.C:
			removed, err := l.Pool.Expire(now)
			if err != nil {
				l.logger.Debugf("Expire sweep failed: %s", err)
				continue
			}
			if removed > 0 {
				l.logger.Infof("Expired %d transactions", removed)
			}
		}
	}
}

func (l *Libra) printLogo() {
	fmt.Println()
	fmt.Println("=======================================================")
	fig := figure.NewFigure("Libra", "slant", true)
	fig.Print()
	fmt.Println()
	fmt.Println("=======================================================")
	fmt.Println()
}

func (l *Libra) raiseUlimit(limitNew uint64) error {
	if limitNew == 0 {
		return nil
	}
	if _, err := fdlimit.Raise(limitNew); err != nil {
		return fmt.Errorf("set limit failed: %w", err)
	}

	var limit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &limit); err != nil {
		return fmt.Errorf("getrlimit error: %w", err)
	}

	l.logger.WithFields(logrus.Fields{
		"ulimit": limit.Cur,
	}).Infof("Ulimit raised")

	return nil
}
