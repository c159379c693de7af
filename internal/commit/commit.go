package commit

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/sadullah47/libra/internal/mempool"
	"github.com/sadullah47/libra/pkg/types"
)

const (
	StatusAccepted = "accepted"
	StatusFailed   = "failed"

	recentCommitCacheSize = 65536
)

// Request carries one block's commit notification. RespC receives the
// response once the pool has been pruned.
type Request struct {
	Notification *mempool.CommitNotification
	RespC        chan *mempool.CommitResponse
}

// Handler prunes the pool on commit notifications. Committed transactions
// raise account watermarks; excluded ones are removed without touching the
// watermark. The whole operation is idempotent, so replayed notifications
// after a restart or leader change are harmless.
type Handler struct {
	CommitC chan *Request

	pool   mempool.MemPool
	recent *lru.Cache // recently committed (sender, seq) slots
	logger logrus.FieldLogger
	ctx    context.Context
	cancel context.CancelFunc
}

func New(pool mempool.MemPool, logger logrus.FieldLogger) (*Handler, error) {
	recent, err := lru.New(recentCommitCacheSize)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Handler{
		CommitC: make(chan *Request),
		pool:    pool,
		recent:  recent,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

func (h *Handler) Start() error {
	go h.listenEvent()
	h.logger.Info("Commit handler started")
	return nil
}

func (h *Handler) Stop() {
	h.cancel()
}

// RecentlyCommitted reports whether the slot was committed recently. Used to
// drop gossiped transactions that already made it into a block without
// paying for a pool round-trip.
func (h *Handler) RecentlyCommitted(sender types.Address, seq uint64) bool {
	return h.recent.Contains(commitKey(sender, seq))
}

func (h *Handler) listenEvent() {
	for {
		select {
		case <-h.ctx.Done():
			h.logger.Info("Commit handler stopped")
			return

		case req := <-h.CommitC:
			resp := h.handleCommit(req.Notification)
			if req.RespC != nil {
				req.RespC <- resp
			}
		}
	}
}

func (h *Handler) handleCommit(notification *mempool.CommitNotification) *mempool.CommitResponse {
	if err := h.pool.Commit(notification.Committed, notification.Timestamp); err != nil {
		h.logger.Errorf("Commit of %d transactions failed: %s", len(notification.Committed), err)
		return &mempool.CommitResponse{Status: StatusFailed}
	}
	for _, committed := range notification.Committed {
		h.recent.Add(commitKey(committed.Sender, committed.SequenceNumber), struct{}{})
	}

	// one Reject per distinct reason so every removal is attributed to the
	// reason consensus reported for it
	byReason := lo.GroupBy(notification.Excluded, func(excluded mempool.TransactionExclusion) string {
		return excluded.Reason
	})
	for reason, group := range byReason {
		rejects := lo.Map(group, func(excluded mempool.TransactionExclusion, _ int) mempool.AccountSequence {
			return mempool.AccountSequence{
				Sender:         excluded.Sender,
				SequenceNumber: excluded.SequenceNumber,
			}
		})
		if err := h.pool.Reject(rejects, reason); err != nil {
			h.logger.Errorf("Reject of %d excluded transactions failed: %s", len(rejects), err)
			return &mempool.CommitResponse{Status: StatusFailed}
		}
	}

	committedCounter.Add(float64(len(notification.Committed)))
	h.logger.WithFields(logrus.Fields{
		"committed": len(notification.Committed),
		"excluded":  len(notification.Excluded),
		"pool_size": h.pool.PoolSize(),
	}).Debug("Applied commit notification")
	return &mempool.CommitResponse{Status: StatusAccepted}
}

func commitKey(sender types.Address, seq uint64) string {
	return fmt.Sprintf("%s-%d", sender.Hex(), seq)
}
