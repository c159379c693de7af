package consensus

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/sadullah47/libra/internal/mempool"
	"github.com/sadullah47/libra/pkg/types"
)

// Status is the outcome of a consensus-side request.
type Status int32

const (
	StatusOK Status = iota
	StatusInvalidRequest
	StatusRetry
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusInvalidRequest:
		return "invalid_request"
	case StatusRetry:
		return "retry"
	default:
		return "unknown"
	}
}

// GetBlockRequest asks the pool for an ordered block proposal. Exclude lists
// transactions already placed in uncommitted ancestor blocks; excluded
// entries and their in-pool successors stay out of the proposal.
type GetBlockRequest struct {
	MaxBlockSize uint64
	Exclude      map[mempool.AccountSequence]bool
	RespC        chan *GetBlockResponse
}

type GetBlockResponse struct {
	Status Status
	Txs    []*types.Transaction
	Err    error
}

// RejectNotification reports transactions consensus discarded without
// committing. Their sequence numbers stay resubmittable.
type RejectNotification struct {
	Txs    []mempool.AccountSequence
	Reason string
	RespC  chan error
}

// Server owns the request loop between consensus and the pool. All calls
// into the pool are synchronous; a pool lock timeout is surfaced as a
// retryable StatusRetry so the proposer can back off and ask again.
type Server struct {
	GetBlockC chan *GetBlockRequest
	RejectC   chan *RejectNotification

	pool   mempool.MemPool
	logger logrus.FieldLogger
	ctx    context.Context
	cancel context.CancelFunc
	doneC  chan struct{}
}

func New(pool mempool.MemPool, logger logrus.FieldLogger) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		GetBlockC: make(chan *GetBlockRequest),
		RejectC:   make(chan *RejectNotification),
		pool:      pool,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		doneC:     make(chan struct{}),
	}
}

func (s *Server) Start() error {
	go s.listenEvent()
	s.logger.Info("Consensus server started")
	return nil
}

func (s *Server) Stop() {
	s.cancel()
	<-s.doneC
}

func (s *Server) listenEvent() {
	defer close(s.doneC)
	for {
		select {
		case <-s.ctx.Done():
			s.logger.Info("Consensus server stopped")
			return

		case req := <-s.GetBlockC:
			// an abandoned response channel must not pin the loop
			select {
			case req.RespC <- s.handleGetBlock(req):
			case <-s.ctx.Done():
				s.logger.Info("Consensus server stopped")
				return
			}

		case notify := <-s.RejectC:
			err := s.handleReject(notify)
			if notify.RespC != nil {
				select {
				case notify.RespC <- err:
				case <-s.ctx.Done():
					s.logger.Info("Consensus server stopped")
					return
				}
			}
		}
	}
}

func (s *Server) handleGetBlock(req *GetBlockRequest) *GetBlockResponse {
	start := time.Now()
	if req.MaxBlockSize == 0 {
		return &GetBlockResponse{
			Status: StatusInvalidRequest,
			Err:    errors.New("get block request with zero max size"),
		}
	}
	txs, err := s.pool.GetBlock(req.MaxBlockSize, req.Exclude)
	if err != nil {
		if errors.Is(err, mempool.ErrLockTimeout) {
			return &GetBlockResponse{Status: StatusRetry, Err: err}
		}
		return &GetBlockResponse{Status: StatusInvalidRequest, Err: err}
	}
	getBlockDuration.Observe(time.Since(start).Seconds())
	s.logger.WithFields(logrus.Fields{
		"count":    len(txs),
		"max_size": req.MaxBlockSize,
		"excluded": len(req.Exclude),
	}).Debug("Proposed block")
	return &GetBlockResponse{Status: StatusOK, Txs: txs}
}

func (s *Server) handleReject(notify *RejectNotification) error {
	if len(notify.Txs) == 0 {
		return nil
	}
	if err := s.pool.Reject(notify.Txs, notify.Reason); err != nil {
		s.logger.WithFields(logrus.Fields{
			"count":  len(notify.Txs),
			"reason": notify.Reason,
		}).Warningf("Reject failed: %s", err)
		return err
	}
	rejectCounter.Add(float64(len(notify.Txs)))
	return nil
}
