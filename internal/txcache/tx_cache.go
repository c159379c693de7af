package txcache

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sadullah47/libra/internal/mempool"
	"github.com/sadullah47/libra/pkg/types"
)

const (
	DefaultTxCacheSize = 10000
	DefaultTxSetTick   = 100 * time.Millisecond
	DefaultTxSetSize   = 10
)

// TxWithResp pairs a submitted transaction with the channel its admission
// outcome is delivered on. RespCh may be nil for fire-and-forget feeds;
// otherwise it must be buffered so a slow submitter cannot stall the drain
// loop.
type TxWithResp struct {
	Tx     *types.Transaction
	RespCh chan *mempool.SubmissionStatus
}

// TxCache batches client submissions into slices before they hit the pool,
// cutting lock round-trips under load. A slice is posted when it reaches
// txSetSize or when the slice timer fires, whichever comes first.
type TxCache struct {
	TxSetC  chan []*TxWithResp
	RecvTxC chan *TxWithResp
	CloseC  chan bool

	txSet      []*TxWithResp
	logger     logrus.FieldLogger
	timerC     chan bool
	stopTimerC chan bool
	txSetTick  time.Duration
	txSetSize  uint64
}

func NewTxCache(txSliceTimeout time.Duration, txSetSize uint64, logger logrus.FieldLogger) *TxCache {
	txCache := &TxCache{}
	txCache.RecvTxC = make(chan *TxWithResp, DefaultTxCacheSize)
	txCache.TxSetC = make(chan []*TxWithResp)
	txCache.CloseC = make(chan bool)
	txCache.timerC = make(chan bool)
	txCache.stopTimerC = make(chan bool)
	txCache.txSet = make([]*TxWithResp, 0)
	txCache.logger = logger
	if txSliceTimeout == 0 {
		txCache.txSetTick = DefaultTxSetTick
	} else {
		txCache.txSetTick = txSliceTimeout
	}
	if txSetSize == 0 {
		txCache.txSetSize = DefaultTxSetSize
	} else {
		txCache.txSetSize = txSetSize
	}
	return txCache
}

func (tc *TxCache) ListenEvent() {
	for {
		select {
		case <-tc.CloseC:
			tc.logger.Info("Transaction cache stopped!")
			return

		case tx := <-tc.RecvTxC:
			tc.appendTx(tx)

		case <-tc.timerC:
			tc.stopTxSetTimer()
			tc.postTxSet()
		}
	}
}

func (tc *TxCache) appendTx(tx *TxWithResp) {
	if tx == nil || tx.Tx == nil {
		tc.logger.Errorf("Transaction is nil")
		return
	}
	if len(tc.txSet) == 0 {
		tc.startTxSetTimer()
	}
	tc.txSet = append(tc.txSet, tx)
	if uint64(len(tc.txSet)) >= tc.txSetSize {
		tc.stopTxSetTimer()
		tc.postTxSet()
	}
}

func (tc *TxCache) postTxSet() {
	dst := make([]*TxWithResp, len(tc.txSet))
	copy(dst, tc.txSet)
	tc.TxSetC <- dst
	tc.txSet = make([]*TxWithResp, 0)
}

func (tc *TxCache) IsFull() bool {
	return len(tc.RecvTxC) == DefaultTxCacheSize
}

func (tc *TxCache) startTxSetTimer() {
	go func() {
		timer := time.NewTimer(tc.txSetTick)
		select {
		case <-timer.C:
			tc.timerC <- true
		case <-tc.stopTimerC:
			return
		}
	}()
}

func (tc *TxCache) stopTxSetTimer() {
	close(tc.stopTimerC)
	tc.stopTimerC = make(chan bool)
}
