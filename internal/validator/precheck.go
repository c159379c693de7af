package validator

import (
	"runtime"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"github.com/sadullah47/libra/pkg/types"
)

var concurrencyLimit = runtime.NumCPU()

// TxPreCheck is the production Validator: signature recovery, gas floor,
// expiration sanity and balance plausibility against the account snapshot.
// The gas floor is updated on-chain and applied through SetGasFloor.
type TxPreCheck struct {
	gasFloor *atomic.Uint64
	logger   logrus.FieldLogger
}

func NewTxPreCheck(gasFloor uint64, logger logrus.FieldLogger) *TxPreCheck {
	return &TxPreCheck{
		gasFloor: atomic.NewUint64(gasFloor),
		logger:   logger,
	}
}

func (tp *TxPreCheck) SetGasFloor(floor uint64) {
	old := tp.gasFloor.Swap(floor)
	if old != floor {
		tp.logger.Infof("Gas floor updated from %d to %d", old, floor)
	}
}

func (tp *TxPreCheck) GasFloor() uint64 {
	return tp.gasFloor.Load()
}

func (tp *TxPreCheck) Validate(tx *types.Transaction, state AccountState) Status {
	if tx.ExpirationTime <= time.Now().Unix() {
		return StatusExpired
	}
	if tx.GasUnitPrice < tp.gasFloor.Load() {
		return StatusGasBelowFloor
	}
	if tx.MaxGasAmount == 0 {
		return StatusInvalidGasParams
	}
	if tx.SequenceNumber < state.SequenceNumber {
		return StatusTooOld
	}
	// max charge the account could incur for this transaction
	maxCharge := tx.GasUnitPrice * tx.MaxGasAmount
	if tx.GasUnitPrice != 0 && maxCharge/tx.GasUnitPrice != tx.MaxGasAmount {
		return StatusInvalidGasParams
	}
	if state.Balance < maxCharge {
		return StatusInsufficientBalance
	}
	if err := tx.VerifySignature(); err != nil {
		tp.logger.Debugf("Tx [account: %s, seq: %d] signature verify failed: %s",
			tx.Sender, tx.SequenceNumber, err)
		return StatusInvalidSignature
	}
	return StatusOK
}

// BatchResult pairs one transaction of a batch with its validation status.
type BatchResult struct {
	Tx     *types.Transaction
	Status Status
}

// ValidateBatch checks a slice of transactions concurrently on a worker pool
// and returns results in submission order.
func (tp *TxPreCheck) ValidateBatch(txs []*types.Transaction, provider StateProvider) []BatchResult {
	wp := workerpool.New(concurrencyLimit)
	results := make([]BatchResult, len(txs))
	for i, tx := range txs {
		i, tx := i, tx
		wp.Submit(func() {
			results[i] = BatchResult{Tx: tx, Status: tp.Validate(tx, provider.AccountState(tx.Sender))}
		})
	}
	wp.StopWait()
	return results
}
