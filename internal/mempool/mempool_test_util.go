package mempool

import (
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sadullah47/libra/internal/validator"
	"github.com/sadullah47/libra/pkg/types"
)

const (
	DefaultTestPoolSize     = uint64(16)
	DefaultTestAccountSlots = uint64(8)
)

// acceptAllValidator admits everything; tests that exercise rejection set
// status explicitly.
type acceptAllValidator struct {
	status validator.Status
}

func (v *acceptAllValidator) Validate(tx *types.Transaction, state validator.AccountState) validator.Status {
	return v.status
}

// fixedStateProvider serves watermark seeds from a map and unlimited balance.
type fixedStateProvider struct {
	seqs map[string]uint64
}

func (p *fixedStateProvider) AccountState(addr types.Address) validator.AccountState {
	return validator.AccountState{
		SequenceNumber: p.seqs[addr.Hex()],
		Balance:        math.MaxUint64,
	}
}

func mockMempoolImpl(poolSize uint64) *mempoolImpl {
	return mockMempoolWithValidator(poolSize, &acceptAllValidator{})
}

func mockMempoolWithValidator(poolSize uint64, v validator.Validator) *mempoolImpl {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	config := &Config{
		PoolSize:      poolSize,
		AccountSlots:  DefaultTestAccountSlots,
		LockTimeout:   100 * time.Millisecond,
		Logger:        logger,
		Validator:     v,
		StateProvider: &fixedStateProvider{seqs: make(map[string]uint64)},
	}
	return newMempoolImpl(config)
}

func testAccount(id byte) types.Address {
	return types.BytesToAddress([]byte{id})
}

func constructTx(sender byte, seq uint64, gasPrice uint64) *types.Transaction {
	tx := &types.Transaction{
		Sender:         testAccount(sender),
		SequenceNumber: seq,
		Payload:        []byte{sender},
		GasUnitPrice:   gasPrice,
		MaxGasAmount:   1000,
		ExpirationTime: time.Now().Add(time.Hour).Unix(),
		Signature:      []byte{sender, byte(seq)},
	}
	tx.Hash()
	return tx
}

func mustAccept(mpi *mempoolImpl, tx *types.Transaction) *SubmissionStatus {
	status, err := mpi.ProcessTransaction(tx, true)
	if err != nil {
		panic(err)
	}
	return status
}
