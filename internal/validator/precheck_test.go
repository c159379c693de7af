package validator

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadullah47/libra/pkg/types"
)

func testPreCheck(gasFloor uint64) *TxPreCheck {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return NewTxPreCheck(gasFloor, logger)
}

func signedTx(t *testing.T, seq uint64, gasPrice uint64, maxGas uint64, expiration int64) *types.Transaction {
	t.Helper()
	tx := &types.Transaction{
		SequenceNumber: seq,
		GasUnitPrice:   gasPrice,
		MaxGasAmount:   maxGas,
		ExpirationTime: expiration,
	}
	key, err := crypto.GenerateKey()
	require.Nil(t, err)
	require.Nil(t, tx.Sign(key))
	return tx
}

func TestTxPreCheck_Validate(t *testing.T) {
	tp := testPreCheck(1)
	future := time.Now().Add(time.Hour).Unix()
	state := AccountState{SequenceNumber: 5, Balance: 10000}

	tx := signedTx(t, 5, 10, 100, future)
	assert.Equal(t, StatusOK, tp.Validate(tx, state))

	// sequence numbers above the account's next are plausible, the pool
	// parks them until the gap fills
	tx = signedTx(t, 9, 10, 100, future)
	assert.Equal(t, StatusOK, tp.Validate(tx, state))
}

func TestTxPreCheck_Expired(t *testing.T) {
	tp := testPreCheck(0)
	tx := signedTx(t, 0, 10, 100, time.Now().Add(-time.Minute).Unix())
	assert.Equal(t, StatusExpired, tp.Validate(tx, AccountState{Balance: 10000}))
}

func TestTxPreCheck_GasFloor(t *testing.T) {
	tp := testPreCheck(100)
	future := time.Now().Add(time.Hour).Unix()
	tx := signedTx(t, 0, 99, 100, future)
	assert.Equal(t, StatusGasBelowFloor, tp.Validate(tx, AccountState{Balance: 100000}))

	tp.SetGasFloor(99)
	assert.Equal(t, uint64(99), tp.GasFloor())
	assert.Equal(t, StatusOK, tp.Validate(tx, AccountState{Balance: 100000}))
}

func TestTxPreCheck_GasParams(t *testing.T) {
	tp := testPreCheck(0)
	future := time.Now().Add(time.Hour).Unix()

	tx := signedTx(t, 0, 10, 0, future)
	assert.Equal(t, StatusInvalidGasParams, tp.Validate(tx, AccountState{Balance: 10000}))

	// gasPrice * maxGas overflows uint64
	tx = signedTx(t, 0, ^uint64(0), 2, future)
	assert.Equal(t, StatusInvalidGasParams, tp.Validate(tx, AccountState{Balance: ^uint64(0)}))
}

func TestTxPreCheck_SequenceTooOld(t *testing.T) {
	tp := testPreCheck(0)
	tx := signedTx(t, 3, 10, 100, time.Now().Add(time.Hour).Unix())
	assert.Equal(t, StatusTooOld, tp.Validate(tx, AccountState{SequenceNumber: 4, Balance: 10000}))
}

func TestTxPreCheck_InsufficientBalance(t *testing.T) {
	tp := testPreCheck(0)
	tx := signedTx(t, 0, 10, 100, time.Now().Add(time.Hour).Unix())
	assert.Equal(t, StatusInsufficientBalance, tp.Validate(tx, AccountState{Balance: 999}))
}

func TestTxPreCheck_InvalidSignature(t *testing.T) {
	tp := testPreCheck(0)
	tx := signedTx(t, 0, 10, 100, time.Now().Add(time.Hour).Unix())
	tx.GasUnitPrice = 11
	assert.Equal(t, StatusInvalidSignature, tp.Validate(tx, AccountState{Balance: 10000}))
}

type seqState struct{}

func (seqState) AccountState(addr types.Address) AccountState {
	return AccountState{SequenceNumber: 0, Balance: ^uint64(0)}
}

func TestTxPreCheck_ValidateBatch(t *testing.T) {
	tp := testPreCheck(5)
	future := time.Now().Add(time.Hour).Unix()

	txs := []*types.Transaction{
		signedTx(t, 0, 10, 100, future),
		signedTx(t, 0, 1, 100, future),
		signedTx(t, 0, 10, 100, future),
	}
	results := tp.ValidateBatch(txs, seqState{})
	require.Equal(t, 3, len(results))
	assert.Equal(t, StatusOK, results[0].Status)
	assert.Equal(t, StatusGasBelowFloor, results[1].Status)
	assert.Equal(t, StatusOK, results[2].Status)
	// results keep submission order
	assert.Equal(t, txs[1], results[1].Tx)
}
