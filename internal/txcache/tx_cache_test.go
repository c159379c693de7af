package txcache

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadullah47/libra/internal/mempool"
	"github.com/sadullah47/libra/pkg/types"
)

func testTx(seq uint64) *TxWithResp {
	return &TxWithResp{
		Tx: &types.Transaction{
			Sender:         types.Address{0x01},
			SequenceNumber: seq,
			GasUnitPrice:   1,
		},
		RespCh: make(chan *mempool.SubmissionStatus, 1),
	}
}

func TestTxCache_PostBySize(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	tc := NewTxCache(time.Hour, 3, logger)
	go tc.ListenEvent()
	defer func() { tc.CloseC <- true }()

	for i := uint64(0); i < 3; i++ {
		tc.RecvTxC <- testTx(i)
	}

	select {
	case txSet := <-tc.TxSetC:
		require.Equal(t, 3, len(txSet))
		assert.Equal(t, uint64(0), txSet[0].Tx.SequenceNumber)
		assert.Equal(t, uint64(2), txSet[2].Tx.SequenceNumber)
		assert.NotNil(t, txSet[0].RespCh)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for tx set")
	}
}

func TestTxCache_PostByTimer(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	tc := NewTxCache(20*time.Millisecond, 100, logger)
	go tc.ListenEvent()
	defer func() { tc.CloseC <- true }()

	tc.RecvTxC <- testTx(0)

	select {
	case txSet := <-tc.TxSetC:
		require.Equal(t, 1, len(txSet))
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for timer flush")
	}
}

func TestTxCache_NilTxIgnored(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	tc := NewTxCache(20*time.Millisecond, 2, logger)
	go tc.ListenEvent()
	defer func() { tc.CloseC <- true }()

	tc.RecvTxC <- nil
	tc.RecvTxC <- &TxWithResp{}
	tc.RecvTxC <- testTx(0)

	select {
	case txSet := <-tc.TxSetC:
		require.Equal(t, 1, len(txSet))
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for flush")
	}
	assert.False(t, tc.IsFull())
}
