package consensus

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadullah47/libra/internal/mempool"
	"github.com/sadullah47/libra/internal/validator"
	"github.com/sadullah47/libra/pkg/types"
)

type acceptAll struct{}

func (acceptAll) Validate(tx *types.Transaction, state validator.AccountState) validator.Status {
	return validator.StatusOK
}

type zeroState struct{}

func (zeroState) AccountState(addr types.Address) validator.AccountState {
	return validator.AccountState{SequenceNumber: 0, Balance: ^uint64(0)}
}

func testServer(t *testing.T) (*Server, mempool.MemPool) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	pool := mempool.New(&mempool.Config{
		PoolSize:      1024,
		AccountSlots:  64,
		LockTimeout:   100 * time.Millisecond,
		Logger:        logger,
		Validator:     acceptAll{},
		StateProvider: zeroState{},
	})
	server := New(pool, logger)
	require.Nil(t, server.Start())
	t.Cleanup(server.Stop)
	return server, pool
}

func submit(t *testing.T, pool mempool.MemPool, sender byte, seq uint64, gasPrice uint64) *types.Transaction {
	t.Helper()
	tx := &types.Transaction{
		Sender:         types.Address{sender},
		SequenceNumber: seq,
		GasUnitPrice:   gasPrice,
		MaxGasAmount:   100,
		ExpirationTime: time.Now().Add(time.Hour).Unix(),
		Signature:      []byte{sender, byte(seq), byte(gasPrice)},
	}
	tx.Hash()
	status, err := pool.ProcessTransaction(tx, true)
	require.Nil(t, err)
	require.Equal(t, mempool.Accepted, status.Outcome)
	return tx
}

func getBlock(t *testing.T, server *Server, maxSize uint64, exclude map[mempool.AccountSequence]bool) *GetBlockResponse {
	t.Helper()
	req := &GetBlockRequest{
		MaxBlockSize: maxSize,
		Exclude:      exclude,
		RespC:        make(chan *GetBlockResponse, 1),
	}
	server.GetBlockC <- req
	select {
	case resp := <-req.RespC:
		return resp
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for block response")
		return nil
	}
}

func TestServer_GetBlock(t *testing.T) {
	server, pool := testServer(t)
	submit(t, pool, 0x01, 0, 10)
	submit(t, pool, 0x01, 1, 10)
	submit(t, pool, 0x02, 0, 20)

	resp := getBlock(t, server, 2, nil)
	require.Equal(t, StatusOK, resp.Status)
	require.Equal(t, 2, len(resp.Txs))
	assert.Equal(t, uint64(20), resp.Txs[0].GasUnitPrice)

	resp = getBlock(t, server, 10, nil)
	require.Equal(t, StatusOK, resp.Status)
	assert.Equal(t, 3, len(resp.Txs))
}

func TestServer_GetBlockZeroSize(t *testing.T) {
	server, _ := testServer(t)
	resp := getBlock(t, server, 0, nil)
	assert.Equal(t, StatusInvalidRequest, resp.Status)
	assert.NotNil(t, resp.Err)
}

func TestServer_GetBlockExclude(t *testing.T) {
	server, pool := testServer(t)
	tx := submit(t, pool, 0x01, 0, 10)
	submit(t, pool, 0x01, 1, 10)

	exclude := map[mempool.AccountSequence]bool{
		{Sender: tx.Sender, SequenceNumber: 0}: true,
	}
	resp := getBlock(t, server, 10, exclude)
	require.Equal(t, StatusOK, resp.Status)
	assert.Equal(t, 0, len(resp.Txs))
}

func TestServer_AbandonedRequestDoesNotBlockStop(t *testing.T) {
	server, pool := testServer(t)
	submit(t, pool, 0x01, 0, 10)

	// the requester walks away without ever reading its response
	server.GetBlockC <- &GetBlockRequest{
		MaxBlockSize: 1,
		RespC:        make(chan *GetBlockResponse),
	}

	stopped := make(chan struct{})
	go func() {
		server.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("server loop pinned by an abandoned response channel")
	}
}

func TestServer_Reject(t *testing.T) {
	server, pool := testServer(t)
	tx := submit(t, pool, 0x01, 0, 10)

	notify := &RejectNotification{
		Txs:    []mempool.AccountSequence{{Sender: tx.Sender, SequenceNumber: 0}},
		Reason: "proposal dropped",
		RespC:  make(chan error, 1),
	}
	server.RejectC <- notify
	select {
	case err := <-notify.RespC:
		require.Nil(t, err)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for reject response")
	}
	assert.Equal(t, uint64(0), pool.PoolSize())

	// rejected sequence numbers stay resubmittable
	submit(t, pool, 0x01, 0, 10)
	assert.Equal(t, uint64(1), pool.PoolSize())
}
