package types

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

func TestTransaction_SignAndVerify(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.Nil(t, err)

	tx := &Transaction{
		SequenceNumber: 3,
		Payload:        []byte("transfer"),
		GasUnitPrice:   10,
		MaxGasAmount:   1000,
		ExpirationTime: 1700000000,
	}
	require.Nil(t, tx.Sign(key))
	require.False(t, tx.Hash().IsZero())
	require.Nil(t, tx.VerifySignature())

	// tampering with any signed field must break verification
	tx.SequenceNumber = 4
	require.NotNil(t, tx.VerifySignature())
}

func TestTransaction_VerifyRejectsWrongSender(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.Nil(t, err)
	other, err := crypto.GenerateKey()
	require.Nil(t, err)

	tx := &Transaction{SequenceNumber: 0, GasUnitPrice: 1, MaxGasAmount: 10}
	require.Nil(t, tx.Sign(key))
	tx.Sender = BytesToAddress(crypto.PubkeyToAddress(other.PublicKey).Bytes())
	require.NotNil(t, tx.VerifySignature())
}

func TestTransaction_HashStable(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.Nil(t, err)

	tx := &Transaction{SequenceNumber: 1, Payload: []byte("p"), GasUnitPrice: 5}
	require.Nil(t, tx.Sign(key))
	h1 := tx.Hash()

	raw, err := tx.Marshal()
	require.Nil(t, err)
	decoded := &Transaction{}
	require.Nil(t, decoded.Unmarshal(raw))
	require.Equal(t, h1, decoded.Hash())
}
