package types

import (
	"crypto/ecdsa"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// Transaction is a signed user transaction. It is immutable once admitted to
// the pool; all fields are set by the submitter and never rewritten.
type Transaction struct {
	Sender          Address `json:"sender"`
	SequenceNumber  uint64  `json:"sequence_number"`
	Payload         []byte  `json:"payload"`
	GasUnitPrice    uint64  `json:"gas_unit_price"`
	MaxGasAmount    uint64  `json:"max_gas_amount"`
	ExpirationTime  int64   `json:"expiration_time"` // unix seconds
	Signature       []byte  `json:"signature"`
	TransactionHash Hash    `json:"transaction_hash"`
}

// SignHash is the digest covered by the signature: every field except the
// signature and the content hash itself.
func (tx *Transaction) SignHash() Hash {
	buf := make([]byte, 0, AddressLength+8*4+len(tx.Payload))
	buf = append(buf, tx.Sender.Bytes()...)
	buf = appendUint64(buf, tx.SequenceNumber)
	buf = appendUint64(buf, tx.GasUnitPrice)
	buf = appendUint64(buf, tx.MaxGasAmount)
	buf = appendUint64(buf, uint64(tx.ExpirationTime))
	buf = append(buf, tx.Payload...)
	return BytesToHash(crypto.Keccak256(buf))
}

// Hash returns the content hash, computing and caching it on first use.
func (tx *Transaction) Hash() Hash {
	if !tx.TransactionHash.IsZero() {
		return tx.TransactionHash
	}
	data := append(tx.SignHash().Bytes(), tx.Signature...)
	tx.TransactionHash = BytesToHash(crypto.Keccak256(data))
	return tx.TransactionHash
}

// Sign signs the transaction with the given key, fills in the sender address
// derived from the key and the content hash.
func (tx *Transaction) Sign(key *ecdsa.PrivateKey) error {
	tx.Sender = BytesToAddress(crypto.PubkeyToAddress(key.PublicKey).Bytes())
	sig, err := crypto.Sign(tx.SignHash().Bytes(), key)
	if err != nil {
		return errors.Wrap(err, "sign transaction")
	}
	tx.Signature = sig
	tx.TransactionHash = Hash{}
	tx.Hash()
	return nil
}

// VerifySignature recovers the signer from the signature and checks it
// matches the claimed sender.
func (tx *Transaction) VerifySignature() error {
	if len(tx.Signature) != crypto.SignatureLength {
		return fmt.Errorf("invalid signature length %d", len(tx.Signature))
	}
	pub, err := crypto.SigToPub(tx.SignHash().Bytes(), tx.Signature)
	if err != nil {
		return errors.Wrap(err, "recover public key")
	}
	signer := BytesToAddress(crypto.PubkeyToAddress(*pub).Bytes())
	if signer != tx.Sender {
		return fmt.Errorf("signer %s does not match sender %s", signer, tx.Sender)
	}
	return nil
}

func (tx *Transaction) Marshal() ([]byte, error) {
	return json.Marshal(tx)
}

func (tx *Transaction) Unmarshal(data []byte) error {
	return json.Unmarshal(data, tx)
}

func appendUint64(b []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(b, tmp[:]...)
}
