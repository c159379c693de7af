package peermgr

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/event"

	"github.com/sadullah47/libra/pkg/types"
)

// MessageType discriminates mempool wire messages.
type MessageType int32

const (
	Message_BROADCAST_TX MessageType = iota
	Message_BROADCAST_TX_ACK
)

// Message is the envelope exchanged with peer validators. The transport that
// carries it is external; the pool only marshals and hands it off.
type Message struct {
	Type MessageType `json:"type"`
	From string      `json:"from"`
	Data []byte      `json:"data"`
}

func (m *Message) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

func (m *Message) Unmarshal(data []byte) error {
	return json.Unmarshal(data, m)
}

// TxBatch is the payload of a Message_BROADCAST_TX message: a contiguous
// timeline chunk identified by the highest timeline id it carries.
type TxBatch struct {
	BatchID uint64               `json:"batch_id"`
	TxList  []*types.Transaction `json:"tx_list"`
}

func (b *TxBatch) Marshal() ([]byte, error) {
	return json.Marshal(b)
}

func (b *TxBatch) Unmarshal(data []byte) error {
	return json.Unmarshal(data, b)
}

// TxBatchAck is the payload of a Message_BROADCAST_TX_ACK message.
type TxBatchAck struct {
	BatchID uint64 `json:"batch_id"`
}

func (a *TxBatchAck) Marshal() ([]byte, error) {
	return json.Marshal(a)
}

func (a *TxBatchAck) Unmarshal(data []byte) error {
	return json.Unmarshal(data, a)
}

// MessageEvent is an inbound message delivered by the transport.
type MessageEvent struct {
	From string
	Msg  *Message
}

// PeerManager is the capability the external network layer exposes to the
// pool. Implementations own connection management; the pool only addresses
// peers by id.
type PeerManager interface {
	// Start
	Start() error

	// Stop
	Stop() error

	// AsyncSend sends message to peer with peer id, without waiting a reply.
	AsyncSend(to string, msg *Message) error

	// Peers returns ids of currently connected peers.
	Peers() []string

	// SubscribeMessage delivers inbound mempool messages to ch.
	SubscribeMessage(ch chan<- MessageEvent) event.Subscription
}
