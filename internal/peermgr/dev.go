package peermgr

import (
	"github.com/ethereum/go-ethereum/event"
	"github.com/sirupsen/logrus"
)

var _ PeerManager = (*DevPeerMgr)(nil)

// DevPeerMgr is an in-process stand-in for the real transport, used by
// single-node development runs. Sends are logged and dropped; Inject feeds
// messages to subscribers as if they arrived from the network.
type DevPeerMgr struct {
	peers  []string
	feed   event.Feed
	logger logrus.FieldLogger
}

func NewDevPeerMgr(peers []string, logger logrus.FieldLogger) *DevPeerMgr {
	return &DevPeerMgr{peers: peers, logger: logger}
}

func (d *DevPeerMgr) Start() error { return nil }
func (d *DevPeerMgr) Stop() error  { return nil }

func (d *DevPeerMgr) AsyncSend(to string, msg *Message) error {
	d.logger.WithFields(logrus.Fields{
		"to":   to,
		"type": msg.Type,
	}).Debug("Dropping outbound message in dev mode")
	return nil
}

func (d *DevPeerMgr) Peers() []string { return d.peers }

func (d *DevPeerMgr) SubscribeMessage(ch chan<- MessageEvent) event.Subscription {
	return d.feed.Subscribe(ch)
}

// Inject delivers a message to subscribers, bypassing the network.
func (d *DevPeerMgr) Inject(ev MessageEvent) int {
	return d.feed.Send(ev)
}
