package reconfig

import (
	"context"

	"github.com/ethereum/go-ethereum/event"
	"github.com/sirupsen/logrus"

	"github.com/sadullah47/libra/internal/mempool/broadcast"
	"github.com/sadullah47/libra/internal/validator"
)

// Event is an on-chain configuration change relevant to the pool: updated
// admission rules and the current validator set.
type Event struct {
	Epoch    uint64
	GasFloor uint64
	Peers    []string
}

// Bus publishes reconfiguration events to any number of subscribers.
// Publishing is non-blocking with respect to slow subscribers only as far as
// the underlying feed allows; subscribers should drain promptly.
type Bus struct {
	feed event.Feed
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) Publish(ev *Event) int {
	return b.feed.Send(ev)
}

func (b *Bus) Subscribe(ch chan<- *Event) event.Subscription {
	return b.feed.Subscribe(ch)
}

// Listener applies reconfiguration events to the pool's collaborators: the
// admission gas floor and the broadcast peer set. Application is best
// effort; a failed apply is logged and the previous configuration stays in
// force.
type Listener struct {
	bus       *Bus
	precheck  *validator.TxPreCheck
	broadcast *broadcast.Manager
	logger    logrus.FieldLogger
	subscribe func(chan<- *Event) event.Subscription
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewListener(bus *Bus, precheck *validator.TxPreCheck, broadcaster *broadcast.Manager, logger logrus.FieldLogger) *Listener {
	ctx, cancel := context.WithCancel(context.Background())
	return &Listener{
		bus:       bus,
		precheck:  precheck,
		broadcast: broadcaster,
		logger:    logger,
		subscribe: bus.Subscribe,
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (l *Listener) Start() error {
	eventC := make(chan *Event, 16)
	sub := l.subscribe(eventC)
	go l.listenEvent(eventC, sub)
	l.logger.Info("Reconfig listener started")
	return nil
}

func (l *Listener) Stop() {
	l.cancel()
}

func (l *Listener) listenEvent(eventC chan *Event, sub event.Subscription) {
	defer func() { sub.Unsubscribe() }()
	for {
		select {
		case <-l.ctx.Done():
			l.logger.Info("Reconfig listener stopped")
			return

		// a broken subscription is replaced, never left dead
		case err := <-sub.Err():
			if err != nil {
				l.logger.Errorf("Reconfig subscription failed, restarting: %s", err)
			}
			sub.Unsubscribe()
			eventC = make(chan *Event, 16)
			sub = l.subscribe(eventC)

		case ev := <-eventC:
			l.apply(ev)
		}
	}
}

func (l *Listener) apply(ev *Event) {
	if ev.GasFloor != l.precheck.GasFloor() {
		l.precheck.SetGasFloor(ev.GasFloor)
	}
	if len(ev.Peers) > 0 && l.broadcast != nil {
		l.broadcast.UpdatePeers(ev.Peers)
	}
	l.logger.WithFields(logrus.Fields{
		"epoch":     ev.Epoch,
		"gas_floor": ev.GasFloor,
		"peers":     len(ev.Peers),
	}).Info("Applied reconfiguration")
}
