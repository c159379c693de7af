package validator

import "github.com/sadullah47/libra/pkg/types"

var _ StateProvider = (*DevStateProvider)(nil)

// DevStateProvider grants every account the same balance and a zero
// sequence number. Development runs only; production nodes query the
// ledger.
type DevStateProvider struct {
	Balance uint64
}

func (p *DevStateProvider) AccountState(addr types.Address) AccountState {
	return AccountState{SequenceNumber: 0, Balance: p.Balance}
}
