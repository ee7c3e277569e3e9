package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/riskibarqy/card-arena/internal/domain/ledger"
)

type holdState string

const (
	holdActive   holdState = "active"
	holdReleased holdState = "released"
	holdCaptured holdState = "captured"
)

type holdRecord struct {
	userID    string
	amount    int64
	reference string
	state     holdState
}

// Ledger is an in-memory escrow double used by tests and dev mode. It
// mirrors the account service contract: finalizing an already-finalized
// hold is a no-op success.
type Ledger struct {
	mu       sync.Mutex
	balances map[string]int64
	holds    map[string]holdRecord
	seq      int
}

func NewLedger() *Ledger {
	return &Ledger{
		balances: make(map[string]int64),
		holds:    make(map[string]holdRecord),
	}
}

func (l *Ledger) Credit(userID string, amount int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[userID] += amount
}

func (l *Ledger) Balance(userID string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[userID]
}

func (l *Ledger) Hold(_ context.Context, userID string, amount int64, reference string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if amount <= 0 {
		return "", fmt.Errorf("hold amount must be > 0")
	}
	if l.balances[userID] < amount {
		return "", fmt.Errorf("%w: user=%s amount=%d", ledger.ErrInsufficientBalance, userID, amount)
	}

	l.balances[userID] -= amount
	l.seq++
	holdID := fmt.Sprintf("hold-%d", l.seq)
	l.holds[holdID] = holdRecord{
		userID:    userID,
		amount:    amount,
		reference: reference,
		state:     holdActive,
	}

	return holdID, nil
}

func (l *Ledger) Release(_ context.Context, holdID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	record, ok := l.holds[holdID]
	if !ok {
		return fmt.Errorf("%w: %s", ledger.ErrHoldNotFound, holdID)
	}
	if record.state != holdActive {
		return nil
	}

	l.balances[record.userID] += record.amount
	record.state = holdReleased
	l.holds[holdID] = record

	return nil
}

func (l *Ledger) Capture(_ context.Context, holdID, toUserID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	record, ok := l.holds[holdID]
	if !ok {
		return fmt.Errorf("%w: %s", ledger.ErrHoldNotFound, holdID)
	}
	if record.state != holdActive {
		return nil
	}

	l.balances[toUserID] += record.amount
	record.state = holdCaptured
	l.holds[holdID] = record

	return nil
}
