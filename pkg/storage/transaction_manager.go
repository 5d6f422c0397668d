package storage

import (
	"math"
	"sync"
)

// TransactionRegistry tracks active transactions so the commit log knows
// how far back it must keep validation history. A commit log entry with
// LSN < minActiveLSN can never again be consulted by Validate: every
// future transaction's SnapshotLSN will be >= the current LSN > that
// entry's LSN, and every still-active transaction already has
// SnapshotLSN >= minActiveLSN, so its Validate scan never reaches that
// far back either.
type TransactionRegistry struct {
	mu           sync.Mutex
	activeTxns   map[*Transaction]struct{}
	minActiveLSN uint64
}

func NewTransactionRegistry() *TransactionRegistry {
	return &TransactionRegistry{
		activeTxns:   make(map[*Transaction]struct{}),
		minActiveLSN: math.MaxUint64,
	}
}

// Register adds a transaction to the registry.
func (tr *TransactionRegistry) Register(tx *Transaction) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	tr.activeTxns[tx] = struct{}{}
	if tx.SnapshotLSN < tr.minActiveLSN {
		tr.minActiveLSN = tx.SnapshotLSN
	}
}

// Unregister removes a transaction from the registry.
func (tr *TransactionRegistry) Unregister(tx *Transaction) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	delete(tr.activeTxns, tx)

	if len(tr.activeTxns) == 0 {
		tr.minActiveLSN = math.MaxUint64
		return
	}

	min := uint64(math.MaxUint64)
	for t := range tr.activeTxns {
		if t.SnapshotLSN < min {
			min = t.SnapshotLSN
		}
	}
	tr.minActiveLSN = min
}

// GetMinActiveLSN returns the smallest SnapshotLSN among all active
// transactions, or MaxUint64 if none are active.
func (tr *TransactionRegistry) GetMinActiveLSN() uint64 {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.minActiveLSN
}
