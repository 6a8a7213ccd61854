package types

import "time"

// LifecycleStatus is the unified status of a submitted swap or bridge
type LifecycleStatus string

const (
	StatusIdle             LifecycleStatus = "idle"
	StatusSubmitted        LifecycleStatus = "submitted"
	StatusConfirmingSource LifecycleStatus = "confirming_source"
	StatusAwaitingFill     LifecycleStatus = "awaiting_fill"
	StatusFilled           LifecycleStatus = "filled"
	StatusFailed           LifecycleStatus = "failed"
	StatusBlocked          LifecycleStatus = "blocked"
	StatusUserCancelled    LifecycleStatus = "user_cancelled"
	StatusMaxRetries       LifecycleStatus = "max_retries_exceeded"
	StatusFillTimeout      LifecycleStatus = "fill_timeout"
)

// Terminal reports whether no further polling happens in this status
func (s LifecycleStatus) Terminal() bool {
	switch s {
	case StatusFilled, StatusFailed, StatusBlocked, StatusUserCancelled, StatusMaxRetries, StatusFillTimeout:
		return true
	default:
		return false
	}
}

// TxLifecycle tracks one submitted transaction from the source chain to its fill.
// ToTxHash is only set once the order is filled, or equals FromTxHash for a
// same-chain swap.
type TxLifecycle struct {
	ID            string          `json:"id"`
	FromChainID   int64           `json:"from_chain_id"`
	ToChainID     int64           `json:"to_chain_id"`
	FromTxHash    string          `json:"from_tx_hash,omitempty"`
	ToTxHash      string          `json:"to_tx_hash,omitempty"`
	OrderID       string          `json:"order_id,omitempty"`
	Status        LifecycleStatus `json:"status"`
	UserCancelled bool            `json:"user_cancelled"`
	Message       string          `json:"message,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// SameChain reports whether there is no destination leg to track
func (l TxLifecycle) SameChain() bool {
	return l.FromChainID == l.ToChainID
}
