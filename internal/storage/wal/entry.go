// Package wal is a file-based journal of submit transactions. Each
// transaction is one <tx_id>.wal.json file, so a restart can find submits
// that never reached a final status.
package wal

import "time"

// Status is the state of a journaled transaction.
type Status string

const (
	StatusPending    Status = "pending"
	StatusCommitted  Status = "committed"
	StatusRolledBack Status = "rolled_back"
)

// Entry is one journaled submit.
type Entry struct {
	TransactionID string     `json:"transaction_id"`
	Product       string     `json:"product"`
	Status        Status     `json:"status"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

func fileName(txID string) string {
	return txID + ".wal.json"
}
