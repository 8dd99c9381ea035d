package execution

import "github.com/praxishq/be-pm-approvals/internal/database"

// Scope carries the tenant boundary and the transaction handle through every
// validator, checker and executor call. All reads and writes the engine
// performs go through Scope.Tx so they commit or roll back as one unit with
// the caller's update of the approval row, and all of them are filtered by
// Scope.FirmID so a cross-firm reference resolves to not found.
type Scope struct {
	FirmID string
	Tx     database.Querier
}

// NewScope builds a scope for one approval execution.
func NewScope(firmID string, tx database.Querier) Scope {
	return Scope{FirmID: firmID, Tx: tx}
}
