// Package sheets defines the outbound ports for the external ledger
// archive. The production adapter lives in sheets/google.
package sheets

import (
	"context"

	"cassa/internal/core"
)

type (
	// ArchiveWriter appends ledger rows to the external archive.
	ArchiveWriter interface {
		AppendGrocery(ctx context.Context, g core.GroceryItem) error
		AppendDeposit(ctx context.Context, d core.Deposit) error
	}

	// ArchiveRemover clears archive rows for entries deleted locally.
	ArchiveRemover interface {
		RemoveEntry(ctx context.Context, id string) error
	}
)
