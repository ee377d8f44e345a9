package repository

import (
	"context"
	"errors"

	"erc20scan/internal/models"
)

// ErrNotFound is returned by point lookups when no row matches.
var ErrNotFound = errors.New("not found")

// Store is the persistence capability set shared by the ingester and the API.
// The ingester only writes; the API only reads. A Postgres implementation
// backs production and MemoryStore backs tests.
type Store interface {
	// GetLastSavedBlock returns the highest block_number present, or
	// (nil, nil) when the table is empty.
	GetLastSavedBlock(ctx context.Context) (*int64, error)

	// InsertTransfer upserts with DO NOTHING semantics: success means the
	// row is present, whether this call wrote it or an earlier one did.
	InsertTransfer(ctx context.Context, t *models.TokenTransfer) error

	// GetTransferByHash returns one transfer for the hash, or ErrNotFound.
	// When several logs share a tx hash, which row is returned is
	// unspecified.
	GetTransferByHash(ctx context.Context, hash string) (*models.TokenTransfer, error)

	// ListTransfers returns transfers matching every set filter, ordered
	// by (block_number DESC, log_index DESC) and paginated.
	ListTransfers(ctx context.Context, f models.TransferFilter) ([]models.TokenTransfer, error)
}
