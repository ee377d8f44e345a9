package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"erc20scan/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the Postgres-backed Store.
type Repository struct {
	db *pgxpool.Pool
}

var _ Store = (*Repository)(nil)

func NewRepository(dbURL string) (*Repository, error) {
	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("unable to parse db url: %w", err)
	}

	// Small shared pool; the ingester and the API handlers all draw from it.
	config.MaxConns = 5
	if maxConnStr := os.Getenv("DB_MAX_OPEN_CONNS"); maxConnStr != "" {
		if maxConn, err := strconv.Atoi(maxConnStr); err == nil {
			config.MaxConns = int32(maxConn)
		}
	}
	if minConnStr := os.Getenv("DB_MAX_IDLE_CONNS"); minConnStr != "" {
		if minConn, err := strconv.Atoi(minConnStr); err == nil {
			config.MinConns = int32(minConn)
		}
	}

	// Prevent stale connections from surviving across deployments.
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	return &Repository{db: pool}, nil
}

// Migrate executes the schema file wholesale. The DDL is idempotent.
func (r *Repository) Migrate(schemaPath string) error {
	content, err := os.ReadFile(schemaPath)
	if err != nil {
		return fmt.Errorf("failed to read schema file: %w", err)
	}

	_, err = r.db.Exec(context.Background(), string(content))
	if err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

func (r *Repository) Close() {
	r.db.Close()
}

func (r *Repository) GetLastSavedBlock(ctx context.Context) (*int64, error) {
	var max *int64
	err := r.db.QueryRow(ctx, "SELECT MAX(block_number) FROM transactions").Scan(&max)
	if err != nil {
		return nil, err
	}
	return max, nil
}

func (r *Repository) InsertTransfer(ctx context.Context, t *models.TokenTransfer) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO transactions (tx_hash, log_index, block_number, sender, receiver, value_wei, tx_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (tx_hash, log_index) DO NOTHING`,
		t.TxHash, t.LogIndex, t.BlockNumber, t.Sender, t.Receiver, t.ValueWei, t.TxTime,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transfer %s/%d: %w", t.TxHash, t.LogIndex, err)
	}
	return nil
}

func (r *Repository) GetTransferByHash(ctx context.Context, hash string) (*models.TokenTransfer, error) {
	var t models.TokenTransfer
	err := r.db.QueryRow(ctx, `
		SELECT tx_hash, log_index, block_number, sender, receiver, value_wei, tx_time
		FROM transactions WHERE tx_hash = $1 LIMIT 1`, hash,
	).Scan(&t.TxHash, &t.LogIndex, &t.BlockNumber, &t.Sender, &t.Receiver, &t.ValueWei, &t.TxTime)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *Repository) ListTransfers(ctx context.Context, f models.TransferFilter) ([]models.TokenTransfer, error) {
	query, args := buildListQuery(f)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transfers := make([]models.TokenTransfer, 0)
	for rows.Next() {
		var t models.TokenTransfer
		if err := rows.Scan(&t.TxHash, &t.LogIndex, &t.BlockNumber, &t.Sender, &t.Receiver, &t.ValueWei, &t.TxTime); err != nil {
			return nil, err
		}
		transfers = append(transfers, t)
	}
	return transfers, rows.Err()
}

// buildListQuery translates a TransferFilter into SQL with positional args.
func buildListQuery(f models.TransferFilter) (string, []interface{}) {
	var sb strings.Builder
	sb.WriteString(`SELECT tx_hash, log_index, block_number, sender, receiver, value_wei, tx_time FROM transactions WHERE 1=1`)

	args := make([]interface{}, 0, 7)
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if f.Sender != "" {
		sb.WriteString(" AND sender = " + arg(f.Sender))
	}
	if f.Receiver != "" {
		sb.WriteString(" AND receiver = " + arg(f.Receiver))
	}
	if f.Participant != "" {
		p := arg(f.Participant)
		sb.WriteString(" AND (sender = " + p + " OR receiver = " + arg(f.Participant) + ")")
	}
	if f.StartTime != nil {
		sb.WriteString(" AND tx_time >= " + arg(*f.StartTime))
	}
	if f.EndTime != nil {
		sb.WriteString(" AND tx_time <= " + arg(*f.EndTime))
	}

	sb.WriteString(" ORDER BY block_number DESC, log_index DESC")

	limit, offset := f.Normalize()
	sb.WriteString(" LIMIT " + arg(limit))
	sb.WriteString(" OFFSET " + arg(offset))

	return sb.String(), args
}

// CountTransfers returns the total number of persisted transfers.
func (r *Repository) CountTransfers(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM transactions").Scan(&n)
	return n, err
}

// DeleteAbove removes all rows with block_number > height. The derived
// cursor then rewinds to height+1 on the next ingester start. Used by the
// reset_cursor tool only; the service itself never deletes.
func (r *Repository) DeleteAbove(ctx context.Context, height int64) (int64, error) {
	tag, err := r.db.Exec(ctx, "DELETE FROM transactions WHERE block_number > $1", height)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
