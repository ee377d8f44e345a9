package ingester

import (
	"context"
	"fmt"
	"log"
	"time"

	"erc20scan/internal/eventbus"
	"erc20scan/internal/repository"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ChainClient is the slice of the RPC surface the ingester consumes.
// *ethereum.Client satisfies it in production; tests use a scripted fake.
type ChainClient interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
	FilterTransferLogs(ctx context.Context, token common.Address, from, to uint64) ([]types.Log, error)
}

type Config struct {
	TokenAddress string
	StartBlock   uint64
	BatchSize    uint64

	// PaceInterval spaces successful batches, RetryInterval backs off
	// transient provider errors, PollInterval waits for new blocks when
	// caught up, StartupRetryInterval delays exit on startup failures.
	PaceInterval         time.Duration
	RetryInterval        time.Duration
	PollInterval         time.Duration
	StartupRetryInterval time.Duration
}

// Service tails the chain for Transfer logs of one token contract and
// persists them. A single instance runs per process; the cursor is local
// to the scan loop and derived from the store on startup.
type Service struct {
	client ChainClient
	store  repository.Store
	bus    *eventbus.Bus
	config Config
}

func NewService(client ChainClient, store repository.Store, bus *eventbus.Bus, cfg Config) *Service {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 50
	}
	if cfg.PaceInterval == 0 {
		cfg.PaceInterval = 1 * time.Second
	}
	if cfg.RetryInterval == 0 {
		cfg.RetryInterval = 5 * time.Second
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 10 * time.Second
	}
	if cfg.StartupRetryInterval == 0 {
		cfg.StartupRetryInterval = 10 * time.Second
	}
	return &Service{
		client: client,
		store:  store,
		bus:    bus,
		config: cfg,
	}
}

// Start resumes the cursor and runs the scan loop until ctx is cancelled.
// A config error is permanent; startup storage/provider errors are returned
// after a delay so a supervisor can respawn the task.
func (s *Service) Start(ctx context.Context) error {
	if !common.IsHexAddress(s.config.TokenAddress) {
		return fmt.Errorf("invalid token contract address: %q", s.config.TokenAddress)
	}
	token := common.HexToAddress(s.config.TokenAddress)

	cursor, err := s.resume(ctx)
	if err != nil {
		log.Printf("[ingester] startup failed: %v", err)
		s.sleep(ctx, s.config.StartupRetryInterval)
		return err
	}

	log.Printf("[ingester] starting scan from block %d", cursor)
	return s.scan(ctx, token, cursor)
}

// resume derives the first block to scan: one past the highest saved block,
// floored by the configured start block. A completely fresh deployment with
// no configured start begins at the current chain head.
func (s *Service) resume(ctx context.Context) (uint64, error) {
	last, err := s.store.GetLastSavedBlock(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read last saved block: %w", err)
	}

	var cursor uint64
	if last != nil {
		cursor = uint64(*last) + 1
		log.Printf("[ingester] resuming from saved block %d", cursor)
	}
	if s.config.StartBlock > cursor {
		cursor = s.config.StartBlock
	}

	if cursor == 0 {
		head, err := s.client.LatestBlockNumber(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to get chain head: %w", err)
		}
		cursor = head
		log.Printf("[ingester] database empty, starting from chain head %d", cursor)
	}
	return cursor, nil
}

func (s *Service) scan(ctx context.Context, token common.Address, cursor uint64) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		head, err := s.client.LatestBlockNumber(ctx)
		if err != nil {
			log.Printf("[ingester] error fetching chain head: %v", err)
			s.sleep(ctx, s.config.RetryInterval)
			continue
		}

		if cursor > head {
			// Caught up; wait for new blocks.
			s.sleep(ctx, s.config.PollInterval)
			continue
		}

		toBlock := cursor + s.config.BatchSize - 1
		if toBlock > head {
			toBlock = head
		}

		logs, err := s.client.FilterTransferLogs(ctx, token, cursor, toBlock)
		if err != nil {
			log.Printf("[ingester] error fetching logs [%d, %d]: %v", cursor, toBlock, err)
			s.sleep(ctx, s.config.RetryInterval)
			continue
		}

		if len(logs) > 0 {
			// One header fetch per batch: every log is stamped with the
			// to_block timestamp. Within-batch skew is bounded by the
			// batch size and acceptable for analytics queries.
			blockTime, err := s.client.BlockTimestamp(ctx, toBlock)
			if err != nil {
				log.Printf("[ingester] error fetching header %d: %v", toBlock, err)
				s.sleep(ctx, s.config.RetryInterval)
				continue
			}
			s.persistBatch(ctx, logs, blockTime)
			log.Printf("[ingester] scanned [%d, %d]: %d transfers", cursor, toBlock, len(logs))
		}

		cursor = toBlock + 1
		s.sleep(ctx, s.config.PaceInterval)
	}
}

// persistBatch decodes and writes each log. Decode and insert failures are
// logged and skipped: inserts are idempotent, so a later rescan of the same
// range repairs any gap without creating duplicates.
func (s *Service) persistBatch(ctx context.Context, logs []types.Log, blockTime uint64) {
	for _, lg := range logs {
		transfer, err := decodeTransferLog(lg, blockTime)
		if err != nil {
			log.Printf("[ingester] skipping malformed log %s/%d: %v", lg.TxHash.Hex(), lg.Index, err)
			continue
		}
		if err := s.store.InsertTransfer(ctx, transfer); err != nil {
			log.Printf("[ingester] failed to insert transfer %s/%d: %v", transfer.TxHash, transfer.LogIndex, err)
			continue
		}
		if s.bus != nil {
			s.bus.Publish(*transfer)
		}
	}
}

// sleep blocks for d or until ctx is cancelled, whichever comes first.
func (s *Service) sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
