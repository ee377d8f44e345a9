package ethereum

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// TransferTopic is topic[0] of the ERC-20 Transfer event:
// 0xddf252ad1e2e17e822157743b01e6a43b3b4f5144e1176b68b7320015b28de64
var TransferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// Client wraps the go-ethereum JSON-RPC client with the three calls the
// ingester needs.
type Client struct {
	eth *ethclient.Client
}

// NewClient dials the JSON-RPC endpoint.
func NewClient(ctx context.Context, url string) (*Client, error) {
	c, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rpc endpoint: %w", err)
	}
	return &Client{eth: c}, nil
}

// LatestBlockNumber returns the current chain head height.
func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	n, err := c.eth.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get block number: %w", err)
	}
	return n, nil
}

// BlockTimestamp returns the timestamp of the block at the given height.
func (c *Client) BlockTimestamp(ctx context.Context, number uint64) (uint64, error) {
	header, err := c.eth.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return 0, fmt.Errorf("failed to get header %d: %w", number, err)
	}
	if header == nil {
		return 0, fmt.Errorf("block %d not found", number)
	}
	return header.Time, nil
}

// FilterTransferLogs returns the Transfer logs emitted by the token contract
// in the inclusive block range [from, to].
func (c *Client) FilterTransferLogs(ctx context.Context, token common.Address, from, to uint64) ([]types.Log, error) {
	q := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{token},
		Topics:    [][]common.Hash{{TransferTopic}},
	}
	logs, err := c.eth.FilterLogs(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to filter logs [%d, %d]: %w", from, to, err)
	}
	return logs, nil
}

// Close closes the underlying connection.
func (c *Client) Close() {
	c.eth.Close()
}
