package ingester

import (
	"fmt"
	"math/big"

	"erc20scan/internal/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// decodeTransferLog turns a raw Transfer log into a TokenTransfer. A
// well-formed log carries exactly three topics (signature, from, to) and a
// 32-byte big-endian value in the data payload. blockTime is the batch
// timestamp; see Service for why it is not the log's own block time.
func decodeTransferLog(lg types.Log, blockTime uint64) (*models.TokenTransfer, error) {
	if len(lg.Topics) != 3 {
		return nil, fmt.Errorf("expected 3 topics, got %d", len(lg.Topics))
	}

	// Topics hold 32-byte words; addresses are the rightmost 20 bytes.
	sender := common.BytesToAddress(lg.Topics[1].Bytes()).Hex()
	receiver := common.BytesToAddress(lg.Topics[2].Bytes()).Hex()
	value := new(big.Int).SetBytes(lg.Data)

	return &models.TokenTransfer{
		TxHash:      lg.TxHash.Hex(),
		LogIndex:    int64(lg.Index),
		BlockNumber: int64(lg.BlockNumber),
		Sender:      sender,
		Receiver:    &receiver,
		ValueWei:    value.String(),
		TxTime:      int64(blockTime),
	}, nil
}
