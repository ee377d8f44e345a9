package models

// TokenTransfer is one decoded ERC-20 Transfer log. Rows are append-only;
// (TxHash, LogIndex) is the primary key.
type TokenTransfer struct {
	TxHash      string  `json:"tx_hash"`
	LogIndex    int64   `json:"log_index"`
	BlockNumber int64   `json:"block_number"`
	Sender      string  `json:"sender"`
	Receiver    *string `json:"receiver"`
	ValueWei    string  `json:"value_wei"`
	TxTime      int64   `json:"tx_time"`
}

// TransferFilter describes the optional predicates of the list endpoint.
// All set fields are ANDed together.
type TransferFilter struct {
	Sender      string
	Receiver    string
	Participant string // matches sender OR receiver
	StartTime   *int64 // tx_time >= StartTime
	EndTime     *int64 // tx_time <= EndTime
	Page        int    // 1-based; values < 1 are treated as 1
	PageSize    int    // default 50, clamped to [1, 100]
}

const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// Normalize resolves paging defaults and clamps. It returns the effective
// limit and offset for the query.
func (f TransferFilter) Normalize() (limit, offset int) {
	size := f.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	page := f.Page
	if page < 1 {
		page = 1
	}
	return size, (page - 1) * size
}
