package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"erc20scan/internal/models"
	"erc20scan/internal/repository"

	"github.com/gorilla/mux"
)

func strPtr(s string) *string { return &s }

func seedStore(t *testing.T, rows ...models.TokenTransfer) *repository.MemoryStore {
	t.Helper()
	store := repository.NewMemoryStore()
	for i := range rows {
		if err := store.InsertTransfer(context.Background(), &rows[i]); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return store
}

func row(block, logIdx int64, sender, receiver string, time int64) models.TokenTransfer {
	return models.TokenTransfer{
		TxHash:      fmt.Sprintf("0xhash%d_%d", block, logIdx),
		LogIndex:    logIdx,
		BlockNumber: block,
		Sender:      sender,
		Receiver:    strPtr(receiver),
		ValueWei:    "1",
		TxTime:      time,
	}
}

func TestHandleGetTransaction(t *testing.T) {
	store := seedStore(t, row(10, 0, "0xa", "0xb", 100))
	s := &Server{store: store}

	req := httptest.NewRequest("GET", "/transactions/0xhash10_0", nil)
	req = mux.SetURLVars(req, map[string]string{"hash": "0xhash10_0"})
	rec := httptest.NewRecorder()

	s.handleGetTransaction(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got models.TokenTransfer
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if got.TxHash != "0xhash10_0" || got.Sender != "0xa" || got.ValueWei != "1" {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestHandleGetTransactionNotFound(t *testing.T) {
	s := &Server{store: repository.NewMemoryStore()}

	req := httptest.NewRequest("GET", "/transactions/0xmissing", nil)
	req = mux.SetURLVars(req, map[string]string{"hash": "0xmissing"})
	rec := httptest.NewRecorder()

	s.handleGetTransaction(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandleListTransactionsParticipant(t *testing.T) {
	store := seedStore(t,
		row(10, 0, "A", "B", 100),
		row(11, 0, "B", "C", 110),
		row(12, 0, "A", "C", 120),
	)
	s := &Server{store: store}

	req := httptest.NewRequest("GET", "/transactions?participant=A", nil)
	rec := httptest.NewRecorder()

	s.handleListTransactions(rec, req)

	var got []models.TokenTransfer
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	if got[0].BlockNumber != 12 || got[1].BlockNumber != 10 {
		t.Fatalf("expected blocks [12, 10], got [%d, %d]", got[0].BlockNumber, got[1].BlockNumber)
	}
}

func TestHandleListTransactionsEmptyIsArray(t *testing.T) {
	s := &Server{store: repository.NewMemoryStore()}

	req := httptest.NewRequest("GET", "/transactions", nil)
	rec := httptest.NewRecorder()

	s.handleListTransactions(rec, req)

	if body := rec.Body.String(); body != "[]\n" {
		t.Fatalf("expected empty JSON array, got %q", body)
	}
}

func TestHandleListTransactionsBadParams(t *testing.T) {
	s := &Server{store: repository.NewMemoryStore()}

	for _, query := range []string{
		"start_time=abc",
		"end_time=abc",
		"page=abc",
		"page_size=abc",
	} {
		req := httptest.NewRequest("GET", "/transactions?"+query, nil)
		rec := httptest.NewRecorder()

		s.handleListTransactions(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", query, rec.Code)
		}
	}
}

func TestHandleListTransactionsPageSizeClamp(t *testing.T) {
	store := repository.NewMemoryStore()
	for b := int64(1); b <= 150; b++ {
		r := row(b, 0, "A", "B", b)
		store.InsertTransfer(context.Background(), &r)
	}
	s := &Server{store: store}

	req := httptest.NewRequest("GET", "/transactions?page_size=500", nil)
	rec := httptest.NewRecorder()

	s.handleListTransactions(rec, req)

	var got []models.TokenTransfer
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(got) != 100 {
		t.Fatalf("expected page_size clamped to 100, got %d rows", len(got))
	}
}

func TestParseTransferFilterTimeWindow(t *testing.T) {
	req := httptest.NewRequest("GET", "/transactions?start_time=100&end_time=200&page=2&page_size=10", nil)

	f, err := parseTransferFilter(req)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if f.StartTime == nil || *f.StartTime != 100 {
		t.Errorf("start_time = %v, want 100", f.StartTime)
	}
	if f.EndTime == nil || *f.EndTime != 200 {
		t.Errorf("end_time = %v, want 200", f.EndTime)
	}
	if f.Page != 2 || f.PageSize != 10 {
		t.Errorf("page/page_size = %d/%d, want 2/10", f.Page, f.PageSize)
	}
}

func TestCORSHeader(t *testing.T) {
	handler := commonMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/transactions", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("Access-Control-Allow-Origin = %q, want *", got)
	}

	// Preflight short-circuits.
	req = httptest.NewRequest("OPTIONS", "/transactions", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("preflight status = %d, want 200", rec.Code)
	}
}

func TestHandleStatus(t *testing.T) {
	store := seedStore(t, row(42, 0, "A", "B", 100))
	s := &Server{store: store, chain: stubChain{head: 50}}

	req := httptest.NewRequest("GET", "/status", nil)
	rec := httptest.NewRecorder()

	s.handleStatus(rec, req)

	var got map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if got["last_saved_block"] != float64(42) {
		t.Errorf("last_saved_block = %v, want 42", got["last_saved_block"])
	}
	if got["chain_head"] != float64(50) {
		t.Errorf("chain_head = %v, want 50", got["chain_head"])
	}
	if got["blocks_behind"] != float64(8) {
		t.Errorf("blocks_behind = %v, want 8", got["blocks_behind"])
	}
}

type stubChain struct {
	head uint64
}

func (s stubChain) LatestBlockNumber(ctx context.Context) (uint64, error) {
	return s.head, nil
}

func TestHubBroadcast(t *testing.T) {
	h := newHub()
	go h.run()

	client := &wsClient{hub: h, send: make(chan []byte, 1)}
	h.register <- client

	h.broadcast <- []byte(`{"tx_hash":"0x1"}`)

	select {
	case msg := <-client.send:
		if string(msg) != `{"tx_hash":"0x1"}` {
			t.Fatalf("unexpected payload: %s", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("expected broadcast delivery")
	}
}
