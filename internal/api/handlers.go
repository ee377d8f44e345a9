package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"erc20scan/internal/models"
	"erc20scan/internal/repository"

	"github.com/gorilla/mux"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	out := map[string]interface{}{}

	last, err := s.store.GetLastSavedBlock(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if last != nil {
		out["last_saved_block"] = *last
	} else {
		out["last_saved_block"] = nil
	}

	if counter, ok := s.store.(interface {
		CountTransfers(ctx context.Context) (int64, error)
	}); ok {
		if n, err := counter.CountTransfers(ctx); err == nil {
			out["total_transfers"] = n
		}
	}

	if s.chain != nil {
		headCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if head, err := s.chain.LatestBlockNumber(headCtx); err == nil {
			out["chain_head"] = head
			if last != nil && head >= uint64(*last) {
				out["blocks_behind"] = head - uint64(*last)
			}
		}
	}

	writeJSON(w, out)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	hash := mux.Vars(r)["hash"]

	transfer, err := s.store.GetTransferByHash(r.Context(), hash)
	if errors.Is(err, repository.ErrNotFound) {
		http.Error(w, "transaction not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, transfer)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := parseTransferFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	transfers, err := s.store.ListTransfers(r.Context(), filter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, transfers)
}

func parseTransferFilter(r *http.Request) (models.TransferFilter, error) {
	q := r.URL.Query()
	f := models.TransferFilter{
		Sender:      q.Get("sender"),
		Receiver:    q.Get("receiver"),
		Participant: q.Get("participant"),
	}

	var err error
	if f.StartTime, err = parseInt64Param(q.Get("start_time"), "start_time"); err != nil {
		return f, err
	}
	if f.EndTime, err = parseInt64Param(q.Get("end_time"), "end_time"); err != nil {
		return f, err
	}
	if f.Page, err = parseIntParam(q.Get("page"), "page"); err != nil {
		return f, err
	}
	if f.PageSize, err = parseIntParam(q.Get("page_size"), "page_size"); err != nil {
		return f, err
	}
	return f, nil
}

func parseInt64Param(val, name string) (*int64, error) {
	if val == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return nil, errors.New("invalid " + name)
	}
	return &n, nil
}

func parseIntParam(val, name string) (int, error) {
	if val == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, errors.New("invalid " + name)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
