package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"erc20scan/internal/eventbus"
	"erc20scan/internal/models"
	"erc20scan/internal/repository"

	"github.com/gorilla/mux"
)

// ChainReader is the read-only RPC surface the status endpoint uses.
type ChainReader interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
}

type Server struct {
	store      repository.Store
	chain      ChainReader
	bus        *eventbus.Bus
	hub        *Hub
	httpServer *http.Server
}

// NewServer wires the router. chain and bus are optional; without a bus the
// /ws feed stays silent, without a chain client /status omits the head.
func NewServer(store repository.Store, chain ChainReader, bus *eventbus.Bus, port string) *Server {
	r := mux.NewRouter()

	s := &Server{
		store: store,
		chain: chain,
		bus:   bus,
		hub:   newHub(),
	}

	r.Use(commonMiddleware)
	r.Use(rateLimitMiddleware)

	registerRoutes(r, s)

	s.httpServer = &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: r,
	}

	return s
}

// Start runs the websocket hub, the bus-to-hub forwarder, and the HTTP
// listener. It blocks until the listener stops.
func (s *Server) Start() error {
	go s.hub.run()
	if s.bus != nil {
		ch := make(chan models.TokenTransfer, 256)
		s.bus.Subscribe(ch)
		go func() {
			for t := range ch {
				payload, err := json.Marshal(t)
				if err != nil {
					log.Printf("[api] failed to marshal transfer for ws feed: %v", err)
					continue
				}
				s.hub.broadcast <- payload
			}
		}()
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func commonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
