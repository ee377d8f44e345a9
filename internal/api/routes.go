package api

import "github.com/gorilla/mux"

func registerRoutes(r *mux.Router, s *Server) {
	r.HandleFunc("/health", s.handleHealth).Methods("GET", "OPTIONS")
	r.HandleFunc("/status", s.handleStatus).Methods("GET", "OPTIONS")
	r.HandleFunc("/ws", s.handleWebSocket).Methods("GET", "OPTIONS")
	r.HandleFunc("/transactions", s.handleListTransactions).Methods("GET", "OPTIONS")
	r.HandleFunc("/transactions/{hash}", s.handleGetTransaction).Methods("GET", "OPTIONS")
}
