package main

import (
	"NetBurst/internal/config"
	"NetBurst/internal/query"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/mux"
)

// APIHandler holds the dependencies for the API endpoints.
type APIHandler struct {
	querier query.Querier
}

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file")
	flag.Parse()

	// 1. Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Connect to the burst store
	querier, err := query.NewClickHouseQuerier(cfg.API.ClickHouse)
	if err != nil {
		log.Fatalf("Failed to create querier: %v", err)
	}
	handler := &APIHandler{querier: querier}

	// 3. Set up router
	r := mux.NewRouter()
	r.HandleFunc("/api/v1/bursts", handler.ListBursts).Methods("GET")
	r.HandleFunc("/api/v1/bursts/summary", handler.Summarize).Methods("GET")

	addr := cfg.API.ListenAddr
	if addr == "" {
		addr = ":8080"
	}
	server := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	// 4. Start server in a goroutine
	go func() {
		log.Printf("Starting API server on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// 5. Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exiting.")
}

// ListBursts returns the stored bursts matching the request's filter
// parameters, most recent first.
func (h *APIHandler) ListBursts(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	bursts, err := h.querier.ListBursts(r.Context(), filter)
	if err != nil {
		log.Printf("ListBursts failed: %v", err)
		http.Error(w, "failed to query bursts", http.StatusInternalServerError)
		return
	}
	writeJSON(w, bursts)
}

// Summarize returns aggregate statistics over the bursts matching the
// request's filter parameters.
func (h *APIHandler) Summarize(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	summary, err := h.querier.Summarize(r.Context(), filter)
	if err != nil {
		log.Printf("Summarize failed: %v", err)
		http.Error(w, "failed to summarize bursts", http.StatusInternalServerError)
		return
	}
	writeJSON(w, summary)
}

// filterFromRequest builds a burst filter from URL query parameters. All
// parameters are optional: src, dst, min_size, min_packets, since, until,
// limit.
func filterFromRequest(r *http.Request) (query.Filter, error) {
	var f query.Filter
	q := r.URL.Query()
	f.Src = q.Get("src")
	f.Dst = q.Get("dst")

	if v := q.Get("min_size"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return query.Filter{}, fmt.Errorf("invalid min_size %q", v)
		}
		f.MinSize = n
	}
	if v := q.Get("min_packets"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return query.Filter{}, fmt.Errorf("invalid min_packets %q", v)
		}
		f.MinPackets = uint32(n)
	}
	if v := q.Get("since"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return query.Filter{}, fmt.Errorf("invalid since %q", v)
		}
		f.Since = t
	}
	if v := q.Get("until"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return query.Filter{}, fmt.Errorf("invalid until %q", v)
		}
		f.Until = t
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return query.Filter{}, fmt.Errorf("invalid limit %q", v)
		}
		f.Limit = n
	}
	return f, nil
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}
