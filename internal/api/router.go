package api

import (
	"github.com/alexivanou/citybrowser/internal/config"
	"github.com/alexivanou/citybrowser/internal/service"
	"github.com/alexivanou/citybrowser/internal/stats"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// NewRouter creates a new HTTP router
func NewRouter(
	service service.ServiceInterface,
	ingestor Ingestor,
	statsCollector *stats.Collector,
	search config.SearchConfig,
	logger *zap.Logger,
) *mux.Router {
	handler := NewHandler(service, search, logger)
	ingestionHandler := NewIngestionHandler(ingestor, logger)
	statsHandler := NewStatsHandler(statsCollector, logger)

	router := mux.NewRouter()

	// Health check
	router.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	// API v1
	v1 := router.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/cities", handler.SearchCities).Methods("GET")
	v1.HandleFunc("/cities/{id:[0-9]+}", handler.GetCity).Methods("GET")
	v1.HandleFunc("/cities/{id:[0-9]+}/favorite", handler.ToggleFavorite).Methods("POST")
	v1.HandleFunc("/cities/{id:[0-9]+}/favorite", handler.SetFavorite).Methods("PUT")
	v1.HandleFunc("/ingestion", ingestionHandler.GetProgress).Methods("GET")
	v1.HandleFunc("/ingestion", ingestionHandler.Start).Methods("POST")
	v1.HandleFunc("/stats", statsHandler.GetStats).Methods("GET")

	return router
}
