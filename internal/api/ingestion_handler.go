package api

import (
	"context"
	"net/http"

	"github.com/alexivanou/citybrowser/internal/model"
	"go.uber.org/zap"
)

// Ingestor is the view of the ingestion pipeline the API needs.
type Ingestor interface {
	Progress() model.Progress
	Running() bool
	Start(ctx context.Context) bool
}

// IngestionHandler reports and triggers dataset ingestion
type IngestionHandler struct {
	ingestor Ingestor
	logger   *zap.Logger
}

// NewIngestionHandler creates a new ingestion handler
func NewIngestionHandler(ingestor Ingestor, logger *zap.Logger) *IngestionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestionHandler{ingestor: ingestor, logger: logger}
}

// GetProgress handles GET /api/v1/ingestion
func (h *IngestionHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, h.response())
}

// Start handles POST /api/v1/ingestion. A failed run is retried this way;
// on a populated store the run completes immediately.
func (h *IngestionHandler) Start(w http.ResponseWriter, r *http.Request) {
	if h.ingestor.Running() {
		writeJSON(w, h.logger, http.StatusConflict, h.response())
		return
	}

	// The run outlives the request.
	if !h.ingestor.Start(context.WithoutCancel(r.Context())) {
		writeJSON(w, h.logger, http.StatusConflict, h.response())
		return
	}

	h.logger.Info("Ingestion started via API")
	writeJSON(w, h.logger, http.StatusAccepted, h.response())
}

func (h *IngestionHandler) response() model.IngestionResponse {
	progress := h.ingestor.Progress()
	return model.IngestionResponse{
		Progress:    progress,
		Description: progress.Description(),
		Fraction:    progress.Fraction(),
		Running:     h.ingestor.Running(),
	}
}
