package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/alexivanou/citybrowser/internal/config"
	"github.com/alexivanou/citybrowser/internal/model"
	"github.com/alexivanou/citybrowser/internal/repository"
	"github.com/alexivanou/citybrowser/internal/service"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Handler handles HTTP requests
type Handler struct {
	service service.ServiceInterface
	search  config.SearchConfig
	logger  *zap.Logger
}

// NewHandler creates a new handler instance
func NewHandler(service service.ServiceInterface, search config.SearchConfig, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if search.PageSize <= 0 {
		search.PageSize = 50
	}
	return &Handler{service: service, search: search, logger: logger}
}

// SearchCities handles GET /api/v1/cities
func (h *Handler) SearchCities(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	query := model.SearchQuery{
		Prefix:   params.Get("q"),
		PageSize: h.search.PageSize,
	}

	if v := params.Get("favorites"); v != "" {
		favorites, err := strconv.ParseBool(v)
		if err != nil {
			http.Error(w, "invalid favorites parameter", http.StatusBadRequest)
			return
		}
		query.OnlyFavorites = favorites
	}

	if v := params.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "invalid page parameter", http.StatusBadRequest)
			return
		}
		query.Page = page
	}

	if v := params.Get("page_size"); v != "" {
		pageSize, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "invalid page_size parameter", http.StatusBadRequest)
			return
		}
		query.PageSize = pageSize
	}
	if h.search.MaxPageSize > 0 && query.PageSize > h.search.MaxPageSize {
		query.PageSize = h.search.MaxPageSize
	}

	// Out-of-range pagination yields an empty page rather than an error.
	result, err := h.service.Search(r.Context(), query)
	if err != nil {
		h.logger.Error("Error searching cities", zap.String("q", query.Prefix), zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, model.CitySearchResponse{
		Items:              result.Items,
		TotalMatchingCount: result.TotalMatchingCount,
		Page:               query.Page,
		PageSize:           query.PageSize,
		HasMore:            query.PageSize > 0 && len(result.Items) == query.PageSize,
	})
}

// GetCity handles GET /api/v1/cities/{id}
func (h *Handler) GetCity(w http.ResponseWriter, r *http.Request) {
	id, ok := cityID(w, r)
	if !ok {
		return
	}

	city, err := h.service.GetCityByID(r.Context(), id)
	if err != nil {
		h.logger.Error("Error getting city", zap.Int("id", id), zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if city == nil {
		http.Error(w, "city not found", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, city)
}

// ToggleFavorite handles POST /api/v1/cities/{id}/favorite
func (h *Handler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	id, ok := cityID(w, r)
	if !ok {
		return
	}

	favorite, err := h.service.ToggleFavorite(r.Context(), id)
	if err != nil {
		h.favoriteError(w, id, err)
		return
	}

	h.writeJSON(w, http.StatusOK, model.FavoriteResponse{ID: id, Favorite: favorite})
}

// SetFavorite handles PUT /api/v1/cities/{id}/favorite
func (h *Handler) SetFavorite(w http.ResponseWriter, r *http.Request) {
	id, ok := cityID(w, r)
	if !ok {
		return
	}

	var req model.FavoriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Favorite == nil {
		http.Error(w, "body must be {\"favorite\": bool}", http.StatusBadRequest)
		return
	}

	if err := h.service.SetFavorite(r.Context(), id, *req.Favorite); err != nil {
		h.favoriteError(w, id, err)
		return
	}

	h.writeJSON(w, http.StatusOK, model.FavoriteResponse{ID: id, Favorite: *req.Favorite})
}

func (h *Handler) favoriteError(w http.ResponseWriter, id int, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		http.Error(w, "city not found", http.StatusNotFound)
		return
	}
	h.logger.Error("Error updating favorite", zap.Int("id", id), zap.Error(err))
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	writeJSON(w, h.logger, status, v)
}

func writeJSON(w http.ResponseWriter, logger *zap.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding response", zap.Error(err))
	}
}

func cityID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid city id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
