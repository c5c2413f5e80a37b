package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/natindo/poolmini/internal/models"
	"github.com/natindo/poolmini/internal/services"
	"github.com/natindo/poolmini/internal/wizard"
)

// Service is what the HTTP host needs from the persistence layer.
type Service interface {
	Finalize(ctx context.Context, kind wizard.Kind, owner services.Owner, data wizard.Fields) (models.Created, error)
	GetPool(ctx context.Context, id int64) (*models.PoolWithCount, error)
	GetPoolBySlug(ctx context.Context, slug string) (*models.PoolWithCount, error)
	ListPools(ctx context.Context, chatID int64) ([]models.Pool, error)
	DeletePool(ctx context.Context, chatID, id int64) error
	JoinPool(ctx context.Context, id int64, name string) (*models.PoolWithCount, error)
	GetGiveaway(ctx context.Context, id int64) (*models.Giveaway, int, error)
	ListGiveaways(ctx context.Context, chatID int64) ([]models.Giveaway, error)
	DeleteGiveaway(ctx context.Context, chatID, id int64) error
	EnterGiveaway(ctx context.Context, id int64, name string) (int, error)
}

type nameRequest struct {
	Name string `json:"name"`
}

type giveawayResponse struct {
	Giveaway *models.Giveaway `json:"giveaway"`
	Entries  int              `json:"entries"`
}

type PoolHandler struct {
	svc    Service
	logger *zap.Logger
}

func NewPoolHandler(svc Service, logger *zap.Logger) *PoolHandler {
	return &PoolHandler{svc: svc, logger: logger}
}

// ListPools handles GET /pools
func (h *PoolHandler) ListPools(w http.ResponseWriter, r *http.Request) {
	chatID, ok := chatIDQuery(w, r)
	if !ok {
		return
	}
	pools, err := h.svc.ListPools(r.Context(), chatID)
	if err != nil {
		h.internal(w, "list pools", err)
		return
	}
	if pools == nil {
		pools = []models.Pool{}
	}
	JSONResponse(w, http.StatusOK, pools)
}

// GetPool handles GET /pools/{id}
func (h *PoolHandler) GetPool(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := h.svc.GetPool(r.Context(), id)
	if err != nil {
		h.serviceError(w, "get pool", err)
		return
	}
	JSONResponse(w, http.StatusOK, p)
}

// GetPoolBySlug handles GET /p/{slug}
func (h *PoolHandler) GetPoolBySlug(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.GetPoolBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		h.serviceError(w, "get pool by slug", err)
		return
	}
	JSONResponse(w, http.StatusOK, p)
}

// JoinPool handles POST /pools/{id}/join
func (h *PoolHandler) JoinPool(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req nameRequest
	if err := ParseJSONBody(r, &req); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	p, err := h.svc.JoinPool(r.Context(), id, req.Name)
	if err != nil {
		h.serviceError(w, "join pool", err)
		return
	}
	JSONResponse(w, http.StatusOK, p)
}

// DeletePool handles DELETE /pools/{id}. Only pools created on the web can
// be deleted here.
func (h *PoolHandler) DeletePool(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeletePool(r.Context(), 0, id); err != nil {
		h.serviceError(w, "delete pool", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListGiveaways handles GET /giveaways
func (h *PoolHandler) ListGiveaways(w http.ResponseWriter, r *http.Request) {
	chatID, ok := chatIDQuery(w, r)
	if !ok {
		return
	}
	list, err := h.svc.ListGiveaways(r.Context(), chatID)
	if err != nil {
		h.internal(w, "list giveaways", err)
		return
	}
	if list == nil {
		list = []models.Giveaway{}
	}
	JSONResponse(w, http.StatusOK, list)
}

// GetGiveaway handles GET /giveaways/{id}
func (h *PoolHandler) GetGiveaway(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	g, n, err := h.svc.GetGiveaway(r.Context(), id)
	if err != nil {
		h.serviceError(w, "get giveaway", err)
		return
	}
	JSONResponse(w, http.StatusOK, giveawayResponse{Giveaway: g, Entries: n})
}

// EnterGiveaway handles POST /giveaways/{id}/enter
func (h *PoolHandler) EnterGiveaway(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req nameRequest
	if err := ParseJSONBody(r, &req); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	n, err := h.svc.EnterGiveaway(r.Context(), id, req.Name)
	if err != nil {
		h.serviceError(w, "enter giveaway", err)
		return
	}
	JSONResponse(w, http.StatusOK, map[string]int{"entries": n})
}

// DeleteGiveaway handles DELETE /giveaways/{id}
func (h *PoolHandler) DeleteGiveaway(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteGiveaway(r.Context(), 0, id); err != nil {
		h.serviceError(w, "delete giveaway", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PoolHandler) serviceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		ErrorResponse(w, http.StatusNotFound, "Not found")
	case errors.Is(err, services.ErrInvalidName):
		ErrorResponse(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrAlreadyJoined),
		errors.Is(err, services.ErrRegistrationClosed),
		errors.Is(err, services.ErrFull),
		errors.Is(err, services.ErrGiveawayClosed):
		ErrorResponse(w, http.StatusConflict, err.Error())
	default:
		h.internal(w, op, err)
	}
}

func (h *PoolHandler) internal(w http.ResponseWriter, op string, err error) {
	h.logger.Error(op+" failed", zap.Error(err))
	ErrorResponse(w, http.StatusInternalServerError, "Database error")
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		ErrorResponse(w, http.StatusBadRequest, "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func chatIDQuery(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.URL.Query().Get("chat_id")
	if raw == "" {
		return 0, true
	}
	chatID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		ErrorResponse(w, http.StatusBadRequest, "chat_id must be an integer")
		return 0, false
	}
	return chatID, true
}
