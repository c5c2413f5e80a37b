package api

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/natindo/poolmini/internal/forms"
	"github.com/natindo/poolmini/internal/wizard"
)

type openWizardRequest struct {
	Kind    string `json:"kind"`
	Creator string `json:"creator"`
}

type advanceRequest struct {
	Step   int           `json:"step"`
	Fields wizard.Fields `json:"fields"`
}

type WizardHandler struct {
	svc      Service
	sessions *Sessions
	logger   *zap.Logger
}

func NewWizardHandler(svc Service, sessions *Sessions, logger *zap.Logger) *WizardHandler {
	return &WizardHandler{svc: svc, sessions: sessions, logger: logger}
}

// Open handles POST /wizards
func (h *WizardHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req openWizardRequest
	if err := ParseJSONBody(r, &req); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Kind == "" {
		req.Kind = string(wizard.KindPool)
	}

	sess, err := h.sessions.Open(wizard.Kind(req.Kind), strings.TrimSpace(req.Creator), h.svc.Finalize)
	if err != nil {
		ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	h.logger.Debug("wizard opened", zap.String("session", sess.id), zap.String("kind", req.Kind))
	JSONResponse(w, http.StatusCreated, sess.state())
}

// Get handles GET /wizards/{id}
func (h *WizardHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessions.Get(r.PathValue("id"))
	if !ok {
		ErrorResponse(w, http.StatusNotFound, "Wizard session not found")
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	JSONResponse(w, http.StatusOK, sess.state())
}

// Advance handles POST /wizards/{id}/advance
func (h *WizardHandler) Advance(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sess, ok := h.sessions.Get(id)
	if !ok {
		ErrorResponse(w, http.StatusNotFound, "Wizard session not found")
		return
	}

	var req advanceRequest
	if err := ParseJSONBody(r, &req); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if !sess.host.IsOpen() {
		ErrorResponse(w, http.StatusConflict, "Wizard session already finished")
		return
	}

	raw := wizard.Fragment{Step: req.Step, Fields: req.Fields}
	current := wizard.State{Step: sess.host.Step(), Data: sess.host.Data()}
	if _, _, err := wizard.Advance(sess.host.Definition(), current, raw); err != nil {
		writeWizardError(w, err)
		return
	}

	form, ok := forms.For(sess.kind, req.Step)
	if !ok {
		ErrorResponse(w, http.StatusInternalServerError, "No form for step")
		return
	}
	fields, err := form.Normalize(req.Fields)
	if err != nil {
		writeWizardError(w, err)
		return
	}

	res, err := sess.host.Submit(r.Context(), wizard.Fragment{Step: req.Step, Fields: fields})
	if err != nil {
		if res.Outcome == wizard.Completed {
			h.sessions.Discard(id)
			h.logger.Error("failed to save wizard result", zap.String("session", id), zap.Error(err))
			ErrorResponse(w, http.StatusInternalServerError, "Failed to save")
			return
		}
		writeWizardError(w, err)
		return
	}

	if res.Outcome == wizard.Completed {
		h.sessions.Discard(id)
		JSONResponse(w, http.StatusCreated, sess.created)
		return
	}
	JSONResponse(w, http.StatusOK, sess.state())
}

// Retreat handles POST /wizards/{id}/retreat
func (h *WizardHandler) Retreat(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessions.Get(r.PathValue("id"))
	if !ok {
		ErrorResponse(w, http.StatusNotFound, "Wizard session not found")
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if _, err := sess.host.Back(); err != nil {
		writeWizardError(w, err)
		return
	}
	JSONResponse(w, http.StatusOK, sess.state())
}

// Discard handles DELETE /wizards/{id}
func (h *WizardHandler) Discard(w http.ResponseWriter, r *http.Request) {
	if !h.sessions.Discard(r.PathValue("id")) {
		ErrorResponse(w, http.StatusNotFound, "Wizard session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeWizardError(w http.ResponseWriter, err error) {
	var fe *forms.FieldError
	switch {
	case errors.As(err, &fe):
		JSONResponse(w, http.StatusUnprocessableEntity, fieldErrorResponse{
			Error:   http.StatusText(http.StatusUnprocessableEntity),
			Message: fe.Msg,
			Field:   fe.Field,
		})
	case errors.Is(err, wizard.ErrStepMismatch):
		ErrorResponse(w, http.StatusConflict, err.Error())
	case errors.Is(err, wizard.ErrFieldNotOwned):
		ErrorResponse(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, wizard.ErrCompleted), errors.Is(err, wizard.ErrClosed):
		ErrorResponse(w, http.StatusConflict, err.Error())
	default:
		ErrorResponse(w, http.StatusInternalServerError, "Internal error")
	}
}

type fieldErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field"`
}
