package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/KiraKC/Spectacle-Hypertext/application/ports"
	"github.com/KiraKC/Spectacle-Hypertext/domain/core/entities"
	"github.com/KiraKC/Spectacle-Hypertext/domain/core/valueobjects"
	"github.com/KiraKC/Spectacle-Hypertext/pkg/common"
	"github.com/KiraKC/Spectacle-Hypertext/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// AnchorHandler serves the anchor resource. Domain failures are returned
// as envelopes with status 200; only malformed requests get 400.
type AnchorHandler struct {
	gateway ports.NodeAnchorGateway
	logger  *zap.Logger
}

// NewAnchorHandler creates a new anchor handler
func NewAnchorHandler(gateway ports.NodeAnchorGateway, logger *zap.Logger) *AnchorHandler {
	return &AnchorHandler{
		gateway: gateway,
		logger:  logger,
	}
}

// CreateAnchorRequest is the body of POST /
type CreateAnchorRequest struct {
	Data *entities.Anchor `json:"data"`
}

// CreateAnchor handles POST /
func (h *AnchorHandler) CreateAnchor(w http.ResponseWriter, r *http.Request) {
	var req CreateAnchorRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		badRequest[*entities.Anchor](w, "Invalid request body: "+err.Error())
		return
	}
	if req.Data == nil {
		badRequest[*entities.Anchor](w, "Invalid request body: data is required")
		return
	}
	if err := req.Data.Validate(); err != nil {
		badRequest[*entities.Anchor](w, "Validation error: "+err.Error())
		return
	}

	resp := h.gateway.CreateAnchor(r.Context(), req.Data)
	h.logOutcome(r, "CreateAnchor", resp.Success, resp.Message)
	common.RespondEnvelope(w, http.StatusOK, resp)
}

// GetAnchor handles GET /{anchorId}
func (h *AnchorHandler) GetAnchor(w http.ResponseWriter, r *http.Request) {
	id, ok := anchorIDParam[*entities.Anchor](w, r)
	if !ok {
		return
	}
	common.RespondEnvelope(w, http.StatusOK, h.gateway.GetAnchor(r.Context(), id))
}

// GetAnchors handles GET /list/{ids}
func (h *AnchorHandler) GetAnchors(w http.ResponseWriter, r *http.Request) {
	ids, ok := idListParam[ports.AnchorMap](w, r)
	if !ok {
		return
	}
	common.RespondEnvelope(w, http.StatusOK, h.gateway.GetAnchors(r.Context(), ids))
}

// DeleteAnchor handles DELETE /{anchorId}
func (h *AnchorHandler) DeleteAnchor(w http.ResponseWriter, r *http.Request) {
	id, ok := anchorIDParam[common.Empty](w, r)
	if !ok {
		return
	}
	resp := h.gateway.DeleteAnchor(r.Context(), id)
	h.logOutcome(r, "DeleteAnchor", resp.Success, resp.Message)
	common.RespondEnvelope(w, http.StatusOK, resp)
}

// DeleteAnchors handles DELETE /list/{ids}
func (h *AnchorHandler) DeleteAnchors(w http.ResponseWriter, r *http.Request) {
	ids, ok := idListParam[common.Empty](w, r)
	if !ok {
		return
	}
	resp := h.gateway.DeleteAnchors(r.Context(), ids)
	h.logOutcome(r, "DeleteAnchors", resp.Success, resp.Message)
	common.RespondEnvelope(w, http.StatusOK, resp)
}

// GetAnchorsByNode handles GET /node/{nodeId}
func (h *AnchorHandler) GetAnchorsByNode(w http.ResponseWriter, r *http.Request) {
	nodeID := pathParam(r, "nodeId")
	if nodeID == "" {
		badRequest[ports.AnchorMap](w, "nodeId is required")
		return
	}
	common.RespondEnvelope(w, http.StatusOK, h.gateway.GetAnchorsByNode(r.Context(), nodeID))
}

// DeleteAnchorsByNode handles DELETE /node/{nodeId}
func (h *AnchorHandler) DeleteAnchorsByNode(w http.ResponseWriter, r *http.Request) {
	nodeID := pathParam(r, "nodeId")
	if nodeID == "" {
		badRequest[common.Empty](w, "nodeId is required")
		return
	}
	resp := h.gateway.DeleteAnchorsByNode(r.Context(), nodeID)
	h.logOutcome(r, "DeleteAnchorsByNode", resp.Success, resp.Message)
	common.RespondEnvelope(w, http.StatusOK, resp)
}

func (h *AnchorHandler) logOutcome(r *http.Request, op string, success bool, message string) {
	if success {
		return
	}
	h.logger.Info("Anchor operation failed",
		zap.String("operation", op),
		zap.String("message", message),
		zap.String("requestID", common.ExtractRequestID(r)),
	)
}

func badRequest[T any](w http.ResponseWriter, message string) {
	appErr := errors.NewValidationError(message)
	common.RespondEnvelope(w, appErr.HTTPStatus, common.Failure[T](appErr.Message))
}

// unescape decodes a path value exactly once. chi routes on r.URL.RawPath
// only when it is set; otherwise the value was already decoded by net/url.
func unescape(r *http.Request, value string) string {
	if r.URL.RawPath == "" {
		return value
	}
	if v, err := url.PathUnescape(value); err == nil {
		return v
	}
	return value
}

func pathParam(r *http.Request, name string) string {
	return unescape(r, chi.URLParam(r, name))
}

func anchorIDParam[T any](w http.ResponseWriter, r *http.Request) (string, bool) {
	id := pathParam(r, "anchorId")
	if err := valueobjects.ValidateAnchorID(id); err != nil {
		badRequest[T](w, err.Error())
		return "", false
	}
	return id, true
}

// idListParam splits the comma-joined id segment before decoding each id.
func idListParam[T any](w http.ResponseWriter, r *http.Request) ([]string, bool) {
	raw := chi.URLParam(r, "ids")
	if raw == "" {
		badRequest[T](w, "anchor ID list cannot be empty")
		return nil, false
	}

	parts := strings.Split(raw, valueobjects.IDListSeparator)
	for i, part := range parts {
		parts[i] = unescape(r, part)
	}

	list, err := valueobjects.NewAnchorIDList(parts...)
	if err != nil {
		badRequest[T](w, err.Error())
		return nil, false
	}
	return list.Strings(), true
}
