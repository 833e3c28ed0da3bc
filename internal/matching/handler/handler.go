package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"legalaid_backend/internal/matching/service"
	"legalaid_backend/internal/matching/transport"
	"legalaid_backend/platform/httpkit"
	"legalaid_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidCaseID    = "invalid case ID"
	msgInvalidMatchID   = "invalid match ID"
)

// Handler handles HTTP requests for match allocation.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new matching handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// GenerateMatches creates pending offers for a case and returns the ranked set.
// POST /api/v1/cases/:id/matches
func (h *Handler) GenerateMatches(c *gin.Context) {
	caseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidCaseID, nil)
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.GenerateMatches(c.Request.Context(), caseID, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ListPendingMatches returns the case's open offers.
// GET /api/v1/cases/:id/matches/pending
func (h *Handler) ListPendingMatches(c *gin.Context) {
	caseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidCaseID, nil)
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.ListPendingMatches(c.Request.Context(), caseID, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// SelectMatch marks a pending offer as the citizen's choice.
// POST /api/v1/matches/:id/select
func (h *Handler) SelectMatch(c *gin.Context) {
	matchID, identity, ok := h.matchParams(c)
	if !ok {
		return
	}

	result, err := h.svc.SelectMatch(c.Request.Context(), matchID, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// RejectMatch declines a pending offer on behalf of the citizen.
// POST /api/v1/matches/:id/reject
func (h *Handler) RejectMatch(c *gin.Context) {
	matchID, identity, ok := h.matchParams(c)
	if !ok {
		return
	}
	var req transport.RejectMatchRequest
	if !h.bindOptionalReason(c, &req) {
		return
	}

	result, err := h.svc.RejectMatch(c.Request.Context(), matchID, identity.UserID(), req.Reason)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// AcceptAssignment confirms a selected match on behalf of the provider.
// POST /api/v1/matches/:id/accept
func (h *Handler) AcceptAssignment(c *gin.Context) {
	matchID, identity, ok := h.matchParams(c)
	if !ok {
		return
	}

	result, err := h.svc.AcceptAssignment(c.Request.Context(), matchID, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// DeclineAssignment turns down a selected match on behalf of the provider.
// POST /api/v1/matches/:id/decline
func (h *Handler) DeclineAssignment(c *gin.Context) {
	matchID, identity, ok := h.matchParams(c)
	if !ok {
		return
	}
	var req transport.DeclineAssignmentRequest
	if !h.bindOptionalReason(c, &req) {
		return
	}

	result, err := h.svc.DeclineAssignment(c.Request.Context(), matchID, identity.UserID(), req.Reason)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ListAssignedCases returns the provider's active assignments.
// GET /api/v1/assignments
func (h *Handler) ListAssignedCases(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.ListAssignedCases(c.Request.Context(), identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// matchParams parses the match id path parameter and resolves the caller's
// identity, writing the error response itself on failure.
func (h *Handler) matchParams(c *gin.Context) (uuid.UUID, httpkit.Identity, bool) {
	matchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidMatchID, nil)
		return uuid.Nil, nil, false
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return uuid.Nil, nil, false
	}
	return matchID, identity, true
}

// bindOptionalReason binds a reason body when one is supplied. An empty body
// is allowed; a present but malformed or invalid one is rejected.
func (h *Handler) bindOptionalReason(c *gin.Context, req any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return false
	}
	return true
}
