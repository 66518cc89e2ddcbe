package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/zioncity/backend/internal/db"
	"github.com/zioncity/backend/internal/http/middleware"
	"github.com/zioncity/backend/internal/models"
	"github.com/zioncity/backend/internal/service"
)

const defaultQueryLimit = 5

type AgentEngine interface {
	QueryBusinesses(ctx context.Context, req models.BroadcastRequest) (models.BroadcastResult, error)
	ChatWithSearch(ctx context.Context, callerID, message, conversationID string) (models.ChatTurn, error)
}

type SettingsStore interface {
	GetAgentProfile(ctx context.Context, organizationID string) (models.OrganizationAgentProfile, error)
	UpdateEricSettings(ctx context.Context, organizationID string, patch models.EricSettingsPatch) (models.OrganizationAgentProfile, error)
	IsOrganizationAdmin(ctx context.Context, organizationID, userID string) (bool, error)
}

type EligibilityEvaluator interface {
	Evaluate(ctx context.Context, category string) (service.EligibilityResult, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	Engine      AgentEngine
	Settings    SettingsStore
	Eligibility EligibilityEvaluator
	DB          Pinger
	Validator   *validator.Validate
	Logger      zerolog.Logger
	AdminKey    string
}

func (h *Handler) Healthz(c *gin.Context) {
	if h.DB != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		if err := h.DB.Ping(ctx); err != nil {
			writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unavailable", err.Error())
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type QueryBusinessesRequest struct {
	Query    string `json:"query" validate:"required,max=1000"`
	Category string `json:"category" validate:"max=200"`
	Limit    *int   `json:"limit"`
}

// @Summary Query organization agents
// @Description Broadcast a query to every opted-in organization agent and return ranked replies
// @Tags agent
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body QueryBusinessesRequest true "Query"
// @Success 200 {object} models.BroadcastResult
// @Failure 400 {object} map[string]any
// @Failure 401 {object} map[string]any
// @Failure 503 {object} map[string]any
// @Router /api/agent/query-businesses [post]
func (h *Handler) QueryBusinesses(c *gin.Context) {
	var req QueryBusinessesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}
	limit := defaultQueryLimit
	if req.Limit != nil {
		limit = *req.Limit
	}

	res, err := h.Engine.QueryBusinesses(c.Request.Context(), models.BroadcastRequest{
		Query:    req.Query,
		Category: req.Category,
		Limit:    limit,
		CallerID: middleware.CallerID(c),
	})
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type ChatRequest struct {
	Message        string `json:"message" validate:"required,max=4000"`
	ConversationID string `json:"conversation_id" validate:"max=64"`
}

// @Summary Chat with search
// @Description Reply to a chat message, querying organization agents or the search index when the message asks for it
// @Tags agent
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body ChatRequest true "Message"
// @Success 200 {object} models.ChatTurn
// @Failure 400 {object} map[string]any
// @Failure 401 {object} map[string]any
// @Failure 503 {object} map[string]any
// @Router /api/agent/chat-with-search [post]
func (h *Handler) ChatWithSearch(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	turn, err := h.Engine.ChatWithSearch(c.Request.Context(), middleware.CallerID(c), req.Message, req.ConversationID)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, turn)
}

// @Summary Get ERIC settings
// @Tags settings
// @Produce json
// @Security BearerAuth
// @Param id path string true "Organization ID"
// @Success 200 {object} models.OrganizationAgentProfile
// @Failure 403 {object} map[string]any
// @Failure 404 {object} map[string]any
// @Router /api/work/organizations/{id}/eric-settings [get]
func (h *Handler) GetEricSettings(c *gin.Context) {
	if !h.authorizeOrganization(c) {
		return
	}
	p, err := h.Settings.GetAgentProfile(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Organization not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load settings", err.Error())
		return
	}
	c.JSON(http.StatusOK, p)
}

type EricSettingsRequest struct {
	AllowUserEricQueries *bool     `json:"allow_user_eric_queries"`
	SharePublicData      *bool     `json:"share_public_data"`
	Specialties          *[]string `json:"specialties" validate:"omitempty,max=50,dive,max=100"`
	BusinessDescription  *string   `json:"business_description" validate:"omitempty,max=2000"`
	AgentEndpoint        *string   `json:"agent_endpoint" validate:"omitempty,max=500"`
}

// @Summary Update ERIC settings
// @Description Partially update whether and how the organization answers user ERIC queries
// @Tags settings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Organization ID"
// @Param body body EricSettingsRequest true "Settings patch"
// @Success 200 {object} models.OrganizationAgentProfile
// @Failure 400 {object} map[string]any
// @Failure 403 {object} map[string]any
// @Failure 404 {object} map[string]any
// @Router /api/work/organizations/{id}/eric-settings [put]
func (h *Handler) PutEricSettings(c *gin.Context) {
	if !h.authorizeOrganization(c) {
		return
	}
	var req EricSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}
	if req.AgentEndpoint != nil && !validEndpoint(*req.AgentEndpoint) {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "agent_endpoint must be an http(s) URL", nil)
		return
	}

	p, err := h.Settings.UpdateEricSettings(c.Request.Context(), c.Param("id"), models.EricSettingsPatch{
		AllowUserEricQueries: req.AllowUserEricQueries,
		SharePublicData:      req.SharePublicData,
		Specialties:          req.Specialties,
		BusinessDescription:  req.BusinessDescription,
		AgentEndpoint:        req.AgentEndpoint,
	})
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Organization not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to update settings", err.Error())
		return
	}
	h.Logger.Info().
		Str("organization_id", p.OrganizationID).
		Bool("allow_user_eric_queries", p.AllowUserEricQueries).
		Bool("share_public_data", p.SharePublicData).
		Msg("eric settings updated")
	c.JSON(http.StatusOK, p)
}

// authorizeOrganization lets the request through when it carries the admin
// key or the caller administers the organization in the path. It writes the
// error response otherwise.
func (h *Handler) authorizeOrganization(c *gin.Context) bool {
	if middleware.HasAdminKey(c, h.AdminKey) {
		return true
	}
	caller := middleware.CallerID(c)
	if caller == "" {
		writeError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", nil)
		return false
	}
	ok, err := h.Settings.IsOrganizationAdmin(c.Request.Context(), c.Param("id"), caller)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to check organization access", err.Error())
		return false
	}
	if !ok {
		h.Logger.Warn().Str("caller_id", caller).Str("organization_id", c.Param("id")).Msg("eric settings access denied")
		writeError(c, http.StatusForbidden, "FORBIDDEN", "Caller does not administer this organization", nil)
		return false
	}
	return true
}

// Empty clears the endpoint.
func validEndpoint(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return true
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// @Summary Debug eligibility
// @Tags debug
// @Produce json
// @Param category query string false "Category hint"
// @Success 200 {object} map[string]any
// @Router /api/agent/debug/eligibility [get]
func (h *Handler) DebugEligibility(c *gin.Context) {
	category := strings.TrimSpace(c.Query("category"))
	res, err := h.Eligibility.Evaluate(c.Request.Context(), category)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	stageIDs := map[string][]string{}
	for _, stage := range res.Stages {
		ids := []string{}
		for _, p := range stage.Candidates {
			ids = append(ids, p.OrganizationID)
		}
		stageIDs[stage.Name] = ids
	}
	eligible := []string{}
	for _, p := range res.Eligible {
		eligible = append(eligible, p.OrganizationID)
	}

	c.JSON(http.StatusOK, gin.H{
		"category": res.Category,
		"stages":   stageIDs,
		"final":    gin.H{"eligible": eligible},
	})
}

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	case errors.Is(err, service.ErrUnauthenticated):
		writeError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", nil)
	case errors.Is(err, service.ErrProfileStore):
		h.Logger.Error().Err(err).Msg("profile store unavailable")
		writeError(c, http.StatusServiceUnavailable, "PROFILE_STORE_UNAVAILABLE", "Organization profiles are unavailable", nil)
	default:
		h.Logger.Error().Err(err).Msg("request failed")
		writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal error", nil)
	}
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}
