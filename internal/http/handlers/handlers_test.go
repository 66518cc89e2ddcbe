package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zioncity/backend/internal/db"
	"github.com/zioncity/backend/internal/http/middleware"
	"github.com/zioncity/backend/internal/models"
	"github.com/zioncity/backend/internal/service"
)

type fakeEngine struct {
	lastQuery models.BroadcastRequest
	lastChat  []string
	result    models.BroadcastResult
	turn      models.ChatTurn
	err       error
}

func (f *fakeEngine) QueryBusinesses(ctx context.Context, req models.BroadcastRequest) (models.BroadcastResult, error) {
	f.lastQuery = req
	return f.result, f.err
}

func (f *fakeEngine) ChatWithSearch(ctx context.Context, callerID, message, conversationID string) (models.ChatTurn, error) {
	f.lastChat = []string{callerID, message, conversationID}
	return f.turn, f.err
}

type fakeSettings struct {
	profile   models.OrganizationAgentProfile
	lastPatch models.EricSettingsPatch
	err       error
	admins    map[string]string
	adminErr  error
}

func (f *fakeSettings) IsOrganizationAdmin(ctx context.Context, id, userID string) (bool, error) {
	return f.admins[id] == userID, f.adminErr
}

func (f *fakeSettings) GetAgentProfile(ctx context.Context, id string) (models.OrganizationAgentProfile, error) {
	return f.profile, f.err
}

func (f *fakeSettings) UpdateEricSettings(ctx context.Context, id string, patch models.EricSettingsPatch) (models.OrganizationAgentProfile, error) {
	f.lastPatch = patch
	return f.profile, f.err
}

type fakeEligibility struct {
	res service.EligibilityResult
	err error
}

func (f fakeEligibility) Evaluate(ctx context.Context, category string) (service.EligibilityResult, error) {
	f.res.Category = category
	return f.res, f.err
}

func newTestRouter(h *Handler, caller string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	if h.Validator == nil {
		h.Validator = validator.New()
	}
	h.Logger = zerolog.Nop()
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if caller != "" {
			c.Set(middleware.CallerIDKey, caller)
		}
		c.Next()
	})
	r.GET("/healthz", h.Healthz)
	r.POST("/api/agent/query-businesses", h.QueryBusinesses)
	r.POST("/api/agent/chat-with-search", h.ChatWithSearch)
	r.GET("/api/work/organizations/:id/eric-settings", h.GetEricSettings)
	r.PUT("/api/work/organizations/:id/eric-settings", h.PutEricSettings)
	r.GET("/api/agent/debug/eligibility", h.DebugEligibility)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error.Code
}

func TestQueryBusinessesDefaultsLimit(t *testing.T) {
	eng := &fakeEngine{result: models.BroadcastResult{Query: "кофе", Results: []models.BusinessResult{}}}
	r := newTestRouter(&Handler{Engine: eng}, "u1")

	w := do(r, http.MethodPost, "/api/agent/query-businesses", `{"query":"кофе"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, eng.lastQuery.Limit)
	assert.Equal(t, "u1", eng.lastQuery.CallerID)
	assert.JSONEq(t, `{"query":"кофе","category":null,"results":[],"total_businesses_queried":0,"businesses_responding":0}`, w.Body.String())

	w = do(r, http.MethodPost, "/api/agent/query-businesses", `{"query":"кофе","category":"кафе","limit":2}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, eng.lastQuery.Limit)
	assert.Equal(t, "кафе", eng.lastQuery.Category)
}

func TestQueryBusinessesErrors(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		err    error
		status int
		code   string
	}{
		{"bad json", `{`, nil, http.StatusBadRequest, "INVALID_REQUEST"},
		{"missing query", `{"limit":3}`, nil, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"service rejects", `{"query":"x","limit":0}`, service.ErrInvalidRequest, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"no caller", `{"query":"x"}`, service.ErrUnauthenticated, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"store down", `{"query":"x"}`, service.ErrProfileStore, http.StatusServiceUnavailable, "PROFILE_STORE_UNAVAILABLE"},
		{"unexpected", `{"query":"x"}`, errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRouter(&Handler{Engine: &fakeEngine{err: tc.err}}, "u1")
			w := do(r, http.MethodPost, "/api/agent/query-businesses", tc.body)
			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.code, errorCode(t, w))
		})
	}
}

func TestChatWithSearch(t *testing.T) {
	eng := &fakeEngine{turn: models.ChatTurn{
		ConversationID:   "c1",
		Message:          "привет",
		Reply:            "Здравствуйте",
		SuggestedActions: []models.SuggestedAction{},
	}}
	r := newTestRouter(&Handler{Engine: eng}, "u1")

	w := do(r, http.MethodPost, "/api/agent/chat-with-search", `{"message":"привет","conversation_id":"c1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"u1", "привет", "c1"}, eng.lastChat)
	assert.JSONEq(t, `{"conversation_id":"c1","message":"привет","reply":"Здравствуйте","suggested_actions":[]}`, w.Body.String())

	w = do(r, http.MethodPost, "/api/agent/chat-with-search", `{"message":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEricSettings(t *testing.T) {
	store := &fakeSettings{
		profile: models.OrganizationAgentProfile{OrganizationID: "org-1", AllowUserEricQueries: true},
		admins:  map[string]string{"org-1": "u1", "missing": "u1"},
	}
	r := newTestRouter(&Handler{Settings: store}, "u1")

	w := do(r, http.MethodGet, "/api/work/organizations/org-1/eric-settings", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"allow_user_eric_queries":true`)

	w = do(r, http.MethodPut, "/api/work/organizations/org-1/eric-settings", `{"share_public_data":true,"specialties":["Школа"]}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, store.lastPatch.SharePublicData)
	assert.True(t, *store.lastPatch.SharePublicData)
	assert.Nil(t, store.lastPatch.AllowUserEricQueries)
	require.NotNil(t, store.lastPatch.Specialties)
	assert.Equal(t, []string{"Школа"}, *store.lastPatch.Specialties)

	w = do(r, http.MethodPut, "/api/work/organizations/org-1/eric-settings", `{"agent_endpoint":"ftp://agent"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	store.err = db.ErrNotFound
	w = do(r, http.MethodGet, "/api/work/organizations/missing/eric-settings", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEricSettingsRequiresOrganizationAdmin(t *testing.T) {
	store := &fakeSettings{
		profile: models.OrganizationAgentProfile{OrganizationID: "org-1"},
		admins:  map[string]string{"org-1": "owner"},
	}
	h := &Handler{Settings: store, AdminKey: "adm"}
	r := newTestRouter(h, "mallory")

	w := do(r, http.MethodGet, "/api/work/organizations/org-1/eric-settings", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(t, w))

	w = do(r, http.MethodPut, "/api/work/organizations/org-1/eric-settings", `{"allow_user_eric_queries":true}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Nil(t, store.lastPatch.AllowUserEricQueries)

	req := httptest.NewRequest(http.MethodGet, "/api/work/organizations/org-1/eric-settings", nil)
	req.Header.Set("X-Admin-Key", "adm")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	r = newTestRouter(h, "owner")
	w = do(r, http.MethodGet, "/api/work/organizations/org-1/eric-settings", "")
	assert.Equal(t, http.StatusOK, w.Code)

	r = newTestRouter(h, "")
	w = do(r, http.MethodGet, "/api/work/organizations/org-1/eric-settings", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	store.adminErr = errors.New("db down")
	r = newTestRouter(h, "owner")
	w = do(r, http.MethodGet, "/api/work/organizations/org-1/eric-settings", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestDebugEligibility(t *testing.T) {
	p := models.OrganizationAgentProfile{OrganizationID: "o1"}
	elig := fakeEligibility{res: service.EligibilityResult{
		Eligible: []models.OrganizationAgentProfile{p},
		Stages: []service.EligibilityStage{
			{Name: "opted_in", Candidates: []models.OrganizationAgentProfile{p, {OrganizationID: "o2"}}},
			{Name: "category_match", Candidates: []models.OrganizationAgentProfile{p}},
		},
	}}
	r := newTestRouter(&Handler{Eligibility: elig}, "admin")

	w := do(r, http.MethodGet, "/api/agent/debug/eligibility?category=школ", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"category": "школ",
		"stages": {"opted_in": ["o1","o2"], "category_match": ["o1"]},
		"final": {"eligible": ["o1"]}
	}`, w.Body.String())
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthz(t *testing.T) {
	r := newTestRouter(&Handler{DB: pingerFunc(func(context.Context) error { return nil })}, "")
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/healthz", "").Code)

	r = newTestRouter(&Handler{DB: pingerFunc(func(context.Context) error { return errors.New("down") })}, "")
	w := do(r, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "DB_UNAVAILABLE", errorCode(t, w))
}
