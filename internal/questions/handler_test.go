package questions

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/principlequiz/backend/internal/llm"
	"github.com/principlequiz/backend/internal/models"
)

func newTestRouter(svc *Service) *mux.Router {
	r := mux.NewRouter()
	NewHandler(svc).RegisterRoutes(r.PathPrefix("/api/v1").Subrouter())
	return r
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(method, path, &buf))
	return rec
}

func TestHandler_Generate(t *testing.T) {
	mock := llm.NewMockClient(llm.MockResponse{Content: reply(1, "fitts-law")})
	svc, _, _ := newTestService(t, mock, ServiceConfig{})
	router := newTestRouter(svc)

	rec := doJSON(t, router, "POST", "/api/v1/questions/generate", models.GenerateRequest{
		PrincipleIDs:          []string{"fitts-law"},
		QuestionsPerPrinciple: 1,
		Difficulty:            models.DifficultyEasy,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp models.GenerateResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotEmpty(t, resp.RunID)
	assert.Equal(t, 1, resp.QuestionsSaved)
	require.Len(t, resp.Questions, 1)
	assert.Len(t, resp.Questions[0].Options, 4)
}

func TestHandler_GenerateErrors(t *testing.T) {
	svc, _, _ := newTestService(t, llm.NewMockClient(), ServiceConfig{MaxCostUSD: 0.01})
	router := newTestRouter(svc)

	tests := []struct {
		name string
		body any
		code int
	}{
		{"bad body", "not an object", http.StatusBadRequest},
		{"bad difficulty", map[string]any{"principleIds": []string{"fitts-law"}, "difficulty": "extreme"}, http.StatusBadRequest},
		{"unknown principle", models.GenerateRequest{PrincipleIDs: []string{"ghost"}}, http.StatusBadRequest},
		{"count out of range", models.GenerateRequest{PrincipleIDs: []string{"fitts-law"}, QuestionsPerPrinciple: 50}, http.StatusBadRequest},
		{"over budget", models.GenerateRequest{PrincipleIDs: []string{"fitts-law", "hicks-law"}, QuestionsPerPrinciple: 5}, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, router, "POST", "/api/v1/questions/generate", tt.body)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())

			var errResp models.ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&errResp))
			assert.NotEmpty(t, errResp.Error)
		})
	}
}

func TestHandler_Estimate(t *testing.T) {
	svc, _, _ := newTestService(t, llm.NewMockClient(), ServiceConfig{})
	router := newTestRouter(svc)

	rec := doJSON(t, router, "POST", "/api/v1/questions/estimate", models.EstimateRequest{PrincipleCount: 1, QuestionsPerPrinciple: 5})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.EstimateResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 200, resp.PromptTokens)
	assert.Equal(t, 750, resp.CompletionTokens)
	assert.Equal(t, 0.05, resp.EstimatedCostUSD)
	assert.True(t, resp.WithinLimit)
}

func TestHandler_ListForPrinciple(t *testing.T) {
	mock := llm.NewMockClient(llm.MockResponse{Content: reply(2, "anchoring")})
	svc, _, _ := newTestService(t, mock, ServiceConfig{})
	router := newTestRouter(svc)

	rec := doJSON(t, router, "POST", "/api/v1/questions/generate", models.GenerateRequest{PrincipleIDs: []string{"anchoring"}, QuestionsPerPrinciple: 2})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, "GET", "/api/v1/principles/anchoring/questions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list models.QuestionListResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	assert.Equal(t, 2, list.Total)

	rec = doJSON(t, router, "GET", "/api/v1/principles/ghost/questions", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_Runs(t *testing.T) {
	mock := llm.NewMockClient(
		llm.MockResponse{Content: reply(1, "fitts-law")},
		llm.MockResponse{Content: reply(1, "hicks-law")},
	)
	svc, _, _ := newTestService(t, mock, ServiceConfig{})
	router := newTestRouter(svc)

	var runIDs []string
	for _, id := range []string{"fitts-law", "hicks-law"} {
		rec := doJSON(t, router, "POST", "/api/v1/questions/generate", models.GenerateRequest{PrincipleIDs: []string{id}, QuestionsPerPrinciple: 1})
		require.Equal(t, http.StatusCreated, rec.Code)
		var resp models.GenerateResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		runIDs = append(runIDs, resp.RunID)
	}

	rec := doJSON(t, router, "GET", "/api/v1/generation-runs?status=completed&limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []models.GenerationRun
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&runs))
	assert.Len(t, runs, 1)

	rec = doJSON(t, router, "GET", "/api/v1/generation-runs?status=failed", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = doJSON(t, router, "GET", "/api/v1/generation-runs/"+runIDs[1], nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var run models.GenerationRun
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&run))
	assert.Equal(t, runIDs[1], run.ID)
	assert.Equal(t, 1, run.QuestionsSaved)

	rec = doJSON(t, router, "GET", "/api/v1/generation-runs/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_Stats(t *testing.T) {
	mock := llm.NewMockClient(llm.MockResponse{Content: reply(3, "fitts-law")})
	svc, _, _ := newTestService(t, mock, ServiceConfig{})
	router := newTestRouter(svc)

	rec := doJSON(t, router, "POST", "/api/v1/questions/generate", models.GenerateRequest{PrincipleIDs: []string{"fitts-law"}, QuestionsPerPrinciple: 3})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, "GET", "/api/v1/questions/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats models.QuestionStats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&stats))
	assert.Equal(t, 3, stats.TotalQuestions)
	assert.Equal(t, 3, stats.BySource["ai"])
	total := 0
	for _, c := range stats.CorrectAnswerPositions {
		total += c
	}
	assert.Equal(t, 3, total)
}
