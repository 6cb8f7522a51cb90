package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BTreeMap/InterviewPipe/internal/flow"
	"github.com/BTreeMap/InterviewPipe/internal/models"
	"github.com/BTreeMap/InterviewPipe/internal/store"
)

// acceptAllValidator accepts every answer with a fixed reaction.
type acceptAllValidator struct{}

func (acceptAllValidator) CheckAcceptance(ctx context.Context, question, criteria, answer string) (models.ValidationResult, error) {
	return models.ValidationResult{Passed: true}, nil
}

func (acceptAllValidator) GenerateFollowUp(ctx context.Context, question, answer, reason string) (string, error) {
	return "", nil
}

func (acceptAllValidator) GenerateReaction(ctx context.Context, history []models.QA, question, answer string) (string, error) {
	return "Thanks!", nil
}

func newTestServer(t *testing.T) (*Server, store.Store) {
	t.Helper()
	st := store.NewInMemoryStore()
	coordinator := flow.NewCoordinator(st, acceptAllValidator{})
	return NewServer(st, coordinator), st
}

func postJSON(t *testing.T, handler http.Handler, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) models.APIResponse {
	t.Helper()
	var resp models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if resp.Status != string(models.APIStatusOK) {
		t.Errorf("response status = %q, want ok", resp.Status)
	}
}

func TestSeedQuestionValidation(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.Handler()

	// Missing acceptance criteria is rejected.
	rec := postJSON(t, handler, "/questions", models.SeedQuestionRequest{
		QuestionID: 1,
		Question:   "What motivates you?",
		State:      1,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}

	// A valid question is recorded.
	rec = postJSON(t, handler, "/questions", models.SeedQuestionRequest{
		QuestionID:         1,
		Question:           "What motivates you?",
		AcceptanceCriteria: "Names a motivation",
		State:              1,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body %s", rec.Code, rec.Body.String())
	}
	resp := decodeResponse(t, rec)
	if resp.Status != string(models.APIStatusRecorded) {
		t.Errorf("response status = %q, want recorded", resp.Status)
	}
}

func TestListQuestions(t *testing.T) {
	srv, st := newTestServer(t)
	if err := st.AddQuestion(context.Background(), models.Question{
		QuestionID:         1,
		Text:               "q1",
		AcceptanceCriteria: "c1",
		State:              1,
		MaxDepth:           1,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/questions", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	resp := decodeResponse(t, rec)
	questions, ok := resp.Result.([]interface{})
	if !ok || len(questions) != 1 {
		t.Errorf("result = %+v, want one question", resp.Result)
	}
}

func TestSeedStateIntro(t *testing.T) {
	srv, st := newTestServer(t)
	handler := srv.Handler()

	rec := postJSON(t, handler, "/states", models.SeedStateIntroRequest{
		State:        2,
		IntroMessage: "Part two begins.",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body %s", rec.Code, rec.Body.String())
	}

	intro, err := st.GetStateIntro(context.Background(), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if intro != "Part two begins." {
		t.Errorf("stored intro = %q", intro)
	}

	// Empty intro message is rejected.
	rec = postJSON(t, handler, "/states", models.SeedStateIntroRequest{State: 2})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestStartGeneratesUserID(t *testing.T) {
	srv, st := newTestServer(t)
	if err := st.AddQuestion(context.Background(), models.Question{
		QuestionID:         1,
		Text:               "What motivates you?",
		AcceptanceCriteria: "Names a motivation",
		State:              1,
		MaxDepth:           1,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec := postJSON(t, srv.Handler(), "/interview/start", models.StartRequest{})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
	resp := decodeResponse(t, rec)
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatalf("result = %+v", resp.Result)
	}
	userID, _ := result["user_id"].(string)
	if userID == "" {
		t.Error("user_id not generated")
	}
}

func TestStartAndContinueFlow(t *testing.T) {
	srv, st := newTestServer(t)
	handler := srv.Handler()
	ctx := context.Background()
	for i := int64(1); i <= 2; i++ {
		if err := st.AddQuestion(ctx, models.Question{
			QuestionID:         i,
			Text:               "question",
			AcceptanceCriteria: "criteria",
			State:              1,
			MaxDepth:           1,
		}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	rec := postJSON(t, handler, "/interview/start", models.StartRequest{UserID: "u1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("start status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = postJSON(t, handler, "/interview/continue", models.ContinueRequest{
		UserID: "u1",
		Answer: "my answer",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("continue status = %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decodeResponse(t, rec)
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatalf("result = %+v", resp.Result)
	}
	if accepted, _ := result["accepted"].(bool); !accepted {
		t.Error("answer not accepted")
	}
	next, _ := result["next"].(map[string]interface{})
	if kind, _ := next["kind"].(string); kind != string(models.StepMainQuestion) {
		t.Errorf("next kind = %q, want main_question", kind)
	}
}

func TestContinueValidation(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.Handler()

	// Empty answer is rejected before reaching the coordinator.
	rec := postJSON(t, handler, "/interview/continue", models.ContinueRequest{UserID: "u1"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}

	// Malformed JSON is rejected.
	req := httptest.NewRequest(http.MethodPost, "/interview/continue", bytes.NewReader([]byte("{not json")))
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req)
	if rec2.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec2.Code)
	}
}

func TestHistoryRequiresUserID(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.Handler()

	req := httptest.NewRequest(http.MethodGet, "/interview/history", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/interview/history?user_id=u1", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.Handler()

	cases := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/interview/start"},
		{http.MethodGet, "/interview/continue"},
		{http.MethodPost, "/interview/history"},
		{http.MethodDelete, "/questions"},
		{http.MethodGet, "/states"},
		{http.MethodPost, "/health"},
	}
	for _, c := range cases {
		req := httptest.NewRequest(c.method, c.path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s status = %d, want 405", c.method, c.path, rec.Code)
		}
	}
}
