// Package api provides HTTP handlers for InterviewPipe endpoints.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/BTreeMap/InterviewPipe/internal/models"
	"github.com/BTreeMap/InterviewPipe/internal/util"
	"github.com/google/uuid"
)

// startHandler handles POST /interview/start
func (s *Server) startHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.startHandler: processing start request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.startHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req models.StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.startHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	// A missing user ID starts a fresh session under a generated one.
	userID := req.UserID
	if userID == "" {
		userID = util.GenerateUserID()
		slog.Debug("Server.startHandler: generated user ID", "userID", userID)
	}

	step, err := s.coordinator.Start(r.Context(), userID)
	if err != nil {
		slog.Error("Server.startHandler: failed to start interview", "error", err, "userID", userID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to start interview"))
		return
	}

	slog.Info("Server.startHandler: interview step issued", "userID", userID, "kind", step.Kind)
	writeJSONResponse(w, http.StatusOK, models.Success(models.StartResponse{UserID: userID, Step: step}))
}

// continueHandler handles POST /interview/continue
func (s *Server) continueHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.continueHandler: processing continue request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.continueHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req models.ContinueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.continueHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		slog.Warn("Server.continueHandler: validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	result, err := s.coordinator.Continue(r.Context(), req.UserID, req.Answer, req.MainQuestionID, req.SubquestionDepth)
	if err != nil {
		slog.Error("Server.continueHandler: failed to process answer", "error", err, "userID", req.UserID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to process answer"))
		return
	}

	slog.Info("Server.continueHandler: answer processed", "userID", req.UserID, "accepted", result.Accepted, "nextKind", result.Next.Kind)
	writeJSONResponse(w, http.StatusOK, models.Success(result))
}

// historyHandler handles GET /interview/history?user_id=...
func (s *Server) historyHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.historyHandler: processing history request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		slog.Warn("Server.historyHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		slog.Warn("Server.historyHandler: missing user_id")
		writeJSONResponse(w, http.StatusBadRequest, models.Error("user_id query parameter is required"))
		return
	}

	history, err := s.coordinator.History(r.Context(), userID)
	if err != nil {
		slog.Error("Server.historyHandler: failed to fetch history", "error", err, "userID", userID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch conversation history"))
		return
	}

	slog.Debug("Server.historyHandler: history fetched", "userID", userID, "entries", len(history))
	writeJSONResponse(w, http.StatusOK, models.Success(history))
}

// questionsHandler handles GET and POST /questions
func (s *Server) questionsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.questionsHandler: processing questions request", "method", r.Method, "path", r.URL.Path)
	switch r.Method {
	case http.MethodGet:
		questions, err := s.st.ListQuestions(r.Context())
		if err != nil {
			slog.Error("Server.questionsHandler: failed to list questions", "error", err)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list questions"))
			return
		}
		writeJSONResponse(w, http.StatusOK, models.Success(questions))

	case http.MethodPost:
		var req models.SeedQuestionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			slog.Warn("Server.questionsHandler: failed to decode JSON", "error", err)
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
			return
		}
		if err := req.Validate(); err != nil {
			slog.Warn("Server.questionsHandler: validation failed", "error", err)
			writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
			return
		}
		q := req.ToQuestion()
		if err := s.st.AddQuestion(r.Context(), q); err != nil {
			slog.Error("Server.questionsHandler: failed to add question", "error", err, "questionID", q.QuestionID)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to add question"))
			return
		}
		slog.Info("Server.questionsHandler: question added", "questionID", q.QuestionID, "state", q.State)
		writeJSONResponse(w, http.StatusCreated, models.RecordedWithMessage("Question added successfully", q))

	default:
		w.Header().Set("Allow", "GET, POST")
		slog.Warn("Server.questionsHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// statesHandler handles POST /states
func (s *Server) statesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.statesHandler: processing states request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.statesHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req models.SeedStateIntroRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.statesHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		slog.Warn("Server.statesHandler: validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	intro := models.StateIntro{
		MsgID:        uuid.NewString(),
		State:        req.State,
		IntroMessage: req.IntroMessage,
	}
	if err := s.st.AddStateIntro(r.Context(), intro); err != nil {
		slog.Error("Server.statesHandler: failed to add state intro", "error", err, "state", intro.State)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to add state intro"))
		return
	}
	slog.Info("Server.statesHandler: state intro added", "state", intro.State, "msgID", intro.MsgID)
	writeJSONResponse(w, http.StatusCreated, models.RecordedWithMessage("State intro added successfully", intro))
}

// healthHandler handles GET /health
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("InterviewPipe API is healthy", nil))
}
