// Package flow implements the interview conversation coordinator.
//
// The coordinator drives one step of an interview per invocation and is
// stateless between calls: all session state lives in the persisted answer
// records, keyed by user ID. Progression follows question_id order, with
// acceptance checks delegated to an answer validator and follow-up chains
// bounded by each question's max_depth budget.
package flow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BTreeMap/InterviewPipe/internal/models"
	"github.com/BTreeMap/InterviewPipe/internal/store"
	"github.com/google/uuid"
)

// SentinelNoCurrentQuestion is the reaction text returned when no active
// question can be resolved for a continue step.
const SentinelNoCurrentQuestion = "No current question found"

// introSeparator joins a state intro message and the question text.
const introSeparator = "\n\n"

// AnswerValidator is the external acceptance capability the coordinator
// depends on. Implementations evaluate answers against free-text criteria
// and generate follow-up questions and reactions.
type AnswerValidator interface {
	CheckAcceptance(ctx context.Context, question, criteria, answer string) (models.ValidationResult, error)
	GenerateFollowUp(ctx context.Context, question, answer, reason string) (string, error)
	GenerateReaction(ctx context.Context, history []models.QA, question, answer string) (string, error)
}

// Coordinator orchestrates the question sequence for all users. Dependencies
// are injected so tests can substitute a deterministic validator.
type Coordinator struct {
	store     store.Store
	validator AnswerValidator
}

// NewCoordinator creates a coordinator with the given store and validator.
func NewCoordinator(st store.Store, v AnswerValidator) *Coordinator {
	slog.Debug("flow.NewCoordinator: creating coordinator", "hasStore", st != nil, "hasValidator", v != nil)
	return &Coordinator{store: st, validator: v}
}

// Start finds the next unanswered question for a user. The question text is
// prefixed with its state's intro message when the user is entering that
// state for the first time. Returns a complete step when no questions remain.
func (c *Coordinator) Start(ctx context.Context, userID string) (models.Step, error) {
	slog.Debug("Coordinator.Start: starting interview step", "userID", userID)

	q, err := c.store.NextUnansweredQuestion(ctx, userID)
	if err != nil {
		return models.Step{}, fmt.Errorf("failed to resolve next question: %w", err)
	}
	if q == nil {
		state, err := c.ConversationState(ctx, userID)
		if err != nil {
			return models.Step{}, err
		}
		slog.Debug("Coordinator.Start: interview already complete", "userID", userID)
		return models.Step{Kind: models.StepComplete, State: state}, nil
	}

	text := q.Text
	latest, err := c.store.LatestAnswer(ctx, userID)
	if err != nil {
		return models.Step{}, fmt.Errorf("failed to fetch latest answer: %w", err)
	}
	if latest == nil || latest.State != q.State {
		text = c.withStateIntro(ctx, q.State, text)
	}

	slog.Info("Coordinator.Start: presenting question", "userID", userID, "questionID", q.QuestionID, "state", q.State)
	return models.Step{
		Kind:       models.StepMainQuestion,
		Question:   text,
		QuestionID: q.QuestionID,
		State:      q.State,
	}, nil
}

// Continue processes one answer: validate, persist, react, and compute the
// next step. mainQuestionID is set while inside a follow-up chain and pins
// the active question; depth is the subquestion depth of the answer being
// submitted (0 for a direct answer to the main question).
//
// A validator failure aborts the step before anything is persisted, so the
// caller may resubmit the same answer.
func (c *Coordinator) Continue(ctx context.Context, userID, answer string, mainQuestionID *int64, depth int) (models.ContinueResult, error) {
	slog.Debug("Coordinator.Continue: processing answer", "userID", userID, "depth", depth, "hasMainQuestionID", mainQuestionID != nil)

	// Resolve the active question: pinned while following up, otherwise the
	// next unanswered one.
	var active *models.Question
	var err error
	if mainQuestionID != nil {
		active, err = c.store.GetQuestion(ctx, *mainQuestionID)
	} else {
		active, err = c.store.NextUnansweredQuestion(ctx, userID)
	}
	if err != nil {
		return models.ContinueResult{}, fmt.Errorf("failed to resolve active question: %w", err)
	}
	if active == nil {
		state, stateErr := c.ConversationState(ctx, userID)
		if stateErr != nil {
			return models.ContinueResult{}, stateErr
		}
		slog.Debug("Coordinator.Continue: no active question", "userID", userID)
		return models.ContinueResult{
			Accepted: false,
			Reaction: SentinelNoCurrentQuestion,
			Next:     models.Step{Kind: models.StepComplete, State: state},
		}, nil
	}

	// Validate before persisting so a judgment-less answer is never recorded.
	verdict, err := c.validator.CheckAcceptance(ctx, active.Text, active.AcceptanceCriteria, answer)
	if err != nil {
		slog.Error("Coordinator.Continue: acceptance check failed, step aborted", "error", err, "userID", userID, "questionID", active.QuestionID)
		return models.ContinueResult{}, fmt.Errorf("acceptance check unavailable: %w", err)
	}

	var followUp string
	if !verdict.Passed {
		followUp, err = c.validator.GenerateFollowUp(ctx, active.Text, answer, verdict.Reason)
		if err != nil {
			slog.Error("Coordinator.Continue: follow-up generation failed, step aborted", "error", err, "userID", userID, "questionID", active.QuestionID)
			return models.ContinueResult{}, fmt.Errorf("follow-up generation unavailable: %w", err)
		}
	}

	record := models.Answer{
		AnswerID:          uuid.NewString(),
		Content:           answer,
		RelatedQuestionID: active.QuestionID,
		UserID:            userID,
		State:             active.State,
		SubquestionDepth:  depth,
		CreatedAt:         time.Now().UTC(),
	}
	if err := c.store.RecordAnswer(ctx, record, verdict.Passed, active.State); err != nil {
		return models.ContinueResult{}, fmt.Errorf("failed to record answer: %w", err)
	}
	slog.Debug("Coordinator.Continue: answer recorded", "userID", userID, "questionID", active.QuestionID, "accepted", verdict.Passed, "depth", depth)

	// The reaction is best effort: the answer is already durably recorded,
	// so a generation failure degrades to an empty reaction.
	reaction := c.generateReaction(ctx, userID, active.Text, answer)

	// Stay inside the follow-up chain while the budget allows.
	if !verdict.Passed && followUp != "" && depth+1 <= active.MaxDepth {
		mainID := active.QuestionID
		if mainQuestionID != nil {
			mainID = *mainQuestionID
		}
		slog.Info("Coordinator.Continue: issuing follow-up", "userID", userID, "mainQuestionID", mainID, "depth", depth+1)
		return models.ContinueResult{
			Accepted: verdict.Passed,
			Reaction: reaction,
			Next: models.Step{
				Kind:           models.StepFollowUp,
				Question:       followUp,
				State:          active.State,
				Depth:          depth + 1,
				MainQuestionID: mainID,
			},
		}, nil
	}

	// Accepted, or the follow-up budget is exhausted: advance to the next
	// main question.
	next, err := c.store.NextUnansweredQuestion(ctx, userID)
	if err != nil {
		return models.ContinueResult{}, fmt.Errorf("failed to resolve next question: %w", err)
	}
	if next == nil {
		state, stateErr := c.ConversationState(ctx, userID)
		if stateErr != nil {
			return models.ContinueResult{}, stateErr
		}
		slog.Info("Coordinator.Continue: interview complete", "userID", userID, "state", state)
		return models.ContinueResult{
			Accepted: verdict.Passed,
			Reaction: reaction,
			Next:     models.Step{Kind: models.StepComplete, State: state},
		}, nil
	}

	text := next.Text
	if next.State != active.State {
		text = c.withStateIntro(ctx, next.State, text)
	}
	slog.Info("Coordinator.Continue: advancing to next question", "userID", userID, "questionID", next.QuestionID, "state", next.State)
	return models.ContinueResult{
		Accepted: verdict.Passed,
		Reaction: reaction,
		Next: models.Step{
			Kind:       models.StepMainQuestion,
			Question:   text,
			QuestionID: next.QuestionID,
			State:      next.State,
		},
	}, nil
}

// ConversationState derives the user's current state from the most recent
// answer, defaulting to the initial state when the user has none.
func (c *Coordinator) ConversationState(ctx context.Context, userID string) (int, error) {
	latest, err := c.store.LatestAnswer(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to derive conversation state: %w", err)
	}
	if latest == nil {
		return models.DefaultInitialState, nil
	}
	return latest.State, nil
}

// History returns the user's question/answer pairs in insertion order.
func (c *Coordinator) History(ctx context.Context, userID string) ([]models.QA, error) {
	return c.store.ConversationHistory(ctx, userID)
}

// withStateIntro prefixes text with the intro message for a state when one
// exists. A missing or unreadable intro skips the prefix.
func (c *Coordinator) withStateIntro(ctx context.Context, state int, text string) string {
	intro, err := c.store.GetStateIntro(ctx, state)
	if err != nil {
		slog.Warn("Coordinator.withStateIntro: intro lookup failed, skipping", "error", err, "state", state)
		return text
	}
	if intro == "" {
		return text
	}
	return intro + introSeparator + text
}

// generateReaction produces a reaction over the answer and the user's full
// history, degrading to an empty string on failure.
func (c *Coordinator) generateReaction(ctx context.Context, userID, question, answer string) string {
	history, err := c.store.ConversationHistory(ctx, userID)
	if err != nil {
		slog.Warn("Coordinator.generateReaction: history lookup failed, continuing without", "error", err, "userID", userID)
		history = nil
	}
	reaction, err := c.validator.GenerateReaction(ctx, history, question, answer)
	if err != nil {
		slog.Warn("Coordinator.generateReaction: reaction generation failed", "error", err, "userID", userID)
		return ""
	}
	return reaction
}
