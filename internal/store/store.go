// Package store provides storage backends for InterviewPipe.
//
// It persists three record sets: interview questions with acceptance
// criteria, submitted answers (results), and per-state intro messages.
// Backends exist for SQLite, PostgreSQL, and an in-memory store used for
// tests and DSN-less development.
package store

import (
	"context"

	"github.com/BTreeMap/InterviewPipe/internal/models"
)

// Store is the persistence contract the coordinator depends on. Each
// operation is atomic from the coordinator's point of view; lookups that
// find nothing return nil/"" rather than an error.
type Store interface {
	// AddQuestion inserts a new interview question.
	AddQuestion(ctx context.Context, q models.Question) error
	// GetQuestion fetches a question by id, or nil when absent.
	GetQuestion(ctx context.Context, questionID int64) (*models.Question, error)
	// ListQuestions returns all questions ordered by question_id.
	ListQuestions(ctx context.Context) ([]models.Question, error)
	// NextUnansweredQuestion returns the lowest-id question the user has not
	// answered yet, or nil when none remain. Computed fresh on every call so
	// skipped questions are eventually reachable.
	NextUnansweredQuestion(ctx context.Context, userID string) (*models.Question, error)

	// AddStateIntro inserts an intro message for a state.
	AddStateIntro(ctx context.Context, si models.StateIntro) error
	// GetStateIntro returns the intro message for a state, or "" when absent.
	GetStateIntro(ctx context.Context, state int) (string, error)

	// RecordAnswer inserts an answer row and, when advance is true, updates
	// the state of the user's most recent row (by created_at) to targetState.
	// Both writes happen in one transaction so a reader never observes the
	// inserted answer without its final state.
	RecordAnswer(ctx context.Context, a models.Answer, advance bool, targetState int) error
	// LatestAnswer returns the user's most recent answer, or nil when none.
	LatestAnswer(ctx context.Context, userID string) (*models.Answer, error)
	// ConversationHistory returns the user's question/answer pairs in
	// insertion order.
	ConversationHistory(ctx context.Context, userID string) ([]models.QA, error)

	// Close releases the underlying resources.
	Close() error
}
