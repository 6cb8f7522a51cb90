// Package store provides storage backends for InterviewPipe.
//
// This file implements an in-memory store used for tests and DSN-less
// development runs.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/BTreeMap/InterviewPipe/internal/models"
)

// InMemoryStore keeps all records in process memory. Answers are held in
// insertion order, which doubles as the created_at tie-break for "most
// recent" lookups.
type InMemoryStore struct {
	mu        sync.Mutex
	questions map[int64]models.Question
	answers   []models.Answer
	intros    []models.StateIntro
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{questions: make(map[int64]models.Question)}
}

// AddQuestion inserts a question record.
func (s *InMemoryStore) AddQuestion(ctx context.Context, q models.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions[q.QuestionID] = q
	return nil
}

// GetQuestion fetches a question by id, or nil when absent.
func (s *InMemoryStore) GetQuestion(ctx context.Context, questionID int64) (*models.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[questionID]
	if !ok {
		return nil, nil
	}
	return &q, nil
}

// ListQuestions returns all questions ordered by question_id.
func (s *InMemoryStore) ListQuestions(ctx context.Context) ([]models.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	questions := make([]models.Question, 0, len(s.questions))
	for _, q := range s.questions {
		questions = append(questions, q)
	}
	sort.Slice(questions, func(i, j int) bool { return questions[i].QuestionID < questions[j].QuestionID })
	return questions, nil
}

// NextUnansweredQuestion returns the lowest-id question without an answer
// from the user, or nil when none remain.
func (s *InMemoryStore) NextUnansweredQuestion(ctx context.Context, userID string) (*models.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	answered := make(map[int64]bool)
	for _, a := range s.answers {
		if a.UserID == userID {
			answered[a.RelatedQuestionID] = true
		}
	}
	var next *models.Question
	for id, q := range s.questions {
		if answered[id] {
			continue
		}
		if next == nil || q.QuestionID < next.QuestionID {
			candidate := q
			next = &candidate
		}
	}
	return next, nil
}

// AddStateIntro inserts an intro message for a state.
func (s *InMemoryStore) AddStateIntro(ctx context.Context, si models.StateIntro) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intros = append(s.intros, si)
	return nil
}

// GetStateIntro returns the intro message for a state, or "" when absent.
func (s *InMemoryStore) GetStateIntro(ctx context.Context, state int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, si := range s.intros {
		if si.State == state {
			return si.IntroMessage, nil
		}
	}
	return "", nil
}

// RecordAnswer appends an answer and, when advance is true, updates the
// state of the user's most recent row.
func (s *InMemoryStore) RecordAnswer(ctx context.Context, a models.Answer, advance bool, targetState int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers = append(s.answers, a)
	if advance {
		if idx := s.latestIndexLocked(a.UserID); idx >= 0 {
			s.answers[idx].State = targetState
		}
	}
	return nil
}

// LatestAnswer returns the user's most recent answer, or nil when none.
func (s *InMemoryStore) LatestAnswer(ctx context.Context, userID string) (*models.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.latestIndexLocked(userID)
	if idx < 0 {
		return nil, nil
	}
	a := s.answers[idx]
	return &a, nil
}

// latestIndexLocked finds the most recent answer for a user: max created_at,
// insertion order breaking ties. Caller must hold the mutex.
func (s *InMemoryStore) latestIndexLocked(userID string) int {
	idx := -1
	for i, a := range s.answers {
		if a.UserID != userID {
			continue
		}
		if idx < 0 || !a.CreatedAt.Before(s.answers[idx].CreatedAt) {
			idx = i
		}
	}
	return idx
}

// ConversationHistory returns the user's question/answer pairs in insertion order.
func (s *InMemoryStore) ConversationHistory(ctx context.Context, userID string) ([]models.QA, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var history []models.QA
	for _, a := range s.answers {
		if a.UserID != userID {
			continue
		}
		q, ok := s.questions[a.RelatedQuestionID]
		if !ok {
			continue
		}
		history = append(history, models.QA{Question: q.Text, Answer: a.Content, AskedAt: a.CreatedAt})
	}
	return history, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
