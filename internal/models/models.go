// Package models defines the core data structures for InterviewPipe.
//
// It includes types for interview questions, submitted answers, state intro
// messages, and the API request/response payloads shared across modules.
package models

import (
	"errors"
	"time"
)

// Default values applied when a record or a request omits a field.
const (
	// DefaultInitialState is the conversation state assumed for a user with no answers.
	DefaultInitialState = 1
	// DefaultMaxDepth is the follow-up budget assumed when a question does not set one.
	DefaultMaxDepth = 1
	// MaxAnswerContentLength defines the maximum allowed length for answer content.
	MaxAnswerContentLength = 8192
	// MaxQuestionTextLength defines the maximum allowed length for question text.
	MaxQuestionTextLength = 4096
)

// Error variables for better error handling and testability
var (
	ErrEmptyUserID         = errors.New("user_id cannot be empty")
	ErrEmptyAnswer         = errors.New("answer cannot be empty")
	ErrAnswerTooLong       = errors.New("answer exceeds maximum length")
	ErrNegativeDepth       = errors.New("subquestion_depth cannot be negative")
	ErrInvalidQuestionID   = errors.New("question_id must be positive")
	ErrEmptyQuestionText   = errors.New("question text cannot be empty")
	ErrQuestionTextTooLong = errors.New("question text exceeds maximum length")
	ErrEmptyCriteria       = errors.New("acceptance_criteria cannot be empty")
	ErrInvalidState        = errors.New("state must be positive")
	ErrNegativeMaxDepth    = errors.New("max_depth cannot be negative")
	ErrEmptyIntroMessage   = errors.New("intro_message cannot be empty")
)

// Question represents a main interview question with its acceptance criteria,
// target state, and follow-up budget. Questions are immutable once created;
// question_id ordering defines the canonical interview sequence.
type Question struct {
	QuestionID         int64     `json:"question_id"`
	Text               string    `json:"question"`
	AcceptanceCriteria string    `json:"acceptance_criteria"`
	State              int       `json:"state"`
	MaxDepth           int       `json:"max_depth"`
	CreatedAt          time.Time `json:"created_at,omitempty"`
}

// Answer represents a single submitted answer (a result record). Records are
// append-only except for the state field of a user's most recent row, which
// may be advanced when a later answer is accepted.
type Answer struct {
	AnswerID          string    `json:"answer_id"`
	Content           string    `json:"answer_content"`
	RelatedQuestionID int64     `json:"related_question_id"`
	UserID            string    `json:"user_id"`
	State             int       `json:"state"`
	SubquestionDepth  int       `json:"subquestion_depth"`
	CreatedAt         time.Time `json:"created_at"`
}

// StateIntro maps a conversation state to the introductory text shown once
// when a user's progress crosses into that state.
type StateIntro struct {
	MsgID        string `json:"msg_id"`
	State        int    `json:"state"`
	IntroMessage string `json:"intro_message"`
}

// QA is one question/answer pair from a user's conversation history,
// ordered by answer creation time.
type QA struct {
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	AskedAt  time.Time `json:"asked_at"`
}

// ValidationResult is the parsed output of an acceptance check.
type ValidationResult struct {
	Passed bool   `json:"passed"`
	Reason string `json:"reason,omitempty"`
}

// StepKind discriminates the next step returned by the coordinator.
type StepKind string

const (
	// StepMainQuestion presents a top-level interview question.
	StepMainQuestion StepKind = "main_question"
	// StepFollowUp presents a generated follow-up inside a question's chain.
	StepFollowUp StepKind = "follow_up"
	// StepComplete indicates the interview has no remaining questions.
	StepComplete StepKind = "complete"
)

// Step is the explicit next-step union returned by the coordinator. Exactly
// one kind applies; fields not meaningful for a kind are zero.
//
// For main_question: QuestionID and State identify the question, Depth is 0.
// For follow_up: Question holds the generated text, Depth is the follow-up
// depth (1..max_depth), MainQuestionID is the question being followed up on,
// and State is the state in effect (unchanged until acceptance).
// For complete: State is the user's last known state.
type Step struct {
	Kind           StepKind `json:"kind"`
	Question       string   `json:"question,omitempty"`
	QuestionID     int64    `json:"question_id,omitempty"`
	State          int      `json:"state,omitempty"`
	Depth          int      `json:"subquestion_depth,omitempty"`
	MainQuestionID int64    `json:"main_question_id,omitempty"`
}

// ContinueResult is the full outcome of one Continue invocation.
type ContinueResult struct {
	Accepted bool   `json:"accepted"`
	Reaction string `json:"reaction,omitempty"`
	Next     Step   `json:"next"`
}

// StartRequest is the payload for POST /interview/start. UserID may be empty,
// in which case the server generates one for the session.
type StartRequest struct {
	UserID string `json:"user_id,omitempty"`
}

// StartResponse carries the first step plus the (possibly generated) user ID.
type StartResponse struct {
	UserID string `json:"user_id"`
	Step   Step   `json:"step"`
}

// ContinueRequest is the payload for POST /interview/continue.
type ContinueRequest struct {
	UserID           string `json:"user_id"`
	Answer           string `json:"answer"`
	MainQuestionID   *int64 `json:"main_question_id,omitempty"`
	SubquestionDepth int    `json:"subquestion_depth,omitempty"`
}

// Validate checks a ContinueRequest before it reaches the coordinator.
func (r *ContinueRequest) Validate() error {
	if r.UserID == "" {
		return ErrEmptyUserID
	}
	if r.Answer == "" {
		return ErrEmptyAnswer
	}
	if len(r.Answer) > MaxAnswerContentLength {
		return ErrAnswerTooLong
	}
	if r.SubquestionDepth < 0 {
		return ErrNegativeDepth
	}
	if r.MainQuestionID != nil && *r.MainQuestionID <= 0 {
		return ErrInvalidQuestionID
	}
	return nil
}

// SeedQuestionRequest is the payload for POST /questions.
type SeedQuestionRequest struct {
	QuestionID         int64  `json:"question_id"`
	Question           string `json:"question"`
	AcceptanceCriteria string `json:"acceptance_criteria"`
	State              int    `json:"state"`
	MaxDepth           *int   `json:"max_depth,omitempty"`
}

// Validate checks a SeedQuestionRequest.
func (r *SeedQuestionRequest) Validate() error {
	if r.QuestionID <= 0 {
		return ErrInvalidQuestionID
	}
	if r.Question == "" {
		return ErrEmptyQuestionText
	}
	if len(r.Question) > MaxQuestionTextLength {
		return ErrQuestionTextTooLong
	}
	if r.AcceptanceCriteria == "" {
		return ErrEmptyCriteria
	}
	if r.State <= 0 {
		return ErrInvalidState
	}
	if r.MaxDepth != nil && *r.MaxDepth < 0 {
		return ErrNegativeMaxDepth
	}
	return nil
}

// ToQuestion converts a validated request into a Question record.
func (r *SeedQuestionRequest) ToQuestion() Question {
	maxDepth := DefaultMaxDepth
	if r.MaxDepth != nil {
		maxDepth = *r.MaxDepth
	}
	return Question{
		QuestionID:         r.QuestionID,
		Text:               r.Question,
		AcceptanceCriteria: r.AcceptanceCriteria,
		State:              r.State,
		MaxDepth:           maxDepth,
	}
}

// SeedStateIntroRequest is the payload for POST /states.
type SeedStateIntroRequest struct {
	State        int    `json:"state"`
	IntroMessage string `json:"intro_message"`
}

// Validate checks a SeedStateIntroRequest.
func (r *SeedStateIntroRequest) Validate() error {
	if r.State <= 0 {
		return ErrInvalidState
	}
	if r.IntroMessage == "" {
		return ErrEmptyIntroMessage
	}
	return nil
}
