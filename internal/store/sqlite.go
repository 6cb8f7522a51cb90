// Package store provides storage backends for InterviewPipe.
//
// This file implements an SQLite-backed store for questions, answers, and
// state intro messages.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/BTreeMap/InterviewPipe/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// Constants for SQLite store configuration
const (
	// DefaultDirPermissions defines the default permissions for database directories
	DefaultDirPermissions = 0755
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	// Ensure the directory exists
	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}

	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	// Run migrations to ensure tables exist
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

// AddQuestion inserts a new interview question.
func (s *SQLiteStore) AddQuestion(ctx context.Context, q models.Question) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO questions_and_acceptance (question_id, question, acceptance_criteria, state, max_depth) VALUES (?, ?, ?, ?, ?)`,
		q.QuestionID, q.Text, q.AcceptanceCriteria, q.State, q.MaxDepth)
	if err != nil {
		slog.Error("SQLiteStore AddQuestion failed", "error", err, "questionID", q.QuestionID)
		return fmt.Errorf("failed to insert question %d: %w", q.QuestionID, err)
	}
	slog.Debug("SQLiteStore AddQuestion succeeded", "questionID", q.QuestionID, "state", q.State)
	return nil
}

// GetQuestion fetches a question by id, or nil when absent.
func (s *SQLiteStore) GetQuestion(ctx context.Context, questionID int64) (*models.Question, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT question_id, question, acceptance_criteria, state, max_depth, created_at
		 FROM questions_and_acceptance WHERE question_id = ?`, questionID)
	q, err := scanQuestionRow(row)
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore GetQuestion not found", "questionID", questionID)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetQuestion failed", "error", err, "questionID", questionID)
		return nil, fmt.Errorf("failed to fetch question %d: %w", questionID, err)
	}
	return &q, nil
}

// ListQuestions returns all questions ordered by question_id.
func (s *SQLiteStore) ListQuestions(ctx context.Context) ([]models.Question, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT question_id, question, acceptance_criteria, state, max_depth, created_at
		 FROM questions_and_acceptance ORDER BY question_id ASC`)
	if err != nil {
		slog.Error("SQLiteStore ListQuestions query failed", "error", err)
		return nil, fmt.Errorf("failed to query questions: %w", err)
	}
	defer rows.Close()

	var questions []models.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			slog.Error("SQLiteStore ListQuestions scan failed", "error", err)
			return nil, err
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore ListQuestions rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate question rows: %w", err)
	}
	slog.Debug("SQLiteStore ListQuestions succeeded", "count", len(questions))
	return questions, nil
}

// NextUnansweredQuestion returns the lowest-id question the user has not
// answered yet, or nil when none remain.
func (s *SQLiteStore) NextUnansweredQuestion(ctx context.Context, userID string) (*models.Question, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT question_id, question, acceptance_criteria, state, max_depth, created_at
		 FROM questions_and_acceptance
		 WHERE question_id NOT IN (
		     SELECT related_question_id FROM results WHERE user_id = ?
		 )
		 ORDER BY question_id ASC
		 LIMIT 1`, userID)
	q, err := scanQuestionRow(row)
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore NextUnansweredQuestion none remain", "userID", userID)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore NextUnansweredQuestion failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to fetch next unanswered question: %w", err)
	}
	return &q, nil
}

// AddStateIntro inserts an intro message for a state.
func (s *SQLiteStore) AddStateIntro(ctx context.Context, si models.StateIntro) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO states_intro (msg_id, state, intro_message) VALUES (?, ?, ?)`,
		si.MsgID, si.State, si.IntroMessage)
	if err != nil {
		slog.Error("SQLiteStore AddStateIntro failed", "error", err, "state", si.State)
		return fmt.Errorf("failed to insert state intro for state %d: %w", si.State, err)
	}
	slog.Debug("SQLiteStore AddStateIntro succeeded", "state", si.State)
	return nil
}

// GetStateIntro returns the intro message for a state, or "" when absent.
func (s *SQLiteStore) GetStateIntro(ctx context.Context, state int) (string, error) {
	var intro string
	err := s.db.QueryRowContext(ctx,
		`SELECT intro_message FROM states_intro WHERE state = ? LIMIT 1`, state).Scan(&intro)
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore GetStateIntro not found", "state", state)
		return "", nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetStateIntro failed", "error", err, "state", state)
		return "", fmt.Errorf("failed to fetch state intro for state %d: %w", state, err)
	}
	return intro, nil
}

// RecordAnswer inserts an answer row and, when advance is true, updates the
// state of the user's most recent row inside the same transaction.
func (s *SQLiteStore) RecordAnswer(ctx context.Context, a models.Answer, advance bool, targetState int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Error("SQLiteStore RecordAnswer begin failed", "error", err, "userID", a.UserID)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO results (answer_id, answer_content, related_question_id, user_id, state, subquestion_depth, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.AnswerID, a.Content, a.RelatedQuestionID, a.UserID, a.State, a.SubquestionDepth, a.CreatedAt)
	if err != nil {
		slog.Error("SQLiteStore RecordAnswer insert failed", "error", err, "userID", a.UserID)
		return fmt.Errorf("failed to insert answer for %s: %w", a.UserID, err)
	}

	if advance {
		_, err = tx.ExecContext(ctx,
			`UPDATE results SET state = ?
			 WHERE user_id = ?
			   AND created_at = (SELECT MAX(created_at) FROM results WHERE user_id = ?)`,
			targetState, a.UserID, a.UserID)
		if err != nil {
			slog.Error("SQLiteStore RecordAnswer state update failed", "error", err, "userID", a.UserID)
			return fmt.Errorf("failed to advance state for %s: %w", a.UserID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		slog.Error("SQLiteStore RecordAnswer commit failed", "error", err, "userID", a.UserID)
		return fmt.Errorf("failed to commit answer for %s: %w", a.UserID, err)
	}
	slog.Debug("SQLiteStore RecordAnswer succeeded", "userID", a.UserID, "questionID", a.RelatedQuestionID, "advance", advance)
	return nil
}

// LatestAnswer returns the user's most recent answer, or nil when none.
func (s *SQLiteStore) LatestAnswer(ctx context.Context, userID string) (*models.Answer, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT answer_id, answer_content, related_question_id, user_id, state, subquestion_depth, created_at
		 FROM results WHERE user_id = ? ORDER BY created_at DESC LIMIT 1`, userID)
	a, err := scanAnswerRow(row)
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore LatestAnswer not found", "userID", userID)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore LatestAnswer failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to fetch latest answer for %s: %w", userID, err)
	}
	return &a, nil
}

// ConversationHistory returns the user's question/answer pairs in insertion order.
func (s *SQLiteStore) ConversationHistory(ctx context.Context, userID string) ([]models.QA, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT q.question, r.answer_content, r.created_at
		 FROM results r
		 JOIN questions_and_acceptance q ON r.related_question_id = q.question_id
		 WHERE r.user_id = ?
		 ORDER BY r.created_at ASC`, userID)
	if err != nil {
		slog.Error("SQLiteStore ConversationHistory query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query conversation history: %w", err)
	}
	defer rows.Close()

	var history []models.QA
	for rows.Next() {
		var qa models.QA
		if err := rows.Scan(&qa.Question, &qa.Answer, &qa.AskedAt); err != nil {
			slog.Error("SQLiteStore ConversationHistory scan failed", "error", err, "userID", userID)
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		history = append(history, qa)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore ConversationHistory rows iteration failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to iterate history rows: %w", err)
	}
	slog.Debug("SQLiteStore ConversationHistory succeeded", "userID", userID, "count", len(history))
	return history, nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close SQLite database", "error", err)
	}
	return err
}
