package store

import (
	"database/sql"
	"fmt"

	"github.com/BTreeMap/InterviewPipe/internal/models"
)

// scanQuestion scans a Question from sql.Rows.
func scanQuestion(rows *sql.Rows) (models.Question, error) {
	var q models.Question
	var createdAt sql.NullTime
	err := rows.Scan(&q.QuestionID, &q.Text, &q.AcceptanceCriteria, &q.State, &q.MaxDepth, &createdAt)
	if err != nil {
		return q, fmt.Errorf("scan question failed: %w", err)
	}
	if createdAt.Valid {
		q.CreatedAt = createdAt.Time
	}
	return q, nil
}

// scanQuestionRow scans a Question from a single sql.Row.
func scanQuestionRow(row *sql.Row) (models.Question, error) {
	var q models.Question
	var createdAt sql.NullTime
	err := row.Scan(&q.QuestionID, &q.Text, &q.AcceptanceCriteria, &q.State, &q.MaxDepth, &createdAt)
	if err != nil {
		return q, err
	}
	if createdAt.Valid {
		q.CreatedAt = createdAt.Time
	}
	return q, nil
}

// scanAnswerRow scans an Answer from a single sql.Row.
func scanAnswerRow(row *sql.Row) (models.Answer, error) {
	var a models.Answer
	err := row.Scan(&a.AnswerID, &a.Content, &a.RelatedQuestionID, &a.UserID, &a.State, &a.SubquestionDepth, &a.CreatedAt)
	if err != nil {
		return a, err
	}
	return a, nil
}
