package flow

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/BTreeMap/InterviewPipe/internal/models"
	"github.com/BTreeMap/InterviewPipe/internal/store"
)

// stubValidator returns canned results and records invocation counts.
type stubValidator struct {
	verdict     models.ValidationResult
	verdictErr  error
	followUp    string
	followUpErr error
	reaction    string
	reactionErr error

	checkCalls    int
	followUpCalls int
	reactionCalls int
	lastHistory   []models.QA
}

func (v *stubValidator) CheckAcceptance(ctx context.Context, question, criteria, answer string) (models.ValidationResult, error) {
	v.checkCalls++
	return v.verdict, v.verdictErr
}

func (v *stubValidator) GenerateFollowUp(ctx context.Context, question, answer, reason string) (string, error) {
	v.followUpCalls++
	return v.followUp, v.followUpErr
}

func (v *stubValidator) GenerateReaction(ctx context.Context, history []models.QA, question, answer string) (string, error) {
	v.reactionCalls++
	v.lastHistory = history
	return v.reaction, v.reactionErr
}

func seedQuestions(t *testing.T, st store.Store, questions ...models.Question) {
	t.Helper()
	ctx := context.Background()
	for _, q := range questions {
		if err := st.AddQuestion(ctx, q); err != nil {
			t.Fatalf("failed to seed question %d: %v", q.QuestionID, err)
		}
	}
}

func question(id int64, state, maxDepth int) models.Question {
	return models.Question{
		QuestionID:         id,
		Text:               "Tell me about project " + strings.Repeat("x", int(id)),
		AcceptanceCriteria: "Names a project and a role",
		State:              state,
		MaxDepth:           maxDepth,
	}
}

func TestStartPresentsLowestQuestionWithIntro(t *testing.T) {
	st := store.NewInMemoryStore()
	ctx := context.Background()
	seedQuestions(t, st, question(2, 1, 1), question(1, 1, 1))
	if err := st.AddStateIntro(ctx, models.StateIntro{MsgID: "m1", State: 1, IntroMessage: "Welcome to the interview."}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c := NewCoordinator(st, &stubValidator{})
	step, err := c.Start(ctx, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if step.Kind != models.StepMainQuestion {
		t.Fatalf("step kind = %q, want main_question", step.Kind)
	}
	if step.QuestionID != 1 {
		t.Errorf("question id = %d, want 1 (lowest id first)", step.QuestionID)
	}
	if !strings.HasPrefix(step.Question, "Welcome to the interview.\n\n") {
		t.Errorf("question text missing intro prefix: %q", step.Question)
	}
}

func TestStartWithoutQuestionsIsComplete(t *testing.T) {
	st := store.NewInMemoryStore()
	c := NewCoordinator(st, &stubValidator{})

	step, err := c.Start(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if step.Kind != models.StepComplete {
		t.Errorf("step kind = %q, want complete", step.Kind)
	}
	if step.State != models.DefaultInitialState {
		t.Errorf("state = %d, want default initial state", step.State)
	}
}

func TestContinueAcceptedAdvancesToNextQuestion(t *testing.T) {
	st := store.NewInMemoryStore()
	ctx := context.Background()
	seedQuestions(t, st, question(1, 1, 1), question(2, 1, 1))

	v := &stubValidator{verdict: models.ValidationResult{Passed: true}, reaction: "Thanks for sharing."}
	c := NewCoordinator(st, v)

	res, err := c.Continue(ctx, "u1", "I led the rollout", nil, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Accepted {
		t.Error("answer not accepted")
	}
	if res.Reaction != "Thanks for sharing." {
		t.Errorf("reaction = %q", res.Reaction)
	}
	if res.Next.Kind != models.StepMainQuestion || res.Next.QuestionID != 2 {
		t.Errorf("next step = %+v, want main question 2", res.Next)
	}
	if v.followUpCalls != 0 {
		t.Error("follow-up generated for an accepted answer")
	}

	latest, err := st.LatestAnswer(ctx, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if latest == nil || latest.RelatedQuestionID != 1 || latest.SubquestionDepth != 0 {
		t.Errorf("persisted answer = %+v", latest)
	}
	if latest.AnswerID == "" {
		t.Error("answer id not generated")
	}
}

func TestContinueRejectedIssuesFollowUp(t *testing.T) {
	st := store.NewInMemoryStore()
	ctx := context.Background()
	seedQuestions(t, st, question(1, 1, 2), question(2, 1, 1))

	v := &stubValidator{
		verdict:  models.ValidationResult{Passed: false, Reason: "no role named"},
		followUp: "What was your role on that project?",
		reaction: "Interesting.",
	}
	c := NewCoordinator(st, v)

	res, err := c.Continue(ctx, "u1", "We shipped it", nil, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Accepted {
		t.Error("rejected answer reported as accepted")
	}
	if res.Next.Kind != models.StepFollowUp {
		t.Fatalf("next step kind = %q, want follow_up", res.Next.Kind)
	}
	if res.Next.Question != v.followUp {
		t.Errorf("follow-up text = %q", res.Next.Question)
	}
	if res.Next.Depth != 1 {
		t.Errorf("follow-up depth = %d, want 1", res.Next.Depth)
	}
	if res.Next.MainQuestionID != 1 {
		t.Errorf("main question id = %d, want 1", res.Next.MainQuestionID)
	}

	// The rejected answer is still persisted.
	latest, err := st.LatestAnswer(ctx, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if latest == nil || latest.RelatedQuestionID != 1 {
		t.Errorf("persisted answer = %+v", latest)
	}
}

func TestContinueFollowUpBudgetExhausted(t *testing.T) {
	st := store.NewInMemoryStore()
	ctx := context.Background()
	seedQuestions(t, st, question(1, 1, 1), question(2, 1, 1))

	v := &stubValidator{
		verdict:  models.ValidationResult{Passed: false, Reason: "still vague"},
		followUp: "Could you be more specific?",
	}
	c := NewCoordinator(st, v)

	// The answer at depth 1 exhausts a budget of 1: move on despite rejection.
	mainID := int64(1)
	res, err := c.Continue(ctx, "u1", "Not really sure", &mainID, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Accepted {
		t.Error("rejected answer reported as accepted")
	}
	if res.Next.Kind != models.StepMainQuestion || res.Next.QuestionID != 2 {
		t.Errorf("next step = %+v, want main question 2", res.Next)
	}
}

func TestContinueWithoutActiveQuestionReturnsSentinel(t *testing.T) {
	st := store.NewInMemoryStore()
	v := &stubValidator{}
	c := NewCoordinator(st, v)

	res, err := c.Continue(context.Background(), "u1", "hello?", nil, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Accepted {
		t.Error("sentinel result reported as accepted")
	}
	if res.Reaction != SentinelNoCurrentQuestion {
		t.Errorf("reaction = %q, want sentinel", res.Reaction)
	}
	if res.Next.Kind != models.StepComplete {
		t.Errorf("next step kind = %q, want complete", res.Next.Kind)
	}
	if v.checkCalls != 0 {
		t.Error("validator invoked with no active question")
	}
	latest, err := st.LatestAnswer(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if latest != nil {
		t.Errorf("answer persisted with no active question: %+v", latest)
	}
}

func TestContinueValidatorFailureAbortsStep(t *testing.T) {
	st := store.NewInMemoryStore()
	ctx := context.Background()
	seedQuestions(t, st, question(1, 1, 1))

	v := &stubValidator{verdictErr: errors.New("model unavailable")}
	c := NewCoordinator(st, v)

	_, err := c.Continue(ctx, "u1", "my answer", nil, 0)
	if err == nil {
		t.Fatal("expected error from validator failure")
	}
	// Nothing persisted: the same answer can be resubmitted.
	latest, err := st.LatestAnswer(ctx, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if latest != nil {
		t.Errorf("answer persisted despite validator failure: %+v", latest)
	}
	next, err := st.NextUnansweredQuestion(ctx, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next == nil || next.QuestionID != 1 {
		t.Errorf("question consumed despite validator failure: %+v", next)
	}
}

func TestContinueFollowUpFailureAbortsStep(t *testing.T) {
	st := store.NewInMemoryStore()
	ctx := context.Background()
	seedQuestions(t, st, question(1, 1, 1))

	v := &stubValidator{
		verdict:     models.ValidationResult{Passed: false, Reason: "too vague"},
		followUpErr: errors.New("model unavailable"),
	}
	c := NewCoordinator(st, v)

	if _, err := c.Continue(ctx, "u1", "my answer", nil, 0); err == nil {
		t.Fatal("expected error from follow-up generation failure")
	}
	latest, err := st.LatestAnswer(ctx, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if latest != nil {
		t.Errorf("answer persisted despite follow-up failure: %+v", latest)
	}
}

func TestContinueReactionFailureDegradesToEmpty(t *testing.T) {
	st := store.NewInMemoryStore()
	ctx := context.Background()
	seedQuestions(t, st, question(1, 1, 1))

	v := &stubValidator{
		verdict:     models.ValidationResult{Passed: true},
		reactionErr: errors.New("model unavailable"),
	}
	c := NewCoordinator(st, v)

	res, err := c.Continue(ctx, "u1", "my answer", nil, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Accepted {
		t.Error("answer not accepted")
	}
	if res.Reaction != "" {
		t.Errorf("reaction = %q, want empty on generation failure", res.Reaction)
	}
	// The answer stays recorded even though the reaction failed.
	latest, err := st.LatestAnswer(ctx, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if latest == nil {
		t.Error("accepted answer not persisted")
	}
}

func TestStateIntroShownOnceOnTransition(t *testing.T) {
	st := store.NewInMemoryStore()
	ctx := context.Background()
	seedQuestions(t, st, question(1, 1, 1), question(2, 2, 1), question(3, 2, 1))
	if err := st.AddStateIntro(ctx, models.StateIntro{MsgID: "m2", State: 2, IntroMessage: "Now for part two."}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	v := &stubValidator{verdict: models.ValidationResult{Passed: true}}
	c := NewCoordinator(st, v)

	// Accepting question 1 crosses into state 2: intro shown.
	res, err := c.Continue(ctx, "u1", "answer one", nil, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Next.QuestionID != 2 {
		t.Fatalf("next question id = %d, want 2", res.Next.QuestionID)
	}
	if !strings.HasPrefix(res.Next.Question, "Now for part two.\n\n") {
		t.Errorf("state transition missing intro prefix: %q", res.Next.Question)
	}

	// Question 3 stays within state 2: no intro repeat.
	res, err = c.Continue(ctx, "u1", "answer two", nil, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Next.QuestionID != 3 {
		t.Fatalf("next question id = %d, want 3", res.Next.QuestionID)
	}
	if strings.Contains(res.Next.Question, "Now for part two.") {
		t.Errorf("intro repeated within the same state: %q", res.Next.Question)
	}
}

func TestContinueFinalAnswerCompletesInterview(t *testing.T) {
	st := store.NewInMemoryStore()
	ctx := context.Background()
	seedQuestions(t, st, question(1, 1, 1))

	v := &stubValidator{verdict: models.ValidationResult{Passed: true}}
	c := NewCoordinator(st, v)

	res, err := c.Continue(ctx, "u1", "final answer", nil, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Next.Kind != models.StepComplete {
		t.Fatalf("next step kind = %q, want complete", res.Next.Kind)
	}
	if res.Next.State != 1 {
		t.Errorf("final state = %d, want 1", res.Next.State)
	}

	// A continue after completion yields the sentinel without persisting.
	res, err = c.Continue(ctx, "u1", "anything else?", nil, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Reaction != SentinelNoCurrentQuestion {
		t.Errorf("reaction = %q, want sentinel", res.Reaction)
	}
	history, err := c.History(ctx, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(history) != 1 {
		t.Errorf("history has %d entries, want 1", len(history))
	}
}

func TestReactionReceivesHistory(t *testing.T) {
	st := store.NewInMemoryStore()
	ctx := context.Background()
	seedQuestions(t, st, question(1, 1, 1), question(2, 1, 1))

	v := &stubValidator{verdict: models.ValidationResult{Passed: true}, reaction: "Noted."}
	c := NewCoordinator(st, v)

	if _, err := c.Continue(ctx, "u1", "first answer", nil, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(v.lastHistory) != 1 {
		t.Errorf("reaction history has %d entries, want 1 (the just-recorded answer)", len(v.lastHistory))
	}
}

func TestConversationStateDefaultsForNewUser(t *testing.T) {
	st := store.NewInMemoryStore()
	c := NewCoordinator(st, &stubValidator{})

	state, err := c.ConversationState(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state != models.DefaultInitialState {
		t.Errorf("state = %d, want default initial state", state)
	}
}
