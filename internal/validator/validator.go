// Package validator implements the answer acceptance contract over a hosted
// generative model.
//
// It exposes three operations: an acceptance check returning a structured
// pass/fail verdict, follow-up question generation for failed answers, and
// free-form reaction generation over the conversation so far.
package validator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	_ "embed"

	"github.com/BTreeMap/InterviewPipe/internal/genai"
	"github.com/BTreeMap/InterviewPipe/internal/models"
	"github.com/openai/openai-go"
)

//go:embed prompts/acceptance_check.txt
var acceptanceSystemPrompt string

//go:embed prompts/follow_up.txt
var followUpSystemPrompt string

//go:embed prompts/reaction.txt
var reactionSystemPrompt string

// Verdict values expected from the acceptance check model output.
const (
	verdictPassed = "passed"
	verdictFailed = "failed"
)

// Validator evaluates answers against acceptance criteria via a GenAI client.
type Validator struct {
	genaiClient genai.ClientInterface
}

// New creates a Validator backed by the given GenAI client.
func New(genaiClient genai.ClientInterface) *Validator {
	return &Validator{genaiClient: genaiClient}
}

// acceptanceVerdict is the wire shape of the acceptance check response.
type acceptanceVerdict struct {
	Result string `json:"result"`
	Reason string `json:"reason"`
}

// CheckAcceptance evaluates an answer against a question's acceptance
// criteria. Transport failures and unparseable model output return an error
// so the caller can fail the step closed.
func (v *Validator) CheckAcceptance(ctx context.Context, question, criteria, answer string) (models.ValidationResult, error) {
	slog.Debug("Validator.CheckAcceptance: evaluating answer", "answerLength", len(answer))

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(acceptanceSystemPrompt),
		openai.UserMessage(fmt.Sprintf("Question: %s\nAcceptance Criteria: %s\nAnswer: %s", question, criteria, answer)),
	}

	raw, err := v.genaiClient.GenerateJSONWithMessages(ctx, messages)
	if err != nil {
		slog.Error("Validator.CheckAcceptance: generation failed", "error", err)
		return models.ValidationResult{}, fmt.Errorf("acceptance check failed: %w", err)
	}

	var verdict acceptanceVerdict
	if err := json.Unmarshal([]byte(raw), &verdict); err != nil {
		slog.Error("Validator.CheckAcceptance: unparseable verdict", "error", err)
		return models.ValidationResult{}, fmt.Errorf("unparseable acceptance verdict: %w", err)
	}

	switch verdict.Result {
	case verdictPassed:
		slog.Debug("Validator.CheckAcceptance: answer passed")
		return models.ValidationResult{Passed: true}, nil
	case verdictFailed:
		slog.Debug("Validator.CheckAcceptance: answer failed", "reason", verdict.Reason)
		return models.ValidationResult{Passed: false, Reason: verdict.Reason}, nil
	default:
		slog.Error("Validator.CheckAcceptance: unexpected verdict value", "result", verdict.Result)
		return models.ValidationResult{}, fmt.Errorf("unexpected acceptance verdict %q", verdict.Result)
	}
}

// GenerateFollowUp produces a follow-up question for an answer that failed
// acceptance, given the rejection reason.
func (v *Validator) GenerateFollowUp(ctx context.Context, question, answer, reason string) (string, error) {
	slog.Debug("Validator.GenerateFollowUp: generating follow-up", "reason", reason)

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(followUpSystemPrompt),
		openai.UserMessage(fmt.Sprintf("Question: %s\nAnswer: %s\nReason: %s", question, answer, reason)),
	}

	followUp, err := v.genaiClient.GenerateWithMessages(ctx, messages)
	if err != nil {
		slog.Error("Validator.GenerateFollowUp: generation failed", "error", err)
		return "", fmt.Errorf("follow-up generation failed: %w", err)
	}
	return strings.TrimSpace(followUp), nil
}

// GenerateReaction produces a short reaction to an answer, optionally
// contextualized by the user's conversation history.
func (v *Validator) GenerateReaction(ctx context.Context, history []models.QA, question, answer string) (string, error) {
	slog.Debug("Validator.GenerateReaction: generating reaction", "historyLength", len(history))

	var sb strings.Builder
	for _, qa := range history {
		fmt.Fprintf(&sb, "Question: %s\nAnswer: %s\n\n", qa.Question, qa.Answer)
	}
	fmt.Fprintf(&sb, "Question: %s\nAnswer: %s", question, answer)

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(reactionSystemPrompt),
		openai.UserMessage(sb.String()),
	}

	reaction, err := v.genaiClient.GenerateWithMessages(ctx, messages)
	if err != nil {
		slog.Error("Validator.GenerateReaction: generation failed", "error", err)
		return "", fmt.Errorf("reaction generation failed: %w", err)
	}
	return strings.TrimSpace(reaction), nil
}
