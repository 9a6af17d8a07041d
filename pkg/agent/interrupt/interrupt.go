// Package interrupt decides when a run pauses for a human. The preferred
// contract is structured: the decision step emits a needs_human tool call
// with a category and prompt. The keyword classifier survives as a legacy
// fallback for models that reply in prose instead.
package interrupt

import (
	"context"
	"fmt"
	"strings"

	"github.com/navimate/navimate/pkg/llm"
	"github.com/navimate/navimate/pkg/logging"
)

// ToolNeedsHuman is the structured human-interrupt signal in the declared
// tool schema.
const ToolNeedsHuman = "needs_human"

// Categories for human-input requests.
const (
	CategoryCredentials  = "credentials"
	CategoryVerification = "verification"
	CategoryOther        = "other"
)

// Classification is the result of inspecting a free-text model reply.
// Categories are not exclusive; both may match.
type Classification struct {
	Credentials  bool
	Verification bool
}

// Any reports whether any category matched.
func (c Classification) Any() bool {
	return c.Credentials || c.Verification
}

// Classifier inspects a free-text reply for human-input signals.
type Classifier interface {
	Classify(reply string) Classification
}

// KeywordClassifier is the legacy fallback classifier: case-insensitive
// substring matching over English and Russian keywords.
type KeywordClassifier struct{}

var credentialKeywords = []string{
	"password", "login", "log in", "sign in", "credential",
	"card number", "credit card", "payment", "cvv",
	"phone number", "email address",
	"пароль", "логин", "войдите", "оплат", "карт", "телефон",
}

var verificationKeywords = []string{
	"verification", "confirmation code", "one-time", "otp", "sms code",
	"enter the code", "confirm the", "введите код", "код подтверждения",
	"подтвердите",
}

// Classify matches the reply against both keyword sets.
func (KeywordClassifier) Classify(reply string) Classification {
	lower := strings.ToLower(reply)
	return Classification{
		Credentials:  containsAny(lower, credentialKeywords),
		Verification: containsAny(lower, verificationKeywords),
	}
}

func containsAny(s string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(s, keyword) {
			return true
		}
	}
	return false
}

// Prompter is the human-input collaborator boundary: one pending request at
// a time, and a closed input channel fails the pending request fast.
type Prompter interface {
	Prompt(ctx context.Context, text string) (string, error)
}

// Prompt texts by category. The credentials variant wins when both
// categories match: asking for secrets is the costlier mistake to misroute.
const (
	credentialsPrompt = "The assistant needs login, payment, or contact data to continue. Type it here (empty line to skip): "
	verificationPrompt = "The assistant is waiting for a one-time code or confirmation. Type it here (empty line to skip): "
	fallbackPrompt = "The assistant paused without taking an action. Type an extra instruction to continue (empty line to stop): "
)

// Policy inspects no-action model turns and solicits human input.
type Policy struct {
	classifier Classifier
	prompter   Prompter
	log        *logging.Logger
}

// NewPolicy creates a policy. prompter may be nil when no human is
// available; the policy then always reports no-resume.
func NewPolicy(classifier Classifier, prompter Prompter, log *logging.Logger) *Policy {
	if classifier == nil {
		classifier = KeywordClassifier{}
	}
	return &Policy{classifier: classifier, prompter: prompter, log: log}
}

// HandleFreeText handles a model turn that produced prose instead of tool
// calls. It returns the human's reply and whether the loop should resume.
// The loop never terminates solely because the model spoke: even an
// unclassified reply gets the generic "extra instruction or stop" prompt.
// An error means the input channel is gone, which is fatal to the run.
func (p *Policy) HandleFreeText(ctx context.Context, reply string) (string, bool, error) {
	if p.prompter == nil {
		return "", false, nil
	}

	classification := p.classifier.Classify(reply)
	if classification.Any() {
		prompt := verificationPrompt
		if classification.Credentials {
			prompt = credentialsPrompt
		}
		p.log.Infof("free-text reply classified (credentials=%v verification=%v)",
			classification.Credentials, classification.Verification)

		answer, err := p.prompter.Prompt(ctx, prompt)
		if err != nil {
			return "", false, fmt.Errorf("human input unavailable: %w", err)
		}
		if answer != "" {
			return answer, true, nil
		}
	}

	// Either nothing matched or the human skipped: offer one generic
	// chance to steer before terminating.
	answer, err := p.prompter.Prompt(ctx, fallbackPrompt)
	if err != nil {
		return "", false, fmt.Errorf("human input unavailable: %w", err)
	}
	if answer != "" {
		return answer, true, nil
	}
	return "", false, nil
}

// HandleStructured handles an explicit needs_human tool call. The model's
// own prompt text is used when present, with the category variant as the
// fallback wording.
func (p *Policy) HandleStructured(ctx context.Context, category, prompt string) (string, bool, error) {
	if p.prompter == nil {
		return "", false, nil
	}

	if prompt == "" {
		switch category {
		case CategoryCredentials:
			prompt = credentialsPrompt
		case CategoryVerification:
			prompt = verificationPrompt
		default:
			prompt = fallbackPrompt
		}
	} else if !strings.HasSuffix(prompt, " ") {
		prompt += " "
	}

	p.log.Infof("needs_human requested (category=%s)", category)
	answer, err := p.prompter.Prompt(ctx, prompt)
	if err != nil {
		return "", false, fmt.Errorf("human input unavailable: %w", err)
	}
	return answer, answer != "", nil
}

// Definition returns the needs_human tool declaration for the schema.
func Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name: ToolNeedsHuman,
		Description: "Ask the human operator for input you cannot obtain yourself: " +
			"login or payment data, a one-time confirmation code, or a decision on a critical step.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"category": map[string]interface{}{
					"type":        "string",
					"enum":        []string{CategoryCredentials, CategoryVerification, CategoryOther},
					"description": "What kind of input is needed",
				},
				"prompt": map[string]interface{}{
					"type":        "string",
					"description": "The exact question to show the human",
				},
			},
			"required": []string{"category", "prompt"},
		},
	}
}
