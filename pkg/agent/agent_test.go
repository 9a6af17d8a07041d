package agent

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navimate/navimate/pkg/agent/interrupt"
	"github.com/navimate/navimate/pkg/browser"
	"github.com/navimate/navimate/pkg/config"
	"github.com/navimate/navimate/pkg/llm"
	"github.com/navimate/navimate/pkg/logging"
	"github.com/navimate/navimate/pkg/profile"
	"github.com/navimate/navimate/pkg/types"
)

// scriptedProvider returns one canned message per decision step and records
// the transcript it was handed each time.
type scriptedProvider struct {
	script      []*types.Message
	step        int
	err         error
	transcripts [][]*types.Message
}

func (p *scriptedProvider) Complete(_ context.Context, messages []*types.Message, _ []llm.ToolDefinition) (*types.Message, error) {
	snapshot := append([]*types.Message(nil), messages...)
	p.transcripts = append(p.transcripts, snapshot)
	if p.err != nil {
		return nil, p.err
	}
	if p.step >= len(p.script) {
		return types.NewAssistantMessage("I am done."), nil
	}
	msg := p.script[p.step]
	p.step++
	return msg, nil
}

func (p *scriptedProvider) Model() string { return "scripted" }

type scriptedPrompter struct {
	answers []string
	prompts []string
}

func (p *scriptedPrompter) Prompt(_ context.Context, text string) (string, error) {
	p.prompts = append(p.prompts, text)
	if len(p.answers) == 0 {
		return "", nil
	}
	answer := p.answers[0]
	p.answers = p.answers[1:]
	return answer, nil
}

type fakeElement struct {
	text   string
	clicks int
}

func (e *fakeElement) GetAttribute(string) (string, error) { return "", nil }
func (e *fakeElement) TextContent() (string, error)        { return e.text, nil }
func (e *fakeElement) InputValue() (string, error)         { return "", nil }
func (e *fakeElement) TagName() (string, error)            { return "a", nil }
func (e *fakeElement) BoundingBox() (*browser.Rect, error) {
	return &browser.Rect{Y: 100, Width: 100, Height: 20}, nil
}
func (e *fakeElement) IsVisible() (bool, error) { return true, nil }
func (e *fakeElement) ScrollIntoView() error    { return nil }
func (e *fakeElement) Click(time.Duration) error {
	e.clicks++
	return nil
}
func (e *fakeElement) Fill(string, time.Duration) error  { return nil }
func (e *fakeElement) Press(string, time.Duration) error { return nil }

type fakeDialog struct {
	kind      string
	message   string
	accepted  int
	dismissed int
}

func (d *fakeDialog) Type() string    { return d.kind }
func (d *fakeDialog) Message() string { return d.message }
func (d *fakeDialog) Accept() error   { d.accepted++; return nil }
func (d *fakeDialog) Dismiss() error  { d.dismissed++; return nil }

type fakePage struct {
	url       string
	title     string
	titleErr  error
	navigated []string
	elements  []browser.Element
	scrolls   int
	onDialog  func(browser.Dialog)
}

func (p *fakePage) URL() string            { return p.url }
func (p *fakePage) Title() (string, error) { return p.title, p.titleErr }
func (p *fakePage) Navigate(rawURL string, _ time.Duration) error {
	p.navigated = append(p.navigated, rawURL)
	p.url = rawURL
	return nil
}
func (p *fakePage) WaitForLoad(time.Duration) error { return nil }
func (p *fakePage) Query(string) ([]browser.Element, error) {
	return p.elements, nil
}
func (p *fakePage) ViewportHeight() (float64, error) { return 720, nil }
func (p *fakePage) Scroll(float64, float64) error {
	p.scrolls++
	return nil
}
func (p *fakePage) Press(string) error         { return nil }
func (p *fakePage) GoBack(time.Duration) error { return nil }
func (p *fakePage) OnDialog(handler func(browser.Dialog)) {
	p.onDialog = handler
}

func newTestController(t *testing.T, provider llm.Provider, page browser.Page,
	prompter interrupt.Prompter, opts ...Option) *Controller {
	t.Helper()
	log, _ := logging.NewLogger("agent-test")
	policy := interrupt.NewPolicy(interrupt.KeywordClassifier{}, prompter, log)
	return NewController(provider, page, profile.Empty(), policy, nil, log, opts...)
}

func toolCallMsg(id, name, args string) *types.Message {
	return types.NewAssistantMessage("", types.ToolCall{ID: id, Name: name, Arguments: args})
}

func transcriptContains(messages []*types.Message, role types.Role, substr string) bool {
	for _, msg := range messages {
		if msg.Role == role && strings.Contains(msg.Content, substr) {
			return true
		}
	}
	return false
}

func TestRunNavigateThenFinish(t *testing.T) {
	page := &fakePage{url: "about:blank", title: "blank"}
	provider := &scriptedProvider{script: []*types.Message{
		toolCallMsg("c1", "open_url", `{"url":"https://example.com/"}`),
		types.NewAssistantMessage("Opened the page, goal complete."),
	}}
	prompter := &scriptedPrompter{} // empty answer to the fallback prompt

	c := newTestController(t, provider, page, prompter)
	result, err := c.Run(context.Background(), "open example.com")

	require.NoError(t, err)
	assert.Equal(t, ReasonFinished, result.Reason)
	assert.Equal(t, 2, result.Steps)
	assert.Equal(t, "https://example.com/", result.FinalURL)
	assert.Equal(t, "Opened the page, goal complete.", result.LastMessage)
	// about:blank at init plus the requested navigation.
	assert.Equal(t, []string{"about:blank", "https://example.com/"}, page.navigated)

	// The second decision step saw the post-navigation observation.
	require.Len(t, provider.transcripts, 2)
	assert.True(t, transcriptContains(provider.transcripts[1],
		types.RoleUser, "https://example.com/"))
	assert.True(t, transcriptContains(provider.transcripts[1],
		types.RoleTool, "navigated to https://example.com/"))
}

func TestRunStepBudgetExhausted(t *testing.T) {
	page := &fakePage{url: "about:blank"}
	provider := &scriptedProvider{script: []*types.Message{
		toolCallMsg("c1", "scroll", `{"dy":600}`),
		toolCallMsg("c2", "scroll", `{"dy":600}`),
		toolCallMsg("c3", "scroll", `{"dy":600}`),
	}}

	c := newTestController(t, provider, page, &scriptedPrompter{}, WithMaxSteps(3))
	result, err := c.Run(context.Background(), "scroll forever")

	require.NoError(t, err)
	assert.Equal(t, ReasonStepBudget, result.Reason)
	assert.Equal(t, 3, result.Steps)
	assert.Equal(t, 3, page.scrolls)
}

func TestRunInjectsRepeatClickAdvice(t *testing.T) {
	page := &fakePage{
		url:      "https://example.com/",
		title:    "Example",
		elements: []browser.Element{&fakeElement{text: "Dead button"}},
	}
	provider := &scriptedProvider{script: []*types.Message{
		toolCallMsg("c1", "click", `{"index":0}`),
		toolCallMsg("c2", "click", `{"index":0}`),
		toolCallMsg("c3", "click", `{"index":0}`),
		types.NewAssistantMessage("Giving up on that button."),
	}}

	c := newTestController(t, provider, page, &scriptedPrompter{})
	_, err := c.Run(context.Background(), "click the button")

	require.NoError(t, err)
	require.Len(t, provider.transcripts, 4)
	assert.False(t, transcriptContains(provider.transcripts[2],
		types.RoleUser, "Do not click it again"))
	assert.True(t, transcriptContains(provider.transcripts[3],
		types.RoleUser, "Do not click it again"))
	assert.True(t, transcriptContains(provider.transcripts[3],
		types.RoleUser, "element 0"))
}

func TestRunToolFailureIsFedBackNotFatal(t *testing.T) {
	page := &fakePage{url: "https://example.com/", title: "Example"}
	provider := &scriptedProvider{script: []*types.Message{
		toolCallMsg("c1", "click", `{"index":42}`),
		types.NewAssistantMessage("That element does not exist."),
	}}

	c := newTestController(t, provider, page, &scriptedPrompter{})
	result, err := c.Run(context.Background(), "click something")

	require.NoError(t, err)
	assert.Equal(t, ReasonFinished, result.Reason)
	require.Len(t, provider.transcripts, 2)
	assert.True(t, transcriptContains(provider.transcripts[1],
		types.RoleTool, "FAILED: click: index 42 out of range"))
}

func TestRunNeedsHumanFeedsReplyBack(t *testing.T) {
	page := &fakePage{url: "https://example.com/checkout", title: "Checkout"}
	provider := &scriptedProvider{script: []*types.Message{
		toolCallMsg("c1", interrupt.ToolNeedsHuman,
			`{"category":"verification","prompt":"Enter the SMS code:"}`),
		types.NewAssistantMessage("Code submitted."),
	}}
	prompter := &scriptedPrompter{answers: []string{"482913", ""}}

	c := newTestController(t, provider, page, prompter)
	result, err := c.Run(context.Background(), "finish checkout")

	require.NoError(t, err)
	assert.Equal(t, ReasonFinished, result.Reason)
	require.NotEmpty(t, prompter.prompts)
	assert.Equal(t, "Enter the SMS code: ", prompter.prompts[0])
	require.Len(t, provider.transcripts, 2)
	assert.True(t, transcriptContains(provider.transcripts[1],
		types.RoleTool, "Human replied: 482913"))
}

func TestRunNeedsHumanEmptyReplyIsReported(t *testing.T) {
	page := &fakePage{url: "https://example.com/", title: "Example"}
	provider := &scriptedProvider{script: []*types.Message{
		toolCallMsg("c1", interrupt.ToolNeedsHuman, `{"category":"other","prompt":"Continue?"}`),
		types.NewAssistantMessage("Stopping here."),
	}}
	prompter := &scriptedPrompter{} // empty answers throughout

	c := newTestController(t, provider, page, prompter)
	_, err := c.Run(context.Background(), "do the thing")

	require.NoError(t, err)
	require.Len(t, provider.transcripts, 2)
	assert.True(t, transcriptContains(provider.transcripts[1],
		types.RoleTool, "no input"))
}

func TestRunFreeTextAnswerResumesLoop(t *testing.T) {
	page := &fakePage{url: "https://example.com/", title: "Example"}
	provider := &scriptedProvider{script: []*types.Message{
		types.NewAssistantMessage("The site is asking for a password, I cannot proceed."),
		types.NewAssistantMessage("Logged in, all done."),
	}}
	prompter := &scriptedPrompter{answers: []string{"hunter2", ""}}

	c := newTestController(t, provider, page, prompter)
	result, err := c.Run(context.Background(), "log in")

	require.NoError(t, err)
	assert.Equal(t, ReasonFinished, result.Reason)
	assert.Equal(t, 2, result.Steps)
	require.Len(t, provider.transcripts, 2)
	assert.True(t, transcriptContains(provider.transcripts[1],
		types.RoleUser, "hunter2"))
}

func TestRunProviderErrorIsFatal(t *testing.T) {
	page := &fakePage{url: "about:blank"}
	provider := &scriptedProvider{err: fmt.Errorf("429 rate limited")}

	c := newTestController(t, provider, page, &scriptedPrompter{})
	_, err := c.Run(context.Background(), "anything")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no response")
}

func TestRunCanceledContextIsFatal(t *testing.T) {
	page := &fakePage{url: "about:blank"}
	provider := &scriptedProvider{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newTestController(t, provider, page, &scriptedPrompter{})
	_, err := c.Run(ctx, "anything")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "run canceled")
}

func TestRunLostPageHandleIsFatal(t *testing.T) {
	page := &fakePage{url: "https://example.com/", title: "Example"}
	provider := &scriptedProvider{script: []*types.Message{
		toolCallMsg("c1", "scroll", `{"dy":100}`),
	}}

	// A dead handle degrades observations, but once an action has run the
	// liveness check must surface it as a run failure.
	page.titleErr = fmt.Errorf("target closed")

	c := newTestController(t, provider, page, &scriptedPrompter{})
	_, err := c.Run(context.Background(), "scroll")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "page handle lost")
}

func TestDialogPolicyDismiss(t *testing.T) {
	page := &fakePage{url: "about:blank"}
	provider := &scriptedProvider{script: []*types.Message{
		types.NewAssistantMessage("done"),
	}}

	c := newTestController(t, provider, page, &scriptedPrompter{},
		WithDialogPolicy(config.DialogDismiss))
	_, err := c.Run(context.Background(), "anything")
	require.NoError(t, err)

	require.NotNil(t, page.onDialog)
	dialog := &fakeDialog{kind: "confirm", message: "Leave page?"}
	page.onDialog(dialog)

	assert.Equal(t, 1, dialog.dismissed)
	assert.Zero(t, dialog.accepted)
}

func TestDialogPolicyDefaultAccept(t *testing.T) {
	page := &fakePage{url: "about:blank"}
	provider := &scriptedProvider{script: []*types.Message{
		types.NewAssistantMessage("done"),
	}}

	c := newTestController(t, provider, page, &scriptedPrompter{})
	_, err := c.Run(context.Background(), "anything")
	require.NoError(t, err)

	require.NotNil(t, page.onDialog)
	dialog := &fakeDialog{kind: "alert", message: "Cookies!"}
	page.onDialog(dialog)

	assert.Equal(t, 1, dialog.accepted)
	assert.Zero(t, dialog.dismissed)
}

func TestBuildSystemPromptIncludesPreferences(t *testing.T) {
	prof := &profile.Profile{
		Name:            "Ivan",
		FoodPreferences: []string{"pizza"},
		Allergies:       []string{"peanuts"},
		PaymentMethod:   "card on delivery",
	}

	prompt := buildSystemPrompt(prof)

	assert.Contains(t, prompt, "Ivan")
	assert.Contains(t, prompt, "pizza")
	assert.Contains(t, prompt, "peanuts")
	assert.Contains(t, prompt, "card on delivery")
}

func TestBuildSystemPromptEmptyProfileAddsNothing(t *testing.T) {
	assert.Equal(t, systemPrompt, buildSystemPrompt(profile.Empty()))
	assert.Equal(t, systemPrompt, buildSystemPrompt(nil))
}
