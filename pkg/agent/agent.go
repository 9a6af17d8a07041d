// Package agent contains the controller that drives a browser toward a
// natural-language goal: the perception, decision, action cycle, bounded by
// a step budget, with loop heuristics and a human-interrupt policy.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/navimate/navimate/pkg/agent/heuristics"
	"github.com/navimate/navimate/pkg/agent/interrupt"
	"github.com/navimate/navimate/pkg/agent/observe"
	"github.com/navimate/navimate/pkg/agent/toolexec"
	"github.com/navimate/navimate/pkg/browser"
	"github.com/navimate/navimate/pkg/config"
	"github.com/navimate/navimate/pkg/llm"
	"github.com/navimate/navimate/pkg/llm/tokenizer"
	"github.com/navimate/navimate/pkg/logging"
	"github.com/navimate/navimate/pkg/profile"
	"github.com/navimate/navimate/pkg/types"
)

const startPage = "about:blank"

const startNavTimeout = 5 * time.Second

// TerminationReason describes how a run ended.
type TerminationReason string

const (
	// ReasonFinished means the model stopped acting and neither it nor
	// the human had anything further.
	ReasonFinished TerminationReason = "finished"

	// ReasonStepBudget means the loop hit its maximum step count.
	ReasonStepBudget TerminationReason = "step budget exhausted"
)

// RunResult summarizes a completed run.
type RunResult struct {
	Steps       int
	FinalURL    string
	Reason      TerminationReason
	LastMessage string
}

// Controller orchestrates one run. It owns the transcript and the loop
// state; the browser session itself is owned by the caller, which also
// releases it (respecting borrowed sessions).
type Controller struct {
	provider llm.Provider
	page     browser.Page
	prof     *profile.Profile
	policy   *interrupt.Policy
	log      *logging.Logger

	capturer *observe.Capturer
	executor *toolexec.Executor
	tracker  *heuristics.Tracker
	tok      *tokenizer.Tokenizer

	maxSteps     int
	dialogPolicy config.DialogPolicy

	tools      []llm.ToolDefinition
	transcript []*types.Message

	// lastObsGeneration is the generation of the most recent observation;
	// index-based tool calls are validated against it.
	lastObsGeneration uint64
}

// Option configures a Controller.
type Option func(*Controller)

// WithMaxSteps sets the decision-loop bound.
func WithMaxSteps(maxSteps int) Option {
	return func(c *Controller) {
		c.maxSteps = maxSteps
	}
}

// WithDialogPolicy selects the native-dialog strategy.
func WithDialogPolicy(policy config.DialogPolicy) Option {
	return func(c *Controller) {
		c.dialogPolicy = policy
	}
}

// WithTokenizer enables per-step token accounting in the run log.
func WithTokenizer(tok *tokenizer.Tokenizer) Option {
	return func(c *Controller) {
		c.tok = tok
	}
}

// NewController creates a controller for one run. blockedURLPatterns feed
// the executor's navigation denylist.
func NewController(provider llm.Provider, page browser.Page, prof *profile.Profile,
	policy *interrupt.Policy, blockedURLPatterns []string, log *logging.Logger, opts ...Option) *Controller {

	c := &Controller{
		provider:     provider,
		page:         page,
		prof:         prof,
		policy:       policy,
		log:          log,
		capturer:     observe.NewCapturer(page, log),
		executor:     toolexec.NewExecutor(page, blockedURLPatterns, log),
		tracker:      heuristics.New(),
		maxSteps:     config.DefaultMaxSteps,
		dialogPolicy: config.DialogAccept,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.tools = append(toolexec.Definitions(), interrupt.Definition())
	return c
}

// Run drives the browser toward the goal until a termination condition is
// met. Expected action failures are fed back to the model; only resource
// loss, input-channel loss, or a missing model response return an error.
func (c *Controller) Run(ctx context.Context, goal string) (*RunResult, error) {
	c.initialize(goal)

	for step := 1; step <= c.maxSteps; step++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run canceled: %w", err)
		}

		for _, advice := range c.tracker.Advice() {
			c.log.Infof("injecting loop guidance: %s", advice)
			c.append(types.NewUserMessage(advice))
		}

		c.logTranscriptSize(step)

		msg, err := c.provider.Complete(ctx, c.transcript, c.tools)
		if err != nil {
			return nil, fmt.Errorf("decision step %d got no response: %w", step, err)
		}
		c.append(msg)

		if !msg.HasToolCalls() {
			resumed, err := c.handleFreeText(ctx, msg.Content)
			if err != nil {
				return nil, err
			}
			if resumed {
				continue
			}
			return c.result(step, ReasonFinished, msg.Content), nil
		}

		if err := c.executeBatch(ctx, msg.ToolCalls); err != nil {
			return nil, err
		}

		c.observePage()
	}

	return c.result(c.maxSteps, ReasonStepBudget, ""), nil
}

// initialize installs the dialog handler, moves to the blank start page, and
// seeds the transcript with instructions, goal, and the first observation.
func (c *Controller) initialize(goal string) {
	c.installDialogHandler()

	if err := c.page.Navigate(startPage, startNavTimeout); err != nil {
		c.log.Warnf("failed to open start page: %v", err)
	}

	c.append(types.NewSystemMessage(buildSystemPrompt(c.prof)))
	c.append(types.NewUserMessage("Goal: " + goal))
	c.observePage()
}

// installDialogHandler resolves native dialogs per the run's policy. Every
// dialog is logged before it is resolved; none are silently swallowed.
func (c *Controller) installDialogHandler() {
	policy := c.dialogPolicy
	c.page.OnDialog(func(dialog browser.Dialog) {
		c.log.Infof("browser dialog (%s): %q, resolving with policy %q",
			dialog.Type(), dialog.Message(), policy)
		var err error
		if policy == config.DialogDismiss {
			err = dialog.Dismiss()
		} else {
			err = dialog.Accept()
		}
		if err != nil {
			c.log.Warnf("failed to resolve dialog: %v", err)
		}
	})
}

// executeBatch runs the step's tool calls strictly in order; later calls may
// depend on DOM state mutated by earlier ones. A page handle lost outside of
// an expected click-triggered navigation is fatal.
func (c *Controller) executeBatch(ctx context.Context, calls []types.ToolCall) error {
	for _, call := range calls {
		c.log.Infof("tool call %s(%s)", call.Name, call.Arguments)

		if call.Name == interrupt.ToolNeedsHuman {
			if err := c.handleNeedsHuman(ctx, call); err != nil {
				return err
			}
			continue
		}

		outcome := c.executor.Execute(call, c.lastObsGeneration)
		c.trackAction(call, outcome)
		c.append(types.NewToolMessage(call.ID, formatOutcome(outcome)))
		c.log.Infof("tool outcome ok=%v: %s", outcome.OK, outcome.Detail)

		if err := c.checkPageAlive(); err != nil {
			return err
		}
	}
	return nil
}

// handleNeedsHuman services the structured human-interrupt tool call.
// An empty human reply is reported back to the model rather than ending the
// run; the model decides whether it can proceed without the input.
func (c *Controller) handleNeedsHuman(ctx context.Context, call types.ToolCall) error {
	var args struct {
		Category string `json:"category"`
		Prompt   string `json:"prompt"`
	}
	if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
		c.append(types.NewToolMessage(call.ID, "FAILED: needs_human: malformed arguments"))
		return nil
	}

	answer, resumed, err := c.policy.HandleStructured(ctx, args.Category, args.Prompt)
	if err != nil {
		return fmt.Errorf("needs_human: %w", err)
	}
	if resumed {
		c.append(types.NewToolMessage(call.ID, "Human replied: "+answer))
	} else {
		c.append(types.NewToolMessage(call.ID, "The human provided no input. Proceed without it or finish up."))
	}
	return nil
}

// handleFreeText defers a no-action model turn to the interrupt policy.
func (c *Controller) handleFreeText(ctx context.Context, reply string) (bool, error) {
	c.log.Infof("model replied without tool calls: %s", firstLine(reply))

	answer, resumed, err := c.policy.HandleFreeText(ctx, reply)
	if err != nil {
		return false, err
	}
	if !resumed {
		return false, nil
	}
	c.append(types.NewUserMessage(answer))
	return true, nil
}

// trackAction feeds the executed action into the loop heuristics.
func (c *Controller) trackAction(call types.ToolCall, outcome types.ToolOutcome) {
	switch call.Name {
	case toolexec.ToolClick:
		var args struct {
			Index int `json:"index"`
		}
		// Malformed arguments already failed the call; index 0 is fine
		// for tracking in that case.
		_ = json.Unmarshal([]byte(call.Arguments), &args)
		c.tracker.ObserveClick(args.Index, call.Arguments, outcome.OK)
	case toolexec.ToolScroll:
		c.tracker.ObserveScroll()
	default:
		c.tracker.ObserveOther(outcome.OK)
	}
}

// observePage captures a fresh observation and appends its rendering.
func (c *Controller) observePage() {
	obs := c.capturer.Capture(c.executor.Generation())
	c.lastObsGeneration = obs.Generation
	c.append(types.NewUserMessage(observe.Render(obs, c.prof)))
	c.log.Debugf("observation: url=%s elements=%d headings=%d generation=%d",
		obs.URL, len(obs.Elements), len(obs.Headings), obs.Generation)
}

// checkPageAlive distinguishes a destroyed page handle from ordinary action
// failures. The executor reports the latter as outcomes; the former is a
// run-level failure.
func (c *Controller) checkPageAlive() error {
	if _, err := c.page.Title(); err != nil {
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "closed") || strings.Contains(msg, "crashed") {
			return fmt.Errorf("page handle lost: %w", err)
		}
	}
	return nil
}

func (c *Controller) append(msg *types.Message) {
	c.transcript = append(c.transcript, msg)
}

func (c *Controller) logTranscriptSize(step int) {
	if c.tok == nil {
		return
	}
	c.log.Debugf("step %d: transcript %d messages, ~%d tokens",
		step, len(c.transcript), c.tok.CountMessagesTokens(c.transcript))
}

func (c *Controller) result(steps int, reason TerminationReason, lastMessage string) *RunResult {
	return &RunResult{
		Steps:       steps,
		FinalURL:    c.page.URL(),
		Reason:      reason,
		LastMessage: lastMessage,
	}
}

func formatOutcome(outcome types.ToolOutcome) string {
	if outcome.OK {
		return "OK: " + outcome.Detail
	}
	return "FAILED: " + outcome.Detail
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
