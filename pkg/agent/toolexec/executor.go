// Package toolexec validates and performs single browser actions requested
// by the decision step. Every failure mode — malformed arguments, stale
// indices, refused clicks, driver errors, timeouts — is translated into a
// ToolOutcome; nothing raises past this boundary.
package toolexec

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gobwas/glob"

	"github.com/navimate/navimate/pkg/agent/observe"
	"github.com/navimate/navimate/pkg/browser"
	"github.com/navimate/navimate/pkg/logging"
	"github.com/navimate/navimate/pkg/types"
)

// Tool names in the declared schema.
const (
	ToolOpenURL           = "open_url"
	ToolClick             = "click"
	ToolFill              = "fill"
	ToolPress             = "press"
	ToolScroll            = "scroll"
	ToolWaitForNavigation = "wait_for_navigation"
	ToolGoBack            = "go_back"
)

// FormFieldSelector is the query used by fill: form fields only, in document
// order. The fill index addresses a position in this list.
const FormFieldSelector = "input, textarea"

// Fixed action bounds. All short, all recoverable: a timeout means
// "not settled yet", never "broken".
const (
	navTimeout      = 15 * time.Second
	settleDelay     = 1500 * time.Millisecond
	clickTimeout    = 5 * time.Second
	fillTimeout     = 5 * time.Second
	goBackTimeout   = 10 * time.Second
	defaultWaitMs   = 10000
	maxWaitMs       = 30000
)

// Executor performs one requested action against the page. It owns the
// snapshot generation counter: any action that can mutate the DOM bumps it,
// and index-based actions refuse to run against an outdated observation.
type Executor struct {
	page       browser.Page
	log        *logging.Logger
	blocked    []glob.Glob
	generation uint64
}

// NewExecutor creates an executor for the given page. blockedPatterns are
// glob patterns for denylisted navigation targets; invalid patterns are
// logged and skipped.
func NewExecutor(page browser.Page, blockedPatterns []string, log *logging.Logger) *Executor {
	e := &Executor{page: page, log: log}
	for _, pattern := range blockedPatterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			log.Warnf("ignoring invalid blocked-url pattern %q: %v", pattern, err)
			continue
		}
		e.blocked = append(e.blocked, g)
	}
	return e
}

// Generation returns the current snapshot generation. Observations captured
// at this generation hold element ids the executor will still honor.
func (e *Executor) Generation() uint64 {
	return e.generation
}

func (e *Executor) bumpGeneration() {
	e.generation++
}

// Execute performs one tool call and reports the outcome. obsGeneration is
// the generation of the observation the call's arguments were derived from.
// Execute never panics or returns an error: driver-level failures become
// OK=false outcomes with model-readable detail.
func (e *Executor) Execute(call types.ToolCall, obsGeneration uint64) (outcome types.ToolOutcome) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Errorf("tool %s panicked: %v", call.Name, r)
			outcome = types.Fail(fmt.Sprintf("%s failed unexpectedly: %v", call.Name, r))
		}
	}()

	switch call.Name {
	case ToolOpenURL:
		return e.openURL(call.Arguments)
	case ToolClick:
		return e.click(call.Arguments, obsGeneration)
	case ToolFill:
		return e.fill(call.Arguments, obsGeneration)
	case ToolPress:
		return e.press(call.Arguments)
	case ToolScroll:
		return e.scroll(call.Arguments)
	case ToolWaitForNavigation:
		return e.waitForNavigation(call.Arguments)
	case ToolGoBack:
		return e.goBack()
	default:
		return types.Fail(fmt.Sprintf("unknown tool %q", call.Name))
	}
}

type openURLArgs struct {
	URL string `json:"url"`
}

func (e *Executor) openURL(rawArgs string) types.ToolOutcome {
	var args openURLArgs
	if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
		return types.Fail(fmt.Sprintf("open_url: malformed arguments: %v", err))
	}

	parsed, err := url.Parse(args.URL)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		return types.Fail(fmt.Sprintf("open_url: %q is not an absolute URL", args.URL))
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return types.Fail(fmt.Sprintf("open_url: unsupported scheme %q", parsed.Scheme))
	}

	for _, g := range e.blocked {
		if g.Match(args.URL) {
			return types.Fail(fmt.Sprintf(
				"open_url: navigation to %s is blocked (this login endpoint does not work under automation); find another way to proceed",
				args.URL))
		}
	}

	if err := e.page.Navigate(args.URL, navTimeout); err != nil {
		return types.Fail(fmt.Sprintf("open_url: %v", err))
	}

	// Fixed pause so client-side rendering catches up before the next
	// observation.
	time.Sleep(settleDelay)
	e.bumpGeneration()
	return types.Ok(fmt.Sprintf("navigated to %s", e.page.URL()))
}

type clickArgs struct {
	Index *int `json:"index"`
}

func (e *Executor) click(rawArgs string, obsGeneration uint64) types.ToolOutcome {
	var args clickArgs
	if err := json.Unmarshal([]byte(rawArgs), &args); err != nil || args.Index == nil {
		return types.Fail("click: malformed arguments: an integer \"index\" is required")
	}
	index := *args.Index

	if obsGeneration != e.generation {
		return types.Fail(fmt.Sprintf(
			"click: stale snapshot (observation generation %d, page is now at %d); element ids are no longer valid, observe the page again",
			obsGeneration, e.generation))
	}

	// Re-query fresh; the ordering matches the observation's candidate
	// enumeration, but the count is checked against the live page.
	elements, err := e.page.Query(observe.InteractiveSelector)
	if err != nil {
		return types.Fail(fmt.Sprintf("click: element query failed: %v", err))
	}
	if index < 0 || index >= len(elements) {
		return types.Fail(fmt.Sprintf(
			"click: index %d out of range (page currently has %d interactive elements)", index, len(elements)))
	}
	element := elements[index]

	if refusal := e.refuseUnsafeClick(element, index); refusal != "" {
		return types.Fail(refusal)
	}

	if err := element.ScrollIntoView(); err != nil {
		e.log.Debugf("click: scroll into view failed for %d: %v", index, err)
	}

	return e.raceClick(element, index)
}

// refuseUnsafeClick inspects link targets before clicking. New-tab targets
// and cross-origin absolute links are refused: the agent owns exactly one
// page, and leaving the current origin must be an explicit open_url.
func (e *Executor) refuseUnsafeClick(element browser.Element, index int) string {
	target, _ := element.GetAttribute("target")
	if target == "_blank" {
		return fmt.Sprintf("click: element %d opens a new tab (target=_blank); use open_url with its destination instead", index)
	}

	href, _ := element.GetAttribute("href")
	if href == "" {
		return ""
	}
	parsed, err := url.Parse(href)
	if err != nil || !parsed.IsAbs() {
		// Relative and fragment links stay on the current origin.
		return ""
	}
	current, err := url.Parse(e.page.URL())
	if err != nil {
		return ""
	}
	if parsed.Host != current.Host {
		return fmt.Sprintf("click: element %d links to a different origin (%s); use open_url if that is intended", index, parsed.Host)
	}
	return ""
}

// raceClick races the click against a fixed timeout. A click that triggers
// full navigation destroys the in-flight action handle, so a detached-target
// error or an unresolved click is classified as a navigation side-effect,
// not a hang or a failure.
func (e *Executor) raceClick(element browser.Element, index int) types.ToolOutcome {
	done := make(chan error, 1)
	go func() {
		done <- element.Click(clickTimeout)
	}()

	select {
	case err := <-done:
		switch {
		case err == nil:
			e.bumpGeneration()
			return types.Ok(fmt.Sprintf("clicked element %d", index))
		case isDetachedError(err):
			e.bumpGeneration()
			return types.Ok(fmt.Sprintf("clicked element %d; the click triggered a navigation", index))
		default:
			return types.Fail(fmt.Sprintf("click: %v", err))
		}
	case <-time.After(clickTimeout + time.Second):
		// The click promise never resolved; assume the page navigated
		// out from under it. The abandoned goroutine's send is absorbed
		// by the buffered channel.
		e.bumpGeneration()
		return types.Ok(fmt.Sprintf("clicked element %d; the page did not settle in time and may have navigated", index))
	}
}

// isDetachedError recognizes driver errors caused by the page or element
// going away mid-action, the expected signature of a click-triggered
// navigation.
func isDetachedError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"target closed",
		"context was destroyed",
		"execution context",
		"detached",
		"navigation",
		"frame was detached",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

type fillArgs struct {
	Index      *int   `json:"index"`
	Text       string `json:"text"`
	PressEnter bool   `json:"press_enter"`
}

func (e *Executor) fill(rawArgs string, obsGeneration uint64) types.ToolOutcome {
	var args fillArgs
	if err := json.Unmarshal([]byte(rawArgs), &args); err != nil || args.Index == nil {
		return types.Fail("fill: malformed arguments: an integer \"index\" and a \"text\" string are required")
	}
	index := *args.Index

	if obsGeneration != e.generation {
		return types.Fail(fmt.Sprintf(
			"fill: stale snapshot (observation generation %d, page is now at %d); observe the page again",
			obsGeneration, e.generation))
	}

	fields, err := e.page.Query(FormFieldSelector)
	if err != nil {
		return types.Fail(fmt.Sprintf("fill: form field query failed: %v", err))
	}
	if index < 0 || index >= len(fields) {
		return types.Fail(fmt.Sprintf(
			"fill: index %d out of range (page currently has %d form fields)", index, len(fields)))
	}
	field := fields[index]

	if err := field.ScrollIntoView(); err != nil {
		e.log.Debugf("fill: scroll into view failed for %d: %v", index, err)
	}

	if err := field.Fill(args.Text, fillTimeout); err != nil {
		return types.Fail(fmt.Sprintf("fill: %v", err))
	}

	detail := fmt.Sprintf("filled field %d with %q", index, args.Text)
	if args.PressEnter {
		if err := field.Press("Enter", fillTimeout); err != nil {
			e.bumpGeneration()
			return types.Fail(fmt.Sprintf("fill: value set but Enter press failed: %v", err))
		}
		detail += " and pressed Enter"
	}
	e.bumpGeneration()
	return types.Ok(detail)
}

type pressArgs struct {
	Key string `json:"key"`
}

func (e *Executor) press(rawArgs string) types.ToolOutcome {
	var args pressArgs
	if err := json.Unmarshal([]byte(rawArgs), &args); err != nil || args.Key == "" {
		return types.Fail("press: malformed arguments: a \"key\" string is required")
	}
	if err := e.page.Press(args.Key); err != nil {
		return types.Fail(fmt.Sprintf("press: %v", err))
	}
	e.bumpGeneration()
	return types.Ok(fmt.Sprintf("pressed %s", args.Key))
}

type scrollArgs struct {
	DX *float64 `json:"dx"`
	DY *float64 `json:"dy"`
}

func (e *Executor) scroll(rawArgs string) types.ToolOutcome {
	var args scrollArgs
	if err := json.Unmarshal([]byte(rawArgs), &args); err != nil || args.DY == nil {
		return types.Fail("scroll: malformed arguments: a numeric \"dy\" is required")
	}
	dx := 0.0
	if args.DX != nil {
		dx = *args.DX
	}
	if err := e.page.Scroll(dx, *args.DY); err != nil {
		return types.Fail(fmt.Sprintf("scroll: %v", err))
	}
	return types.Ok(fmt.Sprintf("scrolled by (%.0f, %.0f)", dx, *args.DY))
}

type waitArgs struct {
	TimeoutMs int `json:"timeout_ms"`
}

func (e *Executor) waitForNavigation(rawArgs string) types.ToolOutcome {
	args := waitArgs{TimeoutMs: defaultWaitMs}
	if rawArgs != "" {
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
			return types.Fail(fmt.Sprintf("wait_for_navigation: malformed arguments: %v", err))
		}
	}
	if args.TimeoutMs <= 0 {
		args.TimeoutMs = defaultWaitMs
	}
	if args.TimeoutMs > maxWaitMs {
		args.TimeoutMs = maxWaitMs
	}

	timeout := time.Duration(args.TimeoutMs) * time.Millisecond
	if err := e.page.WaitForLoad(timeout); err != nil {
		return types.Fail(fmt.Sprintf(
			"wait_for_navigation: no load milestone within %dms; the page may still be loading", args.TimeoutMs))
	}
	return types.Ok("page load milestone reached")
}

func (e *Executor) goBack() types.ToolOutcome {
	if err := e.page.GoBack(goBackTimeout); err != nil {
		return types.Fail(fmt.Sprintf("go_back: %v", err))
	}
	e.bumpGeneration()
	return types.Ok(fmt.Sprintf("went back to %s", e.page.URL()))
}
