// Package observe turns live page state into the compact Observation the
// decision step sees, and renders it (together with the user profile) into
// a bounded text block.
package observe

import (
	"strings"
	"time"

	"github.com/navimate/navimate/pkg/browser"
	"github.com/navimate/navimate/pkg/logging"
)

// Bounds on observation size. These cap the token cost of a step, not the
// page itself.
const (
	MaxHeadings   = 30
	MaxElements   = 50
	MaxNameLength = 80
)

// Near-viewport margins: elements up to 500px below the fold are kept so
// lazy-loaded sections are visible to the model, and up to 100px above so a
// sticky header it just scrolled past is too.
const (
	belowViewportMargin = 500.0
	aboveViewportMargin = 100.0
)

const (
	loadTimeout     = 3 * time.Second
	fallbackTimeout = 8 * time.Second
)

// InteractiveSelector enumerates click candidates: standard interactive
// tags, common ARIA widget roles, and heuristic content-card classes.
// The tool executor re-runs this exact selector, so the element ids in an
// Observation line up with the executor's own query ordering.
const InteractiveSelector = `a, button, input, textarea, select, ` +
	`[role="button"], [role="link"], [role="menuitem"], [role="tab"], ` +
	`[role="option"], [role="checkbox"], [onclick], ` +
	`[data-testid*="card"], [class*="product-card"], [class*="dish-card"], [class*="item-card"]`

// HeadingSelector enumerates the headings summarized per page.
const HeadingSelector = "h1, h2, h3, h4"

// Element describes one interactive candidate. ID is the element's index in
// the full candidate list at capture time, before any filtering, so it maps
// onto the position the executor's own query reproduces.
type Element struct {
	ID    int    `json:"element_id"`
	Role  string `json:"role"`
	Name  string `json:"name"`
	Value string `json:"value,omitempty"`
}

// Observation is a structured snapshot of current page state. Produced fresh
// each cycle, never mutated, superseded by the next capture.
type Observation struct {
	// Generation identifies the DOM snapshot this observation was computed
	// from. Element ids are only meaningful while the session is still at
	// this generation.
	Generation uint64

	URL      string
	Title    string
	Headings []string
	Elements []Element
}

// Capturer reads page state into Observations. It holds no history and has
// no side effects beyond waiting for the page to load.
type Capturer struct {
	page browser.Page
	log  *logging.Logger
}

// NewCapturer creates a capturer for the given page.
func NewCapturer(page browser.Page, log *logging.Logger) *Capturer {
	return &Capturer{page: page, log: log}
}

// Capture produces an Observation stamped with the given generation.
// Capture never fails: on any error it degrades to a minimal observation
// (url and title only) after a longer fallback wait.
func (c *Capturer) Capture(generation uint64) *Observation {
	obs, err := c.capture(generation)
	if err == nil {
		return obs
	}
	c.log.Warnf("capture failed, degrading to minimal observation: %v", err)

	// Give a misbehaving page one longer chance to settle, then take
	// whatever url/title we can get.
	if waitErr := c.page.WaitForLoad(fallbackTimeout); waitErr != nil {
		c.log.Debugf("fallback wait did not settle: %v", waitErr)
	}
	title, _ := c.page.Title()
	return &Observation{
		Generation: generation,
		URL:        c.page.URL(),
		Title:      title,
	}
}

func (c *Capturer) capture(generation uint64) (*Observation, error) {
	// A load timeout is tolerated: the page may be settled enough already.
	if err := c.page.WaitForLoad(loadTimeout); err != nil {
		c.log.Debugf("load wait timed out, capturing anyway: %v", err)
	}

	title, err := c.page.Title()
	if err != nil {
		return nil, err
	}

	obs := &Observation{
		Generation: generation,
		URL:        c.page.URL(),
		Title:      title,
	}

	obs.Headings = c.collectHeadings()

	elements, err := c.collectElements()
	if err != nil {
		return nil, err
	}
	obs.Elements = elements

	return obs, nil
}

func (c *Capturer) collectHeadings() []string {
	handles, err := c.page.Query(HeadingSelector)
	if err != nil {
		c.log.Debugf("heading query failed: %v", err)
		return nil
	}

	var headings []string
	for _, handle := range handles {
		if len(headings) >= MaxHeadings {
			break
		}
		text, err := handle.TextContent()
		if err != nil {
			continue
		}
		text = collapseWhitespace(text)
		if len([]rune(text)) > 2 {
			headings = append(headings, text)
		}
	}
	return headings
}

func (c *Capturer) collectElements() ([]Element, error) {
	handles, err := c.page.Query(InteractiveSelector)
	if err != nil {
		return nil, err
	}

	viewportHeight, err := c.page.ViewportHeight()
	if err != nil {
		return nil, err
	}

	var elements []Element
	for i, handle := range handles {
		if len(elements) >= MaxElements {
			break
		}
		desc, ok := c.describeElement(i, handle, viewportHeight)
		if ok {
			elements = append(elements, desc)
		}
	}
	return elements, nil
}

// describeElement decides whether the candidate at original index i is worth
// showing and extracts its descriptor. Per-element failures drop the element
// rather than failing the capture.
func (c *Capturer) describeElement(i int, handle browser.Element, viewportHeight float64) (Element, bool) {
	visible, err := handle.IsVisible()
	if err != nil || !visible {
		return Element{}, false
	}

	box, err := handle.BoundingBox()
	if err != nil || box == nil || box.Width <= 0 || box.Height <= 0 {
		return Element{}, false
	}
	if box.Y+box.Height < -aboveViewportMargin {
		return Element{}, false
	}
	if box.Y > viewportHeight+belowViewportMargin {
		return Element{}, false
	}

	tag, err := handle.TagName()
	if err != nil {
		return Element{}, false
	}

	role := tag
	if ariaRole, _ := handle.GetAttribute("role"); ariaRole != "" {
		role = ariaRole
	}

	name, value := c.extractNameAndValue(handle, tag)
	if name == "" && !isAlwaysKeptRole(role, tag) {
		return Element{}, false
	}

	return Element{ID: i, Role: role, Name: name, Value: value}, true
}

// extractNameAndValue picks a short display name. Form fields prefer their
// placeholder, then current value, then name attribute; everything else uses
// trimmed text content.
func (c *Capturer) extractNameAndValue(handle browser.Element, tag string) (name, value string) {
	if isFormField(tag) {
		value, _ = handle.InputValue()
		value = truncate(collapseWhitespace(value), MaxNameLength)

		if placeholder, _ := handle.GetAttribute("placeholder"); placeholder != "" {
			name = placeholder
		} else if value != "" {
			name = value
		} else if attrName, _ := handle.GetAttribute("name"); attrName != "" {
			name = attrName
		}
		return truncate(collapseWhitespace(name), MaxNameLength), value
	}

	text, err := handle.TextContent()
	if err != nil {
		return "", ""
	}
	return truncate(collapseWhitespace(text), MaxNameLength), ""
}

func isFormField(tag string) bool {
	return tag == "input" || tag == "textarea" || tag == "select"
}

// isAlwaysKeptRole keeps unnamed buttons and links; an icon-only button is
// still worth clicking.
func isAlwaysKeptRole(role, tag string) bool {
	return role == "button" || role == "link" || tag == "button" || tag == "a"
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
