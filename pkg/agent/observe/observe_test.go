package observe

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navimate/navimate/pkg/browser"
	"github.com/navimate/navimate/pkg/logging"
)

type fakeElement struct {
	tag     string
	role    string
	text    string
	value   string
	attrs   map[string]string
	box     *browser.Rect
	visible bool
	textErr error
}

func (e *fakeElement) GetAttribute(name string) (string, error) {
	if name == "role" {
		return e.role, nil
	}
	return e.attrs[name], nil
}

func (e *fakeElement) TextContent() (string, error)  { return e.text, e.textErr }
func (e *fakeElement) InputValue() (string, error)   { return e.value, nil }
func (e *fakeElement) TagName() (string, error)      { return e.tag, nil }
func (e *fakeElement) BoundingBox() (*browser.Rect, error) {
	return e.box, nil
}
func (e *fakeElement) IsVisible() (bool, error) { return e.visible, nil }
func (e *fakeElement) ScrollIntoView() error    { return nil }
func (e *fakeElement) Click(time.Duration) error {
	return nil
}
func (e *fakeElement) Fill(string, time.Duration) error  { return nil }
func (e *fakeElement) Press(string, time.Duration) error { return nil }

type fakePage struct {
	url      string
	title    string
	titleErr error
	queries  map[string][]browser.Element
	queryErr error
	viewport float64
}

func (p *fakePage) URL() string                        { return p.url }
func (p *fakePage) Title() (string, error)             { return p.title, p.titleErr }
func (p *fakePage) Navigate(string, time.Duration) error { return nil }
func (p *fakePage) WaitForLoad(time.Duration) error    { return nil }
func (p *fakePage) Query(selector string) ([]browser.Element, error) {
	if p.queryErr != nil {
		return nil, p.queryErr
	}
	return p.queries[selector], nil
}
func (p *fakePage) ViewportHeight() (float64, error) { return p.viewport, nil }
func (p *fakePage) Scroll(float64, float64) error    { return nil }
func (p *fakePage) Press(string) error               { return nil }
func (p *fakePage) GoBack(time.Duration) error       { return nil }
func (p *fakePage) OnDialog(func(browser.Dialog))    {}

func visibleLink(text string) *fakeElement {
	return &fakeElement{
		tag:     "a",
		text:    text,
		visible: true,
		box:     &browser.Rect{X: 0, Y: 100, Width: 120, Height: 20},
	}
}

func testCapturer(page browser.Page) *Capturer {
	log, _ := logging.NewLogger("observe-test")
	return NewCapturer(page, log)
}

func TestCaptureBoundsElementsAndHeadings(t *testing.T) {
	page := &fakePage{
		url:      "https://example.com/",
		title:    "Example",
		viewport: 720,
		queries:  map[string][]browser.Element{},
	}

	var headings []browser.Element
	for i := 0; i < 40; i++ {
		headings = append(headings, &fakeElement{tag: "h2", text: fmt.Sprintf("Heading %d", i)})
	}
	page.queries[HeadingSelector] = headings

	var candidates []browser.Element
	for i := 0; i < 80; i++ {
		candidates = append(candidates, visibleLink(fmt.Sprintf("Link %d", i)))
	}
	page.queries[InteractiveSelector] = candidates

	obs := testCapturer(page).Capture(7)

	assert.Equal(t, uint64(7), obs.Generation)
	assert.LessOrEqual(t, len(obs.Elements), MaxElements)
	assert.LessOrEqual(t, len(obs.Headings), MaxHeadings)
	assert.Len(t, obs.Elements, MaxElements)
	assert.Len(t, obs.Headings, MaxHeadings)
}

func TestCaptureElementIDIsOriginalIndex(t *testing.T) {
	hidden := visibleLink("hidden")
	hidden.visible = false

	page := &fakePage{
		url:      "https://example.com/",
		title:    "Example",
		viewport: 720,
		queries: map[string][]browser.Element{
			InteractiveSelector: {
				visibleLink("first"),
				hidden,
				visibleLink("third"),
			},
		},
	}

	obs := testCapturer(page).Capture(0)

	require.Len(t, obs.Elements, 2)
	assert.Equal(t, 0, obs.Elements[0].ID)
	assert.Equal(t, "first", obs.Elements[0].Name)
	// The hidden element is filtered out but its slot is not reused.
	assert.Equal(t, 2, obs.Elements[1].ID)
	assert.Equal(t, "third", obs.Elements[1].Name)
}

func TestCaptureNearViewportFilter(t *testing.T) {
	farAbove := visibleLink("far above")
	farAbove.box = &browser.Rect{X: 0, Y: -400, Width: 100, Height: 20}

	justAbove := visibleLink("just above")
	justAbove.box = &browser.Rect{X: 0, Y: -90, Width: 100, Height: 20}

	belowFold := visibleLink("below fold")
	belowFold.box = &browser.Rect{X: 0, Y: 1000, Width: 100, Height: 20}

	farBelow := visibleLink("far below")
	farBelow.box = &browser.Rect{X: 0, Y: 5000, Width: 100, Height: 20}

	zeroBox := visibleLink("zero box")
	zeroBox.box = &browser.Rect{X: 0, Y: 100, Width: 0, Height: 0}

	page := &fakePage{
		url:      "https://example.com/",
		title:    "Example",
		viewport: 720,
		queries: map[string][]browser.Element{
			InteractiveSelector: {farAbove, justAbove, belowFold, farBelow, zeroBox},
		},
	}

	obs := testCapturer(page).Capture(0)

	var names []string
	for _, el := range obs.Elements {
		names = append(names, el.Name)
	}
	assert.Equal(t, []string{"just above", "below fold"}, names)
}

func TestCaptureFormFieldNaming(t *testing.T) {
	withPlaceholder := &fakeElement{
		tag: "input", visible: true,
		box:   &browser.Rect{Y: 10, Width: 200, Height: 30},
		attrs: map[string]string{"placeholder": "Search dishes"},
		value: "pizza",
	}
	withValueOnly := &fakeElement{
		tag: "input", visible: true,
		box:   &browser.Rect{Y: 50, Width: 200, Height: 30},
		attrs: map[string]string{},
		value: "prefilled",
	}
	withNameOnly := &fakeElement{
		tag: "textarea", visible: true,
		box:   &browser.Rect{Y: 90, Width: 200, Height: 30},
		attrs: map[string]string{"name": "comment"},
	}

	page := &fakePage{
		url: "https://example.com/", title: "Example", viewport: 720,
		queries: map[string][]browser.Element{
			InteractiveSelector: {withPlaceholder, withValueOnly, withNameOnly},
		},
	}

	obs := testCapturer(page).Capture(0)
	require.Len(t, obs.Elements, 3)

	assert.Equal(t, "Search dishes", obs.Elements[0].Name)
	assert.Equal(t, "pizza", obs.Elements[0].Value)
	assert.Equal(t, "prefilled", obs.Elements[1].Name)
	assert.Equal(t, "comment", obs.Elements[2].Name)
}

func TestCaptureDropsUnnamedNonInteractive(t *testing.T) {
	unnamedCard := &fakeElement{
		tag: "div", role: "option", visible: true,
		box: &browser.Rect{Y: 10, Width: 200, Height: 100},
	}
	unnamedButton := &fakeElement{
		tag: "button", visible: true,
		box: &browser.Rect{Y: 10, Width: 40, Height: 40},
	}

	page := &fakePage{
		url: "https://example.com/", title: "Example", viewport: 720,
		queries: map[string][]browser.Element{
			InteractiveSelector: {unnamedCard, unnamedButton},
		},
	}

	obs := testCapturer(page).Capture(0)

	require.Len(t, obs.Elements, 1)
	assert.Equal(t, 1, obs.Elements[0].ID)
	assert.Equal(t, "button", obs.Elements[0].Role)
}

func TestCaptureTruncatesLongNames(t *testing.T) {
	long := visibleLink(strings.Repeat("x", 300))
	page := &fakePage{
		url: "https://example.com/", title: "Example", viewport: 720,
		queries: map[string][]browser.Element{
			InteractiveSelector: {long},
		},
	}

	obs := testCapturer(page).Capture(0)

	require.Len(t, obs.Elements, 1)
	assert.Len(t, obs.Elements[0].Name, MaxNameLength)
}

func TestCaptureDegradesToMinimalObservation(t *testing.T) {
	page := &fakePage{
		url:      "https://example.com/broken",
		title:    "Broken",
		queryErr: fmt.Errorf("evaluation crashed"),
	}

	obs := testCapturer(page).Capture(3)

	assert.Equal(t, "https://example.com/broken", obs.URL)
	assert.Equal(t, "Broken", obs.Title)
	assert.Empty(t, obs.Elements)
	assert.Empty(t, obs.Headings)
	assert.Equal(t, uint64(3), obs.Generation)
}

func TestCaptureSkipsTrivialHeadings(t *testing.T) {
	page := &fakePage{
		url: "https://example.com/", title: "Example", viewport: 720,
		queries: map[string][]browser.Element{
			HeadingSelector: {
				&fakeElement{tag: "h1", text: "  Menu  "},
				&fakeElement{tag: "h2", text: "ok"},
				&fakeElement{tag: "h2", text: "Drinks"},
			},
		},
	}

	obs := testCapturer(page).Capture(0)

	assert.Equal(t, []string{"Menu", "Drinks"}, obs.Headings)
}
