// Package browser wraps the browser driver behind the narrow capability set
// the agent needs: navigation, ordered element queries, element interaction,
// scrolling, load waits, history, and dialog events.
//
// The interfaces exist so the agent packages can be exercised against fakes;
// the production implementation sits on playwright-go in this package.
package browser

import "time"

// Rect is an element bounding box relative to the viewport.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Dialog is a native browser dialog (alert, confirm, prompt) awaiting a
// resolution.
type Dialog interface {
	// Type returns the dialog type ("alert", "confirm", "prompt", ...).
	Type() string

	// Message returns the dialog message text.
	Message() string

	// Accept accepts the dialog.
	Accept() error

	// Dismiss dismisses the dialog.
	Dismiss() error
}

// Element is one live element handle from an ordered query. Handles are only
// valid until the page mutates; all methods may fail afterwards and callers
// must treat that as an expected outcome.
type Element interface {
	// GetAttribute returns the attribute value, or "" when absent.
	GetAttribute(name string) (string, error)

	// TextContent returns the element's text content.
	TextContent() (string, error)

	// InputValue returns the current value of a form field.
	InputValue() (string, error)

	// TagName returns the lowercase tag name.
	TagName() (string, error)

	// BoundingBox returns the viewport-relative box, or nil when the
	// element has no box (detached or not rendered).
	BoundingBox() (*Rect, error)

	// IsVisible reports whether the element is rendered and not hidden
	// via style.
	IsVisible() (bool, error)

	// ScrollIntoView scrolls the element into the viewport.
	ScrollIntoView() error

	// Click clicks the element, bounded by the timeout.
	Click(timeout time.Duration) error

	// Fill sets a form field's value, bounded by the timeout.
	Fill(value string, timeout time.Duration) error

	// Press dispatches a named key event on the element.
	Press(key string, timeout time.Duration) error
}

// Page is the live page handle. Query ordering is document order and is
// recomputed independently on every call; the agent relies on that ordering
// being stable for an unchanged DOM.
type Page interface {
	// URL returns the current page URL.
	URL() string

	// Title returns the current page title.
	Title() (string, error)

	// Navigate loads the given URL, waiting for the DOM-content-loaded
	// milestone, bounded by the timeout.
	Navigate(url string, timeout time.Duration) error

	// WaitForLoad blocks until the DOM-content-loaded milestone or the
	// timeout. A timeout is returned as an error; callers decide whether
	// it is fatal.
	WaitForLoad(timeout time.Duration) error

	// Query returns all elements matching the selector in document order.
	Query(selector string) ([]Element, error)

	// ViewportHeight returns the viewport height in CSS pixels.
	ViewportHeight() (float64, error)

	// Scroll applies a wheel-style scroll delta.
	Scroll(dx, dy float64) error

	// Press dispatches a named key event to the focused element.
	Press(key string) error

	// GoBack navigates one entry back in history.
	GoBack(timeout time.Duration) error

	// OnDialog registers a handler for native dialogs. Must be installed
	// before any navigation that can trigger one.
	OnDialog(handler func(Dialog))
}
