package browser

import (
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

// playwrightPage adapts playwright.Page to the Page interface.
type playwrightPage struct {
	page playwright.Page
}

// newPlaywrightPage wraps a playwright page.
func newPlaywrightPage(page playwright.Page) Page {
	return &playwrightPage{page: page}
}

func (p *playwrightPage) URL() string {
	return p.page.URL()
}

func (p *playwrightPage) Title() (string, error) {
	return p.page.Title()
}

func (p *playwrightPage) Navigate(url string, timeout time.Duration) error {
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	if err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

func (p *playwrightPage) WaitForLoad(timeout time.Duration) error {
	return p.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateDomcontentloaded,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
}

func (p *playwrightPage) Query(selector string) ([]Element, error) {
	handles, err := p.page.QuerySelectorAll(selector)
	if err != nil {
		return nil, fmt.Errorf("selector query failed: %w", err)
	}
	elements := make([]Element, 0, len(handles))
	for _, handle := range handles {
		elements = append(elements, &playwrightElement{page: p.page, handle: handle})
	}
	return elements, nil
}

func (p *playwrightPage) ViewportHeight() (float64, error) {
	result, err := p.page.Evaluate("() => window.innerHeight")
	if err != nil {
		return 0, fmt.Errorf("viewport query failed: %w", err)
	}
	return toFloat(result), nil
}

func (p *playwrightPage) Scroll(dx, dy float64) error {
	return p.page.Mouse().Wheel(dx, dy)
}

func (p *playwrightPage) Press(key string) error {
	return p.page.Keyboard().Press(key)
}

func (p *playwrightPage) GoBack(timeout time.Duration) error {
	_, err := p.page.GoBack(playwright.PageGoBackOptions{
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	return err
}

func (p *playwrightPage) OnDialog(handler func(Dialog)) {
	p.page.OnDialog(func(dialog playwright.Dialog) {
		handler(&playwrightDialog{dialog: dialog})
	})
}

// playwrightElement adapts playwright.ElementHandle to the Element interface.
type playwrightElement struct {
	page   playwright.Page
	handle playwright.ElementHandle
}

func (e *playwrightElement) GetAttribute(name string) (string, error) {
	value, err := e.handle.GetAttribute(name)
	if err != nil {
		// Missing attribute is not an interaction failure.
		return "", nil
	}
	return value, nil
}

func (e *playwrightElement) TextContent() (string, error) {
	return e.handle.TextContent()
}

func (e *playwrightElement) InputValue() (string, error) {
	return e.handle.InputValue()
}

func (e *playwrightElement) TagName() (string, error) {
	result, err := e.page.Evaluate("el => el.tagName.toLowerCase()", e.handle)
	if err != nil {
		return "", err
	}
	tag, _ := result.(string)
	return tag, nil
}

func (e *playwrightElement) BoundingBox() (*Rect, error) {
	box, err := e.handle.BoundingBox()
	if err != nil || box == nil {
		return nil, err
	}
	return &Rect{X: box.X, Y: box.Y, Width: box.Width, Height: box.Height}, nil
}

func (e *playwrightElement) IsVisible() (bool, error) {
	return e.handle.IsVisible()
}

func (e *playwrightElement) ScrollIntoView() error {
	return e.handle.ScrollIntoViewIfNeeded()
}

func (e *playwrightElement) Click(timeout time.Duration) error {
	return e.handle.Click(playwright.ElementHandleClickOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
}

func (e *playwrightElement) Fill(value string, timeout time.Duration) error {
	return e.handle.Fill(value, playwright.ElementHandleFillOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
}

func (e *playwrightElement) Press(key string, timeout time.Duration) error {
	return e.handle.Press(key, playwright.ElementHandlePressOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
}

// playwrightDialog adapts playwright.Dialog.
type playwrightDialog struct {
	dialog playwright.Dialog
}

func (d *playwrightDialog) Type() string    { return d.dialog.Type() }
func (d *playwrightDialog) Message() string { return d.dialog.Message() }
func (d *playwrightDialog) Accept() error   { return d.dialog.Accept() }
func (d *playwrightDialog) Dismiss() error  { return d.dialog.Dismiss() }

func toFloat(value interface{}) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}
