package browser

import (
	"fmt"
	"io"

	"github.com/playwright-community/playwright-go"
)

// Default session parameters.
const (
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
)

// SessionOptions configures a browser session.
type SessionOptions struct {
	// Headless controls whether a launched browser has a visible window.
	// Ignored when attaching over CDP.
	Headless bool

	// CDPEndpoint, when non-empty, attaches to an existing browser over
	// the Chrome DevTools Protocol instead of launching one. The attached
	// browser is borrowed: Close never closes it.
	CDPEndpoint string
}

// Session owns (or borrows) one browser and exposes its active page. The
// page handle is exclusively held by the agent run for the session's
// lifetime.
type Session struct {
	pw       *playwright.Playwright
	browser  playwright.Browser
	context  playwright.BrowserContext
	page     playwright.Page
	borrowed bool
}

// NewSession starts a browser session. With a CDP endpoint it attaches to a
// pre-existing browser and reuses its first context and page when available;
// otherwise it launches an owned Chromium instance.
func NewSession(opts SessionOptions) (*Session, error) {
	runOpts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}
	if err := playwright.Install(runOpts); err != nil {
		return nil, fmt.Errorf("failed to install playwright: %w", err)
	}
	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	if opts.CDPEndpoint != "" {
		session, err := attach(pw, opts.CDPEndpoint)
		if err != nil {
			pw.Stop()
			return nil, err
		}
		return session, nil
	}

	session, err := launch(pw, opts.Headless)
	if err != nil {
		pw.Stop()
		return nil, err
	}
	return session, nil
}

func launch(pw *playwright.Playwright, headless bool) (*Session, error) {
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(headless),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	context, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  DefaultViewportWidth,
			Height: DefaultViewportHeight,
		},
	})
	if err != nil {
		browser.Close()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	page, err := context.NewPage()
	if err != nil {
		browser.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	return &Session{pw: pw, browser: browser, context: context, page: page}, nil
}

func attach(pw *playwright.Playwright, endpoint string) (*Session, error) {
	browser, err := pw.Chromium.ConnectOverCDP(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to attach over CDP: %w", err)
	}

	session := &Session{pw: pw, browser: browser, borrowed: true}

	// Reuse the live context and page when the attached browser has one.
	contexts := browser.Contexts()
	if len(contexts) > 0 {
		session.context = contexts[0]
		pages := contexts[0].Pages()
		if len(pages) > 0 {
			session.page = pages[0]
			return session, nil
		}
	} else {
		context, err := browser.NewContext()
		if err != nil {
			return nil, fmt.Errorf("failed to create context on attached browser: %w", err)
		}
		session.context = context
	}

	page, err := session.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create page on attached browser: %w", err)
	}
	session.page = page
	return session, nil
}

// Page returns the session's active page behind the driver boundary.
func (s *Session) Page() Page {
	return newPlaywrightPage(s.page)
}

// Borrowed reports whether the browser is externally owned.
func (s *Session) Borrowed() bool {
	return s.borrowed
}

// Close releases the session's resources. A borrowed browser is left
// running; only the playwright driver connection is stopped for it.
func (s *Session) Close() error {
	var firstErr error
	if !s.borrowed && s.browser != nil {
		if err := s.browser.Close(); err != nil {
			firstErr = fmt.Errorf("failed to close browser: %w", err)
		}
	}
	if s.pw != nil {
		if err := s.pw.Stop(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to stop playwright: %w", err)
		}
	}
	return firstErr
}
