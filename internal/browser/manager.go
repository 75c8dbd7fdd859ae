package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog"

	"github.com/nbenliogludev/go-recipe-agent/internal/launch"
	"github.com/nbenliogludev/go-recipe-agent/internal/tools"
)

// Manager drives Chromium through playwright-go and serves the browser
// tool operations in-process.
type Manager struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	log     zerolog.Logger

	mu      sync.Mutex
	pages   []playwright.Page
	current int
}

var (
	_ tools.Server = (*Manager)(nil)
	_ backend      = (*Manager)(nil)
)

// NewManager installs the driver if needed and launches a headless
// Chromium. A supplied executable skips the browser download.
func NewManager(exec launch.ExecContext, log zerolog.Logger) (*Manager, error) {
	runOpts := &playwright.RunOptions{
		Browsers:            []string{"chromium"},
		SkipInstallBrowsers: exec.Sandboxed(),
		Verbose:             false,
	}
	if err := playwright.Install(runOpts); err != nil {
		return nil, fmt.Errorf("install pw failed: %w", err)
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("start pw failed: %w", err)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
		Args:     launch.ChromiumFlags(exec),
	}
	if exec.Sandboxed() {
		launchOpts.ExecutablePath = playwright.String(exec.ExecutablePath)
	}
	browser, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch chromium failed: %w", err)
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: 1280, Height: 720},
	})
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, err
	}
	bctx.SetDefaultTimeout(float64(actionTimeout.Milliseconds()))
	bctx.SetDefaultNavigationTimeout(60000)

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	log.Debug().Bool("custom_executable", exec.Sandboxed()).Msg("playwright browser started")
	return &Manager{
		pw:      pw,
		browser: browser,
		context: bctx,
		log:     log,
		pages:   []playwright.Page{page},
	}, nil
}

func (m *Manager) Call(ctx context.Context, op string, args json.RawMessage) (tools.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return dispatch(ctx, m, op, args)
}

func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	if m.context != nil {
		errs = append(errs, m.context.Close())
	}
	if m.browser != nil {
		errs = append(errs, m.browser.Close())
	}
	if m.pw != nil {
		errs = append(errs, m.pw.Stop())
	}
	m.pages = nil
	return errors.Join(errs...)
}

func (m *Manager) page() (playwright.Page, error) {
	if len(m.pages) == 0 {
		return nil, errNoPage
	}
	return m.pages[m.current], nil
}

func (m *Manager) navigate(_ context.Context, url string) error {
	p, err := m.page()
	if err != nil {
		return err
	}
	_, err = p.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	return err
}

func (m *Manager) locator(sel string) (playwright.Locator, error) {
	p, err := m.page()
	if err != nil {
		return nil, err
	}
	return p.Locator(sel).First(), nil
}

func (m *Manager) click(_ context.Context, sel string) error {
	loc, err := m.locator(sel)
	if err != nil {
		return err
	}
	if err := loc.ScrollIntoViewIfNeeded(); err != nil {
		return fmt.Errorf("scroll failed: %w", err)
	}
	return loc.Click()
}

func (m *Manager) fill(_ context.Context, sel, text string, submit bool) error {
	loc, err := m.locator(sel)
	if err != nil {
		return err
	}
	if err := loc.Fill(text); err != nil {
		return err
	}
	if submit {
		return loc.Press("Enter")
	}
	return nil
}

func (m *Manager) hover(_ context.Context, sel string) error {
	loc, err := m.locator(sel)
	if err != nil {
		return err
	}
	return loc.Hover()
}

func (m *Manager) pressKey(_ context.Context, key string) error {
	p, err := m.page()
	if err != nil {
		return err
	}
	return p.Keyboard().Press(key)
}

func (m *Manager) tabNew(_ context.Context, url string) error {
	p, err := m.context.NewPage()
	if err != nil {
		return err
	}
	m.pages = append(m.pages, p)
	m.current = len(m.pages) - 1
	if url == "" {
		return nil
	}
	_, err = p.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	return err
}

func (m *Manager) tabs(_ context.Context) ([]tabInfo, int, error) {
	out := make([]tabInfo, 0, len(m.pages))
	for _, p := range m.pages {
		title, _ := p.Title()
		out = append(out, tabInfo{Title: title, URL: p.URL()})
	}
	return out, m.current, nil
}

func (m *Manager) tabSelect(_ context.Context, i int) error {
	i, err := tabIndex(i, len(m.pages), m.current)
	if err != nil {
		return err
	}
	m.current = i
	return m.pages[i].BringToFront()
}

func (m *Manager) tabClose(_ context.Context, i int) error {
	i, err := tabIndex(i, len(m.pages), m.current)
	if err != nil {
		return err
	}
	if err := m.pages[i].Close(); err != nil {
		return err
	}
	m.pages = append(m.pages[:i], m.pages[i+1:]...)
	m.current = afterClose(m.current, i, len(m.pages))
	return nil
}

func (m *Manager) waitText(_ context.Context, text string, gone bool) error {
	p, err := m.page()
	if err != nil {
		return err
	}
	state := playwright.WaitForSelectorStateVisible
	if gone {
		state = playwright.WaitForSelectorStateHidden
	}
	return p.GetByText(text).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   state,
		Timeout: playwright.Float(float64(maxWait.Milliseconds())),
	})
}

func (m *Manager) screenshot(_ context.Context, fullPage bool) ([]byte, string, error) {
	p, err := m.page()
	if err != nil {
		return nil, "", err
	}
	buf, err := p.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(fullPage),
		Type:     playwright.ScreenshotTypeJpeg,
		Quality:  playwright.Int(70),
	})
	if err != nil {
		return nil, "", err
	}
	return buf, "image/jpeg", nil
}

func (m *Manager) snapshot(_ context.Context) (*PageSnapshot, error) {
	p, err := m.page()
	if err != nil {
		return nil, err
	}
	result, err := p.Evaluate(snapshotScript)
	if err != nil {
		return nil, fmt.Errorf("js evaluation failed: %w", err)
	}
	tree, ok := result.(string)
	if !ok {
		return nil, fmt.Errorf("expected string from js, got %T", result)
	}
	title, _ := p.Title()
	return &PageSnapshot{URL: p.URL(), Title: title, Tree: tree}, nil
}
