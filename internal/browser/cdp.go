package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/page"
	cdpruntime "github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/rs/zerolog"

	"github.com/nbenliogludev/go-recipe-agent/internal/launch"
	"github.com/nbenliogludev/go-recipe-agent/internal/tools"
)

type CDPConfig struct {
	// RemoteURL attaches to a running browser's DevTools endpoint instead
	// of launching one.
	RemoteURL string
	Exec      launch.ExecContext
}

type cdpTab struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// CDPSession drives Chromium over the DevTools protocol with chromedp.
// Every tab is a chromedp context derived from a root context that owns
// the browser connection.
type CDPSession struct {
	allocCancel context.CancelFunc
	root        context.Context
	rootCancel  context.CancelFunc
	log         zerolog.Logger

	mu      sync.Mutex
	tabList []cdpTab
	current int
}

var (
	_ tools.Server = (*CDPSession)(nil)
	_ backend      = (*CDPSession)(nil)
)

func allocatorOptions(e launch.ExecContext) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Headless,
		chromedp.WindowSize(1280, 720),
	)
	if e.Sandboxed() {
		opts = append(opts, chromedp.ExecPath(e.ExecutablePath))
	}
	for _, f := range launch.ChromiumFlags(e) {
		opts = append(opts, chromedp.Flag(strings.TrimPrefix(f, "--"), true))
	}
	return opts
}

func NewCDPSession(cfg CDPConfig, log zerolog.Logger) (*CDPSession, error) {
	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if cfg.RemoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(context.Background(), cfg.RemoteURL)
	} else {
		allocCtx, allocCancel = chromedp.NewExecAllocator(context.Background(), allocatorOptions(cfg.Exec)...)
	}

	root, rootCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(root); err != nil {
		rootCancel()
		allocCancel()
		return nil, fmt.Errorf("start browser failed: %w", err)
	}

	s := &CDPSession{
		allocCancel: allocCancel,
		root:        root,
		rootCancel:  rootCancel,
		log:         log,
	}
	if err := s.openTab(); err != nil {
		_ = s.Close()
		return nil, err
	}
	log.Debug().Bool("remote", cfg.RemoteURL != "").Msg("cdp browser started")
	return s, nil
}

func (s *CDPSession) openTab() error {
	ctx, cancel := chromedp.NewContext(s.root)
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		return fmt.Errorf("open tab failed: %w", err)
	}
	s.tabList = append(s.tabList, cdpTab{ctx: ctx, cancel: cancel})
	s.current = len(s.tabList) - 1
	return nil
}

func (s *CDPSession) Call(ctx context.Context, op string, args json.RawMessage) (tools.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return dispatch(ctx, s, op, args)
}

func (s *CDPSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tabList {
		t.cancel()
	}
	s.tabList = nil
	s.rootCancel()
	s.allocCancel()
	return nil
}

// run executes actions on the current tab, bounded by actionTimeout and by
// the caller's context.
func (s *CDPSession) run(ctx context.Context, actions ...chromedp.Action) error {
	if len(s.tabList) == 0 {
		return errNoPage
	}
	tctx, cancel := context.WithTimeout(s.tabList[s.current].ctx, actionTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(tctx, actions...)
}

func (s *CDPSession) navigate(ctx context.Context, url string) error {
	return s.run(ctx, chromedp.Navigate(url))
}

// node finds the element behind sel without waiting for it to appear.
func node(sel string, out *cdp.BackendNodeID) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		var nodes []*cdp.Node
		if err := chromedp.Nodes(sel, &nodes, chromedp.ByQuery, chromedp.AtLeast(0)).Do(ctx); err != nil {
			return err
		}
		if len(nodes) == 0 {
			return fmt.Errorf("no element matches %s, take a new snapshot", sel)
		}
		*out = nodes[0].BackendNodeID
		return nil
	})
}

// clickHelper clicks the nearest clickable ancestor, and the inner input
// of radio and checkbox labels.
const clickHelper = `function() {
	if (this.scrollIntoViewIfNeeded) {
		this.scrollIntoViewIfNeeded();
	} else if (this.scrollIntoView) {
		this.scrollIntoView({ block: "center", inline: "center" });
	}

	const isClickable = (el) => {
		if (!el) return false;
		const tag = (el.tagName || "").toLowerCase();
		const role = (el.getAttribute && (el.getAttribute("role") || "").toLowerCase()) || "";
		if (tag === "button" || tag === "a" || tag === "label") return true;
		if (tag === "input") {
			const type = (el.type || "").toLowerCase();
			if (type === "button" || type === "submit" || type === "radio" || type === "checkbox") return true;
		}
		return role === "button" || role === "link" || role === "radio" || role === "checkbox";
	};

	const clickFromLabel = (label) => {
		if (!label) return false;
		const input = label.querySelector("input[type='radio'],input[type='checkbox']");
		if (input) {
			input.click();
			return true;
		}
		return false;
	};

	let el = this;
	if (el.closest && clickFromLabel(el.closest("label"))) return;
	for (let i = 0; i < 5 && el; i++) {
		if (isClickable(el)) {
			el.click();
			return;
		}
		el = el.parentElement;
	}
	this.click();
}`

func (s *CDPSession) click(ctx context.Context, sel string) error {
	var id cdp.BackendNodeID
	return s.run(ctx, node(sel, &id), chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithBackendNodeID(id).Do(ctx)
		if err != nil {
			return fmt.Errorf("resolve node failed: %w", err)
		}
		if obj == nil || obj.ObjectID == "" {
			return errors.New("object id is empty (node might be detached)")
		}
		_, exc, err := cdpruntime.CallFunctionOn(clickHelper).WithObjectID(obj.ObjectID).Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return fmt.Errorf("click failed: %s", exc.Text)
		}
		return nil
	}))
}

func (s *CDPSession) fill(ctx context.Context, sel, text string, submit bool) error {
	var id cdp.BackendNodeID
	actions := []chromedp.Action{
		node(sel, &id),
		chromedp.Focus(sel, chromedp.ByQuery),
		chromedp.Clear(sel, chromedp.ByQuery),
		chromedp.SendKeys(sel, text, chromedp.ByQuery),
	}
	if submit {
		actions = append(actions, chromedp.SendKeys(sel, kb.Enter, chromedp.ByQuery))
	}
	return s.run(ctx, actions...)
}

func (s *CDPSession) hover(ctx context.Context, sel string) error {
	var id cdp.BackendNodeID
	return s.run(ctx, node(sel, &id), chromedp.ActionFunc(func(ctx context.Context) error {
		if err := dom.ScrollIntoViewIfNeeded().WithBackendNodeID(id).Do(ctx); err != nil {
			return err
		}
		box, err := dom.GetBoxModel().WithBackendNodeID(id).Do(ctx)
		if err != nil {
			return fmt.Errorf("box model failed: %w", err)
		}
		x, y, ok := center(box.Content)
		if !ok {
			return errors.New("element has no layout box")
		}
		return input.DispatchMouseEvent(input.MouseMoved, x, y).Do(ctx)
	}))
}

// center returns the midpoint of a quad given as x1,y1..x4,y4.
func center(q dom.Quad) (x, y float64, ok bool) {
	if len(q) < 8 {
		return 0, 0, false
	}
	for i := 0; i < 8; i += 2 {
		x += q[i]
		y += q[i+1]
	}
	return x / 4, y / 4, true
}

var keyNames = map[string]string{
	"enter":      kb.Enter,
	"escape":     kb.Escape,
	"tab":        kb.Tab,
	"backspace":  kb.Backspace,
	"delete":     kb.Delete,
	"arrowdown":  kb.ArrowDown,
	"arrowup":    kb.ArrowUp,
	"arrowleft":  kb.ArrowLeft,
	"arrowright": kb.ArrowRight,
	"pagedown":   kb.PageDown,
	"pageup":     kb.PageUp,
	"home":       kb.Home,
	"end":        kb.End,
}

func keyFor(name string) string {
	if k, ok := keyNames[strings.ToLower(name)]; ok {
		return k
	}
	return name
}

func (s *CDPSession) pressKey(ctx context.Context, key string) error {
	return s.run(ctx, chromedp.KeyEvent(keyFor(key)))
}

func (s *CDPSession) tabNew(ctx context.Context, url string) error {
	if err := s.openTab(); err != nil {
		return err
	}
	if url == "" {
		return nil
	}
	return s.navigate(ctx, url)
}

func (s *CDPSession) tabs(ctx context.Context) ([]tabInfo, int, error) {
	out := make([]tabInfo, 0, len(s.tabList))
	for _, t := range s.tabList {
		var info tabInfo
		tctx, cancel := context.WithTimeout(t.ctx, 5*time.Second)
		stop := context.AfterFunc(ctx, cancel)
		_ = chromedp.Run(tctx, chromedp.Title(&info.Title), chromedp.Location(&info.URL))
		stop()
		cancel()
		out = append(out, info)
	}
	return out, s.current, nil
}

func (s *CDPSession) tabSelect(ctx context.Context, i int) error {
	i, err := tabIndex(i, len(s.tabList), s.current)
	if err != nil {
		return err
	}
	s.current = i
	return s.run(ctx, page.BringToFront())
}

func (s *CDPSession) tabClose(_ context.Context, i int) error {
	i, err := tabIndex(i, len(s.tabList), s.current)
	if err != nil {
		return err
	}
	s.tabList[i].cancel()
	s.tabList = append(s.tabList[:i], s.tabList[i+1:]...)
	s.current = afterClose(s.current, i, len(s.tabList))
	return nil
}

func (s *CDPSession) waitText(ctx context.Context, text string, gone bool) error {
	quoted, err := json.Marshal(text)
	if err != nil {
		return err
	}
	expr := fmt.Sprintf(`!!document.body && document.body.innerText.includes(%s)`, quoted)

	deadline := time.Now().Add(maxWait)
	for {
		var present bool
		if err := s.run(ctx, chromedp.Evaluate(expr, &present)); err != nil {
			return err
		}
		if present != gone {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out waiting for %q", text)
		}
		select {
		case <-time.After(250 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *CDPSession) screenshot(ctx context.Context, fullPage bool) ([]byte, string, error) {
	var buf []byte
	if fullPage {
		if err := s.run(ctx, chromedp.FullScreenshot(&buf, 70)); err != nil {
			return nil, "", err
		}
		return buf, "image/jpeg", nil
	}
	if err := s.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, "", err
	}
	return buf, "image/png", nil
}

func (s *CDPSession) snapshot(ctx context.Context) (*PageSnapshot, error) {
	var snap PageSnapshot
	err := s.run(ctx,
		chromedp.Evaluate("("+snapshotScript+")()", &snap.Tree),
		chromedp.Title(&snap.Title),
		chromedp.Location(&snap.URL),
	)
	if err != nil {
		return nil, fmt.Errorf("snapshot failed: %w", err)
	}
	return &snap, nil
}
