package browser

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nbenliogludev/go-recipe-agent/internal/tools"
)

const (
	actionTimeout = 30 * time.Second
	maxWait       = 30 * time.Second
)

var errNoPage = errors.New("no open tab")

type tabInfo struct {
	Title string
	URL   string
}

// backend is one browser driver. Elements are addressed by the CSS
// selector of a snapshot ref.
type backend interface {
	navigate(ctx context.Context, url string) error
	click(ctx context.Context, sel string) error
	fill(ctx context.Context, sel, text string, submit bool) error
	hover(ctx context.Context, sel string) error
	pressKey(ctx context.Context, key string) error
	tabNew(ctx context.Context, url string) error
	tabs(ctx context.Context) (tabs []tabInfo, current int, err error)
	tabSelect(ctx context.Context, i int) error
	tabClose(ctx context.Context, i int) error
	waitText(ctx context.Context, text string, gone bool) error
	screenshot(ctx context.Context, fullPage bool) (data []byte, mime string, err error)
	snapshot(ctx context.Context) (*PageSnapshot, error)
}

// refSelector maps a snapshot ref such as "12" or "[12]" to its element.
func refSelector(ref string) (string, error) {
	ref = strings.Trim(strings.TrimSpace(ref), "[]")
	n, err := strconv.Atoi(ref)
	if err != nil || n <= 0 {
		return "", fmt.Errorf("invalid ref %q: take a snapshot and use a number from it", ref)
	}
	return fmt.Sprintf("[data-ai-id='%d']", n), nil
}

func decode[T any](args json.RawMessage) (T, error) {
	var v T
	if len(args) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(args, &v); err != nil {
		return v, fmt.Errorf("invalid arguments: %w", err)
	}
	return v, nil
}

// dispatch runs op on b. Problems the model can fix come back as error
// results; the returned error is only the caller's context.
func dispatch(ctx context.Context, b backend, op string, args json.RawMessage) (tools.Result, error) {
	res, err := run(ctx, b, op, args)
	if err != nil {
		if ctx.Err() != nil {
			return tools.Result{}, ctx.Err()
		}
		return tools.ErrorResult(err.Error()), nil
	}
	return res, nil
}

func run(ctx context.Context, b backend, op string, args json.RawMessage) (tools.Result, error) {
	switch op {
	case tools.OpNavigate:
		a, err := decode[tools.NavigateArgs](args)
		if err != nil {
			return tools.Result{}, err
		}
		if a.URL == "" {
			return tools.Result{}, errors.New("url is required")
		}
		if err := b.navigate(ctx, a.URL); err != nil {
			return tools.Result{}, err
		}
		return withSnapshot(ctx, b, "Navigated to "+a.URL), nil

	case tools.OpClick, tools.OpHover:
		a, err := decode[tools.ElementArgs](args)
		if err != nil {
			return tools.Result{}, err
		}
		sel, err := refSelector(a.Ref)
		if err != nil {
			return tools.Result{}, err
		}
		if op == tools.OpClick {
			err = b.click(ctx, sel)
		} else {
			err = b.hover(ctx, sel)
		}
		if err != nil {
			return tools.Result{}, err
		}
		verb := map[string]string{tools.OpClick: "Clicked", tools.OpHover: "Hovered"}[op]
		return withSnapshot(ctx, b, fmt.Sprintf("%s %s [%s]", verb, a.Element, a.Ref)), nil

	case tools.OpType:
		a, err := decode[tools.TypeArgs](args)
		if err != nil {
			return tools.Result{}, err
		}
		sel, err := refSelector(a.Ref)
		if err != nil {
			return tools.Result{}, err
		}
		if err := b.fill(ctx, sel, a.Text, a.Submit); err != nil {
			return tools.Result{}, err
		}
		return withSnapshot(ctx, b, fmt.Sprintf("Typed %q into %s [%s]", a.Text, a.Element, a.Ref)), nil

	case tools.OpPressKey:
		a, err := decode[tools.PressKeyArgs](args)
		if err != nil {
			return tools.Result{}, err
		}
		if a.Key == "" {
			return tools.Result{}, errors.New("key is required")
		}
		if err := b.pressKey(ctx, a.Key); err != nil {
			return tools.Result{}, err
		}
		return withSnapshot(ctx, b, "Pressed "+a.Key), nil

	case tools.OpTabNew:
		a, err := decode[tools.TabNewArgs](args)
		if err != nil {
			return tools.Result{}, err
		}
		if err := b.tabNew(ctx, a.URL); err != nil {
			return tools.Result{}, err
		}
		return tabList(ctx, b)

	case tools.OpTabList:
		return tabList(ctx, b)

	case tools.OpTabSelect:
		a, err := decode[tools.TabIndexArgs](args)
		if err != nil {
			return tools.Result{}, err
		}
		if a.Index == nil {
			return tools.Result{}, errors.New("index is required")
		}
		if err := b.tabSelect(ctx, *a.Index); err != nil {
			return tools.Result{}, err
		}
		return withSnapshot(ctx, b, fmt.Sprintf("Selected tab %d", *a.Index)), nil

	case tools.OpTabClose:
		a, err := decode[tools.TabIndexArgs](args)
		if err != nil {
			return tools.Result{}, err
		}
		i := -1
		if a.Index != nil {
			i = *a.Index
		}
		if err := b.tabClose(ctx, i); err != nil {
			return tools.Result{}, err
		}
		return tabList(ctx, b)

	case tools.OpWaitFor:
		a, err := decode[tools.WaitForArgs](args)
		if err != nil {
			return tools.Result{}, err
		}
		return waitFor(ctx, b, a)

	case tools.OpTakeScreenshot:
		a, err := decode[tools.ScreenshotArgs](args)
		if err != nil {
			return tools.Result{}, err
		}
		data, mime, err := b.screenshot(ctx, a.FullPage)
		if err != nil {
			return tools.Result{}, err
		}
		return tools.Result{
			ImageBase64: base64.StdEncoding.EncodeToString(data),
			ImageMIME:   mime,
		}, nil

	case tools.OpSnapshot:
		snap, err := b.snapshot(ctx)
		if err != nil {
			return tools.Result{}, err
		}
		return tools.Result{Text: snap.Render()}, nil
	}
	return tools.Result{}, fmt.Errorf("unknown tool %q", op)
}

// withSnapshot appends the page state after an action, as the MCP server
// does. A failed snapshot only loses the page state.
func withSnapshot(ctx context.Context, b backend, msg string) tools.Result {
	snap, err := b.snapshot(ctx)
	if err != nil {
		return tools.Result{Text: msg + "\n\n(snapshot unavailable: " + err.Error() + ")"}
	}
	return tools.Result{Text: msg + "\n\n" + snap.Render()}
}

func tabList(ctx context.Context, b backend) (tools.Result, error) {
	tabs, current, err := b.tabs(ctx)
	if err != nil {
		return tools.Result{}, err
	}
	var sb strings.Builder
	sb.WriteString("### Open tabs\n")
	for i, t := range tabs {
		mark := ""
		if i == current {
			mark = " (current)"
		}
		fmt.Fprintf(&sb, "- %d:%s [%s] (%s)\n", i, mark, t.Title, t.URL)
	}
	return tools.Result{Text: sb.String()}, nil
}

func waitFor(ctx context.Context, b backend, a tools.WaitForArgs) (tools.Result, error) {
	if a.Time <= 0 && a.Text == "" && a.TextGone == "" {
		return tools.Result{}, errors.New("one of time, text or textGone is required")
	}
	if a.Time > 0 {
		d := min(time.Duration(a.Time*float64(time.Second)), maxWait)
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return tools.Result{}, ctx.Err()
		}
	}
	if a.TextGone != "" {
		if err := b.waitText(ctx, a.TextGone, true); err != nil {
			return tools.Result{}, err
		}
	}
	if a.Text != "" {
		if err := b.waitText(ctx, a.Text, false); err != nil {
			return tools.Result{}, err
		}
	}
	return withSnapshot(ctx, b, "Waited"), nil
}

// tabIndex resolves i against n open tabs; -1 means current.
func tabIndex(i, n, current int) (int, error) {
	if i == -1 {
		i = current
	}
	if i < 0 || i >= n {
		return 0, fmt.Errorf("tab %d does not exist (%d open)", i, n)
	}
	return i, nil
}

// afterClose returns the current index once tab closed has been removed,
// leaving n open tabs.
func afterClose(current, closed, n int) int {
	if closed < current {
		current--
	}
	return min(current, max(n-1, 0))
}
