// Package hostbrowser is the reference host driver: it launches or attaches
// to Chrome via go-rod, takes a JSON snapshot of page state once per tick,
// and applies the seven action variants a declared ActionGenerator may
// propose. It is deliberately thin — it answers exactly the snapshot/apply
// contract the scripting runtime's host collaborator owes, not a general
// DOM-automation surface.
package hostbrowser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"propmon/internal/actions"
	"propmon/internal/config"
)

// Host owns one detached Chrome instance and the single page it drives the
// walk against.
type Host struct {
	cfg     config.BrowserConfig
	browser *rod.Browser
	page    *rod.Page
	log     *zap.Logger
}

// New launches or attaches to Chrome per cfg and, if cfg.StartURL is set,
// navigates to it before returning. A nil log disables logging.
func New(ctx context.Context, cfg config.BrowserConfig, log *zap.Logger) (*Host, error) {
	if log == nil {
		log = zap.NewNop()
	}
	controlURL := cfg.DebuggerURL
	if controlURL == "" && len(cfg.Launch) > 0 {
		bin := cfg.Launch[0]
		launch := launcher.New().Bin(bin).Headless(cfg.IsHeadless())
		for _, rawFlag := range cfg.Launch[1:] {
			flagStr := strings.TrimLeft(rawFlag, "-")
			name, val, hasVal := strings.Cut(flagStr, "=")
			if hasVal {
				launch = launch.Set(flags.Flag(name), val)
			} else {
				launch = launch.Set(flags.Flag(name))
			}
		}
		url, err := launch.Launch()
		if err != nil {
			return nil, fmt.Errorf("hostbrowser: launch chrome: %w", err)
		}
		controlURL = url
	}
	if controlURL == "" {
		return nil, errors.New("hostbrowser: no debugger_url or launch command provided")
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("hostbrowser: connect to chrome: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("hostbrowser: open page: %w", err)
	}
	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             cfg.GetViewportWidth(),
		Height:            cfg.GetViewportHeight(),
		DeviceScaleFactor: 1.0,
		Mobile:            false,
	}).Call(page); err != nil {
		return nil, fmt.Errorf("hostbrowser: set viewport: %w", err)
	}

	h := &Host{cfg: cfg, browser: browser, page: page, log: log}
	if cfg.StartURL != "" {
		if err := h.navigate(cfg.StartURL); err != nil {
			return nil, err
		}
	}
	log.Info("host connected", zap.String("control_url", controlURL), zap.String("start_url", cfg.StartURL))
	return h, nil
}

func (h *Host) navigate(url string) error {
	if err := h.page.Timeout(h.cfg.NavigationTimeout()).Navigate(url); err != nil {
		return fmt.Errorf("hostbrowser: navigate %s: %w", url, err)
	}
	return h.page.WaitLoad()
}

// Close shuts the page and underlying browser down.
func (h *Host) Close() error {
	_ = h.page.Close()
	err := h.browser.Close()
	if err != nil {
		h.log.Warn("browser close failed", zap.Error(err))
	}
	return err
}

// snapshotScript captures the fields extractor predicates typically read:
// the current URL/title, visible interactive elements, and storage.
const snapshotScript = `
() => {
	const interactive = Array.from(document.querySelectorAll('a,button,input,select,textarea,[role="button"]')).slice(0, 200);
	const elements = interactive.map((el) => {
		const rect = el.getBoundingClientRect();
		const style = window.getComputedStyle(el);
		return {
			tag: el.tagName.toLowerCase(),
			text: (el.innerText || el.value || '').slice(0, 128),
			name: el.getAttribute('data-testid') || el.getAttribute('aria-label') || el.id || '',
			visible: style.display !== 'none' && style.visibility !== 'hidden' && rect.width > 0 && rect.height > 0,
			x: rect.x + rect.width / 2,
			y: rect.y + rect.height / 2,
		};
	});
	return {
		url: location.href,
		title: document.title,
		elements,
	};
}
`

// Snapshot captures the current page state as JSON, for one extractor's
// current slot, and the wall-clock time the snapshot was taken.
func (h *Host) Snapshot(ctx context.Context) ([]byte, time.Time, error) {
	res, err := h.page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS:           snapshotScript,
		ByValue:      true,
		AwaitPromise: true,
	})
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("hostbrowser: snapshot: %w", err)
	}
	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("hostbrowser: marshal snapshot: %w", err)
	}
	return raw, time.Now(), nil
}

// Apply performs one action proposal against the live page. It validates
// nothing beyond what rod itself rejects — the core already validated
// structure before handing the action to the host.
func (h *Host) Apply(ctx context.Context, a actions.Action) error {
	page := h.page.Context(ctx)
	var err error
	switch act := a.(type) {
	case actions.Back:
		err = page.NavigateBack()
	case actions.Reload:
		if rErr := page.Reload(); rErr != nil {
			err = fmt.Errorf("hostbrowser: reload: %w", rErr)
		} else {
			err = page.WaitLoad()
		}
	case actions.Click:
		err = h.applyClick(page, act)
	case actions.TypeText:
		if act.DelayMS > 0 {
			time.Sleep(time.Duration(act.DelayMS) * time.Millisecond)
		}
		err = page.Keyboard.InsertText(act.Text)
	case actions.PressKey:
		err = page.Keyboard.Press(input.Key(act.Code))
	case actions.ScrollUp:
		err = h.applyScroll(page, act.Origin, -act.Distance)
	case actions.ScrollDown:
		err = h.applyScroll(page, act.Origin, act.Distance)
	default:
		return fmt.Errorf("hostbrowser: unknown action %T", a)
	}
	if err != nil {
		h.log.Warn("apply action failed", zap.String("action", fmt.Sprintf("%T", a)), zap.Error(err))
	}
	return err
}

func (h *Host) applyClick(page *rod.Page, act actions.Click) error {
	if act.Point.X != 0 || act.Point.Y != 0 {
		_, err := page.Evaluate(&rod.EvalOptions{
			JS: `(x, y) => { const el = document.elementFromPoint(x, y); if (el) el.click(); }`,
			JSArgs: []interface{}{act.Point.X, act.Point.Y},
		})
		return err
	}
	target := act.Name
	if target == "" {
		target = act.Content
	}
	_, err := page.Evaluate(&rod.EvalOptions{
		JS: `(name) => {
			const el = document.querySelector('[data-testid="' + name + '"]') ||
				document.querySelector('[aria-label="' + name + '"]') ||
				Array.from(document.querySelectorAll('a,button')).find((e) => (e.innerText || '').includes(name));
			if (el) el.click();
		}`,
		JSArgs: []interface{}{target},
	})
	return err
}

func (h *Host) applyScroll(page *rod.Page, origin string, dy float64) error {
	_, err := page.Evaluate(&rod.EvalOptions{
		JS: `(sel, dy) => {
			const target = sel ? document.querySelector(sel) : window;
			if (target) target.scrollBy(0, dy);
		}`,
		JSArgs: []interface{}{origin, dy},
	})
	return err
}
