package browser

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/pagesnap/pagesnap/internal/login"
	"github.com/pagesnap/pagesnap/internal/models"
)

// elementTimeout bounds element lookups performed inside single-shot
// operations like Type and Click. Longer waits belong to the caller via
// WaitElement.
const elementTimeout = 10 * time.Second

// PageAdapter exposes a rod.Page through the capability surface the login
// engine drives.
type PageAdapter struct {
	page   *rod.Page
	logger *slog.Logger
}

// NewPage wraps a rod page for the login engine.
func NewPage(page *rod.Page, logger *slog.Logger) *PageAdapter {
	return &PageAdapter{page: page, logger: logger}
}

// Navigate loads the given URL.
func (p *PageAdapter) Navigate(ctx context.Context, url string) error {
	return p.page.Context(ctx).Navigate(url)
}

// WaitIdle blocks until the page is idle, bounded by timeout.
func (p *PageAdapter) WaitIdle(timeout time.Duration) error {
	return p.page.WaitIdle(timeout)
}

// URL returns the page's current URL.
func (p *PageAdapter) URL() (string, error) {
	info, err := p.page.Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

// Has reports whether an element matching selector currently exists.
func (p *PageAdapter) Has(selector string) (bool, error) {
	has, _, err := p.page.Has(selector)
	return has, err
}

// WaitElement blocks until an element matching selector exists.
func (p *PageAdapter) WaitElement(selector string, timeout time.Duration) error {
	pg := p.page.Timeout(timeout)
	defer pg.CancelTimeout()
	_, err := pg.Element(selector)
	return err
}

// Type focuses the element matching selector and replaces its text.
func (p *PageAdapter) Type(selector, text string) error {
	pg := p.page.Timeout(elementTimeout)
	defer pg.CancelTimeout()
	el, err := pg.Element(selector)
	if err != nil {
		return err
	}
	if err := el.SelectAllText(); err != nil {
		p.logger.Debug("could not select existing text", "selector", selector, "error", err)
	}
	return el.Input(text)
}

// Click activates the element matching selector.
func (p *PageAdapter) Click(selector string) error {
	pg := p.page.Timeout(elementTimeout)
	defer pg.CancelTimeout()
	el, err := pg.Element(selector)
	if err != nil {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

// WaitNavigation subscribes to the page's lifecycle events immediately and
// returns a function that blocks until a navigation settles or the timeout
// elapses.
func (p *PageAdapter) WaitNavigation(timeout time.Duration) func() error {
	pg := p.page.Timeout(timeout)
	wait := pg.WaitNavigation(proto.PageLifecycleEventNameNetworkAlmostIdle)
	return func() error {
		defer pg.CancelTimeout()
		wait()
		return nil
	}
}

// Frames returns the page's frames, top frame first. An iframe whose content
// document cannot be attached is skipped.
func (p *PageAdapter) Frames() ([]login.Frame, error) {
	frames := []login.Frame{&FrameAdapter{page: p.page, logger: p.logger}}

	els, err := p.page.Elements("iframe")
	if err != nil {
		return frames, nil
	}
	for _, el := range els {
		fp, err := el.Frame()
		if err != nil {
			p.logger.Debug("could not attach iframe", "error", err)
			continue
		}
		frames = append(frames, &FrameAdapter{page: fp, logger: p.logger})
	}
	return frames, nil
}

// Cookies captures the cookie set of the browser context.
func (p *PageAdapter) Cookies() (models.CookieSet, error) {
	cookies, err := p.page.Cookies(nil)
	if err != nil {
		return nil, err
	}
	set := make(models.CookieSet, 0, len(cookies))
	for _, c := range cookies {
		set = append(set, models.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  float64(c.Expires),
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: string(c.SameSite),
		})
	}
	return set, nil
}

// SetCookies applies a cookie set to the browser context.
func (p *PageAdapter) SetCookies(cookies models.CookieSet) error {
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		param := &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
		}
		if c.Expires > 0 {
			param.Expires = proto.TimeSinceEpoch(c.Expires)
		}
		switch proto.NetworkCookieSameSite(c.SameSite) {
		case proto.NetworkCookieSameSiteStrict:
			param.SameSite = proto.NetworkCookieSameSiteStrict
		case proto.NetworkCookieSameSiteLax:
			param.SameSite = proto.NetworkCookieSameSiteLax
		case proto.NetworkCookieSameSiteNone:
			param.SameSite = proto.NetworkCookieSameSiteNone
		}
		params = append(params, param)
	}
	return proto.NetworkSetCookies{Cookies: params}.Call(p.page)
}

// FrameAdapter exposes one frame for the relay-form scan. The top frame is a
// FrameAdapter over the page itself.
type FrameAdapter struct {
	page   *rod.Page
	logger *slog.Logger
}

// PostForms returns the frame's POST forms in document order.
func (f *FrameAdapter) PostForms() ([]login.PostForm, error) {
	result, err := f.page.Eval(`() =>
		Array.from(document.forms)
			.map((form, i) => ({
				index: i,
				method: (form.method || '').toLowerCase(),
				action: form.action || ''
			}))
			.filter(form => form.method === 'post')
	`)
	if err != nil {
		return nil, err
	}

	var forms []login.PostForm
	for _, item := range result.Value.Arr() {
		forms = append(forms, login.PostForm{
			Index:  item.Get("index").Int(),
			Action: item.Get("action").Str(),
		})
	}
	return forms, nil
}

// SubmitForm programmatically submits the form at the given document index
// and waits for the resulting navigation, bounded by timeout.
func (f *FrameAdapter) SubmitForm(index int, timeout time.Duration) error {
	pg := f.page.Timeout(timeout)
	defer pg.CancelTimeout()
	wait := pg.WaitNavigation(proto.PageLifecycleEventNameNetworkAlmostIdle)

	if _, err := f.page.Eval(`(i) => { document.forms[i].submit(); }`, index); err != nil {
		return err
	}
	wait()
	return nil
}
