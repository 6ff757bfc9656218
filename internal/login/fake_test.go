package login

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/pagesnap/pagesnap/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testTimeouts keeps every bounded wait short enough for unit tests.
func testTimeouts() Timeouts {
	return Timeouts{
		Widget:      20 * time.Millisecond,
		Field:       20 * time.Millisecond,
		Navigation:  50 * time.Millisecond,
		Relay:       50 * time.Millisecond,
		Destination: 200 * time.Millisecond,
		Settle:      20 * time.Millisecond,
	}
}

// fakePage is an in-memory Page implementation. Element presence is driven by
// the elements map keyed on the exact selector string the code under test
// passes in.
type fakePage struct {
	mu sync.Mutex

	url       string
	urlErr    error
	elements  map[string]bool
	typed     map[string]string
	clicked   []string
	navigated []string
	navErr    error

	cookies       models.CookieSet
	cookiesErr    error
	appliedSets   []models.CookieSet
	setCookiesErr error

	frames    []Frame
	framesErr error

	navReady chan struct{}
	navOnce  sync.Once

	onClick func(p *fakePage, selector string)
}

func newFakePage(url string) *fakePage {
	return &fakePage{
		url:      url,
		elements: make(map[string]bool),
		typed:    make(map[string]string),
		navReady: make(chan struct{}),
	}
}

// signalNavigation makes every armed navigation watcher settle.
func (p *fakePage) signalNavigation() {
	p.navOnce.Do(func() { close(p.navReady) })
}

func (p *fakePage) setURL(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.url = url
}

func (p *fakePage) Navigate(_ context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navigated = append(p.navigated, url)
	if p.navErr != nil {
		return p.navErr
	}
	p.url = url
	return nil
}

func (p *fakePage) WaitIdle(time.Duration) error { return nil }

func (p *fakePage) URL() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url, p.urlErr
}

func (p *fakePage) Has(selector string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.elements[selector], nil
}

func (p *fakePage) WaitElement(selector string, timeout time.Duration) error {
	deadline := time.After(timeout)
	for {
		p.mu.Lock()
		has := p.elements[selector]
		p.mu.Unlock()
		if has {
			return nil
		}
		select {
		case <-deadline:
			return fmt.Errorf("no element matching %q", selector)
		case <-time.After(time.Millisecond):
		}
	}
}

func (p *fakePage) Type(selector, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.typed[selector] = text
	return nil
}

func (p *fakePage) Click(selector string) error {
	p.mu.Lock()
	p.clicked = append(p.clicked, selector)
	hook := p.onClick
	p.mu.Unlock()
	if hook != nil {
		hook(p, selector)
	}
	return nil
}

func (p *fakePage) WaitNavigation(timeout time.Duration) func() error {
	ready := p.navReady
	return func() error {
		select {
		case <-ready:
			return nil
		case <-time.After(timeout):
			return errors.New("navigation timeout")
		}
	}
}

func (p *fakePage) Frames() ([]Frame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.framesErr != nil {
		return nil, p.framesErr
	}
	return p.frames, nil
}

func (p *fakePage) Cookies() (models.CookieSet, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cookies, p.cookiesErr
}

func (p *fakePage) SetCookies(cookies models.CookieSet) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.setCookiesErr != nil {
		return p.setCookiesErr
	}
	p.appliedSets = append(p.appliedSets, cookies)
	return nil
}

// typedCount returns how many fields have had text entered.
func (p *fakePage) typedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.typed)
}

func (p *fakePage) clickedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.clicked)
}

// fakeFrame records form submissions for the relay scan.
type fakeFrame struct {
	mu        sync.Mutex
	forms     []PostForm
	formsErr  error
	submitted []int
	submitErr error

	onSubmit func(index int)
}

func (f *fakeFrame) PostForms() ([]PostForm, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.formsErr != nil {
		return nil, f.formsErr
	}
	return f.forms, nil
}

func (f *fakeFrame) SubmitForm(index int, _ time.Duration) error {
	f.mu.Lock()
	f.submitted = append(f.submitted, index)
	hook := f.onSubmit
	err := f.submitErr
	f.mu.Unlock()
	if hook != nil {
		hook(index)
	}
	return err
}

func (f *fakeFrame) submitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.submitted)
}

// fakeStore is an in-memory Store that records every mutation.
type fakeStore struct {
	mu      sync.Mutex
	data    map[string]models.CookieSet
	loadErr error
	saveErr error

	savedKeys []string
	savedTTLs []time.Duration
	deleted   []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]models.CookieSet)}
}

func (s *fakeStore) Load(_ context.Context, key string) (models.CookieSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.data[key], nil
}

func (s *fakeStore) Save(_ context.Context, key string, cookies models.CookieSet, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.data[key] = cookies
	s.savedKeys = append(s.savedKeys, key)
	s.savedTTLs = append(s.savedTTLs, ttl)
	return nil
}

func (s *fakeStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	s.deleted = append(s.deleted, key)
	return nil
}

func (s *fakeStore) Close() error { return nil }

func (s *fakeStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.savedKeys)
}
