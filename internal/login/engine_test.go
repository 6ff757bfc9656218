package login

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pagesnap/pagesnap/internal/models"
)

const (
	testLoginURL    = "https://ex.com/login"
	testExpectedURL = "https://ex.com/app"
	testSessionKey  = "cookies:https://ex.com/login"
)

func newTestEngine(st *fakeStore) *Engine {
	e := NewEngine(st, testLogger(), testTimeouts(), 7*24*time.Hour)
	e.detector.pollInterval = 5 * time.Millisecond
	return e
}

func testParams() Params {
	return Params{
		LoginURL:    testLoginURL,
		ExpectedURL: testExpectedURL,
		Credentials: Credentials{Username: "alice", Password: "s3cret"},
	}
}

// loginPage returns a fake page wired up so a standard credential login
// succeeds: fields present, submit triggers a navigation to the destination.
func loginPage() *fakePage {
	page := newFakePage(testLoginURL)
	page.elements[DefaultUsernameSelector] = true
	page.elements[DefaultPasswordSelector] = true
	page.cookies = models.CookieSet{
		{Name: "sid", Value: "abc123", Domain: "ex.com", Path: "/"},
	}
	page.onClick = func(p *fakePage, selector string) {
		if selector == DefaultSubmitSelector {
			p.setURL(testExpectedURL + "/home")
			p.signalNavigation()
		}
	}
	return page
}

func TestEnsureSessionReusesValidSession(t *testing.T) {
	st := newFakeStore()
	st.data[testSessionKey] = models.CookieSet{
		{Name: "sid", Value: "cached", Domain: "ex.com", Path: "/"},
	}
	page := newFakePage(testLoginURL)
	page.elements[DefaultSuccessSelector] = true

	res := newTestEngine(st).EnsureSession(context.Background(), page, testParams())

	if !res.Reused {
		t.Fatal("expected the cached session to be reused")
	}
	if len(page.appliedSets) != 1 {
		t.Errorf("applied cookie sets = %d, want 1", len(page.appliedSets))
	}
	if page.typedCount() != 0 {
		t.Errorf("fields typed into = %d, want 0 on reuse", page.typedCount())
	}
	if page.clickedCount() != 0 {
		t.Errorf("clicks = %d, want 0 on reuse", page.clickedCount())
	}
	if st.saveCount() != 0 {
		t.Errorf("store saves = %d, want 0 on reuse", st.saveCount())
	}
}

func TestEnsureSessionReuseIsIdempotent(t *testing.T) {
	st := newFakeStore()
	cached := models.CookieSet{
		{Name: "sid", Value: "cached", Domain: "ex.com", Path: "/"},
	}
	st.data[testSessionKey] = cached
	e := newTestEngine(st)

	for i := 0; i < 3; i++ {
		page := newFakePage(testLoginURL)
		page.elements[DefaultSuccessSelector] = true
		res := e.EnsureSession(context.Background(), page, testParams())
		if !res.Reused {
			t.Fatalf("run %d: expected reuse", i)
		}
	}

	if st.saveCount() != 0 {
		t.Errorf("store saves = %d, want 0 across repeated reuses", st.saveCount())
	}
	if got := st.data[testSessionKey]; len(got) != 1 || got[0].Value != "cached" {
		t.Error("stored cookie set mutated by reuse")
	}
}

func TestEnsureSessionFreshLoginWhenAbsent(t *testing.T) {
	st := newFakeStore()
	page := loginPage()

	res := newTestEngine(st).EnsureSession(context.Background(), page, testParams())

	if res.Reused {
		t.Fatal("nothing cached, reuse must not be reported")
	}
	if res.FinalURL != testExpectedURL+"/home" {
		t.Errorf("FinalURL = %q, want %q", res.FinalURL, testExpectedURL+"/home")
	}
	if got := page.typed[DefaultUsernameSelector]; got != "alice" {
		t.Errorf("username entered = %q, want %q", got, "alice")
	}
	if got := page.typed[DefaultPasswordSelector]; got != "s3cret" {
		t.Errorf("password entered = %q, want %q", got, "s3cret")
	}
	if st.saveCount() != 1 {
		t.Fatalf("store saves = %d, want 1", st.saveCount())
	}
	if st.savedKeys[0] != testSessionKey {
		t.Errorf("saved key = %q, want %q", st.savedKeys[0], testSessionKey)
	}
	if st.savedTTLs[0] != 7*24*time.Hour {
		t.Errorf("saved TTL = %v, want %v", st.savedTTLs[0], 7*24*time.Hour)
	}
	if got := st.data[testSessionKey]; len(got) != 1 || got[0].Name != "sid" {
		t.Error("persisted cookie set does not match the page's cookies")
	}
}

func TestEnsureSessionFreshLoginWhenCachedSessionInvalid(t *testing.T) {
	st := newFakeStore()
	st.data[testSessionKey] = models.CookieSet{
		{Name: "sid", Value: "stale", Domain: "ex.com", Path: "/"},
	}
	page := loginPage() // no success indicator, validation fails

	res := newTestEngine(st).EnsureSession(context.Background(), page, testParams())

	if res.Reused {
		t.Fatal("a stale session must not be reported as reused")
	}
	if st.saveCount() != 1 {
		t.Errorf("store saves = %d, want 1 after a fresh login", st.saveCount())
	}
	if got := st.data[testSessionKey]; len(got) != 1 || got[0].Value != "abc123" {
		t.Error("fresh cookies did not replace the stale set")
	}
}

func TestEnsureSessionLoadErrorFallsThrough(t *testing.T) {
	st := newFakeStore()
	st.loadErr = errors.New("backend unavailable")
	page := loginPage()

	res := newTestEngine(st).EnsureSession(context.Background(), page, testParams())

	if res.Reused {
		t.Fatal("a load error must fall through to a fresh login")
	}
	if res.FinalURL != testExpectedURL+"/home" {
		t.Errorf("FinalURL = %q, want the fresh-login destination", res.FinalURL)
	}
}

func TestEnsureSessionCookieApplyErrorFallsThrough(t *testing.T) {
	st := newFakeStore()
	st.data[testSessionKey] = models.CookieSet{
		{Name: "sid", Value: "cached", Domain: "ex.com", Path: "/"},
	}
	page := loginPage()
	page.setCookiesErr = errors.New("browser context gone")

	res := newTestEngine(st).EnsureSession(context.Background(), page, testParams())
	if res.Reused {
		t.Fatal("expected fallthrough to a fresh login")
	}
	if st.saveCount() != 1 {
		t.Errorf("store saves = %d, want 1", st.saveCount())
	}
}

func TestEnsureSessionPersistFailureIsSwallowed(t *testing.T) {
	st := newFakeStore()
	st.saveErr = errors.New("disk full")
	page := loginPage()

	res := newTestEngine(st).EnsureSession(context.Background(), page, testParams())
	if res.FinalURL != testExpectedURL+"/home" {
		t.Errorf("FinalURL = %q; a persistence failure must not fail the login", res.FinalURL)
	}
}

func TestEnsureSessionCookieCaptureFailureSkipsPersist(t *testing.T) {
	st := newFakeStore()
	page := loginPage()
	page.cookiesErr = errors.New("page closed")

	newTestEngine(st).EnsureSession(context.Background(), page, testParams())
	if st.saveCount() != 0 {
		t.Errorf("store saves = %d, want 0 when cookie capture fails", st.saveCount())
	}
}

func TestEnsureSessionRelayFlow(t *testing.T) {
	st := newFakeStore()
	page := loginPage()
	page.onClick = nil // the submit click does not navigate in a relay flow
	frame := &fakeFrame{forms: []PostForm{
		{Index: 0, Action: "https://idp.example.com/oauth/callback"},
	}}
	frame.onSubmit = func(int) {
		page.setURL(testExpectedURL + "/home")
		page.signalNavigation()
	}
	page.frames = []Frame{frame}

	res := newTestEngine(st).EnsureSession(context.Background(), page, testParams())

	if !res.RelaySubmitted {
		t.Fatal("expected the relay form to be submitted")
	}
	if frame.submitCount() != 1 {
		t.Errorf("relay submissions = %d, want exactly 1", frame.submitCount())
	}
	if res.FinalURL != testExpectedURL+"/home" {
		t.Errorf("FinalURL = %q, want %q", res.FinalURL, testExpectedURL+"/home")
	}
	if st.saveCount() != 1 {
		t.Errorf("store saves = %d, want 1", st.saveCount())
	}
}
