package login

import (
	"context"
	"errors"
	"testing"
)

func TestFillEntersCredentials(t *testing.T) {
	d := NewDriver(testLogger(), testTimeouts())
	page := newFakePage("about:blank")
	page.elements[DefaultUsernameSelector] = true
	page.elements[DefaultPasswordSelector] = true

	d.Fill(context.Background(), page, testLoginURL, Credentials{Username: "alice", Password: "s3cret"}, SelectorConfig{})

	if got := page.navigated; len(got) != 1 || got[0] != testLoginURL {
		t.Errorf("navigations = %v, want [%s]", got, testLoginURL)
	}
	if got := page.typed[DefaultUsernameSelector]; got != "alice" {
		t.Errorf("username entered = %q, want %q", got, "alice")
	}
	if got := page.typed[DefaultPasswordSelector]; got != "s3cret" {
		t.Errorf("password entered = %q, want %q", got, "s3cret")
	}
}

func TestFillUsesConfiguredSelectors(t *testing.T) {
	d := NewDriver(testLogger(), testTimeouts())
	page := newFakePage("about:blank")
	page.elements["#user"] = true
	page.elements["#pass"] = true

	sel := SelectorConfig{Username: "#user", Password: "#pass"}
	d.Fill(context.Background(), page, testLoginURL, Credentials{Username: "alice", Password: "s3cret"}, sel)

	if page.typed["#user"] != "alice" || page.typed["#pass"] != "s3cret" {
		t.Errorf("typed = %v, want credentials under configured selectors", page.typed)
	}
}

func TestFillSkipsMissingFields(t *testing.T) {
	d := NewDriver(testLogger(), testTimeouts())
	page := newFakePage("about:blank")
	// Password-only form: the username field is pre-filled server side.
	page.elements[DefaultPasswordSelector] = true

	d.Fill(context.Background(), page, testLoginURL, Credentials{Username: "alice", Password: "s3cret"}, SelectorConfig{})

	if _, ok := page.typed[DefaultUsernameSelector]; ok {
		t.Error("typed into an absent username field")
	}
	if page.typed[DefaultPasswordSelector] != "s3cret" {
		t.Error("password entry must proceed despite the missing username field")
	}
}

func TestFillProceedsOnNavigationError(t *testing.T) {
	d := NewDriver(testLogger(), testTimeouts())
	page := newFakePage("about:blank")
	page.navErr = errors.New("net::ERR_CONNECTION_REFUSED")

	// Must not panic; every step is best effort.
	d.Fill(context.Background(), page, testLoginURL, Credentials{Username: "alice", Password: "s3cret"}, SelectorConfig{})
}

func TestFillDismissesConsentOverlay(t *testing.T) {
	d := NewDriver(testLogger(), testTimeouts())
	page := newFakePage("about:blank")
	page.elements[`button#onetrust-accept-btn-handler`] = true
	page.elements[DefaultUsernameSelector] = true
	page.elements[DefaultPasswordSelector] = true

	d.Fill(context.Background(), page, testLoginURL, Credentials{Username: "alice", Password: "s3cret"}, SelectorConfig{})

	if page.clickedCount() != 1 || page.clicked[0] != `button#onetrust-accept-btn-handler` {
		t.Errorf("clicked = %v, want the consent control", page.clicked)
	}
}

func TestSubmitClicksControl(t *testing.T) {
	d := NewDriver(testLogger(), testTimeouts())
	page := newFakePage(testLoginURL)

	d.Submit(page, SelectorConfig{Submit: "#go"})

	if page.clickedCount() != 1 || page.clicked[0] != "#go" {
		t.Errorf("clicked = %v, want [#go]", page.clicked)
	}
}
