// Package login implements the session-acquisition engine: restoring a cached
// session, validating it, driving a credential login against an unknown form,
// detecting completion, and persisting the resulting cookies.
package login

import (
	"context"
	"time"

	"github.com/pagesnap/pagesnap/internal/models"
)

// Credentials is the opaque secret pair used for a fresh login. The values
// must never be emitted in diagnostic output.
type Credentials struct {
	Username string
	Password string
}

// Page is the browser-page capability surface the engine drives. The go-rod
// implementation lives in internal/browser; tests use fakes.
type Page interface {
	// Navigate loads the given URL in the page.
	Navigate(ctx context.Context, url string) error

	// WaitIdle blocks until the network is idle, bounded by timeout.
	WaitIdle(timeout time.Duration) error

	// URL returns the page's current URL.
	URL() (string, error)

	// Has reports whether an element matching selector currently exists.
	Has(selector string) (bool, error)

	// WaitElement blocks until an element matching selector exists, bounded
	// by timeout.
	WaitElement(selector string, timeout time.Duration) error

	// Type enters text into the element matching selector.
	Type(selector, text string) error

	// Click activates the element matching selector.
	Click(selector string) error

	// WaitNavigation arms a navigation watcher and returns a function that
	// blocks until a navigation settles or the timeout elapses. The watcher
	// is armed at call time, not when the returned function runs.
	WaitNavigation(timeout time.Duration) func() error

	// Frames returns all frames of the page in enumeration order, top frame
	// first.
	Frames() ([]Frame, error)

	// Cookies captures the cookie set of the page's browser context.
	Cookies() (models.CookieSet, error)

	// SetCookies applies a cookie set to the page's browser context.
	SetCookies(models.CookieSet) error
}

// Frame is one frame of a page, used for the POST relay-form scan.
type Frame interface {
	// PostForms returns the frame's POST forms in document order.
	PostForms() ([]PostForm, error)

	// SubmitForm programmatically submits the form at the given document
	// index inside the frame and waits for the resulting navigation, bounded
	// by timeout.
	SubmitForm(index int, timeout time.Duration) error
}

// PostForm describes one POST form found during the relay scan.
type PostForm struct {
	Index  int    // Index into the frame's document.forms
	Action string // Resolved form action URL
}
