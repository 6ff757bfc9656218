package login

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// Outcome is the result of one completion detection run. An empty FinalURL
// means the destination could not be confirmed; callers fall back to their
// own default target and treat the result as degraded, not failed.
type Outcome struct {
	FinalURL       string
	RelaySubmitted bool
	Signal         string // "navigation", "selector" or "none"
}

// Determined reports whether the detector confirmed the post-login
// destination.
func (o Outcome) Determined() bool {
	return o.FinalURL != ""
}

// Detector decides when a login has concluded and where the browser ended
// up. Login forms signal completion in heterogeneous ways - a traditional
// navigation, a client-side redirect observable only as a DOM mutation, or an
// intermediate auto-submitting POST form relaying an authorization result -
// so the detector races independent bounded watchers and takes the first
// signal that settles.
type Detector struct {
	logger       *slog.Logger
	timeouts     Timeouts
	pollInterval time.Duration
}

// NewDetector creates a completion detector.
func NewDetector(logger *slog.Logger, timeouts Timeouts) *Detector {
	return &Detector{
		logger:       logger,
		timeouts:     timeouts,
		pollInterval: 500 * time.Millisecond,
	}
}

// Complete drives the page from submit activation through destination
// confirmation. The navigation and selector watchers are armed before submit
// runs, so a page that transitions faster than a watcher could be installed
// afterwards is still observed.
func (det *Detector) Complete(ctx context.Context, page Page, loginURL, expectedURL string, sel SelectorConfig, submit func()) Outcome {
	// Arm both watchers before the submit control is activated.
	navWait := page.WaitNavigation(det.timeouts.Navigation)
	navCh := make(chan struct{}, 1)
	go func() {
		_ = navWait() // errors are swallowed; the race only cares about settlement
		navCh <- struct{}{}
	}()

	selCh := make(chan struct{}, 1)
	selectorConfigured := sel.Success != ""
	if selectorConfigured {
		go func() {
			_ = page.WaitElement(sel.Success, det.timeouts.Navigation)
			selCh <- struct{}{}
		}()
	} else {
		// No selector configured: this watcher resolves immediately to
		// "no signal".
		selCh <- struct{}{}
	}

	submit()

	relaySubmitted := det.submitRelayForm(page, expectedURL)

	signal := "none"
	select {
	case <-navCh:
		signal = "navigation"
	case <-selCh:
		if selectorConfigured {
			signal = "selector"
		}
	case <-ctx.Done():
	}
	det.logger.Debug("completion signal settled", "signal", signal, "relay_submitted", relaySubmitted)

	outcome := det.awaitDestination(ctx, page, loginURL, expectedURL)
	outcome.RelaySubmitted = relaySubmitted
	outcome.Signal = signal
	return outcome
}

// submitRelayForm scans every frame of the page in enumeration order for POST
// forms and submits the first one whose action matches the relay heuristic.
// At most one form is submitted; semantically only one relay form should
// exist.
func (det *Detector) submitRelayForm(page Page, expectedURL string) bool {
	frames, err := page.Frames()
	if err != nil {
		det.logger.Debug("frame enumeration failed", "error", err)
		return false
	}

	for _, frame := range frames {
		forms, err := frame.PostForms()
		if err != nil {
			det.logger.Debug("form scan failed in frame", "error", err)
			continue
		}
		for _, form := range forms {
			if !relayActionMatches(form.Action, expectedURL) {
				continue
			}
			det.logger.Info("submitting relay form", "action", form.Action)
			if err := frame.SubmitForm(form.Index, det.timeouts.Relay); err != nil {
				det.logger.Warn("relay form submission failed", "action", form.Action, "error", err)
			}
			return true
		}
	}
	return false
}

// relayActionMatches applies the relay heuristic to a form action: an
// identity-provider callback, the caller's expected destination, or any POST
// form when no destination was supplied.
func relayActionMatches(action, expectedURL string) bool {
	if strings.Contains(action, "callback") {
		return true
	}
	if expectedURL == "" {
		return true
	}
	return strings.Contains(action, expectedURL)
}

// awaitDestination polls the page URL until it confirms arrival. With an
// expected destination the detector resolves only on a prefix match; without
// one, any move away from the login URL counts, but no explicit final URL is
// reported. Poll timeout is not a failure: the attempt completed, the
// destination stayed unknown.
func (det *Detector) awaitDestination(ctx context.Context, page Page, loginURL, expectedURL string) Outcome {
	deadline := time.Now().Add(det.timeouts.Destination)

	for {
		current, err := page.URL()
		if err == nil {
			if expectedURL != "" {
				if strings.HasPrefix(current, expectedURL) {
					det.settle(page)
					det.logger.Info("login destination confirmed", "url", current)
					return Outcome{FinalURL: current}
				}
			} else if current != loginURL {
				det.settle(page)
				det.logger.Info("page left the login URL", "url", current)
				return Outcome{}
			}
		}

		if !time.Now().Before(deadline) {
			break
		}
		select {
		case <-ctx.Done():
			det.logger.Debug("destination wait cancelled", "error", ctx.Err())
			return Outcome{}
		case <-time.After(det.pollInterval):
		}
	}

	det.logger.Warn("login attempt completed, destination unknown",
		"login_url", loginURL,
		"expected_url", expectedURL,
	)
	return Outcome{}
}

// settle gives the destination page a bounded chance to finish loading.
func (det *Detector) settle(page Page) {
	if err := page.WaitIdle(det.timeouts.Settle); err != nil {
		det.logger.Debug("destination did not reach network idle", "error", err)
	}
}
