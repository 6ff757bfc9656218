package login

import (
	"context"
	"log/slog"
)

// Driver steps a page through the credential-entry phase of an unknown login
// form. Every step is individually fault-tolerant: a failed step is logged
// and the flow proceeds, because a later phase (relay form, navigation) may
// still complete the login. Credential values are never logged.
type Driver struct {
	logger   *slog.Logger
	timeouts Timeouts
}

// NewDriver creates a login driver.
func NewDriver(logger *slog.Logger, timeouts Timeouts) *Driver {
	return &Driver{logger: logger, timeouts: timeouts}
}

// Fill navigates to the login URL and enters the credentials. Submit
// activation is deliberately separate (see Submit) so the completion detector
// can arm its watchers first.
func (d *Driver) Fill(ctx context.Context, page Page, loginURL string, creds Credentials, sel SelectorConfig) {
	if err := page.Navigate(ctx, loginURL); err != nil {
		d.logger.Warn("failed to navigate to login page", "url", loginURL, "error", err)
	}
	if err := page.WaitIdle(d.timeouts.Settle); err != nil {
		d.logger.Debug("login page did not reach network idle", "url", loginURL, "error", err)
	}

	dismissOverlays(page, d.logger)

	// Rich login widgets render the form late; plain pages don't have one.
	if err := page.WaitElement(WidgetSelector, d.timeouts.Widget); err != nil {
		d.logger.Debug("no login widget rendered", "url", loginURL)
	}

	userSel := sel.UsernameField()
	if err := page.WaitElement(userSel, d.timeouts.Field); err != nil {
		d.logger.Warn("username field did not appear within bound", "selector", userSel)
	}

	if has, _ := page.Has(userSel); has {
		if err := page.Type(userSel, creds.Username); err != nil {
			d.logger.Warn("failed to enter username", "selector", userSel, "error", err)
		}
	} else {
		// Some pages pre-fill or defer this field.
		d.logger.Warn("username field not found, skipping", "selector", userSel)
	}

	passSel := sel.PasswordField()
	if has, _ := page.Has(passSel); has {
		if err := page.Type(passSel, creds.Password); err != nil {
			d.logger.Warn("failed to enter password", "selector", passSel, "error", err)
		}
	} else {
		d.logger.Warn("password field not found, skipping", "selector", passSel)
	}
}

// Submit attempts to activate the submit control. Failure is non-fatal: an
// auto-submitting relay form may still complete the login.
func (d *Driver) Submit(page Page, sel SelectorConfig) {
	submitSel := sel.SubmitControl()
	if err := page.Click(submitSel); err != nil {
		d.logger.Warn("failed to activate submit control", "selector", submitSel, "error", err)
	}
}
