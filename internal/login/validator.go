package login

import (
	"context"
	"log/slog"
)

// Validator probes whether a restored session is still authenticated.
// Validation is advisory: any probe error means "not valid" and the caller
// falls through to a fresh login. Reusing a session must never be allowed to
// fail the request.
type Validator struct {
	logger   *slog.Logger
	timeouts Timeouts
}

// NewValidator creates a session validator.
func NewValidator(logger *slog.Logger, timeouts Timeouts) *Validator {
	return &Validator{logger: logger, timeouts: timeouts}
}

// IsValid navigates to probeURL with the restored cookies already applied and
// checks for a logged-in indicator: the configured success selector, or the
// built-in default when none is set.
func (v *Validator) IsValid(ctx context.Context, page Page, probeURL string, sel SelectorConfig) bool {
	if err := page.Navigate(ctx, probeURL); err != nil {
		v.logger.Debug("session probe navigation failed", "url", probeURL, "error", err)
		return false
	}
	if err := page.WaitIdle(v.timeouts.Settle); err != nil {
		v.logger.Debug("session probe did not reach network idle", "url", probeURL)
	}

	indicator := sel.SuccessIndicator()
	has, err := page.Has(indicator)
	if err != nil {
		v.logger.Debug("session probe indicator check failed", "selector", indicator, "error", err)
		return false
	}

	v.logger.Debug("session probe finished", "url", probeURL, "valid", has)
	return has
}
