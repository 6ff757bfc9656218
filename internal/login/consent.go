package login

import "log/slog"

// Consent banner accept buttons from common consent management platforms.
// A banner overlaying the form can swallow clicks meant for the credential
// fields, so the driver tries to clear these before locating fields.
var overlaySelectors = []string{
	// OneTrust
	`button#onetrust-accept-btn-handler`,
	`button[id*="onetrust-accept"]`,

	// Cookiebot
	`button#CybotCookiebotDialogBodyLevelButtonLevelOptinAllowAll`,
	`button#CybotCookiebotDialogBodyButtonAccept`,

	// Quantcast/TCF
	`button.qc-cmp2-summary-buttons button[mode="primary"]`,

	// TrustArc
	`#truste-consent-button`,

	// Didomi
	`button#didomi-notice-agree-button`,

	// Generic patterns
	`button[data-testid="accept-cookies"]`,
	`button[aria-label*="Accept"]`,
	`button.cookie-accept`,
	`button.accept-cookies`,
	`button#accept-cookies`,
	`div[class*="consent"] button[class*="accept"]`,
}

// dismissOverlays clicks the first matching consent control found on the
// page. Best effort: failures are logged at debug and never block the flow.
func dismissOverlays(page Page, logger *slog.Logger) bool {
	for _, sel := range overlaySelectors {
		has, err := page.Has(sel)
		if err != nil || !has {
			continue
		}
		if err := page.Click(sel); err != nil {
			logger.Debug("failed to click consent control", "selector", sel, "error", err)
			continue
		}
		logger.Debug("dismissed consent overlay", "selector", sel)
		return true
	}
	return false
}
