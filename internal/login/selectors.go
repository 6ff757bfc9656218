package login

import "time"

// Default selectors cover common field-naming conventions. A caller-supplied
// selector always wins; defaults apply per field when unset.
const (
	// DefaultUsernameSelector matches the usual username/email field names.
	DefaultUsernameSelector = `input[name="username"], input[name="email"], input[name="login"], input[type="email"], #username, #email`

	// DefaultPasswordSelector matches the usual password field names.
	DefaultPasswordSelector = `input[type="password"], input[name="password"], #password`

	// DefaultSubmitSelector matches the usual submit controls.
	DefaultSubmitSelector = `button[type="submit"], input[type="submit"], button[name="login"], #login-button`

	// DefaultSuccessSelector is the built-in logged-in indicator used by the
	// validator when no success selector is configured.
	DefaultSuccessSelector = `a[href*="logout"], a[href*="signout"], [data-logged-in], .user-menu, #logout`

	// WidgetSelector matches rich login widget containers. Absence is not an
	// error; plain login pages are equally valid.
	WidgetSelector = `.login-widget, #login-widget, [data-login-widget], .auth-form, #auth-form`
)

// SelectorConfig bundles the optional CSS selectors for one login attempt.
// Immutable for the duration of the attempt.
type SelectorConfig struct {
	Username string // Username/email field
	Password string // Password field
	Submit   string // Submit control
	Success  string // Logged-in indicator; empty means not configured
}

// UsernameField returns the configured username selector or its default.
func (s SelectorConfig) UsernameField() string {
	if s.Username != "" {
		return s.Username
	}
	return DefaultUsernameSelector
}

// PasswordField returns the configured password selector or its default.
func (s SelectorConfig) PasswordField() string {
	if s.Password != "" {
		return s.Password
	}
	return DefaultPasswordSelector
}

// SubmitControl returns the configured submit selector or its default.
func (s SelectorConfig) SubmitControl() string {
	if s.Submit != "" {
		return s.Submit
	}
	return DefaultSubmitSelector
}

// SuccessIndicator returns the configured success selector or the built-in
// default indicator. The completion detector uses the raw Success field
// instead: its selector watcher is armed only when one is configured.
func (s SelectorConfig) SuccessIndicator() string {
	if s.Success != "" {
		return s.Success
	}
	return DefaultSuccessSelector
}

// Timeouts bounds every wait in the engine. A timeout is never a hard
// failure, only a fallback to the next phase.
type Timeouts struct {
	Widget      time.Duration // Rich login widget render wait
	Field       time.Duration // Username/password field wait
	Navigation  time.Duration // Navigation and selector watchers
	Relay       time.Duration // Relay form navigation wait
	Destination time.Duration // Destination URL poll
	Settle      time.Duration // Network idle wait
}

// DefaultTimeouts returns the documented default bounds.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Widget:      5 * time.Second,
		Field:       15 * time.Second,
		Navigation:  15 * time.Second,
		Relay:       30 * time.Second,
		Destination: 30 * time.Second,
		Settle:      15 * time.Second,
	}
}
