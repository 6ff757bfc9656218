package models

// Selectors carries the optional CSS selectors used to drive an unknown login
// form. Unset fields fall back to the documented defaults in internal/login.
type Selectors struct {
	Username string `json:"username,omitempty"` // Username/email input field
	Password string `json:"password,omitempty"` // Password input field
	Submit   string `json:"submit,omitempty"`   // Submit button/control
	Success  string `json:"success,omitempty"`  // Indicator that an authenticated page rendered
}

// WaitCondition specifies what to wait for before capturing.
type WaitCondition struct {
	Selector    string `json:"selector,omitempty"`    // CSS selector to wait for
	Delay       int    `json:"delay,omitempty"`       // Delay in ms before capturing
	NetworkIdle bool   `json:"networkIdle,omitempty"` // Wait for network idle
}

// CaptureRequest asks the service to render a page, acquiring an
// authenticated session first when LoginURL is set.
type CaptureRequest struct {
	URL         string         `json:"url"`                   // Target page to capture
	LoginURL    string         `json:"loginUrl,omitempty"`    // Login form URL; enables session acquisition
	ExpectedURL string         `json:"expectedUrl,omitempty"` // Expected post-login destination prefix
	Selectors   *Selectors     `json:"selectors,omitempty"`   // Login form selectors
	FullPage    bool           `json:"fullPage,omitempty"`    // Capture the full scroll height
	WaitFor     *WaitCondition `json:"waitFor,omitempty"`     // Pre-capture wait condition
	MaxTimeout  int            `json:"maxTimeout,omitempty"`  // Max request timeout in ms
}

// SessionClearRequest removes the persisted cookie set for a login URL.
type SessionClearRequest struct {
	LoginURL string `json:"loginUrl"`
}
