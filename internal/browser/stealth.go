package browser

import (
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// hardeningScript covers a few evasions go-rod/stealth does not: headless
// hardware fingerprints and the permissions query for notifications. Login
// pages behind bot protection refuse to render the form otherwise.
const hardeningScript = `
(function() {
    'use strict';

    Object.defineProperty(navigator, 'webdriver', {
        get: () => undefined,
        configurable: true
    });
    try {
        delete Object.getPrototypeOf(navigator).webdriver;
    } catch (e) {}

    Object.defineProperty(navigator, 'languages', {
        get: () => Object.freeze(['en-US', 'en']),
        configurable: true
    });

    if (navigator.hardwareConcurrency === 0 || navigator.hardwareConcurrency === undefined) {
        Object.defineProperty(navigator, 'hardwareConcurrency', {
            get: () => 4,
            configurable: true
        });
    }

    if (navigator.deviceMemory === undefined || navigator.deviceMemory === 0) {
        Object.defineProperty(navigator, 'deviceMemory', {
            get: () => 8,
            configurable: true
        });
    }

    try {
        const originalQuery = Permissions.prototype.query;
        Permissions.prototype.query = function(parameters) {
            if (parameters.name === 'notifications') {
                return Promise.resolve({ state: Notification.permission });
            }
            return originalQuery.call(this, parameters);
        };
    } catch (e) {}

    if (!window.chrome) {
        Object.defineProperty(window, 'chrome', {
            value: {},
            writable: true,
            enumerable: true,
            configurable: false
        });
    }
})();
`

// CreatePage creates a new page on the given browser, with stealth patches
// applied unless disabled.
func CreatePage(b *rod.Browser, disableStealth bool) (*rod.Page, error) {
	if disableStealth {
		return b.Page(proto.TargetCreateTarget{})
	}

	page, err := stealth.Page(b)
	if err != nil {
		return nil, err
	}
	if _, err := page.EvalOnNewDocument(hardeningScript); err != nil {
		page.Close()
		return nil, err
	}
	return page, nil
}
