// Package models defines API request/response types and the cookie data model.
package models

import "encoding/json"

// Cookie is one cookie record captured from a browser context.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain,omitempty"`
	Path     string  `json:"path,omitempty"`
	Expires  float64 `json:"expires,omitempty"` // Unix seconds; 0 means session cookie
	HTTPOnly bool    `json:"httpOnly,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
	SameSite string  `json:"sameSite,omitempty"` // "Strict" | "Lax" | "None" | ""
}

// CookieSet is an ordered collection of cookies representing one browser
// session. An empty or nil CookieSet means "no session" and is never an error.
type CookieSet []Cookie

// Empty reports whether the set carries no cookies.
func (cs CookieSet) Empty() bool {
	return len(cs) == 0
}

// Encode serializes the set to its flat text form for storage.
func (cs CookieSet) Encode() ([]byte, error) {
	return json.Marshal(cs)
}

// DecodeCookieSet parses a stored cookie set. Corrupted input yields an error;
// callers on the restore path treat that the same as an absent session.
func DecodeCookieSet(data []byte) (CookieSet, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var cs CookieSet
	if err := json.Unmarshal(data, &cs); err != nil {
		return nil, err
	}
	return cs, nil
}
