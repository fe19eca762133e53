package domain

// Profile holds the optional display fields of an authenticated account.
type Profile struct {
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

// Session is the locally held record asserting an authenticated identity.
// A session exists if and only if a non-empty token was obtained from login
// or restored from the persisted record.
type Session struct {
	Token   string  `json:"token"`
	Profile Profile `json:"profile"`
}

// Valid reports whether the session carries a credential.
func (s Session) Valid() bool {
	return s.Token != ""
}
