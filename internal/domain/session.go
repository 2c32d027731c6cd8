package domain

// Session is the client-held authentication state. Tokens and user are
// written and cleared together.
type Session struct {
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	User         *User  `json:"user,omitempty"`
}

// NewSession builds a session from a login or signup response.
func NewSession(resp AuthResponse) Session {
	user := resp.User
	return Session{
		AccessToken:  resp.Access,
		RefreshToken: resp.Refresh,
		User:         &user,
	}
}

// Valid reports whether the session has both an access token and a cached
// user, which is what a resumed session needs before it is checked with the
// server.
func (s Session) Valid() bool {
	return s.AccessToken != "" && s.User != nil
}

// IsZero reports whether nothing is stored.
func (s Session) IsZero() bool {
	return s.AccessToken == "" && s.RefreshToken == "" && s.User == nil
}
