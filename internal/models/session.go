package models

// Session is the per-request view of who is logged in. The auth middleware
// builds one from the caller's token and hands it to every protected handler.
type Session struct {
	Authenticated bool   `json:"authenticated"`
	UserID        int64  `json:"user_id"`
	Username      string `json:"username"`
	Role          Role   `json:"role"`
	Token         string `json:"-"`
}

// Authenticate marks the session as logged in. All fields are replaced in one
// assignment so a reader never sees Authenticated with a stale username.
func (s *Session) Authenticate(userID int64, username string, role Role, token string) {
	*s = Session{
		Authenticated: true,
		UserID:        userID,
		Username:      username,
		Role:          role,
		Token:         token,
	}
}

// IsAuthorized reports whether the session may view protected pages.
func (s *Session) IsAuthorized() bool {
	return s != nil && s.Authenticated && s.Username != ""
}

// Logout clears every field.
func (s *Session) Logout() {
	*s = Session{}
}

// HasRole reports whether the session role is one of roles.
func (s *Session) HasRole(roles ...Role) bool {
	if !s.IsAuthorized() {
		return false
	}
	for _, r := range roles {
		if s.Role == r {
			return true
		}
	}
	return false
}
