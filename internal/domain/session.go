package domain

// Session is the authenticated identity of one visitor. An empty token means
// anonymous; Username is the email local-part captured at login time.
type Session struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

// IsLoggedIn derives from token presence. It is never set independently.
func (s Session) IsLoggedIn() bool {
	return s.Token != ""
}
