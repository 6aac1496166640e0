package models

// User is the customer record returned by the internal API.
// IsAdmin is the only place the role lives.
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
	Email     string `json:"email"`
	SMSKey    string `json:"sms_key"` // SMS gateway key assigned by an admin
	IsAdmin   bool   `json:"admin,omitempty"`
}

// Session is the currently authenticated identity and credential.
// The zero value is the signed-out session.
type Session struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// Authenticated reports whether both the token and the user are present
func (s Session) Authenticated() bool {
	return s.Token != "" && s.User != nil
}

// IsAdmin reports the role of the signed-in user; false when signed out
func (s Session) IsAdmin() bool {
	return s.Authenticated() && s.User.IsAdmin
}

// Clone returns a copy that shares no memory with s
func (s Session) Clone() Session {
	if s.User == nil {
		return Session{Token: s.Token}
	}
	u := *s.User
	return Session{Token: s.Token, User: &u}
}
