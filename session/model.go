package session

import "time"

// TTL is the lifetime of a session record and the Max-Age of its cookie.
const TTL = 7 * 24 * time.Hour

// Data is the payload stored for a session token.
//
// Field names in the JSON form are shared by every store variant; the
// relational variant maps them onto user_sessions columns.
type Data struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	JournalID *int64 `json:"journalId"`
}

// Equal reports whether two payloads carry the same values.
func (d *Data) Equal(other *Data) bool {
	if d == nil || other == nil {
		return d == other
	}
	if d.UserID != other.UserID || d.Email != other.Email || d.Name != other.Name || d.Role != other.Role {
		return false
	}
	switch {
	case d.JournalID == nil && other.JournalID == nil:
		return true
	case d.JournalID == nil || other.JournalID == nil:
		return false
	default:
		return *d.JournalID == *other.JournalID
	}
}
