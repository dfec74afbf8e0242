package model

import "strconv"

// Actor identifies who triggered a mutation. The zero value is an
// anonymous caller.
type Actor struct {
	UserID   int64  `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`
	IP       string `json:"ip,omitempty"`
}

func (a Actor) ID() string {
	if a.UserID == 0 {
		return ""
	}
	return strconv.FormatInt(a.UserID, 10)
}
