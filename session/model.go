package session

import "time"

// Session is the durable per-login record. Role is snapshotted at issue
// time; role changes after login do not rewrite live sessions unless the
// caller explicitly revokes them.
type Session struct {
	Token        string
	Username     string
	Role         string
	CreatedAt    int64 // unix seconds, set once at login
	LastActivity int64 // unix seconds, refreshed by Touch
}

// IdleFor reports how long the session has been idle relative to now.
func (s *Session) IdleFor(now time.Time) time.Duration {
	return time.Duration(now.Unix()-s.LastActivity) * time.Second
}

// Age reports time since the session was created.
func (s *Session) Age(now time.Time) time.Duration {
	return time.Duration(now.Unix()-s.CreatedAt) * time.Second
}
