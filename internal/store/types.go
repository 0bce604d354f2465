package store

import (
	"time"

	"github.com/park285/match-verify/internal/domain"
)

// Submission is one player's verified Result stored for later arbitration.
type Submission struct {
	ID         string        `json:"id"`
	MatchID    string        `json:"match_id"`
	UserID     string        `json:"user_id"`
	Game       string        `json:"game"`
	TeamSize   int           `json:"team_size"`
	ReceivedAt time.Time     `json:"received_at"`
	Result     domain.Result `json:"result"`
}

// ServerTimestamp is the receive time in the format used for capture timestamps.
func (s *Submission) ServerTimestamp() string {
	if s == nil || s.ReceivedAt.IsZero() {
		return ""
	}
	return s.ReceivedAt.UTC().Format(time.RFC3339)
}

// Errors
var (
	ErrInvalidArgs = errf("invalid arguments")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error { return staticErr(s) }
