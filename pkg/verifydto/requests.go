// Package verifydto holds the wire shapes of the verify and compare surfaces.
package verifydto

import (
	"github.com/park285/match-verify/internal/domain"
)

// Multipart form fields of a verify upload.
const (
	FieldMatchID          = "matchId"
	FieldUserID           = "userId"
	FieldUploaderGameUser = "uploaderGameUser"
	FieldOpponentGameUser = "opponentGameUser"
	FieldLayoutVersion    = "layoutVersion"
	FieldImage            = "image"
)

// VerifyForm is the parsed text part of a verify upload.
type VerifyForm struct {
	MatchID          string
	UserID           string
	UploaderGameUser string
	OpponentGameUser string
	LayoutVersion    string
}

// SubmissionPayload is a Result as posted back for comparison. Confidence is a
// pointer so an absent value can be told apart from zero.
type SubmissionPayload struct {
	domain.Result
	Confidence *float64 `json:"confidence,omitempty"`
}

// NewSubmissionPayload wraps a Result produced by verify.
func NewSubmissionPayload(r domain.Result) SubmissionPayload {
	c := r.Confidence
	return SubmissionPayload{Result: r, Confidence: &c}
}

// CompareRequest carries two Results and optional server receive times used
// when a Result has no capture timestamp.
type CompareRequest struct {
	Submissions      []SubmissionPayload `json:"submissions"`
	ServerTimestamps []string            `json:"serverTimestamps,omitempty"`
}

// ServerTimestamp returns the i-th server timestamp or "".
func (r *CompareRequest) ServerTimestamp(i int) string {
	if r == nil || i < 0 || i >= len(r.ServerTimestamps) {
		return ""
	}
	return r.ServerTimestamps[i]
}

// MatchVerdict is the reply of a stored-submission comparison.
type MatchVerdict struct {
	MatchID  string         `json:"matchId"`
	Game     string         `json:"game"`
	TeamSize int            `json:"teamSize"`
	UserIDs  [2]string      `json:"userIds"`
	Verdict  domain.Verdict `json:"verdict"`
}

// ProfileInfo describes one registered game profile.
type ProfileInfo struct {
	Key      string   `json:"key"`
	Game     string   `json:"game"`
	TeamSize int      `json:"teamSize"`
	Regions  []string `json:"regions"`
}
