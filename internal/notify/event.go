// Package notify publishes arbitrated verdicts to a downstream listener over
// HTTP or a persistent WebSocket.
package notify

import (
	"time"

	"github.com/park285/match-verify/internal/domain"
)

// VerdictEvent is the frame published for every decided match.
type VerdictEvent struct {
	Type      string         `json:"type"`
	MatchID   string         `json:"matchId"`
	Game      string         `json:"game"`
	TeamSize  int            `json:"teamSize"`
	Verdict   domain.Verdict `json:"verdict"`
	DecidedAt time.Time      `json:"decidedAt"`
}

const EventTypeVerdict = "verdict"

// NewVerdictEvent stamps the event type and decision time.
func NewVerdictEvent(matchID, game string, teamSize int, v domain.Verdict, at time.Time) *VerdictEvent {
	if at.IsZero() {
		at = time.Now()
	}
	return &VerdictEvent{
		Type:      EventTypeVerdict,
		MatchID:   matchID,
		Game:      game,
		TeamSize:  teamSize,
		Verdict:   v,
		DecidedAt: at.UTC(),
	}
}

// Ack is what a listener may send back over the socket after consuming an event.
type Ack struct {
	Type    string `json:"type"`
	MatchID string `json:"matchId"`
}

type AckCallback func(ack *Ack)

type StateCallback func(state State)

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	default:
		return "disconnected"
	}
}
