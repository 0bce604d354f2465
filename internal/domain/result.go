package domain

import (
	"bytes"
	"encoding/json"
)

// Side names one of the two competing participants. The zero value means "no side"
// and is encoded as JSON null.
type Side string

const (
	SideNone Side = ""
	SideA    Side = "A"
	SideB    Side = "B"
)

// Other returns the opposite side; SideNone stays SideNone.
func (s Side) Other() Side {
	switch s {
	case SideA:
		return SideB
	case SideB:
		return SideA
	default:
		return SideNone
	}
}

func (s Side) MarshalJSON() ([]byte, error) {
	if s == SideNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(s))
}

func (s *Side) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*s = SideNone
		return nil
	}
	var v string
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*s = Side(v)
	return nil
}

// TieBreak names the rule that decided the winner, or the stopgap that applies
// when no winner could be decided.
type TieBreak string

const (
	TieBreakNone              TieBreak = ""
	TieBreakGoals             TieBreak = "goals"
	TieBreakPenalties         TieBreak = "penalties"
	TieBreakPenaltiesRequired TieBreak = "penalties_required"
	TieBreakPercentScoring    TieBreak = "percent_scoring"
	TieBreakSecondLegRequired TieBreak = "second_leg_required"
	TieBreakKills             TieBreak = "kills"
	TieBreakDamage            TieBreak = "damage"
	TieBreakAmbiguous         TieBreak = "ambiguous"
)

func (t TieBreak) MarshalJSON() ([]byte, error) {
	if t == TieBreakNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(t))
}

func (t *TieBreak) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*t = TieBreakNone
		return nil
	}
	var v string
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*t = TieBreak(v)
	return nil
}

// RequiresMoreData reports whether the label is a decision-insufficiency outcome.
func (t TieBreak) RequiresMoreData() bool {
	switch t {
	case TieBreakPenaltiesRequired, TieBreakSecondLegRequired, TieBreakAmbiguous:
		return true
	default:
		return false
	}
}

// RawStats carries secondary reads used only by coherence checks.
type RawStats struct {
	Shots        *int `json:"shots,omitempty"`
	ShotAccuracy *int `json:"shotAccuracy,omitempty"`
	// SOTEstimated is set when ShotsOnTarget was derived from Shots and ShotAccuracy.
	SOTEstimated bool `json:"sotEstimated,omitempty"`
}

// SquadStat holds per-member reads for multi-member sides. All slices have the
// profile's team size; an unreadable value is nil, never omitted.
type SquadStat struct {
	UserNames   []string `json:"userNames"`
	Kills       []*int   `json:"kills"`
	Damage      []*int   `json:"damage"`
	TotalKills  int      `json:"totalKills"`
	TotalDamage int      `json:"totalDamage"`
	MVP         string   `json:"mvp,omitempty"`
}

// SideStat is one participant's extracted statistics.
type SideStat struct {
	UserName      string     `json:"userName"`
	Goals         *int       `json:"goals"`
	ShotsOnTarget *int       `json:"shotsOnTarget"`
	Possession    *int       `json:"possession"`
	Penalties     *int       `json:"penalties"`
	Raw           RawStats   `json:"raw"`
	Squad         *SquadStat `json:"squad,omitempty"`
}

// IdentityTrace records how on-screen names were assigned to platform sides.
type IdentityTrace struct {
	LeftUserOCR      string `json:"leftUserOCR"`
	RightUserOCR     string `json:"rightUserOCR"`
	UploaderGameUser string `json:"uploaderGameUser"`
	OpponentGameUser string `json:"opponentGameUser,omitempty"`
	// UploaderSide is "left", "right" or empty when ambiguous.
	UploaderSide string `json:"uploaderSide"`
	Method       string `json:"method,omitempty"`
	Ambiguous    bool   `json:"ambiguous"`
}

type Meta struct {
	MatchID      string         `json:"matchId"`
	BytesHash    string         `json:"bytesHash"`
	Resolution   string         `json:"resolution"`
	Orientation  string         `json:"orientation"`
	LayoutVer    string         `json:"layoutVersion,omitempty"`
	IsFullTime   bool           `json:"isFullTime"`
	BannerText   string         `json:"bannerText,omitempty"`
	ClockText    string         `json:"clockText,omitempty"`
	ClockSeconds *int           `json:"clockSeconds,omitempty"`
	Timestamp    string         `json:"timestamp,omitempty"`
	Identity     *IdentityTrace `json:"identity,omitempty"`
}

type Coherence struct {
	OK    bool     `json:"ok"`
	Notes []string `json:"notes"`
}

// Result is one verified submission. It is built once per verification and
// treated as immutable afterwards.
type Result struct {
	Game       string    `json:"game"`
	TeamSize   int       `json:"teamSize"`
	SideA      SideStat  `json:"sideA"`
	SideB      SideStat  `json:"sideB"`
	Meta       Meta      `json:"meta"`
	Coherence  Coherence `json:"coherence"`
	Winner     Side      `json:"winner"`
	TieBreak   TieBreak  `json:"tieBreak"`
	Confidence float64   `json:"confidence"`
}

// Verdict is the arbitration outcome over two Results for the same match.
type Verdict struct {
	Aligned    bool     `json:"aligned"`
	Preferred  Side     `json:"preferred"`
	Winner     Side     `json:"winner"`
	TieBreak   TieBreak `json:"tieBreak"`
	Confidence float64  `json:"confidence"`
}

// Int returns a pointer to v; handy for building stat records.
func Int(v int) *int { return &v }
