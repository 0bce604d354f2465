package profile

import (
	"fmt"
	"strings"
	"time"

	"github.com/park285/match-verify/internal/label"
)

// Game identifies a supported title.
type Game string

const (
	Efootball Game = "efootball"
	FCM       Game = "fcm"
	DLS       Game = "dls"
	FreeFire  Game = "freefire"
)

// Games lists every supported title in a stable order.
var Games = []Game{Efootball, FCM, DLS, FreeFire}

// ParseGame accepts a case-insensitive game id.
func ParseGame(s string) (Game, bool) {
	g := Game(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Games {
		if g == known {
			return g, true
		}
	}
	return "", false
}

// Family groups games sharing a winner cascade shape.
type Family int

const (
	FamilyGoals Family = iota
	FamilySquad
)

// Slot is the platform side a read is written to before any identity swap.
type Slot int

const (
	SlotA Slot = iota
	SlotB
)

// Stat names the record field a read fills.
type Stat string

const (
	StatUserName      Stat = "userName"
	StatGoals         Stat = "goals"
	StatShotsOnTarget Stat = "shotsOnTarget"
	StatPossession    Stat = "possession"
	StatPenalties     Stat = "penalties"
	StatShots         Stat = "shots"
	StatShotAccuracy  Stat = "shotAccuracy"
	StatKills         Stat = "kills"
	StatDamage        Stat = "damage"
)

// Parser names the field parser applied to a region's text.
type Parser string

const (
	ParseText        Parser = "text"
	ParseInt         Parser = "int"
	ParsePercent     Parser = "percent"
	ParseScorePair   Parser = "score_pair"
	ParsePenaltyPair Parser = "penalty_pair"
)

// IsPair reports whether the parser yields two numbers from one region.
func (p Parser) IsPair() bool { return p == ParseScorePair || p == ParsePenaltyPair }

// Field binds one screen region to a parser and a stat slot.
type Field struct {
	Region string
	Parser Parser
	Stat   Stat
	Slot   Slot
	// Pair lists the slots receiving the left and right numbers of a pair parser.
	Pair [2]Slot
	// Member is the squad member index; only meaningful for squad profiles.
	Member int
}

// FullTime describes how the "match concluded" signal is read.
type FullTime struct {
	Region string
	// Labels are the label dictionary keys consulted for the region text.
	Labels []string
	// NinetyMarker treats a "90" anywhere in the text as full time.
	NinetyMarker bool
	// ClockFallback parses an in-progress clock from the same region.
	ClockFallback bool
}

// IdentityMode selects how on-screen names are related to registered users.
type IdentityMode int

const (
	IdentityNone IdentityMode = iota
	// IdentityResolve locates the uploader among left/right names and swaps sides if needed.
	IdentityResolve
	// IdentitySquad checks each squad's joined names against the declared users.
	IdentitySquad
)

// Rule identifies a coherence check.
type Rule string

const (
	RulePossessionSum          Rule = "possession_sum"
	RuleSOTBelowGoals          Rule = "sot_below_goals"
	RuleSOTAboveShots          Rule = "sot_above_shots"
	RuleEstimatedSOTAboveShots Rule = "estimated_sot_above_shots"
	RuleSquadIdentity          Rule = "squad_identity"
)

// Stage identifies one step of a winner cascade.
type Stage string

const (
	StageGoals             Stage = "goals"
	StagePenalties         Stage = "penalties"
	StagePenaltiesRequired Stage = "penalties_required"
	StagePercentScoring    Stage = "percent_scoring"
	StageKills             Stage = "kills"
	StageDamage            Stage = "damage"
	StageAmbiguous         Stage = "ambiguous"
)

// Confidence is the per-game scoring policy.
type Confidence struct {
	Base     float64
	PerField float64
	// KeyStats are counted on both sides when non-null.
	KeyStats []Stat
	// NotComplete is deducted when full time was not confirmed.
	NotComplete float64
	// NotCompleteUnlessClock skips the deduction when a fallback clock parsed.
	NotCompleteUnlessClock bool
	Ambiguous              float64
	// Notes is deducted once when any coherence note was raised.
	Notes float64
}

// Arbitration is the per-game policy for comparing two submissions.
type Arbitration struct {
	// PreferComplete prefers the only submission that confirmed full time.
	PreferComplete bool
	// CompleteFromWinner treats a decided winner as a concluded match.
	CompleteFromWinner bool
	// AlignWindow bounds the capture timestamp gap; zero only requires both timestamps.
	AlignWindow   time.Duration
	AlignBonus    float64
	CompleteBonus float64
}

// Profile is the configuration-driven strategy for one game variant.
type Profile struct {
	Game     Game
	Family   Family
	TeamSize int

	Fields   []Field
	FullTime *FullTime
	Identity IdentityMode
	// EstimateSOT derives shots on target from shots and shot accuracy.
	EstimateSOT bool

	Rules   []Rule
	Cascade []Stage
	// SideLabels are msgcat keys naming side A and side B in notes.
	SideLabels [2]string

	Confidence  Confidence
	Arbitration Arbitration

	// Layout is the geometry and label tables loaded from YAML.
	Layout Layout
}

// Key identifies a profile in a Registry.
func (p *Profile) Key() string { return key(p.Game, p.TeamSize) }

// Regions lists every region the profile reads, full-time region first.
func (p *Profile) Regions() []string {
	seen := make(map[string]struct{}, len(p.Fields)+1)
	out := make([]string, 0, len(p.Fields)+1)
	add := func(r string) {
		if r == "" {
			return
		}
		if _, ok := seen[r]; ok {
			return
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	if p.FullTime != nil {
		add(p.FullTime.Region)
	}
	for _, f := range p.Fields {
		add(f.Region)
	}
	return out
}

// Dictionary returns the label dictionary restricted to the given keys, in key order.
func (p *Profile) Dictionary(keys []string) label.Dictionary {
	out := make(label.Dictionary, 0, len(keys))
	for _, k := range keys {
		out = append(out, label.Entry{Label: k, Variants: p.Layout.Labels[k]})
	}
	return out
}

// MemberRegion names the region of squad member i.
func MemberRegion(name string, i int) string { return fmt.Sprintf("%s.%d", name, i) }

func key(g Game, teamSize int) string { return fmt.Sprintf("%s/%dv%d", g, teamSize, teamSize) }
