package engine

import (
	"strings"

	"github.com/park285/match-verify/internal/domain"
	"github.com/park285/match-verify/internal/identity"
	"github.com/park285/match-verify/internal/msgcat"
	"github.com/park285/match-verify/internal/profile"
)

// PossessionTolerance is the allowed distance of the possession sum from 100.
const PossessionTolerance = 3

const noSide = -1

// violation is one failed check; side indexes the profile's side labels or is noSide.
type violation struct {
	key  string
	side int
}

type checkInput struct {
	sides [2]*domain.SideStat
	trace *domain.IdentityTrace
}

type ruleFunc func(in checkInput) []violation

var rules = map[profile.Rule]ruleFunc{
	profile.RulePossessionSum:          possessionSumRule,
	profile.RuleSOTBelowGoals:          sotBelowGoalsRule,
	profile.RuleSOTAboveShots:          sotAboveShotsRule,
	profile.RuleEstimatedSOTAboveShots: estimatedSOTAboveShotsRule,
	profile.RuleSquadIdentity:          squadIdentityRule,
}

// CheckCoherence runs every rule of the profile independently and collects one
// note per violation. A rule whose inputs are unread is skipped, not violated.
func CheckCoherence(p *profile.Profile, a, b domain.SideStat, trace *domain.IdentityTrace, messages *msgcat.Catalog) domain.Coherence {
	if messages == nil {
		messages = msgcat.Default()
	}
	in := checkInput{sides: [2]*domain.SideStat{&a, &b}, trace: trace}

	var found []violation
	for _, r := range p.Rules {
		if fn, ok := rules[r]; ok {
			found = append(found, fn(in)...)
		}
	}
	if p.Identity == profile.IdentityResolve && trace != nil && trace.Ambiguous {
		found = append(found, violation{key: "coherence.identity_ambiguous", side: noSide})
	}

	notes := make([]string, 0, len(found))
	for _, v := range found {
		data := map[string]string{"Side": ""}
		if v.side != noSide {
			data["Side"] = messages.Text(p.SideLabels[v.side], nil)
		}
		notes = append(notes, messages.Text(v.key, data))
	}
	return domain.Coherence{OK: len(notes) == 0, Notes: notes}
}

func possessionSumRule(in checkInput) []violation {
	pa, pb := in.sides[0].Possession, in.sides[1].Possession
	if pa == nil || pb == nil {
		return nil
	}
	diff := 100 - (*pa + *pb)
	if diff < 0 {
		diff = -diff
	}
	if diff > PossessionTolerance {
		return []violation{{key: "coherence.possession_sum", side: noSide}}
	}
	return nil
}

func perSide(in checkInput, key string, bad func(s *domain.SideStat) bool) []violation {
	var out []violation
	for i, s := range in.sides {
		if bad(s) {
			out = append(out, violation{key: key, side: i})
		}
	}
	return out
}

func sotBelowGoalsRule(in checkInput) []violation {
	return perSide(in, "coherence.sot_below_goals", func(s *domain.SideStat) bool {
		return s.ShotsOnTarget != nil && s.Goals != nil && *s.ShotsOnTarget < *s.Goals
	})
}

func sotAboveShotsRule(in checkInput) []violation {
	return perSide(in, "coherence.sot_above_shots", func(s *domain.SideStat) bool {
		return s.ShotsOnTarget != nil && s.Raw.Shots != nil && *s.ShotsOnTarget > *s.Raw.Shots
	})
}

func estimatedSOTAboveShotsRule(in checkInput) []violation {
	return perSide(in, "coherence.estimated_sot_above_shots", func(s *domain.SideStat) bool {
		return s.Raw.SOTEstimated && s.ShotsOnTarget != nil && s.Raw.Shots != nil && *s.ShotsOnTarget > *s.Raw.Shots
	})
}

// squadIdentityRule matches each side's joined member names against the
// declared game user. An undeclared user cannot be checked.
func squadIdentityRule(in checkInput) []violation {
	if in.trace == nil {
		return nil
	}
	declared := [2]string{in.trace.UploaderGameUser, in.trace.OpponentGameUser}
	var out []violation
	for i, s := range in.sides {
		if strings.TrimSpace(declared[i]) == "" {
			continue
		}
		if !identity.FuzzyMatch(declared[i], joinedNames(s)) {
			out = append(out, violation{key: "coherence.squad_identity_mismatch", side: i})
		}
	}
	return out
}

func joinedNames(s *domain.SideStat) string {
	if s.Squad == nil {
		return s.UserName
	}
	return strings.Join(s.Squad.UserNames, " ")
}
