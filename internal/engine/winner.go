package engine

import (
	"github.com/park285/match-verify/internal/domain"
	"github.com/park285/match-verify/internal/profile"
)

// stageFunc decides one step of a winner cascade. done=false falls through
// to the next stage.
type stageFunc func(a, b *domain.SideStat) (winner domain.Side, tb domain.TieBreak, done bool)

var stages = map[profile.Stage]stageFunc{
	profile.StageGoals:             goalsStage,
	profile.StagePenalties:         penaltiesStage,
	profile.StagePenaltiesRequired: penaltiesRequiredStage,
	profile.StagePercentScoring:    percentScoringStage,
	profile.StageKills:             killsStage,
	profile.StageDamage:            damageStage,
	profile.StageAmbiguous:         ambiguousStage,
}

// ResolveWinner walks the cascade top to bottom; the first decisive stage wins.
// An exhausted cascade yields no winner and no label.
func ResolveWinner(cascade []profile.Stage, a, b domain.SideStat) (domain.Side, domain.TieBreak) {
	for _, st := range cascade {
		fn, ok := stages[st]
		if !ok {
			continue
		}
		if w, tb, done := fn(&a, &b); done {
			return w, tb
		}
	}
	return domain.SideNone, domain.TieBreakNone
}

func higher(a, b int) domain.Side {
	switch {
	case a > b:
		return domain.SideA
	case b > a:
		return domain.SideB
	default:
		return domain.SideNone
	}
}

// optionalStage decides only when both values are read and differ.
func optionalStage(a, b *int, tb domain.TieBreak) (domain.Side, domain.TieBreak, bool) {
	if a == nil || b == nil {
		return domain.SideNone, domain.TieBreakNone, false
	}
	if w := higher(*a, *b); w != domain.SideNone {
		return w, tb, true
	}
	return domain.SideNone, domain.TieBreakNone, false
}

func goalsStage(a, b *domain.SideStat) (domain.Side, domain.TieBreak, bool) {
	return optionalStage(a.Goals, b.Goals, domain.TieBreakGoals)
}

func penaltiesStage(a, b *domain.SideStat) (domain.Side, domain.TieBreak, bool) {
	return optionalStage(a.Penalties, b.Penalties, domain.TieBreakPenalties)
}

// penaltiesRequiredStage stops a drawn match whose shootout was not read.
func penaltiesRequiredStage(a, b *domain.SideStat) (domain.Side, domain.TieBreak, bool) {
	if a.Penalties == nil || b.Penalties == nil {
		return domain.SideNone, domain.TieBreakPenaltiesRequired, true
	}
	return domain.SideNone, domain.TieBreakNone, false
}

// PercentScore is shots on target doubled plus one for the larger possession.
// Unread values count as zero.
func PercentScore(own, opp *domain.SideStat) int {
	score := valueOr(own.ShotsOnTarget, 0) * 2
	if valueOr(own.Possession, 0) > valueOr(opp.Possession, 0) {
		score++
	}
	return score
}

func percentScoringStage(a, b *domain.SideStat) (domain.Side, domain.TieBreak, bool) {
	if w := higher(PercentScore(a, b), PercentScore(b, a)); w != domain.SideNone {
		return w, domain.TieBreakPercentScoring, true
	}
	return domain.SideNone, domain.TieBreakSecondLegRequired, true
}

func squadTotals(s *domain.SideStat) (kills, damage int) {
	if s.Squad == nil {
		return 0, 0
	}
	return s.Squad.TotalKills, s.Squad.TotalDamage
}

func killsStage(a, b *domain.SideStat) (domain.Side, domain.TieBreak, bool) {
	ka, _ := squadTotals(a)
	kb, _ := squadTotals(b)
	if w := higher(ka, kb); w != domain.SideNone {
		return w, domain.TieBreakKills, true
	}
	return domain.SideNone, domain.TieBreakNone, false
}

func damageStage(a, b *domain.SideStat) (domain.Side, domain.TieBreak, bool) {
	_, da := squadTotals(a)
	_, db := squadTotals(b)
	if w := higher(da, db); w != domain.SideNone {
		return w, domain.TieBreakDamage, true
	}
	return domain.SideNone, domain.TieBreakNone, false
}

func ambiguousStage(_, _ *domain.SideStat) (domain.Side, domain.TieBreak, bool) {
	return domain.SideNone, domain.TieBreakAmbiguous, true
}

func valueOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}
