// Package engine turns region readings into a verified Result and arbitrates
// two Results into a Verdict. Nothing here fails: unreadable input becomes nil
// values, coherence notes and lower confidence.
package engine

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/park285/match-verify/internal/domain"
	"github.com/park285/match-verify/internal/identity"
	"github.com/park285/match-verify/internal/label"
	"github.com/park285/match-verify/internal/msgcat"
	"github.com/park285/match-verify/internal/parse"
	"github.com/park285/match-verify/internal/profile"
)

const (
	labelFullTime = "full_time"
	ninetyMarker  = "90"
)

// ImageMeta is metadata computed from the uploaded image.
type ImageMeta struct {
	Hash        string
	Resolution  string
	Orientation string
	// Timestamp is the capture time, empty when unknown.
	Timestamp string
}

// Request carries everything one verification needs.
type Request struct {
	MatchID          string
	UserID           string
	UploaderGameUser string
	OpponentGameUser string
	// Readings maps region keys to recognized text; a missing key reads as "".
	Readings map[string]string
	Image    ImageMeta
}

// Engine holds the collaborators shared by every verification.
type Engine struct {
	translator label.Translator
	messages   *msgcat.Catalog
	logger     *zap.Logger
}

func New(translator label.Translator, messages *msgcat.Catalog, logger *zap.Logger) *Engine {
	if translator == nil {
		translator = label.Identity
	}
	if messages == nil {
		messages = msgcat.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{translator: translator, messages: messages, logger: logger}
}

// Verify builds one Result from a profile and the readings of its regions.
func (e *Engine) Verify(ctx context.Context, p *profile.Profile, req Request) domain.Result {
	sides := e.readSides(p, req.Readings)

	meta := domain.Meta{
		MatchID:     req.MatchID,
		BytesHash:   req.Image.Hash,
		Resolution:  req.Image.Resolution,
		Orientation: req.Image.Orientation,
		LayoutVer:   p.Layout.Version,
		Timestamp:   req.Image.Timestamp,
	}
	e.detectFullTime(ctx, p, req.Readings, &meta)

	if p.EstimateSOT {
		for i := range sides {
			sides[i].ShotsOnTarget = parse.EstimateShotsOnTarget(sides[i].Raw.Shots, sides[i].Raw.ShotAccuracy)
			sides[i].Raw.SOTEstimated = sides[i].ShotsOnTarget != nil
		}
	}

	switch p.Identity {
	case profile.IdentityResolve:
		meta.Identity = resolveSides(&sides, req)
	case profile.IdentitySquad:
		meta.Identity = &domain.IdentityTrace{
			LeftUserOCR:      joinedNames(&sides[0]),
			RightUserOCR:     joinedNames(&sides[1]),
			UploaderGameUser: req.UploaderGameUser,
			OpponentGameUser: req.OpponentGameUser,
			UploaderSide:     string(identity.Left),
		}
	}

	for i := range sides {
		if sides[i].Squad != nil {
			summarizeSquad(&sides[i])
		}
	}

	coherence := CheckCoherence(p, sides[0], sides[1], meta.Identity, e.messages)
	winner, tieBreak := ResolveWinner(p.Cascade, sides[0], sides[1])
	ambiguous := p.Identity == profile.IdentityResolve && meta.Identity != nil && meta.Identity.Ambiguous

	res := domain.Result{
		Game:      string(p.Game),
		TeamSize:  p.TeamSize,
		SideA:     sides[0],
		SideB:     sides[1],
		Meta:      meta,
		Coherence: coherence,
		Winner:    winner,
		TieBreak:  tieBreak,
		Confidence: Score(p.Confidence, ScoreInput{
			SideA:             sides[0],
			SideB:             sides[1],
			FullTime:          meta.IsFullTime,
			ClockParsed:       meta.ClockSeconds != nil,
			AmbiguousIdentity: ambiguous,
			Notes:             len(coherence.Notes),
		}),
	}

	e.logger.Debug("verify_done",
		zap.String("game", p.Key()),
		zap.String("match_id", req.MatchID),
		zap.String("winner", string(res.Winner)),
		zap.String("tie_break", string(res.TieBreak)),
		zap.Float64("confidence", res.Confidence),
		zap.Int("notes", len(coherence.Notes)),
	)
	return res
}

func (e *Engine) readSides(p *profile.Profile, readings map[string]string) [2]domain.SideStat {
	var sides [2]domain.SideStat
	if p.Family == profile.FamilySquad {
		for i := range sides {
			sides[i].Squad = &domain.SquadStat{
				UserNames: make([]string, p.TeamSize),
				Kills:     make([]*int, p.TeamSize),
				Damage:    make([]*int, p.TeamSize),
			}
		}
	}
	for _, f := range p.Fields {
		text := readings[f.Region]
		switch f.Parser {
		case profile.ParseText:
			setName(&sides[f.Slot], f.Member, strings.TrimSpace(text))
		case profile.ParseInt:
			setStat(&sides[f.Slot], f.Stat, f.Member, parse.Int(text))
		case profile.ParsePercent:
			setStat(&sides[f.Slot], f.Stat, f.Member, parse.Percent(text))
		case profile.ParseScorePair, profile.ParsePenaltyPair:
			var l, r *int
			if f.Parser == profile.ParseScorePair {
				l, r = parse.ScorePair(text)
			} else {
				l, r = parse.PenaltyPair(text)
			}
			setStat(&sides[f.Pair[0]], f.Stat, f.Member, l)
			setStat(&sides[f.Pair[1]], f.Stat, f.Member, r)
		}
	}
	return sides
}

func setName(s *domain.SideStat, member int, name string) {
	if s.Squad != nil {
		if member >= 0 && member < len(s.Squad.UserNames) {
			s.Squad.UserNames[member] = name
		}
		return
	}
	s.UserName = name
}

func setStat(s *domain.SideStat, stat profile.Stat, member int, v *int) {
	switch stat {
	case profile.StatGoals:
		s.Goals = v
	case profile.StatShotsOnTarget:
		s.ShotsOnTarget = v
	case profile.StatPossession:
		s.Possession = v
	case profile.StatPenalties:
		s.Penalties = v
	case profile.StatShots:
		s.Raw.Shots = v
	case profile.StatShotAccuracy:
		s.Raw.ShotAccuracy = v
	case profile.StatKills:
		if s.Squad != nil && member >= 0 && member < len(s.Squad.Kills) {
			s.Squad.Kills[member] = v
		}
	case profile.StatDamage:
		if s.Squad != nil && member >= 0 && member < len(s.Squad.Damage) {
			s.Squad.Damage[member] = v
		}
	}
}

func (e *Engine) detectFullTime(ctx context.Context, p *profile.Profile, readings map[string]string, meta *domain.Meta) {
	ft := p.FullTime
	if ft == nil {
		return
	}
	text := readings[ft.Region]
	norm := label.Normalize(ctx, text, p.Dictionary(ft.Labels), e.translator)
	meta.IsFullTime = norm == labelFullTime || (ft.NinetyMarker && strings.Contains(text, ninetyMarker))
	if ft.ClockFallback {
		meta.BannerText = text
		meta.ClockSeconds = parse.Clock(text)
		return
	}
	meta.ClockText = text
}

// resolveSides makes the uploader side A when the uploader can be located.
func resolveSides(sides *[2]domain.SideStat, req Request) *domain.IdentityTrace {
	left, right := sides[0].UserName, sides[1].UserName
	asg := identity.Resolve(left, right, req.UploaderGameUser)
	if asg.UploaderIsRight() {
		sides[0], sides[1] = sides[1], sides[0]
	}
	return &domain.IdentityTrace{
		LeftUserOCR:      left,
		RightUserOCR:     right,
		UploaderGameUser: req.UploaderGameUser,
		OpponentGameUser: req.OpponentGameUser,
		UploaderSide:     string(asg.Uploader),
		Method:           string(asg.Method),
		Ambiguous:        asg.Ambiguous(),
	}
}

// summarizeSquad fills totals over read values and names the first member MVP.
func summarizeSquad(s *domain.SideStat) {
	sq := s.Squad
	sq.TotalKills, sq.TotalDamage = 0, 0
	for _, k := range sq.Kills {
		sq.TotalKills += valueOr(k, 0)
	}
	for _, d := range sq.Damage {
		sq.TotalDamage += valueOr(d, 0)
	}
	if len(sq.UserNames) > 0 {
		sq.MVP = sq.UserNames[0]
	}
	s.UserName = sq.MVP
}
