// Package verify wires image decoding, region extraction, the verification
// engine and the optional submission store, verdict repository and notifier.
package verify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/park285/match-verify/internal/domain"
	"github.com/park285/match-verify/internal/engine"
	"github.com/park285/match-verify/internal/imaging"
	"github.com/park285/match-verify/internal/metrics"
	"github.com/park285/match-verify/internal/notify"
	"github.com/park285/match-verify/internal/ocrclient"
	"github.com/park285/match-verify/internal/profile"
	"github.com/park285/match-verify/internal/repository"
	"github.com/park285/match-verify/internal/store"
	"github.com/park285/match-verify/pkg/verifydto"
)

// Errors
const (
	ErrMissingField          staticErr = "missing required field"
	ErrSubmissionsIncomplete staticErr = "two submissions are required"
	ErrStoreUnavailable      staticErr = "submission store not configured"
	ErrVerdictNotFound       staticErr = "verdict not found"
)

type staticErr string

func (e staticErr) Error() string { return string(e) }

const defaultExtractWorkers = 4

type Config struct {
	// AlignWindow overrides the capture-time window of goal-game profiles when set.
	AlignWindow    *time.Duration
	ExtractWorkers int
}

// Deps are the collaborators of a Service. Store, Repo and Egress are optional.
type Deps struct {
	Profiles  *profile.Registry
	Engine    *engine.Engine
	Extractor ocrclient.Extractor
	Store     *store.Store
	Repo      repository.Repository
	Egress    notify.Egress
	Logger    *zap.Logger
}

type Service struct {
	profiles  *profile.Registry
	engine    *engine.Engine
	extractor ocrclient.Extractor
	store     *store.Store
	repo      repository.Repository
	egress    notify.Egress
	cfg       Config
	logger    *zap.Logger
	now       func() time.Time
}

func NewService(d Deps, cfg Config) (*Service, error) {
	if d.Profiles == nil || d.Engine == nil || d.Extractor == nil {
		return nil, errors.New("profiles, engine and extractor are required")
	}
	if cfg.ExtractWorkers <= 0 {
		cfg.ExtractWorkers = defaultExtractWorkers
	}
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	egress := d.Egress
	if egress == nil {
		egress = notify.NewEgress("off", nil, nil, logger)
	}
	return &Service{
		profiles:  d.Profiles,
		engine:    d.Engine,
		extractor: d.Extractor,
		store:     d.Store,
		repo:      d.Repo,
		egress:    egress,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// VerifyInput is one uploaded screenshot with its form fields.
type VerifyInput struct {
	Game     profile.Game
	TeamSize int
	Form     verifydto.VerifyForm
	Image    []byte
}

// Verify reads every profile region of the image and builds a Result. When a
// store is configured the Result is kept for later arbitration.
func (s *Service) Verify(ctx context.Context, in VerifyInput) (domain.Result, error) {
	p, err := s.profiles.Get(in.Game, in.TeamSize, in.Form.LayoutVersion)
	if err != nil {
		return domain.Result{}, err
	}
	if err := requireFields(p, in); err != nil {
		return domain.Result{}, err
	}
	img, err := imaging.Decode(in.Image)
	if err != nil {
		return domain.Result{}, err
	}

	readings := s.readRegions(ctx, p, img)
	res := s.engine.Verify(ctx, p, engine.Request{
		MatchID:          strings.TrimSpace(in.Form.MatchID),
		UserID:           strings.TrimSpace(in.Form.UserID),
		UploaderGameUser: strings.TrimSpace(in.Form.UploaderGameUser),
		OpponentGameUser: strings.TrimSpace(in.Form.OpponentGameUser),
		Readings:         readings,
		Image: engine.ImageMeta{
			Hash:        img.Hash,
			Resolution:  img.Resolution(),
			Orientation: img.Orientation(),
			Timestamp:   img.Timestamp,
		},
	})
	metrics.ObserveVerify(string(p.Game), string(res.TieBreak), res.Confidence)

	if s.store != nil {
		sub := &store.Submission{
			MatchID:  res.Meta.MatchID,
			UserID:   strings.TrimSpace(in.Form.UserID),
			Game:     string(p.Game),
			TeamSize: p.TeamSize,
			Result:   res,
		}
		if err := s.store.Save(ctx, sub); err != nil {
			s.logger.Warn("submission_store_failed", zap.String("match_id", sub.MatchID), zap.Error(err))
		}
	}
	return res, nil
}

func requireFields(p *profile.Profile, in VerifyInput) error {
	missing := func(name string) error { return fmt.Errorf("%w: %s", ErrMissingField, name) }
	if strings.TrimSpace(in.Form.MatchID) == "" {
		return missing(verifydto.FieldMatchID)
	}
	if strings.TrimSpace(in.Form.UserID) == "" {
		return missing(verifydto.FieldUserID)
	}
	if p.Identity != profile.IdentityNone {
		if strings.TrimSpace(in.Form.UploaderGameUser) == "" {
			return missing(verifydto.FieldUploaderGameUser)
		}
		if strings.TrimSpace(in.Form.OpponentGameUser) == "" {
			return missing(verifydto.FieldOpponentGameUser)
		}
	}
	if len(in.Image) == 0 {
		return missing(verifydto.FieldImage)
	}
	return nil
}

// readRegions crops and extracts every region. Regions outside the image read as "".
func (s *Service) readRegions(ctx context.Context, p *profile.Profile, img *imaging.Image) map[string]string {
	regions := p.Regions()
	readings := make(map[string]string, len(regions))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.ExtractWorkers)
	for _, region := range regions {
		region := region
		roi, ok := p.Layout.Regions[region]
		if !ok {
			continue
		}
		g.Go(func() error {
			crop := img.Crop(roi)
			if crop == nil {
				s.logger.Debug("extract_empty", zap.String("region", region))
				return nil
			}
			text := s.extractor.Extract(gctx, crop)
			mu.Lock()
			readings[region] = text
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return readings
}

func (s *Service) policy(p *profile.Profile) profile.Arbitration {
	pol := p.Arbitration
	if s.cfg.AlignWindow != nil && p.Family == profile.FamilyGoals {
		pol.AlignWindow = *s.cfg.AlignWindow
	}
	return pol
}

// Compare arbitrates two posted Results.
func (s *Service) Compare(ctx context.Context, game profile.Game, teamSize int, req *verifydto.CompareRequest) (domain.Verdict, error) {
	if req == nil || len(req.Submissions) != 2 {
		return domain.Verdict{}, ErrSubmissionsIncomplete
	}
	p, err := s.profiles.Get(game, teamSize, "")
	if err != nil {
		return domain.Verdict{}, err
	}
	a := toSubmission(req.Submissions[0], req.ServerTimestamp(0))
	b := toSubmission(req.Submissions[1], req.ServerTimestamp(1))
	v := engine.Compare(s.policy(p), a, b)
	metrics.ObserveCompare(string(p.Game), v.Aligned)
	s.logger.Debug("compare_done",
		zap.String("game", string(p.Game)),
		zap.String("winner", string(v.Winner)),
		zap.Float64("confidence", v.Confidence))
	return v, nil
}

func toSubmission(sp verifydto.SubmissionPayload, serverTS string) engine.Submission {
	sub := engine.Submission{Result: sp.Result, ServerTimestamp: serverTS}
	if sp.Confidence == nil {
		sub.NoConfidence = true
	} else {
		sub.Result.Confidence = *sp.Confidence
	}
	return sub
}

// CompareStored arbitrates the first two stored submissions of a match, then
// persists and publishes the verdict.
func (s *Service) CompareStored(ctx context.Context, matchID string, game profile.Game, teamSize int) (*verifydto.MatchVerdict, error) {
	if s.store == nil {
		return nil, ErrStoreUnavailable
	}
	if strings.TrimSpace(matchID) == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingField, verifydto.FieldMatchID)
	}
	p, err := s.profiles.Get(game, teamSize, "")
	if err != nil {
		return nil, err
	}
	all, err := s.store.Submissions(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("load submissions: %w", err)
	}
	subs := make([]*store.Submission, 0, 2)
	for _, sub := range all {
		if sub.Game == string(p.Game) && sub.TeamSize == p.TeamSize {
			subs = append(subs, sub)
		}
		if len(subs) == 2 {
			break
		}
	}
	if len(subs) < 2 {
		return nil, ErrSubmissionsIncomplete
	}

	a := engine.Submission{Result: subs[0].Result, ServerTimestamp: subs[0].ServerTimestamp()}
	b := engine.Submission{Result: subs[1].Result, ServerTimestamp: subs[1].ServerTimestamp()}
	v := engine.Compare(s.policy(p), a, b)
	metrics.ObserveCompare(string(p.Game), v.Aligned)

	out := &verifydto.MatchVerdict{
		MatchID:  strings.TrimSpace(matchID),
		Game:     string(p.Game),
		TeamSize: p.TeamSize,
		UserIDs:  [2]string{subs[0].UserID, subs[1].UserID},
		Verdict:  v,
	}
	decided := s.now().UTC()

	if s.repo != nil {
		rec := &repository.Record{
			MatchID:     out.MatchID,
			Game:        out.Game,
			TeamSize:    out.TeamSize,
			UserIDs:     out.UserIDs,
			Verdict:     v,
			SubmissionA: subs[0].Result,
			SubmissionB: subs[1].Result,
			DecidedAt:   decided,
		}
		if err := s.repo.SaveVerdict(ctx, rec); err != nil {
			return nil, fmt.Errorf("save verdict: %w", err)
		}
		s.logger.Info("verdict_saved", zap.String("match_id", out.MatchID), zap.String("winner", string(v.Winner)))
	}

	ev := notify.NewVerdictEvent(out.MatchID, out.Game, out.TeamSize, v, decided)
	if err := s.egress.Publish(ctx, ev); err != nil {
		s.logger.Warn("verdict_notify_failed", zap.String("match_id", out.MatchID), zap.Error(err))
	}
	return out, nil
}

// Verdict returns a previously persisted verdict.
func (s *Service) Verdict(ctx context.Context, matchID string) (*verifydto.MatchVerdict, error) {
	if s.repo == nil {
		return nil, ErrVerdictNotFound
	}
	rec, err := s.repo.GetVerdict(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrVerdictNotFound
	}
	return &verifydto.MatchVerdict{
		MatchID:  rec.MatchID,
		Game:     rec.Game,
		TeamSize: rec.TeamSize,
		UserIDs:  rec.UserIDs,
		Verdict:  rec.Verdict,
	}, nil
}

// Profiles lists every registered game profile with its default layout.
func (s *Service) Profiles() []verifydto.ProfileInfo {
	return ListProfiles(s.profiles)
}

// ListProfiles describes the default layout of every profile in reg.
func ListProfiles(reg *profile.Registry) []verifydto.ProfileInfo {
	out := make([]verifydto.ProfileInfo, 0, len(reg.Keys()))
	for _, g := range profile.Games {
		for n := 1; n <= 4; n++ {
			p, err := reg.Get(g, n, "")
			if err != nil {
				continue
			}
			out = append(out, verifydto.ProfileInfo{
				Key:      p.Key(),
				Game:     string(p.Game),
				TeamSize: p.TeamSize,
				Regions:  p.Regions(),
			})
		}
	}
	return out
}
