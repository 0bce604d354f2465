package verify

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/park285/match-verify/internal/domain"
	"github.com/park285/match-verify/internal/engine"
	"github.com/park285/match-verify/internal/imaging"
	"github.com/park285/match-verify/internal/notify"
	"github.com/park285/match-verify/internal/profile"
	"github.com/park285/match-verify/internal/repository"
	"github.com/park285/match-verify/internal/store"
	"github.com/park285/match-verify/pkg/verifydto"
)

// scripted answers extraction calls in region order; it relies on a single
// extraction worker.
type scripted struct {
	mu      sync.Mutex
	regions []string
	texts   map[string]string
	calls   int
}

func (s *scripted) Extract(_ context.Context, region image.Image) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if region == nil || s.calls >= len(s.regions) {
		return ""
	}
	text := s.texts[s.regions[s.calls]]
	s.calls++
	return text
}

type recordingEgress struct {
	mu     sync.Mutex
	events []*notify.VerdictEvent
}

func (r *recordingEgress) Publish(_ context.Context, ev *notify.VerdictEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func screenshot(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 400, 200))
	for y := 0; y < 200; y++ {
		for x := 0; x < 400; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

var efootballTexts = map[string]string{
	"title_full_time":       "FULL TIME",
	"teamA_user":            "Alpha",
	"teamB_user":            "Bravo",
	"teamA_goals":           "2",
	"teamB_goals":           "1",
	"teamA_shots_on_target": "5",
	"teamB_shots_on_target": "3",
	"teamA_possession":      "52%",
	"teamB_possession":      "48%",
}

type fixture struct {
	svc    *Service
	reg    *profile.Registry
	store  *store.Store
	repo   repository.Repository
	egress *recordingEgress
}

func newFixture(t *testing.T, withStore bool, cfg Config) *fixture {
	t.Helper()
	reg, err := profile.NewRegistry("", nil)
	require.NoError(t, err)

	f := &fixture{reg: reg, repo: repository.NewMemoryRepository(), egress: &recordingEgress{}}
	if withStore {
		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })
		f.store = store.NewStore(rdb, time.Hour)
	}
	cfg.ExtractWorkers = 1
	svc, err := NewService(Deps{
		Profiles:  reg,
		Engine:    engine.New(nil, nil, nil),
		Extractor: f.extractor(t, profile.Efootball, efootballTexts),
		Store:     f.store,
		Repo:      f.repo,
		Egress:    f.egress,
	}, cfg)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *fixture) extractor(t *testing.T, g profile.Game, texts map[string]string) *scripted {
	t.Helper()
	p, err := f.reg.Get(g, 0, "")
	require.NoError(t, err)
	return &scripted{regions: p.Regions(), texts: texts}
}

// rescript resets the extractor before each verification.
func (f *fixture) rescript(t *testing.T, g profile.Game, texts map[string]string) {
	f.svc.extractor = f.extractor(t, g, texts)
}

func efootballInput(t *testing.T, userID string) VerifyInput {
	return VerifyInput{
		Game:  profile.Efootball,
		Form:  verifydto.VerifyForm{MatchID: "m-1", UserID: userID},
		Image: screenshot(t),
	}
}

func TestVerifyReadsEveryRegion(t *testing.T) {
	f := newFixture(t, true, Config{})
	res, err := f.svc.Verify(context.Background(), efootballInput(t, "u1"))
	require.NoError(t, err)

	assert.Equal(t, domain.SideA, res.Winner)
	assert.Equal(t, domain.TieBreakGoals, res.TieBreak)
	assert.InDelta(t, 0.96, res.Confidence, 1e-9)
	assert.True(t, res.Meta.IsFullTime)
	assert.Equal(t, "m-1", res.Meta.MatchID)
	assert.Equal(t, "400x200", res.Meta.Resolution)
	assert.Equal(t, "landscape", res.Meta.Orientation)
	assert.Len(t, res.Meta.BytesHash, 64)
	assert.Nil(t, res.SideA.Penalties)

	stored, err := f.store.Load(context.Background(), "m-1", "u1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "efootball", stored.Game)
	assert.Equal(t, res.Confidence, stored.Result.Confidence)
}

func TestSentinelErrors(t *testing.T) {
	err := requireFields(&profile.Profile{}, VerifyInput{})
	assert.ErrorIs(t, err, ErrMissingField)
	assert.EqualError(t, err, "missing required field: matchId")
	assert.NotErrorIs(t, err, ErrVerdictNotFound)
	assert.Equal(t, "verdict not found", ErrVerdictNotFound.Error())
}

func TestVerifyRejectsBadInput(t *testing.T) {
	f := newFixture(t, false, Config{})
	ctx := context.Background()

	in := efootballInput(t, "u1")
	in.Form.MatchID = " "
	_, err := f.svc.Verify(ctx, in)
	assert.ErrorIs(t, err, ErrMissingField)

	in = efootballInput(t, "u1")
	in.Image = nil
	_, err = f.svc.Verify(ctx, in)
	assert.ErrorIs(t, err, ErrMissingField)

	in = efootballInput(t, "u1")
	in.Game = profile.DLS
	_, err = f.svc.Verify(ctx, in)
	assert.ErrorIs(t, err, ErrMissingField, "dls needs both game usernames")

	in = efootballInput(t, "u1")
	in.Game = "chess"
	_, err = f.svc.Verify(ctx, in)
	assert.ErrorIs(t, err, profile.ErrUnknownGame)

	in = efootballInput(t, "u1")
	in.TeamSize = 3
	_, err = f.svc.Verify(ctx, in)
	assert.ErrorIs(t, err, profile.ErrInvalidTeamSize)

	in = efootballInput(t, "u1")
	in.Image = []byte("not an image")
	_, err = f.svc.Verify(ctx, in)
	assert.ErrorIs(t, err, imaging.ErrDecode)
}

func TestVerifyDoesNotLeakWorkers(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	f := newFixture(t, false, Config{})
	f.svc.cfg.ExtractWorkers = 4
	f.svc.extractor = &scripted{}
	res, err := f.svc.Verify(context.Background(), efootballInput(t, "u1"))
	require.NoError(t, err)
	assert.Nil(t, res.SideA.Goals)
}

func payload(r domain.Result) verifydto.SubmissionPayload { return verifydto.NewSubmissionPayload(r) }

func TestCompare(t *testing.T) {
	f := newFixture(t, false, Config{})
	a := domain.Result{Meta: domain.Meta{IsFullTime: true}, Winner: domain.SideA, TieBreak: domain.TieBreakGoals, Confidence: 0.96}
	b := domain.Result{Winner: domain.SideB, TieBreak: domain.TieBreakGoals}

	req := &verifydto.CompareRequest{Submissions: []verifydto.SubmissionPayload{payload(a), {Result: b}}}
	v, err := f.svc.Compare(context.Background(), profile.Efootball, 0, req)
	require.NoError(t, err)
	// b carries no confidence and counts as 0.6
	assert.Equal(t, domain.Verdict{Preferred: domain.SideA, Winner: domain.SideA, TieBreak: domain.TieBreakGoals, Confidence: 0.83}, v)

	_, err = f.svc.Compare(context.Background(), profile.Efootball, 0, &verifydto.CompareRequest{Submissions: req.Submissions[:1]})
	assert.ErrorIs(t, err, ErrSubmissionsIncomplete)
}

func TestCompareAlignWindowOverride(t *testing.T) {
	a := domain.Result{Meta: domain.Meta{IsFullTime: true, Timestamp: "2026-03-01T10:00:00"}, Winner: domain.SideA, Confidence: 0.8}
	b := domain.Result{Meta: domain.Meta{IsFullTime: true}, Winner: domain.SideA, Confidence: 0.8}
	req := &verifydto.CompareRequest{
		Submissions:      []verifydto.SubmissionPayload{payload(a), payload(b)},
		ServerTimestamps: []string{"", "2026-03-01T10:10:00Z"},
	}

	v, err := newFixture(t, false, Config{}).svc.Compare(context.Background(), profile.DLS, 1, req)
	require.NoError(t, err)
	assert.False(t, v.Aligned, "ten minutes apart is outside the default window")

	window := 15 * time.Minute
	v, err = newFixture(t, false, Config{AlignWindow: &window}).svc.Compare(context.Background(), profile.DLS, 1, req)
	require.NoError(t, err)
	assert.True(t, v.Aligned)
	assert.Equal(t, domain.SideB, v.Preferred, "later timestamp wins when both are complete")
	assert.InDelta(t, 0.89, v.Confidence, 1e-9)
}

func TestCompareStoredPersistsAndNotifies(t *testing.T) {
	f := newFixture(t, true, Config{})
	ctx := context.Background()

	_, err := f.svc.CompareStored(ctx, "m-1", profile.Efootball, 0)
	assert.ErrorIs(t, err, ErrSubmissionsIncomplete)

	for _, u := range []string{"u1", "u2"} {
		f.rescript(t, profile.Efootball, efootballTexts)
		_, err := f.svc.Verify(ctx, efootballInput(t, u))
		require.NoError(t, err)
	}

	out, err := f.svc.CompareStored(ctx, "m-1", profile.Efootball, 0)
	require.NoError(t, err)
	assert.Equal(t, [2]string{"u1", "u2"}, out.UserIDs)
	assert.Equal(t, domain.SideA, out.Verdict.Winner)
	assert.True(t, out.Verdict.Aligned, "server receive times stand in for missing capture times")
	assert.InDelta(t, 0.99, out.Verdict.Confidence, 1e-9)

	rec, err := f.repo.GetVerdict(ctx, "m-1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, out.Verdict, rec.Verdict)
	assert.Equal(t, "Alpha", rec.SubmissionA.SideA.UserName)

	require.Len(t, f.egress.events, 1)
	assert.Equal(t, "m-1", f.egress.events[0].MatchID)

	got, err := f.svc.Verdict(ctx, "m-1")
	require.NoError(t, err)
	assert.Equal(t, out.Verdict, got.Verdict)
	assert.Equal(t, out.UserIDs, got.UserIDs)

	_, err = f.svc.Verdict(ctx, "m-404")
	assert.ErrorIs(t, err, ErrVerdictNotFound)
}

func TestCompareStoredIgnoresOtherGames(t *testing.T) {
	f := newFixture(t, true, Config{})
	ctx := context.Background()
	require.NoError(t, f.store.Save(ctx, &store.Submission{MatchID: "m-2", UserID: "u1", Game: "fcm", TeamSize: 1}))
	require.NoError(t, f.store.Save(ctx, &store.Submission{MatchID: "m-2", UserID: "u2", Game: "efootball", TeamSize: 1}))

	_, err := f.svc.CompareStored(ctx, "m-2", profile.Efootball, 0)
	assert.ErrorIs(t, err, ErrSubmissionsIncomplete)
}

func TestCompareStoredWithoutStore(t *testing.T) {
	f := newFixture(t, false, Config{})
	_, err := f.svc.CompareStored(context.Background(), "m-1", profile.Efootball, 0)
	assert.True(t, errors.Is(err, ErrStoreUnavailable))
}

func TestListProfiles(t *testing.T) {
	f := newFixture(t, false, Config{})
	infos := f.svc.Profiles()
	require.Len(t, infos, 7)
	assert.Equal(t, "efootball/1v1", infos[0].Key)
	assert.Equal(t, "title_full_time", infos[0].Regions[0])
	assert.Equal(t, 4, infos[len(infos)-1].TeamSize)
}
