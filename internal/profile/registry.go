package profile

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	yaml "gopkg.in/yaml.v3"
)

//go:embed layouts/*.yaml
var layoutFiles embed.FS

// DefaultLayout is used when a request names no layout version or an unknown one.
const DefaultLayout = "v1"

var (
	ErrUnknownGame     = errors.New("unknown game")
	ErrInvalidTeamSize = errors.New("unsupported team size")
)

// ROI is a normalized region [x0, y0, x1, y1] in 0..1 image coordinates.
type ROI [4]float64

func (r ROI) valid() bool {
	for _, v := range r {
		if v < 0 || v > 1 {
			return false
		}
	}
	return r[0] < r[2] && r[1] < r[3]
}

// Layout is one versioned geometry plus label dictionary for a profile.
type Layout struct {
	Version string
	Regions map[string]ROI
	Labels  map[string][]string
}

type layoutDoc struct {
	Regions map[string]ROI      `yaml:"regions"`
	Members map[string][]ROI    `yaml:"members"`
	Labels  map[string][]string `yaml:"labels"`
}

type profileDoc struct {
	Game     string               `yaml:"game"`
	TeamSize int                  `yaml:"teamSize"`
	Layouts  map[string]layoutDoc `yaml:"layouts"`
}

// Registry resolves (game, team size, layout version) to a ready profile.
// Profiles are read-only once the registry is built.
type Registry struct {
	profiles map[string]map[string]*Profile // key -> layout version -> profile
	logger   *zap.Logger
}

// NewRegistry loads the embedded layouts, then overrides from dir when set.
func NewRegistry(overrideDir string, logger *zap.Logger) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	docs := make(map[string]map[string]layoutDoc)
	embedded, err := fs.Glob(layoutFiles, "layouts/*.yaml")
	if err != nil {
		return nil, err
	}
	sort.Strings(embedded)
	for _, name := range embedded {
		b, err := fs.ReadFile(layoutFiles, name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		if err := mergeDoc(docs, b, name); err != nil {
			return nil, err
		}
	}
	if strings.TrimSpace(overrideDir) != "" {
		if err := applyDir(docs, overrideDir); err != nil {
			return nil, err
		}
	}

	r := &Registry{profiles: make(map[string]map[string]*Profile), logger: logger}
	for _, base := range builtins() {
		versions, ok := docs[base.Key()]
		if !ok || len(versions) == 0 {
			return nil, fmt.Errorf("no layout for profile %s", base.Key())
		}
		r.profiles[base.Key()] = make(map[string]*Profile, len(versions))
		for ver, doc := range versions {
			layout, err := buildLayout(ver, doc)
			if err != nil {
				return nil, fmt.Errorf("profile %s layout %s: %w", base.Key(), ver, err)
			}
			p := *base
			p.Layout = layout
			if err := validate(&p); err != nil {
				return nil, fmt.Errorf("profile %s layout %s: %w", base.Key(), ver, err)
			}
			r.profiles[base.Key()][ver] = &p
		}
	}
	return r, nil
}

func applyDir(docs map[string]map[string]layoutDoc, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read profile dir: %w", err)
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	for _, name := range files {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if err := mergeDoc(docs, b, name); err != nil {
			return err
		}
	}
	return nil
}

func mergeDoc(docs map[string]map[string]layoutDoc, b []byte, name string) error {
	var doc profileDoc
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	g, ok := ParseGame(doc.Game)
	if !ok {
		return fmt.Errorf("parse %s: %w %q", name, ErrUnknownGame, doc.Game)
	}
	k := key(g, doc.TeamSize)
	if docs[k] == nil {
		docs[k] = make(map[string]layoutDoc)
	}
	for ver, l := range doc.Layouts {
		docs[k][strings.TrimSpace(ver)] = l
	}
	return nil
}

func buildLayout(ver string, doc layoutDoc) (Layout, error) {
	l := Layout{Version: ver, Regions: make(map[string]ROI), Labels: make(map[string][]string)}
	for name, roi := range doc.Regions {
		l.Regions[name] = roi
	}
	for name, rois := range doc.Members {
		for i, roi := range rois {
			region := MemberRegion(name, i)
			if _, dup := l.Regions[region]; dup {
				return Layout{}, fmt.Errorf("region %s defined twice", region)
			}
			l.Regions[region] = roi
		}
	}
	for k, v := range doc.Labels {
		l.Labels[k] = append([]string(nil), v...)
	}
	return l, nil
}

func validate(p *Profile) error {
	for _, region := range p.Regions() {
		roi, ok := p.Layout.Regions[region]
		if !ok {
			return fmt.Errorf("missing region %s", region)
		}
		if !roi.valid() {
			return fmt.Errorf("invalid region %s: %v", region, roi)
		}
	}
	if p.FullTime != nil {
		for _, k := range p.FullTime.Labels {
			if len(p.Layout.Labels[k]) == 0 {
				return fmt.Errorf("missing label variants for %s", k)
			}
		}
	}
	return nil
}

// Get returns the profile for a game, team size and layout version. A zero team
// size selects the game's default; an unknown layout falls back to DefaultLayout.
func (r *Registry) Get(game Game, teamSize int, layoutVersion string) (*Profile, error) {
	if _, ok := ParseGame(string(game)); !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGame, game)
	}
	if teamSize == 0 {
		teamSize = DefaultTeamSize(game)
	}
	versions, ok := r.profiles[key(game, teamSize)]
	if !ok {
		return nil, fmt.Errorf("%w: %s %d", ErrInvalidTeamSize, game, teamSize)
	}
	ver := strings.TrimSpace(layoutVersion)
	if ver == "" {
		ver = DefaultLayout
	}
	if p, ok := versions[ver]; ok {
		return p, nil
	}
	r.logger.Warn("layout_fallback", zap.String("game", string(game)), zap.String("requested", ver))
	if p, ok := versions[DefaultLayout]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("no %s layout for %s", DefaultLayout, key(game, teamSize))
}

// Keys lists registered profile keys in sorted order.
func (r *Registry) Keys() []string {
	out := make([]string, 0, len(r.profiles))
	for k := range r.profiles {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
