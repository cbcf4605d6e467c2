// Package projection resolves EPSG/ESRI codes to coordinate transforms and
// caches them for the lifetime of a Registry.
package projection

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"
)

// DefaultNetworkEPSG is the source projection assumed for network files
// that do not say otherwise (sphere Mercator, R = 6371000).
const DefaultNetworkEPSG = 53004

// WGS84 is the geographic system feeds use for stop coordinates.
const WGS84 = 4326

// ErrUnknownProjection is returned for malformed codes and for transforms
// involving a code with no known definition.
var ErrUnknownProjection = errors.New("unknown projection")

//go:embed definitions.yaml
var builtinDefinitions []byte

// Definition describes one coordinate reference system.
type Definition struct {
	Code    int     `yaml:"code"`
	Aliases []int   `yaml:"aliases"`
	Name    string  `yaml:"name"`
	Proj    string  `yaml:"proj"`
	Radius  float64 `yaml:"radius"`
	Ellps   string  `yaml:"ellps"`
	Zone    int     `yaml:"zone"`
	South   bool    `yaml:"south"`
}

type definitionFile struct {
	Definitions []Definition `yaml:"definitions"`
}

// Projection is a resolved (or known-unresolvable) code.
type Projection struct {
	Code int
	Name string
	m    method
}

// Resolved reports whether the projection has a usable definition.
func (p *Projection) Resolved() bool { return p.m != nil }

// Geographic reports whether coordinates are longitude/latitude degrees.
func (p *Projection) Geographic() bool {
	_, ok := p.m.(longLat)
	return ok
}

// Point is a transformed coordinate. For geographic targets X is longitude
// and Y latitude in degrees.
type Point struct {
	X, Y, Z float64
}

// Registry caches projections by numeric code. Safe for concurrent use.
type Registry struct {
	mu     sync.Mutex
	defs   map[int]Definition
	cache  map[int]*Projection
	logger *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry) error

// WithDefinitions overlays definitions read from a YAML document with the
// same layout as the built-in definitions. Later definitions replace
// earlier ones with the same code.
func WithDefinitions(r io.Reader) Option {
	return func(reg *Registry) error {
		data, err := io.ReadAll(r)
		if err != nil {
			return fmt.Errorf("read projection definitions: %w", err)
		}
		return reg.load(data)
	}
}

// WithLogger sets the logger used for resolution messages.
func WithLogger(l *slog.Logger) Option {
	return func(reg *Registry) error {
		if l != nil {
			reg.logger = l
		}
		return nil
	}
}

// NewRegistry builds a registry from the built-in definitions plus any
// overlays, and pre-resolves DefaultNetworkEPSG.
func NewRegistry(opts ...Option) (*Registry, error) {
	reg := &Registry{
		defs:   make(map[int]Definition),
		cache:  make(map[int]*Projection),
		logger: slog.New(slog.DiscardHandler),
	}
	if err := reg.load(builtinDefinitions); err != nil {
		return nil, fmt.Errorf("built-in definitions: %w", err)
	}
	for _, opt := range opts {
		if err := opt(reg); err != nil {
			return nil, err
		}
	}

	p, err := reg.Lookup(DefaultNetworkEPSG)
	if err != nil {
		return nil, err
	}
	if !p.Resolved() {
		return nil, fmt.Errorf("%w: default network projection %d has no definition",
			ErrUnknownProjection, DefaultNetworkEPSG)
	}
	return reg, nil
}

func (r *Registry) load(data []byte) error {
	var f definitionFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse projection definitions: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, d := range f.Definitions {
		if d.Code <= 0 {
			return fmt.Errorf("projection definition %q: code must be positive", d.Name)
		}
		if _, err := newMethod(d); err != nil {
			return err
		}
		r.defs[d.Code] = d
		delete(r.cache, d.Code)
		for _, alias := range d.Aliases {
			r.defs[alias] = d
			delete(r.cache, alias)
		}
	}
	return nil
}

var codePattern = regexp.MustCompile(`(?i)^\s*(?:(?:EPSG|ESRI)\s*:\s*)?(\d+)\s*$`)

// ParseCode extracts the numeric code from "4326", "EPSG:4326" or
// "ESRI:53004".
func ParseCode(code string) (int, error) {
	m := codePattern.FindStringSubmatch(code)
	if m == nil {
		return 0, fmt.Errorf("%w: malformed code %q", ErrUnknownProjection, code)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: malformed code %q", ErrUnknownProjection, code)
	}
	return n, nil
}

// Get resolves a textual code. Only malformed codes fail; a well-formed code
// without a definition yields an unresolved projection.
func (r *Registry) Get(code string) (*Projection, error) {
	n, err := ParseCode(code)
	if err != nil {
		return nil, err
	}
	return r.Lookup(n)
}

// Lookup resolves a numeric code, caching the result.
func (r *Registry) Lookup(code int) (*Projection, error) {
	if code <= 0 {
		return nil, fmt.Errorf("%w: malformed code %d", ErrUnknownProjection, code)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.cache[code]; ok {
		return p, nil
	}

	p := &Projection{Code: code}
	if d, ok := r.defs[code]; ok {
		m, err := newMethod(d)
		if err != nil {
			return nil, err
		}
		p.Name = d.Name
		p.m = m
		r.logger.Debug("projection resolved", "code", code, "name", d.Name)
	} else {
		r.logger.Debug("projection has no definition", "code", code)
	}
	r.cache[code] = p
	return p, nil
}

func (r *Registry) pair(from, to int) (*Projection, *Projection, error) {
	src, err := r.Lookup(from)
	if err != nil {
		return nil, nil, err
	}
	dst, err := r.Lookup(to)
	if err != nil {
		return nil, nil, err
	}
	if !src.Resolved() {
		return nil, nil, fmt.Errorf("%w: no definition for %d", ErrUnknownProjection, from)
	}
	if !dst.Resolved() {
		return nil, nil, fmt.Errorf("%w: no definition for %d", ErrUnknownProjection, to)
	}
	return src, dst, nil
}

// Transform converts one coordinate from one system to another. z passes
// through unchanged.
func (r *Registry) Transform(from, to int, x, y, z float64) (Point, error) {
	src, dst, err := r.pair(from, to)
	if err != nil {
		return Point{}, err
	}
	return convert(src, dst, x, y, z)
}

// TransformAll converts a column pair in one call. xs and ys must have the
// same length.
func (r *Registry) TransformAll(from, to int, xs, ys []float64) ([]Point, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("transform: %d x values but %d y values", len(xs), len(ys))
	}
	src, dst, err := r.pair(from, to)
	if err != nil {
		return nil, err
	}

	out := make([]Point, len(xs))
	for i := range xs {
		p, err := convert(src, dst, xs[i], ys[i], 0)
		if err != nil {
			return nil, fmt.Errorf("point %d: %w", i, err)
		}
		out[i] = p
	}
	return out, nil
}

func convert(src, dst *Projection, x, y, z float64) (Point, error) {
	if src.Code == dst.Code {
		return Point{X: x, Y: y, Z: z}, nil
	}
	lon, lat, err := src.m.inverse(x, y)
	if err != nil {
		return Point{}, err
	}
	px, py, err := dst.m.forward(lon, lat)
	if err != nil {
		return Point{}, err
	}
	return Point{X: px, Y: py, Z: z}, nil
}
