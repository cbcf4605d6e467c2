// Package convert maps tables between the network file and feed formats.
//
// Each destination table is produced by a Mapping: a list of per-column
// rules bound to a source and a destination schema. Rules are checked when
// the mapping is built, so a misspelled column fails at startup. Tables
// that are joins rather than row-for-row copies (stop times) are built by
// dedicated code on top of the same table API.
package convert

import (
	"fmt"
	"log/slog"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"

	"github.com/JonMunkholm/transitconv/internal/projection"
	"github.com/JonMunkholm/transitconv/internal/table"
)

// Direction names a conversion.
type Direction string

const (
	NetworkToFeed Direction = "network-to-feed"
	FeedToNetwork Direction = "feed-to-network"
)

// Settings are the values the source format has no analogue for.
type Settings struct {
	AgencyURL        string
	AgencyTimezone   string
	ServiceStart     time.Time
	ServiceEnd       time.Time
	DefaultRouteType int
}

// DefaultSettings returns the fixed defaults used when nothing is
// configured: a ten year service window and bus as route type.
func DefaultSettings() Settings {
	return Settings{
		AgencyURL:        "http://www.example.org",
		AgencyTimezone:   "Europe/Berlin",
		ServiceStart:     time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		ServiceEnd:       time.Date(2030, 12, 31, 0, 0, 0, 0, time.UTC),
		DefaultRouteType: 3,
	}
}

// Validate reports settings that would produce an invalid feed.
func (s Settings) Validate() error {
	if s.AgencyURL == "" {
		return fmt.Errorf("%w: agency url is empty", table.ErrValidation)
	}
	if s.AgencyTimezone == "" {
		return fmt.Errorf("%w: agency timezone is empty", table.ErrValidation)
	}
	if _, err := time.LoadLocation(s.AgencyTimezone); err != nil {
		return fmt.Errorf("%w: agency timezone %q: %v", table.ErrValidation, s.AgencyTimezone, err)
	}
	if s.ServiceEnd.Before(s.ServiceStart) {
		return fmt.Errorf("%w: service window ends before it starts", table.ErrValidation)
	}
	if s.DefaultRouteType < 0 {
		return fmt.Errorf("%w: default route type %d", table.ErrValidation, s.DefaultRouteType)
	}
	return nil
}

// Report summarises one conversion run.
type Report struct {
	JobID     string
	Direction Direction
	Rows      map[string]int // destination rows per table
	Defaulted int            // cells that fell back to a default
	Started   time.Time
	Duration  time.Duration
}

// Converter runs conversions. It holds no per-job state and may be shared.
type Converter struct {
	settings Settings
	registry *projection.Registry
	logger   *slog.Logger
}

// Option configures a Converter.
type Option func(*Converter)

// WithLogger sets the logger. Every run adds its job id.
func WithLogger(l *slog.Logger) Option {
	return func(c *Converter) {
		if l != nil {
			c.logger = l
		}
	}
}

// New returns a Converter using reg for coordinate reprojection.
func New(reg *projection.Registry, settings Settings, opts ...Option) (*Converter, error) {
	if reg == nil {
		return nil, fmt.Errorf("%w: nil projection registry", table.ErrValidation)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	c := &Converter{
		settings: settings,
		registry: reg,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// job carries the state of one run.
type job struct {
	report Report
	logger *slog.Logger
}

func (c *Converter) start(dir Direction) *job {
	id := uuid.NewString()
	return &job{
		report: Report{
			JobID:     id,
			Direction: dir,
			Rows:      make(map[string]int),
			Started:   time.Now(),
		},
		logger: c.logger.With("job_id", id, "direction", string(dir)),
	}
}

// apply runs m over src and records the result.
func (j *job) apply(m *Mapping, src *table.Table) (*table.Table, error) {
	dst, defaulted, err := m.Apply(src, j.logger)
	if err != nil {
		j.logger.Error("conversion aborted", "mapping", m.Name(), "error", err)
		return nil, err
	}
	j.report.Rows[dst.Name()] = dst.Len()
	j.report.Defaulted += defaulted
	j.logger.Debug("table converted",
		"mapping", m.Name(),
		"rows", dst.Len(),
		"defaulted", defaulted,
	)
	return dst, nil
}

func (j *job) finish() Report {
	j.report.Duration = time.Since(j.report.Started)
	j.logger.Info("conversion finished",
		"tables", len(j.report.Rows),
		"defaulted", j.report.Defaulted,
		"duration", j.report.Duration,
	)
	return j.report
}
