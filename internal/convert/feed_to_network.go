package convert

import (
	"fmt"
	"strconv"

	"github.com/JonMunkholm/transitconv/internal/feed"
	"github.com/JonMunkholm/transitconv/internal/network"
	"github.com/JonMunkholm/transitconv/internal/projection"
	"github.com/JonMunkholm/transitconv/internal/table"
)

// numericIDs derives network numbers from a feed identifier column. When
// every identifier is a positive integer it is kept; otherwise rows are
// numbered from 1 in file order so that numbers stay unique.
func numericIDs(column string) DeriveFunc {
	return func(src *table.Table) ([]string, []bool, error) {
		pos, ok := src.Schema().Lookup(column)
		if !ok {
			return nil, nil, fmt.Errorf("%s has no column %s", src.Name(), column)
		}

		n := src.Len()
		values := make([]string, n)
		present := make([]bool, n)
		numeric := true
		for row := 0; row < n; row++ {
			raw, ok := src.Format(pos, row)
			if !ok {
				numeric = false
				break
			}
			if v, err := strconv.ParseInt(raw, 10, 64); err != nil || v <= 0 {
				numeric = false
				break
			}
			values[row] = raw
			present[row] = true
		}
		if !numeric {
			for row := 0; row < n; row++ {
				values[row] = strconv.Itoa(row + 1)
				present[row] = true
			}
		}
		return values, present, nil
	}
}

var (
	operatorMapping = MustMapping(feed.Agency, network.Operator,
		Rule{Dest: "NR", Derive: numericIDs("agency_id"), Kind: Derived},
		Rule{Dest: "CODE", Source: "agency_id", Kind: Identity},
		Rule{Dest: "NAME", Source: "agency_name", Kind: Identity},
	)

	dayTypeMapping = MustMapping(feed.Calendar, network.DayType,
		Rule{Dest: "NR", Derive: numericIDs("service_id"), Kind: Derived},
		Rule{Dest: "CODE", Source: "service_id", Kind: Identity},
		Rule{Dest: "NAME", Source: "service_id", Kind: Identity},
	)
)

// stopSectionMapping projects stop positions into the target system.
func (c *Converter) stopSectionMapping(toEPSG int) *Mapping {
	var (
		points []projection.Point
		err    error
		done   bool
	)
	project := func(src *table.Table) ([]projection.Point, error) {
		if !done {
			lons, _ := table.Values(src, feed.StopLon)
			lats, _ := table.Values(src, feed.StopLat)
			points, err = c.registry.TransformAll(projection.WGS84, toEPSG, lons, lats)
			done = true
		}
		return points, err
	}
	axis := func(y bool) DeriveFunc {
		return func(src *table.Table) ([]string, []bool, error) {
			pts, err := project(src)
			if err != nil {
				return nil, nil, err
			}
			_, lonOK := table.Values(src, feed.StopLon)
			_, latOK := table.Values(src, feed.StopLat)
			out := make([]string, len(pts))
			ok := make([]bool, len(pts))
			for i, p := range pts {
				ok[i] = lonOK[i] && latOK[i]
				if y {
					out[i] = table.FormatReal(p.Y)
				} else {
					out[i] = table.FormatReal(p.X)
				}
			}
			return out, ok, nil
		}
	}

	return MustMapping(feed.Stops, network.Stop,
		Rule{Dest: "NR", Derive: numericIDs("stop_id"), Kind: Derived},
		Rule{Dest: "CODE", Source: "stop_id", Kind: Identity},
		Rule{Dest: "NAME", Source: "stop_name", Kind: Identity},
		Rule{Dest: "XKOORD", Derive: axis(false), Kind: Derived},
		Rule{Dest: "YKOORD", Derive: axis(true), Kind: Derived},
	)
}

// FeedToNetwork converts operators, day types and stops of src into dst.
// Coordinates are projected into dst's source projection, which is also
// declared in the VERSION section.
func (c *Converter) FeedToNetwork(src *feed.Archive, dst *network.File) (Report, error) {
	j := c.start(FeedToNetwork)
	toEPSG := dst.SourceEPSG()

	version := table.New(network.Version)
	if err := version.AddRows(1); err != nil {
		return j.report, err
	}
	for i := range network.Version.Columns() {
		if spec := network.Version.Column(i); spec.Default != "" {
			if err := version.SetRaw(i, 0, spec.Default); err != nil {
				return j.report, err
			}
		}
	}
	table.Set(version, network.VersionProjection, 0, fmt.Sprintf("EPSG:%d", toEPSG))
	if err := dst.Set(version); err != nil {
		return j.report, err
	}

	steps := []struct {
		entity  string
		mapping *Mapping
	}{
		{feed.Agency.Name(), operatorMapping},
		{feed.Calendar.Name(), dayTypeMapping},
		{feed.Stops.Name(), c.stopSectionMapping(toEPSG)},
	}

	for _, s := range steps {
		in, err := src.Table(s.entity)
		if err != nil {
			return j.report, err
		}
		out, err := j.apply(s.mapping, in)
		if err != nil {
			return j.report, err
		}
		if err := dst.Set(out); err != nil {
			return j.report, err
		}
	}

	return j.finish(), nil
}
