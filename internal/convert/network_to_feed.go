package convert

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/JonMunkholm/transitconv/internal/feed"
	"github.com/JonMunkholm/transitconv/internal/network"
	"github.com/JonMunkholm/transitconv/internal/projection"
	"github.com/JonMunkholm/transitconv/internal/table"
	"github.com/JonMunkholm/transitconv/internal/timecodec"
)

// routeTypes maps transport system codes to feed route types.
var routeTypes = map[string]string{
	"TRAM": "0", "STR": "0",
	"U": "1", "UBAHN": "1", "METRO": "1",
	"S": "2", "SBAHN": "2", "ZUG": "2", "RB": "2", "RE": "2", "IC": "2",
	"BUS": "3",
	"F": "4", "FAEHRE": "4", "SCHIFF": "4",
	"SEILBAHN": "6",
}

// directions maps direction codes to feed direction ids.
var directions = map[string]string{">": "0", "<": "1"}

var tripsMapping = MustMapping(network.Journey, feed.Trips,
	Rule{Dest: "trip_id", Source: "NR", Kind: Cast},
	Rule{Dest: "route_id", Source: "LINNAME", Kind: Identity},
	Rule{Dest: "service_id", Source: "VERKEHRSTAGNR", Kind: Cast},
	Rule{Dest: "trip_headsign", Source: "NAME", Kind: Identity},
	Rule{Dest: "direction_id", Source: "RICHTUNGCODE", Kind: Lookup, Lookup: directions},
)

func (c *Converter) agencyMapping() *Mapping {
	return MustMapping(network.Operator, feed.Agency,
		Rule{Dest: "agency_id", Source: "NR", Kind: Cast},
		Rule{Dest: "agency_name", Source: "NAME", Kind: Identity},
		Rule{Dest: "agency_url", Const: c.settings.AgencyURL},
		Rule{Dest: "agency_timezone", Const: c.settings.AgencyTimezone},
	)
}

// calendarMapping marks every day type active on all weekdays: day types
// carry no weekday information, so none is invented.
func (c *Converter) calendarMapping() *Mapping {
	rules := []Rule{
		{Dest: "service_id", Source: "NR", Kind: Cast},
		{Dest: "start_date", Const: table.FormatDate(c.settings.ServiceStart)},
		{Dest: "end_date", Const: table.FormatDate(c.settings.ServiceEnd)},
	}
	for _, day := range []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"} {
		rules = append(rules, Rule{Dest: day, Const: "1"})
	}
	return MustMapping(network.DayType, feed.Calendar, rules...)
}

func (c *Converter) routesMapping() *Mapping {
	return MustMapping(network.Line, feed.Routes,
		Rule{Dest: "route_id", Source: "NAME", Kind: Identity},
		Rule{Dest: "route_short_name", Source: "NAME", Kind: Identity},
		Rule{Dest: "route_long_name", Source: "LANGNAME", Kind: Identity},
		Rule{Dest: "agency_id", Source: "BETREIBERNR", Kind: Cast},
		Rule{Dest: "route_type", Source: "VSYSCODE", Kind: Lookup, Lookup: routeTypes,
			Default: strconv.Itoa(c.settings.DefaultRouteType)},
	)
}

// stopsMapping reprojects the planar coordinates once for both columns.
func (c *Converter) stopsMapping(src *network.File) *Mapping {
	var (
		points  []projection.Point
		present []bool
		err     error
		done    bool
	)
	coords := func() ([]projection.Point, []bool, error) {
		if !done {
			points, present, err = src.Coordinates(network.Stop.Name(), c.registry, projection.WGS84)
			done = true
		}
		return points, present, err
	}
	axis := func(lat bool) DeriveFunc {
		return func(*table.Table) ([]string, []bool, error) {
			pts, ok, err := coords()
			if err != nil {
				return nil, nil, err
			}
			out := make([]string, len(pts))
			for i, p := range pts {
				if lat {
					out[i] = table.FormatReal(p.Y)
				} else {
					out[i] = table.FormatReal(p.X)
				}
			}
			return out, ok, nil
		}
	}

	return MustMapping(network.Stop, feed.Stops,
		Rule{Dest: "stop_id", Source: "NR", Kind: Cast},
		Rule{Dest: "stop_code", Source: "CODE", Kind: Identity},
		Rule{Dest: "stop_name", Source: "NAME", Kind: Identity},
		Rule{Dest: "stop_lat", Derive: axis(true), Kind: Derived},
		Rule{Dest: "stop_lon", Derive: axis(false), Kind: Derived},
	)
}

// NetworkToFeed converts every supported section of src into dst.
func (c *Converter) NetworkToFeed(src *network.File, dst *feed.Archive) (Report, error) {
	j := c.start(NetworkToFeed)

	steps := []struct {
		section string
		mapping *Mapping
	}{
		{network.Operator.Name(), c.agencyMapping()},
		{network.DayType.Name(), c.calendarMapping()},
		{network.Stop.Name(), c.stopsMapping(src)},
		{network.Line.Name(), c.routesMapping()},
		{network.Journey.Name(), tripsMapping},
	}

	for _, s := range steps {
		in, err := src.Table(s.section)
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

	times, err := c.stopTimes(j, src)
	if err != nil {
		return j.report, err
	}
	if err := dst.Set(times); err != nil {
		return j.report, err
	}

	return j.finish(), nil
}

type profileKey struct {
	line, route, direction, profile string
}

// stopTimes joins each journey with the elements of its time profile. Stop
// times are the journey departure plus the element offsets.
func (c *Converter) stopTimes(j *job, src *network.File) (*table.Table, error) {
	journeys, err := src.Table(network.Journey.Name())
	if err != nil {
		return nil, err
	}
	elements, err := src.Table(network.ProfileElement.Name())
	if err != nil {
		return nil, err
	}

	profiles := make(map[profileKey][]int)
	for row := range elements.Rows() {
		k := profileKey{
			line:      textField(row, network.ElementLine),
			route:     textField(row, network.ElementRoute),
			direction: textField(row, network.ElementDirection),
			profile:   textField(row, network.ElementProfile),
		}
		profiles[k] = append(profiles[k], row.Index())
	}
	for _, rows := range profiles {
		slices.SortFunc(rows, func(a, b int) int {
			ia, _ := table.Get(elements, network.ElementIndex, a)
			ib, _ := table.Get(elements, network.ElementIndex, b)
			return cmp.Compare(ia, ib)
		})
	}

	out := table.New(feed.StopTimes)
	defaulted := 0

	for jr := range journeys.Rows() {
		nr, _ := table.Field(jr, network.JourneyNR)
		dep, ok := table.Field(jr, network.JourneyDeparture)
		if !ok {
			j.logger.Warn("journey without departure skipped", "journey", nr)
			defaulted++
			continue
		}
		k := profileKey{
			line:      textField(jr, network.JourneyLine),
			route:     textField(jr, network.JourneyRoute),
			direction: textField(jr, network.JourneyDirection),
			profile:   textField(jr, network.JourneyProfile),
		}
		rows, ok := profiles[k]
		if !ok {
			j.logger.Warn("journey references unknown time profile",
				"journey", nr,
				"line", k.line,
				"route", k.route,
				"direction", k.direction,
				"profile", k.profile,
			)
			defaulted++
			continue
		}

		start := timecodec.Format(dep)
		for _, er := range rows {
			i := out.Len()
			if err := out.AddRows(1); err != nil {
				return nil, err
			}
			table.Set(out, feed.StopTimeTripID, i, table.FormatInteger(nr))

			idx, _ := table.Get(elements, network.ElementIndex, er)
			table.Set(out, feed.StopTimeSequence, i, idx)

			if stop, ok := table.Get(elements, network.ElementStopNR, er); ok {
				table.Set(out, feed.StopTimeStopID, i, table.FormatInteger(stop))
			}

			arr, arrOK := table.Get(elements, network.ElementArrival, er)
			off, depOK := table.Get(elements, network.ElementDeparture, er)
			if !arrOK {
				arr = off
			}
			if !depOK {
				off = arr
			}
			if arrOK || depOK {
				if err := stackTime(out, feed.StopTimeArrival, i, start, arr); err != nil {
					return nil, err
				}
				if err := stackTime(out, feed.StopTimeDeparture, i, start, off); err != nil {
					return nil, err
				}
			}

			if board, ok := table.Get(elements, network.ElementBoard, er); ok && board == 0 {
				setRaw(out, "pickup_type", i, "1")
			}
			if alight, ok := table.Get(elements, network.ElementAlight, er); ok && alight == 0 {
				setRaw(out, "drop_off_type", i, "1")
			}
		}
	}

	j.report.Rows[out.Name()] = out.Len()
	j.report.Defaulted += defaulted
	j.logger.Debug("stop times built", "rows", out.Len(), "journeys", journeys.Len())
	return out, nil
}

// stackTime stores start + offset, keeping hours past midnight unwrapped.
func stackTime(t *table.Table, c table.Col[time.Duration], row int, start string, offset time.Duration) error {
	sum, err := timecodec.SumOfTwoTimes(start, timecodec.Format(offset))
	if err != nil {
		return fmt.Errorf("stop time row %d: %w", row, err)
	}
	return t.SetRaw(c.Pos(), row, sum)
}

func setRaw(t *table.Table, column string, row int, raw string) {
	pos, ok := t.Schema().Lookup(column)
	if !ok {
		panic(fmt.Sprintf("convert: %s has no column %s", t.Name(), column))
	}
	if err := t.SetRaw(pos, row, raw); err != nil {
		panic(fmt.Sprintf("convert: %v", err))
	}
}

// textField returns the cell text, or the column default when missing.
func textField(r table.Row, c table.Col[string]) string {
	v, _ := table.Field(r, c)
	return v
}
