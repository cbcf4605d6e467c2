package network

import (
	"time"

	"github.com/JonMunkholm/transitconv/internal/table"
)

// Section schemas. Names are the section markers written by the legacy
// planning tool.
var (
	Version = table.MustSchema("VERSION",
		table.ColumnSpec{Name: "VERSNR", Type: table.TypeReal, Default: "10"},
		table.ColumnSpec{Name: "FILETYPE", Type: table.TypeText, Default: "Net"},
		table.ColumnSpec{Name: "LANGUAGE", Type: table.TypeText, Default: "DEU"},
		table.ColumnSpec{Name: "UNIT", Type: table.TypeText, Default: "KM"},
		table.ColumnSpec{Name: "PROJECTION", Type: table.TypeText, Nullable: true},
	)

	Operator = table.MustSchema("BETREIBER",
		table.ColumnSpec{Name: "NR", Type: table.TypeInteger, Key: true},
		table.ColumnSpec{Name: "CODE", Type: table.TypeText, Nullable: true},
		table.ColumnSpec{Name: "NAME", Type: table.TypeText},
	)

	DayType = table.MustSchema("VERKEHRSTAG",
		table.ColumnSpec{Name: "NR", Type: table.TypeInteger, Key: true},
		table.ColumnSpec{Name: "CODE", Type: table.TypeText, Nullable: true},
		table.ColumnSpec{Name: "NAME", Type: table.TypeText},
	)

	TransportSystem = table.MustSchema("VSYS",
		table.ColumnSpec{Name: "CODE", Type: table.TypeText, Key: true},
		table.ColumnSpec{Name: "NAME", Type: table.TypeText},
		table.ColumnSpec{Name: "TYP", Type: table.TypeEnum, Default: "OV",
			EnumValues: []string{"OV", "IV", "OVFUSS", "OVZUB"}},
	)

	Stop = table.MustSchema("HALTESTELLE",
		table.ColumnSpec{Name: "NR", Type: table.TypeInteger, Key: true},
		table.ColumnSpec{Name: "CODE", Type: table.TypeText, Nullable: true},
		table.ColumnSpec{Name: "NAME", Type: table.TypeText},
		table.ColumnSpec{Name: "TYPNR", Type: table.TypeInteger, Default: "0"},
		table.ColumnSpec{Name: "XKOORD", Type: table.TypeReal},
		table.ColumnSpec{Name: "YKOORD", Type: table.TypeReal},
	)

	Line = table.MustSchema("LINIE",
		table.ColumnSpec{Name: "NAME", Type: table.TypeText, Key: true},
		table.ColumnSpec{Name: "VSYSCODE", Type: table.TypeText},
		table.ColumnSpec{Name: "BETREIBERNR", Type: table.TypeInteger, Nullable: true},
		table.ColumnSpec{Name: "LANGNAME", Type: table.TypeText, Nullable: true},
	)

	Journey = table.MustSchema("FAHRPLANFAHRT",
		table.ColumnSpec{Name: "NR", Type: table.TypeInteger, Key: true},
		table.ColumnSpec{Name: "NAME", Type: table.TypeText, Nullable: true},
		table.ColumnSpec{Name: "ABFAHRT", Type: table.TypeTimeOfDay},
		table.ColumnSpec{Name: "LINNAME", Type: table.TypeText},
		table.ColumnSpec{Name: "LINROUTENAME", Type: table.TypeText},
		table.ColumnSpec{Name: "RICHTUNGCODE", Type: table.TypeText, Default: ">"},
		table.ColumnSpec{Name: "FZPROFILNAME", Type: table.TypeText},
		table.ColumnSpec{Name: "VERKEHRSTAGNR", Type: table.TypeInteger, Nullable: true},
	)

	ProfileElement = table.MustSchema("FAHRZEITPROFILELEMENT",
		table.ColumnSpec{Name: "LINNAME", Type: table.TypeText, Key: true},
		table.ColumnSpec{Name: "LINROUTENAME", Type: table.TypeText, Key: true},
		table.ColumnSpec{Name: "RICHTUNGCODE", Type: table.TypeText, Key: true},
		table.ColumnSpec{Name: "FZPROFILNAME", Type: table.TypeText, Key: true},
		table.ColumnSpec{Name: "INDEX", Type: table.TypeInteger, Key: true},
		table.ColumnSpec{Name: "HSTNR", Type: table.TypeInteger},
		table.ColumnSpec{Name: "AUS", Type: table.TypeInteger, Default: "1"},
		table.ColumnSpec{Name: "EIN", Type: table.TypeInteger, Default: "1"},
		table.ColumnSpec{Name: "ANKUNFT", Type: table.TypeTimeOfDay},
		table.ColumnSpec{Name: "ABFAHRT", Type: table.TypeTimeOfDay},
	)
)

// Catalog lists every section in write order.
var Catalog = table.NewCatalog("network",
	Version, Operator, DayType, TransportSystem, Stop, Line, Journey, ProfileElement,
)

// Typed column handles used by converters and tests.
var (
	VersionProjection = table.MustCol[string](Version, "PROJECTION")

	OperatorNR   = table.MustCol[int64](Operator, "NR")
	OperatorName = table.MustCol[string](Operator, "NAME")

	DayTypeNR   = table.MustCol[int64](DayType, "NR")
	DayTypeName = table.MustCol[string](DayType, "NAME")

	TransportSystemCode = table.MustCol[string](TransportSystem, "CODE")

	StopNR   = table.MustCol[int64](Stop, "NR")
	StopCode = table.MustCol[string](Stop, "CODE")
	StopName = table.MustCol[string](Stop, "NAME")
	StopX    = table.MustCol[float64](Stop, "XKOORD")
	StopY    = table.MustCol[float64](Stop, "YKOORD")

	LineName       = table.MustCol[string](Line, "NAME")
	LineSystem     = table.MustCol[string](Line, "VSYSCODE")
	LineOperatorNR = table.MustCol[int64](Line, "BETREIBERNR")
	LineLongName   = table.MustCol[string](Line, "LANGNAME")

	JourneyNR        = table.MustCol[int64](Journey, "NR")
	JourneyName      = table.MustCol[string](Journey, "NAME")
	JourneyDeparture = table.MustCol[time.Duration](Journey, "ABFAHRT")
	JourneyLine      = table.MustCol[string](Journey, "LINNAME")
	JourneyRoute     = table.MustCol[string](Journey, "LINROUTENAME")
	JourneyDirection = table.MustCol[string](Journey, "RICHTUNGCODE")
	JourneyProfile   = table.MustCol[string](Journey, "FZPROFILNAME")
	JourneyDayType   = table.MustCol[int64](Journey, "VERKEHRSTAGNR")

	ElementLine      = table.MustCol[string](ProfileElement, "LINNAME")
	ElementRoute     = table.MustCol[string](ProfileElement, "LINROUTENAME")
	ElementDirection = table.MustCol[string](ProfileElement, "RICHTUNGCODE")
	ElementProfile   = table.MustCol[string](ProfileElement, "FZPROFILNAME")
	ElementIndex     = table.MustCol[int64](ProfileElement, "INDEX")
	ElementStopNR    = table.MustCol[int64](ProfileElement, "HSTNR")
	ElementAlight    = table.MustCol[int64](ProfileElement, "AUS")
	ElementBoard     = table.MustCol[int64](ProfileElement, "EIN")
	ElementArrival   = table.MustCol[time.Duration](ProfileElement, "ANKUNFT")
	ElementDeparture = table.MustCol[time.Duration](ProfileElement, "ABFAHRT")
)
