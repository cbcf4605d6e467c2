package projection

import (
	"fmt"
	"strconv"

	"github.com/go-spatial/proj/core"
	_ "github.com/go-spatial/proj/operations"
	"github.com/go-spatial/proj/support"
)

// method converts between geographic degrees and projected coordinates.
type method interface {
	forward(lon, lat float64) (x, y float64, err error)
	inverse(x, y float64) (lon, lat float64, err error)
}

// ellipsoids accepted in utm definitions, by their proj names.
var ellipsoids = map[string]bool{
	"WGS84": true,
	"GRS80": true,
}

func newMethod(d Definition) (method, error) {
	switch d.Proj {
	case "longlat":
		return longLat{}, nil
	case "merc":
		if d.Radius <= 0 {
			return nil, fmt.Errorf("merc definition %d needs a positive radius", d.Code)
		}
		r := strconv.FormatFloat(d.Radius, 'f', -1, 64)
		return newProjMethod(d, "+proj=merc +a="+r+" +b="+r+" +lat_ts=0 +lon_0=0 +x_0=0 +y_0=0 +k=1 +units=m")
	case "utm":
		if !ellipsoids[d.Ellps] {
			return nil, fmt.Errorf("utm definition %d: unknown ellipsoid %q", d.Code, d.Ellps)
		}
		if d.Zone < 1 || d.Zone > 60 {
			return nil, fmt.Errorf("utm definition %d: zone %d out of range", d.Code, d.Zone)
		}
		s := fmt.Sprintf("+proj=utm +zone=%d +ellps=%s +units=m", d.Zone, d.Ellps)
		if d.South {
			s += " +south"
		}
		return newProjMethod(d, s)
	default:
		return nil, fmt.Errorf("definition %d: unsupported projection %q", d.Code, d.Proj)
	}
}

type longLat struct{}

func (longLat) forward(lon, lat float64) (float64, float64, error) { return lon, lat, nil }
func (longLat) inverse(x, y float64) (float64, float64, error)     { return x, y, nil }

// projMethod runs a proj string through the go-spatial operation registry.
type projMethod struct {
	def string
	op  core.IConvertLPToXY
}

func newProjMethod(d Definition, def string) (*projMethod, error) {
	ps, err := support.NewProjString(def)
	if err != nil {
		return nil, fmt.Errorf("definition %d: %w", d.Code, err)
	}
	_, opx, err := core.NewSystem(ps)
	if err != nil {
		return nil, fmt.Errorf("definition %d: %w", d.Code, err)
	}
	op, ok := opx.(core.IConvertLPToXY)
	if !ok {
		return nil, fmt.Errorf("definition %d: %q is not a map projection", d.Code, def)
	}
	return &projMethod{def: def, op: op}, nil
}

func (m *projMethod) forward(lon, lat float64) (float64, float64, error) {
	xy, err := m.op.Forward(&core.CoordLP{Lam: support.DDToR(lon), Phi: support.DDToR(lat)})
	if err != nil {
		return 0, 0, fmt.Errorf("%s forward (%g, %g): %w", m.def, lon, lat, err)
	}
	return xy.X, xy.Y, nil
}

func (m *projMethod) inverse(x, y float64) (float64, float64, error) {
	lp, err := m.op.Inverse(&core.CoordXY{X: x, Y: y})
	if err != nil {
		return 0, 0, fmt.Errorf("%s inverse (%g, %g): %w", m.def, x, y, err)
	}
	return support.RToDD(lp.Lam), support.RToDD(lp.Phi), nil
}
