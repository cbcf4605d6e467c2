package projection

import (
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
)

func newTestRegistry(t *testing.T, opts ...Option) *Registry {
	t.Helper()
	reg, err := NewRegistry(opts...)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	return reg
}

// ---- ParseCode Tests ----

func TestParseCode(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"4326", 4326, false},
		{"EPSG:4326", 4326, false},
		{"epsg:25832", 25832, false},
		{"ESRI:53004", 53004, false},
		{" EPSG : 3857 ", 3857, false},
		{"", 0, true},
		{"EPSG:", 0, true},
		{"EPSG:abc", 0, true},
		{"0", 0, true},
		{"-4326", 0, true},
		{"WKT:4326", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCode(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownProjection) {
					t.Fatalf("ParseCode(%q) error = %v, want ErrUnknownProjection", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCode(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseCode(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

// ---- Registry Tests ----

func TestRegistry_GetCaches(t *testing.T) {
	reg := newTestRegistry(t)

	a, err := reg.Get("EPSG:4326")
	if err != nil {
		t.Fatal(err)
	}
	b, err := reg.Get("4326")
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("same code resolved to different projections")
	}
	if !a.Resolved() || !a.Geographic() {
		t.Errorf("4326 resolved=%v geographic=%v", a.Resolved(), a.Geographic())
	}
}

func TestRegistry_DefaultPreRegistered(t *testing.T) {
	reg := newTestRegistry(t)

	reg.mu.Lock()
	p, ok := reg.cache[DefaultNetworkEPSG]
	reg.mu.Unlock()
	if !ok || !p.Resolved() {
		t.Fatalf("default projection %d not pre-registered", DefaultNetworkEPSG)
	}
}

func TestRegistry_UnknownCode(t *testing.T) {
	reg := newTestRegistry(t)

	p, err := reg.Get("EPSG:999999")
	if err != nil {
		t.Fatalf("Get() on well-formed code error = %v", err)
	}
	if p.Resolved() {
		t.Error("undefined code reported as resolved")
	}

	_, err = reg.Transform(999999, WGS84, 1, 2, 0)
	if !errors.Is(err, ErrUnknownProjection) {
		t.Errorf("Transform() error = %v, want ErrUnknownProjection", err)
	}

	if _, err := reg.Lookup(0); !errors.Is(err, ErrUnknownProjection) {
		t.Errorf("Lookup(0) error = %v, want ErrUnknownProjection", err)
	}
}

func TestRegistry_Aliases(t *testing.T) {
	reg := newTestRegistry(t)

	for _, code := range []string{"3857", "900913", "ESRI:102100"} {
		p, err := reg.Get(code)
		if err != nil {
			t.Fatalf("Get(%q) error = %v", code, err)
		}
		if !p.Resolved() {
			t.Errorf("Get(%q) unresolved", code)
		}
	}
}

func TestRegistry_ConicCodeUnresolved(t *testing.T) {
	reg := newTestRegistry(t)

	// ESRI:102004 is a Lambert conformal conic, not a Mercator variant.
	p, err := reg.Get("ESRI:102004")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if p.Resolved() {
		t.Errorf("ESRI:102004 resolved as %q", p.Name)
	}
	if _, err := reg.Transform(102004, WGS84, 1056377, 7276510, 0); !errors.Is(err, ErrUnknownProjection) {
		t.Errorf("Transform() error = %v, want ErrUnknownProjection", err)
	}
}

func TestRegistry_WithDefinitions(t *testing.T) {
	overlay := `
definitions:
  - code: 31467
    name: custom sphere
    proj: merc
    radius: 6378137
`
	reg := newTestRegistry(t, WithDefinitions(strings.NewReader(overlay)))

	p, err := reg.Lookup(31467)
	if err != nil {
		t.Fatal(err)
	}
	if !p.Resolved() || p.Name != "custom sphere" {
		t.Errorf("overlay not applied: resolved=%v name=%q", p.Resolved(), p.Name)
	}

	// built-ins survive the overlay
	if p, _ := reg.Lookup(25832); !p.Resolved() {
		t.Error("built-in 25832 lost after overlay")
	}
}

func TestRegistry_WithDefinitionsErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad yaml", "definitions: [\n"},
		{"unknown field", "definitions:\n  - code: 1\n    proj: longlat\n    colour: red\n"},
		{"bad method", "definitions:\n  - code: 1\n    proj: lcc\n"},
		{"merc without radius", "definitions:\n  - code: 1\n    proj: merc\n"},
		{"utm bad zone", "definitions:\n  - code: 1\n    proj: utm\n    zone: 61\n    ellps: WGS84\n"},
		{"utm bad ellipsoid", "definitions:\n  - code: 1\n    proj: utm\n    zone: 32\n    ellps: Bessel\n"},
		{"zero code", "definitions:\n  - code: 0\n    proj: longlat\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(WithDefinitions(strings.NewReader(tt.yaml)))
			if err == nil {
				t.Error("NewRegistry() expected error")
			}
		})
	}
}

func TestRegistry_Concurrent(t *testing.T) {
	reg := newTestRegistry(t)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := reg.Transform(DefaultNetworkEPSG, WGS84, 1056377, 7276510, 0); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
}

// ---- Transform Tests ----

func TestTransform_NetworkFixture(t *testing.T) {
	reg := newTestRegistry(t)

	p, err := reg.Transform(DefaultNetworkEPSG, WGS84, 1056377, 7276510, 0)
	if err != nil {
		t.Fatal(err)
	}
	if p.X <= 8 || p.X >= 10 {
		t.Errorf("lon = %f, want in (8, 10)", p.X)
	}
	if p.Y <= 54 || p.Y >= 56 {
		t.Errorf("lat = %f, want in (54, 56)", p.Y)
	}
	if p.Z != 0 {
		t.Errorf("height = %f, want 0", p.Z)
	}
}

func TestTransform_RoundTrip(t *testing.T) {
	reg := newTestRegistry(t)

	const lon, lat = 9.9937, 53.5511 // Hamburg

	for _, code := range []int{3857, 53004, 25832, 32632, 4258} {
		fwd, err := reg.Transform(WGS84, code, lon, lat, 12)
		if err != nil {
			t.Fatalf("forward %d: %v", code, err)
		}
		back, err := reg.Transform(code, WGS84, fwd.X, fwd.Y, fwd.Z)
		if err != nil {
			t.Fatalf("inverse %d: %v", code, err)
		}
		if math.Abs(back.X-lon) > 1e-7 || math.Abs(back.Y-lat) > 1e-7 {
			t.Errorf("%d round trip = (%f, %f), want (%f, %f)", code, back.X, back.Y, lon, lat)
		}
		if back.Z != 12 {
			t.Errorf("%d height = %f, want 12", code, back.Z)
		}
	}
}

func TestTransform_UTMReference(t *testing.T) {
	reg := newTestRegistry(t)

	// 9E on the equator is the central meridian of zone 32.
	p, err := reg.Transform(WGS84, 32632, 9, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(p.X-500000) > 1e-3 || math.Abs(p.Y) > 1e-3 {
		t.Errorf("central meridian = (%f, %f), want (500000, 0)", p.X, p.Y)
	}

	// 10E 54N in zone 32; GRS80 and WGS84 agree to the millimetre here.
	p, err = reg.Transform(WGS84, 25832, 10, 54, 0)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(p.X-565548.5) > 0.5 || math.Abs(p.Y-5983984.5) > 0.5 {
		t.Errorf("10E 54N = (%f, %f), want about (565548.5, 5983984.5)", p.X, p.Y)
	}
}

func TestTransformAll(t *testing.T) {
	reg := newTestRegistry(t)

	xs := []float64{1056377, 1000000}
	ys := []float64{7276510, 7000000}
	pts, err := reg.TransformAll(DefaultNetworkEPSG, WGS84, xs, ys)
	if err != nil {
		t.Fatal(err)
	}
	if len(pts) != 2 {
		t.Fatalf("len = %d, want 2", len(pts))
	}
	for i, p := range pts {
		single, _ := reg.Transform(DefaultNetworkEPSG, WGS84, xs[i], ys[i], 0)
		if p != single {
			t.Errorf("point %d batch = %+v, single = %+v", i, p, single)
		}
	}

	if _, err := reg.TransformAll(DefaultNetworkEPSG, WGS84, xs, ys[:1]); err == nil {
		t.Error("mismatched lengths expected error")
	}
}
