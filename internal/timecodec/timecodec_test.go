package timecodec

import (
	"errors"
	"testing"
	"time"
)

func TestToDuration(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{name: "midnight", input: "00:00:00", want: 0},
		{name: "morning", input: "08:15:30", want: 8*3600 + 15*60 + 30},
		{name: "after midnight", input: "25:00:00", want: 90000},
		{name: "three digit hour", input: "100:00:01", want: 360001},
		{name: "single digit fields", input: "7:5:9", want: 7*3600 + 5*60 + 9},
		{name: "surrounding whitespace", input: " 01:00:00 ", want: 3600},
		{name: "minutes out of range", input: "01:60:00", wantErr: true},
		{name: "seconds out of range", input: "01:00:60", wantErr: true},
		{name: "missing field", input: "01:00", wantErr: true},
		{name: "empty field", input: "01::00", wantErr: true},
		{name: "negative hour", input: "-1:00:00", wantErr: true},
		{name: "letters", input: "aa:bb:cc", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToDuration(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTime) {
					t.Fatalf("ToDuration(%q) error = %v, want ErrInvalidTime", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ToDuration(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ToDuration(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestToHMS(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{0, "00:00:00"},
		{59, "00:00:59"},
		{3600, "01:00:00"},
		{90000, "25:00:00"},
		{86399, "23:59:59"},
		{360001, "100:00:01"},
		{-90, "-00:01:30"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := ToHMS(tt.seconds); got != tt.want {
				t.Errorf("ToHMS(%d) = %q, want %q", tt.seconds, got, tt.want)
			}
		})
	}

	if ToHMS(90000) == ToHMS(3600) {
		t.Error("25:00:00 must not collapse onto 01:00:00")
	}
}

func TestRoundTrip(t *testing.T) {
	for _, s := range []int{0, 1, 59, 60, 3599, 3600, 86399, 86400, 90000, 123456, 999999} {
		got, err := ToDuration(ToHMS(s))
		if err != nil {
			t.Fatalf("ToDuration(ToHMS(%d)) error: %v", s, err)
		}
		if got != s {
			t.Errorf("ToDuration(ToHMS(%d)) = %d", s, got)
		}
	}
}

func TestSumOfTwoTimes(t *testing.T) {
	tests := []struct {
		a, b string
		want string
	}{
		{"08:00:00", "00:05:00", "08:05:00"},
		{"08:59:30", "00:00:45", "09:00:15"},
		{"23:30:00", "01:45:00", "25:15:00"},
		{"00:00:59", "00:59:01", "01:00:00"},
	}

	for _, tt := range tests {
		t.Run(tt.a+"+"+tt.b, func(t *testing.T) {
			got, err := SumOfTwoTimes(tt.a, tt.b)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("SumOfTwoTimes(%q, %q) = %q, want %q", tt.a, tt.b, got, tt.want)
			}
		})
	}

	if _, err := SumOfTwoTimes("08:00", "00:01:00"); err == nil {
		t.Error("expected error for malformed operand")
	}
}

func TestParseFormat(t *testing.T) {
	d, err := Parse("26:10:05")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	want := 26*time.Hour + 10*time.Minute + 5*time.Second
	if d != want {
		t.Errorf("Parse = %v, want %v", d, want)
	}
	if got := Format(d); got != "26:10:05" {
		t.Errorf("Format = %q, want %q", got, "26:10:05")
	}
}
