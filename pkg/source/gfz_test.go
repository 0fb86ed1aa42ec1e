package source

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const sampleTable = `# PURPOSE: This file distributes the geomagnetic planetary index Kp
# LICENSE: CC BY 4.0
#YYY MM DD  days  days_m  Bsr dB  Kp1  Kp2  Kp3  Kp4  Kp5  Kp6  Kp7  Kp8 ...
2023 10 01 45198 45198.5 2591 20 2.000 2.333 1.667 1.333 2.000 2.667 3.000 2.333 7 9 6 5 7 12 15 9 9 95 158.1 155.2 1
2023 10 02 45199 45199.5 2591 21 3.333 3.000 2.667 2.333 3.667 4.000 3.333 2.667 18 15 12 9 22 27 18 12 17 101 160.4 157.5 1
`

func TestParseKpTable(t *testing.T) {
	samples, err := ParseKpTable(strings.NewReader(sampleTable))
	if err != nil {
		t.Fatalf("ParseKpTable error: %v", err)
	}

	if len(samples) != 16 {
		t.Fatalf("got %d samples; want 16 (2 days x 8 slots)", len(samples))
	}

	// First slot of day one.
	if want := time.Date(2023, 10, 1, 0, 0, 0, 0, time.UTC); !samples[0].Time.Equal(want) {
		t.Errorf("samples[0].Time = %v; want %v", samples[0].Time, want)
	}
	if samples[0].Kp != 2.000 {
		t.Errorf("samples[0].Kp = %v; want 2.000", samples[0].Kp)
	}

	// Fifth slot (12:00) of day two sits at offset 8+4.
	s := samples[12]
	if want := time.Date(2023, 10, 2, 12, 0, 0, 0, time.UTC); !s.Time.Equal(want) {
		t.Errorf("samples[12].Time = %v; want %v", s.Time, want)
	}
	if s.Kp != 3.667 {
		t.Errorf("samples[12].Kp = %v; want 3.667", s.Kp)
	}

	// All samples come out grid-aligned and UTC.
	for _, s := range samples {
		if s.Time.Hour()%3 != 0 || s.Time.Minute() != 0 || s.Time.Second() != 0 {
			t.Errorf("sample time %v is not on the 3-hour grid", s.Time)
		}
		if s.Time.Location() != time.UTC {
			t.Errorf("sample time %v is not UTC", s.Time)
		}
	}
}

func TestParseKpTableErrors(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"TruncatedRow", "2023 10 01 45198 45198.5 2591 20 2.000\n"},
		{"BadYear", "x023 10 01 45198 45198.5 2591 20 2.000 2.333 1.667 1.333 2.000 2.667 3.000 2.333\n"},
		{"BadKp", "2023 10 01 45198 45198.5 2591 20 2.000 2.333 1.667 1.333 2.000 2.667 3.000 n/a\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseKpTable(strings.NewReader(tc.in)); err == nil {
				t.Errorf("ParseKpTable(%q) succeeded; want error", tc.in)
			}
		})
	}
}

func TestGFZLoad(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleTable))
	}))
	defer srv.Close()

	g := NewGFZ(srv.URL, 5*time.Second)
	samples, err := g.Load(false)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(samples) != 16 {
		t.Errorf("got %d samples; want 16", len(samples))
	}
}

func TestGFZLoadHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	g := NewGFZ(srv.URL, 5*time.Second)
	if _, err := g.Load(true); err == nil {
		t.Error("Load succeeded against a failing upstream; want error")
	}
}
