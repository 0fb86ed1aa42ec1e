package source

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/swxkit/kpindex/pkg/types"
)

// DefaultURL is the GFZ Potsdam Kp data service, queried in the "kp1"
// definitive table format.
const DefaultURL = "https://kp.gfz.de/kpdata?startdate=1900-01-01&enddate=2050-12-31&format=kp1"

// Field layout of a kp1 data row: year, month, day, four bookkeeping
// columns (days since epoch twice, Bartels rotation, dB), then the eight
// Kp readings for hours 0, 3, ..., 21. The remaining ap/Ap/flux columns
// are ignored.
const (
	kpFirstField = 7
	kpFieldCount = 8
	minFields    = kpFirstField + kpFieldCount
)

var slotHours = [kpFieldCount]int{0, 3, 6, 9, 12, 15, 18, 21}

// GFZ fetches the Kp table from the GFZ data service over HTTP.
type GFZ struct {
	url    string
	client *http.Client
}

// NewGFZ creates a fetcher for the given URL (DefaultURL when empty).
// The timeout bounds the whole download; zero means no timeout.
func NewGFZ(url string, timeout time.Duration) *GFZ {
	if url == "" {
		url = DefaultURL
	}
	return &GFZ{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Load implements Source. The upstream is always authoritative, so force
// is irrelevant here; caching belongs to the Cache wrapper.
func (g *GFZ) Load(force bool) ([]types.Sample, error) {
	resp, err := g.client.Get(g.url)
	if err != nil {
		return nil, fmt.Errorf("fetch kp table: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch kp table: HTTP %d %s", resp.StatusCode, resp.Status)
	}

	return ParseKpTable(resp.Body)
}

// ParseKpTable parses the whitespace-separated kp1 table format. Lines
// starting with '#' are header comments; each data row carries one day
// of eight 3-hourly Kp readings.
func ParseKpTable(r io.Reader) ([]types.Sample, error) {
	var samples []types.Sample

	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		fields := strings.Fields(text)
		if len(fields) < minFields {
			return nil, fmt.Errorf("kp table line %d: %d fields, want at least %d", line, len(fields), minFields)
		}

		year, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("kp table line %d: bad year %q: %w", line, fields[0], err)
		}
		month, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("kp table line %d: bad month %q: %w", line, fields[1], err)
		}
		day, err := strconv.Atoi(fields[2])
		if err != nil {
			return nil, fmt.Errorf("kp table line %d: bad day %q: %w", line, fields[2], err)
		}

		for i, hour := range slotHours {
			kp, err := strconv.ParseFloat(fields[kpFirstField+i], 64)
			if err != nil {
				return nil, fmt.Errorf("kp table line %d: bad kp value %q: %w", line, fields[kpFirstField+i], err)
			}
			samples = append(samples, types.Sample{
				Time: time.Date(year, time.Month(month), day, hour, 0, 0, 0, time.UTC),
				Kp:   kp,
			})
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read kp table: %w", err)
	}

	return samples, nil
}
