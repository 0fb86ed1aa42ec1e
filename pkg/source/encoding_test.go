package source

import (
	"testing"
	"time"

	"github.com/swxkit/kpindex/pkg/types"
)

func TestBlockCodecRoundTrip(t *testing.T) {
	codec, err := newBlockCodec(3)
	if err != nil {
		t.Fatalf("newBlockCodec error: %v", err)
	}
	defer codec.Close()

	// Irregular spacing (a gap at slot 3) and non-monotonic values.
	start := time.Date(2023, 10, 1, 0, 0, 0, 0, time.UTC)
	in := []types.Sample{
		{Time: start, Kp: 2.333},
		{Time: start.Add(3 * time.Hour), Kp: 0},
		{Time: start.Add(6 * time.Hour), Kp: 8.667},
		{Time: start.Add(15 * time.Hour), Kp: 1.0 / 3.0},
		{Time: start.Add(18 * time.Hour), Kp: -1},
	}

	data, err := codec.Encode(in)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}

	out, err := codec.Decode(data)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}

	if len(out) != len(in) {
		t.Fatalf("decoded %d samples; want %d", len(out), len(in))
	}
	for i := range in {
		if !out[i].Time.Equal(in[i].Time) || out[i].Kp != in[i].Kp {
			t.Errorf("sample %d = %+v; want %+v", i, out[i], in[i])
		}
	}
}

func TestBlockCodecEmptyTable(t *testing.T) {
	codec, err := newBlockCodec(1)
	if err != nil {
		t.Fatalf("newBlockCodec error: %v", err)
	}
	defer codec.Close()

	data, err := codec.Encode(nil)
	if err != nil {
		t.Fatalf("Encode(nil) error: %v", err)
	}
	out, err := codec.Decode(data)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("decoded %d samples from an empty table; want 0", len(out))
	}
}
