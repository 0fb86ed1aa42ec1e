package source

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/swxkit/kpindex/pkg/types"
)

// blockCodec packs a whole sample table into one compressed block:
// a sample count, delta-of-delta encoded timestamps, XOR-encoded values,
// all run through zstd. Grid-aligned tables have near-constant deltas,
// so the encoded stream is mostly zeros and compresses extremely well.
type blockCodec struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// newBlockCodec creates a codec with the given compression level (1-4,
// fastest to best).
func newBlockCodec(level int) (*blockCodec, error) {
	encLevel := zstd.SpeedDefault
	switch level {
	case 1:
		encLevel = zstd.SpeedFastest
	case 2:
		encLevel = zstd.SpeedDefault
	case 3:
		encLevel = zstd.SpeedBetterCompression
	case 4:
		encLevel = zstd.SpeedBestCompression
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(encLevel))
	if err != nil {
		return nil, fmt.Errorf("failed to create encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	return &blockCodec{
		encoder: encoder,
		decoder: decoder,
	}, nil
}

// Encode serializes a sample table into a compressed block.
func (c *blockCodec) Encode(samples []types.Sample) ([]byte, error) {
	buf := new(bytes.Buffer)

	if err := binary.Write(buf, binary.LittleEndian, uint32(len(samples))); err != nil {
		return nil, err
	}

	// Timestamps: first as-is, then delta-of-delta.
	var prevTS, prevDelta int64
	for i, s := range samples {
		ts := s.Time.UTC().Unix()
		if i == 0 {
			if err := binary.Write(buf, binary.LittleEndian, ts); err != nil {
				return nil, err
			}
		} else {
			delta := ts - prevTS
			if err := binary.Write(buf, binary.LittleEndian, delta-prevDelta); err != nil {
				return nil, err
			}
			prevDelta = delta
		}
		prevTS = ts
	}

	// Values: first as-is, then XOR against the previous bit pattern.
	var prevBits uint64
	for i, s := range samples {
		bits := math.Float64bits(s.Kp)
		if i == 0 {
			if err := binary.Write(buf, binary.LittleEndian, bits); err != nil {
				return nil, err
			}
		} else {
			if err := binary.Write(buf, binary.LittleEndian, bits^prevBits); err != nil {
				return nil, err
			}
		}
		prevBits = bits
	}

	return c.encoder.EncodeAll(buf.Bytes(), make([]byte, 0, buf.Len())), nil
}

// Decode reverses Encode.
func (c *blockCodec) Decode(data []byte) ([]types.Sample, error) {
	decompressed, err := c.decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompression failed: %w", err)
	}

	buf := bytes.NewReader(decompressed)

	var count uint32
	if err := binary.Read(buf, binary.LittleEndian, &count); err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}

	timestamps := make([]int64, count)
	if err := binary.Read(buf, binary.LittleEndian, &timestamps[0]); err != nil {
		return nil, err
	}
	var prevDelta int64
	for i := 1; i < int(count); i++ {
		var deltaOfDelta int64
		if err := binary.Read(buf, binary.LittleEndian, &deltaOfDelta); err != nil {
			return nil, err
		}
		delta := deltaOfDelta + prevDelta
		timestamps[i] = timestamps[i-1] + delta
		prevDelta = delta
	}

	samples := make([]types.Sample, count)
	var prevBits uint64
	for i := 0; i < int(count); i++ {
		var bits uint64
		if err := binary.Read(buf, binary.LittleEndian, &bits); err != nil {
			return nil, err
		}
		if i > 0 {
			bits ^= prevBits
		}
		samples[i] = types.Sample{
			Time: time.Unix(timestamps[i], 0).UTC(),
			Kp:   math.Float64frombits(bits),
		}
		prevBits = bits
	}

	return samples, nil
}

// Close releases the codec resources.
func (c *blockCodec) Close() {
	if c.encoder != nil {
		c.encoder.Close()
	}
	if c.decoder != nil {
		c.decoder.Close()
	}
}
