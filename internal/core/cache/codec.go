package cache

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/vietddude/blockprice/internal/core/series"
)

// Codec converts a series to and from its persisted snapshot form.
type Codec[V series.Value] interface {
	Encode(s series.Series[V]) ([]byte, error)
	Decode(data []byte) (series.Series[V], error)
}

// BlockCodec persists {"<block>": "<timestamp>"} with both sides as strings.
type BlockCodec struct{}

func (BlockCodec) Encode(s series.Series[int64]) ([]byte, error) {
	out := make(map[string]string, len(s))
	for block, ts := range s {
		out[strconv.FormatInt(block, 10)] = strconv.FormatInt(ts, 10)
	}
	return json.Marshal(out)
}

func (BlockCodec) Decode(data []byte) (series.Series[int64], error) {
	return decode(data, func(raw string) (int64, error) {
		return strconv.ParseInt(raw, 10, 64)
	})
}

// PriceCodec persists {"<timestamp>": <price>}.
type PriceCodec struct{}

func (PriceCodec) Encode(s series.Series[float64]) ([]byte, error) {
	out := make(map[string]float64, len(s))
	for ts, price := range s {
		out[strconv.FormatInt(ts, 10)] = price
	}
	return json.Marshal(out)
}

func (PriceCodec) Decode(data []byte) (series.Series[float64], error) {
	return decode(data, func(raw string) (float64, error) {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, err
		}
		if v < 0 {
			return 0, fmt.Errorf("negative price %v", v)
		}
		return v, nil
	})
}

// decode reads a JSON object of integer keys. Values may be quoted or bare
// numbers so snapshots written by other tools still load.
func decode[V series.Value](data []byte, parse func(string) (V, error)) (series.Series[V], error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	out := make(series.Series[V], len(raw))
	for k, rv := range raw {
		key, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid key %q: %w", k, err)
		}

		text := string(rv)
		var quoted string
		if err := json.Unmarshal(rv, &quoted); err == nil {
			text = quoted
		}
		v, err := parse(text)
		if err != nil {
			return nil, fmt.Errorf("invalid value for key %d: %w", key, err)
		}
		out[key] = v
	}
	return out, nil
}
