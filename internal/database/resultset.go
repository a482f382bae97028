package database

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/sealevelil48/sealevel-dashboard/internal/cache"
)

// ResultSet is an ordered sequence of rows as returned by a query. Column
// order and names come from the executed statement. Values are normalized to
// a closed set of canonical types (int64, float64, bool, string, time.Time,
// []byte, nil) so that serialization round-trips exactly and cache hits are
// indistinguishable from fresh reads.
type ResultSet struct {
	Columns []string `msgpack:"columns" json:"columns"`
	Rows    [][]any  `msgpack:"rows" json:"rows"`
}

// RowCount returns the number of rows in the set.
func (rs *ResultSet) RowCount() int {
	return len(rs.Rows)
}

// Maps converts the result set into one map per row, keyed by column name.
// This is the shape route handlers serve as JSON.
func (rs *ResultSet) Maps() []map[string]any {
	out := make([]map[string]any, len(rs.Rows))
	for i, row := range rs.Rows {
		m := make(map[string]any, len(rs.Columns))
		for j, col := range rs.Columns {
			if j < len(row) {
				m[col] = row[j]
			}
		}
		out[i] = m
	}
	return out
}

// Encode serializes the result set with msgpack. Unlike JSON, msgpack keeps
// the int/float distinction and encodes time.Time natively, which is what
// makes the round-trip law hold across the cache boundary.
func (rs *ResultSet) Encode() ([]byte, error) {
	return msgpack.Marshal(rs)
}

// DecodeResultSet deserializes a cached payload back into a ResultSet.
func DecodeResultSet(payload []byte) (*ResultSet, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(payload))
	// Loose decoding widens small integer and float wire types back to
	// int64/float64, matching the normalization applied on the write side.
	dec.UseLooseInterfaceDecoding(true)

	rs := &ResultSet{}
	if err := dec.Decode(rs); err != nil {
		return nil, err
	}
	return rs, nil
}

// normalizeValue collapses driver-specific value types into the canonical
// set stored in a ResultSet.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case int:
		return int64(val)
	case int8:
		return int64(val)
	case int16:
		return int64(val)
	case int32:
		return int64(val)
	case int64:
		return val
	case uint:
		return int64(val)
	case uint8:
		return int64(val)
	case uint16:
		return int64(val)
	case uint32:
		return int64(val)
	case uint64:
		return int64(val)
	case float32:
		return float64(val)
	case float64, bool, string, []byte, time.Time:
		return val
	case pgtype.Numeric:
		f, err := val.Float64Value()
		if err == nil && f.Valid {
			return f.Float64
		}
		return nil
	default:
		return val
	}
}

func normalizeRow(row []any) []any {
	out := make([]any, len(row))
	for i, v := range row {
		out[i] = normalizeValue(v)
	}
	return out
}

// CacheKey derives the deterministic cache key for a query and its named
// parameters. Identical query+params always map to the same key; the SHA-256
// digest makes accidental collisions across different params negligible.
//
// Query text is whitespace-normalized so formatting differences do not split
// the cache, and params are serialized with sorted keys (encoding/json sorts
// map keys) so iteration order cannot leak into the key.
//
// Params that cannot be serialized (e.g. NaN floats) have no faithful key:
// deriving one from the query text alone would let different param sets
// collide. CacheKey returns "" in that case and the executor skips caching
// for the call.
func CacheKey(query string, params map[string]any) string {
	normalized := strings.Join(strings.Fields(query), " ")

	encodedParams, err := json.Marshal(params)
	if err != nil {
		return ""
	}

	h := sha256.New()
	h.Write([]byte(normalized))
	h.Write([]byte{0})
	h.Write(encodedParams)

	return cache.Namespace + hex.EncodeToString(h.Sum(nil))
}
