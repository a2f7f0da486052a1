package model

import (
	"bytes"
	"encoding/json"
	"math"
)

// Float is a metric value that may be undefined. Non-finite values encode
// as JSON null and null decodes back to NaN, so exported results keep the
// distinction between "zero" and "could not be measured".
type Float float64

// NaN returns an undefined Float.
func NaN() Float { return Float(math.NaN()) }

// Valid reports whether f holds a finite value.
func (f Float) Valid() bool {
	v := float64(f)
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func (f Float) MarshalJSON() ([]byte, error) {
	if !f.Valid() {
		return []byte("null"), nil
	}
	return json.Marshal(float64(f))
}

func (f *Float) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*f = NaN()
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

// Floats converts a slice for the numeric helpers in geom.
func Floats(xs []Float) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = float64(x)
	}
	return out
}
