package markov

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
)

// Outcome is a single key of a Distribution and its probability.
type Outcome struct {
	Key  string
	Prob float64
}

// Distribution is an ordered mapping from symbol to probability. The order
// is the order keys were first observed, and it is preserved through
// serialization because cumulative sampling depends on it.
type Distribution struct {
	keys  []string
	probs map[string]float64
}

// NewDistribution returns a distribution holding outcomes in the given order.
// A repeated key keeps its first position and its last probability.
func NewDistribution(outcomes ...Outcome) *Distribution {
	d := newDistribution(len(outcomes))
	for _, o := range outcomes {
		d.set(o.Key, o.Prob)
	}
	return d
}

func newDistribution(n int) *Distribution {
	return &Distribution{
		keys:  make([]string, 0, n),
		probs: make(map[string]float64, n),
	}
}

func (d *Distribution) set(key string, p float64) {
	if _, ok := d.probs[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.probs[key] = p
}

// Len returns the number of keys. A nil Distribution is empty.
func (d *Distribution) Len() int {
	if d == nil {
		return 0
	}
	return len(d.keys)
}

// Keys returns a copy of the keys in order.
func (d *Distribution) Keys() []string {
	if d == nil {
		return nil
	}
	return append([]string(nil), d.keys...)
}

// Has reports whether key is present.
func (d *Distribution) Has(key string) bool {
	if d == nil {
		return false
	}
	_, ok := d.probs[key]
	return ok
}

// Prob returns the probability of key, or 0 when it is absent.
func (d *Distribution) Prob(key string) float64 {
	if d == nil {
		return 0
	}
	return d.probs[key]
}

// Sum returns the total probability mass, accumulated in key order.
func (d *Distribution) Sum() float64 {
	var s float64
	for _, p := range d.All() {
		s += p
	}
	return s
}

// All iterates over the distribution in key order.
func (d *Distribution) All() iter.Seq2[string, float64] {
	return func(yield func(string, float64) bool) {
		if d == nil {
			return
		}
		for _, k := range d.keys {
			if !yield(k, d.probs[k]) {
				return
			}
		}
	}
}

// MarshalJSON encodes the distribution as a JSON object in key order.
func (d *Distribution) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	i := 0
	for k, p := range d.All() {
		if i > 0 {
			buf.WriteByte(',')
		}
		i++
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object of numbers, keeping the key order.
func (d *Distribution) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	out := newDistribution(0)
	err := decodeObject(dec, func(key string) error {
		if out.Has(key) {
			return fmt.Errorf("duplicate key %q", key)
		}
		var p *float64
		if err := dec.Decode(&p); err != nil {
			return fmt.Errorf("key %q: %w", key, err)
		}
		if p == nil {
			return fmt.Errorf("key %q: probability is null", key)
		}
		out.set(key, *p)
		return nil
	})
	if err != nil {
		return err
	}
	if err = expectEOF(dec); err != nil {
		return err
	}
	*d = *out
	return nil
}

// decodeObject walks a JSON object token by token, calling field for every
// key with the decoder positioned on the key's value.
func decodeObject(dec *json.Decoder, field func(key string) error) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("expected a JSON object")
	}
	for dec.More() {
		tok, err = dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return errors.New("expected an object key")
		}
		if err = field(key); err != nil {
			return err
		}
	}
	_, err = dec.Token()
	return err
}

// expectEOF fails unless dec has nothing left but whitespace.
func expectEOF(dec *json.Decoder) error {
	if _, err := dec.Token(); err != io.EOF {
		if err == nil {
			return errors.New("unexpected data after the top-level object")
		}
		return err
	}
	return nil
}
