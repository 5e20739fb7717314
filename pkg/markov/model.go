package markov

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"unicode/utf8"
)

const (
	// StartMarker precedes every word when transitions are counted.
	StartMarker = "^"
	// EndMarker follows every word when transitions are counted.
	EndMarker = "$"

	// sumTolerance is how far a loaded distribution may drift from 1.
	sumTolerance = 1e-6
)

var (
	// ErrCorruptModel is returned when serialized model data is malformed.
	ErrCorruptModel = errors.New("corrupt model data")
	// ErrModelNotFound is returned by a Store when no model has the given name.
	ErrModelNotFound = errors.New("model not found")
)

// Transition is the outgoing distribution of one "from" symbol.
type Transition struct {
	From string
	Next *Distribution
}

// Model is an immutable character bigram model.
type Model struct {
	from     []string
	bigram   map[string]*Distribution
	starters *Distribution
}

// ModelStats summarises the size of a Model.
type ModelStats struct {
	FromStates  int `json:"from_states"` // Symbols with at least one outgoing transition.
	Transitions int `json:"transitions"` // Unique from->next pairs.
	Starters    int `json:"starters"`    // Unique word-initial pairs.
}

// NewModel assembles a Model from already-normalized distributions. A
// transition with an empty distribution is dropped. NewModel does not check
// that probabilities sum to 1; use Validate for that.
func NewModel(starters *Distribution, transitions ...Transition) *Model {
	m := &Model{
		bigram:   make(map[string]*Distribution, len(transitions)),
		starters: starters,
	}
	if m.starters == nil {
		m.starters = newDistribution(0)
	}
	for _, t := range transitions {
		if t.Next.Len() == 0 {
			continue
		}
		if _, ok := m.bigram[t.From]; !ok {
			m.from = append(m.from, t.From)
		}
		m.bigram[t.From] = t.Next
	}
	return m
}

// Next returns the outgoing distribution of from.
func (m *Model) Next(from string) (*Distribution, bool) {
	d, ok := m.bigram[from]
	return d, ok
}

// From returns every symbol with outgoing transitions, in order.
func (m *Model) From() []string {
	return append([]string(nil), m.from...)
}

// Starters returns the distribution of word-initial character pairs.
func (m *Model) Starters() *Distribution {
	return m.starters
}

// Stats counts the states, transitions and starters of m.
func (m *Model) Stats() ModelStats {
	stats := ModelStats{
		FromStates: len(m.from),
		Starters:   m.starters.Len(),
	}
	for _, d := range m.bigram {
		stats.Transitions += d.Len()
	}
	return stats
}

// Validate checks the structural invariants of m. Every failure wraps
// ErrCorruptModel.
func (m *Model) Validate() error {
	for _, from := range m.from {
		if utf8.RuneCountInString(from) != 1 {
			return fmt.Errorf("%w: from symbol %q is not a single character", ErrCorruptModel, from)
		}
		for next := range m.bigram[from].All() {
			if utf8.RuneCountInString(next) != 1 {
				return fmt.Errorf("%w: next symbol %q after %q is not a single character", ErrCorruptModel, next, from)
			}
		}
		if err := checkDistribution(m.bigram[from]); err != nil {
			return fmt.Errorf("%w: bigram %q: %v", ErrCorruptModel, from, err)
		}
	}
	if m.starters.Len() == 0 {
		return nil
	}
	for k := range m.starters.All() {
		if utf8.RuneCountInString(k) != 2 {
			return fmt.Errorf("%w: starter %q is not two characters", ErrCorruptModel, k)
		}
	}
	if err := checkDistribution(m.starters); err != nil {
		return fmt.Errorf("%w: starters: %v", ErrCorruptModel, err)
	}
	return nil
}

func checkDistribution(d *Distribution) error {
	if d.Len() == 0 {
		return errors.New("empty distribution")
	}
	for k, p := range d.All() {
		if math.IsNaN(p) || p < 0 || p > 1 {
			return fmt.Errorf("probability %v for %q is outside [0,1]", p, k)
		}
	}
	if s := d.Sum(); math.Abs(s-1) > sumTolerance {
		return fmt.Errorf("probabilities sum to %v", s)
	}
	return nil
}

// MarshalJSON encodes m as {"bigram": {...}, "starters": {...}}, keeping the
// order of every mapping.
func (m *Model) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"bigram":{`)
	for i, from := range m.from {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(from)
		if err != nil {
			return nil, err
		}
		dist, err := m.bigram[from].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(dist)
	}
	buf.WriteString(`},"starters":`)
	starters, err := m.starters.MarshalJSON()
	if err != nil {
		return nil, err
	}
	buf.Write(starters)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes the format written by MarshalJSON. Unknown top-level
// keys are ignored; missing sections are an error.
func (m *Model) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	var (
		transitions []Transition
		starters    *Distribution
		seenBigram  bool
	)
	err := decodeObject(dec, func(key string) error {
		switch key {
		case "bigram":
			seenBigram = true
			return decodeObject(dec, func(from string) error {
				next := &Distribution{}
				if err := dec.Decode(next); err != nil {
					return fmt.Errorf("bigram %q: %w", from, err)
				}
				if next.Len() == 0 {
					return fmt.Errorf("bigram %q: empty distribution", from)
				}
				transitions = append(transitions, Transition{From: from, Next: next})
				return nil
			})
		case "starters":
			starters = &Distribution{}
			return dec.Decode(starters)
		default:
			var skip json.RawMessage
			return dec.Decode(&skip)
		}
	})
	if err != nil {
		return err
	}
	if err = expectEOF(dec); err != nil {
		return err
	}
	if !seenBigram || starters == nil {
		return errors.New("model must contain bigram and starters")
	}
	*m = *NewModel(starters, transitions...)
	return nil
}

// WriteJSON serializes m to w.
func WriteJSON(w io.Writer, m *Model) error {
	data, err := m.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// ReadJSON deserializes and validates a model written by WriteJSON.
// Malformed, truncated or inconsistent data yields an error wrapping
// ErrCorruptModel.
func ReadJSON(r io.Reader) (*Model, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("could not read model: %w", err)
	}
	m := &Model{}
	if err = m.UnmarshalJSON(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptModel, err)
	}
	if err = m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}
