package card

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// maxLineSize bounds a single JSONL record.
const maxLineSize = 4 << 20

// Card is a seed record. Only id, domain, concept_ja, evidence_latin and
// source feed seed derivation; every other field is carried through untouched.
type Card struct {
	fields Value
}

// New wraps a map Value as a Card. A non-map value yields an empty card.
func New(fields Value) *Card {
	if fields.Kind() != KindMap {
		fields = Map(nil)
	}
	return &Card{fields: fields}
}

// Get returns a top-level field, or null when it is missing.
func (c *Card) Get(key string) Value { return c.fields.Get(key) }

// Has reports whether the card carries a top-level field.
func (c *Card) Has(key string) bool { return c.fields.Has(key) }

// Fields returns the whole record.
func (c *Card) Fields() Value { return c.fields }

// ID returns the canonical text of the id field.
func (c *Card) ID() string { return c.Get("id").String() }

// Domain returns the canonical text of the domain field.
func (c *Card) Domain() string { return c.Get("domain").String() }

// With returns a copy of c with a top-level field replaced.
func (c *Card) With(key string, v Value) *Card {
	return &Card{fields: c.fields.With(key, v)}
}

// MarshalJSON encodes the full record.
func (c *Card) MarshalJSON() ([]byte, error) { return c.fields.MarshalJSON() }

// UnmarshalJSON decodes a JSON object into c.
func (c *Card) UnmarshalJSON(data []byte) error {
	var v Value
	if err := v.UnmarshalJSON(data); err != nil {
		return err
	}
	if v.Kind() != KindMap {
		return errors.New("card must be a JSON object")
	}
	c.fields = v
	return nil
}

// Neutralized returns a copy of c with evidence_latin blanked and source
// replaced by empty work, file and locator fields. Comparing output for a
// card and its neutralized copy shows how much the source material moves
// the generated text.
func Neutralized(c *Card) *Card {
	return c.With("evidence_latin", String("")).With("source", Map(map[string]Value{
		"work":    String(""),
		"file":    String(""),
		"locator": String(""),
	}))
}

// SeedMode selects which card content is allowed to influence the seed.
type SeedMode string

const (
	// ModeNormal uses the card as-is.
	ModeNormal SeedMode = "normal"
	// ModeNeutral masks evidence and source before seeding.
	ModeNeutral SeedMode = "neutral"
)

// ParseSeedMode converts a user supplied string into a SeedMode.
func ParseSeedMode(s string) (SeedMode, error) {
	switch SeedMode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeNormal, "":
		return ModeNormal, nil
	case ModeNeutral:
		return ModeNeutral, nil
	}
	return "", fmt.Errorf("unknown seed mode %q", s)
}

// Apply returns the card to seed from under mode m.
func (m SeedMode) Apply(c *Card) *Card {
	if m == ModeNeutral {
		return Neutralized(c)
	}
	return c
}

// ReadJSONL decodes one card per non-blank line of r.
func ReadJSONL(r io.Reader) ([]*Card, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var cards []*Card
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		c := &Card{}
		if err := c.UnmarshalJSON([]byte(line)); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		cards = append(cards, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return cards, nil
}

// ReadFiles reads every JSONL file in order and concatenates their cards.
func ReadFiles(paths ...string) ([]*Card, error) {
	var cards []*Card
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("could not open cards file: %w", err)
		}
		fileCards, err := ReadJSONL(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		cards = append(cards, fileCards...)
	}
	return cards, nil
}

// ReadGlob reads every file matching pattern, in lexical order.
func ReadGlob(pattern string) ([]*Card, error) {
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no card files match %q", pattern)
	}
	return ReadFiles(paths...)
}
