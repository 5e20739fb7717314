package card

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// requiredKeys are the top-level fields every card must carry.
var requiredKeys = []string{"id", "domain", "source", "evidence_latin", "concept_ja", "qa", "tags"}

// AllowedDomains is the closed set of card domains.
var AllowedDomains = map[string]struct{}{
	"herbal":    {},
	"regimen":   {},
	"astronomy": {},
}

// qaCount is the exact number of question/answer pairs a card holds.
const qaCount = 5

// ValidationError reports the first schema violation found in a card file.
// Line is 0 when the card was not read from a file.
type ValidationError struct {
	Line int
	Msg  string
}

func (e *ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}
	return e.Msg
}

// Validate checks c against the card schema.
func Validate(c *Card) error {
	for _, k := range requiredKeys {
		if !c.Has(k) {
			return &ValidationError{Msg: "missing key " + k}
		}
	}
	if _, ok := AllowedDomains[c.Get("domain").Text()]; !ok || c.Get("domain").Kind() != KindString {
		return &ValidationError{Msg: "bad domain " + c.Get("domain").String()}
	}

	src := c.Get("source")
	for _, k := range []string{"work", "file", "locator"} {
		if !src.Has(k) {
			return &ValidationError{Msg: "source missing " + k}
		}
	}

	qa := c.Get("qa")
	if qa.Kind() != KindList || qa.Len() != qaCount {
		return &ValidationError{Msg: fmt.Sprintf("qa must be list of length %d", qaCount)}
	}
	for i, item := range qa.Items() {
		for _, k := range []string{"q", "a", "evidence_ref"} {
			if !item.Has(k) {
				return &ValidationError{Msg: fmt.Sprintf("qa[%d] missing %s", i, k)}
			}
		}
	}

	tags := c.Get("tags")
	if tags.Kind() != KindList || tags.Len() == 0 {
		return &ValidationError{Msg: "tags must be non-empty"}
	}

	loc := src.Get("locator")
	if loc.Kind() == KindMap && !loc.Get("lines").Truthy() {
		return &ValidationError{Msg: "locator.lines is empty"}
	}
	return nil
}

// ValidateJSONL validates every card in r and returns the number checked.
// It stops at the first invalid or undecodable line.
func ValidateJSONL(r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	n := 0
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		c := &Card{}
		if err := c.UnmarshalJSON([]byte(line)); err != nil {
			return n, &ValidationError{Line: lineNo, Msg: err.Error()}
		}
		if err := Validate(c); err != nil {
			verr := err.(*ValidationError)
			verr.Line = lineNo
			return n, verr
		}
		n++
	}
	return n, scanner.Err()
}
