package card

import (
	"errors"
	"strings"
	"testing"
)

const validCard = `{"id":"A-1","domain":"astronomy","concept_ja":"星","evidence_latin":"stella","source":{"work":"De sphaera","file":"sph.txt","locator":{"lines":[1,2]}},"qa":[{"q":"1","a":"1","evidence_ref":"l1"},{"q":"2","a":"2","evidence_ref":"l2"},{"q":"3","a":"3","evidence_ref":"l3"},{"q":"4","a":"4","evidence_ref":"l4"},{"q":"5","a":"5","evidence_ref":"l5"}],"tags":["star"]}`

func TestValidate(t *testing.T) {
	base := mustCard(t, validCard)
	if err := Validate(base); err != nil {
		t.Fatalf("expected a valid card, got %v", err)
	}

	qa := base.Get("qa").Items()
	testCases := []struct {
		name string
		card *Card
		msg  string
	}{
		{"missing domain", New(Map(map[string]Value{"id": String("x")})), "missing key domain"},
		{"bad domain", base.With("domain", String("alchemy")), "bad domain alchemy"},
		{"source missing file", base.With("source", Map(map[string]Value{"work": String(""), "locator": String("")})), "source missing file"},
		{"short qa", base.With("qa", List(qa[:4]...)), "qa must be list of length 5"},
		{"qa item missing key", base.With("qa", List(append([]Value{Map(map[string]Value{"q": String("?")})}, qa[1:]...)...)), "qa[0] missing a"},
		{"empty tags", base.With("tags", List()), "tags must be non-empty"},
		{"empty locator lines", base.With("source", base.Get("source").With("locator", Map(map[string]Value{"lines": List()}))), "locator.lines is empty"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.card)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected a *ValidationError, got %v", err)
			}
			if verr.Msg != tc.msg {
				t.Errorf("got message %q, want %q", verr.Msg, tc.msg)
			}
		})
	}

	stringLocator := base.With("source", base.Get("source").With("locator", String("f1r.3")))
	if err := Validate(stringLocator); err != nil {
		t.Errorf("a string locator needs no lines, got %v", err)
	}
}

func TestValidateJSONL(t *testing.T) {
	n, err := ValidateJSONL(strings.NewReader(validCard + "\n\n" + validCard + "\n"))
	if err != nil || n != 2 {
		t.Fatalf("ValidateJSONL() = %d, %v; want 2, nil", n, err)
	}

	bad := strings.Replace(validCard, `"astronomy"`, `"music"`, 1)
	n, err = ValidateJSONL(strings.NewReader(validCard + "\n" + bad + "\n"))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected a *ValidationError, got %v", err)
	}
	if verr.Line != 2 || n != 1 {
		t.Errorf("expected failure on line 2 after 1 valid card, got line %d after %d", verr.Line, n)
	}
	if verr.Error() != "line 2: bad domain music" {
		t.Errorf("unexpected error text %q", verr.Error())
	}

	_, err = ValidateJSONL(strings.NewReader("not json\n"))
	if !errors.As(err, &verr) || verr.Line != 1 {
		t.Errorf("expected a decode failure on line 1, got %v", err)
	}
}
