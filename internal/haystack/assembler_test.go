package haystack

import (
	"errors"
	"strings"
	"testing"
)

// runeTokenizer treats every rune as one token. It round-trips exactly,
// which makes token offsets directly observable in tests.
type runeTokenizer struct{}

func (runeTokenizer) Encode(text string) []int {
	runes := []rune(text)
	out := make([]int, len(runes))
	for i, r := range runes {
		out[i] = int(r)
	}
	return out
}

func (runeTokenizer) Decode(tokens []int) string {
	runes := make([]rune, len(tokens))
	for i, t := range tokens {
		runes[i] = rune(t)
	}
	return string(runes)
}

func (t runeTokenizer) Count(text string) int {
	return len([]rune(text))
}

func testAssembler(t *testing.T, corpus ...string) *Assembler {
	t.Helper()
	a, err := New(corpus, runeTokenizer{})
	if err != nil {
		t.Fatalf("new assembler: %v", err)
	}
	return a
}

const testCorpus = "First sentence here. Second sentence follows. Third one too. Fourth keeps going. Fifth wraps up."

func TestAssembleBudgetExhausted(t *testing.T) {
	a := testAssembler(t, testCorpus)
	_, err := a.Assemble([]string{" The needle. "}, 100, 50, 200)
	var ae *AssemblyError
	if !errors.As(err, &ae) {
		t.Fatalf("expected AssemblyError, got %v", err)
	}
}

func TestAssembleNeedlesLargerThanBudget(t *testing.T) {
	a := testAssembler(t, testCorpus)
	needle := strings.Repeat("x", 200)
	if _, err := a.Assemble([]string{needle}, 150, 50, 10); err == nil {
		t.Fatalf("expected error when needles exceed budget")
	}
}

func TestAssembleRespectsTokenBudget(t *testing.T) {
	a := testAssembler(t, testCorpus)
	tok := runeTokenizer{}

	for _, length := range []int{50, 80, 95} {
		out, err := a.Assemble([]string{" Needle. "}, length, 50, 10)
		if err != nil {
			t.Fatalf("assemble len=%d: %v", length, err)
		}
		if got := tok.Count(out); got > length {
			t.Fatalf("context has %d tokens, budget was %d", got, length)
		}
	}
}

func TestAssembleNeedlePresentExactlyOnce(t *testing.T) {
	a := testAssembler(t, testCorpus)
	const needle = " XQZ is the answer. "

	out, err := a.Assemble([]string{needle}, 90, 50, 5)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if n := strings.Count(out, needle); n != 1 {
		t.Fatalf("needle should appear exactly once, found %d times in %q", n, out)
	}
}

func TestAssembleDepthZeroPlacesNeedleFirst(t *testing.T) {
	a := testAssembler(t, testCorpus)
	const needle = " The answer is X. "

	out, err := a.Assemble([]string{needle}, 90, 0, 5)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if !strings.HasPrefix(out, needle) {
		t.Fatalf("depth 0 should place needle at the start, got %q", out[:40])
	}
}

func TestAssembleDepthHundredPlacesNeedleLast(t *testing.T) {
	a := testAssembler(t, testCorpus)
	const needle = " The answer is X. "

	out, err := a.Assemble([]string{needle}, 90, 100, 5)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if !strings.HasSuffix(out, needle) {
		t.Fatalf("depth 100 should place needle at the end, got %q", out[len(out)-40:])
	}
}

func TestAssembleLandsOnSentenceBoundary(t *testing.T) {
	a := testAssembler(t, testCorpus)
	const needle = "<NEEDLE>"

	out, err := a.Assemble([]string{needle}, 90, 50, 5)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	idx := strings.Index(out, needle)
	if idx <= 0 {
		t.Fatalf("needle missing or at start: %d", idx)
	}
	if out[idx-1] != '.' {
		t.Fatalf("needle should follow a period, preceding char was %q", out[idx-1])
	}
}

func TestAssembleMultiNeedleSpread(t *testing.T) {
	a := testAssembler(t, strings.Repeat(testCorpus+" ", 4))
	needles := []string{"<ONE>", "<TWO>", "<THREE>"}

	out, err := a.Assemble(needles, 350, 10, 10)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}

	var offsets []int
	for _, n := range needles {
		if strings.Count(out, n) != 1 {
			t.Fatalf("needle %s should appear exactly once", n)
		}
		offsets = append(offsets, strings.Index(out, n))
	}
	// First needle at the requested depth, the rest spread deeper in order.
	if !(offsets[0] < offsets[1] && offsets[1] < offsets[2]) {
		t.Fatalf("needles should appear in spread order, offsets were %v", offsets)
	}
	if frac := float64(offsets[2]) / float64(len(out)); frac < 0.5 {
		t.Fatalf("third needle should sit past the midpoint, was at %.2f", frac)
	}
}

func TestAssembleCyclesShortCorpus(t *testing.T) {
	a := testAssembler(t, "Tiny doc. ")
	tok := runeTokenizer{}

	out, err := a.Assemble([]string{"<N>"}, 200, 50, 10)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if got := tok.Count(out); got > 200 {
		t.Fatalf("context has %d tokens, budget was 200", got)
	}
	if strings.Count(out, "Tiny doc.") < 2 {
		t.Fatalf("short corpus should cycle to fill the budget")
	}
}

func TestNewRejectsEmptyCorpus(t *testing.T) {
	if _, err := New([]string{""}, runeTokenizer{}); err == nil {
		t.Fatalf("expected error for corpus with no tokens")
	}
}
