package chat

import "testing"

func newTestFilter(t *testing.T) *Filter {
	f, err := NewFilter()
	if err != nil {
		t.Fatalf("failed to load embedded rules: %v", err)
	}
	return f
}

func TestClassifyIdentity(t *testing.T) {
	f := newTestFilter(t)

	cases := []struct {
		question string
		want     string
	}{
		{"who made you?", "Suraj"},
		{"WHO MADE YOU", "Suraj"},
		{"hey, what is your name exactly", "Krishi Dev"},
	}
	for _, c := range cases {
		got := f.Classify(c.question)
		if got.Kind != KindIdentity {
			t.Errorf("Classify(%q) kind = %v, want identity", c.question, got.Kind)
		}
		if got.Answer != c.want {
			t.Errorf("Classify(%q) answer = %q, want %q", c.question, got.Answer, c.want)
		}
	}
}

func TestClassifyIdentityTableOrder(t *testing.T) {
	f := newTestFilter(t)

	// Both triggers present: first table entry wins.
	got := f.Classify("who made you and what is your name")
	if got.Kind != KindIdentity || got.Answer != "Suraj" {
		t.Errorf("expected first identity rule to win, got %+v", got)
	}
}

func TestClassifyInDomain(t *testing.T) {
	f := newTestFilter(t)

	for _, q := range []string{
		"How much fertilizer for wheat?",
		"my tomato leaves are turning yellow",
		"best IRRIGATION schedule for paddy",
	} {
		if got := f.Classify(q); got.Kind != KindInDomain {
			t.Errorf("Classify(%q) = %v, want in-domain", q, got.Kind)
		}
	}
}

func TestClassifyOutOfDomain(t *testing.T) {
	f := newTestFilter(t)

	for _, q := range []string{
		"who won the cricket match yesterday",
		"solve 2+2 for me",
		"tell me about politics",
	} {
		if got := f.Classify(q); got.Kind != KindOutOfDomain {
			t.Errorf("Classify(%q) = %v, want out-of-domain", q, got.Kind)
		}
	}
}

func TestFilterRejectsEmptyKeywords(t *testing.T) {
	if _, err := NewFilterFromYAML([]byte("identity: []\nkeywords: []\n")); err == nil {
		t.Error("expected error for empty keyword set")
	}
}
