package identity

import "testing"

func TestNormalize(t *testing.T) {
	if got := Normalize("  xX_Pl@yer-1 Xx "); got != "xxplyer1xx" {
		t.Fatalf("unexpected normalization: %q", got)
	}
	if got := Normalize("김철수#12"); got != "김철수12" {
		t.Fatalf("letters outside ASCII must survive: %q", got)
	}
}

func TestFuzzyMatch(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"P1ayer1", "Player1", true},
		{"Plyr1", "Player1", true},
		{"RandomGuy", "Player1", false},
		{"PLAYER 1", "player1", true},
	}
	for _, c := range cases {
		if got := FuzzyMatch(c.a, c.b); got != c.want {
			t.Fatalf("FuzzyMatch(%q,%q) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestResolveSingleFuzzyHitLeft(t *testing.T) {
	a := Resolve("P1ayer1", "RandomGuy", "Player1")
	if a.Uploader != Left || a.Method != MethodFuzzy {
		t.Fatalf("expected left by fuzzy, got %+v", a)
	}
	if a.Ambiguous() || a.UploaderIsRight() {
		t.Fatalf("unexpected flags: %+v", a)
	}
}

func TestResolveSingleFuzzyHitRight(t *testing.T) {
	a := Resolve("RandomGuy", "Player_1", "Player1")
	if a.Uploader != Right || !a.UploaderIsRight() {
		t.Fatalf("expected right, got %+v", a)
	}
}

func TestResolveBothFuzzyFallsBackToExact(t *testing.T) {
	a := Resolve("Player2", "player1", "Player1")
	if !a.LeftMatched || !a.RightMatched {
		t.Fatalf("both sides should fuzzy match: %+v", a)
	}
	if a.Uploader != Right || a.Method != MethodExact {
		t.Fatalf("expected exact match on right, got %+v", a)
	}
}

func TestResolveBothFuzzyNoExactIsAmbiguous(t *testing.T) {
	a := Resolve("Player2", "Player3", "Player1")
	if !a.Ambiguous() {
		t.Fatalf("expected ambiguous, got %+v", a)
	}
}

func TestResolveNeitherIsAmbiguous(t *testing.T) {
	a := Resolve("Alpha", "Bravo", "Player1")
	if !a.Ambiguous() || a.Method != MethodNone {
		t.Fatalf("expected ambiguous, got %+v", a)
	}
}

func TestResolveBlankRegisteredIsAmbiguous(t *testing.T) {
	if a := Resolve("", "", "  "); !a.Ambiguous() {
		t.Fatalf("blank registered name must be ambiguous")
	}
}

func TestResolveDeterministic(t *testing.T) {
	first := Resolve("Player2", "player1", "Player1")
	for i := 0; i < 10; i++ {
		if got := Resolve("Player2", "player1", "Player1"); got != first {
			t.Fatalf("non-deterministic result: %+v vs %+v", got, first)
		}
	}
}
