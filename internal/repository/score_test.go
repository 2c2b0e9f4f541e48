package repository

import "testing"

func TestEncodeDecode_RoundTrip(t *testing.T) {
	cases := []struct {
		raw int64
		t   float64
	}{
		{0, 0}, {100, 12345}, {100_000_000, baseTS - 1}, {42, baseTS / 2},
	}
	for _, c := range cases {
		got := decodeScore(encodeScore(c.raw, c.t))
		if got != c.raw {
			t.Fatalf("decode(encode(%d, %f)) = %d, want %d", c.raw, c.t, got, c.raw)
		}
	}
}

func TestEncodeScore_TieBreakFavorsEarlierSubmission(t *testing.T) {
	const raw = 50
	t1, t2 := 1000.0, 2000.0
	e1 := encodeScore(raw, t1)
	e2 := encodeScore(raw, t2)
	if !(e1 > e2) {
		t.Fatalf("expected encode(raw, t1=%f)=%f > encode(raw, t2=%f)=%f", t1, e1, t2, e2)
	}
	if decodeScore(e1) != raw || decodeScore(e2) != raw {
		t.Fatalf("tie-break term leaked into integer part: e1=%f e2=%f", e1, e2)
	}
}
