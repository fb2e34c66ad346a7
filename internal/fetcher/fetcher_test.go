package fetcher

import "testing"

func TestClassifyStatus(t *testing.T) {
	t.Parallel()

	cases := []struct {
		code int
		want Outcome
	}{
		{200, OutcomeOK},
		{302, OutcomeTerminal},
		{403, OutcomeTransient},
		{429, OutcomeTransient},
		{500, OutcomeTransient},
		{0, OutcomeTransient},
	}

	for _, tc := range cases {
		if got := ClassifyStatus(tc.code); got != tc.want {
			t.Errorf("ClassifyStatus(%d) = %v, want %v", tc.code, got, tc.want)
		}
	}
}

func TestParamsValues(t *testing.T) {
	t.Parallel()

	p := Params{Length: 5, Ordering: "PriceAsc", Start: 1}
	v := p.values()

	if got := v.Get("maxrows"); got != "500" {
		t.Errorf("maxrows = %q, want 500", got)
	}
	if got := v.Get("length_start"); got != "5" {
		t.Errorf("length_start = %q, want 5", got)
	}
	if got := v.Get("length_end"); got != "5" {
		t.Errorf("length_end = %q, want 5", got)
	}
	if got := v.Get("sort"); got != "PriceAsc" {
		t.Errorf("sort = %q, want PriceAsc", got)
	}
	if v.Has("n") {
		t.Errorf("n should be absent when NextToken is empty")
	}

	p.NextToken = "abc123"
	v = p.values()
	if got := v.Get("n"); got != "abc123" {
		t.Errorf("n = %q, want abc123", got)
	}
}
