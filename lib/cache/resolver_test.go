package cache

import "testing"

func TestResolve(t *testing.T) {
	tests := []struct {
		name        string
		localTS     uint64
		localOrigin string
		inTS        uint64
		inOrigin    string
		want        Decision
	}{
		{"NewerIncomingWins", 10, "node-a", 20, "node-b", ApplyIncoming},
		{"OlderIncomingLoses", 20, "node-a", 10, "node-b", Keep},
		{"TieHigherOriginWins", 10, "node-a", 10, "node-b", ApplyIncoming},
		{"TieLowerOriginLoses", 10, "node-b", 10, "node-a", Keep},
		{"TieSameOriginKeeps", 10, "node-a", 10, "node-a", Keep},
		{"EmptyLocalLoses", 0, "", 1, "node-a", ApplyIncoming},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.localTS, tt.localOrigin, tt.inTS, tt.inOrigin)
			if got != tt.want {
				t.Errorf("Resolve(%d, %q, %d, %q) = %s, want %s",
					tt.localTS, tt.localOrigin, tt.inTS, tt.inOrigin, got, tt.want)
			}
		})
	}
}

// TestResolveConverges checks that two nodes applying the same pair of writes
// in opposite order end up keeping the same version.
func TestResolveConverges(t *testing.T) {
	type version struct {
		ts     uint64
		origin string
	}

	versions := []version{
		{10, "node-a"},
		{10, "node-b"},
		{20, "node-a"},
		{20, "node-c"},
	}

	// apply b after a (and vice versa) and compare the surviving version
	apply := func(stored, incoming version) version {
		if Resolve(stored.ts, stored.origin, incoming.ts, incoming.origin) == ApplyIncoming {
			return incoming
		}
		return stored
	}

	for _, a := range versions {
		for _, b := range versions {
			forward := apply(a, b)
			backward := apply(b, a)
			if forward != backward {
				t.Errorf("Order-dependent outcome for %+v vs %+v: %+v != %+v", a, b, forward, backward)
			}
		}
	}
}
