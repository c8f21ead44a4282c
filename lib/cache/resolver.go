package cache

// --------------------------------------------------------------------------
// Conflict Resolver
// --------------------------------------------------------------------------

// Decision is the outcome of resolving a stored version of a key against an
// incoming replicated version.
type Decision int

const (
	// Keep keeps the stored version and discards the incoming one.
	Keep Decision = iota
	// ApplyIncoming replaces the stored version with the incoming one.
	ApplyIncoming
)

func (d Decision) String() string {
	if d == ApplyIncoming {
		return "ApplyIncoming"
	}
	return "Keep"
}

// Resolve decides between the stored version of a key and an incoming
// replicated version using last-write-wins semantics:
//
//   - a strictly greater incoming timestamp wins,
//   - on an exact timestamp tie the lexicographically higher origin node id
//     wins (deterministic on every node, so replicas never diverge no matter
//     in which order messages arrive).
//
// The same rule orders deletes against updates: callers pass the stored
// deletion timestamp as localTS so a stale update can never resurrect a key
// deleted with a newer timestamp.
//
// Resolve is a pure function, safe for concurrent use.
func Resolve(localTS uint64, localOrigin string, inTS uint64, inOrigin string) Decision {
	if inTS > localTS {
		return ApplyIncoming
	}
	if inTS == localTS && inOrigin > localOrigin {
		return ApplyIncoming
	}
	return Keep
}
