package model

// MatchGroup is the ordered set of identities migrating together between
// pipeline stages. Carry holds opaque context (e.g. the selected map
// category) propagated to the destination instance.
type MatchGroup struct {
	Members []Identity        `json:"members"`
	Carry   map[string]string `json:"carry,omitempty"`
}

// NewMatchGroup builds a group preserving member order and dropping
// duplicates
func NewMatchGroup(members []Identity, carry map[string]string) MatchGroup {
	seen := make(map[Identity]bool, len(members))
	ordered := make([]Identity, 0, len(members))
	for _, m := range members {
		if seen[m] {
			continue
		}
		seen[m] = true
		ordered = append(ordered, m)
	}
	return MatchGroup{Members: ordered, Carry: carry}
}

// Retain returns the group restricted to the given identities, preserving
// member order and carry
func (g MatchGroup) Retain(present []Identity) MatchGroup {
	keep := make(map[Identity]bool, len(present))
	for _, p := range present {
		keep[p] = true
	}
	members := make([]Identity, 0, len(g.Members))
	for _, m := range g.Members {
		if keep[m] {
			members = append(members, m)
		}
	}
	return MatchGroup{Members: members, Carry: g.Carry}
}
