package domain

// Region is the top level of the location taxonomy as returned by the
// listings API metadata endpoint. The tree is read-only after load.
type Region struct {
	LocalityID int        `json:"LocalityId"`
	Name       string     `json:"Name"`
	Districts  []District `json:"Districts"`
}

// District is the middle level of the location taxonomy
type District struct {
	DistrictID int      `json:"DistrictId"`
	Name       string   `json:"Name"`
	Suburbs    []Suburb `json:"Suburbs"`
}

// Suburb is the leaf level of the location taxonomy
type Suburb struct {
	SuburbID int    `json:"SuburbId"`
	Name     string `json:"Name"`
}

// VocabEntry is one entry of a categorical metadata vocabulary
// (property types, sale methods)
type VocabEntry struct {
	Key   string `json:"Key"`
	Value string `json:"Value"`
}

// MatchHint records how one free-text location term was resolved against the
// taxonomy. Zero values mean "nothing provided" / "nothing resolved".
type MatchHint struct {
	Input      string `json:"input,omitempty"`
	Candidate  string `json:"candidate,omitempty"`
	ResolvedID int    `json:"resolvedId,omitempty"`
}

// Resolved reports whether the hint carries a taxonomy match
func (h MatchHint) Resolved() bool {
	return h.ResolvedID != 0
}

// MatchHintSet is the full location resolution for one build attempt.
// A set is produced fresh per attempt and never mutated in place.
type MatchHintSet struct {
	Region   MatchHint `json:"region"`
	District MatchHint `json:"district"`
	Suburb   MatchHint `json:"suburb"`
}
