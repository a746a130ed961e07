package model

// DuplicateGroup is a retained original plus the later transactions sharing
// its similarity key, in order of appearance.
type DuplicateGroup struct {
	Key        string        `json:"key"`
	Original   Transaction   `json:"original"`
	Duplicates []Transaction `json:"duplicates"`
}

// AutoMatch is a candidate pairing of a bank and a bookkeeping transaction.
type AutoMatch struct {
	Bank       Transaction `json:"bankTransaction"`
	Book       Transaction `json:"bookTransaction"`
	Confidence int         `json:"confidence"`
	Reason     string      `json:"reason"`
}
