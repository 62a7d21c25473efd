package models

import "strings"

// Card is a catalog identifier of the form <name>_<suit>_<rank>, e.g. "BANG!_K_2".
// Two physical cards may share an identifier.
type Card string

// Suit letters used in card identifiers.
const (
	SuitHearts   = "H"
	SuitDiamonds = "K"
	SuitClubs    = "C"
	SuitSpades   = "P"
)

// Parts splits the identifier into name, suit and rank. ok is false when the
// identifier does not have three parts.
func (c Card) Parts() (name, suit, rank string, ok bool) {
	s := string(c)
	r := strings.LastIndex(s, "_")
	if r <= 0 {
		return "", "", "", false
	}
	m := strings.LastIndex(s[:r], "_")
	if m <= 0 {
		return "", "", "", false
	}
	return s[:m], s[m+1 : r], s[r+1:], true
}

// Name returns the card's name, or the whole identifier if it is malformed.
func (c Card) Name() string {
	name, _, _, ok := c.Parts()
	if !ok {
		return string(c)
	}
	return name
}

// CardStrings converts cards to plain strings for outbound messages.
func CardStrings(cards []Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = string(c)
	}
	return out
}
