package models

import (
	"fmt"
	"strings"
)

// Instrument identifies a tradeable asset by category, symbol and venue.
// The triple is the identity: two instruments are the same position only if
// all three fields match exactly (no case folding, no venue aliasing).
type Instrument struct {
	Category string `json:"category"`
	Symbol   string `json:"symbol"`
	Venue    string `json:"venue"`
}

// NewInstrument builds an Instrument from its three identity fields.
func NewInstrument(category, symbol, venue string) Instrument {
	return Instrument{Category: category, Symbol: symbol, Venue: venue}
}

// Compare orders instruments lexicographically over (category, symbol, venue).
func (i Instrument) Compare(other Instrument) int {
	if c := strings.Compare(i.Category, other.Category); c != 0 {
		return c
	}
	if c := strings.Compare(i.Symbol, other.Symbol); c != 0 {
		return c
	}
	return strings.Compare(i.Venue, other.Venue)
}

// Less reports whether i sorts before other.
func (i Instrument) Less(other Instrument) bool {
	return i.Compare(other) < 0
}

func (i Instrument) String() string {
	return i.Category + ":" + i.Symbol + ":" + i.Venue
}

// MarshalText encodes the instrument as "category:symbol:venue" so it can be
// used as a JSON map key in weight vectors.
func (i Instrument) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// UnmarshalText parses the "category:symbol:venue" key form.
func (i *Instrument) UnmarshalText(b []byte) error {
	parts := strings.Split(string(b), ":")
	if len(parts) != 3 {
		return fmt.Errorf("instrument key %q: want category:symbol:venue", string(b))
	}
	i.Category, i.Symbol, i.Venue = parts[0], parts[1], parts[2]
	return nil
}
