package models

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Parse failures. Roster construction is all-or-nothing: callers abort the
// run on the first bad record because downstream pairing is positional.
var (
	ErrMalformedRecord = errors.New("record must contain 4 or 5 comma-separated fields")
	ErrInvalidYear     = errors.New("birth year must be numeric")
	ErrInvalidMonth    = errors.New("birth month must be an integer between 1 and 12")
)

// MonthUnknown marks a voter whose birth month has not been resolved yet.
const MonthUnknown = 0

// monthPlaceholder is the literal the flat-file format uses for an unknown
// birth month.
const monthPlaceholder = "Unknown"

// Voter is one person under verification. BirthMonth is the only mutable
// field; the scan engine sets it exactly once when a lookup matches.
type Voter struct {
	First      string
	Last       string
	BirthMonth int // MonthUnknown until resolved
	BirthYear  int
	Zip        string
}

// Key identifies a voter independent of birth month, which is the value
// being discovered. Usable directly as a map key.
type Key struct {
	First     string
	Last      string
	BirthYear int
	Zip       string
}

// Parse builds a Voter from a flat-file record: either
// "first,last,year,zip" or "first,last,month,year,zip" where month may be
// the literal "Unknown".
func Parse(record string) (*Voter, error) {
	fields := strings.Split(record, ",")
	v := &Voter{}
	var year, month string
	switch len(fields) {
	case 4:
		v.First, v.Last, year, v.Zip = fields[0], fields[1], fields[2], fields[3]
		month = monthPlaceholder
	case 5:
		v.First, v.Last, month, year, v.Zip = fields[0], fields[1], fields[2], fields[3], fields[4]
	default:
		return nil, fmt.Errorf("%w: got %d fields in %q", ErrMalformedRecord, len(fields), record)
	}

	y, err := strconv.Atoi(year)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidYear, year)
	}
	v.BirthYear = y

	if month != monthPlaceholder {
		m, err := strconv.Atoi(month)
		if err != nil || m < 1 || m > 12 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidMonth, month)
		}
		v.BirthMonth = m
	}
	return v, nil
}

// String renders the 5-field record form, the inverse of Parse.
func (v *Voter) String() string {
	month := monthPlaceholder
	if v.BirthMonth != MonthUnknown {
		month = strconv.Itoa(v.BirthMonth)
	}
	return strings.Join([]string{v.First, v.Last, month, strconv.Itoa(v.BirthYear), v.Zip}, ",")
}

// Key returns the month-independent identity of the voter.
func (v *Voter) Key() Key {
	return Key{First: v.First, Last: v.Last, BirthYear: v.BirthYear, Zip: v.Zip}
}

// MonthKnown reports whether the birth month is currently resolved, either
// from input or discovered by the engine.
func (v *Voter) MonthKnown() bool { return v.BirthMonth != MonthUnknown }

// RequestParams produces the form fields for one lookup attempt at the given
// candidate month. The fields after ZipCode mirror what the upstream search
// form posts alongside the name; their role is unclear, values kept constant.
func (v *Voter) RequestParams(month int) url.Values {
	return url.Values{
		"FirstName":        {v.First},
		"LastName":         {v.Last},
		"NameBirthMonth":   {strconv.Itoa(month)},
		"NameBirthYear":    {strconv.Itoa(v.BirthYear)},
		"ZipCode":          {v.Zip},
		"Dln":              {""},
		"DlnBirthMonth":    {"0"},
		"DlnBirthYear":     {""},
		"DpaID":            {"0"},
		"Months":           {""},
		"VoterNotFound":    {"false"},
		"TransistionVoter": {"false"},
	}
}
