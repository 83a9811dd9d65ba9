package entity

import (
	"encoding/json"
	"fmt"
	"strconv"
)

const unknownLocator = "unknown"

// Locator points at the page of the source document a passage came from.
// A zero Locator means the page is unknown.
type Locator struct {
	Page  int
	Known bool
}

func PageLocator(page int) Locator {
	return Locator{Page: page, Known: true}
}

func (l Locator) String() string {
	if !l.Known {
		return unknownLocator
	}
	return strconv.Itoa(l.Page)
}

// MarshalJSON encodes a known page as a number and an unknown one as "unknown".
func (l Locator) MarshalJSON() ([]byte, error) {
	if !l.Known {
		return json.Marshal(unknownLocator)
	}
	return []byte(strconv.Itoa(l.Page)), nil
}

func (l *Locator) UnmarshalJSON(data []byte) error {
	var page int
	if err := json.Unmarshal(data, &page); err == nil {
		*l = PageLocator(page)
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode locator: %w", err)
	}

	if page, err := strconv.Atoi(raw); err == nil {
		*l = PageLocator(page)
		return nil
	}

	*l = Locator{}
	return nil
}

// Passage is one retrieved unit of corpus text.
type Passage struct {
	Text    string  `json:"text"`
	Source  string  `json:"source"`
	Locator Locator `json:"page"`
}

// Source is the citation of a passage returned to clients.
type Source struct {
	Source string  `json:"source"`
	Page   Locator `json:"page"`
}

func (p Passage) Citation() Source {
	return Source{
		Source: p.Source,
		Page:   p.Locator,
	}
}
