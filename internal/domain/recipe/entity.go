// Package recipe contains the recipe request and result model
package recipe

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Recipe is a generated recipe as returned by the backend. Only the name is
// expected for a meaningful render; everything else is optional.
type Recipe struct {
	Name     string   `json:"name"`
	Calories Figure   `json:"calories"`
	Protein  Figure   `json:"protein"`
	Steps    []string `json:"steps,omitempty"`
}

// HasSteps reports whether the recipe has any steps to list
func (r *Recipe) HasSteps() bool {
	return len(r.Steps) > 0
}

// Decode parses a backend response body into a Recipe
func Decode(body []byte) (*Recipe, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrNotAnObject
	}

	var r Recipe
	if err := json.Unmarshal(trimmed, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Figure is a nutrition value that the backend may send either as a string
// ("350 kcal") or as a number (350).
type Figure struct {
	text    string
	present bool
}

// NewFigure returns a present figure with the given text
func NewFigure(text string) Figure {
	return Figure{text: text, present: text != ""}
}

// Present reports whether the field was sent with a non-null, non-empty value.
// A numeric zero counts as present.
func (f Figure) Present() bool {
	return f.present
}

// String returns the figure as displayed
func (f Figure) String() string {
	return f.text
}

// UnmarshalJSON accepts null, strings and numbers
func (f *Figure) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*f = Figure{}

	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = NewFigure(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidFigure, string(data))
	}
	*f = Figure{text: n.String(), present: true}
	return nil
}

// MarshalJSON writes the figure back as a string, or null when absent
func (f Figure) MarshalJSON() ([]byte, error) {
	if !f.present {
		return []byte("null"), nil
	}
	return json.Marshal(f.text)
}
