package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Validator is implemented by types that can check themselves after decoding.
type Validator interface {
	Validate() error
}

// Page is a single results envelope. List endpoints answer either with a
// paginated object or with a bare array; both decode into Page.
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// pageEnvelope has Page's fields without its UnmarshalJSON.
type pageEnvelope[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// UnmarshalJSON accepts `[...]`, `{"results": [...]}` and `null`.
func (p *Page[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		p.Results = []T{}
		return nil
	}
	if trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return err
		}
		p.Results = items
		p.Count = len(items)
		return nil
	}

	var env pageEnvelope[T]
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return err
	}
	*p = Page[T](env)
	if p.Results == nil {
		p.Results = []T{}
	}
	return nil
}

// Validate runs Validate on every item that supports it.
func (p *Page[T]) Validate() error {
	for i := range p.Results {
		if v, ok := any(&p.Results[i]).(Validator); ok {
			if err := v.Validate(); err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
		}
	}
	return nil
}

// Items returns the results, never nil.
func (p *Page[T]) Items() []T {
	if p == nil || p.Results == nil {
		return []T{}
	}
	return p.Results
}
