// Package usecase models the catalog of pre-recorded analysis questions.
package usecase

import (
	"bytes"
	"encoding/json"
	"fmt"

	"csgclient/pkg/utils"
)

// UseCase is one named, pre-recorded query/response pair
type UseCase struct {
	ID           string `json:"id" validate:"required,max=64"`
	Name         string `json:"name" validate:"required"`
	Description  string `json:"description"`
	ResponseFile string `json:"response_file" validate:"required"`
	Question     string `json:"question,omitempty"`
	Cypher       string `json:"cypher,omitempty"`
}

// Catalog is the ordered list of use cases with an id index
type Catalog struct {
	UseCases []UseCase `json:"use_cases"`
	byID     map[string]int
}

// NewCatalog validates entries and rejects duplicate ids
func NewCatalog(cases []UseCase) (*Catalog, error) {
	c := &Catalog{
		UseCases: make([]UseCase, 0, len(cases)),
		byID:     make(map[string]int, len(cases)),
	}
	for i, uc := range cases {
		if err := utils.ValidateStruct(uc); err != nil {
			return nil, fmt.Errorf("use case %d: %w", i, err)
		}
		if _, dup := c.byID[uc.ID]; dup {
			return nil, fmt.Errorf("use case %d: duplicate id %q", i, uc.ID)
		}
		c.byID[uc.ID] = len(c.UseCases)
		c.UseCases = append(c.UseCases, uc)
	}
	return c, nil
}

// ParseCatalog accepts {"use_cases": [...]} or a bare array
func ParseCatalog(data []byte) (*Catalog, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("catalog is empty")
	}

	var cases []UseCase
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &cases); err != nil {
			return nil, fmt.Errorf("invalid catalog: %w", err)
		}
	} else {
		var doc struct {
			UseCases *[]UseCase `json:"use_cases"`
		}
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, fmt.Errorf("invalid catalog: %w", err)
		}
		if doc.UseCases == nil {
			return nil, fmt.Errorf("invalid catalog: missing use_cases")
		}
		cases = *doc.UseCases
	}
	return NewCatalog(cases)
}

// Find looks up a use case by id
func (c *Catalog) Find(id string) (UseCase, bool) {
	i, ok := c.byID[id]
	if !ok {
		return UseCase{}, false
	}
	return c.UseCases[i], true
}

// Len returns the number of use cases
func (c *Catalog) Len() int {
	return len(c.UseCases)
}

// WithQuestions returns the use cases that can be replayed against the upstream
func (c *Catalog) WithQuestions() []UseCase {
	out := make([]UseCase, 0, len(c.UseCases))
	for _, uc := range c.UseCases {
		if uc.Question != "" {
			out = append(out, uc)
		}
	}
	return out
}

// WithCypher returns the use cases the Neo4j exporter can run
func (c *Catalog) WithCypher() []UseCase {
	out := make([]UseCase, 0, len(c.UseCases))
	for _, uc := range c.UseCases {
		if uc.Cypher != "" {
			out = append(out, uc)
		}
	}
	return out
}

// ResponseFileName is the name the harness uses when recording a response
func ResponseFileName(id string) string {
	return id + "_response.json"
}
