package queries

import (
	"fmt"
	"strings"
)

// ListUseCasesQuery returns the whole catalog
type ListUseCasesQuery struct{}

func (ListUseCasesQuery) Validate() error { return nil }

// GetUseCaseQuery loads one use case's recorded response as an envelope
type GetUseCaseQuery struct {
	ID string
}

func (q GetUseCaseQuery) Validate() error {
	if strings.TrimSpace(q.ID) == "" {
		return fmt.Errorf("use case id is required")
	}
	return nil
}
