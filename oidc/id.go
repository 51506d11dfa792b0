package oidc

import (
	"fmt"

	"github.com/hashicorp/go-uuid"
)

// NewId generates an ID with an optional prefix.  The ID generated is
// suitable for identifying an authorization request or an oauth state
// parameter.
func NewId(optionalPrefix string) (string, error) {
	const op = "oidc.NewId"
	id, err := uuid.GenerateUUID()
	if err != nil {
		return "", fmt.Errorf("%s: unable to generate id: %w", op, ErrIdGeneratorFailed)
	}
	if optionalPrefix != "" {
		return fmt.Sprintf("%s_%s", optionalPrefix, id), nil
	}
	return id, nil
}
