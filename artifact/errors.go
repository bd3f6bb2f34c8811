package artifact

import (
	"fmt"

	"github.com/hupe1980/taskmesh/core"
)

var (
	// ErrNotFound is returned when an artifact for the given task / id pair
	// does not exist. It wraps core.ErrNotFound so transport layers can map
	// it with a single errors.Is check.
	ErrNotFound = fmt.Errorf("artifact not found: %w", core.ErrNotFound)
)
