package cli

import (
	"errors"
	"fmt"
)

// ErrNoTarget is returned when neither a flag nor the configuration names
// the Contentful space or environment.
var ErrNoTarget = errors.New("space and environment are required")

// ResolveTarget picks the space and environment from flags, falling back to
// the configured defaults.
func ResolveTarget(spaceFlag, envFlag, defaultSpace, defaultEnv string) (string, string, error) {
	space, env := spaceFlag, envFlag
	if space == "" {
		space = defaultSpace
	}
	if env == "" {
		env = defaultEnv
	}
	if space == "" || env == "" {
		return "", "", fmt.Errorf("%w: set --space/--env or CONTENTFUL_SPACE_ID/CONTENTFUL_ENVIRONMENT_ID", ErrNoTarget)
	}
	return space, env, nil
}
