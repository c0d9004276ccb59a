package config

import (
	"fmt"
	"strings"
)

// Environment selects which overlay files are merged last and which
// environment-dependent defaults apply.
type Environment string

const (
	Dev   Environment = "dev"
	Stage Environment = "stage"
	Prod  Environment = "prod"
)

// ParseEnvironment accepts dev, stage or prod (case-insensitive).
func ParseEnvironment(raw string) (Environment, error) {
	switch env := Environment(strings.ToLower(strings.TrimSpace(raw))); env {
	case Dev, Stage, Prod:
		return env, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownEnvironment, raw)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *Environment) UnmarshalText(b []byte) error {
	env, err := ParseEnvironment(string(b))
	if err != nil {
		return err
	}
	*e = env
	return nil
}

func (e Environment) String() string {
	return string(e)
}

// IsDev reports whether e is the development environment.
func (e Environment) IsDev() bool {
	return e == Dev
}
