package config

import "errors"

// ErrInvalidConfig indicates an invalid configuration was provided.
var ErrInvalidConfig = errors.New("invalid configuration")
