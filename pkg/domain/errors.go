package domain

import "errors"

// ErrModelExists is returned when a model name is registered twice.
var ErrModelExists = errors.New("model already registered")

// ErrEngineStarted is returned when a model is registered after serving began.
var ErrEngineStarted = errors.New("engine already serving")
