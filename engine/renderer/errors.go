package renderer

import (
	"errors"
	"fmt"

	"github.com/vivid-engine/vivid/engine/gpu"
)

var (
	errNotInitialized = errors.New("renderer not initialized")
	errTooFewVertices = errors.New("not enough vertices for polygon")
)

func resultError(op string, res gpu.Result) error {
	return fmt.Errorf("%s: %s", op, res)
}
