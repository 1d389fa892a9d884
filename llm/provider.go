package llm

import (
	"context"
	"errors"

	"github.com/abhesrivas/industriage/types"
)

var ErrNotSupported = errors.New("operation not supported by provider")

type Capabilities struct {
	Streaming        bool
	StructuredOutput bool
}

// Provider is the model backend capability: given a request it returns a
// best-effort completion or fails. The core never inspects transport details.
type Provider interface {
	Name() string
	Capabilities() Capabilities
	Generate(ctx context.Context, req types.Request) (types.Response, error)
}
