package factory

import (
	"fmt"
	"os"
	"strings"

	"github.com/abhesrivas/industriage/llm"
	anthropicprov "github.com/abhesrivas/industriage/providers/anthropic"
	ollamaprov "github.com/abhesrivas/industriage/providers/ollama"
	openaiprov "github.com/abhesrivas/industriage/providers/openai"
)

// Kind enumerates the supported model backends. Workflows declare the kind
// explicitly; there is no model-name sniffing, and an unrecognized kind fails
// here at construction time rather than at the first call.
type Kind string

const (
	KindOpenAI    Kind = "openai"
	KindAnthropic Kind = "anthropic"
	KindOllama    Kind = "ollama"
)

func ParseKind(raw string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(raw))) {
	case KindOpenAI:
		return KindOpenAI, nil
	case KindAnthropic:
		return KindAnthropic, nil
	case KindOllama:
		return KindOllama, nil
	default:
		return "", fmt.Errorf("unsupported backend kind %q (use openai, anthropic, or ollama)", raw)
	}
}

type Config struct {
	Model   string
	APIKey  string
	BaseURL string
}

func New(kind Kind, cfg Config) (llm.Provider, error) {
	switch kind {
	case KindOpenAI:
		key := cfg.APIKey
		if key == "" {
			key = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
		}
		if key == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for backend kind %q", kind)
		}
		opts := []openaiprov.Option{}
		if cfg.Model != "" {
			opts = append(opts, openaiprov.WithModel(cfg.Model))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openaiprov.WithBaseURL(cfg.BaseURL))
		}
		return openaiprov.New(key, opts...)

	case KindAnthropic:
		key := cfg.APIKey
		if key == "" {
			key = strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
		}
		if key == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is required for backend kind %q", kind)
		}
		opts := []anthropicprov.Option{}
		if cfg.Model != "" {
			opts = append(opts, anthropicprov.WithModel(cfg.Model))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, anthropicprov.WithBaseURL(cfg.BaseURL))
		}
		return anthropicprov.New(key, opts...)

	case KindOllama:
		opts := []ollamaprov.Option{}
		if cfg.Model != "" {
			opts = append(opts, ollamaprov.WithModel(cfg.Model))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, ollamaprov.WithBaseURL(cfg.BaseURL))
		}
		return ollamaprov.New(opts...)

	default:
		return nil, fmt.Errorf("unsupported backend kind %q", kind)
	}
}
