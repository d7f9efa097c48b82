package core

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Argument keys with meaning outside a single provider.
const (
	ArgModel    = "model"
	ArgProvider = "provider"
)

// IngestionRequest is the validated input to one pipeline build.
// It lives for a single request and is never persisted.
type IngestionRequest struct {
	Provider       Provider
	EmbeddingModel string
	Args           map[string]string // Provider arguments, "model" included
	PipelineID     string
}

// ParseArgsJSON decodes a JSON object whose values are all strings.
// Blank input yields an empty map. Anything else that is not such an object
// fails with ErrMalformedRequest; there is no fallback to empty arguments.
func ParseArgsJSON(raw string) (map[string]string, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]string{}, nil
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, fmt.Errorf("%w: embedding arguments are not valid JSON: %w", ErrMalformedRequest, err)
	}
	if decoded == nil {
		return nil, fmt.Errorf("%w: embedding arguments must be a JSON object", ErrMalformedRequest)
	}

	args := make(map[string]string, len(decoded))
	for k, v := range decoded {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: embedding argument %q must be a string", ErrMalformedRequest, k)
		}
		args[k] = s
	}
	return args, nil
}

// ParseProviderArgs resolves a provider and its argument mapping from raw
// request fields.
//
// The model name is merged into the arguments under "model". A "provider"
// argument is tolerated when it names the same provider and is removed;
// a disagreeing "provider" or "model" argument is an ArgumentError.
func ParseProviderArgs(providerName, modelName, rawArgs string) (Provider, map[string]string, error) {
	provider, err := ParseProvider(providerName)
	if err != nil {
		return 0, nil, err
	}

	if modelName == "" {
		return 0, nil, fmt.Errorf("%w: model name is required", ErrMalformedRequest)
	}

	args, err := ParseArgsJSON(rawArgs)
	if err != nil {
		return 0, nil, err
	}

	if named, ok := args[ArgProvider]; ok {
		other, err := ParseProvider(named)
		if err != nil || other != provider {
			return 0, nil, &ArgumentError{Provider: provider, Key: ArgProvider, Problem: ProblemConflict}
		}
		delete(args, ArgProvider)
	}

	if model, ok := args[ArgModel]; ok && model != modelName {
		return 0, nil, &ArgumentError{Provider: provider, Key: ArgModel, Problem: ProblemConflict}
	}
	args[ArgModel] = modelName

	return provider, args, nil
}

// NewIngestionRequest validates raw request fields. Provider and arguments
// follow ParseProviderArgs; the pipeline identifier must be URL-safe.
func NewIngestionRequest(providerName, modelName, rawArgs, pipelineID string) (*IngestionRequest, error) {
	provider, args, err := ParseProviderArgs(providerName, modelName, rawArgs)
	if err != nil {
		return nil, err
	}

	if err := ValidatePipelineID(pipelineID); err != nil {
		return nil, err
	}

	return &IngestionRequest{
		Provider:       provider,
		EmbeddingModel: modelName,
		Args:           args,
		PipelineID:     pipelineID,
	}, nil
}
