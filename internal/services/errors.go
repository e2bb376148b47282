package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAsset marks missing, corrupt, or undecodable input assets. Fatal to
	// the run; no partial result exists below the segment level.
	ErrAsset = errors.New("asset error")
	// ErrInference marks failures of the external inference capability
	// (auth, rate limit, timeout, provider). Recovered per segment by the
	// enricher; fatal only when every segment fails.
	ErrInference = errors.New("inference error")
	// ErrSchema marks plans or documents that violate the target project
	// schema. Fatal, surfaced with the violating decision or clip.
	ErrSchema = errors.New("schema violation")
	// ErrCancelled marks runs aborted by the caller. Distinct from failure;
	// no partial files persist.
	ErrCancelled = errors.New("run cancelled")

	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Fatal reports whether the error should terminate the run rather than be
// degraded to a per-segment sentinel.
func Fatal(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrAsset), errors.Is(err, ErrSchema),
		errors.Is(err, ErrConfiguration), errors.Is(err, ErrCancelled):
		return true
	default:
		return false
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
