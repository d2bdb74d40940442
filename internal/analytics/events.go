package analytics

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	otellog "go.opentelemetry.io/otel/log"
)

const (
	maxEventNameLength      = 40
	maxEventParams          = 25
	maxParamValueLength     = 100
	maxUserIDLength         = 256
	maxUserPropertyName     = 24
	maxUserPropertyValue    = 36
	paramAttributePrefix    = "param."
	propertyAttributePrefix = "user_property."
)

var (
	namePattern      = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)
	reservedPrefixes = []string{"firebase_", "google_", "ga_"}
)

// validateName applies the event naming rules shared by events, parameters
// and user properties.
func validateName(name string, maxLen int) error {
	if name == "" || len(name) > maxLen {
		return fmt.Errorf("%q must be 1-%d characters", name, maxLen)
	}
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%q must start with a letter and contain only letters, digits and underscores", name)
	}
	for _, prefix := range reservedPrefixes {
		if strings.HasPrefix(strings.ToLower(name), prefix) {
			return fmt.Errorf("%q uses reserved prefix %q", name, prefix)
		}
	}
	return nil
}

// paramAttributes converts event parameters into log attributes, sorted by
// key so records are deterministic.
func paramAttributes(params map[string]any) ([]otellog.KeyValue, error) {
	if len(params) > maxEventParams {
		return nil, fmt.Errorf("%w: %d parameters exceeds limit of %d", ErrInvalidParam, len(params), maxEventParams)
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]otellog.KeyValue, 0, len(keys))
	for _, k := range keys {
		if err := validateName(k, maxEventNameLength); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidParam, err)
		}
		attr, err := paramAttribute(paramAttributePrefix+k, params[k])
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, attr)
	}
	return attrs, nil
}

func paramAttribute(key string, value any) (otellog.KeyValue, error) {
	switch v := value.(type) {
	case string:
		if len(v) > maxParamValueLength {
			return otellog.KeyValue{}, fmt.Errorf("%w: %s longer than %d characters", ErrInvalidParam, key, maxParamValueLength)
		}
		return otellog.String(key, v), nil
	case int:
		return otellog.Int(key, v), nil
	case int64:
		return otellog.Int64(key, v), nil
	case float64:
		return otellog.Float64(key, v), nil
	case bool:
		return otellog.Bool(key, v), nil
	default:
		return otellog.KeyValue{}, fmt.Errorf("%w: %s has unsupported type %T", ErrInvalidParam, key, value)
	}
}
