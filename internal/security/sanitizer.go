// Package security provides input validation, content filtering, and
// response sanitization for everything crossing the LLM boundary.
package security

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	cerrors "finplan-assistant/internal/common/errors"

	"finplan-assistant/internal/common/config"
)

// Default size limits. Callers may override via config.
const (
	MaxInputLength  = 2000
	MaxOutputLength = 1500
	MaxJSONSize     = 10000
	MaxArrayLength  = 50
	MaxStringLength = 1000
	MaxKeyLength    = 100
)

// sensitivePatterns match content that must never cross the LLM boundary in
// either direction: credential-like tokens, script/URI injection vectors, and
// loopback addresses.
var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:api[_-]?key|secret|password|token|credential|auth[_-]?token)\b`),
	regexp.MustCompile(`\b[A-Za-z0-9]{20,}\b`), // long runs that might be keys
	regexp.MustCompile(`\$\{.*?\}`),            // environment variable patterns
	regexp.MustCompile(`-----BEGIN.*?-----`),   // certificate headers
	regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9\-_]+`),
	regexp.MustCompile(`(?is)<script.*?>.*?</script>`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)data:.*?base64`),
	regexp.MustCompile(`(?i)file://`),
	regexp.MustCompile(`localhost:\d+`),
	regexp.MustCompile(`\b(?:127\.0\.0\.1|0\.0\.0\.0)\b`),
}

// bannedPhrases must never appear in user input or model output. They are
// diagnostic leakage markers, matched case-insensitively.
var bannedPhrases = []string{
	"internal error",
	"stack trace",
	"debug",
	"console.log",
	"print(",
	"error:",
	"exception:",
	"traceback",
	"sql error",
	"database error",
}

// Sanitizer validates strings, maps, and lists against size and content
// rules. It is a validation gate, not a transform: inputs either pass through
// unchanged (modulo surrounding whitespace) or are rejected outright.
type Sanitizer struct {
	maxInputLength  int
	maxOutputLength int
	maxJSONSize     int
	maxArrayLength  int
	maxStringLength int
}

// NewSanitizer builds a Sanitizer from the security config section. Zero
// limits fall back to the package defaults.
func NewSanitizer(cfg config.SecurityConfig) *Sanitizer {
	s := &Sanitizer{
		maxInputLength:  cfg.MaxInputLength,
		maxOutputLength: cfg.MaxOutputLength,
		maxJSONSize:     cfg.MaxJSONSize,
		maxArrayLength:  cfg.MaxArrayLength,
		maxStringLength: cfg.MaxStringLength,
	}
	if s.maxInputLength == 0 {
		s.maxInputLength = MaxInputLength
	}
	if s.maxOutputLength == 0 {
		s.maxOutputLength = MaxOutputLength
	}
	if s.maxJSONSize == 0 {
		s.maxJSONSize = MaxJSONSize
	}
	if s.maxArrayLength == 0 {
		s.maxArrayLength = MaxArrayLength
	}
	if s.maxStringLength == 0 {
		s.maxStringLength = MaxStringLength
	}
	return s
}

// Default returns a Sanitizer with the package default limits.
func Default() *Sanitizer {
	return NewSanitizer(config.SecurityConfig{})
}

// MaxInput returns the configured input length cap for caller-facing text.
func (s *Sanitizer) MaxInput() int {
	return s.maxInputLength
}

func violation(format string, args ...interface{}) error {
	return cerrors.NewSecurityViolationError(fmt.Sprintf(format, args...))
}

// SanitizeText validates a string and returns it trimmed. maxLength <= 0
// applies the default string cap. Long input, sensitive patterns, and banned
// phrases are all rejected; nothing is silently truncated or redacted.
func (s *Sanitizer) SanitizeText(text string, maxLength int) (string, error) {
	if maxLength <= 0 {
		maxLength = s.maxStringLength
	}

	if len(text) > maxLength {
		return "", violation("string too long, maximum %d characters allowed", maxLength)
	}

	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(text) {
			return "", violation("string contains potentially sensitive information")
		}
	}

	lower := strings.ToLower(text)
	for _, phrase := range bannedPhrases {
		if strings.Contains(lower, phrase) {
			return "", violation("string contains banned phrase: %s", phrase)
		}
	}

	return strings.TrimSpace(text), nil
}

// SanitizeMap recursively validates a map. maxSize <= 0 applies the default
// JSON size cap. Nested maps are checked at half the remaining budget.
func (s *Sanitizer) SanitizeMap(data map[string]interface{}, maxSize int) (map[string]interface{}, error) {
	if data == nil {
		return nil, violation("input must be a map")
	}
	if maxSize <= 0 {
		maxSize = s.maxJSONSize
	}

	serialized, err := json.Marshal(data)
	if err != nil {
		return nil, violation("map is not serializable: %v", err)
	}
	if len(serialized) > maxSize {
		return nil, violation("map too large, maximum %d characters allowed", maxSize)
	}

	sanitized := make(map[string]interface{}, len(data))
	for key, value := range data {
		cleanKey, err := s.SanitizeText(key, MaxKeyLength)
		if err != nil {
			return nil, err
		}

		cleanValue, err := s.sanitizeValue(value, maxSize/2)
		if err != nil {
			return nil, err
		}

		sanitized[cleanKey] = cleanValue
	}

	return sanitized, nil
}

// SanitizeList validates a list and each of its elements.
func (s *Sanitizer) SanitizeList(data []interface{}) ([]interface{}, error) {
	if data == nil {
		return nil, violation("input must be a list")
	}
	if len(data) > s.maxArrayLength {
		return nil, violation("list too long, maximum %d items allowed", s.maxArrayLength)
	}

	sanitized := make([]interface{}, 0, len(data))
	for _, item := range data {
		clean, err := s.sanitizeValue(item, s.maxJSONSize/2)
		if err != nil {
			return nil, err
		}
		sanitized = append(sanitized, clean)
	}

	return sanitized, nil
}

// sanitizeValue dispatches on the dynamic type of a decoded JSON value.
// Unknown types are stringified and validated as text.
func (s *Sanitizer) sanitizeValue(value interface{}, mapBudget int) (interface{}, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		return s.SanitizeText(v, 0)
	case bool, int, int32, int64, float32, float64:
		return v, nil
	case map[string]interface{}:
		return s.SanitizeMap(v, mapBudget)
	case []interface{}:
		return s.SanitizeList(v)
	default:
		return s.SanitizeText(fmt.Sprintf("%v", v), 0)
	}
}

// ValidateStructuredResponse validates raw model output and returns the
// parsed, sanitized structure. The output length cap is stricter than the
// input cap.
func (s *Sanitizer) ValidateStructuredResponse(responseText string) (map[string]interface{}, error) {
	if len(responseText) > s.maxOutputLength {
		return nil, violation("response too long")
	}

	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(responseText) {
			return nil, violation("response contains potentially sensitive information")
		}
	}

	lower := strings.ToLower(responseText)
	for _, phrase := range bannedPhrases {
		if strings.Contains(lower, phrase) {
			return nil, violation("response contains banned phrase: %s", phrase)
		}
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(responseText), &parsed); err != nil {
		return nil, violation("invalid JSON response: %v", err)
	}

	return s.SanitizeMap(parsed, 0)
}

// ValidateFinancialData applies domain rules to extracted financial figures:
// negative values are only allowed for debt and expenses, and no figure may
// exceed one billion. Remaining checks delegate to SanitizeMap.
func (s *Sanitizer) ValidateFinancialData(data map[string]interface{}) (map[string]interface{}, error) {
	if data == nil {
		return nil, violation("financial data must be a map")
	}

	for key, value := range data {
		num, ok := toFloat(value)
		if !ok {
			continue
		}
		if num < 0 && key != "debt" && key != "expenses" {
			return nil, violation("invalid negative value for %s", key)
		}
		if num > 1_000_000_000 {
			return nil, violation("value too large for %s", key)
		}
	}

	return s.SanitizeMap(data, 0)
}

// ValidatePersonalInfo applies domain rules to extracted personal info; only
// age has a dedicated range check, the rest delegates to SanitizeMap.
func (s *Sanitizer) ValidatePersonalInfo(data map[string]interface{}) (map[string]interface{}, error) {
	if data == nil {
		return nil, violation("personal info must be a map")
	}

	if raw, ok := data["age"]; ok {
		if age, isNum := toFloat(raw); isNum {
			if age < 0 || age > 150 {
				return nil, violation("invalid age value")
			}
		}
	}

	return s.SanitizeMap(data, 0)
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}
