// internal/security/sanitizer_test.go
package security

import (
	"strings"
	"testing"

	cerrors "finplan-assistant/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeText_Valid(t *testing.T) {
	s := Default()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain question", "What is a 401k?", "What is a 401k?"},
		{"surrounding whitespace trimmed", "  how do I budget?  ", "how do I budget?"},
		{"numbers and punctuation", "I make $75,000 per year.", "I make $75,000 per year."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := s.SanitizeText(tt.input, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, out)
		})
	}
}

func TestSanitizeText_Violations(t *testing.T) {
	s := Default()

	tests := []struct {
		name  string
		input string
	}{
		{"credential keyword", "here is my password please"},
		{"long alphanumeric run", "abcdefghij1234567890XYZ might be a key"},
		{"bearer token", "Bearer abc123XYZdef456"},
		{"certificate header", "-----BEGIN RSA PRIVATE-----"},
		{"script tag", "<script>alert(1)</script>"},
		{"javascript uri", "click javascript:doEvil()"},
		{"base64 data url", "data:text/html;base64"},
		{"file protocol", "read file:///etc/hosts"},
		{"localhost url", "http://localhost:8080/admin"},
		{"loopback ip", "connect to 127.0.0.1 now"},
		{"banned phrase", "I saw a stack trace in the logs"},
		{"banned diagnostic", "there was a sql error yesterday"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.SanitizeText(tt.input, 0)
			require.Error(t, err)
			assert.True(t, cerrors.IsSecurityViolation(err))
		})
	}
}

func TestSanitizeText_LengthGate(t *testing.T) {
	s := Default()

	// One char over the cap must be rejected, never truncated.
	long := strings.Repeat("a ", 501) // 1002 chars
	_, err := s.SanitizeText(long, 0)
	require.Error(t, err)
	assert.True(t, cerrors.IsSecurityViolation(err))

	// Caller-raised cap admits the same string.
	out, err := s.SanitizeText(long, 2000)
	require.NoError(t, err)
	assert.Equal(t, strings.TrimSpace(long), out)
}

func TestSanitizeMap(t *testing.T) {
	s := Default()

	t.Run("valid nested map passes through", func(t *testing.T) {
		in := map[string]interface{}{
			"income":  75000.0,
			"married": true,
			"note":    "saving for a house",
			"nested": map[string]interface{}{
				"savings": 10000.0,
			},
			"tags": []interface{}{"housing", "savings"},
			"none": nil,
		}

		out, err := s.SanitizeMap(in, 0)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})

	t.Run("idempotent", func(t *testing.T) {
		in := map[string]interface{}{
			"income": 75000.0,
			"goals":  []interface{}{"retire early"},
		}

		once, err := s.SanitizeMap(in, 0)
		require.NoError(t, err)
		twice, err := s.SanitizeMap(once, 0)
		require.NoError(t, err)
		assert.Equal(t, once, twice)
	})

	t.Run("oversized map rejected", func(t *testing.T) {
		in := map[string]interface{}{
			"blob": strings.Repeat("x ", 6000),
		}
		_, err := s.SanitizeMap(in, 0)
		require.Error(t, err)
		assert.True(t, cerrors.IsSecurityViolation(err))
	})

	t.Run("tainted value rejected", func(t *testing.T) {
		in := map[string]interface{}{
			"note": "my password is hunter2",
		}
		_, err := s.SanitizeMap(in, 0)
		require.Error(t, err)
	})

	t.Run("oversized key rejected", func(t *testing.T) {
		in := map[string]interface{}{
			strings.Repeat("k ", 60): "v",
		}
		_, err := s.SanitizeMap(in, 0)
		require.Error(t, err)
	})
}

func TestSanitizeList(t *testing.T) {
	s := Default()

	t.Run("valid list", func(t *testing.T) {
		in := []interface{}{"a", 1.0, true, nil, []interface{}{"b"}}
		out, err := s.SanitizeList(in)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})

	t.Run("too many items", func(t *testing.T) {
		in := make([]interface{}, 51)
		for i := range in {
			in[i] = "x"
		}
		_, err := s.SanitizeList(in)
		require.Error(t, err)
		assert.True(t, cerrors.IsSecurityViolation(err))
	})
}

func TestValidateStructuredResponse(t *testing.T) {
	s := Default()

	t.Run("valid json", func(t *testing.T) {
		out, err := s.ValidateStructuredResponse(`{"message":"hello","income":75000}`)
		require.NoError(t, err)
		assert.Equal(t, "hello", out["message"])
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := s.ValidateStructuredResponse(`{"message":`)
		require.Error(t, err)
		assert.True(t, cerrors.IsSecurityViolation(err))
	})

	t.Run("over output cap", func(t *testing.T) {
		_, err := s.ValidateStructuredResponse(`{"m":"` + strings.Repeat("a ", 800) + `"}`)
		require.Error(t, err)
	})

	t.Run("sensitive content", func(t *testing.T) {
		_, err := s.ValidateStructuredResponse(`{"m":"Bearer abc123XYZ456"}`)
		require.Error(t, err)
	})
}

func TestValidateFinancialData(t *testing.T) {
	s := Default()

	t.Run("negative debt allowed", func(t *testing.T) {
		out, err := s.ValidateFinancialData(map[string]interface{}{
			"debt":     -5000.0,
			"expenses": -100.0,
			"income":   75000.0,
		})
		require.NoError(t, err)
		assert.Equal(t, 75000.0, out["income"])
	})

	t.Run("negative income rejected", func(t *testing.T) {
		_, err := s.ValidateFinancialData(map[string]interface{}{"income": -1.0})
		require.Error(t, err)
		assert.True(t, cerrors.IsSecurityViolation(err))
	})

	t.Run("absurd value rejected", func(t *testing.T) {
		_, err := s.ValidateFinancialData(map[string]interface{}{"savings": 2e9})
		require.Error(t, err)
	})
}

func TestValidatePersonalInfo(t *testing.T) {
	s := Default()

	t.Run("valid age", func(t *testing.T) {
		out, err := s.ValidatePersonalInfo(map[string]interface{}{"age": 30.0, "name": "Dana"})
		require.NoError(t, err)
		assert.Equal(t, 30.0, out["age"])
	})

	t.Run("negative age rejected", func(t *testing.T) {
		_, err := s.ValidatePersonalInfo(map[string]interface{}{"age": -1.0})
		require.Error(t, err)
	})

	t.Run("age over 150 rejected", func(t *testing.T) {
		_, err := s.ValidatePersonalInfo(map[string]interface{}{"age": 200.0})
		require.Error(t, err)
	})
}
