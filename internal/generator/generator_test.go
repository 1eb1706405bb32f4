package generator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordInvariant(t *testing.T) {
	for i := 0; i < 1000; i++ {
		pw := Password()
		require.Len(t, pw, PasswordLength)

		assert.True(t, strings.ContainsAny(pw, lowercase), "missing lowercase: %q", pw)
		assert.True(t, strings.ContainsAny(pw, uppercase), "missing uppercase: %q", pw)
		assert.True(t, strings.ContainsAny(pw, digits), "missing digit: %q", pw)
		assert.True(t, strings.ContainsAny(pw, symbols), "missing symbol: %q", pw)

		for _, c := range pw {
			assert.True(t, strings.ContainsRune(lowercase+uppercase+digits+symbols, c),
				"unexpected character %q in %q", c, pw)
		}
	}
}

func TestUsernameWithCustomPrefix(t *testing.T) {
	tests := []struct {
		name      string
		prefix    string
		separator string
		counter   int
		want      string
	}{
		{"dot separator", "squad", ".", 1, "squad.1"},
		{"underscore separator", "team", "_", 42, "team_42"},
		{"dash separator", "clan", "-", 100, "clan-100"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Username(tt.prefix, tt.separator, tt.counter))
		})
	}
}

func TestUsernameRandom(t *testing.T) {
	for i := 0; i < 100; i++ {
		name := Username("", ".", 0)

		var matched bool
		for _, p := range usernamePrefixes {
			if strings.HasPrefix(name, p) {
				matched = true
				suffix := strings.TrimPrefix(name, p)
				assert.Len(t, suffix, 6)
				for _, c := range suffix {
					assert.True(t, c >= '0' && c <= '9', "non-digit suffix in %q", name)
				}
				break
			}
		}
		assert.True(t, matched, "unknown prefix in %q", name)
	}
}

func TestPhoneFormat(t *testing.T) {
	for i := 0; i < 100; i++ {
		phone := Phone()
		require.True(t, strings.HasPrefix(phone, "+84-"), "got %q", phone)

		parts := strings.Split(phone, "-")
		require.Len(t, parts, 4)
		assert.Len(t, parts[1], 3)
		assert.Len(t, parts[2], 3)
		assert.Len(t, parts[3], 4)

		var knownPrefix bool
		for _, p := range phonePrefixes {
			if strings.HasPrefix(parts[1], p) {
				knownPrefix = true
				break
			}
		}
		assert.True(t, knownPrefix, "unknown prefix in %q", phone)
	}
}
