package auth

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/masoommulla/project-sub001/internal/domain"
)

func TestCleanEmail(t *testing.T) {
	got, err := cleanEmail("  Maya@Example.COM\n")
	require.NoError(t, err)
	assert.Equal(t, "maya@example.com", got)

	for _, raw := range []string{"", "  ", "maya", "maya@"} {
		_, err := cleanEmail(raw)
		var ve *domain.ValidationError
		require.True(t, errors.As(err, &ve), raw)
		require.Len(t, ve.Fields, 1)
		assert.Equal(t, "email", ve.Fields[0].Field)
	}
}

func TestGenerateCodeDigits(t *testing.T) {
	seen := make(map[byte]int)
	for range 2000 {
		code, err := generateCode(6)
		require.NoError(t, err)
		require.Len(t, code, 6)
		for i := 0; i < len(code); i++ {
			require.True(t, code[i] >= '0' && code[i] <= '9', code)
			seen[code[i]]++
		}
	}
	// 12000 位数字，每个数字期望 1200 次
	for d := byte('0'); d <= '9'; d++ {
		assert.InDelta(t, 1200, seen[d], 200, "digit %c", d)
	}
}
