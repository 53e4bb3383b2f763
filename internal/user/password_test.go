package user

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)

	parts := strings.Split(hash, ".")
	require.Len(t, parts, 2)
	assert.NotEmpty(t, parts[0])
	assert.NotEmpty(t, parts[1])

	t.Run("salting makes hashes unique", func(t *testing.T) {
		other, err := HashPassword("hunter2")
		require.NoError(t, err)
		assert.NotEqual(t, hash, other)
	})
}

func TestVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)

	tests := []struct {
		name     string
		password string
		stored   string
		want     bool
	}{
		{
			name:     "matching password",
			password: "correct horse battery staple",
			stored:   hash,
			want:     true,
		}, {
			name:     "wrong password",
			password: "Tr0ub4dor&3",
			stored:   hash,
			want:     false,
		}, {
			name:     "empty password",
			password: "",
			stored:   hash,
			want:     false,
		}, {
			name:     "no separator",
			password: "correct horse battery staple",
			stored:   strings.ReplaceAll(hash, ".", ""),
			want:     false,
		}, {
			name:     "invalid salt encoding",
			password: "correct horse battery staple",
			stored:   "!!!." + strings.Split(hash, ".")[1],
			want:     false,
		}, {
			name:     "empty stored value",
			password: "correct horse battery staple",
			stored:   "",
			want:     false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VerifyPassword(tt.password, tt.stored))
		})
	}
}
