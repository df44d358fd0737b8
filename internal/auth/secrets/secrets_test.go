package secrets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	dErrors "rotacultural/pkg/domain-errors"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := HashWithCost("correct horse", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)

	assert.NoError(t, Verify("correct horse", hash))
	assert.ErrorIs(t, Verify("wrong", hash), ErrMismatch)
}

func TestHashRejects(t *testing.T) {
	_, err := HashWithCost("", bcrypt.MinCost)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = HashWithCost(strings.Repeat("a", 73), bcrypt.MinCost)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestVerifyMalformedHash(t *testing.T) {
	err := Verify("pw", "not-a-hash")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMismatch)
}
