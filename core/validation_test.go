package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEntityType(t *testing.T) {
	et, err := ParseEntityType("  Product ")
	require.NoError(t, err)
	assert.Equal(t, EntityProduct, et)

	_, err = ParseEntityType("warehouse")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidEntityType)
}

func TestFilterEntityTypes_DropsUnknownSilently(t *testing.T) {
	in := []EntityType{EntityProduct, "warehouse", EntityOrder, ""}
	out := FilterEntityTypes(in)
	assert.Equal(t, []EntityType{EntityProduct, EntityOrder}, out)

	assert.Nil(t, FilterEntityTypes([]EntityType{"nope"}))
}

func TestClampTopK(t *testing.T) {
	assert.Equal(t, DefaultTopK, ClampTopK(0))
	assert.Equal(t, DefaultTopK, ClampTopK(-3))
	assert.Equal(t, 1, ClampTopK(1))
	assert.Equal(t, 7, ClampTopK(7))
	assert.Equal(t, MaxTopK, ClampTopK(500))
}

func TestValidateQuestion(t *testing.T) {
	assert.NoError(t, ValidateQuestion("quantas vendas tivemos?"))
	assert.ErrorIs(t, ValidateQuestion("   "), ErrEmptyQuery)
	assert.ErrorIs(t, ValidateQuestion(strings.Repeat("a", MaxQuestionLength+1)), ErrQuestionTooLong)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-03-15")
	require.NoError(t, err)
	assert.Equal(t, 2025, d.Year())

	_, err = ParseDate("15/03/2025")
	assert.ErrorIs(t, err, ErrInvalidDateRange)
}

func TestDigestFromContent_Deterministic(t *testing.T) {
	a := DigestFromContent("# Produto\nCafeteira Premium")
	b := DigestFromContent("# Produto\nCafeteira Premium")
	c := DigestFromContent("# Produto\nCafeteira Basica")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 32) // 16 bytes hex encoded
}
