package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DerivesCategoryAndSeverity(t *testing.T) {
	err := New(ErrCodeDimensionMismatch, "维度不匹配", nil)

	assert.Equal(t, CategoryIndex, err.Category)
	assert.Equal(t, SeverityFatal, err.Severity)
	assert.Contains(t, err.Error(), "ERR_301")
}

func TestWrap_PreservesCause(t *testing.T) {
	cause := fmt.Errorf("underlying")

	err := Wrap(ErrCodeFileUnreadable, cause)

	require.NotNil(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, CategoryIngest, err.Category)
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestIs_MatchesByCode(t *testing.T) {
	a := New(ErrCodeEmptyIndex, "a", nil)
	b := New(ErrCodeEmptyIndex, "b", nil)

	assert.True(t, errors.Is(a, b))
}

func TestEmptyIndexError_CarriesRemediation(t *testing.T) {
	err := EmptyIndexError()

	assert.Equal(t, ErrCodeEmptyIndex, err.Code)
	assert.Contains(t, err.Suggestion, "min_chunk_len")
}

func TestToolError_NotFatal(t *testing.T) {
	err := ToolError("工具失败", nil)

	assert.False(t, IsFatal(err))
	assert.Equal(t, SeverityError, err.Severity)
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, ErrCodeInternal, GetCode(New(ErrCodeInternal, "x", nil)))
	assert.Empty(t, GetCode(fmt.Errorf("plain")))
}
