package vkreplay

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Error_Error_IncludesOpAndTag(t *testing.T) {
	t.Parallel()

	err := NewEntryError("walk", "graphics_pipeline", 0xA, ErrCodeCreateFailure, "driver refused")
	require.Contains(t, err.Error(), "op=walk")
	require.Contains(t, err.Error(), "tag=graphics_pipeline")
	require.Contains(t, err.Error(), "driver refused")
}

func Test_Error_Error_FallsBackToCodeWhenMsgEmpty(t *testing.T) {
	t.Parallel()

	err := &Error{Op: "load", Code: ErrCodeBadDatabase}
	require.Contains(t, err.Error(), string(ErrCodeBadDatabase))
}

func Test_WrapError_NilInner_ReturnsNil(t *testing.T) {
	t.Parallel()

	require.Nil(t, WrapError("op", ErrCodeConfig, nil))
}

func Test_WrapError_PlainError_SetsInnerAndCode(t *testing.T) {
	t.Parallel()

	inner := fmt.Errorf("boom")
	err := WrapError("Replay", ErrCodeBadDatabase, inner)
	require.Equal(t, "Replay", err.Op)
	require.Equal(t, ErrCodeBadDatabase, err.Code)
	require.ErrorIs(t, err, inner)
}

func Test_WrapError_AlreadyStructured_PreservesOriginalCodeNotNewOne(t *testing.T) {
	t.Parallel()

	original := NewEntryError("parse", "sampler", 1, ErrCodeParseFailure, "bad json")
	wrapped := WrapError("resolveApplicationInfo", ErrCodeApplicationInfo, original)

	require.Equal(t, "resolveApplicationInfo", wrapped.Op)
	require.Equal(t, ErrCodeParseFailure, wrapped.Code) // not ErrCodeApplicationInfo
	require.Equal(t, original.Tag, wrapped.Tag)
	require.Equal(t, original.Hash, wrapped.Hash)
}

func Test_IsCode_MatchesWrappedError(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("context: %w", NewError("op", ErrCodeApplicationInfo, "missing"))
	require.True(t, IsCode(err, ErrCodeApplicationInfo))
	require.False(t, IsCode(err, ErrCodeBadDatabase))
}

func Test_IsCode_PlainError_IsFalse(t *testing.T) {
	t.Parallel()

	require.False(t, IsCode(errors.New("plain"), ErrCodeBadDatabase))
}

func Test_Error_Is_ComparesByCodeOnly(t *testing.T) {
	t.Parallel()

	a := NewError("op1", ErrCodeCreateFailure, "msg1")
	b := NewError("op2", ErrCodeCreateFailure, "msg2")
	c := NewError("op1", ErrCodeParseFailure, "msg1")

	require.True(t, errors.Is(a, b))
	require.False(t, errors.Is(a, c))
}
