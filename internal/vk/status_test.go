package vk_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vkreplay/vkreplay/internal/vk"
)

func Test_Status_Zero_Value_Is_NotParsed(t *testing.T) {
	t.Parallel()

	var s vk.Status
	require.Equal(t, vk.StateNotParsed, s.Load())
}

func Test_Status_Happy_Path_Transitions_In_Order(t *testing.T) {
	t.Parallel()

	var s vk.Status
	require.True(t, s.TryBeginParse())
	require.Equal(t, vk.StateParsing, s.Load())

	s.FinishParse()
	require.Equal(t, vk.StateParsed, s.Load())

	require.True(t, s.TryBeginCreate())
	require.Equal(t, vk.StateCreating, s.Load())

	s.FinishCreate()
	require.Equal(t, vk.StateCreated, s.Load())
	require.True(t, s.Created())
}

func Test_Status_TryBeginParse_Only_Wins_Once(t *testing.T) {
	t.Parallel()

	var s vk.Status
	var wg sync.WaitGroup
	var mu sync.Mutex
	winCount := 0

	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.TryBeginParse() {
				mu.Lock()
				winCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, winCount)
}

func Test_Status_MarkInvalid_Is_Idempotent_And_Terminal(t *testing.T) {
	t.Parallel()

	var s vk.Status
	s.TryBeginParse()
	s.MarkInvalid()
	require.True(t, s.Invalid())

	s.MarkInvalid() // must not panic
	require.True(t, s.Invalid())

	require.False(t, s.TryBeginCreate())
	require.Equal(t, vk.StateInvalid, s.Load())
}

func Test_Status_FinishParse_Panics_Without_A_Matching_Begin(t *testing.T) {
	t.Parallel()

	var s vk.Status
	require.Panics(t, func() {
		s.FinishParse()
	})
}

func Test_Status_FinishCreate_Panics_Without_A_Matching_Begin(t *testing.T) {
	t.Parallel()

	var s vk.Status
	s.TryBeginParse()
	s.FinishParse()
	require.Panics(t, func() {
		s.FinishCreate()
	})
}
