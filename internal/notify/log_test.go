package notify

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPush_CapsToMostRecentThree(t *testing.T) {
	log := NewLog()
	for i := 1; i <= 5; i++ {
		log.Push(fmt.Sprintf("msg %d", i), SeveritySuccess)
	}

	got := log.List()
	require.Len(t, got, Capacity)
	assert.Equal(t, "msg 5", got[0].Message)
	assert.Equal(t, "msg 4", got[1].Message)
	assert.Equal(t, "msg 3", got[2].Message)
}

func TestPush_IDsIncrease(t *testing.T) {
	log := NewLog()
	first := log.Push("a", SeveritySuccess)
	second := log.Push("b", SeverityError)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Less(t, first.ID, second.ID)
	assert.Equal(t, SeverityError, second.Severity)
}

func TestDismiss(t *testing.T) {
	log := NewLog()
	a := log.Push("a", SeveritySuccess)
	b := log.Push("b", SeveritySuccess)

	assert.True(t, log.Dismiss(a.ID))
	got := log.List()
	require.Len(t, got, 1)
	assert.Equal(t, b.ID, got[0].ID)

	assert.False(t, log.Dismiss(a.ID), "second dismissal is a no-op")
	assert.False(t, log.Dismiss("missing"))
	assert.Len(t, log.List(), 1)
}

func TestSuccessAndError(t *testing.T) {
	log := NewLog()
	log.Success("saved")
	log.Error("broken")

	got := log.List()
	require.Len(t, got, 2)
	assert.Equal(t, SeverityError, got[0].Severity)
	assert.Equal(t, "broken", got[0].Message)
	assert.Equal(t, SeveritySuccess, got[1].Severity)
}

func TestList_ReturnsCopy(t *testing.T) {
	log := NewLog()
	log.Success("a")

	got := log.List()
	got[0].Message = "mutated"
	assert.Equal(t, "a", log.List()[0].Message)

	assert.Nil(t, NewLog().List())
}

func TestLog_ConcurrentPush(t *testing.T) {
	log := NewLog()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			log.Push(fmt.Sprintf("msg %d", i), SeveritySuccess)
		}(i)
	}
	wg.Wait()
	assert.Len(t, log.List(), Capacity)
}
