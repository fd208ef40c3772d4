package ladder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryStopAll(t *testing.T) {
	r := NewRegistry()
	t1 := NewStopToken()
	t2 := NewStopToken()
	r.Track(t1)
	r.Track(t2)

	r.StopAll()

	assert.True(t, t1.Stopped())
	assert.True(t, t2.Stopped())
}

func TestRegistryUntrackedTokenNotStopped(t *testing.T) {
	r := NewRegistry()
	tracked := NewStopToken()
	untracked := NewStopToken()
	r.Track(tracked)
	r.Track(untracked)
	r.Untrack(untracked)

	r.StopAll()

	assert.True(t, tracked.Stopped())
	assert.False(t, untracked.Stopped())
}

func TestRegistryTrackNilIsNoop(t *testing.T) {
	r := NewRegistry()
	r.Track(nil)
	r.StopAll()
}

func TestStopTokenNilSafe(t *testing.T) {
	var tok *StopToken
	tok.Stop()
	assert.False(t, tok.Stopped())
	assert.Nil(t, tok.Done())
}

func TestStopTokenIdempotentStop(t *testing.T) {
	tok := NewStopToken()
	tok.Stop()
	tok.Stop()
	assert.True(t, tok.Stopped())

	select {
	case <-tok.Done():
	default:
		t.Fatal("Done channel must be closed after Stop")
	}
}
