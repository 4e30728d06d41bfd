package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (g *Guard) busy() bool {
	return g.inFlight.Load()
}

func TestGuard_RejectsReentry(t *testing.T) {
	var g Guard
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		out, err := g.Run(func() Outcome {
			close(started)
			<-release
			return Outcome{}
		})
		assert.NoError(t, err)
		assert.Equal(t, FailureNone, out.Failure)
	}()

	<-started
	assert.True(t, g.busy())
	_, err := g.Run(func() Outcome {
		t.Error("second submission must not run")
		return Outcome{}
	})
	assert.ErrorIs(t, err, ErrSubmissionInFlight)

	close(release)
	<-done
	assert.False(t, g.busy())

	_, err = g.Run(func() Outcome { return Outcome{} })
	require.NoError(t, err)
}
