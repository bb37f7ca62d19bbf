package sync

import (
	"errors"
	"testing"
	"time"

	"github.com/cschleiden/go-dialogflow/internal/workflowerrors"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func Test_Coroutine_MarkedAsDone(t *testing.T) {
	c := NewCoroutine(func(co Coroutine) error {
		return nil
	})

	require.NoError(t, c.Execute())

	require.True(t, c.Finished())
}

func Test_Coroutine_MarkedAsBlocked(t *testing.T) {
	c := NewCoroutine(func(co Coroutine) error {
		co.Yield()

		require.FailNow(t, "should not reach this")

		return nil
	})

	require.NoError(t, c.Execute())

	require.True(t, c.Blocked())
	require.False(t, c.Finished())

	c.Exit()
}

func Test_Coroutine_Continue(t *testing.T) {
	c := NewCoroutine(func(co Coroutine) error {
		co.Yield()

		return nil
	})

	require.NoError(t, c.Execute())

	require.True(t, c.Blocked())
	require.False(t, c.Finished())

	require.NoError(t, c.Execute())

	require.False(t, c.Blocked())
	require.True(t, c.Finished())
}

func Test_Coroutine_Continue_WhenFinished(t *testing.T) {
	c := NewCoroutine(func(co Coroutine) error {
		return nil
	})

	require.NoError(t, c.Execute())
	require.True(t, c.Finished())

	require.NoError(t, c.Execute())
	require.True(t, c.Finished())
}

func Test_Coroutine_ContinueAndBlock(t *testing.T) {
	reached := false

	c := NewCoroutine(func(co Coroutine) error {
		co.Yield()

		reached = true

		co.Yield()

		require.FailNow(t, "should not reach this")

		return nil
	})

	require.NoError(t, c.Execute())

	require.True(t, c.Blocked())
	require.False(t, c.Finished())

	require.NoError(t, c.Execute())

	require.True(t, c.Blocked())
	require.False(t, c.Finished())
	require.True(t, reached)

	c.Exit()
}

func Test_Coroutine_Exit(t *testing.T) {
	deferred := false

	c := NewCoroutine(func(co Coroutine) error {
		defer func() {
			deferred = true
		}()

		co.Yield()

		require.FailNow(t, "should not reach this")

		return nil
	})

	require.NoError(t, c.Execute())
	require.True(t, c.Blocked())

	c.Exit()

	require.True(t, c.Finished())
	require.True(t, deferred)
	require.NoError(t, c.Error())
}

func Test_Coroutine_ExitIfAlreadyFinished(t *testing.T) {
	c := NewCoroutine(func(co Coroutine) error {
		return nil
	})

	require.NoError(t, c.Execute())
	require.True(t, c.Finished())

	c.Exit()

	require.True(t, c.Finished())
}

func Test_Coroutine_Error(t *testing.T) {
	c := NewCoroutine(func(co Coroutine) error {
		return errors.New("test error")
	})

	require.NoError(t, c.Execute())

	require.True(t, c.Finished())
	require.EqualError(t, c.Error(), "test error")
}

func Test_Coroutine_Panic(t *testing.T) {
	c := NewCoroutine(func(co Coroutine) error {
		panic("test panic")
	})

	require.NoError(t, c.Execute())

	require.True(t, c.Finished())

	var pe *workflowerrors.PanicError
	require.ErrorAs(t, c.Error(), &pe)
	require.Equal(t, "panic: test panic", pe.Error())
	require.Contains(t, pe.Stack(), "Test_Coroutine_Panic")
}

func Test_Coroutine_Deadlock(t *testing.T) {
	release := make(chan struct{})

	c := newCoroutine(10*time.Millisecond, func(co Coroutine) error {
		<-release
		return nil
	})

	err := c.Execute()
	require.ErrorIs(t, err, ErrCoroutineDeadlocked)

	close(release)

	// Wait for the goroutine to finish so nothing leaks
	require.Eventually(t, c.Finished, time.Second, time.Millisecond)
}
