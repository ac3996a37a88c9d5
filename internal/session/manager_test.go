package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osse101/DropTracker_Go/internal/domain"
	"github.com/osse101/DropTracker_Go/internal/platform/platformtest"
)

const testSteamID = uint64(76561198000000001)

func scriptedDialer(steps ...platformtest.ConnectStep) *platformtest.Dialer {
	return &platformtest.Dialer{New: func(label string) *platformtest.Conn {
		c := platformtest.NewConn(label)
		c.ConnectScript = steps
		return c
	}}
}

func fakeConn(t *testing.T, sess *Session) *platformtest.Conn {
	t.Helper()
	c, ok := sess.Conn().(*platformtest.Conn)
	require.True(t, ok)
	return c
}

func TestGetOrCreate_ConnectsFirstAttempt(t *testing.T) {
	dialer := scriptedDialer()
	m := NewManager(dialer, Config{ConnectTimeout: time.Second})

	sess, err := m.GetOrCreate(context.Background(), 0, "main")
	require.NoError(t, err)
	defer sess.Close()

	assert.Equal(t, "main", sess.Label())
	assert.True(t, sess.IsAlive())
	assert.False(t, sess.IsAuthenticated())
	assert.Equal(t, 1, fakeConn(t, sess).ConnectCalls())
}

func TestGetOrCreate_RetriesAfterDisconnect(t *testing.T) {
	dialer := scriptedDialer(platformtest.StepDisconnect, platformtest.StepDisconnect, platformtest.StepConnect)
	m := NewManager(dialer, Config{MaxAttempts: 3, ConnectTimeout: time.Second})

	sess, err := m.GetOrCreate(context.Background(), 0, "main")
	require.NoError(t, err)
	defer sess.Close()

	assert.Equal(t, 3, fakeConn(t, sess).ConnectCalls())
}

func TestGetOrCreate_BudgetExhausted(t *testing.T) {
	dialer := scriptedDialer(platformtest.StepDisconnect, platformtest.StepDisconnect, platformtest.StepDisconnect, platformtest.StepConnect)
	m := NewManager(dialer, Config{MaxAttempts: 3, ConnectTimeout: time.Second})

	sess, err := m.GetOrCreate(context.Background(), 0, "alt")
	require.Error(t, err)
	assert.Nil(t, sess)

	var connErr *ConnectError
	require.True(t, errors.As(err, &connErr))
	assert.Equal(t, "alt", connErr.Label)
	assert.Equal(t, 3, connErr.Attempts)
	assert.ErrorIs(t, err, domain.ErrConnectExhausted)
	assert.Contains(t, err.Error(), "alt")

	conns := dialer.Conns()
	require.Len(t, conns, 1)
	assert.Equal(t, 3, conns[0].ConnectCalls())
	assert.True(t, conns[0].Closed())
}

func TestGetOrCreate_TimeoutConsumesAttempt(t *testing.T) {
	dialer := scriptedDialer(platformtest.StepSilent, platformtest.StepSilent)
	m := NewManager(dialer, Config{MaxAttempts: 2, ConnectTimeout: 20 * time.Millisecond})

	_, err := m.GetOrCreate(context.Background(), 0, "slow")

	var connErr *ConnectError
	require.True(t, errors.As(err, &connErr))
	assert.Equal(t, 2, connErr.Attempts)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGetOrCreate_ConnectCallError(t *testing.T) {
	boom := errors.New("socket refused")
	dialer := &platformtest.Dialer{New: func(label string) *platformtest.Conn {
		c := platformtest.NewConn(label)
		c.ConnectErr = boom
		return c
	}}
	m := NewManager(dialer, Config{MaxAttempts: 3, ConnectTimeout: time.Second})

	_, err := m.GetOrCreate(context.Background(), 0, "main")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, dialer.Conns()[0].ConnectCalls())
}

func TestGetOrCreate_ContextCancelled(t *testing.T) {
	dialer := scriptedDialer(platformtest.StepSilent)
	m := NewManager(dialer, Config{ConnectTimeout: time.Minute})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := m.GetOrCreate(ctx, 0, "main")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	var connErr *ConnectError
	assert.False(t, errors.As(err, &connErr))
}

func TestGetOrCreate_DialError(t *testing.T) {
	m := NewManager(&platformtest.Dialer{Err: errors.New("no bridge")}, Config{})
	_, err := m.GetOrCreate(context.Background(), 0, "main")
	assert.ErrorContains(t, err, "no bridge")
}

func TestGetOrCreate_ReusesLiveSession(t *testing.T) {
	dialer := scriptedDialer()
	m := NewManager(dialer, Config{ConnectTimeout: time.Second})
	ctx := context.Background()

	first, err := m.GetOrCreate(ctx, 0, "main")
	require.NoError(t, err)
	fakeConn(t, first).SetLoggedOn(testSteamID)
	m.Register(first)

	second, err := m.GetOrCreate(ctx, testSteamID, "main")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Len(t, dialer.Conns(), 1)
	require.NoError(t, m.CloseAll())
}

func TestGetOrCreate_EvictsDeadSession(t *testing.T) {
	dialer := scriptedDialer()
	m := NewManager(dialer, Config{ConnectTimeout: time.Second})
	ctx := context.Background()

	first, err := m.GetOrCreate(ctx, 0, "main")
	require.NoError(t, err)
	fakeConn(t, first).SetLoggedOn(testSteamID)
	m.Register(first)
	fakeConn(t, first).Drop()

	second, err := m.GetOrCreate(ctx, testSteamID, "main")
	require.NoError(t, err)
	defer second.Close()

	assert.NotSame(t, first, second)
	assert.True(t, fakeConn(t, first).Closed())
	_, cached := m.Lookup(testSteamID)
	assert.False(t, cached)

	// the replacement can take the id once it authenticates
	fakeConn(t, second).SetLoggedOn(testSteamID)
	assert.NotPanics(t, func() { m.Register(second) })
}

func TestRegister_SecondSessionForSameAccountPanics(t *testing.T) {
	m := NewManager(scriptedDialer(), Config{ConnectTimeout: time.Second})
	ctx := context.Background()

	a, err := m.GetOrCreate(ctx, 0, "a")
	require.NoError(t, err)
	b, err := m.GetOrCreate(ctx, 0, "b")
	require.NoError(t, err)
	defer b.Close()
	fakeConn(t, a).SetLoggedOn(testSteamID)
	fakeConn(t, b).SetLoggedOn(testSteamID)

	m.Register(a)
	assert.NotPanics(t, func() { m.Register(a) })
	assert.Panics(t, func() { m.Register(b) })
	require.NoError(t, m.CloseAll())
}

func TestRegister_WithoutAccountIDPanics(t *testing.T) {
	m := NewManager(scriptedDialer(), Config{ConnectTimeout: time.Second})
	sess, err := m.GetOrCreate(context.Background(), 0, "anon")
	require.NoError(t, err)
	defer sess.Close()

	assert.Panics(t, func() { m.Register(sess) })
}

func TestRegister_ConcurrentDistinctAccounts(t *testing.T) {
	m := NewManager(scriptedDialer(), Config{ConnectTimeout: time.Second})
	ctx := context.Background()

	const n = 16
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sess, err := m.GetOrCreate(ctx, 0, fmt.Sprintf("acc-%d", i))
			if !assert.NoError(t, err) {
				return
			}
			fakeConn(t, sess).SetLoggedOn(testSteamID + uint64(i))
			m.Register(sess)
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		sess, ok := m.Lookup(testSteamID + uint64(i))
		require.True(t, ok)
		assert.Equal(t, fmt.Sprintf("acc-%d", i), sess.Label())
	}
	require.NoError(t, m.CloseAll())
}

func TestRelease_EvictsAndCloses(t *testing.T) {
	m := NewManager(scriptedDialer(), Config{ConnectTimeout: time.Second})
	sess, err := m.GetOrCreate(context.Background(), 0, "main")
	require.NoError(t, err)
	fakeConn(t, sess).SetLoggedOn(testSteamID)
	m.Register(sess)

	require.NoError(t, m.Release(sess))

	_, ok := m.Lookup(testSteamID)
	assert.False(t, ok)
	assert.True(t, fakeConn(t, sess).Closed())
}
