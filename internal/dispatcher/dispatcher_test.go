package dispatcher

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) log(level, msg string, kv []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf("%s %s %v", level, msg, kv))
}

func (l *recordingLogger) Debug(msg string, kv ...any) { l.log("debug", msg, kv) }
func (l *recordingLogger) Info(msg string, kv ...any)  { l.log("info", msg, kv) }
func (l *recordingLogger) Error(msg string, kv ...any) { l.log("error", msg, kv) }

func (l *recordingLogger) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines...)
}

func newBus(t *testing.T) (*Dispatcher, *recordingLogger) {
	t.Helper()
	logger := &recordingLogger{}
	d, err := New(logger)
	require.NoError(t, err)
	t.Cleanup(d.Close)
	return d, logger
}

func TestDispatch_TypedSubscriber(t *testing.T) {
	d, _ := newBus(t)

	var got ShowSubmenu
	On(d, func(c ShowSubmenu) (any, error) {
		got = c
		return "shown", nil
	})

	results, err := d.Dispatch(ShowSubmenu{Type: "iads"})
	require.NoError(t, err)
	assert.Equal(t, "iads", got.Type)
	assert.Equal(t, []any{"shown"}, results)
}

func TestDispatch_NoSubscriber(t *testing.T) {
	d, _ := newBus(t)

	_, err := d.Dispatch(DeleteArea{})
	assert.ErrorIs(t, err, ErrUnknownCommand)
}

func TestDispatch_AllSubscribersInOrder(t *testing.T) {
	d, _ := newBus(t)

	var order []int
	for i := 1; i <= 3; i++ {
		d.Subscribe(KindToggleLabels, func(Command) (any, error) {
			order = append(order, i)
			if i == 2 {
				return nil, errors.New("boom")
			}
			return i, nil
		})
	}

	results, err := d.Dispatch(ToggleLabels{})
	assert.ErrorContains(t, err, "boom")
	assert.Equal(t, []int{1, 2, 3}, order)
	assert.Equal(t, []any{1, nil, 3}, results)
}

func TestBuffered_RunsAsync(t *testing.T) {
	d, _ := newBus(t)

	var handled atomic.Int32
	var wg sync.WaitGroup
	wg.Add(3)
	d.Subscribe(KindBringAreaToBack, func(Command) (any, error) {
		handled.Add(1)
		wg.Done()
		return nil, nil
	}, Buffered(8))

	for i := 0; i < 3; i++ {
		results, err := d.Dispatch(BringAreaToBack{})
		require.NoError(t, err)
		assert.Equal(t, []any{"queued"}, results)
	}

	wg.Wait()
	assert.EqualValues(t, 3, handled.Load())
}

func TestBuffered_DropsWhenFull(t *testing.T) {
	d, _ := newBus(t)

	release := make(chan struct{})
	busy := make(chan struct{}, 1)
	d.Subscribe(KindDeleteArea, func(Command) (any, error) {
		select {
		case busy <- struct{}{}:
		default:
		}
		<-release
		return nil, nil
	}, Buffered(2))
	defer close(release)

	_, err := d.Dispatch(DeleteArea{})
	require.NoError(t, err)
	<-busy

	for i := 0; i < 2; i++ {
		_, err := d.Dispatch(DeleteArea{})
		require.NoError(t, err)
	}
	assert.Equal(t, map[Kind]int{KindDeleteArea: 2}, d.depth())

	_, err = d.Dispatch(DeleteArea{})
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestBuffered_BlockingWaitsForRoom(t *testing.T) {
	d, _ := newBus(t)

	release := make(chan struct{})
	d.Subscribe(KindCreateAreaEffect, func(Command) (any, error) {
		<-release
		return nil, nil
	}, Buffered(1), Blocking())

	for i := 0; i < 2; i++ {
		_, err := d.Dispatch(CreateAreaEffect{})
		require.NoError(t, err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := d.Dispatch(CreateAreaEffect{})
		done <- err
	}()

	select {
	case <-done:
		t.Fatal("blocking dispatch returned while the queue was full")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("blocking dispatch never completed")
	}
}

func TestBuffered_RejectedAfterClose(t *testing.T) {
	d, _ := newBus(t)
	d.Subscribe(KindToggleLabels, func(Command) (any, error) { return nil, nil }, Buffered(4))

	d.Close()
	d.Close()

	_, err := d.Dispatch(ToggleLabels{})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestBuffered_HandlerErrorIsLogged(t *testing.T) {
	d, logger := newBus(t)

	d.Subscribe(KindToggleLabels, func(Command) (any, error) {
		return nil, errors.New("no map")
	}, Buffered(1))

	_, err := d.Dispatch(ToggleLabels{})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		lines := logger.all()
		return len(lines) == 1 && lines[0] == "error Queued command failed [command toggleLabels error no map]"
	}, time.Second, 5*time.Millisecond)
}

func TestLogged(t *testing.T) {
	d, logger := newBus(t)

	d.Subscribe(KindToggleUnitVisibility, func(Command) (any, error) { return nil, nil }, Logged())
	d.Subscribe(KindToggleCoalitionVisibility, func(Command) (any, error) {
		return nil, errors.New("nope")
	}, Logged())

	_, _ = d.Dispatch(ToggleUnitVisibility{UnitType: "aircraft"})
	_, _ = d.Dispatch(ToggleCoalitionVisibility{Coalition: "red"})

	lines := logger.all()
	require.Len(t, lines, 4)
	assert.Contains(t, lines[1], "debug Command complete")
	assert.Contains(t, lines[3], "error Command failed")
}

func TestHasHandler(t *testing.T) {
	d, _ := newBus(t)

	assert.False(t, d.HasHandler(KindToggleLabels))
	On(d, func(ToggleLabels) (any, error) { return nil, nil })
	assert.True(t, d.HasHandler(KindToggleLabels))
}

func TestFromClick(t *testing.T) {
	tests := []struct {
		name    string
		event   string
		params  string
		want    Command
		wantErr error
	}{
		{"submenu", "showSubmenu", `{"type":"iads"}`, ShowSubmenu{Type: "iads"}, nil},
		{"legacy submenu", "coalitionAreaContextMenuShow", `{"type":"iads"}`, ShowSubmenu{Type: "iads"}, nil},
		{"submenu missing type", "showSubmenu", `{}`, nil, ErrInvalidParams},
		{"bring to back", "coalitionAreaBringToBack", "", BringAreaToBack{}, nil},
		{"delete", "deleteArea", "", DeleteArea{}, nil},
		{"legacy create", "contextMenuCreateIads", "", CreateAreaEffect{}, nil},
		{"coalition", "toggleCoalitionVisibility", `{"coalition":"blue"}`, ToggleCoalitionVisibility{Coalition: "blue"}, nil},
		{"unit type", "toggleUnitVisibility", `{"unitType":"helicopter"}`, ToggleUnitVisibility{UnitType: "helicopter"}, nil},
		{"malformed", "toggleUnitVisibility", `{"unitType":`, nil, ErrInvalidParams},
		{"unknown", "launchMissiles", "", nil, ErrUnknownCommand},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromClick(tt.event, tt.params)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromKey(t *testing.T) {
	c, ok := FromKey("KeyL")
	require.True(t, ok)
	assert.Equal(t, KindToggleLabels, c.Kind())

	_, ok = FromKey("KeyQ")
	assert.False(t, ok)
}
