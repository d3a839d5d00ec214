package internal

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_ServesAndShutsDown(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var order []string
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, ServerConfig{
			Listener: ln,
			Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, "pong")
			}),
			ShutdownTimeout: time.Second,
			Hooks: []ShutdownHook{
				func(context.Context) error { order = append(order, "dispatcher"); return nil },
				func(context.Context) error { order = append(order, "redis"); return nil },
			},
		})
	}()

	resp, err := http.Get("http://" + ln.Addr().String())
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, "pong", string(body))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, []string{"dispatcher", "redis"}, order)
}

func TestRun_DrainRunsAlongsideServerShutdown(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	// The handler stands in for a sync campaign: it only returns once the
	// drain hook lets the work finish.
	finished := make(chan struct{})
	entered := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, ServerConfig{
			Listener: ln,
			Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				close(entered)
				<-finished
				_, _ = io.WriteString(w, "sent")
			}),
			ShutdownTimeout: 5 * time.Second,
			Drain: []ShutdownHook{func(context.Context) error {
				close(finished)
				return nil
			}},
		})
	}()

	reply := make(chan string, 1)
	go func() {
		resp, err := http.Get("http://" + ln.Addr().String())
		if err != nil {
			reply <- err.Error()
			return
		}
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		reply <- string(body)
	}()
	<-entered

	start := time.Now()
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server shutdown waited for the handler instead of draining")
	}
	assert.Less(t, time.Since(start), 3*time.Second)
	assert.Equal(t, "sent", <-reply)
}

func TestRun_HookErrorsAreJoined(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	boom := errors.New("close failed")
	err = Run(ctx, ServerConfig{
		Listener: ln,
		Handler:  http.NotFoundHandler(),
		Hooks:    []ShutdownHook{func(context.Context) error { return boom }},
	})
	require.ErrorIs(t, err, boom)
}

func TestRun_ListenError(t *testing.T) {
	t.Parallel()

	err := Run(context.Background(), ServerConfig{Address: "256.0.0.1:bad", Handler: http.NotFoundHandler()})
	require.Error(t, err)
}
