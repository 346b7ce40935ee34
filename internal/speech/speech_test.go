package speech

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recordingSpeaker struct {
	mu    sync.Mutex
	calls []string
	err   error
	block bool
}

func (r *recordingSpeaker) Speak(ctx context.Context, text, lang string, rate float64) error {
	r.mu.Lock()
	r.calls = append(r.calls, lang+":"+text)
	r.mu.Unlock()
	if r.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return r.err
}

func TestSay_RunsInBackground(t *testing.T) {
	sp := &recordingSpeaker{}
	done := Say(sp, "bonjour", "fr-FR", 1, time.Second, nil)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("playback did not finish")
	}
	assert.Equal(t, []string{"fr-FR:bonjour"}, sp.calls)
}

func TestSay_TimesOut(t *testing.T) {
	sp := &recordingSpeaker{block: true}
	start := time.Now()
	done := Say(sp, "long text", "en-US", 1, 20*time.Millisecond, nil)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("playback was not abandoned after the timeout")
	}
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestSay_SkipsBlankTextAndErrors(t *testing.T) {
	sp := &recordingSpeaker{err: errors.New("no audio device")}

	<-Say(sp, "   ", "en-US", 1, time.Second, nil)
	assert.Empty(t, sp.calls)

	<-Say(sp, "hello", "en-US", 1, time.Second, nil)
	assert.Len(t, sp.calls, 1)

	<-Say(nil, "hello", "en-US", 1, time.Second, nil)
}

func TestNop(t *testing.T) {
	assert.NoError(t, Nop{}.Speak(context.Background(), "x", "en", 1))
}
