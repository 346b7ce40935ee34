// Package speech defines the audio playback collaborator.
package speech

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Speaker plays text aloud and returns when playback has finished.
type Speaker interface {
	Speak(ctx context.Context, text, lang string, rate float64) error
}

// Nop is a Speaker that stays silent.
type Nop struct{}

// Speak implements Speaker.
func (Nop) Speak(context.Context, string, string, float64) error { return nil }

// Command speaks through an external text-to-speech program such as espeak-ng.
// The program is called as: <Path> -s <words per minute> -v <lang> <text>.
type Command struct {
	Path string
	// BaseWPM is the speed used for rate 1.0.
	BaseWPM int
}

// Speak implements Speaker.
func (c Command) Speak(ctx context.Context, text, lang string, rate float64) error {
	base := c.BaseWPM
	if base <= 0 {
		base = 175
	}
	wpm := int(float64(base) * rate)
	if wpm < 1 {
		wpm = 1
	}

	args := []string{"-s", strconv.Itoa(wpm)}
	if lang != "" {
		args = append(args, "-v", strings.ToLower(lang))
	}
	args = append(args, text)

	out, err := exec.CommandContext(ctx, c.Path, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("failed to run %s: %w: %s", c.Path, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Say starts playback in the background and returns immediately. Playback is
// abandoned after timeout; failures are only logged.
func Say(sp Speaker, text, lang string, rate float64, timeout time.Duration, logger *slog.Logger) <-chan struct{} {
	done := make(chan struct{})
	if logger == nil {
		logger = slog.Default()
	}
	if sp == nil || strings.TrimSpace(text) == "" {
		close(done)
		return done
	}

	go func() {
		defer close(done)
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := sp.Speak(ctx, text, lang, rate); err != nil {
			logger.Warn("speech playback failed", "lang", lang, "error", err)
		}
	}()
	return done
}
