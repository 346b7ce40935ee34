package library

import (
	"context"

	"github.com/hiansit/ankiflow/internal/domain"
	"github.com/hiansit/ankiflow/internal/level"
	"github.com/hiansit/ankiflow/internal/playlist"
	"github.com/hiansit/ankiflow/internal/speech"
)

// Side names one face of a card.
type Side int

const (
	Front Side = iota
	Back
)

// Session is a review pass over one subject.
type Session struct {
	lib       *Library
	subject   domain.Subject
	levels    []int
	mode      playlist.Mode
	scheduler *playlist.Scheduler
}

// StartSession loads the subject's items and builds a playlist from those
// whose level is in levels. An empty levels selects every level of the policy.
func (l *Library) StartSession(ctx context.Context, subjectID int64, levels []int, mode playlist.Mode) (*Session, error) {
	subject, err := l.store.GetSubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if len(levels) == 0 {
		levels = l.policy.Levels()
	}

	var opts []playlist.Option
	if l.rng != nil {
		opts = append(opts, playlist.WithRand(l.rng))
	}

	s := &Session{
		lib:       l,
		subject:   *subject,
		levels:    append([]int(nil), levels...),
		mode:      mode,
		scheduler: playlist.New(opts...),
	}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload takes a fresh snapshot of the subject and rebuilds the playlist
// with the session's filter and mode.
func (s *Session) Reload(ctx context.Context) error {
	items, err := s.lib.store.GetAllItemsWithProgress(ctx, s.subject.ID)
	if err != nil {
		return err
	}
	s.scheduler.Refresh(items, s.levels, s.mode)
	s.lib.logger.Debug("playlist refreshed",
		"subject_id", s.subject.ID,
		"mode", string(s.mode),
		"levels", s.levels,
		"size", s.scheduler.Len(),
	)
	return nil
}

// Next returns the next item to review, or false when nothing matches the filter.
func (s *Session) Next() (domain.ItemWithProgress, bool) {
	return s.scheduler.Next()
}

// Status reports the playlist position.
func (s *Session) Status() playlist.Status {
	return s.scheduler.Status()
}

// Subject returns the subject under review.
func (s *Session) Subject() domain.Subject {
	return s.subject
}

// Grade records a review of item. The playlist keeps its current order.
func (s *Session) Grade(ctx context.Context, itemID int64, rating level.Rating) (int, error) {
	return s.lib.Grade(ctx, itemID, rating)
}

// Speak plays one side of the item in the subject's language for that side
// without waiting for playback.
func (s *Session) Speak(item domain.ItemWithProgress, side Side) <-chan struct{} {
	text, lang := item.Front, s.subject.Settings.FrontLang
	if side == Back {
		text, lang = item.Back, s.subject.Settings.BackLang
	}
	return speech.Say(s.lib.speaker, text, lang, s.lib.speechRate, s.lib.speechTimeout, s.lib.logger)
}
