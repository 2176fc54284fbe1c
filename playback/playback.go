// Package playback runs one playback session: parse a descriptor, remember it,
// hand it to a player and keep its resume position.
package playback

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/drmplay-cli/drmplay/descriptor"
	"github.com/drmplay-cli/drmplay/history"
	"github.com/drmplay-cli/drmplay/key"
	"github.com/drmplay-cli/drmplay/log"
	"github.com/drmplay-cli/drmplay/player"
	"github.com/drmplay-cli/drmplay/resume"
	"github.com/samber/mo"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// ErrLoadFailed is returned when the descriptor does not name a stream.
var ErrLoadFailed = errors.New("failed to load URL")

// Options configure a session.
type Options struct {
	// Descriptor is the raw stream descriptor.
	Descriptor string
	// Title overrides the title derived from the URL.
	Title string

	Player player.Player
	Store  history.Store

	// Resume seeks to the stored position once the player is ready.
	Resume bool
	// SaveHistory records the stream in the history before playback starts.
	SaveHistory bool

	// OnResume is called after a stored position was applied.
	OnResume func(title string, position time.Duration)
}

// DefaultOptions returns options for raw filled from the configuration.
// Player and Store are left for the caller.
func DefaultOptions(raw string) *Options {
	return &Options{
		Descriptor:  raw,
		Resume:      viper.GetBool(key.PlayerResume),
		SaveHistory: viper.GetBool(key.HistorySaveOnPlay),
	}
}

type session struct {
	opts     *Options
	key      string
	title    string
	logger   *logrus.Entry
	restorer *resume.Restorer

	live     mo.Option[bool]
	position mo.Option[time.Duration]
	saved    mo.Option[time.Duration]
}

// Run plays the descriptor and blocks until the player exits or ctx is done.
// Only an unusable descriptor or a player that cannot start fail the session,
// history failures are logged and ignored.
func Run(ctx context.Context, opts *Options) error {
	cfg, err := descriptor.Parse(opts.Descriptor)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}

	s := &session{
		opts:  opts,
		key:   cfg.URL,
		title: opts.Title,
	}
	if s.title == "" {
		s.title = cfg.Title()
	}
	s.logger = log.WithFields(logrus.Fields{"key": s.key, "title": s.title})

	for _, issue := range descriptor.Diagnose(opts.Descriptor) {
		s.logger.Warnf("descriptor: %s", issue)
	}

	if opts.SaveHistory {
		if err := opts.Store.RecordEntry(s.key, s.title, history.WithDescriptor(opts.Descriptor)); err != nil {
			s.logger.Warnf("history: record entry: %s", err)
		}
	}

	s.restorer = resume.New(opts.Store, s.key)
	if opts.Resume {
		s.restorer.Arm()
	}
	defer s.restorer.Detach()

	if err := opts.Player.Play(player.NewMedia(cfg, s.title)); err != nil {
		return fmt.Errorf("start player: %w", err)
	}

	done := make(chan struct{})
	defer close(done)

	events := make(chan player.Event)
	err = opts.Player.Subscribe(func(event player.Event) {
		select {
		case events <- event:
		case <-done:
		}
	})
	if err != nil {
		s.logger.Warnf("player: events unavailable, position will not be kept: %s", err)
	}

	for {
		select {
		case <-ctx.Done():
			s.save("cancelled")
			if err := opts.Player.Close(); err != nil {
				s.logger.Warnf("player: close: %s", err)
			}
			return nil
		case <-opts.Player.Wait():
			s.drain(events)
			s.save("exit")
			return nil
		case event := <-events:
			s.handle(event)
		}
	}
}

// drain handles events the player sent right before exiting.
func (s *session) drain(events <-chan player.Event) {
	for {
		select {
		case event := <-events:
			s.handle(event)
		case <-time.After(50 * time.Millisecond):
			return
		}
	}
}

func (s *session) handle(event player.Event) {
	switch event.Kind {
	case player.EventReady:
		s.ready()
	case player.EventPosition:
		s.position = mo.Some(event.Position)
	case player.EventPause:
		s.save("pause")
	case player.EventEnd:
		s.save("end")
	}
}

func (s *session) ready() {
	if s.live.IsAbsent() {
		live, err := s.opts.Player.IsLive()
		if err != nil {
			s.logger.Warnf("player: live detection failed, treating stream as live: %s", err)
			live = true
		}
		s.live = mo.Some(live)
		s.logger.Infof("player: ready, live=%t", live)
	}

	positionMs, ok := s.restorer.Ready(s.live.MustGet())
	if !ok {
		return
	}

	position := time.Duration(positionMs) * time.Millisecond
	if err := s.opts.Player.Seek(position); err != nil {
		s.logger.Warnf("player: seek to %s: %s", position, err)
		return
	}

	s.position = mo.Some(position)
	s.logger.Infof("resume: restored %s", position)
	if s.opts.OnResume != nil {
		s.opts.OnResume(s.title, position)
	}
}

// save stores the last known position of non-live content.
func (s *session) save(reason string) {
	if live, ok := s.live.Get(); !ok || live {
		return
	}

	position, ok := s.position.Get()
	if !ok {
		// no position event yet, ask the player directly
		polled, err := s.opts.Player.GetTimePos()
		if err != nil || polled <= 0 {
			return
		}
		position = polled
	}

	if saved, ok := s.saved.Get(); ok && saved == position {
		return
	}

	if err := s.opts.Store.SavePosition(s.key, position.Milliseconds()); err != nil {
		s.logger.Warnf("history: save position on %s: %s", reason, err)
		return
	}

	s.saved = mo.Some(position)
	s.logger.Debugf("history: saved %s on %s", position, reason)
}
