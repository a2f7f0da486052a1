package framerate

import (
	"context"
	"time"
)

// Player is the playback surface the probe borrows. Positions are in media
// seconds.
type Player interface {
	Position() float64
	Seek(ctx context.Context, t float64) error
	Play(ctx context.Context) error
	Pause()
	Paused() bool
	Muted() bool
	SetMuted(muted bool)
	PlaybackRate() float64
	SetPlaybackRate(rate float64)
}

// FrameNotifier is implemented by players that can report each presented
// frame. The returned function unregisters fn.
type FrameNotifier interface {
	NotifyFrames(fn func(presented time.Time)) (cancel func())
}

// QualityCounter is implemented by players that expose a running count of
// decoded frames.
type QualityCounter interface {
	TotalVideoFrames() int
}

// playerState is the part of a Player the probe changes and must put back.
type playerState struct {
	position float64
	paused   bool
	muted    bool
	rate     float64
}

func capture(p Player) playerState {
	return playerState{
		position: p.Position(),
		paused:   p.Paused(),
		muted:    p.Muted(),
		rate:     p.PlaybackRate(),
	}
}

func (s playerState) restore(ctx context.Context, p Player) {
	p.Pause()
	if err := p.Seek(ctx, s.position); err != nil {
		logf("restore seek to %.3fs failed: %v", s.position, err)
	}
	p.SetMuted(s.muted)
	p.SetPlaybackRate(s.rate)
	if !s.paused {
		if err := p.Play(ctx); err != nil {
			logf("resume after probe failed: %v", err)
		}
	}
}
