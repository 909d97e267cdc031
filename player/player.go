// SPDX-License-Identifier: EPL-2.0

// Package player runs the decode, resample and output loop.
//
// A single goroutine owns the track queue, the current track and its
// Resampler. It pulls resampled blocks into the output ring whenever the
// ring has room and publishes a State snapshot that callers read through
// the Controller.
package player

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/ik5/tfplayer/audio"
	"github.com/ik5/tfplayer/internal/ringbuf"
	"github.com/ik5/tfplayer/internal/telemetry"
	"github.com/ik5/tfplayer/track"
)

// MaxVolume is the highest accepted volume multiplier.
const MaxVolume = 1.5

// Output is the device side: a stereo ring consumed at SampleRate.
type Output interface {
	SampleRate() int
	Producer() *ringbuf.Producer
	Play() error
	Pause() error
}

// Options tunes the loop. Zero fields take the defaults.
type Options struct {
	// LowWater is the free ring space, in samples, below which the loop
	// backs off instead of filling.
	LowWater int
	// IdleSleep is the pause between passes when nothing plays.
	IdleSleep time.Duration
	// BackpressureSleep is the pause when the ring is nearly full.
	BackpressureSleep time.Duration
	// ReportInterval throttles the position heartbeat.
	ReportInterval time.Duration
	// Volume is the initial multiplier, 1 when nil.
	Volume *float32
	// Resampler is ResamplerSinc or ResamplerCubic.
	Resampler   string
	ChunkFrames int
	Sinc        audio.SincParams
	// CommandBuffer is the number of commands that can be pending before
	// Controller calls block.
	CommandBuffer int
	Metrics       *telemetry.Metrics
}

func (o Options) withDefaults() Options {
	if o.LowWater <= 0 {
		o.LowWater = 512
	}
	if o.IdleSleep <= 0 {
		o.IdleSleep = 100 * time.Millisecond
	}
	if o.BackpressureSleep <= 0 {
		o.BackpressureSleep = 100 * time.Millisecond
	}
	if o.ReportInterval <= 0 {
		o.ReportInterval = time.Second
	}
	if o.Volume == nil {
		o.Volume = lo.ToPtr[float32](1)
	}
	if o.Resampler == "" {
		o.Resampler = ResamplerSinc
	}
	if o.ChunkFrames <= 0 {
		o.ChunkFrames = 512
	}
	if o.Sinc.Len <= 0 {
		o.Sinc = audio.DefaultSincParams()
	}
	if o.CommandBuffer <= 0 {
		o.CommandBuffer = 256
	}
	if o.Metrics == nil {
		o.Metrics = telemetry.New()
	}

	return o
}

// Player is the loop state. Everything here belongs to the goroutine
// running Run, except state, nbQueued and events which are shared with
// the Controller.
type Player struct {
	cmds     <-chan Command
	out      Output
	prod     *ringbuf.Producer
	state    *SharedState
	nbQueued *atomic.Int64
	events   *eventQueue
	opts     Options
	logger   zerolog.Logger
	metrics  *telemetry.Metrics

	queue      []*track.Track
	cur        *track.Track
	res        *Resampler
	volume     float32
	lastReport time.Duration
	outPlaying bool
	scratch    []float32
}

func newPlayer(cmds <-chan Command, out Output, opts Options, logger zerolog.Logger) *Player {
	return &Player{
		cmds:     cmds,
		out:      out,
		prod:     out.Producer(),
		state:    &SharedState{},
		nbQueued: &atomic.Int64{},
		events:   newEventQueue(),
		opts:     opts,
		logger:   logger.With().Str("component", "player").Logger(),
		metrics:  opts.Metrics,
		volume:   lo.Clamp(*opts.Volume, 0, MaxVolume),
		scratch:  make([]float32, 2*opts.ChunkFrames),
	}
}

// Run loops until ctx ends or the command channel closes, then releases
// every track.
func (p *Player) Run(ctx context.Context) {
	defer p.shutdown()

	timer := time.NewTimer(0)
	defer timer.Stop()

	p.logger.Debug().Int("output_rate", p.out.SampleRate()).Msg("player started")

	for {
		wait := p.Tick()

		if wait == 0 {
			select {
			case <-ctx.Done():
				return
			default:
			}
			continue
		}

		timer.Reset(wait)
		select {
		case <-ctx.Done():
			return
		case cmd, ok := <-p.cmds:
			if !ok {
				return
			}
			p.handle(cmd)
		case <-timer.C:
		}
	}
}

// Tick runs one pass: commands, track start, fill. It returns how long
// the caller should wait before the next pass; 0 means right away.
func (p *Player) Tick() time.Duration {
	p.processCommands()
	p.nextSource()

	st := p.state.Load()
	if st.Kind != Playing {
		// Stop the device once the tail of the last track has played.
		if p.outPlaying && p.prod.Slots() == p.prod.Capacity() {
			p.pauseOutput()
		}
		return p.opts.IdleSleep
	}
	if st.Paused {
		return p.opts.IdleSleep
	}

	missing := p.prod.Slots()
	if missing <= p.opts.LowWater {
		return p.opts.BackpressureSleep
	}

	p.report(st)
	p.fill(missing / 2)

	return 0
}

func (p *Player) processCommands() {
	for {
		select {
		case cmd, ok := <-p.cmds:
			if !ok {
				return
			}
			p.handle(cmd)
		default:
			return
		}
	}
}

func (p *Player) handle(cmd Command) {
	switch c := cmd.(type) {
	case Clear:
		for _, t := range p.queue {
			p.closeTrack(t, telemetry.ReasonCleared)
		}
		p.queue = nil
		p.syncQueued()

		if p.cur != nil {
			p.dropCurrent(telemetry.ReasonCleared)
			p.setState(State{})
		}

	case QueueTrack:
		if c.Track == nil {
			return
		}
		p.queue = append(p.queue, c.Track)
		p.syncQueued()

	case Play:
		p.setPaused(false)

	case Pause:
		p.setPaused(true)

	case Seek:
		p.seek(max(c.Pos, 0))

	case Skip:
		if p.cur == nil {
			return
		}
		p.dropCurrent(telemetry.ReasonSkipped)
		p.state.store(State{})
		p.nextSource()
		if p.cur == nil {
			p.emitState()
		}

	case SetVolume:
		p.volume = lo.Clamp(c.Volume, 0, MaxVolume)
	}
}

func (p *Player) setPaused(paused bool) {
	st, err := p.state.update(func(s *State) error {
		changed, err := s.setPaused(paused)
		if err == nil && !changed {
			return errUnchanged
		}
		return err
	})
	switch {
	case errors.Is(err, ErrWrongState):
		p.logger.Debug().Bool("paused", paused).Msg("play/pause ignored while idle")
		return
	case errors.Is(err, errUnchanged):
		return
	}

	if paused {
		p.pauseOutput()
	} else {
		p.playOutput()
	}
	p.events.send(StateChanged{State: st})
}

var errUnchanged = errors.New("unchanged")

func (p *Player) seek(pos time.Duration) {
	st, err := p.state.update(func(s *State) error { return s.seek(pos) })
	if err != nil {
		p.logger.Debug().Dur("pos", pos).Msg("seek ignored while idle")
		return
	}

	if err := p.cur.Signal.Seek(pos); err != nil {
		p.logger.Warn().Err(err).Dur("pos", pos).Msg("seek failed")
	}
	rebuilt, err := p.followRate()
	if !rebuilt {
		p.res.Reset()
	}
	p.lastReport = pos
	p.events.send(StateChanged{State: st})

	// Prime the first block so offsets keep counting consumed blocks.
	if err == nil {
		err = p.res.Process(p.cur.Signal)
	}
	if err != nil {
		p.endTrack(err)
	}
}

// followRate replaces the resampler when the current source now runs at
// another native rate.
func (p *Player) followRate() (bool, error) {
	rs, ok := p.cur.Signal.(track.RateSource)
	if !ok {
		return false, nil
	}
	rate := float64(rs.SampleRate())
	if rate == p.cur.SampleRate {
		return false, nil
	}

	res, err := NewResampler(p.opts.Resampler, float64(p.out.SampleRate())/rate, p.opts.ChunkFrames, p.opts.Sinc)
	if err != nil {
		return false, fmt.Errorf("sample rate changed to %g: %w", rate, err)
	}

	p.logger.Info().Float64("from", p.cur.SampleRate).Float64("to", rate).Msg("sample rate changed")
	p.cur.SampleRate = rate
	p.res = res

	return true, nil
}

// nextSource starts the first playable queued track when idle. Tracks
// that fail to start are closed and reported with TrackEnd.
func (p *Player) nextSource() {
	for p.cur == nil && len(p.queue) > 0 {
		t := p.queue[0]
		p.queue[0] = nil
		p.queue = p.queue[1:]
		p.syncQueued()

		ratio := float64(p.out.SampleRate()) / t.SampleRate
		res, err := NewResampler(p.opts.Resampler, ratio, p.opts.ChunkFrames, p.opts.Sinc)
		if err == nil {
			err = res.Process(t.Signal)
		}
		if err != nil {
			p.closeTrack(t, reasonFor(err))
			p.trackEnd(t.Info, err)
			continue
		}

		p.cur, p.res = t, res
		p.lastReport = 0
		p.setState(playingState(t.Info))
		p.playOutput()

		p.logger.Info().
			Dur("duration", t.Info.Duration).
			Float64("sample_rate", t.SampleRate).
			Int("queued", len(p.queue)).
			Msg("track started")
	}
}

func (p *Player) fill(frames int) {
	for frames > 0 {
		if p.res.Remaining() == 0 {
			if err := p.res.Process(p.cur.Signal); err != nil {
				p.endTrack(err)
				return
			}
			p.advance()
		}

		n := p.res.Read(p.scratch[:2*min(frames, len(p.scratch)/2)], p.volume)
		p.prod.Write(p.scratch[:2*n])
		frames -= n
	}
}

// advance moves the offset by one output block.
func (p *Player) advance() {
	block := audio.FramesToDuration(int64(p.res.OutputFrames()), p.out.SampleRate())
	_, _ = p.state.update(func(s *State) error {
		s.Offset += block
		return nil
	})
}

func (p *Player) report(st State) {
	if (st.Offset - p.lastReport).Abs() <= p.opts.ReportInterval {
		return
	}
	p.lastReport = st.Offset
	p.events.send(StateChanged{State: st})
}

// endTrack handles the end of the current track, normal or not: TrackEnd
// first, then the next track or Idle.
func (p *Player) endTrack(err error) {
	info := p.cur.Info
	reason := reasonFor(err)
	if reason == telemetry.ReasonFailed {
		p.logger.Error().Err(err).Msg("track failed, skipping")
	}

	p.dropCurrent(reason)
	p.state.store(State{})
	p.trackEnd(info, err)

	p.nextSource()
	if p.cur == nil {
		p.emitState()
	}
}

func (p *Player) trackEnd(info track.Info, err error) {
	ev := TrackEnd{Track: info}
	if !errors.Is(err, track.ErrEndOfStream) {
		ev.Err = err
	}
	p.events.send(ev)
}

func reasonFor(err error) string {
	if errors.Is(err, track.ErrEndOfStream) {
		return telemetry.ReasonFinished
	}
	return telemetry.ReasonFailed
}

func (p *Player) dropCurrent(reason string) {
	p.closeTrack(p.cur, reason)
	p.cur, p.res = nil, nil
}

func (p *Player) closeTrack(t *track.Track, reason string) {
	p.metrics.TrackEnds.WithLabelValues(reason).Inc()
	if err := t.Signal.Close(); err != nil {
		p.logger.Warn().Err(err).Msg("closing track")
	}
}

func (p *Player) setState(s State) {
	p.state.store(s)
	p.events.send(StateChanged{State: s})
}

func (p *Player) emitState() {
	p.events.send(StateChanged{State: p.state.Load()})
}

func (p *Player) syncQueued() {
	p.nbQueued.Store(int64(len(p.queue)))
	p.metrics.QueueLength.Set(float64(len(p.queue)))
}

func (p *Player) playOutput() {
	if p.outPlaying {
		return
	}
	if err := p.out.Play(); err != nil {
		p.logger.Error().Err(err).Msg("starting output")
		return
	}
	p.outPlaying = true
}

func (p *Player) pauseOutput() {
	if !p.outPlaying {
		return
	}
	if err := p.out.Pause(); err != nil {
		p.logger.Error().Err(err).Msg("pausing output")
		return
	}
	p.outPlaying = false
}

// closePending closes the tracks of QueueTrack commands still buffered in
// the command channel. They were accepted, so they are ours.
func (p *Player) closePending() {
	for {
		select {
		case cmd := <-p.cmds:
			if q, ok := cmd.(QueueTrack); ok && q.Track != nil {
				p.closeTrack(q.Track, telemetry.ReasonCleared)
			}
		default:
			return
		}
	}
}

func (p *Player) shutdown() {
	p.closePending()
	for _, t := range p.queue {
		p.closeTrack(t, telemetry.ReasonCleared)
	}
	p.queue = nil
	p.syncQueued()

	if p.cur != nil {
		p.dropCurrent(telemetry.ReasonCleared)
	}
	p.state.store(State{})
	p.pauseOutput()
	p.events.close()

	p.logger.Debug().Msg("player stopped")
}
