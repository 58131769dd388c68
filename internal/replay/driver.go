package replay

import (
	"fmt"
	"time"

	"github.com/randomizedcoder/go-playback-analytics/internal/player"
)

// Driver turns records into player notifications. It owns the replayed
// timeline and the replay clock.
//
// Not safe for concurrent use.
type Driver struct {
	listener player.Listener
	timeline player.Timeline
	now      time.Duration
}

// NewDriver creates a driver notifying l.
func NewDriver(l player.Listener) *Driver {
	return &Driver{listener: l}
}

// Now is the replay clock: the time of the record being applied. It
// satisfies playtime.Clock.
func (d *Driver) Now() time.Duration {
	return d.now
}

// Timeline returns the current replayed timeline.
func (d *Driver) Timeline() player.Timeline {
	return d.timeline
}

// Apply delivers one record. Records whose fields do not fit their event
// return ErrMalformedRecord and leave the listener untouched.
func (d *Driver) Apply(rec Record) error {
	ms := time.Duration(rec.TMs) * time.Millisecond
	if ms > d.now {
		d.now = ms
	}

	if rec.Event == EventTimeline {
		d.timeline = timelineOf(rec.Periods)
	}

	et := player.EventTime{
		Realtime:    d.now,
		Timeline:    d.timeline,
		WindowIndex: rec.Window,
		MediaPeriod: player.PeriodUID(rec.MediaPeriod),
	}
	l := d.listener

	switch rec.Event {
	case EventTimeline:
		l.OnTimelineChanged(et)

	case EventPlaybackState:
		state, ok := player.ParseState(rec.State)
		if !ok {
			return fmt.Errorf("%w: state %q", ErrMalformedRecord, rec.State)
		}
		l.OnPlaybackStateChanged(et, state)

	case EventIsPlaying:
		l.OnIsPlayingChanged(et, rec.Playing)

	case EventPositionDiscontinuity:
		reason, ok := player.ParseDiscontinuityReason(rec.Reason)
		if !ok {
			return fmt.Errorf("%w: discontinuity reason %q", ErrMalformedRecord, rec.Reason)
		}
		if rec.New == nil {
			return fmt.Errorf("%w: discontinuity without new position", ErrMalformedRecord)
		}
		l.OnPositionDiscontinuity(et, d.positionOf(rec.Old), d.positionOf(rec.New), reason)

	case EventMediaItemTransition:
		reason, ok := player.ParseTransitionReason(rec.Reason)
		if !ok {
			return fmt.Errorf("%w: transition reason %q", ErrMalformedRecord, rec.Reason)
		}
		var item *player.MediaItem
		if p, ok := et.CurrentPeriod(); ok {
			mi := p.MediaItem
			item = &mi
		}
		l.OnMediaItemTransition(et, item, reason)

	case EventPlayerError:
		l.OnPlayerError(et, &player.PlaybackError{Code: rec.ErrorCode, Message: rec.Error})

	case EventPlayerReleased:
		l.OnPlayerReleased(et)

	case EventLoadStarted:
		l.OnLoadStarted(et, loadInfoOf(rec))

	case EventLoadCompleted:
		l.OnLoadCompleted(et, loadInfoOf(rec))

	case EventLoadError:
		l.OnLoadError(et, loadInfoOf(rec), &player.PlaybackError{Code: rec.ErrorCode, Message: rec.Error})

	case EventBandwidthEstimate:
		l.OnBandwidthEstimate(et, time.Duration(rec.LoadMs)*time.Millisecond, rec.Bytes, rec.BitrateEstimate)

	case EventDrmSessionAcquired:
		l.OnDrmSessionAcquired(et)

	case EventDrmKeysLoaded:
		l.OnDrmKeysLoaded(et)

	case EventDrmKeysRestored:
		l.OnDrmKeysRestored(et)

	case EventDrmKeysRemoved:
		l.OnDrmKeysRemoved(et)

	case EventVideoFormat, EventAudioFormat:
		if rec.Format == nil {
			return fmt.Errorf("%w: %s without format", ErrMalformedRecord, rec.Event)
		}
		f := formatOf(rec.Format)
		if rec.Event == EventVideoFormat {
			l.OnVideoInputFormatChanged(et, f)
		} else {
			l.OnAudioInputFormatChanged(et, f)
		}

	case EventVideoDisabled:
		l.OnVideoDisabled(et)

	case EventAudioDisabled:
		l.OnAudioDisabled(et)

	case EventDroppedFrames:
		l.OnDroppedVideoFrames(et, rec.Count, time.Duration(rec.ElapsedMs)*time.Millisecond)

	case EventSurfaceSize:
		l.OnSurfaceSizeChanged(et, player.Size{Width: rec.Width, Height: rec.Height})

	case EventRenderedFirstFrame:
		l.OnRenderedFirstFrame(et)

	case EventAudioPositionAdvancing:
		l.OnAudioPositionAdvancing(et)

	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, rec.Event)
	}
	return nil
}

func timelineOf(periods []PeriodRecord) player.Timeline {
	tl := player.Timeline{Periods: make([]player.Period, 0, len(periods))}
	for _, p := range periods {
		tl.Periods = append(tl.Periods, player.Period{
			UID: player.PeriodUID(p.UID),
			MediaItem: player.MediaItem{
				ID:    p.MediaID,
				URI:   p.URI,
				Title: p.Title,
			},
		})
	}
	return tl
}

// positionOf resolves the media item of a position from the current
// timeline. A nil record yields the zero position.
func (d *Driver) positionOf(p *PositionRecord) player.PositionInfo {
	if p == nil {
		return player.PositionInfo{}
	}
	pos := player.PositionInfo{
		PeriodUID:      player.PeriodUID(p.Period),
		MediaItemIndex: p.Index,
		PositionMs:     p.PositionMs,
	}
	if i := d.timeline.IndexOfPeriod(pos.PeriodUID); i >= 0 {
		pos.MediaItem = d.timeline.Periods[i].MediaItem
	}
	return pos
}

func loadInfoOf(rec Record) player.LoadEventInfo {
	return player.LoadEventInfo{
		URI:          rec.URI,
		DataType:     player.ParseDataType(rec.DataType),
		LoadDuration: time.Duration(rec.LoadMs) * time.Millisecond,
		BytesLoaded:  rec.Bytes,
	}
}

func formatOf(f *FormatRecord) player.Format {
	return player.Format{
		ID:       f.ID,
		MimeType: f.MimeType,
		Codecs:   f.Codecs,
		Bitrate:  f.Bitrate,
		Width:    f.Width,
		Height:   f.Height,
	}
}
