/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package models holds the plain data types shared across the decoder,
// deck, crossfade, AutoDJ, planner and persistence packages. Types with
// real behavior (state machines, curve algebra) live in their owning
// package; this package is deliberately inert.
package models

import "time"

// DeckID identifies one of the fixed six decks feeding the mixer bus,
// per spec.md §3: DeckA/DeckB are the musical pair AutoDJ and the
// crossfade engine operate on; SoundFx/Aux1/Aux2/VoiceFx are aux buses
// with identical audio semantics (load/play/pause/seek/gain/pitch/
// tempo/bass/filter/loop all apply equally) but are excluded from
// autoplay and crossfade — nothing selects tracks onto them or arms a
// fade involving them.
type DeckID int

const (
	DeckA DeckID = iota
	DeckB
	SoundFx
	Aux1
	Aux2
	VoiceFx
)

func (d DeckID) String() string {
	switch d {
	case DeckA:
		return "A"
	case DeckB:
		return "B"
	case SoundFx:
		return "SoundFx"
	case Aux1:
		return "Aux1"
	case Aux2:
		return "Aux2"
	case VoiceFx:
		return "VoiceFx"
	default:
		return "unknown"
	}
}

// Autoplayable reports whether AutoDJ/crossfade logic may operate on
// this deck, per spec.md §3's restriction to the musical pair.
func (d DeckID) Autoplayable() bool {
	return d == DeckA || d == DeckB
}

// TrackSource identifies the decodable media backing a prepared track. It
// is always an absolute file path; resolving a remote URI or library
// reference to a path is an external collaborator's job (spec.md §1).
type TrackSource struct {
	Path       string
	SampleRate int
	Channels   int
}

// Markers carries the cue points a track was analyzed with, as offsets
// from the start of the decoded PCM stream. OutroIn is the point where
// the track enters its outro (spec.md §4.5's outro_start); OutroEnd is
// its close (outro_end).
type Markers struct {
	IntroStart time.Duration
	IntroEnd   time.Duration
	OutroIn    time.Duration
	OutroEnd   time.Duration
	FirstSound time.Duration
	LastSound  time.Duration
	CueIn      time.Duration
	CueOut     time.Duration
	LoopStart  time.Duration
	LoopEnd    time.Duration
}

// PreparedTrack is a track that has been queued onto a deck: its source,
// its markers, and the catalog metadata needed for AutoDJ separation
// rules and event payloads.
type PreparedTrack struct {
	ID       string
	Source   TrackSource
	Markers  Markers
	Artist   string
	Album    string
	Title    string
	Category string
	Duration time.Duration
}

// ClockwheelSlotType distinguishes a concrete media pull from a
// category-driven AutoDJ selection within a clockwheel slot.
type ClockwheelSlotType string

const (
	SlotTypeFixedItem ClockwheelSlotType = "fixed_item"
	SlotTypeCategory  ClockwheelSlotType = "category"
	SlotTypeDirectory ClockwheelSlotType = "directory"
	SlotTypeRequest   ClockwheelSlotType = "request"
)

// SelectionMethod enumerates the AutoDJ candidate-selection strategies
// named in spec.md §4.4.
type SelectionMethod string

const (
	SelectWeighted       SelectionMethod = "weighted"
	SelectPriority       SelectionMethod = "priority"
	SelectRandom         SelectionMethod = "random"
	SelectMRP            SelectionMethod = "most_recently_played"
	SelectLRPSong        SelectionMethod = "least_recently_played_song"
	SelectLRPArtist      SelectionMethod = "least_recently_played_artist"
	SelectLemming        SelectionMethod = "lemming"
	SelectPlaylistOrder  SelectionMethod = "playlist_order"
)

// SeparationRules caps how recently a candidate's artist/album/track may
// have played before it is excluded from a selection round.
type SeparationRules struct {
	ArtistSeparation time.Duration
	AlbumSeparation  time.Duration
	TrackSeparation  time.Duration
}

// ClockwheelSlot is one position in a clockwheel.
type ClockwheelSlot struct {
	ID                 string
	Position           int
	Type               ClockwheelSlotType
	Category           string
	DirectoryPrefix    string
	FixedItemID        string
	SelectionMethod    SelectionMethod
	Separation         SeparationRules
	OnPlayWeightDelta  float64
	OnRequestWeightAdd float64
	FallbackSlotIDs    []string

	// Time/day window this slot is eligible in, per spec.md §4.4 step 2
	// ("skip if its time/day window excludes the current local
	// time/day"). Empty ActiveWeekdays means every day. A zero-length
	// window (WindowStart == WindowEnd) means no restriction.
	ActiveWeekdays []time.Weekday
	WindowStart    time.Duration // offset from local midnight
	WindowEnd      time.Duration
}

// InWindow reports whether t falls within the slot's configured
// time/day window, per spec.md §4.4 step 2.
func (s ClockwheelSlot) InWindow(t time.Time) bool {
	if len(s.ActiveWeekdays) > 0 {
		ok := false
		for _, d := range s.ActiveWeekdays {
			if d == t.Weekday() {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if s.WindowStart == s.WindowEnd {
		return true
	}
	offset := time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute + time.Duration(t.Second())*time.Second
	if s.WindowStart < s.WindowEnd {
		return offset >= s.WindowStart && offset < s.WindowEnd
	}
	// window wraps past midnight
	return offset >= s.WindowStart || offset < s.WindowEnd
}

// LegacyRotationRules are the optional global N-song/N-minute
// separation and per-hour play caps named in spec.md §4.4 step 6.
type LegacyRotationRules struct {
	Enabled bool

	SongSeparationCount     int
	SongSeparationMinutes   time.Duration
	ArtistSeparationCount   int
	ArtistSeparationMinutes time.Duration
	AlbumSeparationCount    int
	AlbumSeparationMinutes  time.Duration

	MaxPlaysPerHour int // 0 = unlimited
}

// ClockwheelConfig is the structured blob persisted for a station's
// rotation, as named in spec.md §6.
type ClockwheelConfig struct {
	ID       string
	Name     string
	Timezone string
	Slots    []ClockwheelSlot
	Legacy   LegacyRotationRules
	Active   bool
}

// CatalogItem is a read-only view of a candidate track from the external
// media library, as described in SPEC_FULL.md §11.
type CatalogItem struct {
	ID       string
	Title    string
	Artist   string
	Album    string
	Category string
	Path     string
	Duration time.Duration
	Weight   float64
	Markers  Markers
}

// RecentPlay records one completed play for separation-rule evaluation.
type RecentPlay struct {
	ItemID   string
	Artist   string
	Album    string
	Category string
	PlayedAt time.Time
}

// TriggerMode selects how a crossfade or transition is armed, per
// spec.md §3/§4.2.
type TriggerMode string

const (
	TriggerAutoDetectDb TriggerMode = "auto_detect_db"
	TriggerFixedPointMs TriggerMode = "fixed_point_ms"
	TriggerManual       TriggerMode = "manual"
)

// QuantiseTarget snaps a computed fade point to a musical grid. See
// DESIGN.md's Open Question decision for why this is an explicit,
// narrow enum rather than an inferred BPM-grid snap. BeatHalf and
// BeatQuarter subdivide the beat interval for finer snapping, per
// spec.md §8's beat-grid quantise scenario; internal/planner.Quantise
// is the function that interprets these.
type QuantiseTarget string

const (
	QuantiseNone        QuantiseTarget = "none"
	QuantiseBar         QuantiseTarget = "bar"
	QuantiseBeat        QuantiseTarget = "beat"
	QuantiseBeatHalf    QuantiseTarget = "beat_half"
	QuantiseBeatQuarter QuantiseTarget = "beat_quarter"
)

// PlanMode selects how internal/planner places a fade between two
// tracks, per spec.md §4.5 step 2/4/6.
type PlanMode string

const (
	PlanFullIntroOutro              PlanMode = "full_intro_outro"
	PlanFadeAtOutroStart            PlanMode = "fade_at_outro_start"
	PlanFixedFullTrack              PlanMode = "fixed_full_track"
	PlanFixedSkipSilence            PlanMode = "fixed_skip_silence"
	PlanFixedStartCenterSkipSilence PlanMode = "fixed_start_center_skip_silence"
)

// TransitionPlan is the output of internal/planner: the exact sample
// ranges for the next crossfade, advisory to the caller per spec.md
// §4.5 step 7.
type TransitionPlan struct {
	FromDeck        DeckID
	ToDeck          DeckID
	Mode            PlanMode
	ToStartMs       int64
	FromFadeBeginMs int64
	FromFadeEndMs   int64
	GapMs           int64
	Recued          bool
}

// EncoderState is an encoder sink's runtime connection state, per
// spec.md §6's encoder_status event and §7's EncoderError handling.
type EncoderState string

const (
	EncoderIdle         EncoderState = "idle"
	EncoderConnecting   EncoderState = "connecting"
	EncoderConnected    EncoderState = "connected"
	EncoderReconnecting EncoderState = "reconnecting"
	EncoderFailed       EncoderState = "failed"
	EncoderStopped      EncoderState = "stopped"
)

// RotationMode selects when a file sink closes its current segment and
// opens the next, per spec.md §6.
type RotationMode string

const (
	RotationNone   RotationMode = "none"
	RotationBySize RotationMode = "by_size"
	RotationHourly RotationMode = "hourly"
	RotationDaily  RotationMode = "daily"
)
