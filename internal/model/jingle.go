// Package model defines the core data structures for jinglebox.
package model

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Anchor is the point within a game that a jingle offset is measured from.
type Anchor string

const (
	AnchorStart Anchor = "start"
	AnchorHalf  Anchor = "half"
	AnchorEnd   Anchor = "end"
)

// ValidAnchors returns all valid anchor values.
func ValidAnchors() []Anchor {
	return []Anchor{AnchorStart, AnchorHalf, AnchorEnd}
}

// ParseAnchor parses an anchor string. An empty string defaults to "start".
func ParseAnchor(s string) (Anchor, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "start":
		return AnchorStart, nil
	case "half", "halftime":
		return AnchorHalf, nil
	case "end":
		return AnchorEnd, nil
	default:
		return AnchorStart, fmt.Errorf("invalid anchor %q, must be one of: %v", s, ValidAnchors())
	}
}

// Validation errors.
var (
	ErrEmptyFile       = errors.New("jingle file cannot be empty")
	ErrNegativeOffset  = errors.New("jingle offset cannot be negative")
	ErrInvalidAnchor   = errors.New("jingle anchor must be start, half, or end")
	ErrGamesOutOfOrder = errors.New("last game cannot be before first game")
	ErrZeroDuration    = errors.New("game duration must be positive")
)

// Jingle is a short audio clip with a placement rule relative to a game.
type Jingle struct {
	Name   string
	File   string
	Offset time.Duration
	Anchor Anchor
}

// Validate checks that the jingle definition is usable.
// File existence is deliberately not checked here; it is checked at play time.
func (j *Jingle) Validate() error {
	if j.File == "" {
		return ErrEmptyFile
	}
	if j.Offset < 0 {
		return ErrNegativeOffset
	}
	switch j.Anchor {
	case AnchorStart, AnchorHalf, AnchorEnd:
		return nil
	default:
		return ErrInvalidAnchor
	}
}

// DisplayName returns the jingle name, or "Unnamed" when none was given.
func (j *Jingle) DisplayName() string {
	if j.Name == "" {
		return "Unnamed"
	}
	return j.Name
}

// OffsetLabel formats the offset as "+HHh:MMm:SSs" for display, matching how
// operators read the schedule sheet.
func (j *Jingle) OffsetLabel() string {
	total := int(j.Offset.Seconds())
	return fmt.Sprintf("+%02dh:%02dm:%02ds", total/3600, (total%3600)/60, total%60)
}

// Game is one game slot in the tournament grid.
type Game struct {
	Start    time.Time
	Duration time.Duration
}

// Half returns the halftime instant of the game.
func (g Game) Half() time.Time {
	return g.Start.Add(g.Duration / 2)
}

// End returns the end instant of the game.
func (g Game) End() time.Time {
	return g.Start.Add(g.Duration)
}

// AnchorTime resolves an anchor to an absolute instant within the game.
func (g Game) AnchorTime(a Anchor) time.Time {
	switch a {
	case AnchorHalf:
		return g.Half()
	case AnchorEnd:
		return g.End()
	default:
		return g.Start
	}
}

// PlannedJingle is one concrete playback of a jingle at an absolute time.
type PlannedJingle struct {
	ID       string
	Jingle   Jingle
	Game     Game
	FireTime time.Time
}

// NewPlannedJingle derives the fire time for a jingle within a game and
// assigns the entry a ULID.
func NewPlannedJingle(j Jingle, g Game) PlannedJingle {
	return PlannedJingle{
		ID:       ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String(),
		Jingle:   j,
		Game:     g,
		FireTime: g.AnchorTime(j.Anchor).Add(j.Offset),
	}
}

// Until returns the duration from now until the fire time (negative if past).
func (p PlannedJingle) Until(now time.Time) time.Duration {
	return p.FireTime.Sub(now)
}

// Trigger records what caused a jingle to play.
type Trigger string

const (
	TriggerSchedule Trigger = "schedule"
	TriggerManual   Trigger = "manual"
)

// Play outcomes.
const (
	OutcomePlayed = "played"
	OutcomeMissed = "missed"
	OutcomeFailed = "failed"
)

// PlayRecord is one entry in the play history log.
type PlayRecord struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	File     string  `json:"file"`
	Planned  int64   `json:"planned,omitempty"` // Unix seconds, zero for manual plays
	PlayedAt int64   `json:"played_at"`
	Trigger  Trigger `json:"trigger"`
	Outcome  string  `json:"outcome"`
	Ducked   bool    `json:"ducked,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// NewPlayRecord creates a play record stamped with the current time.
func NewPlayRecord(j Jingle, trigger Trigger) PlayRecord {
	return PlayRecord{
		ID:       ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String(),
		Name:     j.DisplayName(),
		File:     j.File,
		PlayedAt: time.Now().Unix(),
		Trigger:  trigger,
		Outcome:  OutcomePlayed,
	}
}

// PlayedAtTime returns the play timestamp as a time.Time.
func (r PlayRecord) PlayedAtTime() time.Time {
	return time.Unix(r.PlayedAt, 0)
}
