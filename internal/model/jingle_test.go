package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnchor(t *testing.T) {
	tests := []struct {
		input   string
		want    Anchor
		wantErr bool
	}{
		{"start", AnchorStart, false},
		{"", AnchorStart, false},
		{"half", AnchorHalf, false},
		{"halftime", AnchorHalf, false},
		{"END", AnchorEnd, false},
		{"  start ", AnchorStart, false},
		{"middle", AnchorStart, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseAnchor(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJingle_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Jingle)
		wantErr error
	}{
		{
			name:    "valid jingle",
			modify:  func(j *Jingle) {},
			wantErr: nil,
		},
		{
			name: "empty file",
			modify: func(j *Jingle) {
				j.File = ""
			},
			wantErr: ErrEmptyFile,
		},
		{
			name: "negative offset",
			modify: func(j *Jingle) {
				j.Offset = -time.Second
			},
			wantErr: ErrNegativeOffset,
		},
		{
			name: "invalid anchor",
			modify: func(j *Jingle) {
				j.Anchor = "middle"
			},
			wantErr: ErrInvalidAnchor,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := &Jingle{
				Name:   "Horn",
				File:   "/sounds/horn.ogg",
				Offset: 30 * time.Second,
				Anchor: AnchorStart,
			}
			tt.modify(j)
			assert.Equal(t, tt.wantErr, j.Validate())
		})
	}
}

func TestJingle_DisplayName(t *testing.T) {
	j := Jingle{File: "/sounds/horn.ogg"}
	assert.Equal(t, "Unnamed", j.DisplayName())

	j.Name = "Horn"
	assert.Equal(t, "Horn", j.DisplayName())
}

func TestJingle_OffsetLabel(t *testing.T) {
	j := Jingle{Offset: time.Hour + 5*time.Minute + 9*time.Second}
	assert.Equal(t, "+01h:05m:09s", j.OffsetLabel())

	j.Offset = 0
	assert.Equal(t, "+00h:00m:00s", j.OffsetLabel())
}

func TestGame_AnchorTime(t *testing.T) {
	start := time.Date(2023, 8, 13, 9, 0, 0, 0, time.UTC)
	g := Game{Start: start, Duration: 30 * time.Minute}

	assert.Equal(t, start, g.AnchorTime(AnchorStart))
	assert.Equal(t, start.Add(15*time.Minute), g.AnchorTime(AnchorHalf))
	assert.Equal(t, start.Add(30*time.Minute), g.AnchorTime(AnchorEnd))
}

func TestNewPlannedJingle(t *testing.T) {
	start := time.Date(2023, 8, 13, 9, 0, 0, 0, time.UTC)
	g := Game{Start: start, Duration: 30 * time.Minute}
	j := Jingle{
		Name:   "Two minute warning",
		File:   "/sounds/warning.wav",
		Offset: 2 * time.Minute,
		Anchor: AnchorHalf,
	}

	p := NewPlannedJingle(j, g)

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, start.Add(17*time.Minute), p.FireTime)
	assert.Equal(t, "Two minute warning", p.Jingle.Name)
}

func TestPlannedJingle_Until(t *testing.T) {
	now := time.Date(2023, 8, 13, 9, 0, 0, 0, time.UTC)
	p := PlannedJingle{FireTime: now.Add(90 * time.Second)}

	assert.Equal(t, 90*time.Second, p.Until(now))
	assert.Negative(t, p.Until(now.Add(2*time.Minute)))
}

func TestNewPlayRecord(t *testing.T) {
	j := Jingle{File: "/sounds/horn.ogg"}
	r := NewPlayRecord(j, TriggerManual)

	assert.NotEmpty(t, r.ID)
	assert.Equal(t, "Unnamed", r.Name)
	assert.Equal(t, "/sounds/horn.ogg", r.File)
	assert.Equal(t, TriggerManual, r.Trigger)
	assert.Equal(t, OutcomePlayed, r.Outcome)
	assert.Greater(t, r.PlayedAt, int64(0))
}
