// Package audio provides jingle playback.
package audio

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

// Player decodes and plays jingle files.
// Supports WAV, OGG, and MP3 formats.
type Player struct {
	mu     sync.Mutex
	logger *slog.Logger

	// Volume control (0.0 to 1.0)
	volume float64

	// Whether speaker has been initialized
	initialized bool

	// Sample rate for the speaker
	sampleRate beep.SampleRate

	// Decoded jingle cache
	cache      map[string]*cachedJingle
	cacheMutex sync.RWMutex
}

// cachedJingle holds a decoded jingle ready for playback.
type cachedJingle struct {
	buffer *beep.Buffer
	path   string
}

// NewPlayer creates a new jingle player.
func NewPlayer(logger *slog.Logger) *Player {
	if logger == nil {
		logger = slog.Default()
	}

	return &Player{
		logger:     logger,
		volume:     1.0,
		sampleRate: beep.SampleRate(44100),
		cache:      make(map[string]*cachedJingle),
	}
}

// SetVolume sets the playback volume (0.0 to 1.0).
func (p *Player) SetVolume(volume float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if volume < 0 {
		volume = 0
	}
	if volume > 1 {
		volume = 1
	}
	p.volume = volume
	p.logger.Debug("jingle volume set", "volume", volume)
}

// GetVolume returns the current volume.
func (p *Player) GetVolume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// Play plays a jingle file and calls done (if non-nil) when playback ends.
// The done callback runs on its own goroutine, so it may block.
func (p *Player) Play(path string, done func()) error {
	if path == "" {
		return nil
	}

	path = expandPath(path)

	// The file must exist at play time
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("jingle file unavailable: %w", err)
	}

	p.cacheMutex.RLock()
	cached, ok := p.cache[path]
	p.cacheMutex.RUnlock()

	if ok {
		return p.playBuffer(cached.buffer, done)
	}

	buffer, err := p.loadJingle(path)
	if err != nil {
		p.logger.Warn("failed to load jingle", "path", path, "error", err)
		return err
	}

	p.cacheMutex.Lock()
	p.cache[path] = &cachedJingle{buffer: buffer, path: path}
	p.cacheMutex.Unlock()

	return p.playBuffer(buffer, done)
}

// Duration returns the playback length of a jingle file, decoding and
// caching it on first use.
func (p *Player) Duration(path string) (time.Duration, error) {
	path = expandPath(path)

	p.cacheMutex.RLock()
	cached, ok := p.cache[path]
	p.cacheMutex.RUnlock()

	if !ok {
		buffer, err := p.loadJingle(path)
		if err != nil {
			return 0, err
		}
		p.cacheMutex.Lock()
		p.cache[path] = &cachedJingle{buffer: buffer, path: path}
		p.cacheMutex.Unlock()
		cached = &cachedJingle{buffer: buffer, path: path}
	}

	return cached.buffer.Format().SampleRate.D(cached.buffer.Len()), nil
}

// loadJingle loads and decodes a jingle file into a buffer.
func (p *Player) loadJingle(path string) (*beep.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open jingle file: %w", err)
	}
	defer func() { _ = f.Close() }()

	ext := strings.ToLower(filepath.Ext(path))

	var streamer beep.StreamSeekCloser
	var format beep.Format

	switch ext {
	case ".wav":
		streamer, format, err = wav.Decode(f)
	case ".ogg", ".oga":
		streamer, format, err = vorbis.Decode(f)
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	default:
		return nil, fmt.Errorf("unsupported audio format: %s", ext)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to decode jingle: %w", err)
	}
	defer func() { _ = streamer.Close() }()

	if err := p.ensureInitialized(format.SampleRate); err != nil {
		return nil, err
	}

	buffer := beep.NewBuffer(format)
	buffer.Append(streamer)

	return buffer, nil
}

// ensureInitialized initializes the speaker if not already done.
func (p *Player) ensureInitialized(sampleRate beep.SampleRate) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return nil
	}

	// Use a reasonable buffer size for low latency
	bufferSize := sampleRate.N(time.Millisecond * 100)

	if err := speaker.Init(sampleRate, bufferSize); err != nil {
		return fmt.Errorf("failed to initialize speaker: %w", err)
	}

	p.sampleRate = sampleRate
	p.initialized = true
	p.logger.Debug("speaker initialized", "sample_rate", sampleRate)
	return nil
}

// playBuffer plays a buffered jingle, invoking done when the stream ends.
func (p *Player) playBuffer(buffer *beep.Buffer, done func()) error {
	if buffer == nil {
		if done != nil {
			asyncCallback(done)()
		}
		return nil
	}

	p.mu.Lock()
	volume := p.volume
	sampleRate := p.sampleRate
	p.mu.Unlock()

	var streamer beep.Streamer = buffer.Streamer(0, buffer.Len())

	if buffer.Format().SampleRate != sampleRate {
		streamer = beep.Resample(4, buffer.Format().SampleRate, sampleRate, streamer)
	}

	if volume < 1.0 {
		streamer = &effects.Volume{
			Streamer: streamer,
			Base:     2,
			Volume:   volumeExponent(volume),
			Silent:   volume == 0,
		}
	}

	if done != nil {
		streamer = beep.Seq(streamer, beep.Callback(asyncCallback(done)))
	}

	speaker.Play(streamer)

	return nil
}

// Preload loads a jingle file into the cache for gap-free firing.
func (p *Player) Preload(path string) error {
	if path == "" {
		return nil
	}

	path = expandPath(path)

	p.cacheMutex.RLock()
	_, ok := p.cache[path]
	p.cacheMutex.RUnlock()

	if ok {
		return nil
	}

	buffer, err := p.loadJingle(path)
	if err != nil {
		return err
	}

	p.cacheMutex.Lock()
	p.cache[path] = &cachedJingle{buffer: buffer, path: path}
	p.cacheMutex.Unlock()

	p.logger.Debug("preloaded jingle", "path", path)
	return nil
}

// ClearCache clears the decoded jingle cache.
func (p *Player) ClearCache() {
	p.cacheMutex.Lock()
	defer p.cacheMutex.Unlock()
	p.cache = make(map[string]*cachedJingle)
	p.logger.Debug("jingle cache cleared")
}

// InvalidateCache removes a specific path from the cache.
func (p *Player) InvalidateCache(path string) {
	p.cacheMutex.Lock()
	defer p.cacheMutex.Unlock()
	delete(p.cache, path)
}

// Close stops all playback and releases resources.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		speaker.Close()
		p.initialized = false
	}

	p.ClearCache()
	p.logger.Debug("jingle player closed")
}

// asyncCallback runs fn on its own goroutine. Completion handlers restore
// ducked volumes by shelling out to pactl; run inline they would stall the
// speaker mixer loop.
func asyncCallback(fn func()) func() {
	return func() { go fn() }
}

// volumeExponent converts a linear volume (0-1) to a base-2 exponent for
// the volume effect, where gain = 2^exponent.
func volumeExponent(volume float64) float64 {
	if volume <= 0 {
		return -10 // Effectively silent
	}
	return math.Log2(volume)
}

// expandPath expands a leading ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
