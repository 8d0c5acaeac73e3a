// Package notify sends desktop notifications over the session bus
// when jingles fire or playback fails.
package notify

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"
)

const (
	notifyInterface = "org.freedesktop.Notifications"
	notifyPath      = "/org/freedesktop/Notifications"
	notifyMethod    = "org.freedesktop.Notifications.Notify"

	appName = "jinglebox"
)

// Urgency levels per the Desktop Notifications spec.
const (
	UrgencyLow      byte = 0
	UrgencyNormal   byte = 1
	UrgencyCritical byte = 2
)

// Notifier sends desktop notifications. All sends are best effort:
// a missing session bus or notification daemon is logged, never fatal.
type Notifier struct {
	mu      sync.Mutex
	logger  *slog.Logger
	enabled bool
	conn    *dbus.Conn
	lastID  uint32
}

// NewNotifier creates a Notifier. The session bus connection is
// established lazily on first send.
func NewNotifier(enabled bool, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		logger:  logger,
		enabled: enabled,
	}
}

// SetEnabled toggles notification sending.
func (n *Notifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// JinglePlayed announces a fired jingle.
func (n *Notifier) JinglePlayed(name string) {
	n.send("Jingle playing", name, UrgencyNormal, 5000)
}

// JingleFailed announces a jingle that could not be played.
func (n *Notifier) JingleFailed(name string, err error) {
	n.send("Jingle failed", fmt.Sprintf("%s: %v", name, err), UrgencyCritical, 0)
}

// JingleMissed announces a jingle whose fire time passed unplayed.
func (n *Notifier) JingleMissed(name string) {
	n.send("Jingle missed", name, UrgencyNormal, 10000)
}

// DuckFailed announces that the music app volume could not be lowered;
// the jingle plays over it at full volume.
func (n *Notifier) DuckFailed(name string, err error) {
	n.send("Ducking failed", fmt.Sprintf("%s: %v", name, err), UrgencyNormal, 10000)
}

// send performs the Notify call. Each notification replaces the
// previous one so fast-firing jingles do not stack up.
func (n *Notifier) send(summary, body string, urgency byte, timeoutMs int32) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.enabled {
		return
	}

	if n.conn == nil {
		conn, err := dbus.SessionBus()
		if err != nil {
			n.logger.Debug("session bus unavailable, skipping notification", "error", err)
			return
		}
		n.conn = conn
	}

	hints := map[string]dbus.Variant{
		"urgency": dbus.MakeVariant(urgency),
	}

	obj := n.conn.Object(notifyInterface, notifyPath)
	call := obj.Call(notifyMethod, 0,
		appName,    // app_name
		n.lastID,   // replaces_id
		"",         // app_icon
		summary,    // summary
		body,       // body
		[]string{}, // actions
		hints,      // hints
		timeoutMs,  // expire_timeout
	)
	if call.Err != nil {
		n.logger.Debug("notification send failed", "error", call.Err)
		return
	}

	var id uint32
	if err := call.Store(&id); err == nil {
		n.lastID = id
	}
}

// Close releases the bus connection.
func (n *Notifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.conn == nil {
		return nil
	}
	err := n.conn.Close()
	n.conn = nil
	return err
}
