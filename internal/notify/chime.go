package notify

import (
	"io"
	"log/slog"
	"sync"
)

// Chime plays the audio cue for a sound key.
// Play is called outside the queue lock and must not block for long.
type Chime interface {
	Play(key string)
}

// NopChime plays nothing.
type NopChime struct{}

func (NopChime) Play(string) {}

// LogChime records cues in the log; the daemon uses it since sound is played by the UI.
type LogChime struct {
	Logger *slog.Logger
}

func (c LogChime) Play(key string) {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("audio cue", slog.String("sound", key), slog.String("asset", SoundAsset(key)))
}

// BellChime rings the terminal bell. Used by the CLI watch session.
type BellChime struct {
	mu sync.Mutex
	W  io.Writer
}

func (c *BellChime) Play(string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = io.WriteString(c.W, "\a")
}

var soundAssets = map[string]string{
	SoundSale:               "/sounds/sale.mp3",
	SoundCustomer:           "/sounds/customer.mp3",
	string(CategorySuccess): "/sounds/success.mp3",
	string(CategoryError):   "/sounds/error.mp3",
	string(CategoryWarning): "/sounds/warning.mp3",
	string(CategoryInfo):    "/sounds/info.mp3",
}

// SoundAsset maps a sound key to the UI asset path, or "" for an unknown key.
func SoundAsset(key string) string {
	return soundAssets[key]
}

// soundKeyOf resolves the cue of n: its own key, else its category.
func soundKeyOf(n Notification) string {
	if n.SoundKey != "" {
		return n.SoundKey
	}
	return string(n.Category)
}
