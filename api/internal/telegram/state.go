package telegram

import (
	"sync"
	"time"
)

const debounce = 1200 * time.Millisecond

const (
	modeLocal  = "lokaal"
	modeGemini = "gemini"
)

func (r *Router) setMode(chatID int64, mode string) { r.modes.Store(chatID, mode) }

func (r *Router) mode(chatID int64) string {
	if v, ok := r.modes.Load(chatID); ok {
		if s, _ := v.(string); s != "" {
			return s
		}
	}
	return modeLocal
}

type photo struct {
	data []byte
	mime string
}

type photoBatch struct {
	ChatID int64
	Key    string // "grp:<mediaGroupID>" | "chat:<chatID>"

	mu     sync.Mutex
	photos []photo
	timer  *time.Timer
	done   bool
}
