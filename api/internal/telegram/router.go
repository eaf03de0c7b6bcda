package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"afval-classifier/api/internal/afval"
	"afval-classifier/api/internal/afval/types"
	"afval-classifier/api/internal/util"
)

// Bot is the part of *tgbotapi.BotAPI the router uses.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Classifier is satisfied by *afval.Service.
type Classifier interface {
	Classify(ctx context.Context, image []byte) afval.Outcome
	ClassifyWithGemini(ctx context.Context, image []byte, mime string) afval.Outcome
	Status() map[string]bool
	Universe() *types.Universe
}

// MessageSource resolves user-facing texts by key; *settings.Service implements it.
type MessageSource interface {
	Message(ctx context.Context, key string, args map[string]any) string
}

// Recorder stores answered classifications.
type Recorder interface {
	Insert(ctx context.Context, chatID int64, source, imageHash string, validated bool, res types.CombinedResult) (int64, error)
}

const (
	sourceTelegram       = "telegram"
	sourceTelegramGemini = "telegram_gemini"
)

type Router struct {
	Bot        Bot
	Classifier Classifier
	Messages   MessageSource // optional
	History    Recorder      // optional

	// Debounce groups photos of one album before answering. Zero answers every photo at once.
	Debounce time.Duration
	HTTP     *http.Client
	Timeout  time.Duration
	Log      *slog.Logger

	modes   sync.Map // chatID -> mode
	batches sync.Map // key -> *photoBatch
}

func NewRouter(bot Bot, c Classifier, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}
	return &Router{
		Bot:        bot,
		Classifier: c,
		Debounce:   debounce,
		HTTP:       &http.Client{Timeout: 60 * time.Second},
		Timeout:    60 * time.Second,
		Log:        log.With("module", "telegram"),
	}
}

func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	msg := upd.Message
	if msg == nil {
		return
	}
	switch {
	case msg.IsCommand():
		r.HandleCommand(ctx, msg)
	case len(msg.Photo) > 0:
		ph := msg.Photo[len(msg.Photo)-1]
		r.acceptPhoto(ctx, msg.Chat.ID, msg.MediaGroupID, ph.FileID, "")
	case msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "image/"):
		r.acceptPhoto(ctx, msg.Chat.ID, msg.MediaGroupID, msg.Document.FileID, msg.Document.MimeType)
	default:
		r.send(msg.Chat.ID, r.message(ctx, "welkom", nil))
	}
}

func (r *Router) HandleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	switch msg.Command() {
	case "start", "help":
		r.send(cid, r.message(ctx, "welkom", nil)+"\n\nCommando's: /typen, /status, /modus")
	case "typen":
		var b strings.Builder
		b.WriteString("Afvaltypen:\n")
		for _, c := range r.Classifier.Universe().Categories() {
			b.WriteString("• ")
			b.WriteString(string(c))
			b.WriteString("\n")
		}
		r.send(cid, b.String())
	case "status":
		st := r.Classifier.Status()
		keys := make([]string, 0, len(st))
		for k := range st {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		for _, k := range keys {
			mark := "✅"
			if !st[k] {
				mark = "❌"
			}
			fmt.Fprintf(&b, "%s %s\n", mark, k)
		}
		r.send(cid, b.String())
	case "modus":
		r.handleModeCommand(cid, msg.CommandArguments())
	default:
		r.send(cid, "Onbekend commando. Probeer /help")
	}
}

// handleModeCommand switches how photos of a chat are classified:
//
//	/modus lokaal   local model, validated by Gemini
//	/modus gemini   image sent straight to Gemini
func (r *Router) handleModeCommand(chatID int64, args string) {
	name := strings.ToLower(strings.TrimSpace(args))
	switch name {
	case "":
		r.send(chatID, "Huidige modus: "+r.mode(chatID)+"\nGebruik: /modus lokaal | /modus gemini")
	case modeLocal, modeGemini:
		r.setMode(chatID, name)
		r.send(chatID, "✅ Modus: "+name)
	default:
		r.send(chatID, "Onbekende modus. Beschikbaar: lokaal | gemini")
	}
}

func (r *Router) message(ctx context.Context, key string, args map[string]any) string {
	if r.Messages != nil {
		return r.Messages.Message(ctx, key, args)
	}
	return util.FillPlaceholders(fallbackMessages[key], args)
}

var fallbackMessages = map[string]string{
	"welkom":             "Stuur een foto van afval en ik vertel je om welke soort het gaat.",
	"bedankt":            "Bedankt voor je melding!",
	"classificatie_fout": "Fout tijdens classificatie: {error}",
}

// Telegram caps messages at 4096 characters.
const maxMessageBytes = 3900

func (r *Router) send(chatID int64, text string) {
	text = util.Truncate(text, maxMessageBytes)
	if _, err := r.Bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		r.Log.Warn("send failed", "chat_id", chatID, "err", err)
	}
}
