package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"afval-classifier/api/internal/afval"
	"afval-classifier/api/internal/util"
)

// maxDownload caps a single photo download.
const maxDownload = 20 << 20

func (r *Router) acceptPhoto(ctx context.Context, chatID int64, mediaGroupID, fileID, mime string) {
	url, err := r.Bot.GetFileDirectURL(fileID)
	if err != nil {
		r.sendError(chatID, err)
		return
	}
	data, err := r.download(ctx, url)
	if err != nil {
		r.sendError(chatID, err)
		return
	}
	p := photo{data: data, mime: util.PickMIME(mime, "", data)}

	if r.Debounce <= 0 {
		r.answer(ctx, chatID, []photo{p})
		return
	}

	key := fmt.Sprintf("chat:%d", chatID)
	if mediaGroupID != "" {
		key = "grp:" + mediaGroupID
	}
	r.enqueue(key, chatID, p)
}

// enqueue adds p to the open batch under key and restarts its timer. A batch
// already taken by processBatch is dropped from the map and a fresh one is used.
func (r *Router) enqueue(key string, chatID int64, p photo) {
	for {
		bi, _ := r.batches.LoadOrStore(key, &photoBatch{ChatID: chatID, Key: key})
		b := bi.(*photoBatch)

		b.mu.Lock()
		if b.done {
			b.mu.Unlock()
			r.batches.CompareAndDelete(key, b)
			continue
		}
		b.photos = append(b.photos, p)
		if b.timer != nil {
			b.timer.Stop()
		}
		b.timer = time.AfterFunc(r.Debounce, func() { r.processBatch(key) })
		b.mu.Unlock()
		return
	}
}

func (r *Router) processBatch(key string) {
	bi, ok := r.batches.LoadAndDelete(key)
	if !ok {
		return
	}
	b := bi.(*photoBatch)

	b.mu.Lock()
	b.done = true
	photos := append([]photo(nil), b.photos...)
	b.mu.Unlock()

	if len(photos) == 0 {
		return
	}
	r.answer(context.Background(), b.ChatID, photos)
}

// answer classifies every photo and replies once.
func (r *Router) answer(ctx context.Context, chatID int64, photos []photo) {
	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	direct := r.mode(chatID) == modeGemini
	var (
		b   strings.Builder
		ack string
	)
	for i, p := range photos {
		var (
			out    afval.Outcome
			source = sourceTelegram
		)
		if direct {
			source = sourceTelegramGemini
			out = r.Classifier.ClassifyWithGemini(ctx, p.data, p.mime)
		} else {
			out = r.Classifier.Classify(ctx, p.data)
		}
		r.record(ctx, chatID, source, p.data, out)
		if ack == "" {
			ack = out.Acknowledgement()
		}
		if len(photos) > 1 {
			fmt.Fprintf(&b, "Foto %d\n", i+1)
		}
		b.WriteString(FormatResult(out.Combined))
		b.WriteString("\n")
	}
	if ack == "" {
		ack = r.message(ctx, "bedankt", nil)
	}
	b.WriteString(ack)
	r.send(chatID, b.String())
}

func (r *Router) record(ctx context.Context, chatID int64, source string, image []byte, out afval.Outcome) {
	if r.History == nil {
		return
	}
	if _, err := r.History.Insert(ctx, chatID, source, afval.ImageHash(image), out.External != nil, out.Combined); err != nil {
		r.Log.WarnContext(ctx, "history insert failed", "chat_id", chatID, "err", err)
	}
}

func (r *Router) sendError(chatID int64, err error) {
	r.Log.Warn("photo download failed", "chat_id", chatID, "err", err)
	r.send(chatID, r.message(context.Background(), "classificatie_fout", map[string]any{"error": err.Error()}))
}

func (r *Router) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(b))
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxDownload))
}
