package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf16"

	"ResearchDigest/internal/config"
	"ResearchDigest/internal/ports"
)

const defaultAPIBase = "https://api.telegram.org"

// maxMessageUnits is the Bot API text limit, counted in UTF-16 code units.
const maxMessageUnits = 4096

// Notifier sends digests to a Telegram chat via bot API.
type Notifier struct {
	apiBase  string
	botToken string
	chatID   string
	client   *http.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier.
func NewNotifier(cfg config.DeliveryConfig) *Notifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Notifier{
		apiBase:  defaultAPIBase,
		botToken: cfg.Telegram.BotToken,
		chatID:   cfg.Telegram.ChatID,
		client:   &http.Client{Timeout: timeout},
	}
}

// WithAPIBase points the notifier at another Bot API host.
func (n *Notifier) WithAPIBase(base string) *Notifier {
	n.apiBase = strings.TrimRight(base, "/")
	return n
}

// Deliver posts the digest as plain text, split into as many messages as the
// Bot API length limit requires.
func (n *Notifier) Deliver(ctx context.Context, digest string) error {
	if n.botToken == "" || n.chatID == "" || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	parts := splitMessage(digest, maxMessageUnits)
	for i, part := range parts {
		if err := n.send(ctx, part); err != nil {
			return fmt.Errorf("message %d of %d: %w", i+1, len(parts), err)
		}
	}
	return nil
}

func (n *Notifier) send(ctx context.Context, text string) error {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.botToken)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", text)
	form.Set("disable_web_page_preview", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}

	return nil
}

// splitMessage cuts text at line breaks so every part fits in limit UTF-16
// units. A single longer line is cut between runes.
func splitMessage(text string, limit int) []string {
	var parts []string
	var current strings.Builder
	size := 0
	flush := func() {
		if current.Len() > 0 {
			parts = append(parts, current.String())
			current.Reset()
			size = 0
		}
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		lineSize := utf16Len(line)
		if size+lineSize > limit {
			flush()
		}
		if lineSize <= limit {
			current.WriteString(line)
			size += lineSize
			continue
		}
		for _, r := range line {
			width := utf16.RuneLen(r)
			if width < 0 {
				width = 1
			}
			if size+width > limit {
				flush()
			}
			current.WriteRune(r)
			size += width
		}
	}
	flush()
	return parts
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		if w := utf16.RuneLen(r); w > 0 {
			n += w
		} else {
			n++
		}
	}
	return n
}
