package recall

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Bot is the subset of the provider's bot resource the service relies on.
// Raw keeps the full provider response for callers that echo it back.
type Bot struct {
	ID         string          `json:"id"`
	Metadata   map[string]any  `json:"metadata"`
	Recordings json.RawMessage `json:"recordings"`
	Raw        json.RawMessage `json:"-"`
}

type recording struct {
	MediaShortcuts struct {
		Transcript *struct {
			Data struct {
				DownloadURL string `json:"download_url"`
			} `json:"data"`
		} `json:"transcript"`
	} `json:"media_shortcuts"`
}

func decodeBot(raw []byte) (*Bot, error) {
	var bot Bot
	if err := json.Unmarshal(raw, &bot); err != nil {
		return nil, fmt.Errorf("decode bot: %w", err)
	}
	bot.Raw = json.RawMessage(raw)
	return &bot, nil
}

// Project returns metadata.project, or "" when absent.
func (b *Bot) Project() string {
	if b == nil || b.Metadata == nil {
		return ""
	}
	p, _ := b.Metadata["project"].(string)
	return strings.TrimSpace(p)
}

// TranscriptDownloadURL returns the first transcript download URL among the
// bot's recordings. Recordings may arrive as a list or as a single object.
func (b *Bot) TranscriptDownloadURL() string {
	if b == nil || len(b.Recordings) == 0 {
		return ""
	}
	var list []recording
	if err := json.Unmarshal(b.Recordings, &list); err != nil {
		var single recording
		if err := json.Unmarshal(b.Recordings, &single); err != nil {
			return ""
		}
		list = []recording{single}
	}
	for _, rec := range list {
		if t := rec.MediaShortcuts.Transcript; t != nil && t.Data.DownloadURL != "" {
			return t.Data.DownloadURL
		}
	}
	return ""
}
