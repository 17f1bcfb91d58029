package model

import "strings"

// WebhookEvent is the envelope the recording provider posts to the webhook.
type WebhookEvent struct {
	Type  string    `json:"type"`
	Event string    `json:"event"`
	Data  EventData `json:"data"`
}

// EventData carries whichever identifiers the provider included. Any of them
// may be missing.
type EventData struct {
	DownloadURL  string  `json:"download_url"`
	BotID        string  `json:"bot_id"`
	Bot          *ObjRef `json:"bot"`
	TranscriptID string  `json:"transcript_id"`
	Transcript   *ObjRef `json:"transcript"`
}

// ObjRef is a nested {"id": ...} reference.
type ObjRef struct {
	ID string `json:"id"`
}

// Kind returns the event name, "unknown" when neither field is set.
func (e WebhookEvent) Kind() string {
	if e.Type != "" {
		return e.Type
	}
	if e.Event != "" {
		return e.Event
	}
	return "unknown"
}

func (e WebhookEvent) DownloadURL() string {
	return strings.TrimSpace(e.Data.DownloadURL)
}

// BotID prefers data.bot_id over data.bot.id.
func (e WebhookEvent) BotID() string {
	if e.Data.BotID != "" {
		return e.Data.BotID
	}
	if e.Data.Bot != nil {
		return e.Data.Bot.ID
	}
	return ""
}

// TranscriptID prefers data.transcript_id over data.transcript.id.
func (e WebhookEvent) TranscriptID() string {
	if e.Data.TranscriptID != "" {
		return e.Data.TranscriptID
	}
	if e.Data.Transcript != nil {
		return e.Data.Transcript.ID
	}
	return ""
}

// StartBotRequest is the body of POST /start_bot.
type StartBotRequest struct {
	MeetingURL  string `json:"meeting_url"`
	ProjectName string `json:"project_name"`
	BotName     string `json:"bot_name"`
}

// SummarizeRequest is the body of POST /summarize. Text is the legacy
// text-only form.
type SummarizeRequest struct {
	ProjectName    string `json:"project_name"`
	TranscriptFile string `json:"transcript_file"`
	Text           string `json:"text"`
}

type CreateProjectRequest struct {
	ProjectName string `json:"project_name"`
}

type RenameProjectRequest struct {
	NewName string `json:"new_name"`
}

type DeleteProjectRequest struct {
	Confirm bool `json:"confirm"`
}
