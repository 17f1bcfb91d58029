package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"meetnote/internal/model"
	"meetnote/internal/recall"
	"meetnote/internal/storage"
	"meetnote/internal/transcript"
)

const (
	SourceDirect = "direct"
	SourcePolled = "polled"
)

// ErrInvalidProject is returned when the caller named a project explicitly
// and the name is not usable.
var ErrInvalidProject = errors.New("invalid project")

// BotLookup reads bot details for project attribution.
type BotLookup interface {
	GetBot(ctx context.Context, botID string) (*recall.Bot, error)
}

// Downloader fetches a raw transcript artifact.
type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

// Poller waits for the provider to publish a transcript URL.
type Poller interface {
	Poll(ctx context.Context, botID, transcriptID string) (string, bool, error)
}

// TranscriptWriter persists a rendered dialogue under a project.
type TranscriptWriter interface {
	WriteTranscript(project, dialogue string) (storage.Transcript, error)
}

// Outcome is what one webhook delivery produced. Ready is false when the
// provider never published a transcript within the polling budget.
type Outcome struct {
	Kind    string
	Project string
	Path    string
	Source  string
	Ready   bool
}

// Controller turns provider events into stored transcripts.
type Controller struct {
	bots           BotLookup
	downloader     Downloader
	poller         Poller
	writer         TranscriptWriter
	defaultProject string
}

// NewController wires the ingestion pipeline. An empty defaultProject uses
// storage.DefaultProject.
func NewController(bots BotLookup, downloader Downloader, poller Poller, writer TranscriptWriter, defaultProject string) *Controller {
	if strings.TrimSpace(defaultProject) == "" {
		defaultProject = storage.DefaultProject
	}
	return &Controller{
		bots:           bots,
		downloader:     downloader,
		poller:         poller,
		writer:         writer,
		defaultProject: defaultProject,
	}
}

// ResolveProject picks the project an event belongs to: the explicit query
// project, then the bot's metadata, then the default project.
func (c *Controller) ResolveProject(ctx context.Context, explicit, botID string) (string, error) {
	explicit = strings.TrimSpace(explicit)
	if explicit != "" && explicit != c.defaultProject {
		if err := storage.ValidateName(explicit); err != nil {
			return "", fmt.Errorf("%w: %w", ErrInvalidProject, err)
		}
		return explicit, nil
	}
	if botID == "" || c.bots == nil {
		return c.defaultProject, nil
	}

	bot, err := c.bots.GetBot(ctx, botID)
	if err != nil {
		log.Printf("[Webhook] Warning: bot metadata lookup failed for %s, using %q: %v", botID, c.defaultProject, err)
		return c.defaultProject, nil
	}
	project := bot.Project()
	if project == "" {
		return c.defaultProject, nil
	}
	if err := storage.ValidateName(project); err != nil {
		log.Printf("[Webhook] Warning: bot %s carries unusable project %q, using %q: %v", botID, project, c.defaultProject, err)
		return c.defaultProject, nil
	}
	return project, nil
}

// Handle processes one webhook event. Errors other than ErrInvalidProject
// happen after the request was accepted and describe upstream or storage
// failures.
func (c *Controller) Handle(ctx context.Context, ev model.WebhookEvent, explicitProject string) (Outcome, error) {
	out := Outcome{Kind: ev.Kind()}
	botID, transcriptID := ev.BotID(), ev.TranscriptID()
	log.Printf("[Webhook] Event: %s (bot: %s, transcript: %s)", out.Kind, botID, transcriptID)

	project, err := c.ResolveProject(ctx, explicitProject, botID)
	if err != nil {
		return out, err
	}
	out.Project = project

	url := ev.DownloadURL()
	if url != "" {
		out.Source = SourceDirect
	} else {
		out.Source = SourcePolled
		if botID == "" && transcriptID == "" {
			log.Printf("[Webhook] Event %s has no download url and no ids", out.Kind)
			return out, nil
		}
		var ready bool
		url, ready, err = c.poller.Poll(ctx, botID, transcriptID)
		if err != nil {
			return out, fmt.Errorf("poll transcript: %w", err)
		}
		if !ready {
			return out, nil
		}
	}

	saved, err := c.Ingest(ctx, project, url)
	if err != nil {
		return out, err
	}
	out.Path = saved.Path
	out.Ready = true
	return out, nil
}

// Ingest downloads a raw transcript, renders it to dialogue and stores it.
func (c *Controller) Ingest(ctx context.Context, project, url string) (storage.Transcript, error) {
	raw, err := c.downloader.Download(ctx, url)
	if err != nil {
		return storage.Transcript{}, err
	}
	segments, err := transcript.Parse(raw)
	if err != nil {
		return storage.Transcript{}, err
	}
	log.Printf("[Webhook] Normalized %d segment(s) for project %s", len(segments), project)
	return c.writer.WriteTranscript(project, transcript.Render(segments))
}
