package api

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"meetnote/internal/cache"
	"meetnote/internal/ingest"
	"meetnote/internal/model"
	"meetnote/internal/recall"
	"meetnote/internal/storage"
	"meetnote/internal/utils"
)

const defaultBotName = "SummarizerBot"

// Summarizer turns transcript text into a summary.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// BotStarter asks the recording provider to join a meeting.
type BotStarter interface {
	CreateBot(ctx context.Context, req recall.CreateBotRequest) (*recall.Bot, error)
}

// Ingestor handles webhook events.
type Ingestor interface {
	Handle(ctx context.Context, ev model.WebhookEvent, explicitProject string) (ingest.Outcome, error)
}

// Deps is everything the HTTP surface talks to. Summarizer may be nil when no
// LLM credentials are configured.
type Deps struct {
	Projects       *storage.Store
	Cache          *cache.SummaryCache
	Summarizer     Summarizer
	Bots           BotStarter
	Ingestor       Ingestor
	Metrics        *Metrics
	WebhookToken   string
	DefaultProject string
	SummaryTimeout time.Duration
}

// Server holds the handlers.
type Server struct {
	Deps
}

// NewServer fills defaults on deps.
func NewServer(deps Deps) *Server {
	if deps.Metrics == nil {
		deps.Metrics = NewMetrics()
	}
	if strings.TrimSpace(deps.DefaultProject) == "" {
		deps.DefaultProject = storage.DefaultProject
	}
	return &Server{Deps: deps}
}

// NewRouter builds the gin engine with middleware and all routes.
func NewRouter(s *Server) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), requestIDMiddleware(), corsMiddleware())
	s.RegisterRoutes(r)
	return r
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	// Health check
	r.GET("/health", s.healthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.Metrics.Registry, promhttp.HandlerOpts{})))

	// Projects
	r.POST("/create_project", s.createProject)
	r.GET("/projects", s.listProjects)
	r.PATCH("/projects/:project", s.renameProject)
	r.DELETE("/projects/:project", s.deleteProject)
	r.GET("/transcripts/:project", s.listTranscripts)

	// Meeting bot and summaries
	r.POST("/start_bot", s.startBot)
	r.POST("/recall/webhook", s.recallWebhook)
	r.POST("/summarize", s.summarize)
}

// healthCheck returns server health status
func (s *Server) healthCheck(c *gin.Context) {
	utils.Success(c, nil)
}

func (s *Server) createProject(c *gin.Context) {
	var req model.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	name := strings.TrimSpace(req.ProjectName)
	if name == "" {
		utils.Error(c, http.StatusBadRequest, "project_name is required")
		return
	}
	path, err := s.Projects.Create(name)
	if err != nil {
		s.storeError(c, err)
		return
	}
	utils.Success(c, gin.H{"project": name, "path": path})
}

func (s *Server) listProjects(c *gin.Context) {
	names, err := s.Projects.List()
	if err != nil {
		log.Printf("[Projects] List failed: %v", err)
		utils.Error(c, http.StatusInternalServerError, "failed to list projects")
		return
	}
	utils.JSON(c, gin.H{"projects": names})
}

func (s *Server) renameProject(c *gin.Context) {
	oldName := c.Param("project")
	var req model.RenameProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	newName := strings.TrimSpace(req.NewName)
	if newName == "" {
		utils.Error(c, http.StatusBadRequest, "new_name is required")
		return
	}
	path, err := s.Projects.Rename(oldName, newName)
	if err != nil {
		s.storeError(c, err)
		return
	}
	utils.Success(c, gin.H{"old": oldName, "new": newName, "path": path})
}

func (s *Server) deleteProject(c *gin.Context) {
	name := c.Param("project")
	var req model.DeleteProjectRequest
	// The body is optional; ?confirm=true works too.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		utils.Error(c, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	confirm := req.Confirm || c.Query("confirm") == "true"
	if err := s.Projects.Delete(name, confirm); err != nil {
		s.storeError(c, err)
		return
	}
	utils.Success(c, gin.H{"deleted": name})
}

func (s *Server) listTranscripts(c *gin.Context) {
	project := c.Param("project")
	items, err := s.Projects.ListTranscripts(project)
	if err != nil {
		s.storeError(c, err)
		return
	}
	utils.JSON(c, gin.H{"project": project, "transcripts": items})
}

func (s *Server) startBot(c *gin.Context) {
	var req model.StartBotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	meetingURL := strings.TrimSpace(req.MeetingURL)
	if meetingURL == "" {
		utils.Error(c, http.StatusBadRequest, "meeting_url is required")
		return
	}
	botName := strings.TrimSpace(req.BotName)
	if botName == "" {
		botName = defaultBotName
	}
	project := strings.TrimSpace(req.ProjectName)
	if project == "" {
		project = s.DefaultProject
	}
	if _, err := s.Projects.Ensure(project); err != nil {
		s.storeError(c, err)
		return
	}

	bot, err := s.Bots.CreateBot(c.Request.Context(), recall.CreateBotRequest{
		MeetingURL: meetingURL,
		BotName:    botName,
		Project:    project,
	})
	if err != nil {
		log.Printf("[StartBot] Failed to create bot for project %s: %v", project, err)
		s.Metrics.BotsStarted.WithLabelValues("failed").Inc()
		utils.Failed(c, err.Error())
		return
	}
	s.Metrics.BotsStarted.WithLabelValues("ok").Inc()
	utils.Success(c, gin.H{
		"bot_id":  bot.ID,
		"bot":     bot.Raw,
		"project": project,
	})
}

func (s *Server) summarize(c *gin.Context) {
	var req model.SummarizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	project := strings.TrimSpace(req.ProjectName)
	filename := strings.TrimSpace(req.TranscriptFile)

	var text string
	switch {
	case project != "" || filename != "":
		if project == "" || filename == "" {
			utils.Error(c, http.StatusBadRequest, "project_name and transcript_file are both required")
			return
		}
		content, err := s.Projects.ReadTranscript(project, filename)
		if err != nil {
			s.storeError(c, err)
			return
		}
		text = content
	default:
		text = strings.TrimSpace(req.Text)
		if text == "" {
			utils.Error(c, http.StatusBadRequest, "no text provided")
			return
		}
	}

	summary, status := s.Cache.Lookup(text, project, filename)
	s.Metrics.CacheLookups.WithLabelValues(string(status)).Inc()
	if status == cache.StatusHit {
		utils.JSON(c, gin.H{"summary": summary, "cached": true})
		return
	}

	if s.Summarizer == nil {
		utils.Error(c, http.StatusServiceUnavailable, "summarizer is not configured (OPENAI_API_KEY is not set)")
		return
	}

	ctx := c.Request.Context()
	if s.SummaryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.SummaryTimeout)
		defer cancel()
	}
	started := time.Now()
	summary, err := s.Summarizer.Summarize(ctx, text)
	s.Metrics.SummaryLatency.Observe(time.Since(started).Seconds())
	if err != nil {
		log.Printf("[Summarize] Failed (project: %s, file: %s): %v", project, filename, err)
		s.Metrics.SummaryErrors.Inc()
		utils.Error(c, http.StatusBadGateway, "summarization failed: "+err.Error())
		return
	}

	if _, err := s.Cache.Put(text, summary, project, filename); err != nil {
		log.Printf("[Summarize] Warning: failed to cache summary: %v", err)
	}
	utils.JSON(c, gin.H{"summary": summary, "cached": false})
}

// storeError maps project store errors to HTTP statuses.
func (s *Server) storeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, storage.ErrInvalidName), errors.Is(err, storage.ErrInvalidFilename),
		errors.Is(err, storage.ErrConfirmationRequired):
		utils.Error(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		utils.Error(c, http.StatusNotFound, err.Error())
	case errors.Is(err, storage.ErrTargetExists):
		utils.Error(c, http.StatusConflict, err.Error())
	default:
		log.Printf("[Projects] Storage error: %v", err)
		utils.Error(c, http.StatusInternalServerError, "storage error")
	}
}
