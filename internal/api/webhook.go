package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"log"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"

	"meetnote/internal/ingest"
	"meetnote/internal/model"
	"meetnote/internal/utils"
)

const webhookTokenHeader = "X-Webhook-Token"

// recallWebhook receives provider callbacks. Checks run in order: content
// type, shared secret, body, project name. Anything that fails after that is
// reported with 200 so the provider does not redeliver.
func (s *Server) recallWebhook(c *gin.Context) {
	mediaType, _, err := mime.ParseMediaType(c.GetHeader("Content-Type"))
	if err != nil || mediaType != "application/json" {
		s.Metrics.WebhookEvents.WithLabelValues("rejected").Inc()
		utils.Error(c, http.StatusUnsupportedMediaType, "content-type must be application/json")
		return
	}

	if !s.validToken(c) {
		s.Metrics.WebhookEvents.WithLabelValues("rejected").Inc()
		utils.Error(c, http.StatusUnauthorized, "bad token")
		return
	}

	var ev model.WebhookEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		s.Metrics.WebhookEvents.WithLabelValues("rejected").Inc()
		utils.Error(c, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	// Polling can outlast the provider's patience; keep going if it hangs up.
	ctx := context.WithoutCancel(c.Request.Context())
	out, err := s.Ingestor.Handle(ctx, ev, c.Query("project"))
	if err != nil {
		if errors.Is(err, ingest.ErrInvalidProject) {
			s.Metrics.WebhookEvents.WithLabelValues("rejected").Inc()
			utils.Error(c, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("[Webhook] Ingestion failed (event: %s, project: %s): %v", out.Kind, out.Project, err)
		s.Metrics.WebhookEvents.WithLabelValues("failed").Inc()
		utils.Failed(c, err.Error())
		return
	}

	if !out.Ready {
		s.Metrics.WebhookEvents.WithLabelValues("not_ready").Inc()
		utils.Success(c, gin.H{"note": "transcript not ready yet", "project": out.Project})
		return
	}
	s.Metrics.WebhookEvents.WithLabelValues("saved").Inc()
	s.Metrics.TranscriptsSaved.WithLabelValues(out.Source).Inc()
	utils.Success(c, gin.H{"project": out.Project, "txt": out.Path, "source": out.Source})
}

// validToken accepts the header or the token query parameter. No configured
// token means the check is off.
func (s *Server) validToken(c *gin.Context) bool {
	if s.WebhookToken == "" {
		return true
	}
	want := []byte(s.WebhookToken)
	for _, got := range []string{c.GetHeader(webhookTokenHeader), c.Query("token")} {
		if got != "" && subtle.ConstantTimeCompare([]byte(got), want) == 1 {
			return true
		}
	}
	return false
}
