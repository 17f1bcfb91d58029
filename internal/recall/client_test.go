package recall

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{APIKey: "secret", BaseURL: srv.URL + "/api/v1", RatePerSecond: 1000})
}

func TestNewClient_RegionURL(t *testing.T) {
	assert.Equal(t, "https://us-west-2.recall.ai/api/v1", NewClient(Config{}).BaseURL())
	assert.Equal(t, "https://eu-central-1.recall.ai/api/v1", NewClient(Config{Region: "eu-central-1"}).BaseURL())
}

func TestCreateBot_SendsMetadata(t *testing.T) {
	var got map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/bot/", r.URL.Path)
		assert.Equal(t, "Token secret", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"bot-1","metadata":{"project":"alpha"}}`))
	})

	bot, err := client.CreateBot(context.Background(), CreateBotRequest{
		MeetingURL: "https://meet.google.com/abc-defg-hij",
		BotName:    "SummarizerBot",
		Project:    "alpha",
	})
	require.NoError(t, err)
	assert.Equal(t, "bot-1", bot.ID)
	assert.Equal(t, "alpha", bot.Project())
	assert.JSONEq(t, `{"id":"bot-1","metadata":{"project":"alpha"}}`, string(bot.Raw))

	assert.Equal(t, "https://meet.google.com/abc-defg-hij", got["meeting_url"])
	assert.Equal(t, "SummarizerBot", got["bot_name"])
	assert.Equal(t, "participant_join", got["start_recording_on"])
	assert.Equal(t, map[string]any{"project": "alpha"}, got["metadata"])
	assert.Contains(t, got["recording_config"], "transcript")
}

func TestCreateBot_UpstreamError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"meeting_url":["invalid"]}`))
	})

	_, err := client.CreateBot(context.Background(), CreateBotRequest{MeetingURL: "x"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Error(), "invalid")
}

func TestClient_NoAPIKey(t *testing.T) {
	client := NewClient(Config{})
	_, err := client.GetBot(context.Background(), "bot-1")
	assert.ErrorIs(t, err, ErrNoAPIKey)
	_, err = client.TranscriptDownloadURL(context.Background(), "t-1")
	assert.ErrorIs(t, err, ErrNoAPIKey)
	_, err = client.CreateBot(context.Background(), CreateBotRequest{})
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestGetBot_TranscriptURLFromRecordingsList(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/bot/bot-9/", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"bot-9","metadata":{"project":"beta"},"recordings":[
			{"media_shortcuts":{}},
			{"media_shortcuts":{"transcript":{"data":{"download_url":"https://files/t.json"}}}}
		]}`))
	})

	bot, err := client.GetBot(context.Background(), "bot-9")
	require.NoError(t, err)
	assert.Equal(t, "beta", bot.Project())
	assert.Equal(t, "https://files/t.json", bot.TranscriptDownloadURL())
}

func TestBot_TranscriptURLFromSingleRecording(t *testing.T) {
	bot, err := decodeBot([]byte(`{"id":"b","recordings":{"media_shortcuts":{"transcript":{"data":{"download_url":"u"}}}}}`))
	require.NoError(t, err)
	assert.Equal(t, "u", bot.TranscriptDownloadURL())

	bot, err = decodeBot([]byte(`{"id":"b","recordings":null}`))
	require.NoError(t, err)
	assert.Equal(t, "", bot.TranscriptDownloadURL())
	assert.Equal(t, "", bot.Project())
}

func TestTranscriptDownloadURL(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"nested data", `{"data":{"download_url":"https://a"}}`, "https://a"},
		{"top level", `{"download_url":"https://b"}`, "https://b"},
		{"nested wins", `{"data":{"download_url":"https://a"},"download_url":"https://b"}`, "https://a"},
		{"not ready", `{"data":{"download_url":null},"status":"processing"}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/v1/transcript/t-1/", r.URL.Path)
				_, _ = w.Write([]byte(tt.body))
			})
			got, err := client.TranscriptDownloadURL(context.Background(), "t-1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDownload_NoAuthHeader(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[]`))
	})

	body, err := client.Download(context.Background(), client.BaseURL()+"/file.json")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(body))
}

func TestDownload_NotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.Download(context.Background(), client.BaseURL()+"/gone.json")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}
