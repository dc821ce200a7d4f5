package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sabrinaskaa/chatbot-binara/pkg/guardrail"
	"github.com/sabrinaskaa/chatbot-binara/pkg/intent"
	"github.com/sabrinaskaa/chatbot-binara/pkg/memory"
	"github.com/sabrinaskaa/chatbot-binara/pkg/metrics"
	"github.com/sabrinaskaa/chatbot-binara/pkg/model"
	"github.com/sabrinaskaa/chatbot-binara/pkg/repository"
	"github.com/sabrinaskaa/chatbot-binara/pkg/server"
	"github.com/sabrinaskaa/chatbot-binara/pkg/tool"
	"github.com/sabrinaskaa/chatbot-binara/pkg/usecase/chat"
)

type recordingChatter struct {
	sessionID string
	message   string
	err       error
}

func (c *recordingChatter) Chat(ctx context.Context, sessionID, message string) (*chat.Reply, error) {
	c.sessionID = sessionID
	c.message = message
	if c.err != nil {
		return nil, c.err
	}
	return &chat.Reply{Intent: model.IntentGeneral, Reply: "ok"}, nil
}

func post(t *testing.T, ts *httptest.Server, body string) *http.Response {
	t.Helper()
	res, err := http.Post(ts.URL+"/chat", "application/json", strings.NewReader(body))
	gt.NoError(t, err)
	t.Cleanup(func() { res.Body.Close() })
	return res
}

func TestChatDefaultsSession(t *testing.T) {
	c := &recordingChatter{}
	ts := httptest.NewServer(server.New(c).Router())
	defer ts.Close()

	res := post(t, ts, `{"message":"halo"}`)
	gt.Equal(t, res.StatusCode, http.StatusOK)
	gt.Equal(t, c.sessionID, server.DefaultSessionID)
	gt.Equal(t, c.message, "halo")
	gt.NotEqual(t, res.Header.Get("X-Request-Id"), "")

	var reply map[string]string
	gt.NoError(t, json.NewDecoder(res.Body).Decode(&reply))
	gt.Equal(t, reply["intent"], model.IntentGeneral)
	gt.Equal(t, reply["reply"], "ok")
}

func TestChatBadRequest(t *testing.T) {
	c := &recordingChatter{}
	ts := httptest.NewServer(server.New(c).Router())
	defer ts.Close()

	for _, body := range []string{"", "{", `{"message":"  "}`} {
		res := post(t, ts, body)
		gt.Equal(t, res.StatusCode, http.StatusBadRequest)
	}
	gt.Equal(t, c.message, "")
}

func TestChatBackendError(t *testing.T) {
	c := &recordingChatter{err: errors.New("permission denied")}
	ts := httptest.NewServer(server.New(c).Router())
	defer ts.Close()

	res := post(t, ts, `{"session_id":"s1","message":"halo"}`)
	gt.Equal(t, res.StatusCode, http.StatusBadGateway)
	gt.Equal(t, res.Header.Get("Content-Type"), "application/json")

	var body map[string]string
	gt.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	gt.Equal(t, body["code"], "backend_error")
	gt.Equal(t, c.sessionID, "s1")
}

func TestHealthz(t *testing.T) {
	ts := httptest.NewServer(server.New(&recordingChatter{}).Router())
	defer ts.Close()

	res, err := http.Get(ts.URL + "/healthz")
	gt.NoError(t, err)
	defer res.Body.Close()
	gt.Equal(t, res.StatusCode, http.StatusOK)
}

func TestEndToEndWithMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)

	repo := repository.NewMemory()
	gt.NoError(t, repo.Seed(context.Background(), repository.DefaultSeed()))
	classifier, err := intent.New()
	gt.NoError(t, err)

	o, err := chat.New(chat.Input{
		Memory:    memory.New(),
		Guardrail: guardrail.New(nil, guardrail.WithMetrics(m)),
		Intent:    classifier,
		Router:    tool.NewRouter(repo, tool.WithMetrics(m)),
		Gateway:   repo,
		Metrics:   m,
	})
	gt.NoError(t, err)

	ts := httptest.NewServer(server.New(o, server.WithGatherer(reg)).Router())
	defer ts.Close()

	body, err := json.Marshal(map[string]string{"session_id": "s1", "message": "kamar kosong dong"})
	gt.NoError(t, err)
	res, err := http.Post(ts.URL+"/chat", "application/json", bytes.NewReader(body))
	gt.NoError(t, err)
	defer res.Body.Close()
	gt.Equal(t, res.StatusCode, http.StatusOK)

	var reply chat.Reply
	gt.NoError(t, json.NewDecoder(res.Body).Decode(&reply))
	gt.Equal(t, reply.Intent, model.IntentCheckAvailability)
	gt.S(t, reply.Reply).Contains("- A1 (single) Rp900000/bulan")

	mres, err := http.Get(ts.URL + "/metrics")
	gt.NoError(t, err)
	defer mres.Body.Close()
	raw, err := io.ReadAll(mres.Body)
	gt.NoError(t, err)
	gt.S(t, string(raw)).Contains(`kostbot_replies_total{tier="grounded"} 1`)
}
