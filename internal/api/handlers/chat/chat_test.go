package chat

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	chatcore "diet-chat/internal/core/chat"
	"diet-chat/internal/core/gateway"
	"diet-chat/internal/core/session"
	"diet-chat/internal/infrastructure/config"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeBackendServer 模擬推薦後端的 /chat 端點
func fakeBackendServer(t *testing.T, hits *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*hits++
		payload := `{"action_type":"CONFIRMATION","message":"대창 요리를 추천해드릴까요?"}`
		json.NewEncoder(w).Encode(map[string]any{"response": payload})
	}))
}

func testRouter(t *testing.T, backendURL string) (*gin.Engine, *session.Manager) {
	t.Helper()
	cfg := &config.Config{
		Backend: config.BackendConfig{
			BaseURL: backendURL,
			Timeout: 5 * time.Second,
		},
		Session: config.SessionConfig{
			IdleTTL:         time.Hour,
			CleanupInterval: time.Hour,
			MaxSessions:     100,
		},
	}
	sessions := session.NewManager(cfg, gateway.NewClient(cfg, nil))
	t.Cleanup(sessions.Close)

	h := NewHandler(sessions)
	router := gin.New()
	router.POST("/api/v1/chat/session", h.HandleCreateSession)
	router.POST("/api/v1/chat/message", h.HandleMessage)
	router.GET("/api/v1/chat/:sessionID/transcript", h.HandleTranscript)
	return router, sessions
}

func postJSON(t *testing.T, router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleMessageRoundTrip(t *testing.T) {
	var hits int
	backend := fakeBackendServer(t, &hits)
	defer backend.Close()

	router, _ := testRouter(t, backend.URL)

	// 先鑄造會話
	w := postJSON(t, router, "/api/v1/chat/session", "")
	if w.Code != http.StatusOK {
		t.Fatalf("create session status = %d", w.Code)
	}
	var created struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	w = postJSON(t, router, "/api/v1/chat/message",
		`{"session_id":"`+created.SessionID+`","text":"대창 요리 추천해줘"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("message status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp EventResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.State != string(chatcore.StateAwaitingConfirmation) {
		t.Errorf("state = %q, want %q", resp.State, chatcore.StateAwaitingConfirmation)
	}
	if resp.Turn == nil || resp.Turn.Text != "대창 요리를 추천해드릴까요?" {
		t.Errorf("turn = %+v", resp.Turn)
	}
	if hits != 1 {
		t.Errorf("後端被呼叫 %d 次, want 1", hits)
	}

	// 對話記錄：user turn + assistant turn
	req := httptest.NewRequest(http.MethodGet, "/api/v1/chat/"+created.SessionID+"/transcript", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("transcript status = %d", w.Code)
	}
	var transcript TranscriptResponse
	if err := json.Unmarshal(w.Body.Bytes(), &transcript); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(transcript.Turns) != 2 {
		t.Errorf("turns = %d, want 2", len(transcript.Turns))
	}
}

// 缺少會話身分：本地「請稍候」回覆，後端完全不被呼叫
func TestHandleMessageMissingSession(t *testing.T) {
	var hits int
	backend := fakeBackendServer(t, &hits)
	defer backend.Close()

	router, sessions := testRouter(t, backend.URL)

	w := postJSON(t, router, "/api/v1/chat/message", `{"text":"대창 요리 추천해줘"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp EventResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Turn == nil || resp.Turn.Text != msgPleaseWait {
		t.Errorf("turn = %+v, want 請稍候文案", resp.Turn)
	}
	if hits != 0 {
		t.Errorf("後端被呼叫 %d 次, want 0", hits)
	}
	if sessions.Count() != 0 {
		t.Errorf("不應建立任何會話，實際 %d", sessions.Count())
	}
}

func TestHandleMessageInvalidBody(t *testing.T) {
	router, _ := testRouter(t, "http://127.0.0.1:0")

	// text 是必填欄位
	w := postJSON(t, router, "/api/v1/chat/message", `{"session_id":"sess-1"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleTranscriptUnknownSession(t *testing.T) {
	router, _ := testRouter(t, "http://127.0.0.1:0")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/chat/ghost/transcript", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}
