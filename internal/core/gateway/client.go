package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"diet-chat/internal/infrastructure/config"
	"diet-chat/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Client 推薦後端客戶端。後端對每次呼叫無狀態（只看 session_id + message），
// 所有多輪記憶都留在呼叫端
type Client struct {
	config *config.Config
	client *resty.Client
	cache  *Cache
}

// NewClient 創建推薦後端客戶端
func NewClient(cfg *config.Config, cache *Cache) *Client {
	client := resty.New().
		SetBaseURL(cfg.Backend.BaseURL).
		SetTimeout(cfg.Backend.Timeout).
		SetRetryCount(cfg.Backend.RetryCount).
		SetHeader("Content-Type", "application/json")

	if cfg.Backend.APIKey != "" {
		client.SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.Backend.APIKey))
	}

	return &Client{
		config: cfg,
		client: client,
		cache:  cache,
	}
}

// chatRequest POST /chat 請求
type chatRequest struct {
	SessionID  string `json:"session_id"`
	Message    string `json:"message"`
	Mode       Mode   `json:"mode"`
	SafetyMode string `json:"safety_mode,omitempty"`
}

// chatResponse POST /chat 響應，response 欄位是字串化的動作 payload
type chatResponse struct {
	Response      string `json:"response"`
	NeedsToolCall bool   `json:"needs_tool_call"`
}

// RequestTurn 對後端發起一輪對話呼叫
func (c *Client) RequestTurn(ctx context.Context, sessionID, message string, mode Mode, safety SafetyMode) (*Action, error) {
	start := time.Now()

	req := chatRequest{
		SessionID:  sessionID,
		Message:    message,
		Mode:       mode,
		SafetyMode: string(safety),
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		Post("/chat")

	if err != nil {
		common.LogGatewayCall("chat", time.Since(start), err, sessionID)
		return nil, &GatewayError{Op: "chat", Err: err}
	}

	if resp.StatusCode() != http.StatusOK {
		err := fmt.Errorf("unexpected status: %s", resp.Status())
		common.LogGatewayCall("chat", time.Since(start), err, sessionID)
		return nil, &GatewayError{Op: "chat", Status: resp.StatusCode(), Err: err}
	}

	var body chatResponse
	if err := common.ParseJSONBytes(resp.Body(), &body); err != nil {
		return nil, &GatewayError{Op: "chat", Err: fmt.Errorf("failed to parse response envelope: %w", err)}
	}

	action, err := decodeAction(body.Response, body.NeedsToolCall)
	if err != nil {
		return nil, &GatewayError{Op: "chat", Err: err}
	}

	common.LogGatewayCall("chat", time.Since(start), nil, sessionID)
	common.LogDebug("後端動作已解碼",
		zap.String("session_id", sessionID),
		zap.String("mode", string(mode)),
		zap.String("action_type", string(action.Type)),
		zap.Int("recipes", len(action.Recipes)),
	)

	return action, nil
}
