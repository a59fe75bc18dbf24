package chat

import (
	"errors"
	"net/http"

	chatcore "diet-chat/internal/core/chat"
	"diet-chat/internal/core/session"
	"diet-chat/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 缺少會話身分時的本地回覆：不打後端，請使用者稍候
const msgPleaseWait = "잠시만 기다려주세요! 로그인 정보를 확인하고 있어요."

// Handler 聊天事件處理程序
type Handler struct {
	sessions *session.Manager
}

// NewHandler 創建聊天事件處理程序
func NewHandler(sessions *session.Manager) *Handler {
	return &Handler{sessions: sessions}
}

// MessageRequest 自由文本或 suggestion chip 輸入
type MessageRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text" binding:"required"`
}

// MealTypeRequest 餐別按鈕
type MealTypeRequest struct {
	SessionID string `json:"session_id"`
	MealType  string `json:"meal_type" binding:"required"`
}

// SelectRecipeRequest 候選食譜卡片點選
type SelectRecipeRequest struct {
	SessionID  string `json:"session_id"`
	RecipeName string `json:"recipe_name" binding:"required"`
}

// ChecklistRequest 食材剔除清單送出
type ChecklistRequest struct {
	SessionID           string   `json:"session_id"`
	ExcludedIngredients []string `json:"excluded_ingredients"`
}

// AdvanceRequest 烹飪步驟游標移動
type AdvanceRequest struct {
	SessionID string `json:"session_id"`
	Direction string `json:"direction" binding:"required"` // start / next / previous
}

// RecordRequest 完成後的記錄或放棄
type RecordRequest struct {
	SessionID string `json:"session_id"`
	Action    string `json:"action" binding:"required"` // record / discard
}

// EventResponse 每個事件回傳最新的 assistant turn 與狀態，
// UI 依最新 turn 攜帶的附加資料渲染對應的 affordance
type EventResponse struct {
	SessionID string         `json:"session_id"`
	State     string         `json:"state"`
	Turn      *chatcore.Turn `json:"turn,omitempty"`
}

// TranscriptResponse 整份對話記錄（重連後重繪用）
type TranscriptResponse struct {
	SessionID string          `json:"session_id"`
	State     string          `json:"state"`
	Turns     []chatcore.Turn `json:"turns"`
}

// HandleCreateSession 鑄造新會話
func (h *Handler) HandleCreateSession(c *gin.Context) {
	id, err := h.sessions.Create()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": id})
}

// HandleMessage 處理使用者訊息
func (h *Handler) HandleMessage(c *gin.Context) {
	requestID := ensureRequestID(c)

	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.LogError("請求格式無效",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "code": common.ErrCodeInvalidRequest})
		return
	}

	common.LogInfo("開始處理聊天訊息",
		zap.String("request_id", requestID),
		zap.String("session_id", req.SessionID),
		zap.String("text", req.Text),
	)

	h.runEvent(c, req.SessionID, func(m *chatcore.Machine) error {
		return m.HandleMessage(c.Request.Context(), req.Text)
	})
}

// HandleMealType 處理餐別按鈕
func (h *Handler) HandleMealType(c *gin.Context) {
	requestID := ensureRequestID(c)

	var req MealTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.LogError("請求格式無效",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "code": common.ErrCodeInvalidRequest})
		return
	}

	h.runEvent(c, req.SessionID, func(m *chatcore.Machine) error {
		return m.HandleMealType(c.Request.Context(), common.MealType(req.MealType))
	})
}

// HandleSelectRecipe 處理食譜卡片點選
func (h *Handler) HandleSelectRecipe(c *gin.Context) {
	requestID := ensureRequestID(c)

	var req SelectRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.LogError("請求格式無效",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "code": common.ErrCodeInvalidRequest})
		return
	}

	h.runEvent(c, req.SessionID, func(m *chatcore.Machine) error {
		return m.SelectRecipe(c.Request.Context(), req.RecipeName)
	})
}

// HandleChecklist 處理食材剔除清單送出
func (h *Handler) HandleChecklist(c *gin.Context) {
	requestID := ensureRequestID(c)

	var req ChecklistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.LogError("請求格式無效",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "code": common.ErrCodeInvalidRequest})
		return
	}

	h.runEvent(c, req.SessionID, func(m *chatcore.Machine) error {
		return m.SubmitChecklist(c.Request.Context(), req.ExcludedIngredients)
	})
}

// HandleAdvance 處理烹飪步驟游標移動
func (h *Handler) HandleAdvance(c *gin.Context) {
	requestID := ensureRequestID(c)

	var req AdvanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.LogError("請求格式無效",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "code": common.ErrCodeInvalidRequest})
		return
	}

	h.runEvent(c, req.SessionID, func(m *chatcore.Machine) error {
		return m.Advance(req.Direction)
	})
}

// HandleRecord 處理記錄/放棄
func (h *Handler) HandleRecord(c *gin.Context) {
	requestID := ensureRequestID(c)

	var req RecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.LogError("請求格式無效",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "code": common.ErrCodeInvalidRequest})
		return
	}

	h.runEvent(c, req.SessionID, func(m *chatcore.Machine) error {
		return m.Record(c.Request.Context(), req.Action)
	})
}

// HandleTranscript 取整份對話記錄
func (h *Handler) HandleTranscript(c *gin.Context) {
	sessionID := c.Param("sessionID")

	turns, state, err := h.sessions.Snapshot(sessionID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, TranscriptResponse{
		SessionID: sessionID,
		State:     string(state),
		Turns:     turns,
	})
}

// runEvent 在會話守門下執行事件並回傳最新的 assistant turn
func (h *Handler) runEvent(c *gin.Context, sessionID string, fn func(*chatcore.Machine) error) {
	var out EventResponse
	out.SessionID = sessionID

	err := h.sessions.Do(sessionID, func(m *chatcore.Machine) error {
		if err := fn(m); err != nil {
			return err
		}
		out.State = string(m.State())
		if turn, ok := m.Transcript().Last(); ok {
			out.Turn = &turn
		}
		return nil
	})

	if err != nil {
		// 沒有會話身分：本地回覆，完全不碰後端
		if errors.Is(err, common.ErrMissingSession) {
			c.JSON(http.StatusOK, EventResponse{
				State: string(chatcore.StateAwaitingInput),
				Turn:  &chatcore.Turn{Role: chatcore.RoleAssistant, Text: msgPleaseWait},
			})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, out)
}

// respondError 將錯誤映射到 HTTP 狀態碼
func respondError(c *gin.Context, err error) {
	var ce *common.CustomError
	if errors.As(err, &ce) {
		c.JSON(ce.Status, gin.H{"error": ce.Message, "code": ce.Code})
		return
	}
	if common.IsValidationError(err) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": common.ErrCodeInvalidRequest})
		return
	}

	common.LogError("未預期的處理錯誤", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "code": common.ErrCodeInternalError})
}

// ensureRequestID 補上請求識別碼
func ensureRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.New().String()
		c.Header("X-Request-ID", requestID)
	}
	return requestID
}
