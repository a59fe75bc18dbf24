package gateway

import (
	"fmt"

	"diet-chat/internal/pkg/common"

	"go.uber.org/zap"
)

// Mode 後端呼叫模式
type Mode string

const (
	// ModeClarify 只詢問是否需要消歧，不產生最終推薦
	ModeClarify Mode = "clarify"
	// ModeExecute 確定執行，產生推薦或動作結果
	ModeExecute Mode = "execute"
)

// SafetyMode 健康風險的使用者決定
type SafetyMode string

const (
	SafetyNone        SafetyMode = ""
	SafetyProceed     SafetyMode = "proceed"
	SafetyHealthFirst SafetyMode = "health_first"
)

// ActionType 後端動作類型
type ActionType string

const (
	ActionConfirmation         ActionType = "CONFIRMATION"
	ActionHealthConfirmation   ActionType = "HEALTH_CONFIRMATION"
	ActionRecommendationResult ActionType = "RECOMMENDATION_RESULT"
	ActionTextOnly             ActionType = "TEXT_ONLY"
	ActionIngredientCheck      ActionType = "INGREDIENT_CHECK"
	ActionCookingSteps         ActionType = "COOKING_STEPS"
)

// IsValid 檢查動作類型是否為已知類型
func (t ActionType) IsValid() bool {
	switch t {
	case ActionConfirmation, ActionHealthConfirmation, ActionRecommendationResult,
		ActionTextOnly, ActionIngredientCheck, ActionCookingSteps:
		return true
	default:
		return false
	}
}

// Action 解碼後的後端動作。線上格式是字串化的 JSON，
// 在 gateway 邊界立刻解成這個 tagged 形狀，之後系統不再碰原始字串
type Action struct {
	Type        ActionType
	Message     string
	MissingSlot string // CONFIRMATION 專用："meal_type" 表示需要餐別消歧
	Warning     string // HEALTH_CONFIRMATION 專用
	Suggestions []string
	Recipes     []common.RecipeCandidate

	// NeedsToolCall 是後端附帶的旗標，僅供參考；action_type 才是權威。
	// 兩者不一致時記 warn，不改變分支
	NeedsToolCall bool
}

// GatewayError 後端呼叫失敗（傳輸錯誤、非 2xx、payload 解析失敗）。
// 狀態機收到這個錯誤時渲染失敗訊息，pending 狀態保持不動
type GatewayError struct {
	Op     string
	Status int
	Err    error
}

func (e *GatewayError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("gateway %s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// ---------------- 寬鬆版中繼結構：容忍後端欄位缺漏 ----------------

type looseAction struct {
	ActionType  string                   `json:"action_type"`
	Message     string                   `json:"message"`
	MissingSlot string                   `json:"missing_slot"`
	Warning     string                   `json:"warning"`
	Suggestions []string                 `json:"suggestions"`
	Recipes     []common.RecipeCandidate `json:"recipes"`
}

// decodeAction 將字串化的動作 payload 解成 tagged union
func decodeAction(raw string, needsToolCall bool) (*Action, error) {
	payload, err := common.ExtractJSONObject(raw)
	if err != nil {
		return nil, fmt.Errorf("malformed action payload: %w", err)
	}

	var loose looseAction
	if err := common.ParseJSON(payload, &loose); err != nil {
		// 後端偶爾回傳未加引號的鍵，補上引號再試一次
		quoted := common.QuoteJSONKeys(payload)
		if err2 := common.ParseJSON(quoted, &loose); err2 != nil {
			return nil, fmt.Errorf("failed to parse action payload: %w", err)
		}
	}

	actionType := ActionType(loose.ActionType)
	if !actionType.IsValid() {
		return nil, fmt.Errorf("unknown action type %q", loose.ActionType)
	}

	// needs_tool_call 只是參考值，與 action_type 不一致時記錄但不分支
	if needsToolCall && actionType != ActionConfirmation && actionType != ActionHealthConfirmation {
		common.LogWarn("needs_tool_call 與 action_type 不一致",
			zap.String("action_type", string(actionType)),
		)
	}

	return &Action{
		Type:          actionType,
		Message:       loose.Message,
		MissingSlot:   loose.MissingSlot,
		Warning:       loose.Warning,
		Suggestions:   loose.Suggestions,
		Recipes:       loose.Recipes,
		NeedsToolCall: needsToolCall,
	}, nil
}
