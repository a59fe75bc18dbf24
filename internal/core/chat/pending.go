package chat

import (
	"go.uber.org/zap"

	"diet-chat/internal/pkg/common"
)

// PendingKind 未決消歧的種類
type PendingKind string

const (
	// PendingConfirmation 等待是/否確認
	PendingConfirmation PendingKind = "confirmation"
	// PendingMealType 等待餐別選擇
	PendingMealType PendingKind = "meal_type"
	// PendingHealthDecision 等待健康風險的進行/迴避決定
	PendingHealthDecision PendingKind = "health_decision"
)

// PendingContext 單一未決消歧上下文。後端每次呼叫都無狀態，
// 「到底在確認什麼」只存在這裡
type PendingContext struct {
	Kind        PendingKind
	BaseRequest string
	WarningText string
	Suggestions []string
}

// PendingTracker 同時間最多持有一個未決上下文
type PendingTracker struct {
	current *PendingContext
}

// NewPendingTracker 創建空的追蹤器
func NewPendingTracker() *PendingTracker {
	return &PendingTracker{}
}

// Arm 裝上新的未決上下文。UI 永遠反映「最後問的那個問題」，
// 所以未解決的舊上下文會被直接取代
func (t *PendingTracker) Arm(ctx PendingContext) {
	if t.current != nil {
		common.LogDebug("未決上下文被取代",
			zap.String("old_kind", string(t.current.Kind)),
			zap.String("new_kind", string(ctx.Kind)),
		)
	}
	t.current = &ctx
}

// Resolve 清除並回傳目前的未決上下文
func (t *PendingTracker) Resolve() (PendingContext, bool) {
	if t.current == nil {
		return PendingContext{}, false
	}
	ctx := *t.current
	t.current = nil
	return ctx, true
}

// Peek 唯讀查看目前的未決上下文
func (t *PendingTracker) Peek() (PendingContext, bool) {
	if t.current == nil {
		return PendingContext{}, false
	}
	return *t.current, true
}

// Clear 丟棄目前的未決上下文
func (t *PendingTracker) Clear() {
	t.current = nil
}
