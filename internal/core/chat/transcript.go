package chat

import (
	"sync"
	"time"

	"diet-chat/internal/pkg/common"
)

// Role 訊息發送者的角色
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// IngredientCheck 附在 assistant turn 上的食材確認清單
type IngredientCheck struct {
	RecipeName  string   `json:"recipe_name"`
	Ingredients []string `json:"ingredients"`
}

// Turn 對話中的一輪。append 之後不可變；
// 只有最新的 assistant turn 可以攜帶等待使用者反應的 UI 附加資料
type Turn struct {
	Role             Role                     `json:"role"`
	Text             string                   `json:"text"`
	ActionType       string                   `json:"action_type,omitempty"`
	Suggestions      []string                 `json:"suggestions,omitempty"`
	RecipeCandidates []common.RecipeCandidate `json:"recipe_candidates,omitempty"`
	IngredientCheck  *IngredientCheck         `json:"ingredient_check,omitempty"`
	CookingStepsRef  string                   `json:"cooking_steps_ref,omitempty"`
	CreatedAt        time.Time                `json:"created_at"`
}

// Transcript 只增不改的對話記錄，存活期為會話生命週期（不落地）。
// 事件寫入與重繪讀取（transcript 端點）可能併發，讀寫都要上鎖
type Transcript struct {
	mu    sync.RWMutex
	turns []Turn
}

// NewTranscript 創建空白對話記錄
func NewTranscript() *Transcript {
	return &Transcript{}
}

// Append 追加一輪對話
func (t *Transcript) Append(turn Turn) {
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}
	t.mu.Lock()
	t.turns = append(t.turns, turn)
	t.mu.Unlock()
}

// Turns 回傳所有輪次的副本
func (t *Transcript) Turns() []Turn {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Turn, len(t.turns))
	copy(out, t.turns)
	return out
}

// Last 回傳最新一輪的副本
func (t *Transcript) Last() (Turn, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.turns) == 0 {
		return Turn{}, false
	}
	return t.turns[len(t.turns)-1], true
}

// Len 輪次數量
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.turns)
}
