package cooking

import (
	"diet-chat/internal/pkg/common"
)

// Session 烹飪進行中的線性步驟游標。
// cursor = -1 表示尚未開始；合法範圍固定在 [-1, len(steps)-1]，
// 走過最後一步不是 cursor = len(steps)，而是回報完成、由呼叫端丟棄 session
type Session struct {
	recipeName string
	steps      []common.OrderedStep
	cursor     int
}

// NewSession 創建未開始的烹飪 session
func NewSession(recipeName string, steps []common.OrderedStep) *Session {
	return &Session{
		recipeName: recipeName,
		steps:      steps,
		cursor:     -1,
	}
}

// RecipeName 食譜名稱
func (s *Session) RecipeName() string {
	return s.recipeName
}

// Len 步驟數量
func (s *Session) Len() int {
	return len(s.steps)
}

// Cursor 目前游標位置
func (s *Session) Cursor() int {
	return s.cursor
}

// Started 是否已開始
func (s *Session) Started() bool {
	return s.cursor >= 0
}

// Empty 是否沒有任何步驟（合成退化結果，渲染 placeholder 而非崩潰）
func (s *Session) Empty() bool {
	return len(s.steps) == 0
}

// Current 目前步驟
func (s *Session) Current() (common.OrderedStep, bool) {
	if s.cursor < 0 || s.cursor >= len(s.steps) {
		return common.OrderedStep{}, false
	}
	return s.steps[s.cursor], true
}

// Next 前進一步。從 -1 前進到 0 即為開始；
// 在最後一步呼叫 Next 時回報 completed，游標不越界
func (s *Session) Next() (step common.OrderedStep, completed bool) {
	if len(s.steps) == 0 {
		return common.OrderedStep{}, false
	}
	if s.cursor >= len(s.steps)-1 {
		return common.OrderedStep{}, true
	}
	s.cursor++
	return s.steps[s.cursor], false
}

// Previous 後退一步。游標 0 或未開始時是 no-op，回傳目前步驟
func (s *Session) Previous() (common.OrderedStep, bool) {
	if s.cursor <= 0 {
		return s.Current()
	}
	s.cursor--
	return s.steps[s.cursor], true
}
