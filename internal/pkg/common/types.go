package common

import (
	"encoding/json"
	"fmt"
	"strings"
)

// RecipeCandidate 後端推薦的候選食譜，對 UI 而言唯讀
type RecipeCandidate struct {
	Name              string `json:"name"`
	Description       string `json:"description"`
	Calories          *int   `json:"calories,omitempty"`
	CookTimeLabel     string `json:"cook_time_label,omitempty"`
	Difficulty        string `json:"difficulty,omitempty"`
	SuitabilityReason string `json:"suitability_reason,omitempty"`
}

// OrderedStep 烹飪步驟，結構化與 markdown fallback 兩條路徑共用這個形狀
type OrderedStep struct {
	Number      int    `json:"number"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description"`
}

// Nutrition 營養資訊。後端產生、record handoff 原樣轉送，不在這一層解讀
type Nutrition = json.RawMessage

// MealType 餐別
type MealType string

const (
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
	MealDinner    MealType = "dinner"
	MealSnack     MealType = "snack"
)

// IsValid 檢查餐別是否合法
func (m MealType) IsValid() bool {
	switch m {
	case MealBreakfast, MealLunch, MealDinner, MealSnack:
		return true
	default:
		return false
	}
}

// Label 回傳餐別的韓文顯示名稱
func (m MealType) Label() string {
	switch m {
	case MealBreakfast:
		return "아침"
	case MealLunch:
		return "점심"
	case MealDinner:
		return "저녁"
	case MealSnack:
		return "간식"
	default:
		return string(m)
	}
}

// FormatSteps 格式化步驟列表（日誌與除錯用）
func FormatSteps(steps []OrderedStep) string {
	var sb strings.Builder
	for _, step := range steps {
		if step.Title != "" {
			sb.WriteString(fmt.Sprintf("%d. %s: %s\n", step.Number, step.Title, step.Description))
			continue
		}
		sb.WriteString(fmt.Sprintf("%d. %s\n", step.Number, step.Description))
	}
	return sb.String()
}
