package chat

import (
	"strings"

	"diet-chat/internal/pkg/common"
)

// ReplyKind 使用者回覆的分類結果
type ReplyKind string

const (
	ReplyAffirmative   ReplyKind = "affirmative"
	ReplyNegative      ReplyKind = "negative"
	ReplyMealType      ReplyKind = "meal_type"
	ReplyHealthProceed ReplyKind = "health_proceed"
	ReplyHealthSafer   ReplyKind = "health_safer"
	ReplyUnmatched     ReplyKind = "unmatched"
)

// Reply 分類後的回覆。Unmatched 時 Raw 保留原文，
// 不硬塞進任何類別，而是原樣當成新的 base request 往下傳
type Reply struct {
	Kind     ReplyKind
	MealType common.MealType
	Raw      string
}

// 固定 token 表。這不是 NLP：自由文本的理解交給後端，
// 這裡只攔截按鈕等價的固定回覆
var (
	affirmativeTokens = map[string]bool{
		"네": true, "예": true, "응": true, "어": true, "웅": true,
		"그래": true, "좋아": true, "좋아요": true, "좋지": true,
		"오케이": true, "ㅇㅋ": true, "ㅇㅇ": true,
		"ok": true, "yes": true, "예스": true,
	}

	negativeTokens = map[string]bool{
		"아니": true, "아니야": true, "아니요": true, "아뇨": true,
		"싫어": true, "싫어요": true, "노": true,
		"no": true, "ㄴㄴ": true,
	}

	mealTypeTokens = map[string]common.MealType{
		"아침":        common.MealBreakfast,
		"아침밥":       common.MealBreakfast,
		"모닝":        common.MealBreakfast,
		"조식":        common.MealBreakfast,
		"breakfast": common.MealBreakfast,
		"점심":        common.MealLunch,
		"점심밥":       common.MealLunch,
		"런치":        common.MealLunch,
		"중식":        common.MealLunch,
		"lunch":     common.MealLunch,
		"저녁":        common.MealDinner,
		"저녁밥":       common.MealDinner,
		"디너":        common.MealDinner,
		"석식":        common.MealDinner,
		"dinner":    common.MealDinner,
		"간식":        common.MealSnack,
		"야식":        common.MealSnack,
		"스낵":        common.MealSnack,
		"snack":     common.MealSnack,
	}

	healthProceedTokens = map[string]bool{
		"그대로 진행해줘": true,
		"그대로 진행":   true,
		"그대로 해줘":   true,
		"그대로":      true,
		"그냥 진행해줘":  true,
	}

	healthSaferTokens = map[string]bool{
		"건강하게 바꿔줘":  true,
		"건강하게 추천해줘": true,
		"더 건강하게":    true,
		"건강하게":      true,
	}
)

// Normalize 去除前後空白並轉小寫
func Normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// Classify 對正規化後的回覆做固定表查找。純函數、冪等、無副作用
func Classify(key string) Reply {
	if affirmativeTokens[key] {
		return Reply{Kind: ReplyAffirmative, Raw: key}
	}
	if negativeTokens[key] {
		return Reply{Kind: ReplyNegative, Raw: key}
	}
	if meal, ok := mealTypeTokens[key]; ok {
		return Reply{Kind: ReplyMealType, MealType: meal, Raw: key}
	}
	if healthProceedTokens[key] {
		return Reply{Kind: ReplyHealthProceed, Raw: key}
	}
	if healthSaferTokens[key] {
		return Reply{Kind: ReplyHealthSafer, Raw: key}
	}
	return Reply{Kind: ReplyUnmatched, Raw: key}
}
