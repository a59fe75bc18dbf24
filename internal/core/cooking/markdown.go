package cooking

import (
	"regexp"
	"strings"

	"diet-chat/internal/pkg/common"
)

// 編號清單標記：行首的 "N." 或 "N)"
var stepMarkerPattern = regexp.MustCompile(`(?m)^\s*\d+\s*[.)]\s*`)

// ParseMarkdownSteps 從 markdown 文本還原步驟邊界。
// 後端沒給結構化步驟時的 best-effort fallback，
// 輸出與結構化路徑同樣的 OrderedStep 形狀，regex 的怪癖被關在這裡。
// 找不到任何編號標記時整段文本視為單一步驟
func ParseMarkdownSteps(markdown string) []common.OrderedStep {
	text := strings.TrimSpace(markdown)
	if text == "" {
		return nil
	}

	locs := stepMarkerPattern.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return []common.OrderedStep{{Number: 1, Description: text}}
	}

	var steps []common.OrderedStep
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		body := strings.TrimSpace(text[loc[1]:end])
		if body == "" {
			continue
		}
		// 重新編號，不信任原文的編號（可能跳號或重複）
		steps = append(steps, common.OrderedStep{
			Number:      len(steps) + 1,
			Description: body,
		})
	}
	return steps
}
