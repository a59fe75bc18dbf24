package cooking

import (
	"fmt"

	"diet-chat/internal/pkg/common"
)

// Checklist 食材確認清單。後端已經從上下文給出完整食材清單，
// 所以預設全部「有」，使用者只能把食材剔除，不能加回清單外的東西
type Checklist struct {
	recipeName string
	order      []string
	available  map[string]bool
}

// NewChecklist 創建清單，所有食材預設可用
func NewChecklist(recipeName string, ingredients []string) *Checklist {
	available := make(map[string]bool, len(ingredients))
	order := make([]string, 0, len(ingredients))
	for _, name := range ingredients {
		if _, exists := available[name]; exists {
			continue
		}
		available[name] = true
		order = append(order, name)
	}
	return &Checklist{
		recipeName: recipeName,
		order:      order,
		available:  available,
	}
}

// SetExcluded 以整份送出的清單為準重設剔除狀態。
// 任何未知食材都讓清單原封不動，不留半套剔除；
// 重送時沒列出的食材一律回到可用
func (c *Checklist) SetExcluded(names []string) error {
	for _, name := range names {
		if _, exists := c.available[name]; !exists {
			return common.NewValidationError(fmt.Sprintf("unknown ingredient: %s", name))
		}
	}
	for _, name := range c.order {
		c.available[name] = true
	}
	for _, name := range names {
		c.available[name] = false
	}
	return nil
}

// SetAvailable 切換單一食材的可用狀態
func (c *Checklist) SetAvailable(name string, available bool) error {
	if _, exists := c.available[name]; !exists {
		return common.NewValidationError(fmt.Sprintf("unknown ingredient: %s", name))
	}
	c.available[name] = available
	return nil
}

// RecipeName 清單所屬的食譜名稱
func (c *Checklist) RecipeName() string {
	return c.recipeName
}

// Ingredients 完整原始食材清單（順序保留）
func (c *Checklist) Ingredients() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Excluded 被剔除的食材
func (c *Checklist) Excluded() []string {
	var out []string
	for _, name := range c.order {
		if !c.available[name] {
			out = append(out, name)
		}
	}
	return out
}

// Available 仍可用的食材
func (c *Checklist) Available() []string {
	var out []string
	for _, name := range c.order {
		if c.available[name] {
			out = append(out, name)
		}
	}
	return out
}
