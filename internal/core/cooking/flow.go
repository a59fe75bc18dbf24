package cooking

import (
	"context"
	"fmt"

	"diet-chat/internal/core/gateway"
	"diet-chat/internal/pkg/common"

	"go.uber.org/zap"
)

// RecipeService 菜譜範圍的後端呼叫面
type RecipeService interface {
	IngredientCheck(ctx context.Context, recipeName string) ([]string, error)
	CustomRecipe(ctx context.Context, req *gateway.CustomRecipeRequest) (*gateway.CustomRecipe, error)
	SaveRecipe(ctx context.Context, req *gateway.SaveRequest) error
}

// Flow 選定食譜後的引導流程：
// 食材剔除清單 → 客製食譜合成 → 線性步驟游標 → 完成 → 記錄交接
type Flow struct {
	svc       RecipeService
	checklist *Checklist
	session   *Session
	save      *gateway.SaveRequest
}

// NewFlow 創建引導流程
func NewFlow(svc RecipeService) *Flow {
	return &Flow{svc: svc}
}

// BeginChecklist 取得食譜的食材清單並建立剔除清單
func (f *Flow) BeginChecklist(ctx context.Context, recipeName string, mealType common.MealType) (*Checklist, error) {
	ingredients, err := f.svc.IngredientCheck(ctx, recipeName)
	if err != nil {
		return nil, err
	}

	f.checklist = NewChecklist(recipeName, ingredients)
	f.session = nil
	f.save = &gateway.SaveRequest{
		RecipeName: recipeName,
		MealType:   mealType,
	}

	common.LogInfo("食材確認清單已建立",
		zap.String("recipe_name", recipeName),
		zap.String("食材", common.StringSliceToString(ingredients)),
	)
	return f.checklist, nil
}

// SubmitChecklist 套用剔除清單、向後端要客製步驟並建立烹飪 session。
// 清單在這裡被消耗掉，之後不再保留
func (f *Flow) SubmitChecklist(ctx context.Context, excluded []string) (*Session, error) {
	if f.checklist == nil {
		return nil, common.NewValidationError("no active ingredient checklist")
	}

	if err := f.checklist.SetExcluded(excluded); err != nil {
		return nil, err
	}

	req := &gateway.CustomRecipeRequest{
		RecipeName:           f.checklist.RecipeName(),
		ExcludedIngredients:  f.checklist.Excluded(),
		AvailableIngredients: f.checklist.Ingredients(),
		MealType:             f.save.MealType,
	}

	recipe, err := f.svc.CustomRecipe(ctx, req)
	if err != nil {
		// 清單保留，使用者可以重送
		return nil, err
	}

	steps := recipe.Steps
	if len(steps) == 0 && recipe.InstructionsMarkdown != "" {
		steps = ParseMarkdownSteps(recipe.InstructionsMarkdown)
		common.LogWarn("結構化步驟缺席，使用 markdown fallback",
			zap.String("recipe_name", req.RecipeName),
			zap.Int("parsed_steps", len(steps)),
		)
	}

	f.save.Nutrition = recipe.Nutrition
	f.save.Ingredients = recipe.Ingredients
	if len(f.save.Ingredients) == 0 {
		f.save.Ingredients = f.checklist.Available()
	}

	f.session = NewSession(f.checklist.RecipeName(), steps)
	f.checklist = nil

	common.LogInfo("烹飪 session 已建立",
		zap.String("recipe_name", f.session.RecipeName()),
		zap.Int("steps", f.session.Len()),
	)
	common.LogDebug("客製步驟已解析", zap.String("steps", common.FormatSteps(steps)))
	return f.session, nil
}

// Advance 移動步驟游標。direction 是 start/next/previous，
// 走過最後一步回報 completed 並丟棄 session（完成事件由呼叫端渲染）
func (f *Flow) Advance(direction string) (common.OrderedStep, bool, error) {
	if f.session == nil {
		return common.OrderedStep{}, false, common.NewValidationError("no active cooking session")
	}
	if f.session.Empty() {
		return common.OrderedStep{}, false, common.NewValidationError("no steps available")
	}

	switch direction {
	case "start", "next":
		step, completed := f.session.Next()
		if completed {
			f.session = nil
		}
		return step, completed, nil
	case "previous":
		step, ok := f.session.Previous()
		if !ok {
			// 游標還在 -1：沒有可以退回的步驟
			return common.OrderedStep{}, false, common.NewValidationError("cooking has not started")
		}
		return step, false, nil
	default:
		return common.OrderedStep{}, false, common.NewValidationError(fmt.Sprintf("unknown direction: %s", direction))
	}
}

// Record 將完成的餐點交給外部記錄服務
func (f *Flow) Record(ctx context.Context) error {
	if f.save == nil {
		return common.NewValidationError("nothing to record")
	}
	return f.svc.SaveRecipe(ctx, f.save)
}

// Reset 丟棄流程內所有暫態
func (f *Flow) Reset() {
	f.checklist = nil
	f.session = nil
	f.save = nil
}

// Checklist 目前的剔除清單
func (f *Flow) Checklist() *Checklist {
	return f.checklist
}

// Session 目前的烹飪 session
func (f *Flow) Session() *Session {
	return f.session
}

// RecipeName 流程目前綁定的食譜名稱
func (f *Flow) RecipeName() string {
	if f.save != nil {
		return f.save.RecipeName
	}
	return ""
}
