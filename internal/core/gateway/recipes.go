package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"diet-chat/internal/pkg/common"

	"go.uber.org/zap"
)

// ingredientCheckRequest POST /recipes/ingredient-check 請求
type ingredientCheckRequest struct {
	RecipeName string `json:"recipe_name"`
}

type ingredientCheckResponse struct {
	Ingredients []string `json:"ingredients"`
}

// IngredientCheck 取得指定食譜的食材清單。食譜→食材是唯讀資料，走 Redis 快取
func (c *Client) IngredientCheck(ctx context.Context, recipeName string) ([]string, error) {
	if c.cache != nil {
		if ingredients, err := c.cache.GetIngredients(ctx, recipeName); err == nil {
			common.LogCacheHit("ingredients", recipeName)
			return ingredients, nil
		}
		common.LogCacheMiss("ingredients", recipeName)
	}

	start := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(ingredientCheckRequest{RecipeName: recipeName}).
		Post("/recipes/ingredient-check")

	if err != nil {
		common.LogGatewayCall("ingredient-check", time.Since(start), err, recipeName)
		return nil, &GatewayError{Op: "ingredient-check", Err: err}
	}
	if resp.StatusCode() != http.StatusOK {
		err := fmt.Errorf("unexpected status: %s", resp.Status())
		common.LogGatewayCall("ingredient-check", time.Since(start), err, recipeName)
		return nil, &GatewayError{Op: "ingredient-check", Status: resp.StatusCode(), Err: err}
	}

	var body ingredientCheckResponse
	if err := common.ParseJSONBytes(resp.Body(), &body); err != nil {
		return nil, &GatewayError{Op: "ingredient-check", Err: fmt.Errorf("failed to parse response: %w", err)}
	}
	common.LogGatewayCall("ingredient-check", time.Since(start), nil, recipeName)

	if c.cache != nil {
		if err := c.cache.SetIngredients(ctx, recipeName, body.Ingredients); err != nil {
			common.LogWarn("食材清單快取寫入失敗",
				zap.String("recipe_name", recipeName),
				zap.Error(err),
			)
		}
	}

	return body.Ingredients, nil
}

// CustomRecipeRequest POST /recipes/custom-recipe 請求。
// 排除清單之外也帶上完整原始清單，後端據此合成客製步驟
type CustomRecipeRequest struct {
	RecipeName           string          `json:"recipe_name"`
	ExcludedIngredients  []string        `json:"excluded_ingredients"`
	AvailableIngredients []string        `json:"available_ingredients"`
	MealType             common.MealType `json:"meal_type,omitempty"`
}

// CustomRecipe 客製化食譜合成結果。結構化步驟缺席時只有 markdown，
// 由 cooking 套件的 fallback parser 還原步驟邊界
type CustomRecipe struct {
	Steps                []common.OrderedStep `json:"steps"`
	InstructionsMarkdown string               `json:"instructions_markdown"`
	Nutrition            common.Nutrition     `json:"nutrition_info"`
	Ingredients          []string             `json:"ingredients"`
}

// CustomRecipe 送出排除食材清單，取得客製化步驟
func (c *Client) CustomRecipe(ctx context.Context, req *CustomRecipeRequest) (*CustomRecipe, error) {
	start := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		Post("/recipes/custom-recipe")

	if err != nil {
		common.LogGatewayCall("custom-recipe", time.Since(start), err, req.RecipeName)
		return nil, &GatewayError{Op: "custom-recipe", Err: err}
	}
	if resp.StatusCode() != http.StatusOK {
		err := fmt.Errorf("unexpected status: %s", resp.Status())
		common.LogGatewayCall("custom-recipe", time.Since(start), err, req.RecipeName)
		return nil, &GatewayError{Op: "custom-recipe", Status: resp.StatusCode(), Err: err}
	}

	var body CustomRecipe
	if err := common.ParseJSONBytes(resp.Body(), &body); err != nil {
		return nil, &GatewayError{Op: "custom-recipe", Err: fmt.Errorf("failed to parse response: %w", err)}
	}
	common.LogGatewayCall("custom-recipe", time.Since(start), nil, req.RecipeName)

	return &body, nil
}

// SaveRequest POST /recipes/save 請求，交給外部用餐記錄服務
type SaveRequest struct {
	RecipeName  string           `json:"recipe_name"`
	MealType    common.MealType  `json:"meal_type,omitempty"`
	Nutrition   common.Nutrition `json:"nutrition_info,omitempty"`
	Ingredients []string         `json:"ingredients,omitempty"`
}

// SaveRecipe 將完成的餐點交給記錄服務。對狀態機而言是 fire-and-forget：
// 失敗回報給使用者但不回滾 Completed 狀態
func (c *Client) SaveRecipe(ctx context.Context, req *SaveRequest) error {
	start := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		Post("/recipes/save")

	if err != nil {
		common.LogGatewayCall("save", time.Since(start), err, req.RecipeName)
		return &GatewayError{Op: "save", Err: err}
	}
	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusCreated {
		err := fmt.Errorf("unexpected status: %s", resp.Status())
		common.LogGatewayCall("save", time.Since(start), err, req.RecipeName)
		return &GatewayError{Op: "save", Status: resp.StatusCode(), Err: err}
	}

	common.LogGatewayCall("save", time.Since(start), nil, req.RecipeName)
	return nil
}
