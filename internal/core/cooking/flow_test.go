package cooking

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"diet-chat/internal/core/gateway"
	"diet-chat/internal/pkg/common"
)

type fakeRecipeService struct {
	ingredients   []string
	ingredientErr error
	recipe        *gateway.CustomRecipe
	recipeErr     error
	customReqs    []*gateway.CustomRecipeRequest
	saveErr       error
	saveReqs      []*gateway.SaveRequest
}

func (f *fakeRecipeService) IngredientCheck(_ context.Context, _ string) ([]string, error) {
	if f.ingredientErr != nil {
		return nil, f.ingredientErr
	}
	return f.ingredients, nil
}

func (f *fakeRecipeService) CustomRecipe(_ context.Context, req *gateway.CustomRecipeRequest) (*gateway.CustomRecipe, error) {
	f.customReqs = append(f.customReqs, req)
	if f.recipeErr != nil {
		return nil, f.recipeErr
	}
	return f.recipe, nil
}

func (f *fakeRecipeService) SaveRecipe(_ context.Context, req *gateway.SaveRequest) error {
	f.saveReqs = append(f.saveReqs, req)
	return f.saveErr
}

func TestFlowSubmitWithoutChecklist(t *testing.T) {
	flow := NewFlow(&fakeRecipeService{})

	_, err := flow.SubmitChecklist(context.Background(), nil)
	if !common.IsValidationError(err) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

// 剔除清單外的食材是輸入錯誤，清單保留、後端不被呼叫，
// 而且已通過驗證的項目也不留半套剔除
func TestFlowSubmitUnknownExclusion(t *testing.T) {
	ctx := context.Background()
	svc := &fakeRecipeService{ingredients: []string{"당근", "감자", "양파"}}
	flow := NewFlow(svc)

	if _, err := flow.BeginChecklist(ctx, "당근볶음", common.MealDinner); err != nil {
		t.Fatalf("BeginChecklist: %v", err)
	}

	// 감자 合法、트러플 不合法：整份清單都不能生效
	_, err := flow.SubmitChecklist(ctx, []string{"감자", "트러플"})
	if !common.IsValidationError(err) {
		t.Fatalf("err = %v, want validation error", err)
	}
	if len(svc.customReqs) != 0 {
		t.Errorf("後端不應被呼叫，實際 %d 次", len(svc.customReqs))
	}
	if flow.Checklist() == nil {
		t.Fatal("輸入錯誤後清單應保留")
	}
	if got := flow.Checklist().Excluded(); got != nil {
		t.Errorf("失敗的送出留下了半套剔除: %v", got)
	}

	// 修正後重送空清單：excluded 必須是空的
	svc.recipe = &gateway.CustomRecipe{
		Steps: []common.OrderedStep{{Number: 1, Description: "볶는다"}},
	}
	if _, err := flow.SubmitChecklist(ctx, nil); err != nil {
		t.Fatalf("重送 SubmitChecklist: %v", err)
	}
	if got := svc.customReqs[0].ExcludedIngredients; len(got) != 0 {
		t.Errorf("ExcludedIngredients = %v, want 空清單", got)
	}
}

// 合成失敗時清單保留可重送；成功後清單被消耗。
// 每次送出的剔除清單都是完整的權威版本
func TestFlowSubmitRetryAfterFailure(t *testing.T) {
	ctx := context.Background()
	svc := &fakeRecipeService{ingredients: []string{"당근", "감자"}}
	flow := NewFlow(svc)

	if _, err := flow.BeginChecklist(ctx, "당근볶음", common.MealLunch); err != nil {
		t.Fatalf("BeginChecklist: %v", err)
	}

	svc.recipeErr = &gateway.GatewayError{Op: "custom-recipe", Err: errors.New("timeout")}
	if _, err := flow.SubmitChecklist(ctx, []string{"감자"}); err == nil {
		t.Fatal("合成失敗應回傳錯誤")
	}
	if flow.Checklist() == nil {
		t.Fatal("失敗後清單應保留")
	}

	svc.recipeErr = nil
	svc.recipe = &gateway.CustomRecipe{
		Steps: []common.OrderedStep{{Number: 1, Description: "볶는다"}},
	}
	session, err := flow.SubmitChecklist(ctx, []string{"감자"})
	if err != nil {
		t.Fatalf("重送 SubmitChecklist: %v", err)
	}
	if session.Len() != 1 {
		t.Errorf("Len = %d, want 1", session.Len())
	}
	if flow.Checklist() != nil {
		t.Error("成功後清單應被消耗")
	}
	last := svc.customReqs[len(svc.customReqs)-1]
	if !reflect.DeepEqual(last.ExcludedIngredients, []string{"감자"}) {
		t.Errorf("ExcludedIngredients = %v, want [감자]", last.ExcludedIngredients)
	}
	if last.MealType != common.MealLunch {
		t.Errorf("MealType = %q, want %q", last.MealType, common.MealLunch)
	}
}

// 使用者改主意重送不同的清單：舊剔除不殘留
func TestFlowSubmitListIsAuthoritative(t *testing.T) {
	ctx := context.Background()
	svc := &fakeRecipeService{ingredients: []string{"당근", "감자", "양파"}}
	flow := NewFlow(svc)

	if _, err := flow.BeginChecklist(ctx, "당근볶음", common.MealDinner); err != nil {
		t.Fatalf("BeginChecklist: %v", err)
	}

	svc.recipeErr = &gateway.GatewayError{Op: "custom-recipe", Err: errors.New("timeout")}
	if _, err := flow.SubmitChecklist(ctx, []string{"감자"}); err == nil {
		t.Fatal("合成失敗應回傳錯誤")
	}

	svc.recipeErr = nil
	svc.recipe = &gateway.CustomRecipe{
		Steps: []common.OrderedStep{{Number: 1, Description: "볶는다"}},
	}
	if _, err := flow.SubmitChecklist(ctx, []string{"양파"}); err != nil {
		t.Fatalf("重送 SubmitChecklist: %v", err)
	}

	last := svc.customReqs[len(svc.customReqs)-1]
	if !reflect.DeepEqual(last.ExcludedIngredients, []string{"양파"}) {
		t.Errorf("ExcludedIngredients = %v, want [양파]", last.ExcludedIngredients)
	}
	if !reflect.DeepEqual(last.AvailableIngredients, []string{"당근", "감자", "양파"}) {
		t.Errorf("AvailableIngredients = %v", last.AvailableIngredients)
	}
}

// 後端沒回食材清單時，記錄請求退回用剔除後的可用清單
func TestFlowRecordIngredientsFallback(t *testing.T) {
	ctx := context.Background()
	svc := &fakeRecipeService{
		ingredients: []string{"당근", "감자", "양파"},
		recipe: &gateway.CustomRecipe{
			Steps: []common.OrderedStep{{Number: 1, Description: "볶는다"}},
		},
	}
	flow := NewFlow(svc)

	if _, err := flow.BeginChecklist(ctx, "당근볶음", common.MealDinner); err != nil {
		t.Fatalf("BeginChecklist: %v", err)
	}
	if _, err := flow.SubmitChecklist(ctx, []string{"감자"}); err != nil {
		t.Fatalf("SubmitChecklist: %v", err)
	}
	if err := flow.Record(ctx); err != nil {
		t.Fatalf("Record: %v", err)
	}

	if len(svc.saveReqs) != 1 {
		t.Fatalf("SaveRecipe 呼叫 %d 次, want 1", len(svc.saveReqs))
	}
	save := svc.saveReqs[0]
	if save.RecipeName != "당근볶음" || save.MealType != common.MealDinner {
		t.Errorf("SaveRequest = %+v", save)
	}
	if !reflect.DeepEqual(save.Ingredients, []string{"당근", "양파"}) {
		t.Errorf("Ingredients = %v, want 剔除後清單", save.Ingredients)
	}
}

func TestFlowAdvanceValidation(t *testing.T) {
	flow := NewFlow(&fakeRecipeService{})

	if _, _, err := flow.Advance("next"); !common.IsValidationError(err) {
		t.Errorf("無 session 的 Advance err = %v, want validation error", err)
	}

	flow.session = NewSession("당근볶음", []common.OrderedStep{{Number: 1, Description: "볶는다"}})
	if _, _, err := flow.Advance("sideways"); !common.IsValidationError(err) {
		t.Errorf("未知方向 err = %v, want validation error", err)
	}

	// 游標還在 -1：沒有可以退回的步驟
	if _, _, err := flow.Advance("previous"); !common.IsValidationError(err) {
		t.Errorf("未開始的 previous err = %v, want validation error", err)
	}

	// 走完即丟棄 session
	if _, completed, err := flow.Advance("start"); err != nil || completed {
		t.Fatalf("Advance(start): completed=%v err=%v", completed, err)
	}
	if _, completed, err := flow.Advance("next"); err != nil || !completed {
		t.Fatalf("Advance(next): completed=%v err=%v", completed, err)
	}
	if flow.Session() != nil {
		t.Error("完成後 session 應被丟棄")
	}
}

func TestFlowReset(t *testing.T) {
	ctx := context.Background()
	svc := &fakeRecipeService{ingredients: []string{"두부"}}
	flow := NewFlow(svc)

	if _, err := flow.BeginChecklist(ctx, "두부구이", common.MealSnack); err != nil {
		t.Fatalf("BeginChecklist: %v", err)
	}
	flow.Reset()

	if flow.Checklist() != nil || flow.Session() != nil || flow.RecipeName() != "" {
		t.Error("Reset 後不應殘留任何暫態")
	}
	if err := flow.Record(ctx); !common.IsValidationError(err) {
		t.Errorf("Reset 後 Record err = %v, want validation error", err)
	}
}
