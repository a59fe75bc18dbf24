package common

import "testing"

func TestMealType(t *testing.T) {
	valid := []MealType{MealBreakfast, MealLunch, MealDinner, MealSnack}
	labels := []string{"아침", "점심", "저녁", "간식"}

	for i, meal := range valid {
		if !meal.IsValid() {
			t.Errorf("%q 應為合法餐別", meal)
		}
		if got := meal.Label(); got != labels[i] {
			t.Errorf("%q.Label() = %q, want %q", meal, got, labels[i])
		}
	}

	if MealType("brunch").IsValid() {
		t.Error("brunch 不應為合法餐別")
	}
	if got := MealType("brunch").Label(); got != "brunch" {
		t.Errorf("未知餐別的 Label = %q, 應原樣回傳", got)
	}
}

func TestFormatSteps(t *testing.T) {
	steps := []OrderedStep{
		{Number: 1, Title: "준비", Description: "재료를 손질한다"},
		{Number: 2, Description: "볶는다"},
	}

	want := "1. 준비: 재료를 손질한다\n2. 볶는다\n"
	if got := FormatSteps(steps); got != want {
		t.Errorf("FormatSteps = %q, want %q", got, want)
	}

	if got := FormatSteps(nil); got != "" {
		t.Errorf("空步驟 FormatSteps = %q, want 空字串", got)
	}
}

func TestStringSliceToString(t *testing.T) {
	if got := StringSliceToString([]string{"당근", "감자"}); got != "당근, 감자" {
		t.Errorf("got %q", got)
	}
	if got := StringSliceToString(nil); got != "" {
		t.Errorf("空切片 got %q, want 空字串", got)
	}
}
