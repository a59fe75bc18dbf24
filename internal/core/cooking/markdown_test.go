package cooking

import "testing"

func TestParseMarkdownSteps(t *testing.T) {
	tests := []struct {
		name     string
		markdown string
		want     []string
	}{
		{
			name:     "點號編號",
			markdown: "1. 재료를 손질한다\n2. 팬에 볶는다\n3. 접시에 담는다",
			want:     []string{"재료를 손질한다", "팬에 볶는다", "접시에 담는다"},
		},
		{
			name:     "括號編號",
			markdown: "1) 물을 끓인다\n2) 면을 넣는다",
			want:     []string{"물을 끓인다", "면을 넣는다"},
		},
		{
			name:     "混合編號與縮排",
			markdown: "  1. 손질한다\n 2) 볶는다",
			want:     []string{"손질한다", "볶는다"},
		},
		{
			name:     "跳號也重新編號",
			markdown: "3. 첫 번째\n7. 두 번째",
			want:     []string{"첫 번째", "두 번째"},
		},
		{
			name:     "多行步驟內容",
			markdown: "1. 양파를 썬다\n얇게 써는 것이 좋다\n2. 볶는다",
			want:     []string{"양파를 썬다\n얇게 써는 것이 좋다", "볶는다"},
		},
		{
			name:     "無編號標記時整段視為單一步驟",
			markdown: "모든 재료를 한 번에 넣고 끓인다",
			want:     []string{"모든 재료를 한 번에 넣고 끓인다"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			steps := ParseMarkdownSteps(tt.markdown)
			if len(steps) != len(tt.want) {
				t.Fatalf("步驟數 = %d, want %d", len(steps), len(tt.want))
			}
			for i, step := range steps {
				if step.Number != i+1 {
					t.Errorf("步驟 %d 的編號 = %d", i, step.Number)
				}
				if step.Description != tt.want[i] {
					t.Errorf("步驟 %d = %q, want %q", i+1, step.Description, tt.want[i])
				}
			}
		})
	}
}

func TestParseMarkdownStepsEmpty(t *testing.T) {
	if got := ParseMarkdownSteps(""); got != nil {
		t.Errorf("空輸入應回傳 nil，得到 %v", got)
	}
	if got := ParseMarkdownSteps("   \n\t  "); got != nil {
		t.Errorf("純空白應回傳 nil，得到 %v", got)
	}
}
