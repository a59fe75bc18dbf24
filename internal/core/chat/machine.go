package chat

import (
	"context"
	"fmt"

	"diet-chat/internal/core/cooking"
	"diet-chat/internal/core/gateway"
	"diet-chat/internal/pkg/common"

	"go.uber.org/zap"
)

// State 對話狀態機的狀態
type State string

const (
	StateAwaitingInput          State = "awaiting_input"
	StateAwaitingConfirmation   State = "awaiting_confirmation"
	StateAwaitingMealType       State = "awaiting_meal_type"
	StateAwaitingHealthDecision State = "awaiting_health_decision"
	StateShowingRecipes         State = "showing_recipes"
	StateCheckingIngredients    State = "checking_ingredients"
	StateCooking                State = "cooking"
	StateCompleted              State = "completed"
)

// 固定的使用者面向文案
const (
	msgDeclineAck      = "알겠어요! 다른 메뉴가 필요하면 말씀해주세요."
	msgConfirmReprompt = "죄송해요, 잘 이해하지 못했어요. 네 또는 아니로 대답해주세요."
	msgMealPrompt      = "어느 끼니로 추천해드릴까요?"
	msgMealReprompt    = "어느 끼니인지 골라주세요!"
	msgHealthReprompt  = "아래 두 가지 중에서 골라주세요!"
	msgGatewayFailure  = "죄송해요, 지금 응답을 받아오지 못했어요. 잠시 후 다시 시도해주세요."
	msgRecipesFallback = "이런 메뉴는 어떠세요?"
	msgChecklistPrompt = "재료를 확인해주세요! 없는 재료는 체크를 해제해주세요."
	msgNoSteps         = "조리 단계를 가져오지 못했어요."
	msgCompleted       = "요리 완성! 오늘의 식사로 기록할까요?"
	msgRecordOK        = "식사가 기록되었어요!"
	msgRecordFailed    = "기록에 실패했어요. 나중에 다시 시도해주세요."
	msgDiscardAck      = "알겠어요! 기록하지 않을게요."
)

var (
	confirmSuggestions = []string{"네", "아니"}
	healthSuggestions  = []string{"그대로 진행해줘", "건강하게 바꿔줘"}
	recordSuggestions  = []string{"기록하기", "건너뛰기"}
)

func mealSuggestions() []string {
	return []string{
		common.MealBreakfast.Label(),
		common.MealLunch.Label(),
		common.MealDinner.Label(),
		common.MealSnack.Label(),
	}
}

// Gateway 對話呼叫面。recipe 範圍的呼叫走 cooking.RecipeService
type Gateway interface {
	RequestTurn(ctx context.Context, sessionID, message string, mode gateway.Mode, safety gateway.SafetyMode) (*gateway.Action, error)
}

// Machine 對話狀態機。後端對每次呼叫無狀態，所以所有多輪記憶
// （原始請求是什麼、是否在消歧中、走了哪條 safety 分支）都在這裡。
// 呼叫端（session manager）保證同一個 Machine 不會被並發進入
type Machine struct {
	sessionID  string
	state      State
	tracker    *PendingTracker
	transcript *Transcript
	gw         Gateway
	flow       *cooking.Flow
	mealType   common.MealType

	// 每次後端呼叫帶上單調遞增的序號，過期回應直接丟棄
	callSeq uint64
}

// NewMachine 創建狀態機。session 身分由外部明確傳入，不讀全域狀態
func NewMachine(sessionID string, gw Gateway, flow *cooking.Flow) *Machine {
	return &Machine{
		sessionID:  sessionID,
		state:      StateAwaitingInput,
		tracker:    NewPendingTracker(),
		transcript: NewTranscript(),
		gw:         gw,
		flow:       flow,
	}
}

// SessionID 會話識別碼
func (m *Machine) SessionID() string {
	return m.sessionID
}

// State 目前狀態
func (m *Machine) State() State {
	return m.state
}

// Transcript 對話記錄
func (m *Machine) Transcript() *Transcript {
	return m.transcript
}

// HandleMessage 處理自由文本或 suggestion chip 輸入
func (m *Machine) HandleMessage(ctx context.Context, text string) error {
	m.transcript.Append(Turn{Role: RoleUser, Text: text})
	reply := Classify(Normalize(text))

	pending, ok := m.tracker.Peek()
	if !ok {
		// 沒有未決上下文：原文當成新的 base request，走 clarify
		return m.clarify(ctx, text)
	}

	switch pending.Kind {
	case PendingConfirmation:
		switch reply.Kind {
		case ReplyAffirmative:
			return m.executePending(ctx, pending, pending.BaseRequest, gateway.SafetyNone)
		case ReplyNegative:
			// 取消：不呼叫後端
			m.tracker.Clear()
			m.state = StateAwaitingInput
			m.appendAssistant(Turn{Text: msgDeclineAck})
			return nil
		default:
			m.reprompt(msgConfirmReprompt, confirmSuggestions)
			return nil
		}

	case PendingMealType:
		if reply.Kind == ReplyMealType {
			return m.resolveMealType(ctx, reply.MealType)
		}
		m.reprompt(msgMealReprompt, mealSuggestions())
		return nil

	case PendingHealthDecision:
		switch reply.Kind {
		case ReplyHealthProceed:
			return m.executePending(ctx, pending, pending.BaseRequest, gateway.SafetyProceed)
		case ReplyHealthSafer:
			return m.executePending(ctx, pending, pending.BaseRequest, gateway.SafetyHealthFirst)
		default:
			// 曖昧回覆絕不瞎猜，重新給出兩個標準選項
			m.reprompt(msgHealthReprompt, healthSuggestions)
			return nil
		}
	}

	return nil
}

// HandleMealType 處理餐別按鈕
func (m *Machine) HandleMealType(ctx context.Context, meal common.MealType) error {
	if !meal.IsValid() {
		return common.NewValidationError(fmt.Sprintf("invalid meal type: %s", meal))
	}
	if pending, ok := m.tracker.Peek(); !ok || pending.Kind != PendingMealType {
		return common.NewValidationError("no meal-type question pending")
	}

	m.transcript.Append(Turn{Role: RoleUser, Text: meal.Label()})
	return m.resolveMealType(ctx, meal)
}

// SelectRecipe 處理候選食譜卡片點選，進入食材確認
func (m *Machine) SelectRecipe(ctx context.Context, recipeName string) error {
	if m.state != StateShowingRecipes {
		return common.NewValidationError("no recipes to select from")
	}

	m.transcript.Append(Turn{Role: RoleUser, Text: recipeName})

	checklist, err := m.flow.BeginChecklist(ctx, recipeName, m.mealType)
	if err != nil {
		// 失敗不改變狀態，候選清單保持可選
		m.appendFailure(err)
		return nil
	}

	m.state = StateCheckingIngredients
	m.appendAssistant(Turn{
		Text:       msgChecklistPrompt,
		ActionType: string(gateway.ActionIngredientCheck),
		IngredientCheck: &IngredientCheck{
			RecipeName:  recipeName,
			Ingredients: checklist.Ingredients(),
		},
	})
	return nil
}

// SubmitChecklist 送出剔除清單，合成客製步驟並進入烹飪
func (m *Machine) SubmitChecklist(ctx context.Context, excluded []string) error {
	if m.state != StateCheckingIngredients {
		return common.NewValidationError("no ingredient checklist pending")
	}

	session, err := m.flow.SubmitChecklist(ctx, excluded)
	if err != nil {
		if common.IsValidationError(err) {
			return err
		}
		// 清單保留，可重送
		m.appendFailure(err)
		return nil
	}

	m.state = StateCooking
	if session.Empty() {
		// 退化結果：渲染 placeholder，線性游標不啟動
		m.appendAssistant(Turn{Text: msgNoSteps, CookingStepsRef: session.RecipeName()})
		return nil
	}

	m.appendAssistant(Turn{
		Text:            fmt.Sprintf("%s 요리를 시작해볼까요? 총 %d단계예요.", session.RecipeName(), session.Len()),
		ActionType:      string(gateway.ActionCookingSteps),
		CookingStepsRef: session.RecipeName(),
	})
	return nil
}

// Advance 移動烹飪步驟游標（start/next/previous）
func (m *Machine) Advance(direction string) error {
	if m.state != StateCooking {
		return common.NewValidationError("no cooking session in progress")
	}

	step, completed, err := m.flow.Advance(direction)
	if err != nil {
		return err
	}

	if completed {
		m.state = StateCompleted
		m.appendAssistant(Turn{Text: msgCompleted, Suggestions: recordSuggestions})
		return nil
	}

	m.appendAssistant(Turn{
		Text:            fmt.Sprintf("%d. %s", step.Number, step.Description),
		CookingStepsRef: m.flow.RecipeName(),
	})
	return nil
}

// Record 完成後的記錄或放棄
func (m *Machine) Record(ctx context.Context, action string) error {
	if m.state != StateCompleted {
		return common.NewValidationError("nothing to record")
	}

	switch action {
	case "record":
		if err := m.flow.Record(ctx); err != nil {
			// 記錄失敗只回報，Completed 不回滾，使用者可以再試
			common.LogError("用餐記錄交接失敗",
				zap.String("session_id", m.sessionID),
				zap.Error(err),
			)
			m.appendAssistant(Turn{Text: msgRecordFailed, Suggestions: recordSuggestions})
			return nil
		}
		m.appendAssistant(Turn{Text: msgRecordOK})
	case "discard":
		m.appendAssistant(Turn{Text: msgDiscardAck})
	default:
		return common.NewValidationError(fmt.Sprintf("unknown record action: %s", action))
	}

	m.flow.Reset()
	m.tracker.Clear()
	m.mealType = ""
	m.state = StateAwaitingInput
	return nil
}

// clarify 對後端發 clarify 呼叫，讓後端決定是否需要消歧
func (m *Machine) clarify(ctx context.Context, text string) error {
	seq := m.nextSeq()
	action, err := m.gw.RequestTurn(ctx, m.sessionID, text, gateway.ModeClarify, gateway.SafetyNone)
	if !m.acceptResponse(seq) {
		common.LogWarn("丟棄過期的後端回應",
			zap.String("session_id", m.sessionID),
			zap.Uint64("seq", seq),
		)
		return nil
	}
	if err != nil {
		m.appendFailure(err)
		return nil
	}

	m.applyAction(action, text)
	return nil
}

// executePending 以儲存的 base request 對後端發 execute 呼叫。
// 不變量：呼叫前 Peek 必定非空且形狀吻合（所有呼叫點都先檢查過）。
// 失敗時 pending 保持原樣，使用者可以重試同一個消歧
func (m *Machine) executePending(ctx context.Context, pending PendingContext, message string, safety gateway.SafetyMode) error {
	seq := m.nextSeq()
	action, err := m.gw.RequestTurn(ctx, m.sessionID, message, gateway.ModeExecute, safety)
	if !m.acceptResponse(seq) {
		common.LogWarn("丟棄過期的後端回應",
			zap.String("session_id", m.sessionID),
			zap.Uint64("seq", seq),
		)
		return nil
	}
	if err != nil {
		m.appendFailure(err)
		return nil
	}

	// 回應到手才清除 pending，失敗或中斷的請求不留半套狀態
	m.tracker.Resolve()
	m.applyAction(action, pending.BaseRequest)
	return nil
}

// resolveMealType 組合 "<끼니> 부탁해" 等價的合成訊息並 execute
func (m *Machine) resolveMealType(ctx context.Context, meal common.MealType) error {
	pending, ok := m.tracker.Peek()
	if !ok || pending.Kind != PendingMealType {
		return common.NewValidationError("no meal-type question pending")
	}

	m.mealType = meal
	message := composeMealMessage(pending.BaseRequest, meal)
	return m.executePending(ctx, pending, message, gateway.SafetyNone)
}

// composeMealMessage 後端無狀態，base request 和餐別要一起重送
func composeMealMessage(base string, meal common.MealType) string {
	synthetic := meal.Label() + " 부탁해"
	if base == "" {
		return synthetic
	}
	return base + " " + synthetic
}

// applyAction 套用已解碼的後端動作：裝上 pending、轉移狀態、渲染 turn
func (m *Machine) applyAction(action *gateway.Action, baseRequest string) {
	switch action.Type {
	case gateway.ActionConfirmation:
		if action.MissingSlot == "meal_type" {
			m.tracker.Arm(PendingContext{Kind: PendingMealType, BaseRequest: baseRequest})
			m.state = StateAwaitingMealType
			m.appendAssistant(Turn{
				Text:        firstNonEmpty(action.Message, msgMealPrompt),
				ActionType:  string(action.Type),
				Suggestions: mealSuggestions(),
			})
			return
		}

		suggestions := action.Suggestions
		if len(suggestions) == 0 {
			suggestions = confirmSuggestions
		}
		m.tracker.Arm(PendingContext{Kind: PendingConfirmation, BaseRequest: baseRequest, Suggestions: suggestions})
		m.state = StateAwaitingConfirmation
		m.appendAssistant(Turn{
			Text:        action.Message,
			ActionType:  string(action.Type),
			Suggestions: suggestions,
		})

	case gateway.ActionHealthConfirmation:
		suggestions := action.Suggestions
		if len(suggestions) == 0 {
			suggestions = healthSuggestions
		}
		m.tracker.Arm(PendingContext{
			Kind:        PendingHealthDecision,
			BaseRequest: baseRequest,
			WarningText: action.Warning,
			Suggestions: suggestions,
		})
		m.state = StateAwaitingHealthDecision
		m.appendAssistant(Turn{
			Text:        firstNonEmpty(action.Message, action.Warning),
			ActionType:  string(action.Type),
			Suggestions: suggestions,
		})

	case gateway.ActionRecommendationResult:
		if len(action.Recipes) == 0 {
			m.state = StateAwaitingInput
			m.appendAssistant(Turn{Text: firstNonEmpty(action.Message, msgGatewayFailure)})
			return
		}
		m.state = StateShowingRecipes
		m.appendAssistant(Turn{
			Text:             firstNonEmpty(action.Message, msgRecipesFallback),
			ActionType:       string(action.Type),
			RecipeCandidates: action.Recipes,
		})

	case gateway.ActionTextOnly:
		m.state = StateAwaitingInput
		m.appendAssistant(Turn{Text: action.Message})

	default:
		// INGREDIENT_CHECK / COOKING_STEPS 只會出現在 recipe 範圍的呼叫
		common.LogWarn("對話呼叫收到非預期的動作類型",
			zap.String("session_id", m.sessionID),
			zap.String("action_type", string(action.Type)),
		)
		m.state = StateAwaitingInput
		m.appendAssistant(Turn{Text: firstNonEmpty(action.Message, msgGatewayFailure)})
	}
}

// reprompt 用同一組標準選項重新提問，狀態與 pending 都不動
func (m *Machine) reprompt(text string, suggestions []string) {
	m.appendAssistant(Turn{Text: text, Suggestions: suggestions})
}

// appendFailure 把後端錯誤渲染成靜態失敗 turn，pending 狀態不動
func (m *Machine) appendFailure(err error) {
	common.LogError("後端呼叫失敗，渲染失敗訊息",
		zap.String("session_id", m.sessionID),
		zap.Error(err),
	)
	m.appendAssistant(Turn{Text: msgGatewayFailure})
}

func (m *Machine) appendAssistant(turn Turn) {
	turn.Role = RoleAssistant
	m.transcript.Append(turn)
}

func (m *Machine) nextSeq() uint64 {
	m.callSeq++
	return m.callSeq
}

// acceptResponse 只接受最新一次發出的呼叫的回應
func (m *Machine) acceptResponse(seq uint64) bool {
	return seq == m.callSeq
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
