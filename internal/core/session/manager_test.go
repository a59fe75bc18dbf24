package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"diet-chat/internal/core/chat"
	"diet-chat/internal/core/gateway"
	"diet-chat/internal/infrastructure/config"
	"diet-chat/internal/pkg/common"
)

func testManager(t *testing.T, maxSessions int) *Manager {
	t.Helper()
	cfg := &config.Config{
		Backend: config.BackendConfig{
			BaseURL: "http://127.0.0.1:0",
			Timeout: time.Second,
		},
		Session: config.SessionConfig{
			IdleTTL:         time.Hour,
			CleanupInterval: time.Hour,
			MaxSessions:     maxSessions,
		},
	}
	m := NewManager(cfg, gateway.NewClient(cfg, nil))
	t.Cleanup(m.Close)
	return m
}

func TestManagerCreateAndLimit(t *testing.T) {
	m := testManager(t, 2)

	first, err := m.Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	second, err := m.Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if first == second {
		t.Error("兩次 Create 應鑄造不同的識別碼")
	}
	if m.Count() != 2 {
		t.Errorf("Count = %d, want 2", m.Count())
	}

	if _, err := m.Create(); !errors.Is(err, common.ErrSessionLimit) {
		t.Errorf("超出上限 err = %v, want ErrSessionLimit", err)
	}
}

func TestManagerDoMissingSession(t *testing.T) {
	m := testManager(t, 10)

	err := m.Do("", func(*chat.Machine) error { return nil })
	if !errors.Is(err, common.ErrMissingSession) {
		t.Errorf("err = %v, want ErrMissingSession", err)
	}
}

// 客戶端自帶的識別碼在首次接觸時建立狀態機
func TestManagerDoAutoCreates(t *testing.T) {
	m := testManager(t, 10)

	var machine *chat.Machine
	err := m.Do("client-issued-id", func(mc *chat.Machine) error {
		machine = mc
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if machine.SessionID() != "client-issued-id" {
		t.Errorf("SessionID = %q", machine.SessionID())
	}
	if m.Count() != 1 {
		t.Errorf("Count = %d, want 1", m.Count())
	}

	// 再次接觸回到同一台狀態機
	err = m.Do("client-issued-id", func(mc *chat.Machine) error {
		if mc != machine {
			t.Error("同一個識別碼應回到同一台狀態機")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
}

// 呼叫進行中拒絕新輸入，而不是排隊
func TestManagerBusyGuard(t *testing.T) {
	m := testManager(t, 10)

	entered := make(chan struct{})
	release := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		m.Do("sess-1", func(*chat.Machine) error {
			close(entered)
			<-release
			return nil
		})
	}()

	<-entered
	if err := m.Do("sess-1", func(*chat.Machine) error { return nil }); !errors.Is(err, common.ErrSessionBusy) {
		t.Errorf("進行中 err = %v, want ErrSessionBusy", err)
	}
	// 別的會話不受影響
	if err := m.Do("sess-2", func(*chat.Machine) error { return nil }); err != nil {
		t.Errorf("其他會話 Do: %v", err)
	}

	close(release)
	wg.Wait()

	if err := m.Do("sess-1", func(*chat.Machine) error { return nil }); err != nil {
		t.Errorf("釋放後 Do: %v", err)
	}
}

func TestManagerSnapshot(t *testing.T) {
	m := testManager(t, 10)

	if _, _, err := m.Snapshot("ghost"); !errors.Is(err, common.ErrSessionNotFound) {
		t.Errorf("未知會話 err = %v, want ErrSessionNotFound", err)
	}

	id, err := m.Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	turns, state, err := m.Snapshot(id)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(turns) != 0 {
		t.Errorf("新會話的對話記錄應為空，得到 %d 輪", len(turns))
	}
	if state != chat.StateAwaitingInput {
		t.Errorf("state = %q, want %q", state, chat.StateAwaitingInput)
	}
}

// 事件進行中 Snapshot 被 inFlight 擋下，不會讀到寫入一半的狀態
func TestManagerSnapshotDuringEvent(t *testing.T) {
	m := testManager(t, 10)
	id, err := m.Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	entered := make(chan struct{})
	release := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		m.Do(id, func(mc *chat.Machine) error {
			close(entered)
			<-release
			mc.Transcript().Append(chat.Turn{Role: chat.RoleAssistant, Text: "안녕하세요"})
			return nil
		})
	}()

	<-entered
	if _, _, err := m.Snapshot(id); !errors.Is(err, common.ErrSessionBusy) {
		t.Errorf("進行中 Snapshot err = %v, want ErrSessionBusy", err)
	}

	close(release)
	wg.Wait()

	turns, _, err := m.Snapshot(id)
	if err != nil {
		t.Fatalf("事件結束後 Snapshot: %v", err)
	}
	if len(turns) != 1 {
		t.Errorf("turns = %d, want 1", len(turns))
	}
}

// 讀寫交錯下 Snapshot 永遠只回傳完整的副本（搭配 -race 驗證）
func TestManagerSnapshotConcurrentEvents(t *testing.T) {
	m := testManager(t, 10)
	id, err := m.Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			m.Do(id, func(mc *chat.Machine) error {
				mc.Transcript().Append(chat.Turn{Role: chat.RoleUser, Text: "잘 부탁해"})
				return nil
			})
		}
	}()

	for i := 0; i < 200; i++ {
		if _, _, err := m.Snapshot(id); err != nil && !errors.Is(err, common.ErrSessionBusy) {
			t.Fatalf("Snapshot: %v", err)
		}
	}
	wg.Wait()
}

// 閒置超過 TTL 的會話被回收，進行中的不回收
func TestManagerCleanup(t *testing.T) {
	m := testManager(t, 10)

	idleID, _ := m.Create()
	busyID, _ := m.Create()

	m.mu.Lock()
	m.sessions[idleID].lastSeen = time.Now().Add(-2 * time.Hour)
	m.sessions[busyID].lastSeen = time.Now().Add(-2 * time.Hour)
	m.sessions[busyID].inFlight = true
	m.mu.Unlock()

	m.cleanup()

	if _, _, err := m.Snapshot(idleID); !errors.Is(err, common.ErrSessionNotFound) {
		t.Errorf("閒置會話應被回收, err = %v", err)
	}
	if _, _, err := m.Snapshot(busyID); err != nil {
		t.Errorf("進行中的會話不應被回收: %v", err)
	}
}
