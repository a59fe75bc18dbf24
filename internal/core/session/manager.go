package session

import (
	"sync"
	"time"

	"diet-chat/internal/core/chat"
	"diet-chat/internal/core/cooking"
	"diet-chat/internal/core/gateway"
	"diet-chat/internal/infrastructure/config"
	"diet-chat/internal/pkg/common"

	"go.uber.org/zap"
)

// entry 單一會話的登錄項
type entry struct {
	machine  *chat.Machine
	lastSeen time.Time
	inFlight bool
}

// Manager 會話註冊表：每個 session id 一台狀態機，首次接觸時建立，
// 閒置超時由清理協程回收。inFlight 守門實現「呼叫進行中拒絕新輸入」，
// 同一個會話永遠不會有兩個並發的後端呼叫搶同一個 tracker
type Manager struct {
	config *config.Config
	gw     *gateway.Client

	mu       sync.Mutex
	sessions map[string]*entry

	stop     chan struct{}
	stopOnce sync.Once
}

// NewManager 創建會話註冊表並啟動清理協程
func NewManager(cfg *config.Config, gw *gateway.Client) *Manager {
	m := &Manager{
		config:   cfg,
		gw:       gw,
		sessions: make(map[string]*entry),
		stop:     make(chan struct{}),
	}

	go m.startCleanup()

	common.LogInfo("會話註冊表已初始化",
		zap.Duration("idle_ttl", cfg.Session.IdleTTL),
		zap.Duration("cleanup_interval", cfg.Session.CleanupInterval),
		zap.Int("max_sessions", cfg.Session.MaxSessions),
	)
	return m
}

// Create 鑄造新的會話識別碼並建立狀態機
func (m *Manager) Create() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions) >= m.config.Session.MaxSessions {
		return "", common.ErrSessionLimit
	}

	id := common.GenerateUUID()
	m.sessions[id] = &entry{
		machine:  m.newMachine(id),
		lastSeen: time.Now(),
	}

	common.LogInfo("會話已建立",
		zap.String("session_id", id),
		zap.Int("active_sessions", len(m.sessions)),
	)
	return id, nil
}

// Do 在 inFlight 守門下對會話的狀態機執行一個事件。
// 守門保證狀態機單線進入；進行中時回 ErrSessionBusy，輸入被拒絕而不是排隊
func (m *Manager) Do(sessionID string, fn func(*chat.Machine) error) error {
	if sessionID == "" {
		return common.ErrMissingSession
	}

	m.mu.Lock()
	e, ok := m.sessions[sessionID]
	if !ok {
		// 首次接觸：為客戶端帶來的識別碼建立狀態機
		if len(m.sessions) >= m.config.Session.MaxSessions {
			m.mu.Unlock()
			return common.ErrSessionLimit
		}
		e = &entry{machine: m.newMachine(sessionID)}
		m.sessions[sessionID] = e
	}
	if e.inFlight {
		m.mu.Unlock()
		return common.ErrSessionBusy
	}
	e.inFlight = true
	e.lastSeen = time.Now()
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		e.inFlight = false
		m.mu.Unlock()
	}()

	return fn(e.machine)
}

// Snapshot 唯讀取得會話的對話記錄與目前狀態。
// 事件進行中讀到的狀態是半套的，和寫入事件一樣被 inFlight 擋下
func (m *Manager) Snapshot(sessionID string) ([]chat.Turn, chat.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[sessionID]
	if !ok {
		return nil, "", common.ErrSessionNotFound
	}
	if e.inFlight {
		return nil, "", common.ErrSessionBusy
	}
	e.lastSeen = time.Now()
	return e.machine.Transcript().Turns(), e.machine.State(), nil
}

// Count 目前活躍會話數
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close 停止清理協程並丟棄所有會話
func (m *Manager) Close() {
	m.stopOnce.Do(func() {
		close(m.stop)
	})

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = make(map[string]*entry)
	common.LogInfo("會話註冊表已關閉")
}

func (m *Manager) newMachine(sessionID string) *chat.Machine {
	return chat.NewMachine(sessionID, m.gw, cooking.NewFlow(m.gw))
}

// startCleanup 啟動回收閒置會話的協程
func (m *Manager) startCleanup() {
	ticker := time.NewTicker(m.config.Session.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanup()
		case <-m.stop:
			return
		}
	}
}

// cleanup 回收閒置超過 TTL 的會話（進行中的不回收）
func (m *Manager) cleanup() {
	now := time.Now()
	count := 0

	m.mu.Lock()
	for id, e := range m.sessions {
		if e.inFlight {
			continue
		}
		if now.Sub(e.lastSeen) > m.config.Session.IdleTTL {
			delete(m.sessions, id)
			count++
		}
	}
	remaining := len(m.sessions)
	m.mu.Unlock()

	if count > 0 {
		common.LogInfo("閒置會話已回收",
			zap.Int("回收數量", count),
			zap.Int("剩餘數量", remaining),
		)
	}
}
