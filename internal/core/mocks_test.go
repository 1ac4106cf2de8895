package core

import (
	"context"
	"sync"
	"time"

	"wishtune-backend-go/internal/db"
	"wishtune-backend-go/internal/gateway"
	"wishtune-backend-go/internal/generation"
	"wishtune-backend-go/internal/models"
)

// In-memory repository mocks. Each one guards its state with a mutex and
// reproduces the transactional semantics the Firestore implementations
// provide, so the concurrency-sensitive tests exercise real interleavings.

type mockCreditRepo struct {
	mu      sync.Mutex
	records map[string]*models.UserCredits
}

func newMockCreditRepo() *mockCreditRepo {
	return &mockCreditRepo{records: make(map[string]*models.UserCredits)}
}

func (m *mockCreditRepo) set(userID string, uc models.UserCredits) {
	m.mu.Lock()
	defer m.mu.Unlock()
	uc.UserID = userID
	m.records[userID] = &uc
}

func (m *mockCreditRepo) get(userID string) models.UserCredits {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.records[userID]; ok {
		return *r
	}
	return models.UserCredits{UserID: userID}
}

func (m *mockCreditRepo) GetOrInit(ctx context.Context, userID string) (*models.UserCredits, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[userID]
	if !ok {
		r = &models.UserCredits{UserID: userID}
		m.records[userID] = r
	}
	copied := *r
	return &copied, nil
}

func (m *mockCreditRepo) DeductCredit(ctx context.Context, userID string) (*models.UserCredits, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[userID]
	if !ok {
		r = &models.UserCredits{UserID: userID}
		m.records[userID] = r
	}
	switch {
	case r.FreeSongsUsed < models.FreeSongLimit:
		r.FreeSongsUsed++
	case r.PaidCredits > 0:
		r.PaidCredits--
	default:
		return nil, db.ErrNoCredits
	}
	r.TotalSongsCreated++
	copied := *r
	return &copied, nil
}

func (m *mockCreditRepo) AddCredits(ctx context.Context, userID string, amount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[userID]
	if !ok {
		r = &models.UserCredits{UserID: userID}
		m.records[userID] = r
	}
	r.PaidCredits += amount
	return nil
}

type mockSongRepo struct {
	mu    sync.Mutex
	songs map[string]*models.SongRecord
}

func newMockSongRepo() *mockSongRepo {
	return &mockSongRepo{songs: make(map[string]*models.SongRecord)}
}

func (m *mockSongRepo) get(songID string) *models.SongRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.songs[songID]; ok {
		copied := *s
		return &copied
	}
	return nil
}

func (m *mockSongRepo) Save(ctx context.Context, song *models.SongRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *song
	m.songs[song.ID] = &copied
	return nil
}

func (m *mockSongRepo) GetByID(ctx context.Context, songID string) (*models.SongRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.songs[songID]
	if !ok {
		return nil, db.ErrNotFound
	}
	copied := *s
	return &copied, nil
}

func (m *mockSongRepo) GetByUserID(ctx context.Context, userID string) ([]*models.SongRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.SongRecord
	for _, s := range m.songs {
		if s.UserID == userID {
			copied := *s
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *mockSongRepo) UpdateStatusByTaskID(ctx context.Context, taskID string, status models.SongStatus, variations []models.SongVariation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.songs {
		if s.TaskID != taskID {
			continue
		}
		if s.Status != status && !s.Status.CanTransitionTo(status) {
			return db.ErrStaleTransition
		}
		s.Status = status
		if variations != nil {
			s.Variations = variations
		}
		return nil
	}
	return db.ErrNotFound
}

func (m *mockSongRepo) Delete(ctx context.Context, songID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.songs[songID]
	if !ok {
		return db.ErrNotFound
	}
	if s.UserID != userID {
		return db.ErrUnauthorized
	}
	delete(m.songs, songID)
	return nil
}

// mockTxnRepo implements the idempotency journal. CommitPurchase applies the
// credit grant and the journal write under one lock, matching the all-or-
// nothing Firestore transaction.
type mockTxnRepo struct {
	mu      sync.Mutex
	journal map[string]*models.Transaction
	credits *mockCreditRepo
	commits int
}

func newMockTxnRepo(credits *mockCreditRepo) *mockTxnRepo {
	return &mockTxnRepo{journal: make(map[string]*models.Transaction), credits: credits}
}

func (m *mockTxnRepo) GetByToken(ctx context.Context, token string) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.journal[token]
	if !ok {
		return nil, db.ErrNotFound
	}
	copied := *t
	return &copied, nil
}

func (m *mockTxnRepo) CommitPurchase(ctx context.Context, txn *models.Transaction) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.journal[txn.Token]; ok {
		return false, nil
	}
	if m.credits != nil {
		if err := m.credits.AddCredits(ctx, txn.UserID, txn.Credits); err != nil {
			return false, err
		}
	}
	copied := *txn
	copied.Status = models.TransactionStatusSuccess
	m.journal[txn.Token] = &copied
	m.commits++
	return true, nil
}

func (m *mockTxnRepo) commitCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.commits
}

type mockSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*models.PaymentSession
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{sessions: make(map[string]*models.PaymentSession)}
}

func (m *mockSessionRepo) Put(ctx context.Context, session *models.PaymentSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *session
	m.sessions[session.Token] = &copied
	return nil
}

func (m *mockSessionRepo) GetByToken(ctx context.Context, token string) (*models.PaymentSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[token]
	if !ok {
		return nil, db.ErrNotFound
	}
	copied := *s
	return &copied, nil
}

type mockPackageRepo struct {
	packages map[string]*models.CreditPackage
}

func newMockPackageRepo(packages ...*models.CreditPackage) *mockPackageRepo {
	m := &mockPackageRepo{packages: make(map[string]*models.CreditPackage)}
	for _, p := range packages {
		m.packages[p.ID] = p
	}
	return m
}

func (m *mockPackageRepo) GetByID(ctx context.Context, packageID string) (*models.CreditPackage, error) {
	p, ok := m.packages[packageID]
	if !ok {
		return nil, db.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (m *mockPackageRepo) ListActive(ctx context.Context) ([]*models.CreditPackage, error) {
	var out []*models.CreditPackage
	for _, p := range m.packages {
		if p.Active {
			copied := *p
			out = append(out, &copied)
		}
	}
	return out, nil
}

type mockAuditRepo struct {
	mu      sync.Mutex
	entries []models.AuditLog
}

func (m *mockAuditRepo) Create(ctx context.Context, logEntry models.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, logEntry)
	return nil
}

func (m *mockAuditRepo) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.Action)
	}
	return out
}

func (m *mockAuditRepo) hasAction(action string) bool {
	for _, a := range m.actions() {
		if a == action {
			return true
		}
	}
	return false
}

// mockGateway lets each test script the gateway's answers.
type mockGateway struct {
	configured     bool
	initializeFunc func(ctx context.Context, params gateway.CheckoutParams) (*gateway.CheckoutResult, error)
	verifyFunc     func(ctx context.Context, token, conversationID string) (*gateway.PaymentDetail, error)

	mu          sync.Mutex
	verifyCalls int
}

func (m *mockGateway) Configured() bool { return m.configured }

func (m *mockGateway) Initialize(ctx context.Context, params gateway.CheckoutParams) (*gateway.CheckoutResult, error) {
	return m.initializeFunc(ctx, params)
}

func (m *mockGateway) Verify(ctx context.Context, token, conversationID string) (*gateway.PaymentDetail, error) {
	m.mu.Lock()
	m.verifyCalls++
	m.mu.Unlock()
	return m.verifyFunc(ctx, token, conversationID)
}

func (m *mockGateway) verifyCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.verifyCalls
}

// mockProvider is a scriptable generation provider.
type mockProvider struct {
	configured bool
	taskID     string
	err        error

	mu    sync.Mutex
	calls []generation.TaskParams
}

func (m *mockProvider) Configured() bool { return m.configured }

func (m *mockProvider) StartTask(ctx context.Context, params generation.TaskParams) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, params)
	m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	return m.taskID, nil
}

// fixedRateLimiter always answers the same way.
type fixedRateLimiter struct {
	allowed bool
}

func (f fixedRateLimiter) Check(key string, limit int, window time.Duration) RateLimitResult {
	return RateLimitResult{Allowed: f.allowed, ResetAt: time.Now().Add(window)}
}
