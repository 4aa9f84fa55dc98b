package tests

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dknog/indico-plugin-stripe/internal/domain"
	"github.com/dknog/indico-plugin-stripe/internal/psp"
	"github.com/dknog/indico-plugin-stripe/internal/redis"
	"github.com/dknog/indico-plugin-stripe/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK REGISTRATION REPOSITORY
// ──────────────────────────────────────────────

// MockRegistrationRepository is a mock implementation of RegistrationRepository.
type MockRegistrationRepository struct {
	mu            sync.RWMutex
	registrations map[string]*domain.Registration

	// Counters for verification
	GetCallCount int32

	// Error injection
	GetError error
}

// NewMockRegistrationRepository creates a new mock registration repository.
func NewMockRegistrationRepository() *MockRegistrationRepository {
	return &MockRegistrationRepository{
		registrations: make(map[string]*domain.Registration),
	}
}

// AddRegistration adds a registration to the mock repository.
func (m *MockRegistrationRepository) AddRegistration(reg *domain.Registration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registrations[reg.UUID] = reg
}

func (m *MockRegistrationRepository) GetByUUID(ctx context.Context, uuid string) (*domain.Registration, error) {
	atomic.AddInt32(&m.GetCallCount, 1)
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	reg, ok := m.registrations[uuid]
	if !ok {
		return nil, repository.ErrNotFound
	}
	// Return a copy to avoid mutation issues.
	copy := *reg
	return &copy, nil
}

// ──────────────────────────────────────────────
// MOCK TRANSACTION LEDGER
// ──────────────────────────────────────────────

// MockTransactionLedger is a mock implementation of TransactionLedger.
type MockTransactionLedger struct {
	mu           sync.RWMutex
	transactions []*domain.Transaction

	// Counters for verification
	AppendCallCount int32

	// Error injection
	AppendError error
}

// NewMockTransactionLedger creates a new mock ledger.
func NewMockTransactionLedger() *MockTransactionLedger {
	return &MockTransactionLedger{}
}

func (m *MockTransactionLedger) Append(ctx context.Context, tx *domain.Transaction) error {
	atomic.AddInt32(&m.AppendCallCount, 1)
	if m.AppendError != nil {
		return m.AppendError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *tx
	m.transactions = append(m.transactions, &copy)
	return nil
}

func (m *MockTransactionLedger) ListByRegistration(ctx context.Context, registrationID int64) ([]*domain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Transaction, 0)
	for _, tx := range m.transactions {
		if tx.RegistrationID == registrationID {
			copy := *tx
			result = append(result, &copy)
		}
	}
	return result, nil
}

// CountTransactions returns the number of recorded transactions.
func (m *MockTransactionLedger) CountTransactions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.transactions)
}

// LastTransaction returns the most recent transaction, or nil.
func (m *MockTransactionLedger) LastTransaction() *domain.Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.transactions) == 0 {
		return nil
	}
	return m.transactions[len(m.transactions)-1]
}

// ──────────────────────────────────────────────
// MOCK SETTINGS REPOSITORY
// ──────────────────────────────────────────────

// MockSettingsRepository is a mock implementation of SettingsRepository.
type MockSettingsRepository struct {
	mu       sync.RWMutex
	settings map[int64]*domain.EventSettings

	// Counters for verification
	GetCallCount int32

	// Error injection
	GetError error
}

// NewMockSettingsRepository creates a new mock settings repository.
func NewMockSettingsRepository() *MockSettingsRepository {
	return &MockSettingsRepository{
		settings: make(map[int64]*domain.EventSettings),
	}
}

// SetEventSettings stores settings for an event.
func (m *MockSettingsRepository) SetEventSettings(settings *domain.EventSettings) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[settings.EventID] = settings
}

func (m *MockSettingsRepository) GetEventSettings(ctx context.Context, eventID int64) (*domain.EventSettings, error) {
	atomic.AddInt32(&m.GetCallCount, 1)
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	settings, ok := m.settings[eventID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *settings
	return &copy, nil
}

// ──────────────────────────────────────────────
// MOCK SETTINGS CACHE
// ──────────────────────────────────────────────

// MockSettingsCache is a mock implementation of SettingsCacheInterface.
type MockSettingsCache struct {
	mu       sync.Mutex
	settings map[int64]*domain.EventSettings

	// Counters
	GetCallCount int32
	SetCallCount int32

	// Error injection
	GetError error
	SetError error
}

// NewMockSettingsCache creates a new mock settings cache.
func NewMockSettingsCache() *MockSettingsCache {
	return &MockSettingsCache{
		settings: make(map[int64]*domain.EventSettings),
	}
}

func (m *MockSettingsCache) GetEventSettings(ctx context.Context, eventID int64) (*domain.EventSettings, error) {
	atomic.AddInt32(&m.GetCallCount, 1)
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	settings, ok := m.settings[eventID]
	if !ok {
		return nil, nil
	}
	copy := *settings
	return &copy, nil
}

func (m *MockSettingsCache) SetEventSettings(ctx context.Context, settings *domain.EventSettings) error {
	atomic.AddInt32(&m.SetCallCount, 1)
	if m.SetError != nil {
		return m.SetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *settings
	m.settings[settings.EventID] = &copy
	return nil
}

// ──────────────────────────────────────────────
// MOCK CLAIM STORE
// ──────────────────────────────────────────────

// MockClaimStore is a mock implementation of ClaimStoreInterface.
type MockClaimStore struct {
	mu     sync.Mutex
	claims map[string]bool

	// Counters
	ClaimCallCount   int32
	ReleaseCallCount int32

	// Error injection
	ClaimError error
}

// NewMockClaimStore creates a new mock claim store.
func NewMockClaimStore() *MockClaimStore {
	return &MockClaimStore{
		claims: make(map[string]bool),
	}
}

func claimKey(registrationID int64, sessionID, outcome string) string {
	return fmt.Sprintf("%d:%s:%s", registrationID, sessionID, outcome)
}

func (m *MockClaimStore) Claim(ctx context.Context, registrationID int64, sessionID, outcome string) (bool, error) {
	atomic.AddInt32(&m.ClaimCallCount, 1)
	if m.ClaimError != nil {
		return false, m.ClaimError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := claimKey(registrationID, sessionID, outcome)
	if m.claims[key] {
		return false, nil
	}
	m.claims[key] = true
	return true, nil
}

func (m *MockClaimStore) Release(ctx context.Context, registrationID int64, sessionID, outcome string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.claims, claimKey(registrationID, sessionID, outcome))
	return nil
}

// IsClaimed checks if a (registration, session, outcome) triple is claimed (for test assertions).
func (m *MockClaimStore) IsClaimed(registrationID int64, sessionID, outcome string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.claims[claimKey(registrationID, sessionID, outcome)]
}

// ──────────────────────────────────────────────
// MOCK PSP (Payment Service Provider)
// ──────────────────────────────────────────────

// MockPSP is a mock payment service provider.
type MockPSP struct {
	mu        sync.Mutex
	checkouts map[string]*psp.Checkout

	// Last request, for assertions
	LastCreateRequest psp.CreateSessionRequest
	LastAPIKey        string

	// Control behavior
	CreateError   error
	RetrieveError error

	// Counters
	CreateCallCount   int32
	RetrieveCallCount int32
}

// NewMockPSP creates a new mock PSP.
func NewMockPSP() *MockPSP {
	return &MockPSP{
		checkouts: make(map[string]*psp.Checkout),
	}
}

// AddCheckout registers the state the provider reports for a session.
func (m *MockPSP) AddCheckout(checkout *psp.Checkout) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkouts[checkout.SessionID] = checkout
}

// SetFailure configures the PSP to fail every call with err.
func (m *MockPSP) SetFailure(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateError = err
	m.RetrieveError = err
}

func (m *MockPSP) Name() string {
	return domain.ProviderStripe
}

func (m *MockPSP) CreateSession(ctx context.Context, req psp.CreateSessionRequest) (*psp.Session, error) {
	atomic.AddInt32(&m.CreateCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastCreateRequest = req
	m.LastAPIKey = req.APIKey
	if m.CreateError != nil {
		return nil, m.CreateError
	}
	return &psp.Session{
		ID:  "cs_mock_1",
		URL: "https://checkout.stripe.com/c/pay/cs_mock_1",
	}, nil
}

func (m *MockPSP) RetrieveCheckout(ctx context.Context, apiKey, sessionID string) (*psp.Checkout, error) {
	atomic.AddInt32(&m.RetrieveCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastAPIKey = apiKey
	if m.RetrieveError != nil {
		return nil, m.RetrieveError
	}
	checkout, ok := m.checkouts[sessionID]
	if !ok {
		return nil, psp.ErrSessionNotFound
	}
	copy := *checkout
	return &copy, nil
}

// ──────────────────────────────────────────────
// HELPER ERRORS
// ──────────────────────────────────────────────

var (
	ErrMockDBConstraint = errors.New("mock: unique constraint violation")
	ErrMockTimeout      = errors.New("mock: operation timeout")
	ErrMockRedisDown    = errors.New("mock: redis unavailable")
)

var (
	_ repository.RegistrationRepository = (*MockRegistrationRepository)(nil)
	_ repository.TransactionLedger      = (*MockTransactionLedger)(nil)
	_ repository.SettingsRepository     = (*MockSettingsRepository)(nil)
	_ redis.SettingsCacheInterface      = (*MockSettingsCache)(nil)
	_ redis.ClaimStoreInterface         = (*MockClaimStore)(nil)
	_ psp.Provider                      = (*MockPSP)(nil)
)
