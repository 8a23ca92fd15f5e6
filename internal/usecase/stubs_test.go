package usecase

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/core/domain"
	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/repository"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type stubAccountRepo struct {
	accounts  map[string]domain.Account
	userTypes map[string]domain.UserType
	getErr    error
	createErr error
}

func newStubAccountRepo() *stubAccountRepo {
	return &stubAccountRepo{
		accounts: make(map[string]domain.Account),
		userTypes: map[string]domain.UserType{
			"admin":   {ID: 1, Name: "admin", Permissions: map[string]bool{"manage_users": true, "manage_courses": true}},
			"teacher": {ID: 2, Name: "teacher", Permissions: map[string]bool{"manage_courses": true}},
			"student": {ID: 3, Name: "student", Permissions: map[string]bool{"view_courses": true}},
		},
	}
}

func (s *stubAccountRepo) add(account domain.Account) {
	if account.UserType != "" && account.Permissions == nil {
		account.Permissions = s.userTypes[account.UserType].Permissions
	}
	s.accounts[account.ID] = account
}

func (s *stubAccountRepo) Create(_ context.Context, account domain.Account) error {
	if s.createErr != nil {
		return s.createErr
	}
	for _, existing := range s.accounts {
		if existing.Username == account.Username && !existing.Deleted {
			return repository.ErrConflict
		}
	}
	s.accounts[account.ID] = account
	return nil
}

func (s *stubAccountRepo) GetByID(_ context.Context, id string) (*domain.Account, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	account, ok := s.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &account, nil
}

func (s *stubAccountRepo) GetByUsername(_ context.Context, username string) (*domain.Account, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	for _, account := range s.accounts {
		if account.Username == username && !account.Deleted {
			copy := account
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *stubAccountRepo) GetUserType(_ context.Context, name string) (*domain.UserType, error) {
	userType, ok := s.userTypes[name]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &userType, nil
}

func (s *stubAccountRepo) ListUserTypes(context.Context) ([]domain.UserType, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	userTypes := make([]domain.UserType, 0, len(s.userTypes))
	for _, userType := range s.userTypes {
		userTypes = append(userTypes, userType)
	}
	sort.Slice(userTypes, func(i, j int) bool { return userTypes[i].Name < userTypes[j].Name })
	return userTypes, nil
}

func (s *stubAccountRepo) RegisterFailedLogin(_ context.Context, id string, policy domain.LockoutPolicy, at time.Time) (domain.LockoutState, error) {
	account, ok := s.accounts[id]
	if !ok {
		return domain.LockoutState{}, repository.ErrNotFound
	}
	account.Lockout, _ = policy.RegisterFailure(account.Lockout, at)
	s.accounts[id] = account
	return account.Lockout, nil
}

func (s *stubAccountRepo) RecordSuccessfulLogin(_ context.Context, id string, at time.Time) error {
	account, ok := s.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	account.Lockout = domain.LockoutState{}
	account.LastLogin = &at
	s.accounts[id] = account
	return nil
}

func (s *stubAccountRepo) SetActive(_ context.Context, id string, active bool) error {
	account, ok := s.accounts[id]
	if !ok || account.Deleted {
		return repository.ErrNotFound
	}
	account.Active = active
	s.accounts[id] = account
	return nil
}

func (s *stubAccountRepo) SoftDelete(_ context.Context, id string) error {
	account, ok := s.accounts[id]
	if !ok || account.Deleted {
		return repository.ErrNotFound
	}
	account.Deleted = true
	s.accounts[id] = account
	return nil
}

type stubSessionRepo struct {
	sessions  map[string]domain.Session
	createErr error
	touchErr  error
	listErr   error
}

func newStubSessionRepo() *stubSessionRepo {
	return &stubSessionRepo{sessions: make(map[string]domain.Session)}
}

func (s *stubSessionRepo) Create(_ context.Context, session domain.Session) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.sessions[session.Token] = session
	return nil
}

func (s *stubSessionRepo) GetByToken(_ context.Context, token string) (*domain.Session, error) {
	session, ok := s.sessions[token]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &session, nil
}

func (s *stubSessionRepo) Touch(_ context.Context, token string, at time.Time) error {
	if s.touchErr != nil {
		return s.touchErr
	}
	session, ok := s.sessions[token]
	if !ok || session.IsExpired(at) {
		return repository.ErrNotFound
	}
	session.LastAccessedAt = &at
	s.sessions[token] = session
	return nil
}

func (s *stubSessionRepo) Delete(_ context.Context, token string) error {
	delete(s.sessions, token)
	return nil
}

func (s *stubSessionRepo) ListByAccount(_ context.Context, accountID string) ([]domain.Session, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []domain.Session
	for _, session := range s.sessions {
		if session.AccountID == accountID {
			out = append(out, session)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedAt.After(out[j].IssuedAt) })
	return out, nil
}

func (s *stubSessionRepo) DeleteExpired(_ context.Context, cutoff time.Time) ([]string, error) {
	var tokens []string
	for token, session := range s.sessions {
		if session.ExpiresAt.Before(cutoff) {
			tokens = append(tokens, token)
			delete(s.sessions, token)
		}
	}
	return tokens, nil
}

type cacheEntry struct {
	session domain.CachedSession
	ttl     time.Duration
}

// stubSessionCache records TTLs but never evicts, so expiry handling in the manager stays observable.
type stubSessionCache struct {
	entries   map[string]cacheEntry
	getErr    error
	setErr    error
	deleteErr error
	gets      int
}

func newStubSessionCache() *stubSessionCache {
	return &stubSessionCache{entries: make(map[string]cacheEntry)}
}

func (s *stubSessionCache) Get(_ context.Context, token string) (*domain.CachedSession, error) {
	s.gets++
	if s.getErr != nil {
		return nil, s.getErr
	}
	entry, ok := s.entries[token]
	if !ok {
		return nil, repository.ErrNotFound
	}
	session := entry.session
	return &session, nil
}

func (s *stubSessionCache) Set(_ context.Context, token string, session domain.CachedSession, ttl time.Duration) error {
	if s.setErr != nil {
		return s.setErr
	}
	s.entries[token] = cacheEntry{session: session, ttl: ttl}
	return nil
}

func (s *stubSessionCache) Delete(_ context.Context, tokens ...string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	for _, token := range tokens {
		delete(s.entries, token)
	}
	return nil
}

// stubHasher prefixes the plaintext so tests stay fast and verification calls can be counted.
type stubHasher struct {
	verifyCalls int
	hashErr     error
}

func (h *stubHasher) Hash(password string) (string, error) {
	if h.hashErr != nil {
		return "", h.hashErr
	}
	return "hashed:" + password, nil
}

func (h *stubHasher) Verify(encoded, password string) bool {
	h.verifyCalls++
	plain, ok := strings.CutPrefix(encoded, "hashed:")
	return ok && plain == password
}

type stubEventPublisher struct {
	logins  []domain.LoginSucceededEvent
	locks   []domain.AccountLockedEvent
	revokes []domain.SessionsRevokedEvent
	err     error
}

func (p *stubEventPublisher) PublishLoginSucceeded(_ context.Context, event domain.LoginSucceededEvent) error {
	p.logins = append(p.logins, event)
	return p.err
}

func (p *stubEventPublisher) PublishAccountLocked(_ context.Context, event domain.AccountLockedEvent) error {
	p.locks = append(p.locks, event)
	return p.err
}

func (p *stubEventPublisher) PublishSessionsRevoked(_ context.Context, event domain.SessionsRevokedEvent) error {
	p.revokes = append(p.revokes, event)
	return p.err
}

type stubMetrics struct {
	logins      map[string]int
	validations map[string]int
	issued      int
	revoked     map[string]int
	cacheErrors map[string]int
}

func newStubMetrics() *stubMetrics {
	return &stubMetrics{
		logins:      make(map[string]int),
		validations: make(map[string]int),
		revoked:     make(map[string]int),
		cacheErrors: make(map[string]int),
	}
}

func (m *stubMetrics) ObserveLogin(outcome string)                 { m.logins[outcome]++ }
func (m *stubMetrics) ObserveSessionValidation(result string)      { m.validations[result]++ }
func (m *stubMetrics) ObserveSessionIssued()                       { m.issued++ }
func (m *stubMetrics) ObserveSessionsRevoked(reason string, n int) { m.revoked[reason] += n }
func (m *stubMetrics) ObserveCacheError(operation string)          { m.cacheErrors[operation]++ }

var errStoreDown = errors.New("store unavailable")

type sessionFixture struct {
	clock    *testClock
	accounts *stubAccountRepo
	sessions *stubSessionRepo
	cache    *stubSessionCache
	events   *stubEventPublisher
	metrics  *stubMetrics
	manager  *SessionManager
}

func newSessionFixture() *sessionFixture {
	f := &sessionFixture{
		clock:    newTestClock(),
		accounts: newStubAccountRepo(),
		sessions: newStubSessionRepo(),
		cache:    newStubSessionCache(),
		events:   &stubEventPublisher{},
		metrics:  newStubMetrics(),
	}
	f.manager = NewSessionManager(f.sessions, f.cache, f.accounts, nil).
		WithClock(f.clock.Now).
		WithEvents(f.events).
		WithMetrics(f.metrics)
	f.accounts.add(domain.Account{
		ID:           "acc-alice",
		Username:     "alice",
		PasswordHash: "hashed:Correct-Horse-42",
		FirstName:    "Alice",
		LastName:     "Smith",
		UserTypeID:   2,
		UserType:     "teacher",
		Active:       true,
	})
	return f
}
