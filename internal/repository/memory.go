package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"storefront-auth/internal/model"
)

// MemoryStore keeps everything in process. It backs development mode (no
// DATABASE_URL) and tests. Transactions are serialized and rolled back by
// restoring a snapshot; writes outside a transaction wait for the running one
// to finish, so a rollback never discards them.
type MemoryStore struct {
	txMu sync.Mutex
	mu   sync.Mutex
	data memoryData
}

type memoryData struct {
	accounts   map[string]model.Account
	profiles   map[string]model.Profile
	challenges []model.OTPChallenge
	nextID     int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: memoryData{
		accounts: map[string]model.Account{},
		profiles: map[string]model.Profile{},
	}}
}

func (d memoryData) clone() memoryData {
	out := memoryData{
		accounts:   make(map[string]model.Account, len(d.accounts)),
		profiles:   make(map[string]model.Profile, len(d.profiles)),
		challenges: append([]model.OTPChallenge(nil), d.challenges...),
		nextID:     d.nextID,
	}
	for k, v := range d.accounts {
		out.accounts[k] = v
	}
	for k, v := range d.profiles {
		out.profiles[k] = v
	}
	return out
}

func (s *MemoryStore) FindAccountByID(_ context.Context, id string) (model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.data.accounts[id]
	if !ok {
		return model.Account{}, fmt.Errorf("find account %s: %w", id, model.ErrAccountNotFound)
	}
	return a, nil
}

func (s *MemoryStore) FindAccountByEmail(_ context.Context, email string) (model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(strings.TrimSpace(email))
	for _, a := range s.data.accounts {
		if strings.ToLower(a.Email) == key {
			return a, nil
		}
	}
	return model.Account{}, fmt.Errorf("find account by email: %w", model.ErrAccountNotFound)
}

func (s *MemoryStore) createAccount(_ context.Context, account model.Account) (model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(strings.TrimSpace(account.Email))
	for _, a := range s.data.accounts {
		if strings.ToLower(a.Email) == key {
			return model.Account{}, fmt.Errorf("create account: %w", model.ErrAccountExists)
		}
	}
	if _, exists := s.data.accounts[account.ID]; exists {
		return model.Account{}, fmt.Errorf("create account: %w", model.ErrAccountExists)
	}

	s.data.accounts[account.ID] = account
	return account, nil
}

func (s *MemoryStore) createProfile(_ context.Context, accountID string, fullName string) (model.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.accounts[accountID]; !ok {
		return model.Profile{}, fmt.Errorf("create profile: %w", model.ErrAccountNotFound)
	}
	if _, exists := s.data.profiles[accountID]; exists {
		return model.Profile{}, fmt.Errorf("create profile: profile for %s already exists", accountID)
	}

	now := time.Now().UTC()
	p := model.Profile{AccountID: accountID, FullName: fullName, CreatedAt: now, UpdatedAt: now}
	s.data.profiles[accountID] = p
	return p, nil
}

func (s *MemoryStore) FindProfile(_ context.Context, accountID string) (model.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.data.profiles[accountID]
	if !ok {
		return model.Profile{}, fmt.Errorf("find profile %s: %w", accountID, model.ErrProfileNotFound)
	}
	return p, nil
}

func (s *MemoryStore) updateAccountSecret(_ context.Context, id string, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.data.accounts[id]
	if !ok {
		return fmt.Errorf("update account secret %s: %w", id, model.ErrAccountNotFound)
	}
	a.PasswordHash = passwordHash
	a.UpdatedAt = time.Now().UTC()
	s.data.accounts[id] = a
	return nil
}

func (s *MemoryStore) markVerified(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.data.accounts[id]
	if !ok {
		return fmt.Errorf("mark account verified %s: %w", id, model.ErrAccountNotFound)
	}
	a.IsVerified = true
	a.UpdatedAt = time.Now().UTC()
	s.data.accounts[id] = a
	return nil
}

func (s *MemoryStore) insertChallenge(_ context.Context, challenge model.OTPChallenge) (model.OTPChallenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data.nextID++
	challenge.ID = s.data.nextID
	s.data.challenges = append(s.data.challenges, challenge)
	return challenge, nil
}

func (s *MemoryStore) FindLatestUnexpiredChallenge(_ context.Context, accountID string, now time.Time) (model.OTPChallenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	candidates := make([]model.OTPChallenge, 0)
	for _, c := range s.data.challenges {
		if c.AccountID == accountID && !c.Expired(now) {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		return model.OTPChallenge{}, model.ErrChallengeNotFound
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].CreatedAt.Equal(candidates[j].CreatedAt) {
			return candidates[i].ID > candidates[j].ID
		}
		return candidates[i].CreatedAt.After(candidates[j].CreatedAt)
	})
	return candidates[0], nil
}

func (s *MemoryStore) deleteChallenge(_ context.Context, accountID string, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.data.challenges[:0]
	for _, c := range s.data.challenges {
		if c.AccountID == accountID && c.Code == code {
			continue
		}
		kept = append(kept, c)
	}
	s.data.challenges = kept
	return nil
}

func (s *MemoryStore) deleteChallengeByID(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.data.challenges[:0]
	for _, c := range s.data.challenges {
		if c.ID == id {
			continue
		}
		kept = append(kept, c)
	}
	s.data.challenges = kept
	return nil
}

// Challenges returns every stored row for accountID, expired ones included.
func (s *MemoryStore) Challenges(accountID string) []model.OTPChallenge {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.OTPChallenge, 0)
	for _, c := range s.data.challenges {
		if c.AccountID == accountID {
			out = append(out, c)
		}
	}
	return out
}

// AccountCount reports how many accounts are stored.
func (s *MemoryStore) AccountCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.accounts)
}

func (s *MemoryStore) WithinTx(_ context.Context, fn func(tx Store) error) (err error) {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.data.clone()
	s.mu.Unlock()

	defer func() {
		if p := recover(); p != nil {
			s.restore(snapshot)
			panic(p)
		}
		if err != nil {
			s.restore(snapshot)
		}
	}()

	return fn(&memoryTx{MemoryStore: s})
}

func (s *MemoryStore) restore(snapshot memoryData) {
	s.mu.Lock()
	s.data = snapshot
	s.mu.Unlock()
}

func (s *MemoryStore) CreateAccount(ctx context.Context, account model.Account) (model.Account, error) {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return s.createAccount(ctx, account)
}

func (s *MemoryStore) CreateProfile(ctx context.Context, accountID string, fullName string) (model.Profile, error) {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return s.createProfile(ctx, accountID, fullName)
}

func (s *MemoryStore) UpdateAccountSecret(ctx context.Context, id string, passwordHash string) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return s.updateAccountSecret(ctx, id, passwordHash)
}

func (s *MemoryStore) MarkVerified(ctx context.Context, id string) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return s.markVerified(ctx, id)
}

func (s *MemoryStore) InsertChallenge(ctx context.Context, challenge model.OTPChallenge) (model.OTPChallenge, error) {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return s.insertChallenge(ctx, challenge)
}

func (s *MemoryStore) DeleteChallenge(ctx context.Context, accountID string, code string) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return s.deleteChallenge(ctx, accountID, code)
}

func (s *MemoryStore) DeleteChallengeByID(_ context.Context, id int64) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return s.deleteChallengeByID(id)
}

// memoryTx writes while the owning WithinTx holds txMu. Nested WithinTx calls
// join the running transaction.
type memoryTx struct {
	*MemoryStore
}

func (t *memoryTx) CreateAccount(ctx context.Context, account model.Account) (model.Account, error) {
	return t.createAccount(ctx, account)
}

func (t *memoryTx) CreateProfile(ctx context.Context, accountID string, fullName string) (model.Profile, error) {
	return t.createProfile(ctx, accountID, fullName)
}

func (t *memoryTx) UpdateAccountSecret(ctx context.Context, id string, passwordHash string) error {
	return t.updateAccountSecret(ctx, id, passwordHash)
}

func (t *memoryTx) MarkVerified(ctx context.Context, id string) error {
	return t.markVerified(ctx, id)
}

func (t *memoryTx) InsertChallenge(ctx context.Context, challenge model.OTPChallenge) (model.OTPChallenge, error) {
	return t.insertChallenge(ctx, challenge)
}

func (t *memoryTx) DeleteChallenge(ctx context.Context, accountID string, code string) error {
	return t.deleteChallenge(ctx, accountID, code)
}

func (t *memoryTx) DeleteChallengeByID(_ context.Context, id int64) error {
	return t.deleteChallengeByID(id)
}

func (t *memoryTx) WithinTx(_ context.Context, fn func(tx Store) error) error {
	return fn(t)
}
