package memory

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/settlement-hub/settlement-hub/internal/domain/audit"
	"github.com/settlement-hub/settlement-hub/internal/domain/authtoken"
	"github.com/settlement-hub/settlement-hub/internal/domain/dispute"
	"github.com/settlement-hub/settlement-hub/internal/domain/ledger"
	"github.com/settlement-hub/settlement-hub/internal/domain/params"
	"github.com/settlement-hub/settlement-hub/internal/domain/policy"
	"github.com/settlement-hub/settlement-hub/internal/domain/releaseauth"
	"github.com/settlement-hub/settlement-hub/internal/domain/session"
	"github.com/settlement-hub/settlement-hub/internal/domain/user"
)

type balanceKey struct {
	Account string
	Asset   string
}

type state struct {
	sessions map[string]*session.Session
	params   *params.Parameters
	balances map[balanceKey]decimal.Decimal
	disputes map[uuid.UUID]*dispute.Dispute
	signers  map[string]*releaseauth.Signer
	nonces   map[string]time.Time
	rules    map[uuid.UUID]*policy.Rule
	audits   []*audit.AuditLog
	users    map[uuid.UUID]*user.User
	tokens   map[string]*authtoken.Token // keyed by token hash

	nextSessionSeq int64
	nextDisputeSeq int64
	nextSignerSeq  int64
	nextRuleSeq    int64
	nextAuditSeq   int64
	nextUserSeq    int64
	nextTokenSeq   int64
}

func newState() *state {
	return &state{
		sessions: make(map[string]*session.Session),
		balances: make(map[balanceKey]decimal.Decimal),
		disputes: make(map[uuid.UUID]*dispute.Dispute),
		signers:  make(map[string]*releaseauth.Signer),
		nonces:   make(map[string]time.Time),
		rules:    make(map[uuid.UUID]*policy.Rule),
		users:    make(map[uuid.UUID]*user.User),
		tokens:   make(map[string]*authtoken.Token),
	}
}

// Store is the deterministic in-memory backend. All entities live behind one
// RWMutex; reads and writes pass through JSON deep copies so no caller holds
// a pointer into live state. The atomic scope snapshots the whole state and
// restores it when the wrapped function fails, which is how a failed
// settlement leaves nothing half-written.
type Store struct {
	mu sync.RWMutex
	st *state
}

func NewStore() *Store {
	return &Store{st: newState()}
}

// clone deep-copies src into dst through JSON. Entities are plain data, so
// this round-trip is lossless.
func clone[T any](src *T) *T {
	if src == nil {
		return nil
	}
	data, err := json.Marshal(src)
	if err != nil {
		panic(err)
	}
	var dst T
	if err := json.Unmarshal(data, &dst); err != nil {
		panic(err)
	}
	return &dst
}

func (s *Store) snapshot() *state {
	cp := newState()
	for k, v := range s.st.sessions {
		cp.sessions[k] = clone(v)
	}
	cp.params = clone(s.st.params)
	for k, v := range s.st.balances {
		cp.balances[k] = v
	}
	for k, v := range s.st.disputes {
		cp.disputes[k] = clone(v)
	}
	for k, v := range s.st.signers {
		cp.signers[k] = clone(v)
	}
	for k, v := range s.st.nonces {
		cp.nonces[k] = v
	}
	for k, v := range s.st.rules {
		cp.rules[k] = clone(v)
	}
	cp.audits = make([]*audit.AuditLog, len(s.st.audits))
	for i, v := range s.st.audits {
		cp.audits[i] = clone(v)
	}
	for k, v := range s.st.users {
		cp.users[k] = cloneUser(v)
	}
	for k, v := range s.st.tokens {
		cp.tokens[k] = cloneToken(v)
	}
	cp.nextSessionSeq = s.st.nextSessionSeq
	cp.nextDisputeSeq = s.st.nextDisputeSeq
	cp.nextSignerSeq = s.st.nextSignerSeq
	cp.nextRuleSeq = s.st.nextRuleSeq
	cp.nextAuditSeq = s.st.nextAuditSeq
	cp.nextUserSeq = s.st.nextUserSeq
	cp.nextTokenSeq = s.st.nextTokenSeq
	return cp
}

// Scope returns the store's atomic.Scope implementation.
func (s *Store) Scope() *Scope {
	return &Scope{store: s}
}

// Scope snapshots the store before running fn and restores the snapshot when
// fn fails. Scopes do not nest; an inner Within joins the outer one.
type Scope struct {
	store *Store
}

func (s *Scope) Within(ctx context.Context, fn func(ctx context.Context) error) error {
	if inScope(ctx) {
		return fn(ctx)
	}
	s.store.mu.Lock()
	snap := s.store.snapshot()
	s.store.mu.Unlock()

	if err := fn(withScope(ctx)); err != nil {
		s.store.mu.Lock()
		s.store.st = snap
		s.store.mu.Unlock()
		return err
	}
	return nil
}

type scopeKey struct{}

func withScope(ctx context.Context) context.Context {
	return context.WithValue(ctx, scopeKey{}, true)
}

func inScope(ctx context.Context) bool {
	v, _ := ctx.Value(scopeKey{}).(bool)
	return v
}

// --- session.Repository ---

type SessionRepository struct{ store *Store }

func (s *Store) Sessions() *SessionRepository { return &SessionRepository{store: s} }

func (r *SessionRepository) InsertIfAbsent(ctx context.Context, sess *session.Session) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.st.sessions[sess.SessionID]; ok {
		return session.ErrDuplicateID
	}
	r.store.st.nextSessionSeq++
	r.store.st.sessions[sess.SessionID] = clone(sess)
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, sessionID string) (*session.Session, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return clone(r.store.st.sessions[sessionID]), nil
}

func (r *SessionRepository) Replace(ctx context.Context, sess *session.Session) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.st.sessions[sess.SessionID]; !ok {
		return session.ErrNotFound
	}
	r.store.st.sessions[sess.SessionID] = clone(sess)
	return nil
}

func (r *SessionRepository) List(ctx context.Context, filter session.Filter, limit, offset int) ([]*session.Session, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	matched := make([]*session.Session, 0, len(r.store.st.sessions))
	for _, sess := range r.store.st.sessions {
		if filter.Status != nil && sess.Status != *filter.Status {
			continue
		}
		if filter.Account != nil && sess.Payer != *filter.Account && sess.Payee != *filter.Account {
			continue
		}
		if filter.Asset != nil && sess.Asset != *filter.Asset {
			continue
		}
		matched = append(matched, sess)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].SessionID > matched[j].SessionID
	})
	return page(matched, limit, offset), nil
}

func page[T any](items []*T, limit, offset int) []*T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	out := make([]*T, len(items))
	for i, it := range items {
		out[i] = clone(it)
	}
	return out
}

// --- params.Repository ---

type ParamsRepository struct{ store *Store }

func (s *Store) Params() *ParamsRepository { return &ParamsRepository{store: s} }

func (r *ParamsRepository) Create(ctx context.Context, p *params.Parameters) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.st.params != nil {
		return params.ErrAlreadyInitialized
	}
	r.store.st.params = clone(p)
	return nil
}

func (r *ParamsRepository) Get(ctx context.Context) (*params.Parameters, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return clone(r.store.st.params), nil
}

func (r *ParamsRepository) Update(ctx context.Context, p *params.Parameters) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.st.params == nil {
		return params.ErrNotInitialized
	}
	r.store.st.params = clone(p)
	return nil
}

// --- ledger.Ledger ---

type Ledger struct{ store *Store }

func (s *Store) Ledger() *Ledger { return &Ledger{store: s} }

func (l *Ledger) Balance(ctx context.Context, account, asset string) (decimal.Decimal, error) {
	l.store.mu.RLock()
	defer l.store.mu.RUnlock()
	return l.store.st.balances[balanceKey{account, asset}], nil
}

func (l *Ledger) Credit(ctx context.Context, account, asset string, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return ledger.ErrTransfer
	}
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	key := balanceKey{account, asset}
	l.store.st.balances[key] = l.store.st.balances[key].Add(amount)
	return nil
}

func (l *Ledger) Transfer(ctx context.Context, from, to, asset string, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return ledger.ErrTransfer
	}
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	fromKey := balanceKey{from, asset}
	if l.store.st.balances[fromKey].LessThan(amount) {
		return ledger.ErrInsufficientBalance
	}
	toKey := balanceKey{to, asset}
	l.store.st.balances[fromKey] = l.store.st.balances[fromKey].Sub(amount)
	l.store.st.balances[toKey] = l.store.st.balances[toKey].Add(amount)
	return nil
}

func (l *Ledger) Balances(ctx context.Context, account string) (map[string]decimal.Decimal, error) {
	l.store.mu.RLock()
	defer l.store.mu.RUnlock()
	out := make(map[string]decimal.Decimal)
	for key, bal := range l.store.st.balances {
		if key.Account == account {
			out[key.Asset] = bal
		}
	}
	return out, nil
}

// --- dispute.Repository ---

type DisputeRepository struct{ store *Store }

func (s *Store) Disputes() *DisputeRepository { return &DisputeRepository{store: s} }

func (r *DisputeRepository) Create(ctx context.Context, d *dispute.Dispute) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, existing := range r.store.st.disputes {
		if existing.SessionID == d.SessionID && existing.Status == dispute.StatusOpen {
			return dispute.ErrAlreadyOpen
		}
	}
	r.store.st.nextDisputeSeq++
	cp := clone(d)
	cp.ID = r.store.st.nextDisputeSeq
	r.store.st.disputes[d.DisputeID] = cp
	d.ID = cp.ID
	return nil
}

func (r *DisputeRepository) GetByDisputeID(ctx context.Context, disputeID uuid.UUID) (*dispute.Dispute, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return clone(r.store.st.disputes[disputeID]), nil
}

func (r *DisputeRepository) GetOpenBySessionID(ctx context.Context, sessionID string) (*dispute.Dispute, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for _, d := range r.store.st.disputes {
		if d.SessionID == sessionID && d.Status == dispute.StatusOpen {
			return clone(d), nil
		}
	}
	return nil, nil
}

func (r *DisputeRepository) ListBySessionID(ctx context.Context, sessionID string) ([]*dispute.Dispute, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var matched []*dispute.Dispute
	for _, d := range r.store.st.disputes {
		if d.SessionID == sessionID {
			matched = append(matched, d)
		}
	}
	sortDisputes(matched)
	return page(matched, 0, 0), nil
}

func (r *DisputeRepository) List(ctx context.Context, status *dispute.Status, limit, offset int) ([]*dispute.Dispute, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var matched []*dispute.Dispute
	for _, d := range r.store.st.disputes {
		if status != nil && d.Status != *status {
			continue
		}
		matched = append(matched, d)
	}
	sortDisputes(matched)
	return page(matched, limit, offset), nil
}

func (r *DisputeRepository) Update(ctx context.Context, d *dispute.Dispute) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.st.disputes[d.DisputeID]; !ok {
		return dispute.ErrNotFound
	}
	r.store.st.disputes[d.DisputeID] = clone(d)
	return nil
}

func sortDisputes(ds []*dispute.Dispute) {
	sort.Slice(ds, func(i, j int) bool {
		if !ds[i].CreatedAt.Equal(ds[j].CreatedAt) {
			return ds[i].CreatedAt.After(ds[j].CreatedAt)
		}
		return ds[i].ID > ds[j].ID
	})
}

// --- releaseauth.SignerRepository / NonceStore ---

type SignerRepository struct{ store *Store }

func (s *Store) Signers() *SignerRepository { return &SignerRepository{store: s} }

func (r *SignerRepository) Create(ctx context.Context, sg *releaseauth.Signer) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.st.signers[sg.SignerID]; ok {
		return releaseauth.ErrDuplicateSigner
	}
	r.store.st.nextSignerSeq++
	cp := clone(sg)
	cp.ID = r.store.st.nextSignerSeq
	r.store.st.signers[sg.SignerID] = cp
	sg.ID = cp.ID
	return nil
}

func (r *SignerRepository) GetBySignerID(ctx context.Context, signerID string) (*releaseauth.Signer, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return clone(r.store.st.signers[signerID]), nil
}

func (r *SignerRepository) List(ctx context.Context, includeRevoked bool) ([]*releaseauth.Signer, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var matched []*releaseauth.Signer
	for _, sg := range r.store.st.signers {
		if !includeRevoked && sg.RevokedAt != nil {
			continue
		}
		matched = append(matched, sg)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})
	return page(matched, 0, 0), nil
}

func (r *SignerRepository) Revoke(ctx context.Context, signerID string, now time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	sg, ok := r.store.st.signers[signerID]
	if !ok || sg.RevokedAt != nil {
		return releaseauth.ErrSignerNotFound
	}
	at := now
	sg.RevokedAt = &at
	return nil
}

type NonceStore struct{ store *Store }

func (s *Store) Nonces() *NonceStore { return &NonceStore{store: s} }

func (n *NonceStore) MarkUsed(ctx context.Context, nonce string, now time.Time) error {
	n.store.mu.Lock()
	defer n.store.mu.Unlock()
	if _, ok := n.store.st.nonces[nonce]; ok {
		return releaseauth.ErrNonceUsed
	}
	n.store.st.nonces[nonce] = now
	return nil
}

// --- policy.Repository ---

type PolicyRepository struct{ store *Store }

func (s *Store) Rules() *PolicyRepository { return &PolicyRepository{store: s} }

func (r *PolicyRepository) Create(ctx context.Context, rl *policy.Rule) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.st.nextRuleSeq++
	cp := clone(rl)
	cp.ID = r.store.st.nextRuleSeq
	r.store.st.rules[rl.RuleID] = cp
	rl.ID = cp.ID
	return nil
}

func (r *PolicyRepository) GetByRuleID(ctx context.Context, ruleID uuid.UUID) (*policy.Rule, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return clone(r.store.st.rules[ruleID]), nil
}

func (r *PolicyRepository) List(ctx context.Context, filter policy.Filter) ([]*policy.Rule, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var matched []*policy.Rule
	for _, rl := range r.store.st.rules {
		if filter.Status != nil && rl.Status != *filter.Status {
			continue
		}
		matched = append(matched, rl)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})
	return page(matched, 0, 0), nil
}

func (r *PolicyRepository) ListActive(ctx context.Context) ([]*policy.Rule, error) {
	status := policy.RuleStatusActive
	return r.List(ctx, policy.Filter{Status: &status})
}

func (r *PolicyRepository) Update(ctx context.Context, rl *policy.Rule) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.st.rules[rl.RuleID]; !ok {
		return policy.ErrNotFound
	}
	r.store.st.rules[rl.RuleID] = clone(rl)
	return nil
}

func (r *PolicyRepository) UpdateStatus(ctx context.Context, ruleID uuid.UUID, status policy.RuleStatus, updatedBy *string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	rl, ok := r.store.st.rules[ruleID]
	if !ok {
		return policy.ErrNotFound
	}
	rl.Status = status
	rl.UpdatedAt = time.Now().UTC()
	rl.UpdatedBy = updatedBy
	return nil
}

// --- audit.Repository ---

type AuditRepository struct{ store *Store }

func (s *Store) Audits() *AuditRepository { return &AuditRepository{store: s} }

func (r *AuditRepository) Create(ctx context.Context, entry *audit.AuditLog) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.st.nextAuditSeq++
	cp := clone(entry)
	cp.ID = r.store.st.nextAuditSeq
	r.store.st.audits = append(r.store.st.audits, cp)
	entry.ID = cp.ID
	return nil
}

func (r *AuditRepository) GetByID(ctx context.Context, auditID uuid.UUID) (*audit.AuditLog, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for _, log := range r.store.st.audits {
		if log.AuditID == auditID {
			return clone(log), nil
		}
	}
	return nil, nil
}

func (r *AuditRepository) Query(ctx context.Context, filter audit.QueryFilter, cursor *audit.Cursor, limit int) ([]*audit.AuditLog, *audit.Cursor, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	matched := make([]*audit.AuditLog, 0, len(r.store.st.audits))
	for _, log := range r.store.st.audits {
		if matchesAuditFilter(log, filter) {
			matched = append(matched, log)
		}
	}
	// Newest first, id breaking created_at ties.
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})
	if cursor != nil {
		after := make([]*audit.AuditLog, 0, len(matched))
		for _, log := range matched {
			if log.CreatedAt.Before(cursor.CreatedAt) ||
				(log.CreatedAt.Equal(cursor.CreatedAt) && log.ID < cursor.ID) {
				after = append(after, log)
			}
		}
		matched = after
	}

	out := page(matched, limit, 0)
	var nextCursor *audit.Cursor
	if len(out) == limit && limit > 0 {
		last := out[len(out)-1]
		nextCursor = &audit.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return out, nextCursor, nil
}

func (r *AuditRepository) GetByEntityID(ctx context.Context, entityType audit.EntityType, entityID string) ([]*audit.AuditLog, error) {
	et := entityType
	logs, _, err := r.Query(ctx, audit.QueryFilter{EntityType: &et, EntityID: &entityID}, nil, 0)
	return logs, err
}

func (r *AuditRepository) Count(ctx context.Context, filter audit.QueryFilter) (int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var count int64
	for _, log := range r.store.st.audits {
		if matchesAuditFilter(log, filter) {
			count++
		}
	}
	return count, nil
}

func matchesAuditFilter(log *audit.AuditLog, f audit.QueryFilter) bool {
	if f.EntityType != nil && log.EntityType != *f.EntityType {
		return false
	}
	if f.EntityID != nil && log.EntityID != *f.EntityID {
		return false
	}
	if f.Action != nil && log.Action != *f.Action {
		return false
	}
	if f.Actor != nil && log.Actor != *f.Actor {
		return false
	}
	if f.RiskLevel != nil && log.RiskLevel != *f.RiskLevel {
		return false
	}
	if f.SessionID != nil && log.SessionID != *f.SessionID {
		return false
	}
	if f.StartTime != nil && log.CreatedAt.Before(*f.StartTime) {
		return false
	}
	if f.EndTime != nil && log.CreatedAt.After(*f.EndTime) {
		return false
	}
	if f.TraceID != nil && log.TraceID != *f.TraceID {
		return false
	}
	for _, want := range f.Tags {
		found := false
		for _, have := range log.Tags {
			if strings.EqualFold(have, want) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// --- user.Repository ---

type UserRepository struct{ store *Store }

func (s *Store) Users() *UserRepository { return &UserRepository{store: s} }

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, existing := range r.store.st.users {
		if existing.Username == u.Username {
			return errors.New("username already taken")
		}
	}
	r.store.st.nextUserSeq++
	cp := cloneUser(u)
	cp.ID = r.store.st.nextUserSeq
	r.store.st.users[u.UserID] = cp
	u.ID = cp.ID
	return nil
}

func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.st.users[u.UserID]; !ok {
		return nil
	}
	r.store.st.users[u.UserID] = cloneUser(u)
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, userID uuid.UUID) (*user.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return cloneUser(r.store.st.users[userID]), nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for _, u := range r.store.st.users {
		if u.Username == username {
			return cloneUser(u), nil
		}
	}
	return nil, nil
}

func (r *UserRepository) List(ctx context.Context, filter user.Filter, limit, offset int) ([]*user.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var matched []*user.User
	for _, u := range r.store.st.users {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		if filter.Status != nil && u.Status != *filter.Status {
			continue
		}
		if filter.Username != nil && u.Username != *filter.Username {
			continue
		}
		matched = append(matched, u)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	out := make([]*user.User, len(matched))
	for i, u := range matched {
		out[i] = cloneUser(u)
	}
	return out, nil
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return len(r.store.st.users), nil
}

// cloneUser preserves the password hash, which json round-trips drop because
// the field is tagged "-".
func cloneUser(u *user.User) *user.User {
	if u == nil {
		return nil
	}
	cp := clone(u)
	cp.PasswordHash = u.PasswordHash
	return cp
}

// --- authtoken.Repository ---

type AuthTokenRepository struct{ store *Store }

func (s *Store) Tokens() *AuthTokenRepository { return &AuthTokenRepository{store: s} }

// cloneToken preserves the token hash, which json round-trips drop because
// the field is tagged "-".
func cloneToken(t *authtoken.Token) *authtoken.Token {
	if t == nil {
		return nil
	}
	cp := clone(t)
	cp.TokenHash = t.TokenHash
	return cp
}

func (r *AuthTokenRepository) Create(ctx context.Context, t *authtoken.Token) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.st.nextTokenSeq++
	cp := cloneToken(t)
	cp.ID = r.store.st.nextTokenSeq
	r.store.st.tokens[t.TokenHash] = cp
	t.ID = cp.ID
	return nil
}

func (r *AuthTokenRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*authtoken.Token, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return cloneToken(r.store.st.tokens[tokenHash]), nil
}

func (r *AuthTokenRepository) DeleteByID(ctx context.Context, tokenID uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for hash, t := range r.store.st.tokens {
		if t.TokenID == tokenID {
			delete(r.store.st.tokens, hash)
			return nil
		}
	}
	return nil
}

func (r *AuthTokenRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.st.tokens, tokenHash)
	return nil
}

func (r *AuthTokenRepository) UpdateLastSeen(ctx context.Context, tokenID uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	now := time.Now().UTC()
	for _, t := range r.store.st.tokens {
		if t.TokenID == tokenID {
			t.LastSeenAt = &now
			return nil
		}
	}
	return nil
}

func (r *AuthTokenRepository) DeleteExpired(ctx context.Context) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	now := time.Now().UTC()
	deleted := 0
	for hash, t := range r.store.st.tokens {
		if t.IsExpired(now) {
			delete(r.store.st.tokens, hash)
			deleted++
		}
	}
	return deleted, nil
}
