package store

import (
	"context"
	"maps"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/terrafield/landledger/internal/domain"
)

// memoryState holds all protocol tables as plain maps
type memoryState struct {
	land        map[uint64]domain.LandRecord
	nonces      map[string]struct{}
	accounts    map[common.Address][]uint64
	active      map[common.Address]domain.Agreement
	tenantHist  map[common.Address][]domain.Agreement
	propHist    map[uint64][]domain.Agreement
	pools       map[uint64]domain.RightsPool
	transferred map[uint64]domain.Quantity
}

func newMemoryState() *memoryState {
	return &memoryState{
		land:        make(map[uint64]domain.LandRecord),
		nonces:      make(map[string]struct{}),
		accounts:    make(map[common.Address][]uint64),
		active:      make(map[common.Address]domain.Agreement),
		tenantHist:  make(map[common.Address][]domain.Agreement),
		propHist:    make(map[uint64][]domain.Agreement),
		pools:       make(map[uint64]domain.RightsPool),
		transferred: make(map[uint64]domain.Quantity),
	}
}

// clone deep-copies the state so a failed transaction can be rolled back
func (st *memoryState) clone() *memoryState {
	c := &memoryState{
		land:        maps.Clone(st.land),
		nonces:      maps.Clone(st.nonces),
		accounts:    make(map[common.Address][]uint64, len(st.accounts)),
		active:      maps.Clone(st.active),
		tenantHist:  make(map[common.Address][]domain.Agreement, len(st.tenantHist)),
		propHist:    make(map[uint64][]domain.Agreement, len(st.propHist)),
		pools:       maps.Clone(st.pools),
		transferred: maps.Clone(st.transferred),
	}
	for k, v := range st.accounts {
		c.accounts[k] = append([]uint64(nil), v...)
	}
	for k, v := range st.tenantHist {
		c.tenantHist[k] = append([]domain.Agreement(nil), v...)
	}
	for k, v := range st.propHist {
		c.propHist[k] = append([]domain.Agreement(nil), v...)
	}
	return c
}

// memoryStore is a mutex-guarded in-memory Store. It reproduces the
// serial-atomic execution substrate the protocol assumes: every call, and
// every transaction, holds the whole-state lock end to end.
type memoryStore struct {
	mu    sync.Mutex
	state *memoryState
}

// NewMemoryStore creates a new in-memory store instance
func NewMemoryStore() Store {
	return &memoryStore{state: newMemoryState()}
}

func (s *memoryStore) GetLandRecord(_ context.Context, tokenID uint64) (*domain.LandRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.getLandRecord(tokenID), nil
}

func (s *memoryStore) HasDocument(_ context.Context, documentHash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.state.nonces[documentHash]
	return ok, nil
}

func (s *memoryStore) CreateLandRecord(_ context.Context, record *domain.LandRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.land[record.TokenID] = *record
	return nil
}

func (s *memoryStore) MarkDocumentUsed(_ context.Context, documentHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.nonces[documentHash] = struct{}{}
	return nil
}

func (s *memoryStore) AppendAccountProperty(_ context.Context, attestor common.Address, tokenID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.accounts[attestor] = append(s.state.accounts[attestor], tokenID)
	return nil
}

func (s *memoryStore) GetAccountProperty(_ context.Context, attestor common.Address, idx uint64) (*uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	props := s.state.accounts[attestor]
	if idx >= uint64(len(props)) {
		return nil, nil
	}
	tokenID := props[idx]
	return &tokenID, nil
}

func (s *memoryStore) CountLandRecords(_ context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return uint64(len(s.state.land)), nil
}

func (s *memoryStore) GetActiveAgreement(_ context.Context, tenant common.Address) (*domain.Agreement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.getActiveAgreement(tenant), nil
}

func (s *memoryStore) PutActiveAgreement(_ context.Context, agreement *domain.Agreement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.active[agreement.Tenant] = *agreement
	return nil
}

func (s *memoryStore) AppendTenantHistory(_ context.Context, agreement *domain.Agreement) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.tenantHist[agreement.Tenant] = append(s.state.tenantHist[agreement.Tenant], *agreement)
	return uint64(len(s.state.tenantHist[agreement.Tenant])), nil
}

func (s *memoryStore) AppendPropertyHistory(_ context.Context, agreement *domain.Agreement) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.propHist[agreement.TokenID] = append(s.state.propHist[agreement.TokenID], *agreement)
	return uint64(len(s.state.propHist[agreement.TokenID])), nil
}

func (s *memoryStore) TenantHistoryCount(_ context.Context, tenant common.Address) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return uint64(len(s.state.tenantHist[tenant])), nil
}

func (s *memoryStore) PropertyHistoryCount(_ context.Context, tokenID uint64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return uint64(len(s.state.propHist[tokenID])), nil
}

func (s *memoryStore) TenantHistoryAt(_ context.Context, tenant common.Address, idx uint64) (*domain.Agreement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hist := s.state.tenantHist[tenant]
	if idx == 0 || idx > uint64(len(hist)) {
		return nil, nil
	}
	agreement := hist[idx-1]
	return &agreement, nil
}

func (s *memoryStore) PropertyHistoryAt(_ context.Context, tokenID uint64, idx uint64) (*domain.Agreement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hist := s.state.propHist[tokenID]
	if idx == 0 || idx > uint64(len(hist)) {
		return nil, nil
	}
	agreement := hist[idx-1]
	return &agreement, nil
}

func (s *memoryStore) ListElapsedAgreements(_ context.Context, now uint64, limit int) ([]*domain.Agreement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var elapsed []*domain.Agreement
	for _, agreement := range s.state.active {
		if len(elapsed) >= limit {
			break
		}
		if !agreement.Fulfilled && agreement.Size > 0 && agreement.Duration < now {
			a := agreement
			elapsed = append(elapsed, &a)
		}
	}
	return elapsed, nil
}

func (s *memoryStore) GetRightsPool(_ context.Context, tokenID uint64) (*domain.RightsPool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pool, ok := s.state.pools[tokenID]
	if !ok {
		return nil, nil
	}
	return &pool, nil
}

func (s *memoryStore) PutRightsPool(_ context.Context, tokenID uint64, pool domain.RightsPool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.pools[tokenID] = pool
	return nil
}

func (s *memoryStore) GetTransferred(_ context.Context, tokenID uint64) (domain.Quantity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.transferred[tokenID], nil
}

func (s *memoryStore) SetTransferred(_ context.Context, tokenID uint64, quantity domain.Quantity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.transferred[tokenID] = quantity
	return nil
}

// WithTransaction holds the whole-state lock for the duration of fn and
// restores a pre-transaction snapshot if fn fails.
func (s *memoryStore) WithTransaction(ctx context.Context, fn func(Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(&memoryTx{state: s.state}); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

func (st *memoryState) getLandRecord(tokenID uint64) *domain.LandRecord {
	record, ok := st.land[tokenID]
	if !ok {
		return nil
	}
	return &record
}

func (st *memoryState) getActiveAgreement(tenant common.Address) *domain.Agreement {
	agreement, ok := st.active[tenant]
	if !ok {
		return nil
	}
	return &agreement
}

// memoryTx operates on the shared state while the outer lock is held
type memoryTx struct {
	state *memoryState
}

func (t *memoryTx) GetLandRecord(_ context.Context, tokenID uint64) (*domain.LandRecord, error) {
	return t.state.getLandRecord(tokenID), nil
}

func (t *memoryTx) HasDocument(_ context.Context, documentHash string) (bool, error) {
	_, ok := t.state.nonces[documentHash]
	return ok, nil
}

func (t *memoryTx) CreateLandRecord(_ context.Context, record *domain.LandRecord) error {
	t.state.land[record.TokenID] = *record
	return nil
}

func (t *memoryTx) MarkDocumentUsed(_ context.Context, documentHash string) error {
	t.state.nonces[documentHash] = struct{}{}
	return nil
}

func (t *memoryTx) AppendAccountProperty(_ context.Context, attestor common.Address, tokenID uint64) error {
	t.state.accounts[attestor] = append(t.state.accounts[attestor], tokenID)
	return nil
}

func (t *memoryTx) GetAccountProperty(_ context.Context, attestor common.Address, idx uint64) (*uint64, error) {
	props := t.state.accounts[attestor]
	if idx >= uint64(len(props)) {
		return nil, nil
	}
	tokenID := props[idx]
	return &tokenID, nil
}

func (t *memoryTx) CountLandRecords(_ context.Context) (uint64, error) {
	return uint64(len(t.state.land)), nil
}

func (t *memoryTx) GetActiveAgreement(_ context.Context, tenant common.Address) (*domain.Agreement, error) {
	return t.state.getActiveAgreement(tenant), nil
}

func (t *memoryTx) PutActiveAgreement(_ context.Context, agreement *domain.Agreement) error {
	t.state.active[agreement.Tenant] = *agreement
	return nil
}

func (t *memoryTx) AppendTenantHistory(_ context.Context, agreement *domain.Agreement) (uint64, error) {
	t.state.tenantHist[agreement.Tenant] = append(t.state.tenantHist[agreement.Tenant], *agreement)
	return uint64(len(t.state.tenantHist[agreement.Tenant])), nil
}

func (t *memoryTx) AppendPropertyHistory(_ context.Context, agreement *domain.Agreement) (uint64, error) {
	t.state.propHist[agreement.TokenID] = append(t.state.propHist[agreement.TokenID], *agreement)
	return uint64(len(t.state.propHist[agreement.TokenID])), nil
}

func (t *memoryTx) TenantHistoryCount(_ context.Context, tenant common.Address) (uint64, error) {
	return uint64(len(t.state.tenantHist[tenant])), nil
}

func (t *memoryTx) PropertyHistoryCount(_ context.Context, tokenID uint64) (uint64, error) {
	return uint64(len(t.state.propHist[tokenID])), nil
}

func (t *memoryTx) TenantHistoryAt(_ context.Context, tenant common.Address, idx uint64) (*domain.Agreement, error) {
	hist := t.state.tenantHist[tenant]
	if idx == 0 || idx > uint64(len(hist)) {
		return nil, nil
	}
	agreement := hist[idx-1]
	return &agreement, nil
}

func (t *memoryTx) PropertyHistoryAt(_ context.Context, tokenID uint64, idx uint64) (*domain.Agreement, error) {
	hist := t.state.propHist[tokenID]
	if idx == 0 || idx > uint64(len(hist)) {
		return nil, nil
	}
	agreement := hist[idx-1]
	return &agreement, nil
}

func (t *memoryTx) ListElapsedAgreements(_ context.Context, now uint64, limit int) ([]*domain.Agreement, error) {
	var elapsed []*domain.Agreement
	for _, agreement := range t.state.active {
		if len(elapsed) >= limit {
			break
		}
		if !agreement.Fulfilled && agreement.Size > 0 && agreement.Duration < now {
			a := agreement
			elapsed = append(elapsed, &a)
		}
	}
	return elapsed, nil
}

func (t *memoryTx) GetRightsPool(_ context.Context, tokenID uint64) (*domain.RightsPool, error) {
	pool, ok := t.state.pools[tokenID]
	if !ok {
		return nil, nil
	}
	return &pool, nil
}

func (t *memoryTx) PutRightsPool(_ context.Context, tokenID uint64, pool domain.RightsPool) error {
	t.state.pools[tokenID] = pool
	return nil
}

func (t *memoryTx) GetTransferred(_ context.Context, tokenID uint64) (domain.Quantity, error) {
	return t.state.transferred[tokenID], nil
}

func (t *memoryTx) SetTransferred(_ context.Context, tokenID uint64, quantity domain.Quantity) error {
	t.state.transferred[tokenID] = quantity
	return nil
}

// WithTransaction inside a transaction reuses the already-held lock
func (t *memoryTx) WithTransaction(ctx context.Context, fn func(Store) error) error {
	return fn(t)
}
