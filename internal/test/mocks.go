package test

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Stewz00/go-backoffice-service/internal/interfaces"
	"github.com/Stewz00/go-backoffice-service/internal/mailer"
	"github.com/Stewz00/go-backoffice-service/internal/model"
	"github.com/Stewz00/go-backoffice-service/internal/ratelimit"
	"github.com/Stewz00/go-backoffice-service/internal/repository"
	"github.com/google/uuid"
)

// MockRateLimitStore is an in-memory ratelimit.Store.
type MockRateLimitStore struct {
	mu      sync.Mutex
	records map[string]model.RateLimit
}

var _ ratelimit.Store = (*MockRateLimitStore)(nil)

func NewMockRateLimitStore() *MockRateLimitStore {
	return &MockRateLimitStore{records: make(map[string]model.RateLimit)}
}

func (s *MockRateLimitStore) Get(_ context.Context, key string) (*model.RateLimit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		return nil, ratelimit.ErrNoRecord
	}
	return &rec, nil
}

func (s *MockRateLimitStore) Reset(_ context.Context, key string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = model.RateLimit{Key: key, Count: 1, ExpiresAt: expiresAt}
	return nil
}

func (s *MockRateLimitStore) Increment(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		return ratelimit.ErrNoRecord
	}
	rec.Count++
	s.records[key] = rec
	return nil
}

func (s *MockRateLimitStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

// MockMailer records every message instead of sending it.
type MockMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	Err  error
}

var _ mailer.Sender = (*MockMailer)(nil)

func (m *MockMailer) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *MockMailer) Sent() []mailer.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mailer.Message(nil), m.sent...)
}

// Last returns the most recent message, or the zero Message.
func (m *MockMailer) Last() mailer.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return mailer.Message{}
	}
	return m.sent[len(m.sent)-1]
}

type MockCompanyRepository struct {
	mu        sync.Mutex
	companies []model.Company
}

var _ interfaces.CompanyRepository = (*MockCompanyRepository)(nil)

func NewMockCompanyRepository() *MockCompanyRepository {
	return &MockCompanyRepository{}
}

func (r *MockCompanyRepository) UpsertCompany(_ context.Context, c model.Company) (*model.Company, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for i := range r.companies {
		if r.companies[i].CNPJ == c.CNPJ {
			c.ID = r.companies[i].ID
			c.Created = r.companies[i].Created
			c.Updated = now
			r.companies[i] = c
			return &c, nil
		}
	}
	c.ID = int64(len(r.companies) + 1)
	c.Created, c.Updated = now, now
	r.companies = append(r.companies, c)
	return &c, nil
}

func (r *MockCompanyRepository) FirstCompany(ctx context.Context) (*model.Company, error) {
	return r.GetCompany(ctx, 1)
}

func (r *MockCompanyRepository) GetCompany(_ context.Context, id int64) (*model.Company, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.companies {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, repository.ErrCompanyNotFound
}

func (r *MockCompanyRepository) ListCompanies(_ context.Context) ([]model.Company, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Company{}, r.companies...), nil
}

type MockPdvRepository struct {
	mu  sync.Mutex
	cfg *model.PdvIntegration
}

var _ interfaces.PdvRepository = (*MockPdvRepository)(nil)

func NewMockPdvRepository() *MockPdvRepository {
	return &MockPdvRepository{}
}

func (r *MockPdvRepository) GetPdvConfig(_ context.Context) (*model.PdvIntegration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cfg == nil {
		return nil, repository.ErrPdvConfigNotFound
	}
	c := *r.cfg
	return &c, nil
}

func (r *MockPdvRepository) SavePdvConfig(_ context.Context, cfg model.PdvIntegration) (*model.PdvIntegration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg.ID = 1
	cfg.AccessToken = ""
	cfg.Updated = time.Now()
	r.cfg = &cfg
	c := cfg
	return &c, nil
}

func (r *MockPdvRepository) SetPdvAccessToken(_ context.Context, id int64, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cfg == nil || r.cfg.ID != id {
		return repository.ErrPdvConfigNotFound
	}
	r.cfg.AccessToken = token
	return nil
}

type MockLicenseRepository struct {
	mu       sync.Mutex
	groups   map[int]model.LicenseGroup
	branches map[int]model.LicenseBranch
}

var _ interfaces.LicenseRepository = (*MockLicenseRepository)(nil)

func NewMockLicenseRepository() *MockLicenseRepository {
	return &MockLicenseRepository{
		groups:   make(map[int]model.LicenseGroup),
		branches: make(map[int]model.LicenseBranch),
	}
}

func (r *MockLicenseRepository) UpsertLicenseGroup(_ context.Context, g model.LicenseGroup) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.groups[g.CodGrupo]; ok {
		g.ID = old.ID
	} else {
		g.ID = int64(len(r.groups) + 1)
	}
	r.groups[g.CodGrupo] = g
	return g.ID, nil
}

func (r *MockLicenseRepository) UpsertLicenseBranch(_ context.Context, b model.LicenseBranch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.branches[b.CodFilial]; ok {
		b.ID = old.ID
	} else {
		b.ID = int64(len(r.branches) + 1)
	}
	r.branches[b.CodFilial] = b
	return nil
}

func (r *MockLicenseRepository) Groups() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.groups)
}

func (r *MockLicenseRepository) Branch(codFilial int) (model.LicenseBranch, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.branches[codFilial]
	return b, ok
}

func (r *MockLicenseRepository) groupByID(id int64) (model.LicenseGroup, bool) {
	for _, g := range r.groups {
		if g.ID == id {
			return g, true
		}
	}
	return model.LicenseGroup{}, false
}

// ListHeadOffices matches the search against the branch name only.
func (r *MockLicenseRepository) ListHeadOffices(_ context.Context, filter model.LicenseFilter) ([]model.LicenseBranch, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	search := strings.ToLower(filter.Search)
	var out []model.LicenseBranch
	for _, b := range r.branches {
		if !b.Matriz || !strings.Contains(strings.ToLower(b.Nome), search) {
			continue
		}
		if g, ok := r.groupByID(b.GroupID); ok {
			for _, f := range r.branches {
				if f.GroupID == g.ID && !f.Matriz {
					g.Filiais = append(g.Filiais, f)
				}
			}
			sort.Slice(g.Filiais, func(i, j int) bool { return g.Filiais[i].CodFilial < g.Filiais[j].CodFilial })
			b.Grupo = &g
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DataCadastroAPI.After(out[j].DataCadastroAPI) })

	total := len(out)
	start := min((filter.Page-1)*filter.Limit, total)
	end := min(start+filter.Limit, total)
	return out[start:end], total, nil
}

// CountActiveBranches follows SQL NOT IN semantics: a branch whose group has no product is not counted.
func (r *MockLicenseRepository) CountActiveBranches(_ context.Context, excludedProducts []string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, b := range r.branches {
		g, ok := r.groupByID(b.GroupID)
		if !b.Ativo || !ok || g.Produto == nil {
			continue
		}
		excluded := false
		for _, p := range excludedProducts {
			if *g.Produto == p {
				excluded = true
			}
		}
		if !excluded {
			n++
		}
	}
	return n, nil
}

func (r *MockLicenseRepository) CountInactiveBranches(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, b := range r.branches {
		if !b.Ativo {
			n++
		}
	}
	return n, nil
}

func (r *MockLicenseRepository) BranchProducts(_ context.Context, sistema string) ([]model.BranchProduct, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.BranchProduct
	for _, b := range r.branches {
		if b.Sistema != sistema {
			continue
		}
		bp := model.BranchProduct{Ativo: b.Ativo}
		if g, ok := r.groupByID(b.GroupID); ok {
			bp.Produto = g.Produto
		}
		out = append(out, bp)
	}
	return out, nil
}

// MockContaAzulRepository enforces the same foreign keys as the schema:
// integrations and customers need a known company, receivables a known customer.
type MockContaAzulRepository struct {
	mu           sync.Mutex
	companies    map[int64]bool
	integrations map[int64]model.ContaAzulIntegration
	customers    map[string]model.ContaAzulCustomer
	receivables  map[string]model.ContaAzulReceivable
	failCustomer string
}

var _ interfaces.ContaAzulRepository = (*MockContaAzulRepository)(nil)

func NewMockContaAzulRepository(companyIDs ...int64) *MockContaAzulRepository {
	r := &MockContaAzulRepository{
		companies:    make(map[int64]bool),
		integrations: make(map[int64]model.ContaAzulIntegration),
		customers:    make(map[string]model.ContaAzulCustomer),
		receivables:  make(map[string]model.ContaAzulReceivable),
	}
	for _, id := range companyIDs {
		r.companies[id] = true
	}
	return r
}

// SetIntegration stores the integration as is, including its Updated stamp.
func (r *MockContaAzulRepository) SetIntegration(in model.ContaAzulIntegration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.integrations[in.CompanyID] = in
}

// FailCustomerUpsert makes UpsertCustomer fail for the given Conta Azul id.
func (r *MockContaAzulRepository) FailCustomerUpsert(caID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failCustomer = caID
}

func (r *MockContaAzulRepository) Customer(caID string) (model.ContaAzulCustomer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.customers[caID]
	return c, ok
}

func (r *MockContaAzulRepository) Receivable(caID string) (model.ContaAzulReceivable, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rc, ok := r.receivables[caID]
	return rc, ok
}

func (r *MockContaAzulRepository) GetContaAzulIntegration(_ context.Context, companyID int64) (*model.ContaAzulIntegration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	in, ok := r.integrations[companyID]
	if !ok {
		return nil, repository.ErrIntegrationNotFound
	}
	return &in, nil
}

func (r *MockContaAzulRepository) SaveContaAzulIntegration(_ context.Context, in model.ContaAzulIntegration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.companies[in.CompanyID] {
		return repository.ErrCompanyNotFound
	}
	in.Updated = time.Now()
	r.integrations[in.CompanyID] = in
	return nil
}

func (r *MockContaAzulRepository) UpsertCustomer(_ context.Context, c model.ContaAzulCustomer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.companies[c.CompanyID] {
		return repository.ErrCompanyNotFound
	}
	if c.CaID == r.failCustomer {
		return repository.ErrCustomerNotFound
	}
	if old, ok := r.customers[c.CaID]; ok {
		c.ID = old.ID
		c.IDLegado, c.UUIDLegado, c.DataCriacaoCA = old.IDLegado, old.UUIDLegado, old.DataCriacaoCA
		c.ContratoID, c.ContratoStatus, c.ContratoNumero = old.ContratoID, old.ContratoStatus, old.ContratoNumero
		c.ContratoInicio, c.ContratoVencimento = old.ContratoInicio, old.ContratoVencimento
	} else {
		c.ID = int64(len(r.customers) + 1)
	}
	r.customers[c.CaID] = c
	return nil
}

func (r *MockContaAzulRepository) AttachContract(_ context.Context, k model.ContaAzulContract) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.customers[k.CustomerID]
	if !ok {
		return repository.ErrCustomerNotFound
	}
	id, status, numero := k.ID, k.Status, k.Numero
	c.ContratoID, c.ContratoStatus, c.ContratoNumero = &id, &status, &numero
	c.ContratoInicio, c.ContratoVencimento = k.Inicio, k.Vencimento
	r.customers[k.CustomerID] = c
	return nil
}

func (r *MockContaAzulRepository) UpsertReceivable(_ context.Context, rc model.ContaAzulReceivable) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.customers[rc.CustomerCaID]; !ok {
		return repository.ErrCustomerNotFound
	}
	if old, ok := r.receivables[rc.CaID]; ok {
		rc.ID = old.ID
	} else {
		rc.ID = int64(len(r.receivables) + 1)
	}
	r.receivables[rc.CaID] = rc
	return nil
}

func (r *MockContaAzulRepository) ReceivablesDueBetween(_ context.Context, companyID int64, from, to time.Time) ([]model.ContaAzulReceivable, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.ContaAzulReceivable{}
	for _, rc := range r.receivables {
		if rc.CompanyID != companyID || rc.DueDate.Before(from) || rc.DueDate.After(to) {
			continue
		}
		c := r.customers[rc.CustomerCaID]
		rc.Customer = &c
		out = append(out, rc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}

func (r *MockContaAzulRepository) Receivables(_ context.Context, companyID int64) ([]model.ContaAzulReceivable, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.ContaAzulReceivable
	for _, rc := range r.receivables {
		if rc.CompanyID == companyID {
			out = append(out, rc)
		}
	}
	return out, nil
}

// MockEventRepository is an in-memory outbox.
type MockEventRepository struct {
	mu     sync.Mutex
	events []model.Event
	done   map[uuid.UUID]bool
}

var _ interfaces.EventRepository = (*MockEventRepository)(nil)

func NewMockEventRepository() *MockEventRepository {
	return &MockEventRepository{done: make(map[uuid.UUID]bool)}
}

func (r *MockEventRepository) SaveEvent(_ context.Context, eventType, payload string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, model.Event{ID: uuid.New(), Type: eventType, Payload: payload, Created: time.Now()})
	return nil
}

func (r *MockEventRepository) NewEvents(_ context.Context, limit int) ([]model.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Event
	for _, e := range r.events {
		if !r.done[e.ID] && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *MockEventRepository) SetEventDone(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done[id] = true
	return nil
}

// Types lists the types of every saved event in order.
func (r *MockEventRepository) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}
