package service

import (
	"context"
	"testing"
	"time"

	"github.com/Stewz00/go-backoffice-service/internal/events"
	"github.com/Stewz00/go-backoffice-service/internal/integration/flexjson"
	"github.com/Stewz00/go-backoffice-service/internal/integration/pdvlegal"
	"github.com/Stewz00/go-backoffice-service/internal/lib/logger"
	"github.com/Stewz00/go-backoffice-service/internal/model"
	"github.com/Stewz00/go-backoffice-service/internal/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func product(p string) *string { return &p }

type licenseFixture struct {
	svc    *LicenseService
	repo   *test.MockLicenseRepository
	pdv    *test.MockPdvRepository
	client *fakePdvClient
	events *test.MockEventRepository
}

func newLicenseFixture(t *testing.T, withToken bool) *licenseFixture {
	t.Helper()
	ctx := context.Background()

	f := &licenseFixture{
		repo:   test.NewMockLicenseRepository(),
		pdv:    test.NewMockPdvRepository(),
		client: &fakePdvClient{pages: map[int][]pdvlegal.Group{}, pageErr: map[int]error{}},
		events: test.NewMockEventRepository(),
	}
	if withToken {
		cfg, err := f.pdv.SavePdvConfig(ctx, validPdvConfig())
		require.NoError(t, err)
		require.NoError(t, f.pdv.SetPdvAccessToken(ctx, cfg.ID, "tok"))
	}

	log := logger.Discard()
	f.svc = NewLicenseService(log, f.repo, f.pdv, f.client, 0).
		WithEvents(events.NewRecorder(f.events, log))
	return f
}

func TestLicenseService_Sync(t *testing.T) {
	f := newLicenseFixture(t, true)
	registered := time.Date(2023, 5, 1, 10, 0, 0, 0, time.UTC)

	f.client.pages[1] = []pdvlegal.Group{
		{
			CodGrupo:     10,
			NomeGrupo:    "Rede Sol",
			Ativo:        true,
			CpfCnpj:      "11222333000144",
			Produto:      product("GESTAO LEGAL"),
			DataCadastro: flexjson.Time{Time: registered},
			Filiais: []pdvlegal.Branch{
				{CodFilial: 100, NomeFilial: "Sol Matriz", Ativo: true, Matriz: true},
				{CodFilial: 101, NomeFilial: "Sol Centro", Ativo: true},
			},
		},
	}
	f.client.pages[2] = []pdvlegal.Group{
		{CodGrupo: 20, NomeGrupo: "Delivery Bom", Produto: product("DELIVERY LEGAL"),
			Filiais: []pdvlegal.Branch{{CodFilial: 200, NomeFilial: "Bom", Matriz: true}}},
	}

	res, err := f.svc.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Groups)
	assert.Equal(t, 3, res.Branches)
	assert.Equal(t, "Foram sincronizados 2 Grupos e 3 Lojas", res.Message)
	assert.Equal(t, []int{1, 2, 3}, f.client.requested)

	b, ok := f.repo.Branch(101)
	require.True(t, ok)
	assert.Equal(t, model.SistemaPdvLegal, b.Sistema)
	assert.Equal(t, 10, b.CodGrupo)
	head, _ := f.repo.Branch(100)
	assert.True(t, head.Matriz)
	assert.Equal(t, "Sol Matriz", head.Nome)

	missing, _ := f.repo.Branch(200)
	assert.WithinDuration(t, time.Now(), missing.DataCadastroAPI, time.Minute, "missing date falls back to now")

	assert.Equal(t, []string{model.EventSyncCompleted}, f.events.Types())
}

func TestLicenseService_SyncStopsOnEmptyPage(t *testing.T) {
	f := newLicenseFixture(t, true)
	f.client.pages[1] = []pdvlegal.Group{{CodGrupo: 1}}
	f.client.pages[2] = []pdvlegal.Group{}
	f.client.pages[3] = []pdvlegal.Group{{CodGrupo: 3}}

	res, err := f.svc.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Groups)
	assert.Equal(t, 1, f.repo.Groups())
}

func TestLicenseService_SyncErrors(t *testing.T) {
	f := newLicenseFixture(t, false)
	_, err := f.svc.Sync(context.Background())
	assert.ErrorIs(t, err, ErrNotConnected)

	f = newLicenseFixture(t, true)
	f.client.pages[1] = []pdvlegal.Group{{CodGrupo: 1}}
	f.client.pageErr[2] = &pdvlegal.StatusError{StatusCode: 500}

	_, err = f.svc.Sync(context.Background())
	var upstream *UpstreamError
	assert.ErrorAs(t, err, &upstream)
	assert.Empty(t, f.events.Types(), "failed sync emits no event")
}

func TestLicenseService_Stats(t *testing.T) {
	f := newLicenseFixture(t, false)
	ctx := context.Background()

	groups := []struct {
		cod      int
		product  *string
		branches []bool // active flags
	}{
		{cod: 1, product: product("GESTAO LEGAL"), branches: []bool{true, true, false}},
		{cod: 2, product: product("DELIVERY LEGAL"), branches: []bool{true}},
		{cod: 3, product: product("CERTIFICADO DIGITAL"), branches: []bool{true, false}},
		{cod: 4, product: nil, branches: []bool{true, true, true}},
		{cod: 5, product: product(""), branches: []bool{true}},
	}
	filial := 0
	for _, g := range groups {
		id, err := f.repo.UpsertLicenseGroup(ctx, model.LicenseGroup{CodGrupo: g.cod, Produto: g.product})
		require.NoError(t, err)
		for _, active := range g.branches {
			filial++
			require.NoError(t, f.repo.UpsertLicenseBranch(ctx, model.LicenseBranch{
				CodFilial: filial, GroupID: id, CodGrupo: g.cod, Ativo: active, Sistema: model.SistemaPdvLegal,
			}))
		}
	}

	stats, err := f.svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Ativas, "delivery, certificates and NULL products are not licenses")
	assert.Equal(t, 2, stats.Inativas)
	assert.Equal(t, 10, stats.PdvLegal.Total)
	assert.Equal(t, []model.ProductStat{
		{Name: "OUTROS", Active: 4},
		{Name: "Gestão", Active: 2, Inactive: 1},
		{Name: "Delivery", Active: 1},
		{Name: "Cert. Digital", Active: 1, Inactive: 1},
	}, sortedForTest(stats.PdvLegal.Details))
}

// sortedForTest breaks ties between equal active counts by the order used above.
func sortedForTest(in []model.ProductStat) []model.ProductStat {
	rank := map[string]int{"OUTROS": 0, "Gestão": 1, "Delivery": 2, "Cert. Digital": 3}
	out := append([]model.ProductStat(nil), in...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Active == out[j-1].Active && rank[out[j].Name] < rank[out[j-1].Name]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func TestLicenseService_List(t *testing.T) {
	f := newLicenseFixture(t, false)
	ctx := context.Background()

	id, err := f.repo.UpsertLicenseGroup(ctx, model.LicenseGroup{CodGrupo: 1, Nome: "Rede"})
	require.NoError(t, err)
	for i, name := range []string{"Matriz", "Filial B", "Filial A"} {
		require.NoError(t, f.repo.UpsertLicenseBranch(ctx, model.LicenseBranch{
			CodFilial: 30 - i, GroupID: id, Nome: name, Matriz: i == 0,
		}))
	}

	items, meta, err := f.svc.List(ctx, model.LicenseFilter{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, model.PageMeta{Total: 1, Page: 1, LastPage: 1}, meta)
	require.NotNil(t, items[0].Grupo)
	require.Len(t, items[0].Grupo.Filiais, 2)
	assert.Equal(t, 28, items[0].Grupo.Filiais[0].CodFilial)

	items, meta, err = f.svc.List(ctx, model.LicenseFilter{Search: "nothing"})
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
	assert.Equal(t, 1, meta.LastPage)

	_, meta, err = f.svc.List(ctx, model.LicenseFilter{Page: -3, Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, 1, meta.Page)
}
