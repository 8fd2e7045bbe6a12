package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Stewz00/go-backoffice-service/internal/database"
	"github.com/Stewz00/go-backoffice-service/internal/interfaces"
	"github.com/Stewz00/go-backoffice-service/internal/model"
)

type LicenseRepositoryImpl struct {
	db *database.DB
}

var _ interfaces.LicenseRepository = (*LicenseRepositoryImpl)(nil)

func NewLicenseRepository(db *database.DB) *LicenseRepositoryImpl {
	return &LicenseRepositoryImpl{db: db}
}

const (
	groupColumns = `g.id, g.cod_grupo, g.nome, g.ativo, g.documento, g.produto,
	g.qtd_lojas_ativas, g.qtd_lojas_desativadas, g.data_cadastro_api, g.updated_at`
	branchColumns = `b.id, b.cod_filial, b.group_id, b.cod_grupo, b.nome, b.ativo, b.matriz,
	b.documento, b.email, b.sistema, b.data_cadastro_api, b.updated_at`
)

func branchDest(b *model.LicenseBranch) []any {
	return []any{&b.ID, &b.CodFilial, &b.GroupID, &b.CodGrupo, &b.Nome, &b.Ativo, &b.Matriz,
		&b.Documento, &b.Email, &b.Sistema, &b.DataCadastroAPI, &b.Updated}
}

func groupDest(g *model.LicenseGroup) []any {
	return []any{&g.ID, &g.CodGrupo, &g.Nome, &g.Ativo, &g.Documento, &g.Produto,
		&g.QtdLojasAtivas, &g.QtdLojasDesativadas, &g.DataCadastroAPI, &g.Updated}
}

// UpsertLicenseGroup stores the group by cod_grupo and returns its local id.
func (r *LicenseRepositoryImpl) UpsertLicenseGroup(ctx context.Context, g model.LicenseGroup) (int64, error) {
	var id int64
	err := r.db.Pool.QueryRow(ctx,
		`INSERT INTO pdv_license_groups
		   (cod_grupo, nome, ativo, documento, produto, qtd_lojas_ativas, qtd_lojas_desativadas, data_cadastro_api)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (cod_grupo) DO UPDATE
		 SET nome = EXCLUDED.nome,
		     ativo = EXCLUDED.ativo,
		     documento = EXCLUDED.documento,
		     produto = EXCLUDED.produto,
		     qtd_lojas_ativas = EXCLUDED.qtd_lojas_ativas,
		     qtd_lojas_desativadas = EXCLUDED.qtd_lojas_desativadas,
		     data_cadastro_api = EXCLUDED.data_cadastro_api,
		     updated_at = NOW()
		 RETURNING id`,
		g.CodGrupo, g.Nome, g.Ativo, g.Documento, g.Produto, g.QtdLojasAtivas, g.QtdLojasDesativadas,
		g.DataCadastroAPI).Scan(&id)
	return id, err
}

// UpsertLicenseBranch stores the branch by cod_filial.
func (r *LicenseRepositoryImpl) UpsertLicenseBranch(ctx context.Context, b model.LicenseBranch) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO pdv_license_branches
		   (cod_filial, group_id, cod_grupo, nome, ativo, matriz, documento, email, sistema, data_cadastro_api)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (cod_filial) DO UPDATE
		 SET group_id = EXCLUDED.group_id,
		     cod_grupo = EXCLUDED.cod_grupo,
		     nome = EXCLUDED.nome,
		     ativo = EXCLUDED.ativo,
		     matriz = EXCLUDED.matriz,
		     documento = EXCLUDED.documento,
		     email = EXCLUDED.email,
		     sistema = EXCLUDED.sistema,
		     data_cadastro_api = EXCLUDED.data_cadastro_api,
		     updated_at = NOW()`,
		b.CodFilial, b.GroupID, b.CodGrupo, b.Nome, b.Ativo, b.Matriz, b.Documento, b.Email, b.Sistema,
		b.DataCadastroAPI)
	return err
}

// headOfficeFilter builds the WHERE clause of the head-office listing. The name
// matches case-insensitively; the document matches the digits of the term, or
// the raw term when it has none. Short numbers also match the branch and group codes.
func headOfficeFilter(search string) (string, []any) {
	where := "b.matriz = true"
	search = strings.TrimSpace(search)
	if search == "" {
		return where, nil
	}

	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, search)

	docTerm := search
	if digits != "" {
		docTerm = digits
	}

	args := []any{containsPattern(search), containsPattern(docTerm)}
	conds := []string{`b.nome ILIKE $1 ESCAPE '\'`, `b.documento LIKE $2 ESCAPE '\'`}

	if digits != "" && len(digits) < 10 {
		n, _ := strconv.Atoi(digits)
		args = append(args, n)
		conds = append(conds, "b.cod_filial = $3", "b.cod_grupo = $3")
	}

	return where + " AND (" + strings.Join(conds, " OR ") + ")", args
}

// ListHeadOffices returns a page of head-office branches, newest first, each with
// its group and the group's other branches.
func (r *LicenseRepositoryImpl) ListHeadOffices(ctx context.Context, filter model.LicenseFilter) ([]model.LicenseBranch, int, error) {
	where, args := headOfficeFilter(filter.Search)

	var total int
	err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM pdv_license_branches b WHERE `+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	pageArgs := append(args, filter.Limit, (filter.Page-1)*filter.Limit)
	rows, err := r.db.Pool.Query(ctx,
		fmt.Sprintf(`SELECT %s, %s
		 FROM pdv_license_branches b
		 JOIN pdv_license_groups g ON g.id = b.group_id
		 WHERE %s
		 ORDER BY b.data_cadastro_api DESC, b.id DESC
		 LIMIT $%d OFFSET $%d`, branchColumns, groupColumns, where, len(pageArgs)-1, len(pageArgs)),
		pageArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	branches := []model.LicenseBranch{}
	groupIDs := []int64{}
	for rows.Next() {
		var b model.LicenseBranch
		g := &model.LicenseGroup{Filiais: []model.LicenseBranch{}}
		if err := rows.Scan(append(branchDest(&b), groupDest(g)...)...); err != nil {
			return nil, 0, err
		}
		b.Grupo = g
		branches = append(branches, b)
		groupIDs = append(groupIDs, g.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if len(groupIDs) == 0 {
		return branches, total, nil
	}

	others, err := r.branchesOfGroups(ctx, groupIDs)
	if err != nil {
		return nil, 0, err
	}
	for i := range branches {
		branches[i].Grupo.Filiais = append(branches[i].Grupo.Filiais, others[branches[i].GroupID]...)
	}

	return branches, total, nil
}

func (r *LicenseRepositoryImpl) branchesOfGroups(ctx context.Context, groupIDs []int64) (map[int64][]model.LicenseBranch, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+branchColumns+`
		 FROM pdv_license_branches b
		 WHERE b.group_id = ANY($1) AND b.matriz = false
		 ORDER BY b.cod_filial`,
		groupIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byGroup := make(map[int64][]model.LicenseBranch)
	for rows.Next() {
		var b model.LicenseBranch
		if err := rows.Scan(branchDest(&b)...); err != nil {
			return nil, err
		}
		byGroup[b.GroupID] = append(byGroup[b.GroupID], b)
	}
	return byGroup, rows.Err()
}

// CountActiveBranches counts active branches whose group product is set and not excluded.
func (r *LicenseRepositoryImpl) CountActiveBranches(ctx context.Context, excludedProducts []string) (int, error) {
	var n int
	err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*)
		 FROM pdv_license_branches b
		 JOIN pdv_license_groups g ON g.id = b.group_id
		 WHERE b.ativo = true AND g.produto <> ALL($1)`,
		excludedProducts).Scan(&n)
	return n, err
}

func (r *LicenseRepositoryImpl) CountInactiveBranches(ctx context.Context) (int, error) {
	var n int
	err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM pdv_license_branches WHERE ativo = false`).Scan(&n)
	return n, err
}

func (r *LicenseRepositoryImpl) BranchProducts(ctx context.Context, sistema string) ([]model.BranchProduct, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT b.ativo, g.produto
		 FROM pdv_license_branches b
		 LEFT JOIN pdv_license_groups g ON g.id = b.group_id
		 WHERE b.sistema = $1`,
		sistema)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.BranchProduct
	for rows.Next() {
		var p model.BranchProduct
		if err := rows.Scan(&p.Ativo, &p.Produto); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
