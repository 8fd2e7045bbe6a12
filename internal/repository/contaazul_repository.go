package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Stewz00/go-backoffice-service/internal/database"
	"github.com/Stewz00/go-backoffice-service/internal/interfaces"
	"github.com/Stewz00/go-backoffice-service/internal/model"
	"github.com/jackc/pgx/v4"
)

type ContaAzulRepositoryImpl struct {
	db *database.DB
}

var _ interfaces.ContaAzulRepository = (*ContaAzulRepositoryImpl)(nil)

func NewContaAzulRepository(db *database.DB) *ContaAzulRepositoryImpl {
	return &ContaAzulRepositoryImpl{db: db}
}

func (r *ContaAzulRepositoryImpl) GetContaAzulIntegration(ctx context.Context, companyID int64) (*model.ContaAzulIntegration, error) {
	var in model.ContaAzulIntegration
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id, company_id, access_token, refresh_token, expires_in, updated_at
		 FROM contaazul_integrations
		 WHERE company_id = $1`,
		companyID).Scan(&in.ID, &in.CompanyID, &in.AccessToken, &in.RefreshToken, &in.ExpiresIn, &in.Updated)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrIntegrationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &in, nil
}

// SaveContaAzulIntegration stores the tokens of a company and stamps updated_at.
func (r *ContaAzulRepositoryImpl) SaveContaAzulIntegration(ctx context.Context, in model.ContaAzulIntegration) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO contaazul_integrations (company_id, access_token, refresh_token, expires_in, updated_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 ON CONFLICT (company_id) DO UPDATE
		 SET access_token = EXCLUDED.access_token,
		     refresh_token = EXCLUDED.refresh_token,
		     expires_in = EXCLUDED.expires_in,
		     updated_at = NOW()`,
		in.CompanyID, in.AccessToken, in.RefreshToken, in.ExpiresIn)
	if isPgError(err, codeForeignKeyViolation) {
		return ErrCompanyNotFound
	}
	return err
}

// UpsertCustomer creates the customer or refreshes its mutable fields.
func (r *ContaAzulRepositoryImpl) UpsertCustomer(ctx context.Context, c model.ContaAzulCustomer) error {
	perfis := c.Perfis
	if perfis == nil {
		perfis = []string{}
	}
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO contaazul_customers
		   (ca_id, company_id, id_legado, uuid_legado, nome, documento, email, telefone, ativo,
		    tipo_pessoa, perfis, observacoes, data_criacao_ca, data_alteracao_ca)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 ON CONFLICT (ca_id) DO UPDATE
		 SET nome = EXCLUDED.nome,
		     documento = EXCLUDED.documento,
		     email = EXCLUDED.email,
		     telefone = EXCLUDED.telefone,
		     ativo = EXCLUDED.ativo,
		     tipo_pessoa = EXCLUDED.tipo_pessoa,
		     perfis = EXCLUDED.perfis,
		     observacoes = EXCLUDED.observacoes,
		     data_alteracao_ca = EXCLUDED.data_alteracao_ca`,
		c.CaID, c.CompanyID, c.IDLegado, c.UUIDLegado, c.Nome, c.Documento, c.Email, c.Telefone, c.Ativo,
		c.TipoPessoa, perfis, c.Observacoes, c.DataCriacaoCA, c.DataAlteracaoCA)
	if isPgError(err, codeForeignKeyViolation) {
		return ErrCompanyNotFound
	}
	return err
}

// AttachContract copies the contract fields onto its customer.
func (r *ContaAzulRepositoryImpl) AttachContract(ctx context.Context, c model.ContaAzulContract) error {
	result, err := r.db.Pool.Exec(ctx,
		`UPDATE contaazul_customers
		 SET contrato_id = $2,
		     contrato_status = $3,
		     contrato_numero = $4,
		     contrato_inicio = $5,
		     contrato_vencimento = $6
		 WHERE ca_id = $1`,
		c.CustomerID, c.ID, c.Status, c.Numero, c.Inicio, c.Vencimento)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrCustomerNotFound
	}
	return nil
}

// UpsertReceivable stores the receivable by its Conta Azul id. The customer must exist.
func (r *ContaAzulRepositoryImpl) UpsertReceivable(ctx context.Context, rc model.ContaAzulReceivable) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO contaazul_receivables
		   (ca_id, company_id, customer_ca_id, customer_name, status, status_label, description,
		    total, unpaid, paid, due_date, created_ca, updated_ca)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 ON CONFLICT (ca_id) DO UPDATE
		 SET customer_name = EXCLUDED.customer_name,
		     status = EXCLUDED.status,
		     status_label = EXCLUDED.status_label,
		     description = EXCLUDED.description,
		     total = EXCLUDED.total,
		     unpaid = EXCLUDED.unpaid,
		     paid = EXCLUDED.paid,
		     due_date = EXCLUDED.due_date,
		     created_ca = EXCLUDED.created_ca,
		     updated_ca = EXCLUDED.updated_ca`,
		rc.CaID, rc.CompanyID, rc.CustomerCaID, rc.CustomerName, rc.Status, rc.StatusLabel, rc.Description,
		rc.Total, rc.Unpaid, rc.Paid, rc.DueDate, rc.CreatedCA, rc.UpdatedCA)
	if isPgError(err, codeForeignKeyViolation) {
		return ErrCustomerNotFound
	}
	return err
}

const receivableColumns = `r.id, r.ca_id, r.company_id, r.customer_ca_id, r.customer_name, r.status,
	r.status_label, r.description, r.total, r.unpaid, r.paid, r.due_date, r.created_ca, r.updated_ca`

func receivableDest(rc *model.ContaAzulReceivable) []any {
	return []any{&rc.ID, &rc.CaID, &rc.CompanyID, &rc.CustomerCaID, &rc.CustomerName, &rc.Status,
		&rc.StatusLabel, &rc.Description, &rc.Total, &rc.Unpaid, &rc.Paid, &rc.DueDate, &rc.CreatedCA, &rc.UpdatedCA}
}

// ReceivablesDueBetween returns the receivables due in [from, to], earliest first, with their customer.
func (r *ContaAzulRepositoryImpl) ReceivablesDueBetween(ctx context.Context, companyID int64, from, to time.Time) ([]model.ContaAzulReceivable, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+receivableColumns+`,
		        c.id, c.ca_id, c.nome, c.documento, c.email, c.telefone, c.ativo, c.tipo_pessoa
		 FROM contaazul_receivables r
		 JOIN contaazul_customers c ON c.ca_id = r.customer_ca_id
		 WHERE r.company_id = $1 AND r.due_date >= $2 AND r.due_date <= $3
		 ORDER BY r.due_date ASC, r.id ASC`,
		companyID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.ContaAzulReceivable{}
	for rows.Next() {
		var rc model.ContaAzulReceivable
		c := &model.ContaAzulCustomer{CompanyID: companyID}
		dest := append(receivableDest(&rc), &c.ID, &c.CaID, &c.Nome, &c.Documento, &c.Email, &c.Telefone, &c.Ativo, &c.TipoPessoa)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		rc.Customer = c
		out = append(out, rc)
	}
	return out, rows.Err()
}

// Receivables returns every receivable of the company.
func (r *ContaAzulRepositoryImpl) Receivables(ctx context.Context, companyID int64) ([]model.ContaAzulReceivable, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+receivableColumns+` FROM contaazul_receivables r WHERE r.company_id = $1`,
		companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ContaAzulReceivable
	for rows.Next() {
		var rc model.ContaAzulReceivable
		if err := rows.Scan(receivableDest(&rc)...); err != nil {
			return nil, err
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}
