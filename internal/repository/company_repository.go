package repository

import (
	"context"
	"errors"

	"github.com/Stewz00/go-backoffice-service/internal/database"
	"github.com/Stewz00/go-backoffice-service/internal/interfaces"
	"github.com/Stewz00/go-backoffice-service/internal/model"
	"github.com/jackc/pgx/v4"
)

type CompanyRepositoryImpl struct {
	db *database.DB
}

var _ interfaces.CompanyRepository = (*CompanyRepositoryImpl)(nil)

func NewCompanyRepository(db *database.DB) *CompanyRepositoryImpl {
	return &CompanyRepositoryImpl{db: db}
}

const companyColumns = `id, cnpj, name, trade_name, email, phone, city, state, created_at, updated_at`

func scanCompany(row pgx.Row) (*model.Company, error) {
	var c model.Company
	err := row.Scan(&c.ID, &c.CNPJ, &c.Name, &c.TradeName, &c.Email, &c.Phone, &c.City, &c.State, &c.Created, &c.Updated)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCompanyNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// UpsertCompany inserts the company or updates the one with the same CNPJ.
func (r *CompanyRepositoryImpl) UpsertCompany(ctx context.Context, c model.Company) (*model.Company, error) {
	return scanCompany(r.db.Pool.QueryRow(ctx,
		`INSERT INTO companies (cnpj, name, trade_name, email, phone, city, state)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (cnpj) DO UPDATE
		 SET name = EXCLUDED.name,
		     trade_name = EXCLUDED.trade_name,
		     email = EXCLUDED.email,
		     phone = EXCLUDED.phone,
		     city = EXCLUDED.city,
		     state = EXCLUDED.state,
		     updated_at = NOW()
		 RETURNING `+companyColumns,
		c.CNPJ, c.Name, c.TradeName, c.Email, c.Phone, c.City, c.State))
}

// FirstCompany returns the oldest registered company.
func (r *CompanyRepositoryImpl) FirstCompany(ctx context.Context) (*model.Company, error) {
	return scanCompany(r.db.Pool.QueryRow(ctx,
		`SELECT `+companyColumns+` FROM companies ORDER BY id LIMIT 1`))
}

func (r *CompanyRepositoryImpl) GetCompany(ctx context.Context, id int64) (*model.Company, error) {
	return scanCompany(r.db.Pool.QueryRow(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE id = $1`, id))
}

func (r *CompanyRepositoryImpl) ListCompanies(ctx context.Context) ([]model.Company, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT `+companyColumns+` FROM companies ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	companies := []model.Company{}
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		companies = append(companies, *c)
	}
	return companies, rows.Err()
}
