package repository

import (
	"context"
	"errors"

	"github.com/Stewz00/go-backoffice-service/internal/database"
	"github.com/Stewz00/go-backoffice-service/internal/interfaces"
	"github.com/Stewz00/go-backoffice-service/internal/model"
	"github.com/jackc/pgx/v4"
)

type PdvRepositoryImpl struct {
	db *database.DB
}

var _ interfaces.PdvRepository = (*PdvRepositoryImpl)(nil)

func NewPdvRepository(db *database.DB) *PdvRepositoryImpl {
	return &PdvRepositoryImpl{db: db}
}

func (r *PdvRepositoryImpl) GetPdvConfig(ctx context.Context) (*model.PdvIntegration, error) {
	var c model.PdvIntegration
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id, username, password, client_id, client_secret, COALESCE(access_token, ''), updated_at
		 FROM pdv_integrations
		 ORDER BY id
		 LIMIT 1`).Scan(&c.ID, &c.Username, &c.Password, &c.ClientID, &c.ClientSecret, &c.AccessToken, &c.Updated)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPdvConfigNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// SavePdvConfig updates the single configuration row, creating it on first use.
// Changing credentials drops the stored access token.
func (r *PdvRepositoryImpl) SavePdvConfig(ctx context.Context, cfg model.PdvIntegration) (*model.PdvIntegration, error) {
	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		var id int64
		err := tx.QueryRow(ctx, `SELECT id FROM pdv_integrations ORDER BY id LIMIT 1 FOR UPDATE`).Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			_, err = tx.Exec(ctx,
				`INSERT INTO pdv_integrations (username, password, client_id, client_secret)
				 VALUES ($1, $2, $3, $4)`,
				cfg.Username, cfg.Password, cfg.ClientID, cfg.ClientSecret)
			return err
		}
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx,
			`UPDATE pdv_integrations
			 SET username = $2, password = $3, client_id = $4, client_secret = $5,
			     access_token = NULL, updated_at = NOW()
			 WHERE id = $1`,
			id, cfg.Username, cfg.Password, cfg.ClientID, cfg.ClientSecret)
		return err
	})
	if err != nil {
		return nil, err
	}

	return r.GetPdvConfig(ctx)
}

func (r *PdvRepositoryImpl) SetPdvAccessToken(ctx context.Context, id int64, token string) error {
	result, err := r.db.Pool.Exec(ctx,
		`UPDATE pdv_integrations SET access_token = $2, updated_at = NOW() WHERE id = $1`,
		id, token)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrPdvConfigNotFound
	}
	return nil
}
