package service

import (
	"context"
	"testing"

	"github.com/Stewz00/go-backoffice-service/internal/model"
	"github.com/Stewz00/go-backoffice-service/internal/repository"
	"github.com/Stewz00/go-backoffice-service/internal/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompanyService(t *testing.T) {
	svc := NewCompanyService(test.NewMockCompanyRepository())
	ctx := context.Background()

	_, err := svc.First(ctx)
	assert.ErrorIs(t, err, repository.ErrCompanyNotFound)

	_, err = svc.Upsert(ctx, model.Company{CNPJ: "../-", Name: "Acme"})
	var inputErr *InputError
	assert.ErrorAs(t, err, &inputErr)

	created, err := svc.Upsert(ctx, model.Company{CNPJ: "12.345.678/0001-90", Name: " Acme LTDA "})
	require.NoError(t, err)
	assert.Equal(t, "12345678000190", created.CNPJ)
	assert.Equal(t, "Acme LTDA", created.Name)

	updated, err := svc.Upsert(ctx, model.Company{CNPJ: "12345678000190", Name: "Acme S.A.", City: "Recife"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)

	first, err := svc.First(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Acme S.A.", first.Name)
	assert.Equal(t, "Recife", first.City)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
