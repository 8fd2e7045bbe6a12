package service

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/Stewz00/go-backoffice-service/internal/interfaces"
	"github.com/Stewz00/go-backoffice-service/internal/model"
)

type CompanyService struct {
	repo interfaces.CompanyRepository
}

func NewCompanyService(repo interfaces.CompanyRepository) *CompanyService {
	return &CompanyService{repo: repo}
}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

// Upsert saves the company keyed by its CNPJ, punctuation stripped.
func (s *CompanyService) Upsert(ctx context.Context, c model.Company) (*model.Company, error) {
	c.CNPJ = digitsOnly(c.CNPJ)
	c.Name = strings.TrimSpace(c.Name)
	if c.CNPJ == "" || c.Name == "" {
		return nil, invalid("cnpj and name are required")
	}

	saved, err := s.repo.UpsertCompany(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("service.CompanyService.Upsert: %w", err)
	}
	return saved, nil
}

// First returns the oldest company, or repository.ErrCompanyNotFound.
func (s *CompanyService) First(ctx context.Context) (*model.Company, error) {
	return s.repo.FirstCompany(ctx)
}

func (s *CompanyService) Get(ctx context.Context, id int64) (*model.Company, error) {
	return s.repo.GetCompany(ctx, id)
}

func (s *CompanyService) List(ctx context.Context) ([]model.Company, error) {
	return s.repo.ListCompanies(ctx)
}
