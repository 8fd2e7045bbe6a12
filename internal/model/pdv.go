package model

import "time"

// PdvIntegration holds the credentials of the point-of-sale licensing API.
// Only one row exists.
type PdvIntegration struct {
	ID           int64
	Username     string
	Password     string
	ClientID     string
	ClientSecret string
	AccessToken  string
	Updated      time.Time
}

type LicenseGroup struct {
	ID                  int64           `json:"id"`
	CodGrupo            int             `json:"codGrupo"`
	Nome                string          `json:"nome"`
	Ativo               bool            `json:"ativo"`
	Documento           string          `json:"documento"`
	Produto             *string         `json:"produto"`
	QtdLojasAtivas      int             `json:"qtdLojasAtivas"`
	QtdLojasDesativadas int             `json:"qtdLojasDesativadas"`
	DataCadastroAPI     time.Time       `json:"dataCadastroApi"`
	Updated             time.Time       `json:"updatedAt"`
	Filiais             []LicenseBranch `json:"filiais"`
}

type LicenseBranch struct {
	ID              int64         `json:"id"`
	CodFilial       int           `json:"codFilial"`
	GroupID         int64         `json:"grupoId"`
	CodGrupo        int           `json:"codGrupo"`
	Nome            string        `json:"nome"`
	Ativo           bool          `json:"ativo"`
	Matriz          bool          `json:"matriz"`
	Documento       string        `json:"documento"`
	Email           string        `json:"email"`
	Sistema         string        `json:"sistema"`
	DataCadastroAPI time.Time     `json:"dataCadastroApi"`
	Updated         time.Time     `json:"updatedAt"`
	Grupo           *LicenseGroup `json:"grupo,omitempty"`
}

const SistemaPdvLegal = "PDVLEGAL"

// LicenseFilter narrows the head-office listing.
type LicenseFilter struct {
	Search string
	Page   int
	Limit  int
}

// BranchProduct is one branch with its group's product, used for statistics.
type BranchProduct struct {
	Ativo   bool
	Produto *string
}

type ProductStat struct {
	Name     string `json:"name"`
	Active   int    `json:"active"`
	Inactive int    `json:"inactive"`
}

type LicenseStats struct {
	Ativas   int `json:"ativas"`
	Inativas int `json:"inativas"`
	PdvLegal struct {
		Total   int           `json:"total"`
		Details []ProductStat `json:"details"`
	} `json:"pdvLegal"`
}
