package model

import "time"

// ContaAzulIntegration holds the OAuth tokens of one company.
type ContaAzulIntegration struct {
	ID           int64
	CompanyID    int64
	AccessToken  string
	RefreshToken string
	ExpiresIn    int // seconds
	Updated      time.Time
}

type ContaAzulCustomer struct {
	ID                 int64      `json:"id"`
	CaID               string     `json:"caId"`
	CompanyID          int64      `json:"empresaId"`
	IDLegado           string     `json:"idLegado"`
	UUIDLegado         string     `json:"uuidLegado"`
	Nome               string     `json:"nome"`
	Documento          string     `json:"documento"`
	Email              string     `json:"email"`
	Telefone           string     `json:"telefone"`
	Ativo              bool       `json:"ativo"`
	TipoPessoa         string     `json:"tipoPessoa"`
	Perfis             []string   `json:"perfis"`
	Observacoes        string     `json:"observacoes"`
	DataCriacaoCA      *time.Time `json:"dataCriacaoCA"`
	DataAlteracaoCA    *time.Time `json:"dataAlteracaoCA"`
	ContratoID         *string    `json:"contratoId"`
	ContratoStatus     *string    `json:"contratoStatus"`
	ContratoNumero     *string    `json:"contratoNumero"`
	ContratoInicio     *time.Time `json:"contratoInicio"`
	ContratoVencimento *time.Time `json:"contratoVencimento"`
}

// ContaAzulContract is the subset of a contract stored on its customer.
type ContaAzulContract struct {
	ID         string
	CustomerID string
	Status     string
	Numero     string
	Inicio     *time.Time
	Vencimento *time.Time
}

type ContaAzulReceivable struct {
	ID           int64              `json:"id"`
	CaID         string             `json:"caId"`
	CompanyID    int64              `json:"empresaId"`
	CustomerCaID string             `json:"clienteCaId"`
	CustomerName string             `json:"clienteNome"`
	Status       string             `json:"status"`
	StatusLabel  string             `json:"statusTraduzido"`
	Description  string             `json:"descricao"`
	Total        float64            `json:"total"`
	Unpaid       float64            `json:"naoPago"`
	Paid         float64            `json:"pago"`
	DueDate      time.Time          `json:"dataVencimento"`
	CreatedCA    time.Time          `json:"dataCriacao"`
	UpdatedCA    time.Time          `json:"dataAlteracao"`
	Customer     *ContaAzulCustomer `json:"cliente,omitempty"`
}

type SalesSummary struct {
	Receivable float64 `json:"aReceber"`
	Overdue    float64 `json:"atrasado"`
	Received   float64 `json:"recebidoMes"`
}

// SyncResult reports the outcome of a sync job.
type SyncResult struct {
	Job       string `json:"job"`
	Processed int    `json:"total"`
	Saved     int    `json:"salvos"`
	Errors    int    `json:"erros"`
}
