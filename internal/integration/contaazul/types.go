package contaazul

import "github.com/Stewz00/go-backoffice-service/internal/integration/flexjson"

type Ref struct {
	ID   string `json:"id"`
	Nome string `json:"nome"`
}

type Customer struct {
	ID            string          `json:"id"`
	IDLegado      flexjson.String `json:"id_legado"`
	UUIDLegado    flexjson.String `json:"uuid_legado"`
	Nome          string          `json:"nome"`
	Documento     string          `json:"documento"`
	Email         string          `json:"email"`
	Telefone      string          `json:"telefone"`
	Ativo         bool            `json:"ativo"`
	TipoPessoa    string          `json:"tipo_pessoa"`
	Perfis        []string        `json:"perfis"`
	Observacoes   string          `json:"observacoes_gerais"`
	DataCriacao   flexjson.Time   `json:"data_criacao"`
	DataAlteracao flexjson.Time   `json:"data_alteracao"`
}

type Contract struct {
	ID                string          `json:"id"`
	Status            string          `json:"status"`
	Numero            flexjson.String `json:"numero"`
	DataInicio        flexjson.Date   `json:"data_inicio"`
	ProximoVencimento flexjson.Date   `json:"proximo_vencimento"`
	Cliente           *Ref            `json:"cliente"`
}

type Receivable struct {
	ID              string          `json:"id"`
	Status          string          `json:"status"`
	StatusTraduzido string          `json:"status_traduzido"`
	Total           flexjson.Number `json:"total"`
	Descricao       string          `json:"descricao"`
	DataVencimento  flexjson.Date   `json:"data_vencimento"`
	NaoPago         flexjson.Number `json:"nao_pago"`
	Pago            flexjson.Number `json:"pago"`
	DataCriacao     flexjson.Time   `json:"data_criacao"`
	DataAlteracao   flexjson.Time   `json:"data_alteracao"`
	Cliente         *Ref            `json:"cliente"`
}
