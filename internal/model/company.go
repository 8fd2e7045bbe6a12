package model

import "time"

type Company struct {
	ID        int64     `json:"id"`
	CNPJ      string    `json:"cnpj"`
	Name      string    `json:"name"`
	TradeName string    `json:"tradeName"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	City      string    `json:"city"`
	State     string    `json:"state"`
	Created   time.Time `json:"createdAt"`
	Updated   time.Time `json:"updatedAt"`
}
