package models

import "time"

// JudicialNote is a judicial notification record attached to a Person by infopen.
type JudicialNote struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	Infopen          string     `gorm:"column:infopen;size:100;not null;index" json:"infopen"`
	NotificationDate *time.Time `gorm:"column:data_notificacao;type:date" json:"data_notificacao"`
	SEEUNumber       string     `gorm:"column:numero_seeu;size:100" json:"numero_seeu"`
	Protocol         string     `gorm:"column:protocolo;size:100" json:"protocolo"`
	Annotations      string     `gorm:"column:anotacoes;type:text" json:"anotacoes"`
	RegisteredAt     time.Time  `gorm:"column:data_registro;index" json:"data_registro"`
}

func (JudicialNote) TableName() string {
	return "judiciary"
}
