package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Person is a released person's registration record. Infopen is the external
// identifier used as the join key by Photo and JudicialNote.
type Person struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	Infopen              string    `gorm:"column:infopen;size:100;uniqueIndex" json:"infopen"`
	FullName             string    `gorm:"column:nome_completo;size:200;not null" json:"nome_completo"`
	CPF                  string    `gorm:"column:cpf;size:14" json:"cpf"`
	Phone                string    `gorm:"column:telefone;size:20" json:"telefone"`
	Street               string    `gorm:"column:rua;size:200" json:"rua"`
	Neighborhood         string    `gorm:"column:bairro;size:200" json:"bairro"`
	Number               string    `gorm:"column:numero;size:20" json:"numero"`
	Municipality         string    `gorm:"column:municipio;size:100" json:"municipio"`
	Unit                 string    `gorm:"column:ueop;size:100" json:"ueop"`
	Company              string    `gorm:"column:cia;size:100" json:"cia"`
	JudicialRestrictions string    `gorm:"column:restricoes_judiciais;type:text" json:"restricoes_judiciais"`
	Observations         string    `gorm:"column:observacoes;type:text" json:"observacoes"`
	Latitude             string    `gorm:"column:latitude;size:20" json:"latitude"`
	Longitude            string    `gorm:"column:longitude;size:20" json:"longitude"`
	ModifiedAt           time.Time `gorm:"column:data_modificacao;index" json:"data_modificacao"`
}

// TableName keeps the legacy table name so existing databases can be adopted.
func (Person) TableName() string {
	return "user_registration"
}

// Normalize trims and uppercases every free-text field.
func (p *Person) Normalize() {
	for _, f := range []*string{
		&p.Infopen, &p.FullName, &p.CPF, &p.Phone, &p.Street, &p.Neighborhood,
		&p.Number, &p.Municipality, &p.Unit, &p.Company, &p.JudicialRestrictions,
		&p.Observations, &p.Latitude, &p.Longitude,
	} {
		*f = strings.ToUpper(strings.TrimSpace(*f))
	}
}

// BeforeSave runs on every insert and update.
func (p *Person) BeforeSave(tx *gorm.DB) error {
	p.Normalize()
	return nil
}
