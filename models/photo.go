package models

import "time"

// Photo holds a Person's profile photograph as base64 text. There is at most
// one row per infopen; writes replace the previous row.
type Photo struct {
	ID         uint      `gorm:"primaryKey"`
	Infopen    string    `gorm:"column:infopen;size:100;not null;index"`
	ImageB64   string    `gorm:"column:image_b64;type:text;not null"`
	ProfileRef string    `gorm:"column:imagem_perfil;size:200"`
	Hash       string    `gorm:"column:image_hash;size:64"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

func (Photo) TableName() string {
	return "images"
}
