package registry

import (
	"context"
	"errors"
	"strings"
	"time"

	"egressos/models"
	"egressos/pkg/metrics"
	"egressos/pkg/photo"

	"github.com/nyaruka/phonenumbers"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PersonInput is the registration form. Every field is normalised to
// uppercase before it is stored.
type PersonInput struct {
	Infopen              string `form:"infopen" json:"infopen"`
	FullName             string `form:"nome_completo" json:"nome_completo"`
	CPF                  string `form:"cpf" json:"cpf"`
	Phone                string `form:"telefone" json:"telefone"`
	Street               string `form:"rua" json:"rua"`
	Neighborhood         string `form:"bairro" json:"bairro"`
	Number               string `form:"numero" json:"numero"`
	Municipality         string `form:"municipio" json:"municipio"`
	Unit                 string `form:"ueop" json:"ueop"`
	Company              string `form:"cia" json:"cia"`
	JudicialRestrictions string `form:"restricoes_judiciais" json:"restricoes_judiciais"`
	Observations         string `form:"observacoes" json:"observacoes"`
	Latitude             string `form:"latitude" json:"latitude"`
	Longitude            string `form:"longitude" json:"longitude"`
}

func (in PersonInput) applyTo(p *models.Person) {
	p.Infopen = in.Infopen
	p.FullName = in.FullName
	p.CPF = in.CPF
	p.Phone = in.Phone
	p.Street = in.Street
	p.Neighborhood = in.Neighborhood
	p.Number = in.Number
	p.Municipality = in.Municipality
	p.Unit = in.Unit
	p.Company = in.Company
	p.JudicialRestrictions = in.JudicialRestrictions
	p.Observations = in.Observations
	p.Latitude = in.Latitude
	p.Longitude = in.Longitude
	p.Normalize()
}

// Upload is an uploaded photo file. Files whose extension is not accepted by
// photo.Accept are ignored without error.
type Upload struct {
	Filename string
	Data     []byte
}

func (u *Upload) usable() bool {
	return u != nil && len(u.Data) > 0 && photo.Accept(u.Filename)
}

func validatePerson(p *models.Person) error {
	if p.Infopen == "" {
		return ErrInfopenRequired
	}
	if p.FullName == "" {
		return ErrNameRequired
	}
	return nil
}

// phoneWarnings flags numbers that do not parse as valid Brazilian phones.
// The number is stored as typed either way.
func phoneWarnings(phone string) []Warning {
	if phone == "" {
		return nil
	}
	num, err := phonenumbers.Parse(phone, "BR")
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return []Warning{{Field: "telefone", Message: "phone number does not look like a valid Brazilian number"}}
	}
	return nil
}

func ensureInfopenFree(tx *gorm.DB, infopen string, exceptID uint) error {
	q := tx.Model(&models.Person{}).Where("infopen = ?", infopen)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return ErrDuplicateInfopen
	}
	return nil
}

func (s *Service) recordWrite(entity, op string, err error) {
	status := "ok"
	switch {
	case err == nil:
	case IsValidation(err) || errors.Is(err, ErrNotFound):
		status = "rejected"
	default:
		status = "failed"
		s.logger.Error("registry write failed", zap.String("entity", entity), zap.String("operation", op), zap.Error(err))
	}
	metrics.RecordWrites.WithLabelValues(entity, op, status).Inc()
}

// CreatePerson registers a Person and, when up is usable, its Photo in the
// same transaction.
func (s *Service) CreatePerson(ctx context.Context, in PersonInput, up *Upload) (p models.Person, warnings []Warning, err error) {
	defer func() { s.recordWrite("person", "create", err) }()

	in.applyTo(&p)
	if err := validatePerson(&p); err != nil {
		return models.Person{}, nil, err
	}
	warnings = phoneWarnings(p.Phone)
	now := s.timestamp()
	p.ModifiedAt = now

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureInfopenFree(tx, p.Infopen, 0); err != nil {
			return err
		}
		if err := tx.Create(&p).Error; err != nil {
			return err
		}
		return replacePhoto(tx, p.Infopen, up, now)
	})
	if err != nil {
		return models.Person{}, nil, storageErr("create person", err)
	}
	return p, warnings, nil
}

// UpdatePerson overwrites a Person's fields. Renaming the infopen re-keys its
// Photo and JudicialNote rows inside the same transaction.
func (s *Service) UpdatePerson(ctx context.Context, id uint, in PersonInput, up *Upload) (p models.Person, warnings []Warning, err error) {
	defer func() { s.recordWrite("person", "update", err) }()

	now := s.timestamp()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&p, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		previous := p.Infopen
		in.applyTo(&p)
		if err := validatePerson(&p); err != nil {
			return err
		}
		if err := ensureInfopenFree(tx, p.Infopen, p.ID); err != nil {
			return err
		}
		p.ModifiedAt = now
		if err := tx.Save(&p).Error; err != nil {
			return err
		}
		// the person row is updated first so a postgres ON UPDATE CASCADE
		// foreign key has already moved the children; this is a no-op there
		if previous != "" && previous != p.Infopen {
			if err := tx.Model(&models.Photo{}).Where("infopen = ?", previous).
				Updates(map[string]any{"infopen": p.Infopen, "imagem_perfil": p.Infopen}).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.JudicialNote{}).Where("infopen = ?", previous).
				Update("infopen", p.Infopen).Error; err != nil {
				return err
			}
		}
		return replacePhoto(tx, p.Infopen, up, now)
	})
	if err != nil {
		return models.Person{}, nil, storageErr("update person", err)
	}
	return p, phoneWarnings(p.Phone), nil
}

// DeletePerson removes a Person together with its Photo and JudicialNotes.
func (s *Service) DeletePerson(ctx context.Context, id uint) (p models.Person, err error) {
	defer func() { s.recordWrite("person", "delete", err) }()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&p, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if p.Infopen != "" {
			if err := tx.Where("infopen = ?", p.Infopen).Delete(&models.Photo{}).Error; err != nil {
				return err
			}
			if err := tx.Where("infopen = ?", p.Infopen).Delete(&models.JudicialNote{}).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Person{}, p.ID).Error
	})
	if err != nil {
		return models.Person{}, storageErr("delete person", err)
	}
	return p, nil
}

// ReplacePhoto stores up as the only Photo of the Person identified by
// infopen. It reports false when the file was ignored for its extension.
func (s *Service) ReplacePhoto(ctx context.Context, infopen string, up *Upload) (stored bool, err error) {
	defer func() { s.recordWrite("photo", "replace", err) }()

	infopen = strings.ToUpper(strings.TrimSpace(infopen))
	if infopen == "" {
		return false, ErrInfopenRequired
	}
	if !up.usable() {
		return false, nil
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requirePerson(tx, infopen); err != nil {
			return err
		}
		return replacePhoto(tx, infopen, up, s.timestamp())
	})
	if err != nil {
		return false, storageErr("replace photo", err)
	}
	return true, nil
}

// replacePhoto deletes any previous Photo for infopen and inserts the new one.
func replacePhoto(tx *gorm.DB, infopen string, up *Upload, now time.Time) error {
	if !up.usable() {
		return nil
	}
	enc := photo.Encode(up.Data)
	if err := tx.Where("infopen = ?", infopen).Delete(&models.Photo{}).Error; err != nil {
		return err
	}
	return tx.Create(&models.Photo{
		Infopen:    infopen,
		ImageB64:   enc.Base64,
		ProfileRef: infopen,
		Hash:       enc.Hash,
		CreatedAt:  now,
	}).Error
}

// Image returns the decoded Photo of infopen and its sniffed content type.
func (s *Service) Image(ctx context.Context, infopen string) ([]byte, string, error) {
	infopen = strings.ToUpper(strings.TrimSpace(infopen))
	var rec models.Photo
	err := s.db.WithContext(ctx).Where("infopen = ?", infopen).Order("id DESC").First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrNotFound
		}
		return nil, "", &StorageError{Op: "load photo", Err: err}
	}
	raw, err := photo.Decode(rec.ImageB64)
	if err != nil {
		return nil, "", &StorageError{Op: "load photo", Err: err}
	}
	return raw, photo.ContentType(raw), nil
}

func requirePerson(tx *gorm.DB, infopen string) error {
	var n int64
	if err := tx.Model(&models.Person{}).Where("infopen = ?", infopen).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrUnknownInfopen
	}
	return nil
}

// JudicialInput is the judicial note form.
type JudicialInput struct {
	Infopen          string `form:"infopen" json:"infopen"`
	NotificationDate string `form:"data_notificacao" json:"data_notificacao"`
	SEEUNumber       string `form:"numero_seeu" json:"numero_seeu"`
	Protocol         string `form:"protocolo" json:"protocolo"`
	Annotations      string `form:"anotacoes" json:"anotacoes"`
}

func (s *Service) applyJudicial(in JudicialInput, n *models.JudicialNote) error {
	n.Infopen = strings.ToUpper(strings.TrimSpace(in.Infopen))
	if n.Infopen == "" {
		return ErrInfopenRequired
	}
	n.NotificationDate = nil
	if v := strings.TrimSpace(in.NotificationDate); v != "" {
		d, err := time.ParseInLocation("2006-01-02", v, s.loc)
		if err != nil {
			return ErrInvalidDate
		}
		n.NotificationDate = &d
	}
	n.SEEUNumber = strings.TrimSpace(in.SEEUNumber)
	n.Protocol = strings.TrimSpace(in.Protocol)
	n.Annotations = strings.TrimSpace(in.Annotations)
	return nil
}

// CreateJudicial records a JudicialNote for an existing Person.
func (s *Service) CreateJudicial(ctx context.Context, in JudicialInput) (n models.JudicialNote, err error) {
	defer func() { s.recordWrite("judicial", "create", err) }()

	if err := s.applyJudicial(in, &n); err != nil {
		return models.JudicialNote{}, err
	}
	n.RegisteredAt = s.timestamp()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requirePerson(tx, n.Infopen); err != nil {
			return err
		}
		return tx.Create(&n).Error
	})
	if err != nil {
		return models.JudicialNote{}, storageErr("create judicial note", err)
	}
	return n, nil
}

// UpdateJudicial overwrites a JudicialNote and refreshes its registration time.
func (s *Service) UpdateJudicial(ctx context.Context, id uint, in JudicialInput) (n models.JudicialNote, err error) {
	defer func() { s.recordWrite("judicial", "update", err) }()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&n, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if err := s.applyJudicial(in, &n); err != nil {
			return err
		}
		if err := requirePerson(tx, n.Infopen); err != nil {
			return err
		}
		n.RegisteredAt = s.timestamp()
		return tx.Save(&n).Error
	})
	if err != nil {
		return models.JudicialNote{}, storageErr("update judicial note", err)
	}
	return n, nil
}

// DeleteJudicial removes one JudicialNote.
func (s *Service) DeleteJudicial(ctx context.Context, id uint) (err error) {
	defer func() { s.recordWrite("judicial", "delete", err) }()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.JudicialNote{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	return storageErr("delete judicial note", err)
}
