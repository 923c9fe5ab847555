package registry

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"egressos/models"

	"gorm.io/gorm"
)

// Page is one slice of a listing. Page is 1-based; an out-of-range page has
// no Items but still reports Total and Pages.
type Page[T any] struct {
	Items   []T   `json:"items"`
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
	Total   int64 `json:"total"`
	Pages   int   `json:"pages"`
}

func newPage[T any](items []T, page int, total int64) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:   items,
		Page:    page,
		PerPage: PageSize,
		Total:   total,
		Pages:   int((total + PageSize - 1) / PageSize),
	}
}

func normalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// PersonListItem is a listed Person plus whether a Photo exists for it.
type PersonListItem struct {
	models.Person
	HasPhoto bool `json:"has_photo"`
}

// JudicialListItem is a JudicialNote with the owning Person's name, empty
// when the Person no longer exists.
type JudicialListItem struct {
	models.JudicialNote
	PersonName string `json:"nome" gorm:"column:person_name"`
}

const personOrder = personTable + ".nome_completo, " + personTable + ".id"
const judicialOrder = judicialTable + ".data_registro DESC, " + judicialTable + ".id DESC"

func (s *Service) personQuery(ctx context.Context, f PersonFilter) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&models.Person{})
	return f.apply(q, s.loc).Session(&gorm.Session{})
}

// SearchPersons returns one page of Persons matching f, ordered by name.
func (s *Service) SearchPersons(ctx context.Context, f PersonFilter, page int) (Page[PersonListItem], error) {
	page = normalizePage(page)
	q := s.personQuery(ctx, f)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return Page[PersonListItem]{}, &StorageError{Op: "count persons", Err: err}
	}
	var persons []models.Person
	if err := q.Order(personOrder).Offset((page - 1) * PageSize).Limit(PageSize).Find(&persons).Error; err != nil {
		return Page[PersonListItem]{}, &StorageError{Op: "list persons", Err: err}
	}
	items, err := s.withPhotoFlags(ctx, persons)
	if err != nil {
		return Page[PersonListItem]{}, err
	}
	return newPage(items, page, total), nil
}

// AllPersons is the unpaginated form of SearchPersons.
func (s *Service) AllPersons(ctx context.Context, f PersonFilter) ([]models.Person, error) {
	var persons []models.Person
	if err := s.personQuery(ctx, f).Order(personOrder).Find(&persons).Error; err != nil {
		return nil, &StorageError{Op: "list persons", Err: err}
	}
	return persons, nil
}

// withPhotoFlags checks photo existence for a page with a single query.
func (s *Service) withPhotoFlags(ctx context.Context, persons []models.Person) ([]PersonListItem, error) {
	keys := make([]string, 0, len(persons))
	for _, p := range persons {
		if p.Infopen != "" {
			keys = append(keys, p.Infopen)
		}
	}
	have := map[string]bool{}
	if len(keys) > 0 {
		var found []string
		if err := s.db.WithContext(ctx).Model(&models.Photo{}).
			Where("infopen IN ?", keys).Distinct().Pluck("infopen", &found).Error; err != nil {
			return nil, &StorageError{Op: "check photos", Err: err}
		}
		for _, k := range found {
			have[k] = true
		}
	}
	items := make([]PersonListItem, len(persons))
	for i, p := range persons {
		items[i] = PersonListItem{Person: p, HasPhoto: have[p.Infopen]}
	}
	return items, nil
}

// Person loads one Person by id.
func (s *Service) Person(ctx context.Context, id uint) (PersonListItem, error) {
	var p models.Person
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return PersonListItem{}, ErrNotFound
		}
		return PersonListItem{}, &StorageError{Op: "load person", Err: err}
	}
	items, err := s.withPhotoFlags(ctx, []models.Person{p})
	if err != nil {
		return PersonListItem{}, err
	}
	return items[0], nil
}

// PersonsForSelect lists every Person ordered by name, used to pick the owner
// of a JudicialNote.
func (s *Service) PersonsForSelect(ctx context.Context) ([]models.Person, error) {
	return s.AllPersons(ctx, PersonFilter{})
}

func (s *Service) judicialQuery(ctx context.Context, f JudicialFilter) *gorm.DB {
	q := s.db.WithContext(ctx).Table(judicialTable).
		Joins("LEFT JOIN " + personTable + " ON " + personTable + ".infopen = " + judicialTable + ".infopen")
	return f.apply(q).Session(&gorm.Session{})
}

const judicialColumns = judicialTable + ".*, " + personTable + ".nome_completo AS person_name"

// SearchJudicial returns one page of JudicialNotes, newest registration first.
func (s *Service) SearchJudicial(ctx context.Context, f JudicialFilter, page int) (Page[JudicialListItem], error) {
	page = normalizePage(page)
	q := s.judicialQuery(ctx, f)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return Page[JudicialListItem]{}, &StorageError{Op: "count judicial notes", Err: err}
	}
	var items []JudicialListItem
	if err := q.Select(judicialColumns).Order(judicialOrder).
		Offset((page - 1) * PageSize).Limit(PageSize).Scan(&items).Error; err != nil {
		return Page[JudicialListItem]{}, &StorageError{Op: "list judicial notes", Err: err}
	}
	return newPage(items, page, total), nil
}

// AllJudicial is the unpaginated form of SearchJudicial.
func (s *Service) AllJudicial(ctx context.Context, f JudicialFilter) ([]JudicialListItem, error) {
	var items []JudicialListItem
	if err := s.judicialQuery(ctx, f).Select(judicialColumns).Order(judicialOrder).Scan(&items).Error; err != nil {
		return nil, &StorageError{Op: "list judicial notes", Err: err}
	}
	return items, nil
}

// Judicial loads one JudicialNote by id.
func (s *Service) Judicial(ctx context.Context, id uint) (JudicialListItem, error) {
	var items []JudicialListItem
	err := s.judicialQuery(ctx, JudicialFilter{}).Select(judicialColumns).
		Where(judicialTable+".id = ?", id).Limit(1).Scan(&items).Error
	if err != nil {
		return JudicialListItem{}, &StorageError{Op: "load judicial note", Err: err}
	}
	if len(items) == 0 {
		return JudicialListItem{}, ErrNotFound
	}
	return items[0], nil
}

// MapPoint is a Person with usable coordinates.
type MapPoint struct {
	ID       uint    `json:"id"`
	Infopen  string  `json:"infopen"`
	Name     string  `json:"nome_completo"`
	Address  string  `json:"endereco"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	HasPhoto bool    `json:"has_photo"`
}

// MapPoints returns markers for every Person matching f whose latitude and
// longitude parse as numbers. Rows with unparsable coordinates are skipped.
func (s *Service) MapPoints(ctx context.Context, f PersonFilter) ([]MapPoint, error) {
	var persons []models.Person
	err := s.personQuery(ctx, f).
		Where(personTable + ".latitude <> '' AND " + personTable + ".longitude <> ''").
		Order(personOrder).Find(&persons).Error
	if err != nil {
		return nil, &StorageError{Op: "list map points", Err: err}
	}
	items, err := s.withPhotoFlags(ctx, persons)
	if err != nil {
		return nil, err
	}
	points := make([]MapPoint, 0, len(items))
	for _, it := range items {
		lat, errLat := parseCoordinate(it.Latitude)
		lng, errLng := parseCoordinate(it.Longitude)
		if errLat != nil || errLng != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
			continue
		}
		points = append(points, MapPoint{
			ID:       it.ID,
			Infopen:  it.Infopen,
			Name:     it.FullName,
			Address:  joinAddress(it.Street, it.Number, it.Neighborhood, it.Municipality),
			Lat:      lat,
			Lng:      lng,
			HasPhoto: it.HasPhoto,
		})
	}
	return points, nil
}

func parseCoordinate(v string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(v), ",", "."), 64)
}

func joinAddress(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}
