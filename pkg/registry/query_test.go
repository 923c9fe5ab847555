package registry

import (
	"context"
	"fmt"
	"testing"

	"egressos/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedPersons(t *testing.T, s *Service, n int, municipality string) {
	t.Helper()
	for i := 1; i <= n; i++ {
		mustCreate(t, s, PersonInput{
			Infopen:      fmt.Sprintf("%s-%03d", municipality, i),
			FullName:     fmt.Sprintf("Pessoa %03d", i),
			Municipality: municipality,
		})
	}
}

func TestSearchPersonsPagination(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()
	seedPersons(t, s, 120, "CAPITAL")

	sizes := []int{50, 50, 20, 0}
	for i, want := range sizes {
		page, err := s.SearchPersons(ctx, PersonFilter{}, i+1)
		require.NoError(t, err)
		assert.Len(t, page.Items, want, "page %d", i+1)
		assert.EqualValues(t, 120, page.Total)
		assert.Equal(t, 3, page.Pages)
		assert.Equal(t, PageSize, page.PerPage)
		assert.NotNil(t, page.Items)
	}

	first, err := s.SearchPersons(ctx, PersonFilter{}, 1)
	require.NoError(t, err)
	assert.Equal(t, "PESSOA 001", first.Items[0].FullName)
	third, err := s.SearchPersons(ctx, PersonFilter{}, 3)
	require.NoError(t, err)
	assert.Equal(t, "PESSOA 101", third.Items[0].FullName)
	assert.Equal(t, "PESSOA 120", third.Items[19].FullName)
}

func TestSearchPersonsPageBelowOneIsFirstPage(t *testing.T) {
	s, _, _ := newTestService(t)
	seedPersons(t, s, 3, "X")

	page, err := s.SearchPersons(context.Background(), PersonFilter{}, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Len(t, page.Items, 3)
}

func TestSearchPersonsHasPhoto(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()
	_, _, err := s.CreatePerson(ctx, PersonInput{Infopen: "P1", FullName: "Com Foto"}, pngUpload(t, "p1.png", 200))
	require.NoError(t, err)
	mustCreate(t, s, PersonInput{Infopen: "P2", FullName: "Sem Foto"})

	page, err := s.SearchPersons(ctx, PersonFilter{}, 1)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.True(t, page.Items[0].HasPhoto)
	assert.False(t, page.Items[1].HasPhoto)

	item, err := s.Person(ctx, page.Items[0].ID)
	require.NoError(t, err)
	assert.True(t, item.HasPhoto)
}

func TestPersonNotFound(t *testing.T) {
	s, _, _ := newTestService(t)
	_, err := s.Person(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearchJudicialJoinsPersonName(t *testing.T) {
	s, clock, db := newTestService(t)
	ctx := context.Background()
	mustCreate(t, s, PersonInput{Infopen: "J1", FullName: "Ana Souza"})
	mustCreate(t, s, PersonInput{Infopen: "J2", FullName: "Bruno Lima"})

	_, err := s.CreateJudicial(ctx, JudicialInput{Infopen: "j1", SEEUNumber: "7000123", Protocol: "P-1"})
	require.NoError(t, err)
	clock.Set(2026, 3, 11, 10)
	_, err = s.CreateJudicial(ctx, JudicialInput{Infopen: "J2", SEEUNumber: "8000456"})
	require.NoError(t, err)
	clock.Set(2026, 3, 12, 10)
	orphan := models.JudicialNote{Infopen: "GONE", SEEUNumber: "999", RegisteredAt: clock.Now()}
	require.NoError(t, db.Create(&orphan).Error)

	page, err := s.SearchJudicial(ctx, JudicialFilter{}, 1)
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	assert.EqualValues(t, 3, page.Total)
	assert.Equal(t, "GONE", page.Items[0].Infopen)
	assert.Equal(t, "", page.Items[0].PersonName)
	assert.Equal(t, "BRUNO LIMA", page.Items[1].PersonName)
	assert.Equal(t, "ANA SOUZA", page.Items[2].PersonName)
	assert.Equal(t, "J1", page.Items[2].Infopen)

	page, err = s.SearchJudicial(ctx, JudicialFilter{Name: "souza"}, 1)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "7000123", page.Items[0].SEEUNumber)

	page, err = s.SearchJudicial(ctx, JudicialFilter{SEEUNumber: "800"}, 1)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "J2", page.Items[0].Infopen)

	item, err := s.Judicial(ctx, page.Items[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "BRUNO LIMA", item.PersonName)

	_, err = s.Judicial(ctx, 12345)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMapPointsSkipsUnusableCoordinates(t *testing.T) {
	s, _, _ := newTestService(t)
	mustCreate(t, s, PersonInput{Infopen: "M1", FullName: "Alfa", Street: "Rua A", Number: "10", Municipality: "Capital", Latitude: "-9,6498", Longitude: "-35.7089"})
	mustCreate(t, s, PersonInput{Infopen: "M2", FullName: "Beta", Latitude: "", Longitude: "-35.1"})
	mustCreate(t, s, PersonInput{Infopen: "M3", FullName: "Gama", Latitude: "norte", Longitude: "-35.1"})
	mustCreate(t, s, PersonInput{Infopen: "M4", FullName: "Delta", Latitude: "95", Longitude: "-35.1"})

	points, err := s.MapPoints(context.Background(), PersonFilter{})
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, "M1", points[0].Infopen)
	assert.InDelta(t, -9.6498, points[0].Lat, 1e-9)
	assert.InDelta(t, -35.7089, points[0].Lng, 1e-9)
	assert.Equal(t, "RUA A, 10, CAPITAL", points[0].Address)
}

func TestPersonsForSelectOrdersByName(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()
	mustCreate(t, s, PersonInput{Infopen: "z1", FullName: "Zelia"})
	mustCreate(t, s, PersonInput{Infopen: "a1", FullName: "Abel"})

	persons, err := s.PersonsForSelect(ctx)
	require.NoError(t, err)
	require.Len(t, persons, 2)
	assert.Equal(t, "ABEL", persons[0].FullName)
	assert.Equal(t, "ZELIA", persons[1].FullName)
}
