package refdata

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	ent := writeFile(t, dir, "enterprise.json", `[{"UEOP":"1 CRPM","CIA":"2 CIA"},{"UEOP":"3 BPM","CIA":"1 CIA"}]`)
	city := writeFile(t, dir, "cityzen.json", `[
		{"MUNICIPIO":"Maceió","BAIRRO":"Centro"},
		{"MUNICIPIO":"ARAPIRACA"},
		{"MUNICIPIO":"MACEIÓ","BAIRRO":"Farol"},
		{"MUNICIPIO":"ARAPIRACA","BAIRRO":"Centro"},
		{"MUNICIPIO":"  "}
	]`)

	ref, err := Load(ent, city)
	require.NoError(t, err)
	// source spelling is kept; only exact repeats collapse
	assert.Equal(t, []string{"ARAPIRACA", "MACEIÓ", "Maceió"}, ref.Municipalities())
	require.Len(t, ref.Enterprises(), 2)
	assert.Equal(t, "1 CRPM", ref.Enterprises()[0]["UEOP"])
	assert.True(t, ref.HasMunicipality("maceió"))
	assert.True(t, ref.HasMunicipality(" Arapiraca "))
	assert.False(t, ref.HasMunicipality("RECIFE"))
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	city := writeFile(t, dir, "cityzen.json", `[]`)
	_, err := Load(filepath.Join(dir, "nope.json"), city)
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestLoadMalformed(t *testing.T) {
	dir := t.TempDir()
	ent := writeFile(t, dir, "enterprise.json", `{"not":"an array"}`)
	city := writeFile(t, dir, "cityzen.json", `[]`)
	_, err := Load(ent, city)
	assert.Error(t, err)
}

func TestReferenceIsNotMutatedByCallers(t *testing.T) {
	ref := New([]Enterprise{{"UEOP": "A"}}, []string{"B", "A"})
	m := ref.Municipalities()
	m[0] = "Z"
	assert.Equal(t, []string{"A", "B"}, ref.Municipalities())

	e := ref.Enterprises()
	e[0] = Enterprise{"UEOP": "changed"}
	assert.Equal(t, "A", ref.Enterprises()[0]["UEOP"])
}

func TestMunicipalitiesKeepSourceSpelling(t *testing.T) {
	ref := New(nil, []string{"São Miguel dos Campos", "Penedo", "Penedo", ""})
	assert.Equal(t, []string{"Penedo", "São Miguel dos Campos"}, ref.Municipalities())
	assert.True(t, ref.HasMunicipality("SÃO MIGUEL DOS CAMPOS"))
	assert.True(t, ref.HasMunicipality("penedo"))
	assert.False(t, ref.HasMunicipality(""))
}
