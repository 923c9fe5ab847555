// Package refdata loads the static enterprise and municipality lists used to
// populate registration forms. The data is read once at startup and never
// mutated afterwards.
package refdata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Enterprise is one entry of enterprise.json, passed through as-is.
type Enterprise map[string]any

// Reference is the immutable reference data handed to the HTTP layer.
type Reference struct {
	enterprises    []Enterprise
	municipalities []string
	known          map[string]struct{} // uppercased names
}

// New builds a Reference. Municipalities keep their source spelling and are
// deduplicated and sorted; blank names are dropped.
func New(enterprises []Enterprise, municipalities []string) *Reference {
	ent := make([]Enterprise, len(enterprises))
	copy(ent, enterprises)
	names := uniqueSorted(municipalities)
	known := make(map[string]struct{}, len(names))
	for _, n := range names {
		known[normalizeName(n)] = struct{}{}
	}
	return &Reference{enterprises: ent, municipalities: names, known: known}
}

// Empty is used when no reference files are configured.
func Empty() *Reference {
	return New(nil, nil)
}

// Enterprises returns a copy of the enterprise list.
func (r *Reference) Enterprises() []Enterprise {
	out := make([]Enterprise, len(r.enterprises))
	copy(out, r.enterprises)
	return out
}

// Municipalities returns a copy of the sorted municipality names.
func (r *Reference) Municipalities() []string {
	out := make([]string, len(r.municipalities))
	copy(out, r.municipalities)
	return out
}

// HasMunicipality reports whether name (case-insensitive) is a known municipality.
func (r *Reference) HasMunicipality(name string) bool {
	_, ok := r.known[normalizeName(name)]
	return ok
}

func normalizeName(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

type cityzenEntry struct {
	Municipality string `json:"MUNICIPIO"`
}

// Load reads enterprise.json (a JSON array of objects) and cityzen.json (a
// JSON array of objects carrying a MUNICIPIO key).
func Load(enterprisePath, cityzenPath string) (*Reference, error) {
	var enterprises []Enterprise
	if err := readJSON(enterprisePath, &enterprises); err != nil {
		return nil, err
	}
	var cityzen []cityzenEntry
	if err := readJSON(cityzenPath, &cityzen); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(cityzen))
	for _, c := range cityzen {
		names = append(names, c.Municipality)
	}
	return New(enterprises, names), nil
}

func readJSON(path string, dest any) error {
	b, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(b, dest); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func uniqueSorted(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if strings.TrimSpace(s) == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
