package field

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidCatalog = errors.New("field: invalid catalog")
	ErrUnknownType    = errors.New("field: unknown field type")
)

// Definition is the YAML description of one CRUD.
//
//	entity: Product
//	label: Product
//	plural_label: Products
//	page_size: 20
//	default_sort:
//	  - {field: name, direction: ASC}
//	actions:
//	  index:
//	    - {name: id, type: id}
//	    - {name: name, sortable: true, searchable: true}
//	  edit:
//	    - {name: name, required: true, max_length: 120}
type Definition struct {
	Actions     map[string]Set `yaml:"actions"`
	DefaultSort []Sort         `yaml:"default_sort,omitempty"`
	Entity      string         `yaml:"entity"`
	Label       string         `yaml:"label,omitempty"`
	PluralLabel string         `yaml:"plural_label,omitempty"`
	PageSize    int            `yaml:"page_size,omitempty"`
}

// Sort is one ordering clause of a definition.
type Sort struct {
	Field     string `yaml:"field"`
	Direction string `yaml:"direction,omitempty"`
}

// Fields returns the fields configured for action.
// Missing actions fall back to the index fields.
func (d Definition) Fields(action string) Set {
	if s, ok := d.Actions[action]; ok {
		return s.Clone()
	}
	return d.Actions["index"].Clone()
}

// Catalog maps entity names to their definitions.
type Catalog map[string]Definition

type catalogFile struct {
	Cruds []Definition `yaml:"cruds"`
}

// LoadCatalog decodes a YAML catalog from r.
func LoadCatalog(r io.Reader) (Catalog, error) {
	var file catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return Catalog{}, nil
		}
		return nil, errors.Join(ErrInvalidCatalog, err)
	}

	catalog := make(Catalog, len(file.Cruds))
	for _, def := range file.Cruds {
		if strings.TrimSpace(def.Entity) == "" {
			return nil, fmt.Errorf("%w: crud without entity", ErrInvalidCatalog)
		}
		if _, dup := catalog[def.Entity]; dup {
			return nil, fmt.Errorf("%w: duplicate entity %q", ErrInvalidCatalog, def.Entity)
		}
		for action, set := range def.Actions {
			for i, f := range set {
				if f.Type == "" {
					set[i].Type = TypeText
				}
				if !knownType(set[i].Type) {
					return nil, fmt.Errorf("%w: %s.%s.%s: %q", ErrUnknownType, def.Entity, action, f.Name, f.Type)
				}
			}
		}
		catalog[def.Entity] = def
	}
	return catalog, nil
}

// LoadCatalogFS reads and decodes the catalog file at path in fsys.
func LoadCatalogFS(fsys fs.FS, path string) (Catalog, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, errors.Join(ErrInvalidCatalog, err)
	}
	defer f.Close()
	return LoadCatalog(f)
}

func knownType(t Type) bool {
	switch t {
	case TypeID, TypeText, TypeTextarea, TypeInteger, TypeNumber, TypeBoolean,
		TypeDate, TypeDateTime, TypeEmail, TypeChoice:
		return true
	}
	return false
}
