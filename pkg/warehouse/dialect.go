package warehouse

import (
	_ "embed"
	"fmt"
	"rasgo-sdk/pkg/api"
	"rasgo-sdk/pkg/frame"
	"regexp"
	"sort"
	"strings"
	"text/template"

	"gopkg.in/yaml.v2"
)

//go:embed dialects.yaml
var dialectsYAML []byte

const (
	ReplaceCreateOrReplace = "create_or_replace"
	ReplaceDropCreate      = "drop_create"
)

// Dialect holds the SQL that differs between warehouses.
type Dialect struct {
	Name                 string            `yaml:"-"`
	Driver               string            `yaml:"driver"`
	Qualify              []string          `yaml:"qualify"`
	NormalizeIdentifiers bool              `yaml:"normalize_identifiers"`
	Replace              string            `yaml:"replace"`
	MultiRowInsert       bool              `yaml:"multirow_insert"`
	TableSuffix          string            `yaml:"table_suffix"`
	Types                map[string]string `yaml:"types"`
	ColumnKinds          map[string]string `yaml:"column_kinds"`
	TablesQuery          string            `yaml:"tables_query"`
	ColumnsQuery         string            `yaml:"columns_query"`
	ColumnsTableFilter   string            `yaml:"columns_table_filter"`
	ColumnsTypeFilter    string            `yaml:"columns_type_filter"`
	GrantOwnership       string            `yaml:"grant_ownership"`
	GrantSelect          string            `yaml:"grant_select"`
	Clone                []string          `yaml:"clone"`
	CloneReplace         []string          `yaml:"clone_replace"`
	StageCopy            string            `yaml:"stage_copy"`
}

var dialects map[string]*Dialect

func init() {
	var err error
	dialects, err = parseDialects(dialectsYAML)
	if err != nil {
		panic(fmt.Sprintf("invalid embedded dialects: %v", err))
	}
}

func parseDialects(data []byte) (map[string]*Dialect, error) {
	parsed := map[string]*Dialect{}
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("error parsing dialects: %w", err)
	}
	for name, d := range parsed {
		d.Name = name
		if d.Driver == "" {
			return nil, fmt.Errorf("dialect %s has no driver", name)
		}
		if d.Replace != ReplaceCreateOrReplace && d.Replace != ReplaceDropCreate {
			return nil, fmt.Errorf("dialect %s has invalid replace strategy '%s'", name, d.Replace)
		}
		for typeName, kind := range d.ColumnKinds {
			switch frame.Kind(kind) {
			case frame.KindInteger, frame.KindFloat, frame.KindBoolean, frame.KindDatetime, frame.KindString:
			default:
				return nil, fmt.Errorf("dialect %s maps %s to unknown kind '%s'", name, typeName, kind)
			}
		}
	}
	return parsed, nil
}

// Dialects lists the supported dialect names.
func Dialects() []string {
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func GetDialect(name string) (*Dialect, error) {
	d, ok := dialects[strings.ToLower(name)]
	if !ok {
		return nil, api.Errorf(api.ErrUnsupported, "unsupported warehouse dialect '%s', expected one of %v", name, Dialects())
	}
	return d, nil
}

// TypeMap converts the dialect column types for frame.GenerateDDL.
func (d *Dialect) TypeMap() frame.TypeMap {
	types := frame.TypeMap{}
	for kind, sqlType := range d.Types {
		types[frame.Kind(kind)] = sqlType
	}
	return types
}

// ColumnKind maps a driver reported column type such as NUMBER(38,0),
// Nullable(Int64) or TIMESTAMPTZ to a dataset column kind.
func (d *Dialect) ColumnKind(databaseType string) (frame.Kind, bool) {
	kind, ok := d.ColumnKinds[baseTypeName(databaseType)]
	return frame.Kind(kind), ok
}

var typeWrappers = []string{"NULLABLE(", "LOWCARDINALITY("}

func baseTypeName(name string) string {
	t := strings.ToUpper(strings.TrimSpace(name))
	for unwrapped := true; unwrapped; {
		unwrapped = false
		for _, w := range typeWrappers {
			if strings.HasPrefix(t, w) && strings.HasSuffix(t, ")") {
				t = t[len(w) : len(t)-1]
				unwrapped = true
			}
		}
	}
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = t[:i]
	}
	return strings.TrimSpace(t)
}

// QualifyTable builds the table name the dialect expects from its parts.
// Names that are already dotted are returned unchanged.
func (d *Dialect) QualifyTable(database, schema, table string) TableMetadata {
	if strings.Contains(table, ".") {
		return TableMetadata{Table: table}
	}
	meta := TableMetadata{Table: table}
	for _, part := range d.Qualify {
		switch part {
		case "database":
			meta.Database = database
		case "schema":
			meta.Schema = schema
		}
	}
	return meta
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*(\.[A-Za-z_][A-Za-z0-9_$]*)*$`)

func checkIdentifier(kind, name string) error {
	if !identifierPattern.MatchString(name) {
		return api.Errorf(api.ErrInvalidParameter, "invalid %s name '%s'", kind, name)
	}
	return nil
}

func render(name, text string, data any) (string, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("error parsing %s template: %w", name, err)
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("error rendering %s template: %w", name, err)
	}
	return sb.String(), nil
}
