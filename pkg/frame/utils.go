package frame

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"rasgo-sdk/pkg/api"
	"regexp"
	"slices"
	"strings"
)

type SchemaField struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

var schemaTypes = map[Kind]string{
	KindInteger:  "integer",
	KindFloat:    "number",
	KindBoolean:  "boolean",
	KindDatetime: "datetime",
	KindString:   "string",
}

// BuildSchema returns the table schema of a dataset keyed by column name.
func BuildSchema(ds *Dataset, includeIndex bool) map[string]SchemaField {
	schema := make(map[string]SchemaField, ds.Ncol()+1)
	if includeIndex {
		schema["index"] = SchemaField{Name: "index", Type: "integer"}
	}
	for _, name := range ds.Names() {
		if name == "index" && !includeIndex {
			continue
		}
		schema[name] = SchemaField{Name: name, Type: schemaTypes[ds.Kind(name)]}
	}
	return schema
}

type TypeMap map[Kind]string

var DefaultTypeMap = TypeMap{
	KindInteger:  "INTEGER",
	KindFloat:    "REAL",
	KindBoolean:  "INTEGER",
	KindDatetime: "TIMESTAMP",
	KindString:   "TEXT",
}

type DDLOptions struct {
	Append bool
	Types  TypeMap
	// Suffix is appended after the column list, e.g. a table engine clause.
	Suffix string
}

// GenerateDDL returns a statement creating a table matching the dataset
// schema. The default replaces an existing table, Append keeps it.
func GenerateDDL(ds *Dataset, table string, opts DDLOptions) string {
	create := "CREATE OR REPLACE TABLE"
	if opts.Append {
		create = "CREATE TABLE IF NOT EXISTS"
	}

	types := opts.Types
	if types == nil {
		types = DefaultTypeMap
	}

	columns := make([]string, 0, ds.Ncol())
	for _, name := range ds.Names() {
		sqlType, ok := types[ds.Kind(name)]
		if !ok {
			sqlType = types[KindString]
		}
		columns = append(columns, fmt.Sprintf("%s %s", name, sqlType))
	}

	ddl := fmt.Sprintf("%s %s (\n  %s\n)", create, table, strings.Join(columns, ",\n  "))
	if opts.Suffix != "" {
		ddl += " " + opts.Suffix
	}
	return ddl
}

// ConfirmColumns checks that all dimensions and features are columns of ds.
func ConfirmColumns(ds *Dataset, dimensions, features []string) error {
	return ConfirmListColumns(ds.Names(), dimensions, features)
}

func ConfirmListColumns(columns, dimensions, features []string) error {
	var missingDims, missingFeatures, consider []string
	check := func(name string, missing *[]string) {
		if slices.Contains(columns, name) {
			return
		}
		*missing = append(*missing, name)
		if normalized := NormalizeName(name); slices.Contains(columns, normalized) {
			consider = append(consider, normalized)
		}
	}

	for _, dim := range dimensions {
		check(dim, &missingDims)
	}
	for _, ft := range features {
		check(ft, &missingFeatures)
	}

	if len(missingDims) > 0 || len(missingFeatures) > 0 {
		return api.Errorf(api.ErrColumnNotFound,
			"Specified columns do not exist in dataframe: Dimensions(%v) Features(%v) Consider these: (%v)?",
			missingDims, missingFeatures, consider)
	}
	return nil
}

// GenerateUniqueID returns a url safe token built from 32 random bytes.
func GenerateUniqueID() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("unable to read random bytes: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

// SetDatasetID resolves the id of a dataset: an experiment id always wins and
// is written to the dataset, an existing tag is kept, otherwise a new id is
// generated and tagged.
func SetDatasetID(ds *Dataset, experimentID string) string {
	if experimentID != "" {
		TagDataset(ds, map[string]string{IDAttribute: experimentID})
		return experimentID
	}
	if id := ds.Attrs[IDAttribute]; id != "" {
		return id
	}
	id := GenerateUniqueID()
	TagDataset(ds, map[string]string{IDAttribute: id})
	return id
}

func TagDataset(ds *Dataset, attrs map[string]string) {
	if ds.Attrs == nil {
		ds.Attrs = map[string]string{}
	}
	for k, v := range attrs {
		ds.Attrs[k] = v
	}
}

// MapType returns the type name reported to the web app for a column kind.
func MapType(kind Kind) string {
	switch kind {
	case KindFloat:
		return "float"
	case KindDatetime:
		return "datetime"
	case KindInteger:
		return "integer"
	case KindBoolean:
		return "bool"
	default:
		return "object"
	}
}

// ProfileType buckets a kind into the profile families number, boolean and
// string. Anything unknown is profiled as a string.
func ProfileType(kind Kind) string {
	switch kind {
	case KindInteger, KindFloat:
		return "number"
	case KindBoolean:
		return "boolean"
	default:
		return "string"
	}
}

var invalidIdentifierChars = regexp.MustCompile(`[^A-Z0-9_]`)

// NormalizeName converts a name to an unquoted warehouse identifier.
func NormalizeName(name string) string {
	n := strings.ToUpper(strings.TrimSpace(name))
	n = invalidIdentifierChars.ReplaceAllString(n, "_")
	if n != "" && n[0] >= '0' && n[0] <= '9' {
		n = "_" + n
	}
	return n
}

// NormalizeColumns renames every column of ds in place with NormalizeName.
func NormalizeColumns(ds *Dataset) error {
	for _, name := range ds.Names() {
		normalized := NormalizeName(name)
		if normalized == name {
			continue
		}
		if err := ds.RenameColumn(name, normalized); err != nil {
			return err
		}
	}
	return nil
}
