package schema

import "time"

// FieldStat describes one field of a table, either declared in schema source
// or observed in sampled documents.
type FieldStat struct {
	// Path is dot-delimited for nested fields, e.g. "address.city".
	Path string `json:"path"`
	// Types holds the distinct type names observed or declared for this field.
	Types []string `json:"types"`
	// OptionalRate is 1 - presentCount/totalSampled for inferred fields,
	// exactly 1 for declared optional fields and 0 otherwise.
	OptionalRate float64 `json:"optionalRate"`
	// SampleCount is the number of documents the field was observed in.
	// Zero for fields taken from schema source.
	SampleCount int `json:"sampleCount"`
	// Confidence is in [0,1]; declared fields get 1.0 (0.8 for custom
	// validator conventions), inferred fields saturate with sample size.
	Confidence float64 `json:"confidence"`
}

// TableSchema is the schema of one table. Fields keep first-seen order unless
// a producer documents a different ordering.
type TableSchema struct {
	Table       string      `json:"table"`
	Fields      []FieldStat `json:"fields"`
	SampledDocs int         `json:"sampledDocs"`
	InferredAt  time.Time   `json:"inferredAt"`
}

// IndexKind classifies an index declaration.
type IndexKind string

const (
	IndexByField IndexKind = "by-field"
	IndexSearch  IndexKind = "search"
	IndexVector  IndexKind = "vector"
)

// IndexDefinition is a named index on a table. Name is unique within a table.
type IndexDefinition struct {
	Table  string    `json:"table"`
	Name   string    `json:"name"`
	Fields []string  `json:"fields"`
	Kind   IndexKind `json:"kind"`
}

// RelationSource records how a relation edge was obtained.
type RelationSource string

const (
	RelationInferred RelationSource = "inferred"
	RelationManual   RelationSource = "manual"
)

// RelationEdge is a directed foreign-key-like link between two tables.
// Multiple edges may share endpoints with different confidences.
type RelationEdge struct {
	FromTable     string         `json:"fromTable"`
	FromFieldPath string         `json:"fromFieldPath"`
	ToTable       string         `json:"toTable"`
	Confidence    float64        `json:"confidence"`
	Source        RelationSource `json:"source"`
}

// SchemaSnapshot is an immutable capture of a full schema at one point in
// time. Never mutated after construction; diffing is read-only.
type SchemaSnapshot struct {
	ID           string         `json:"id"`
	DeploymentID string         `json:"deploymentId"`
	CreatedAt    time.Time      `json:"createdAt"`
	Tables       []TableSchema  `json:"tables"`
	Relations    []RelationEdge `json:"relations"`
}

// Severity ranks an index coverage issue.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// IndexCoverageIssue flags a query call site whose indexing is missing,
// misconfigured or suboptimal.
type IndexCoverageIssue struct {
	FunctionPath   string   `json:"functionPath"`
	Table          string   `json:"table"`
	Severity       Severity `json:"severity"`
	Message        string   `json:"message"`
	SuggestedIndex string   `json:"suggestedIndex,omitempty"`
}

// ChangeKind classifies a table or field diff entry.
type ChangeKind string

const (
	ChangeAdded       ChangeKind = "added"
	ChangeRemoved     ChangeKind = "removed"
	ChangeModified    ChangeKind = "modified"
	ChangeTypeChanged ChangeKind = "type_changed"
)

// FieldDiff is one field-level change between two snapshots.
type FieldDiff struct {
	Path     string     `json:"path"`
	Change   ChangeKind `json:"change"`
	OldTypes []string   `json:"oldTypes,omitempty"`
	NewTypes []string   `json:"newTypes,omitempty"`
}

// TableDiff is one table-level change between two snapshots.
type TableDiff struct {
	Table      string      `json:"table"`
	Change     ChangeKind  `json:"change"`
	FieldDiffs []FieldDiff `json:"fieldDiffs"`
}

// SchemaDrift is the ordered structural diff between two snapshots.
type SchemaDrift struct {
	FromSnapshotID string      `json:"fromSnapshotId"`
	ToSnapshotID   string      `json:"toSnapshotId"`
	TableDiffs     []TableDiff `json:"tableDiffs"`
	Summary        string      `json:"summary"`
}

// Definition is the result of parsing schema-definition source text.
type Definition struct {
	Tables    []TableSchema     `json:"tables"`
	Indexes   []IndexDefinition `json:"indexes"`
	Relations []RelationEdge    `json:"relations"`
}

// Inference is the result of inferring a table schema from sampled documents.
type Inference struct {
	Schema    TableSchema    `json:"schema"`
	Relations []RelationEdge `json:"relations"`
}

// Definition wraps a single-table inference in the common definition shape
// shared with the parser, so formatters can treat both uniformly.
func (i *Inference) Definition() *Definition {
	return &Definition{
		Tables:    []TableSchema{i.Schema},
		Relations: i.Relations,
	}
}
