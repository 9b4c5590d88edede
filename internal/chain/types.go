// Package chain holds the V-model document chain schema: which document
// types exist, which identifier prefixes each type owns, and the directed
// dependency edges between types. Every other component consults a
// *Schema built from these tables instead of hard-coding ownership or order.
package chain

// DocType identifies a kind of document in the chain.
type DocType string

// Document types, in declaration order. Declaration order doubles as the
// linear trace order used by the traceability matrix and as the stable
// tie-break order for propagation planning.
const (
	Requirements       DocType = "requirements"
	NFR                DocType = "nfr"
	FunctionsList      DocType = "functions-list"
	ProjectPlan        DocType = "project-plan"
	BasicDesign        DocType = "basic-design"
	SecurityDesign     DocType = "security-design"
	DetailDesign       DocType = "detail-design"
	OperationDesign    DocType = "operation-design"
	MigrationDesign    DocType = "migration-design"
	TestPlan           DocType = "test-plan"
	UTSpec             DocType = "ut-spec"
	ITSpec             DocType = "it-spec"
	STSpec             DocType = "st-spec"
	UATSpec            DocType = "uat-spec"
	CRUDMatrix         DocType = "crud-matrix"
	TraceabilityMatrix DocType = "traceability-matrix"
	Sitemap            DocType = "sitemap"
)

// Phase groups document types by V-model stage.
type Phase string

// Phase groups.
const (
	PhaseRequirements  Phase = "requirements"
	PhaseDesign        Phase = "design"
	PhaseTest          Phase = "test"
	PhaseSupplementary Phase = "supplementary"
)

// DocSpec declares one document type: its phase and the identifier
// prefixes it owns.
type DocSpec struct {
	Type     DocType
	Phase    Phase
	Prefixes []string
}

// Edge is a directed chain edge from an upstream document type to a
// downstream document type that builds on it.
type Edge struct {
	Upstream   DocType `json:"upstream" yaml:"upstream" toml:"upstream"`
	Downstream DocType `json:"downstream" yaml:"downstream" toml:"downstream"`
}

// String renders the edge as "upstream → downstream".
func (e Edge) String() string {
	return string(e.Upstream) + " → " + string(e.Downstream)
}

// standardDocs is the declared document set. Order matters: see DocType.
var standardDocs = []DocSpec{
	{Type: Requirements, Phase: PhaseRequirements, Prefixes: []string{"REQ", "NFR", "UC"}},
	{Type: NFR, Phase: PhaseRequirements, Prefixes: []string{"NFR"}},
	{Type: FunctionsList, Phase: PhaseRequirements, Prefixes: []string{"FN"}},
	{Type: ProjectPlan, Phase: PhaseRequirements, Prefixes: []string{"MS", "RSK"}},
	{Type: BasicDesign, Phase: PhaseDesign, Prefixes: []string{"SCR", "API", "TBL", "RPT", "BAT", "IF"}},
	{Type: SecurityDesign, Phase: PhaseDesign, Prefixes: []string{"SEC"}},
	{Type: DetailDesign, Phase: PhaseDesign, Prefixes: []string{"MOD", "CLS"}},
	{Type: OperationDesign, Phase: PhaseDesign, Prefixes: []string{"OPS"}},
	{Type: MigrationDesign, Phase: PhaseDesign, Prefixes: []string{"MIG"}},
	{Type: TestPlan, Phase: PhaseTest, Prefixes: []string{"TP"}},
	{Type: UTSpec, Phase: PhaseTest, Prefixes: []string{"UT"}},
	{Type: ITSpec, Phase: PhaseTest, Prefixes: []string{"IT"}},
	{Type: STSpec, Phase: PhaseTest, Prefixes: []string{"ST"}},
	{Type: UATSpec, Phase: PhaseTest, Prefixes: []string{"UAT"}},
	{Type: CRUDMatrix, Phase: PhaseSupplementary},
	{Type: TraceabilityMatrix, Phase: PhaseSupplementary},
	{Type: Sitemap, Phase: PhaseSupplementary},
}

// standardEdges is the V-model chain. Every edge points forward in
// declaration order.
var standardEdges = []Edge{
	{Requirements, NFR},
	{Requirements, FunctionsList},
	{Requirements, ProjectPlan},
	{Requirements, BasicDesign},
	{Requirements, SecurityDesign},
	{Requirements, OperationDesign},
	{Requirements, MigrationDesign},
	{Requirements, TestPlan},
	{Requirements, UATSpec},
	{Requirements, TraceabilityMatrix},

	{NFR, BasicDesign},
	{NFR, SecurityDesign},
	{NFR, OperationDesign},
	{NFR, TestPlan},
	{NFR, STSpec},

	{FunctionsList, BasicDesign},
	{FunctionsList, DetailDesign},
	{FunctionsList, TestPlan},
	{FunctionsList, ITSpec},
	{FunctionsList, CRUDMatrix},
	{FunctionsList, Sitemap},

	{ProjectPlan, MigrationDesign},
	{ProjectPlan, TestPlan},

	{BasicDesign, SecurityDesign},
	{BasicDesign, DetailDesign},
	{BasicDesign, OperationDesign},
	{BasicDesign, MigrationDesign},
	{BasicDesign, ITSpec},
	{BasicDesign, STSpec},
	{BasicDesign, CRUDMatrix},
	{BasicDesign, Sitemap},
	{BasicDesign, TraceabilityMatrix},

	{SecurityDesign, DetailDesign},
	{SecurityDesign, OperationDesign},
	{SecurityDesign, STSpec},

	{DetailDesign, UTSpec},
	{DetailDesign, ITSpec},
	{DetailDesign, CRUDMatrix},

	{OperationDesign, STSpec},
	{OperationDesign, UATSpec},

	{MigrationDesign, STSpec},
	{MigrationDesign, UATSpec},

	{TestPlan, UTSpec},
	{TestPlan, ITSpec},
	{TestPlan, STSpec},
	{TestPlan, UATSpec},

	{UTSpec, TraceabilityMatrix},
	{ITSpec, TraceabilityMatrix},
	{STSpec, TraceabilityMatrix},
	{UATSpec, TraceabilityMatrix},
}
