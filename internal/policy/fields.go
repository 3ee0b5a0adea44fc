package policy

import "backend/internal/workflow"

// Editable content fields by column name, each bound to the single
// segment whose Drafting status permits editing it.
const (
	FieldTitle               = "title"
	FieldProblemStatement    = "problem_statement"
	FieldProductRequirements = "product_requirements"
	FieldSystemDesign        = "system_design"
	FieldEffortEstimate      = "effort_estimate"
	FieldCostEstimate        = "cost_estimate"
	FieldValueProjection     = "value_projection"
	FieldFinancialSummary    = "financial_summary"
)

var fieldSegments = map[string]workflow.Segment{
	FieldTitle:               workflow.SegmentIntake,
	FieldProblemStatement:    workflow.SegmentIntake,
	FieldProductRequirements: workflow.SegmentIntake,
	FieldSystemDesign:        workflow.SegmentSystemDesign,
	FieldEffortEstimate:      workflow.SegmentEffort,
	FieldCostEstimate:        workflow.SegmentCosting,
	FieldValueProjection:     workflow.SegmentValue,
	FieldFinancialSummary:    workflow.SegmentFinancial,
}

// FieldSegment resolves a content field name to its owning segment.
func FieldSegment(field string) (workflow.Segment, bool) {
	seg, ok := fieldSegments[field]
	return seg, ok
}

// EditableFields returns the known content field names, grouped segment
// by segment in path order.
func EditableFields() []string {
	ordered := []string{
		FieldTitle, FieldProblemStatement, FieldProductRequirements,
		FieldSystemDesign, FieldEffortEstimate, FieldCostEstimate,
		FieldValueProjection, FieldFinancialSummary,
	}
	return ordered
}
