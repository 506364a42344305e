// Package catalog holds the static task template catalog: the mapping from
// (flow, phase) to the work items a dossier needs in that phase.
package catalog

import (
	"caseline/internal/domain"
	"caseline/internal/facts"
)

// Version identifies the catalog revision stored alongside seeded tasks.
const Version = 3

// Template is one catalog entry. Predicate, when present, lets the
// evaluator complete the task automatically; tasks without one are manual.
type Template struct {
	Type        string
	Title       string
	Description string
	Priority    domain.Priority
	Predicate   *facts.Predicate
	Index       int
}

// PhaseFor translates a raw status into the seeding phase. Completed and
// closed share the closure phase, so closing a completed dossier does not
// re-seed anything.
func PhaseFor(status domain.Status) domain.Phase {
	switch status {
	case domain.StatusCreated:
		return domain.PhaseRegistration
	case domain.StatusInProgress:
		return domain.PhaseIntake
	case domain.StatusUnderReview:
		return domain.PhaseReview
	default:
		return domain.PhaseClosure
	}
}

// TemplatesFor returns the ordered template list for a flow and phase. An
// unset flow has no catalog; the empty result means "no seeding applicable",
// not an error.
func TemplatesFor(flow domain.FlowType, phase domain.Phase) []Template {
	byPhase, ok := catalogs[flow]
	if !ok {
		return nil
	}
	src := byPhase[phase]
	out := make([]Template, len(src))
	copy(out, src)
	return out
}

func pred(checks ...facts.Check) *facts.Predicate {
	return &facts.Predicate{All: checks}
}

func docApproved(docType string) facts.Check {
	return facts.Check{Source: facts.SourceDocuments, Type: docType, Status: []string{"approved"}}
}

var registrationTemplates = []Template{
	{Type: "welcome", Title: "Welcome call with next of kin", Priority: domain.PriorityMedium, Index: 0},
	{Type: "family_contact", Title: "Record family contact details", Priority: domain.PriorityHigh, Index: 1},
	{Type: "gdpr_consent", Title: "Obtain GDPR consent", Priority: domain.PriorityHigh, Index: 2},
}

var reviewTemplates = []Template{
	{Type: "final_review", Title: "Final file review", Priority: domain.PriorityHigh, Index: 0},
	{
		Type: "invoice_sent", Title: "Send invoice", Priority: domain.PriorityMedium,
		Predicate: pred(facts.Check{Source: facts.SourceInvoices, Status: []string{"sent", "paid"}}),
		Index:     1,
	},
}

var closureTemplates = []Template{
	{Type: "archive_records", Title: "Archive dossier records", Priority: domain.PriorityLow, Index: 0},
}

var catalogs = map[domain.FlowType]map[domain.Phase][]Template{
	domain.FlowLocal: {
		domain.PhaseRegistration: registrationTemplates,
		domain.PhaseIntake: {
			{
				Type: "collect_id_document", Title: "Collect ID document of the deceased",
				Priority: domain.PriorityHigh, Predicate: pred(docApproved("id_document")), Index: 0,
			},
			{
				Type: "burial_permit", Title: "Obtain burial permit",
				Priority: domain.PriorityUrgent, Predicate: pred(docApproved("burial_permit")), Index: 1,
			},
			{
				Type: "insurance_claim", Title: "Settle insurance claim",
				Priority: domain.PriorityMedium,
				Predicate: pred(facts.Check{
					Source: facts.SourceClaims, Status: []string{"approved", "manual_override"},
				}),
				Index: 2,
			},
			{Type: "service_planning", Title: "Plan the funeral service", Priority: domain.PriorityHigh, Index: 3},
		},
		domain.PhaseReview:  reviewTemplates,
		domain.PhaseClosure: closureTemplates,
	},
	domain.FlowRepatriation: {
		domain.PhaseRegistration: append(append([]Template{}, registrationTemplates...), Template{
			Type: "embassy_notice", Title: "Notify embassy of destination country",
			Priority: domain.PriorityHigh, Index: 3,
		}),
		domain.PhaseIntake: {
			{
				Type: "collect_passport", Title: "Collect passport of the deceased",
				Priority: domain.PriorityHigh, Predicate: pred(docApproved("passport")), Index: 0,
			},
			{
				Type: "laissez_passer", Title: "Obtain laissez-passer",
				Priority: domain.PriorityUrgent, Predicate: pred(docApproved("laissez_passer")), Index: 1,
			},
			{
				Type: "insurance_claim", Title: "Settle insurance claim",
				Priority: domain.PriorityMedium,
				Predicate: pred(facts.Check{
					Source: facts.SourceClaims, Status: []string{"approved", "manual_override"},
				}),
				Index: 2,
			},
			{
				Type: "flight_booking", Title: "Book repatriation flight",
				Priority: domain.PriorityUrgent,
				Predicate: pred(facts.Check{
					Source: facts.SourceFlights, NonNull: "waybill",
				}),
				Index: 3,
			},
			{Type: "repatriation_consent", Title: "Confirm repatriation consent with family", Priority: domain.PriorityHigh, Index: 4},
		},
		domain.PhaseReview:  reviewTemplates,
		domain.PhaseClosure: closureTemplates,
	},
}
