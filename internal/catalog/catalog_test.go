package catalog_test

import (
	"testing"

	"caseline/internal/catalog"
	"caseline/internal/domain"
)

func TestPhaseFor(t *testing.T) {
	cases := map[domain.Status]domain.Phase{
		domain.StatusCreated:     domain.PhaseRegistration,
		domain.StatusInProgress:  domain.PhaseIntake,
		domain.StatusUnderReview: domain.PhaseReview,
		domain.StatusCompleted:   domain.PhaseClosure,
		domain.StatusClosed:      domain.PhaseClosure,
	}
	for status, want := range cases {
		if got := catalog.PhaseFor(status); got != want {
			t.Errorf("PhaseFor(%s) = %s, want %s", status, got, want)
		}
	}
}

func TestLocalRegistrationTemplates(t *testing.T) {
	templates := catalog.TemplatesFor(domain.FlowLocal, domain.PhaseRegistration)
	if len(templates) != 3 {
		t.Fatalf("expected 3 templates, got %d", len(templates))
	}
	wantOrder := []string{"welcome", "family_contact", "gdpr_consent"}
	for i, tmpl := range templates {
		if tmpl.Type != wantOrder[i] {
			t.Errorf("template %d: %s, want %s", i, tmpl.Type, wantOrder[i])
		}
		if tmpl.Predicate != nil {
			t.Errorf("registration template %s should be manual", tmpl.Type)
		}
	}
}

func TestRepatriationAddsEmbassyNotice(t *testing.T) {
	templates := catalog.TemplatesFor(domain.FlowRepatriation, domain.PhaseRegistration)
	if len(templates) != 4 {
		t.Fatalf("expected 4 templates, got %d", len(templates))
	}
	if templates[3].Type != "embassy_notice" {
		t.Fatalf("last template %s, want embassy_notice", templates[3].Type)
	}
}

func TestFlightBookingPredicate(t *testing.T) {
	templates := catalog.TemplatesFor(domain.FlowRepatriation, domain.PhaseIntake)
	var found bool
	for _, tmpl := range templates {
		if tmpl.Type != "flight_booking" {
			continue
		}
		found = true
		if tmpl.Predicate == nil || len(tmpl.Predicate.All) != 1 {
			t.Fatalf("flight_booking predicate malformed: %+v", tmpl.Predicate)
		}
		check := tmpl.Predicate.All[0]
		if check.NonNull != "waybill" {
			t.Fatalf("flight_booking should require a waybill, got %q", check.NonNull)
		}
	}
	if !found {
		t.Fatalf("flight_booking template missing")
	}
}

func TestUnsetFlowHasNoCatalog(t *testing.T) {
	if templates := catalog.TemplatesFor(domain.FlowUnset, domain.PhaseRegistration); len(templates) != 0 {
		t.Fatalf("unset flow returned %d templates", len(templates))
	}
}

func TestTemplatesForReturnsCopies(t *testing.T) {
	first := catalog.TemplatesFor(domain.FlowLocal, domain.PhaseRegistration)
	first[0].Type = "mutated"
	second := catalog.TemplatesFor(domain.FlowLocal, domain.PhaseRegistration)
	if second[0].Type != "welcome" {
		t.Fatalf("caller mutation leaked into the catalog")
	}
}
