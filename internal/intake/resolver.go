package intake

import (
	"github.com/david/relief-fund/internal/models"
)

// SectionReport is the resolver's output for one section. Missing lists the
// currently visible incomplete item keys; a gated section (one behind an
// incomplete predecessor) reports no missing items and Complete=false, and
// callers must treat it as not yet visible.
type SectionReport struct {
	Section  Section  `json:"section"`
	Missing  []string `json:"items"`
	Complete bool     `json:"complete"`
}

// ResolveMissing computes the ordered checklist for the merged state. It is
// a pure function: identical input yields identical output and the input is
// never mutated. Completeness is recomputed from the requirement table on
// every call because conditional items appear and disappear as answers
// change.
func ResolveMissing(state models.Resolved) []SectionReport {
	reports := make([]SectionReport, 0, len(sectionOrder))
	gateOpen := true

	for _, section := range sectionOrder {
		report := SectionReport{Section: section, Missing: []string{}}
		if !gateOpen {
			// Earlier section incomplete: this section's items are not
			// disclosed, so nothing is reported missing yet.
			reports = append(reports, report)
			continue
		}

		report.Missing = missingItems(state, section)
		report.Complete = len(report.Missing) == 0
		if !report.Complete {
			gateOpen = false
		}
		reports = append(reports, report)
	}

	return reports
}

// ActiveSection returns the first incomplete section, or "" when every
// section is satisfied.
func ActiveSection(reports []SectionReport) Section {
	for _, report := range reports {
		if !report.Complete {
			return report.Section
		}
	}
	return ""
}

// SectionComplete reports whether the named section is complete under the
// gating rule (an earlier incomplete section keeps all later ones
// incomplete).
func SectionComplete(reports []SectionReport, section Section) bool {
	for _, report := range reports {
		if report.Section == section {
			return report.Complete
		}
	}
	return false
}

func missingItems(state models.Resolved, section Section) []string {
	missing := []string{}
	for _, req := range requirements {
		if req.Section != section {
			continue
		}
		if req.Condition != nil && !req.Condition(state) {
			continue
		}
		if !req.Complete(state) {
			missing = append(missing, req.Key)
		}
	}
	return missing
}
