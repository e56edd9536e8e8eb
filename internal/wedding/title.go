package wedding

import (
	"fmt"
	"time"
)

const defaultTitle = "Mon projet de mariage"

// HasContent reports whether the project has at least one populated field
// among guests, location, date, budget, or a non-empty vendor, budget
// breakdown or timeline list.
func (p *Project) HasContent() bool {
	if p == nil {
		return false
	}
	d := p.WeddingData
	switch {
	case d.Guests != nil, d.Budget != nil:
		return true
	case nonEmpty(d.Location) != nil, nonEmpty(d.Date) != nil:
		return true
	}
	return len(p.Vendors) > 0 || len(p.BudgetBreakdown) > 0 || len(p.Timeline) > 0
}

// Title derives a dashboard title with the precedence
// location+guests > location > guests > date > vendor count > fallback.
func (p *Project) Title() string {
	if p == nil {
		return defaultTitle
	}
	d := p.WeddingData
	location := nonEmpty(d.Location)
	switch {
	case location != nil && d.Guests != nil:
		return fmt.Sprintf("Mariage à %s - %d invités", *location, *d.Guests)
	case location != nil:
		return fmt.Sprintf("Mariage à %s", *location)
	case d.Guests != nil:
		return fmt.Sprintf("Mariage - %d invités", *d.Guests)
	case nonEmpty(d.Date) != nil:
		return fmt.Sprintf("Mariage du %s", formatDate(*nonEmpty(d.Date)))
	case len(p.Vendors) == 1:
		return "Mariage - 1 prestataire"
	case len(p.Vendors) > 1:
		return fmt.Sprintf("Mariage - %d prestataires", len(p.Vendors))
	}
	return defaultTitle
}

// formatDate renders an ISO date as DD/MM/YYYY, or returns it untouched.
func formatDate(s string) string {
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("02/01/2006")
		}
	}
	return s
}
