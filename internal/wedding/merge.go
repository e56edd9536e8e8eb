package wedding

import "strings"

// Apply folds a structured reply and the vendors found for the turn into
// current and returns the resulting project. current is never mutated.
//
// A conversational reply leaves the project as it is. When current is nil a
// new project is created from the reply. Otherwise:
//   - weddingData fields are filled only by present, non-empty values;
//   - budgetBreakdown and timeline are replaced wholesale when supplied;
//   - vendors are appended when their id is not already known;
//   - summary is replaced when supplied.
func Apply(current *Project, r Reply, vendors []Vendor) *Project {
	if r.Conversational {
		return current.Clone()
	}
	p := patchOf(r)

	var next *Project
	if current == nil {
		next = &Project{
			BudgetBreakdown: []BudgetItem{},
			Timeline:        []TimelineTask{},
			Vendors:         []Vendor{},
		}
	} else {
		next = current.Clone()
	}

	if p.summary != "" {
		next.Summary = p.summary
	}
	next.WeddingData = FillData(next.WeddingData, p.data)
	if len(p.budget) > 0 {
		next.BudgetBreakdown = append([]BudgetItem(nil), p.budget...)
	}
	if len(p.timeline) > 0 {
		next.Timeline = append([]TimelineTask(nil), p.timeline...)
	}
	next.Vendors = AppendVendors(next.Vendors, vendors)
	return next
}

type patch struct {
	summary  string
	data     WeddingData
	budget   []BudgetItem
	timeline []TimelineTask
}

// patchOf flattens the top-level fields and the updatedFields patch of a
// reply. updatedFields wins where both are present.
func patchOf(r Reply) patch {
	p := patch{
		summary:  strings.TrimSpace(r.Summary),
		budget:   r.BudgetBreakdown,
		timeline: r.Timeline,
	}
	if r.WeddingData != nil {
		p.data = *r.WeddingData
	}
	if u := r.UpdatedFields; u != nil {
		if u.WeddingData != nil {
			p.data = FillData(p.data, *u.WeddingData)
		}
		if len(u.BudgetBreakdown) > 0 {
			p.budget = u.BudgetBreakdown
		}
		if len(u.Timeline) > 0 {
			p.timeline = u.Timeline
		}
	}
	return p
}

// FillData returns dst with every present, non-empty field of src copied over.
// Absent or empty fields in src never erase dst.
func FillData(dst, src WeddingData) WeddingData {
	out := dst.clone()
	if src.Guests != nil && *src.Guests > 0 {
		out.Guests = IntPtr(*src.Guests)
	}
	if src.Budget != nil && *src.Budget > 0 {
		out.Budget = IntPtr(*src.Budget)
	}
	if s := nonEmpty(src.Location); s != nil {
		out.Location = s
	}
	if s := nonEmpty(src.Date); s != nil {
		out.Date = s
	}
	if s := nonEmpty(src.Style); s != nil {
		out.Style = s
	}
	return out
}

// AppendVendors appends the incoming vendors whose id is not already present.
// Existing entries are kept as they are; vendors without an id are skipped.
func AppendVendors(existing, incoming []Vendor) []Vendor {
	out := make([]Vendor, 0, len(existing)+len(incoming))
	seen := make(map[string]bool, len(existing)+len(incoming))
	for _, v := range existing {
		out = append(out, v)
		seen[v.ID] = true
	}
	for _, v := range incoming {
		if v.ID == "" || seen[v.ID] {
			continue
		}
		seen[v.ID] = true
		out = append(out, v)
	}
	return out
}

func nonEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// Clone returns a deep copy of p. Clone of nil is nil.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	cp := *p
	cp.WeddingData = p.WeddingData.clone()
	if p.BudgetBreakdown != nil {
		cp.BudgetBreakdown = append([]BudgetItem{}, p.BudgetBreakdown...)
	}
	if p.Timeline != nil {
		cp.Timeline = append([]TimelineTask{}, p.Timeline...)
	}
	if p.Vendors != nil {
		cp.Vendors = make([]Vendor, len(p.Vendors))
		for i, v := range p.Vendors {
			cp.Vendors[i] = v.clone()
		}
	}
	return &cp
}

func (d WeddingData) clone() WeddingData {
	var out WeddingData
	if d.Guests != nil {
		out.Guests = IntPtr(*d.Guests)
	}
	if d.Budget != nil {
		out.Budget = IntPtr(*d.Budget)
	}
	if d.Location != nil {
		out.Location = StringPtr(*d.Location)
	}
	if d.Date != nil {
		out.Date = StringPtr(*d.Date)
	}
	if d.Style != nil {
		out.Style = StringPtr(*d.Style)
	}
	return out
}

func (v Vendor) clone() Vendor {
	if v.PriceFrom != nil {
		v.PriceFrom = IntPtr(*v.PriceFrom)
	}
	return v
}
