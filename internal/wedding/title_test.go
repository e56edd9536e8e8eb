package wedding

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTitle_Precedence(t *testing.T) {
	tests := []struct {
		name    string
		project Project
		want    string
	}{
		{"location and guests", Project{WeddingData: WeddingData{Location: StringPtr("Lyon"), Guests: IntPtr(120)}}, "Mariage à Lyon - 120 invités"},
		{"location only", Project{WeddingData: WeddingData{Location: StringPtr("Lyon"), Date: StringPtr("2025-06-15")}}, "Mariage à Lyon"},
		{"guests only", Project{WeddingData: WeddingData{Guests: IntPtr(120)}}, "Mariage - 120 invités"},
		{"date", Project{WeddingData: WeddingData{Date: StringPtr("2025-06-15")}}, "Mariage du 15/06/2025"},
		{"unparseable date", Project{WeddingData: WeddingData{Date: StringPtr("juin 2025")}}, "Mariage du juin 2025"},
		{"vendors", Project{Vendors: []Vendor{{ID: "a"}, {ID: "b"}, {ID: "c"}}}, "Mariage - 3 prestataires"},
		{"one vendor", Project{Vendors: []Vendor{{ID: "a"}}}, "Mariage - 1 prestataire"},
		{"fallback", Project{WeddingData: WeddingData{Budget: IntPtr(15000)}}, "Mon projet de mariage"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.project.Title())
		})
	}
}

func TestTitle_GuestsOnlyHasNoLocationToken(t *testing.T) {
	p := Project{WeddingData: WeddingData{Guests: IntPtr(120)}}
	assert.Contains(t, p.Title(), "120")
	assert.NotContains(t, p.Title(), " à ")
}

func TestHasContent(t *testing.T) {
	var nilProject *Project
	assert.False(t, nilProject.HasContent())
	assert.False(t, (&Project{}).HasContent())
	assert.False(t, (&Project{Summary: "only a summary", WeddingData: WeddingData{Style: StringPtr("bohème")}}).HasContent())
	assert.False(t, (&Project{WeddingData: WeddingData{Location: StringPtr(" ")}}).HasContent())

	assert.True(t, (&Project{WeddingData: WeddingData{Budget: IntPtr(1)}}).HasContent())
	assert.True(t, (&Project{WeddingData: WeddingData{Date: StringPtr("2025-06-15")}}).HasContent())
	assert.True(t, (&Project{Timeline: []TimelineTask{{Task: "x"}}}).HasContent())
	assert.True(t, (&Project{BudgetBreakdown: []BudgetItem{{Category: "x"}}}).HasContent())
	assert.True(t, (&Project{Vendors: []Vendor{{ID: "v"}}}).HasContent())
}
