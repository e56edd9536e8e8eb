package wedding

import "strings"

// Mode discriminates non-conversational replies.
type Mode string

const (
	ModeInitial Mode = "initial"
	ModeUpdate  Mode = "update"
)

// Reply is the structured result of one AI turn. It is a tagged union read
// in this order: Conversational first, then Mode.
//
//   - conversational: Conversational=true, Message set.
//   - initial: Mode=initial, Summary/WeddingData/BudgetBreakdown/Timeline.
//   - update: Mode=update, Message plus UpdatedFields with only what changed;
//     top-level project fields are accepted too, UpdatedFields wins.
type Reply struct {
	Conversational  bool           `json:"conversational"`
	Mode            Mode           `json:"mode,omitempty"`
	Message         string         `json:"message,omitempty"`
	Summary         string         `json:"summary,omitempty"`
	WeddingData     *WeddingData   `json:"weddingData,omitempty"`
	BudgetBreakdown []BudgetItem   `json:"budgetBreakdown,omitempty"`
	Timeline        []TimelineTask `json:"timeline,omitempty"`
	UpdatedFields   *UpdatedFields `json:"updatedFields,omitempty"`
	AskLocation     bool           `json:"askLocation,omitempty"`
	CTASelection    bool           `json:"ctaSelection,omitempty"`
	VendorCategory  string         `json:"vendorCategory,omitempty"`
}

// UpdatedFields is the patch carried by an update reply.
type UpdatedFields struct {
	WeddingData     *WeddingData   `json:"weddingData,omitempty"`
	BudgetBreakdown []BudgetItem   `json:"budgetBreakdown,omitempty"`
	Timeline        []TimelineTask `json:"timeline,omitempty"`
}

// ConversationalReply wraps plain text as a conversational reply.
func ConversationalReply(text string) Reply {
	return Reply{Conversational: true, Message: text}
}

// Structured reports whether the reply carries planning data.
func (r Reply) Structured() bool {
	return !r.Conversational
}

// Location returns the wedding location carried by a structured reply, or "".
func (r Reply) Location() string {
	if r.Conversational {
		return ""
	}
	if r.UpdatedFields != nil {
		if loc := locationOf(r.UpdatedFields.WeddingData); loc != "" {
			return loc
		}
	}
	return locationOf(r.WeddingData)
}

func locationOf(d *WeddingData) string {
	if d == nil || d.Location == nil {
		return ""
	}
	return strings.TrimSpace(*d.Location)
}

// Text returns what the assistant says to the user for this reply.
func (r Reply) Text() string {
	if r.Message != "" {
		return r.Message
	}
	return r.Summary
}
