// Package wedding holds the planning data model shared by the AI endpoint
// and the conversation controller: the project aggregate, transcript
// messages, the AI reply envelope and the rules for folding one into the other.
package wedding

import "time"

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Task priorities.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Project is the accumulated structured planning state built up across a
// conversation.
type Project struct {
	Summary         string         `json:"summary"`
	WeddingData     WeddingData    `json:"weddingData"`
	BudgetBreakdown []BudgetItem   `json:"budgetBreakdown"`
	Timeline        []TimelineTask `json:"timeline"`
	Vendors         []Vendor       `json:"vendors"`
}

// WeddingData is the partial fact sheet of a wedding. A nil field is unknown.
type WeddingData struct {
	Guests   *int    `json:"guests"`
	Budget   *int    `json:"budget"`
	Location *string `json:"location"`
	Date     *string `json:"date"`
	Style    *string `json:"style"`
}

// BudgetItem is one line of the budget breakdown.
type BudgetItem struct {
	Category   string  `json:"category"`
	Percentage float64 `json:"percentage"`
	Amount     int     `json:"amount"`
}

// TimelineTask is one retroplanning entry.
type TimelineTask struct {
	Task      string `json:"task"`
	Timeframe string `json:"timeframe"`
	Priority  string `json:"priority"`
	Category  string `json:"category"`
}

// Vendor is a wedding service provider record.
type Vendor struct {
	ID          string `json:"id"`
	Name        string `json:"nom"`
	Category    string `json:"categorie,omitempty"`
	City        string `json:"ville,omitempty"`
	Region      string `json:"region,omitempty"`
	Description string `json:"description,omitempty"`
	PriceFrom   *int   `json:"prix_a_partir_de,omitempty"`
	Website     string `json:"site_web,omitempty"`
	Email       string `json:"email,omitempty"`
}

// Message is one transcript entry. Messages are append-only.
type Message struct {
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	Timestamp      time.Time `json:"timestamp"`
	Vendors        []Vendor  `json:"vendors,omitempty"`
	AskLocation    bool      `json:"askLocation,omitempty"`
	CTASelection   bool      `json:"ctaSelection,omitempty"`
	VendorCategory string    `json:"vendorCategory,omitempty"`
}

// Conversation is the persisted transcript of one planning chat.
// WeddingContext holds the last non-conversational reply, if any.
type Conversation struct {
	ID             string    `json:"id"`
	SessionID      string    `json:"session_id"`
	UserID         string    `json:"user_id,omitempty"`
	Messages       []Message `json:"messages"`
	WeddingContext *Reply    `json:"wedding_context"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ProjectRecord is a project saved to a user's dashboard.
type ProjectRecord struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Title          string    `json:"title"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Project        Project   `json:"project"`
	CreatedAt      time.Time `json:"created_at"`
}

// TurnRequest is the input of one AI turn.
type TurnRequest struct {
	Message        string   `json:"message"`
	ConversationID string   `json:"conversationId,omitempty"`
	SessionID      string   `json:"sessionId"`
	UserID         string   `json:"userId,omitempty"`
	CurrentProject *Project `json:"currentProject,omitempty"`
}

// TurnResponse is the output of one AI turn.
type TurnResponse struct {
	Response       Reply    `json:"response"`
	ConversationID string   `json:"conversationId"`
	Vendors        []Vendor `json:"vendors"`
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

// StringPtr returns a pointer to v.
func StringPtr(v string) *string { return &v }
