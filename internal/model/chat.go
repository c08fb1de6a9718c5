package model

// Role identifies the author of a conversation message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one entry of the conversation history sent with every request
type ChatMessage struct {
	Role    Role         `json:"role" binding:"required,oneof=user assistant"`
	Content string       `json:"content"`
	Meta    *MessageMeta `json:"meta,omitempty"`
}

// MessageMeta carries side-channel data attached to an assistant turn
type MessageMeta struct {
	UsedCatalogIDs []string `json:"usedCatalogIds,omitempty"`
}

// ChatMode is the kind of answer an envelope carries
type ChatMode string

const (
	ModeRecommend ChatMode = "recommend"
	ModeCompare   ChatMode = "compare"
	ModeExplain   ChatMode = "explain"
	ModeClarify   ChatMode = "clarify"
	ModeRefuse    ChatMode = "refuse"
)

// ProductCard is a catalog item rendered for the chat UI
type ProductCard struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Price      int      `json:"price"`
	Highlights []string `json:"highlights"`
}

// ComparisonRow is one labelled row of a comparison table
type ComparisonRow struct {
	Label  string   `json:"label"`
	Values []string `json:"values"`
}

// Comparison is a side-by-side table over a few products
type Comparison struct {
	ProductIDs []string        `json:"productIds"`
	Headers    []string        `json:"headers"`
	Rows       []ComparisonRow `json:"rows"`
}

// ChatResponse is the envelope returned for every turn
type ChatResponse struct {
	Mode           ChatMode      `json:"mode"`
	Message        string        `json:"message"`
	Products       []ProductCard `json:"products,omitempty"`
	Comparison     *Comparison   `json:"comparison,omitempty"`
	UsedCatalogIDs []string      `json:"usedCatalogIds"`
	TurnID         string        `json:"turnId,omitempty"`
	Error          string        `json:"error,omitempty"`
}

// ChatRequest represents a chat turn request.
// Message is accepted for older clients that only send the latest text.
type ChatRequest struct {
	Messages []ChatMessage `json:"messages" binding:"omitempty,dive"`
	Message  string        `json:"message,omitempty"`
}

// History returns the conversation carried by the request
func (r *ChatRequest) History() []ChatMessage {
	if len(r.Messages) > 0 {
		return r.Messages
	}
	if r.Message != "" {
		return []ChatMessage{{Role: RoleUser, Content: r.Message}}
	}
	return nil
}

// SearchRequest represents a deterministic catalog search request
type SearchRequest struct {
	Query string `json:"query" binding:"required"`
	Limit int    `json:"limit,omitempty"`
}

// SearchResult is a ranked catalog item presented for display
type SearchResult struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Price   string   `json:"price"`
	Score   float64  `json:"score"`
	Reasons []string `json:"reasons"`
}

// SearchResponse represents a catalog search response
type SearchResponse struct {
	Results []SearchResult `json:"results"`
	Total   int            `json:"total"`
	Intent  *ParsedIntent  `json:"intent,omitempty"`
	Took    int64          `json:"took_ms"`
}

// FeedbackRequest represents a user action on a product shown in a turn
type FeedbackRequest struct {
	TurnID    string `json:"turnId" binding:"required,uuid"`
	ProductID string `json:"productId" binding:"required"`
	Action    string `json:"action" binding:"required"` // click, view_details, compare
}

// FeedbackResponse represents feedback response
type FeedbackResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
