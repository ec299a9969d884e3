package entities

import "time"

// FAQDocument is a question/answer knowledge entry used for retrieval.
// The embedding is regenerated whenever Question or Answer changes.
type FAQDocument struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Category  string    `json:"category"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RetrievedPassage is an FAQDocument returned by vector search together
// with its similarity score (1 = identical, 0 = unrelated).
type RetrievedPassage struct {
	FAQDocument
	Similarity float64 `json:"similarity"`
}
