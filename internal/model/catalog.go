package model

type ModelCategory string

const (
	CategoryGeneral  ModelCategory = "general"
	CategoryCoding   ModelCategory = "coding"
	CategoryCreative ModelCategory = "creative"
	CategoryFast     ModelCategory = "fast"
)

type ModelCost string

const (
	CostFree ModelCost = "free"
	CostPaid ModelCost = "paid"
)

// AIModel is one selectable entry of the model catalog.
type AIModel struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Provider    string        `json:"provider"`
	Category    ModelCategory `json:"category"`
	Cost        ModelCost     `json:"cost"`
}

// freeModels is read-only after package init.
var freeModels = []AIModel{
	{
		ID:          "meta-llama/llama-3.1-8b-instruct:free",
		Name:        "Llama 3.1 8B",
		Description: "Meta's Llama 3.1 model, excellent for general chat and coding tasks",
		Provider:    "Meta",
		Category:    CategoryGeneral,
		Cost:        CostFree,
	},
	{
		ID:          "meta-llama/llama-3.1-70b-instruct:free",
		Name:        "Llama 3.1 70B",
		Description: "Meta's larger Llama 3.1 model, better reasoning and complex tasks",
		Provider:    "Meta",
		Category:    CategoryGeneral,
		Cost:        CostFree,
	},
	{
		ID:          "google/gemini-flash-1.5:free",
		Name:        "Gemini Flash 1.5",
		Description: "Google's fast model, great for quick responses and general use",
		Provider:    "Google",
		Category:    CategoryFast,
		Cost:        CostFree,
	},
	{
		ID:          "microsoft/phi-3-medium-128k-instruct:free",
		Name:        "Phi-3 Medium",
		Description: "Microsoft's efficient model, good balance of speed and capability",
		Provider:    "Microsoft",
		Category:    CategoryGeneral,
		Cost:        CostFree,
	},
	{
		ID:          "mistralai/mistral-7b-instruct:free",
		Name:        "Mistral 7B",
		Description: "Mistral's 7B model, excellent for coding and technical tasks",
		Provider:    "Mistral",
		Category:    CategoryCoding,
		Cost:        CostFree,
	},
}

// FreeModels returns a copy of the catalog in declaration order.
func FreeModels() []AIModel {
	out := make([]AIModel, len(freeModels))
	copy(out, freeModels)
	return out
}

// DefaultModel is the entry a fresh chat session starts with.
func DefaultModel() AIModel {
	return freeModels[0]
}

// GetModelByID reports false for unknown ids.
func GetModelByID(id string) (AIModel, bool) {
	for _, m := range freeModels {
		if m.ID == id {
			return m, true
		}
	}
	return AIModel{}, false
}

// GetModelsByCategory keeps catalog order. The result is never nil.
func GetModelsByCategory(category ModelCategory) []AIModel {
	out := make([]AIModel, 0, len(freeModels))
	for _, m := range freeModels {
		if m.Category == category {
			out = append(out, m)
		}
	}
	return out
}

func IsValidCategory(category ModelCategory) bool {
	switch category {
	case CategoryGeneral, CategoryCoding, CategoryCreative, CategoryFast:
		return true
	}
	return false
}
