package model

// GroceryItem is one normalized pantry entry
type GroceryItem struct {
	ID         int      `json:"id"`
	Name       string   `json:"name"`
	Quantity   float64  `json:"quantity"`
	Unit       string   `json:"unit"`
	Category   Category `json:"category"`
	ExpiryDate *string  `json:"expiryDate,omitempty"`
}

// PantryItemRequest is the body for creating or updating a pantry item
type PantryItemRequest struct {
	Name       string   `json:"name" validate:"required,min=1,max=200"`
	Quantity   *float64 `json:"quantity" validate:"omitempty,min=0"`
	Unit       string   `json:"unit" validate:"omitempty,max=50"`
	Category   string   `json:"category" validate:"omitempty,max=50"`
	ExpiryDate *string  `json:"expiryDate" validate:"omitempty,datetime=2006-01-02"`
}

// PantryItemsRequest adds several items at once, e.g. after a receipt scan
type PantryItemsRequest struct {
	Items []PantryItemRequest `json:"items" validate:"required,min=1,dive"`
}

// PantryListResponse wraps the pantry listing
type PantryListResponse struct {
	Items []GroceryItem `json:"items"`
}

// PantryItemResponse wraps a single item
type PantryItemResponse struct {
	Item GroceryItem `json:"item"`
}

// PantryStats summarizes the pantry by category
type PantryStats struct {
	TotalItems int              `json:"total_items"`
	Categories map[Category]int `json:"categories"`
}

// PantryStatsResponse wraps PantryStats
type PantryStatsResponse struct {
	Stats PantryStats `json:"stats"`
}

// ReceiptUploadResponse carries items extracted from a receipt. They are not
// saved yet; the client confirms them through POST /api/pantry.
type ReceiptUploadResponse struct {
	Items      []GroceryItem `json:"items"`
	ArchiveURL string        `json:"archiveUrl,omitempty"`
}
