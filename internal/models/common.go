package models

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// Scope carries the tenant context for every assignment-graph and resolver
// call. It is always passed explicitly; the core never reads it from ambient
// state.
type Scope struct {
	InstitutionID string `json:"institution_id"`
	ClassID       string `json:"class_id"`
}
