package types

// Persistence reports where a mutation was durably stored.
type Persistence string

const (
	PersistedRemote    Persistence = "remote"
	PersistedLocalOnly Persistence = "local_only"
	PersistenceFailed  Persistence = "failed"
)

// MutationResponse wraps the result of a create, update or status change.
type MutationResponse struct {
	Data        interface{} `json:"data"`
	Persistence Persistence `json:"persistence"`
}

// PaginationParams are the common page query parameters.
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"omitempty,gte=0"`
	PerPage int `form:"perPage,default=10" binding:"omitempty,gte=0,lte=100"`
}

type PageInfo struct {
	TotalCount  int `json:"totalCount"`
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
}

type ErrorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}
