package request

// ByIDRequest is a common struct for endpoints that require an ID path parameter.
type ByIDRequest struct {
	ID string `uri:"id" binding:"required,uuid"`
}

// ByCodeRequest addresses a booking by its public booking code.
type ByCodeRequest struct {
	Code string `uri:"code" binding:"required,min=8,max=32,alphanum"`
}

// ListParams holds the shared pagination query parameters.
type ListParams struct {
	Page      int    `form:"page,default=1" binding:"min=1"`
	PageSize  int    `form:"page_size,default=20" binding:"min=1,max=100"`
	SortOrder string `form:"sort_order" binding:"omitempty,oneof=asc desc ASC DESC"`
}
