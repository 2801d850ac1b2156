package requests

import (
	"mediavault/services/media-api/internal/domain/media"
)

// PageQuery carries the shared pagination parameters.
type PageQuery struct {
	Page     int `form:"page,default=1" binding:"min=1"`
	PageSize int `form:"pageSize,default=20" binding:"min=1,max=100"`
}

// ListMediaQuery binds GET /v1/media.
type ListMediaQuery struct {
	PageQuery
	MediaType string `form:"mediaType" binding:"omitempty,oneof=image video"`
}

// ToDomain converts the query to a domain list input.
func (q *ListMediaQuery) ToDomain(callerID string) media.ListInput {
	in := media.ListInput{CallerID: callerID, Page: q.Page, PageSize: q.PageSize}
	if kind, ok := media.ParseMediaKind(q.MediaType); ok {
		in.Kind = &kind
	}
	return in
}

// SearchMediaQuery binds GET /v1/media/search. Emptiness of Query is checked by the domain.
type SearchMediaQuery struct {
	PageQuery
	Query string `form:"query"`
}

// ToDomain converts the query to a domain search input.
func (q *SearchMediaQuery) ToDomain(callerID string) media.SearchInput {
	return media.SearchInput{CallerID: callerID, Query: q.Query, Page: q.Page, PageSize: q.PageSize}
}

// UpdateMediaRequest is the PUT body. Omitted or null fields are left unchanged.
type UpdateMediaRequest struct {
	Description *string   `json:"description"`
	Tags        *[]string `json:"tags"`
}

// ToDomain converts the request to a domain patch.
func (r *UpdateMediaRequest) ToDomain() media.Patch {
	return media.Patch{Description: r.Description, Tags: r.Tags}
}
