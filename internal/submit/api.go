package submit

import (
	"context"

	"github.com/rentloop/listr/internal/draft"
	"github.com/rentloop/listr/internal/photo"
)

// RecordAPI reaches the listing records on the backend.
type RecordAPI interface {
	Create(ctx context.Context, p draft.Payload) (string, error)
	Update(ctx context.Context, id string, p draft.Payload) error
	Publish(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*draft.Record, error)
	Quota(ctx context.Context) (Quota, error)
}

// Quota is the account's listing allowance. A zero Limit means unlimited.
type Quota struct {
	Used  int `json:"used"`
	Limit int `json:"limit"`
}

// Reached reports whether another listing would exceed the allowance.
func (q Quota) Reached() bool {
	return q.Limit > 0 && q.Used >= q.Limit
}

// UploadRequest carries one new photo and its final position.
type UploadRequest struct {
	File      []byte
	Filename  string
	SortOrder int
	Tag       photo.Tag
}

// PhotoAPI manages the photos attached to a record.
type PhotoAPI interface {
	Upload(ctx context.Context, recordID string, req UploadRequest) (string, error)
	Delete(ctx context.Context, recordID, photoID string) error
	Reorder(ctx context.Context, recordID, photoID string, sortOrder int) error
}
