package store

import (
	"context"
	"fmt"
)

// WorkRequestRepository persists scheduled work so it survives restarts.
type WorkRequestRepository struct {
	db *DB
}

// NewWorkRequestRepository creates a new WorkRequestRepository.
func NewWorkRequestRepository(db *DB) *WorkRequestRepository {
	return &WorkRequestRepository{db: db}
}

// Save inserts or replaces a request.
func (r *WorkRequestRepository) Save(ctx context.Context, req *WorkRequest) error {
	if err := r.db.WithContext(ctx).Save(req).Error; err != nil {
		return fmt.Errorf("failed to save work request %s: %w", req.Name, err)
	}
	return nil
}

// Delete removes a request by id.
func (r *WorkRequestRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&WorkRequest{}).Error
}

// DeleteByName removes the request with the given unique name.
func (r *WorkRequestRepository) DeleteByName(ctx context.Context, name string) error {
	return r.db.WithContext(ctx).Where("name = ?", name).Delete(&WorkRequest{}).Error
}

// DeleteByTag removes every request carrying tag and reports how many went.
func (r *WorkRequestRepository) DeleteByTag(ctx context.Context, tag string) (int64, error) {
	res := r.db.WithContext(ctx).Where("tag = ?", tag).Delete(&WorkRequest{})
	return res.RowsAffected, res.Error
}

// Pending returns every persisted request ordered by due time.
func (r *WorkRequestRepository) Pending(ctx context.Context) ([]WorkRequest, error) {
	var reqs []WorkRequest
	err := r.db.WithContext(ctx).Order("run_at, name").Find(&reqs).Error
	return reqs, err
}

// ByTag returns the requests carrying tag ordered by due time.
func (r *WorkRequestRepository) ByTag(ctx context.Context, tag string) ([]WorkRequest, error) {
	var reqs []WorkRequest
	err := r.db.WithContext(ctx).Where("tag = ?", tag).Order("run_at, name").Find(&reqs).Error
	return reqs, err
}
