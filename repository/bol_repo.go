package repository

import (
	"context"

	"idealtransport/models"
)

type BOLRepository interface {
	// CreateBOL inserts the BOL and its vehicles in one transaction and
	// fills in the generated ids and timestamps.
	CreateBOL(ctx context.Context, b *models.BillOfLading) error
	GetBOL(ctx context.Context, id int64) (*models.BillOfLading, error)
	// GetBOLByWorkOrder returns the BOL header without vehicles.
	GetBOLByWorkOrder(ctx context.Context, workOrderNo string) (*models.BillOfLading, error)
	// ListBOLs applies the date, work order and sort parts of the filter.
	// Skip and Limit are applied only when paginate is set.
	ListBOLs(ctx context.Context, f models.BOLFilter, paginate bool) ([]*models.BillOfLading, error)
	// LoadVehicles fills in vehicles for a page sliced after an unpaginated
	// listing.
	LoadVehicles(ctx context.Context, bols []*models.BillOfLading) error
	WorkOrderTaken(ctx context.Context, workOrderNo string, excludeID int64) (bool, error)
	// UpdateBOL overwrites the BOL, replaces its vehicles and, when the work
	// order number changed, moves the BOL's transactions along with it.
	UpdateBOL(ctx context.Context, b *models.BillOfLading) error
	// DeleteBOL fails with *ReferencedError while any transaction points
	// at the BOL.
	DeleteBOL(ctx context.Context, id int64) error
}
