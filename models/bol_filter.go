package models

import (
	"errors"
	"fmt"
)

const (
	DefaultBOLLimit = 100
	MaxBOLLimit     = 1000
)

type PaymentStatusFilter string

const (
	StatusAll     PaymentStatusFilter = "all"
	StatusPaid    PaymentStatusFilter = "paid"
	StatusPending PaymentStatusFilter = "pending"
)

// BOLFilter holds the listing query for bills of lading.
type BOLFilter struct {
	StartDate     Date
	EndDate       Date
	WorkOrder     string
	PaymentStatus PaymentStatusFilter
	SortBy        string
	SortOrder     string
	Skip          int
	Limit         int
}

var bolSortColumns = map[string]bool{"date": true, "work_order": true, "driver_name": true}

// Normalize fills defaults and rejects out of range values.
func (f *BOLFilter) Normalize() error {
	if f.PaymentStatus == "" {
		f.PaymentStatus = StatusAll
	}
	switch f.PaymentStatus {
	case StatusAll, StatusPaid, StatusPending:
	default:
		return fmt.Errorf("payment_status must be one of all, paid, pending")
	}
	if f.SortBy == "" {
		f.SortBy = "date"
	}
	if !bolSortColumns[f.SortBy] {
		return fmt.Errorf("sort_by must be one of date, work_order, driver_name")
	}
	if f.SortOrder == "" {
		f.SortOrder = "desc"
	}
	if f.SortOrder != "asc" && f.SortOrder != "desc" {
		return errors.New("sort_order must be asc or desc")
	}
	if f.Skip < 0 {
		return errors.New("skip must not be negative")
	}
	if f.Limit == 0 {
		f.Limit = DefaultBOLLimit
	}
	if f.Limit < 1 || f.Limit > MaxBOLLimit {
		return fmt.Errorf("limit must be between 1 and %d", MaxBOLLimit)
	}
	if !f.StartDate.IsZero() && !f.EndDate.IsZero() && f.EndDate.Before(f.StartDate) {
		return errors.New("end_date must not be before start_date")
	}
	return nil
}
