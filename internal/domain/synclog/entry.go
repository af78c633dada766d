// Package synclog defines the immutable log records produced by sync jobs
// and the explorer schema of the log view.
package synclog

import (
	"time"

	"github.com/google/uuid"

	"github.com/eshaffer321/inventory-sync-manager/internal/domain/explorer"
	"github.com/eshaffer321/inventory-sync-manager/internal/domain/platform"
)

// Operation is the kind of data a log entry synchronized.
type Operation string

const (
	OperationInventory Operation = "inventory"
	OperationPrice     Operation = "price"
	OperationAll       Operation = "all"
)

// Status is the result of a logged operation.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// StoppedDetails is the detail text of the entry written when an operator
// stops a running sync.
const StoppedDetails = "Sync process manually stopped by user"

// Entry is one log record. Entries are never modified after creation.
type Entry struct {
	ID          string      `json:"id"`
	Timestamp   time.Time   `json:"timestamp"`
	Operation   Operation   `json:"operation"`
	ProductSKU  string      `json:"product_sku"`
	ProductName string      `json:"product_name"`
	Platform    platform.ID `json:"platform"`
	Status      Status      `json:"status"`
	Details     string      `json:"details,omitempty"`
}

// NewID returns a unique log entry identifier.
func NewID() string {
	return "log-" + uuid.NewString()
}

// Stopped builds the entry recorded when a sync is stopped by the operator.
func Stopped(at time.Time) Entry {
	return Entry{
		ID:          NewID(),
		Timestamp:   at,
		Operation:   OperationAll,
		ProductSKU:  "N/A",
		ProductName: "Sync Process",
		Platform:    platform.All,
		Status:      StatusError,
		Details:     StoppedDetails,
	}
}

// Failed builds the entry recorded when a sync could not produce results.
func Failed(at time.Time, details string) Entry {
	return Entry{
		ID:          NewID(),
		Timestamp:   at,
		Operation:   OperationAll,
		ProductSKU:  "N/A",
		ProductName: "Sync Process",
		Platform:    platform.All,
		Status:      StatusError,
		Details:     details,
	}
}

// Tally counts successful and failed entries.
func Tally(entries []Entry) (success, failure int) {
	for _, e := range entries {
		switch e.Status {
		case StatusSuccess:
			success++
		case StatusError:
			failure++
		}
	}
	return success, failure
}

// Filter and sort field names of the log view.
const (
	FieldSearch     = "search"
	FieldPlatform   = "platform"
	FieldStatus     = "status"
	FieldOperation  = "operation"
	FieldTimestamp  = "timestamp"
	SortTimestamp   = "timestamp"
	SortOperation   = "operation"
	SortSKU         = "productSku"
	SortProductName = "productName"
	SortPlatform    = "platform"
	SortStatus      = "status"
)

// Schema describes how log entries are filtered and sorted.
var Schema = explorer.NewSchema(func(e Entry) string { return e.ID }).
	Text(FieldSearch,
		func(e Entry) string { return e.ProductSKU },
		func(e Entry) string { return e.ProductName }).
	Enum(FieldPlatform, func(e Entry) string { return string(e.Platform) }).
	Enum(FieldStatus, func(e Entry) string { return string(e.Status) }).
	Enum(FieldOperation, func(e Entry) string { return string(e.Operation) }).
	Time(FieldTimestamp, func(e Entry) (time.Time, bool) { return e.Timestamp, !e.Timestamp.IsZero() }).
	Sort(SortTimestamp, explorer.Ordered(func(e Entry) int64 { return e.Timestamp.UnixNano() })).
	Sort(SortOperation, explorer.Ordered(func(e Entry) string { return string(e.Operation) })).
	Sort(SortSKU, explorer.Ordered(func(e Entry) string { return e.ProductSKU })).
	Sort(SortProductName, explorer.Ordered(func(e Entry) string { return e.ProductName })).
	Sort(SortPlatform, explorer.Ordered(func(e Entry) string { return string(e.Platform) })).
	Sort(SortStatus, explorer.Ordered(func(e Entry) string { return string(e.Status) }))
