package dispatch

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/shipdesk/shipdesk-backend/internal/orders"
	"github.com/shipdesk/shipdesk-backend/pkg/db/models"
	"github.com/shipdesk/shipdesk-backend/pkg/enums"
	pkgerrors "github.com/shipdesk/shipdesk-backend/pkg/errors"
	"github.com/shipdesk/shipdesk-backend/pkg/types"
)

// BulkOutcome classifies a finished bulk run.
type BulkOutcome string

const (
	OutcomeNothingSelected BulkOutcome = "nothing_selected"
	OutcomeNoneEligible    BulkOutcome = "none_eligible"
	OutcomeCompleted       BulkOutcome = "completed"
	OutcomePartial         BulkOutcome = "partial"
	OutcomeFailed          BulkOutcome = "failed"
)

const (
	operationDispatch = "dispatch"
	operationDelete   = "delete"
)

// BulkItem is the per-order result of a bulk run.
type BulkItem struct {
	OrderID        uuid.UUID `json:"order_id"`
	OrderNumber    string    `json:"order_number"`
	Result         string    `json:"result"`
	ShipmentNumber string    `json:"shipment_number,omitempty"`
	Error          string    `json:"error,omitempty"`
}

// BulkResult aggregates a bulk run. RequestedCount counts distinct selected
// ids; SelectedCount only those that resolved to one of the owner's orders.
type BulkResult struct {
	Outcome        BulkOutcome `json:"outcome"`
	Summary        string      `json:"summary"`
	RequestedCount int         `json:"requested_count"`
	SelectedCount  int         `json:"selected_count"`
	SuccessCount   int         `json:"success_count"`
	ErrorCount     int         `json:"error_count"`
	SkippedCount   int         `json:"skipped_count"`
	Errors         []string    `json:"errors"`
	Items          []BulkItem  `json:"items"`
}

const (
	itemSuccess = "success"
	itemError   = "error"
	itemSkipped = "skipped"
)

// BulkDispatch sends every eligible selected order to the carrier, one at a
// time. Per-order failures are counted and never stop the run. A started run
// ignores cancellation of ctx and finishes its batch.
func (s *service) BulkDispatch(ctx context.Context, ownerID uuid.UUID, orderIDs []uuid.UUID) (*BulkResult, error) {
	ctx = context.WithoutCancel(ctx)
	ids := uniqueIDs(orderIDs)
	if len(ids) == 0 {
		return s.finish(ctx, operationDispatch, &BulkResult{}, false), nil
	}
	known, err := s.resolve(ctx, ownerID, ids)
	if err != nil {
		return nil, err
	}

	result := &BulkResult{RequestedCount: len(ids), SelectedCount: len(known)}
	eligible := make([]*models.Order, 0, len(known))
	for _, order := range known {
		if order.Status.IsDispatchable() {
			eligible = append(eligible, order)
			continue
		}
		result.SkippedCount++
		result.Items = append(result.Items, BulkItem{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			Result:      itemSkipped,
		})
	}
	if len(eligible) == 0 {
		return s.finish(ctx, operationDispatch, result, true), nil
	}

	account, err := s.accounts.Account(ctx, ownerID)
	if err != nil {
		s.observe("unconfigured")
		return nil, err
	}

	var messages []string
	for _, order := range eligible {
		itemCtx := s.logg.WithOrderID(ctx, order.ID.String())
		ref, err := s.dispatch(itemCtx, ownerID, order, account, true)
		item := BulkItem{OrderID: order.ID, OrderNumber: order.OrderNumber}
		if err != nil {
			result.ErrorCount++
			item.Result = itemError
			item.Error = pkgerrors.MessageOf(err)
			messages = append(messages, fmt.Sprintf("%s: %s", itemLabel(order), item.Error))
		} else {
			result.SuccessCount++
			item.Result = itemSuccess
			item.ShipmentNumber = ref.ShipmentNumber
		}
		result.Items = append(result.Items, item)
		s.logg.Info(s.logg.WithField(itemCtx, "outcome", item.Result), "dispatch.bulk_item")
	}
	result.Errors = capMessages(messages, s.errorCap)
	return s.finish(ctx, operationDispatch, result, true), nil
}

// BulkSoftDelete soft-deletes every selected order, one at a time. Like
// BulkDispatch it runs to completion once started.
func (s *service) BulkSoftDelete(ctx context.Context, ownerID uuid.UUID, orderIDs []uuid.UUID) (*BulkResult, error) {
	ctx = context.WithoutCancel(ctx)
	ids := uniqueIDs(orderIDs)
	if len(ids) == 0 {
		return s.finish(ctx, operationDelete, &BulkResult{}, false), nil
	}
	known, err := s.resolve(ctx, ownerID, ids)
	if err != nil {
		return nil, err
	}

	result := &BulkResult{RequestedCount: len(ids), SelectedCount: len(known)}
	var messages []string
	for _, order := range known {
		item := BulkItem{OrderID: order.ID, OrderNumber: order.OrderNumber}
		if err := s.orders.SoftDelete(ctx, ownerID, order.ID, ownerID); err != nil {
			result.ErrorCount++
			item.Result = itemError
			item.Error = pkgerrors.MessageOf(storeFailure(err))
			messages = append(messages, fmt.Sprintf("%s: %s", itemLabel(order), item.Error))
		} else {
			result.SuccessCount++
			item.Result = itemSuccess
			s.activity.Record(ctx, ownerID, order.ID, enums.ActivityOrderDeleted, types.JSONMap{
				"deleted_by": ownerID.String(),
				"bulk":       true,
			})
		}
		result.Items = append(result.Items, item)
	}
	result.Errors = capMessages(messages, s.errorCap)
	return s.finish(ctx, operationDelete, result, true), nil
}

// resolve loads the owner's live orders among ids, in selection order.
// Unknown or foreign ids are dropped.
func (s *service) resolve(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID) ([]*models.Order, error) {
	rows, err := s.orders.ListByIDs(ctx, ownerID, ids)
	if err != nil {
		return nil, storeFailure(err)
	}
	byID := make(map[uuid.UUID]*models.Order, len(rows))
	for i := range rows {
		byID[rows[i].ID] = &rows[i]
	}
	out := make([]*models.Order, 0, len(rows))
	for _, id := range ids {
		if order, ok := byID[id]; ok {
			out = append(out, order)
		}
	}
	return out, nil
}

func (s *service) finish(ctx context.Context, operation string, result *BulkResult, selected bool) *BulkResult {
	if result.Errors == nil {
		result.Errors = []string{}
	}
	if result.Items == nil {
		result.Items = []BulkItem{}
	}
	processed := result.SuccessCount + result.ErrorCount
	switch {
	case !selected:
		result.Outcome = OutcomeNothingSelected
	case processed == 0:
		result.Outcome = OutcomeNoneEligible
	case result.ErrorCount == 0:
		result.Outcome = OutcomeCompleted
	case result.SuccessCount == 0:
		result.Outcome = OutcomeFailed
	default:
		result.Outcome = OutcomePartial
	}
	result.Summary = summarize(operation, result)

	if s.metrics != nil {
		s.metrics.ObserveBulk(operation, string(result.Outcome), result.SuccessCount, result.ErrorCount, result.SkippedCount)
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"operation": operation,
		"outcome":   string(result.Outcome),
		"success":   result.SuccessCount,
		"errors":    result.ErrorCount,
		"skipped":   result.SkippedCount,
	})
	s.logg.Info(logCtx, "dispatch.bulk_complete")
	return result
}

func summarize(operation string, r *BulkResult) string {
	verb, noun := "dispatched", "eligible for dispatch"
	if operation == operationDelete {
		verb, noun = "deleted", "found"
	}
	var text string
	switch r.Outcome {
	case OutcomeNothingSelected:
		return "no orders selected"
	case OutcomeNoneEligible:
		if r.SelectedCount == 0 {
			return "none of the selected orders were found"
		}
		return fmt.Sprintf("%d selected but none %s", r.SelectedCount, noun)
	case OutcomeCompleted:
		text = fmt.Sprintf("%s %s", verb, plural(r.SuccessCount))
	case OutcomeFailed:
		text = fmt.Sprintf("all %s failed", plural(r.ErrorCount))
	default:
		text = fmt.Sprintf("%s %d of %s, %d failed", verb, r.SuccessCount, plural(r.SuccessCount+r.ErrorCount), r.ErrorCount)
	}
	if r.SkippedCount > 0 {
		text += fmt.Sprintf("; skipped %d not eligible", r.SkippedCount)
	}
	return text
}

func plural(n int) string {
	if n == 1 {
		return "1 order"
	}
	return fmt.Sprintf("%d orders", n)
}

// capMessages keeps the first limit messages and folds the rest into a
// "+N more" entry.
func capMessages(messages []string, limit int) []string {
	if len(messages) <= limit {
		return messages
	}
	out := make([]string, 0, limit+1)
	out = append(out, messages[:limit]...)
	return append(out, fmt.Sprintf("+%d more", len(messages)-limit))
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func storeFailure(err error) error {
	return orders.StoreError(err, "order not found")
}
