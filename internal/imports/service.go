package imports

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/shipdesk/shipdesk-backend/internal/orders"
	"github.com/shipdesk/shipdesk-backend/pkg/db/models"
	pkgerrors "github.com/shipdesk/shipdesk-backend/pkg/errors"
	"github.com/shipdesk/shipdesk-backend/pkg/logger"
)

// Result reports how many rows became orders and why the others did not.
type Result struct {
	Success int      `json:"success"`
	Errors  []string `json:"errors"`
}

// Service turns uploaded order files into pending orders.
type Service interface {
	Import(ctx context.Context, ownerID uuid.UUID, filename string, r io.Reader) (*Result, error)
}

type ingester interface {
	Ingest(ctx context.Context, ownerID uuid.UUID, input orders.OrderInput) (*models.Order, bool, error)
}

type service struct {
	orders ingester
	logg   *logger.Logger
}

// NewService constructs the import service.
func NewService(orderSvc ingester, logg *logger.Logger) (Service, error) {
	if orderSvc == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{orders: orderSvc, logg: logg}, nil
}

// Import saves each row as its own order. A bad row is reported with its
// 1-based data row number and never stops the rest of the file.
func (s *service) Import(ctx context.Context, ownerID uuid.UUID, filename string, r io.Reader) (*Result, error) {
	f, err := detectFormat(filename)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	rows, err := readRows(f, r)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "could not read file").
			WithDetails(map[string]any{"error": err.Error()})
	}

	result := &Result{Errors: []string{}}
	for i, row := range rows {
		line := i + 1
		input, err := rowToInput(row)
		if err != nil {
			result.Errors = append(result.Errors, rowError(line, err))
			continue
		}
		order, created, err := s.orders.Ingest(ctx, ownerID, input)
		if err != nil {
			result.Errors = append(result.Errors, rowError(line, err))
			continue
		}
		if !created {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: order %s already exists", line, order.OrderNumber))
			continue
		}
		result.Success++
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"file":    filename,
		"rows":    len(rows),
		"success": result.Success,
		"errors":  len(result.Errors),
	})
	s.logg.Info(logCtx, "orders.import_complete")
	return result, nil
}

func rowError(line int, err error) string {
	var msgs []string
	for _, e := range multierr.Errors(err) {
		msgs = append(msgs, pkgerrors.MessageOf(e))
	}
	return fmt.Sprintf("row %d: %s", line, strings.Join(msgs, "; "))
}
