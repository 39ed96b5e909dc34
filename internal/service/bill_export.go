package service

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/tripmate/internal/export"
)

// ExportPattern is the ServeMux pattern of the bill workbook download.
const ExportPattern = "GET /bills/{bill_id}/export.xlsx"

// ExportXLSX serves a bill as an XLSX workbook. The caller must be
// authenticated (see middleware.RequireLineUserHTTP) and a participant.
func (s *BillService) ExportXLSX(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := callerID(ctx)
	if err != nil {
		writeHTTPError(w, r, err)
		return
	}

	bill, err := s.participantBill(ctx, r.PathValue("bill_id"), userID)
	if err != nil {
		writeHTTPError(w, r, err)
		return
	}

	expenses, settlement, transfers, err := s.settle(ctx, bill)
	if err != nil {
		writeHTTPError(w, r, toConnectError("ExportXLSX", err))
		return
	}

	var buf bytes.Buffer
	err = export.WriteBillXLSX(&buf, export.BillReport{
		Bill:       bill,
		Expenses:   expenses,
		Settlement: settlement,
		Transfers:  transfers,
	})
	if err != nil {
		writeHTTPError(w, r, toConnectError("ExportXLSX", err))
		return
	}

	slog.Info("Bill exported", "bill_id", bill.ID, "user_id", userID, "bytes", buf.Len())

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"bill_%s.xlsx\"", bill.ID))
	w.Write(buf.Bytes())
}

func writeHTTPError(w http.ResponseWriter, r *http.Request, err error) {
	var connectErr *connect.Error
	if !errors.As(err, &connectErr) {
		connectErr = connect.NewError(connect.CodeInternal, err)
	}
	if werr := connect.NewErrorWriter().Write(w, r, connectErr); werr != nil {
		slog.Error("failed to write error", "error", werr)
	}
}
