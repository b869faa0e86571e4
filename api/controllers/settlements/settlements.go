package settlements

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/buildmart-backend/api/middleware"
	"github.com/angelmondragon/buildmart-backend/api/responses"
	"github.com/angelmondragon/buildmart-backend/api/validators"
	internalsettlements "github.com/angelmondragon/buildmart-backend/internal/settlements"
	"github.com/angelmondragon/buildmart-backend/pkg/db/models"
	"github.com/angelmondragon/buildmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/buildmart-backend/pkg/errors"
	"github.com/angelmondragon/buildmart-backend/pkg/logger"
)

type SettlementView struct {
	ID                   uuid.UUID              `json:"id"`
	SettlementNumber     string                 `json:"settlement_number"`
	VendorID             uuid.UUID              `json:"vendor_id"`
	CycleStart           time.Time              `json:"cycle_start"`
	CutoffAt             time.Time              `json:"cutoff_at"`
	TotalAmount          decimal.Decimal        `json:"total_amount"`
	Deductions           decimal.Decimal        `json:"deductions"`
	Adjustment           decimal.Decimal        `json:"adjustment"`
	NetAmount            decimal.Decimal        `json:"net_amount"`
	OrderCount           int                    `json:"order_count"`
	BankDetails          *models.BankDetails    `json:"bank_details,omitempty"`
	Status               enums.SettlementStatus `json:"status"`
	PaymentReference     *string                `json:"payment_reference,omitempty"`
	SettlementDate       time.Time              `json:"settlement_date"`
	ProcessedAt          *time.Time             `json:"processed_at,omitempty"`
	CorrectsSettlementID *uuid.UUID             `json:"corrects_settlement_id,omitempty"`
	Notes                *string                `json:"notes,omitempty"`
	Lines                []LineView             `json:"lines"`
}

type LineView struct {
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	Payout      decimal.Decimal `json:"payout"`
	Deductions  decimal.Decimal `json:"deductions"`
	CompletedAt time.Time       `json:"completed_at"`
}

type ListView struct {
	Items  []SettlementView `json:"items"`
	Cursor string           `json:"cursor,omitempty"`
}

func newSettlementView(s *models.Settlement) SettlementView {
	view := SettlementView{
		ID:                   s.ID,
		SettlementNumber:     s.SettlementNumber,
		VendorID:             s.VendorID,
		CycleStart:           s.CycleStart,
		CutoffAt:             s.CutoffAt,
		TotalAmount:          s.TotalAmount,
		Deductions:           s.Deductions,
		Adjustment:           s.Adjustment,
		NetAmount:            s.NetAmount,
		OrderCount:           s.OrderCount,
		BankDetails:          s.BankDetails,
		Status:               s.Status,
		PaymentReference:     s.PaymentReference,
		SettlementDate:       s.SettlementDate,
		ProcessedAt:          s.ProcessedAt,
		CorrectsSettlementID: s.CorrectsSettlementID,
		Notes:                s.Notes,
		Lines:                make([]LineView, 0, len(s.Lines)),
	}
	for _, line := range s.Lines {
		view.Lines = append(view.Lines, LineView{
			OrderID:     line.OrderID,
			OrderNumber: line.OrderNumber,
			Payout:      line.Payout,
			Deductions:  line.Deductions,
			CompletedAt: line.CompletedAt,
		})
	}
	return view
}

func newSettlementViews(rows []models.Settlement) []SettlementView {
	out := make([]SettlementView, 0, len(rows))
	for i := range rows {
		out = append(out, newSettlementView(&rows[i]))
	}
	return out
}

type runRequest struct {
	VendorID string     `json:"vendor_id" validate:"omitempty,uuid"`
	AsOf     *time.Time `json:"as_of"`
}

type processRequest struct {
	PaymentReference string `json:"payment_reference" validate:"required,max=128"`
}

type correctiveRequest struct {
	Adjustment decimal.Decimal `json:"adjustment"`
	Notes      string          `json:"notes" validate:"required,max=2000"`
}

// RunBatch settles every vendor with completed orders up to the cycle cutoff.
func RunBatch(svc internalsettlements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var body runRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
		}

		input := internalsettlements.BatchInput{}
		if body.VendorID != "" {
			vendorID := uuid.MustParse(body.VendorID)
			input.VendorID = &vendorID
		}
		if body.AsOf != nil {
			input.AsOf = body.AsOf.UTC()
		}

		rows, err := svc.RunBatch(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newSettlementViews(rows))
	}
}

// List pages settlements for admins. Filters are vendor_id and status.
func List(svc internalsettlements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		params, err := listParams(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("vendor_id")); raw != "" {
			vendorID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid vendor_id"))
				return
			}
			params.VendorID = &vendorID
		}
		writeList(w, r, svc, params, logg)
	}
}

// VendorList pages the calling vendor's own settlements.
func VendorList(svc internalsettlements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actor, err := middleware.RequireActor(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if actor.Type != enums.ActorVendor {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "vendor access required"))
			return
		}
		params, err := listParams(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		vendorID := actor.ID
		params.VendorID = &vendorID
		writeList(w, r, svc, params, logg)
	}
}

// Detail returns one settlement with its lines.
func Detail(svc internalsettlements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		settlementID, err := validators.ParseUUIDParam(r, "settlementId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		row, err := svc.Get(ctx, settlementID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSettlementView(row))
	}
}

// MarkProcessed records the bank transfer reference of a pending settlement.
func MarkProcessed(svc internalsettlements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actor, err := middleware.RequireActor(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		settlementID, err := validators.ParseUUIDParam(r, "settlementId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var body processRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		row, err := svc.MarkProcessed(ctx, internalsettlements.ProcessInput{
			SettlementID:     settlementID,
			PaymentReference: strings.TrimSpace(body.PaymentReference),
			Actor:            actor,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSettlementView(row))
	}
}

// CreateCorrective issues a corrective settlement against a processed one.
func CreateCorrective(svc internalsettlements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actor, err := middleware.RequireActor(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		settlementID, err := validators.ParseUUIDParam(r, "settlementId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var body correctiveRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		row, err := svc.CreateCorrective(ctx, internalsettlements.CorrectiveInput{
			SettlementID: settlementID,
			Adjustment:   body.Adjustment,
			Notes:        validators.SanitizeString(body.Notes, 2000),
			Actor:        actor,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newSettlementView(row))
	}
}

func listParams(r *http.Request) (internalsettlements.ListParams, error) {
	limit, err := validators.ParseQueryInt(r, "limit", 25, 1, 100)
	if err != nil {
		return internalsettlements.ListParams{}, err
	}
	params := internalsettlements.ListParams{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := enums.ParseSettlementStatus(raw)
		if err != nil {
			return params, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		params.Status = &status
	}
	return params, nil
}

func writeList(w http.ResponseWriter, r *http.Request, svc internalsettlements.Service, params internalsettlements.ListParams, logg *logger.Logger) {
	ctx := r.Context()
	result, err := svc.List(ctx, params)
	if err != nil {
		responses.WriteError(ctx, logg, w, err)
		return
	}
	responses.WriteSuccess(w, ListView{
		Items:  newSettlementViews(result.Items),
		Cursor: result.Cursor,
	})
}
