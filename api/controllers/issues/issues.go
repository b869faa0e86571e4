package issues

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/buildmart-backend/api/controllers/disputes"
	"github.com/angelmondragon/buildmart-backend/api/controllers/orders"
	"github.com/angelmondragon/buildmart-backend/api/middleware"
	"github.com/angelmondragon/buildmart-backend/api/responses"
	"github.com/angelmondragon/buildmart-backend/api/validators"
	internalissues "github.com/angelmondragon/buildmart-backend/internal/issues"
	internalorders "github.com/angelmondragon/buildmart-backend/internal/orders"
	"github.com/angelmondragon/buildmart-backend/pkg/db/models"
	"github.com/angelmondragon/buildmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/buildmart-backend/pkg/errors"
	"github.com/angelmondragon/buildmart-backend/pkg/logger"
)

// OrderReader loads the order an issue belongs to for visibility checks.
type OrderReader interface {
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
}

type IssueView struct {
	ID                 uuid.UUID         `json:"id"`
	OrderID            uuid.UUID         `json:"order_id"`
	ReporterID         uuid.UUID         `json:"reporter_id"`
	ReporterRole       enums.ActorType   `json:"reporter_role"`
	IssueType          string            `json:"issue_type"`
	Description        string            `json:"description"`
	Status             enums.IssueStatus `json:"status"`
	Resolution         *string           `json:"resolution,omitempty"`
	ResolvedBy         *uuid.UUID        `json:"resolved_by,omitempty"`
	ResolvedAt         *time.Time        `json:"resolved_at,omitempty"`
	EscalatedToDispute bool              `json:"escalated_to_dispute"`
	DisputeID          *uuid.UUID        `json:"dispute_id,omitempty"`
	EscalatedAt        *time.Time        `json:"escalated_at,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
}

func newIssueView(issue *models.OrderIssue) IssueView {
	return IssueView{
		ID:                 issue.ID,
		OrderID:            issue.OrderID,
		ReporterID:         issue.ReporterID,
		ReporterRole:       issue.ReporterRole,
		IssueType:          issue.IssueType,
		Description:        issue.Description,
		Status:             issue.Status,
		Resolution:         issue.Resolution,
		ResolvedBy:         issue.ResolvedBy,
		ResolvedAt:         issue.ResolvedAt,
		EscalatedToDispute: issue.EscalatedToDispute,
		DisputeID:          issue.DisputeID,
		EscalatedAt:        issue.EscalatedAt,
		CreatedAt:          issue.CreatedAt,
	}
}

type reportRequest struct {
	IssueType   string `json:"issue_type" validate:"required,max=64"`
	Description string `json:"description" validate:"required,max=2000"`
}

type resolveRequest struct {
	Resolution string `json:"resolution" validate:"required,max=2000"`
}

type escalateRequest struct {
	DisputedAmount decimal.Decimal `json:"disputed_amount" validate:"gt=0"`
	Priority       string          `json:"priority" validate:"omitempty,oneof=low medium high critical"`
}

// Report opens an issue against an order.
func Report(svc internalissues.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actor, err := middleware.RequireActor(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var body reportRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		issue, err := svc.Report(ctx, internalissues.ReportInput{
			OrderID:     orderID,
			Actor:       actor,
			IssueType:   validators.SanitizeString(body.IssueType, 64),
			Description: validators.SanitizeString(body.Description, 2000),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newIssueView(issue))
	}
}

// ListForOrder returns every issue raised on an order the caller can see.
func ListForOrder(svc internalissues.Service, orderReader OrderReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := ensureOrderVisible(ctx, orderReader, orderID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		rows, err := svc.ListForOrder(ctx, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		out := make([]IssueView, 0, len(rows))
		for i := range rows {
			out = append(out, newIssueView(&rows[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

// Detail returns one issue.
func Detail(svc internalissues.Service, orderReader OrderReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		issueID, err := validators.ParseUUIDParam(r, "issueId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		issue, err := svc.Get(ctx, issueID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := ensureOrderVisible(ctx, orderReader, issue.OrderID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newIssueView(issue))
	}
}

// Resolve closes an issue without opening a dispute.
func Resolve(svc internalissues.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actor, err := middleware.RequireActor(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		issueID, err := validators.ParseUUIDParam(r, "issueId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var body resolveRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		issue, err := svc.Resolve(ctx, internalissues.ResolveInput{
			IssueID:    issueID,
			Actor:      actor,
			Resolution: validators.SanitizeString(body.Resolution, 2000),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newIssueView(issue))
	}
}

// Escalate turns an open issue into a dispute and returns the dispute.
func Escalate(svc internalissues.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actor, err := middleware.RequireActor(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		issueID, err := validators.ParseUUIDParam(r, "issueId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var body escalateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		input := internalissues.EscalateInput{
			IssueID:        issueID,
			Actor:          actor,
			DisputedAmount: body.DisputedAmount,
		}
		if body.Priority != "" {
			priority := enums.DisputePriority(body.Priority)
			input.Priority = &priority
		}

		var dispute *models.Dispute
		err = internalorders.RetryOnConflict(ctx, disputes.ConflictRetries, func(ctx context.Context) error {
			var err error
			dispute, err = svc.Escalate(ctx, input)
			return err
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, disputes.NewDisputeView(dispute))
	}
}

func ensureOrderVisible(ctx context.Context, orderReader OrderReader, orderID uuid.UUID) error {
	actor, err := middleware.RequireActor(ctx)
	if err != nil {
		return err
	}
	if orderReader == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "order reader unavailable")
	}
	order, err := orderReader.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if !orders.CanView(actor, order) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to actor")
	}
	return nil
}
