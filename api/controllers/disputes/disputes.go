package disputes

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/buildmart-backend/api/middleware"
	"github.com/angelmondragon/buildmart-backend/api/responses"
	"github.com/angelmondragon/buildmart-backend/api/validators"
	internaldisputes "github.com/angelmondragon/buildmart-backend/internal/disputes"
	internalorders "github.com/angelmondragon/buildmart-backend/internal/orders"
	"github.com/angelmondragon/buildmart-backend/pkg/db/models"
	"github.com/angelmondragon/buildmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/buildmart-backend/pkg/errors"
	"github.com/angelmondragon/buildmart-backend/pkg/logger"
)

// ConflictRetries bounds how often opening a dispute is re-run after losing
// the per-order lock race.
const ConflictRetries = 2

type createRequest struct {
	OrderID        string          `json:"order_id" validate:"required,uuid"`
	Reason         string          `json:"reason" validate:"required"`
	Description    string          `json:"description" validate:"required,max=4000"`
	DisputedAmount decimal.Decimal `json:"disputed_amount" validate:"gt=0"`
	Priority       string          `json:"priority" validate:"omitempty,oneof=low medium high critical"`
}

type assignRequest struct {
	AssigneeID string `json:"assignee_id" validate:"required,uuid"`
}

type escalateRequest struct {
	Reason string `json:"reason" validate:"required,max=2000"`
}

type resolveRequest struct {
	Outcome      string           `json:"outcome" validate:"required"`
	RefundAmount *decimal.Decimal `json:"refund_amount" validate:"omitempty,gte=0"`
	Note         string           `json:"note" validate:"max=4000"`
}

type evidenceRequest struct {
	Type        string `json:"type" validate:"required,oneof=image video document invoice other"`
	URL         string `json:"url" validate:"required,url,max=2048"`
	Description string `json:"description" validate:"max=2000"`
}

// Create opens a dispute on an order.
func Create(svc internaldisputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actor, err := middleware.RequireActor(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var body createRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		reason, err := enums.ParseDisputeReason(body.Reason)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid dispute reason"))
			return
		}

		input := internaldisputes.CreateInput{
			OrderID:        uuid.MustParse(body.OrderID),
			Actor:          actor,
			Reason:         reason,
			Description:    validators.SanitizeString(body.Description, 4000),
			DisputedAmount: body.DisputedAmount,
		}
		if body.Priority != "" {
			priority := enums.DisputePriority(body.Priority)
			input.Priority = &priority
		}

		var dispute *models.Dispute
		err = internalorders.RetryOnConflict(ctx, ConflictRetries, func(ctx context.Context) error {
			var err error
			dispute, err = svc.Create(ctx, input)
			return err
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, NewDisputeView(dispute))
	}
}

// Detail returns a dispute to its parties or an admin.
func Detail(svc internaldisputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		dispute, err := loadVisible(r, svc)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, NewDisputeView(dispute))
	}
}

// Timeline returns the ordered audit trail of a dispute.
func Timeline(svc internaldisputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		dispute, err := loadVisible(r, svc)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		rows, err := svc.Timeline(ctx, dispute.ID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newTimelineViews(rows))
	}
}

// AddEvidence attaches a document or media reference to a dispute.
func AddEvidence(svc internaldisputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actor, err := middleware.RequireActor(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		disputeID, err := validators.ParseUUIDParam(r, "disputeId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var body evidenceRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		evidence, err := svc.AddEvidence(ctx, internaldisputes.EvidenceInput{
			DisputeID:   disputeID,
			Actor:       actor,
			Type:        enums.EvidenceType(body.Type),
			URL:         body.URL,
			Description: validators.SanitizeString(body.Description, 2000),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newEvidenceView(evidence))
	}
}

// Assign hands a dispute to an admin reviewer.
func Assign(svc internaldisputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actor, err := middleware.RequireActor(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		disputeID, err := validators.ParseUUIDParam(r, "disputeId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var body assignRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		dispute, err := svc.Assign(ctx, internaldisputes.AssignInput{
			DisputeID:  disputeID,
			Actor:      actor,
			AssigneeID: uuid.MustParse(body.AssigneeID),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, NewDisputeView(dispute))
	}
}

// Escalate raises a dispute to critical priority.
func Escalate(svc internaldisputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actor, err := middleware.RequireActor(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		disputeID, err := validators.ParseUUIDParam(r, "disputeId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var body escalateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		dispute, err := svc.Escalate(ctx, internaldisputes.EscalateInput{
			DisputeID: disputeID,
			Actor:     actor,
			Reason:    validators.SanitizeString(body.Reason, 2000),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, NewDisputeView(dispute))
	}
}

// Resolve closes a dispute with a terminal outcome.
func Resolve(svc internaldisputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actor, err := middleware.RequireActor(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		disputeID, err := validators.ParseUUIDParam(r, "disputeId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var body resolveRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		outcome, err := enums.ParseDisputeStatus(body.Outcome)
		if err != nil || !outcome.IsTerminal() {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "outcome must be a resolved status").
				WithDetails(map[string]any{"field": "outcome"}))
			return
		}

		dispute, err := svc.Resolve(ctx, internaldisputes.ResolveInput{
			DisputeID:    disputeID,
			Actor:        actor,
			Outcome:      outcome,
			RefundAmount: body.RefundAmount,
			Note:         validators.SanitizeString(body.Note, 4000),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, NewDisputeView(dispute))
	}
}

func loadVisible(r *http.Request, svc internaldisputes.Service) (*models.Dispute, error) {
	actor, err := middleware.RequireActor(r.Context())
	if err != nil {
		return nil, err
	}
	disputeID, err := validators.ParseUUIDParam(r, "disputeId")
	if err != nil {
		return nil, err
	}
	dispute, err := svc.Get(r.Context(), disputeID)
	if err != nil {
		return nil, err
	}
	if actor.Type != enums.ActorAdmin &&
		!actor.Is(enums.ActorBuyer, dispute.BuyerID) &&
		!actor.Is(enums.ActorVendor, dispute.VendorID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "dispute does not belong to actor")
	}
	return dispute, nil
}
