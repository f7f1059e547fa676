package handler

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/makers/loans-api/internal/api/metrics"
	"github.com/makers/loans-api/internal/core/domain"
	"github.com/makers/loans-api/internal/core/ports"
)

// LoanHandler handles HTTP requests for loan operations.
type LoanHandler struct {
	service ports.LoanService
}

func NewLoanHandler(service ports.LoanService) *LoanHandler {
	return &LoanHandler{service: service}
}

// Create handles POST /loan/solicitar.
//
// @Summary      Request a loan
// @Tags         loans
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key  header    string             false  "Replays the first response for retried requests"
// @Param        body             body      createLoanRequest  true   "Loan request"
// @Success      201              {object}  loanResponse
// @Failure      400              {object}  errorResponse
// @Failure      401              {object}  errorResponse
// @Failure      409              {object}  errorResponse
// @Failure      500              {object}  errorResponse
// @Router       /loan/solicitar [post]
func (h *LoanHandler) Create(c echo.Context) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}
	var req createLoanRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	view, err := h.service.Create(c.Request().Context(), caller, ports.CreateLoanInput{
		Amount: string(req.Amount),
		Term:   req.Term,
	})
	if err != nil {
		return err
	}

	metrics.LoansRequestedTotal.Inc()
	return c.JSON(http.StatusCreated, toLoanResponse(*view))
}

// ChangeState handles PUT /loan/cambiar-estado.
//
// @Summary      Accept or reject a loan
// @Tags         loans
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key  header    string                  false  "Replays the first response for retried requests"
// @Param        body             body      changeLoanStateRequest  true   "Decision"
// @Success      200              {object}  loanResponse
// @Failure      400              {object}  errorResponse
// @Failure      401              {object}  errorResponse
// @Failure      403              {object}  errorResponse
// @Failure      500              {object}  errorResponse
// @Router       /loan/cambiar-estado [put]
func (h *LoanHandler) ChangeState(c echo.Context) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}
	var req changeLoanStateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	loanID, err := uuid.Parse(req.LoanID)
	if err != nil {
		return domain.Reason(domain.ErrInvalidInput, "loan_id must be a valid UUID")
	}
	state, ok := domain.ParseLoanState(req.NewState)
	if !ok {
		state = domain.LoanState(strings.TrimSpace(req.NewState))
	}

	view, err := h.service.ChangeState(c.Request().Context(), caller, ports.ChangeLoanStateInput{
		LoanID:   loanID,
		NewState: state,
	})
	if err != nil {
		return err
	}

	metrics.LoanDecisionsTotal.WithLabelValues(string(view.State)).Inc()
	return c.JSON(http.StatusOK, toLoanResponse(*view))
}

// ListMine handles GET /loan/mis-prestamos.
//
// @Summary      List my active loans
// @Tags         loans
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   loanResponse
// @Failure      401  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /loan/mis-prestamos [get]
func (h *LoanHandler) ListMine(c echo.Context) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}

	views, err := h.service.ListMine(c.Request().Context(), caller)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toLoanResponses(views))
}

// ListByUser handles GET /loan/usuario/:id.
//
// @Summary      List the active loans of a user
// @Tags         loans
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User id"
// @Success      200  {array}   loanResponse
// @Failure      400  {object}  errorResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /loan/usuario/{id} [get]
func (h *LoanHandler) ListByUser(c echo.Context) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return domain.Reason(domain.ErrInvalidInput, "id must be a valid UUID")
	}

	views, err := h.service.ListByUser(c.Request().Context(), caller, userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toLoanResponses(views))
}
