package handler

import (
	"bytes"
	"errors"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/makers/loans-api/internal/core/domain"
	"github.com/makers/loans-api/internal/core/ports"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Request / Response types ---

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=6"`
	// Role defaults to User when omitted.
	Role string `json:"role" example:"User"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	Token    string    `json:"token"`
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	Role     string    `json:"role"`
}

// amountValue accepts a JSON string or a JSON number and keeps its literal text.
type amountValue string

func (a *amountValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := jsoniter.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = amountValue(s)
		return nil
	}
	if bytes.Equal(b, []byte("null")) {
		*a = ""
		return nil
	}
	var n jsoniter.Number
	if err := jsoniter.Unmarshal(b, &n); err != nil {
		return errors.New("amount must be a string or a number")
	}
	*a = amountValue(n.String())
	return nil
}

type createLoanRequest struct {
	Amount amountValue `json:"amount" validate:"required,amount" swaggertype:"string" example:"5000.00"`
	Term   string      `json:"term"   validate:"required,max=50" example:"12 months"`
}

type changeLoanStateRequest struct {
	LoanID   string `json:"loan_id"   validate:"required,uuid"`
	NewState string `json:"new_state" validate:"required" example:"Accepted"`
}

type loanResponse struct {
	ID     uuid.UUID `json:"id"`
	UserID uuid.UUID `json:"user_id"`
	Amount string    `json:"amount"`
	Term   string    `json:"term"`
	State  string    `json:"state"`
	Active bool      `json:"active"`
}

func toAuthResponse(r *ports.AuthResult) authResponse {
	return authResponse{
		Token:    r.Token,
		UserID:   r.UserID,
		Username: r.Username,
		Role:     string(r.Role),
	}
}

func toLoanResponse(v ports.LoanView) loanResponse {
	return loanResponse{
		ID:     v.ID,
		UserID: v.UserID,
		Amount: v.Amount,
		Term:   v.Term,
		State:  string(v.State),
		Active: v.Active,
	}
}

func toLoanResponses(views []ports.LoanView) []loanResponse {
	out := make([]loanResponse, 0, len(views))
	for _, v := range views {
		out = append(out, toLoanResponse(v))
	}
	return out
}

// parseRole maps the requested role, defaulting to User.
func parseRole(s string) (domain.Role, error) {
	if s == "" {
		return domain.RoleUser, nil
	}
	role, ok := domain.ParseRole(s)
	if !ok {
		return "", domain.Reason(domain.ErrInvalidInput, "role must be Admin or User")
	}
	return role, nil
}
