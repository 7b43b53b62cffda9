// Package api is the typed client of the plan server and the wire types
// both sides share.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/KatTate/katalyst-franchise-planner/internal/plan"
)

// Envelope wraps every successful response body.
type Envelope[T any] struct {
	Data T `json:"data"`
}

// ErrorBody is the body of every failed response.
type ErrorBody struct {
	Error string `json:"error"`
}

// PlanPatch lists the plan fields a PATCH may replace. Nil fields are left
// alone; a present FinancialInputs replaces the whole document.
type PlanPatch struct {
	Name            *string               `json:"name,omitempty"`
	StartDate       *time.Time            `json:"startDate,omitempty"`
	FinancialInputs *plan.FinancialInputs `json:"financialInputs,omitempty"`
}

// CreatePlanRequest is the body of POST /plans.
type CreatePlanRequest struct {
	Name      string     `json:"name"`
	StartDate *time.Time `json:"startDate,omitempty"`
}

// Role identifies the caller's role to the server.
type Role string

const (
	RoleFranchisee Role = "franchisee"
	RoleFranchisor Role = "franchisor"
	RoleAdmin      Role = "admin"
)

// Request headers carrying RequestOptions.
const (
	HeaderRole = "X-Planner-Role"
	HeaderDemo = "X-Planner-Demo"
)

// RequestOptions carries caller identity explicitly on every call.
type RequestOptions struct {
	Role     Role
	DemoMode bool
}

func (o RequestOptions) apply(req *http.Request) {
	if o.Role != "" {
		req.Header.Set(HeaderRole, string(o.Role))
	}
	if o.DemoMode {
		req.Header.Set(HeaderDemo, "true")
	}
}

// OptionsFromRequest reads RequestOptions back from request headers.
func OptionsFromRequest(r *http.Request) RequestOptions {
	return RequestOptions{
		Role:     Role(r.Header.Get(HeaderRole)),
		DemoMode: r.Header.Get(HeaderDemo) == "true",
	}
}

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("plan server returned status %d", e.Status)
	}
	return fmt.Sprintf("plan server returned status %d: %s", e.Status, e.Message)
}

// Retryable reports whether the request may succeed if sent again.
func (e *APIError) Retryable() bool {
	return e.Status >= http.StatusInternalServerError || e.Status == http.StatusTooManyRequests
}
