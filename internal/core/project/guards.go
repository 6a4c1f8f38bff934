package project

import (
	"fmt"
	"strings"

	"github.com/example/sitetrack/internal/errs"
)

// GuardResult represents the outcome of a guard evaluation.
type GuardResult struct {
	Allowed bool
	Reason  string
	Kind    errs.Kind
}

// Error converts the guard result to a classified error if not allowed.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	return errs.New(r.Kind, "%s", r.Reason)
}

// CreateProjectContext provides context for project creation guards.
type CreateProjectContext struct {
	Name      string
	ManagerID string
	MainTrade string
	Roles     map[string]string
}

// CanCreateProject evaluates whether a project can be registered.
func CanCreateProject(ctx CreateProjectContext) GuardResult {
	if strings.TrimSpace(ctx.Name) == "" {
		return GuardResult{Allowed: false, Reason: "project name is required", Kind: errs.KindValidation}
	}
	if strings.TrimSpace(ctx.ManagerID) == "" {
		return GuardResult{Allowed: false, Reason: "a responsible manager is required", Kind: errs.KindValidation}
	}
	if strings.TrimSpace(ctx.MainTrade) == "" {
		return GuardResult{Allowed: false, Reason: "a main trade is required", Kind: errs.KindValidation}
	}
	for role, user := range ctx.Roles {
		if r := CanAssignRole(role, user); !r.Allowed {
			return r
		}
	}
	return GuardResult{Allowed: true}
}

// AddTradeContext provides context for adding a trade tracker.
type AddTradeContext struct {
	ProjectID     string
	TradeType     string
	TrackedTrades []string
}

// CanAddTrade evaluates whether a new trade tracker can be initialized.
func CanAddTrade(ctx AddTradeContext) GuardResult {
	if strings.TrimSpace(ctx.TradeType) == "" {
		return GuardResult{Allowed: false, Reason: "trade type is required", Kind: errs.KindValidation}
	}
	for _, t := range ctx.TrackedTrades {
		if t == ctx.TradeType {
			return GuardResult{
				Allowed: false,
				Reason:  fmt.Sprintf("project %s already tracks trade %s", ctx.ProjectID, ctx.TradeType),
				Kind:    errs.KindConflict,
			}
		}
	}
	return GuardResult{Allowed: true}
}

// CanAssignRole evaluates a role assignment.
func CanAssignRole(role, userID string) GuardResult {
	if strings.TrimSpace(role) == "" {
		return GuardResult{Allowed: false, Reason: "role is required", Kind: errs.KindValidation}
	}
	if strings.TrimSpace(userID) == "" {
		return GuardResult{Allowed: false, Reason: fmt.Sprintf("user for role %s is required", role), Kind: errs.KindValidation}
	}
	return GuardResult{Allowed: true}
}
