package ownership

import "github.com/mcdev12/rinklog/go/internal/models"

// ApprovalPolicy decides whether approver may complete a pending take-over.
type ApprovalPolicy interface {
	Name() string
	CanApprove(approver models.Logger, holder models.ViewAssignment, hasHolder bool, req models.TakeOverRequest) bool
}

// Cooperative lets any logger approve any request. Loggers are one team
// acting in good faith.
type Cooperative struct{}

func (Cooperative) Name() string { return "cooperative" }

func (Cooperative) CanApprove(models.Logger, models.ViewAssignment, bool, models.TakeOverRequest) bool {
	return true
}

// HolderOnly only accepts approval from the logger currently holding the view.
type HolderOnly struct{}

func (HolderOnly) Name() string { return "holder_only" }

func (HolderOnly) CanApprove(approver models.Logger, holder models.ViewAssignment, hasHolder bool, _ models.TakeOverRequest) bool {
	return hasHolder && holder.LoggerID == approver.ID
}

// PolicyByName resolves a configured policy name, defaulting to Cooperative.
func PolicyByName(name string) ApprovalPolicy {
	switch name {
	case HolderOnly{}.Name():
		return HolderOnly{}
	default:
		return Cooperative{}
	}
}
