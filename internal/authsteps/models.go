package authsteps

import (
	"context"
	"time"

	"idauth/internal/authsteps/strategy"
	"idauth/pkg/domain"
)

// StepResult records how a step closed.
type StepResult string

const (
	StepResultSuccess StepResult = "success"
	StepResultFailure StepResult = "failure"
	StepResultExpired StepResult = "expired"
	// StepResultCancelled closes a step the client abandoned for another method.
	StepResultCancelled StepResult = "cancelled"
)

// Step is one attempt episode of a single method.
type Step struct {
	Method         domain.Method `json:"method"`
	Attempts       int           `json:"attempts"`
	VerifyAttempts int           `json:"verifyAttempts"`
	StartDate      time.Time     `json:"startDate"`
	EndDate        *time.Time    `json:"endDate,omitempty"`
	Result         StepResult    `json:"result,omitempty"`
}

func (s *Step) IsOpen() bool {
	return s.EndDate == nil
}

func (s *Step) close(result StepResult, at time.Time) {
	s.EndDate = &at
	s.Result = result
}

// StatusChange is one entry of the append-only status history.
type StatusChange struct {
	Status domain.StepsStatus `json:"status"`
	Method domain.Method      `json:"method,omitempty"`
	Date   time.Time          `json:"date"`
}

// UserAuthSteps is one authentication process for a device.
type UserAuthSteps struct {
	ProcessID            string             `json:"processId"`
	MobileUID            string             `json:"mobileUid"`
	UserIdentifier       string             `json:"userIdentifier,omitempty"`
	Code                 domain.SchemaCode  `json:"code"`
	Status               domain.StepsStatus `json:"status"`
	StatusHistory        []StatusChange     `json:"statusHistory"`
	Steps                []Step             `json:"steps"`
	Conditions           []domain.Condition `json:"conditions"`
	AdmittedAfterProcess string             `json:"admittedAfterProcess,omitempty"`
	IsRevoked            bool               `json:"isRevoked"`
	CreatedAt            time.Time          `json:"createdAt"`
	UpdatedAt            time.Time          `json:"updatedAt"`
}

// OpenStep returns the step without an end date, if any.
func (p *UserAuthSteps) OpenStep() *Step {
	for i := len(p.Steps) - 1; i >= 0; i-- {
		if p.Steps[i].IsOpen() {
			return &p.Steps[i]
		}
	}
	return nil
}

// lastSuccess returns the most recent successful step, if any.
func (p *UserAuthSteps) lastSuccess() *Step {
	for i := len(p.Steps) - 1; i >= 0; i-- {
		if p.Steps[i].Result == StepResultSuccess {
			return &p.Steps[i]
		}
	}
	return nil
}

func (p *UserAuthSteps) setStatus(status domain.StepsStatus, method domain.Method, at time.Time) {
	p.Status = status
	p.StatusHistory = append(p.StatusHistory, StatusChange{Status: status, Method: method, Date: at})
}

func (p *UserAuthSteps) addConditions(conds []domain.Condition) {
	for _, c := range conds {
		if !p.hasCondition(c) {
			p.Conditions = append(p.Conditions, c)
		}
	}
}

func (p *UserAuthSteps) hasCondition(c domain.Condition) bool {
	for _, existing := range p.Conditions {
		if existing == c {
			return true
		}
	}
	return false
}

// AuthMethodsResponse lists what the client may do next in a process.
type AuthMethodsResponse struct {
	ProcessID string          `json:"processId"`
	Methods   []domain.Method `json:"methods"`
	// SkipAuthMethods is set when the process needs no further verification.
	SkipAuthMethods bool `json:"skipAuthMethods"`
}

// CompleteRequest finalizes a process. OneOfCodes, when set, replaces Code.
type CompleteRequest struct {
	Code           domain.SchemaCode
	OneOfCodes     []domain.SchemaCode
	ProcessID      string
	MobileUID      string
	UserIdentifier string
	// Finalize, when set, runs after every check passed and before the
	// process is marked Completed. An error leaves the process in Success.
	Finalize Finalizer
}

// Finalizer consumes what the verification staged, e.g. by minting a session.
type Finalizer func(ctx context.Context, p *UserAuthSteps, params *strategy.MintingParams) error

func (r CompleteRequest) codes() []domain.SchemaCode {
	if len(r.OneOfCodes) > 0 {
		return r.OneOfCodes
	}
	if r.Code != "" {
		return []domain.SchemaCode{r.Code}
	}
	return nil
}

// RevokeRequest cancels processes of a schema for a device and user.
type RevokeRequest struct {
	Code           domain.SchemaCode
	MobileUID      string
	UserIdentifier string
}

type RevokeResult struct {
	Success        bool `json:"success"`
	RevokedActions int  `json:"revokedActions"`
}

// ReplayPolicy decides what completing an already completed process does.
type ReplayPolicy string

const (
	ReplayIdempotent ReplayPolicy = "idempotent"
	ReplayReject     ReplayPolicy = "reject"
)

// ParseReplayPolicy defaults to reject for unknown values.
func ParseReplayPolicy(s string) ReplayPolicy {
	if ReplayPolicy(s) == ReplayIdempotent {
		return ReplayIdempotent
	}
	return ReplayReject
}
