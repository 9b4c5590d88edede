package workflow

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/papapumpkin/vchain/internal/cr"
)

// CreateRequest opens a change request. ChangedIDs wins when set;
// otherwise the changed identifiers are derived from OldContent and
// NewContent.
type CreateRequest struct {
	WorkspacePath string   `json:"workspace_path" validate:"required"`
	OriginDoc     string   `json:"origin_doc" validate:"required"`
	Description   string   `json:"description" validate:"required"`
	ChangedIDs    []string `json:"changed_ids,omitempty"`
	OldContent    string   `json:"old_content,omitempty"`
	NewContent    string   `json:"new_content,omitempty"`
}

// AnalyzeRequest runs impact analysis and planning.
type AnalyzeRequest struct {
	WorkspacePath string `json:"workspace_path" validate:"required"`
	CRID          string `json:"cr_id" validate:"required,crid"`
	ConfigPath    string `json:"config_path,omitempty"`
}

// ApproveRequest approves an analyzed change request.
type ApproveRequest struct {
	WorkspacePath string `json:"workspace_path" validate:"required"`
	CRID          string `json:"cr_id" validate:"required,crid"`
}

// PropagateNextRequest processes one propagation step. ConfigPath selects
// the documents captured by the checkpoint taken on the first step; pass
// the same path given to Analyze.
type PropagateNextRequest struct {
	WorkspacePath string `json:"workspace_path" validate:"required"`
	CRID          string `json:"cr_id" validate:"required,crid"`
	ConfigPath    string `json:"config_path,omitempty"`
	Note          string `json:"note,omitempty"`
	Skip          bool   `json:"skip,omitempty"`
}

// ValidateRequest re-analyzes the chain after propagation.
type ValidateRequest struct {
	WorkspacePath string `json:"workspace_path" validate:"required"`
	CRID          string `json:"cr_id" validate:"required,crid"`
	ConfigPath    string `json:"config_path,omitempty"`
	Partial       bool   `json:"partial,omitempty"`
}

// CompleteRequest closes a validated change request.
type CompleteRequest struct {
	WorkspacePath string `json:"workspace_path" validate:"required"`
	CRID          string `json:"cr_id" validate:"required,crid"`
}

// StatusRequest reads one change request.
type StatusRequest struct {
	WorkspacePath string `json:"workspace_path" validate:"required"`
	CRID          string `json:"cr_id" validate:"required,crid"`
}

// ListRequest lists change requests, optionally by status.
type ListRequest struct {
	WorkspacePath string `json:"workspace_path" validate:"required"`
	StatusFilter  string `json:"status_filter,omitempty" validate:"omitempty,crstatus"`
}

// CancelRequest cancels a non-terminal change request.
type CancelRequest struct {
	WorkspacePath string `json:"workspace_path" validate:"required"`
	CRID          string `json:"cr_id" validate:"required,crid"`
	Reason        string `json:"reason,omitempty"`
}

// ReapproveRequest sends a propagating change request back to APPROVED.
type ReapproveRequest struct {
	WorkspacePath string `json:"workspace_path" validate:"required"`
	CRID          string `json:"cr_id" validate:"required,crid"`
	Reason        string `json:"reason,omitempty"`
}

// ReferencesRequest runs a chain analysis outside any change request.
type ReferencesRequest struct {
	WorkspacePath string `json:"workspace_path" validate:"required"`
	ConfigPath    string `json:"config_path,omitempty"`
}

// newValidator returns a validator that reports JSON field names and knows
// the crid and crstatus tags.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("crid", func(fl validator.FieldLevel) bool {
		return cr.ValidateID(fl.Field().String()) == nil
	})
	_ = v.RegisterValidation("crstatus", func(fl validator.FieldLevel) bool {
		return cr.Status(fl.Field().String()).Valid()
	})
	return v
}

// checkRequest validates req and maps the first failure onto the error
// taxonomy.
func (s *Service) checkRequest(req any) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%w: %s is required", ErrValidation, fe.Field())
	case "crid":
		return fmt.Errorf("%w: %w: %s %q", ErrValidation, cr.ErrInvalidID, fe.Field(), fe.Value())
	case "crstatus":
		return fmt.Errorf("%w: %w: %s %q", ErrValidation, cr.ErrInvalidStatus, fe.Field(), fe.Value())
	default:
		return fmt.Errorf("%w: %s failed %s", ErrValidation, fe.Field(), fe.Tag())
	}
}
