// Package validation provides input validation for agentbridge configs
// and request handlers.
//
// It supports both struct tag validation (using the validator library) and
// fluent programmatic validation with error collection. Both produce an
// *errors.AppError carrying per-field details.
//
// # Struct Tag Validation
//
//	type Upstream struct {
//	    BaseURL  string `json:"base_url" validate:"required,url"`
//	    Username string `json:"username" validate:"required"`
//	}
//	err := validation.Validate(cfg)
//
// # Programmatic Validation
//
//	v := validation.New()
//	v.Required("session_id", sessionID)
//	v.OneOf("policy", policy, []string{"broadcast_to_all", "drop_silently", "route_to_sink"})
//	if appErr := v.Validate(); appErr != nil { ... }
package validation
