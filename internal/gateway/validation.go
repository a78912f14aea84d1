// Validation - shape checks for the mutation endpoints.
//
// DESIGN: A request body is decoded into a typed struct, then checked with
// go-playground/validator. Type mismatches from decoding and rule failures
// from the validator are merged into one itemized Issue list, which the
// router returns with 422. A body that fails here never reaches the backend.
package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"github.com/tidwall/gjson"

	"github.com/studyhall/chat-gateway/internal/config"
)

// =============================================================================
// REQUEST SHAPES
// =============================================================================

// createSessionRequest is POST /api/chat-sessions. Title may be empty but
// must be present; userId may be a string or null.
type createSessionRequest struct {
	Title  *string `json:"title" validate:"required"`
	UserID *string `json:"userId"`
}

// renameSessionRequest is PATCH /api/chat-sessions/{id}.
type renameSessionRequest struct {
	Title *string `json:"title" validate:"required"`
}

// createMessageRequest is POST /api/messages.
type createMessageRequest struct {
	SessionID *string `json:"sessionId" validate:"required"`
	Content   *string `json:"content" validate:"required"`
	Role      *string `json:"role" validate:"required,oneof=user assistant"`
}

// =============================================================================
// ISSUES
// =============================================================================

// Issue is one itemized validation failure.
type Issue struct {
	Code    string   `json:"code"`
	Path    []string `json:"path"`
	Message string   `json:"message"`
}

// errInvalidJSON is returned when the body is not a JSON document at all.
var errInvalidJSON = errors.New("invalid JSON body")

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeAndValidate reads r's body into dst and validates it. It returns
// errInvalidJSON for unparseable bodies and a non-empty issue list for shape
// violations.
func (g *Gateway) decodeAndValidate(r *http.Request, dst any) ([]Issue, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, config.MaxJSONBodySize))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		body = []byte("{}")
	}
	if !gjson.ValidBytes(body) {
		return nil, errInvalidJSON
	}

	var issues []Issue
	typeIssue := decodeTyped(body, dst)
	if typeIssue != nil {
		issues = append(issues, *typeIssue)
	}

	if err := g.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, err
		}
		ruleIssues := lo.Map(verrs, func(fe validator.FieldError, _ int) Issue {
			return issueFromFieldError(fe)
		})
		// A field that already failed decoding is reported once.
		ruleIssues = lo.Filter(ruleIssues, func(is Issue, _ int) bool {
			return typeIssue == nil || !samePath(is.Path, typeIssue.Path)
		})
		issues = append(issues, ruleIssues...)
	}
	return issues, nil
}

// decodeTyped unmarshals body into dst and converts a type mismatch into an
// Issue. Only the first mismatch is reported by encoding/json.
func decodeTyped(body []byte, dst any) *Issue {
	err := json.Unmarshal(body, dst)
	if err == nil {
		return nil
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		path := []string{}
		if typeErr.Field != "" {
			path = strings.Split(typeErr.Field, ".")
		}
		expected := "string"
		if len(path) == 0 {
			expected = "object"
		}
		return &Issue{
			Code:    "invalid_type",
			Path:    path,
			Message: fmt.Sprintf("Expected %s, received %s", expected, typeErr.Value),
		}
	}
	return &Issue{Code: "invalid_type", Path: []string{}, Message: err.Error()}
}

func issueFromFieldError(fe validator.FieldError) Issue {
	path := []string{fe.Field()}
	switch fe.Tag() {
	case "required":
		return Issue{Code: "invalid_type", Path: path, Message: "Required"}
	case "oneof":
		opts := lo.Map(strings.Fields(fe.Param()), func(s string, _ int) string { return "'" + s + "'" })
		return Issue{
			Code:    "invalid_enum_value",
			Path:    path,
			Message: fmt.Sprintf("Invalid enum value. Expected %s, received '%v'", strings.Join(opts, " | "), derefValue(fe.Value())),
		}
	default:
		return Issue{Code: "custom", Path: path, Message: fmt.Sprintf("Failed %q check", fe.Tag())}
	}
}

func derefValue(v any) any {
	if p, ok := v.(*string); ok && p != nil {
		return *p
	}
	return v
}

func samePath(a, b []string) bool {
	return strings.Join(a, ".") == strings.Join(b, ".")
}
