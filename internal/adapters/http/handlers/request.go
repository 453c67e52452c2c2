package handlers

import (
	"context"
	"fmt"
	"strconv"

	"xmllibrary/internal/core/services"
	"xmllibrary/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/reoring/goskema"
	g "github.com/reoring/goskema/dsl"
)

// Request body schemas. Unknown keys are dropped so clients may echo back
// read-only fields such as id.
var (
	bookSchema = g.ObjectOf[services.BookInput]().
			Field("isbn", g.StringOf[string]()).Required().
			Field("title", g.StringOf[string]()).Required().
			Field("author", g.StringOf[string]()).Required().
			Field("publisher", g.StringOf[string]()).Optional().
			Field("publicationYear", g.IntOf[int]()).Optional().
			Field("genre", g.StringOf[string]()).Optional().
			Field("availableCopies", g.IntOf[int]()).Optional().
			Field("totalCopies", g.IntOf[int]()).Required().
			UnknownStrip().
			MustBind()

	memberSchema = g.ObjectOf[services.MemberInput]().
			Field("firstName", g.StringOf[string]()).Required().
			Field("lastName", g.StringOf[string]()).Required().
			Field("email", g.StringOf[string]()).Required().
			Field("phoneNumber", g.StringOf[string]()).Optional().
			Field("address", g.StringOf[string]()).Optional().
			Field("status", g.StringOf[string]()).Optional().
			UnknownStrip().
			MustBind()

	borrowingSchema = g.ObjectOf[services.BorrowingInput]().
			Field("bookId", g.IntOf[int]()).Required().
			Field("memberId", g.IntOf[int]()).Required().
			UnknownStrip().
			MustBind()

	loginSchema = g.ObjectOf[services.LoginInput]().
			Field("username", g.StringOf[string]()).Required().
			Field("password", g.StringOf[string]()).Required().
			UnknownStrict().
			MustBind()

	registerSchema = g.ObjectOf[services.RegisterInput]().
			Field("username", g.StringOf[string]()).Required().
			Field("password", g.StringOf[string]()).Required().
			Field("role", g.StringOf[string]()).Optional().
			UnknownStrict().
			MustBind()

	refreshSchema = g.ObjectOf[RefreshRequest]().
			Field("refresh_token", g.StringOf[string]()).Required().
			UnknownStrict().
			MustBind()

	roleSchema = g.ObjectOf[RoleRequest]().
			Field("role", g.StringOf[string]()).Required().
			UnknownStrict().
			MustBind()

	changePasswordSchema = g.ObjectOf[services.ChangePasswordInput]().
				Field("old_password", g.StringOf[string]()).Required().
				Field("new_password", g.StringOf[string]()).Required().
				UnknownStrict().
				MustBind()
)

// RefreshRequest carries a refresh token when no cookie is sent
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RoleRequest represents a role change
type RoleRequest struct {
	Role string `json:"role"`
}

// FieldIssue is one problem found in a request body
type FieldIssue struct {
	Path    string `json:"path"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// parseBody decodes the JSON body through schema. On failure it has already
// written a 400 response and returns ok=false.
func parseBody[T any](c *fiber.Ctx, schema goskema.Schema[T]) (T, bool, error) {
	v, err := goskema.ParseFrom(context.Background(), schema, goskema.JSONBytes(c.Body()))
	if err == nil {
		return v, true, nil
	}

	issues, ok := goskema.AsIssues(err)
	if !ok {
		return v, false, response.BadRequest(c, "Invalid request body")
	}
	out := make([]FieldIssue, 0, len(issues))
	for _, is := range issues {
		out = append(out, FieldIssue{Path: is.Path, Code: is.Code, Message: is.Message})
	}
	return v, false, response.Invalid(c, "Invalid request body", out)
}

// paramID reads a positive integer route parameter
func paramID(c *fiber.Ctx, name string) (int, error) {
	id, err := strconv.Atoi(c.Params(name))
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}
