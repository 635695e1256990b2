package handler

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/uxfolio/portfolio-cms/internal/api/middleware"
	"github.com/uxfolio/portfolio-cms/internal/core/domain"
)

var (
	adminActor  = domain.Actor{UserID: "u-admin", Username: "carol", Role: domain.RoleAdmin}
	editorActor = domain.Actor{UserID: "u-editor", Username: "dave", Role: domain.RoleEditor}
)

// newCtx builds an echo context for method/target with a JSON body and the
// given path parameters (name, value pairs).
func newCtx(t *testing.T, method, target, body string, params ...string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	e.Validator = NewValidator()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if len(params)%2 != 0 {
		t.Fatalf("params must be name/value pairs")
	}
	var names, values []string
	for i := 0; i < len(params); i += 2 {
		names = append(names, params[i])
		values = append(values, params[i+1])
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)
	return c, rec
}

func withActor(c echo.Context, a domain.Actor) echo.Context {
	c.Set(middleware.ActorKey, a)
	return c
}
