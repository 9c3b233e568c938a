package middleware

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/tobi-ade/storefront-golang/internal/auth"
)

// roleConn is a one-trick database/sql driver that answers the role lookup
// AdminMiddleware performs.
type roleConn struct {
	role   string
	exists bool
}

func (c *roleConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("prepared statements not supported by stub")
}
func (c *roleConn) Close() error              { return nil }
func (c *roleConn) Begin() (driver.Tx, error) { return nil, errors.New("not supported") }

func (c *roleConn) QueryContext(context.Context, string, []driver.NamedValue) (driver.Rows, error) {
	return &roleRows{role: c.role, exists: c.exists}, nil
}

type roleRows struct {
	role   string
	exists bool
	done   bool
}

func (r *roleRows) Columns() []string { return []string{"role"} }
func (r *roleRows) Close() error      { return nil }
func (r *roleRows) Next(dest []driver.Value) error {
	if !r.exists || r.done {
		return io.EOF
	}
	dest[0] = r.role
	r.done = true
	return nil
}

type roleConnector struct{ conn *roleConn }

func (c roleConnector) Connect(context.Context) (driver.Conn, error) { return c.conn, nil }
func (c roleConnector) Driver() driver.Driver                        { return roleDriver{} }

type roleDriver struct{}

func (roleDriver) Open(string) (driver.Conn, error) {
	return nil, errors.New("open stub connections through sql.OpenDB")
}

func newAdminRouter(t *testing.T, conn *roleConn) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := sql.OpenDB(roleConnector{conn: conn})
	db.SetMaxOpenConns(1)

	router := gin.New()
	router.GET("/admin-only", AuthMiddleware(), AdminMiddleware(db), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})
	return router
}

func adminRequest(t *testing.T, router *gin.Engine) *httptest.ResponseRecorder {
	t.Helper()

	token, err := auth.GenerateToken(42)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/admin-only", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAdminMiddlewareAllowsAdmin(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	router := newAdminRouter(t, &roleConn{role: "admin", exists: true})

	if w := adminRequest(t, router); w.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAdminMiddlewareRejectsNonAdmin(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	router := newAdminRouter(t, &roleConn{role: "customer", exists: true})

	if w := adminRequest(t, router); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer, got %d", w.Code)
	}
}

func TestAdminMiddlewareRejectsDeletedUser(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	router := newAdminRouter(t, &roleConn{exists: false})

	// A valid token whose account has since been removed is unauthorized,
	// not a server error.
	if w := adminRequest(t, router); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for deleted user, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAuthMiddlewareRejectsMissingHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/authed", AuthMiddleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})

	req := httptest.NewRequest(http.MethodGet, "/authed", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without Authorization header, got %d", w.Code)
	}
}
