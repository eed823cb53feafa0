package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salesdesk/salesdesk/internal/api"
	"github.com/salesdesk/salesdesk/internal/session"
)

var allRoles = []string{api.RoleAdmin, api.RoleSalesStaff, api.RoleWarehouseStaff, "", "ROLE_UNKNOWN"}

func mustMenu(t *testing.T) []MenuNode {
	t.Helper()
	tree, err := DefaultMenu()
	require.NoError(t, err)
	require.NotEmpty(t, tree)
	return tree
}

func visiblePaths(nodes []MenuNode, into map[string]bool) map[string]bool {
	if into == nil {
		into = map[string]bool{}
	}
	for _, n := range nodes {
		if n.Path != "" {
			into[n.Path] = true
		}
		visiblePaths(n.Children, into)
	}
	return into
}

func labels(nodes []MenuNode) []string {
	var out []string
	for _, n := range nodes {
		out = append(out, n.Label)
		out = append(out, labels(n.Children)...)
	}
	return out
}

func TestFilterMenuNeverKeepsExcludedNode(t *testing.T) {
	tree := mustMenu(t)
	for _, role := range allRoles {
		var check func(nodes []MenuNode)
		check = func(nodes []MenuNode) {
			for _, n := range nodes {
				if n.AllowedRoles != nil {
					assert.Contains(t, n.AllowedRoles, role, "node %s leaked to %q", n.Key, role)
				}
				check(n.Children)
			}
		}
		check(FilterMenu(tree, role))
	}
}

func TestMenuAndGuardAgree(t *testing.T) {
	tree := mustMenu(t)
	policy := NewPolicy(tree)
	require.NotEmpty(t, policy.Paths())

	for _, role := range allRoles {
		visible := visiblePaths(FilterMenu(tree, role), nil)
		for _, path := range policy.Paths() {
			decision := policy.Allow(path, role)
			assert.Equal(t, visible[path], decision.Allow, "role %q path %s", role, path)
			if !decision.Allow {
				assert.Equal(t, ForbiddenPath, decision.Redirect)
			}
		}
	}
}

func TestSalesStaffCannotSeeOrEnterUsers(t *testing.T) {
	tree := mustMenu(t)
	filtered := FilterMenu(tree, api.RoleSalesStaff)
	assert.NotContains(t, labels(filtered), "Nhân viên")
	assert.Contains(t, labels(filtered), "Tạo Đơn hàng")

	roles, ok := NewPolicy(tree).Roles("/users")
	require.True(t, ok)
	assert.Equal(t, []string{api.RoleAdmin}, roles)

	decision := GuardRoute(api.RoleSalesStaff, []string{api.RoleAdmin})
	assert.False(t, decision.Allow)
	assert.Equal(t, "/403", decision.Redirect)
}

func TestFilterMenuKeepsParentWithNoVisibleChildren(t *testing.T) {
	tree := []MenuNode{{
		Key:   "reports",
		Label: "Báo cáo",
		Children: []MenuNode{
			{Key: "finance", Label: "Tài chính", Path: "/reports/finance", AllowedRoles: []string{api.RoleAdmin}},
		},
	}}

	filtered := FilterMenu(tree, api.RoleSalesStaff)
	require.Len(t, filtered, 1)
	assert.NotNil(t, filtered[0].Children)
	assert.Empty(t, filtered[0].Children)
	assert.Len(t, tree[0].Children, 1, "input tree untouched")
}

func TestChildInheritsParentRestriction(t *testing.T) {
	tree := mustMenu(t)
	policy := NewPolicy(tree)

	assert.False(t, policy.Allow("/orders/new", api.RoleWarehouseStaff).Allow)
	assert.True(t, policy.Allow("/orders/new", api.RoleSalesStaff).Allow)
	assert.True(t, policy.Allow("/products", api.RoleWarehouseStaff).Allow)
	assert.False(t, policy.Allow("/nowhere", api.RoleAdmin).Allow)
}

func TestGuardRouteWithoutAllowListAdmitsEveryone(t *testing.T) {
	assert.True(t, GuardRoute(api.RoleSalesStaff, nil).Allow)
	assert.False(t, GuardRoute(api.RoleAdmin, []string{}).Allow)
}

func TestParseMenuRejectsDuplicatePaths(t *testing.T) {
	_, err := ParseMenu([]byte("- {key: a, label: A, path: /x}\n- {key: b, label: B, path: /x}\n"))
	assert.Error(t, err)
	_, err = ParseMenu([]byte("- {label: nokey}\n"))
	assert.Error(t, err)
}

func TestMenuNodeActive(t *testing.T) {
	root := MenuNode{Path: "/"}
	assert.True(t, root.Active("/"))
	assert.False(t, root.Active("/products"))

	orders := MenuNode{Children: []MenuNode{{Path: "/orders/new"}, {Path: "/orders/list"}}}
	assert.True(t, orders.Active("/orders/list"))
	assert.False(t, orders.Active("/ordersx"))

	products := MenuNode{Path: "/products"}
	assert.True(t, products.Active("/products/12/edit"))
}

func holderWithRole(role string) *session.Holder {
	store := session.NewMemoryStore()
	holder := session.NewHolder(store, nil, nil)
	if role != "" {
		store.Set(session.KeyToken, "opaque")
		store.Set(session.KeyUser, `{"email":"u@shop.vn","fullName":"U","role":"`+role+`"}`)
		holder.Resume()
	}
	return holder
}

func serve(mw func(http.Handler) http.Handler, holder *session.Holder) *httptest.ResponseRecorder {
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	req = req.WithContext(session.ContextWithHolder(req.Context(), holder))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestMiddlewareRedirects(t *testing.T) {
	m := Middleware{Policy: NewPolicy(mustMenu(t))}

	rec := serve(m.RequireRoute("/users"), holderWithRole(""))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/login", rec.Header().Get("Location"))

	rec = serve(m.RequireRoute("/users"), holderWithRole(api.RoleSalesStaff))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/403", rec.Header().Get("Location"))

	rec = serve(m.RequireRoute("/users"), holderWithRole(api.RoleAdmin))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = serve(m.RequireRoles(api.RoleAdmin, api.RoleWarehouseStaff), holderWithRole(api.RoleWarehouseStaff))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = serve(m.RequireAuthenticated(), holderWithRole(api.RoleSalesStaff))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
