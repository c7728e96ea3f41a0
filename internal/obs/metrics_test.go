package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                                  "/",
		"/metrics":                          "/metrics",
		"/logs":                             "/logs",
		"/logs?limit=10":                    "/logs",
		"/admin/users":                      "/admin/users",
		"/admin/users/42/role":              "/admin/users/:ref/role",
		"/admin/users/a@x.com/password":     "/admin/users/:ref/password",
		"/admin/users/alice/permissions":    "/admin/users/:ref/permissions",
		"/admin/users/alice/unknown":        "/admin/users/alice/unknown",
		"/admin/users/alice/role/extra":     "/admin/users/alice/role/extra",
		"/predict":                          "/predict",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
