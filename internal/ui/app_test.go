package ui

import (
	"context"
	"fmt"
	"testing"

	"github.com/digitalbuho/buho/internal/auth"
	"github.com/digitalbuho/buho/internal/client"
	"github.com/digitalbuho/buho/internal/ui/views"
)

// stubAPI answers the session calls; the views' data calls are never run here
type stubAPI struct {
	views.API
	current *auth.Claims
	logouts int
}

func (s *stubAPI) CurrentUser() (*auth.Claims, error) {
	if s.current == nil {
		return nil, client.ErrNoToken
	}
	return s.current, nil
}

func (s *stubAPI) Logout() error {
	s.logouts++
	return nil
}

type memSettings map[string]string

func (m memSettings) GetSetting(key string) (string, error) { return m[key], nil }

func (m memSettings) SetSetting(key, value string) error {
	m[key] = value
	return nil
}

func TestLoginRoutesByRole(t *testing.T) {
	tests := []struct {
		name   string
		claims *auth.Claims
		want   string
	}{
		{"staff", &auth.Claims{Email: "a@b.co", IsStaff: true}, "*views.DashboardView"},
		{"superuser", &auth.Claims{Email: "a@b.co", IsSuperuser: true}, "*views.DashboardView"},
		{"regular", &auth.Claims{Email: "a@b.co"}, "*views.HomeView"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := NewApp(context.Background(), &stubAPI{}, memSettings{})
			app.Update(views.LoggedIn{Claims: tt.claims})
			if got := fmt.Sprintf("%T", app.current); got != tt.want {
				t.Errorf("current = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDashboardRequiresAdmin(t *testing.T) {
	app := NewApp(context.Background(), &stubAPI{}, memSettings{})
	app.Update(views.LoggedIn{Claims: &auth.Claims{Email: "a@b.co"}})
	app.Update(views.Navigate{To: views.ScreenDashboard})
	if _, ok := app.current.(*views.HomeView); !ok || app.screen != views.ScreenHome {
		t.Errorf("current = %T screen = %v", app.current, app.screen)
	}
}

func TestLastProjectIsRestored(t *testing.T) {
	settings := memSettings{}
	app := NewApp(context.Background(), &stubAPI{}, settings)
	app.Update(views.LoggedIn{Claims: &auth.Claims{Email: "a@b.co", IsStaff: true}})
	app.Update(views.Navigate{To: views.ScreenProjectDetail, ProjectID: 42})

	if settings[lastProjectKey] != "42" {
		t.Fatalf("saved = %q", settings[lastProjectKey])
	}

	next := NewApp(context.Background(), &stubAPI{}, settings)
	next.Update(views.LoggedIn{Claims: &auth.Claims{Email: "a@b.co", IsStaff: true}})
	if _, ok := next.current.(*views.ProjectDetailView); !ok {
		t.Errorf("current = %T, want project detail", next.current)
	}

	next.Update(views.Navigate{To: views.ScreenTasks})
	if settings[lastProjectKey] != "" {
		t.Errorf("leaving the project should clear it, got %q", settings[lastProjectKey])
	}
}

func TestLogoutClearsSession(t *testing.T) {
	api := &stubAPI{}
	settings := memSettings{lastProjectKey: "7"}
	app := NewApp(context.Background(), api, settings)
	app.Update(views.LoggedIn{Claims: &auth.Claims{Email: "a@b.co", IsStaff: true}})
	app.Update(views.LoggedOut{})

	if api.logouts != 1 {
		t.Errorf("logouts = %d", api.logouts)
	}
	if app.claims != nil {
		t.Error("claims should be cleared")
	}
	if _, ok := app.current.(*views.LoginView); !ok {
		t.Errorf("current = %T, want login", app.current)
	}
	if settings[lastProjectKey] != "" {
		t.Errorf("last project = %q", settings[lastProjectKey])
	}
}

func TestResumeSession(t *testing.T) {
	app := NewApp(context.Background(), &stubAPI{}, nil)
	if msg := app.resumeSession(); msg != nil {
		t.Errorf("without token msg = %#v", msg)
	}

	claims := &auth.Claims{Email: "a@b.co"}
	app = NewApp(context.Background(), &stubAPI{current: claims}, nil)
	app.Update(app.resumeSession())
	if app.claims != claims {
		t.Fatal("session was not resumed")
	}
	if _, ok := app.current.(*views.HomeView); !ok {
		t.Errorf("current = %T, want home", app.current)
	}
}
