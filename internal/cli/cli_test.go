package cli

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestMigrateSeedAndProvision(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_WRITER_DSN", "file:"+filepath.Join(t.TempDir(), "cli.db"))
	t.Setenv("DB_MAX_OPEN_CONNS", "1")
	t.Setenv("AUTH_JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("CACHE_ENABLED", "false")
	t.Setenv("OBS_ENABLE_METRICS", "false")
	t.Setenv("OBS_LOG_LEVEL", "error")

	steps := []struct {
		args []string
		want string
	}{
		{[]string{"migrate", "up"}, "migrations applied"},
		{[]string{"migrate", "status"}, "schema version 1"},
		{[]string{"seed", "--password", "demo-pass-1"}, "seed data applied"},
		{[]string{"user", "create", "--username", "ola", "--password", "ola-pass-1"}, "created user ola"},
	}
	for _, step := range steps {
		out, err := run(t, step.args...)
		if err != nil {
			t.Fatalf("%v: %v", step.args, err)
		}
		if !strings.Contains(out, step.want) {
			t.Fatalf("%v output = %q, want %q", step.args, out, step.want)
		}
	}

	if _, err := run(t, "user", "create", "--username", "ola", "--password", "ola-pass-1"); err == nil {
		t.Fatal("duplicate username accepted")
	}
}
