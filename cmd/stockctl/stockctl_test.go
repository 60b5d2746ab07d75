package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/firestorm/stockmanagement/pkg/app"
	"github.com/firestorm/stockmanagement/pkg/auth"
	"github.com/firestorm/stockmanagement/pkg/config"
	"github.com/firestorm/stockmanagement/pkg/storage"
)

const testSecret = "stockctl-test-secret-0123456789abcdef"

// sharedApp returns an opener that hands out one in-memory app so state
// survives across command invocations.
func sharedApp(t *testing.T) opener {
	t.Helper()
	cfg := config.Defaults()
	cfg.Auth.Secret = testSecret
	cfg.Auth.BcryptCost = bcrypt.MinCost

	a, err := app.New(context.Background(), &cfg)
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	return func(context.Context, string) (*app.App, error) { return a, nil }
}

func execute(t *testing.T, open opener, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(open)
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestSubcommands(t *testing.T) {
	root := newRootCmd(defaultOpener)

	want := map[string][]string{
		"user":  {"add", "passwd", "roles", "list", "enable", "disable", "delete"},
		"token": {"issue", "inspect"},
		"hash":  nil,
	}
	for parent, children := range want {
		cmd, _, err := root.Find([]string{parent})
		if err != nil || cmd.Name() != parent {
			t.Errorf("command %q not registered", parent)
			continue
		}
		for _, child := range children {
			sub, _, err := root.Find([]string{parent, child})
			if err != nil || sub.Name() != child {
				t.Errorf("subcommand %q %q not registered", parent, child)
			}
		}
	}
	if root.PersistentFlags().Lookup("config") == nil {
		t.Error("flag 'config' not found on root command")
	}
}

func TestUserLifecycle(t *testing.T) {
	open := sharedApp(t)

	out, _, err := execute(t, open, "", "user", "add", "root",
		"--email", "root@example.com", "--password", "rootpass",
		"--role", "ROLE_ADMIN", "--role", "ROLE_USER")
	if err != nil {
		t.Fatalf("user add: %v", err)
	}
	if !strings.Contains(out, "created user root (ROLE_ADMIN,ROLE_USER)") {
		t.Errorf("output = %q", out)
	}

	// Password from stdin, default roles.
	if _, _, err := execute(t, open, "secret1\n", "user", "add", "alice", "--email", "alice@example.com"); err != nil {
		t.Fatalf("user add alice: %v", err)
	}

	out, _, err = execute(t, open, "", "user", "list")
	if err != nil {
		t.Fatalf("user list: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("list output has %d lines, want 3:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[1], "alice") || !strings.Contains(lines[1], "ROLE_USER") {
		t.Errorf("alice row = %q", lines[1])
	}

	if _, _, err := execute(t, open, "", "user", "roles", "alice", "--role", "ROLE_ADMIN"); err != nil {
		t.Fatalf("user roles: %v", err)
	}
	if _, _, err := execute(t, open, "", "user", "disable", "alice"); err != nil {
		t.Fatalf("user disable: %v", err)
	}

	a, _ := open(context.Background(), "")
	p, err := a.Store.FindByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatal(err)
	}
	if p.Enabled || !p.HasRole(auth.RoleAdmin) || p.HasRole(auth.RoleUser) {
		t.Errorf("alice = %+v, want disabled with only ROLE_ADMIN", p)
	}

	if _, _, err := execute(t, open, "", "user", "delete", "alice"); err != nil {
		t.Fatalf("user delete: %v", err)
	}
	if _, err := a.Store.FindByUsername(context.Background(), "alice"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("after delete: err = %v, want ErrNotFound", err)
	}
}

func TestUserAddErrors(t *testing.T) {
	open := sharedApp(t)

	if _, _, err := execute(t, open, "", "user", "add", "alice", "--password", "secret1"); err == nil {
		t.Error("expected error without --email")
	}
	if _, _, err := execute(t, open, "", "user", "add", "alice", "--email", "a@example.com"); err == nil {
		t.Error("expected error without password")
	}
	if _, _, err := execute(t, open, "", "user", "add", "alice", "--email", "a@example.com", "--password", "abc"); err == nil {
		t.Error("expected error for weak password")
	}
	if _, _, err := execute(t, open, "", "user", "roles", "ghost", "--role", "ROLE_USER"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("roles for unknown user: err = %v, want ErrNotFound", err)
	}
}

func TestUserPasswd(t *testing.T) {
	open := sharedApp(t)
	if _, _, err := execute(t, open, "", "user", "add", "alice", "--email", "alice@example.com", "--password", "secret1"); err != nil {
		t.Fatal(err)
	}

	if _, _, err := execute(t, open, "", "user", "passwd", "alice", "--password", "secret2"); err != nil {
		t.Fatalf("user passwd: %v", err)
	}

	a, _ := open(context.Background(), "")
	if _, err := a.Logins.Authenticate(context.Background(), "alice", "secret2"); err != nil {
		t.Errorf("login with new password: %v", err)
	}
	if _, err := a.Logins.Authenticate(context.Background(), "alice", "secret1"); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Errorf("login with old password: err = %v", err)
	}
}

func TestTokenIssueAndInspect(t *testing.T) {
	open := sharedApp(t)
	if _, _, err := execute(t, open, "", "user", "add", "alice", "--email", "alice@example.com", "--password", "secret1"); err != nil {
		t.Fatal(err)
	}

	out, errOut, err := execute(t, open, "", "token", "issue", "alice")
	if err != nil {
		t.Fatalf("token issue: %v", err)
	}
	token := strings.TrimSpace(out)
	if strings.Count(token, ".") != 2 {
		t.Fatalf("token = %q, want three segments", token)
	}
	if !strings.Contains(errOut, "expires at") {
		t.Errorf("stderr = %q, want expiry", errOut)
	}

	out, _, err = execute(t, open, "", "token", "inspect", token)
	if err != nil {
		t.Fatalf("token inspect: %v", err)
	}
	if !strings.Contains(out, "subject:    alice") {
		t.Errorf("inspect output = %q", out)
	}

	if _, _, err := execute(t, open, "", "token", "inspect", token+"x"); err == nil {
		t.Error("expected error for tampered token")
	}
}

func TestTokenIssueRefusesDisabledAccount(t *testing.T) {
	open := sharedApp(t)
	if _, _, err := execute(t, open, "", "user", "add", "alice", "--email", "alice@example.com", "--password", "secret1"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := execute(t, open, "", "user", "disable", "alice"); err != nil {
		t.Fatal(err)
	}

	_, _, err := execute(t, open, "", "token", "issue", "alice")
	if !errors.Is(err, auth.ErrPrincipalDisabled) {
		t.Errorf("err = %v, want ErrPrincipalDisabled", err)
	}
	if _, _, err := execute(t, open, "", "token", "issue", "ghost"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("unknown user: err = %v, want ErrNotFound", err)
	}
}

func TestHash(t *testing.T) {
	out, _, err := execute(t, nil, "", "hash", "--password", "secret1", "--cost", "4")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	hash := strings.TrimSpace(out)
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("secret1")); err != nil {
		t.Errorf("hash does not verify: %v", err)
	}
	if cost, _ := bcrypt.Cost([]byte(hash)); cost != 4 {
		t.Errorf("cost = %d, want 4", cost)
	}

	if _, _, err := execute(t, nil, "", "hash", "--password", "x", "--cost", "99"); err == nil {
		t.Error("expected error for out-of-range cost")
	}
}

func TestDefaultOpenerLoadsConfigFile(t *testing.T) {
	for _, name := range []string{"STOCK_CONFIG", "STOCK_ENV_FILE", "STOCK_AUTH_SECRET", "STOCK_STORAGE", "STOCK_DEBUG", "STOCK_LOG_LEVEL"} {
		t.Setenv(name, "")
	}
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "auth:\n  secret: \"" + testSecret + "\"\n  bcrypt_cost: 4\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	a, err := defaultOpener(context.Background(), path)
	if err != nil {
		t.Fatalf("defaultOpener: %v", err)
	}
	defer a.Close()
	if a.Hasher.Cost() != 4 {
		t.Errorf("hasher cost = %d, want 4", a.Hasher.Cost())
	}

	if _, err := defaultOpener(context.Background(), filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}
