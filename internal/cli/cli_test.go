package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VivreleHpi/crohn-companion-app/internal/backend"
	"github.com/VivreleHpi/crohn-companion-app/internal/backend/memory"
	"github.com/VivreleHpi/crohn-companion-app/internal/common"
	"github.com/VivreleHpi/crohn-companion-app/internal/config"
	"github.com/VivreleHpi/crohn-companion-app/internal/logging"
	"github.com/VivreleHpi/crohn-companion-app/internal/models"
	"github.com/VivreleHpi/crohn-companion-app/internal/services"
	"github.com/VivreleHpi/crohn-companion-app/internal/session"
)

var ana = session.Identity{ID: "user-1", Email: "ana@example.com", FullName: "Ana Ruiz"}

// harness runs commands against one in-memory store shared across runs.
type harness struct {
	t     *testing.T
	store *memory.Store
	sp    session.Provider
}

func newHarness(t *testing.T, sp session.Provider) *harness {
	t.Helper()
	t.Setenv("CROHNLOG_TOKEN_FILE", filepath.Join(t.TempDir(), "token"))
	return &harness{
		t:     t,
		store: memory.New(tableNames(), memory.WithUpdatedAt(models.Medications.Name, models.Profiles.Name)),
		sp:    sp,
	}
}

func (h *harness) run(stdin string, args ...string) (string, error) {
	h.t.Helper()
	root := newRootCmd(func(cfg *config.Config, _ logging.Logger) (*App, error) {
		return newApp(cfg, logging.Discard(), h.store, h.sp)
	})
	var out bytes.Buffer
	root.SetArgs(append([]string{"--env-file=", "--timezone=UTC"}, args...))
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(stdin))
	err := root.Execute()
	return out.String(), err
}

func (h *harness) rows(coll string) []backend.Row {
	h.t.Helper()
	rows, err := h.store.Select(context.Background(), coll, backend.Query{})
	require.NoError(h.t, err)
	return rows
}

func TestMemoryBackendWarnsOutsideWatch(t *testing.T) {
	h := newHarness(t, session.NewStatic(ana))
	run := func(args ...string) string {
		root := newRootCmd(func(cfg *config.Config, _ logging.Logger) (*App, error) {
			return newApp(cfg, logging.Discard(), h.store, h.sp)
		})
		var stderr bytes.Buffer
		root.SetArgs(append([]string{"--env-file=", "--timezone=UTC"}, args...))
		root.SetOut(io.Discard)
		root.SetErr(&stderr)
		require.NoError(t, root.Execute())
		return stderr.String()
	}

	assert.Contains(t, run("--backend=memory", "symptom", "list"), memoryWarning)
	assert.NotContains(t, run("--backend=memory", "watch", "symptoms", "--once"), memoryWarning)
	assert.NotContains(t, run("symptom", "list"), memoryWarning)
}

func TestNewRootCmd_Subcommands(t *testing.T) {
	root := NewRootCmd()

	want := []string{"migrate", "login", "logout", "symptom", "stool", "med", "profile", "report", "watch", "version"}
	got := map[string]*cobra.Command{}
	for _, c := range root.Commands() {
		got[c.Name()] = c
	}
	for _, name := range want {
		c, ok := got[name]
		if !assert.True(t, ok, "missing %s command", name) {
			continue
		}
		assert.NotEmpty(t, c.Short, name)
	}

	for _, flag := range []string{"config", "env-file", "backend", "dsn", "timezone", "log-level"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), flag)
	}
}

func TestVersionCmd(t *testing.T) {
	SetVersion("1.2.3", "abc", "today")
	t.Cleanup(func() { SetVersion("dev", "none", "unknown") })

	root := newRootCmd(func(*config.Config, logging.Logger) (*App, error) {
		t.Fatal("version must not build the app")
		return nil, nil
	})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "crohnlog 1.2.3")
}

func TestInvalidConfigIsRejected(t *testing.T) {
	h := newHarness(t, session.NewStatic(ana))
	_, err := h.run("", "--backend", "sqlite", "symptom", "list")
	assert.ErrorContains(t, err, "unknown backend")
}

func TestSymptomAddAndList(t *testing.T) {
	h := newHarness(t, session.NewStatic(ana))

	out, err := h.run("", "symptom", "add", "Abdominal pain", "--severity", "3", "--at", "2026-10-17 09:30", "--notes", "after lunch")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged Abdominal pain (severe)")

	rows := h.rows("symptoms")
	require.Len(t, rows, 1)
	assert.Equal(t, ana.ID, rows[0]["user_id"])

	out, err = h.run("", "symptom", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "2026-10-17 09:30")
	assert.Contains(t, out, "Abdominal pain")
	assert.Contains(t, out, "after lunch")
}

func TestSymptomAdd_Rejected(t *testing.T) {
	h := newHarness(t, session.NewStatic(ana))

	_, err := h.run("", "symptom", "add", "Fatigue", "--severity", "5")
	assert.Error(t, err)

	_, err = h.run("", "symptom", "add", "Fatigue", "--at", "yesterday")
	assert.ErrorContains(t, err, "cannot parse time")

	assert.Empty(t, h.rows("symptoms"))
}

func TestSymptomAdd_SignedOut(t *testing.T) {
	h := newHarness(t, session.NewStatic(session.Identity{}))

	_, err := h.run("", "symptom", "add", "Fatigue")
	assert.ErrorIs(t, err, common.ErrNotAuthenticated)
	assert.Empty(t, h.rows("symptoms"))
}

func TestStoolAddListDelete(t *testing.T) {
	h := newHarness(t, session.NewStatic(ana))

	_, err := h.run("", "stool", "add", "--type", "6", "--blood", "--at", "2026-10-17 07:00")
	require.NoError(t, err)

	out, err := h.run("", "stool", "list", "--format", "json")
	require.NoError(t, err)
	var entries []models.StoolEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, 6, entries[0].BristolType)
	assert.True(t, entries[0].HasBlood)

	_, err = h.run(entries[0].ID+"\n", "stool", "delete")
	require.NoError(t, err)
	assert.Empty(t, h.rows("stools"))
}

func TestMedAddTodayTake(t *testing.T) {
	h := newHarness(t, session.NewStatic(ana))

	out, err := h.run("", "med", "add", "Mesalamine", "--dosage", "500mg", "--frequency", "2", "--times", "08:00,20:00")
	require.NoError(t, err)
	assert.Contains(t, out, "2 times per day")
	assert.Contains(t, out, "Scheduled 2 dose(s) for today")

	sched := h.rows("medication_schedule")
	require.Len(t, sched, 2)
	var morning string
	for _, r := range sched {
		assert.Equal(t, false, r["taken"])
		if r["time"] == "08:00" {
			morning = r.ID()
		}
	}
	require.NotEmpty(t, morning)

	out, err = h.run("", "med", "today")
	require.NoError(t, err)
	assert.Contains(t, out, "Upcoming:")
	assert.Contains(t, out, "Mesalamine 500mg")
	assert.NotContains(t, out, "Taken:")

	out, err = h.run("", "med", "take", morning)
	require.NoError(t, err)
	assert.Contains(t, out, "Dose at 08:00 marked as taken")

	_, err = h.run("", "med", "take", morning)
	assert.ErrorIs(t, err, common.ErrAlreadyTaken)

	out, err = h.run("", "med", "today")
	require.NoError(t, err)
	assert.Contains(t, out, "Taken:")
}

func TestMedAdd_Invalid(t *testing.T) {
	h := newHarness(t, session.NewStatic(ana))

	_, err := h.run("", "med", "add", "Mesalamine", "--frequency", "2")
	assert.ErrorIs(t, err, common.ErrValidation)
	assert.Empty(t, h.rows("medications"))
}

func TestProfileShowAndUpdate(t *testing.T) {
	h := newHarness(t, session.NewStatic(ana))

	out, err := h.run("", "profile")
	require.NoError(t, err)
	assert.Contains(t, out, "Ana Ruiz")
	assert.Contains(t, out, "(not set)")

	_, err = h.run("", "profile", "update")
	assert.ErrorContains(t, err, "nothing to update")

	_, err = h.run("", "profile", "update", "--phone", "+34 600 000 000")
	require.NoError(t, err)

	out, err = h.run("", "profile", "--format", "json")
	require.NoError(t, err)
	var p models.Profile
	require.NoError(t, json.Unmarshal([]byte(out), &p))
	assert.Equal(t, ana.ID, p.ID)
	assert.Equal(t, "+34 600 000 000", p.PhoneNumber)
	assert.Len(t, h.rows("profiles"), 1)
}

func TestReportWeek(t *testing.T) {
	h := newHarness(t, session.NewStatic(ana))

	_, err := h.run("", "symptom", "add", "Cramping", "--severity", "4", "--at", "2026-10-13 10:00")
	require.NoError(t, err)
	_, err = h.run("", "stool", "add", "--type", "4", "--at", "2026-10-13 11:00")
	require.NoError(t, err)

	out, err := h.run("", "report", "--week", "2026-10-15", "--format", "json")
	require.NoError(t, err)
	var r services.WeeklyReport
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	assert.Equal(t, "2026-10-12", r.WeekStart)
	assert.Equal(t, 1, r.Days[1].SymptomCount)
	assert.Equal(t, 4, r.Days[1].AverageSeverity)
	assert.Equal(t, services.StatusCrisis, r.Status)

	out, err = h.run("", "report", "--week", "2026-10-15")
	require.NoError(t, err)
	assert.Contains(t, out, "Week 2026-10-12 to 2026-10-18: crisis")

	_, err = h.run("", "report", "--week", "15/10/2026")
	assert.ErrorContains(t, err, "YYYY-MM-DD")
}

func TestWatchOnce(t *testing.T) {
	h := newHarness(t, session.NewStatic(ana))

	_, err := h.run("", "symptom", "add", "Nausea", "--severity", "2")
	require.NoError(t, err)
	_, err = h.run("", "symptom", "add", "Fatigue", "--severity", "1")
	require.NoError(t, err)

	out, err := h.run("", "watch", "symptoms", "--once")
	require.NoError(t, err)
	assert.Contains(t, out, "symptoms: 2 record(s)")
	assert.Contains(t, out, `"name":"Nausea"`)

	out, err = h.run("", "watch", "symptoms", "--once", "--filter", "severity=eq.2")
	require.NoError(t, err)
	assert.Contains(t, out, "symptoms: 1 record(s)")
	assert.NotContains(t, out, "Fatigue")

	_, err = h.run("", "watch", "appointments", "--once")
	assert.ErrorIs(t, err, backend.ErrUnknownCollection)

	_, err = h.run("", "watch", "symptoms", "--once", "--filter", "severity")
	assert.Error(t, err)
}

func TestWatch_SignedOut(t *testing.T) {
	h := newHarness(t, session.NewStatic(session.Identity{}))

	_, err := h.run("", "watch", "stools", "--once")
	assert.ErrorContains(t, err, "not signed in")
}

func TestMigrate_MemoryBackend(t *testing.T) {
	h := newHarness(t, session.NewStatic(ana))

	out, err := h.run("", "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing to migrate")
}

func TestLoginLogout(t *testing.T) {
	dir := t.TempDir()
	tokenFile := filepath.Join(dir, "token")
	t.Setenv("CROHNLOG_TOKEN_FILE", tokenFile)
	t.Setenv("CROHNLOG_BACKEND", "memory")
	t.Setenv("CROHNLOG_JWT_SECRET", "test-secret")

	run := func(stdin string, args ...string) (string, error) {
		root := NewRootCmd()
		var out bytes.Buffer
		root.SetArgs(append([]string{"--env-file=", "--timezone=UTC"}, args...))
		root.SetOut(&out)
		root.SetErr(io.Discard)
		root.SetIn(strings.NewReader(stdin))
		err := root.Execute()
		return out.String(), err
	}

	out, err := run("", "login", "--dev-user", "user-9", "--email", "ana@example.com", "--name", "Ana Ruiz")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as Ana Ruiz")

	info, err := os.Stat(tokenFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	raw, err := os.ReadFile(tokenFile)
	require.NoError(t, err)
	id, err := session.ParseToken(strings.TrimSpace(string(raw)), []byte("test-secret"))
	require.NoError(t, err)
	assert.Equal(t, "user-9", id.ID)

	_, err = run("", "logout")
	require.NoError(t, err)
	_, err = os.Stat(tokenFile)
	assert.True(t, os.IsNotExist(err))
}

func TestLogin_PromptedToken(t *testing.T) {
	origTerm := isTerminal
	t.Cleanup(func() { isTerminal = origTerm })
	isTerminal = func() bool { return false }

	tokenFile := filepath.Join(t.TempDir(), "token")
	t.Setenv("CROHNLOG_TOKEN_FILE", tokenFile)
	t.Setenv("CROHNLOG_BACKEND", "memory")
	t.Setenv("CROHNLOG_JWT_SECRET", "test-secret")

	good, err := session.IssueToken(ana, []byte("test-secret"), time.Hour)
	require.NoError(t, err)
	bad, err := session.IssueToken(ana, []byte("other-secret"), time.Hour)
	require.NoError(t, err)

	run := func(stdin string) (string, error) {
		root := NewRootCmd()
		var out bytes.Buffer
		root.SetArgs([]string{"--env-file=", "--timezone=UTC", "login"})
		root.SetOut(&out)
		root.SetErr(io.Discard)
		root.SetIn(strings.NewReader(stdin))
		err := root.Execute()
		return out.String(), err
	}

	_, err = run(bad + "\n")
	assert.ErrorContains(t, err, "token rejected")
	_, err = os.Stat(tokenFile)
	assert.True(t, os.IsNotExist(err))

	out, err := run(good + "\n")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as Ana Ruiz")
}
