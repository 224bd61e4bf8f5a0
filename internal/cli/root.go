package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/VivreleHpi/crohn-companion-app/internal/config"
	"github.com/VivreleHpi/crohn-companion-app/internal/logging"
)

// Version information, set from main.
var (
	buildVersion = "dev"
	buildCommit  = "none"
	buildDate    = "unknown"
)

func SetVersion(version, commit, date string) {
	buildVersion, buildCommit, buildDate = version, commit, date
}

type globalFlags struct {
	configFile string
	envFile    string
	backend    string
	dsn        string
	timezone   string
	logLevel   string
}

// builder constructs the App once flags are parsed. Tests swap it for one
// returning an in-memory App.
type builder func(cfg *config.Config, log logging.Logger) (*App, error)

// runtime carries the App from the root's pre-run hook to subcommands.
type runtime struct {
	app *App
}

func Execute() error {
	return NewRootCmd().Execute()
}

func NewRootCmd() *cobra.Command {
	return newRootCmd(NewApp)
}

func newRootCmd(build builder) *cobra.Command {
	var gf globalFlags
	rt := &runtime{}

	cmd := &cobra.Command{
		Use:   "crohnlog",
		Short: "Track Crohn's symptoms, stools and medications",
		Long: `crohnlog records symptoms, stools and medication doses for the signed-in
user and keeps them in sync with the backend.

Examples:
  crohnlog login
  crohnlog symptom add "Abdominal pain" --severity 3
  crohnlog stool add --type 4
  crohnlog med add Mesalamine --dosage 500mg --frequency 2 --times 08:00,20:00
  crohnlog med take <entry-id>
  crohnlog report --upload
  crohnlog watch symptoms`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !needsApp(cmd) {
				return nil
			}
			cfg, err := loadConfig(cmd, gf)
			if err != nil {
				return err
			}
			if cfg.Backend == config.BackendMemory && cmd.Name() != "watch" {
				fmt.Fprintln(cmd.ErrOrStderr(), memoryWarning)
			}
			log, err := logging.NewJSON(cmd.ErrOrStderr(), cfg.LogLevel)
			if err != nil {
				return err
			}
			app, err := build(cfg, log)
			if err != nil {
				return err
			}
			app.reader = bufioReader(cmd.InOrStdin())
			rt.app = app
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if rt.app == nil {
				return nil
			}
			return rt.app.Close()
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&gf.configFile, "config", "", "JSON config file")
	pf.StringVar(&gf.envFile, "env-file", ".env", "dotenv file read before the environment")
	pf.StringVar(&gf.backend, "backend", "", "backend: postgres, or memory (nothing persists between runs)")
	pf.StringVar(&gf.dsn, "dsn", "", "PostgreSQL DSN")
	pf.StringVar(&gf.timezone, "timezone", "", "IANA timezone for days and weeks")
	pf.StringVar(&gf.logLevel, "log-level", "", "log level: debug, info, warn, error")

	cmd.AddCommand(
		newMigrateCmd(rt),
		newLoginCmd(rt),
		newLogoutCmd(rt),
		newSymptomCmd(rt),
		newStoolCmd(rt),
		newMedCmd(rt),
		newProfileCmd(rt),
		newReportCmd(rt),
		newWatchCmd(rt),
		newVersionCmd(),
	)
	return cmd
}

const memoryWarning = "warning: the memory backend keeps nothing once this command exits"

// needsApp is false for commands that only print static information.
func needsApp(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "version", "help", "completion":
			return false
		}
	}
	return true
}

// loadConfig layers the flags the user actually set over defaults, the
// dotenv file, the environment and the JSON file.
func loadConfig(cmd *cobra.Command, gf globalFlags) (*config.Config, error) {
	cfg, err := config.Load(config.Sources{EnvFile: gf.envFile, JSONFile: gf.configFile})
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Backend = gf.backend
	}
	if flags.Changed("dsn") {
		cfg.DatabaseDSN = gf.dsn
	}
	if flags.Changed("timezone") {
		cfg.Timezone = gf.timezone
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = gf.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "crohnlog %s\n", buildVersion)
			fmt.Fprintf(out, "Commit: %s\n", buildCommit)
			fmt.Fprintf(out, "Built:  %s\n", buildDate)
		},
	}
}
