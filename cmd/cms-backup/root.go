package main

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// configEnv names the config file when --config is not given.
const configEnv = "CMS_BACKUP_CONFIG"

var (
	// Version is set at build time.
	Version = "dev"

	configFile string
	verbose    bool
	quiet      bool
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "cms-backup",
	Short: "Back up a CMS database and uploads directory to object storage",
	Long: `cms-backup ships CMS backups to AWS S3 (or an S3-compatible service),
Azure Blob Storage or Google Cloud Storage.

The backup task dumps the database with mysqldump, pg_dump or sqlite3 and
archives the dump and the uploads directory as .tar.gz objects. The cleanup
task deletes objects older than timeToKeepBackupsInSeconds.

Use "serve" to run both tasks on their cron schedules, or "run backup" and
"run cleanup" from cron, a systemd timer or a Kubernetes CronJob.

The config file comes from --config or $` + configEnv + `.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if configFile == "" {
			configFile = os.Getenv(configEnv)
		}
		setupLogging(os.Stdout)
	},
	SilenceUsage: true,
	Version:      Version,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "YAML config file (default $"+configEnv+")")
	flags.BoolVarP(&verbose, "verbose", "v", false, "log dump commands, listings and schedule details")
	flags.BoolVarP(&quiet, "quiet", "q", false, "log failed tasks only")
	flags.BoolVar(&jsonOutput, "json", false, "log JSON lines for log collectors")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
}

func setupLogging(out io.Writer) {
	log.Logger = zerolog.New(logOutput(out)).With().Timestamp().Logger()
	zerolog.SetGlobalLevel(logLevel())
}

func logOutput(out io.Writer) io.Writer {
	if jsonOutput {
		return out
	}

	console := zerolog.ConsoleWriter{Out: out, TimeFormat: "2006-01-02 15:04:05"}
	console.FormatLevel = func(i interface{}) string {
		s, _ := i.(string)
		return strings.ToUpper(s)
	}
	return console
}

func logLevel() zerolog.Level {
	switch {
	case quiet:
		return zerolog.ErrorLevel
	case verbose:
		return zerolog.DebugLevel
	default:
		return zerolog.InfoLevel
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
