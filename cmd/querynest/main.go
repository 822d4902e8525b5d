package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/PadhikariDev/querynest/internal/config"
	"github.com/PadhikariDev/querynest/internal/directory"
	"github.com/PadhikariDev/querynest/internal/logger"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	v       *viper.Viper
	cfg     *config.Config
	log     zerolog.Logger
	logFile *os.File
	client  *directory.Client

	configFile  string
	credentials string
	logPath     string
	out         io.Writer
}

func main() {
	a := &app{v: config.New(), out: os.Stdout}
	root := newRootCmd(a)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := root.ExecuteContext(ctx)
	stop()
	a.close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "querynest",
		Short:         "QueryNest support desk client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (yaml, json or toml)")
	flags.StringVar(&a.credentials, "credentials", defaultCredentialsPath(), "where login stores the session token")
	flags.StringVar(&a.logPath, "log-file", "", "write logs to this file instead of stderr")
	flags.String("api-url", "", "QueryNest API base URL")
	flags.String("realtime-url", "", "realtime relay websocket URL")
	flags.String("token", "", "bearer token")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("staff-role-tag", "", "tag handled by the staff view")

	for key, flag := range map[string]string{
		"api_url":        "api-url",
		"realtime_url":   "realtime-url",
		"token":          "token",
		"log_level":      "log-level",
		"staff_role_tag": "staff-role-tag",
	} {
		_ = a.v.BindPFlag(key, flags.Lookup(flag))
	}

	root.AddCommand(
		newLoginCmd(a),
		newRegisterCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newQueriesCmd(a),
		newSubmitCmd(a),
		newChatCmd(a, false),
		newChatCmd(a, true),
		newStatsCmd(a),
	)
	return root
}

// setup loads configuration with precedence flags > environment > saved
// credentials > config file > defaults.
func (a *app) setup() error {
	if a.credentials != "" {
		_ = godotenv.Load(a.credentials)
	}
	if err := config.ReadFile(a.v, a.configFile, false); err != nil {
		return err
	}
	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := cfg.LogLevel
	if level == "" {
		level = zerolog.LevelWarnValue
	}
	if a.logPath != "" {
		f, err := os.OpenFile(a.logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		a.logFile = f
		a.log = logger.NewWithWriter(f, cfg.Env, level)
	} else {
		a.log = logger.NewWithWriter(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}, cfg.Env, level)
	}

	a.client, err = directory.NewClient(directory.ClientConfig{
		BaseURL: cfg.APIURL,
		Token:   cfg.Token,
		Timeout: cfg.HTTPTimeout,
		Logger:  a.log,
	})
	return err
}

func (a *app) close() {
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}

// saveCredentials persists the session token in dotenv format so the next run
// picks it up as QUERYNEST_TOKEN.
func (a *app) saveCredentials(token, userName string) error {
	if a.credentials == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(a.credentials), 0o700); err != nil {
		return err
	}
	err := godotenv.Write(map[string]string{
		config.EnvPrefix + "_TOKEN":     token,
		config.EnvPrefix + "_USER_NAME": userName,
	}, a.credentials)
	if err != nil {
		return err
	}
	return os.Chmod(a.credentials, 0o600)
}

func defaultCredentialsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "querynest", "credentials.env")
}
