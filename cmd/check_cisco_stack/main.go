package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/nmslite/check-cisco-stack/internal/check"
	"github.com/nmslite/check-cisco-stack/internal/config"
	"github.com/nmslite/check-cisco-stack/internal/plugin"
	"github.com/nmslite/check-cisco-stack/internal/snmp"
)

const version = "1.1.0"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, nil))
}

type options struct {
	configPath string

	host      string
	community string
	port      int
	protocol  string
	timeout   int
	secLevel  string
	authProto string
	authPass  string
	privProto string
	privPass  string

	failedTolerance     int
	minMembers          int
	requireStandby      bool
	ignoreRing          bool
	unreachableCritical bool

	debug       bool
	showVersion bool
}

// run executes the plugin and returns its exit code. Whatever happens, exactly
// one status line is written to stdout. A nil fetcher means real SNMP.
func run(args []string, stdout, stderr io.Writer, fetcher check.Fetcher) (code int) {
	defer func() {
		if r := recover(); r != nil {
			code = emit(stdout, plugin.UnknownVerdict("internal error: %v", r))
		}
	}()

	code = plugin.Unknown.ExitCode()
	cmd := newRootCmd(stdout, stderr, fetcher, &code)
	cmd.SetArgs(args)

	helped := false
	help := cmd.HelpFunc()
	cmd.SetHelpFunc(func(c *cobra.Command, args []string) {
		help(c, args)
		helped = true
	})

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		var ce *config.ConfigError
		if !errors.As(err, &ce) {
			ce = &config.ConfigError{Err: err}
		}
		fmt.Fprint(stderr, cmd.UsageString())
		return emit(stdout, plugin.UnknownVerdict("%s", ce.Error()))
	}
	if helped {
		return emit(stdout, plugin.UnknownVerdict("usage requested"))
	}
	return code
}

func newRootCmd(stdout, stderr io.Writer, fetcher check.Fetcher, code *int) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "check_cisco_stack -H <host> -c <community> [flags]",
		Short:         "Check the health of a Cisco StackWise switch stack over SNMP",
		Long:          "check_cisco_stack queries CISCO-STACKWISE-MIB and reports member roles, member states and ring redundancy in monitoring-plugin format.",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.showVersion {
				fmt.Fprintf(stdout, "check_cisco_stack version %s\n", version)
				*code = plugin.OK.ExitCode()
				return nil
			}

			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			applyFlags(cmd.Flags(), opts, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := newRunLogger(cfg.Logging, stderr, cfg.Target.Host)
			logger.Debug("Starting stack check",
				"version", version,
				"snmp_version", cfg.Target.Version,
				"port", cfg.Target.Port,
				"timeout", cfg.Target.GetTimeout(),
				"thresholds", fmt.Sprintf("%+v", cfg.Thresholds),
			)

			f := fetcher
			if f == nil {
				f = snmp.NewClient(logger)
			}
			v := check.Run(cmd.Context(), f, cfg.Target.SNMPTarget(), cfg.Thresholds, logger)
			*code = emit(stdout, v)
			return nil
		},
	}
	// stdout carries only the status line; help goes with the logs.
	cmd.SetOut(stderr)
	cmd.SetErr(stderr)

	fs := cmd.Flags()
	fs.SortFlags = false
	fs.StringVarP(&opts.host, "host", "H", "", "Host name or IP address of the stack (required)")
	fs.StringVarP(&opts.community, "community", "c", "", "SNMP community, or USM security name with -P 3 (required)")
	fs.IntVarP(&opts.port, "port", "p", 161, "SNMP port")
	fs.StringVarP(&opts.protocol, "protocol", "P", "2c", "SNMP version: 1, 2c or 3")
	fs.IntVarP(&opts.timeout, "timeout", "t", 10, "SNMP timeout in seconds")
	fs.StringVarP(&opts.secLevel, "seclevel", "l", "", "SNMPv3 security level: noAuthNoPriv, authNoPriv or authPriv")
	fs.StringVarP(&opts.authProto, "authproto", "a", "", "SNMPv3 auth protocol: MD5, SHA, SHA224, SHA256, SHA384, SHA512")
	fs.StringVarP(&opts.authPass, "authpassword", "A", "", "SNMPv3 auth passphrase (or "+config.EnvPrefix+"AUTH_PASSWORD)")
	fs.StringVarP(&opts.privProto, "privproto", "x", "", "SNMPv3 privacy protocol: DES, AES, AES192, AES256")
	fs.StringVarP(&opts.privPass, "privpassword", "X", "", "SNMPv3 privacy passphrase (or "+config.EnvPrefix+"PRIV_PASSWORD)")
	fs.IntVar(&opts.failedTolerance, "failed-tolerance", 0, "Failed members reported as WARNING before turning CRITICAL")
	fs.IntVar(&opts.minMembers, "min-members", 0, "Expected number of stack members, 0 to disable")
	fs.BoolVar(&opts.requireStandby, "require-standby", false, "Warn when no member holds the standby role")
	fs.BoolVar(&opts.ignoreRing, "ignore-ring", false, "Do not warn on a non-redundant stack ring")
	fs.BoolVar(&opts.unreachableCritical, "unreachable-critical", false, "Report an unreachable stack as CRITICAL instead of UNKNOWN")
	fs.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	fs.BoolVarP(&opts.debug, "debug", "d", false, "Verbose logging to stderr")
	fs.BoolVarP(&opts.showVersion, "version", "v", false, "Print the plugin version")
	fs.BoolVarP(&opts.showVersion, "show-version", "V", false, "Print the plugin version")
	_ = fs.MarkHidden("show-version")

	return cmd
}

// applyFlags overrides file and environment settings with the flags the user
// actually set. Required values are always taken from flags when given.
func applyFlags(fs *pflag.FlagSet, o *options, cfg *config.Config) {
	set := func(name string, apply func()) {
		if fs.Changed(name) {
			apply()
		}
	}

	set("host", func() { cfg.Target.Host = o.host })
	set("community", func() { cfg.Target.Community = o.community })
	set("port", func() { cfg.Target.Port = o.port })
	set("protocol", func() { cfg.Target.Version = o.protocol })
	set("timeout", func() { cfg.Target.TimeoutSeconds = o.timeout })
	set("seclevel", func() { cfg.Target.SecurityLevel = o.secLevel })
	set("authproto", func() { cfg.Target.AuthProtocol = o.authProto })
	set("authpassword", func() { cfg.Target.AuthPassword = o.authPass })
	set("privproto", func() { cfg.Target.PrivProtocol = o.privProto })
	set("privpassword", func() { cfg.Target.PrivPassword = o.privPass })
	set("failed-tolerance", func() { cfg.Thresholds.FailedTolerance = o.failedTolerance })
	set("min-members", func() { cfg.Thresholds.MinMembers = o.minMembers })
	set("require-standby", func() { cfg.Thresholds.RequireStandby = o.requireStandby })
	set("ignore-ring", func() { cfg.Thresholds.IgnoreRing = o.ignoreRing })
	set("unreachable-critical", func() { cfg.Thresholds.UnreachableCritical = o.unreachableCritical })

	if o.debug {
		cfg.Logging.Level = "debug"
	}
}

// emit writes the status line and returns the exit code.
func emit(w io.Writer, v plugin.Verdict) int {
	line, code := plugin.Render(v)
	fmt.Fprintln(w, line)
	return code
}

// newRunLogger builds the stderr logger for one check run. Every record
// carries a fresh run_id and the target host.
func newRunLogger(cfg config.LoggingConfig, w io.Writer, host string) *slog.Logger {
	level := slog.LevelWarn
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelWarn
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler = slog.NewTextHandler(w, opts)
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler).With("run_id", uuid.NewString(), "host", host)
}
