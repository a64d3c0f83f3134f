package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ahrav/go-abcfile"
)

const envPrefix = "ABCINFO"

// settings are resolved from flags, ABCINFO_* variables and the optional
// config file, in that order of precedence.
type settings struct {
	LogLevel      string
	StrictVersion bool
	AccessFault   string
	SecureRegion  string
	ProfileAddr   string
	TracePath     string
}

func loadSettings(v *viper.Viper) (settings, error) {
	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return settings{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	return settings{
		LogLevel:      v.GetString("log-level"),
		StrictVersion: v.GetBool("strict-version"),
		AccessFault:   v.GetString("access-fault"),
		SecureRegion:  v.GetString("secure-region"),
		ProfileAddr:   v.GetString("profile-addr"),
		TracePath:     v.GetString("trace"),
	}, nil
}

// options turns s into Open options layered over the ABCFILE_* defaults.
func (s settings) options() ([]abcfile.Option, error) {
	cfg := abcfile.ConfigFromEnv()
	cfg.StrictVersion = cfg.StrictVersion || s.StrictVersion
	if s.SecureRegion != "" {
		cfg.SecureRegionPath = s.SecureRegion
	}
	if s.AccessFault != "" {
		p, ok := abcfile.ParseFaultPolicy(s.AccessFault)
		if !ok {
			return nil, fmt.Errorf("unknown access fault policy %q", s.AccessFault)
		}
		cfg.AccessFault = p
	}
	return []abcfile.Option{abcfile.WithConfig(cfg)}, nil
}

// app carries what every subcommand needs.
type app struct {
	v    *viper.Viper
	opts []abcfile.Option
	prof *profiler
}

func (a *app) open(location string) (*abcfile.File, error) {
	return abcfile.Open(location, abcfile.OpenReadOnly, a.opts...)
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:           "abcinfo",
		Short:         "Inspect bytecode containers",
		Long:          titleStyle.Render("abcinfo") + subtitleStyle.Render(" - inspect, verify and compare bytecode containers"),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			s, err := loadSettings(a.v)
			if err != nil {
				return err
			}
			if err := configureLogging(s.LogLevel); err != nil {
				return err
			}
			if a.opts, err = s.options(); err != nil {
				return err
			}
			a.prof = &profiler{addr: s.ProfileAddr, tracePath: s.TracePath, errOut: cmd.ErrOrStderr()}
			return a.prof.start()
		},
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "config file (yaml, toml or json)")
	pf.String("log-level", "warn", "log level: debug, info, warn, error")
	pf.Bool("strict-version", false, "reject containers with incompatible versions")
	pf.String("access-fault", "", "access fault policy: abort or panic")
	pf.String("secure-region", "", "secure memory range pseudo-file")
	pf.String("profile-addr", "", "serve pprof on this address while running")
	pf.String("trace", "", "write an execution trace to this file")

	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()
	_ = a.v.BindPFlags(pf)

	for _, c := range []*cobra.Command{
		newInfoCmd(a),
		newVerifyCmd(a),
		newClassesCmd(a),
		newFindCmd(a),
		newDiffCmd(a),
	} {
		root.AddCommand(a.stopProfilerAfter(c))
	}
	return root
}

// stopProfilerAfter makes c stop the profiler whether or not its RunE
// fails; cobra skips post-run hooks on error.
func (a *app) stopProfilerAfter(c *cobra.Command) *cobra.Command {
	run := c.RunE
	c.RunE = func(cmd *cobra.Command, args []string) error {
		defer a.prof.stop()
		return run(cmd, args)
	}
	return c
}

func configureLogging(level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	l := abcfile.Logger().With()
	l.SetLevel(lvl)
	abcfile.SetLogger(l)
	return nil
}
