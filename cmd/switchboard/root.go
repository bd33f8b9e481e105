package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/kingrea/switchboard/internal/host"
)

type rootOptions struct {
	project   string
	overrides keyValueFlag
	logStderr bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{overrides: keyValueFlag{}}
	rootCmd := &cobra.Command{
		Use:   "switchboard",
		Short: "Activate feature components behind settings gates",
		Long: `switchboard registers feature components, activates each one at the
ready phase when its settings gate allows it, and routes commands only to
components that activated.

Components come from the built-in set and from YAML or Go plugin files in
.switchboard/plugins.`,
		Version:       host.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.project, "project", "", "path to the project directory (defaults to cwd)")
	flags.Var(&opts.overrides, "set", "settings override (key=value, repeatable)")
	flags.BoolVar(&opts.logStderr, "log-stderr", false, "write log entries to stderr instead of the log file")

	rootCmd.AddCommand(
		newInitCommand(opts),
		newStatusCommand(opts),
		newDispatchCommand(opts),
		newBoardCommand(opts),
		newWatchCommand(opts),
	)
	return rootCmd
}

func (o *rootOptions) projectDir() (string, error) {
	if dir := strings.TrimSpace(o.project); dir != "" {
		return dir, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("determine working directory: %w", err)
	}
	return cwd, nil
}

// start boots the project. Listener errors are printed as warnings since
// the host still reached ready.
func (o *rootOptions) start(cmd *cobra.Command, beforeReady func(*host.Host) error) (*host.Host, error) {
	dir, err := o.projectDir()
	if err != nil {
		return nil, err
	}
	var logWriter io.Writer
	if o.logStderr {
		logWriter = cmd.ErrOrStderr()
	}
	h, err := host.Start(host.Options{
		ProjectDir:  dir,
		Overrides:   o.overrides,
		LogWriter:   logWriter,
		BeforeReady: beforeReady,
	})
	if h == nil {
		return nil, err
	}
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
	}
	return h, nil
}

// keyValueFlag collects repeatable key=value overrides.
type keyValueFlag map[string]string

var _ pflag.Value = (*keyValueFlag)(nil)

func (kv *keyValueFlag) String() string {
	if kv == nil || len(*kv) == 0 {
		return ""
	}
	pairs := make([]string, 0, len(*kv))
	for key, value := range *kv {
		pairs = append(pairs, fmt.Sprintf("%s=%s", key, value))
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ", ")
}

func (kv *keyValueFlag) Set(value string) error {
	key, val, err := host.ParseOverride(value)
	if err != nil {
		return err
	}
	if *kv == nil {
		*kv = keyValueFlag{}
	}
	(*kv)[key] = val
	return nil
}

func (kv *keyValueFlag) Type() string {
	return "key=value"
}
