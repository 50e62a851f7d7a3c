// Package cli implements anchorctl, a command line client for the anchor
// REST resource.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/KiraKC/Spectacle-Hypertext/application/ports"
	"github.com/KiraKC/Spectacle-Hypertext/infrastructure/gateways/remote"
	"github.com/KiraKC/Spectacle-Hypertext/pkg/common"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config keys
const (
	keyServer       = "server"
	keyResourcePath = "resource_path"
	keyTimeout      = "timeout"
	keyVerbose      = "verbose"
)

type app struct {
	v   *viper.Viper
	out io.Writer

	configFile string
	gateway    ports.NodeAnchorGateway
}

// NewRootCommand builds the anchorctl command tree. Output goes to out.
func NewRootCommand(out io.Writer) *cobra.Command {
	a := &app{v: viper.New(), out: out}

	root := &cobra.Command{
		Use:           "anchorctl",
		Short:         "Manage anchors through the anchor REST resource",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}
	root.SetOut(out)

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default: ~/.config/anchorctl/config.yaml)")
	flags.String("server", "http://localhost:8080", "base URL of the anchor service")
	flags.String("resource-path", remote.DefaultResourcePath, "path of the anchor resource")
	flags.Duration("timeout", 10*time.Second, "request timeout")
	flags.BoolP("verbose", "v", false, "log requests to stderr")

	a.v.BindPFlag(keyServer, flags.Lookup("server"))
	a.v.BindPFlag(keyResourcePath, flags.Lookup("resource-path"))
	a.v.BindPFlag(keyTimeout, flags.Lookup("timeout"))
	a.v.BindPFlag(keyVerbose, flags.Lookup("verbose"))

	root.AddCommand(
		a.createCommand(),
		a.getCommand(),
		a.deleteCommand(),
		a.nodeCommand(),
	)
	return root
}

// Execute runs anchorctl with os.Args and exits non-zero on failure.
func Execute() {
	root := NewRootCommand(os.Stdout)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func (a *app) init() error {
	if a.configFile != "" {
		a.v.SetConfigFile(a.configFile)
	} else {
		a.v.AddConfigPath(configDir())
		a.v.SetConfigName("config")
		a.v.SetConfigType("yaml")
	}

	a.v.SetEnvPrefix("ANCHORCTL")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound || a.configFile != "" {
			return fmt.Errorf("read config: %w", err)
		}
	}

	logger := zap.NewNop()
	if a.v.GetBool(keyVerbose) {
		var err error
		if logger, err = zap.NewDevelopment(); err != nil {
			return err
		}
	}

	gateway, err := remote.NewGateway(a.v.GetString(keyServer),
		remote.WithResourcePath(a.v.GetString(keyResourcePath)),
		remote.WithTimeout(a.v.GetDuration(keyTimeout)),
		remote.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	a.gateway = gateway
	return nil
}

func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "anchorctl")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "anchorctl")
	}
	return ".anchorctl"
}

func (a *app) context(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// render writes the envelope as indented JSON and turns a failed envelope
// into an error so the process exits non-zero.
func render[T any](a *app, resp common.ServiceResponse[T]) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("%s", resp.Message)
	}
	return nil
}
