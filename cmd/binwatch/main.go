// Command binwatch is a terminal client for the portal API.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"smartbin/portal/internal/client"
)

var (
	// Global flags, bound to BINWATCH_* through viper.
	flags = viper.New()

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "binwatch",
	Short: "Watch and operate the smart bin fleet",
	Long: `binwatch talks to the portal API with the operator's credentials.

Credentials come from --email/--password or BINWATCH_EMAIL/BINWATCH_PASSWORD.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		config.Encoding = "console"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		if flags.GetBool("verbose") {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("server", "http://localhost:8080", "Portal base URL")
	pf.String("email", "", "Account email")
	pf.String("password", "", "Account password")
	pf.Duration("timeout", 15*time.Second, "Per-request timeout")
	pf.BoolP("verbose", "v", false, "Enable debug logging")

	flags.SetEnvPrefix("BINWATCH")
	flags.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	flags.AutomaticEnv()
	_ = flags.BindPFlags(pf)

	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(binsCmd)
	rootCmd.AddCommand(fillCmd)
	rootCmd.AddCommand(emptyCmd)
	rootCmd.AddCommand(overviewCmd)
}

// signIn builds an authenticated client from the global flags.
func signIn(ctx context.Context) (*client.Client, *client.MemorySession, error) {
	email, password := flags.GetString("email"), flags.GetString("password")
	if email == "" || password == "" {
		return nil, nil, fmt.Errorf("credentials required: set --email and --password")
	}

	base, err := client.New(flags.GetString("server"), client.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	sess := client.NewMemorySession(base)
	if _, err := sess.Login(ctx, email, password); err != nil {
		return nil, nil, fmt.Errorf("sign in: %w", err)
	}
	if u, ok := sess.CurrentUser(); ok {
		logger.Debug("signed in", zap.String("email", u.Email), zap.String("role", string(u.Role)))
	}
	return base.WithSession(sess), sess, nil
}

// signOut revokes the session; failures only matter to the log.
func signOut(sess *client.MemorySession) {
	ctx, cancel := context.WithTimeout(context.Background(), flags.GetDuration("timeout"))
	defer cancel()
	if err := sess.Logout(ctx); err != nil {
		logger.Debug("sign out failed", zap.Error(err))
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
