// cmd/pigeon/main.go
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harshada2576/pigeon-finder/internal/cache"
	"github.com/harshada2576/pigeon-finder/internal/config"
	pferrors "github.com/harshada2576/pigeon-finder/internal/errors"
	"github.com/harshada2576/pigeon-finder/internal/hasher"
	"github.com/harshada2576/pigeon-finder/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "pigeon",
	Short: "Pigeon finds duplicate files",
	Long: `Pigeon finds byte-identical files under a directory. Files are grouped by
size, then by a digest of their first bytes, and only the survivors are hashed
in full. Duplicates can be reported, deleted or moved aside.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// loadConfig reads --config and the environment, then applies the
// persistent flags that were set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel, _ = cmd.Flags().GetString("log-level")
	}
	if cmd.Flags().Changed("cache-dir") {
		cfg.CacheDir, _ = cmd.Flags().GetString("cache-dir")
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*logging.Logger, error) {
	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, pferrors.Config(fmt.Sprintf("log level %q: %v", cfg.LogLevel, err))
	}
	return logger, nil
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "JSON config file")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("cache-dir", "", "Digest cache directory (empty disables the cache)")

	var algorithmsCmd = &cobra.Command{
		Use:   "algorithms",
		Short: "List supported hash algorithms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			green := color.New(color.FgGreen).SprintFunc()
			yellow := color.New(color.FgYellow).SprintFunc()

			for _, name := range hasher.Names() {
				alg, err := hasher.Lookup(name)
				if err != nil {
					return err
				}
				kind := green("cryptographic")
				if !alg.Cryptographic {
					kind = yellow("non-cryptographic")
				}
				marker := " "
				if name == hasher.DefaultAlgorithm {
					marker = "*"
				}
				fmt.Printf("%s %-8s %s\n", marker, name, kind)
			}
			return nil
		},
	}

	var cacheCmd = &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the digest cache",
	}

	var cacheInfoCmd = &cobra.Command{
		Use:   "info",
		Short: "Show how many digests are cached",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openCache(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			n, err := c.Len()
			if err != nil {
				return err
			}
			fmt.Printf("%d cached digests\n", n)
			return nil
		},
	}

	var cacheClearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Drop every cached digest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openCache(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			n, err := c.Len()
			if err != nil {
				return err
			}
			if err := c.Clear(); err != nil {
				return fmt.Errorf("clearing cache: %w", err)
			}
			color.Green("Cleared %d cached digests", n)
			return nil
		},
	}

	cacheCmd.AddCommand(cacheInfoCmd)
	cacheCmd.AddCommand(cacheClearCmd)

	rootCmd.AddCommand(newScanCmd())
	rootCmd.AddCommand(newReviewCmd())
	rootCmd.AddCommand(algorithmsCmd)
	rootCmd.AddCommand(cacheCmd)
}

func openCache(cmd *cobra.Command) (*cache.Cache, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if cfg.CacheDir == "" {
		return nil, fmt.Errorf("no cache directory: pass --cache-dir or set %s_CACHE_DIR", config.EnvPrefix)
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	c, err := cache.Open(cfg.CacheOptions(logger.Logger))
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	return c, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)

		var pe *pferrors.Error
		if errors.As(err, &pe) && pe.Type == pferrors.ErrorTypeCancelled {
			os.Exit(130)
		}
		os.Exit(1)
	}
}
