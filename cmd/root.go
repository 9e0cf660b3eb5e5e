package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Another0Noob/mangadex-export/internal/anilist"
	"github.com/Another0Noob/mangadex-export/internal/config"
	"github.com/Another0Noob/mangadex-export/internal/logger"
	"github.com/Another0Noob/mangadex-export/internal/mangadex"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "mangadex-export",
	Short: "Export your MangaDex follows to AniList",
	Long: `mangadex-export reads the manga you follow on MangaDex and mirrors
them into your AniList manga list, matching titles across the two
services and keeping resumable progress on disk so interrupted runs
pick up where they left off.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(
		&cfgFile,
		"config",
		"c",
		"credentials.ini",
		"path to the credentials file",
	)
	rootCmd.PersistentFlags().String("data-dir", "data", "directory for cache, progress and report files")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (trace, debug, info, warn, error)")

	viper.BindPFlag("data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// Settings come from an optional config.yaml in the working directory and
// from MDEXPORT_* env vars, e.g. MDEXPORT_REDIRECT_PORT for the OAuth
// listener. Flags win over both.
func initConfig() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("mdexport")
	viper.SetDefault("redirect_port", 8080)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "read config: %v\n", err)
		}
	}
}

func newLogger() zerolog.Logger {
	return logger.New(viper.GetString("log_level"))
}

func loadCredentials() (config.Credentials, error) {
	creds, err := config.LoadCredentials(cfgFile)
	if err != nil {
		return creds, err
	}
	if creds.AniList.RedirectURI == "" {
		creds.AniList.RedirectURI = fmt.Sprintf("http://localhost:%d", viper.GetInt("redirect_port"))
	}
	return creds, nil
}

func newMangaDexClient(creds config.Credentials, log zerolog.Logger) *mangadex.Client {
	return mangadex.NewClient(creds.MangaDex, log)
}

func newAniListClient(creds config.Credentials, log zerolog.Logger) *anilist.Client {
	return anilist.NewClient(creds.AniList, log)
}
