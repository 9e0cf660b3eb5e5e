package cmd

import (
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Another0Noob/mangadex-export/internal/match"
	"github.com/Another0Noob/mangadex-export/internal/store"
	"github.com/Another0Noob/mangadex-export/internal/sync"
)

var forceRefresh bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Mirror MangaDex follows into your AniList list",
	Long: `sync fetches your followed manga from MangaDex, opens a browser
window for AniList authorization, then matches and saves each follow.
Progress is written after every entry; already-matched entries are
skipped on later runs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(cmd)
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().BoolVar(
		&forceRefresh,
		"force-refresh",
		false,
		"refetch follows from MangaDex even when a cached list exists",
	)
}

func runSync(cmd *cobra.Command) error {
	log := newLogger()

	creds, err := loadCredentials()
	if err != nil {
		return err
	}

	source := newMangaDexClient(creds, log)
	target := newAniListClient(creds, log)
	matcher := match.New(target, log)
	st := store.New(afero.NewOsFs(), viper.GetString("data_dir"), log)

	runner := sync.NewRunner(source, target, matcher, st, forceRefresh, log)
	return runner.Run(cmd.Context())
}
