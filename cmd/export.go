package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write followed manga URLs to a text file",
	Long: `export fetches your followed manga from MangaDex and writes one
https://mangadex.org/title/<id> line per manga to a dated text file in
the current directory. No AniList account is needed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExport(cmd)
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command) error {
	log := newLogger()

	creds, err := loadCredentials()
	if err != nil {
		return err
	}

	client := newMangaDexClient(creds, log)
	follows, err := client.FetchFollows(cmd.Context())
	if err != nil {
		return errors.Wrap(err, "fetch follows")
	}

	t := time.Now()
	name := fmt.Sprintf("%d-%d-%d-mangadex.txt", t.Year(), t.Month(), t.Day())
	file, err := os.Create(name)
	if err != nil {
		return errors.Wrapf(err, "create %s", name)
	}
	defer file.Close()

	for _, manga := range follows {
		if _, err := fmt.Fprintf(file, "https://mangadex.org/title/%v\n", manga.SourceID); err != nil {
			return errors.Wrapf(err, "write %s", name)
		}
	}

	log.Info().Int("manga", len(follows)).Str("file", name).Msg("export complete")
	return nil
}
