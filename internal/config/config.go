package config

import (
	"github.com/pkg/errors"
	"gopkg.in/ini.v1"

	"github.com/Another0Noob/mangadex-export/internal/anilist"
	"github.com/Another0Noob/mangadex-export/internal/mangadex"
)

// Credentials holds the secrets for both services, read from a single
// ini file so they stay out of the environment and shell history.
type Credentials struct {
	MangaDex mangadex.Credentials
	AniList  anilist.Credentials
}

func LoadCredentials(path string) (Credentials, error) {
	var c Credentials
	cfg, err := ini.Load(path)
	if err != nil {
		return c, errors.Wrapf(err, "load credentials %s", path)
	}

	md := cfg.Section("mangadex")
	c.MangaDex.Username = md.Key("username").String()
	c.MangaDex.Password = md.Key("password").String()
	c.MangaDex.ClientID = md.Key("client_id").String()
	c.MangaDex.ClientSecret = md.Key("client_secret").String()

	al := cfg.Section("anilist")
	c.AniList.ClientID = al.Key("client_id").String()
	c.AniList.RedirectURI = al.Key("redirect_uri").String()

	if c.MangaDex.Username == "" || c.MangaDex.Password == "" {
		return c, errors.Errorf("credentials %s: [mangadex] username and password are required", path)
	}
	if c.MangaDex.ClientID == "" || c.MangaDex.ClientSecret == "" {
		return c, errors.Errorf("credentials %s: [mangadex] client_id and client_secret are required", path)
	}
	if c.AniList.ClientID == "" {
		return c, errors.Errorf("credentials %s: [anilist] client_id is required", path)
	}
	return c, nil
}
