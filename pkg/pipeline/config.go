package pipeline

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/masonry/pkg/errors"
)

// Environment variables read by ApplyEnv.
const (
	EnvBoardToken = "MASONRY_BOARD_TOKEN"
	EnvRedisURL   = "MASONRY_REDIS_URL"
	EnvMongoURI   = "MASONRY_MONGO_URI"
)

// DefaultConfigPath returns $XDG_CONFIG_HOME/masonry/config.toml (or the
// platform equivalent).
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "masonry", "config.toml")
}

// LoadConfig reads options from a TOML file on top of DefaultOptions.
// A missing file at the default path is not an error; a missing file at an
// explicit path is.
func LoadConfig(path string) (Options, error) {
	opts := DefaultOptions()
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath()
	}
	if path == "" {
		return opts, nil
	}

	md, err := toml.DecodeFile(path, &opts)
	if err != nil {
		if os.IsNotExist(err) {
			if explicit {
				return opts, errors.Wrap(errors.ErrCodeNotFound, err, "config %s", path)
			}
			return opts, nil
		}
		return opts, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return opts, errors.New(errors.ErrCodeInvalidConfig, "config %s: unknown key %q", path, undecoded[0].String())
	}
	return opts, nil
}

// ApplyEnv fills secrets from the environment when they are not already
// set.
func (o *Options) ApplyEnv() {
	if o.Board.Token == "" {
		o.Board.Token = os.Getenv(EnvBoardToken)
	}
	if o.Mongo.URI == "" {
		o.Mongo.URI = os.Getenv(EnvMongoURI)
	}
}
