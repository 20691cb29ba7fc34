package internal

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
)

type Config struct {
	LogLevel                  string        `env:"LOG_LEVEL,default=INFO"`
	BadgerFilepath            string        `env:"BADGER_FILEPATH,required=true"`
	LocalStoreFilepath        string        `env:"LOCAL_STORE_FILEPATH,required=true"`
	LimitMessages             int           `env:"LIMIT_MESSAGES,default=500"`
	ModerationCharReplacement string        `env:"MODERATION_CHARACTER_REPLACEMENT,default=*"`
	ModerationAddWords        string        `env:"MODERATION_ADD_WORDS"`
	ModerationRemoveWords     string        `env:"MODERATION_REMOVE_WORDS"`
	LoopBufferSize            int           `env:"LOOP_BUFFER_SIZE,default=1024"`
	RestartInterval           time.Duration `env:"RESTART_INTERVAL,default=1s"`
	BacklogInterval           time.Duration `env:"BACKLOG_INTERVAL,default=5s"`
	BacklogThreshold          float64       `env:"BACKLOG_THRESHOLD,default=0.8"`
	AuthSecret                string        `env:"AUTH_SECRET,required=true"`
	AuthTokenDuration         time.Duration `env:"AUTH_TOKEN_DURATION,default=720h"`
	TimeZone                  string        `env:"TIME_ZONE,default=Local"`
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"MODERATION_CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}

// SplitWords reads a comma separated list, ignoring blank entries.
func SplitWords(str string) []string {
	return lo.FilterMap(strings.Split(str, ","), func(w string, _ int) (string, bool) {
		w = strings.TrimSpace(w)
		return w, w != ""
	})
}

// Location resolves TIME_ZONE, used to compute calendar days and time labels.
func (c Config) Location() (*time.Location, error) {
	if c.TimeZone == "" || c.TimeZone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("TIME_ZONE: %w", err)
	}
	return loc, nil
}
