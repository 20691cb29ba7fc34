package internal

import (
	"os"
	"testing"
	"time"

	"github.com/Netflix/go-env"
	"github.com/stretchr/testify/require"
)

func TestConfig_Defaults(t *testing.T) {
	req := require.New(t)
	t.Setenv("BADGER_FILEPATH", "/tmp/groovon")
	t.Setenv("LOCAL_STORE_FILEPATH", "/tmp/groovon-local")
	t.Setenv("AUTH_SECRET", "secret")
	t.Setenv("MODERATION_ADD_WORDS", "badger, snake ,,")

	var config Config
	_, err := env.UnmarshalFromEnviron(&config)

	req.NoError(err)
	req.Equal(500, config.LimitMessages)
	req.Equal(1024, config.LoopBufferSize)
	req.Equal(time.Second, config.RestartInterval)
	req.Equal(720*time.Hour, config.AuthTokenDuration)
	req.Equal(5*time.Second, config.BacklogInterval)
	req.InDelta(0.8, config.BacklogThreshold, 1e-9)
	req.Equal([]string{"badger", "snake"}, SplitWords(config.ModerationAddWords))
	req.Empty(SplitWords(config.ModerationRemoveWords))
	loc, err := config.Location()
	req.NoError(err)
	req.Equal(time.Local, loc)
}

func TestConfig_Missing_Required(t *testing.T) {
	// Setenv restores the original value once the test is over
	t.Setenv("BADGER_FILEPATH", "unset")
	require.NoError(t, os.Unsetenv("BADGER_FILEPATH"))
	var config Config
	_, err := env.UnmarshalFromEnviron(&config)
	require.Error(t, err)
}

func TestCharacterRune(t *testing.T) {
	req := require.New(t)

	r, err := CharacterRune("#")
	req.NoError(err)
	req.Equal('#', r)

	_, err = CharacterRune("**")
	req.Error(err)
	_, err = CharacterRune("")
	req.Error(err)
}

func TestConfig_Location(t *testing.T) {
	req := require.New(t)

	loc, err := Config{TimeZone: "Europe/Paris"}.Location()
	req.NoError(err)
	req.Equal("Europe/Paris", loc.String())

	_, err = Config{TimeZone: "Mars/Olympus"}.Location()
	req.Error(err)
}
