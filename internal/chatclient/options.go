package chatclient

import (
	"os"

	"github.com/spf13/pflag"

	"github.com/opencode-ai/companion/internal/logging"
	"github.com/opencode-ai/companion/internal/storage"
)

// DefaultURL is used when neither --url nor COMPANION_SERVER_URL is set.
const DefaultURL = "http://localhost:8080"

// Options configures the REPL.
type Options struct {
	URL         string
	Session     string
	Personality string
	Mood        int
	StateDir    string
	// Forget drops the saved state for the server before starting.
	Forget bool

	Quiet   bool
	Verbose bool
	JSON    bool
	NoColor bool
}

// BindFlags registers the REPL flags on fs.
func BindFlags(fs *pflag.FlagSet, o *Options) {
	fs.StringVar(&o.URL, "url", "", "Companion server URL (or COMPANION_SERVER_URL)")
	fs.StringVar(&o.Session, "session", "", "Session ID (default: last used, or a new one)")
	fs.StringVarP(&o.Personality, "personality", "P", "", "Personality ID")
	fs.IntVar(&o.Mood, "mood", -1, "Mood level 0-100")
	fs.BoolVar(&o.Forget, "forget", false, "Forget the saved session for this server")
	fs.BoolVar(&o.Quiet, "quiet", false, "Silence banner and helper output")
	fs.BoolVar(&o.Verbose, "verbose", false, "Trace stream metadata to stderr")
	fs.BoolVar(&o.JSON, "json", false, "Emit JSON for every event")
	fs.BoolVar(&o.NoColor, "no-color", false, "Disable ANSI colors")
}

// resolve fills unset options from the environment and saved state.
func (o Options) resolve(store *storage.Storage) (Options, State) {
	if o.URL == "" {
		o.URL = os.Getenv("COMPANION_SERVER_URL")
	}
	if o.URL == "" {
		o.URL = DefaultURL
	}

	st := State{Personality: "default", Mood: 50}
	if o.Forget {
		if err := ForgetState(store, o.URL); err != nil {
			logging.Warn().Err(err).Str("url", o.URL).Msg("could not forget chat state")
		}
	} else if saved := LoadState(store, o.URL); saved != nil {
		st = *saved
	}
	if o.Session != "" {
		st.SessionID = o.Session
	}
	if o.Personality != "" {
		st.Personality = o.Personality
	}
	if o.Mood >= 0 && o.Mood <= 100 {
		st.Mood = o.Mood
	}
	if st.SessionID == "" {
		st.SessionID = newSessionID()
	}
	return o, st
}
