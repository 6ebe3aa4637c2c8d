package backend

// Settings is the part of the configuration the backend reads on every
// request, so a reloaded config file takes effect without a restart.
type Settings struct {
	Engine         string
	DefaultModel   string
	Language       string
	MaxUploadBytes int64
	MaxJobs        int
	MaxConcurrent  int
	WhisperCpp     WhisperCppSettings
	OpenAI         OpenAISettings
}

type WhisperCppSettings struct {
	Binary    string
	FFmpeg    string
	ModelsDir string
	Threads   int
}

type OpenAISettings struct {
	APIKey  string
	BaseURL string
	Model   string
}

// SettingsSource yields the current settings.
type SettingsSource interface {
	Settings() Settings
}

// SettingsFunc adapts a function to SettingsSource.
type SettingsFunc func() Settings

func (f SettingsFunc) Settings() Settings { return f() }

// StaticSettings never changes.
type StaticSettings Settings

func (s StaticSettings) Settings() Settings { return Settings(s) }
