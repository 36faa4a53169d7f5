package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the server looks for its configuration file.
const DefaultPath = "config/config.yaml"

// Config represents the application configuration
type Config struct {
	Server struct {
		Port int    `yaml:"port"`
		Host string `yaml:"host"`
	} `yaml:"server"`

	Log struct {
		Mode string `yaml:"mode"`
	} `yaml:"log"`

	Transcription struct {
		Provider       string `yaml:"provider"`
		Language       string `yaml:"language"`
		NormalizeAudio bool   `yaml:"normalize_audio"`
	} `yaml:"transcription"`

	Deepgram Deepgram `yaml:"deepgram"`

	OpenAI struct {
		APIKey  string `yaml:"api_key"`
		Model   string `yaml:"model"`
		BaseURL string `yaml:"base_url"`
	} `yaml:"openai"`

	GoogleSpeech struct {
		CredentialsFile string `yaml:"credentials_file"`
		Model           string `yaml:"model"`
		Bucket          string `yaml:"bucket"`
		MinSpeakers     int    `yaml:"min_speakers"`
		MaxSpeakers     int    `yaml:"max_speakers"`
	} `yaml:"google_speech"`

	Whisper struct {
		Model     string `yaml:"model"`
		ModelPath string `yaml:"model_path"`
		Threads   int    `yaml:"threads"`
		Device    string `yaml:"device"`
		Python    string `yaml:"python"`
	} `yaml:"whisper"`

	Conversation struct {
		PauseThreshold *float64       `yaml:"pause_threshold"`
		SpeakerNames   map[int]string `yaml:"speaker_names"`
	} `yaml:"conversation"`

	Workers struct {
		Count int `yaml:"count"`
	} `yaml:"workers"`

	Storage struct {
		TempDir   string `yaml:"temp_dir"`
		OutputDir string `yaml:"output_dir"`
		Database  string `yaml:"database"`
	} `yaml:"storage"`

	Cleanup struct {
		IntervalMinutes int `yaml:"interval_minutes"`
		MaxAgeHours     int `yaml:"max_age_hours"`
	} `yaml:"cleanup"`

	GoogleDrive struct {
		CredentialsFile string `yaml:"credentials_file"`
		TokenFile       string `yaml:"token_file"`
		FolderName      string `yaml:"folder_name"`
	} `yaml:"google_drive"`

	Redis struct {
		Addr    string `yaml:"addr"`
		Channel string `yaml:"channel"`
	} `yaml:"redis"`

	Limits struct {
		MaxFileSizeMB      int `yaml:"max_file_size_mb"`
		MaxDurationMinutes int `yaml:"max_duration_minutes"`
	} `yaml:"limits"`
}

// Deepgram holds the prerecorded transcription options.
type Deepgram struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	SmartFormat    bool   `yaml:"smart_format"`
	Punctuate      bool   `yaml:"punctuate"`
	Diarize        bool   `yaml:"diarize"`
	Summarize      bool   `yaml:"summarize"`
	DetectTopics   bool   `yaml:"detect_topics"`
	DetectLanguage bool   `yaml:"detect_language"`
	Paragraphs     bool   `yaml:"paragraphs"`
}

// Load reads the YAML file at path, applies defaults and environment
// overrides. An empty path falls back to CONFIG_PATH, then DefaultPath.
// A missing file at the default location yields a default configuration.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if path == "" {
		path = strings.TrimSpace(os.Getenv("CONFIG_PATH"))
		explicit = path != ""
	}
	if path == "" {
		path = DefaultPath
	}

	config := Default()
	file, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	config.applyEnv()
	config.applyDefaults()
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return config, nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	c := &Config{}
	c.Transcription.NormalizeAudio = true
	c.Deepgram.SmartFormat = true
	c.Deepgram.Punctuate = true
	c.Deepgram.Diarize = true
	c.Deepgram.Summarize = true
	c.Deepgram.DetectTopics = true
	c.Deepgram.DetectLanguage = true
	c.Deepgram.Paragraphs = true
	c.applyDefaults()
	return c
}

// PauseThreshold returns the configured pause threshold in seconds.
func (c *Config) PauseThreshold() float64 {
	if c.Conversation.PauseThreshold == nil {
		return 1.0
	}
	return *c.Conversation.PauseThreshold
}

func (c *Config) validate() error {
	if p := c.Conversation.PauseThreshold; p != nil && *p < 0 {
		return fmt.Errorf("conversation.pause_threshold must not be negative, got %v", *p)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Log.Mode == "" {
		c.Log.Mode = "dev"
	}
	if c.Transcription.Provider == "" {
		c.Transcription.Provider = "deepgram"
	}
	if c.Deepgram.Model == "" {
		c.Deepgram.Model = "nova-2"
	}
	if c.Deepgram.BaseURL == "" {
		c.Deepgram.BaseURL = "https://api.deepgram.com/v1"
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = "whisper-1"
	}
	if c.OpenAI.BaseURL == "" {
		c.OpenAI.BaseURL = "https://api.openai.com/v1"
	}
	if c.GoogleSpeech.MaxSpeakers == 0 {
		c.GoogleSpeech.MaxSpeakers = 6
	}
	if c.Whisper.Model == "" {
		c.Whisper.Model = "small"
	}
	if c.Whisper.Python == "" {
		c.Whisper.Python = "python"
	}
	if c.Workers.Count <= 0 {
		c.Workers.Count = 2
	}
	if c.Storage.TempDir == "" {
		c.Storage.TempDir = "temp"
	}
	if c.Storage.OutputDir == "" {
		c.Storage.OutputDir = "outputs"
	}
	if c.Storage.Database == "" {
		c.Storage.Database = "transcripts.db"
	}
	if c.Cleanup.IntervalMinutes <= 0 {
		c.Cleanup.IntervalMinutes = 30
	}
	if c.Cleanup.MaxAgeHours <= 0 {
		c.Cleanup.MaxAgeHours = 24
	}
	if c.GoogleDrive.FolderName == "" {
		c.GoogleDrive.FolderName = "Transcripts"
	}
	if c.Redis.Channel == "" {
		c.Redis.Channel = "transcription-jobs"
	}
	if c.Limits.MaxFileSizeMB <= 0 {
		c.Limits.MaxFileSizeMB = 500
	}
}

func (c *Config) applyEnv() {
	setFromEnv(&c.Deepgram.APIKey, "DEEPGRAM_API_KEY")
	setFromEnv(&c.OpenAI.APIKey, "OPENAI_API_KEY")
	setFromEnv(&c.GoogleSpeech.CredentialsFile, "GOOGLE_APPLICATION_CREDENTIALS")
	setFromEnv(&c.Redis.Addr, "REDIS_ADDR")
	setFromEnv(&c.Log.Mode, "LOG_MODE")
	setFromEnv(&c.Transcription.Provider, "TRANSCRIPTION_PROVIDER")
}

func setFromEnv(dst *string, name string) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		*dst = v
	}
}
