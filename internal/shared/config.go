package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"golang.org/x/oauth2"
)

//go:embed config.example.toml
var exampleConf []byte

// ConfigVersion is the schema version this build understands (spec.md §6,
// "Migration surface"). AcceptedPredecessorVersion is the only older
// version MigrateConfig will upgrade in place; anything else is fatal.
const (
	ConfigVersion              = "3.3.1"
	AcceptedPredecessorVersion = "3.3.0"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Version     string           `toml:"version"`
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Scheduler   SchedulerConfig   `toml:"scheduler"`
	RateLimit   RateLimitConfig   `toml:"ratelimit"`
	Watch       WatchConfig       `toml:"watch"`
	History     HistoryConfig     `toml:"history"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
	Deezer  DeezerConfig  `toml:"deezer"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	AccessToken  string `toml:"access_token,omitempty"`
	RefreshToken string `toml:"refresh_token,omitempty"`
}

// DeezerConfig contains Deezer API credentials. Deezer's public catalogue
// endpoints are unauthenticated; ARL is only needed by the fetch library,
// not by metadata lookup, so it is carried here only for completeness.
type DeezerConfig struct {
	ARL string `toml:"arl,omitempty"`
}

func (s SpotifyConfig) Map() map[string]string {
	return map[string]string{
		"client_id":     s.ClientID,
		"client_secret": s.ClientSecret,
		"redirect_uri":  s.RedirectURI,
	}
}

// Update stores a freshly obtained OAuth2 token's access and refresh
// tokens on the config, ready for SaveConfig.
func (s *SpotifyConfig) Update(token *oauth2.Token) error {
	if token == nil {
		return fmt.Errorf("cannot update spotify config from nil token")
	}
	s.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		s.RefreshToken = token.RefreshToken
	}
	return nil
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// SchedulerConfig configures SQM/WR (spec.md §6 config surface).
type SchedulerConfig struct {
	MaxConcurrentDownloads  int    `toml:"max_concurrent_downloads"`
	UtilityPoolConcurrency  int    `toml:"utility_pool_concurrency"`
	MaxRetries              int    `toml:"max_retries"`
	RetryDelaySeconds       int    `toml:"retry_delay_seconds"`
	RetryDelayIncrease      int    `toml:"retry_delay_increase"`
	Service                 string `toml:"service"`
	Fallback                bool   `toml:"fallback"`
	SpotifyQuality          string `toml:"spotify_quality"`
	DeezerQuality           string `toml:"deezer_quality"`
	RealTime                bool   `toml:"real_time"`
	CustomDirFormat         string `toml:"custom_dir_format"`
	CustomTrackFormat       string `toml:"custom_track_format"`
	TracknumPadding         bool   `toml:"tracknum_padding"`
	PadNumberWidth          int    `toml:"pad_number_width"`
	ConvertTo               string `toml:"convert_to"`
	Bitrate                 string `toml:"bitrate"`
	IncompleteDownloadFolder string `toml:"incomplete_download_folder"`
}

// RateLimitConfig configures RL (spec.md §4.3).
type RateLimitConfig struct {
	BurstPerSecond    int     `toml:"burst_per_second"`    // B
	SustainedMax      int     `toml:"sustained_max"`       // N
	SustainedWindowS  int     `toml:"sustained_window_seconds"` // W
	RetryAttempts     int     `toml:"retry_attempts"`      // R
	BaseDelaySeconds  float64 `toml:"base_delay_seconds"`
}

// WatchConfig configures WE (spec.md §6).
type WatchConfig struct {
	Enabled                     bool     `toml:"enabled"`
	WatchPollIntervalSeconds    int      `toml:"watch_poll_interval_seconds"`
	WatchedArtistAlbumGroup     []string `toml:"watched_artist_album_group"`
	MaxItemsPerRun              int      `toml:"max_items_per_run"`
	DelayBetweenPlaylistsSeconds int     `toml:"delay_between_playlists_seconds"`
	DelayBetweenArtistsSeconds  int      `toml:"delay_between_artists_seconds"`
	UseSnapshotIDChecking       bool     `toml:"use_snapshot_id_checking"`
}

// HistoryConfig configures HS retention.
type HistoryConfig struct {
	Path              string `toml:"path"`
	RetentionDays     int    `toml:"retention_days"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Expands ~ in file paths to the user's home directory.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.Database.Path = ExpandPath(config.Database.Path)
	config.History.Path = ExpandPath(config.History.Path)
	config.Scheduler.IncompleteDownloadFolder = ExpandPath(config.Scheduler.IncompleteDownloadFolder)

	if err := MigrateConfigFromBytes(&config, data); err != nil {
		return nil, err
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, err)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig writes a Config struct to a TOML file at the specified path.
func SaveConfig(path string, config *Config) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file for writing: %w", err)
	}
	defer file.Close()

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}
