package cli

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dshills/flowcanvas/pkg/backend"
	"github.com/dshills/flowcanvas/pkg/storage"
)

const (
	// Version is the current version of flowcanvas
	Version = "1.0.0"

	defaultProxyAddr = ":8080"
)

// Settings is the content of config.yaml
type Settings struct {
	BackendURL    string  `yaml:"backend_url"`
	WorkflowsPath string  `yaml:"workflows_path,omitempty"`
	ZoomMin       float64 `yaml:"zoom_min,omitempty"`
	ZoomMax       float64 `yaml:"zoom_max,omitempty"`
	ProxyAddr     string  `yaml:"proxy_addr,omitempty"`
}

// DefaultSettings returns the settings written to a new config.yaml
func DefaultSettings() Settings {
	return Settings{
		BackendURL:    backend.DefaultBaseURL,
		WorkflowsPath: backend.DefaultWorkflowsPath,
		ZoomMin:       0.1,
		ZoomMax:       3,
		ProxyAddr:     defaultProxyAddr,
	}
}

// Config holds the global configuration for the flowcanvas CLI
type Config struct {
	ConfigDir  string
	Debug      bool
	BackendURL string
	Settings   Settings
}

// GlobalConfig is the shared configuration instance
var GlobalConfig = &Config{}

// NewRootCommand creates the root cobra command for flowcanvas
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flowcanvas",
		Short: "flowcanvas - terminal workflow builder for agent backends",
		Long: `flowcanvas is a visual workflow builder for an AI agent backend.
Place input, agent, transform, API, condition and output steps on a canvas,
connect them, try the agent step with a live test run and save the
workflow to the backend. Model calls and workflow execution stay on the
backend.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Setup logging
			if GlobalConfig.Debug {
				log.SetOutput(os.Stderr)
				log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
			} else {
				log.SetOutput(io.Discard)
			}

			if err := initConfig(); err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}
			return nil
		},
	}

	// Persistent flags (available to all subcommands)
	cmd.PersistentFlags().BoolVar(&GlobalConfig.Debug, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&GlobalConfig.ConfigDir, "config-dir", "", "Configuration directory (default: ~/.flowcanvas)")
	cmd.PersistentFlags().StringVar(&GlobalConfig.BackendURL, "backend-url", "", "Backend API root (default from config.yaml)")

	// Add subcommands
	cmd.AddCommand(NewEditCommand())
	cmd.AddCommand(NewAgentsCommand())
	cmd.AddCommand(NewWorkflowsCommand())
	cmd.AddCommand(NewValidateCommand())
	cmd.AddCommand(NewTestCommand())
	cmd.AddCommand(NewRunsCommand())
	cmd.AddCommand(NewExportCommand())
	cmd.AddCommand(NewExportsCommand())
	cmd.AddCommand(NewImportCommand())
	cmd.AddCommand(NewDraftCommand())
	cmd.AddCommand(NewTemplateCommand())
	cmd.AddCommand(NewCredentialCommand())
	cmd.AddCommand(NewServeCommand())

	return cmd
}

// initConfig initializes the configuration directory, writes a default
// config.yaml when there is none and loads it
func initConfig() error {
	GlobalConfig.ConfigDir = GetConfigDir()

	if err := os.MkdirAll(GlobalConfig.ConfigDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.MkdirAll(GetExportsDir(), 0755); err != nil {
		return fmt.Errorf("failed to create directory exports: %w", err)
	}

	configFile := GetConfigFilePath()
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		data, err := yaml.Marshal(DefaultSettings())
		if err != nil {
			return fmt.Errorf("failed to marshal default config: %w", err)
		}
		if err := os.WriteFile(configFile, data, 0644); err != nil {
			return fmt.Errorf("failed to write default config: %w", err)
		}
	}

	settings, err := LoadSettings(configFile)
	if err != nil {
		return err
	}
	GlobalConfig.Settings = settings
	return nil
}

// LoadSettings reads config.yaml. Missing keys keep their defaults.
func LoadSettings(path string) (Settings, error) {
	settings := DefaultSettings()
	data, err := os.ReadFile(path)
	if err != nil {
		return settings, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return settings, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return settings, nil
}

// GetConfigDir returns the configuration directory path
// Priority order: 1) FLOWCANVAS_CONFIG_DIR env var, 2) --config-dir, 3) ~/.flowcanvas
func GetConfigDir() string {
	if envDir := os.Getenv("FLOWCANVAS_CONFIG_DIR"); envDir != "" {
		return envDir
	}
	if GlobalConfig.ConfigDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			// Fallback to current directory if home dir cannot be determined
			return ".flowcanvas"
		}
		return filepath.Join(homeDir, ".flowcanvas")
	}
	return GlobalConfig.ConfigDir
}

// GetConfigFilePath returns the path of config.yaml
func GetConfigFilePath() string {
	return filepath.Join(GetConfigDir(), "config.yaml")
}

// GetExportsDir returns the directory of shareable exports
func GetExportsDir() string {
	return filepath.Join(GetConfigDir(), "exports")
}

// GetDraftsPath returns the path of the drafts database
func GetDraftsPath() string {
	return filepath.Join(GetConfigDir(), "drafts.db")
}

// BackendURL returns the backend API root
// Priority order: 1) FLOWCANVAS_BACKEND_URL env var, 2) --backend-url, 3) config.yaml
func BackendURL() string {
	if env := os.Getenv("FLOWCANVAS_BACKEND_URL"); env != "" {
		return strings.TrimRight(env, "/")
	}
	if GlobalConfig.BackendURL != "" {
		return strings.TrimRight(GlobalConfig.BackendURL, "/")
	}
	if GlobalConfig.Settings.BackendURL != "" {
		return strings.TrimRight(GlobalConfig.Settings.BackendURL, "/")
	}
	return backend.DefaultBaseURL
}

// tokenStore returns the keyring store of backend tokens
func tokenStore() storage.TokenStore {
	return storage.TokenStore{Store: storage.NewKeyringCredentialStore()}
}

// newBackendClient creates a client for the configured backend, with its
// stored token if there is one
func newBackendClient() (*backend.Client, error) {
	baseURL := BackendURL()
	token, err := tokenStore().Token(baseURL)
	if err != nil {
		// the keyring may be unavailable; carry on unauthenticated
		log.Printf("cli: backend token not loaded: %v", err)
	}
	client, err := backend.New(backend.Config{
		BaseURL:       baseURL,
		Token:         token,
		WorkflowsPath: GlobalConfig.Settings.WorkflowsPath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create backend client: %w", err)
	}
	return client, nil
}

// openDrafts opens the local drafts database
func openDrafts() (*storage.SQLiteDraftStore, error) {
	store, err := storage.OpenDraftStore(GetDraftsPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open drafts: %w", err)
	}
	return store, nil
}

// Execute runs the root command
func Execute() error {
	return NewRootCommand().Execute()
}
