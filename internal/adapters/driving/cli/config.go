package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `View and change docqa configuration.

Settings live in a TOML file (see "docqa config path"). Environment
variables such as OPENAI_API_KEY, GEMINI_API_KEY, REDIS_URL and
DOCQA_JWT_SECRET override the file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	RunE:  runConfigPath,
}

var configSetKeyCmd = &cobra.Command{
	Use:   "set-key <provider> [key]",
	Short: "Store an API key",
	Long: `Store the API key for a cloud provider (openai or gemini).

If the key is not given as an argument it is read from the terminal
without echo.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runConfigSetKey,
}

var configModeCmd = &cobra.Command{
	Use:   "mode <strict|hybrid>",
	Short: "Set the default answer mode",
	Long: `Set the answer mode used when "docqa ask" is run without --mode.

Available modes:
  strict - answer from the document only
  hybrid - prefer the document but allow general knowledge`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigMode,
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a setting so its default applies",
	Long: `Remove a key from the config file.

Keys are dotted paths, for example:
  api_keys.openai
  retrieval.mode
  chat.redis_url`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigUnset,
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that the AI providers are reachable",
	RunE:  runConfigCheck,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configSetKeyCmd)
	configCmd.AddCommand(configModeCmd)
	configCmd.AddCommand(configUnsetCmd)
	configCmd.AddCommand(configCheckCmd)
	rootCmd.AddCommand(configCmd)
}

type providerView struct {
	Provider string `json:"provider" yaml:"provider"`
	Model    string `json:"model" yaml:"model"`
	BaseURL  string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	APIKey   string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	Ready    bool   `json:"configured" yaml:"configured"`
}

type settingsView struct {
	ConfigPath   string        `json:"config_path" yaml:"config_path"`
	Embedding    providerView  `json:"embedding" yaml:"embedding"`
	LLM          providerView  `json:"llm" yaml:"llm"`
	Mode         string        `json:"mode" yaml:"mode"`
	TopK         int           `json:"top_k" yaml:"top_k"`
	Threshold    float64       `json:"threshold" yaml:"threshold"`
	DataDir      string        `json:"data_dir" yaml:"data_dir"`
	IndexBackend string        `json:"index_backend" yaml:"index_backend"`
	ChatStore    string        `json:"chat_store" yaml:"chat_store"`
	ChatTTL      time.Duration `json:"chat_ttl" yaml:"chat_ttl"`
	ServerAddr   string        `json:"server_addr" yaml:"server_addr"`
	JWTSecret    bool          `json:"jwt_secret_set" yaml:"jwt_secret_set"`
	Owner        string        `json:"owner" yaml:"owner"`
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	settings, err := currentSettings()
	if err != nil {
		return err
	}

	chatStore := "sqlite"
	if settings.Chat.RedisURL != "" {
		chatStore = "redis"
	}

	view := settingsView{
		ConfigPath: settingsService.ConfigPath(),
		Embedding: providerView{
			Provider: settings.Embedding.Provider.String(),
			Model:    settings.Embedding.Model,
			BaseURL:  settings.Embedding.BaseURL,
			APIKey:   maskedKey(settings.Embedding.Provider, settings.Embedding.APIKey),
			Ready:    settings.Embedding.IsConfigured(),
		},
		LLM: providerView{
			Provider: settings.LLM.Provider.String(),
			Model:    settings.LLM.Model,
			BaseURL:  settings.LLM.BaseURL,
			APIKey:   maskedKey(settings.LLM.Provider, settings.LLM.APIKey),
			Ready:    settings.LLM.IsConfigured(),
		},
		Mode:         settings.Retrieval.Mode.String(),
		TopK:         settings.Retrieval.TopK,
		Threshold:    settings.Retrieval.Threshold,
		DataDir:      settings.Storage.DataDir,
		IndexBackend: string(settings.Storage.IndexBackend),
		ChatStore:    chatStore,
		ChatTTL:      settings.Chat.TTL,
		ServerAddr:   settings.Server.Addr,
		JWTSecret:    settings.Server.JWTSecret != "",
		Owner:        settings.Owner.Subject,
	}

	return render(cmd.OutOrStdout(), view, func(w io.Writer) {
		fmt.Fprintln(w, "Current Settings")
		fmt.Fprintln(w, "================")
		fmt.Fprintf(w, "Config file: %s\n\n", view.ConfigPath)

		printProvider(w, "Embedding", settings.Embedding.Provider, view.Embedding)
		printProvider(w, "LLM", settings.LLM.Provider, view.LLM)

		fmt.Fprintln(w, "[Retrieval]")
		fmt.Fprintf(w, "  Mode: %s\n", settings.Retrieval.Mode.Description())
		fmt.Fprintf(w, "  Top K: %d\n", view.TopK)
		fmt.Fprintf(w, "  Threshold: %.2f\n\n", view.Threshold)

		fmt.Fprintln(w, "[Storage]")
		fmt.Fprintf(w, "  Data dir: %s\n", view.DataDir)
		fmt.Fprintf(w, "  Index backend: %s\n", view.IndexBackend)
		fmt.Fprintf(w, "  Chat memory: %s (ttl %s)\n\n", view.ChatStore, view.ChatTTL)

		fmt.Fprintln(w, "[Server]")
		fmt.Fprintf(w, "  Address: %s\n", view.ServerAddr)
		secret := "(not set)"
		if view.JWTSecret {
			secret = "set"
		}
		fmt.Fprintf(w, "  JWT secret: %s\n", secret)
		fmt.Fprintf(w, "  Local owner: %s\n", view.Owner)
	})
}

func printProvider(w io.Writer, title string, provider domain.AIProvider, v providerView) {
	fmt.Fprintf(w, "[%s]\n", title)
	fmt.Fprintf(w, "  Provider: %s\n", provider.Description())
	fmt.Fprintf(w, "  Model: %s\n", v.Model)
	if provider.IsLocal() {
		fmt.Fprintf(w, "  Base URL: %s\n", v.BaseURL)
	}
	if provider.RequiresAPIKey() {
		key := v.APIKey
		if key == "" {
			key = "(not set)"
		}
		fmt.Fprintf(w, "  API Key: %s\n", key)
	}
	status := "configured"
	if !v.Ready {
		status = "not configured"
	}
	fmt.Fprintf(w, "  Status: %s\n\n", status)
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return fmt.Errorf("settings service not configured")
	}
	cmd.Println(settingsService.ConfigPath())
	return nil
}

func runConfigSetKey(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return fmt.Errorf("settings service not configured")
	}

	provider := domain.AIProvider(strings.ToLower(args[0]))
	if !provider.IsValid() || !provider.RequiresAPIKey() {
		return fmt.Errorf("%w: %q does not take an API key (use openai or gemini)", domain.ErrInvalidInput, args[0])
	}

	var apiKey string
	if len(args) == 2 {
		apiKey = strings.TrimSpace(args[1])
	} else {
		cmd.Printf("Enter %s API key: ", provider.Description())
		apiKey = readPassword()
		cmd.Println()
	}
	if apiKey == "" {
		return fmt.Errorf("%w: API key is required", domain.ErrInvalidInput)
	}

	if err := settingsService.SetAPIKey(provider, apiKey); err != nil {
		return fmt.Errorf("failed to save API key: %w", err)
	}
	cmd.Printf("Saved %s API key %s\n", provider, maskAPIKey(apiKey))
	return nil
}

func runConfigMode(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return fmt.Errorf("settings service not configured")
	}

	mode := domain.AnswerMode(strings.ToLower(args[0]))
	if !mode.IsValid() {
		return fmt.Errorf("%w: unknown mode %q (use strict or hybrid)", domain.ErrInvalidInput, args[0])
	}
	if err := settingsService.SetAnswerMode(mode); err != nil {
		return fmt.Errorf("failed to set mode: %w", err)
	}
	cmd.Printf("Answer mode set to %s\n", mode.Description())
	return nil
}

func runConfigUnset(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return fmt.Errorf("settings service not configured")
	}
	if err := settingsService.Unset(args[0]); err != nil {
		return err
	}
	cmd.Printf("Unset %s\n", args[0])
	return nil
}

func runConfigCheck(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return fmt.Errorf("settings service not configured")
	}

	var failed bool
	cmd.Print("Embedding provider... ")
	if err := settingsService.ValidateEmbeddingConfig(cmd.Context()); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		failed = true
	} else {
		cmd.Println("OK")
	}

	cmd.Print("LLM provider... ")
	if err := settingsService.ValidateLLMConfig(cmd.Context()); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		failed = true
	} else {
		cmd.Println("OK")
	}

	if failed {
		return fmt.Errorf("configuration check failed")
	}
	return nil
}

func maskedKey(provider domain.AIProvider, key string) string {
	if !provider.RequiresAPIKey() || key == "" {
		return ""
	}
	return maskAPIKey(key)
}

func readPassword() string {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
