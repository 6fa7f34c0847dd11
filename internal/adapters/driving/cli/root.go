// Package cli provides the docqa command line interface.
// It is a driving adapter: commands translate flags into calls on the
// driving ports and render the results.
package cli

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Services bundles the core services the commands call.
type Services struct {
	Ingest    driving.IngestService
	Documents driving.DocumentService
	Answers   driving.AnswerService
	Chat      driving.ChatService
	Summaries driving.SummaryService

	// Close releases stores and clients. May be nil.
	Close func() error
}

// Loader builds the core services on first use. Commands that only touch
// configuration never call it, so they work before any API key is set.
type Loader func(ctx context.Context) (*Services, error)

var (
	version = "dev"

	settingsService driving.SettingsService
	loader          Loader

	loadOnce sync.Once
	loaded   *Services
	loadErr  error

	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "docqa",
	Short: "Ask questions about your PDFs",
	Long: `docqa indexes PDF documents and answers questions about them.

Answers are grounded in retrieved passages, checked by a verifier and
labelled DOCUMENT, MIXED or GENERAL_KNOWLEDGE.

Get started:
  docqa config set-key openai
  docqa ingest handbook.pdf
  docqa ask handbook.pdf "Who approves annual leave?"`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		if verbose {
			logger.SetVerbose(true)
		}
		return validateFormat()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "o", formatText, "output format: text, json or yaml")
}

// SetVersion sets the version reported by the version command and the API.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// SetSettingsService sets the settings service used by config commands.
func SetSettingsService(s driving.SettingsService) {
	settingsService = s
}

// SetLoader sets how the core services are built.
func SetLoader(l Loader) {
	loader = l
	loadOnce = sync.Once{}
	loaded, loadErr = nil, nil
}

// Execute runs the root command and releases any services it built.
func Execute(ctx context.Context) error {
	defer closeServices()
	return rootCmd.ExecuteContext(ctx)
}

// core returns the core services, building them on first use.
func core(ctx context.Context) (*Services, error) {
	loadOnce.Do(func() {
		if loader == nil {
			loadErr = errors.New("services not configured")
			return
		}
		loaded, loadErr = loader(ctx)
	})
	return loaded, loadErr
}

func closeServices() {
	if loaded == nil || loaded.Close == nil {
		return
	}
	if err := loaded.Close(); err != nil {
		logger.Warn("close services: %v", err)
	}
}

func currentSettings() (*domain.AppSettings, error) {
	if settingsService == nil {
		return nil, errors.New("settings service not configured")
	}
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	return settings, nil
}

// owner is the identity CLI commands act as.
func owner() (domain.Identity, error) {
	settings, err := currentSettings()
	if err != nil {
		return domain.Identity{}, err
	}
	if !settings.Owner.IsValid() {
		return domain.LocalIdentity, nil
	}
	return settings.Owner, nil
}
