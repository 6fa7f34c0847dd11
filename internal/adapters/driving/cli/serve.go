package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/docqa/internal/adapters/driving/httpapi/auth"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API for uploading documents and asking questions.

Every route except /health requires a bearer token signed with the
server secret. Set it with DOCQA_JWT_SECRET or server.jwt_secret in the
config file, and issue tokens with "docqa token".

Routes:
  GET    /health
  POST   /documents
  GET    /documents
  GET    /documents/:id
  DELETE /documents/:id
  POST   /ask
  POST   /ask/stream
  GET    /conversations/:id
  POST   /conversations/:id/reset
  GET    /summaries/:id
  POST   /summaries/:id
  POST   /summaries/:id/regenerate`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default from config, :8000)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	settings, err := currentSettings()
	if err != nil {
		return err
	}
	if settings.Server.JWTSecret == "" {
		return errors.New("no JWT secret: set DOCQA_JWT_SECRET or server.jwt_secret")
	}

	tokens, err := auth.NewManager(settings.Server.JWTSecret, settings.Server.TokenTTL)
	if err != nil {
		return fmt.Errorf("token manager: %w", err)
	}

	svc, err := core(cmd.Context())
	if err != nil {
		return err
	}

	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = settings.Server.Addr
	}

	server := httpapi.NewServer(httpapi.Config{
		Addr:           addr,
		AllowedOrigins: settings.Server.AllowedOrigins,
		Version:        version,
		Release:        !verbose,
	}, httpapi.Services{
		Ingest:    svc.Ingest,
		Documents: svc.Documents,
		Answers:   svc.Answers,
		Chat:      svc.Chat,
		Summaries: svc.Summaries,
	}, tokens)

	cmd.Printf("API listening on %s\n", server.Addr())
	return server.Run(cmd.Context())
}
