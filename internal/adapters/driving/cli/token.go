package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/adapters/driving/httpapi/auth"
	"github.com/custodia-labs/docqa/internal/core/domain"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for the HTTP API",
	Long: `Sign a token with the server secret for use as
"Authorization: Bearer <token>" against "docqa serve".

The subject becomes the owner of every document uploaded with the token.

Example:
  docqa token --subject alice --email alice@example.com --ttl 24h`,
	RunE: runToken,
}

type tokenView struct {
	Token     string    `json:"token" yaml:"token"`
	Subject   string    `json:"sub" yaml:"sub"`
	ExpiresAt time.Time `json:"expires_at" yaml:"expires_at"`
}

func init() {
	tokenCmd.Flags().String("subject", "", "owner subject (default from config)")
	tokenCmd.Flags().String("email", "", "email claim")
	tokenCmd.Flags().String("name", "", "name claim")
	tokenCmd.Flags().Duration("ttl", 0, "token lifetime (default from config)")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, _ []string) error {
	settings, err := currentSettings()
	if err != nil {
		return err
	}
	if settings.Server.JWTSecret == "" {
		return errors.New("no JWT secret: set DOCQA_JWT_SECRET or server.jwt_secret")
	}

	ttl, _ := cmd.Flags().GetDuration("ttl")
	if ttl <= 0 {
		ttl = settings.Server.TokenTTL
	}
	tokens, err := auth.NewManager(settings.Server.JWTSecret, ttl)
	if err != nil {
		return fmt.Errorf("token manager: %w", err)
	}

	id := settings.Owner
	if s, _ := cmd.Flags().GetString("subject"); strings.TrimSpace(s) != "" {
		id = domain.Identity{Subject: strings.TrimSpace(s)}
	}
	if e, _ := cmd.Flags().GetString("email"); e != "" {
		id.Email = e
	}
	if n, _ := cmd.Flags().GetString("name"); n != "" {
		id.Name = n
	}

	token, err := tokens.Issue(id)
	if err != nil {
		return err
	}

	view := tokenView{
		Token:     token,
		Subject:   id.Subject,
		ExpiresAt: time.Now().Add(tokens.TTL()).UTC().Truncate(time.Second),
	}
	return render(cmd.OutOrStdout(), view, func(w io.Writer) {
		fmt.Fprintln(w, token)
	})
}
