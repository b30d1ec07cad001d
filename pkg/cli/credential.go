package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dshills/flowcanvas/pkg/storage"
)

const maxCredentialSize = 1 << 20 // 1MB limit for all credential inputs

// isOnlyWhitespace checks if a byte slice contains only Unicode whitespace characters
// without allocating strings. Returns true if empty or whitespace-only.
func isOnlyWhitespace(data []byte) bool {
	if len(data) == 0 {
		return true
	}
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size == 1 {
			// Invalid UTF-8 is treated as non-whitespace
			return false
		}
		if !unicode.IsSpace(r) {
			return false
		}
		i += size
	}
	return true
}

// NewCredentialCommand creates the credential management command
func NewCredentialCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credential",
		Short: "Manage backend tokens",
		Long: `Manage bearer tokens for agent backends securely in the system keyring.
Tokens are stored in your system's native credential store (Keychain on macOS,
Credential Manager on Windows, Secret Service on Linux) and never in plain text files.
Each backend URL has its own token; without a URL the configured backend is used.`,
	}

	cmd.AddCommand(newCredentialSetCommand())
	cmd.AddCommand(newCredentialGetCommand())
	cmd.AddCommand(newCredentialDeleteCommand())
	cmd.AddCommand(newCredentialListCommand())

	return cmd
}

func backendArg(args []string) string {
	if len(args) > 0 {
		return strings.TrimRight(args[0], "/")
	}
	return BackendURL()
}

// newCredentialSetCommand creates the credential set subcommand
func newCredentialSetCommand() *cobra.Command {
	var (
		value    string
		useStdin bool
	)

	cmd := &cobra.Command{
		Use:   "set [backend-url]",
		Short: "Store the token for a backend",
		Long: `Store the bearer token sent to a backend.

Examples:
  # Interactive prompt (recommended for local use)
  flowcanvas credential set

  # From stdin (recommended for automation/CI/CD)
  printf '%s' "$TOKEN" | flowcanvas credential set https://agents.example.com/api --stdin

  # In the command (NOT recommended - visible in shell history)
  flowcanvas credential set --value secret123

Note:
  - All input methods have a 1MB maximum size limit
  - --stdin reads until EOF; only trailing CR/LF characters are removed
  - Whitespace-only tokens are rejected`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			baseURL := backendArg(args)

			var token string
			switch {
			case useStdin:
				inputBytes, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), maxCredentialSize+1))
				defer func() {
					for i := range inputBytes {
						inputBytes[i] = 0
					}
				}()
				if err != nil {
					return fmt.Errorf("failed to read from stdin: %w", err)
				}
				if len(inputBytes) > maxCredentialSize {
					return fmt.Errorf("token exceeds maximum size of %d bytes", maxCredentialSize)
				}
				trimmed := bytes.TrimRight(inputBytes, "\r\n")
				if len(trimmed) == 0 {
					return fmt.Errorf("token cannot be empty")
				}
				if isOnlyWhitespace(trimmed) {
					return fmt.Errorf("token cannot contain only whitespace characters")
				}
				token = string(trimmed)

			case value != "":
				_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Warning: Using --value flag exposes the token in shell history.")
				if len(value) > maxCredentialSize {
					return fmt.Errorf("token exceeds maximum size of %d bytes", maxCredentialSize)
				}
				if isOnlyWhitespace([]byte(value)) {
					return fmt.Errorf("token cannot contain only whitespace characters")
				}
				token = value

			default:
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Enter token for %s: ", baseURL)
				passwordBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
				_, _ = fmt.Fprintln(cmd.OutOrStdout())
				defer func() {
					for i := range passwordBytes {
						passwordBytes[i] = 0
					}
				}()
				if err != nil {
					return fmt.Errorf("failed to read token: %w", err)
				}
				if len(passwordBytes) > maxCredentialSize {
					return fmt.Errorf("token exceeds maximum size of %d bytes", maxCredentialSize)
				}
				if isOnlyWhitespace(passwordBytes) {
					return fmt.Errorf("token cannot be empty or whitespace")
				}
				token = string(passwordBytes)
			}

			if err := tokenStore().SetToken(baseURL, token); err != nil {
				return fmt.Errorf("failed to store token: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Token stored for %s\n", baseURL)
			return nil
		},
	}

	cmd.Flags().StringVarP(&value, "value", "v", "", "Token value (optional - will prompt securely if omitted)")
	cmd.Flags().BoolVar(&useStdin, "stdin", false, "Read the token from stdin")
	cmd.MarkFlagsMutuallyExclusive("stdin", "value")

	return cmd
}

func newCredentialGetCommand() *cobra.Command {
	var show bool

	cmd := &cobra.Command{
		Use:   "get [backend-url]",
		Short: "Show whether a backend has a token",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			baseURL := backendArg(args)
			token, err := tokenStore().Token(baseURL)
			if err != nil {
				return fmt.Errorf("failed to read token: %w", err)
			}
			if token == "" {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "No token stored for %s\n", baseURL)
				return nil
			}
			if show {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), token)
				return nil
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", baseURL, maskToken(token))
			return nil
		},
	}

	cmd.Flags().BoolVar(&show, "show", false, "Print the token itself")

	return cmd
}

// maskToken keeps the last four characters of long tokens
func maskToken(token string) string {
	r := []rune(token)
	if len(r) <= 8 {
		return strings.Repeat("*", len(r))
	}
	return strings.Repeat("*", len(r)-4) + string(r[len(r)-4:])
}

func newCredentialDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [backend-url]",
		Short: "Remove the token for a backend",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			baseURL := backendArg(args)
			if err := tokenStore().DeleteToken(baseURL); err != nil {
				if errors.Is(err, storage.ErrCredentialNotFound) {
					return fmt.Errorf("no token stored for %s", baseURL)
				}
				return fmt.Errorf("failed to delete token: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Token removed for %s\n", baseURL)
			return nil
		},
	}
}

// newCredentialListCommand creates the credential list subcommand
func newCredentialListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List backends with a stored token",
		Long: `List the backend URLs that have a stored token. Token values are never shown.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			backends, err := tokenStore().Backends()
			if err != nil {
				return fmt.Errorf("failed to list tokens: %w", err)
			}
			if len(backends) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No tokens configured.")
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "\nAdd one with: flowcanvas credential set [backend-url]")
				return nil
			}
			sort.Strings(backends)
			current := BackendURL()
			for _, b := range backends {
				marker := " "
				if b == current {
					marker = "*"
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s (set)\n", marker, b)
			}
			return nil
		},
	}
}
