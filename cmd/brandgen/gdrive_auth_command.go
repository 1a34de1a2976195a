package main

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"

	"brandgen/internal/config"
)

func newGDriveAuthCommand() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "gdrive-auth",
		Short: "Obtain GDRIVE_REFRESH_TOKEN for the Google Drive storage provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := config.LoadStorage()
			if err != nil {
				return err
			}
			if strings.TrimSpace(st.GDriveClientID) == "" || strings.TrimSpace(st.GDriveClientSecret) == "" {
				return errors.New("GDRIVE_CLIENT_ID and GDRIVE_CLIENT_SECRET are required")
			}
			return runGDriveAuth(cmd, st.GDriveClientID, st.GDriveClientSecret, timeout)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Minute, "How long to wait for the browser callback")
	return cmd
}

func runGDriveAuth(cmd *cobra.Command, clientID, clientSecret string, timeout time.Duration) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	// Callback local en un puerto libre.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("listen for callback: %w", err)
	}
	defer ln.Close()

	port := ln.Addr().(*net.TCPAddr).Port
	redirectURL := fmt.Sprintf("http://127.0.0.1:%d/callback", port)

	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{drive.DriveFileScope},
		RedirectURL:  redirectURL,
	}

	state, err := randomState()
	if err != nil {
		return err
	}

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("state") != state:
			http.Error(w, "invalid state", http.StatusBadRequest)
			errCh <- errors.New("invalid state")
		case q.Get("error") != "":
			http.Error(w, "auth error: "+q.Get("error"), http.StatusBadRequest)
			errCh <- fmt.Errorf("auth error: %s", q.Get("error"))
		case q.Get("code") == "":
			http.Error(w, "missing code", http.StatusBadRequest)
			errCh <- errors.New("missing code")
		default:
			fmt.Fprintln(w, "OK. You can close this window and return to the terminal.")
			codeCh <- q.Get("code")
		}
	})

	srv := &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() { _ = srv.Serve(ln) }()
	defer srv.Close()

	// offline + consent => Google entrega refresh token.
	authURL := conf.AuthCodeURL(
		state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)

	fmt.Fprintf(out, "\nOpen this URL in your browser:\n\n%s\n\nWaiting for authorization on %s\n", authURL, redirectURL)

	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		return err
	case <-time.After(timeout):
		return errors.New("timed out waiting for authorization")
	case <-ctx.Done():
		return ctx.Err()
	}

	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchange code: %w", err)
	}

	if strings.TrimSpace(tok.RefreshToken) == "" {
		fmt.Fprintln(out, "\nNo refresh_token was returned.")
		fmt.Fprintln(out, "Revoke the app's previous access at https://myaccount.google.com/permissions and run this command again.")
		return nil
	}

	fmt.Fprintf(out, "\nGDRIVE_REFRESH_TOKEN=%s\n", tok.RefreshToken)
	return nil
}

func randomState() (string, error) {
	b := make([]byte, 18)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("random state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
