package gauth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"net/http"

	"golang.org/x/oauth2"
)

// LoopbackAuthorize runs the installed-app consent flow: it prints the
// consent URL to out and waits for Google to redirect the browser to a
// temporary listener on 127.0.0.1.
func LoopbackAuthorize(out io.Writer) AuthorizeFunc {
	return func(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error) {
		const op = "LoopbackAuthorize"

		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return nil, fmt.Errorf("%s: failed to listen for redirect: %w", op, err)
		}
		defer ln.Close()

		local := *cfg
		local.RedirectURL = fmt.Sprintf("http://%s/", ln.Addr().String())

		state, err := randomState()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		codes := make(chan string, 1)
		srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("state") != state {
				http.Error(w, "state mismatch", http.StatusBadRequest)
				return
			}
			code := r.URL.Query().Get("code")
			if code == "" {
				fmt.Fprintln(w, "Authorization was not granted. You can close this window.")
			} else {
				fmt.Fprintln(w, "Authorization complete. You can close this window.")
			}
			select {
			case codes <- code:
			default:
			}
		})}
		go srv.Serve(ln)
		defer srv.Close()

		url := local.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
		fmt.Fprintf(out, "\nOpen this URL in your browser to authorize access:\n\n%s\n\n", url)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case code := <-codes:
			if code == "" {
				return nil, ErrAuthorizationDeclined
			}
			tok, err := local.Exchange(ctx, code)
			if err != nil {
				return nil, fmt.Errorf("%s: token exchange failed: %w", op, err)
			}
			return tok, nil
		}
	}
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
