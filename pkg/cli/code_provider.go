package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/tsuyoikaze/fordconnect/pkg/account"
)

// promptCodeProvider implements account.CodeProvider by walking a human through the browser
// login flow: it prints the login URL and extracts the authorization code from the pasted
// redirect URL.
type promptCodeProvider struct {
	loginURL string
	in       io.Reader
	out      io.Writer
}

// NewPromptCodeProvider returns a CodeProvider that prompts on stdin/stdout. The loginURL
// comes from [account.Account.LoginURL].
func NewPromptCodeProvider(loginURL string) account.CodeProvider {
	return &promptCodeProvider{loginURL: loginURL, in: os.Stdin, out: os.Stdout}
}

// ExtractCode pulls the authorization code out of a pasted redirect URL. It accepts either
// the full URL or a bare code.
func ExtractCode(redirect string) (string, error) {
	redirect = strings.TrimSpace(redirect)
	if redirect == "" {
		return "", errors.New("empty redirect URL")
	}
	if u, err := url.Parse(redirect); err == nil {
		if code := u.Query().Get("code"); code != "" {
			return code, nil
		}
	}
	if _, after, found := strings.Cut(redirect, "code="); found {
		if idx := strings.IndexAny(after, "&#"); idx >= 0 {
			after = after[:idx]
		}
		if after != "" {
			return after, nil
		}
	}
	if !strings.ContainsAny(redirect, ":/?=") {
		return redirect, nil
	}
	return "", errors.New("redirect URL does not contain a code parameter")
}

func (p *promptCodeProvider) AuthorizationCode(ctx context.Context) (string, error) {
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	fmt.Fprintln(p.out, "Open the link below in a browser and log in:")
	fmt.Fprintln(p.out, p.loginURL)
	fmt.Fprint(p.out, "Paste the URL you were redirected to: ")
	scanner := bufio.NewScanner(p.in)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return "", errors.New("no input")
	}
	return ExtractCode(scanner.Text())
}

// StaticCodeProvider returns a CodeProvider that always supplies code. Useful when the code
// was obtained out of band, e.g. by a companion web service.
func StaticCodeProvider(code string) account.CodeProvider {
	return staticCode(code)
}

type staticCode string

func (s staticCode) AuthorizationCode(ctx context.Context) (string, error) {
	return string(s), nil
}
