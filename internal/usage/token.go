package usage

import (
	"strings"

	"github.com/zpdzap/swop/internal/config"
	"github.com/zpdzap/swop/internal/fsutil"
	"github.com/zpdzap/swop/internal/sandbox"
)

type authFile struct {
	Tokens struct {
		AccessToken string `json:"access_token"`
	} `json:"tokens"`
}

// ReadAccessToken reads the account's stored bearer token. Any failure is an
// auth error: no credentials means no quota lookup.
func ReadAccessToken(cfg config.Config, labelText string) (string, error) {
	paths, err := sandbox.Resolve(cfg, labelText)
	if err != nil {
		return "", err
	}

	var auth authFile
	if err := fsutil.ReadJSON(paths.AuthPath, &auth); err != nil {
		return "", &Error{Kind: KindAuth, Message: "missing auth.json for account"}
	}
	if strings.TrimSpace(auth.Tokens.AccessToken) == "" {
		return "", &Error{Kind: KindAuth, Message: "missing access token in auth.json"}
	}
	return auth.Tokens.AccessToken, nil
}
