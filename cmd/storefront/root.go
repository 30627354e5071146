package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	xerrors "storefront/internal/errors"
	"storefront/sdk/go/storefront"
)

// app 保存全局参数以及由它们构造出的 SDK 客户端。
type app struct {
	server    string
	tokenFile string
	timeout   time.Duration

	out    io.Writer
	client *storefront.Client
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}

	root := &cobra.Command{
		Use:   "storefront",
		Short: "Browse the storefront catalog from the terminal",
		Long: `storefront talks to a running storefrontd.

Log in once; the session token is kept in the token file and reused by
the browsing commands until it expires or you log out.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.connect()
		},
	}
	root.SetOut(out)

	root.PersistentFlags().StringVar(&a.server, "server", envOr("STOREFRONT_URL", "http://localhost:8080"), "storefrontd base URL (or set STOREFRONT_URL)")
	root.PersistentFlags().StringVar(&a.tokenFile, "token-file", defaultTokenFile(), "file holding the session token")
	root.PersistentFlags().DurationVar(&a.timeout, "timeout", storefront.DefaultHTTPTimeout, "request timeout")

	root.AddCommand(
		a.registerCmd(),
		a.loginCmd(),
		a.logoutCmd(),
		a.meCmd(),
		a.productsCmd(),
		a.productCmd(),
		a.facetsCmd(),
	)
	return root
}

func (a *app) connect() error {
	client, err := storefront.NewClient(a.server, &http.Client{Timeout: a.timeout})
	if err != nil {
		return err
	}
	token, err := loadToken(a.tokenFile)
	if err != nil {
		return err
	}
	client.SetAccessToken(token)
	a.client = client
	return nil
}

// explain 把常见的 API 错误翻译成命令行提示。
func (a *app) explain(err error) error {
	if errors.Is(err, storefront.ErrNoToken) {
		return errors.New("not logged in, run `storefront login` first")
	}
	if local, ok := xerrors.From(err); ok && len(local.Metadata()) > 0 {
		return errors.New(withFields(local.Message(), local.Metadata()))
	}
	var apiErr *storefront.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	if apiErr.Unauthenticated() && a.client.AccessToken() != "" {
		_ = removeToken(a.tokenFile)
		return errors.New("session expired, run `storefront login` again")
	}
	if len(apiErr.Fields) > 0 {
		return errors.New(withFields(apiErr.Message, apiErr.Fields))
	}
	return err
}

func withFields(msg string, fields map[string]string) string {
	for _, field := range sortedKeys(fields) {
		msg += fmt.Sprintf("\n  %s: %s", field, fields[field])
	}
	return msg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
