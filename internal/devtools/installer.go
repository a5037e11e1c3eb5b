// Package devtools wires standalone developer tool backends into development
// builds. The webview cannot load browser extensions, so each tool runs as a
// local backend the dev page connects to with a script tag.
package devtools

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"deskshell/internal/shell"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

const probeTimeout = 2 * time.Second

const (
	ReactDeveloperTools = "react-developer-tools"
	ReduxDevTools       = "redux-devtools"
)

var defaultBackends = map[string]string{
	ReactDeveloperTools: "http://localhost:8097",
	ReduxDevTools:       "http://localhost:8000",
}

func DefaultExtensions() []shell.Extension {
	return []shell.Extension{
		{ID: ReactDeveloperTools, Name: "React Developer Tools"},
		{ID: ReduxDevTools, Name: "Redux DevTools"},
	}
}

type Installer struct {
	client   *resty.Client
	pageURL  string
	backends map[string]string
}

// NewInstaller probes extension backends and checks that the page at pageURL
// loads them.
func NewInstaller(pageURL string) *Installer {
	backends := make(map[string]string, len(defaultBackends))
	for id, addr := range defaultBackends {
		backends[id] = addr
	}
	client := resty.New().
		SetTimeout(probeTimeout).
		SetRetryCount(0).
		SetHeader("User-Agent", "deskshell-devtools/1.0")
	return &Installer{client: client, pageURL: pageURL, backends: backends}
}

// SetBackend overrides the backend address for an extension.
func (i *Installer) SetBackend(id, addr string) {
	i.backends[id] = addr
}

func (i *Installer) Install(ctx context.Context, ext shell.Extension) error {
	backend, ok := i.backends[ext.ID]
	if !ok {
		return fmt.Errorf("unknown extension %q", ext.ID)
	}

	resp, err := i.client.R().SetContext(ctx).Get(backend)
	if err != nil {
		return fmt.Errorf("%s backend %s: %w", ext.Name, backend, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%s backend %s: status %d", ext.Name, backend, resp.StatusCode())
	}

	if i.pageURL == "" {
		return nil
	}
	loaded, err := i.pageLoads(ctx, backend)
	if err != nil {
		return err
	}
	if !loaded {
		return fmt.Errorf("%s: page %s does not load %s", ext.Name, i.pageURL, backend)
	}
	return nil
}

func (i *Installer) pageLoads(ctx context.Context, backend string) (bool, error) {
	resp, err := i.client.R().SetContext(ctx).Get(i.pageURL)
	if err != nil {
		return false, fmt.Errorf("fetch dev page: %w", err)
	}
	if resp.IsError() {
		return false, fmt.Errorf("fetch dev page: status %d", resp.StatusCode())
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
	if err != nil {
		return false, fmt.Errorf("parse dev page: %w", err)
	}
	found := false
	doc.Find("script[src]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src, _ := s.Attr("src")
		if strings.HasPrefix(strings.TrimSpace(src), backend) {
			found = true
			return false
		}
		return true
	})
	return found, nil
}
