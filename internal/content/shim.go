package content

import (
	"bytes"
	_ "embed"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// openShim replaces window.open and target=_blank navigation with a call to
// the bound App.RequestNewWindow, so every page goes through the link policy.
//
//go:embed openshim.js
var openShim string

// InjectOpenShim returns page with the shim as the first script in <head>.
func InjectOpenShim(page []byte) ([]byte, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, err
	}
	doc.Find("head").First().PrependHtml("<script>" + openShim + "</script>")
	out, err := doc.Html()
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

func isHTML(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "text/html"
}

// injectResponse rewrites proxied HTML documents. Encoded bodies pass through
// untouched.
func (h *Handler) injectResponse(resp *http.Response) error {
	if !isHTML(resp.Header.Get("Content-Type")) || resp.Header.Get("Content-Encoding") != "" {
		return nil
	}
	page, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return err
	}
	out, err := InjectOpenShim(page)
	if err != nil {
		h.logger.Warn("open shim injection failed", zap.String("path", resp.Request.URL.Path), zap.Error(err))
		out = page
	}
	resp.Body = io.NopCloser(bytes.NewReader(out))
	resp.ContentLength = int64(len(out))
	resp.Header.Set("Content-Length", strconv.Itoa(len(out)))
	return nil
}
