package runner

import (
	"encoding/base64"
	"fmt"
	"mime"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/hurlrunner/hurl/internal/cookiejar"
	"github.com/hurlrunner/hurl/internal/hast"
	"github.com/hurlrunner/hurl/internal/httpengine"
	"github.com/hurlrunner/hurl/internal/query"
	"github.com/hurlrunner/hurl/internal/render"
)

// renderRequest evaluates every template in req against store and
// assembles the wire-level httpengine.Request, folding in the jar's
// cookies for this host/path and the current --file-root for file
// bodies and multipart file parts.
func renderRequest(req hast.Request, store *render.Store, jar *cookiejar.Jar, fileRoot string) (httpengine.Request, error) {
	rawURL, err := store.String(req.URL)
	if err != nil {
		return httpengine.Request{}, err
	}

	if len(req.Query) > 0 {
		u, perr := url.Parse(rawURL)
		if perr == nil {
			q := u.Query()
			for _, kv := range req.Query {
				k, err := store.String(kv.Key)
				if err != nil {
					return httpengine.Request{}, err
				}
				v, err := store.String(kv.Value)
				if err != nil {
					return httpengine.Request{}, err
				}
				q.Add(k, v)
			}
			u.RawQuery = q.Encode()
			rawURL = u.String()
		}
	}

	out := httpengine.Request{Method: req.Method, URL: rawURL}

	for _, h := range req.Headers {
		name, err := store.String(h.Name)
		if err != nil {
			return httpengine.Request{}, err
		}
		val, err := store.String(h.Value)
		if err != nil {
			return httpengine.Request{}, err
		}
		out.Headers = append(out.Headers, query.NameValue{Name: name, Value: val})
	}

	host := requestHost(rawURL)
	path := requestPath(rawURL)
	for _, c := range jar.ForRequest(host, path) {
		out.Headers = append(out.Headers, query.NameValue{Name: "Cookie", Value: c.Name + "=" + c.Value})
	}
	for _, cf := range req.Cookies {
		name, err := store.String(cf.Name)
		if err != nil {
			return httpengine.Request{}, err
		}
		val, err := store.String(cf.Value)
		if err != nil {
			return httpengine.Request{}, err
		}
		out.Headers = append(out.Headers, query.NameValue{Name: "Cookie", Value: name + "=" + val})
	}

	if req.BasicAuth != nil {
		user, err := store.String(req.BasicAuth.Username)
		if err != nil {
			return httpengine.Request{}, err
		}
		pass, err := store.String(req.BasicAuth.Password)
		if err != nil {
			return httpengine.Request{}, err
		}
		token := base64.StdEncoding.EncodeToString([]byte(user + ":" + pass))
		out.Headers = append(out.Headers, query.NameValue{Name: "Authorization", Value: "Basic " + token})
	}

	// Priority follows the parser's own mutual-exclusivity rule (at most
	// one of an explicit body, [Form], or [Multipart] survives parsing;
	// a second one is a bodyAfterAnotherBody parse error), but an
	// explicit body wins ties here too.
	switch {
	case req.Body != nil:
		body, err := renderBody(*req.Body, store, fileRoot)
		if err != nil {
			return httpengine.Request{}, err
		}
		out.Body = body

	case len(req.Form) > 0:
		form := url.Values{}
		for _, kv := range req.Form {
			k, err := store.String(kv.Key)
			if err != nil {
				return httpengine.Request{}, err
			}
			v, err := store.String(kv.Value)
			if err != nil {
				return httpengine.Request{}, err
			}
			form.Add(k, v)
		}
		out.Body = []byte(form.Encode())
		out.Headers = append(out.Headers, query.NameValue{Name: "Content-Type", Value: "application/x-www-form-urlencoded"})

	case len(req.Multipart) > 0:
		body, contentType, err := renderMultipart(req.Multipart, store, fileRoot)
		if err != nil {
			return httpengine.Request{}, err
		}
		out.Body = body
		out.Headers = append(out.Headers, query.NameValue{Name: "Content-Type", Value: contentType})
	}

	for _, o := range req.Options {
		if o.Name != "aws-sigv4" {
			continue
		}
		spec, err := store.String(o.Value)
		if err != nil {
			return httpengine.Request{}, err
		}
		signed, err := signAWSSigV4(out.Method, out.URL, out.Headers, out.Body, spec)
		if err != nil {
			return httpengine.Request{}, err
		}
		out.Headers = signed
	}

	return out, nil
}

func renderBody(b hast.Body, store *render.Store, fileRoot string) ([]byte, error) {
	switch b.Kind {
	case hast.BodyBase64, hast.BodyHex:
		return b.Raw, nil
	case hast.BodyFile:
		path, err := store.String(*b.FilePath)
		if err != nil {
			return nil, err
		}
		if !filepath.IsAbs(path) && fileRoot != "" {
			path = filepath.Join(fileRoot, path)
		}
		return os.ReadFile(path)
	case hast.BodyMultilineString:
		if b.LanguageTag == "raw" {
			return []byte(literalTextOf(*b.Text)), nil
		}
		return store.Bytes(*b.Text)
	default: // BodyJSON, BodyXML, BodyOnelineString
		if b.Text == nil {
			return nil, nil
		}
		return store.Bytes(*b.Text)
	}
}

// literalTextOf concatenates a Template's literal parts verbatim,
// used for BodyMultilineString's "raw" language tag where placeholder
// substitution is explicitly disabled.
func literalTextOf(t hast.Template) string {
	var sb strings.Builder
	for _, part := range t.Parts {
		if part.Expr == nil {
			sb.WriteString(part.Literal)
			continue
		}
		sb.WriteString("{{")
		if part.Expr.Variable != "" {
			sb.WriteString(part.Expr.Variable)
		} else {
			sb.WriteString(part.Expr.Function + "()")
		}
		sb.WriteString("}}")
	}
	return sb.String()
}

func renderMultipart(fields []hast.MultipartField, store *render.Store, fileRoot string) ([]byte, string, error) {
	var buf strings.Builder
	w := multipart.NewWriter(&buf)
	for _, f := range fields {
		name, err := store.String(f.Name)
		if err != nil {
			return nil, "", err
		}
		if f.IsFile {
			path, err := store.String(*f.FilePath)
			if err != nil {
				return nil, "", err
			}
			if !filepath.IsAbs(path) && fileRoot != "" {
				path = filepath.Join(fileRoot, path)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, "", err
			}
			contentType := mime.TypeByExtension(filepath.Ext(path))
			if contentType == "" {
				contentType = "application/octet-stream"
			}
			if f.ContentType != nil {
				contentType, err = store.String(*f.ContentType)
				if err != nil {
					return nil, "", err
				}
			}
			header := make(textproto.MIMEHeader)
			header.Set("Content-Disposition",
				fmt.Sprintf(`form-data; name=%q; filename=%q`, name, filepath.Base(path)))
			header.Set("Content-Type", contentType)
			part, err := w.CreatePart(header)
			if err != nil {
				return nil, "", err
			}
			if _, err := part.Write(data); err != nil {
				return nil, "", err
			}
		} else {
			val, err := store.String(f.Value)
			if err != nil {
				return nil, "", err
			}
			if err := w.WriteField(name, val); err != nil {
				return nil, "", err
			}
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return []byte(buf.String()), w.FormDataContentType(), nil
}

func requestHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func requestPath(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "/"
	}
	if u.Path == "" {
		return "/"
	}
	return u.Path
}
