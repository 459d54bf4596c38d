package runner

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/hurlrunner/hurl/internal/query"
)

// signAWSSigV4 implements the "[Options] aws-sigv4: service:region" auth
// strategy (spec §6.3's option list), an alternative to Basic Auth taken
// when the option is present on an entry. No corpus example repo
// vendors an AWS SDK, so this follows the published Signature Version 4
// algorithm directly against stdlib crypto/hmac+sha256 rather than
// inventing a dependency nothing in the pack grounds.
//
// Credentials come from the environment (AWS_ACCESS_KEY_ID,
// AWS_SECRET_ACCESS_KEY, optional AWS_SESSION_TOKEN), matching how every
// AWS CLI/SDK resolves them by default.
func signAWSSigV4(method, rawURL string, headers []query.NameValue, body []byte, spec string) ([]query.NameValue, error) {
	service, region, ok := strings.Cut(spec, ":")
	if !ok || service == "" || region == "" {
		return nil, fmt.Errorf("invalid aws-sigv4 option %q, expected \"service:region\"", spec)
	}

	accessKey := os.Getenv("AWS_ACCESS_KEY_ID")
	secretKey := os.Getenv("AWS_SECRET_ACCESS_KEY")
	if accessKey == "" || secretKey == "" {
		return nil, fmt.Errorf("aws-sigv4 requires AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY")
	}
	sessionToken := os.Getenv("AWS_SESSION_TOKEN")

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("aws-sigv4: invalid URL: %w", err)
	}

	now := time.Now().UTC()
	amzDate := now.Format("20060102T150405Z")
	dateStamp := now.Format("20060102")

	payloadHash := sha256Hex(body)

	signedHeaders := map[string]string{
		"host":                 u.Host,
		"x-amz-date":           amzDate,
		"x-amz-content-sha256": payloadHash,
	}
	if sessionToken != "" {
		signedHeaders["x-amz-security-token"] = sessionToken
	}
	for _, h := range headers {
		signedHeaders[strings.ToLower(h.Name)] = strings.TrimSpace(h.Value)
	}

	names := make([]string, 0, len(signedHeaders))
	for name := range signedHeaders {
		names = append(names, name)
	}
	sort.Strings(names)

	var canonicalHeaders strings.Builder
	for _, name := range names {
		canonicalHeaders.WriteString(name)
		canonicalHeaders.WriteByte(':')
		canonicalHeaders.WriteString(signedHeaders[name])
		canonicalHeaders.WriteByte('\n')
	}
	signedHeaderList := strings.Join(names, ";")

	canonicalRequest := strings.Join([]string{
		method,
		canonicalPath(u.Path),
		canonicalQuery(u.RawQuery),
		canonicalHeaders.String(),
		signedHeaderList,
		payloadHash,
	}, "\n")

	credentialScope := fmt.Sprintf("%s/%s/%s/aws4_request", dateStamp, region, service)
	stringToSign := strings.Join([]string{
		"AWS4-HMAC-SHA256",
		amzDate,
		credentialScope,
		sha256Hex([]byte(canonicalRequest)),
	}, "\n")

	signingKey := deriveSigningKey(secretKey, dateStamp, region, service)
	signature := hex.EncodeToString(hmacSHA256(signingKey, stringToSign))

	authHeader := fmt.Sprintf(
		"AWS4-HMAC-SHA256 Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		accessKey, credentialScope, signedHeaderList, signature,
	)

	out := append([]query.NameValue{}, headers...)
	out = append(out,
		query.NameValue{Name: "X-Amz-Date", Value: amzDate},
		query.NameValue{Name: "X-Amz-Content-Sha256", Value: payloadHash},
		query.NameValue{Name: "Authorization", Value: authHeader},
	)
	if sessionToken != "" {
		out = append(out, query.NameValue{Name: "X-Amz-Security-Token", Value: sessionToken})
	}
	return out, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func hmacSHA256(key []byte, data string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(data))
	return mac.Sum(nil)
}

func deriveSigningKey(secretKey, dateStamp, region, service string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+secretKey), dateStamp)
	kRegion := hmacSHA256(kDate, region)
	kService := hmacSHA256(kRegion, service)
	return hmacSHA256(kService, "aws4_request")
}

func canonicalPath(p string) string {
	if p == "" {
		return "/"
	}
	return p
}

func canonicalQuery(raw string) string {
	if raw == "" {
		return ""
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return ""
	}
	var pairs []string
	for k, vs := range values {
		for _, v := range vs {
			pairs = append(pairs, url.QueryEscape(k)+"="+url.QueryEscape(v))
		}
	}
	sort.Strings(pairs)
	return strings.Join(pairs, "&")
}
