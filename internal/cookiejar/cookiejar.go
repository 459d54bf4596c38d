// Package cookiejar implements the per-session Netscape-format cookie
// store (spec §5): cookies set by one entry's response are available to
// every later entry in the same file, and the whole jar can be seeded
// from or dumped to a cookie-jar file on disk (--cookie-jar).
package cookiejar

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hurlrunner/hurl/internal/query"
)

// Jar is a flat, unsynchronized cookie table keyed by name+domain+path;
// callers needing concurrency safety (the parallel file worker pool)
// give each session its own Jar rather than sharing one.
type Jar struct {
	cookies []query.Cookie
}

func New() *Jar { return &Jar{} }

// Clone returns a deep-enough copy for a worker that must not mutate
// the shared base jar seeded from --cookie-jar.
func (j *Jar) Clone() *Jar {
	cp := make([]query.Cookie, len(j.cookies))
	copy(cp, j.cookies)
	return &Jar{cookies: cp}
}

// Set stores or replaces a cookie, matching on name+domain+path as the
// Netscape format does.
func (j *Jar) Set(c query.Cookie) {
	for i, existing := range j.cookies {
		if existing.Name == c.Name && existing.Domain == c.Domain && existing.Path == c.Path {
			j.cookies[i] = c
			return
		}
	}
	j.cookies = append(j.cookies, c)
}

// SetFromResponse absorbs every Set-Cookie entry a response carried.
func (j *Jar) SetFromResponse(host string, cookies []query.Cookie) {
	for _, c := range cookies {
		if c.Domain == "" {
			c.Domain = host
		}
		if c.Path == "" {
			c.Path = "/"
		}
		j.Set(c)
	}
}

// All returns every cookie currently in the jar.
func (j *Jar) All() []query.Cookie {
	return j.cookies
}

// ForRequest returns the cookies that apply to host+path, used to build
// the outgoing Cookie header (spec §5).
func (j *Jar) ForRequest(host, path string) []query.Cookie {
	var out []query.Cookie
	for _, c := range j.cookies {
		if !domainMatches(c.Domain, host) {
			continue
		}
		if !pathMatches(c.Path, path) {
			continue
		}
		if !c.Expires.IsZero() && c.Expires.Before(time.Now()) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func domainMatches(cookieDomain, host string) bool {
	cookieDomain = strings.TrimPrefix(cookieDomain, ".")
	host = strings.ToLower(host)
	cookieDomain = strings.ToLower(cookieDomain)
	return host == cookieDomain || strings.HasSuffix(host, "."+cookieDomain)
}

func pathMatches(cookiePath, reqPath string) bool {
	if cookiePath == "" || cookiePath == "/" {
		return true
	}
	return strings.HasPrefix(reqPath, cookiePath)
}

// Load seeds the jar from a Netscape cookie-jar file, the same format
// curl's --cookie-jar reads and writes.
func Load(path string) (*Jar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	j := New()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 7 {
			continue
		}
		expiresUnix, _ := strconv.ParseInt(fields[4], 10, 64)
		var expires time.Time
		if expiresUnix > 0 {
			expires = time.Unix(expiresUnix, 0).UTC()
		}
		j.cookies = append(j.cookies, query.Cookie{
			Domain:  fields[0],
			Path:    fields[2],
			Secure:  fields[3] == "TRUE",
			Expires: expires,
			Name:    fields[5],
			Value:   fields[6],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return j, nil
}

// Save writes the jar out in Netscape cookie-jar format.
func (j *Jar) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, "# Netscape HTTP Cookie File")
	for _, c := range j.cookies {
		var expires int64
		if !c.Expires.IsZero() {
			expires = c.Expires.Unix()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			c.Domain, boolFlag(true), c.Path, boolFlag(c.Secure), expires, c.Name, c.Value)
	}
	return w.Flush()
}

func boolFlag(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}
