package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Parsing the same source twice must yield structurally identical ASTs:
// the parser has no hidden state (timestamps, counters, map iteration)
// that could make two runs over the same bytes disagree.
func TestParseIsDeterministic(t *testing.T) {
	sources := []struct {
		name string
		src  string
	}{
		{
			name: "simple get",
			src: `GET https://example.org/api
HTTP 200
`,
		},
		{
			name: "captures and asserts",
			src: `POST https://example.org/login
Content-Type: application/json
{
  "user": "alice"
}
HTTP 200
[Captures]
token: jsonpath "$.token"
[Asserts]
status == 200
header "Content-Type" contains "json"
jsonpath "$.ok" == true
`,
		},
		{
			name: "options and multiple entries",
			src: `GET https://example.org/one
[Options]
retry: 3
delay: 100
HTTP 200

GET https://example.org/two
HTTP *
[Asserts]
status >= 200
status < 300
`,
		},
	}

	for _, tc := range sources {
		t.Run(tc.name, func(t *testing.T) {
			first, err := Parse("roundtrip.hurl", []byte(tc.src))
			require.NoError(t, err)
			second, err := Parse("roundtrip.hurl", []byte(tc.src))
			require.NoError(t, err)

			assert.Equal(t, first, second)
		})
	}
}
