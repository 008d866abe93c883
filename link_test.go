package linkdex_test

import (
	"testing"

	"github.com/fwojciec/linkdex"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeLink(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		raw        string
		wantURL    string
		wantExtern string
	}{
		{
			name:       "strips redirect wrapper and tracking parameters",
			raw:        "https://www.google.com/url?q=https://mega.nz/folder/AbC123%23key&sa=D&source=editors",
			wantURL:    "https://mega.nz/folder/AbC123%23key",
			wantExtern: "AbC123%23key",
		},
		{
			name:       "keeps escapes of reserved characters",
			raw:        "https://example.com/a%2Fb%3Fc%26d%23e",
			wantURL:    "https://example.com/a%2Fb%3Fc%26d%23e",
			wantExtern: "",
		},
		{
			name:       "decodes escapes mixed with reserved ones",
			raw:        "https://example.com/caf%C3%A9%20menu%2F2",
			wantURL:    "https://example.com/café menu%2F2",
			wantExtern: "",
		},
		{
			name:       "keeps a real fragment after the folder id",
			raw:        "https://mega.nz/folder/AbC123#key",
			wantURL:    "https://mega.nz/folder/AbC123#key",
			wantExtern: "AbC123",
		},
		{
			name:       "keeps escapes that do not form valid UTF-8 as-is",
			raw:        "https://example.com/%C3",
			wantURL:    "https://example.com/%C3",
			wantExtern: "",
		},
		{
			name:       "passes through unwrapped links decoded",
			raw:        "https://example.com/some%20book",
			wantURL:    "https://example.com/some book",
			wantExtern: "",
		},
		{
			name:       "keeps ampersands of unwrapped links",
			raw:        "https://example.com/?a=1&b=2",
			wantURL:    "https://example.com/?a=1&b=2",
			wantExtern: "",
		},
		{
			name:       "extracts folder id without fragment",
			raw:        "https://mega.nz/folder/XyZ",
			wantURL:    "https://mega.nz/folder/XyZ",
			wantExtern: "XyZ",
		},
		{
			name:       "keeps undecodable input as-is",
			raw:        "https://example.com/100%",
			wantURL:    "https://example.com/100%",
			wantExtern: "",
		},
		{
			name:       "trims surrounding whitespace",
			raw:        "  https://example.com/a  ",
			wantURL:    "https://example.com/a",
			wantExtern: "",
		},
		{
			name:       "empty input stays empty",
			raw:        "",
			wantURL:    "",
			wantExtern: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := linkdex.NormalizeLink(tt.raw)

			assert.Equal(t, tt.wantURL, got.URL)
			assert.Equal(t, tt.wantExtern, got.ExternalID)
		})
	}
}
