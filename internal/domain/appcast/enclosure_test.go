package appcast

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestExtractEnclosureInfo verifies signature and length are returned verbatim for supported layouts.
func TestExtractEnclosureInfo(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		blob      string
		signature string
		length    string
	}{
		{
			name:      "sign_update output",
			blob:      `sparkle:edSignature="abc123" length="4096"`,
			signature: "abc123",
			length:    "4096",
		},
		{
			name:      "bare attribute name",
			blob:      `edSignature="abc123" length="4096"`,
			signature: "abc123",
			length:    "4096",
		},
		{
			name:      "surrounded by other output",
			blob:      "Signing Marker-Data.dmg\nsparkle:edSignature=\"x+y/z==\" length=\"123456\"\nDone",
			signature: "x+y/z==",
			length:    "123456",
		},
		{
			name:      "special characters kept verbatim",
			blob:      `sparkle:edSignature="a&amp;b<c>'d" length="1 024"`,
			signature: "a&amp;b<c>'d",
			length:    "1 024",
		},
		{
			name:      "reordered attributes",
			blob:      `length="77" sparkle:edSignature="sig=="`,
			signature: "sig==",
			length:    "77",
		},
		{
			name:      "single quotes and extra spacing",
			blob:      `sparkle:edSignature='sig'   length='88'`,
			signature: "sig",
			length:    "88",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			info, err := ExtractEnclosureInfo(context.Background(), tc.blob)
			require.NoError(t, err)
			require.Equal(t, tc.signature, info.Signature)
			require.Equal(t, tc.length, info.Length)
		})
	}
}

// TestExtractEnclosureInfo_NoMatch ensures descriptors without the pair report ErrNoMatch.
func TestExtractEnclosureInfo_NoMatch(t *testing.T) {
	t.Parallel()

	blobs := []string{
		"",
		"ERROR: unable to find private key",
		`sparkle:edSignature="abc123"`,
		`length="4096"`,
		`sparkle:edSignature="" length=""`,
		`<broken sparkle:edSignature='a'>`,
	}

	for _, blob := range blobs {
		info, err := ExtractEnclosureInfo(context.Background(), blob)
		require.ErrorIs(t, err, ErrNoMatch, blob)
		require.Nil(t, info)
	}
}
