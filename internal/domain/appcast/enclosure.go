package appcast

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/beevik/etree"

	"github.com/theacharya/appcast-updater/internal/logger"
)

// ErrNoMatch is returned when the signing descriptor carries no edSignature/length pair.
var ErrNoMatch = errors.New("no match found")

// signaturePattern matches the canonical sign_update output. The prefix of
// edSignature is not part of the pattern so both "sparkle:edSignature" and a
// bare "edSignature" are accepted.
var signaturePattern = regexp.MustCompile(`edSignature="([^"]+)" length="([^"]+)"`)

const (
	signatureAttr = "edSignature"
	lengthAttr    = "length"
)

// EnclosureInfo holds the values sign_update computed for the release archive.
type EnclosureInfo struct {
	// Signature is the base64 EdDSA signature of the archive.
	Signature string
	// Length is the archive size in bytes, kept as text exactly as printed.
	Length string
}

// ExtractEnclosureInfo pulls the signature and length out of sign_update output.
//
// The canonical `edSignature="…" length="…"` form is matched first and its
// captures are returned verbatim. Output that does not follow that exact
// layout (attributes reordered, single quotes, extra spacing) is read as the
// attribute list of an XML element.
func ExtractEnclosureInfo(ctx context.Context, blob string) (*EnclosureInfo, error) {
	if match := signaturePattern.FindStringSubmatch(blob); match != nil {
		info := &EnclosureInfo{
			Signature: match[1],
			Length:    match[2],
		}
		logEnclosure(ctx, info)

		return info, nil
	}

	if info, ok := parseAttributes(blob); ok {
		logEnclosure(ctx, info)

		return info, nil
	}

	logger.Warn(ctx, "No match found.")

	return nil, ErrNoMatch
}

// parseAttributes treats blob as the attributes of a synthetic element.
func parseAttributes(blob string) (*EnclosureInfo, bool) {
	blob = strings.TrimSpace(blob)
	if blob == "" || strings.ContainsAny(blob, "<>") {
		return nil, false
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromString("<enclosure " + blob + "/>"); err != nil {
		return nil, false
	}

	root := doc.Root()
	if root == nil {
		return nil, false
	}

	info := new(EnclosureInfo)

	for _, attr := range root.Attr {
		switch attr.Key {
		case signatureAttr:
			info.Signature = attr.Value
		case lengthAttr:
			info.Length = attr.Value
		}
	}

	if info.Signature == "" || info.Length == "" {
		return nil, false
	}

	return info, true
}

func logEnclosure(ctx context.Context, info *EnclosureInfo) {
	logger.InfoKV(ctx, "Extracted enclosure info", "edSignature", info.Signature, "length", info.Length)
}
