package feed

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// Declaration is written verbatim in front of the serialized root element.
const Declaration = `<?xml version="1.0" standalone="yes"?>` + "\n"

// itemInsertIndex is the channel element position of the newest item,
// right after the leading metadata element.
const itemInsertIndex = 1

var (
	// ErrMalformedFeed is returned when the feed is not well-formed XML.
	ErrMalformedFeed = errors.New("malformed feed")
	// ErrMissingChannel is returned when the feed has no channel element.
	ErrMissingChannel = errors.New("feed has no channel element")
	// errMalformedItem is returned when the item fragment does not parse to a single element.
	errMalformedItem = errors.New("malformed item fragment")
)

// Document is a parsed appcast.
type Document struct {
	tree *etree.Document
}

// Parse reads an appcast from data.
func Parse(data []byte) (*Document, error) {
	tree := etree.NewDocument()
	if err := tree.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedFeed, err)
	}

	if tree.Root() == nil {
		return nil, fmt.Errorf("%w: no root element", ErrMalformedFeed)
	}

	return &Document{tree: tree}, nil
}

// Channel returns the first channel element at any depth.
func (d *Document) Channel() (*etree.Element, error) {
	channel := d.tree.FindElement("//channel")
	if channel == nil {
		return nil, ErrMissingChannel
	}

	return channel, nil
}

// ItemCount returns the number of item elements directly under the channel.
func (d *Document) ItemCount() (int, error) {
	channel, err := d.Channel()
	if err != nil {
		return 0, err
	}

	return len(channel.SelectElements("item")), nil
}

// NewestItem returns the channel element at the position InsertItem writes
// to, or nil when that element is not an item.
func (d *Document) NewestItem() (*etree.Element, error) {
	channel, err := d.Channel()
	if err != nil {
		return nil, err
	}

	elements := channel.ChildElements()
	if len(elements) == 0 {
		return nil, nil //nolint:nilnil // An empty channel has no newest item.
	}

	newest := elements[min(itemInsertIndex, len(elements)-1)]
	if newest.Tag != "item" {
		return nil, nil //nolint:nilnil // The leading metadata element is not an item.
	}

	return newest, nil
}

// InsertItem parses fragment and inserts it as the channel's second element,
// ahead of the previously newest item. Channels with fewer than two elements
// get the item appended.
func (d *Document) InsertItem(fragment string) error {
	channel, err := d.Channel()
	if err != nil {
		return err
	}

	parsed := etree.NewDocument()
	if err = parsed.ReadFromString(fragment); err != nil {
		return fmt.Errorf("%w: %w", errMalformedItem, err)
	}

	item := parsed.Root()
	if item == nil {
		return errMalformedItem
	}

	dropInheritedNamespaces(channel, item)

	elements := channel.ChildElements()
	if len(elements) <= itemInsertIndex {
		channel.AddChild(item)

		return nil
	}

	index := elements[itemInsertIndex].Index()
	indent := precedingIndent(channel, index)

	if indent != "" {
		reindent(item, indent)
	}

	channel.InsertChildAt(index, item)

	if indent != "" {
		channel.InsertChildAt(index+1, etree.NewText(indent))
	}

	return nil
}

// BindNamespace declares prefix on the root element unless it is already declared.
func (d *Document) BindNamespace(prefix, uri string) {
	root := d.tree.Root()
	if root.SelectAttr("xmlns:"+prefix) == nil {
		root.CreateAttr("xmlns:"+prefix, uri)
	}
}

// Bytes serializes the document as the declaration followed by the root
// element. Whatever prolog the source had is not repeated.
func (d *Document) Bytes() ([]byte, error) {
	out := etree.NewDocument()
	out.WriteSettings = d.tree.WriteSettings
	out.SetRoot(d.tree.Root().Copy())

	var buf bytes.Buffer

	buf.WriteString(Declaration)

	if _, err := out.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("serialize feed: %w", err)
	}

	return buf.Bytes(), nil
}

// dropInheritedNamespaces removes namespace declarations on item that an
// ancestor of channel (or channel itself) already binds to the same URI.
func dropInheritedNamespaces(channel, item *etree.Element) {
	declared := make([]etree.Attr, 0, len(item.Attr))
	for _, attr := range item.Attr {
		if attr.Space == "xmlns" {
			declared = append(declared, attr)
		}
	}

	for _, attr := range declared {
		for scope := channel; scope != nil; scope = scope.Parent() {
			if value := scope.SelectAttrValue(attr.FullKey(), ""); value != "" {
				if value == attr.Value {
					item.RemoveAttr(attr.FullKey())
				}

				break
			}
		}
	}
}

// precedingIndent returns the whitespace text directly before child index, if any.
func precedingIndent(parent *etree.Element, index int) string {
	if index == 0 {
		return ""
	}

	text, ok := parent.Child[index-1].(*etree.CharData)
	if !ok || !text.IsWhitespace() || !strings.Contains(text.Data, "\n") {
		return ""
	}

	return text.Data
}

// reindent shifts the item's own line breaks to the depth given by indent,
// the whitespace that precedes sibling elements.
func reindent(item *etree.Element, indent string) {
	base := indent[strings.LastIndex(indent, "\n")+1:]

	for _, token := range item.Child {
		if text, ok := token.(*etree.CharData); ok && text.IsWhitespace() {
			text.Data = strings.ReplaceAll(text.Data, "\n", "\n"+base)
		}
	}
}
