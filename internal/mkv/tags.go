package mkv

import (
	"bytes"

	"github.com/at-wat/ebml-go"
	"github.com/pkg/errors"
)

const (
	MaxTagNameLen  = 128
	MaxTagValueLen = 256
)

// Tag is a single key/value pair in a tags block.
type Tag struct {
	Name  string
	Value string
}

func (t Tag) Validate() error {
	switch {
	case t.Name == "":
		return errors.Wrap(ErrInvalidTag, "empty tag name")
	case len(t.Name) > MaxTagNameLen:
		return errors.Wrapf(ErrInvalidTag, "tag name longer than %d bytes", MaxTagNameLen)
	case len(t.Value) > MaxTagValueLen:
		return errors.Wrapf(ErrInvalidTag, "value of tag %s longer than %d bytes", t.Name, MaxTagValueLen)
	}
	return nil
}

type simpleTag struct {
	TagName   string
	TagString string
}

type tagEntry struct {
	SimpleTag []simpleTag
}

type tagList struct {
	Tag []tagEntry
}

type tagsBlock struct {
	Tags tagList `ebml:"Tags"`
}

func renderTags(tags []Tag) ([]byte, error) {
	if len(tags) == 0 {
		return nil, errors.Wrap(ErrInvalidTag, "no tags to render")
	}

	var block tagsBlock
	for _, t := range tags {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		block.Tags.Tag = append(block.Tags.Tag, tagEntry{
			SimpleTag: []simpleTag{{TagName: t.Name, TagString: t.Value}},
		})
	}

	var buf bytes.Buffer
	if err := ebml.Marshal(&block, &buf); err != nil {
		return nil, errors.Wrap(ErrEncoding, err.Error())
	}
	return buf.Bytes(), nil
}

// ParseTags decodes a tags block rendered by RenderTags.
func ParseTags(b []byte) ([]Tag, error) {
	var block tagsBlock
	if err := ebml.Unmarshal(bytes.NewReader(b), &block); err != nil {
		return nil, errors.Wrap(ErrMalformed, err.Error())
	}

	var tags []Tag
	for _, e := range block.Tags.Tag {
		for _, st := range e.SimpleTag {
			tags = append(tags, Tag{Name: st.TagName, Value: st.TagString})
		}
	}
	return tags, nil
}
