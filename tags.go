package alohakvs

import (
	"strconv"
	"strings"

	"github.com/golang/groupcache/lru"
	errors "golang.org/x/xerrors"
)

// Tag appended whenever tags mark the end of a fragment.
const EndOfFragmentTagName = "AWS_KINESISVIDEO_END_OF_FRAGMENT"

type injectMode int

const (
	// Prepend a tags block to the header of every cluster head after the
	// first.
	injectBoundary injectMode = iota

	// Append a tags block to the payload of the final frame, once.
	injectTrailing
)

// Per-stream tag injection state.
type tagInjector struct {
	// Number of cluster heads counted by boundary injection.
	clusters uint32

	trailingDone bool

	// Rendered tags blocks keyed by tag list. Nil when disabled.
	cache *lru.Cache

	injected uint64
}

func (t *tagInjector) init(cacheSize int) {
	if cacheSize == 0 {
		cacheSize = defaultTagCacheSize
	}
	if cacheSize > 0 {
		t.cache = lru.New(cacheSize)
	}
}

func (t *tagInjector) reset() {
	if t.cache != nil {
		t.cache.Clear()
	}
}

// Fields are length-prefixed, so no name or value can forge a separator.
func cacheKey(tags []Tag) string {
	var b strings.Builder
	for _, t := range tags {
		b.WriteString(strconv.Itoa(len(t.Name)))
		b.WriteByte(':')
		b.WriteString(t.Name)
		b.WriteString(strconv.Itoa(len(t.Value)))
		b.WriteByte(':')
		b.WriteString(t.Value)
	}
	return b.String()
}

// Render a tags block, reusing a previous rendering of the same list. The
// result is shared and must not be modified.
func (s *Stream) renderTags(tags []Tag) ([]byte, error) {
	var key string
	if s.tags.cache != nil {
		key = cacheKey(tags)
		if v, ok := s.tags.cache.Get(key); ok {
			return v.([]byte), nil
		}
	}

	block, err := s.codec.RenderTags(tags)
	if err != nil {
		return nil, errors.Errorf("render tags: %w", err)
	}
	if len(block) == 0 {
		return nil, errors.Errorf("empty tags block: %w", ErrEncoding)
	}

	if s.tags.cache != nil {
		s.tags.cache.Add(key, block)
	}
	return block, nil
}

func withEndOfFragment(tags []Tag) []Tag {
	// Never append into the caller's backing array.
	out := make([]Tag, len(tags), len(tags)+1)
	copy(out, tags)
	return append(out, Tag{Name: EndOfFragmentTagName})
}

// AddTags returns the frame's content for transmission, first prepending a
// tags block to its header if the frame opens any cluster but the stream's
// first. With endOfStream, an end-of-fragment tag is added to the list.
//
// Each cluster head is counted once, so calling AddTags again for the same
// frame returns its content unchanged. Frames that are not cluster heads are
// never modified.
func (s *Stream) AddTags(f *Frame, tags []Tag, endOfStream bool) (header, data []byte, err error) {
	if endOfStream {
		tags = withEndOfFragment(tags)
	}
	return s.injectTags(f, tags, injectBoundary)
}

// AddTrailingTags appends a tags block, ending with an end-of-fragment tag,
// to the frame's payload. The payload is copied into a buffer owned by the
// frame; the original is left alone. Only the first call on a stream has any
// effect.
func (s *Stream) AddTrailingTags(f *Frame, tags []Tag) (header, data []byte, err error) {
	return s.injectTags(f, withEndOfFragment(tags), injectTrailing)
}

func (s *Stream) injectTags(f *Frame, tags []Tag, mode injectMode) (header, data []byte, err error) {
	if s == nil || f == nil {
		return nil, nil, ErrInvalidArgument
	}
	if f.mu != &s.mu {
		return nil, nil, errors.Errorf("frame belongs to another stream: %w", ErrInvalidArgument)
	}
	for _, t := range tags {
		if verr := t.Validate(); verr != nil {
			return nil, nil, errors.Errorf("%v: %w", verr, ErrInvalidArgument)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, nil, ErrLock
	}
	if f.header == nil {
		return nil, nil, errors.Errorf("frame already released: %w", ErrInvalidArgument)
	}

	switch mode {
	case injectBoundary:
		if f.in.Cluster != ClusterHead || f.boundarySeen {
			break
		}
		if s.tags.clusters > 0 && len(tags) > 0 {
			block, err := s.renderTags(tags)
			if err != nil {
				log.Error("Failed to create tags for cluster #%d: %v", s.tags.clusters+1, err)
				return nil, nil, err
			}
			hdr := make([]byte, len(block)+len(f.header))
			n := copy(hdr, block)
			copy(hdr[n:], f.header)
			f.header = hdr
			f.clusterOffset += n
			s.tags.injected++
		}
		f.boundarySeen = true
		s.tags.clusters++
		log.Debug("Cluster #%d at %d ms, header %d bytes", s.tags.clusters, f.in.TimestampMs, len(f.header))

	case injectTrailing:
		if s.tags.trailingDone {
			break
		}
		block, err := s.renderTags(tags)
		if err != nil {
			log.Error("Failed to create trailing tags: %v", err)
			return nil, nil, err
		}
		// The block size in the header still covers only the original
		// payload, so the tags follow the block as a sibling element.
		buf := make([]byte, len(f.in.Data)+len(block))
		n := copy(buf, f.in.Data)
		copy(buf[n:], block)
		f.in.Data = buf
		f.ownsData = true
		s.tags.trailingDone = true
		s.tags.injected++
		log.Info("Final tags added, frame payload now %d bytes", len(buf))
	}

	header, data = f.content()
	return header, data, nil
}
