package mkv

import "github.com/google/uuid"

// Codec renders Matroska headers. The zero value is usable.
type Codec struct {
	// Written to the MuxingApp and WritingApp elements.
	AppName string

	// Generates the SegmentUID. Defaults to a random UUID.
	NewSegmentUID func() uuid.UUID
}

var DefaultCodec = &Codec{AppName: "alohakvs"}

func (c *Codec) appName() string {
	if c.AppName == "" {
		return DefaultCodec.AppName
	}
	return c.AppName
}

func (c *Codec) ClusterHeaderLen(ct ClusterType) int {
	return HeaderLen(ct)
}

func (c *Codec) RenderClusterHeader(buf []byte, h ClusterHeader) error {
	return RenderClusterHeader(buf, h)
}

func (c *Codec) RenderTags(tags []Tag) ([]byte, error) {
	return renderTags(tags)
}

func (c *Codec) SegmentHeader(video *VideoTrackInfo, audio *AudioTrackInfo) ([]byte, error) {
	return c.segmentHeader(video, audio)
}
