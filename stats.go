package alohakvs

// Stats is a snapshot of a stream's queue and counters.
type Stats struct {
	PendingFrames int
	VideoFrames   int
	AudioFrames   int

	// Same value MemStatTotal reports.
	MemTotal int

	Enqueued uint64
	Dequeued uint64

	// Number of full-list delta timestamp correction passes.
	Corrections uint64

	// Number of tags blocks injected, boundary and trailing.
	TagsInjected uint64
}

func (s *Stream) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{
		PendingFrames: s.pending.Len(),
		Enqueued:      s.enqueued,
		Dequeued:      s.dequeued,
		Corrections:   s.corrections,
		TagsInjected:  s.tags.injected,
	}
	if !s.closed {
		st.MemTotal = s.memTotal()
	}
	for e := s.pending.Front(); e != nil; e = e.Next() {
		switch e.Value.(*Frame).in.Track {
		case TrackVideo:
			st.VideoFrames++
		case TrackAudio:
			st.AudioFrames++
		}
	}
	return st
}
