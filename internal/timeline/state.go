package timeline

// State is the lifecycle position of one date.
type State int

const (
	// NoData means no remote-sensing artifact exists for the date.
	NoData State = iota
	// Candidate means at least one modality has an artifact.
	Candidate
	// Emitted means a record was handed to the writer.
	Emitted
)

func (s State) String() string {
	switch s {
	case NoData:
		return "no_data"
	case Candidate:
		return "candidate"
	case Emitted:
		return "emitted"
	default:
		return "unknown"
	}
}
