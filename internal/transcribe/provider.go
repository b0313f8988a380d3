package transcribe

import "context"

// Model is a loaded speech-recognition model. Implementations must be safe for
// concurrent use; the local engine serializes inference internally.
type Model interface {
	Transcribe(ctx context.Context, audioPath string, opts Options) (*Response, error)
	Name() string // "whispercpp", "remote"
	Close() error
}

// Loader performs the expensive load of a model by identifier.
type Loader interface {
	Load(ctx context.Context, id string) (Model, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, id string) (Model, error)

func (f LoaderFunc) Load(ctx context.Context, id string) (Model, error) { return f(ctx, id) }

// Options are per-call options passed to a model.
type Options struct {
	Language string // "" = auto-detect
	FP16     bool   // half-precision compute; always false for now
	Verbose  bool   // log every decoded segment
}

// Response is the raw result from a model, before normalization.
type Response struct {
	Text     string
	Language string
	Duration float64 // audio duration in seconds, 0 if unknown
	Segments []Segment
}

// Segment is a timestamped span of transcribed speech.
type Segment struct {
	Start float64 `json:"start"` // seconds
	End   float64 `json:"end"`   // seconds
	Text  string  `json:"text"`
}
