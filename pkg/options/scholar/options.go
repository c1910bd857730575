// Package scholar provides the retrieval pipeline configuration:
// chunking bounds, collection names and search behavior.
package scholar

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/kart-io/scholar-x/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Storage drivers.
const (
	DriverMilvus = "milvus"
	DriverMemory = "memory"
)

// DefaultAnswerPrompt is the template used for answer synthesis. The
// {{context}} and {{question}} placeholders are filled at query time.
const DefaultAnswerPrompt = `You are a research assistant answering questions about academic papers.
Use only the following context to answer the question. If the context does
not contain the answer, say so.

Context:
{{context}}

Question: {{question}}

Answer:`

// Options contains the retrieval pipeline configuration.
type Options struct {
	// Driver selects the vector storage backend (milvus or memory).
	Driver string `json:"driver" mapstructure:"driver"`

	// FineCollection and CoarseCollection are the two chunk collections.
	FineCollection   string `json:"fine-collection" mapstructure:"fine-collection"`
	CoarseCollection string `json:"coarse-collection" mapstructure:"coarse-collection"`

	// EmbeddingDim is the dimension of the embedding vectors.
	EmbeddingDim int `json:"embedding-dim" mapstructure:"embedding-dim"`

	// Fine chunk bounds.
	FineMinChars     int `json:"fine-min-chars" mapstructure:"fine-min-chars"`
	FineMaxChars     int `json:"fine-max-chars" mapstructure:"fine-max-chars"`
	FineMaxSentences int `json:"fine-max-sentences" mapstructure:"fine-max-sentences"`

	// Coarse chunk bounds.
	CoarseMinChars     int `json:"coarse-min-chars" mapstructure:"coarse-min-chars"`
	CoarseMaxChars     int `json:"coarse-max-chars" mapstructure:"coarse-max-chars"`
	CoarseMinTokens    int `json:"coarse-min-tokens" mapstructure:"coarse-min-tokens"`
	CoarseMaxTokens    int `json:"coarse-max-tokens" mapstructure:"coarse-max-tokens"`
	CoarseOverlapChars int `json:"coarse-overlap-chars" mapstructure:"coarse-overlap-chars"`

	// CitationThreshold is the minimum top-1 similarity for a citation
	// match. The comparison is inclusive.
	CitationThreshold float64 `json:"citation-threshold" mapstructure:"citation-threshold"`

	// TopK is the default number of context search results.
	TopK int `json:"top-k" mapstructure:"top-k"`

	// MinChunkChars is the default cutoff for the short-chunk cleanup.
	MinChunkChars int `json:"min-chunk-chars" mapstructure:"min-chunk-chars"`

	// EmbedWorkers sizes the shared embedding worker pool.
	EmbedWorkers int `json:"embed-workers" mapstructure:"embed-workers"`

	// EmbedBatchSize caps the number of texts per embedding request.
	EmbedBatchSize int `json:"embed-batch-size" mapstructure:"embed-batch-size"`

	// AnswerPrompt is the synthesis prompt template.
	AnswerPrompt string `json:"answer-prompt" mapstructure:"answer-prompt"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		Driver:             DriverMilvus,
		FineCollection:     "fine_chunks",
		CoarseCollection:   "coarse_chunks",
		EmbeddingDim:       768, // nomic-embed-text dimension
		FineMinChars:       300,
		FineMaxChars:       500,
		FineMaxSentences:   3,
		CoarseMinChars:     1000,
		CoarseMaxChars:     1500,
		CoarseMinTokens:    300,
		CoarseMaxTokens:    512,
		CoarseOverlapChars: 200,
		CitationThreshold:  0.8,
		TopK:               3,
		MinChunkChars:      50,
		EmbedWorkers:       4,
		EmbedBatchSize:     32,
		AnswerPrompt:       DefaultAnswerPrompt,
	}
}

// AddFlags adds flags for scholar options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	join := options.Join(prefixes...)
	fs.StringVar(&o.Driver, join+"scholar.driver", o.Driver, "Vector storage driver (milvus or memory).")
	fs.StringVar(&o.FineCollection, join+"scholar.fine-collection", o.FineCollection, "Fine chunk collection name.")
	fs.StringVar(&o.CoarseCollection, join+"scholar.coarse-collection", o.CoarseCollection, "Coarse chunk collection name.")
	fs.IntVar(&o.EmbeddingDim, join+"scholar.embedding-dim", o.EmbeddingDim, "Embedding vector dimension.")
	fs.IntVar(&o.FineMinChars, join+"scholar.fine-min-chars", o.FineMinChars, "Fine chunk minimum characters.")
	fs.IntVar(&o.FineMaxChars, join+"scholar.fine-max-chars", o.FineMaxChars, "Fine chunk maximum characters.")
	fs.IntVar(&o.FineMaxSentences, join+"scholar.fine-max-sentences", o.FineMaxSentences, "Fine chunk maximum sentences.")
	fs.IntVar(&o.CoarseMinChars, join+"scholar.coarse-min-chars", o.CoarseMinChars, "Coarse chunk minimum characters.")
	fs.IntVar(&o.CoarseMaxChars, join+"scholar.coarse-max-chars", o.CoarseMaxChars, "Coarse chunk maximum characters.")
	fs.IntVar(&o.CoarseMinTokens, join+"scholar.coarse-min-tokens", o.CoarseMinTokens, "Coarse chunk minimum tokens.")
	fs.IntVar(&o.CoarseMaxTokens, join+"scholar.coarse-max-tokens", o.CoarseMaxTokens, "Coarse chunk maximum tokens.")
	fs.IntVar(&o.CoarseOverlapChars, join+"scholar.coarse-overlap-chars", o.CoarseOverlapChars, "Approximate overlap between coarse chunks in characters.")
	fs.Float64Var(&o.CitationThreshold, join+"scholar.citation-threshold", o.CitationThreshold, "Minimum similarity for a citation match (inclusive).")
	fs.IntVar(&o.TopK, join+"scholar.top-k", o.TopK, "Default number of search results.")
	fs.IntVar(&o.MinChunkChars, join+"scholar.min-chunk-chars", o.MinChunkChars, "Default cutoff for short-chunk cleanup.")
	fs.IntVar(&o.EmbedWorkers, join+"scholar.embed-workers", o.EmbedWorkers, "Embedding worker pool size.")
	fs.IntVar(&o.EmbedBatchSize, join+"scholar.embed-batch-size", o.EmbedBatchSize, "Texts per embedding request.")
}

// Validate validates the scholar options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Driver != DriverMilvus && o.Driver != DriverMemory {
		errs = append(errs, fmt.Errorf("driver must be %q or %q", DriverMilvus, DriverMemory))
	}
	if o.FineCollection == "" || o.CoarseCollection == "" {
		errs = append(errs, fmt.Errorf("collection names are required"))
	}
	if o.FineCollection == o.CoarseCollection {
		errs = append(errs, fmt.Errorf("fine and coarse collections must differ"))
	}
	if o.EmbeddingDim <= 0 {
		errs = append(errs, fmt.Errorf("embedding-dim must be positive"))
	}
	if o.FineMinChars <= 0 || o.FineMaxChars < o.FineMinChars {
		errs = append(errs, fmt.Errorf("fine chunk bounds must satisfy 0 < min <= max"))
	}
	if o.FineMaxSentences <= 0 {
		errs = append(errs, fmt.Errorf("fine-max-sentences must be positive"))
	}
	if o.CoarseMinChars <= 0 || o.CoarseMaxChars < o.CoarseMinChars {
		errs = append(errs, fmt.Errorf("coarse chunk char bounds must satisfy 0 < min <= max"))
	}
	if o.CoarseMinTokens <= 0 || o.CoarseMaxTokens < o.CoarseMinTokens {
		errs = append(errs, fmt.Errorf("coarse chunk token bounds must satisfy 0 < min <= max"))
	}
	if o.CoarseOverlapChars < 0 || o.CoarseOverlapChars >= o.CoarseMaxChars {
		errs = append(errs, fmt.Errorf("coarse-overlap-chars must be in [0, coarse-max-chars)"))
	}
	if o.CitationThreshold < 0 || o.CitationThreshold > 1 {
		errs = append(errs, fmt.Errorf("citation-threshold must be in [0, 1]"))
	}
	if o.TopK <= 0 {
		errs = append(errs, fmt.Errorf("top-k must be positive"))
	}
	if o.EmbedWorkers <= 0 {
		errs = append(errs, fmt.Errorf("embed-workers must be positive"))
	}
	if o.EmbedBatchSize <= 0 {
		errs = append(errs, fmt.Errorf("embed-batch-size must be positive"))
	}
	return errs
}

// Complete completes the scholar options with defaults.
func (o *Options) Complete() error {
	if o.AnswerPrompt == "" {
		o.AnswerPrompt = DefaultAnswerPrompt
	}
	return nil
}
