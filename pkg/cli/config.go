package cli

import (
	"context"
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/resumerag/pkg/adapter"
	"github.com/m-mizutani/resumerag/pkg/chunker"
	"github.com/m-mizutani/resumerag/pkg/corpus"
	"github.com/m-mizutani/resumerag/pkg/embedding"
	"github.com/m-mizutani/resumerag/pkg/interfaces"
	"github.com/m-mizutani/resumerag/pkg/model"
	"github.com/m-mizutani/resumerag/pkg/policy"
	"github.com/m-mizutani/resumerag/pkg/repository"
	"github.com/m-mizutani/resumerag/pkg/synth"
	"github.com/m-mizutani/resumerag/pkg/usecase/conversation"
	"github.com/m-mizutani/resumerag/pkg/usecase/retrieval"
	"github.com/m-mizutani/resumerag/pkg/utils/logging"
	"github.com/m-mizutani/resumerag/pkg/utils/retry"
	"github.com/urfave/cli/v3"
)

// config holds configuration values
type config struct {
	// Logging
	logLevel  string
	logFormat string

	// Repository
	project    string
	database   string
	sqlitePath string

	// Gemini
	geminiProject   string
	geminiLocation  string
	geminiAPIKey    string
	generativeModel string
	embeddingModel  string
	rateLimit       float64

	// Retrieval and synthesis
	embedder    string
	dimension   int64
	seed        int64
	synthesizer string
	chunkSize   int64
	overlap     int64
	topK        int64
	maxAttempts int64
	timeout     time.Duration
	corpusFiles []string
	policyDir   string

	gemini *adapter.GeminiClient
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Aliases:     []string{"l"},
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("RESUMERAG_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "Log format (console, json)",
			Value:       "console",
			Sources:     cli.EnvVars("RESUMERAG_LOG_FORMAT"),
			Destination: &cfg.logFormat,
		},
	}
}

// repositoryFlags returns flags selecting session and chunk persistence
func repositoryFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "project",
			Aliases:     []string{"p"},
			Usage:       "Google Cloud project ID for Firestore",
			Sources:     cli.EnvVars("GOOGLE_CLOUD_PROJECT"),
			Destination: &cfg.project,
		},
		&cli.StringFlag{
			Name:        "database",
			Aliases:     []string{"d"},
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Sources:     cli.EnvVars("FIRESTORE_DATABASE_ID"),
			Destination: &cfg.database,
		},
		&cli.StringFlag{
			Name:        "sqlite",
			Usage:       "Path of a local SQLite session store, preferred over Firestore when set",
			Sources:     cli.EnvVars("RESUMERAG_SQLITE_PATH"),
			Destination: &cfg.sqlitePath,
		},
	}
}

// llmFlags returns flags for LLM-related configuration with destination config
func llmFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini on Vertex AI",
			Sources:     cli.EnvVars("GEMINI_PROJECT_ID"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini",
			Value:       "us-central1",
			Sources:     cli.EnvVars("GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "gemini-api-key",
			Usage:       "Gemini API key, used instead of Vertex AI when set",
			Sources:     cli.EnvVars("GEMINI_API_KEY"),
			Destination: &cfg.geminiAPIKey,
		},
		&cli.StringFlag{
			Name:        "gemini-model",
			Usage:       "Generative model for the gemini synthesizer",
			Value:       adapter.DefaultGenerativeModel,
			Sources:     cli.EnvVars("GEMINI_MODEL"),
			Destination: &cfg.generativeModel,
		},
		&cli.StringFlag{
			Name:        "gemini-embedding-model",
			Usage:       "Embedding model for the gemini embedder",
			Value:       adapter.DefaultEmbeddingModel,
			Sources:     cli.EnvVars("GEMINI_EMBEDDING_MODEL"),
			Destination: &cfg.embeddingModel,
		},
		&cli.FloatFlag{
			Name:        "rate-limit",
			Usage:       "Maximum Gemini requests per second, 0 for unlimited",
			Value:       5,
			Sources:     cli.EnvVars("RESUMERAG_RATE_LIMIT"),
			Destination: &cfg.rateLimit,
		},
	}
}

// ragFlags returns flags for indexing, retrieval and synthesis
func ragFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "embedder",
			Usage:       "Embedding provider (hash, gemini, random)",
			Value:       "hash",
			Sources:     cli.EnvVars("RESUMERAG_EMBEDDER"),
			Destination: &cfg.embedder,
		},
		&cli.IntFlag{
			Name:        "dimension",
			Usage:       "Embedding dimension",
			Value:       embedding.DefaultDimension,
			Sources:     cli.EnvVars("RESUMERAG_DIMENSION"),
			Destination: &cfg.dimension,
		},
		&cli.IntFlag{
			Name:        "seed",
			Usage:       "Seed of the random embedder",
			Value:       1,
			Sources:     cli.EnvVars("RESUMERAG_SEED"),
			Destination: &cfg.seed,
		},
		&cli.StringFlag{
			Name:        "synthesizer",
			Usage:       "Response synthesizer (extractive, gemini)",
			Value:       "extractive",
			Sources:     cli.EnvVars("RESUMERAG_SYNTHESIZER"),
			Destination: &cfg.synthesizer,
		},
		&cli.IntFlag{
			Name:        "chunk-size",
			Usage:       "Chunk size in characters",
			Value:       chunker.DefaultChunkSize,
			Sources:     cli.EnvVars("RESUMERAG_CHUNK_SIZE"),
			Destination: &cfg.chunkSize,
		},
		&cli.IntFlag{
			Name:        "overlap",
			Usage:       "Overlap between consecutive chunks in characters",
			Value:       chunker.DefaultOverlap,
			Sources:     cli.EnvVars("RESUMERAG_OVERLAP"),
			Destination: &cfg.overlap,
		},
		&cli.IntFlag{
			Name:        "top-k",
			Aliases:     []string{"k"},
			Usage:       "Number of chunks retrieved per question",
			Value:       conversation.DefaultTopK,
			Sources:     cli.EnvVars("RESUMERAG_TOP_K"),
			Destination: &cfg.topK,
		},
		&cli.IntFlag{
			Name:        "max-attempts",
			Usage:       "Attempts per embedding or synthesis call",
			Value:       3,
			Sources:     cli.EnvVars("RESUMERAG_MAX_ATTEMPTS"),
			Destination: &cfg.maxAttempts,
		},
		&cli.DurationFlag{
			Name:        "timeout",
			Usage:       "Timeout of a single embedding or synthesis attempt",
			Value:       30 * time.Second,
			Sources:     cli.EnvVars("RESUMERAG_TIMEOUT"),
			Destination: &cfg.timeout,
		},
		&cli.StringSliceFlag{
			Name:        "corpus",
			Aliases:     []string{"c"},
			Usage:       "Corpus file (.yaml, .toml, .json); the built-in resume is used when omitted",
			Sources:     cli.EnvVars("RESUMERAG_CORPUS"),
			Destination: &cfg.corpusFiles,
		},
		&cli.StringFlag{
			Name:        "policy-dir",
			Usage:       "Directory of Rego guard policies",
			Sources:     cli.EnvVars("RESUMERAG_POLICY_DIR"),
			Destination: &cfg.policyDir,
		},
	}
}

// setupLogger installs the configured logger as default and into ctx
func (cfg *config) setupLogger(ctx context.Context) context.Context {
	logger := logging.NewWithFormat(cfg.logLevel, logging.ParseFormat(cfg.logFormat), os.Stderr)
	logging.SetDefault(logger)
	return logging.With(ctx, logger)
}

// newGemini creates the Gemini adapter once and reuses it
func (cfg *config) newGemini(ctx context.Context) (*adapter.GeminiClient, error) {
	if cfg.gemini != nil {
		return cfg.gemini, nil
	}
	if cfg.geminiAPIKey == "" {
		if cfg.geminiProject == "" {
			return nil, goerr.New("gemini-project or gemini-api-key is required")
		}
		if cfg.geminiLocation == "" {
			return nil, goerr.New("gemini-location is required")
		}
	}

	client, err := adapter.NewGemini(ctx, adapter.GeminiConfig{
		Project:  cfg.geminiProject,
		Location: cfg.geminiLocation,
		APIKey:   cfg.geminiAPIKey,
	},
		adapter.WithGenerativeModel(cfg.generativeModel),
		adapter.WithEmbeddingModel(cfg.embeddingModel),
		adapter.WithRateLimit(cfg.rateLimit, int(max(1, cfg.rateLimit))),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create gemini client")
	}
	cfg.gemini = client
	return client, nil
}

func (cfg *config) newEmbedder(ctx context.Context) (interfaces.Embedder, error) {
	if cfg.dimension <= 0 {
		return nil, goerr.New("dimension must be positive", goerr.V("dimension", cfg.dimension))
	}
	dim := int(cfg.dimension)

	switch cfg.embedder {
	case "hash":
		return embedding.NewHash(dim), nil
	case "random":
		return embedding.NewRandom(dim, cfg.seed), nil
	case "gemini":
		client, err := cfg.newGemini(ctx)
		if err != nil {
			return nil, err
		}
		return embedding.NewGemini(client, dim), nil
	default:
		return nil, goerr.New("unknown embedder",
			goerr.V("embedder", cfg.embedder),
			goerr.V("supported", []string{"hash", "gemini", "random"}))
	}
}

func (cfg *config) newSynthesizer(ctx context.Context) (interfaces.Synthesizer, error) {
	switch cfg.synthesizer {
	case "extractive":
		return synth.NewExtractive(synth.WithFollowUps(corpus.FollowUps)), nil
	case "gemini":
		client, err := cfg.newGemini(ctx)
		if err != nil {
			return nil, err
		}
		return synth.NewGemini(client)
	default:
		return nil, goerr.New("unknown synthesizer",
			goerr.V("synthesizer", cfg.synthesizer),
			goerr.V("supported", []string{"extractive", "gemini"}))
	}
}

func (cfg *config) newRetryPolicy() retry.Policy {
	p := retry.DefaultPolicy()
	p.MaxAttempts = int(cfg.maxAttempts)
	p.Timeout = cfg.timeout
	p.Permanent = adapter.IsPermanent
	return p
}

func (cfg *config) newChunker() (*chunker.Chunker, error) {
	if cfg.chunkSize <= 0 || cfg.overlap < 0 || cfg.overlap >= cfg.chunkSize {
		return nil, goerr.New("invalid chunking configuration",
			goerr.V("chunk_size", cfg.chunkSize),
			goerr.V("overlap", cfg.overlap))
	}
	return chunker.New(chunker.WithChunkSize(int(cfg.chunkSize)), chunker.WithOverlap(int(cfg.overlap))), nil
}

// loadCorpus reads the configured corpus files or returns the built-in resume
func (cfg *config) loadCorpus() ([]*model.Document, error) {
	if len(cfg.corpusFiles) == 0 {
		return corpus.Default(), nil
	}
	return corpus.LoadFiles(cfg.corpusFiles...)
}

// newRetrieval builds the retrieval use case and indexes the corpus
func (cfg *config) newRetrieval(ctx context.Context, opts ...retrieval.Option) (*retrieval.UseCase, error) {
	embedder, err := cfg.newEmbedder(ctx)
	if err != nil {
		return nil, err
	}
	ch, err := cfg.newChunker()
	if err != nil {
		return nil, err
	}

	opts = append([]retrieval.Option{
		retrieval.WithChunker(ch),
		retrieval.WithRetry(cfg.newRetryPolicy()),
	}, opts...)
	uc := retrieval.New(embedder, opts...)

	if err := cfg.initialize(ctx, uc); err != nil {
		return nil, err
	}
	return uc, nil
}

func (cfg *config) initialize(ctx context.Context, uc *retrieval.UseCase) error {
	docs, err := cfg.loadCorpus()
	if err != nil {
		return err
	}
	report, err := uc.Initialize(ctx, docs)
	if err != nil {
		return goerr.Wrap(err, "failed to initialize index")
	}
	if report.Chunks == 0 && report.Err != nil {
		return goerr.Wrap(report.Err, "no document could be indexed")
	}
	return nil
}

// newSessionRepository returns SQLite when a path is set, Firestore when a
// project is set, or nil. The returned closer is never nil.
func (cfg *config) newSessionRepository(ctx context.Context) (interfaces.SessionRepository, func(), error) {
	switch {
	case cfg.sqlitePath != "":
		repo, err := repository.NewSQLite(ctx, cfg.sqlitePath)
		if err != nil {
			return nil, func() {}, err
		}
		return repo, closer(ctx, repo.Close), nil

	case cfg.project != "":
		repo, err := cfg.newFirestore(ctx)
		if err != nil {
			return nil, func() {}, err
		}
		return repo, closer(ctx, repo.Close), nil

	default:
		return nil, func() {}, nil
	}
}

func (cfg *config) newFirestore(ctx context.Context) (*repository.Firestore, error) {
	if cfg.project == "" {
		return nil, goerr.New("project is required")
	}
	if cfg.database == "" {
		return nil, goerr.New("database is required")
	}

	repo, err := repository.NewFirestore(ctx, cfg.project, cfg.database)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create repository")
	}
	return repo, nil
}

func (cfg *config) newGuard(ctx context.Context) (interfaces.Guard, error) {
	if cfg.policyDir == "" {
		return nil, nil
	}
	guard, err := policy.New(ctx, cfg.policyDir)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load guard policy", goerr.V("dir", cfg.policyDir))
	}
	return guard, nil
}

// sessionOptions builds the conversation options shared by chat, ask and mcp
func (cfg *config) sessionOptions(ctx context.Context) ([]conversation.Option, error) {
	synthesizer, err := cfg.newSynthesizer(ctx)
	if err != nil {
		return nil, err
	}
	opts := []conversation.Option{
		conversation.WithSynthesizer(synthesizer),
		conversation.WithTopK(int(cfg.topK)),
		conversation.WithRetry(cfg.newRetryPolicy()),
	}

	guard, err := cfg.newGuard(ctx)
	if err != nil {
		return nil, err
	}
	if guard != nil {
		opts = append(opts, conversation.WithGuard(guard))
	}
	return opts, nil
}

func closer(ctx context.Context, fn func() error) func() {
	return func() {
		if err := fn(); err != nil {
			logging.From(ctx).Warn("failed to close", "error", err)
		}
	}
}
