// Package main is the Yomu CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hyperjump/yomu/internal/cli"
	"github.com/hyperjump/yomu/internal/config"
	"github.com/hyperjump/yomu/internal/embedding"
	"github.com/hyperjump/yomu/internal/indexer"
	"github.com/hyperjump/yomu/internal/keyword"
	"github.com/hyperjump/yomu/internal/llm"
	"github.com/hyperjump/yomu/internal/models"
	"github.com/hyperjump/yomu/internal/qa"
	"github.com/hyperjump/yomu/internal/quiz"
	"github.com/hyperjump/yomu/internal/retrieval"
	"github.com/hyperjump/yomu/internal/server"
	"github.com/hyperjump/yomu/internal/storage"
	"github.com/hyperjump/yomu/internal/vector"
	"github.com/hyperjump/yomu/internal/watcher"
	"github.com/hyperjump/yomu/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "~/.yomu/config.yaml"

// resolveConfigPath expands a leading "~/" to the home directory.
func resolveConfigPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// loadConfig loads config from path. When path is the default, a config.yaml in
// the current directory wins, and a missing default file yields the built-in
// defaults rooted next to it. Returns the config and the path it belongs to.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		resolved := resolveConfigPath(path)
		if _, err := os.Stat(resolved); errors.Is(err, os.ErrNotExist) {
			return config.Default(filepath.Dir(resolved)), resolved, nil
		}
		path = resolved
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	// API keys may live in a .env file next to the working directory.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	args := argsReorder(os.Args[2:])
	switch command {
	case "server":
		runServer(args)
	case "ingest":
		runIngest(args)
	case "ask":
		runAsk(args)
	case "quiz":
		runQuiz(args)
	case "evaluate":
		runEvaluate(args)
	case "summary":
		runSummary(args)
	case "list":
		runList(args)
	case "search":
		runSearch(args)
	case "delete":
		runDelete(args)
	case "status":
		runStatus(args)
	case "version", "--version", "-v":
		fmt.Printf("yomu version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// commonFlags are accepted by every subcommand that touches local state.
type commonFlags struct {
	configPath *string
	debug      *bool
	asJSON     *bool
}

func newFlagSet(name string) (*flag.FlagSet, commonFlags) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	return fs, commonFlags{
		configPath: fs.String("config", defaultConfigPath, "config file path"),
		debug:      fs.Bool("debug", false, "enable debug logging"),
		asJSON:     fs.Bool("json", false, "write JSON output"),
	}
}

func (c commonFlags) format() cli.OutputFormat {
	return cli.FormatFor(*c.asJSON)
}

// setup loads config, builds the logger and opens the components. Commands
// that never call a model pass withModels=false so they work without API keys.
func setup(c commonFlags, withModels bool) (*Components, *zap.Logger) {
	cfg, resolved, err := loadConfig(*c.configPath)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	debugMode := cfg.Debug || *c.debug
	logger, err := newLogger(cfg, debugMode, true)
	if err != nil {
		fatalf("Failed to create logger: %v", err)
	}
	logger.Debug("config loaded", zap.String("config_path", resolved), zap.Bool("debug", debugMode))

	components, err := initializeComponents(context.Background(), cfg, logger, withModels)
	if err != nil {
		logger.Sync()
		fatalf("Failed to initialize: %v", err)
	}
	return components, logger
}

// newLogger builds the logger for cfg. Debug mode logs everything; quiet
// raises the default info level to warn for one-shot commands.
func newLogger(cfg *config.Config, debug, quiet bool) (*zap.Logger, error) {
	level := cfg.LogLevel
	switch {
	case debug:
		level = "debug"
	case quiet && level == "info":
		level = "warn"
	}
	return utils.NewLoggerWithLevel(debug, level)
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func write(err error) {
	if err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runServer(args []string) {
	fs, common := newFlagSet("server")
	_ = fs.Parse(args)

	cfg, resolved, err := loadConfig(*common.configPath)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	debugMode := cfg.Debug || *common.debug
	logger, err := newLogger(cfg, debugMode, false)
	if err != nil {
		fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()
	logger.Info("config loaded", zap.String("config_path", resolved), zap.Bool("debug", debugMode))

	components, err := initializeComponents(context.Background(), cfg, logger, true)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var inbox *watcher.Inbox
	if cfg.Watch.Enabled && len(cfg.Watch.Directories) > 0 {
		inbox = watcher.NewInbox(
			cfg.Watch.Directories,
			cfg.Ingest.AllowedExtensions,
			components.Indexer,
			watcher.WithLogger(logger),
			watcher.WithDebounce(time.Duration(cfg.Watch.DebounceMs)*time.Millisecond),
		)
		if err := inbox.Start(ctx); err != nil {
			logger.Fatal("Failed to start inbox watcher", zap.Error(err))
		}
	}

	srv := server.NewServer(
		components.Indexer,
		components.QA,
		components.Quiz,
		components.Storage,
		components.Keywords,
		cfg,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	if inbox != nil {
		inbox.Stop()
	}
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

func runIngest(args []string) {
	fs, common := newFlagSet("ingest")
	noSummary := fs.Bool("no-summary", false, "skip the summary after ingesting")
	_ = fs.Parse(args)
	if fs.NArg() < 1 {
		fmt.Println("Usage: yomu ingest [flags] <file>...")
		os.Exit(1)
	}

	components, logger := setup(common, true)
	defer logger.Sync()
	defer components.Close()

	ctx := context.Background()
	var responses []*models.UploadResponse
	failed := false
	for _, path := range fs.Args() {
		doc, err := components.Indexer.IngestFile(ctx, path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failed = true
			continue
		}
		resp := &models.UploadResponse{Document: doc, Message: "Document uploaded and processed successfully"}
		if !*noSummary {
			summary, err := components.QA.Summarizer().Summarize(ctx, doc.Content)
			if err != nil {
				logger.Warn("summary failed", zap.String("document_id", doc.ID), zap.Error(err))
				resp.Message = "Document uploaded and processed; summary unavailable"
			} else {
				resp.Summary = summary
			}
		}
		responses = append(responses, resp)
		if common.format() == cli.OutputText {
			fmt.Printf("Ingested %s as %s (%d chunks)\n", doc.Filename, doc.ID, doc.ChunkCount)
			if resp.Summary != "" {
				fmt.Printf("\n%s\n\n", resp.Summary)
			}
		}
	}
	if common.format() == cli.OutputJSON {
		write(cli.WriteJSON(os.Stdout, responses))
	}
	if failed {
		os.Exit(1)
	}
}

func runAsk(args []string) {
	fs, common := newFlagSet("ask")
	docID := fs.String("doc", "", "document ID")
	topK := fs.Int("top-k", 0, "number of passages to retrieve (default from config)")
	_ = fs.Parse(args)
	question := buildQuery(fs.Args())
	if *docID == "" || question == "" {
		fmt.Println("Usage: yomu ask --doc ID [flags] <question>")
		os.Exit(1)
	}

	components, logger := setup(common, true)
	defer logger.Sync()
	defer components.Close()

	result, err := components.QA.Ask(context.Background(), models.QuestionRequest{
		DocumentID: *docID,
		Question:   question,
		TopK:       *topK,
	})
	if err != nil {
		fatalf("Ask failed: %v", err)
	}
	write(cli.WriteAnswer(os.Stdout, result, common.format()))
}

func runQuiz(args []string) {
	fs, common := newFlagSet("quiz")
	docID := fs.String("doc", "", "document ID")
	difficulty := fs.String("difficulty", "", "easy, medium or hard (default from config)")
	n := fs.Int("n", 0, "number of questions (default from config)")
	reveal := fs.Bool("reveal", false, "show answers and explanations")
	_ = fs.Parse(args)
	if *docID == "" {
		fmt.Println("Usage: yomu quiz --doc ID [--difficulty LEVEL] [--n COUNT] [--reveal]")
		os.Exit(1)
	}

	components, logger := setup(common, true)
	defer logger.Sync()
	defer components.Close()

	resp, err := components.Quiz.Generate(context.Background(), models.ChallengeRequest{
		DocumentID:   *docID,
		Difficulty:   models.Difficulty(*difficulty),
		NumQuestions: *n,
	})
	if err != nil {
		fatalf("Quiz failed: %v", err)
	}
	write(cli.WriteChallenge(os.Stdout, resp, *reveal, common.format()))
}

func runEvaluate(args []string) {
	fs, common := newFlagSet("evaluate")
	docID := fs.String("doc", "", "document ID")
	question := fs.String("question", "", "question text")
	answer := fs.String("answer", "", "your answer")
	correct := fs.String("correct", "", "expected answer, if known")
	_ = fs.Parse(args)
	if *docID == "" || *question == "" || *answer == "" {
		fmt.Println("Usage: yomu evaluate --doc ID --question TEXT --answer TEXT [--correct TEXT]")
		os.Exit(1)
	}

	components, logger := setup(common, true)
	defer logger.Sync()
	defer components.Close()

	result, err := components.Quiz.Evaluate(context.Background(), models.EvaluateRequest{
		DocumentID:    *docID,
		Question:      *question,
		UserAnswer:    *answer,
		CorrectAnswer: *correct,
	})
	if err != nil {
		fatalf("Evaluate failed: %v", err)
	}
	write(cli.WriteEvaluation(os.Stdout, result, common.format()))
}

func runSummary(args []string) {
	fs, common := newFlagSet("summary")
	docID := fs.String("doc", "", "document ID")
	_ = fs.Parse(args)
	if *docID == "" && fs.NArg() == 1 {
		*docID = fs.Arg(0)
	}
	if *docID == "" {
		fmt.Println("Usage: yomu summary --doc ID")
		os.Exit(1)
	}

	components, logger := setup(common, true)
	defer logger.Sync()
	defer components.Close()

	summary, err := components.QA.Summary(context.Background(), *docID)
	if err != nil {
		fatalf("Summary failed: %v", err)
	}
	if common.format() == cli.OutputJSON {
		write(cli.WriteJSON(os.Stdout, map[string]string{"document_id": *docID, "summary": summary}))
		return
	}
	fmt.Println(summary)
}

func runList(args []string) {
	fs, common := newFlagSet("list")
	offset := fs.Int("offset", 0, "skip this many documents")
	limit := fs.Int("limit", 50, "maximum documents to list")
	_ = fs.Parse(args)

	components, logger := setup(common, false)
	defer logger.Sync()
	defer components.Close()

	docs, err := components.Storage.ListDocuments(context.Background(), *offset, *limit)
	if err != nil {
		fatalf("List failed: %v", err)
	}
	write(cli.WriteDocuments(os.Stdout, docs, common.format()))
}

func runSearch(args []string) {
	fs, common := newFlagSet("search")
	serverURL := fs.String("server", "", "query a running server instead of the local index")
	limit := fs.Int("limit", 10, "number of results")
	_ = fs.Parse(args)
	query := buildQuery(fs.Args())
	if query == "" {
		fmt.Println("Usage: yomu search [flags] <query>")
		os.Exit(1)
	}

	ctx := context.Background()
	var (
		results []*keyword.Result
		err     error
	)
	if *serverURL != "" {
		// A running server holds the keyword index lock.
		results, err = cli.NewClient(*serverURL).Search(ctx, query, *limit)
	} else {
		components, logger := setup(common, false)
		defer logger.Sync()
		defer components.Close()
		results, err = components.Keywords.Search(ctx, query, *limit)
	}
	if err != nil {
		fatalf("Search failed: %v", err)
	}
	write(cli.WriteSearchResults(os.Stdout, query, results, common.format()))
}

func runDelete(args []string) {
	fs, common := newFlagSet("delete")
	_ = fs.Parse(args)
	if fs.NArg() < 1 {
		fmt.Println("Usage: yomu delete [flags] <document-id>")
		os.Exit(1)
	}

	components, logger := setup(common, false)
	defer logger.Sync()
	defer components.Close()

	for _, id := range fs.Args() {
		if err := components.Indexer.DeleteDocument(context.Background(), id); err != nil {
			fatalf("Delete %s failed: %v", id, err)
		}
		fmt.Printf("Deleted %s\n", id)
	}
}

func runStatus(args []string) {
	fs, common := newFlagSet("status")
	serverURL := fs.String("server", "", "query a running server instead of local storage")
	_ = fs.Parse(args)

	ctx := context.Background()
	var status map[string]interface{}
	if *serverURL != "" {
		res, err := cli.NewClient(*serverURL).Status(ctx)
		if err != nil {
			fatalf("Status failed: %v", err)
		}
		status = res
	} else {
		components, logger := setup(common, false)
		defer logger.Sync()
		defer components.Close()
		res, err := localStatus(ctx, components)
		if err != nil {
			fatalf("Status failed: %v", err)
		}
		status = res
	}

	if common.format() == cli.OutputJSON {
		write(cli.WriteJSON(os.Stdout, status))
		return
	}
	for _, key := range []string{"documents", "questions", "keyword_indexed", "vector_indices"} {
		if v, ok := status[key]; ok {
			fmt.Printf("%-16s %v\n", key+":", v)
		}
	}
	if du, ok := status["disk_usage"]; ok {
		fmt.Printf("%-16s %v\n", "disk_usage:", du)
	}
}

func localStatus(ctx context.Context, c *Components) (map[string]interface{}, error) {
	docs, err := c.Storage.CountDocuments(ctx)
	if err != nil {
		return nil, err
	}
	questions, err := c.Storage.CountQuestions(ctx)
	if err != nil {
		return nil, err
	}
	status := map[string]interface{}{"documents": docs, "questions": questions}
	if n, err := c.Keywords.DocCount(); err == nil {
		status["keyword_indexed"] = n
	}
	if n, err := c.Catalog.Count(); err == nil {
		status["vector_indices"] = n
	}
	cfg := c.Config
	if du, err := storage.MeasureDiskUsage(cfg.Storage.DatabasePath, cfg.Storage.IndexDir,
		cfg.Storage.KeywordIndexPath, cfg.Storage.UploadDir); err == nil {
		status["disk_usage"] = du
	}
	return status, nil
}

// buildQuery joins all positional args with spaces so multi-word questions
// work the same with or without shell quoting.
func buildQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// argsReorder moves any flags (and their values) that appear after the
// positional arguments to the front so that flag.Parse() sees them. Go's flag
// package stops at the first non-flag argument, so `yomu ask "why?" --doc ID`
// would otherwise leave --doc unparsed.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// Components holds everything a command may need.
type Components struct {
	Config    *config.Config
	Storage   *storage.SQLiteStorage
	Embedder  embedding.Embedder
	Catalog   *vector.Catalog
	Keywords  *keyword.BleveIndex
	Generator llm.Generator
	Indexer   *indexer.Indexer
	QA        *qa.Engine
	Quiz      *quiz.Engine
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Keywords != nil {
		_ = c.Keywords.Close()
	}
}

// initializeComponents opens storage and indices. Without models, the embedder
// and generator are not created; the catalog can then delete indices but not
// build or query them, and QA and Quiz are nil.
func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger, withModels bool) (*Components, error) {
	c := &Components{Config: cfg}
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.Storage = store

	if withModels {
		c.Embedder, err = embedding.NewEmbedder(ctx, &cfg.Embedding)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to initialize embedder: %w", err)
		}
		c.Generator, err = llm.NewGenerator(ctx, &cfg.LLM, logger)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to initialize generator: %w", err)
		}
	}

	c.Catalog, err = vector.NewCatalog(cfg.Storage.IndexDir, c.Embedder, vector.WithLogger(logger))
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize vector catalog: %w", err)
	}
	c.Keywords, err = keyword.NewBleveIndex(cfg.Storage.KeywordIndexPath)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}
	c.Indexer, err = indexer.NewIndexer(store, c.Catalog, c.Keywords, cfg, indexer.WithLogger(logger))
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize indexer: %w", err)
	}

	if withModels {
		retriever := retrieval.NewRetriever(c.Catalog,
			retrieval.WithTopK(cfg.Retrieval.TopK),
			retrieval.WithLogger(logger))
		c.QA = qa.NewEngine(store, retriever,
			qa.NewAnswerer(c.Generator,
				qa.WithAnswerOptions(llm.OptionsFromConfig(&cfg.LLM)),
				qa.WithAnswererLogger(logger)),
			qa.NewSummarizer(c.Generator, cfg.Summary.ContentChars, cfg.Summary.MaxOutputTokens),
			qa.WithLogger(logger),
			qa.WithTopK(cfg.Retrieval.TopK))
		c.Quiz = quiz.NewEngine(store,
			quiz.NewGenerator(c.Generator, cfg.Quiz.ContentChars, quiz.WithGeneratorLogger(logger)),
			quiz.NewEvaluator(c.Generator, cfg.Quiz.EvaluationContextChars),
			quiz.Limits{
				DefaultDifficulty: models.Difficulty(cfg.Quiz.DefaultDifficulty),
				DefaultQuestions:  cfg.Quiz.DefaultQuestions,
				MaxQuestions:      cfg.Quiz.MaxQuestions,
			},
			quiz.WithLogger(logger))
	}
	return c, nil
}

func printUsage() {
	fmt.Println(`yomu - Read documents, ask grounded questions, and quiz yourself

Usage:
  yomu server [flags]                       Start the HTTP server (and inbox watcher if enabled)
  yomu ingest [flags] <file>...             Ingest documents and print their summaries
  yomu ask --doc ID [flags] <question>      Answer a question from one document
  yomu quiz --doc ID [flags]                Generate comprehension questions
  yomu evaluate --doc ID [flags]            Grade an answer to a question
  yomu summary --doc ID                     Summarize a document
  yomu list [flags]                         List ingested documents
  yomu search [flags] <query>               Find documents by filename or content
  yomu delete <id>...                       Delete documents and their indices
  yomu status [flags]                       Show storage and index status
  yomu version                              Show version
  yomu help                                 Show this help

Common Flags:
  --config string    Config file path (default: ~/.yomu/config.yaml, or ./config.yaml if present)
  --debug            Enable debug logging
  --json             Write JSON output

Ask Flags:
  --top-k int        Passages to retrieve (default from config)

Quiz Flags:
  --difficulty string  easy, medium or hard
  --n int              Number of questions
  --reveal             Show answers and explanations

Evaluate Flags:
  --question string  Question text
  --answer string    Your answer
  --correct string   Expected answer, if known

Search and Status Flags:
  --server string    Query a running server (e.g. http://localhost:8000) instead of local storage

Examples:
  yomu ingest paper.pdf
  yomu ask --doc 3f2a... "What method does the paper propose?"
  yomu quiz --doc 3f2a... --difficulty hard --n 5 --reveal
  yomu evaluate --doc 3f2a... --question "What is measured?" --answer "Latency"
  yomu search --server http://localhost:8000 transformer`)
}
