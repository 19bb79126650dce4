package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/snapthinkllm/snapthinkllm/internal/models"
	"github.com/snapthinkllm/snapthinkllm/pkg/chunker"
	cfgPkg "github.com/snapthinkllm/snapthinkllm/pkg/config"
	"github.com/snapthinkllm/snapthinkllm/pkg/llm"
	"github.com/snapthinkllm/snapthinkllm/pkg/migrate"
	"github.com/snapthinkllm/snapthinkllm/pkg/modelmgr"
	"github.com/snapthinkllm/snapthinkllm/pkg/rag"
	"github.com/snapthinkllm/snapthinkllm/pkg/store"
	"github.com/snapthinkllm/snapthinkllm/server"
)

type Config struct {
	BaseURL     string
	DataDir     string
	ChatModel   string
	EmbedModel  string
	WindowSize  int
	Overlap     int
	SummaryTopK int
	AnswerTopK  int
	SearchTopK  int
	MaxTokens   int
	Temperature float64
	Streaming   bool
	AutoYes     bool
	Force       bool
	Addr        string
}

const usage = `Usage: snapthink [flags] <command> [args]

Commands:
  serve                       run the local API server
  new [title]                 create a notebook
  list                        list notebooks
  rename <id> <title>         rename a notebook
  delete <id>                 delete a notebook
  chat <id>                   interactive chat over the notebook's documents
  upload <id> <file>          upload and embed a document
  docs <id>                   list a notebook's documents
  ask <id> <question>         one-shot question over the notebook's documents
  search <id> <query>         find the best-matching snippets
  summarize <id> <doc>        summarize one document by id or file name
  export <id> <file.snap>     package a notebook as an archive
  import <file.snap>          import a notebook archive under a fresh id
  migrate                     convert legacy chat sessions into notebooks
  models                      list locally downloaded models
  pull <model>                download a model
`

func main() {
	config, args := parseFlags()

	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err := run(config, args[0], args[1:]); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() (Config, []string) {
	var config Config
	var configPath string

	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.StringVar(&config.BaseURL, "ollama-url", os.Getenv("OLLAMA_BASE_URL"), "Ollama server URL")
	flag.StringVar(&config.DataDir, "data-dir", "", "Data directory for sessions")
	flag.StringVar(&config.ChatModel, "model", "", "Chat model to use")
	flag.StringVar(&config.EmbedModel, "embed-model", "", "Embedding model to use")
	flag.IntVar(&config.WindowSize, "window-size", 0, "Words per chunk")
	flag.IntVar(&config.Overlap, "overlap", 0, "Words shared between consecutive chunks")
	flag.IntVar(&config.MaxTokens, "max-tokens", 0, "Maximum tokens for LLM response")
	flag.Float64Var(&config.Temperature, "temperature", 0, "Set the LLM temperature")
	flag.BoolVar(&config.Streaming, "stream", true, "Enable streaming responses")
	flag.BoolVar(&config.AutoYes, "yes", false, "Approve model downloads without asking")
	flag.BoolVar(&config.Force, "force", false, "Re-migrate chats that were already migrated")
	flag.StringVar(&config.Addr, "addr", "localhost:8170", "API server listen address")
	flag.Parse()

	cfg, err := cfgPkg.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Flags override the config file where set.
	if config.BaseURL == "" {
		config.BaseURL = cfg.LLM.BaseURL
	}
	if config.DataDir == "" {
		config.DataDir = cfg.Storage.DataDir
	}
	if config.ChatModel == "" {
		config.ChatModel = cfg.LLM.ChatModel
	}
	if config.EmbedModel == "" {
		config.EmbedModel = cfg.LLM.EmbedModel
	}
	if config.WindowSize == 0 {
		config.WindowSize = cfg.Chunker.WindowSize
	}
	if config.Overlap == 0 {
		config.Overlap = cfg.Chunker.Overlap
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = cfg.LLM.MaxTokens
	}
	if config.Temperature == 0 {
		config.Temperature = cfg.LLM.Temperature
	}
	config.SummaryTopK = cfg.RAG.SummaryTopK
	config.AnswerTopK = cfg.RAG.AnswerTopK
	config.SearchTopK = cfg.RAG.SearchTopK

	return config, flag.Args()
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

type app struct {
	config    Config
	notebooks *store.NotebookStore
	chats     *store.ChatStore
	engine    *rag.Service
	chat      *llm.ChatEngine
	manager   *modelmgr.Manager
}

func newApp(config Config) (*app, error) {
	notebooks, err := store.NewNotebookStore(config.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize notebook store: %v", err)
	}
	chats, err := store.NewChatStore(config.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat store: %v", err)
	}

	chatEngine, err := llm.NewChatWithConfig(llm.ChatConfig{
		Model:       config.ChatModel,
		MaxTokens:   config.MaxTokens,
		BaseURL:     config.BaseURL,
		Temperature: config.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat engine: %v", err)
	}

	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Model:   config.EmbedModel,
		BaseURL: config.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %v", err)
	}

	ch, err := chunker.NewWithConfig(chunker.ChunkerConfig{
		WindowSize: config.WindowSize,
		Overlap:    config.Overlap,
	})
	if err != nil {
		return nil, err
	}

	manager := modelmgr.NewWithConfig(modelmgr.ManagerConfig{AutoDownload: config.AutoYes})

	engine := rag.NewWithConfig(rag.ServiceConfig{
		SummaryTopK: config.SummaryTopK,
		AnswerTopK:  config.AnswerTopK,
		SearchTopK:  config.SearchTopK,
		EmbedModel:  config.EmbedModel,
		Confirm:     confirmDownload,
	}, notebooks, embedder, chatEngine, manager, ch)

	return &app{
		config:    config,
		notebooks: notebooks,
		chats:     chats,
		engine:    engine,
		chat:      chatEngine,
		manager:   manager,
	}, nil
}

func confirmDownload(model string) bool {
	color.Yellow("The embedding model %q is required to search within documents.", model)
	fmt.Print("Download it now? [y/N] ")
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return answer == "y" || answer == "yes"
}

func run(config Config, command string, args []string) error {
	ctx := context.Background()

	if command == "serve" {
		srv, err := server.New(serverConfig(config))
		if err != nil {
			return err
		}
		return srv.ListenAndServe(config.Addr)
	}

	a, err := newApp(config)
	if err != nil {
		return err
	}

	switch command {
	case "new":
		title := strings.Join(args, " ")
		meta, err := a.notebooks.Create(title)
		if err != nil {
			return err
		}
		color.Green("✓ Created notebook %s (%s)", meta.ID, meta.Title)
		return nil

	case "list":
		return a.runList()

	case "rename":
		if len(args) < 2 {
			return fmt.Errorf("%w: rename <id> <title>", models.ErrInvalidArgument)
		}
		return a.notebooks.Rename(args[0], strings.Join(args[1:], " "))

	case "delete":
		if len(args) < 1 {
			return fmt.Errorf("%w: delete <id>", models.ErrInvalidArgument)
		}
		return a.notebooks.Delete(args[0])

	case "chat":
		if len(args) < 1 {
			return fmt.Errorf("%w: chat <id>", models.ErrInvalidArgument)
		}
		return a.runChat(ctx, args[0])

	case "upload":
		if len(args) < 2 {
			return fmt.Errorf("%w: upload <id> <file>", models.ErrInvalidArgument)
		}
		return a.runUpload(ctx, args[0], args[1])

	case "docs":
		if len(args) < 1 {
			return fmt.Errorf("%w: docs <id>", models.ErrInvalidArgument)
		}
		for _, doc := range a.notebooks.ListDocuments(args[0]) {
			fmt.Printf("%s  %s (%d chunks)\n", doc.ID, doc.Name, len(doc.Chunks))
		}
		return nil

	case "ask":
		if len(args) < 2 {
			return fmt.Errorf("%w: ask <id> <question>", models.ErrInvalidArgument)
		}
		return a.runAsk(ctx, args[0], strings.Join(args[1:], " "))

	case "search":
		if len(args) < 2 {
			return fmt.Errorf("%w: search <id> <query>", models.ErrInvalidArgument)
		}
		return a.runSearch(ctx, args[0], strings.Join(args[1:], " "))

	case "summarize":
		if len(args) < 2 {
			return fmt.Errorf("%w: summarize <id> <doc>", models.ErrInvalidArgument)
		}
		answer, err := a.engine.Summarize(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		color.Cyan("%s\n", answer.Answer)
		return nil

	case "export":
		if len(args) < 2 {
			return fmt.Errorf("%w: export <id> <file.snap>", models.ErrInvalidArgument)
		}
		return a.runExport(args[0], args[1])

	case "import":
		if len(args) < 1 {
			return fmt.Errorf("%w: import <file.snap>", models.ErrInvalidArgument)
		}
		return a.runImport(args[0])

	case "migrate":
		return a.runMigrate(ctx)

	case "models":
		list, err := a.manager.Inventory(ctx)
		if err != nil {
			return err
		}
		for _, info := range list {
			fmt.Printf("%-40s %s\n", info.Name, info.SizeRaw)
		}
		return nil

	case "pull":
		if len(args) < 1 {
			return fmt.Errorf("%w: pull <model>", models.ErrInvalidArgument)
		}
		return a.runPull(ctx, args[0])

	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("%w: unknown command %q", models.ErrInvalidArgument, command)
	}
}

func serverConfig(config Config) *cfgPkg.Config {
	cfg := &cfgPkg.Config{}
	cfg.LLM.BaseURL = config.BaseURL
	cfg.LLM.ChatModel = config.ChatModel
	cfg.LLM.EmbedModel = config.EmbedModel
	cfg.LLM.MaxTokens = config.MaxTokens
	cfg.LLM.Temperature = config.Temperature
	cfg.Chunker.WindowSize = config.WindowSize
	cfg.Chunker.Overlap = config.Overlap
	cfg.RAG.SummaryTopK = config.SummaryTopK
	cfg.RAG.AnswerTopK = config.AnswerTopK
	cfg.RAG.SearchTopK = config.SearchTopK
	cfg.Storage.DataDir = config.DataDir
	cfg.Models.AutoDownload = config.AutoYes
	cfg.UI.Streaming = config.Streaming
	return cfg
}

func (a *app) runList() error {
	notebooks, err := a.notebooks.List()
	if err != nil {
		return err
	}
	for _, meta := range notebooks {
		fmt.Printf("%s  %-30s %d msgs, %d files, updated %s\n",
			meta.ID, meta.Title, meta.Stats.TotalMessages, meta.Stats.TotalFiles,
			meta.UpdatedAt.Format(time.RFC3339))
	}

	legacy, err := a.chats.List()
	if err != nil {
		return err
	}
	if len(legacy) > 0 {
		color.Yellow("\n%d legacy chat session(s) found. Run 'snapthink migrate' to convert them.", len(legacy))
	}
	return nil
}

func (a *app) runUpload(ctx context.Context, id, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %v", path, err)
	}

	spinner := getSpinner(" Embedding document...")
	doc, err := a.engine.UploadDocument(ctx, id, filepath.Base(path), data)
	spinner.Finish()
	fmt.Print("\r")
	if err != nil {
		return err
	}

	color.Green("✓ Uploaded %s: %d chunks embedded", doc.Name, len(doc.Chunks))
	return nil
}

func (a *app) runAsk(ctx context.Context, id, question string) error {
	spinner := getSpinner(" Searching documents...")
	answer, err := a.engine.Ask(ctx, id, question)
	spinner.Finish()
	fmt.Print("\r")
	if err != nil {
		return err
	}

	color.Cyan("%s\n", answer.Answer)
	printSources(answer.Sources)
	return nil
}

func (a *app) runSearch(ctx context.Context, id, query string) error {
	results, err := a.engine.Search(ctx, id, query)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		color.Yellow("No matching snippets.")
		return nil
	}
	printSources(results)
	return nil
}

func printSources(sources []models.Source) {
	for i, src := range sources {
		color.Blue("[%d] %s (%.3f)", i+1, src.FileName, src.Score)
		fmt.Printf("    %s\n", truncate(src.Text, 160))
	}
}

func (a *app) runChat(ctx context.Context, id string) error {
	nb := a.notebooks.Load(id)
	color.Cyan("\nChatting in %q (type 'exit' to quit)", nb.Meta.Title)

	scanner := bufio.NewScanner(os.Stdin)
	userPrompt := color.New(color.FgGreen).PrintfFunc()
	assistantPrompt := color.New(color.FgCyan).PrintfFunc()

	for {
		userPrompt("\nYou: ")
		if !scanner.Scan() {
			break
		}

		query := strings.TrimSpace(scanner.Text())
		if strings.ToLower(query) == "exit" {
			break
		}
		if query == "" {
			continue
		}

		answer, err := a.engine.Ask(ctx, id, query)
		if err == nil {
			fmt.Print("\n")
			assistantPrompt("Assistant: %s\n", answer.Answer)
			printSources(answer.Sources)
			continue
		}
		if !errors.Is(err, models.ErrNotFound) {
			color.Red("Error: %v\n", err)
			continue
		}

		// No embedded documents: plain completion without retrieval.
		if err := a.plainChat(ctx, id, query, assistantPrompt); err != nil {
			color.Red("Error: %v\n", err)
		}
	}

	return nil
}

func (a *app) plainChat(ctx context.Context, id, query string, assistantPrompt func(format string, args ...interface{})) error {
	var response string

	if a.config.Streaming {
		stream, err := a.chat.CompleteStream(ctx, "", query)
		if err != nil {
			return err
		}

		fmt.Print("\n")
		assistantPrompt("Assistant: ")

		var b strings.Builder
		for chunk := range stream {
			if strings.HasPrefix(chunk, "Error:") {
				color.Red("\n%s", chunk)
				return nil
			}
			fmt.Print(chunk)
			b.WriteString(chunk)
		}
		fmt.Print("\n")
		response = b.String()
	} else {
		spinner := getSpinner(" Generating response...")
		var err error
		response, err = a.chat.Complete(ctx, "", query)
		spinner.Finish()
		if err != nil {
			return err
		}
		assistantPrompt("\nAssistant: %s\n", response)
	}

	now := time.Now().UTC()
	messages := append(a.notebooks.Messages(id),
		models.Message{Role: models.RoleUser, Content: query, Timestamp: now},
		models.Message{Role: models.RoleAssistant, Content: response, Timestamp: time.Now().UTC()},
	)
	return a.notebooks.SaveMessages(id, messages)
}

func (a *app) runExport(id, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %v", path, err)
	}
	defer f.Close()

	if err := a.notebooks.Export(id, f); err != nil {
		return err
	}
	color.Green("✓ Exported %s to %s", id, path)
	return nil
}

func (a *app) runImport(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %v", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	meta, warning, err := a.notebooks.Import(f, info.Size())
	if err != nil {
		return err
	}
	color.Green("✓ Imported as %s (%s)", meta.ID, meta.Title)
	if warning {
		color.Yellow("Some document files were missing from the archive and were dropped.")
	}
	return nil
}

func (a *app) runMigrate(ctx context.Context) error {
	result, err := migrate.New(a.chats, a.notebooks, a.config.Force).MigrateAll(ctx)
	if err != nil {
		return err
	}

	color.Green("✓ Migrated %d chat(s)", result.Migrated)
	for _, meta := range result.Notebooks {
		fmt.Printf("  %s  %s\n", meta.ID, meta.Title)
	}
	for _, id := range result.Skipped {
		color.Yellow("  skipped %s", id)
	}
	return nil
}

func (a *app) runPull(ctx context.Context, model string) error {
	bar := getProgressBar(100, fmt.Sprintf(" Downloading %s...", model))

	events := make(chan models.DownloadStatus)
	done := make(chan error, 1)
	go func() {
		job := modelmgr.NewDownloadJob("ollama", model)
		done <- job.Run(ctx, events)
		close(events)
	}()

	for status := range events {
		if status.State == models.DownloadDownloading {
			bar.Set(int(status.Progress))
		}
	}
	bar.Finish()
	fmt.Print("\n")

	if err := <-done; err != nil {
		return err
	}
	color.Green("✓ Model %s ready", model)
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
