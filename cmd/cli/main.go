package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dvloznov/statement-ingest/internal/app"
	"github.com/dvloznov/statement-ingest/internal/category"
	"github.com/dvloznov/statement-ingest/internal/config"
	"github.com/dvloznov/statement-ingest/internal/gcsuploader"
	"github.com/dvloznov/statement-ingest/internal/logger"
	"github.com/dvloznov/statement-ingest/internal/pdftext"
	"github.com/dvloznov/statement-ingest/internal/store"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// Flag defaults below read the environment, so .env is loaded first.
	_ = godotenv.Load()

	switch os.Args[1] {
	case "ingest":
		runIngest(log, os.Args[2:])
	case "upload":
		runUpload(log, os.Args[2:])
	case "parse":
		runParse(log, os.Args[2:])
	case "classify":
		runClassify(log, os.Args[2:])
	case "categories":
		runCategories(log, os.Args[2:])
	case "skip":
		runSkip(log, os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Statement Ingest CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  ingest      Ingest every new statement in the configured bucket")
	fmt.Println("  upload      Upload a statement file to the bucket")
	fmt.Println("  parse       Parse a local or gs:// statement and print the records (no writes)")
	fmt.Println("  classify    Print the category for a transaction description")
	fmt.Println("  categories  Print the category table in precedence order")
	fmt.Println("  skip        Record documents as processed without ingesting them")
	fmt.Println("  help        Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

func runIngest(log zerolog.Logger, args []string) {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	envFile := fs.String("env", "", "Path to a .env file")
	workers := fs.Int("workers", 0, "Documents processed concurrently (overrides INGEST_WORKERS)")
	fs.Parse(args)

	cfg, leveled, err := app.Bootstrap(*envFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log = leveled
	if *workers > 0 {
		cfg.Ingest.Workers = *workers
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise ingestion")
	}
	defer a.Close(ctx)

	log.Info().Str("bucket", cfg.Bucket.Name).Str("prefix", cfg.Bucket.Prefix).Msg("Starting ingestion")

	summary, err := a.RunOnce(ctx)
	if err != nil {
		a.Close(ctx)
		log.Fatal().Err(err).Msg("Ingestion run aborted")
	}

	app.PrintSummary(os.Stdout, summary)
}

func runUpload(log zerolog.Logger, args []string) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	bucketName := fs.String("bucket", os.Getenv("BUCKET_NAME"), "GCS bucket name (defaults to BUCKET_NAME)")
	prefix := fs.String("prefix", os.Getenv("BUCKET_PREFIX"), "Object key prefix (defaults to BUCKET_PREFIX)")
	objectName := fs.String("object", "", "GCS object name (defaults to prefix + file name)")
	filePath := fs.String("file", "", "Path to local statement file")
	fs.Parse(args)

	if *bucketName == "" || *filePath == "" {
		log.Fatal().Msg("Usage: cli upload -bucket NAME -file PATH [-prefix PREFIX] [-object NAME]")
	}

	ctx := logger.WithContext(context.Background(), log)

	storage, err := gcsuploader.NewGCSStorageService(ctx, 0)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create storage client")
	}
	defer storage.Close()

	uri, err := uploadStatement(ctx, storage, *bucketName, *prefix, *objectName, *filePath)
	if err != nil {
		storage.Close()
		log.Fatal().Err(err).Msg("Upload failed")
	}

	fmt.Printf("Uploaded %s to %s\n", *filePath, uri)
}

func runSkip(log zerolog.Logger, args []string) {
	fs := flag.NewFlagSet("skip", flag.ExitOnError)
	envFile := fs.String("env", "", "Path to a .env file")
	fs.Parse(args)

	if fs.NArg() == 0 {
		log.Fatal().Msg("Usage: cli skip [-env FILE] OBJECT_KEY...")
	}

	var envFiles []string
	if *envFile != "" {
		envFiles = append(envFiles, *envFile)
	}
	dbCfg, err := config.LoadDatabase(envFiles...)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load database configuration")
	}

	ctx := logger.WithContext(context.Background(), log)

	db, err := store.Open(ctx, *dbCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := skipDocuments(ctx, os.Stdout, db, fs.Args()); err != nil {
		db.Close()
		log.Fatal().Err(err).Msg("Failed to update ledger")
	}
}

func runParse(log zerolog.Logger, args []string) {
	fs := flag.NewFlagSet("parse", flag.ExitOnError)
	source := fs.String("file", "", "Local .pdf or .txt file, or gs://bucket/key")
	rulesFile := fs.String("rules", os.Getenv("CATEGORY_RULES_FILE"), "Category rules YAML (defaults to the built-in table)")
	showText := fs.Bool("text", false, "Also print the extracted text")
	fs.Parse(args)

	if *source == "" {
		log.Fatal().Msg("Usage: cli parse -file PATH|gs://bucket/key [-rules FILE] [-text]")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	parser, err := app.NewParser(*rulesFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load category rules")
	}

	data, err := readSource(ctx, *source)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read statement")
	}

	text, err := statementText(pdftext.NewExtractor(), *source, data)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to extract text")
	}

	if *showText {
		fmt.Println("=== Extracted Text ===")
		fmt.Println(text)
		fmt.Println()
	}

	printStatement(os.Stdout, parser.Parse(ctx, text))
}

func runClassify(log zerolog.Logger, args []string) {
	fs := flag.NewFlagSet("classify", flag.ExitOnError)
	rulesFile := fs.String("rules", os.Getenv("CATEGORY_RULES_FILE"), "Category rules YAML (defaults to the built-in table)")
	fs.Parse(args)

	description := strings.Join(fs.Args(), " ")
	if strings.TrimSpace(description) == "" {
		log.Fatal().Msg("Usage: cli classify [-rules FILE] DESCRIPTION...")
	}

	classifier, err := app.NewClassifier(*rulesFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load category rules")
	}

	code := classifier.Classify(description)
	fmt.Printf("%s\t%s\n", code, category.DisplayName(code))
}

func runCategories(log zerolog.Logger, args []string) {
	fs := flag.NewFlagSet("categories", flag.ExitOnError)
	rulesFile := fs.String("rules", os.Getenv("CATEGORY_RULES_FILE"), "Category rules YAML (defaults to the built-in table)")
	fs.Parse(args)

	classifier, err := app.NewClassifier(*rulesFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load category rules")
	}

	printCategories(os.Stdout, classifier.Rules())
}
