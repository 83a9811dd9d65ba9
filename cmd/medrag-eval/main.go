package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"
	"github.com/futig/medrag/internal/builder"
	"github.com/futig/medrag/internal/config"
	"github.com/futig/medrag/internal/entity"
	"github.com/futig/medrag/internal/integration/medrag"
	"github.com/futig/medrag/internal/pkg/logger"
	"github.com/futig/medrag/internal/repository"
	"github.com/futig/medrag/internal/usecase/evaluation"
	"go.uber.org/zap"
)

type globals struct {
	Env        string        `help:"Environment whose .env file configures the in-process pipeline" default:"local"`
	APIURL     string        `name:"api-url" help:"Evaluate a running server instead of an in-process pipeline" env:"MEDRAG_API_URL"`
	APIToken   string        `name:"api-token" help:"Bearer token for the running server" env:"MEDRAG_API_TOKEN"`
	APITimeout time.Duration `name:"api-timeout" help:"Request timeout against the running server" default:"5m"`
	TrackingDB string        `name:"tracking-db" help:"SQLite file recording evaluation runs" env:"TRACKING_DB_PATH" default:"eval_tracking.db"`
	LogLevel   string        `name:"log-level" help:"Log level" env:"LOG_LEVEL" default:"info"`
}

var cli struct {
	globals `embed:""`

	Single singleCmd `cmd:"" help:"Evaluate a single question"`
	Batch  batchCmd  `cmd:"" help:"Evaluate every question of a dataset"`
	Stream streamCmd `cmd:"" help:"Stream the answer to a question"`
	Runs   runsCmd   `cmd:"" help:"List recent evaluation runs"`
}

type singleCmd struct {
	Question string `arg:"" help:"Question to ask"`
	K        int    `short:"k" help:"Number of passages to retrieve" default:"4"`
}

type batchCmd struct {
	Dataset string `help:"YAML or JSON list of {question} entries" default:"eval_questions.yaml" type:"existingfile"`
	K       int    `short:"k" help:"Number of passages to retrieve" default:"4"`
	Results string `help:"Where per-question results are written" env:"TRACKING_RESULTS_PATH" default:"batch_eval_results.json"`
}

type streamCmd struct {
	Question string `arg:"" help:"Question to ask"`
	K        int    `short:"k" help:"Number of passages to retrieve" default:"4"`
}

type runsCmd struct {
	Limit int `help:"Number of runs to show" default:"10"`
}

var (
	title   = color.New(color.FgGreen, color.Bold).SprintFunc()
	label   = color.New(color.FgCyan, color.Bold).SprintFunc()
	warning = color.New(color.FgYellow).SprintFunc()
	failure = color.New(color.FgRed, color.Bold).SprintFunc()
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kctx := kong.Parse(&cli,
		kong.Name("medrag-eval"),
		kong.Description("Evaluate the medical RAG answer pipeline."),
		kong.UsageOnError(),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	if err := kctx.Run(&cli.globals); err != nil {
		fmt.Fprintln(os.Stderr, failure("error:"), err)
		os.Exit(1)
	}
}

// session holds what a command needs, in process or against a server.
type session struct {
	answerer evaluation.Answerer
	pipeline *builder.Pipeline
	remote   *medrag.Connector
	logger   *zap.Logger
}

func (g *globals) open(ctx context.Context) (*session, error) {
	if g.APIURL != "" {
		log, err := logger.New(g.LogLevel, g.Env)
		if err != nil {
			return nil, err
		}
		remote := medrag.NewConnector(config.HTTPClientConfig{
			Url:            strings.TrimRight(g.APIURL, "/"),
			Token:          g.APIToken,
			RequestTimeout: g.APITimeout,
		}, log)
		return &session{answerer: remote, remote: remote, logger: log}, nil
	}

	cfg, err := config.Load(g.Env)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	log, err := logger.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		return nil, err
	}

	pipeline, err := builder.BuildPipeline(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	return &session{answerer: pipeline.Answer, pipeline: pipeline, logger: log}, nil
}

func (s *session) Close() {
	if s.pipeline != nil {
		s.pipeline.Close()
	}
	_ = s.logger.Sync()
}

func (g *globals) evaluation(ctx context.Context, resultsPath string) (*evaluation.Usecase, func(), error) {
	s, err := g.open(ctx)
	if err != nil {
		return nil, nil, err
	}

	tracker, err := repository.NewTrackingSQLite(g.TrackingDB)
	if err != nil {
		s.Close()
		return nil, nil, err
	}

	uc := evaluation.NewUsecase(s.answerer, tracker, evaluation.Options{ResultsPath: resultsPath}, s.logger)

	return uc, func() {
		tracker.Close()
		s.Close()
	}, nil
}

func (c *singleCmd) Run(ctx context.Context, g *globals) error {
	uc, closeFn, err := g.evaluation(ctx, "")
	if err != nil {
		return err
	}
	defer closeFn()

	report, err := uc.EvaluateSingle(ctx, c.Question, c.K)
	if err != nil {
		return err
	}

	fmt.Println(title("Answer"))
	fmt.Println(report.Result.Answer)
	fmt.Println()
	printSources(report.Result.Sources)
	printTiming(report.Result.Timing)
	fmt.Printf("%s %.3f\n", label("Retrieval quality:"), report.RetrievalQuality)
	if report.Result.Refused {
		fmt.Println(warning("The model refused to answer from the retrieved context."))
	}
	fmt.Printf("%s %s\n", label("Run:"), report.RunID)
	return nil
}

func (c *batchCmd) Run(ctx context.Context, g *globals) error {
	uc, closeFn, err := g.evaluation(ctx, c.Results)
	if err != nil {
		return err
	}
	defer closeFn()

	report, err := uc.EvaluateBatch(ctx, c.Dataset, c.K)
	if err != nil {
		return err
	}

	fmt.Println(title("Batch evaluation"))
	for i, r := range report.Results {
		marker := ""
		if r.Refused {
			marker = warning(" (refused)")
		}
		fmt.Printf("%2d. %s%s\n    total=%.3fs quality=%.3f\n", i+1, r.Question, marker, r.Timing.TotalTime, r.RetrievalQuality)
	}

	s := report.Summary
	fmt.Println()
	fmt.Printf("%s %d\n", label("Questions:"), s.TotalQuestions)
	fmt.Printf("%s retrieval=%.3fs, llm=%.3fs, total=%.3fs\n", label("Averages:"), s.AvgRetrievalTime, s.AvgGenerationTime, s.AvgTotalTime)
	fmt.Printf("%s %.3f\n", label("Avg retrieval quality:"), s.AvgRetrievalQuality)
	fmt.Printf("%s %.3f\n", label("Refusal rate:"), s.RefusalRate)
	fmt.Printf("%s %s\n", label("Results:"), report.ResultsPath)
	fmt.Printf("%s %s\n", label("Run:"), report.RunID)
	return nil
}

func (c *streamCmd) Run(ctx context.Context, g *globals) error {
	s, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if s.remote != nil {
		body, err := s.remote.AskStream(ctx, c.Question, c.K, "text")
		if err != nil {
			return err
		}
		defer body.Close()

		_, err = io.Copy(os.Stdout, body)
		return err
	}

	frames, err := s.pipeline.Answer.AskStream(ctx, c.Question, c.K)
	if err != nil {
		return err
	}

	var streamErr error
	for f := range frames {
		switch f.Type {
		case entity.FrameText:
			fmt.Print(f.Text)
		case entity.FrameSources:
			fmt.Println()
			fmt.Println()
			printSources(f.Sources)
		case entity.FrameTiming:
			printTiming(f.Timing)
		case entity.FrameError:
			fmt.Println()
			streamErr = f.Err
		}
	}

	return streamErr
}

func (c *runsCmd) Run(ctx context.Context, g *globals) error {
	tracker, err := repository.NewTrackingSQLite(g.TrackingDB)
	if err != nil {
		return err
	}
	defer tracker.Close()

	runs, err := tracker.ListRuns(ctx, c.Limit)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println(warning("No evaluation runs recorded yet."))
		return nil
	}

	for _, run := range runs {
		status := string(run.Status)
		switch run.Status {
		case entity.RunStatusFinished:
			status = title(status)
		case entity.RunStatusFailed:
			status = failure(status)
		}
		fmt.Printf("%s  %-8s  %s  %s\n", run.StartedAt.Local().Format(time.DateTime), status, run.ID, run.Name)
	}
	return nil
}

func printSources(sources []entity.Source) {
	fmt.Println(label("Sources:"))
	if len(sources) == 0 {
		fmt.Println("  none")
		return
	}
	for _, s := range sources {
		fmt.Printf("  - %s, page %s\n", s.Source, s.Page)
	}
}

func printTiming(t entity.Timing) {
	fmt.Printf("%s retrieval=%.3fs, llm=%.3fs, total=%.3fs\n", label("Timing:"), t.RetrievalTime, t.GenerationTime, t.TotalTime)
}
