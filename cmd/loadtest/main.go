package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/iago/blog-generation-back/internal/ai"
	httpserver "github.com/iago/blog-generation-back/internal/http"
	"github.com/iago/blog-generation-back/internal/http/handlers"
	"github.com/iago/blog-generation-back/internal/http/middleware"
	"github.com/iago/blog-generation-back/internal/logging"
	"github.com/iago/blog-generation-back/internal/repository"
	"github.com/iago/blog-generation-back/internal/service"
	"github.com/iago/blog-generation-back/internal/worker"
)

const loadCronSecret = "loadtest-cron"

type scenarioResult struct {
	Name          string   `json:"name"`
	Total         int      `json:"total"`
	Success       int      `json:"success"`
	Errors        int      `json:"errors"`
	P50MS         float64  `json:"p50_ms"`
	P95MS         float64  `json:"p95_ms"`
	P99MS         float64  `json:"p99_ms"`
	MaxMS         float64  `json:"max_ms"`
	ThroughputRPS float64  `json:"throughput_rps"`
	ErrorSamples  []string `json:"error_samples,omitempty"`
}

type drainResult struct {
	Passes    int     `json:"passes"`
	Completed int     `json:"completed"`
	Failed    int     `json:"failed"`
	Skipped   int     `json:"skipped"`
	ElapsedMS float64 `json:"elapsed_ms"`
}

type runResult struct {
	GeneratedAtUTC string           `json:"generated_at_utc"`
	Environment    string           `json:"environment"`
	Results        []scenarioResult `json:"results"`
	Drain          drainResult      `json:"drain"`
	SLOEvaluation  map[string]bool  `json:"slo_evaluation"`
}

// latencyGenerator stands in for the model provider with a fixed delay.
type latencyGenerator struct {
	delay time.Duration
}

func (g latencyGenerator) Available() bool { return true }

func (g latencyGenerator) Generate(ctx context.Context, request ai.GenerateRequest) (ai.GenerateResult, error) {
	select {
	case <-ctx.Done():
		return ai.GenerateResult{}, ctx.Err()
	case <-time.After(g.delay):
	}
	return ai.GenerateResult{
		Text:    "# Load Test Article\n\nGenerated body for " + request.Model + ".",
		ModelID: request.Model,
	}, nil
}

type benchmarkEnv struct {
	server     *httptest.Server
	dispatcher *worker.Dispatcher
}

func main() {
	intakeTotal := flag.Int("intake-total", 300, "total generate requests")
	intakeConcurrency := flag.Int("intake-concurrency", 24, "concurrency for generate requests")
	statusTotal := flag.Int("status-total", 300, "total status requests")
	statusConcurrency := flag.Int("status-concurrency", 24, "concurrency for status requests")
	batchSize := flag.Int("batch-size", worker.DefaultBatchSize, "jobs per dispatch pass")
	generationDelay := flag.Duration("generation-delay", 5*time.Millisecond, "simulated provider latency")
	outputPath := flag.String("output", "", "optional path to persist benchmark results JSON")
	verbose := flag.Bool("verbose", false, "log every request")
	flag.Parse()

	level := "disabled"
	if *verbose {
		level = "debug"
	}
	logger := logging.New("development", level)

	env := startBenchmarkEnvironment(logger, *batchSize, *generationDelay)
	defer env.server.Close()

	client := &http.Client{Timeout: 10 * time.Second}

	var jobsMu sync.Mutex
	jobIDs := make([]jobRef, 0, *intakeTotal)
	var ownerCounter int64

	intakeScenario := runScenario("generate_intake", *intakeTotal, *intakeConcurrency, func(index int) error {
		owner := fmt.Sprintf("load-owner-%d", atomic.AddInt64(&ownerCounter, 1))
		payload := map[string]any{
			"topic":    fmt.Sprintf("Load testing topic %d", index),
			"tone":     "professional",
			"length":   "short",
			"audience": []string{"mixed"},
		}
		var accepted struct {
			JobID string `json:"job_id"`
		}
		if err := postJSON(client, env.server.URL+"/v1/generate", payload, ownerHeaders(owner), http.StatusAccepted, &accepted); err != nil {
			return err
		}
		jobsMu.Lock()
		jobIDs = append(jobIDs, jobRef{owner: owner, id: accepted.JobID})
		jobsMu.Unlock()
		return nil
	})

	statusScenario := runScenario("job_status", *statusTotal, *statusConcurrency, func(index int) error {
		jobsMu.Lock()
		if len(jobIDs) == 0 {
			jobsMu.Unlock()
			return fmt.Errorf("no jobs queued")
		}
		ref := jobIDs[index%len(jobIDs)]
		jobsMu.Unlock()
		return getJSON(client, env.server.URL+"/v1/jobs/"+ref.id, ownerHeaders(ref.owner), http.StatusOK)
	})

	drain := drainQueue(client, env.server.URL)

	report := runResult{
		GeneratedAtUTC: time.Now().UTC().Format(time.RFC3339Nano),
		Environment:    "local-httptest",
		Results:        []scenarioResult{intakeScenario, statusScenario},
		Drain:          drain,
		SLOEvaluation: map[string]bool{
			"intake_p95_le_500ms": intakeScenario.P95MS <= 500,
			"status_p95_le_200ms": statusScenario.P95MS <= 200,
			"queue_drained":       drain.Completed+drain.Failed == len(jobIDs),
		},
	}

	encoded, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to marshal benchmark report")
	}

	if *outputPath != "" {
		if err := os.WriteFile(*outputPath, encoded, 0o644); err != nil {
			logger.Fatal().Err(err).Msg("failed to write output file")
		}
	}

	_, _ = fmt.Fprintln(os.Stdout, string(encoded))
}

type jobRef struct {
	owner string
	id    string
}

func ownerHeaders(owner string) map[string]string {
	return map[string]string{middleware.OwnerHeader: owner}
}

func startBenchmarkEnvironment(logger zerolog.Logger, batchSize int, delay time.Duration) *benchmarkEnv {
	store := repository.NewMemoryStore()

	generation := service.NewGenerationService(service.GenerationDependencies{
		Client: latencyGenerator{delay: delay},
		Logger: &logger,
	})
	jobs := service.NewJobsService(store, service.JobsConfig{Logger: &logger})
	posts := service.NewPostsService(store, service.PostsConfig{Logger: &logger})
	dispatcher := worker.NewDispatcher(store, generation, nil, nil, worker.Config{
		BatchSize: batchSize,
		Logger:    &logger,
	})

	api := handlers.NewAPI(handlers.Dependencies{
		Jobs:       jobs,
		Posts:      posts,
		Generation: generation,
		Dispatcher: dispatcher,
		Logger:     &logger,
	})
	router := httpserver.NewRouter(httpserver.RouterDependencies{
		API:         api,
		Logger:      logger,
		CronSecret:  loadCronSecret,
		RateLimiter: middleware.NewRateLimiter(100000, 100000),
	})

	return &benchmarkEnv{
		server:     httptest.NewServer(router),
		dispatcher: dispatcher,
	}
}

// drainQueue triggers dispatch passes through the cron route until a pass
// finds nothing left to do.
func drainQueue(client *http.Client, baseURL string) drainResult {
	startedAt := time.Now()
	result := drainResult{}
	headers := map[string]string{"Authorization": "Bearer " + loadCronSecret}

	for {
		var summary worker.Summary
		if err := postJSON(client, baseURL+"/internal/dispatch", nil, headers, http.StatusOK, &summary); err != nil {
			break
		}
		result.Passes++
		for _, outcome := range summary.Results {
			switch outcome.Status {
			case worker.OutcomeCompleted:
				result.Completed++
			case worker.OutcomeFailed:
				result.Failed++
			case worker.OutcomeSkipped:
				result.Skipped++
			}
		}
		if len(summary.Results) == 0 {
			break
		}
	}

	result.ElapsedMS = round2(float64(time.Since(startedAt).Microseconds()) / 1000.0)
	return result
}

func runScenario(
	name string,
	total int,
	concurrency int,
	requestFn func(index int) error,
) scenarioResult {
	if total <= 0 {
		return scenarioResult{Name: name}
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	startedAt := time.Now()
	type sample struct {
		durationMS float64
		err        string
	}

	jobs := make(chan int, total)
	results := make(chan sample, total)
	for i := 0; i < total; i++ {
		jobs <- i
	}
	close(jobs)

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for index := range jobs {
				requestStart := time.Now()
				err := requestFn(index)
				s := sample{
					durationMS: float64(time.Since(requestStart).Microseconds()) / 1000.0,
				}
				if err != nil {
					s.err = err.Error()
				}
				results <- s
			}
		}()
	}
	wg.Wait()
	close(results)

	durations := make([]float64, 0, total)
	errorSamples := make([]string, 0, 5)
	success := 0
	errorsCount := 0
	for item := range results {
		durations = append(durations, item.durationMS)
		if item.err == "" {
			success++
			continue
		}
		errorsCount++
		if len(errorSamples) < 5 {
			errorSamples = append(errorSamples, item.err)
		}
	}

	sort.Float64s(durations)
	elapsedSeconds := time.Since(startedAt).Seconds()
	throughput := 0.0
	if elapsedSeconds > 0 {
		throughput = float64(total) / elapsedSeconds
	}

	result := scenarioResult{
		Name:          name,
		Total:         total,
		Success:       success,
		Errors:        errorsCount,
		P50MS:         percentile(durations, 0.50),
		P95MS:         percentile(durations, 0.95),
		P99MS:         percentile(durations, 0.99),
		MaxMS:         percentile(durations, 1.00),
		ThroughputRPS: round2(throughput),
		ErrorSamples:  errorSamples,
	}
	return result
}

func postJSON(
	client *http.Client,
	url string,
	payload any,
	headers map[string]string,
	expectedStatus int,
	target any,
) error {
	var body io.Reader = http.NoBody
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	request, err := http.NewRequest(http.MethodPost, url, body)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")
	for key, value := range headers {
		request.Header.Set(key, value)
	}

	response, err := client.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	if response.StatusCode != expectedStatus {
		body, _ := io.ReadAll(io.LimitReader(response.Body, 1024))
		return fmt.Errorf("unexpected status %d (expected %d): %s", response.StatusCode, expectedStatus, string(body))
	}
	if target != nil {
		return json.NewDecoder(response.Body).Decode(target)
	}
	_, _ = io.Copy(io.Discard, response.Body)
	return nil
}

func getJSON(client *http.Client, url string, headers map[string]string, expectedStatus int) error {
	request, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	request.Header.Set("Accept", "application/json")
	for key, value := range headers {
		request.Header.Set(key, value)
	}

	response, err := client.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	if response.StatusCode != expectedStatus {
		body, _ := io.ReadAll(io.LimitReader(response.Body, 1024))
		return fmt.Errorf("unexpected status %d (expected %d): %s", response.StatusCode, expectedStatus, string(body))
	}
	_, _ = io.Copy(io.Discard, response.Body)
	return nil
}

func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	if p <= 0 {
		return round2(values[0])
	}
	if p >= 1 {
		return round2(values[len(values)-1])
	}
	rank := int(math.Ceil(float64(len(values))*p)) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(values) {
		rank = len(values) - 1
	}
	return round2(values[rank])
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
