package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/roach88/enrollcheck/internal/enrollment"
	"github.com/roach88/enrollcheck/internal/eventlog"
	"github.com/roach88/enrollcheck/internal/synthetic"
)

// Config assembles one validation run. Everything is caller-supplied;
// the pipeline derives nothing beyond defaults for Workers and Factory.
type Config struct {
	// SourceRoot is the directory holding event log files.
	SourceRoot string

	// Patterns are glob patterns selecting log files below SourceRoot.
	Patterns []string

	// Interval is the analysis window.
	Interval eventlog.Interval

	// ExpandDays widens file selection beyond the interval, because
	// events do not always land in the file named for their date. The
	// per-event check still uses the strict interval. Zero means the
	// default of one day.
	ExpandDays int

	// OutputRoot is where per-date output files are written.
	OutputRoot string

	// EventOutput selects document mode over tuple mode.
	EventOutput bool

	// GenerateBefore / RequireValidation are passed through to the
	// reconciliation core.
	GenerateBefore    bool
	RequireValidation bool

	// Workers bounds the map and reduce pools. Zero means NumCPU.
	Workers int

	// Factory stamps synthesized documents in document mode. Nil means
	// a production factory with UUIDv7 event IDs; tests inject fixed
	// generators for golden comparison.
	Factory *synthetic.Factory
}

func (c Config) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}

func (c Config) expandDays() int {
	if c.ExpandDays > 0 {
		return c.ExpandDays
	}
	return 1
}

// Summary reports what one run read, synthesized, and wrote.
type Summary struct {
	FilesRead     int
	LinesRead     int64
	EventsMapped  int64
	NonEnrollment int64
	OutOfInterval int64
	Malformed     int64
	Keys          int
	Synthesized   int
	FilesWritten  []string
	Diagnostics   map[enrollment.DiagnosticCode]int
}

// Run executes one full validation pass: select, map, reconcile, write.
func Run(ctx context.Context, cfg Config) (Summary, error) {
	summary := Summary{Diagnostics: make(map[enrollment.DiagnosticCode]int)}

	files, err := eventlog.SelectFiles(cfg.SourceRoot, cfg.Patterns)
	if err != nil {
		return summary, err
	}
	files = eventlog.FilterByInterval(files, cfg.Interval.Expand(cfg.expandDays()))
	slog.Info("event logs selected",
		"source", cfg.SourceRoot,
		"interval", cfg.Interval.String(),
		"files", len(files),
	)

	mapper := NewMapper(cfg.Interval)
	if err := mapFiles(ctx, mapper, files, cfg.workers()); err != nil {
		return summary, err
	}
	groups := mapper.Groups()

	summary.FilesRead = len(files)
	summary.LinesRead = mapper.linesRead
	summary.EventsMapped = mapper.eventsMapped
	summary.NonEnrollment = mapper.nonEnrollment
	summary.OutOfInterval = mapper.outOfInterval
	summary.Malformed = mapper.malformed
	summary.Keys = len(groups)
	slog.Info("events mapped",
		"lines", summary.LinesRead,
		"events", summary.EventsMapped,
		"malformed", summary.Malformed,
		"keys", summary.Keys,
	)

	partitions, synthesized, err := reduceGroups(ctx, cfg, groups, &summary)
	if err != nil {
		return summary, err
	}
	summary.Synthesized = synthesized

	written, err := WritePartitions(cfg.OutputRoot, cfg.EventOutput, partitions)
	summary.FilesWritten = written
	if err != nil {
		return summary, err
	}
	slog.Info("run complete",
		"synthesized", summary.Synthesized,
		"dates", len(written),
	)
	return summary, nil
}

// mapFiles feeds log files to a bounded worker pool sharing one mapper.
func mapFiles(ctx context.Context, mapper *Mapper, files []string, workers int) error {
	paths := make(chan string)
	errs := make(chan error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range paths {
				if err := mapper.MapFile(path); err != nil {
					errs <- err
					return
				}
			}
		}()
	}

	var sendErr error
feed:
	for _, path := range files {
		select {
		case <-ctx.Done():
			sendErr = ctx.Err()
			break feed
		case err := <-errs:
			sendErr = err
			break feed
		case paths <- path:
		}
	}
	close(paths)
	wg.Wait()

	if sendErr != nil {
		return sendErr
	}
	select {
	case err := <-errs:
		return err
	default:
		return nil
	}
}

// keyedResult is one key's encoded output, kept in key order so the
// assembled partitions do not depend on worker scheduling.
type keyedResult struct {
	records []dateRecord
	diags   []enrollment.Diagnostic
}

type dateRecord struct {
	date   string
	record string
}

// reduceGroups reconciles every key and assembles per-date partitions
// deterministically.
func reduceGroups(
	ctx context.Context,
	cfg Config,
	groups map[Key][]enrollment.Event,
	summary *Summary,
) (map[string][]string, int, error) {
	keys := make([]Key, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CourseID != keys[j].CourseID {
			return keys[i].CourseID < keys[j].CourseID
		}
		return keys[i].UserID < keys[j].UserID
	})

	factory := cfg.Factory
	if factory == nil {
		factory = synthetic.NewFactory("enrollment_validation")
	}
	opts := enrollment.Options{
		GenerateBefore:    cfg.GenerateBefore,
		RequireValidation: cfg.RequireValidation,
		LowerBoundDate:    cfg.Interval.Start(),
	}

	results := make([]keyedResult, len(keys))
	indexes := make(chan int)
	errs := make(chan error, cfg.workers())

	var wg sync.WaitGroup
	for i := 0; i < cfg.workers(); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range indexes {
				key := keys[idx]
				result, err := reduceKey(key, groups[key], opts, cfg.EventOutput, factory)
				if err != nil {
					errs <- err
					return
				}
				results[idx] = result
			}
		}()
	}

	var reduceErr error
feed:
	for idx := range keys {
		select {
		case <-ctx.Done():
			reduceErr = ctx.Err()
			break feed
		case err := <-errs:
			reduceErr = err
			break feed
		case indexes <- idx:
		}
	}
	close(indexes)
	wg.Wait()

	if reduceErr == nil {
		select {
		case reduceErr = <-errs:
		default:
		}
	}
	if reduceErr != nil {
		return nil, 0, reduceErr
	}

	partitions := make(map[string][]string)
	synthesized := 0
	for idx, result := range results {
		for _, dr := range result.records {
			partitions[dr.date] = append(partitions[dr.date], dr.record)
			synthesized++
		}
		for _, diag := range result.diags {
			summary.Diagnostics[diag.Code]++
			slog.Warn("reconciliation anomaly",
				"key", keys[idx].String(),
				"code", string(diag.Code),
				"detail", diag.Detail,
			)
		}
	}
	return partitions, synthesized, nil
}

// reduceKey runs one key through the core and encodes its output.
func reduceKey(
	key Key,
	events []enrollment.Event,
	opts enrollment.Options,
	eventOutput bool,
	factory *synthetic.Factory,
) (keyedResult, error) {
	result, err := enrollment.Reconcile(key.CourseID, key.UserID, events, opts)
	if err != nil {
		return keyedResult{}, err
	}

	emitter := synthetic.NewEmitter(key.CourseID, key.UserID, eventOutput, factory)
	records := make([]dateRecord, 0, len(result.Synthesized))
	for _, ev := range result.Synthesized {
		date, record, err := emitter.Encode(ev)
		if err != nil {
			return keyedResult{}, fmt.Errorf("encode output for %s: %w", key, err)
		}
		records = append(records, dateRecord{date: date, record: record})
	}
	return keyedResult{records: records, diags: result.Diagnostics}, nil
}

// DescribeSummary renders a short human-readable run report.
func DescribeSummary(s Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "files read:      %d\n", s.FilesRead)
	fmt.Fprintf(&b, "lines read:      %d\n", s.LinesRead)
	fmt.Fprintf(&b, "events mapped:   %d\n", s.EventsMapped)
	fmt.Fprintf(&b, "malformed lines: %d\n", s.Malformed)
	fmt.Fprintf(&b, "keys:            %d\n", s.Keys)
	fmt.Fprintf(&b, "synthesized:     %d\n", s.Synthesized)
	fmt.Fprintf(&b, "files written:   %d", len(s.FilesWritten))
	if len(s.Diagnostics) > 0 {
		codes := make([]string, 0, len(s.Diagnostics))
		for code := range s.Diagnostics {
			codes = append(codes, string(code))
		}
		sort.Strings(codes)
		for _, code := range codes {
			fmt.Fprintf(&b, "\n%s: %d", code, s.Diagnostics[enrollment.DiagnosticCode(code)])
		}
	}
	return b.String()
}
