package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	contractx "github.com/tanpawarit/interviewforge/agent/contract"
)

const (
	defaultUpstashKey    = "interviewforge:runs"
	defaultPageSize      = 100
	maxResponseSizeBytes = 8 << 20
)

// ErrResponseTooLarge reports a Redis REST response above the read limit.
var ErrResponseTooLarge = errors.New("redis response exceeds size limit")

var _ contractx.RunStore = (*UpstashBank)(nil)

// UpstashOption customizes UpstashBank.
type UpstashOption func(*UpstashBank)

func WithKey(key string) UpstashOption {
	return func(b *UpstashBank) {
		trimmed := strings.TrimSpace(key)
		if trimmed != "" {
			b.key = trimmed
		}
	}
}

func WithHTTPClient(client *http.Client) UpstashOption {
	return func(b *UpstashBank) {
		if client != nil {
			b.httpClient = client
		}
	}
}

// WithPageSize sets how many list entries one LRANGE call loads.
func WithPageSize(n int) UpstashOption {
	return func(b *UpstashBank) {
		if n > 0 {
			b.pageSize = n
		}
	}
}

func WithLogger(logger zerolog.Logger) UpstashOption {
	return func(b *UpstashBank) {
		b.log = logger
	}
}

type UpstashConfig struct {
	URL     string        `envconfig:"URL" split_words:"true"`
	Token   string        `envconfig:"TOKEN" split_words:"true"`
	Key     string        `envconfig:"KEY" split_words:"true" default:"interviewforge:runs"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

// UpstashBank keeps the run history in an Upstash Redis list via REST. Each
// record is one list element, so a save is a single RPUSH.
type UpstashBank struct {
	mu         sync.Mutex
	baseURL    string
	token      string
	key        string
	httpClient *http.Client
	pageSize   int
	maxBody    int64
	runs       []contractx.RunSummary
	log        zerolog.Logger
}

type redisRESTResponse struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

// OpenUpstashBank connects and loads the full history once, one page of
// the list at a time.
func OpenUpstashBank(ctx context.Context, cfg UpstashConfig, opts ...UpstashOption) (*UpstashBank, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("upstash redis url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid redis rest url: %w", err)
	}

	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("upstash redis token is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	b := &UpstashBank{
		baseURL: baseURL,
		token:   token,
		key:     defaultUpstashKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		pageSize: defaultPageSize,
		maxBody:  maxResponseSizeBytes,
		log:      zerolog.Nop(),
	}
	WithKey(cfg.Key)(b)

	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	b.log = b.log.With().Str("component", "memory_bank").Str("backend", "upstash").Str("key", b.key).Logger()

	if err := b.load(ctx); err != nil {
		return nil, fmt.Errorf("%w: load history: %w", contractx.ErrPersistence, err)
	}
	return b, nil
}

func (b *UpstashBank) load(ctx context.Context) error {
	resp, err := b.exec(ctx, []any{"LLEN", b.key})
	if err != nil {
		return err
	}
	var total int
	if err := json.Unmarshal(resp.Result, &total); err != nil {
		return fmt.Errorf("decode history length: %w", err)
	}

	runs := make([]contractx.RunSummary, 0, total)
	for start := 0; start < total; start += b.pageSize {
		stop := start + b.pageSize - 1
		resp, err := b.exec(ctx, []any{"LRANGE", b.key, strconv.Itoa(start), strconv.Itoa(stop)})
		if err != nil {
			return fmt.Errorf("load entries %d..%d: %w", start, stop, err)
		}

		var encoded []string
		result := bytes.TrimSpace(resp.Result)
		if len(result) > 0 && !bytes.Equal(result, []byte("null")) {
			if err := json.Unmarshal(result, &encoded); err != nil {
				return fmt.Errorf("decode history page at %d: %w", start, err)
			}
		}
		for i, item := range encoded {
			var run contractx.RunSummary
			if err := json.Unmarshal([]byte(item), &run); err != nil {
				b.log.Warn().Err(err).Int("index", start+i).Msg("skipping unparseable history entry")
				continue
			}
			runs = append(runs, run)
		}
		// The list shrank while loading.
		if len(encoded) < b.pageSize {
			break
		}
	}
	b.runs = runs
	return nil
}

func (b *UpstashBank) SaveRun(ctx context.Context, run contractx.RunSummary) error {
	if strings.TrimSpace(run.RunID) == "" {
		return ErrNilRun
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if containsRun(b.runs, run.RunID) {
		return fmt.Errorf("%w: run_id=%s", ErrDuplicateRun, run.RunID)
	}

	payload, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal run summary: %w", err)
	}
	if _, err := b.exec(ctx, []any{"RPUSH", b.key, string(payload)}); err != nil {
		return err
	}

	b.runs = append(b.runs, run.Clone())
	b.log.Info().Str("run_id", run.RunID).Int("runs", len(b.runs)).Msg("run saved")
	return nil
}

func (b *UpstashBank) ListRuns() []contractx.RunSummary {
	b.mu.Lock()
	defer b.mu.Unlock()
	return contractx.CloneRuns(b.runs)
}

func (b *UpstashBank) exec(ctx context.Context, command []any) (*redisRESTResponse, error) {
	if b == nil {
		return nil, errors.New("nil store")
	}
	if len(command) == 0 {
		return nil, errors.New("empty redis command")
	}

	body, err := json.Marshal(command)
	if err != nil {
		return nil, fmt.Errorf("marshal redis command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build redis request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+b.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute redis request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, b.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("read redis response: %w", err)
	}
	if int64(len(raw)) > b.maxBody {
		return nil, fmt.Errorf("%w: %v over %d bytes", ErrResponseTooLarge, command[0], b.maxBody)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("redis http status=%d body=%s", resp.StatusCode, string(raw))
	}

	var parsed redisRESTResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode redis response: %w", err)
	}
	if parsed.Error != "" {
		return nil, errors.New(parsed.Error)
	}
	return &parsed, nil
}
